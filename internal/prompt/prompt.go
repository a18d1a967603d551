// Package prompt asks the user questions on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

var (
	ErrCancelled      = errors.New("prompt cancelled")
	ErrNotInteractive = errors.New("stdin is not a terminal")
)

// Prompter is everything the upload flow asks the user.
type Prompter interface {
	Confirm(message string) (bool, error)
	// SelectOne returns the index of the chosen item.
	SelectOne(label string, items []string) (int, error)
	// SelectMany lets the user toggle items starting from selected and
	// returns the final state.
	SelectMany(label string, items []string, selected []bool) ([]bool, error)
	Text(label string) (string, error)
	Password(label string) (string, error)
}

// Terminal prompts on stdin and stdout.
type Terminal struct {
	fd int
}

func NewTerminal() Terminal {
	return Terminal{fd: int(os.Stdin.Fd())}
}

func (t Terminal) Interactive() bool {
	return term.IsTerminal(t.fd)
}

func promptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return ErrCancelled
	}
	return err
}

func (t Terminal) Confirm(message string) (bool, error) {
	if !t.Interactive() {
		return false, ErrNotInteractive
	}
	p := promptui.Prompt{
		Label:     message,
		IsConfirm: true,
	}
	_, err := p.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if err != nil {
		return false, promptError(err)
	}
	return true, nil
}

func (t Terminal) SelectOne(label string, items []string) (int, error) {
	if !t.Interactive() {
		return 0, ErrNotInteractive
	}
	s := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
	}
	index, _, err := s.Run()
	if err != nil {
		return 0, promptError(err)
	}
	return index, nil
}

const doneItem = "Done"

func (t Terminal) SelectMany(label string, items []string, selected []bool) ([]bool, error) {
	if !t.Interactive() {
		return nil, ErrNotInteractive
	}
	state := make([]bool, len(items))
	copy(state, selected)

	cursor, scroll := len(items), 0
	for {
		rows := make([]string, 0, len(items)+1)
		for i, item := range items {
			mark := "[ ]"
			if state[i] {
				mark = "[x]"
			}
			rows = append(rows, mark+" "+item)
		}
		rows = append(rows, doneItem)

		s := promptui.Select{
			Label:        label,
			Items:        rows,
			Size:         10,
			HideSelected: true,
		}
		index, _, err := s.RunCursorAt(cursor, scroll)
		if err != nil {
			return nil, promptError(err)
		}
		if index == len(items) {
			return state, nil
		}
		state[index] = !state[index]
		cursor, scroll = index, s.ScrollPosition()
	}
}

func (t Terminal) Text(label string) (string, error) {
	if !t.Interactive() {
		return "", ErrNotInteractive
	}
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("must not be empty")
			}
			return nil
		},
	}
	value, err := p.Run()
	if err != nil {
		return "", promptError(err)
	}
	return strings.TrimSpace(value), nil
}

// Password reads without echo from a terminal, otherwise the first line of
// stdin is used so the password can be piped in.
func (t Terminal) Password(label string) (string, error) {
	if !t.Interactive() {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	password, err := term.ReadPassword(t.fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(password) == 0 {
		return "", ErrCancelled
	}
	return string(password), nil
}
