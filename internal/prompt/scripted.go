package prompt

import (
	"fmt"
	"sync"
)

// Scripted answers prompts from prepared answers in order, for tests. A
// nil entry in Toggles keeps the preselection of a SelectMany.
type Scripted struct {
	Confirms   []bool
	Selections []int
	Toggles    [][]bool
	Texts      []string
	Passwords  []string

	mutex sync.Mutex
	asked []string
}

func pop[T any](s *Scripted, queue *[]T, question string) (T, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.asked = append(s.asked, question)

	var zero T
	if len(*queue) == 0 {
		return zero, fmt.Errorf("%w: no scripted answer for %q", ErrCancelled, question)
	}
	answer := (*queue)[0]
	*queue = (*queue)[1:]
	return answer, nil
}

// Asked returns every question in the order it was asked.
func (s *Scripted) Asked() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]string, len(s.asked))
	copy(out, s.asked)
	return out
}

func (s *Scripted) Confirm(message string) (bool, error) {
	return pop(s, &s.Confirms, message)
}

func (s *Scripted) SelectOne(label string, items []string) (int, error) {
	index, err := pop(s, &s.Selections, label)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(items) {
		return 0, fmt.Errorf("scripted selection %d out of range for %q", index, label)
	}
	return index, nil
}

func (s *Scripted) SelectMany(label string, items []string, selected []bool) ([]bool, error) {
	toggles, err := pop(s, &s.Toggles, label)
	if err != nil {
		return nil, err
	}
	if toggles == nil {
		out := make([]bool, len(selected))
		copy(out, selected)
		return out, nil
	}
	if len(toggles) != len(items) {
		return nil, fmt.Errorf("scripted selection has %d entries, %q has %d items", len(toggles), label, len(items))
	}
	return toggles, nil
}

func (s *Scripted) Text(label string) (string, error) {
	return pop(s, &s.Texts, label)
}

func (s *Scripted) Password(label string) (string, error) {
	return pop(s, &s.Passwords, label)
}
