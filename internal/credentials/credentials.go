// Package credentials finds the portal login of the user and keeps the
// password in the system keychain.
package credentials

import (
	"errors"
	"fmt"

	"ilias-uploader/internal/components/assert"
	"ilias-uploader/internal/components/telemetry"
	"ilias-uploader/internal/prompt"

	"github.com/zalando/go-keyring"
)

const (
	report_keychain_get    = "keychain.get"
	report_keychain_set    = "keychain.set"
	report_keychain_delete = "keychain.delete"
)

const (
	KeychainService = "ilias-upload"
	PasswordEnv     = "ILIAS_PASSWORD"
)

// Source is where a password came from.
type Source int

const (
	SourceFlag Source = iota
	SourceEnv
	SourceKeychain
	SourcePrompt
)

func (s Source) String() string {
	switch s {
	case SourceFlag:
		return "flag"
	case SourceEnv:
		return "environment"
	case SourceKeychain:
		return "keychain"
	case SourcePrompt:
		return "prompt"
	}
	return "unknown"
}

type Credentials struct {
	Username string
	Password string
	Source   Source
}

type Resolver struct {
	prompter prompt.Prompter
	getenv   func(string) string
	tel      telemetry.API
}

func NewResolver(prompter prompt.Prompter, getenv func(string) string, tel telemetry.API) Resolver {
	assert.NotNil(prompter, "prompter")
	assert.NotNil(getenv, "getenv")
	assert.NotNil(tel, "tel")
	return Resolver{
		prompter: prompter,
		getenv:   getenv,
		tel:      telemetry.NewScopedAPI("credentials", tel),
	}
}

// Resolve completes the given login. The username is prompted for if
// empty, the password is taken from the first of: the argument, the
// environment, the keychain and finally a prompt.
func (r Resolver) Resolve(username, password string) (Credentials, error) {
	if username == "" {
		var err error
		username, err = r.prompter.Text("Username")
		if err != nil {
			return Credentials{}, fmt.Errorf("username: %w", err)
		}
	}
	creds := Credentials{Username: username}

	if password != "" {
		creds.Password, creds.Source = password, SourceFlag
		return creds, nil
	}
	if env := r.getenv(PasswordEnv); env != "" {
		creds.Password, creds.Source = env, SourceEnv
		return creds, nil
	}

	stored, err := keyring.Get(KeychainService, username)
	switch {
	case err == nil:
		creds.Password, creds.Source = stored, SourceKeychain
		return creds, nil
	case errors.Is(err, keyring.ErrNotFound):
	default:
		// a missing or locked keychain only means falling back to a prompt
		r.tel.ReportWarning(report_keychain_get, err)
	}

	creds.Password, err = r.prompter.Password(fmt.Sprintf("Password for %s", username))
	if err != nil {
		return Credentials{}, fmt.Errorf("password: %w", err)
	}
	creds.Source = SourcePrompt
	return creds, nil
}

// Store saves the password in the keychain unless it came from there.
func (r Resolver) Store(creds Credentials) error {
	if creds.Source == SourceKeychain {
		return nil
	}
	err := keyring.Set(KeychainService, creds.Username, creds.Password)
	if err != nil {
		r.tel.ReportWarning(report_keychain_set, err)
		return fmt.Errorf("store password in keychain: %w", err)
	}
	r.tel.ReportDebug("stored password in keychain", creds.Username)
	return nil
}

// Forget removes a stored password, used after the portal rejected it.
func (r Resolver) Forget(username string) error {
	err := keyring.Delete(KeychainService, username)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		r.tel.ReportWarning(report_keychain_delete, err)
		return fmt.Errorf("remove password from keychain: %w", err)
	}
	return nil
}
