// Package creds stores the two platform API tokens in the OS keychain and
// falls back to a no-echo terminal prompt when a token is missing.
package creds

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

// service is the keychain service name all gradewire secrets live under.
const service = "gradewire"

// Keychain accounts, one per remote platform.
const (
	AccountCourse = "course-platform"
	AccountSurvey = "survey-platform"
)

// Get returns the stored token for an account, or "" when none is stored.
func Get(account string) (string, error) {
	tok, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read keychain: %w", err)
	}
	return tok, nil
}

// Save stores a token for an account.
func Save(account, token string) error {
	if err := keyring.Set(service, account, token); err != nil {
		return fmt.Errorf("write keychain: %w", err)
	}
	return nil
}

// Delete removes a stored token. Missing entries are not an error.
func Delete(account string) error {
	err := keyring.Delete(service, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keychain entry: %w", err)
	}
	return nil
}

// Prompt reads a token from the terminal without echoing it.
func Prompt(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no %s token stored and stdin is not a terminal", label)
	}
	fmt.Fprintf(os.Stderr, "%s API token: ", label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Resolve finds a token by precedence: the explicit value (flag or
// environment), then the keychain, then an interactive prompt. A prompted
// token is saved to the keychain for next time when save is true.
func Resolve(explicit, account, label string, save bool) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	tok, err := Get(account)
	if err != nil {
		return "", err
	}
	if tok != "" {
		return tok, nil
	}
	tok, err = Prompt(label)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", fmt.Errorf("empty %s token", label)
	}
	if save {
		if err := Save(account, tok); err != nil {
			slog.Warn("token not saved to keychain", "account", account, "error", err)
		}
	}
	return tok, nil
}
