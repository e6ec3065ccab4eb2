// Package keyring keeps the PostgreSQL connection string out of flags, env
// files and shell history by storing it in the OS credential store.
package keyring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/studyplan/internal/constants"
)

var (
	ErrNotFound           = errors.New("credentials not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// account names the keyring entry for a profile; the empty profile is the default one.
func account(profile string) string {
	if profile == "" {
		return constants.DefaultKeyringUser
	}
	return constants.DefaultKeyringUser + ":" + profile
}

func GetConnectionString(profile string) (string, error) {
	connStr, err := keyring.Get(constants.AppName, account(profile))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return connStr, nil
}

func SetConnectionString(profile, connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(constants.AppName, account(profile), connStr); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

func DeleteConnectionString(profile string) error {
	if err := keyring.Delete(constants.AppName, account(profile)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// Resolve turns the --db value into a storage location. The literal "keyring"
// (optionally "keyring:<profile>") is replaced by the stored connection string;
// anything else is returned unchanged.
func Resolve(location string) (string, error) {
	name, profile, _ := strings.Cut(location, ":")
	if name != constants.KeyringConfigValue {
		return location, nil
	}
	connStr, err := GetConnectionString(profile)
	if err != nil {
		return "", fmt.Errorf("reading connection string from keyring: %w", err)
	}
	return connStr, nil
}
