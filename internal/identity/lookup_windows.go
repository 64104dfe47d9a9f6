//go:build windows

package identity

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

type system struct{}

// NewSystem returns a Resolver using the account database of the local machine and its domain.
func NewSystem() Resolver {
	return system{}
}

func (system) Lookup(sid string) (string, error) {
	s, err := windows.StringToSid(sid)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolved, sid, err)
	}

	account, _, _, err := s.LookupAccount("")
	if err != nil {
		if errors.Is(err, windows.ERROR_NONE_MAPPED) {
			return "", fmt.Errorf("%w: %s", ErrUnresolved, sid)
		}

		return "", fmt.Errorf("failed to look up %s: %w", sid, err)
	}

	if account == "" {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, sid)
	}

	return accountName(account), nil
}
