//go:build !windows

package identity

import "fmt"

type system struct{}

// NewSystem returns a Resolver using the account database of the host. Account lookups
// by security identifier exist only on Windows; elsewhere every identity is unresolved.
func NewSystem() Resolver {
	return system{}
}

func (system) Lookup(sid string) (string, error) {
	return "", fmt.Errorf("%w: %s: account lookup is not supported on this platform", ErrUnresolved, sid)
}
