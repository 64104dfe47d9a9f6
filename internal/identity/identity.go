package identity

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrUnresolved means the security identifier does not map to an account.
var ErrUnresolved = errors.New("identity could not be resolved")

var (
	sidRegex        = regexp.MustCompile(`^S-1-[0-9]+(-[0-9]+)+$`)
	containerPrefix = "UVHD-"
)

// Resolver maps security identifiers to account names.
type Resolver interface {
	// Lookup returns the account name of sid. Errors wrapping ErrUnresolved mean the account is unknown,
	// any other error is an infrastructure failure.
	Lookup(sid string) (string, error)
}

// SIDFromPath extracts the security identifier from a UVHD-<SID>.vhd[x] container path.
func SIDFromPath(path string) (string, error) {
	name := filepath.Base(path)
	base := strings.TrimSuffix(name, filepath.Ext(name))

	if len(base) <= len(containerPrefix) || !strings.EqualFold(base[:len(containerPrefix)], containerPrefix) {
		return "", fmt.Errorf("%w: %s has no %s prefix", ErrUnresolved, name, containerPrefix)
	}

	sid := strings.ToUpper(base[len(containerPrefix):])
	if !sidRegex.MatchString(sid) {
		return "", fmt.Errorf("%w: %q is not a security identifier", ErrUnresolved, sid)
	}

	return sid, nil
}

// Static resolves identities from a fixed table.
type Static map[string]string

func (s Static) Lookup(sid string) (string, error) {
	name, ok := s[strings.ToUpper(sid)]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, sid)
	}

	return name, nil
}

// accountName strips the domain of a DOMAIN\user account name.
func accountName(account string) string {
	if i := strings.LastIndex(account, `\`); i >= 0 {
		return account[i+1:]
	}

	return account
}
