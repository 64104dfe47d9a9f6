package permission

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/utkuozdemir/upd-migrate/internal/shell"
)

const (
	icaclsBinary = "icacls.exe"
	attribBinary = "attrib.exe"

	RightsFullControl = "F"
)

// Principal is an account in the form icacls accepts. SIDs are prefixed with '*'.
type Principal string

const (
	System         Principal = "*S-1-5-18"
	Administrators Principal = "*S-1-5-32-544"
)

// SIDPrincipal returns the principal for a security identifier.
func SIDPrincipal(sid string) Principal {
	return Principal("*" + strings.TrimPrefix(sid, "*"))
}

// Grant is an allow entry.
type Grant struct {
	Principal Principal
	Rights    string
	// Inherit makes the entry inherited by child containers and objects.
	Inherit bool
}

func (g Grant) String() string {
	if g.Inherit {
		return fmt.Sprintf("%s:(OI)(CI)%s", g.Principal, g.Rights)
	}

	return fmt.Sprintf("%s:%s", g.Principal, g.Rights)
}

type ACLOptions struct {
	// RemoveInherited disables inheritance and drops inherited entries.
	RemoveInherited bool
	Recursive       bool
}

// Applier sets ownership, ACL entries and attributes on filesystem paths.
type Applier interface {
	SetOwnerAndACL(ctx context.Context, path string, owner Principal, grants []Grant, opts ACLOptions) error
	// ClearAttributes removes the hidden and system attributes from path and everything below it.
	ClearAttributes(ctx context.Context, path string) error
}

type icacls struct {
	runner *shell.Runner
	logger *log.Entry
}

// NewIcacls returns an Applier backed by icacls and attrib.
func NewIcacls(runner *shell.Runner, logger *log.Entry) Applier {
	return &icacls{runner: runner, logger: logger}
}

func (a *icacls) SetOwnerAndACL(ctx context.Context, path string, owner Principal,
	grants []Grant, opts ACLOptions,
) error {
	for _, args := range IcaclsArgs(path, owner, grants, opts) {
		if _, err := a.runner.Run(ctx, icaclsBinary, args...); err != nil {
			return fmt.Errorf("failed to set permissions on %s: %w", path, err)
		}
	}

	a.logger.WithField("path", path).Debugf("Owner set to %s, granted %d entries", owner, len(grants))

	return nil
}

func (a *icacls) ClearAttributes(ctx context.Context, path string) error {
	if _, err := a.runner.Run(ctx, attribBinary, "-H", "-S", path); err != nil {
		return fmt.Errorf("failed to clear attributes on %s: %w", path, err)
	}

	if _, err := a.runner.Run(ctx, attribBinary, "-H", "-S", filepath.Join(path, "*"), "/S", "/D"); err != nil {
		return fmt.Errorf("failed to clear attributes below %s: %w", path, err)
	}

	return nil
}

// IcaclsArgs returns the icacls invocations, in order, that apply the owner and grants to path.
func IcaclsArgs(path string, owner Principal, grants []Grant, opts ACLOptions) [][]string {
	var recursive []string
	if opts.Recursive {
		recursive = []string{"/T"}
	}

	var calls [][]string

	if owner != "" {
		calls = append(calls, concat([]string{path, "/setowner", string(owner)}, recursive, []string{"/C", "/Q"}))
	}

	if opts.RemoveInherited {
		calls = append(calls, []string{path, "/inheritance:r", "/Q"})
	}

	if len(grants) > 0 {
		args := []string{path, "/grant:r"}
		for _, g := range grants {
			args = append(args, g.String())
		}

		calls = append(calls, concat(args, recursive, []string{"/C", "/Q"}))
	}

	return calls
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}
