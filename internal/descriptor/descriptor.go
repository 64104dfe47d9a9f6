package descriptor

import (
	"errors"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/utkuozdemir/upd-migrate/internal/identity"
	"github.com/utkuozdemir/upd-migrate/internal/migration"
)

const containerPrefix = "Profile_"

// Builder turns source container paths into migration descriptors.
type Builder struct {
	DestRoot string
	Format   migration.Format
	// FlipFlop names target directories <user>_<SID> instead of <SID>_<user>.
	FlipFlop bool
	Resolver identity.Resolver
	Logger   *log.Entry
}

// Build resolves the owner of the source container and computes its target.
// An owner that cannot be resolved yields an Unresolvable target; errors are returned
// only for failures of the identity infrastructure itself.
func (b *Builder) Build(sourcePath string) (migration.Descriptor, error) {
	d := migration.Descriptor{SourcePath: sourcePath}

	sid, err := identity.SIDFromPath(sourcePath)
	if err != nil {
		return b.unresolvable(d, err), nil
	}

	d.SID = sid

	username, err := b.Resolver.Lookup(sid)
	if err != nil {
		if errors.Is(err, identity.ErrUnresolved) {
			return b.unresolvable(d, err), nil
		}

		return d, fmt.Errorf("failed to resolve owner of %s: %w", sourcePath, err)
	}

	d.Username = username
	d.Target = migration.Resolved{Path: TargetPath(b.DestRoot, sid, username, b.Format, b.FlipFlop)}

	return d, nil
}

// BuildAll builds the descriptors of all source paths, in order.
func (b *Builder) BuildAll(sourcePaths []string) ([]migration.Descriptor, error) {
	descriptors := make([]migration.Descriptor, 0, len(sourcePaths))

	for _, p := range sourcePaths {
		d, err := b.Build(p)
		if err != nil {
			return nil, err
		}

		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

func (b *Builder) unresolvable(d migration.Descriptor, reason error) migration.Descriptor {
	d.Target = migration.Unresolvable{Reason: reason.Error()}
	b.Logger.WithFields(d.LogFields()).WithError(reason).Debug(":question: Owner could not be resolved")

	return d
}

// TargetPath computes <root>\<SID>_<user>\Profile_<user>.<ext>, or <root>\<user>_<SID>\... with flipFlop.
func TargetPath(root, sid, username string, format migration.Format, flipFlop bool) string {
	dir := sid + "_" + username
	if flipFlop {
		dir = username + "_" + sid
	}

	return filepath.Join(root, dir, containerPrefix+username+format.Extension())
}
