package migrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/clock"
	log "github.com/sirupsen/logrus"

	"github.com/utkuozdemir/upd-migrate/internal/disk"
	"github.com/utkuozdemir/upd-migrate/internal/migration"
	"github.com/utkuozdemir/upd-migrate/internal/permission"
	"github.com/utkuozdemir/upd-migrate/internal/replicate"
	"github.com/utkuozdemir/upd-migrate/internal/util"
	"github.com/utkuozdemir/upd-migrate/internal/verify"
)

const (
	stepMountSource = "mount source"
	stepProvision   = "provision destination"
	stepCopy        = "copy"
	stepRecord      = "record"

	volumeLabelPrefix = "Profile-"
)

type verifyFunc func(src, dst string, excluded []string) (verify.Result, error)

type Migrator struct {
	disks       disk.Service
	replicator  replicate.Replicator
	permissions permission.Applier
	clock       clock.Clock
	verify      verifyFunc
}

// New creates a new migrator
func New(disks disk.Service, replicator replicate.Replicator, permissions permission.Applier,
	clk clock.Clock,
) *Migrator {
	return &Migrator{
		disks:       disks,
		replicator:  replicator,
		permissions: permissions,
		clock:       clk,
		verify:      verify.Compare,
	}
}

// Run migrates the profiles of the descriptors one after the other. A failing profile never
// stops the batch; its source is recorded as failed and the next descriptor is processed.
// Cancelling ctx stops the batch before the next profile starts; the profile in flight
// is still driven to a terminal state with both containers dismounted.
func (m *Migrator) Run(ctx context.Context, descriptors []migration.Descriptor,
	req *migration.Request,
) (*migration.Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	outcome := migration.Outcome{
		BatchID:   uuid.NewString(),
		StartTime: m.clock.Now(),
	}

	logger := req.Logger.WithField("batch", outcome.BatchID)
	logger.WithFields(req.LogFields()).
		Infof(":rocket: Starting migration of %d profiles", len(descriptors))

	for i := range descriptors {
		if ctx.Err() != nil {
			outcome.Interrupted = true
			logger.Warnf(":stop_sign: Batch interrupted, %d profiles were not started", len(descriptors)-i)

			break
		}

		d := &descriptors[i]
		pLogger := logger.WithFields(d.LogFields())
		pLogger.Infof(":package: Profile %d/%d", i+1, len(descriptors))

		res := m.migrate(ctx, d, req, pLogger)
		outcome.Total++
		outcome.Results = append(outcome.Results, res)

		switch res.Final {
		case migration.StateRecorded:
			outcome.Succeeded = append(outcome.Succeeded, d.SourcePath)
		case migration.StateSkipped:
			outcome.Skipped = append(outcome.Skipped, d.SourcePath)
		case migration.StateUnresolvable:
			outcome.Unresolvable++
			outcome.Failed = append(outcome.Failed, d.SourcePath)
		default:
			outcome.Failed = append(outcome.Failed, d.SourcePath)
		}
	}

	outcome.EndTime = m.clock.Now()
	logger.Infof(":stopwatch: Batch finished in %s", util.FormatElapsed(outcome.Elapsed()))

	return &outcome, nil
}

func (m *Migrator) migrate(ctx context.Context, d *migration.Descriptor, req *migration.Request,
	logger *log.Entry,
) migration.ProfileResult {
	start := m.clock.Now()
	res := migration.ProfileResult{
		SourcePath: d.SourcePath,
		TargetPath: d.TargetString(),
		Reached:    migration.StatePending,
	}

	m.process(ctx, d, req, logger, &res)

	res.Duration = m.clock.Now().Sub(start)
	elapsed := util.FormatElapsed(res.Duration)

	switch res.Final {
	case migration.StateRecorded:
		logger.Infof(":check_mark_button: Profile migrated in %s", elapsed)
	case migration.StateSkipped:
		logger.Info(":fast_forward: Destination already exists, skipping")
	case migration.StateUnresolvable:
		logger.Warnf(":large_orange_diamond: Owner could not be resolved, target is %s", migration.CannotCopy)
	default:
		logger.WithField("step", res.FailedAt).WithError(res.Err).
			Errorf(":cross_mark: Profile failed at step %q after %s", res.FailedAt, elapsed)
	}

	return res
}

func (m *Migrator) process(ctx context.Context, d *migration.Descriptor, req *migration.Request,
	logger *log.Entry, res *migration.ProfileResult,
) {
	target, ok := d.TargetPath()
	if !ok {
		res.Final = migration.StateUnresolvable

		return
	}

	exists, err := TargetExists(target)
	if err != nil {
		logger.WithError(err).Warn(":large_orange_diamond: Cannot check the destination for an earlier migration")
	}

	if exists {
		res.Final = migration.StateSkipped

		return
	}

	if err := ctx.Err(); err != nil {
		fail(res, stepMountSource, err)

		return
	}

	logger.Info(":floppy_disk: Mounting source container")

	src, err := m.disks.Mount(ctx, d.SourcePath, disk.AccessReadOnly)
	if err != nil {
		fail(res, stepMountSource, err)

		return
	}

	res.Reached = migration.StateSourceMounted

	// the profile in flight is finished even if the batch is interrupted
	stepCtx := context.WithoutCancel(ctx)
	step, err := m.transfer(ctx, stepCtx, d, target, src, req, logger, res)

	m.dismount(stepCtx, target, logger.WithField("container", "destination"), res)
	m.dismount(stepCtx, d.SourcePath, logger.WithField("container", "source"), res)

	if err != nil {
		fail(res, step, err)

		return
	}

	res.Reached = migration.StateDismounted

	if _, err := os.Stat(target); err != nil {
		fail(res, stepRecord, fmt.Errorf("destination container is missing: %w", err))

		return
	}

	res.Reached = migration.StateRecorded
	res.Final = migration.StateRecorded
	res.Succeeded = true
}

// transfer runs the steps between the mounts and the dismounts, returning the failing step.
func (m *Migrator) transfer(ctx, stepCtx context.Context, d *migration.Descriptor, target string,
	src disk.Volume, req *migration.Request, logger *log.Entry, res *migration.ProfileResult,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return stepProvision, err
	}

	dest, err := m.provision(stepCtx, d, target, req, logger)
	if err != nil {
		return stepProvision, err
	}

	res.Reached = migration.StateDestinationProvisioned

	profileDir := filepath.Join(dest.MountPoint, migration.ProfileDirName)

	logger.Infof(":open_file_folder: Copying profile to %s", profileDir)

	if err := m.replicator.Copy(stepCtx, src.MountPoint, profileDir, req.VerboseCopy); err != nil {
		return stepCopy, err
	}

	res.Reached = migration.StateCopied

	result, err := m.verify(src.MountPoint, profileDir, replicate.ExcludedDirs)

	switch {
	case err != nil:
		warn(res, logger.WithError(err), "Copy could not be verified")
	case !result.Match():
		logger.Debug(result.Unified)
		warn(res, logger, "Copy differs from source: "+result.Summary())
	default:
		logger.Info(":mag: Copy verified")
	}

	res.Reached = migration.StateVerified

	policy := permission.Policy{
		ProfileDir: profileDir,
		TargetDir:  filepath.Dir(target),
		SID:        d.SID,
		Username:   d.Username,
	}

	if err := policy.Apply(stepCtx, m.permissions, logger); err != nil {
		warn(res, logger.WithError(err), "Permissions were applied partially")
	}

	res.Reached = migration.StatePermissionsApplied

	return "", nil
}

func (m *Migrator) provision(ctx context.Context, d *migration.Descriptor, target string,
	req *migration.Request, logger *log.Entry,
) (disk.Volume, error) {
	if err := os.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
		return disk.Volume{}, fmt.Errorf("failed to create target directory: %w", err)
	}

	opts := disk.CreateOptions{
		Path:       target,
		SizeGB:     req.MaxSizeGB,
		SectorSize: req.SectorSize,
		Format:     req.Format,
		Label:      volumeLabelPrefix + d.Username,
	}

	logger.Infof(":hammer_and_wrench: Creating destination container")

	if err := m.disks.Create(ctx, opts); err != nil {
		return disk.Volume{}, err
	}

	return m.disks.Mount(ctx, target, disk.AccessReadWrite)
}

func (m *Migrator) dismount(ctx context.Context, path string, logger *log.Entry, res *migration.ProfileResult) {
	if err := m.disks.Dismount(ctx, path); err != nil {
		warn(res, logger.WithError(err), "Dismount failed")

		return
	}

	logger.Debug(":eject_button: Dismounted")
}

// TargetExists reports whether the directory of target holds any file whose name starts with
// the name of target without its extension.
func TargetExists(target string) (bool, error) {
	base := filepath.Base(target)
	prefix := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	entries, err := os.ReadDir(filepath.Dir(target))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
			return true, nil
		}
	}

	return false, nil
}

func fail(res *migration.ProfileResult, step string, err error) {
	res.Final = migration.StateFailed
	res.FailedAt = step
	res.Err = err
}

func warn(res *migration.ProfileResult, logger *log.Entry, msg string) {
	res.Warnings = append(res.Warnings, msg)
	logger.Warn(":large_orange_diamond: " + msg)
}
