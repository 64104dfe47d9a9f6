package migration

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// CannotCopy is how an unresolvable target is displayed in logs and reports.
const CannotCopy = "CANNOT_COPY"

// Target is the destination of a descriptor, either Resolved or Unresolvable.
type Target interface {
	isTarget()
}

// Resolved is a computed destination container path.
type Resolved struct {
	Path string
}

func (Resolved) isTarget() {}

// Unresolvable marks a descriptor whose owner could not be mapped to a destination.
type Unresolvable struct {
	Reason string
}

func (Unresolvable) isTarget() {}

// Descriptor describes the migration of a single profile container.
type Descriptor struct {
	SourcePath string
	Username   string
	SID        string
	Target     Target
}

// TargetPath returns the resolved destination path, or false if the descriptor is unresolvable.
func (d *Descriptor) TargetPath() (string, bool) {
	r, ok := d.Target.(Resolved)
	if !ok {
		return "", false
	}

	return r.Path, true
}

func (d *Descriptor) TargetString() string {
	if p, ok := d.TargetPath(); ok {
		return p
	}

	return CannotCopy
}

func (d *Descriptor) LogFields() log.Fields {
	return log.Fields{
		"source": d.SourcePath,
		"user":   d.Username,
		"sid":    d.SID,
		"target": d.TargetString(),
	}
}

type State string

const (
	StatePending                State = "pending"
	StateSourceMounted          State = "source-mounted"
	StateDestinationProvisioned State = "destination-provisioned"
	StateCopied                 State = "copied"
	StateVerified               State = "verified"
	StatePermissionsApplied     State = "permissions-applied"
	StateDismounted             State = "dismounted"
	StateRecorded               State = "recorded"

	StateSkipped      State = "skipped"
	StateUnresolvable State = "unresolvable"
	StateFailed       State = "failed"
)

// ProfileResult is the terminal record of one profile's processing.
type ProfileResult struct {
	SourcePath string
	TargetPath string
	// Reached is the last state of the main path that was entered.
	Reached   State
	Final     State
	Succeeded bool
	FailedAt  string
	Err       error
	Warnings  []string
	Duration  time.Duration
}

// Outcome accumulates the results of a batch.
type Outcome struct {
	BatchID      string
	Total        int
	Unresolvable int
	Succeeded    []string
	Skipped      []string
	Failed       []string
	Results      []ProfileResult
	StartTime    time.Time
	EndTime      time.Time
	Interrupted  bool
}

func (o *Outcome) SuccessCount() int {
	return len(o.Succeeded)
}

func (o *Outcome) SkippedCount() int {
	return len(o.Skipped)
}

func (o *Outcome) FailedCount() int {
	return o.Total - o.SuccessCount() - o.SkippedCount()
}

func (o *Outcome) Eligible() int {
	return o.Total - o.Unresolvable
}

func (o *Outcome) Elapsed() time.Duration {
	return o.EndTime.Sub(o.StartTime)
}
