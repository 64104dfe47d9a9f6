package report_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkuozdemir/upd-migrate/internal/migration"
	"github.com/utkuozdemir/upd-migrate/internal/report"
)

var start = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

func TestWriteAllSucceeded(t *testing.T) {
	t.Parallel()

	o := migration.Outcome{
		BatchID:   "b1",
		Total:     3,
		Succeeded: []string{"a.vhdx", "b.vhdx", "c.vhdx"},
		StartTime: start,
		EndTime:   start.Add(62 * time.Second),
	}

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, &o, false))

	out := buf.String()
	assert.Regexp(t, `Total:\s+3\s*\n`, out)
	assert.Regexp(t, `Eligible:\s+3\s*\n`, out)
	assert.Regexp(t, `Successful:\s+3\s*\n`, out)
	assert.Regexp(t, `Skipped:\s+0\s*\n`, out)
	assert.Regexp(t, `Failed:\s+0\s*\n`, out)
	assert.Regexp(t, `Elapsed:\s+00:01:02`, out)
	assert.Contains(t, out, "Migrated profiles:\n  a.vhdx\n  b.vhdx\n  c.vhdx\n")
	assert.NotContains(t, out, "Skipped profiles")
	assert.NotContains(t, out, "Failed profiles")
	assert.NotContains(t, out, "Interrupted")
}

func TestWriteMixedWithDetails(t *testing.T) {
	t.Parallel()

	o := migration.Outcome{
		Total:        3,
		Unresolvable: 1,
		Skipped:      []string{"b.vhdx"},
		Failed:       []string{"a.vhdx", "c.vhdx"},
		Interrupted:  true,
		Results: []migration.ProfileResult{
			{SourcePath: "a.vhdx", TargetPath: migration.CannotCopy, Final: migration.StateUnresolvable},
			{SourcePath: "b.vhdx", TargetPath: "b/Profile_b.vhdx", Final: migration.StateSkipped},
			{
				SourcePath: "c.vhdx", TargetPath: "c/Profile_c.vhdx", Final: migration.StateFailed,
				FailedAt: "copy", Err: errors.New("robocopy exited with code 8"), Duration: 5 * time.Second,
			},
		},
	}

	s := report.Summarize(&o)
	assert.Equal(t, 2, s.Eligible)
	assert.Equal(t, 2, s.Failed)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, &o, true))

	out := buf.String()
	assert.Regexp(t, `Eligible:\s+2\s*\n`, out)
	assert.Regexp(t, `Failed:\s+2\s*\n`, out)
	assert.NotContains(t, out, "Migrated profiles")
	assert.Contains(t, out, "Skipped profiles (destination exists):\n  b.vhdx\n")
	assert.Contains(t, out, "Failed profiles:\n  a.vhdx\n  c.vhdx\n")
	assert.Contains(t, out, "Interrupted")
	assert.Contains(t, out, "CANNOT_COPY")
	assert.Contains(t, out, "failed (copy)")
	assert.Contains(t, out, "robocopy exited with code 8")
	assert.Contains(t, out, "00:00:05")
}

func TestWriteEmptyBatch(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, &migration.Outcome{}, true))
	assert.Regexp(t, `Total:\s+0\s*\n`, buf.String())
	assert.NotContains(t, buf.String(), "SOURCE")
}

func TestAppendBanner(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "migrate.log")
	require.NoError(t, os.WriteFile(path, []byte("earlier line\n"), 0o600))

	require.NoError(t, report.AppendBanner(path, "b1", start))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "earlier line\n==== upd-migrate batch b1 completed at 2026-10-15T08:00:00Z ====\n", string(content))
}

func TestAppendBannerInvalidPath(t *testing.T) {
	t.Parallel()

	err := report.AppendBanner(filepath.Join(t.TempDir(), "missing", "x.log"), "b1", start)
	assert.Error(t, err)
}
