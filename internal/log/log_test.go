package log

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureFancy(t *testing.T) {
	t.Parallel()

	l, err := New(context.Background())
	assert.NoError(t, err)
	err = Configure(l, "debug", "fancy")
	assert.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.Logger.Level)
}

func TestConfigureEntryWithoutContext(t *testing.T) {
	t.Parallel()

	l := logrus.NewEntry(logrus.New())
	require.NoError(t, Configure(l, LevelWarn, FormatFancy))
	assert.Equal(t, logrus.WarnLevel, l.Logger.Level)
	assert.Equal(t, FormatFancy, l.Context.Value(FormatContextKey))
}

func TestConfigureJson(t *testing.T) {
	t.Parallel()

	l, err := New(context.Background())
	assert.NoError(t, err)
	err = Configure(l, "info", "json")
	assert.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.Logger.Level)
}

func TestBuildInvalidLevel(t *testing.T) {
	t.Parallel()

	l, err := New(context.Background())
	assert.NoError(t, err)
	err = Configure(l, "invalid", "json")
	assert.Error(t, err)
}

func TestBuildInvalidFormat(t *testing.T) {
	t.Parallel()

	l, err := New(context.Background())
	assert.NoError(t, err)
	err = Configure(l, "debug", "invalid")
	assert.Error(t, err)
}

func TestFancyFormatterRendersEmojiAndError(t *testing.T) {
	t.Parallel()

	l, err := New(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	l.Logger.SetOutput(&buf)
	l.WithError(errors.New("boom")).Warn(":rocket: Mounting")

	assert.Contains(t, buf.String(), "🚀")
	assert.Contains(t, buf.String(), "Mounting: boom\n")
	assert.NotContains(t, buf.String(), ":rocket:")
}

func TestAttachFileAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "migration.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o600))

	l, err := New(context.Background())
	require.NoError(t, err)
	l.Logger.SetOutput(&bytes.Buffer{})

	closer, err := AttachFile(l, path)
	require.NoError(t, err)

	l.WithField("source", "UVHD-S-1-5-21-1.vhdx").Info(":floppy_disk: Mounting source container")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "previous run\n")
	assert.Contains(t, string(content), "msg=Mounting source container")
	assert.Contains(t, string(content), "source=UVHD-S-1-5-21-1.vhdx")
	assert.NotContains(t, string(content), ":floppy_disk:")
}

func TestAttachFileInvalidPath(t *testing.T) {
	t.Parallel()

	l, err := New(context.Background())
	require.NoError(t, err)

	_, err = AttachFile(l, filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}

func TestStripEmojiKeepsTimes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Profile migrated in 00:01:02", StripEmoji(":check_mark_button: Profile migrated in 00:01:02"))
	assert.Equal(t, `Mounted at E:\`, StripEmoji(`Mounted at E:\`))
}
