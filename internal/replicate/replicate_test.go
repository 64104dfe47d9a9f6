package replicate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	fakeexec "k8s.io/utils/exec/testing"

	"github.com/utkuozdemir/upd-migrate/internal/shell"
	"github.com/utkuozdemir/upd-migrate/internal/testutil"
)

func TestParseFileLine(t *testing.T) {
	t.Parallel()

	fl, err := ParseFileLine("\t\t\t        2048\tE:\\AppData\\Roaming\\app.dat\r")
	require.NoError(t, err)
	assert.Equal(t, int64(2048), fl.Bytes)
	assert.Equal(t, `E:\AppData\Roaming\app.dat`, fl.Path)

	_, err = ParseFileLine("2026/10/15 10:00:00 ERROR 5 (0x00000005) Copying File E:\\NTUSER.DAT")
	assert.Error(t, err)

	_, err = ParseFileLine("")
	assert.Error(t, err)
}

func TestParseErrorLine(t *testing.T) {
	t.Parallel()

	msg, ok := ParseErrorLine("2026/10/15 10:00:00 ERROR 5 (0x00000005) Copying File E:\\NTUSER.DAT")
	require.True(t, ok)
	assert.Equal(t, `error 5: Copying File E:\NTUSER.DAT`, msg)

	_, ok = ParseErrorLine("   2048\tE:\\a.txt")
	assert.False(t, ok)
}

func TestArgs(t *testing.T) {
	t.Parallel()

	args := Args(`E:\`, `F:\Profile`)
	assert.Equal(t, []string{`E:\`, `F:\Profile`}, args[:2])
	assert.Contains(t, args, "/MIR")
	assert.Contains(t, args, "/DCOPY:DAT")
	assert.Contains(t, args, "/XJ")
	assert.Equal(t, []string{"/XD", "System Volume Information", "$RECYCLE.BIN"}, args[len(args)-3:])
}

func TestTreeSize(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Documents"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "System Volume Information"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "NTUSER.DAT"), make([]byte, 100), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Documents", "a.txt"), make([]byte, 50), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "System Volume Information", "x"), make([]byte, 1000), 0o600))

	size, err := TreeSize(root, ExcludedDirs)
	require.NoError(t, err)
	assert.Equal(t, int64(150), size)
}

func TestLineWriter(t *testing.T) {
	t.Parallel()

	var lines []string
	w := newLineWriter(func(s string) { lines = append(lines, s) })

	_, _ = w.Write([]byte("one\r\ntw"))
	_, _ = w.Write([]byte("o\nthree"))
	w.Flush()

	assert.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestCopyVerboseLogsFiles(t *testing.T) {
	t.Parallel()

	output := "\t   1024\tE:\\NTUSER.DAT\r\n\t   10\tE:\\Desktop\\note.txt\r\n"
	r, logs := newTestReplicator(t, output, &fakeexec.FakeExitError{Status: 1})

	err := r.Copy(context.Background(), t.TempDir(), t.TempDir(), true)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `E:\NTUSER.DAT (1.0 KiB)`)
	assert.Contains(t, logs.String(), `E:\Desktop\note.txt (10 B)`)
	assert.Contains(t, logs.String(), "Copied 2 files")
}

func TestCopyAggregateHidesFiles(t *testing.T) {
	t.Parallel()

	output := "\t   1024\tE:\\NTUSER.DAT\r\n"
	r, logs := newTestReplicator(t, output, nil)

	err := r.Copy(context.Background(), t.TempDir(), t.TempDir(), false)
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), `E:\NTUSER.DAT`)
	assert.Contains(t, logs.String(), "Copied 1 files, 1.0 KiB")
}

func TestCopyFailureExitCode(t *testing.T) {
	t.Parallel()

	output := "2026/10/15 10:00:00 ERROR 112 (0x00000070) Copying File E:\\big.iso\r\n"
	r, _ := newTestReplicator(t, output, &fakeexec.FakeExitError{Status: 8})

	err := r.Copy(context.Background(), t.TempDir(), t.TempDir(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 8")
	assert.Contains(t, err.Error(), "error 112")
}

func newTestReplicator(t *testing.T, output string, runErr error) (Replicator, *bytes.Buffer) {
	t.Helper()

	logger, buf := testutil.BufferLogger()
	fexec := testutil.FakeExec(nil, testutil.Command{Output: output, Err: runErr})

	return NewRobocopy(shell.New(fexec, logger), Options{Logger: logger}), buf
}
