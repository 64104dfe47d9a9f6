package disk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkuozdemir/upd-migrate/internal/migration"
	"github.com/utkuozdemir/upd-migrate/internal/shell"
	"github.com/utkuozdemir/upd-migrate/internal/testutil"
)

func TestParseMountPoint(t *testing.T) {
	t.Parallel()

	mp, err := parseMountPoint("WARNING: something\r\ne:\\\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, `E:\`, mp)

	_, err = parseMountPoint("")
	assert.Error(t, err)

	_, err = parseMountPoint(`C:\Windows`)
	assert.Error(t, err)
}

func TestCreateOptionsSizeBytes(t *testing.T) {
	t.Parallel()

	opts := CreateOptions{SizeGB: 20}
	assert.Equal(t, uint64(21474836480), opts.SizeBytes())
}

func TestCreateScript(t *testing.T) {
	t.Parallel()

	script := createScript(CreateOptions{
		Path:       `\\fs\profiles\S-1-5-21-1_jdoe\Profile_jdoe.vhdx`,
		SizeGB:     30,
		SectorSize: migration.SectorSize512,
		Format:     migration.FormatVHDX,
		Label:      "Profile-jdoe",
	})

	assert.Contains(t, script, `New-VHD -Path '\\fs\profiles\S-1-5-21-1_jdoe\Profile_jdoe.vhdx' -SizeBytes 32212254720 -Dynamic -LogicalSectorSizeBytes 512`)
	assert.Contains(t, script, "-NewFileSystemLabel 'Profile-jdoe'")
	assert.Contains(t, script, "finally")
}

func TestMount(t *testing.T) {
	t.Parallel()

	svc, rec := newTestService("F:\\\r\n")

	vol, err := svc.Mount(context.Background(), `C:\UPD\UVHD-S-1-5-21-1.vhdx`, AccessReadOnly)
	require.NoError(t, err)
	assert.Equal(t, `F:\`, vol.MountPoint)
	assert.Equal(t, `C:\UPD\UVHD-S-1-5-21-1.vhdx`, vol.ImagePath)
	scripts := rec.Last()
	require.Len(t, scripts, 1)
	assert.Contains(t, scripts[0], `Mount-DiskImage -ImagePath 'C:\UPD\UVHD-S-1-5-21-1.vhdx' -Access ReadOnly -PassThru`)
}

func TestDismount(t *testing.T) {
	t.Parallel()

	svc, rec := newTestService("")

	require.NoError(t, svc.Dismount(context.Background(), `C:\UPD\UVHD-S-1-5-21-1.vhdx`))
	scripts := rec.Last()
	require.Len(t, scripts, 1)
	assert.True(t, strings.Contains(scripts[0], "Dismount-DiskImage -ImagePath 'C:\\UPD\\UVHD-S-1-5-21-1.vhdx'"))
}

func newTestService(output string) (Service, *testutil.Recorder) {
	rec := &testutil.Recorder{}
	fexec := testutil.FakeExec(rec, testutil.Command{Output: output})
	logger := testutil.Logger()

	return NewPowerShell(shell.New(fexec, logger), logger), rec
}
