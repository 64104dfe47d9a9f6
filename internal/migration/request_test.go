package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkuozdemir/upd-migrate/internal/migration"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := migration.ParseFormat(" .VHDX ")
	require.NoError(t, err)
	assert.Equal(t, migration.FormatVHDX, f)
	assert.Equal(t, ".vhdx", f.Extension())

	_, err = migration.ParseFormat("vmdk")
	assert.ErrorIs(t, err, migration.ErrInvalidFormat)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := migration.Request{
		DestRoot:   `\\fs\profiles`,
		MaxSizeGB:  20,
		SectorSize: migration.SectorSize512,
		Format:     migration.FormatVHD,
	}
	assert.NoError(t, valid.Validate())

	invalid := migration.Request{SectorSize: 1024, Format: "vhdx"}
	err := invalid.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, migration.ErrNoDestRoot)
	assert.ErrorIs(t, err, migration.ErrInvalidMaxSize)
	assert.ErrorIs(t, err, migration.ErrInvalidSectorSize)
	assert.NotErrorIs(t, err, migration.ErrInvalidFormat)

	vhd4k := valid
	vhd4k.SectorSize = migration.SectorSize4K
	assert.ErrorIs(t, vhd4k.Validate(), migration.ErrVHDSectorSize)

	noSectorSize := valid
	noSectorSize.SectorSize = 0
	err = noSectorSize.Validate()
	assert.ErrorIs(t, err, migration.ErrNoSectorSize)
	assert.NotErrorIs(t, err, migration.ErrInvalidSectorSize)
}

func TestOutcomeCounts(t *testing.T) {
	t.Parallel()

	o := migration.Outcome{
		Total:        4,
		Unresolvable: 1,
		Succeeded:    []string{"a"},
		Skipped:      []string{"b"},
		Failed:       []string{"c", "d"},
	}

	assert.Equal(t, 1, o.SuccessCount())
	assert.Equal(t, 1, o.SkippedCount())
	assert.Equal(t, 2, o.FailedCount())
	assert.Equal(t, 3, o.Eligible())
}

func TestDescriptorTarget(t *testing.T) {
	t.Parallel()

	d := migration.Descriptor{SourcePath: "a", Target: migration.Resolved{Path: "b"}}
	p, ok := d.TargetPath()
	assert.True(t, ok)
	assert.Equal(t, "b", p)

	var nilTarget migration.Descriptor
	_, ok = nilTarget.TargetPath()
	assert.False(t, ok)
	assert.Equal(t, migration.CannotCopy, nilTarget.TargetString())
}
