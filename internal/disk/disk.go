package disk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/utkuozdemir/upd-migrate/internal/migration"
	"github.com/utkuozdemir/upd-migrate/internal/shell"
)

const bytesPerGB = 1 << 30

var errNoMountPoint = errors.New("no mount point reported")

// Access is the access mode an image is attached with.
type Access string

const (
	AccessReadOnly  Access = "ReadOnly"
	AccessReadWrite Access = "ReadWrite"
)

// Volume is a mounted disk image.
type Volume struct {
	ImagePath  string
	MountPoint string
}

type CreateOptions struct {
	Path       string
	SizeGB     int
	SectorSize int
	Format     migration.Format
	Label      string
}

// SizeBytes is the maximum capacity of the dynamically expanding container.
func (o *CreateOptions) SizeBytes() uint64 {
	return uint64(o.SizeGB) * bytesPerGB
}

// Service mounts, creates and dismounts virtual disk images.
type Service interface {
	// Mount attaches the image with the given access and returns the root of its data volume.
	Mount(ctx context.Context, path string, access Access) (Volume, error)

	// Create creates a new dynamically expanding image with a single formatted NTFS volume.
	// The image is left detached.
	Create(ctx context.Context, opts CreateOptions) error

	// Dismount detaches the image.
	Dismount(ctx context.Context, path string) error
}

type powerShellService struct {
	runner *shell.Runner
	logger *log.Entry
}

// NewPowerShell returns a Service backed by the Windows storage cmdlets.
func NewPowerShell(runner *shell.Runner, logger *log.Entry) Service {
	return &powerShellService{runner: runner, logger: logger}
}

func (s *powerShellService) Mount(ctx context.Context, path string, access Access) (Volume, error) {
	out, err := s.runner.PowerShell(ctx, mountScript(path, access))
	if err != nil {
		return Volume{}, fmt.Errorf("failed to mount %s: %w", path, err)
	}

	mountPoint, err := parseMountPoint(out)
	if err != nil {
		return Volume{}, fmt.Errorf("failed to mount %s: %w", path, err)
	}

	s.logger.WithField("image", path).Debugf("Mounted %s at %s", access, mountPoint)

	return Volume{ImagePath: path, MountPoint: mountPoint}, nil
}

func (s *powerShellService) Create(ctx context.Context, opts CreateOptions) error {
	s.logger.WithField("image", opts.Path).
		Debugf("Creating %s container of %s with %d byte sectors",
			opts.Format, humanize.IBytes(opts.SizeBytes()), opts.SectorSize)

	if _, err := s.runner.PowerShell(ctx, createScript(opts)); err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.Path, err)
	}

	return nil
}

func (s *powerShellService) Dismount(ctx context.Context, path string) error {
	script := fmt.Sprintf("$ErrorActionPreference = 'Stop'; Dismount-DiskImage -ImagePath %s | Out-Null",
		shell.Quote(path))

	if _, err := s.runner.PowerShell(ctx, script); err != nil {
		return fmt.Errorf("failed to dismount %s: %w", path, err)
	}

	return nil
}

func mountScript(path string, access Access) string {
	p := shell.Quote(path)

	return strings.Join([]string{
		"$ErrorActionPreference = 'Stop'",
		"$image = Mount-DiskImage -ImagePath " + p + " -Access " + string(access) + " -PassThru",
		"$partition = $image | Get-Disk | Get-Partition | Where-Object { $_.Type -ne 'Reserved' } | Select-Object -Last 1",
		"if (-not $partition) { throw 'no data partition found' }",
		"if ([string]::IsNullOrWhiteSpace([string]$partition.DriveLetter) -or $partition.DriveLetter -eq [char]0) {",
		"  $partition | Add-PartitionAccessPath -AssignDriveLetter | Out-Null",
		"  $partition = $partition | Get-Partition",
		"}",
		`Write-Output ("{0}:\" -f $partition.DriveLetter)`,
	}, "\n")
}

func createScript(opts CreateOptions) string {
	p := shell.Quote(opts.Path)

	return strings.Join([]string{
		"$ErrorActionPreference = 'Stop'",
		fmt.Sprintf("New-VHD -Path %s -SizeBytes %d -Dynamic -LogicalSectorSizeBytes %d | Out-Null",
			p, opts.SizeBytes(), opts.SectorSize),
		"try {",
		"  $disk = Mount-DiskImage -ImagePath " + p + " -NoDriveLetter -PassThru | Get-Disk",
		"  $partition = $disk | Initialize-Disk -PartitionStyle GPT -PassThru | New-Partition -UseMaximumSize",
		"  $partition | Format-Volume -FileSystem NTFS -NewFileSystemLabel " + shell.Quote(opts.Label) +
			" -Confirm:$false -Force | Out-Null",
		"} finally {",
		"  Dismount-DiskImage -ImagePath " + p + " | Out-Null",
		"}",
	}, "\n")
}

func parseMountPoint(out string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if len(line) == 3 && line[1] == ':' && line[2] == '\\' && isDriveLetter(line[0]) {
			return strings.ToUpper(line[:1]) + `:\`, nil
		}

		return "", fmt.Errorf("unexpected mount point %q", line)
	}

	return "", errNoMountPoint
}

func isDriveLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
