package migration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Format selects the container file format of the destination.
type Format string

const (
	FormatVHDX Format = "vhdx"
	FormatVHD  Format = "vhd"

	SectorSize4K  = 4096
	SectorSize512 = 512

	DefaultFormat = FormatVHDX

	// ProfileDirName is the folder inside the destination container that receives the profile tree.
	ProfileDirName = "Profile"
)

var (
	Formats     = []Format{FormatVHDX, FormatVHD}
	SectorSizes = []int{SectorSize4K, SectorSize512}

	ErrNoDestRoot        = errors.New("destination root is required")
	ErrInvalidMaxSize    = errors.New("maximum container size must be a positive number of gigabytes")
	ErrNoSectorSize      = errors.New("sector size is required")
	ErrInvalidSectorSize = errors.New("sector size must be 4096 or 512")
	ErrInvalidFormat     = errors.New("format must be vhdx or vhd")
	ErrVHDSectorSize     = errors.New("vhd containers support only 512 byte sectors")
)

// Extension returns the file extension of the format including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// Request holds the batch-wide migration policy.
type Request struct {
	DestRoot        string
	MaxSizeGB       int
	SectorSize      int
	Format          Format
	FlipFlop        bool
	VerboseCopy     bool
	ShowProgressBar bool
	LogFile         string
	Logger          *log.Entry
}

// Validate checks the request, returning all problems at once.
func (r *Request) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(r.DestRoot) == "" {
		result = multierror.Append(result, ErrNoDestRoot)
	}

	if r.MaxSizeGB <= 0 {
		result = multierror.Append(result, ErrInvalidMaxSize)
	}

	switch r.SectorSize {
	case SectorSize4K, SectorSize512:
	case 0:
		result = multierror.Append(result, ErrNoSectorSize)
	default:
		result = multierror.Append(result, fmt.Errorf("%w: %d", ErrInvalidSectorSize, r.SectorSize))
	}

	if _, err := ParseFormat(string(r.Format)); err != nil {
		result = multierror.Append(result, err)
	}

	if r.Format == FormatVHD && r.SectorSize == SectorSize4K {
		result = multierror.Append(result, ErrVHDSectorSize)
	}

	return result.ErrorOrNil()
}

func (r *Request) LogFields() log.Fields {
	return log.Fields{
		"dest_root":   r.DestRoot,
		"max_size_gb": r.MaxSizeGB,
		"sector_size": r.SectorSize,
		"format":      r.Format,
		"flip_flop":   r.FlipFlop,
	}
}
