package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// Prefix is the file name prefix of user profile disk containers.
	Prefix = "UVHD-"
	// Template is the container new user profile disks are cloned from. It has no owner.
	Template = "UVHD-template"

	listPathColumn = "path"
)

var (
	ErrNoPathColumn = errors.New("list has no Path column")
	ErrNotContainer = errors.New("not a virtual disk container")
)

// Enumerator produces the source container paths of a batch.
type Enumerator interface {
	Enumerate() ([]string, error)
}

// Dir enumerates the user profile disk containers directly inside a directory.
type Dir struct {
	Path string
}

func (d *Dir) Enumerate() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var paths []string

	for _, e := range entries {
		if e.IsDir() || !IsProfileContainer(e.Name()) {
			continue
		}

		paths = append(paths, filepath.Join(d.Path, e.Name()))
	}

	sort.Strings(paths)

	return paths, nil
}

// Single is a batch of exactly one container.
type Single struct {
	Path string
}

func (s *Single) Enumerate() ([]string, error) {
	if !IsContainer(s.Path) {
		return nil, fmt.Errorf("%w: %s", ErrNotContainer, s.Path)
	}

	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotContainer, s.Path)
	}

	return []string{s.Path}, nil
}

// List reads container paths from the Path column of a CSV file.
// The header is matched case-insensitively, blank rows are ignored.
type List struct {
	Path string
}

func (l *List) Enumerate() ([]string, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source list: %w", err)
	}
	defer f.Close()

	paths, err := ReadList(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read source list %s: %w", l.Path, err)
	}

	return paths, nil
}

func ReadList(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoPathColumn
		}

		return nil, err
	}

	column := -1

	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), listPathColumn) {
			column = i
			break
		}
	}

	if column < 0 {
		return nil, ErrNoPathColumn
	}

	var paths []string

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		if column >= len(record) {
			continue
		}

		if p := strings.TrimSpace(record[column]); p != "" {
			paths = append(paths, p)
		}
	}

	return paths, nil
}

// IsContainer reports whether name has a virtual disk extension.
func IsContainer(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".vhd", ".vhdx":
		return true
	default:
		return false
	}
}

// IsProfileContainer reports whether name is a per-user profile disk container.
func IsProfileContainer(name string) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	return IsContainer(name) &&
		strings.HasPrefix(strings.ToUpper(base), strings.ToUpper(Prefix)) &&
		!strings.EqualFold(base, Template)
}
