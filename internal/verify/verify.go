package verify

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const diffContext = 1

// Result is the outcome of comparing two directory trees by listing.
type Result struct {
	// Missing entries exist in the source but not in the destination.
	Missing []string
	// Extra entries exist in the destination but not in the source.
	Extra []string
	// Unified is the unified diff of both listings, empty when they match.
	Unified string
}

func (r *Result) Match() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0
}

func (r *Result) Summary() string {
	return fmt.Sprintf("%d missing, %d extra", len(r.Missing), len(r.Extra))
}

// Compare lists both trees recursively, hidden and system entries included, and diffs the listings.
// Directories whose name is in excluded are skipped on both sides.
func Compare(src, dst string, excluded []string) (Result, error) {
	srcList, err := List(src, excluded)
	if err != nil {
		return Result{}, err
	}

	dstList, err := List(dst, excluded)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Missing: difference(srcList, dstList),
		Extra:   difference(dstList, srcList),
	}

	if result.Match() {
		return result, nil
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withNewlines(srcList),
		B:        withNewlines(dstList),
		FromFile: src,
		ToFile:   dst,
		Context:  diffContext,
	})
	if err != nil {
		return result, fmt.Errorf("failed to render listing diff: %w", err)
	}

	result.Unified = unified

	return result, nil
}

// List returns the sorted relative paths under root. Directories end with a slash.
// Links and junctions are left out.
func List(root string, excluded []string) ([]string, error) {
	var entries []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == root {
			return nil
		}

		// robocopy /XJ never copies junctions or links
		if d.Type()&(fs.ModeSymlink|fs.ModeIrregular) != 0 {
			return nil
		}

		if d.IsDir() && isExcluded(d.Name(), excluded) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}

		entries = append(entries, rel)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	sort.Strings(entries)

	return entries, nil
}

func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[strings.ToLower(s)] = struct{}{}
	}

	var result []string

	for _, s := range a {
		if _, ok := in[strings.ToLower(s)]; !ok {
			result = append(result, s)
		}
	}

	return result
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}

	return out
}

func isExcluded(name string, excluded []string) bool {
	for _, e := range excluded {
		if strings.EqualFold(name, e) {
			return true
		}
	}

	return false
}
