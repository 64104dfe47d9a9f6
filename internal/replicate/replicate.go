package replicate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kyokomi/emoji/v2"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/utkuozdemir/upd-migrate/internal/shell"
)

const (
	robocopyBinary = "robocopy.exe"

	// robocopy exit codes of 8 and above mean at least one copy failed.
	robocopyFailureThreshold = 8

	percentHundred      = 100
	progressLogInterval = 10
)

// ExcludedDirs are volume housekeeping folders that never belong to a profile.
var ExcludedDirs = []string{"System Volume Information", "$RECYCLE.BIN"}

// Replicator mirrors a directory tree.
type Replicator interface {
	// Copy mirrors src into dst, preserving timestamps and attributes.
	// When verbose is set every copied file is logged, otherwise only aggregate progress is shown.
	Copy(ctx context.Context, src, dst string, verbose bool) error
}

type Options struct {
	ShowProgressBar bool
	Logger          *log.Entry
}

type robocopy struct {
	runner  *shell.Runner
	options Options
}

// NewRobocopy returns a Replicator backed by robocopy in mirror mode.
func NewRobocopy(runner *shell.Runner, options Options) Replicator {
	return &robocopy{runner: runner, options: options}
}

func (r *robocopy) Copy(ctx context.Context, src, dst string, verbose bool) error {
	logger := r.options.Logger.WithFields(log.Fields{"copy_source": src, "copy_dest": dst})

	total, err := TreeSize(src, ExcludedDirs)
	if err != nil {
		logger.WithError(err).Debug(":large_orange_diamond: Cannot determine source size, progress will be estimated")
	}

	tracker := newTracker(total, verbose, r.options.ShowProgressBar, logger)
	w := newLineWriter(tracker.handle)

	code, err := r.runner.Stream(ctx, w, robocopyBinary, Args(src, dst)...)
	w.Flush()
	tracker.finish()

	if err != nil {
		return fmt.Errorf("failed to run robocopy: %w", err)
	}

	if code >= robocopyFailureThreshold {
		if len(tracker.errors) > 0 {
			return fmt.Errorf("robocopy exited with code %d: %s", code, strings.Join(tracker.errors, "; "))
		}

		return fmt.Errorf("robocopy exited with code %d", code)
	}

	logger.Infof(":open_file_folder: Copied %d files, %s", tracker.files, humanize.IBytes(uint64(tracker.copied)))

	return nil
}

// Args builds the robocopy arguments mirroring src into dst.
func Args(src, dst string) []string {
	args := []string{
		src, dst,
		"/MIR", "/COPY:DAT", "/DCOPY:DAT", "/XJ", "/R:0", "/W:0",
		"/BYTES", "/NC", "/NDL", "/NP", "/FP", "/NJH", "/NJS",
	}

	args = append(args, "/XD")
	args = append(args, ExcludedDirs...)

	return args
}

// TreeSize sums the sizes of regular files under root, skipping excluded directory names.
func TreeSize(root string, excluded []string) (int64, error) {
	var total int64

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}

			return err
		}

		if d.IsDir() {
			if path != root && isExcluded(d.Name(), excluded) {
				return filepath.SkipDir
			}

			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}

			return err
		}

		if info.Mode().IsRegular() {
			total += info.Size()
		}

		return nil
	})
	if err != nil {
		return total, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return total, nil
}

func isExcluded(name string, excluded []string) bool {
	for _, e := range excluded {
		if strings.EqualFold(name, e) {
			return true
		}
	}

	return false
}

type tracker struct {
	total       int64
	copied      int64
	files       int
	lastPercent int
	verbose     bool
	bar         *progressbar.ProgressBar
	errors      []string
	logger      *log.Entry
}

func newTracker(total int64, verbose bool, showProgressBar bool, logger *log.Entry) *tracker {
	t := tracker{total: total, verbose: verbose, logger: logger}

	if !verbose && showProgressBar {
		t.bar = progressbar.NewOptions64(
			total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionFullWidth(),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(os.Stderr)
			}),
			progressbar.OptionSetDescription(emoji.Sprint(":open_file_folder: Copying profile...")),
		)
	}

	return &t
}

func (t *tracker) handle(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	if msg, ok := ParseErrorLine(line); ok {
		t.errors = append(t.errors, msg)
		t.logger.Warnf(":large_orange_diamond: robocopy %s", msg)

		return
	}

	fl, err := ParseFileLine(line)
	if err != nil {
		t.logger.Trace(line)

		return
	}

	t.files++
	t.copied += fl.Bytes

	if t.verbose {
		t.logger.Infof("%s (%s)", fl.Path, humanize.IBytes(uint64(fl.Bytes)))

		return
	}

	if t.bar != nil {
		t.updateBar()

		return
	}

	t.logAggregate()
}

func (t *tracker) updateBar() {
	if t.copied > t.total {
		t.total = t.copied
		t.bar.ChangeMax64(t.total)
	}

	if t.total == 0 { // cannot update progress bar when its max is 0
		return
	}

	if err := t.bar.Set64(t.copied); err != nil {
		t.logger.WithError(err).Debug("failed to update progress bar")
	}
}

func (t *tracker) logAggregate() {
	if t.total <= 0 {
		return
	}

	percent := int(t.copied * percentHundred / t.total)
	if percent > percentHundred {
		percent = percentHundred
	}

	if percent-t.lastPercent < progressLogInterval && percent != percentHundred {
		return
	}

	if percent == t.lastPercent {
		return
	}

	t.lastPercent = percent
	t.logger.Infof(":open_file_folder: Copied %s of %s (%d%%)",
		humanize.IBytes(uint64(t.copied)), humanize.IBytes(uint64(t.total)), percent)
}

func (t *tracker) finish() {
	if t.bar == nil {
		return
	}

	if err := t.bar.Finish(); err != nil {
		t.logger.WithError(err).Debug("failed to finish progress bar")
	}
}

// lineWriter splits written bytes into lines.
type lineWriter struct {
	buf    bytes.Buffer
	handle func(string)
}

func newLineWriter(handle func(string)) *lineWriter {
	return &lineWriter{handle: handle}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)

	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}

		line := string(w.buf.Next(i + 1))
		w.handle(strings.TrimRight(line, "\r\n"))
	}

	return len(p), nil
}

// Flush hands over a trailing line without a newline.
func (w *lineWriter) Flush() {
	if w.buf.Len() == 0 {
		return
	}

	w.handle(strings.TrimRight(w.buf.String(), "\r\n"))
	w.buf.Reset()
}
