package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gosuri/uitable"

	"github.com/utkuozdemir/upd-migrate/internal/migration"
	"github.com/utkuozdemir/upd-migrate/internal/util"
)

const (
	maxColWidth = 80
	listIndent  = "  "
)

// Summary is the aggregated view of a batch outcome.
type Summary struct {
	BatchID     string
	Total       int
	Eligible    int
	Successful  int
	Skipped     int
	Failed      int
	Elapsed     time.Duration
	Interrupted bool
}

func Summarize(o *migration.Outcome) Summary {
	return Summary{
		BatchID:     o.BatchID,
		Total:       o.Total,
		Eligible:    o.Eligible(),
		Successful:  o.SuccessCount(),
		Skipped:     o.SkippedCount(),
		Failed:      o.FailedCount(),
		Elapsed:     o.Elapsed(),
		Interrupted: o.Interrupted,
	}
}

// Write renders the batch report: the counters, then the itemized lists that are not empty.
// With details, a per-profile table follows.
func Write(w io.Writer, o *migration.Outcome, details bool) error {
	s := Summarize(o)

	table := uitable.New()
	table.Separator = " "
	table.AddRow("Batch:", s.BatchID)
	table.AddRow("Total:", s.Total)
	table.AddRow("Eligible:", s.Eligible)
	table.AddRow("Successful:", s.Successful)
	table.AddRow("Skipped:", s.Skipped)
	table.AddRow("Failed:", s.Failed)
	table.AddRow("Elapsed:", util.FormatElapsed(s.Elapsed))

	if s.Interrupted {
		table.AddRow("Interrupted:", "yes, remaining profiles were not processed")
	}

	var sb strings.Builder

	sb.WriteString(table.String())
	sb.WriteString("\n")

	writeList(&sb, "Migrated profiles:", o.Succeeded)
	writeList(&sb, "Skipped profiles (destination exists):", o.Skipped)
	writeList(&sb, "Failed profiles:", o.Failed)

	if details && len(o.Results) > 0 {
		sb.WriteString("\n")
		sb.WriteString(Details(o).String())
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

// Details is a table with one row per processed profile.
func Details(o *migration.Outcome) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = maxColWidth
	table.Wrap = true
	table.AddRow("SOURCE", "TARGET", "STATE", "DURATION", "NOTES")

	for _, r := range o.Results {
		state := string(r.Final)
		if r.FailedAt != "" {
			state += " (" + r.FailedAt + ")"
		}

		notes := r.Warnings
		if r.Err != nil {
			notes = append([]string{r.Err.Error()}, notes...)
		}

		table.AddRow(r.SourcePath, r.TargetPath, state, util.FormatElapsed(r.Duration), strings.Join(notes, "; "))
	}

	return table
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}

	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")

	for _, item := range items {
		sb.WriteString(listIndent)
		sb.WriteString(item)
		sb.WriteString("\n")
	}
}

// Banner is the line marking the end of a batch in the log file.
func Banner(batchID string, at time.Time) string {
	return fmt.Sprintf("==== upd-migrate batch %s completed at %s ====", batchID, at.Format(time.RFC3339))
}

// AppendBanner appends the completion banner to the log file at path.
func AppendBanner(path, batchID string, at time.Time) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if _, err := fmt.Fprintln(f, Banner(batchID, at)); err != nil {
		_ = f.Close()

		return fmt.Errorf("failed to write completion banner: %w", err)
	}

	return f.Close()
}
