//nolint:revive // suppress "var-naming: avoid meaningless package names"
package util

import (
	"fmt"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
)

// FormatElapsed renders a duration as HH:MM:SS. Hours are not wrapped at 24.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d / time.Second)
	hours := total / secondsPerHour
	minutes := (total % secondsPerHour) / secondsPerMinute
	seconds := total % secondsPerMinute

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func ConvertStrings[TO, FROM ~string](values []FROM) []TO {
	s := make([]TO, 0, len(values))
	for _, v := range values {
		s = append(s, TO(v))
	}

	return s
}
