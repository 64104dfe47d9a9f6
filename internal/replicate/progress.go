package replicate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// fileLineRegex matches robocopy file lines printed with /BYTES /NC /FP, e.g. "	   1024	E:\Users\a.txt".
var (
	fileLineRegex  = regexp.MustCompile(`^\s*(?P<bytes>[0-9]+)\s+(?P<path>\S.*)$`)
	errorLineRegex = regexp.MustCompile(`\bERROR\s+(?P<code>[0-9]+)\s+\(0x[0-9A-Fa-f]+\)\s+(?P<message>.*)$`)

	errNoMatch = errors.New("no match")
)

const (
	bytesIntBase   = 10
	bytesInt64Bits = 64
)

// FileLine is a single copied file reported by robocopy.
type FileLine struct {
	Bytes int64
	Path  string
}

// ParseFileLine parses a robocopy file line.
func ParseFileLine(line string) (FileLine, error) {
	matches := findNamedMatches(fileLineRegex, strings.TrimRight(line, "\r"))
	if len(matches) == 0 {
		return FileLine{}, errNoMatch
	}

	n, err := strconv.ParseInt(matches["bytes"], bytesIntBase, bytesInt64Bits)
	if err != nil {
		return FileLine{}, fmt.Errorf("cannot parse number of bytes: %w", err)
	}

	return FileLine{Bytes: n, Path: strings.TrimSpace(matches["path"])}, nil
}

// ParseErrorLine returns the error message of a robocopy error line, if the line is one.
func ParseErrorLine(line string) (string, bool) {
	matches := findNamedMatches(errorLineRegex, strings.TrimRight(line, "\r"))
	if len(matches) == 0 {
		return "", false
	}

	return fmt.Sprintf("error %s: %s", matches["code"], strings.TrimSpace(matches["message"])), true
}

func findNamedMatches(r *regexp.Regexp, str string) map[string]string {
	results := map[string]string{}

	match := r.FindStringSubmatch(str)
	for i, name := range match {
		results[r.SubexpNames()[i]] = name
	}

	return results
}
