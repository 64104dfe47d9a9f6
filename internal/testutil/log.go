package testutil

import (
	"bytes"
	"io"

	log "github.com/sirupsen/logrus"
)

// Logger returns a logger that discards its output.
func Logger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)

	return log.NewEntry(l)
}

// BufferLogger returns an info level logger writing unquoted text lines without timestamps to a buffer.
func BufferLogger() (*log.Entry, *bytes.Buffer) {
	var buf bytes.Buffer

	l := log.New()
	l.SetOutput(&buf)
	l.SetFormatter(&log.TextFormatter{DisableQuote: true, DisableTimestamp: true})
	l.SetLevel(log.InfoLevel)

	return log.NewEntry(l), &buf
}
