package log

import (
	"io"
	"regexp"
	"sync"

	log "github.com/sirupsen/logrus"
)

// emojiCodeRegex matches emoji aliases like ":rocket:" which are meaningless in a text file.
var emojiCodeRegex = regexp.MustCompile(`:[a-z][a-z0-9_+\-]*:\s*`)

// FileHook writes entries to a durable append-only text sink.
type FileHook struct {
	mu        sync.Mutex
	writer    io.Writer
	formatter log.Formatter
}

func NewFileHook(w io.Writer) *FileHook {
	return &FileHook{
		writer: w,
		formatter: &log.TextFormatter{
			DisableColors:    true,
			FullTimestamp:    true,
			DisableQuote:     true,
			PadLevelText:     true,
			QuoteEmptyFields: true,
		},
	}
}

func (h *FileHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *FileHook) Fire(e *log.Entry) error {
	plain := *e
	plain.Message = StripEmoji(e.Message)

	b, err := h.formatter.Format(&plain)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err = h.writer.Write(b)

	return err
}

// StripEmoji removes emoji aliases from a message.
func StripEmoji(msg string) string {
	return emojiCodeRegex.ReplaceAllString(msg, "")
}
