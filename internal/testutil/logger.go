package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// NopLogger returns a logger that discards all output
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// LogBuffer collects JSON log lines written by a CaptureLogger
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Messages returns the msg field of every record, oldest first
func (b *LogBuffer) Messages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var msgs []string
	dec := json.NewDecoder(bytes.NewReader(b.buf.Bytes()))
	for {
		var rec struct {
			Msg string `json:"msg"`
		}
		if err := dec.Decode(&rec); err != nil {
			return msgs
		}
		msgs = append(msgs, rec.Msg)
	}
}

// CaptureLogger returns a debug-level logger recording into the returned buffer
func CaptureLogger() (*slog.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
