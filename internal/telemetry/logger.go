// Package telemetry provides the single structured logger accessor every
// cmd/ driver logs through. Library packages (kdtree, clustering, distill,
// merge, bucket) and the trainjob driver never import this package —
// the same split the teacher keeps between server/drone (silent library)
// and server/cmd/*/main.go (logs liberally).
package telemetry

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	logger  *slog.Logger
	zl      zerolog.Logger
	initted bool
)

// GetLogger returns the process-wide structured logger, initialising it on
// first use with the same JSON-lines setup Configure installs. Call
// Configure first to change the destination or level; GetLogger defaults
// to stderr at Info.
func GetLogger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !initted {
		configureLocked(os.Stderr, slog.LevelInfo)
	}
	return logger
}

// Configure points the logger at w. Each record becomes one zerolog JSON
// line carrying zerolog's timestamp field, with slog's own JSON record
// (which holds the level and message) nested under "record"; log/slog sits
// on top of that writer so every call site keeps using the key-value
// calling convention the teacher's utils.GetLogger() exposes.
func Configure(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	configureLocked(w, level)
}

func configureLocked(w io.Writer, level slog.Level) {
	zl = zerolog.New(w).With().Timestamp().Logger()
	logger = slog.New(slog.NewJSONHandler(zeroWriter{zl}, &slog.HandlerOptions{Level: level}))
	initted = true
}

// zeroWriter adapts a zerolog.Logger into an io.Writer so slog's JSON
// handler can hand formatted records to zerolog, which emits each one as a
// level-less event with a timestamp instead of writing the raw bytes
// directly.
type zeroWriter struct {
	zl zerolog.Logger
}

func (z zeroWriter) Write(p []byte) (int, error) {
	z.zl.Log().RawJSON("record", append([]byte(nil), p...)).Send()
	return len(p), nil
}
