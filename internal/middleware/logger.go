package middleware

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// Logger returns a Fiber middleware that only logs slow or failed requests,
// keeping the log volume sane under chat polling traffic.
func Logger() fiber.Handler {
	return logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		Output: &filteredWriter{
			dest:             os.Stdout,
			slowThreshold:    500 * time.Millisecond,
			errorStatusFloor: 400,
		},
	})
}

// filteredWriter discards log lines for fast, successful requests. It
// parses status and latency out of the fixed line format
// "15:04:05 | 200 | 1.23ms | GET /path".
type filteredWriter struct {
	dest             io.Writer
	slowThreshold    time.Duration
	errorStatusFloor int
}

func (w *filteredWriter) Write(p []byte) (n int, err error) {
	parts := strings.Split(string(p), " | ")
	if len(parts) < 3 {
		return w.dest.Write(p) // unparseable line, pass it through
	}

	status, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	if status >= w.errorStatusFloor {
		return w.dest.Write(p)
	}

	if dur, perr := time.ParseDuration(strings.TrimSpace(parts[2])); perr == nil && dur >= w.slowThreshold {
		return w.dest.Write(p)
	}

	return len(p), nil
}
