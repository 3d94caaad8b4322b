package middleware

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
)

const maxBodySize = "64K"

var (
	ridMu      sync.Mutex
	ridEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewRequestID returns a time-ordered ULID.
func NewRequestID() string {
	ridMu.Lock()
	defer ridMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ridEntropy).String()
}

// Common is the stack every route gets. Order matters: the request id exists before
// the logger reads it and Recover sits innermost so panics are logged as 500s.
func Common(base *slog.Logger) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		ecM.RequestIDWithConfig(ecM.RequestIDConfig{Generator: NewRequestID}),
		RequestLogger(base),
		ecM.Recover(),
		ecM.Secure(),
		ecM.BodyLimit(maxBodySize),
	}
}
