package mw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

// panicWithStack captures a panic value along with its stack trace.
type panicWithStack struct {
	value any
	stack []byte
}

// TimeoutConfig sets the per-request budget. Paths that drive AI calls or
// whole ingest batches get the extended budget.
type TimeoutConfig struct {
	Default          time.Duration
	Extended         time.Duration
	ExtendedPatterns []string
}

// Timeout applies a deadline to each request context. On expiry the envelope
// error is request_timeout with a 504. Handler panics are forwarded back to
// the request goroutine and re-raised there so the recoverer above this
// middleware still sees them.
func Timeout(cfg TimeoutConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			budget := cfg.Default
			for _, pattern := range cfg.ExtendedPatterns {
				if strings.Contains(r.URL.Path, pattern) {
					budget = cfg.Extended
					break
				}
			}

			ctx, cancel := context.WithTimeout(r.Context(), budget)
			defer cancel()

			done := make(chan struct{})
			panicChan := make(chan *panicWithStack, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- &panicWithStack{value: p, stack: debug.Stack()}
					}
				}()
				next.ServeHTTP(w, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case p := <-panicChan:
				panic(fmt.Sprintf("%v\n\nOriginal stack trace:\n%s", p.value, p.stack))
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"ok":    false,
						"error": "request_timeout",
					})
				}
			}
		})
	}
}
