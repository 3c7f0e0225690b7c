package mw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

func TestTimeoutBudgetExceeded(t *testing.T) {
	h := Timeout(TimeoutConfig{Default: 10 * time.Millisecond, Extended: time.Second})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "request_timeout") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestTimeoutForwardsPanicToRecoverer(t *testing.T) {
	h := middleware.Recoverer(Timeout(TimeoutConfig{Default: time.Second, Extended: time.Second})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 from recoverer", rec.Code)
	}
}

func TestTimeoutExtendedPattern(t *testing.T) {
	h := Timeout(TimeoutConfig{
		Default:          5 * time.Millisecond,
		Extended:         200 * time.Millisecond,
		ExtendedPatterns: []string{"/ingest"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("extended path timed out: status = %d", rec.Code)
	}
}
