package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func handlerFor(t *testing.T, capability Capability) http.Handler {
	t.Helper()
	keys := Keys{UIKey: "ui-secret", APIKey: "api-secret"}
	return Auth(keys, capability)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthUICapability(t *testing.T) {
	h := handlerFor(t, CapabilityUI)

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"ui key accepted", "x-ui-key", "ui-secret", http.StatusOK},
		{"api key accepted on ui route", "x-api-key", "api-secret", http.StatusOK},
		{"wrong key rejected", "x-ui-key", "nope", http.StatusUnauthorized},
		{"missing key rejected", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAuthAdminCapability(t *testing.T) {
	h := handlerFor(t, CapabilityAdmin)

	req := httptest.NewRequest(http.MethodPost, "/recover", nil)
	req.Header.Set("x-ui-key", "ui-secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ui key on admin route: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/recover", nil)
	req.Header.Set("x-api-key", "api-secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("api key on admin route: status = %d, want 200", rec.Code)
	}
}

func TestAuthEmptyConfiguredKeyDisables(t *testing.T) {
	h := Auth(Keys{}, CapabilityUI)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("x-ui-key", "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("empty configured key must not authorize: status = %d", rec.Code)
	}
}
