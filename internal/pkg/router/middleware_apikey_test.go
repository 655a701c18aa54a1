package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareServerKey(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := middlewareServerKey("/internal/", "s3cret")(okHandler)

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{name: "public path passes without key", path: "/api/v1/otp/send", key: "", status: http.StatusOK},
		{name: "internal path with valid key", path: "/internal/api/v1/otp", key: "s3cret", status: http.StatusOK},
		{name: "internal path with wrong key", path: "/internal/api/v1/otp", key: "nope", status: http.StatusForbidden},
		{name: "internal path without key", path: "/internal/api/v1/otp", key: "", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.key != "" {
				req.Header.Set(HeaderServerKey, tt.key)
			}
			rec := httptest.NewRecorder()

			guarded.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestMiddlewareServerKeyDisabledWhenUnset(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := middlewareServerKey("/internal/", "")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/internal/api/v1/otp", nil)
	rec := httptest.NewRecorder()

	guarded.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("internal surface must be closed when no key is configured, got %d", rec.Code)
	}
}
