package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_home/internal/service"
)

func TestCORS(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		origin     string
		wantCode   int
		wantHeader string
	}{
		{"preflight_allowed", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
		{"preflight_other_origin", http.MethodOptions, "http://evil.example", http.StatusNoContent, ""},
		{"simple_allowed", http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"simple_other_origin", http.MethodGet, "http://evil.example", http.StatusOK, ""},
		{"no_origin", http.MethodGet, "", http.StatusOK, ""},
	}
	r := newTestRouter(&service.Service{})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, "/health", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("code %d, want %d", w.Code, tc.wantCode)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.wantHeader {
				t.Fatalf("ACAO = %q, want %q", got, tc.wantHeader)
			}
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	h := NewHandler(&service.Service{}, nil, nil, []string{"*"})
	if !h.isAllowedOrigin("http://anything.example") {
		t.Fatal("wildcard should allow any origin")
	}
	h = NewHandler(&service.Service{}, nil, nil, nil)
	if h.isAllowedOrigin("http://localhost:3000") {
		t.Fatal("empty allowlist should allow nothing")
	}
}
