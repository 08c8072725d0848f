package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type seen struct {
	mu             sync.Mutex
	path, rawQuery string
}

func (s *seen) get() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, s.rawQuery
}

func newUpstream(t *testing.T) (*httptest.Server, *seen) {
	t.Helper()
	last := &seen{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.mu.Lock()
		last.path, last.rawQuery = r.URL.Path, r.URL.RawQuery
		last.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer k3y" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"status":"ERROR"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/v1/open-close/ZZZZ/") {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"status":"NOT_FOUND"}`)
			return
		}
		io.WriteString(w, `{"status":"OK","path":"`+r.URL.Path+`"}`)
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestForwardRoutes(t *testing.T) {
	up, last := newUpstream(t)
	p, err := New(up.URL, "k3y", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := p.Handler()

	tests := []struct {
		target   string
		path     string
		rawQuery string
	}{
		{"/api/grouped?date=2025-10-29", "/v2/aggs/grouped/locale/us/market/stocks/2025-10-29", "adjusted=true&include_otc=false"},
		{"/api/open-close?ticker=NVDA&date=2025-10-29&adjusted=false", "/v1/open-close/NVDA/2025-10-29", "adjusted=false"},
		{"/api/aggs?ticker=AMD&date=2025-10-30", "/v2/aggs/ticker/AMD/range/1/day/2025-10-30/2025-10-30", "adjusted=true"},
		{"/api/last-trade?ticker=AMD", "/v2/last/trade/AMD", ""},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.target)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d body %s", tt.target, rec.Code, rec.Body)
			continue
		}
		if path, q := last.get(); path != tt.path || q != tt.rawQuery {
			t.Errorf("%s: upstream got %s?%s, want %s?%s", tt.target, path, q, tt.path, tt.rawQuery)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s: missing CORS header", tt.target)
		}
		if strings.Contains(rec.Body.String(), "k3y") {
			t.Errorf("%s: api key leaked", tt.target)
		}
	}
}

func TestRelaysUpstreamStatus(t *testing.T) {
	up, _ := newUpstream(t)
	p, _ := New(up.URL, "k3y", nil, nil)
	rec := get(t, p.Handler(), "/api/open-close?ticker=ZZZZ&date=2025-10-29")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "NOT_FOUND") {
		t.Fatalf("got %d %s", rec.Code, rec.Body)
	}
}

func TestMissingParams(t *testing.T) {
	up, _ := newUpstream(t)
	p, _ := New(up.URL, "k3y", nil, nil)
	for _, target := range []string{"/api/grouped", "/api/open-close?ticker=NVDA", "/api/aggs?date=2025-01-02", "/api/last-trade"} {
		rec := get(t, p.Handler(), target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", target, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
			t.Errorf("%s: body %s", target, rec.Body)
		}
	}
}

func TestTransportFailure(t *testing.T) {
	up := httptest.NewServer(http.NotFoundHandler())
	dead := up.URL
	up.Close()
	p, _ := New(dead, "k3y", nil, nil)
	rec := get(t, p.Handler(), "/api/last-trade?ticker=NVDA")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || !strings.HasPrefix(body["error"], "proxy error") {
		t.Fatalf("body %s", rec.Body)
	}
}

func TestPreflightAndMethod(t *testing.T) {
	p, _ := New("http://127.0.0.1:1", "", nil, nil)
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/grouped", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("OPTIONS status %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/grouped", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status %d", rec.Code)
	}
}

func TestNewRejectsBadUpstream(t *testing.T) {
	if _, err := New("not a url", "", nil, nil); err == nil {
		t.Fatal("expected error")
	}
}
