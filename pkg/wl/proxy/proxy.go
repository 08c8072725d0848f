// Package proxy forwards market-data requests upstream with the API key
// attached server-side, so clients never see it.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/komsit37/thematic-wl/pkg/wl/logging"
	"github.com/komsit37/thematic-wl/pkg/wl/serve"
)

// Server is the pass-through proxy.
type Server struct {
	upstream *url.URL
	apiKey   string
	client   *http.Client
	log      *log.Logger
}

// New returns a proxy for upstream (for example https://api.massive.com).
// A nil client uses a 30s-timeout default; a nil logger discards.
func New(upstream, apiKey string, client *http.Client, lg *log.Logger) (*Server, error) {
	u, err := url.Parse(strings.TrimRight(upstream, "/"))
	if err != nil {
		return nil, fmt.Errorf("upstream url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream url %q: missing scheme or host", upstream)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Server{upstream: u, apiKey: apiKey, client: client, log: logging.OrDiscard(lg)}, nil
}

// Handler returns the proxy routes wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/grouped", s.handleGrouped)
	mux.HandleFunc("/api/open-close", s.handleOpenClose)
	mux.HandleFunc("/api/aggs", s.handleAggs)
	mux.HandleFunc("/api/last-trade", s.handleLastTrade)
	return s.withMiddleware(mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return serve.Run(ctx, srv, s.log)
}

func (s *Server) handleGrouped(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}
	s.forward(w, r, "/v2/aggs/grouped/locale/us/market/stocks/"+url.PathEscape(date), url.Values{
		"adjusted":    {orDefault(q.Get("adjusted"), "true")},
		"include_otc": {orDefault(q.Get("include_otc"), "false")},
	})
}

func (s *Server) handleOpenClose(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ticker, date := q.Get("ticker"), q.Get("date")
	if ticker == "" || date == "" {
		writeError(w, http.StatusBadRequest, "ticker and date are required")
		return
	}
	s.forward(w, r, "/v1/open-close/"+url.PathEscape(ticker)+"/"+url.PathEscape(date), url.Values{
		"adjusted": {orDefault(q.Get("adjusted"), "true")},
	})
}

func (s *Server) handleAggs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ticker, date := q.Get("ticker"), q.Get("date")
	if ticker == "" || date == "" {
		writeError(w, http.StatusBadRequest, "ticker and date are required")
		return
	}
	d := url.PathEscape(date)
	s.forward(w, r, "/v2/aggs/ticker/"+url.PathEscape(ticker)+"/range/1/day/"+d+"/"+d, url.Values{
		"adjusted": {orDefault(q.Get("adjusted"), "true")},
	})
}

func (s *Server) handleLastTrade(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	s.forward(w, r, "/v2/last/trade/"+url.PathEscape(ticker), nil)
}

// forward relays upstream's status and body verbatim.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, path string, q url.Values) {
	u := *s.upstream
	u.Path = s.upstream.Path + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("X-Api-Key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn().Str("path", path).Err(err).Msg("upstream request failed")
		writeError(w, http.StatusInternalServerError, "proxy error: "+err.Error())
		return
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.log.Debug().Str("path", path).Err(err).Msg("relay body")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", rec.status).Dur("took", time.Since(start)).Msg("request")
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
