// Package catalyst serves a demo WebSocket feed of catalyst notifications.
package catalyst

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phuslu/log"

	"github.com/komsit37/thematic-wl/pkg/wl/logging"
	"github.com/komsit37/thematic-wl/pkg/wl/serve"
)

// Event is one catalyst notification.
type Event struct {
	Ticker   string `json:"ticker"`
	Label    string `json:"label"`
	Severity string `json:"severity"` // info, warn or success
	URL      string `json:"url,omitempty"`
	ID       string `json:"id,omitempty"`
	TS       int64  `json:"ts,omitempty"` // unix millis
}

// Samples is the canned event pool.
var Samples = []Event{
	{Ticker: "DXCM", Label: "FDA clearance rumor", Severity: "warn", URL: "https://example.com/dxcm"},
	{Ticker: "NVDA", Label: "New Omniverse partner", Severity: "info", URL: "https://example.com/nvda"},
	{Ticker: "DASTY", Label: "Virtual-twin rollout win", Severity: "success", URL: "https://example.com/dasty"},
	{Ticker: "PATH", Label: "Platform release wave", Severity: "info", URL: "https://example.com/path"},
	{Ticker: "HON", Label: "Mega rollout signed", Severity: "success", URL: "https://example.com/hon"},
	{Ticker: "PTC", Label: "New Vuforia deployment", Severity: "info"},
	{Ticker: "BSY", Label: "DOT award mention", Severity: "success"},
	{Ticker: "ABT", Label: "Libre coverage update", Severity: "info"},
	{Ticker: "IRTC", Label: "CPT code chatter", Severity: "warn"},
}

// Rotator hands out events from a shuffled pool, reshuffling once every
// event has been handed out, so no event repeats within a round.
type Rotator struct {
	mu   sync.Mutex
	list []Event
	pool []Event
	idx  int
	rnd  *rand.Rand
}

func NewRotator(list []Event, rnd *rand.Rand) *Rotator {
	r := &Rotator{list: list, rnd: rnd}
	r.reshuffle()
	return r
}

func (r *Rotator) reshuffle() {
	r.pool = append(r.pool[:0], r.list...)
	r.rnd.Shuffle(len(r.pool), func(i, j int) { r.pool[i], r.pool[j] = r.pool[j], r.pool[i] })
	r.idx = 0
}

// Next returns the next event of the current round, or the zero Event when
// the list is empty.
func (r *Rotator) Next() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pool) == 0 {
		return Event{}
	}
	ev := r.pool[r.idx]
	r.idx++
	if r.idx >= len(r.pool) {
		r.reshuffle()
	}
	return ev
}

// Intn is safe for concurrent use.
func (r *Rotator) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server pushes events to every connected client: one immediately on
// connect, then one per interval. Each client draws its interval once,
// uniformly from [Interval, Interval+Jitter).
type Server struct {
	rot      *Rotator
	interval time.Duration
	jitter   time.Duration
	now      func() time.Time
	log      *log.Logger
}

type Option func(*Server)

// WithInterval overrides the default 5s interval and 4s jitter.
func WithInterval(interval, jitter time.Duration) Option {
	return func(s *Server) { s.interval, s.jitter = interval, jitter }
}

// WithRotator replaces the event source.
func WithRotator(r *Rotator) Option {
	return func(s *Server) { s.rot = r }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.log = logging.OrDiscard(l) }
}

func New(opts ...Option) *Server {
	s := &Server{
		rot:      NewRotator(Samples, rand.New(rand.NewSource(time.Now().UnixNano()))),
		interval: 5 * time.Second,
		jitter:   4 * time.Second,
		now:      time.Now,
		log:      logging.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListenAndServe serves the feed on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return serve.Run(ctx, srv, s.log)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	s.log.Info().Str("remote", r.RemoteAddr).Msg("client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	every := s.interval
	if s.jitter > 0 {
		every += time.Duration(s.rot.Intn(int(s.jitter)))
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.stamp(s.rot.Next())); err != nil {
			s.log.Debug().Err(err).Msg("write event")
			return
		}
		select {
		case <-ticker.C:
		case <-done:
			s.log.Info().Str("remote", r.RemoteAddr).Msg("client disconnected")
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) stamp(ev Event) Event {
	ms := s.now().UnixMilli()
	ev.ID = fmt.Sprintf("%s-%d", ev.Ticker, ms)
	ev.TS = ms
	return ev
}
