package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // Daily bars are stamped in exchange time.

	polygonrest "github.com/polygon-io/client-go/rest"
	rmodels "github.com/polygon-io/client-go/rest/models"
)

// DefaultMassiveURL is the public Massive (formerly Polygon) REST endpoint.
const DefaultMassiveURL = "https://api.massive.com"

// MassiveSource implements PriceSource against the Massive REST API using the
// Polygon client, which speaks the same paths.
type MassiveSource struct {
	rest *polygonrest.Client
}

// NewMassiveSource returns a source authenticating with apiKey. A non-empty
// baseURL replaces the client's built-in host.
func NewMassiveSource(apiKey, baseURL string, timeout time.Duration) (*MassiveSource, error) {
	hc := &http.Client{Timeout: timeout}
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("massive base url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("massive base url %q: missing scheme or host", baseURL)
		}
		hc.Transport = &rewriteTransport{base: u, next: http.DefaultTransport}
	}
	return &MassiveSource{rest: polygonrest.NewWithClient(apiKey, hc)}, nil
}

func (s *MassiveSource) Latest(ctx context.Context, ticker string) (float64, error) {
	res, err := s.rest.GetLastTrade(ctx, &rmodels.GetLastTradeParams{Ticker: ticker})
	if err != nil {
		return 0, fmt.Errorf("last trade %s: %w", ticker, err)
	}
	if res == nil || !validPrice(res.Results.Price) {
		return 0, fmt.Errorf("last trade %s: %w", ticker, ErrNoPrice)
	}
	return res.Results.Price, nil
}

// exchangeTZ is where daily bars start; a day bar's timestamp is local
// midnight there.
var exchangeTZ = func() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*60*60)
}()

// sessionBounds spans the calendar date of d in exchange time, so the range
// holds that day's bar and no other.
func sessionBounds(d time.Time) (from, to time.Time) {
	from = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, exchangeTZ)
	return from, from.AddDate(0, 0, 1).Add(-time.Millisecond)
}

func (s *MassiveSource) CloseOn(ctx context.Context, ticker string, date time.Time) (float64, error) {
	from, to := sessionBounds(date)
	params := &rmodels.ListAggsParams{
		Ticker:     ticker,
		Timespan:   rmodels.Day,
		Multiplier: 1,
		From:       rmodels.Millis(from),
		To:         rmodels.Millis(to),
	}
	adj := true
	asc := rmodels.Asc
	lim := 1
	params.Adjusted = &adj
	params.Order = &asc
	params.Limit = &lim

	iter := s.rest.ListAggs(ctx, params)
	var (
		closePx float64
		found   bool
	)
	if iter.Next() {
		closePx = iter.Item().Close
		found = true
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("aggs %s %s: %w", ticker, date.Format("2006-01-02"), err)
	}
	if !found || !validPrice(closePx) {
		return 0, fmt.Errorf("aggs %s %s: %w", ticker, date.Format("2006-01-02"), ErrNoPrice)
	}
	return closePx, nil
}

// rewriteTransport sends every request to base, keeping path and query.
type rewriteTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	if t.base.Path != "" {
		r.URL.Path = t.base.Path + r.URL.Path
	}
	r.Host = t.base.Host
	return t.next.RoundTrip(r)
}
