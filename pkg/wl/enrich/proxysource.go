package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProxySource implements PriceSource against the local pass-through proxy
// (see package proxy), which holds the API key server-side.
type ProxySource struct {
	base   string
	client *http.Client
}

func NewProxySource(baseURL string, timeout time.Duration) *ProxySource {
	return &ProxySource{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

type lastTradeBody struct {
	Results struct {
		P *float64 `json:"p"`
	} `json:"results"`
}

type aggsBody struct {
	Results []struct {
		C *float64 `json:"c"`
	} `json:"results"`
}

func (s *ProxySource) Latest(ctx context.Context, ticker string) (float64, error) {
	q := url.Values{"ticker": {ticker}}
	var body lastTradeBody
	if err := s.get(ctx, "/api/last-trade?"+q.Encode(), &body); err != nil {
		return 0, err
	}
	if body.Results.P == nil || !validPrice(*body.Results.P) {
		return 0, fmt.Errorf("last trade %s: %w", ticker, ErrNoPrice)
	}
	return *body.Results.P, nil
}

func (s *ProxySource) CloseOn(ctx context.Context, ticker string, date time.Time) (float64, error) {
	d := date.Format("2006-01-02")
	q := url.Values{"ticker": {ticker}, "date": {d}}
	var body aggsBody
	if err := s.get(ctx, "/api/aggs?"+q.Encode(), &body); err != nil {
		return 0, err
	}
	if len(body.Results) == 0 || body.Results[0].C == nil || !validPrice(*body.Results[0].C) {
		return 0, fmt.Errorf("aggs %s %s: %w", ticker, d, ErrNoPrice)
	}
	return *body.Results[0].C, nil
}

func (s *ProxySource) get(ctx context.Context, path string, out any) error {
	u := s.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{URL: u, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
