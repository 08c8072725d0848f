package enrich

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	yfgo "github.com/komsit37/yf-go"
)

var (
	// ErrNoPrice means the upstream answered but carried no usable price.
	ErrNoPrice = errors.New("no price in response")
	// ErrUnsupported means the source cannot serve this kind of request.
	ErrUnsupported = errors.New("not supported by price source")
)

// PriceSource fetches prices from an external market-data API.
type PriceSource interface {
	// Latest returns the most recent traded price for ticker.
	Latest(ctx context.Context, ticker string) (float64, error)
	// CloseOn returns the daily close for ticker on date (UTC midnight).
	CloseOn(ctx context.Context, ticker string, date time.Time) (float64, error)
}

// HTTPStatusError reports a non-success upstream response.
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Status)
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// YahooSource implements PriceSource using yf-go. Only latest prices are
// available; CloseOn returns ErrUnsupported.
type YahooSource struct {
	client  *yfgo.Client
	timeout time.Duration
}

func NewYahooSource(timeout time.Duration) *YahooSource {
	return &YahooSource{client: yfgo.NewClient(), timeout: timeout}
}

func (s *YahooSource) Latest(ctx context.Context, ticker string) (float64, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.client.QuoteSummaryTyped(cctx, ticker, []yfgo.QuoteSummaryModule{yfgo.ModulePrice})
	if err != nil {
		return 0, err
	}
	if res.Price == nil || res.Price.RegularMarketPrice.Raw == nil {
		return 0, fmt.Errorf("%s: %w", ticker, ErrNoPrice)
	}
	p := *res.Price.RegularMarketPrice.Raw
	if !validPrice(p) {
		return 0, fmt.Errorf("%s: %w", ticker, ErrNoPrice)
	}
	return p, nil
}

func (s *YahooSource) CloseOn(context.Context, string, time.Time) (float64, error) {
	return 0, ErrUnsupported
}
