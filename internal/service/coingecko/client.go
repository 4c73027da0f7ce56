package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/ratelimit"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
)

var (
	// ErrRateLimited means the upstream kept answering 429 after all retries.
	ErrRateLimited = errors.New("coingecko: rate limited")
	// ErrUnavailable covers every other transport or parse failure. Not retried.
	ErrUnavailable = errors.New("coingecko: unavailable")
)

const limiterKey = "api"

// Client is a rate-limited, retrying CoinGecko API client. It maps requests
// to responses and keeps no sample state of its own.
type Client struct {
	baseURL string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	log     *applogger.Logger
	metrics drepo.Metrics

	batchSize      int
	batchDelay     time.Duration
	pacing         time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures Client.
type Option func(*Client)

// New creates a CoinGecko client with rate limiting and retry defaults that
// match the public API tier: batches of 3, 1s pacing after each success,
// 3 retries on 429 with 1s..10s exponential backoff.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:        "https://api.coingecko.com/api/v3",
		limiter:        ratelimit.New(3, 1),
		batchSize:      3,
		batchDelay:     time.Second,
		pacing:         time.Second,
		maxRetries:     3,
		initialBackoff: time.Second,
		maxBackoff:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
	}
	if c.log == nil {
		c.log, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stderr"})
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	return c
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBatch sets the concurrent batch size and the delay between batches.
func WithBatch(size int, delay time.Duration) Option {
	return func(c *Client) {
		if size > 0 {
			c.batchSize = size
		}
		c.batchDelay = delay
	}
}

// WithPacing sets the fixed delay imposed after every successful request.
func WithPacing(d time.Duration) Option {
	return func(c *Client) { c.pacing = d }
}

// WithRetry sets retry count and backoff bounds for 429 responses.
func WithRetry(max int, initial, cap time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		if initial > 0 {
			c.initialBackoff = initial
		}
		if cap > 0 {
			c.maxBackoff = cap
		}
	}
}

// WithLimiter replaces the request token bucket.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// Backoff returns the delay before retry `attempt` (1-based): the initial
// delay doubled per attempt, capped at max. Pure so it can be tested apart
// from any scheduling primitive.
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Snapshots resolves current USD prices for the given ids. Ids are processed
// in batches: requests within a batch run concurrently, batches are
// sequential with a delay in between. A failed instrument is logged and
// omitted; only context cancellation fails the whole call.
func (c *Client) Snapshots(ctx context.Context, ids []string) (map[string]models.PriceSnapshot, error) {
	out := make(map[string]models.PriceSnapshot, len(ids))
	var mu sync.Mutex

	for start := 0; start < len(ids); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		var wg sync.WaitGroup
		for _, id := range ids[start:end] {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				snap, err := c.simplePrice(ctx, id)
				if err != nil {
					c.metrics.RecordError("fetch")
					c.log.Warn("price fetch failed",
						applogger.String("instrument", id),
						applogger.Error(err))
					return
				}
				mu.Lock()
				out[id] = snap
				mu.Unlock()
			}(id)
		}
		wg.Wait()

		if end < len(ids) && c.batchDelay > 0 {
			select {
			case <-time.After(c.batchDelay):
			case <-ctx.Done():
				return out, ctx.Err()
			}
		}
	}
	return out, nil
}

func (c *Client) simplePrice(ctx context.Context, id string) (models.PriceSnapshot, error) {
	var raw map[string]struct {
		USD          float64 `json:"usd"`
		USD24hVol    float64 `json:"usd_24h_vol"`
		USD24hChange float64 `json:"usd_24h_change"`
	}
	err := c.getJSON(ctx, "/simple/price", map[string][]string{
		"ids":                 {id},
		"vs_currencies":       {"usd"},
		"include_24hr_vol":    {"true"},
		"include_24hr_change": {"true"},
	}, &raw)
	if err != nil {
		c.metrics.RecordFetch("simple_price", "error")
		return models.PriceSnapshot{}, err
	}
	entry, ok := raw[id]
	if !ok {
		c.metrics.RecordFetch("simple_price", "error")
		return models.PriceSnapshot{}, fmt.Errorf("%w: %s missing from response", ErrUnavailable, id)
	}
	c.metrics.RecordFetch("simple_price", "ok")
	return models.PriceSnapshot{
		Instrument: id,
		Price:      entry.USD,
		Volume24h:  entry.USD24hVol,
		Change24h:  entry.USD24hChange,
		FetchedAt:  time.Now().Unix(),
	}, nil
}

type chartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// DailySeries fetches up to `days` daily samples for one instrument, used to
// seed the Pi-Cycle history.
func (c *Client) DailySeries(ctx context.Context, id string, days int) ([]models.Sample, error) {
	var chart chartResponse
	err := c.getJSON(ctx, "/coins/"+id+"/market_chart", map[string][]string{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(days)},
		"interval":    {"daily"},
	}, &chart)
	if err != nil {
		c.metrics.RecordFetch("market_chart", "error")
		return nil, err
	}
	c.metrics.RecordFetch("market_chart", "ok")
	return samplesFromChart(id, chart), nil
}

// RangeSeries fetches hourly samples between from and to, used to seed
// anomaly histories.
func (c *Client) RangeSeries(ctx context.Context, id string, from, to time.Time) ([]models.Sample, error) {
	var chart chartResponse
	err := c.getJSON(ctx, "/coins/"+id+"/market_chart/range", map[string][]string{
		"vs_currency": {"usd"},
		"from":        {strconv.FormatInt(from.Unix(), 10)},
		"to":          {strconv.FormatInt(to.Unix(), 10)},
	}, &chart)
	if err != nil {
		c.metrics.RecordFetch("market_chart_range", "error")
		return nil, err
	}
	c.metrics.RecordFetch("market_chart_range", "ok")
	return samplesFromChart(id, chart), nil
}

func samplesFromChart(id string, chart chartResponse) []models.Sample {
	out := make([]models.Sample, 0, len(chart.Prices))
	for i, p := range chart.Prices {
		s := models.Sample{
			Instrument: id,
			Price:      p[1],
			Timestamp:  int64(p[0] / 1000), // upstream timestamps are ms
		}
		if i < len(chart.TotalVolumes) {
			s.Volume = chart.TotalVolumes[i][1]
		}
		out = append(out, s)
	}
	return out
}

// getJSON performs one GET with the retry/backoff policy: 429 retries up to
// maxRetries with exponential backoff, anything else fails immediately. A
// pacing delay follows every successful request.
func (c *Client) getJSON(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx, limiterKey); err != nil {
			return err
		}

		resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.baseURL + path,
			QueryParams: params,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if attempt >= c.maxRetries {
				return fmt.Errorf("%w: %s after %d retries", ErrRateLimited, path, c.maxRetries)
			}
			delay := Backoff(attempt+1, c.initialBackoff, c.maxBackoff)
			c.log.Warn("rate limited, backing off",
				applogger.String("path", path),
				applogger.Int("attempt", attempt+1),
				applogger.Duration("delay_ms", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return fmt.Errorf("%w: %s status %d", ErrUnavailable, path, resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(dest)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, err)
		}

		// steady-state pacing, not a correctness requirement
		if c.pacing > 0 {
			select {
			case <-time.After(c.pacing):
			case <-ctx.Done():
			}
		}
		return nil
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordFetch(string, string)      {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordAlert(string, string)      {}
func (noopMetrics) RecordTickDuration(float64)      {}
