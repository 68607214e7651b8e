package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"keyword-go/pkg/keyword"
	"keyword-go/pkg/logger"
)

// Config is injected at construction. No global credential state; an empty
// BaseURL disables the external source entirely.
type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BaseDelay         time.Duration `mapstructure:"base_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Language          string        `mapstructure:"language"`
	Location          string        `mapstructure:"location"`
	Limit             int           `mapstructure:"limit"`
}

// Enabled reports whether credentials are present. Absence degrades the
// source gracefully instead of failing startup.
func (c Config) Enabled() bool {
	return c.BaseURL != ""
}

func (c Config) withDefaults() Config {
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.Location == "" {
		c.Location = "us"
	}
	if c.Limit <= 0 {
		c.Limit = 20
	}
	return c
}

// queryItem is the provider's request shape: one object per seed keyword.
type queryItem struct {
	Keyword  string `json:"keyword"`
	Language string `json:"language"`
	Location string `json:"location"`
	Limit    int    `json:"limit"`
}

// providerResponse mirrors the provider's JSON envelope.
type providerResponse struct {
	Status string `json:"status"`
	Data   []struct {
		Keyword string `json:"keyword"`
		Metrics struct {
			AvgMonthlySearches int      `json:"avg_monthly_searches"`
			Difficulty         *float64 `json:"difficulty"`
			CPC                *float64 `json:"cpc"`
			Competition        string   `json:"competition"`
			TrendPercentage    *float64 `json:"trend_percentage"`
			Intent             string   `json:"intent"`
			RelatedKeywords    []string `json:"related_keywords"`
		} `json:"metrics"`
	} `json:"data"`
}

// Client wraps the external keyword-data API with a per-minute quota and
// retry with exponential backoff. It performs the network call only; it
// never touches cache or persistence.
type Client struct {
	cfg     Config
	limiter *rate.Limiter
	retry   *Retrier
	log     *logger.Logger

	// httpDo is swappable in tests.
	httpDo func(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error

	totalRequests  uint64
	failedRequests uint64
}

func NewClient(cfg Config) *Client {
	return NewClientWithClock(cfg, realClock{})
}

// NewClientWithClock builds a client whose retry waits run on the given
// clock.
func NewClientWithClock(cfg Config, clock Clock) *Client {
	cfg = cfg.withDefaults()

	httpClient := &fasthttp.Client{
		ReadTimeout:         cfg.Timeout,
		WriteTimeout:        cfg.Timeout,
		MaxConnsPerHost:     64,
		MaxIdleConnDuration: 90 * time.Second,
	}

	// Quota requests are queued by the limiter, never dropped silently.
	interval := time.Minute / time.Duration(cfg.RequestsPerMinute)

	return &Client{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		retry:   NewRetrierWithClock(cfg.MaxAttempts, cfg.BaseDelay, cfg.MaxDelay, clock),
		log:     logger.GetLogger().WithField("component", "trends_client"),
		httpDo:  httpClient.DoTimeout,
	}
}

// Fetch queries metrics for the seed keywords. Returns raw rows for the
// normalizer, or a *FetchError describing the failure class.
func (c *Client) Fetch(ctx context.Context, seeds []string, scope keyword.Scope) ([]keyword.RawRecord, error) {
	if len(seeds) == 0 {
		return nil, &FetchError{Kind: KindInvalidRequest, Err: fmt.Errorf("no seed keywords provided")}
	}

	atomic.AddUint64(&c.totalRequests, 1)
	start := time.Now()
	c.log.WithField("seed_count", len(seeds)).Debug("Starting trends query")

	var rows []keyword.RawRecord
	err := c.retry.Do(ctx, func() error {
		fetched, ferr := c.doFetch(ctx, seeds)
		if ferr != nil {
			return ferr
		}
		rows = fetched
		return nil
	})
	if err != nil {
		atomic.AddUint64(&c.failedRequests, 1)
		c.log.WithError(err).WithField("seed_count", len(seeds)).Error("Trends query failed")
		return nil, err
	}

	c.log.WithFields(map[string]interface{}{
		"rows":        len(rows),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Trends query completed")
	return rows, nil
}

func (c *Client) doFetch(ctx context.Context, seeds []string) ([]keyword.RawRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Kind: KindTimeout, Err: err}
	}

	items := make([]queryItem, 0, len(seeds))
	for _, seed := range seeds {
		items = append(items, queryItem{
			Keyword:  seed,
			Language: c.cfg.Language,
			Location: c.cfg.Location,
			Limit:    c.cfg.Limit,
		})
	}
	body, err := json.Marshal(items)
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidRequest, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "keyword-go/1.0")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.SetBody(body)

	if err := c.httpDo(req, resp, c.cfg.Timeout); err != nil {
		if err == fasthttp.ErrTimeout || ctx.Err() != nil {
			return nil, &FetchError{Kind: KindTimeout, Err: err}
		}
		return nil, &FetchError{Kind: KindUpstreamUnavailable, Err: err}
	}

	return c.classifyResponse(resp)
}

func (c *Client) classifyResponse(resp *fasthttp.Response) ([]keyword.RawRecord, error) {
	status := resp.StatusCode()
	switch {
	case status == fasthttp.StatusOK:
		// Fall through to parsing.
	case status == fasthttp.StatusAccepted:
		// Provider accepted the task but the result is not ready yet.
		return nil, &FetchError{Kind: KindTimeout, Status: status,
			Err: fmt.Errorf("task accepted, result not ready")}
	case status == fasthttp.StatusTooManyRequests:
		return nil, &FetchError{Kind: KindRateLimited, Status: status,
			Err: fmt.Errorf("provider rate limit exceeded")}
	case status == fasthttp.StatusRequestTimeout:
		return nil, &FetchError{Kind: KindTimeout, Status: status,
			Err: fmt.Errorf("provider request timeout")}
	case status >= 400 && status < 500:
		return nil, &FetchError{Kind: KindInvalidRequest, Status: status,
			Err: fmt.Errorf("provider rejected request: %s", resp.Body())}
	default:
		return nil, &FetchError{Kind: KindUpstreamUnavailable, Status: status,
			Err: fmt.Errorf("provider returned status %d", status)}
	}

	var parsed providerResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, &FetchError{Kind: KindUpstreamUnavailable, Status: status,
			Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	fetchedAt := time.Now().UTC()
	rows := make([]keyword.RawRecord, 0, len(parsed.Data))
	for _, data := range parsed.Data {
		volume := data.Metrics.AvgMonthlySearches
		competition := competitionValue(data.Metrics.Competition)
		rows = append(rows, keyword.RawRecord{
			Keyword:         data.Keyword,
			SearchVolume:    &volume,
			Difficulty:      data.Metrics.Difficulty,
			CPC:             data.Metrics.CPC,
			Competition:     competition,
			TrendPercentage: data.Metrics.TrendPercentage,
			Intent:          data.Metrics.Intent,
			RelatedKeywords: data.Metrics.RelatedKeywords,
			FetchedAt:       fetchedAt,
		})
	}
	return rows, nil
}

// competitionValue maps the provider's LOW/MEDIUM/HIGH labels onto the
// 0-100 scale. Unlabeled rows stay unset so the normalizer defaults them.
func competitionValue(label string) *float64 {
	var v float64
	switch label {
	case "LOW":
		v = 30
	case "MEDIUM":
		v = 50
	case "HIGH":
		v = 80
	default:
		return nil
	}
	return &v
}

// Stats reports request counters for diagnostics.
func (c *Client) Stats() (total, failed uint64) {
	return atomic.LoadUint64(&c.totalRequests), atomic.LoadUint64(&c.failedRequests)
}
