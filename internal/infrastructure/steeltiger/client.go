package steeltiger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

const (
	DefaultAPIURL  = "https://www.apiarbro.xfoxnet.com/api/RecuperarDatos_ERP_por_Query"
	DefaultAuthURL = "https://www.apiarbro.xfoxnet.com/Api/Autorizacion"

	defaultMaxAttempts = 4
	defaultBaseBackoff = time.Second
	defaultMaxBackoff  = 8 * time.Second
)

// Config holds the ERP endpoint, credentials and retry policy
type Config struct {
	APIURL   string
	AuthURL  string
	License  string
	User     string
	Password string
	CUIT     string
	Email    string

	Timeout       time.Duration
	MaxAttempts   int
	RatePerSecond float64
	Burst         int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
}

// Client fetches datasets from the Steel Tiger ERP
type Client struct {
	httpClient  *http.Client
	config      Config
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
	now         func() time.Time
}

// NewClient creates a new ERP client
func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.AuthURL == "" {
		config.AuthURL = DefaultAuthURL
	}
	if config.CUIT == "" {
		config.CUIT = "0"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = defaultBaseBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaultMaxBackoff
	}

	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 4
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config:      config,
		rateLimiter: rate.NewLimiter(limit, burst),
		logger:      logger.With().Str("component", "steeltiger").Logger(),
		now:         time.Now,
	}
}

// FetchDataset runs the ERP query behind key and returns its rows
func (c *Client) FetchDataset(ctx context.Context, key string) (domain.Dataset, error) {
	query, err := QueryName(key)
	if err != nil {
		return domain.Dataset{}, err
	}
	if c.config.License == "" {
		return domain.Dataset{}, fmt.Errorf("%w: license is empty", domain.ErrProviderNotConfigured)
	}

	payload := queryRequest{
		License:  c.config.License,
		User:     c.config.User,
		Password: c.config.Password,
		CUIT:     c.config.CUIT,
		PureJSON: true,
		Query:    query,
	}

	start := c.now()
	var dataset domain.Dataset
	err = c.postWithRetry(ctx, c.config.APIURL, payload, func(body []byte) error {
		decoded, err := MapToDataset(key, query, body, c.now())
		if err != nil {
			return err
		}
		dataset = decoded
		return nil
	})
	if err != nil {
		return domain.Dataset{}, err
	}

	c.logger.Info().
		Str("dataset", key).
		Str("query", query).
		Int("rows", dataset.Meta.Count).
		Dur("elapsed", c.now().Sub(start)).
		Msg("dataset fetched")

	return dataset, nil
}

// Authorize registers email for the configured license. A missing email
// falls back to the configured one.
func (c *Client) Authorize(ctx context.Context, email string) (AuthResult, error) {
	if email == "" {
		email = c.config.Email
	}
	if c.config.License == "" || email == "" {
		return AuthResult{}, fmt.Errorf("%w: license and email are required", domain.ErrProviderNotConfigured)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return AuthResult{}, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.doRequest(ctx, c.config.AuthURL, authRequest{License: c.config.License, Email: email})
	if err != nil {
		return AuthResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: read body: %v", domain.ErrProviderFailure, err)
	}

	result := AuthResult{
		OK:       resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:   resp.StatusCode,
		Response: decodeAuthResponse(body),
	}
	c.logger.Info().Int("status", result.Status).Bool("ok", result.OK).Msg("authorization requested")

	return result, nil
}

// postWithRetry posts payload until a 2xx response whose body handle
// accepts, waiting exponentialBackoff between attempts
func (c *Client) postWithRetry(ctx context.Context, url string, payload any, handle func([]byte) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, c.exponentialBackoff(attempt-1)); err != nil {
				return fmt.Errorf("%w: %v (last error: %v)", domain.ErrProviderFailure, err, lastErr)
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		body, err := c.post(ctx, url, payload)
		if err == nil {
			err = handle(body)
		}
		if err == nil {
			return nil
		}

		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", c.config.MaxAttempts).Msg("erp request failed")
	}

	return fmt.Errorf("%w: %v", domain.ErrProviderFailure, lastErr)
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	resp, err := c.doRequest(ctx, url, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body, 512))
	}
	return body, nil
}

// doRequest executes a JSON POST request
func (c *Client) doRequest(ctx context.Context, url string, payload any) (*http.Response, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "steeltiger-middleware/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return resp, nil
}

// exponentialBackoff returns the wait after a failed attempt: the base
// delay doubled per attempt, capped at the configured maximum
func (c *Client) exponentialBackoff(attempt int) time.Duration {
	delay := c.config.BaseBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.config.MaxBackoff {
			return c.config.MaxBackoff
		}
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
