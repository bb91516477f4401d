package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studyon/course-market/pkg/logger"
	"github.com/valyala/fasthttp"
)

var ErrNoAvailableProviders = errors.New("no available providers")

type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "SENT"
	StatusFailed DeliveryStatus = "FAILED"
)

// NotifyRequest asks the mail provider to warn a customer about a rental
// that is about to lapse.
type NotifyRequest struct {
	NoticeID    string    `json:"notice_id"`
	Email       string    `json:"email"`
	CourseTitle string    `json:"course_title"`
	Expires     time.Time `json:"expires"`
}

type NotifyResponse struct {
	NoticeID string         `json:"notice_id"`
	Status   DeliveryStatus `json:"status"`
	SentAt   *time.Time     `json:"sent_at,omitempty"`
	ErrorMsg string         `json:"error_message,omitempty"`
	Provider string         `json:"provider"`
}

// ReportRequest carries the monthly revenue summary to the back-office
// address.
type ReportRequest struct {
	Email       string      `json:"email"`
	PeriodStart time.Time   `json:"period_start"`
	PeriodEnd   time.Time   `json:"period_end"`
	Rows        []ReportRow `json:"rows"`
	Total       float64     `json:"total"`
}

type ReportRow struct {
	Title string  `json:"title"`
	Type  string  `json:"type"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

type ProviderConfig struct {
	Name string
	URL  string
}

type Config struct {
	Providers               []ProviderConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	HealthCheckInterval     time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// Provider is one mail-delivery endpoint. The circuit opens after the
// configured number of consecutive failures and half-opens once the
// timeout elapses.
type Provider struct {
	name             string
	url              string
	client           *fasthttp.Client
	consecutiveFails atomic.Int32
	totalRequests    atomic.Int64
	failedRequests   atomic.Int64
	circuitOpenUntil atomic.Int64
	healthy          atomic.Bool
}

func newProvider(name, url string, client *fasthttp.Client) *Provider {
	p := &Provider{
		name:   name,
		url:    url,
		client: client,
	}
	p.healthy.Store(true)
	return p
}

func (p *Provider) IsAvailable() bool {
	if openUntil := p.circuitOpenUntil.Load(); openUntil > 0 {
		if time.Now().Unix() <= openUntil {
			return false
		}
		// half-open: let one attempt through
		p.circuitOpenUntil.Store(0)
	}
	return p.healthy.Load()
}

func (p *Provider) recordSuccess() {
	p.totalRequests.Add(1)
	p.consecutiveFails.Store(0)
}

func (p *Provider) recordFailure() {
	p.totalRequests.Add(1)
	p.failedRequests.Add(1)
	p.consecutiveFails.Add(1)
}

// Client fans requests out to the first available provider, fails over to
// the next on error, and retries the whole chain up to MaxRetries.
type Client struct {
	config    *Config
	providers []*Provider
	next      atomic.Uint64
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(config.Providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.CircuitBreakerThreshold == 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout == 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}

	client := &Client{
		config:    config,
		providers: make([]*Provider, 0, len(config.Providers)),
		stopCh:    make(chan struct{}),
	}

	for _, pc := range config.Providers {
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		}
		client.providers = append(client.providers, newProvider(pc.Name, pc.URL, httpClient))
		logger.Info("Provider initialized", "name", pc.Name, "url", pc.URL)
	}

	if config.HealthCheckInterval > 0 {
		client.wg.Add(1)
		go client.healthChecker()
	}

	logger.Info("Notification client initialized", "providers", len(client.providers), "timeout", config.Timeout)

	return client, nil
}

// SelectProvider returns the next available provider round-robin.
func (c *Client) SelectProvider() (*Provider, error) {
	n := len(c.providers)
	start := int(c.next.Add(1))
	for i := 0; i < n; i++ {
		p := c.providers[(start+i)%n]
		if p.IsAvailable() {
			return p, nil
		}
	}
	return nil, ErrNoAvailableProviders
}

// SendNotice delivers one rent-expiry warning.
func (c *Client) SendNotice(ctx context.Context, req *NotifyRequest) (*NotifyResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, provider, err := c.sendWithFailover(ctx, "POST", "/api/v1/notifications/send", body)
	if err != nil {
		return nil, err
	}

	var resp NotifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Info("Notice sent to provider", "notice_id", req.NoticeID, "status", string(resp.Status), "provider", provider.name)
	return &resp, nil
}

// SendReport delivers the monthly revenue summary.
func (c *Client) SendReport(ctx context.Context, req *ReportRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, provider, err := c.sendWithFailover(ctx, "POST", "/api/v1/reports/send", body)
	if err != nil {
		return err
	}

	logger.Info("Report sent to provider", "email", req.Email, "rows", len(req.Rows), "provider", provider.name)
	return nil
}

func (c *Client) sendWithFailover(ctx context.Context, method, path string, body []byte) ([]byte, *Provider, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		provider, err := c.SelectProvider()
		if err != nil {
			lastErr = err
			continue
		}

		raw, err := c.doRequest(ctx, provider, method, path, body)
		if err != nil {
			provider.recordFailure()
			c.checkCircuitBreaker(provider)
			logger.Warn("Request failed, retrying", "error", err, "provider", provider.name, "attempt", attempt+1)
			lastErr = err
			continue
		}

		provider.recordSuccess()
		return raw, provider, nil
	}

	return nil, nil, fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, provider *Provider, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.url + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := provider.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}

func (c *Client) checkCircuitBreaker(provider *Provider) {
	fails := provider.consecutiveFails.Load()
	if fails >= int32(c.config.CircuitBreakerThreshold) {
		openUntil := time.Now().Add(c.config.CircuitBreakerTimeout).Unix()
		provider.circuitOpenUntil.Store(openUntil)
		logger.Warn("Circuit breaker opened", "provider", provider.name, "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
	}
}

func (c *Client) healthChecker() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.performHealthChecks()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) performHealthChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	for _, provider := range c.providers {
		raw, err := c.doRequest(ctx, provider, "GET", "/health", nil)
		healthy := false
		if err == nil {
			var health struct {
				Status string `json:"status"`
			}
			if json.Unmarshal(raw, &health) == nil {
				healthy = health.Status == "healthy"
			}
		}

		was := provider.healthy.Swap(healthy)
		if was != healthy {
			logger.Info("Provider health changed", "provider", provider.name, "healthy", healthy)
		}
	}
}

type ProviderStats struct {
	Name             string
	URL              string
	Available        bool
	TotalRequests    int64
	FailedRequests   int64
	ConsecutiveFails int32
}

func (c *Client) GetProviderStats() []ProviderStats {
	stats := make([]ProviderStats, 0, len(c.providers))
	for _, p := range c.providers {
		stats = append(stats, ProviderStats{
			Name:             p.name,
			URL:              p.url,
			Available:        p.IsAvailable(),
			TotalRequests:    p.totalRequests.Load(),
			FailedRequests:   p.failedRequests.Load(),
			ConsecutiveFails: p.consecutiveFails.Load(),
		})
	}
	return stats
}

func (c *Client) Close() error {
	close(c.stopCh)
	c.wg.Wait()
	logger.Info("Notification client closed")
	return nil
}
