package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/SessionRelay/backend/internal/infrastructure/tracing"
)

// StatusError reports a non-2xx response from a collaborator
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.Code, strings.TrimSpace(body))
}

// Options configures one outbound client
type Options struct {
	Name       string
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	// RateLimit is requests per second, zero means unlimited
	RateLimit float64
	// TripAfter consecutive failures opens the breaker
	TripAfter uint32
}

// Client wraps resty with rate limiting and a circuit breaker
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Breaker *resilience.Breaker
	name    string
}

// New creates an outbound client for one collaborator
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = 10
	}

	// pooled transport with keep-alives from go-cleanhttp
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if errors.Is(err, resty.ErrResponseBodyTooLarge) {
				return false
			}
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		}).
		SetHeader("User-Agent", "SessionRelay/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTransport(retryClient.HTTPClient.Transport).
		OnBeforeRequest(tracing.RestyMiddleware)
	if opts.BaseURL != "" {
		restyClient.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	tripAfter := opts.TripAfter
	breaker := resilience.New(opts.Name, resilience.Settings{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= tripAfter
		},
		IsFailure: isRemoteFailure,
	})

	return &Client{
		Resty:   restyClient,
		Limiter: limiter,
		Breaker: breaker,
		name:    opts.Name,
	}
}

// Name returns the collaborator name used in errors and metrics
func (c *Client) Name() string {
	return c.name
}

// Request creates a new request after waiting for the rate limiter
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", c.name, err)
	}
	return c.Resty.R().SetContext(ctx), nil
}

// Execute runs one request through the breaker. Non-2xx responses are
// returned as *StatusError.
func (c *Client) Execute(ctx context.Context, fn func(req *resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	var resp *resty.Response
	err := c.Breaker.Do(ctx, func(ctx context.Context) error {
		req, err := c.Request(ctx)
		if err != nil {
			return err
		}
		resp, err = fn(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", c.name, err)
		}
		if resp.IsError() {
			return &StatusError{Service: c.name, Code: resp.StatusCode(), Body: resp.String()}
		}
		return nil
	})
	if err != nil {
		return resp, err
	}
	return resp, nil
}

// client errors mean the request was wrong, not that the remote is down
func isRemoteFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}
	return true
}
