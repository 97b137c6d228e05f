package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/logging"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries a fresh UUID on every outbound request.
const RequestIDHeader = "X-Request-ID"

// ErrUnavailable is returned while the breaker is refusing calls.
var ErrUnavailable = errors.New("upstream unavailable: circuit breaker open")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned %d", e.Status)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// Options configures a Client. Zero values fall back to sensible defaults.
type Options struct {
	Name         string
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RPS caps outbound requests per second; zero means unlimited.
	RPS       float64
	Token     string
	UserAgent string
	Logger    *logging.Logger
	// OnStateChange observes breaker transitions, typically for metrics.
	OnStateChange func(name string, from, to resilience.State)
}

// Client wraps resty with retries, rate limiting and a circuit breaker.
// Server errors and transport failures count against the breaker; 4xx
// responses do not.
type Client struct {
	name    string
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	log     *logging.Logger
	mu      sync.RWMutex
}

// New builds a client. Retries happen in the retryablehttp transport, so
// a single resty call may make up to RetryMax+1 attempts.
func New(opts Options) *Client {
	if opts.Name == "" {
		opts.Name = "upstream"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 500 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "CodePilot-Server/1.0"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	log := opts.Logger.Named("http." + opts.Name)

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = leveled{log.Sugar()}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	r := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent)
	if opts.BaseURL != "" {
		r.SetBaseURL(opts.BaseURL)
	}
	if opts.Token != "" {
		r.SetAuthToken(opts.Token)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		burst := int(opts.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	onChange := opts.OnStateChange
	breaker := resilience.New(opts.Name, resilience.Settings{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.6)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if onChange != nil {
				onChange(name, from, to)
			}
		},
	})

	return &Client{
		name:    opts.Name,
		resty:   r,
		limiter: limiter,
		breaker: breaker,
		log:     log,
	}
}

// SetHeader adds a default header to every request.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resty.SetHeader(key, value)
}

// Request waits for the limiter and returns a request bound to ctx.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resty.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, uuid.NewString()), nil
}

// Do builds a request, hands it to send and records the outcome on the
// breaker. A 5xx response comes back as a *StatusError alongside the
// response; other statuses are left to the caller.
func (c *Client) Do(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	resp, err := resilience.Do(c.breaker, func() (*resty.Response, error) {
		req, err := c.Request(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := send(req)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, &StatusError{Status: resp.StatusCode(), Body: truncate(resp.String(), 512)}
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return nil, ErrUnavailable
	case err != nil:
		c.log.Debug("upstream call failed", zap.Error(err))
	}
	return resp, err
}

// BreakerState returns the breaker's current state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// leveled adapts zap to retryablehttp's LeveledLogger.
type leveled struct {
	s *zap.SugaredLogger
}

func (l leveled) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveled) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
