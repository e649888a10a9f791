// Package httpx is the HTTP client shared by the collectors. Retry behaviour
// is configured explicitly on each Client instead of living in a global
// session.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 8 << 20

// StatusError is returned for any response with a status of 400 or above.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("status code: %d body=%s", e.Code, body)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RetryStatuses   []int
}

// DefaultRetryPolicy retries rate limiting and gateway failures five times
// with exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        5,
		InitialInterval: time.Second,
		MaxInterval:     16 * time.Second,
		RetryStatuses:   []int{429, 500, 502, 503, 504},
	}
}

type Client struct {
	http      *http.Client
	policy    RetryPolicy
	log       zerolog.Logger
	userAgent string
}

func New(httpClient *http.Client, policy RetryPolicy, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if policy.MaxTries == 0 {
		policy.MaxTries = 1
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = time.Second
	}
	if policy.MaxInterval < policy.InitialInterval {
		policy.MaxInterval = policy.InitialInterval
	}
	return &Client{
		http:      httpClient,
		policy:    policy,
		log:       log.With().Str("component", "httpx").Logger(),
		userAgent: "pharma-discovery/1.0",
	}
}

// Get issues a GET with query parameters and returns the response body.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	})
}

// PostJSON sends body as JSON with the given headers and returns the
// response body.
func (c *Client) PostJSON(ctx context.Context, rawURL string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
}

func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.policy.InitialInterval
	b.MaxInterval = c.policy.MaxInterval
	b.Multiplier = 2

	attempt := 0
	var lastErr error
	op := func() ([]byte, error) {
		attempt++
		req, err := build()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		body, retryAfter, err := c.once(req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !c.retryable(err) {
			return nil, backoff.Permanent(err)
		}
		c.log.Debug().Str("url", req.URL.Redacted()).Int("attempt", attempt).Err(err).Msg("http_retry")
		if retryAfter > 0 {
			return nil, backoff.RetryAfter(int(retryAfter / time.Second))
		}
		return nil, err
	}
	body, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(c.policy.MaxTries))
	if err != nil {
		var ra *backoff.RetryAfterError
		if errors.As(err, &ra) && lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) once(req *http.Request) ([]byte, time.Duration, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, err
	}
	if res.StatusCode >= 400 {
		return nil, ParseRetryAfter(res.Header.Get("Retry-After")), &StatusError{Code: res.StatusCode, Body: string(body)}
	}
	return body, 0, nil
}

func (c *Client) retryable(err error) bool {
	if code := StatusCode(err); code != 0 {
		return slices.Contains(c.policy.RetryStatuses, code)
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ParseRetryAfter reads a Retry-After header given in whole seconds.
func ParseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
