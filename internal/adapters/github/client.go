// Package github provides a resilient GitHub REST v3 client for ingestion
package github

import (
	"context"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/logger"

	"github.com/cenkalti/backoff/v4"
)

const (
	baseURLDefault      = "https://api.github.com"
	oauthBaseURLDefault = "https://github.com"
	defaultTimeout      = 10 * time.Second
	defaultUA           = "codefrog-ingest"
	defaultMaxRetry     = 5
	defaultRetryBase    = 1 * time.Second
	backoffCeiling      = 30 * time.Second
)

// Options configures the Client
type Options struct {
	BaseURL      string
	OAuthBaseURL string
	UserAgent    string
	Timeout      time.Duration

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration
}

// Auth carries per request credentials, installation tokens are short lived
// so every caller passes its own
type Auth struct {
	Scheme string // "Bearer" for app JWTs, "token" for installation tokens
	Token  string
}

// BearerAuth wraps an app JWT
func BearerAuth(jwt string) Auth { return Auth{Scheme: "Bearer", Token: jwt} }

// TokenAuth wraps an installation or user access token
func TokenAuth(token string) Auth { return Auth{Scheme: "token", Token: token} }

// Client is a minimal GitHub REST client with retry and rate limit handling
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.OAuthBaseURL == "" {
		o.OAuthBaseURL = oauthBaseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("github"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

func (c *Client) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryBase
	b.MaxInterval = backoffCeiling
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// ReqOption mutates a request before it is sent, applied fresh on every retry
type ReqOption func(*http.Request)

// WithAccept overrides the Accept header, some endpoints need preview media types
func WithAccept(v string) ReqOption {
	return func(r *http.Request) { r.Header.Set("Accept", v) }
}

// WithForm attaches a urlencoded form body
func WithForm(form neturl.Values) ReqOption {
	return func(r *http.Request) {
		enc := form.Encode()
		r.Body = io.NopCloser(strings.NewReader(enc))
		r.ContentLength = int64(len(enc))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
}

// Do issues a request with auth headers, retries, and rate limit handling.
// path may be relative to BaseURL or an absolute url from a Link header.
func (c *Client) Do(ctx context.Context, method, path string, auth Auth, mods ...ReqOption) (*http.Response, error) {
	url := path
	if !strings.HasPrefix(path, "http") {
		url = c.opts.BaseURL + path
	}
	bo := c.newBackoff()
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "github new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/vnd.github+json")
		if auth.Token != "" {
			req.Header.Set("Authorization", auth.Scheme+" "+auth.Token)
		}
		for _, mod := range mods {
			mod(req)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github do failed")
			}
			back := bo.NextBackOff()
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("github transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		rem, reset, retryAfter := parseRateHeaders(resp.Header)
		c.log.Debug().
			Str("method", method).
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Int("rate_remaining", rem).
			Time("rate_reset", reset).
			Int("retry_after_s", retryAfter).
			Msg("github http response")

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			return resp, nil
		case http.StatusUnauthorized, http.StatusNotFound, http.StatusGone:
			// permanent, callers may deactivate the project
			_ = drainAndClose(resp.Body)
			return nil, &StatusError{Status: resp.StatusCode, URL: url}
		case http.StatusTooManyRequests, http.StatusForbidden:
			// Respect Retry-After and X-RateLimit-Reset when present
			wait := computeWait(rem, reset, retryAfter, c.now())
			if wait <= 0 {
				wait = bo.NextBackOff()
			}
			if !c.shouldRetry(attempts) {
				_ = drainAndClose(resp.Body)
				return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "github rate limited")
			}
			c.log.Warn().Dur("sleep", wait).Msg("github rate limited backing off")
			_ = drainAndClose(resp.Body)
			c.sleep(wait)
			attempts++
			continue
		default:
			// transient 5xx and anything unexpected
			if !c.shouldRetry(attempts) {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				_ = resp.Body.Close()
				return nil, perr.Newf(perr.ErrorCodeUnavailable,
					"github status %d body %s", resp.StatusCode, string(body))
			}
			back := bo.NextBackOff()
			c.log.Warn().
				Int("status", resp.StatusCode).
				Dur("retry_in", back).
				Int("attempt", attempts).
				Msg("github transient error retrying")
			_ = drainAndClose(resp.Body)
			c.sleep(back)
			attempts++
			continue
		}
	}
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}
