// Shared HTTP transport for all adapters.
//
// Information Hiding:
// - Request pacing (token bucket per provider)
// - Retry of transient failures (network errors, 429, 5xx)
// - Static headers some vendors require

package llm

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prachwal/rag07/internal/retry"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type transport struct {
	base       http.RoundTripper
	provider   string
	headers    map[string]string
	limiter    *rate.Limiter
	retrier    *retry.Retrier
	maxRetries int
	logger     zerolog.Logger
}

// newHTTPClient returns a client bound to cfg.Timeout whose transport paces and
// retries requests. The timeout covers every attempt of one call.
func newHTTPClient(cfg ProviderConfig, logger zerolog.Logger) *http.Client {
	t := &transport{
		base:       http.DefaultTransport,
		provider:   cfg.Name,
		headers:    cfg.Headers,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
	if cfg.RequestsPerMinute > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	retryCfg := retry.NewDefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries
	t.retrier = retry.NewRetrier(retryCfg)

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: t,
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// RoundTrip implements http.RoundTripper.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	// Bodies without GetBody cannot be replayed, so they get a single attempt.
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	var resp *http.Response
	attempt := 0
	err := t.retrier.Do(ctx, func() error {
		attempt++
		if attempt > 1 && !replayable {
			return retry.Permanent(errors.New("request body cannot be replayed"))
		}

		r := req.Clone(ctx)
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return retry.Permanent(err)
			}
			r.Body = body
		}
		for k, v := range t.headers {
			r.Header.Set(k, v)
		}

		res, err := t.base.RoundTrip(r)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			t.logger.Debug().Err(err).Str("provider", t.provider).Int("attempt", attempt).Msg("transport error")
			return err
		}

		if retryableStatus(res.StatusCode) && attempt <= t.maxRetries && replayable {
			_, _ = io.Copy(io.Discard, res.Body)
			res.Body.Close()
			t.logger.Debug().Str("provider", t.provider).Int("status", res.StatusCode).Int("attempt", attempt).Msg("retrying request")
			return fmt.Errorf("status %d", res.StatusCode)
		}

		resp = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
