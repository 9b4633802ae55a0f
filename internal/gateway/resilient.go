package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/logger"
)

type ResilienceOptions struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts after the first failure.
	Retries      int
	RetryBackoff time.Duration
	// RequestsPerSecond limits outbound calls; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func DefaultResilienceOptions() ResilienceOptions {
	return ResilienceOptions{
		Timeout:           20 * time.Second,
		Retries:           1,
		RetryBackoff:      500 * time.Millisecond,
		RequestsPerSecond: 5,
		Burst:             10,
		BreakerFailures:   5,
		BreakerCooldown:   30 * time.Second,
	}
}

// ResilientGateway wraps a Gateway with per-attempt timeouts, bounded retry,
// a circuit breaker and a rate limiter. Every failure it returns is an
// apperr UpstreamFailure.
type ResilientGateway struct {
	next    Gateway
	opts    ResilienceOptions
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewResilientGateway(next Gateway, opts ResilienceOptions, log zerolog.Logger) *ResilientGateway {
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "reasoning-gateway",
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		// Rejected requests and caller cancellations say nothing about the
		// health of the service.
		IsSuccessful: func(err error) bool {
			return err == nil || isRejected(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &ResilientGateway{next: next, opts: opts, breaker: breaker, limiter: limiter}
}

func (g *ResilientGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	log := logger.FromContext(ctx)

	var b backoff.BackOff
	if g.opts.RetryBackoff > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = g.opts.RetryBackoff
		eb.MaxElapsedTime = 0
		b = eb
	} else {
		b = &backoff.ZeroBackOff{}
	}
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(g.opts.Retries, 0))), ctx)

	attempt := 0
	resp, err := backoff.RetryNotifyWithData(func() (*Response, error) {
		attempt++
		resp, err := g.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil || isRejected(err) ||
			errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}, b, func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retryIn", wait).Msg("reasoning call failed, retrying")
	})
	if err != nil {
		log.Error().Err(err).Int("attempts", attempt).Msg("reasoning call failed")
		return nil, apperr.Upstream("reasoning service unavailable", err)
	}
	return resp, nil
}

func (g *ResilientGateway) attempt(ctx context.Context, req Request) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		attemptCtx := ctx
		if g.opts.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
			defer cancel()
		}
		return g.next.Complete(attemptCtx, req)
	})
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*Response)
	if !ok || resp == nil {
		return nil, errors.New("reasoning service returned an empty response")
	}
	return resp, nil
}
