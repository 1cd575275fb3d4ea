// Package transcribe turns normalized waveform files into text through a
// speech-to-text provider.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Provider is a speech-to-text backend.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Client wraps a Provider with a call timeout, retries for unavailable
// providers and an optional simulated processing delay.
type Client struct {
	provider Provider
	log      *zap.Logger

	timeout  time.Duration
	retries  int
	minDelay time.Duration
	maxDelay time.Duration

	newBackOff func() backoff.BackOff
	randN      func(n int64) int64
	wait       func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds a whole Transcribe call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets how many extra attempts are made when the provider is unavailable.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithDelay enables a random delay in [lo, hi] before each call.
func WithDelay(lo, hi time.Duration) Option {
	return func(c *Client) {
		c.minDelay = lo
		c.maxDelay = hi
	}
}

// WithBackOff replaces the exponential backoff between retries.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

// WithRand replaces the random source used to pick the delay.
func WithRand(f func(n int64) int64) Option {
	return func(c *Client) { c.randN = f }
}

// WithWait replaces the function that sleeps for the delay.
func WithWait(f func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.wait = f }
}

// WithLogger sets the logger used for retry and delay diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a Client around p.
func NewClient(p Provider, opts ...Option) *Client {
	c := &Client{
		provider: p,
		log:      zap.NewNop(),
		timeout:  60 * time.Second,
		retries:  2,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		randN: rand.Int64N,
		wait:  sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe returns the text recognized in the waveform file at wavPath.
// Errors wrap ErrNoSpeech, ErrProviderUnavailable or ErrFailed.
func (c *Client) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if d := c.delay(); d > 0 {
		c.log.Debug("simulated transcription delay", zap.Duration("delay", d))
		if err := c.wait(ctx, d); err != nil {
			return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	attempt := 0
	text, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		text, err := c.provider.Transcribe(ctx, wavPath)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, ErrProviderUnavailable) && ctx.Err() == nil {
			c.log.Warn("transcription provider unavailable",
				zap.Int("attempt", attempt), zap.Error(err))
			return "", err
		}
		return "", backoff.Permanent(err)
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.retries+1)),
	)
	if err != nil {
		return "", classifyError(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (c *Client) delay() time.Duration {
	if c.maxDelay <= 0 {
		return 0
	}
	span := c.maxDelay - c.minDelay
	if span <= 0 {
		return c.minDelay
	}
	return c.minDelay + time.Duration(c.randN(int64(span)+1))
}

// classifyError makes sure every error leaving the client carries a sentinel.
func classifyError(err error) error {
	switch {
	case errors.Is(err, ErrNoSpeech), errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrFailed):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrFailed, err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
