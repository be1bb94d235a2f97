package scraper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"vavato_scrooper/logging"
)

// ErrRetriesExhausted is returned when the site keeps serving its block page
// after every retry. It aborts the whole run.
var ErrRetriesExhausted = errors.New("max fetch retries reached")

// Transport is the GET capability the fetcher needs.
type Transport interface {
	Get(ctx context.Context, url string) (status int, body string, err error)
}

// RetryState is the backoff interval shared by every fetch of one run. It
// doubles on each soft-block retry and is never reset, so later retries
// inherit the longer delay.
type RetryState struct {
	b *backoff.ExponentialBackOff
}

func NewRetryState(initial time.Duration) *RetryState {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return &RetryState{b: b}
}

// Next returns the interval to sleep before the next retry and doubles it.
func (r *RetryState) Next() time.Duration {
	return r.b.NextBackOff()
}

type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type FetcherOptions struct {
	Delay       time.Duration
	MaxRetries  int
	BlockMarker string
	Sleep       SleepFunc
}

type Fetcher struct {
	transport   Transport
	retry       *RetryState
	delay       time.Duration
	maxRetries  int
	blockMarker string
	sleep       SleepFunc
}

func NewFetcher(transport Transport, retry *RetryState, opts FetcherOptions) *Fetcher {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Fetcher{
		transport:   transport,
		retry:       retry,
		delay:       opts.Delay,
		maxRetries:  opts.MaxRetries,
		blockMarker: opts.BlockMarker,
		sleep:       sleep,
	}
}

// Fetch returns the page text for url. A non-200 response yields an empty
// string and no error. A block page is retried with backoff until the retry
// budget runs out, at which point ErrRetriesExhausted is returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if err := f.sleep(ctx, f.delay); err != nil {
			return "", err
		}

		status, body, err := f.transport.Get(ctx, url)
		if err != nil {
			return "", fmt.Errorf("get %s: %w", url, err)
		}

		if status != http.StatusOK {
			logging.Warnf("Failed to get HTML from %s: status %d", url, status)
			return "", nil
		}

		if f.blockMarker == "" || !strings.Contains(body, f.blockMarker) {
			return body, nil
		}

		logging.Warnf("Request was blocked for %s", url)
		if attempt == f.maxRetries {
			break
		}

		wait := f.retry.Next()
		logging.Infof("Retrying in %s (retry %d of %d)", wait, attempt+1, f.maxRetries)
		if err := f.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w for %s", ErrRetriesExhausted, url)
}

// IsFatal reports whether err must stop the run rather than just the page:
// the block page outlasted every retry, or the run itself was cancelled.
func IsFatal(ctx context.Context, err error) bool {
	return errors.Is(err, ErrRetriesExhausted) || ctx.Err() != nil
}
