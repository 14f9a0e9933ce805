package anthropic

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// WaitOption tunes WaitForBatch.
type WaitOption func(*waitConfig)

type waitConfig struct {
	interval time.Duration
	maxDelay time.Duration
	timeout  time.Duration
}

// WithWaitInterval sets the first polling delay (default 2s).
func WithWaitInterval(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.interval = d }
}

// WithWaitMaxDelay caps the polling delay (default 15s).
func WithWaitMaxDelay(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.maxDelay = d }
}

// WithWaitTimeout bounds the wait when ctx has no deadline (default 30m).
func WithWaitTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.timeout = d }
}

// WaitForBatch polls until the batch ends. The delay doubles up to the cap
// with +/-20% jitter. A batch that is being canceled is an error.
func WaitForBatch(ctx context.Context, client Client, batchID string, opts ...WaitOption) (*Batch, error) {
	cfg := waitConfig{interval: 2 * time.Second, maxDelay: 15 * time.Second, timeout: 30 * time.Minute}
	for _, o := range opts {
		o(&cfg)
	}
	if _, ok := ctx.Deadline(); !ok && cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	delay := cfg.interval
	for {
		b, err := client.GetBatch(ctx, batchID)
		if err != nil {
			return nil, eris.Wrapf(err, "anthropic: wait for batch %s", batchID)
		}
		switch b.Status {
		case StatusEnded:
			return b, nil
		case StatusCanceling:
			return b, eris.Errorf("anthropic: batch %s is being canceled", batchID)
		}
		zap.L().Debug("anthropic: batch pending",
			zap.String("batch_id", batchID),
			zap.Int64("processing", b.Processing),
			zap.Duration("next_poll", delay),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, eris.Wrapf(ctx.Err(), "anthropic: wait for batch %s", batchID)
		case <-t.C:
		}
		delay = nextDelay(delay, cfg.maxDelay)
	}
}

func nextDelay(cur, maxDelay time.Duration) time.Duration {
	next := min(cur*2, maxDelay)
	if spread := int64(next) / 5; spread > 0 {
		next += time.Duration(rand.Int64N(2*spread+1) - spread)
	}
	return next
}

// Drain reads every result from s and closes it. Succeeded responses are
// keyed by item id; all other items are returned as failures.
func Drain(s ResultStream) (map[string]*Response, []Result, error) {
	defer s.Close() //nolint:errcheck

	ok := make(map[string]*Response)
	var failed []Result
	for s.Next() {
		r := s.Result()
		if r.Type == ResultSucceeded && r.Response != nil {
			ok[r.ID] = r.Response
			continue
		}
		failed = append(failed, r)
	}
	if err := s.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "anthropic: drain batch results")
	}
	if len(failed) > 0 {
		zap.L().Warn("anthropic: batch items did not succeed",
			zap.Int("succeeded", len(ok)),
			zap.Int("failed", len(failed)),
		)
	}
	return ok, failed, nil
}
