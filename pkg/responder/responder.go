// Package responder runs an oracle that answers pending randomness requests.
package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

// Oracle is the part of an oracle session the responder drives.
// *solrand.OracleSession satisfies it.
type Oracle interface {
	PublicKey() solana.PublicKey
	PendingRequests(ctx context.Context) ([]solrand.RequestAccount, error)
	PublishRandom(ctx context.Context, requester solana.PublicKey, random *[solrand.RandomSize]byte) (solana.Signature, error)
}

var _ Oracle = (*solrand.OracleSession)(nil)

// Responder polls for requests addressed to its oracle and publishes a random
// value for each. Failed publishes are not retried; a request that is still
// pending shows up again on the next poll.
type Responder struct {
	oracle   Oracle
	interval time.Duration
	workers  int
	random   io.Reader
	randomMu sync.Mutex
	registry *prometheus.Registry
	logger   zerolog.Logger
	metrics  *metrics
}

// Option configures a Responder.
type Option func(*Responder)

// WithInterval sets the delay between polls. Non-positive values are ignored.
func WithInterval(interval time.Duration) Option {
	return func(r *Responder) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithWorkers sets how many requests are published concurrently.
func WithWorkers(workers int) Option {
	return func(r *Responder) {
		if workers > 0 {
			r.workers = workers
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Responder) { r.logger = logger }
}

// WithRegistry registers the responder metrics on reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Responder) { r.registry = reg }
}

// WithRandomSource makes the responder draw random values from rd. By default
// the oracle session draws them. Workers take turns reading rd, so it need not
// be safe for concurrent use.
func WithRandomSource(rd io.Reader) Option {
	return func(r *Responder) { r.random = rd }
}

// New creates a responder for oracle.
func New(oracle Oracle, opts ...Option) *Responder {
	r := &Responder{
		oracle:   oracle,
		interval: 2 * time.Second,
		workers:  4,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}
	r.metrics = newMetrics(r.registry)
	r.logger = r.logger.With().Str("component", "responder").Stringer("oracle", oracle.PublicKey()).Logger()
	return r
}

// Registry returns the registry holding the responder metrics.
func (r *Responder) Registry() *prometheus.Registry { return r.registry }

// Run polls until ctx is cancelled. Poll errors are logged and do not stop
// the loop.
func (r *Responder) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Int("workers", r.workers).Msg("responder started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.PollOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("poll failed")
		}

		select {
		case <-ctx.Done():
			r.logger.Info().Msg("responder stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce publishes a random value for every pending request and returns
// how many were published.
func (r *Responder) PollOnce(ctx context.Context) (int, error) {
	r.metrics.polls.Inc()

	pending, err := r.oracle.PendingRequests(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending requests: %w", err)
	}
	r.metrics.pending.Set(float64(len(pending)))
	if len(pending) == 0 {
		return 0, nil
	}
	r.logger.Debug().Int("pending", len(pending)).Msg("pending requests")

	workers := r.workers
	if workers > len(pending) {
		workers = len(pending)
	}

	jobs := make(chan solrand.RequestAccount)
	var (
		wg        sync.WaitGroup
		published atomic.Int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobs {
				if r.publish(ctx, req) {
					published.Add(1)
				}
			}
		}()
	}

feed:
	for _, req := range pending {
		select {
		case jobs <- req:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return int(published.Load()), ctx.Err()
}

func (r *Responder) publish(ctx context.Context, req solrand.RequestAccount) bool {
	logger := r.logger.With().Stringer("requester", req.Address).Uint64("count", req.Count).Logger()

	var random *[solrand.RandomSize]byte
	if r.random != nil {
		random = new([solrand.RandomSize]byte)
		if err := r.readRandom(random[:]); err != nil {
			r.metrics.published.WithLabelValues(resultError).Inc()
			logger.Error().Err(err).Msg("read random value")
			return false
		}
	}

	start := time.Now()
	sig, err := r.oracle.PublishRandom(ctx, req.Address, random)
	r.metrics.duration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		r.metrics.published.WithLabelValues(resultOK).Inc()
		logger.Info().Stringer("signature", sig).Msg("request fulfilled")
		return true
	case errors.Is(err, solrand.ErrAlreadyCompleted):
		r.metrics.published.WithLabelValues(resultAlreadyCompleted).Inc()
		logger.Warn().Msg("request already completed")
	default:
		r.metrics.published.WithLabelValues(resultError).Inc()
		logger.Error().Err(err).Msg("publish failed")
	}
	return false
}

func (r *Responder) readRandom(buf []byte) error {
	r.randomMu.Lock()
	defer r.randomMu.Unlock()
	_, err := io.ReadFull(r.random, buf)
	return err
}
