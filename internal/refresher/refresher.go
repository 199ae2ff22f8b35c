package refresher

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"topomap/internal/metrics"
	"topomap/internal/topology"
)

// Source produces the current device list. db.DeviceSource, snmp.Source and
// devicefile.Source satisfy it.
type Source interface {
	Name() string
	ListDevices(ctx context.Context) ([]topology.DeviceRecord, error)
}

// Sink receives device lists that differ from the last one published.
type Sink interface {
	PublishDevices(devices []topology.DeviceRecord)
}

const (
	OutcomePublished = "published"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

const maxBackoff = 5 * time.Minute

type Options struct {
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type Refresher struct {
	log      zerolog.Logger
	src      Source
	sink     Sink
	interval time.Duration
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	metrics  *metrics.Metrics
	trigger  chan struct{}

	published   bool
	fingerprint uint64
}

func New(log zerolog.Logger, src Source, sink Sink, opts Options, m *metrics.Metrics) *Refresher {
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	openTimeout := opts.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 2 * interval
	}

	r := &Refresher{
		log:      log,
		src:      src,
		sink:     sink,
		interval: interval,
		timeout:  timeout,
		metrics:  m,
		trigger:  make(chan struct{}, 1),
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "device-source-" + src.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("device source circuit breaker state changed")
		},
	})
	return r
}

// Trigger requests an immediate refresh. Calls made while one is pending are coalesced.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes once immediately, then on every interval or Trigger until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	if r == nil || r.src == nil || r.sink == nil {
		return
	}

	var consecutiveFailures int
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-r.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if _, err := r.RunOnce(ctx); err != nil {
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}
		timer.Reset(backoffDuration(r.interval, consecutiveFailures))
	}
}

// RunOnce fetches the device list and publishes it if it changed.
func (r *Refresher) RunOnce(ctx context.Context) (string, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.src.ListDevices(runCtx)
	})
	if err != nil {
		outcome := OutcomeFailed
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = OutcomeRejected
		}
		r.metrics.ObserveRefresh(r.src.Name(), outcome, time.Since(start))
		r.log.Error().Err(err).Str("source", r.src.Name()).Str("outcome", outcome).Msg("device refresh failed")
		return outcome, err
	}

	devices := topology.NormalizeDevices(res.([]topology.DeviceRecord))
	fp := Fingerprint(devices)
	if r.published && fp == r.fingerprint {
		r.metrics.ObserveRefresh(r.src.Name(), OutcomeUnchanged, time.Since(start))
		r.log.Debug().Str("source", r.src.Name()).Int("devices", len(devices)).Msg("device list unchanged")
		return OutcomeUnchanged, nil
	}

	r.sink.PublishDevices(devices)
	r.published = true
	r.fingerprint = fp
	r.metrics.ObserveRefresh(r.src.Name(), OutcomePublished, time.Since(start))
	r.log.Info().Str("source", r.src.Name()).Int("devices", len(devices)).Msg("device list published")
	return OutcomePublished, nil
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 30 * time.Second
	}
	if failures <= 0 {
		return base
	}

	if failures > 6 {
		failures = 6
	}
	d := base * time.Duration(1<<failures)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
