package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shipsync/internal/core/config"
	"shipsync/internal/core/logger"
	"shipsync/internal/features/shipments/ports"
	"shipsync/internal/features/shipments/service"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Daemon is the polling loop that keeps stale orders converged with the
// provider. It serializes its per-order network calls (a fixed sleep
// between orders keeps the provider rate limiter happy) and checks for
// shutdown between every order, not just between cycles.
type Daemon struct {
	cfg        config.SyncConfig
	store      ports.OrderStore
	fetcher    ports.TrackingFetcher
	reconciler *service.Reconciler
	notifier   ports.TransitionNotifier
	closing    *atomic.Bool
	log        *zap.Logger

	// retryBase is the first backoff interval; shortened in tests.
	retryBase time.Duration
}

// New creates a Daemon.
func New(cfg config.SyncConfig, store ports.OrderStore, fetcher ports.TrackingFetcher, notifier ports.TransitionNotifier) *Daemon {
	return &Daemon{
		cfg:        cfg,
		store:      store,
		fetcher:    fetcher,
		reconciler: service.NewReconciler(),
		notifier:   notifier,
		closing:    atomic.NewBool(false),
		log:        logger.Get(),
		retryBase:  500 * time.Millisecond,
	}
}

// Run executes polling cycles until the context is cancelled or Stop is
// called. Individual cycle failures are logged and survived; nothing in
// this loop is fatal.
func (d *Daemon) Run(ctx context.Context) {
	d.log.Info("Sync daemon started",
		zap.Duration("poll_interval", d.cfg.PollInterval),
		zap.Int("batch_size", d.cfg.BatchSize),
		zap.Duration("lookback", d.cfg.Lookback),
	)

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Sync daemon stopped", zap.String("reason", "context cancelled"))
			return
		case <-ticker.C:
			if d.stopping(ctx) {
				d.log.Info("Sync daemon stopped", zap.String("reason", "stop requested"))
				return
			}
			d.runCycle(ctx)
		}
	}
}

// Stop requests a prompt shutdown; observed between orders, so at most one
// in-flight fetch completes after the call (its result is still applied).
func (d *Daemon) Stop() {
	d.closing.Store(true)
}

func (d *Daemon) stopping(ctx context.Context) bool {
	return ctx.Err() != nil || d.closing.Load()
}

// runCycle selects one bounded batch of candidates and syncs them in
// sequence. One order's failure never aborts the batch.
func (d *Daemon) runCycle(ctx context.Context) {
	candidates, err := d.store.SelectSyncCandidates(ctx, d.cfg.Lookback, d.cfg.BatchSize)
	if err != nil {
		d.log.Error("Failed to select sync candidates", zap.Error(err))
		return
	}
	if len(candidates) == 0 {
		d.log.Debug("Sync cycle: nothing to do")
		return
	}

	d.log.Info("Sync cycle started", zap.Int("candidates", len(candidates)))

	for i, rec := range candidates {
		if d.stopping(ctx) {
			d.log.Info("Sync cycle interrupted by shutdown",
				zap.Int("processed", i),
				zap.Int("remaining", len(candidates)-i),
			)
			return
		}

		d.syncOrder(ctx, rec)

		if i < len(candidates)-1 {
			sleepCtx(ctx, d.cfg.InterRequestSleep)
		}
	}

	d.log.Info("Sync cycle finished", zap.Int("candidates", len(candidates)))
}

// syncOrder fetches tracking for one order and reconciles the result.
// last_synced_at is refreshed even when nothing changed, so a converged
// order waits out its normal interval instead of being re-selected every
// cycle.
func (d *Daemon) syncOrder(ctx context.Context, rec ports.Record) {
	raw, identifier, err := d.fetchWithFallback(ctx, rec)
	if err != nil {
		class := ports.FailureTransient
		var fe *ports.FetchError
		if errors.As(err, &fe) {
			class = fe.Class
		}
		d.log.Warn("Order sync failed",
			zap.String("order_key", rec.OrderKey),
			zap.String("identifier", identifier),
			zap.String("failure_class", class.String()),
			zap.Error(err),
		)
		return
	}

	payload, err := service.ParsePayload(raw)
	if err != nil {
		// Unparseable responses reconcile as a no-op; the timestamp still
		// moves forward so the order is not hammered every cycle.
		d.log.Warn("Provider returned unparseable payload",
			zap.String("order_key", rec.OrderKey),
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		payload = nil
	}

	res := d.reconciler.Reconcile(rec.OrderKey, rec.State, payload, time.Now().UTC())
	if err := d.persist(ctx, rec, payload, res); err != nil {
		d.log.Warn("Failed to persist sync result",
			zap.String("order_key", rec.OrderKey),
			zap.Error(err),
		)
		return
	}

	if res.Changed {
		d.log.Info("Order state updated",
			zap.String("order_key", rec.OrderKey),
			zap.String("status", res.State.Status.String()),
			zap.Int("events", len(res.State.Events)),
		)
	}
}

// persist applies the result with one conflict retry, then defers to the
// next cycle.
func (d *Daemon) persist(ctx context.Context, rec ports.Record, payload *service.TrackingPayload, res service.Result) error {
	err := d.store.CompareAndSwap(ctx, rec.OrderKey, rec.Version, res.State)
	if errors.Is(err, ports.ErrVersionConflict) {
		fresh, getErr := d.store.Get(ctx, rec.OrderKey)
		if getErr != nil {
			return getErr
		}
		res = d.reconciler.Reconcile(fresh.OrderKey, fresh.State, payload, time.Now().UTC())
		err = d.store.CompareAndSwap(ctx, fresh.OrderKey, fresh.Version, res.State)
	}
	if err != nil {
		return err
	}

	if res.StatusChanged && d.notifier != nil {
		go d.notifier.StatusChanged(context.WithoutCancel(ctx), rec.OrderKey, res.From, res.To)
	}
	return nil
}

// fetchWithFallback tries each identifier the record has, most specific
// first: shipment id, then provider order id, then AWB. The chain
// short-circuits on the first successful fetch; each call carries its own
// retry policy.
func (d *Daemon) fetchWithFallback(ctx context.Context, rec ports.Record) ([]byte, string, error) {
	type lookup struct {
		id    string
		fetch func(context.Context, string) ([]byte, error)
	}

	chain := []lookup{
		{rec.State.ShipmentID, d.fetcher.FetchByShipmentID},
		{rec.OrderKey, d.fetcher.FetchByOrderID},
		{rec.State.AWB, d.fetcher.FetchByAWB},
	}

	var lastErr error
	lastID := ""
	for _, l := range chain {
		if l.id == "" {
			continue
		}
		raw, err := d.fetchWithRetry(ctx, l.fetch, l.id)
		if err == nil {
			return raw, l.id, nil
		}
		lastErr = err
		lastID = l.id
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("order has no usable identifier")
	}
	return nil, lastID, lastErr
}

// fetchWithRetry wraps one provider call in the retry policy: exponential
// backoff with 20% jitter, bounded attempts, and no retries on permanent
// failures.
func (d *Daemon) fetchWithRetry(ctx context.Context, fetch func(context.Context, string) ([]byte, error), id string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.retryBase
	bo.RandomizationFactor = 0.2
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	maxRetries := uint64(0)
	if d.cfg.MaxRetryAttempts > 1 {
		maxRetries = uint64(d.cfg.MaxRetryAttempts - 1)
	}

	var raw []byte
	op := func() error {
		b, err := fetch(ctx, id)
		if err != nil {
			var fe *ports.FetchError
			if errors.As(err, &fe) && fe.Class == ports.FailurePermanent {
				return backoff.Permanent(err)
			}
			return err
		}
		raw = b
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
