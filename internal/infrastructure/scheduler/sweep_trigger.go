package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Sweep names used in slot keys and logs.
const (
	SweepOverdueInvoices = "overdue_invoices"
	SweepExpiredOffers   = "expired_offers"
)

// Sweeper runs the time-driven document transitions.
type Sweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
	SweepExpiredOffers(ctx context.Context, now time.Time) (int, error)
}

// SweepTriggerConfig holds configuration for the sweep trigger
type SweepTriggerConfig struct {
	// Interval is both the tick period and the slot width
	Interval time.Duration

	// JobTimeout bounds a single sweep run
	JobTimeout time.Duration

	// SlotTTL is how long a claimed slot stays reserved
	SlotTTL time.Duration
}

// DefaultSweepTriggerConfig returns default sweep trigger configuration
func DefaultSweepTriggerConfig() SweepTriggerConfig {
	return SweepTriggerConfig{
		Interval:   15 * time.Minute,
		JobTimeout: 5 * time.Minute,
		SlotTTL:    15 * time.Minute,
	}
}

// Validate checks the configuration
func (c SweepTriggerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	if c.SlotTTL <= 0 {
		return fmt.Errorf("%w: slot ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

// SweepTrigger periodically runs the overdue-invoice and expired-offer sweeps.
// Each interval is a slot; only the instance that claims a slot in the
// shared store runs it, so several replicas can run the trigger at once.
type SweepTrigger struct {
	config  SweepTriggerConfig
	sweeper Sweeper
	slots   shared.IdempotencyStore
	logger  *zap.Logger
	now     func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweepTrigger creates a new sweep trigger
func NewSweepTrigger(
	config SweepTriggerConfig,
	sweeper Sweeper,
	slots shared.IdempotencyStore,
	logger *zap.Logger,
) (*SweepTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if sweeper == nil {
		return nil, ErrSweeperNil
	}
	if slots == nil {
		return nil, ErrSlotStoreNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepTrigger{
		config:  config,
		sweeper: sweeper,
		slots:   slots,
		logger:  logger.Named("sweep_trigger"),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetClock replaces the wall clock, for tests
func (t *SweepTrigger) SetClock(now func() time.Time) {
	t.now = now
}

// Start starts the sweep trigger
func (t *SweepTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Sweep trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("job_timeout", t.config.JobTimeout),
		zap.Duration("slot_ttl", t.config.SlotTTL),
	)

	return nil
}

// Stop stops the sweep trigger and waits for a running sweep to finish
func (t *SweepTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (t *SweepTrigger) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

func (t *SweepTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	// Catch up immediately instead of waiting a full interval after boot.
	t.RunOnce(ctx)

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

// RunOnce runs both sweeps for the current slot. It returns how many sweeps
// actually ran on this instance.
func (t *SweepTrigger) RunOnce(ctx context.Context) int {
	now := t.now()
	ran := 0
	if t.runSweep(ctx, SweepOverdueInvoices, now, t.sweeper.SweepOverdue) {
		ran++
	}
	if t.runSweep(ctx, SweepExpiredOffers, now, t.sweeper.SweepExpiredOffers) {
		ran++
	}
	return ran
}

// SlotKey returns the claim key for a sweep at the given instant
func (t *SweepTrigger) SlotKey(sweep string, now time.Time) string {
	return fmt.Sprintf("sweep:%s:%d", sweep, now.Truncate(t.config.Interval).Unix())
}

func (t *SweepTrigger) runSweep(
	ctx context.Context,
	sweep string,
	now time.Time,
	run func(context.Context, time.Time) (int, error),
) bool {
	if ctx.Err() != nil {
		return false
	}

	key := t.SlotKey(sweep, now)
	claimed, err := t.slots.MarkProcessed(ctx, key, t.config.SlotTTL)
	if err != nil {
		t.logger.Warn("Failed to claim sweep slot",
			zap.String("sweep", sweep),
			zap.String("slot", key),
			zap.Error(err),
		)
		return false
	}
	if !claimed {
		t.logger.Debug("Sweep slot already claimed",
			zap.String("sweep", sweep),
			zap.String("slot", key),
		)
		return false
	}

	jobCtx, cancel := context.WithTimeout(logger.WithOperation(ctx, "scheduled-"+sweep), t.config.JobTimeout)
	defer cancel()

	n, err := run(jobCtx, now)
	if err != nil {
		t.logger.Error("Scheduled sweep failed",
			zap.String("sweep", sweep),
			zap.String("slot", key),
			zap.Error(err),
		)
		// Free the slot so another instance, or the next tick, can retry.
		releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer releaseCancel()
		if relErr := t.slots.Release(releaseCtx, key); relErr != nil {
			t.logger.Warn("Failed to release sweep slot",
				zap.String("slot", key),
				zap.Error(relErr),
			)
		}
		return true
	}

	t.logger.Info("Scheduled sweep completed",
		zap.String("sweep", sweep),
		zap.String("slot", key),
		zap.Int("transitioned", n),
	)
	return true
}
