package oracle

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mdaamer248/Athelete/internal/adapter"
	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/logger"
	"github.com/mdaamer248/Athelete/internal/messaging"
)

// SchedulerConfig holds the submission scheduler's tuning knobs. Both
// rate-limit parameters are tick counts, not durations: the grace period
// suppresses every submission until that many ticks have elapsed since
// start, and the submission interval spaces attempts after that.
type SchedulerConfig struct {
	TickInterval            time.Duration
	GracePeriodTicks        uint64
	SubmissionIntervalTicks uint64
	ViewsPair               string
	VotesPair               string
	TargetClassID           domain.ClassID
	TargetInstanceID        domain.InstanceID
}

// Scheduler is the oracle's periodic submission loop
//
//go:generate mockgen -source=scheduler.go -destination=../mocks/scheduler.go -package=mocks -mock_names=Scheduler=MockScheduler
type Scheduler interface {
	// Start begins the scheduler's main loop
	// This is a blocking call that runs until the context is canceled
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler
	Stop(ctx context.Context) error

	// Name returns the scheduler's name for logging and identification
	Name() string
}

type scheduler struct {
	config    *SchedulerConfig
	quotes    QuoteSource
	publisher messaging.Publisher
	signer    *Signer
	clock     adapter.Clock

	tickCount      uint64
	lastSubmitTick uint64

	running atomic.Bool

	// Guards the channel pair, which is remade on every Start so the
	// scheduler can be restarted after a completed Start/Stop cycle.
	mu        sync.Mutex
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewScheduler creates a new oracle submission scheduler
func NewScheduler(
	config *SchedulerConfig,
	quotes QuoteSource,
	publisher messaging.Publisher,
	signer *Signer,
	clock adapter.Clock,
) Scheduler {
	return &scheduler{
		config:    config,
		quotes:    quotes,
		publisher: publisher,
		signer:    signer,
		clock:     clock,
	}
}

// Name returns the scheduler's name
func (s *scheduler) Name() string {
	return "oracle-scheduler"
}

// Start begins the scheduler's main loop. One submission attempt at most
// per eligible tick; a failed attempt still consumes the slot, so a flaky
// quote endpoint cannot turn the scheduler into a retry hammer.
func (s *scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running.Load() {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.stopChan = make(chan struct{})
	s.stoppedCh = make(chan struct{})
	stopChan, stoppedCh := s.stopChan, s.stoppedCh
	s.running.Store(true)
	s.mu.Unlock()

	defer func() {
		s.running.Store(false)
		close(stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting oracle scheduler",
		zap.Duration("tick_interval", s.config.TickInterval),
		zap.Uint64("grace_period_ticks", s.config.GracePeriodTicks),
		zap.Uint64("submission_interval_ticks", s.config.SubmissionIntervalTicks),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Oracle scheduler stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-stopChan:
			logger.InfoCtx(ctx, "Oracle scheduler stop requested")
			return nil
		case <-s.clock.After(s.config.TickInterval):
			s.tick(ctx)
		}
	}
}

// Stop gracefully stops the scheduler with timeout support
func (s *scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return nil // Already stopped
	}
	s.running.Store(false)
	stopChan, stoppedCh := s.stopChan, s.stoppedCh
	s.mu.Unlock()

	logger.InfoCtx(ctx, "Stopping oracle scheduler")
	close(stopChan)

	select {
	case <-stoppedCh:
		logger.InfoCtx(ctx, "Oracle scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Oracle scheduler stop interrupted by context timeout")
		return ctx.Err()
	}
}

// tick advances the tick counter and fires a submission attempt when the
// rate limit allows one. A tick never fails: submission errors are logged
// and swallowed.
func (s *scheduler) tick(ctx context.Context) {
	s.tickCount++

	if !s.shouldSubmit() {
		return
	}
	s.lastSubmitTick = s.tickCount

	if err := s.submit(ctx); err != nil {
		logger.ErrorCtx(ctx, err, zap.Uint64("tick", s.tickCount))
	}
}

// shouldSubmit applies the two tick-count thresholds
func (s *scheduler) shouldSubmit() bool {
	if s.tickCount <= s.config.GracePeriodTicks {
		return false
	}
	if s.lastSubmitTick == 0 {
		return true
	}
	return s.tickCount-s.lastSubmitTick >= s.config.SubmissionIntervalTicks
}

// submit fetches both pair quotes, signs the attestation, and publishes it
func (s *scheduler) submit(ctx context.Context) error {
	views, err := s.fetchSignal(ctx, s.config.ViewsPair)
	if err != nil {
		return err
	}
	votes, err := s.fetchSignal(ctx, s.config.VotesPair)
	if err != nil {
		return err
	}

	event := &domain.AttestationEvent{
		EventID:    ulid.Make().String(),
		ClassID:    s.config.TargetClassID,
		InstanceID: s.config.TargetInstanceID,
		Views:      views,
		Votes:      votes,
		Timestamp:  s.clock.Now(),
	}
	event.Signature = s.signer.Sign(event)

	if err := s.publisher.PublishAttestation(ctx, event); err != nil {
		return fmt.Errorf("failed to publish attestation %s: %w", event.EventID, err)
	}

	logger.InfoCtx(ctx, "Published attestation",
		zap.String("event_id", event.EventID),
		zap.Uint64("class_id", uint64(event.ClassID)),
		zap.Uint32("instance_id", uint32(event.InstanceID)),
		zap.Uint32("views", views),
		zap.Uint32("votes", votes),
	)
	return nil
}

// fetchSignal turns a pair quote into an attestation signal value.
// Prices are reported in integer cents, saturating at the uint32 ceiling.
func (s *scheduler) fetchSignal(ctx context.Context, pair string) (uint32, error) {
	price, err := s.quotes.PairPrice(ctx, pair)
	if err != nil {
		return 0, err
	}

	cents := price.Mul(decimal.NewFromInt(100)).IntPart()
	if cents < 0 {
		return 0, fmt.Errorf("negative quote price for %s: %s", pair, price)
	}
	if cents > math.MaxUint32 {
		return math.MaxUint32, nil
	}
	return uint32(cents), nil
}
