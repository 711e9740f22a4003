package oracle

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdaamer248/Athelete/internal/domain"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeClock struct {
	now   time.Time
	after chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:   time.Unix(1700000000, 0),
		after: make(chan time.Time, 1),
	}
}

func (c *fakeClock) Now() time.Time                         { return c.now }
func (c *fakeClock) Since(t time.Time) time.Duration        { return c.now.Sub(t) }
func (c *fakeClock) Sleep(d time.Duration)                  {}
func (c *fakeClock) After(d time.Duration) <-chan time.Time { return c.after }

type fakeQuotes struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  int
}

func (q *fakeQuotes) PairPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	q.calls++
	if err, ok := q.errs[pair]; ok {
		return decimal.Zero, err
	}
	price, ok := q.prices[pair]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown pair %s", pair)
	}
	return price, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*domain.AttestationEvent
	err    error
}

func (p *fakePublisher) PublishAttestation(ctx context.Context, event *domain.AttestationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() {}

func (p *fakePublisher) published() []*domain.AttestationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.AttestationEvent(nil), p.events...)
}

// =============================================================================
// Helpers
// =============================================================================

func newTestScheduler(cfg *SchedulerConfig, quotes QuoteSource, pub *fakePublisher) *scheduler {
	return NewScheduler(cfg, quotes, pub, NewSigner("test-secret"), newFakeClock()).(*scheduler)
}

func defaultConfig() *SchedulerConfig {
	return &SchedulerConfig{
		TickInterval:            time.Second,
		GracePeriodTicks:        3,
		SubmissionIntervalTicks: 2,
		ViewsPair:               "BTC-USD",
		VotesPair:               "ETH-USD",
		TargetClassID:           1,
		TargetInstanceID:        0,
	}
}

func defaultQuotes() *fakeQuotes {
	return &fakeQuotes{prices: map[string]decimal.Decimal{
		"BTC-USD": decimal.RequireFromString("105.25"),
		"ETH-USD": decimal.RequireFromString("42.00"),
	}}
}

// =============================================================================
// Tick rate limiting
// =============================================================================

func TestScheduler_GracePeriodSuppressesSubmission(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestScheduler(defaultConfig(), defaultQuotes(), pub)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.tick(ctx)
	}
	assert.Empty(t, pub.events)

	// First tick past the grace period submits
	s.tick(ctx)
	assert.Len(t, pub.events, 1)
}

func TestScheduler_SubmissionInterval(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestScheduler(defaultConfig(), defaultQuotes(), pub)
	ctx := context.Background()

	// grace=3, interval=2: submissions land on ticks 4, 6, 8
	for i := 0; i < 8; i++ {
		s.tick(ctx)
	}
	assert.Len(t, pub.events, 3)
}

func TestScheduler_FailedAttemptConsumesSlot(t *testing.T) {
	pub := &fakePublisher{err: fmt.Errorf("nats down")}
	s := newTestScheduler(defaultConfig(), defaultQuotes(), pub)
	ctx := context.Background()

	// Tick 4 attempts and fails
	for i := 0; i < 4; i++ {
		s.tick(ctx)
	}
	assert.Empty(t, pub.events)
	assert.Equal(t, uint64(4), s.lastSubmitTick)

	// Tick 5 is inside the interval even though the last attempt failed
	pub.err = nil
	s.tick(ctx)
	assert.Empty(t, pub.events)

	// Tick 6 is the next eligible slot
	s.tick(ctx)
	assert.Len(t, pub.events, 1)
}

func TestScheduler_QuoteErrorIsSwallowed(t *testing.T) {
	quotes := defaultQuotes()
	quotes.errs = map[string]error{"BTC-USD": fmt.Errorf("upstream 500")}
	pub := &fakePublisher{}
	s := newTestScheduler(defaultConfig(), quotes, pub)
	ctx := context.Background()

	// The tick must not panic or halt the loop
	for i := 0; i < 6; i++ {
		s.tick(ctx)
	}
	assert.Empty(t, pub.events)
}

// =============================================================================
// Event construction
// =============================================================================

func TestScheduler_EventContents(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestScheduler(defaultConfig(), defaultQuotes(), pub)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		s.tick(ctx)
	}
	require.Len(t, pub.events, 1)
	event := pub.events[0]

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, domain.ClassID(1), event.ClassID)
	assert.Equal(t, domain.InstanceID(0), event.InstanceID)
	// Prices in integer cents
	assert.Equal(t, uint32(10525), event.Views)
	assert.Equal(t, uint32(4200), event.Votes)

	// The published event carries a signature the worker can verify
	require.NoError(t, NewSigner("test-secret").Verify(event))
}

func TestScheduler_EventIDsAreUnique(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestScheduler(defaultConfig(), defaultQuotes(), pub)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.tick(ctx)
	}
	require.Len(t, pub.events, 4)

	seen := map[string]bool{}
	for _, event := range pub.events {
		assert.False(t, seen[event.EventID])
		seen[event.EventID] = true
	}
}

// =============================================================================
// Signal conversion
// =============================================================================

func TestFetchSignal_Cents(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]decimal.Decimal{
		"PAIR": decimal.RequireFromString("1.999"),
	}}
	s := newTestScheduler(defaultConfig(), quotes, &fakePublisher{})

	// Fractional cents truncate
	v, err := s.fetchSignal(context.Background(), "PAIR")
	require.NoError(t, err)
	assert.Equal(t, uint32(199), v)
}

func TestFetchSignal_SaturatesAtCeiling(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]decimal.Decimal{
		"PAIR": decimal.NewFromInt(1 << 40),
	}}
	s := newTestScheduler(defaultConfig(), quotes, &fakePublisher{})

	v, err := s.fetchSignal(context.Background(), "PAIR")
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), v)
}

func TestFetchSignal_NegativePriceRejected(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]decimal.Decimal{
		"PAIR": decimal.NewFromInt(-1),
	}}
	s := newTestScheduler(defaultConfig(), quotes, &fakePublisher{})

	_, err := s.fetchSignal(context.Background(), "PAIR")
	require.Error(t, err)
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestScheduler_StartStop(t *testing.T) {
	clock := newFakeClock()
	pub := &fakePublisher{}
	s := NewScheduler(defaultConfig(), defaultQuotes(), pub, NewSigner("test-secret"), clock).(*scheduler)

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	// Drive ticks through the fake clock until the grace period has
	// passed and the first submission lands
	for i := 0; i < 4; i++ {
		clock.after <- clock.now
	}
	require.Eventually(t, func() bool {
		return len(pub.published()) > 0
	}, 2*time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, <-done)
}

func TestScheduler_Restart(t *testing.T) {
	clock := newFakeClock()
	pub := &fakePublisher{}
	s := NewScheduler(defaultConfig(), defaultQuotes(), pub, NewSigner("test-secret"), clock).(*scheduler)
	ctx := context.Background()

	// The scheduler survives a full Start/Stop cycle and can run again
	for round := 0; round < 2; round++ {
		done := make(chan error, 1)
		go func() {
			done <- s.Start(ctx)
		}()

		require.Eventually(t, func() bool {
			return s.running.Load()
		}, time.Second, 5*time.Millisecond)

		stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		require.NoError(t, s.Stop(stopCtx))
		require.NoError(t, <-done)
		cancel()
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	s := newTestScheduler(defaultConfig(), defaultQuotes(), &fakePublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	// Wait for the first Start to take the running flag
	require.Eventually(t, func() bool {
		return s.running.Load()
	}, time.Second, 5*time.Millisecond)

	require.Error(t, s.Start(ctx))

	cancel()
	require.NoError(t, <-done)
}
