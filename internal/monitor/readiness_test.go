package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	status string
	reason string
	err    error
}

// scriptedFetcher replays steps in order and repeats the last one forever
type scriptedFetcher struct {
	steps []step
	calls int
}

func (f *scriptedFetcher) EndpointStatus(_ context.Context, _ string) (string, string, error) {
	s := f.steps[min(f.calls, len(f.steps)-1)]
	f.calls++
	return s.status, s.reason, s.err
}

func statuses(values ...Status) *scriptedFetcher {
	f := &scriptedFetcher{}
	for _, v := range values {
		f.steps = append(f.steps, step{status: string(v)})
	}
	return f
}

// stepClock advances instantly whenever a wait is requested
type stepClock struct {
	now   time.Time
	waits []time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type apiError struct {
	terminal bool
}

func (e apiError) Error() string  { return fmt.Sprintf("api error (terminal=%v)", e.terminal) }
func (e apiError) Terminal() bool { return e.terminal }

func await(t *testing.T, f StatusFetcher, clk *stepClock) (Outcome, error) {
	t.Helper()
	r := NewReadiness(f, clk)
	return r.AwaitReady(context.Background(), "recs-endpoint", clk.Now().Add(DefaultTimeout))
}

func TestAwaitReadySucceeds(t *testing.T) {
	f := statuses(StatusCreating, StatusUpdating, StatusInService)
	outcome, err := await(t, f, newStepClock())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, 3, f.calls)
}

func TestAwaitReadyFails(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		{status: "Creating"},
		{status: "Failed", reason: "image not found"},
	}}
	outcome, err := await(t, f, newStepClock())

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, 2, f.calls)
}

func TestAwaitReadyTimesOut(t *testing.T) {
	clk := newStepClock()
	start := clk.Now()
	outcome, err := await(t, statuses(StatusCreating), clk)

	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, outcome)
	assert.False(t, clk.Now().Before(start.Add(DefaultTimeout)))
}

func TestAwaitReadyRetriesTransientError(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		{status: "Creating"},
		{err: apiError{terminal: false}},
		{status: "InService"},
	}}
	clk := newStepClock()
	outcome, err := await(t, f, clk)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, 3, f.calls)
	assert.Len(t, clk.waits, 2)
}

func TestAwaitReadyStopsOnTerminalError(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		{status: "Creating"},
		{err: fmt.Errorf("describe: %w", apiError{terminal: true})},
		{status: "InService"},
	}}
	outcome, err := await(t, f, newStepClock())

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, 2, f.calls)
	assert.True(t, IsTerminal(err))
}

func TestAwaitReadyBoundsCallVolume(t *testing.T) {
	f := statuses(StatusUpdating)
	outcome, err := await(t, f, newStepClock())

	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, outcome)
	assert.LessOrEqual(t, f.calls, 180)
}

func TestAwaitReadyWaitsBetweenPolls(t *testing.T) {
	clk := newStepClock()
	start := clk.Now()
	deadline := start.Add(DefaultTimeout)

	r := NewReadiness(statuses(StatusCreating, StatusCreating, StatusInService), clk)
	outcome, err := r.AwaitReady(context.Background(), "recs-endpoint", deadline)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, clk.waits)

	elapsed := clk.Now().Sub(start)
	assert.GreaterOrEqual(t, elapsed, 10*time.Second)
	assert.True(t, clk.Now().Before(deadline))
}

func TestAwaitReadyKeepsPollingNonTerminalStatuses(t *testing.T) {
	tests := []Status{
		StatusDeleting,
		StatusOutOfService,
		StatusSystemUpdating,
		Status("Provisioning"),
	}

	for _, s := range tests {
		t.Run(string(s), func(t *testing.T) {
			clk := newStepClock()
			outcome, err := await(t, statuses(s, StatusInService), clk)

			require.NoError(t, err)
			assert.Equal(t, OutcomeSuccess, outcome)
			assert.Equal(t, []time.Duration{DefaultPollInterval}, clk.waits)
		})
	}
}

func TestAwaitReadyHonoursInterval(t *testing.T) {
	clk := newStepClock()
	r := NewReadiness(statuses(StatusCreating, StatusInService), clk, WithInterval(30*time.Second))

	_, err := r.AwaitReady(context.Background(), "recs-endpoint", clk.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second}, clk.waits)
}

func TestAwaitReadyPastDeadline(t *testing.T) {
	clk := newStepClock()
	f := statuses(StatusInService)
	r := NewReadiness(f, clk)

	outcome, err := r.AwaitReady(context.Background(), "recs-endpoint", clk.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, outcome)
	assert.Zero(t, f.calls)
}

func TestAwaitReadyCancelled(t *testing.T) {
	mock := clock.NewMock()
	r := NewReadiness(statuses(StatusCreating), mock)

	ctx, cancel := context.WithCancel(context.Background())
	type ret struct {
		outcome Outcome
		err     error
	}
	done := make(chan ret, 1)
	go func() {
		o, err := r.AwaitReady(ctx, "recs-endpoint", mock.Now().Add(DefaultTimeout))
		done <- ret{o, err}
	}()

	cancel()

	select {
	case got := <-done:
		assert.Equal(t, OutcomeTimedOut, got.outcome)
		assert.True(t, errors.Is(got.err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("AwaitReady did not return after cancellation")
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(nil))
	assert.False(t, IsTerminal(errors.New("boom")))
	assert.False(t, IsTerminal(apiError{terminal: false}))
	assert.True(t, IsTerminal(fmt.Errorf("wrapped: %w", apiError{terminal: true})))
}

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, CategoryReady, StatusInService.Category())
	assert.Equal(t, CategoryFailed, StatusFailed.Category())
	assert.Equal(t, CategoryPending, StatusCreating.Category())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusDeleting.Terminal())
}
