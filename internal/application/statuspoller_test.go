package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/scangate/internal/application"
	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// countingSleeper records every wait without blocking.
type countingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *countingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func scriptedStatuses(statuses ...model.ScanStatus) func(context.Context, string) (model.ScanStatus, error) {
	var mu sync.Mutex
	i := 0
	return func(context.Context, string) (model.ScanStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		s := statuses[min(i, len(statuses)-1)]
		i++
		return s, nil
	}
}

var testHandle = model.ScanHandle{ID: "scan-1", Name: "nightly", Kind: model.KindDynamic, AppID: "app-1"}

func newTestPoller(svc *mockScanService, probe *mockProbe, reporter application.ProgressReporter, s *countingSleeper) *application.StatusPoller {
	return application.NewStatusPoller(svc, probe, staticSession{server: "https://svc.example/"}, reporter, time.Second,
		application.WithSleeper(s.sleep))
}

func TestPoll_WaitsOnlyBetweenPollableStatuses(t *testing.T) {
	svc := &mockScanService{status: scriptedStatuses(model.StatusInQueue, model.StatusRunning, model.StatusReady)}
	sleeper := &countingSleeper{}
	reporter := &recordingReporter{}

	status, err := newTestPoller(svc, &mockProbe{}, reporter, sleeper).Poll(context.Background(), testHandle)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeper.waits)
	assert.Equal(t, int32(3), svc.statusCalls.Load())
	require.Len(t, reporter.progress, 3)
	assert.Equal(t, model.StatusCompleted, reporter.progress[2].Status)
}

func TestPoll_FailedIsTerminal(t *testing.T) {
	svc := &mockScanService{status: scriptedStatuses(model.StatusRunning, model.StatusFailed)}
	sleeper := &countingSleeper{}

	status, err := newTestPoller(svc, &mockProbe{}, nil, sleeper).Poll(context.Background(), testHandle)

	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, status)
	assert.Len(t, sleeper.waits, 1)
}

func TestPoll_PausedKeepsPolling(t *testing.T) {
	svc := &mockScanService{status: scriptedStatuses(model.StatusPausing, model.StatusPaused, model.StatusRunning, model.StatusCompleted)}
	sleeper := &countingSleeper{}

	status, err := newTestPoller(svc, &mockProbe{}, nil, sleeper).Poll(context.Background(), testHandle)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status)
	assert.Len(t, sleeper.waits, 3)
}

func TestPoll_UnreachableServiceAborts(t *testing.T) {
	svc := &mockScanService{}
	probe := &mockProbe{always: boolPtr(false)}
	sleeper := &countingSleeper{}
	reporter := &recordingReporter{}

	status, err := newTestPoller(svc, probe, reporter, sleeper).Poll(context.Background(), testHandle)

	require.Error(t, err)
	assert.Equal(t, model.StatusUnknown, status)
	assert.ErrorIs(t, err, model.ErrScanAborted)
	assert.NotErrorIs(t, err, model.ErrConnectivity)
	assert.Equal(t, model.ExitScanError, model.ExitCode(err))
	assert.LessOrEqual(t, probe.calls, 10)
	assert.Equal(t, int32(0), svc.statusCalls.Load())
	assert.Len(t, sleeper.waits, 9)

	var scanErr *model.ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, "scan-1", scanErr.ScanID)

	for _, p := range reporter.progress {
		assert.False(t, p.Reachable)
	}
}

func TestPoll_UnknownWaitsAreJittered(t *testing.T) {
	probe := &mockProbe{results: []bool{false, false, false}}
	svc := &mockScanService{status: scriptedStatuses(model.StatusCompleted)}
	sleeper := &countingSleeper{}

	status, err := newTestPoller(svc, probe, nil, sleeper).Poll(context.Background(), testHandle)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status)
	require.Len(t, sleeper.waits, 3)
	for _, w := range sleeper.waits {
		assert.GreaterOrEqual(t, w, 700*time.Millisecond)
		assert.LessOrEqual(t, w, 1300*time.Millisecond)
	}
}

func TestPoll_UnknownCounterResetsOnContact(t *testing.T) {
	// Nine misses, a contact, nine more misses and then completion: the
	// counter never reaches ten.
	var results []bool
	for range 9 {
		results = append(results, false)
	}
	results = append(results, true)
	for range 9 {
		results = append(results, false)
	}
	probe := &mockProbe{results: results}
	svc := &mockScanService{status: scriptedStatuses(model.StatusRunning, model.StatusCompleted)}

	status, err := newTestPoller(svc, probe, nil, &countingSleeper{}).Poll(context.Background(), testHandle)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status)
	assert.Equal(t, 20, probe.calls)
}

func TestPoll_RemoteUnknownCountsTowardsAbort(t *testing.T) {
	svc := &mockScanService{status: scriptedStatuses(model.StatusUnknown)}

	_, err := newTestPoller(svc, &mockProbe{}, nil, &countingSleeper{}).Poll(context.Background(), testHandle)

	assert.ErrorIs(t, err, model.ErrScanAborted)
	assert.Equal(t, int32(10), svc.statusCalls.Load())
}

func TestPoll_StatusErrorAborts(t *testing.T) {
	svc := &mockScanService{
		status: func(context.Context, string) (model.ScanStatus, error) {
			return "", errors.New("HTTP 502")
		},
	}

	status, err := newTestPoller(svc, &mockProbe{}, nil, &countingSleeper{}).Poll(context.Background(), testHandle)

	assert.Equal(t, model.StatusUnknown, status)
	assert.ErrorIs(t, err, model.ErrScanAborted)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestPoll_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := &mockScanService{status: scriptedStatuses(model.StatusRunning)}

	_, err := newTestPoller(svc, &mockProbe{}, nil, &countingSleeper{}).Poll(ctx, testHandle)

	assert.ErrorIs(t, err, model.ErrScanAborted)
}

func TestPoll_ReportsExecutionProgress(t *testing.T) {
	svc := &mockScanService{
		status: scriptedStatuses(model.StatusRunning, model.StatusCompleted),
		details: func(_ context.Context, id string) (*model.ScanDetails, error) {
			return &model.ScanDetails{
				ID:              id,
				LatestExecution: model.ScanExecution{DurationSeconds: 187, Progress: "1200"},
			}, nil
		},
	}
	reporter := &recordingReporter{}

	_, err := newTestPoller(svc, &mockProbe{}, reporter, &countingSleeper{}).Poll(context.Background(), testHandle)

	require.NoError(t, err)
	require.NotEmpty(t, reporter.progress)
	first := reporter.progress[0]
	assert.True(t, first.Reachable)
	assert.Equal(t, 187*time.Second, first.Duration)
	assert.Equal(t, "1200", first.RequestsSent)
}

func TestPoll_DetailFailureDoesNotStopLoop(t *testing.T) {
	svc := &mockScanService{
		status: scriptedStatuses(model.StatusRunning, model.StatusCompleted),
		details: func(context.Context, string) (*model.ScanDetails, error) {
			return nil, errors.New("boom")
		},
	}
	reporter := &recordingReporter{}

	status, err := newTestPoller(svc, &mockProbe{}, reporter, &countingSleeper{}).Poll(context.Background(), testHandle)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status)
	assert.Len(t, reporter.progress, 2)
	assert.Zero(t, reporter.progress[0].Duration)
}
