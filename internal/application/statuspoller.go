package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// Polling defaults.
const (
	DefaultPollInterval = 30 * time.Second
	// maxConsecutiveUnknown at the default interval is five minutes without contact.
	maxConsecutiveUnknown = 10
	unknownJitter         = 0.3
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusPoller drives a submitted scan's status to a terminal state.
type StatusPoller struct {
	svc        driven.ScanService
	probe      driven.ConnectivityProbe
	session    driven.Session
	reporter   ProgressReporter
	interval   time.Duration
	maxUnknown int
	sleep      Sleeper
}

// PollerOption customizes a StatusPoller.
type PollerOption func(*StatusPoller)

// WithSleeper replaces the wait between iterations.
func WithSleeper(s Sleeper) PollerOption {
	return func(p *StatusPoller) { p.sleep = s }
}

// NewStatusPoller creates a StatusPoller. A non-positive interval uses DefaultPollInterval.
func NewStatusPoller(
	svc driven.ScanService,
	probe driven.ConnectivityProbe,
	session driven.Session,
	reporter ProgressReporter,
	interval time.Duration,
	opts ...PollerOption,
) *StatusPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &StatusPoller{
		svc:        svc,
		probe:      probe,
		session:    session,
		reporter:   reporter,
		interval:   interval,
		maxUnknown: maxConsecutiveUnknown,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll runs the status loop for h, which is assumed freshly submitted
// (InQueue). Each iteration probes the service, fetches the status when
// reachable, reports progress and waits unless the status is terminal.
// Unknown iterations wait a jittered interval. Reaching the unknown budget,
// a status fetch error or cancellation returns a *model.ScanError wrapping
// model.ErrScanAborted.
func (p *StatusPoller) Poll(ctx context.Context, h model.ScanHandle) (model.ScanStatus, error) {
	status := model.StatusInQueue
	unknowns := 0
	jitter := p.unknownBackOff()

	for status.IsPollable() && unknowns < p.maxUnknown {
		reachable := p.probe.CheckReachable(ctx, p.session.Server(), p.session.AcceptInvalidCerts())
		if reachable {
			s, err := p.svc.GetScanStatus(ctx, h.ID)
			if err != nil {
				return model.StatusUnknown, model.AbortScan(h, fmt.Errorf("fetching scan status: %w", err))
			}
			status = s.Canonical()
		} else {
			status = model.StatusUnknown
		}

		if status == model.StatusUnknown {
			unknowns++
		} else {
			unknowns = 0
		}

		p.emit(ctx, h, status, reachable)

		if !status.IsPollable() || unknowns >= p.maxUnknown {
			break
		}

		wait := p.interval
		if status == model.StatusUnknown {
			wait = jitter.NextBackOff()
		} else {
			jitter.Reset()
		}
		if err := p.sleep(ctx, wait); err != nil {
			return status, model.AbortScan(h, err)
		}
	}

	if unknowns >= p.maxUnknown {
		slog.Error("scan service unreachable, aborting",
			"scan_id", h.ID,
			"scan_name", h.Name,
			"consecutive_unknown", unknowns,
		)
		return model.StatusUnknown, model.AbortScan(h, fmt.Errorf("no status after %d consecutive attempts", unknowns))
	}

	slog.Info("scan finished", "scan_id", h.ID, "scan_name", h.Name, "status", status)
	return status, nil
}

// unknownBackOff yields waits spread around the poll interval so that many
// pipelines losing connectivity at once do not retry in lockstep.
func (p *StatusPoller) unknownBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.interval
	b.MaxInterval = p.interval
	b.Multiplier = 1
	b.RandomizationFactor = unknownJitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// emit reports progress. Detail lookups only run for statuses that have an
// execution to describe, and their failures never affect the loop.
func (p *StatusPoller) emit(ctx context.Context, h model.ScanHandle, status model.ScanStatus, reachable bool) {
	if p.reporter == nil {
		return
	}

	progress := model.ScanProgress{Status: status, Reachable: reachable}
	if reachable && status != model.StatusFailed && status != model.StatusUnknown {
		d, err := p.svc.GetScanDetails(ctx, h.ID)
		if err != nil {
			slog.Debug("progress details unavailable", "scan_id", h.ID, "error", err)
		} else {
			progress.Duration = time.Duration(d.LatestExecution.DurationSeconds) * time.Second
			progress.RequestsSent = d.LatestExecution.Progress
		}
	}
	p.reporter.Report(h, progress)
}
