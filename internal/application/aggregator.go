package application

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// ResultAggregator turns a terminal status into a results snapshot.
type ResultAggregator struct {
	svc     driven.ScanService
	session driven.Session
}

// NewResultAggregator creates a ResultAggregator.
func NewResultAggregator(svc driven.ScanService, session driven.Session) *ResultAggregator {
	return &ResultAggregator{svc: svc, session: session}
}

// Finalize builds the snapshot for a terminal status.
//   - Failed returns a *model.ScanError wrapping model.ErrScanFailed.
//   - Unknown returns (nil, nil) after logging; the caller decides what that means.
//   - Completed returns the snapshot.
func (a *ResultAggregator) Finalize(h model.ScanHandle, status model.ScanStatus, counts model.FindingCounts) (*model.ScanResults, error) {
	switch status.Canonical() {
	case model.StatusFailed:
		slog.Error("scan failed", "scan_id", h.ID, "scan_name", h.Name)
		return nil, model.NewScanError(h, model.ErrScanFailed)
	case model.StatusCompleted:
		return &model.ScanResults{
			ScanID:    h.ID,
			Name:      h.Name,
			AppID:     h.AppID,
			ScanType:  h.ScanType,
			Kind:      h.Kind,
			Status:    model.StatusCompleted,
			Counts:    counts,
			ReportURL: model.ReportURL(a.session.Server(), h.AppID, h.ID),
		}, nil
	default:
		slog.Error("scan ended in an unexpected state",
			"scan_id", h.ID,
			"scan_name", h.Name,
			"status", status,
			"error", model.ErrUnexpectedState,
		)
		return nil, nil
	}
}

// Collect fetches finding counts and scan details concurrently for a
// Completed scan and finalizes the snapshot. Details are optional: a failed
// lookup is logged and returned as nil. Other statuses are finalized without
// any remote call.
func (a *ResultAggregator) Collect(ctx context.Context, h model.ScanHandle, status model.ScanStatus) (*model.ScanResults, *model.ScanDetails, error) {
	if status.Canonical() != model.StatusCompleted {
		results, err := a.Finalize(h, status, model.FindingCounts{})
		return results, nil, err
	}

	var (
		counts  model.FindingCounts
		details *model.ScanDetails
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := a.svc.GetFindingCounts(gctx, h.ID)
		if err != nil {
			return fmt.Errorf("fetching finding counts: %w", err)
		}
		counts = c
		return nil
	})
	g.Go(func() error {
		d, err := a.svc.GetScanDetails(gctx, h.ID)
		if err != nil {
			slog.Warn("scan details unavailable for summary", "scan_id", h.ID, "error", err)
			return nil
		}
		details = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, model.AbortScan(h, err)
	}

	results, err := a.Finalize(h, status, counts)
	return results, details, err
}
