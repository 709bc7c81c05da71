package application

import (
	"log/slog"

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// ProgressReporter receives one progress snapshot per poll iteration.
// Implementations are presentation-only.
type ProgressReporter interface {
	Report(h model.ScanHandle, p model.ScanProgress)
}

// LogProgressReporter writes progress snapshots as structured log lines.
type LogProgressReporter struct {
	logger *slog.Logger
}

// NewLogProgressReporter creates a reporter that logs through logger, or
// slog.Default() when logger is nil.
func NewLogProgressReporter(logger *slog.Logger) *LogProgressReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressReporter{logger: logger}
}

// Report logs p. Unreachable iterations are logged at warn level.
func (r *LogProgressReporter) Report(h model.ScanHandle, p model.ScanProgress) {
	if !p.Reachable {
		r.logger.Warn("unable to reach the scan service, check network settings",
			"scan_id", h.ID,
			"scan_name", h.Name,
			"status", p.Status,
		)
		return
	}

	duration, requests := "-", "-"
	if p.Duration > 0 || p.RequestsSent != "" {
		duration = model.FormatDuration(p.Duration)
		requests = p.RequestsSent
	}
	r.logger.Info("scan status",
		"scan_id", h.ID,
		"scan_name", h.Name,
		"status", p.Status,
		"duration", duration,
		"requests_sent", requests,
	)
}
