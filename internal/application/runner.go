package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// RunOptions is everything one scan invocation needs.
type RunOptions struct {
	Key          string
	Secret       string
	Scan         model.ScanConfig
	ReportFormat model.ReportFormat
	Gate         GateOptions
}

// RunResult describes a finished invocation. Results is nil when results
// were not awaited.
type RunResult struct {
	Handle     model.ScanHandle
	Results    *model.ScanResults
	Details    *model.ScanDetails
	ReportPath string
	LogPath    string
	Verdict    model.Verdict
}

// ScanRunner executes the full scan sequence: authenticate, check the target,
// submit, poll, aggregate, download artifacts, record history and gate.
type ScanRunner struct {
	gateway      *AuthenticationGateway
	svc          driven.ScanService
	orchestrator *ScanOrchestrator
	poller       *StatusPoller
	aggregator   *ResultAggregator
	downloader   *ArtifactDownloader
	history      driven.ScanHistoryStore // Optional.
	now          func() time.Time
}

// NewScanRunner creates a ScanRunner. history may be nil.
func NewScanRunner(
	gateway *AuthenticationGateway,
	svc driven.ScanService,
	orchestrator *ScanOrchestrator,
	poller *StatusPoller,
	aggregator *ResultAggregator,
	downloader *ArtifactDownloader,
	history driven.ScanHistoryStore,
) *ScanRunner {
	return &ScanRunner{
		gateway:      gateway,
		svc:          svc,
		orchestrator: orchestrator,
		poller:       poller,
		aggregator:   aggregator,
		downloader:   downloader,
		history:      history,
		now:          time.Now,
	}
}

// Run executes one scan. The returned error is classified for
// model.ExitCode; a non-nil RunResult is returned whenever a scan was
// submitted, even on failure.
func (r *ScanRunner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	// Configuration checks happen before any network call.
	if err := opts.Gate.Validate(); err != nil {
		return nil, err
	}
	cfg, err := r.orchestrator.Prepare(opts.Scan)
	if err != nil {
		return nil, err
	}

	if _, err := r.gateway.UpdateCredentials(ctx, opts.Key, opts.Secret); err != nil {
		return nil, err
	}
	if err := r.checkTarget(ctx, cfg); err != nil {
		return nil, err
	}

	h, err := r.orchestrator.SubmitPrepared(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := &RunResult{Handle: h, Verdict: model.VerdictSkipped}
	rec := model.ScanRecord{
		ScanID:    h.ID,
		ScanName:  h.Name,
		AppID:     h.AppID,
		Target:    cfg.Target,
		Status:    model.StatusInQueue,
		Verdict:   model.VerdictSkipped,
		StartedAt: r.now(),
	}
	r.record(ctx, rec)

	if !opts.Gate.WaitForResults {
		slog.Info("not waiting for results", "scan_id", h.ID, "scan_name", h.Name)
		return res, nil
	}

	// The scan log is fetched after everything else, whatever the outcome.
	defer func() {
		path, logErr := r.downloader.DownloadScanLog(ctx, h)
		if logErr != nil {
			slog.Error("unable to download scan log", "scan_id", h.ID, "scan_name", h.Name, "error", logErr)
			return
		}
		res.LogPath = path
		slog.Info("scan log downloaded", "scan_id", h.ID, "path", path)
	}()

	status, err := r.poller.Poll(ctx, h)
	if err != nil {
		rec.Status = status
		r.finish(ctx, rec)
		return res, err
	}
	rec.Status = status

	results, details, err := r.aggregator.Collect(ctx, h, status)
	if err != nil {
		r.finish(ctx, rec)
		return res, err
	}
	if results == nil {
		r.finish(ctx, rec)
		return res, model.AbortScan(h, model.ErrUnexpectedState)
	}
	res.Results = results
	res.Details = details
	rec.Counts = results.Counts
	logSummary(h, cfg.Target, results, details)

	slog.Info("downloading scan report", "scan_id", h.ID, "format", opts.ReportFormat)
	reportPath, dlErr := r.downloader.DownloadReport(ctx, results, opts.ReportFormat)
	switch {
	case errors.Is(dlErr, model.ErrDownloadTimeout):
		slog.Error("unable to download the report, operation timed out", "scan_id", h.ID, "error", dlErr)
	case dlErr != nil:
		slog.Error("unable to download the report", "scan_id", h.ID, "error", dlErr)
	default:
		res.ReportPath = reportPath
		rec.ReportPath = reportPath
		slog.Info("report downloaded", "scan_id", h.ID, "path", reportPath)
	}

	verdict, gateErr := EvaluateGate(opts.Gate, results)
	res.Verdict = verdict
	rec.Verdict = verdict
	r.finish(ctx, rec)

	if gateErr != nil {
		slog.Error("build gate failed", "scan_id", h.ID, "scan_name", h.Name, "error", gateErr)
		return res, model.NewScanError(h, gateErr)
	}
	if opts.Gate.Policy == model.PolicyThreshold {
		slog.Info("findings are within thresholds", "scan_id", h.ID)
	}
	return res, nil
}

// checkTarget verifies the scan can reach its target: through an active
// presence when one is given, otherwise by asking the service.
func (r *ScanRunner) checkTarget(ctx context.Context, cfg model.ScanConfig) error {
	if cfg.PresenceID != "" {
		presences, err := r.svc.ListPresences(ctx)
		if err != nil {
			return fmt.Errorf("%w: listing presences: %w", model.ErrConnectivity, err)
		}
		known := false
		for _, p := range presences {
			if p.ID == cfg.PresenceID {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: presence %s not found", model.ErrConfiguration, cfg.PresenceID)
		}

		p, err := r.svc.GetPresence(ctx, cfg.PresenceID)
		if err != nil {
			return fmt.Errorf("%w: fetching presence %s: %w", model.ErrConnectivity, cfg.PresenceID, err)
		}
		if p == nil || p.IsInactive() {
			return fmt.Errorf("%w: presence %s is inactive", model.ErrConfiguration, cfg.PresenceID)
		}
		return nil
	}

	ok, err := r.svc.IsValidURL(ctx, cfg.Target)
	if err != nil {
		return fmt.Errorf("%w: validating target: %w", model.ErrConnectivity, err)
	}
	if !ok {
		return fmt.Errorf("%w: target %s is not reachable from the scan service; use a presence", model.ErrConnectivity, cfg.Target)
	}
	return nil
}

func (r *ScanRunner) record(ctx context.Context, rec model.ScanRecord) {
	if r.history == nil {
		return
	}
	if err := r.history.Record(ctx, rec); err != nil {
		slog.Warn("failed to record scan history", "scan_id", rec.ScanID, "error", err)
	}
}

func (r *ScanRunner) finish(ctx context.Context, rec model.ScanRecord) {
	rec.FinishedAt = r.now()
	r.record(ctx, rec)
}

func logSummary(h model.ScanHandle, target string, results *model.ScanResults, details *model.ScanDetails) {
	attrs := []any{
		"scan_id", h.ID,
		"scan_name", results.Name,
		"app_id", h.AppID,
		"target", target,
		"url", results.ReportURL,
		"total", results.Counts.Total,
		"critical", results.Counts.Critical,
		"high", results.Counts.High,
		"medium", results.Counts.Medium,
		"low", results.Counts.Low,
		"info", results.Counts.Info,
	}
	if details != nil {
		attrs = append(attrs,
			"app_name", details.AppName,
			"created_at", details.CreatedAt,
			"created_by", details.CreatedBy.UserName,
			"created_by_name", details.CreatedBy.FullName(),
			"created_by_email", details.CreatedBy.Email,
			"optimization", details.OptimizationLevel,
		)
	}
	slog.Info("scan summary", attrs...)
}
