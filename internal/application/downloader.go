package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// Download defaults.
const (
	DefaultDownloadDir     = "AppScan_Results"
	DefaultDownloadTimeout = 90 * time.Second

	reportSuffix = "_report"
	logSuffix    = "_log.zip"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeFileName removes every character except ASCII letters, digits,
// '_' and '-'. It is idempotent.
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "")
}

// errNotReady signals the report job is still generating.
var errNotReady = errors.New("report not ready")

// transferFunc writes one artifact into w.
type transferFunc func(ctx context.Context, w io.Writer) error

// ArtifactDownloader saves scan reports and logs under a base directory.
// Each transfer runs on its own goroutine and is bounded by a deadline; on
// timeout the caller gets model.ErrDownloadTimeout right away while the
// worker is cancelled best-effort and may still be running. Workers write to
// a temporary file and rename only on success, so a late finish never leaves
// a partial artifact.
type ArtifactDownloader struct {
	svc           driven.ScanService
	baseDir       string
	timeout       time.Duration
	reportBackOff func() backoff.BackOff
}

// DownloaderOption customizes an ArtifactDownloader.
type DownloaderOption func(*ArtifactDownloader)

// WithReportBackOff replaces the backoff used while waiting for report generation.
func WithReportBackOff(fn func() backoff.BackOff) DownloaderOption {
	return func(d *ArtifactDownloader) { d.reportBackOff = fn }
}

// NewArtifactDownloader creates an ArtifactDownloader. Empty or non-positive
// arguments fall back to DefaultDownloadDir and DefaultDownloadTimeout.
func NewArtifactDownloader(svc driven.ScanService, baseDir string, timeout time.Duration, opts ...DownloaderOption) *ArtifactDownloader {
	if baseDir == "" {
		baseDir = DefaultDownloadDir
	}
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	d := &ArtifactDownloader{
		svc:           svc,
		baseDir:       baseDir,
		timeout:       timeout,
		reportBackOff: defaultReportBackOff,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func defaultReportBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0 // Bounded by the download deadline instead.
	b.Reset()
	return b
}

// ReportPath returns where the report for results is stored.
func (d *ArtifactDownloader) ReportPath(results *model.ScanResults, format model.ReportFormat) (string, error) {
	name := SanitizeFileName(string(results.Kind)+results.Name) + reportSuffix + "." + strings.ToLower(string(format))
	return d.resolve(name)
}

// LogPath returns where the scan log for h is stored.
func (d *ArtifactDownloader) LogPath(h model.ScanHandle) (string, error) {
	return d.resolve(SanitizeFileName(string(h.Kind)+h.Name) + logSuffix)
}

// resolve joins name onto the base directory and rejects anything that
// escapes it.
func (d *ArtifactDownloader) resolve(name string) (string, error) {
	base, err := filepath.Abs(d.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolving download directory: %w", err)
	}
	p := filepath.Join(base, name)
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing to write %q outside %s", name, base)
	}
	return p, nil
}

// DownloadReport generates and saves the security report for results. An
// existing file at the destination is kept and no transfer happens.
func (d *ArtifactDownloader) DownloadReport(ctx context.Context, results *model.ScanResults, format model.ReportFormat) (string, error) {
	dest, err := d.ReportPath(results, format)
	if err != nil {
		return "", err
	}

	err = d.fetch(ctx, dest, func(ctx context.Context, w io.Writer) error {
		reportID, err := d.svc.CreateReport(ctx, results.ScanID, format)
		if err != nil {
			return err
		}
		if err := d.waitForReport(ctx, reportID); err != nil {
			return err
		}
		return d.svc.DownloadReport(ctx, reportID, w)
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

// DownloadScanLog saves the zipped execution log of h.
func (d *ArtifactDownloader) DownloadScanLog(ctx context.Context, h model.ScanHandle) (string, error) {
	dest, err := d.LogPath(h)
	if err != nil {
		return "", err
	}

	err = d.fetch(ctx, dest, func(ctx context.Context, w io.Writer) error {
		return d.svc.DownloadScanLog(ctx, h.ID, w)
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

func (d *ArtifactDownloader) waitForReport(ctx context.Context, reportID string) error {
	op := func() error {
		ready, err := d.svc.ReportReady(ctx, reportID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ready {
			return errNotReady
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(d.reportBackOff(), ctx))
}

// fetch runs transfer into dest on a worker goroutine bounded by the
// download deadline.
func (d *ArtifactDownloader) fetch(ctx context.Context, dest string, transfer transferFunc) error {
	if _, err := os.Stat(dest); err == nil {
		slog.Info("artifact already present, skipping download", "path", dest)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- writeAtomically(ctx, dest, transfer)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %s", model.ErrDownloadTimeout, d.timeout, filepath.Base(dest))
	}
	return err
}

func writeAtomically(ctx context.Context, dest string, transfer transferFunc) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := transfer(ctx, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("moving download into place: %w", err)
	}
	committed = true
	return nil
}
