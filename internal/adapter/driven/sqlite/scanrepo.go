package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ScanHistoryStore = (*ScanRepo)(nil)

// ScanRepo is the SQLite implementation of the ScanHistoryStore port interface.
type ScanRepo struct {
	db *DB
}

// NewScanRepo creates a new ScanRepo backed by the given DB.
func NewScanRepo(db *DB) *ScanRepo {
	return &ScanRepo{db: db}
}

// Record inserts a history row or updates the existing row for the same scan id.
// The original started_at is preserved on update.
func (r *ScanRepo) Record(ctx context.Context, rec model.ScanRecord) error {
	const query = `
		INSERT INTO scan_history (
			scan_id, scan_name, app_id, target, status,
			total_count, critical_count, high_count, medium_count, low_count, info_count,
			verdict, report_path, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scan_id) DO UPDATE SET
			scan_name      = excluded.scan_name,
			status         = excluded.status,
			total_count    = excluded.total_count,
			critical_count = excluded.critical_count,
			high_count     = excluded.high_count,
			medium_count   = excluded.medium_count,
			low_count      = excluded.low_count,
			info_count     = excluded.info_count,
			verdict        = excluded.verdict,
			report_path    = excluded.report_path,
			finished_at    = excluded.finished_at`

	var finishedAt sql.NullString
	if !rec.FinishedAt.IsZero() {
		finishedAt = sql.NullString{String: formatTime(rec.FinishedAt), Valid: true}
	}

	verdict := rec.Verdict
	if verdict == "" {
		verdict = model.VerdictSkipped
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.ScanID, rec.ScanName, rec.AppID, rec.Target, string(rec.Status),
		rec.Counts.Total, rec.Counts.Critical, rec.Counts.High, rec.Counts.Medium, rec.Counts.Low, rec.Counts.Info,
		string(verdict), rec.ReportPath, formatTime(rec.StartedAt), finishedAt,
	)
	if err != nil {
		return fmt.Errorf("record scan %s: %w", rec.ScanID, err)
	}
	return nil
}

const selectScanColumns = `
	SELECT id, scan_id, scan_name, app_id, target, status,
		total_count, critical_count, high_count, medium_count, low_count, info_count,
		verdict, report_path, started_at, finished_at
	FROM scan_history`

// GetByScanID returns the history row for scanID, or nil if none exists.
func (r *ScanRepo) GetByScanID(ctx context.Context, scanID string) (*model.ScanRecord, error) {
	row := r.db.Reader.QueryRowContext(ctx, selectScanColumns+` WHERE scan_id = ?`, scanID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan %s: %w", scanID, err)
	}
	return &rec, nil
}

// ListRecent returns up to limit rows ordered by start time, newest first.
func (r *ScanRepo) ListRecent(ctx context.Context, limit int) ([]model.ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Reader.QueryContext(ctx, selectScanColumns+` ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scan history: %w", err)
	}
	defer rows.Close()

	records := []model.ScanRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan history: %w", err)
	}
	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (model.ScanRecord, error) {
	var (
		rec        model.ScanRecord
		status     string
		verdict    string
		startedAt  string
		finishedAt sql.NullString
	)
	err := s.Scan(
		&rec.ID, &rec.ScanID, &rec.ScanName, &rec.AppID, &rec.Target, &status,
		&rec.Counts.Total, &rec.Counts.Critical, &rec.Counts.High, &rec.Counts.Medium, &rec.Counts.Low, &rec.Counts.Info,
		&verdict, &rec.ReportPath, &startedAt, &finishedAt,
	)
	if err != nil {
		return model.ScanRecord{}, err
	}

	rec.Status = model.ScanStatus(status)
	rec.Verdict = model.Verdict(verdict)

	rec.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return model.ScanRecord{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finishedAt.Valid {
		rec.FinishedAt, err = parseTime(finishedAt.String)
		if err != nil {
			return model.ScanRecord{}, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	return rec, nil
}
