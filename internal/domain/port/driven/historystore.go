package driven

import (
	"context"

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// ScanHistoryStore defines the driven port for local run history.
type ScanHistoryStore interface {
	// Record inserts or replaces the record for rec.ScanID.
	Record(ctx context.Context, rec model.ScanRecord) error

	// GetByScanID returns the record for a scan, or nil if none exists.
	GetByScanID(ctx context.Context, scanID string) (*model.ScanRecord, error)

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.ScanRecord, error)
}
