package model

import "time"

// ScanRecord is one row of local run history.
type ScanRecord struct {
	ID         int64
	ScanID     string
	ScanName   string
	AppID      string
	Target     string
	Status     ScanStatus
	Counts     FindingCounts
	Verdict    Verdict
	ReportPath string
	StartedAt  time.Time
	FinishedAt time.Time
}
