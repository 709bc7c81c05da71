package model

import (
	"fmt"
	"strings"
	"time"
)

// ScanStatus is the execution state reported by the scan service.
type ScanStatus string

const (
	StatusInQueue   ScanStatus = "InQueue"
	StatusRunning   ScanStatus = "Running"
	StatusPaused    ScanStatus = "Paused"
	StatusPausing   ScanStatus = "Pausing"
	StatusUnknown   ScanStatus = "Unknown"
	StatusCompleted ScanStatus = "Completed"
	StatusReady     ScanStatus = "Ready" // Alias of Completed; collapsed by Canonical.
	StatusFailed    ScanStatus = "Failed"
)

var knownStatuses = []ScanStatus{
	StatusInQueue, StatusRunning, StatusPaused, StatusPausing,
	StatusUnknown, StatusCompleted, StatusReady, StatusFailed,
}

// ParseScanStatus matches v case-insensitively against the known statuses.
// Unrecognized values map to StatusUnknown.
func ParseScanStatus(v string) ScanStatus {
	v = strings.TrimSpace(v)
	for _, s := range knownStatuses {
		if strings.EqualFold(v, string(s)) {
			return s.Canonical()
		}
	}
	return StatusUnknown
}

// Canonical collapses Ready into Completed. Every other status is returned as-is.
func (s ScanStatus) Canonical() ScanStatus {
	if s == StatusReady {
		return StatusCompleted
	}
	return s
}

// IsTerminal reports whether no further transition can occur.
func (s ScanStatus) IsTerminal() bool {
	switch s.Canonical() {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsPollable reports whether a poller should keep querying a scan in this state.
func (s ScanStatus) IsPollable() bool {
	switch s {
	case StatusInQueue, StatusRunning, StatusUnknown, StatusPaused, StatusPausing:
		return true
	default:
		return false
	}
}

// ScanKind discriminates the scan configuration variant.
type ScanKind string

const (
	KindDynamic ScanKind = "Dynamic Analyzer"
)

// ScanHandle identifies a submitted scan. It is created once after a
// successful submission and never modified.
type ScanHandle struct {
	ID       string
	Name     string
	Kind     ScanKind
	ScanType ScanType
	AppID    string
}

// String returns a log-friendly identifier.
func (h ScanHandle) String() string {
	return fmt.Sprintf("Scan Id: %s, Scan Name: %s", h.ID, h.Name)
}

// ScanExecution is the latest execution block of a scan's details.
type ScanExecution struct {
	Status          ScanStatus
	DurationSeconds int
	Progress        string // Requests sent so far, as reported by the service.
}

// ScanCreator identifies the user who created a scan.
type ScanCreator struct {
	UserName  string
	FirstName string
	LastName  string
	Email     string
}

// FullName joins the creator's first and last name.
func (c ScanCreator) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ScanDetails carries the descriptive fields of a scan returned by the service.
type ScanDetails struct {
	ID                string
	Name              string
	AppName           string
	CreatedAt         string
	CreatedBy         ScanCreator
	OptimizationLevel string
	LatestExecution   ScanExecution
}

// ScanProgress is an observable snapshot emitted once per poll iteration.
type ScanProgress struct {
	Status       ScanStatus
	Duration     time.Duration
	RequestsSent string
	Reachable    bool
}

// FormatDuration renders a duration the way progress lines show it ("03m 07s").
func FormatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%02dm %02ds", secs/60, secs%60)
}
