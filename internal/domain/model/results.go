package model

import (
	"strings"
)

// FindingCounts holds the per-severity finding counts of a scan.
type FindingCounts struct {
	Total    int
	Critical int
	High     int
	Medium   int
	Low      int
	Info     int
}

// ScanResults is an immutable snapshot of a completed scan's outcome. It is
// only constructed from a Completed status.
type ScanResults struct {
	ScanID    string
	Name      string
	AppID     string
	ScanType  ScanType
	Kind      ScanKind
	Status    ScanStatus
	Counts    FindingCounts
	ReportURL string
}

// ReportURL builds the browser URL of a scan inside the service UI. A missing
// trailing slash on server is added before concatenation.
func ReportURL(server, appID, scanID string) string {
	if !strings.HasSuffix(server, "/") {
		server += "/"
	}
	return server + "main/myapps/" + appID + "/scans/" + scanID
}
