package driven

import (
	"context"
	"io"

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// Authenticator exchanges API credentials for bearer tokens. It does not hold
// any session state itself.
type Authenticator interface {
	// Login returns a fresh token for creds. Rejected credentials yield an
	// error wrapping model.ErrAuthentication.
	Login(ctx context.Context, server string, creds model.Credentials, clientIdentity string) (model.Token, error)

	// ValidateToken reports whether token is still accepted by the service.
	ValidateToken(ctx context.Context, server string, token model.Token) (bool, error)
}

// Session supplies the server and authorization header for authenticated
// requests, and refreshes the token on demand.
type Session interface {
	Server() string
	AcceptInvalidCerts() bool
	AuthorizationHeader() string
	// IsTokenExpired refreshes the token if needed and reports whether it is
	// still expired afterwards.
	IsTokenExpired(ctx context.Context) bool
}

// ScanService defines the driven port for the remote scan service.
type ScanService interface {
	// UploadFile uploads a scan or traffic file and returns its file id.
	UploadFile(ctx context.Context, path string) (string, error)
	// SubmitDynamicScan creates a dynamic scan from props and returns its id.
	SubmitDynamicScan(ctx context.Context, props map[string]string) (string, error)

	GetScanStatus(ctx context.Context, scanID string) (model.ScanStatus, error)
	GetScanDetails(ctx context.Context, scanID string) (*model.ScanDetails, error)
	// GetFindingCounts returns per-severity counts with application policies applied.
	GetFindingCounts(ctx context.Context, scanID string) (model.FindingCounts, error)

	// CreateReport starts report generation and returns the report id.
	CreateReport(ctx context.Context, scanID string, format model.ReportFormat) (string, error)
	// ReportReady reports whether a report has finished generating.
	ReportReady(ctx context.Context, reportID string) (bool, error)
	DownloadReport(ctx context.Context, reportID string, w io.Writer) error
	DownloadScanLog(ctx context.Context, scanID string, w io.Writer) error

	// IsValidURL asks the service whether target can be scanned without a presence.
	IsValidURL(ctx context.Context, target string) (bool, error)
	ListPresences(ctx context.Context) ([]model.Presence, error)
	GetPresence(ctx context.Context, id string) (*model.Presence, error)
	ListApplications(ctx context.Context) ([]model.Application, error)
}

// ConnectivityProbe is a lightweight reachability check, independent of auth.
type ConnectivityProbe interface {
	// CheckReachable never fails; any problem yields false.
	CheckReachable(ctx context.Context, url string, allowUntrusted bool) bool
}
