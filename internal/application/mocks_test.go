package application_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockAuthenticator struct {
	login    func(ctx context.Context, server string, creds model.Credentials) (model.Token, error)
	validate func(ctx context.Context, token model.Token) (bool, error)

	logins atomic.Int32
}

func (m *mockAuthenticator) Login(ctx context.Context, server string, creds model.Credentials, _ string) (model.Token, error) {
	m.logins.Add(1)
	if m.login == nil {
		return "token-" + model.Token(creds.Key), nil
	}
	return m.login(ctx, server, creds)
}

func (m *mockAuthenticator) ValidateToken(ctx context.Context, _ string, token model.Token) (bool, error) {
	if m.validate == nil {
		return !token.IsZero(), nil
	}
	return m.validate(ctx, token)
}

type mockCredentialStore struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{values: map[string]string{}}
}

func (m *mockCredentialStore) Set(_ context.Context, name, plaintext string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = plaintext
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[name], nil
}

func (m *mockCredentialStore) List(_ context.Context) ([]model.StoredCredential, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.values))
	for name := range m.values {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]model.StoredCredential, 0, len(names))
	for _, name := range names {
		out = append(out, model.StoredCredential{Name: name})
	}
	return out, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, names ...string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, name := range names {
		if _, ok := m.values[name]; ok {
			delete(m.values, name)
			removed++
		}
	}
	return removed, nil
}

// mockScanService implements driven.ScanService with overridable funcs.
// Unset funcs return zero values.
type mockScanService struct {
	upload         func(ctx context.Context, path string) (string, error)
	submit         func(ctx context.Context, props map[string]string) (string, error)
	status         func(ctx context.Context, scanID string) (model.ScanStatus, error)
	details        func(ctx context.Context, scanID string) (*model.ScanDetails, error)
	counts         func(ctx context.Context, scanID string) (model.FindingCounts, error)
	createReport   func(ctx context.Context, scanID string, format model.ReportFormat) (string, error)
	reportReady    func(ctx context.Context, reportID string) (bool, error)
	downloadReport func(ctx context.Context, reportID string, w io.Writer) error
	downloadLog    func(ctx context.Context, scanID string, w io.Writer) error
	isValidURL     func(ctx context.Context, target string) (bool, error)
	presences      []model.Presence
	presence       func(ctx context.Context, id string) (*model.Presence, error)
	apps           []model.Application

	submitted     map[string]string
	statusCalls   atomic.Int32
	reportCalls   atomic.Int32
	logDownloads  atomic.Int32
	validateCalls atomic.Int32
}

func (m *mockScanService) UploadFile(ctx context.Context, path string) (string, error) {
	if m.upload == nil {
		return "file-id", nil
	}
	return m.upload(ctx, path)
}

func (m *mockScanService) SubmitDynamicScan(ctx context.Context, props map[string]string) (string, error) {
	m.submitted = props
	if m.submit == nil {
		return "scan-1", nil
	}
	return m.submit(ctx, props)
}

func (m *mockScanService) GetScanStatus(ctx context.Context, scanID string) (model.ScanStatus, error) {
	m.statusCalls.Add(1)
	if m.status == nil {
		return model.StatusCompleted, nil
	}
	return m.status(ctx, scanID)
}

func (m *mockScanService) GetScanDetails(ctx context.Context, scanID string) (*model.ScanDetails, error) {
	if m.details == nil {
		return &model.ScanDetails{ID: scanID}, nil
	}
	return m.details(ctx, scanID)
}

func (m *mockScanService) GetFindingCounts(ctx context.Context, scanID string) (model.FindingCounts, error) {
	if m.counts == nil {
		return model.FindingCounts{}, nil
	}
	return m.counts(ctx, scanID)
}

func (m *mockScanService) CreateReport(ctx context.Context, scanID string, format model.ReportFormat) (string, error) {
	m.reportCalls.Add(1)
	if m.createReport == nil {
		return "report-1", nil
	}
	return m.createReport(ctx, scanID, format)
}

func (m *mockScanService) ReportReady(ctx context.Context, reportID string) (bool, error) {
	if m.reportReady == nil {
		return true, nil
	}
	return m.reportReady(ctx, reportID)
}

func (m *mockScanService) DownloadReport(ctx context.Context, reportID string, w io.Writer) error {
	if m.downloadReport == nil {
		_, err := io.WriteString(w, "<html>report</html>")
		return err
	}
	return m.downloadReport(ctx, reportID, w)
}

func (m *mockScanService) DownloadScanLog(ctx context.Context, scanID string, w io.Writer) error {
	m.logDownloads.Add(1)
	if m.downloadLog == nil {
		_, err := io.WriteString(w, "PK")
		return err
	}
	return m.downloadLog(ctx, scanID, w)
}

func (m *mockScanService) IsValidURL(ctx context.Context, target string) (bool, error) {
	m.validateCalls.Add(1)
	if m.isValidURL == nil {
		return true, nil
	}
	return m.isValidURL(ctx, target)
}

func (m *mockScanService) ListPresences(_ context.Context) ([]model.Presence, error) {
	return m.presences, nil
}

func (m *mockScanService) GetPresence(ctx context.Context, id string) (*model.Presence, error) {
	if m.presence != nil {
		return m.presence(ctx, id)
	}
	for _, p := range m.presences {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *mockScanService) ListApplications(_ context.Context) ([]model.Application, error) {
	return m.apps, nil
}

// mockProbe returns scripted reachability results, then true.
type mockProbe struct {
	mu      sync.Mutex
	results []bool
	always  *bool
	calls   int
}

func (m *mockProbe) CheckReachable(_ context.Context, _ string, _ bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.always != nil {
		return *m.always
	}
	if len(m.results) == 0 {
		return true
	}
	r := m.results[0]
	m.results = m.results[1:]
	return r
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

// staticSession is a fixed driven.Session.
type staticSession struct {
	server string
}

func (s staticSession) Server() string {
	return s.server
}

func (s staticSession) AcceptInvalidCerts() bool {
	return false
}

func (s staticSession) AuthorizationHeader() string {
	return "Bearer test"
}

func (s staticSession) IsTokenExpired(context.Context) bool {
	return false
}

// recordingReporter captures progress snapshots.
type recordingReporter struct {
	mu       sync.Mutex
	progress []model.ScanProgress
}

func (r *recordingReporter) Report(_ model.ScanHandle, p model.ScanProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

type mockHistory struct {
	mu      sync.Mutex
	records []model.ScanRecord
}

func (m *mockHistory) Record(_ context.Context, rec model.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockHistory) GetByScanID(_ context.Context, scanID string) (*model.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].ScanID == scanID {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *mockHistory) ListRecent(_ context.Context, _ int) ([]model.ScanRecord, error) {
	return m.records, nil
}

var (
	_ driven.Authenticator     = (*mockAuthenticator)(nil)
	_ driven.CredentialStore   = (*mockCredentialStore)(nil)
	_ driven.ScanService       = (*mockScanService)(nil)
	_ driven.ConnectivityProbe = (*mockProbe)(nil)
	_ driven.Session           = staticSession{}
	_ driven.ScanHistoryStore  = (*mockHistory)(nil)
)
