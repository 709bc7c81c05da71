// Package appscan implements the ScanService and Authenticator ports against
// the v4 REST API of the scan service.
package appscan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ScanService   = (*Client)(nil)
	_ driven.Authenticator = (*AuthClient)(nil)
)

const userAgent = "scangate"

// statusError is returned for any non-2xx response.
type statusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap classifies 401/403 as authentication failures.
func (e *statusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return model.ErrAuthentication
	}
	return nil
}

// Client implements driven.ScanService. Every request carries the session's
// bearer token; a 401 triggers one token refresh and a single retry.
type Client struct {
	http    *http.Client
	session driven.Session
}

// NewClient creates a Client that resolves the server and token through session.
func NewClient(httpClient *http.Client, session driven.Session) *Client {
	return &Client{http: httpClient, session: session}
}

// request describes one API call. body is re-read on retry, so it is held as bytes.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	noCache     bool // revalidate with the service before using a cached copy
	noStore     bool // keep the response out of the HTTP cache entirely
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path}
	if payload == nil {
		return r, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return r, fmt.Errorf("marshaling %s %s body: %w", method, path, err)
	}
	r.body = b
	r.contentType = "application/json"
	return r, nil
}

// do sends r and returns the response for the caller to consume. Non-2xx
// responses are drained and returned as *statusError.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return checkStatus(r, resp)
	}
	_ = resp.Body.Close()

	slog.Debug("token rejected, refreshing", "path", r.path)
	if c.session.IsTokenExpired(ctx) {
		return nil, fmt.Errorf("%s %s: %w: token refresh failed", r.method, r.path, model.ErrAuthentication)
	}

	resp, err = c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	return checkStatus(r, resp)
}

func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.session.Server()+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("creating %s %s request: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", c.session.AuthorizationHeader())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	switch {
	case r.noStore:
		req.Header.Set("Cache-Control", "no-store")
	case r.noCache:
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", r.method, r.path, model.ErrConnectivity, err)
	}
	return resp, nil
}

func checkStatus(r request, resp *http.Response) (*http.Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, &statusError{
		Method:     r.method,
		Path:       r.path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(msg)),
	}
}

// doJSON sends r and decodes the JSON response into out (skipped when out is nil).
func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

// UploadFile uploads the file at path as multipart form data.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %w", model.ErrConfiguration, path, err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("fileToUpload", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	r := request{
		method:      http.MethodPost,
		path:        "api/v4/FileUpload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	var out fileUploadResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return "", fmt.Errorf("uploading %s: %w", filepath.Base(path), err)
	}
	if out.FileID == "" {
		return "", fmt.Errorf("uploading %s: service returned no file id", filepath.Base(path))
	}
	return out.FileID, nil
}

// SubmitDynamicScan translates props into a DAST scan request.
func (c *Client) SubmitDynamicScan(ctx context.Context, props map[string]string) (string, error) {
	body := dastScanRequest{
		StartingURL:            props[model.PropTarget],
		ScanType:               props[model.PropScanType],
		TestOptimizationLevel:  props[model.PropTestOptimizationLevel],
		LoginType:              props[model.PropLoginType],
		LoginUser:              props[model.PropLoginUser],
		LoginPassword:          props[model.PropLoginPassword],
		TrafficFileID:          props[model.PropTrafficFileID],
		ScanFileID:             props[model.PropScanFileID],
		PresenceID:             props[model.PropPresenceID],
		AppID:                  props[model.PropAppID],
		Name:                   props[model.PropScanName],
		EnableMailNotification: parseBool(props[model.PropEnableMailNotify]),
		FullyAutomatic:         parseBool(props[model.PropFullyAutomatic]),
		ClientType:             props[model.PropClientType],
		ClientIdentity:         props[model.PropClientIdentity],
	}

	r, err := jsonRequest(http.MethodPost, "api/v4/Scans/Dast", body)
	if err != nil {
		return "", err
	}
	var out idResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return "", fmt.Errorf("submitting scan %s: %w", body.Name, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("submitting scan %s: service returned no scan id", body.Name)
	}
	return out.ID, nil
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

// GetScanStatus returns the canonical status of the scan's latest execution.
func (c *Client) GetScanStatus(ctx context.Context, scanID string) (model.ScanStatus, error) {
	d, err := c.GetScanDetails(ctx, scanID)
	if err != nil {
		return model.StatusUnknown, err
	}
	return d.LatestExecution.Status, nil
}

// GetScanDetails fetches the scan and its latest execution.
func (c *Client) GetScanDetails(ctx context.Context, scanID string) (*model.ScanDetails, error) {
	r := request{method: http.MethodGet, path: "api/v4/Scans/" + scanID, noCache: true}
	var out scanResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, fmt.Errorf("fetching scan %s: %w", scanID, err)
	}
	return &model.ScanDetails{
		ID:                out.ID,
		Name:              out.Name,
		AppName:           out.AppName,
		CreatedAt:         out.CreatedAt,
		OptimizationLevel: out.TestOptimizationLevel,
		CreatedBy: model.ScanCreator{
			UserName:  out.CreatedBy.UserName,
			FirstName: out.CreatedBy.FirstName,
			LastName:  out.CreatedBy.LastName,
			Email:     out.CreatedBy.Email,
		},
		LatestExecution: model.ScanExecution{
			Status:          model.ParseScanStatus(out.LatestExecution.Status),
			DurationSeconds: out.LatestExecution.ExecutionDurationSec,
			Progress:        out.LatestExecution.ExecutionProgress,
		},
	}, nil
}

// GetFindingCounts groups the scan's issues by severity with application
// policies applied.
func (c *Client) GetFindingCounts(ctx context.Context, scanID string) (model.FindingCounts, error) {
	path := "api/v4/Issues/Scan/" + scanID +
		"?applyPolicies=All&%24apply=groupby%28%28Severity%29%2Caggregate%28%24count%20as%20Count%29%29"
	r := request{method: http.MethodGet, path: path, noCache: true}

	var out issueGroupsResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return model.FindingCounts{}, fmt.Errorf("fetching findings for scan %s: %w", scanID, err)
	}
	return countsFromGroups(out.Items), nil
}

func countsFromGroups(groups []severityGroup) model.FindingCounts {
	var counts model.FindingCounts
	for _, g := range groups {
		switch strings.ToLower(g.Severity) {
		case "critical":
			counts.Critical += g.Count
		case "high":
			counts.High += g.Count
		case "medium":
			counts.Medium += g.Count
		case "low":
			counts.Low += g.Count
		case "informational", "info":
			counts.Info += g.Count
		}
		counts.Total += g.Count
	}
	return counts
}

// CreateReport starts generation of a security report for the scan.
func (c *Client) CreateReport(ctx context.Context, scanID string, format model.ReportFormat) (string, error) {
	body := reportRequest{Configuration: reportConfiguration{
		Summary:        true,
		Details:        true,
		Discussion:     true,
		Overview:       true,
		History:        true,
		ReportFileType: reportFileType(format),
	}}
	r, err := jsonRequest(http.MethodPost, "api/v4/Reports/Security/Scan/"+scanID, body)
	if err != nil {
		return "", err
	}
	var out idResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return "", fmt.Errorf("creating %s report for scan %s: %w", format, scanID, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("creating %s report for scan %s: service returned no report id", format, scanID)
	}
	return out.ID, nil
}

func reportFileType(f model.ReportFormat) string {
	switch f {
	case model.ReportPDF:
		return "Pdf"
	case model.ReportCSV:
		return "Csv"
	case model.ReportXML:
		return "Xml"
	default:
		return "Html"
	}
}

// ReportReady reports whether the report job has finished. A failed job is an error.
func (c *Client) ReportReady(ctx context.Context, reportID string) (bool, error) {
	r := request{method: http.MethodGet, path: "api/v4/Reports/" + reportID, noCache: true}
	var out reportStatusResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return false, fmt.Errorf("fetching report %s: %w", reportID, err)
	}
	switch strings.ToLower(out.Status) {
	case "ready":
		return true, nil
	case "failed", "abort":
		return false, fmt.Errorf("report %s generation %s", reportID, out.Status)
	default:
		return false, nil
	}
}

// DownloadReport streams the finished report into w.
func (c *Client) DownloadReport(ctx context.Context, reportID string, w io.Writer) error {
	r := request{method: http.MethodGet, path: "api/v4/Reports/" + reportID + "/Download", noStore: true}
	if err := c.stream(ctx, r, w); err != nil {
		return fmt.Errorf("downloading report %s: %w", reportID, err)
	}
	return nil
}

// DownloadScanLog streams the zipped scan log into w.
func (c *Client) DownloadScanLog(ctx context.Context, scanID string, w io.Writer) error {
	r := request{method: http.MethodGet, path: "api/v4/Scans/" + scanID + "/Log", noStore: true}
	if err := c.stream(ctx, r, w); err != nil {
		return fmt.Errorf("downloading log for scan %s: %w", scanID, err)
	}
	return nil
}

func (c *Client) stream(ctx context.Context, r request, w io.Writer) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	return nil
}

// IsValidURL asks the service whether target is publicly reachable for scanning.
func (c *Client) IsValidURL(ctx context.Context, target string) (bool, error) {
	r, err := jsonRequest(http.MethodPost, "api/v4/Scans/IsValidUrl", urlValidationRequest{URL: target})
	if err != nil {
		return false, err
	}
	var out urlValidationResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return false, fmt.Errorf("validating target %s: %w", target, err)
	}
	return out.IsValid, nil
}

// ListPresences returns every presence visible to the API key.
func (c *Client) ListPresences(ctx context.Context) ([]model.Presence, error) {
	r := request{method: http.MethodGet, path: "api/v4/Presences"}
	var out presenceListResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, fmt.Errorf("listing presences: %w", err)
	}

	presences := make([]model.Presence, 0, len(out.Items))
	for _, p := range out.Items {
		presences = append(presences, mapPresence(p))
	}
	return presences, nil
}

// GetPresence returns the presence with the given id, or nil if the service
// does not know it.
func (c *Client) GetPresence(ctx context.Context, id string) (*model.Presence, error) {
	r := request{method: http.MethodGet, path: "api/v4/Presences/" + id, noCache: true}
	var out presenceResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching presence %s: %w", id, err)
	}
	p := mapPresence(out)
	return &p, nil
}

func mapPresence(p presenceResponse) model.Presence {
	return model.Presence{ID: p.ID, Name: p.Name, Status: p.Status}
}

// ListApplications returns every application visible to the API key.
func (c *Client) ListApplications(ctx context.Context) ([]model.Application, error) {
	r := request{method: http.MethodGet, path: "api/v4/Apps"}
	var out appListResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}

	apps := make([]model.Application, 0, len(out.Items))
	for _, a := range out.Items {
		apps = append(apps, model.Application{ID: a.ID, Name: a.Name})
	}
	return apps, nil
}
