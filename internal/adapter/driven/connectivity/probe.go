// Package connectivity implements the ConnectivityProbe port with a plain
// HEAD request, independent of any authenticated session.
package connectivity

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ConnectivityProbe = (*Probe)(nil)

// DefaultTimeout bounds a single reachability check.
const DefaultTimeout = 10 * time.Second

// Probe checks whether a URL answers a HEAD request with a 2xx status.
type Probe struct {
	strict  *http.Client
	lenient *http.Client
	timeout time.Duration
}

// NewProbe creates a Probe with the given per-check timeout. A zero timeout
// uses DefaultTimeout.
func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	strict := http.DefaultTransport.(*http.Transport).Clone()
	lenient := http.DefaultTransport.(*http.Transport).Clone()
	lenient.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // Only used when the caller allows untrusted certs.

	return &Probe{
		strict:  &http.Client{Transport: strict, Timeout: timeout},
		lenient: &http.Client{Transport: lenient, Timeout: timeout},
		timeout: timeout,
	}
}

// CheckReachable reports whether url is reachable. DNS failures, timeouts,
// TLS errors and non-2xx responses all yield false.
func (p *Probe) CheckReachable(ctx context.Context, url string, allowUntrusted bool) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		slog.Debug("connectivity probe: bad url", "url", url, "error", err)
		return false
	}

	client := p.strict
	if allowUntrusted {
		client = p.lenient
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Debug("connectivity probe failed", "url", url, "error", err)
		return false
	}
	_ = resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
