package appscan

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single request, including the response body read.
const DefaultTimeout = 2 * time.Minute

// TransportOptions configures the HTTP stack shared by Client and AuthClient.
type TransportOptions struct {
	// AcceptInvalidCerts disables TLS verification (AppScan 360 with self-signed certs).
	AcceptInvalidCerts bool
	// RateLimit is the sustained request rate per second; zero disables limiting.
	RateLimit float64
	Timeout   time.Duration
}

// NewHTTPClient builds an http.Client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching; artifact downloads
//     opt out with Cache-Control: no-store)
//  2. rate limiter (blocks until the token bucket admits the request)
//  3. base transport (proxy from environment, optional untrusted TLS)
func NewHTTPClient(opts TransportOptions) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.Proxy = http.ProxyFromEnvironment
	if opts.AcceptInvalidCerts {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // Opt-in via --allowUntrusted.
	}

	var next http.RoundTripper = base
	if opts.RateLimit > 0 {
		next = &rateLimitedTransport{
			limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burstFor(opts.RateLimit)),
			next:    base,
		}
	}

	cache := httpcache.NewMemoryCacheTransport()
	cache.Transport = next

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{Transport: cache, Timeout: timeout}
}

func burstFor(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}

// rateLimitedTransport waits on a token bucket before delegating each request.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
