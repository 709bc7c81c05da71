// Command servicecheck exits 0 when the scan service answers a HEAD request.
// Pipelines run it before invokedynamicscan to fail fast on network problems.
package main

import (
	"context"
	"os"
	"strconv"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch CI images

	"github.com/ericfisherdev/scangate/internal/adapter/driven/connectivity"
	"github.com/ericfisherdev/scangate/internal/application"
)

const checkTimeout = 5 * time.Second

func main() {
	os.Exit(check(context.Background(), os.Getenv("SCANGATE_SERVICE_URL"), os.Getenv("SCANGATE_ALLOW_UNTRUSTED")))
}

func check(ctx context.Context, rawURL, allowUntrusted string) int {
	server, err := application.ResolveServer("", rawURL)
	if err != nil {
		return 1
	}
	untrusted, _ := strconv.ParseBool(allowUntrusted)

	if !connectivity.NewProbe(checkTimeout).CheckReachable(ctx, server, untrusted) {
		return 1
	}
	return 0
}
