package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// Catalog lists the applications and presences visible to an API key.
type Catalog struct {
	gateway *AuthenticationGateway
	svc     driven.ScanService
}

// NewCatalog creates a Catalog.
func NewCatalog(gateway *AuthenticationGateway, svc driven.ScanService) *Catalog {
	return &Catalog{gateway: gateway, svc: svc}
}

// Applications authenticates and returns applications sorted by name.
func (c *Catalog) Applications(ctx context.Context, key, secret string) ([]model.Application, error) {
	if err := c.gateway.Authenticate(ctx, key, secret); err != nil {
		return nil, err
	}
	apps, err := c.svc.ListApplications(ctx)
	if err != nil {
		return nil, classifyListErr(err)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
	return apps, nil
}

// Presences authenticates and returns presences sorted by name.
func (c *Catalog) Presences(ctx context.Context, key, secret string) ([]model.Presence, error) {
	if err := c.gateway.Authenticate(ctx, key, secret); err != nil {
		return nil, err
	}
	presences, err := c.svc.ListPresences(ctx)
	if err != nil {
		return nil, classifyListErr(err)
	}
	sort.Slice(presences, func(i, j int) bool { return presences[i].Name < presences[j].Name })
	return presences, nil
}

// classifyListErr marks unclassified listing failures as connectivity errors
// so they exit like any other pre-submission failure.
func classifyListErr(err error) error {
	if errors.Is(err, model.ErrAuthentication) || errors.Is(err, model.ErrConnectivity) || errors.Is(err, model.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrConnectivity, err)
}
