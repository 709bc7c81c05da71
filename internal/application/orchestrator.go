package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

// scanNameTimeLayout is appended to every scan name so reruns stay distinguishable.
const scanNameTimeLayout = "2006-01-02_15-04-05"

// ScanOrchestrator validates a scan configuration, uploads its files and
// submits it to the service.
type ScanOrchestrator struct {
	svc            driven.ScanService
	session        driven.Session
	validate       *validator.Validate
	clientType     string
	clientIdentity string
	now            func() time.Time
}

// NewScanOrchestrator creates a ScanOrchestrator. clientIdentity is computed
// once at startup and sent with every submission.
func NewScanOrchestrator(svc driven.ScanService, session driven.Session, clientType, clientIdentity string) *ScanOrchestrator {
	return &ScanOrchestrator{
		svc:            svc,
		session:        session,
		validate:       validator.New(),
		clientType:     clientType,
		clientIdentity: clientIdentity,
		now:            time.Now,
	}
}

// Prepare normalizes cfg, stamps the scan name and validates the result.
// It makes no network calls, so configuration errors surface before login.
func (o *ScanOrchestrator) Prepare(cfg model.ScanConfig) (model.ScanConfig, error) {
	cfg = cfg.Normalize()
	cfg.ScanName = o.stampName(cfg.ScanName, cfg.Target)

	if err := o.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return cfg, fmt.Errorf("%w: %w", model.ErrConfiguration, describeValidation(verrs))
		}
		return cfg, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}
	if err := cfg.CheckConsistency(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (o *ScanOrchestrator) stampName(name, target string) string {
	ts := o.now().Format(scanNameTimeLayout)
	if strings.TrimSpace(name) == "" {
		return "DAST_" + ts + "_" + target
	}
	return name + "_" + ts
}

func describeValidation(verrs validator.ValidationErrors) error {
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s is required", fe.Field()))
		case "oneof":
			errs = append(errs, fmt.Errorf("%s %q must be one of [%s]", fe.Field(), fe.Value(), fe.Param()))
		case "url":
			errs = append(errs, fmt.Errorf("%s %q is not a valid URL", fe.Field(), fe.Value()))
		default:
			errs = append(errs, fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return errors.Join(errs...)
}

// Submit prepares cfg, uploads any scan or traffic file and creates the scan.
// Errors from the service are returned as-is; nothing is retried here.
func (o *ScanOrchestrator) Submit(ctx context.Context, cfg model.ScanConfig) (model.ScanHandle, error) {
	cfg, err := o.Prepare(cfg)
	if err != nil {
		return model.ScanHandle{}, err
	}
	return o.SubmitPrepared(ctx, cfg)
}

// SubmitPrepared submits a configuration already returned by Prepare.
func (o *ScanOrchestrator) SubmitPrepared(ctx context.Context, cfg model.ScanConfig) (model.ScanHandle, error) {
	props := o.properties(cfg)

	if cfg.ScanFile != "" {
		id, err := o.svc.UploadFile(ctx, cfg.ScanFile)
		if err != nil {
			return model.ScanHandle{}, err
		}
		props[model.PropScanFileID] = id
	}
	if cfg.LoginMode == model.LoginRecorded && cfg.TrafficFile != "" {
		id, err := o.svc.UploadFile(ctx, cfg.TrafficFile)
		if err != nil {
			return model.ScanHandle{}, err
		}
		props[model.PropTrafficFileID] = id
	}

	scanID, err := o.svc.SubmitDynamicScan(ctx, props)
	if err != nil {
		return model.ScanHandle{}, err
	}

	h := model.ScanHandle{
		ID:       scanID,
		Name:     cfg.ScanName,
		Kind:     cfg.Kind,
		ScanType: cfg.ScanType,
		AppID:    cfg.AppID,
	}
	slog.Info("scan submitted", "scan_id", h.ID, "scan_name", h.Name, "target", cfg.Target)
	return h, nil
}

// properties assembles the submission property map for cfg.
func (o *ScanOrchestrator) properties(cfg model.ScanConfig) map[string]string {
	props := map[string]string{
		model.PropTarget:                cfg.Target,
		model.PropScanType:              string(cfg.ScanType),
		model.PropTestOptimizationLevel: string(cfg.Optimization),
		model.PropLoginType:             string(cfg.LoginMode),
		model.PropAppID:                 cfg.AppID,
		model.PropScanName:              cfg.ScanName,
		model.PropEnableMailNotify:      strconv.FormatBool(cfg.EmailNotification),
		model.PropFullyAutomatic:        strconv.FormatBool(!cfg.AllowIntervention),
		model.PropServerURL:             o.session.Server(),
		model.PropAcceptInvalidCerts:    strconv.FormatBool(o.session.AcceptInvalidCerts()),
		model.PropClientType:            o.clientType,
		model.PropClientIdentity:        o.clientIdentity,
	}

	switch cfg.LoginMode {
	case model.LoginAutomatic:
		props[model.PropLoginUser] = cfg.LoginUser
		props[model.PropLoginPassword] = cfg.LoginPassword
	case model.LoginRecorded:
		props[model.PropTrafficFile] = cfg.TrafficFile
	}
	if cfg.ScanFile != "" {
		props[model.PropScanFile] = cfg.ScanFile
	}
	if cfg.PresenceID != "" {
		props[model.PropPresenceID] = cfg.PresenceID
	}
	return props
}
