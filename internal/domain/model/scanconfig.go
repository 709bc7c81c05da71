package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// File extensions accepted for scan inputs.
const (
	ScanTemplateExt  = ".scant"
	ScanFileExt      = ".scan"
	TrafficConfigExt = ".config"
)

// ScanConfig describes one scan submission. Kind discriminates the scan
// variant; only dynamic analysis is supported.
type ScanConfig struct {
	Kind              ScanKind     `validate:"required"`
	AppID             string       `validate:"required"`
	ScanName          string       `validate:"required"`
	Target            string       `validate:"required,url"`
	ScanType          ScanType     `validate:"required,oneof=Production Staging Custom"`
	Optimization      Optimization `validate:"required,oneof=Fast Faster Fastest NoOptimization"`
	LoginMode         LoginMode    `validate:"required,oneof=None Automatic Manual"`
	LoginUser         string
	LoginPassword     string
	TrafficFile       string
	ScanFile          string
	PresenceID        string
	EmailNotification bool
	AllowIntervention bool
}

// Normalize applies the legacy optimization mapping, fills defaults, and
// forces the Custom scan type when a scan template file is supplied.
func (c ScanConfig) Normalize() ScanConfig {
	if c.Kind == "" {
		c.Kind = KindDynamic
	}
	if c.ScanType == "" {
		c.ScanType = ScanTypeProduction
	}
	if c.Optimization == "" {
		c.Optimization = OptimizationFast
	}
	c.Optimization = NormalizeOptimization(string(c.Optimization))
	if c.LoginMode == "" {
		c.LoginMode = LoginNone
	}
	if strings.TrimSpace(c.ScanFile) != "" {
		c.ScanType = ScanTypeCustom
	}
	return c
}

// CheckConsistency enforces the cross-field rules that struct tags cannot
// express. It reports every violation at once.
func (c ScanConfig) CheckConsistency() error {
	var errs []error

	if c.Kind != KindDynamic {
		errs = append(errs, fmt.Errorf("unsupported scan kind %q", c.Kind))
	}

	switch c.LoginMode {
	case LoginRecorded:
		switch {
		case strings.TrimSpace(c.TrafficFile) == "":
			errs = append(errs, errors.New("a login sequence file is required for login type Manual"))
		case !strings.EqualFold(filepath.Ext(c.TrafficFile), TrafficConfigExt):
			errs = append(errs, fmt.Errorf("login sequence file %q must have a %s extension", c.TrafficFile, TrafficConfigExt))
		}
	case LoginAutomatic:
		if strings.TrimSpace(c.LoginUser) == "" {
			errs = append(errs, errors.New("login user is required for login type Automatic"))
		}
		if strings.TrimSpace(c.LoginPassword) == "" {
			errs = append(errs, errors.New("login password is required for login type Automatic"))
		}
	}

	if c.ScanFile != "" {
		ext := strings.ToLower(filepath.Ext(c.ScanFile))
		if ext != ScanFileExt && ext != ScanTemplateExt {
			errs = append(errs, fmt.Errorf("scan file %q must have a %s or %s extension", c.ScanFile, ScanFileExt, ScanTemplateExt))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
