package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ericfisherdev/scangate/internal/adapter/driven/connectivity"
	"github.com/ericfisherdev/scangate/internal/application"
	"github.com/ericfisherdev/scangate/internal/domain/model"
)

const (
	invokeDynamicScanCmdShort = "Submit a dynamic scan, wait for its results and gate the build on them"
	failBuildIfCmdShort       = "Fail the build when finding counts exceed the given thresholds"
)

// scanFlags mirrors the invokedynamicscan command line.
type scanFlags struct {
	service serviceFlags

	appID                  string
	scanName               string
	target                 string
	scanType               string
	optimization           string
	reportFormat           string
	presenceID             string
	waitForResults         bool
	failBuildNonCompliance bool
	scanFile               string
	loginType              string
	loginUser              string
	loginPassword          string
	trafficFile            string
	emailNotification      bool
	allowIntervention      bool
}

// thresholdFlags holds the failbuildif ceilings. Only flags that were set
// become ceilings.
type thresholdFlags struct {
	total, critical, high, medium, low int
}

func NewInvokeDynamicScanCmd(a *app) *cobra.Command {
	f := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "invokedynamicscan",
		Short: invokeDynamicScanCmdShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.runOptions()
			if err != nil {
				return err
			}
			if f.failBuildNonCompliance {
				opts.Gate.Policy = model.PolicyNonCompliance
			}
			return runScan(cmd, a, f, opts)
		},
	}

	registerScanFlags(cmd.PersistentFlags(), f)
	_ = cmd.MarkPersistentFlagRequired("appId")
	_ = cmd.MarkPersistentFlagRequired("target")

	cmd.AddCommand(NewFailBuildIfCmd(a, f))
	return cmd
}

func NewFailBuildIfCmd(a *app, f *scanFlags) *cobra.Command {
	t := &thresholdFlags{}

	cmd := &cobra.Command{
		Use:   "failbuildif",
		Short: failBuildIfCmdShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.failBuildNonCompliance {
				return fmt.Errorf("%w: failbuildif cannot be combined with --failBuildNonCompliance", model.ErrConfiguration)
			}
			opts, err := f.runOptions()
			if err != nil {
				return err
			}
			opts.Gate.Policy = model.PolicyThreshold
			opts.Gate.Thresholds = t.thresholds(cmd.Flags())
			return runScan(cmd, a, f, opts)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&t.total, "totalissuesgt", 0, "Fail when the total number of issues is greater than this")
	fs.IntVar(&t.critical, "criticalissuesgt", 0, "Fail when the number of critical issues is greater than this")
	fs.IntVar(&t.high, "highissuesgt", 0, "Fail when the number of high issues is greater than this")
	fs.IntVar(&t.medium, "medissuesgt", 0, "Fail when the number of medium issues is greater than this")
	fs.IntVar(&t.low, "lowissuesgt", 0, "Fail when the number of low issues is greater than this")
	return cmd
}

func registerScanFlags(fs *pflag.FlagSet, f *scanFlags) {
	registerServiceFlags(fs, &f.service)
	fs.StringVar(&f.appID, "appId", "", "Application the scan is associated with (required)")
	fs.StringVar(&f.scanName, "scanName", "", "Scan name; a timestamp is appended")
	fs.StringVar(&f.target, "target", "", "URL the scan starts exploring from (required)")
	fs.StringVar(&f.scanType, "scanType", string(model.ScanTypeProduction), "Production or Staging")
	fs.StringVar(&f.optimization, "optimization", string(model.OptimizationFast), "Fast, Faster, Fastest or NoOptimization")
	fs.StringVar(&f.reportFormat, "reportFormat", string(model.ReportHTML), "Report format: html, pdf, csv or xml")
	fs.StringVar(&f.presenceID, "presenceId", "", "Presence used to reach sites that are not on the internet")
	fs.BoolVar(&f.waitForResults, "waitForResults", true, "Wait until the results are available")
	fs.BoolVar(&f.failBuildNonCompliance, "failBuildNonCompliance", false, "Fail when any issue is non-compliant with the application's policies")
	fs.StringVar(&f.scanFile, "scanFile", "", "Scan template file (.scan or .scant)")
	fs.StringVar(&f.loginType, "loginType", string(model.LoginNone), "None, Automatic or Manual")
	fs.StringVar(&f.loginUser, "loginUser", "", "User for Automatic login")
	fs.StringVar(&f.loginPassword, "loginPassword", "", "Password for Automatic login")
	fs.StringVar(&f.trafficFile, "trafficFile", "", "Login sequence file (.config) for Manual login")
	fs.BoolVar(&f.emailNotification, "emailNotification", false, "Email when the scan completes")
	fs.BoolVar(&f.allowIntervention, "allowIntervention", false, "Let the service team intervene when needed")
}

// runOptions converts the parsed flags into application.RunOptions.
func (f *scanFlags) runOptions() (application.RunOptions, error) {
	format := model.ReportFormat(strings.ToLower(strings.TrimSpace(f.reportFormat)))
	switch format {
	case model.ReportHTML, model.ReportPDF, model.ReportCSV, model.ReportXML:
	default:
		return application.RunOptions{}, fmt.Errorf("%w: --reportFormat %q must be one of html, pdf, csv, xml", model.ErrConfiguration, f.reportFormat)
	}

	return application.RunOptions{
		Key:    f.service.key,
		Secret: f.service.secret,
		Scan: model.ScanConfig{
			Kind:              model.KindDynamic,
			AppID:             f.appID,
			ScanName:          f.scanName,
			Target:            f.target,
			ScanType:          model.ScanType(f.scanType),
			Optimization:      model.Optimization(f.optimization),
			LoginMode:         model.LoginMode(f.loginType),
			LoginUser:         f.loginUser,
			LoginPassword:     f.loginPassword,
			TrafficFile:       f.trafficFile,
			ScanFile:          f.scanFile,
			PresenceID:        f.presenceID,
			EmailNotification: f.emailNotification,
			AllowIntervention: f.allowIntervention,
		},
		ReportFormat: format,
		Gate:         application.GateOptions{Policy: model.PolicyNone, WaitForResults: f.waitForResults},
	}, nil
}

func (t *thresholdFlags) thresholds(fs *pflag.FlagSet) model.ThresholdSpec {
	var ts model.ThresholdSpec
	set := func(name string, v int) *int {
		if !fs.Changed(name) {
			return nil
		}
		return &v
	}
	ts.Total = set("totalissuesgt", t.total)
	ts.Critical = set("criticalissuesgt", t.critical)
	ts.High = set("highissuesgt", t.high)
	ts.Medium = set("medissuesgt", t.medium)
	ts.Low = set("lowissuesgt", t.low)
	return ts
}

// runScan wires the scan pipeline for one invocation and runs it.
func runScan(cmd *cobra.Command, a *app, f *scanFlags, opts application.RunOptions) error {
	ctx := cmd.Context()

	conn, err := a.connect(ctx, &f.service)
	if err != nil {
		return err
	}
	opts.Key, opts.Secret = conn.key, conn.secret

	gw := conn.gateway
	runner := application.NewScanRunner(
		gw,
		conn.client,
		application.NewScanOrchestrator(conn.client, gw, a.cfg.ClientType(), a.cfg.ClientIdentity),
		application.NewStatusPoller(conn.client, connectivity.NewProbe(0), gw, application.NewLogProgressReporter(nil), a.cfg.PollInterval),
		application.NewResultAggregator(conn.client, gw),
		application.NewArtifactDownloader(conn.client, a.cfg.DownloadDir, a.cfg.DownloadTimeout),
		a.history,
	)

	res, err := runner.Run(ctx, opts)
	if res != nil {
		printRunResult(cmd.OutOrStdout(), res)
	}
	return err
}
