package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// NewRootCmd builds the command tree. args includes the program name.
func NewRootCmd(a *app, args []string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scangate",
		Short:         "Run dynamic security scans from a build pipeline and gate on the results",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Cobra checks required flags and flag groups only after this hook,
			// so check them first to keep them usage errors.
			if err := cmd.ValidateRequiredFlags(); err != nil {
				return fmt.Errorf("%w: %w", model.ErrConfiguration, err)
			}
			if err := cmd.ValidateFlagGroups(); err != nil {
				return fmt.Errorf("%w: %w", model.ErrConfiguration, err)
			}
			return a.setup(cmd.Context())
		},
	}

	rootCmd.AddCommand(NewInvokeDynamicScanCmd(a))
	rootCmd.AddCommand(NewGetApplicationsCmd(a))
	rootCmd.AddCommand(NewGetPresenceIDsCmd(a))
	rootCmd.AddCommand(NewHistoryCmd(a))
	rootCmd.AddCommand(NewConfigureCmd(a))

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	})

	if len(args) > 0 {
		rootCmd.SetArgs(args[1:])
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	return rootCmd
}

// serviceFlags are the connection flags shared by every command that talks
// to the scan service.
type serviceFlags struct {
	key            string
	secret         string
	serviceURL     string
	allowUntrusted bool
}

func registerServiceFlags(fs *pflag.FlagSet, f *serviceFlags) {
	fs.StringVar(&f.key, "key", "", "API key (falls back to the stored key)")
	fs.StringVar(&f.secret, "secret", "", "API secret (falls back to the stored secret)")
	fs.StringVar(&f.serviceURL, "serviceUrl", "", "Scan service URL, required for local API keys")
	fs.BoolVar(&f.allowUntrusted, "allowUntrusted", false, "Accept untrusted TLS certificates from the scan service")
}
