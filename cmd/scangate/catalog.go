package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/scangate/internal/application"
	"github.com/ericfisherdev/scangate/internal/domain/model"
)

func NewGetApplicationsCmd(a *app) *cobra.Command {
	f := &serviceFlags{}

	cmd := &cobra.Command{
		Use:   "getapplications",
		Short: "List the applications visible to the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := a.connect(cmd.Context(), f)
			if err != nil {
				return err
			}
			apps, err := application.NewCatalog(conn.gateway, conn.client).Applications(cmd.Context(), conn.key, conn.secret)
			if err != nil {
				return err
			}
			return printApplications(cmd.OutOrStdout(), apps)
		},
	}

	registerServiceFlags(cmd.Flags(), f)
	return cmd
}

func NewGetPresenceIDsCmd(a *app) *cobra.Command {
	f := &serviceFlags{}

	cmd := &cobra.Command{
		Use:   "getpresenceids",
		Short: "List the presences visible to the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := a.connect(cmd.Context(), f)
			if err != nil {
				return err
			}
			presences, err := application.NewCatalog(conn.gateway, conn.client).Presences(cmd.Context(), conn.key, conn.secret)
			if err != nil {
				return err
			}
			return printPresences(cmd.OutOrStdout(), presences)
		},
	}

	registerServiceFlags(cmd.Flags(), f)
	return cmd
}

func NewHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent scan runs recorded on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.history == nil {
				return fmt.Errorf("%w: scan history is disabled or unavailable (SCANGATE_DB_PATH)", model.ErrConfiguration)
			}
			records, err := a.history.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

func NewConfigureCmd(a *app) *cobra.Command {
	var (
		key, secret string
		show, clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Manage the API key pair stored encrypted in the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, out := cmd.Context(), cmd.OutOrStdout()

			switch {
			case show:
				creds, err := application.StoredCredentials(ctx, a.creds)
				if err != nil {
					return err
				}
				return printStoredCredentials(out, creds)
			case clearAll:
				removed, err := application.ClearCredentials(ctx, a.creds)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d stored credential(s) from %s\n", removed, a.db.Path())
				return nil
			}

			if err := application.SaveCredentials(ctx, a.creds, key, secret); err != nil {
				return err
			}
			fmt.Fprintf(out, "Credentials saved to %s\n", a.db.Path())
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&key, "key", "", "API key")
	fs.StringVar(&secret, "secret", "", "API secret")
	fs.BoolVar(&show, "show", false, "List stored credentials and when they were last updated")
	fs.BoolVar(&clearAll, "clear", false, "Remove the stored key pair and cached tokens")
	cmd.MarkFlagsRequiredTogether("key", "secret")
	cmd.MarkFlagsOneRequired("key", "show", "clear")
	cmd.MarkFlagsMutuallyExclusive("key", "show", "clear")
	return cmd
}
