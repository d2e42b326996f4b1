package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fleet",
		Short:         "Fleet console CLI: sign in and manage devices, tickets, users, GPS units and PLCs",
		Long:          "fleet signs in to the waste-collection fleet API, keeps the session fresh, and lists or edits fleet resources from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newVersionCmd(), newDevCmd())

	app, err := wireApp()
	if err != nil {
		rootCmd.Args = cobra.ArbitraryArgs
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	var customer string
	rootCmd.PersistentFlags().StringVar(&customer, "customer", "", "Scope fleet requests to this customer (overrides scope.customer)")
	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if customer != "" {
			app.scope.Set(customer)
		}
	}
	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newSessionCmd(app),
		newDevicesCmd(app),
		newTicketsCmd(app),
		newUsersCmd(app),
		newGPSCmd(app),
		newPLCCmd(app),
	)

	return rootCmd
}
