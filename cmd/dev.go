package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/fakeapi"
	"github.com/bnema/fleet-cli/internal/logging"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newDevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Local development helpers",
	}

	cmd.AddCommand(newMockServerCmd())

	return cmd
}

func newMockServerCmd() *cobra.Command {
	var (
		addr      string
		username  string
		password  string
		customer  string
		accessTTL time.Duration
		seed      bool
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory fleet API for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.New(logging.Options{Level: logLevel, Output: os.Stderr})
			server := fakeapi.New(fakeapi.Options{
				AccessTTL: accessTTL,
				Logger:    &logger,
				Accounts: []fakeapi.Account{{
					Username: username,
					Password: password,
					Profile:  domain.UserProfile{Username: username, Role: "admin", CustomerName: customer},
				}},
			})
			if seed {
				seedMockServer(server, customer)
			}

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}

			httpServer := &http.Server{Handler: server, ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.Serve(listener)
			}()

			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Mock fleet API listening on http://%s/ (user %q)\n", listener.Addr(), username); err != nil {
				return err
			}

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), shutdownTimeout)
				defer cancel()
				return httpServer.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringVar(&username, "user", "demo", "Username accepted by /auth/login")
	cmd.Flags().StringVar(&password, "password", "demo", "Password accepted by /auth/login")
	cmd.Flags().StringVar(&customer, "customer", "Acme", "Customer assigned to the demo user")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", 5*time.Minute, "Lifetime of issued access tokens")
	cmd.Flags().BoolVar(&seed, "seed", true, "Populate the API with sample data")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Request log level")

	return cmd
}

func seedMockServer(server *fakeapi.Server, customer string) {
	devices := server.Seed("devices",
		map[string]any{"serial": "BIN-0001", "name": "Market square", "status": 1, "fill_level": 64, "customer_Name": customer},
		map[string]any{"serial": "BIN-0002", "name": "Station north", "status": 1, "fill_level": 91, "customer_Name": customer},
		map[string]any{"serial": "BIN-0003", "name": "Harbor gate", "status": 2, "fill_level": 12, "customer_Name": customer},
		map[string]any{"serial": "BIN-0100", "name": "Depot", "status": 1, "fill_level": 40, "customer_Name": "Globex"},
	)
	server.Seed("tickets",
		map[string]any{"title": "Lid jammed", "device_id": devices[1], "priority": "high", "status": "open", "customer_Name": customer},
		map[string]any{"title": "Sensor offline", "device_id": devices[2], "priority": "normal", "status": "closed", "customer_Name": customer},
	)
	server.Seed("gps",
		map[string]any{"imei": "356938035643809", "device_id": devices[0], "latitude": 48.8566, "longitude": 2.3522, "customer_Name": customer},
	)
	server.Seed("plc",
		map[string]any{"serial": "PLC-7", "device_id": devices[0], "firmware": "2.4.1", "online": true, "customer_Name": customer},
	)
}
