package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/spf13/cobra"
)

var errNotSignedIn = fmt.Errorf("%w: run `fleet login` first", domain.ErrNotAuthenticated)

func newLoginCmd(app *app) *cobra.Command {
	var (
		username      string
		password      string
		passwordStdin bool
		rememberMe    bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the fleet API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password is required: pass --password or --password-stdin")
			}

			session, err := app.sessions.Login(cmd.Context(), domain.LoginCredentials{
				Username:   username,
				Password:   password,
				RememberMe: rememberMe,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", session.Error, err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", session.User.DisplayName())
			return err
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Fleet username")
	cmd.Flags().StringVar(&password, "password", "", "Password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().BoolVar(&rememberMe, "remember-me", false, "Ask the API for a long-lived refresh token")
	_ = cmd.MarkFlagRequired("username")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget stored credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.sessions.Initialize(cmd.Context())
			app.sessions.Logout(cmd.Context())

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return err
		},
	}
}

func newWhoamiCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := requireSession(cmd, app)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, session.User)
			}

			user := session.User
			lines := []string{user.DisplayName()}
			if user.Username != "" && user.Username != user.DisplayName() {
				lines = append(lines, "username: "+user.Username)
			}
			if user.Email != "" {
				lines = append(lines, "email: "+user.Email)
			}
			if user.Role != "" {
				lines = append(lines, "role: "+user.Role)
			}
			if user.CustomerName != "" {
				lines = append(lines, "customer: "+user.CustomerName)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

// requireSession restores the stored session and fails when nobody is
// signed in.
func requireSession(cmd *cobra.Command, app *app) (domain.Session, error) {
	app.sessions.Initialize(cmd.Context())

	session := app.sessions.Snapshot()
	if !session.Authenticated {
		if session.Error != "" {
			return session, fmt.Errorf("%s: %w", session.Error, errNotSignedIn)
		}
		return session, errNotSignedIn
	}
	return session, nil
}

func writeJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
