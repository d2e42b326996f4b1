package cmd

import (
	"fmt"
	"time"

	sessionrender "github.com/bnema/fleet-cli/internal/adapters/render/session"
	"github.com/bnema/fleet-cli/internal/adapters/token"
	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/spf13/cobra"
)

type sessionStatusOutput struct {
	Authenticated  bool                `json:"authenticated"`
	User           *domain.UserProfile `json:"user,omitempty"`
	TokenExpiresAt *time.Time          `json:"token_expires_at,omitempty"`
	LastActivity   *time.Time          `json:"last_activity,omitempty"`
	Scope          *domain.Scope       `json:"scope,omitempty"`
	Error          string              `json:"error,omitempty"`
}

type sessionCheckOutput struct {
	TimedOut bool   `json:"timed_out"`
	Reason   string `json:"reason,omitempty"`
}

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and maintain the stored session",
	}

	cmd.AddCommand(newSessionStatusCmd(app), newSessionCheckCmd(app), newSessionRefreshCmd(app))

	return cmd
}

func newSessionStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in and when the session lapses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.sessions.Initialize(cmd.Context())
			session := app.sessions.Snapshot()
			scope, scoped := app.scope.CurrentScope(cmd.Context())
			expiresAt, _ := token.ExpiresAt(session.AccessToken)

			if asJSON {
				out := sessionStatusOutput{Authenticated: session.Authenticated, User: session.User, Error: session.Error}
				if !expiresAt.IsZero() {
					out.TokenExpiresAt = &expiresAt
				}
				if !session.LastActivity.IsZero() {
					out.LastActivity = &session.LastActivity
				}
				if scoped {
					out.Scope = &scope
				}
				return writeJSON(cmd, out)
			}

			status := sessionrender.Status{Session: session, TokenExpiresAt: expiresAt}
			if scoped {
				status.Scope = scope
			}
			rendered, err := app.sessionRenderer(status, sessionrender.RenderOptions{
				Now:         app.now(),
				IdleTimeout: app.cfg.Session.IdleTimeout,
			})
			if err != nil {
				return fmt.Errorf("render session: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newSessionCheckCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Sign out if the session is idle or can no longer be renewed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.sessions.Initialize(cmd.Context())
			result := app.sessions.CheckTimeout(cmd.Context())

			if asJSON {
				return writeJSON(cmd, sessionCheckOutput{TimedOut: result.TimedOut, Reason: result.Reason})
			}

			msg := "Session active."
			switch {
			case result.TimedOut:
				msg = "Signed out: " + result.Reason
			case !app.sessions.Snapshot().Authenticated:
				msg = "Not signed in."
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newSessionRefreshCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := requireSession(cmd, app); err != nil {
				return err
			}

			grant, err := app.sessions.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("refresh session: %w", err)
			}

			msg := "Session refreshed."
			if expiresAt, ok := token.ExpiresAt(grant.AccessToken); ok {
				msg = fmt.Sprintf("Session refreshed; access token valid until %s.", expiresAt.Local().Format(time.Kitchen))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
}
