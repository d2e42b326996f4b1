package session

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Status is what `fleet session status` shows. TokenExpiresAt is zero when the
// access token carries no readable expiry.
type Status struct {
	Session        domain.Session
	TokenExpiresAt time.Time
	Scope          domain.Scope
}

type RenderOptions struct {
	Now         time.Time
	IdleTimeout time.Duration
}

func renderView(status Status, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Fleet Session")}

	session := status.Session
	if !session.Authenticated {
		lines = append(lines, s.empty.Render("Not signed in."))
		if session.Error != "" {
			lines = append(lines, s.warning.Render(session.Error))
		}
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.user.Render(userTitle(session.User)))
	if session.User.Role != "" {
		lines = append(lines, field(s, "role", session.User.Role))
	}
	if session.User.CustomerName != "" {
		lines = append(lines, field(s, "customer", session.User.CustomerName))
	}
	if !status.Scope.Empty() {
		lines = append(lines, field(s, "scope", fmt.Sprintf("%s=%s", status.Scope.Param, status.Scope.Value)))
	}

	lines = append(lines, tokenLine(status.TokenExpiresAt, opts.Now, s))
	if line := idleLine(session.LastActivity, opts, s); line != "" {
		lines = append(lines, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func userTitle(user *domain.UserProfile) string {
	name := user.DisplayName()
	if user.Username != "" && user.Username != name {
		return fmt.Sprintf("%s (%s)", name, user.Username)
	}
	return name
}

func field(s styles, label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(label+":"), " ", s.detail.Render(value))
}

func tokenLine(expiresAt time.Time, now time.Time, s styles) string {
	label := s.label.Render("access token:")
	switch {
	case expiresAt.IsZero():
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render("no expiry"))
	case now.IsZero():
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render("expires "+expiresAt.Format(time.RFC3339)))
	case !now.Before(expiresAt):
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.warning.Render("expired (renews on next request)"))
	default:
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.ok.Render("expires in "+formatDuration(expiresAt.Sub(now))))
	}
}

// idleLine shows how much of the idle budget is left before CheckTimeout
// signs the session out.
func idleLine(lastActivity time.Time, opts RenderOptions, s styles) string {
	if lastActivity.IsZero() || opts.Now.IsZero() || opts.IdleTimeout <= 0 {
		return ""
	}

	idle := max(opts.Now.Sub(lastActivity), 0)
	left := opts.IdleTimeout - idle
	leftPercent := clampPercent(100 * left.Seconds() / opts.IdleTimeout.Seconds())

	meta := s.detail.Render(fmt.Sprintf("%s left", formatDuration(max(left, 0))))
	if left <= 0 {
		meta = s.warning.Render("timed out")
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.label.Render("idle:"),
		" ",
		renderProgressBar(leftPercent, 24, s),
		" ",
		meta,
	)
}

func renderProgressBar(leftPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(leftPercent) / 100))
	filled = min(max(filled, 0), width)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	return min(max(v, 0), 100)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
