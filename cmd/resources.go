package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/fleet-cli/internal/adapters/render/table"
	"github.com/bnema/fleet-cli/internal/adapters/resource"
	"github.com/bnema/fleet-cli/internal/application"
	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/spf13/cobra"
)

type resourceCommand[T any] struct {
	use      string
	title    string
	aliases  []string
	client   *resource.Client[T]
	columns  []table.Column[T]
	identity func(T) string
}

func newDevicesCmd(app *app) *cobra.Command {
	return newResourceCmd(app, resourceCommand[domain.Device]{
		use:      "devices",
		title:    "Devices",
		aliases:  []string{"device"},
		client:   app.devices,
		columns:  table.DeviceColumns(),
		identity: func(d domain.Device) string { return d.ID },
	})
}

func newTicketsCmd(app *app) *cobra.Command {
	return newResourceCmd(app, resourceCommand[domain.Ticket]{
		use:      "tickets",
		title:    "Tickets",
		aliases:  []string{"ticket"},
		client:   app.tickets,
		columns:  table.TicketColumns(),
		identity: func(t domain.Ticket) string { return t.ID },
	})
}

func newUsersCmd(app *app) *cobra.Command {
	return newResourceCmd(app, resourceCommand[domain.User]{
		use:      "users",
		title:    "Users",
		aliases:  []string{"user"},
		client:   app.users,
		columns:  table.UserColumns(),
		identity: func(u domain.User) string { return u.ID },
	})
}

func newGPSCmd(app *app) *cobra.Command {
	return newResourceCmd(app, resourceCommand[domain.GPSUnit]{
		use:      "gps",
		title:    "GPS units",
		client:   app.gps,
		columns:  table.GPSColumns(),
		identity: func(g domain.GPSUnit) string { return g.ID },
	})
}

func newPLCCmd(app *app) *cobra.Command {
	return newResourceCmd(app, resourceCommand[domain.PLC]{
		use:      "plc",
		title:    "PLCs",
		aliases:  []string{"plcs"},
		client:   app.plcs,
		columns:  table.PLCColumns(),
		identity: func(p domain.PLC) string { return p.ID },
	})
}

func newResourceCmd[T any](app *app, rc resourceCommand[T]) *cobra.Command {
	actions := application.NewResourceActions[T](rc.use, rc.client,
		application.WithIdentity(rc.identity),
		application.WithActionsLogger[T](app.logger),
	)

	cmd := &cobra.Command{
		Use:     rc.use,
		Aliases: rc.aliases,
		Short:   fmt.Sprintf("List and edit %s", strings.ToLower(rc.title)),
	}

	cmd.AddCommand(
		newResourceListCmd(app, rc, actions),
		newResourceGetCmd(app, rc, actions),
		newResourceCreateCmd(app, rc, actions),
		newResourceUpdateCmd(app, rc, actions),
		newResourceDeleteCmd(app, actions),
	)
	if rc.client.Supports(resource.OpSearch) {
		cmd.AddCommand(newResourceSearchCmd(app, rc, actions))
	}
	if rc.client.Supports(resource.OpStats) {
		cmd.AddCommand(newResourceStatsCmd(app, rc))
	}

	return cmd
}

type listOutput[T any] struct {
	Items      []T               `json:"items"`
	Pagination domain.Pagination `json:"pagination"`
}

func newResourceListCmd[T any](app *app, rc resourceCommand[T], actions *application.ResourceActions[T]) *cobra.Command {
	var (
		page     int
		pageSize int
		filters  map[string]string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + strings.ToLower(rc.title),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := requireSession(cmd, app); err != nil {
				return err
			}

			override := &application.LoadOverride{Page: page, PageSize: pageSize, Filters: domain.Filters(filters)}
			load := func(ctx context.Context) error {
				_, err := actions.Load(ctx, override)
				return err
			}

			if asJSON {
				if err := load(cmd.Context()); err != nil {
					return err
				}
				snapshot := actions.Snapshot()
				return writeJSON(cmd, listOutput[T]{Items: snapshot.Items, Pagination: snapshot.Pagination})
			}

			request := listFetch{resource: strings.ToLower(rc.title), page: page, pageSize: pageSize, filters: filters}
			if err := runListSpinner(cmd.Context(), cmd.ErrOrStderr(), request, load); err != nil {
				return err
			}
			snapshot := actions.Snapshot()
			_, err := fmt.Fprintln(cmd.OutOrStdout(), table.Render(rc.title, snapshot.Items, rc.columns, &snapshot.Pagination))
			return err
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", application.DefaultPageSize, "Items per page")
	cmd.Flags().StringToStringVar(&filters, "filter", nil, "Filter as key=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newResourceGetCmd[T any](app *app, rc resourceCommand[T], actions *application.ResourceActions[T]) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd, app); err != nil {
				return err
			}

			item, err := actions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeItem(cmd, rc, item, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newResourceCreateCmd[T any](app *app, rc resourceCommand[T], actions *application.ResourceActions[T]) *cobra.Command {
	var (
		data   string
		sets   map[string]string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an item from --data JSON and --set fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := buildPayload(data, sets)
			if err != nil {
				return err
			}
			if len(payload) == 0 {
				return errors.New("nothing to create: pass --data or --set")
			}
			if _, err := requireSession(cmd, app); err != nil {
				return err
			}

			created, err := actions.Create(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return writeItem(cmd, rc, created, asJSON)
		},
	}

	addPayloadFlags(cmd, &data, &sets)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newResourceUpdateCmd[T any](app *app, rc resourceCommand[T], actions *application.ResourceActions[T]) *cobra.Command {
	var (
		data   string
		sets   map[string]string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, err := buildPayload(data, sets)
			if err != nil {
				return err
			}
			if len(partial) == 0 {
				return errors.New("nothing to update: pass --data or --set")
			}
			if _, err := requireSession(cmd, app); err != nil {
				return err
			}

			updated, ok, err := actions.Update(cmd.Context(), args[0], partial)
			if err != nil {
				return err
			}
			if !ok {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Updated %s.\n", args[0])
				return err
			}
			return writeItem(cmd, rc, updated, asJSON)
		},
	}

	addPayloadFlags(cmd, &data, &sets)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newResourceDeleteCmd[T any](app *app, actions *application.ResourceActions[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd, app); err != nil {
				return err
			}

			if err := actions.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
			return err
		},
	}
}

func newResourceSearchCmd[T any](app *app, rc resourceCommand[T], actions *application.ResourceActions[T]) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Search " + strings.ToLower(rc.title),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd, app); err != nil {
				return err
			}

			items, err := actions.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, items)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), table.Render(rc.title, items, rc.columns, nil))
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of matches")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newResourceStatsCmd[T any](app *app, rc resourceCommand[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate counters for " + strings.ToLower(rc.title),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := requireSession(cmd, app); err != nil {
				return err
			}

			stats, err := rc.client.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s stats: %w", rc.use, err)
			}
			return writeJSON(cmd, stats)
		},
	}
}

func writeItem[T any](cmd *cobra.Command, rc resourceCommand[T], item T, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, item)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), table.Render(rc.title, []T{item}, rc.columns, nil))
	return err
}

func addPayloadFlags(cmd *cobra.Command, data *string, sets *map[string]string) {
	cmd.Flags().StringVar(data, "data", "", "JSON object with the fields to send")
	cmd.Flags().StringToStringVar(sets, "set", nil, "Field as key=value (repeatable); values are parsed as JSON when possible")
}

// buildPayload merges --data and --set. --set wins on conflicts.
func buildPayload(data string, sets map[string]string) (map[string]any, error) {
	payload := map[string]any{}
	if strings.TrimSpace(data) != "" {
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, fmt.Errorf("--data must be a JSON object: %w", err)
		}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	for key, raw := range sets {
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		payload[key] = value
	}
	return payload, nil
}
