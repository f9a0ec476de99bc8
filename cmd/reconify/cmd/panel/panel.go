// Package panel provides panel configuration commands for the reconify CLI.
package panel

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/reconify/cmd/reconify/cmd/application"
	"github.com/agentstation/reconify/internal/cmd/output"
	"github.com/agentstation/reconify/pkg/recon"
)

// NewCommand creates the panel command group.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "panel",
		GroupID: "core",
		Short:   "Manage audited panel configurations",
		Long: `Manage the panels whose user access is reconciled.

A panel is configured with the column headers its documents carry and a
join-key mapping per source of truth: which panel column is compared
against which SOT column during matching.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newAddCommand(app))
	cmd.AddCommand(newGetCommand(app))
	cmd.AddCommand(newDeleteCommand(app))
	cmd.AddCommand(newMapCommand(app))
	cmd.AddCommand(newUnmapCommand(app))
	cmd.AddCommand(newHeadersCommand(app))
	return cmd
}

func newListCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured panels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			panels, err := client.Panels(cmd.Context())
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				data := output.Data{Headers: []string{"NAME", "MAPPED SOTS", "HEADERS"}}
				for _, p := range panels {
					data.Rows = append(data.Rows, []string{
						p.Name,
						mappingSummary(p.KeyMapping),
						strings.Join(p.PanelHeaders, ", "),
					})
				}
				return output.NewFormatter(format).Format(os.Stdout, data)
			}
			return output.NewFormatter(format).Format(os.Stdout, panels)
		},
	}
}

func newAddCommand(app application.Application) *cobra.Command {
	var headers []string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a panel",
		Args:  cobra.ExactArgs(1),
		Example: `  # Add a panel with known document headers
  reconify panel add github --headers empid,email`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			cfg, err := client.CreatePanel(cmd.Context(), args[0], headers)
			if err != nil {
				return err
			}
			cmd.Printf("Panel %q created\n", cfg.Name)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&headers, "headers", nil, "panel document column headers (comma-separated)")
	return cmd
}

func newGetCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show one panel configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			cfg, err := client.Panel(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				data := output.Data{Headers: []string{"SOT", "SOT FIELD", "PANEL FIELD"}}
				for _, t := range sortedSOTs(cfg.KeyMapping) {
					pair := cfg.KeyMapping[t]
					data.Rows = append(data.Rows, []string{t.String(), pair.SOTField, pair.PanelField})
				}
				return output.NewFormatter(format).Format(os.Stdout, data)
			}
			return output.NewFormatter(format).Format(os.Stdout, cfg)
		},
	}
}

func newDeleteCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a panel and everything derived from it",
		Long: `Delete a panel along with its row data, upload records, workflow
state, runs, and match results. SOT data is shared and is not removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			if err := client.DeletePanel(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Panel %q deleted\n", args[0])
			return nil
		},
	}
}

func newMapCommand(app application.Application) *cobra.Command {
	var sotType, sotField, panelField string
	cmd := &cobra.Command{
		Use:   "map <name>",
		Short: "Set a panel's join key for one SOT",
		Args:  cobra.ExactArgs(1),
		Example: `  # Compare the panel's empid column against the SOT's emp_id column
  reconify panel map github --sot internal_users --sot-field emp_id --panel-field empid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			cfg, err := client.SetMapping(cmd.Context(), args[0], recon.SOTType(sotType), sotField, panelField)
			if err != nil {
				return err
			}
			pair := cfg.KeyMapping[recon.SOTType(sotType)]
			cmd.Printf("Panel %q maps %s.%s to panel field %q\n", cfg.Name, sotType, pair.SOTField, pair.PanelField)
			return nil
		},
	}
	cmd.Flags().StringVar(&sotType, "sot", "", "SOT type to map against")
	cmd.Flags().StringVar(&sotField, "sot-field", "", "SOT column holding the join key")
	cmd.Flags().StringVar(&panelField, "panel-field", "", "panel column holding the join key")
	_ = cmd.MarkFlagRequired("sot")
	_ = cmd.MarkFlagRequired("sot-field")
	_ = cmd.MarkFlagRequired("panel-field")
	return cmd
}

func newUnmapCommand(app application.Application) *cobra.Command {
	var sotType string
	cmd := &cobra.Command{
		Use:   "unmap <name>",
		Short: "Remove a panel's join key for one SOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			if _, err := client.ClearMapping(cmd.Context(), args[0], recon.SOTType(sotType)); err != nil {
				return err
			}
			cmd.Printf("Panel %q no longer maps against %s\n", args[0], sotType)
			return nil
		},
	}
	cmd.Flags().StringVar(&sotType, "sot", "", "SOT type to unmap")
	_ = cmd.MarkFlagRequired("sot")
	return cmd
}

func newHeadersCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "headers <name>",
		Short: "Show a panel's detected document headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			headers, err := client.PanelHeaders(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				for _, h := range headers {
					cmd.Println(h)
				}
				return nil
			}
			return output.NewFormatter(format).Format(os.Stdout, headers)
		},
	}
}

// mappingSummary renders a key mapping as "sot=panel_field" pairs.
func mappingSummary(m recon.KeyMapping) string {
	parts := make([]string, 0, len(m))
	for _, t := range sortedSOTs(m) {
		parts = append(parts, fmt.Sprintf("%s=%s", t, m[t].PanelField))
	}
	return strings.Join(parts, ", ")
}

// sortedSOTs returns the mapping's SOT types in stable order.
func sortedSOTs(m recon.KeyMapping) []recon.SOTType {
	types := make([]recon.SOTType, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
