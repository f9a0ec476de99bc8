// Package report provides reporting commands for the reconify CLI.
package report

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/reconify/cmd/reconify/cmd/application"
	"github.com/agentstation/reconify/internal/cmd/output"
	"github.com/agentstation/reconify/pkg/ingest"
	"github.com/agentstation/reconify/pkg/recon"
)

// NewCommand creates the report command group.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		GroupID: "reporting",
		Short:   "Report on runs, users, and uploads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSummariesCommand(app))
	cmd.AddCommand(newDetailCommand(app))
	cmd.AddCommand(newUsersCommand(app))
	cmd.AddCommand(newUploadsCommand(app))
	return cmd
}

func newSummariesCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "summaries",
		Short: "Show every run's summary, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			rs, err := client.Summaries(cmd.Context())
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				data := output.Data{Headers: []string{"RECON ID", "PANEL", "MONTH", "STATUS", "TOTAL", "INTERNAL", "OTHER", "NOT FOUND"}}
				for _, r := range rs {
					data.Rows = append(data.Rows, []string{
						r.ReconID,
						r.PanelName,
						r.ReconMonth,
						r.Status.Display(),
						strconv.Itoa(r.Summary.TotalPanelUsers),
						strconv.Itoa(r.Summary.InternalUsers),
						strconv.Itoa(r.Summary.OtherUsers),
						strconv.Itoa(r.Summary.NotFound),
					})
				}
				return output.NewFormatter(format).Format(os.Stdout, data)
			}
			return output.NewFormatter(format).Format(os.Stdout, rs)
		},
	}
}

func newDetailCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <recon-id>",
		Short: "Show one run with its full result set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			run, results, err := client.SummaryDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				cmd.Printf("Run %s for panel %q (%s), %s\n",
					run.ReconID, run.PanelName, run.ReconMonth, run.Status.Display())
				return output.NewFormatter(format).Format(os.Stdout, resultTable(results))
			}
			return output.NewFormatter(format).Format(os.Stdout, map[string]any{
				"run":     run,
				"results": results,
			})
		},
	}
}

func newUsersCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "Show every match result across all panels and runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			results, err := client.UserWiseSummary(cmd.Context())
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				return output.NewFormatter(format).Format(os.Stdout, resultTable(results))
			}
			return output.NewFormatter(format).Format(os.Stdout, results)
		},
	}
}

func newUploadsCommand(app application.Application) *cobra.Command {
	var kind, identifier string
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Show upload history, newest first",
		Example: `  # All uploads for one panel
  reconify report uploads --kind panel --identifier github`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			recs, err := client.UploadHistory(cmd.Context(), ingest.Filter{
				Kind:       recon.UploadKind(kind),
				Identifier: identifier,
			})
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				data := output.Data{Headers: []string{"KIND", "IDENTIFIER", "FILE", "BY", "ROWS", "STATUS", "AT"}}
				for _, r := range recs {
					data.Rows = append(data.Rows, []string{
						string(r.Kind),
						r.Identifier,
						r.FileName,
						r.UploadedBy,
						strconv.Itoa(r.TotalRows),
						string(r.Status),
						r.Timestamp.String(),
					})
				}
				return output.NewFormatter(format).Format(os.Stdout, data)
			}
			return output.NewFormatter(format).Format(os.Stdout, recs)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "filter by upload kind: panel or sot")
	cmd.Flags().StringVar(&identifier, "identifier", "", "filter by panel name or SOT type")
	return cmd
}

// resultTable renders match results as a table.
func resultTable(results []*recon.UserMatchResult) output.Data {
	data := output.Data{Headers: []string{"IDENTITY", "PANEL", "RECON ID", "CATEGORY", "SUB-STATUS", "FINAL STATUS"}}
	for _, r := range results {
		data.Rows = append(data.Rows, []string{
			r.Identity,
			r.PanelName,
			r.ReconID,
			string(r.Category),
			string(r.SubStatus),
			r.FinalStatus,
		})
	}
	return data
}
