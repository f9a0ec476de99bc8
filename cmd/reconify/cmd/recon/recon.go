// Package recon provides reconciliation workflow commands for the reconify CLI.
package recon

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/reconify/cmd/reconify/cmd/application"
	"github.com/agentstation/reconify/internal/cmd/output"
	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

// NewCommand creates the recon command group.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recon",
		GroupID: "core",
		Short:   "Drive a panel's reconciliation workflow",
		Long: `Drive a panel through its reconciliation workflow.

The workflow runs in order: upload the panel document, categorize it to
split internal from other users, reconcile to match every user against
the configured SOTs, optionally recategorize with a corrected file, and
complete the run. A failed step parks the panel; re-running the step
resumes from where it left off.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newUploadCommand(app))
	cmd.AddCommand(newCategorizeCommand(app))
	cmd.AddCommand(newRunCommand(app))
	cmd.AddCommand(newRecategorizeCommand(app))
	cmd.AddCommand(newCompleteCommand(app))
	cmd.AddCommand(newStatusCommand(app))
	cmd.AddCommand(newHistoryCommand(app))
	return cmd
}

func newUploadCommand(app application.Application) *cobra.Command {
	var uploadedBy string
	cmd := &cobra.Command{
		Use:   "upload <panel> <file>",
		Short: "Upload a panel document, resetting the workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				return errors.WrapIO("read", args[1], err)
			}

			rec, err := client.UploadPanelDocument(cmd.Context(), args[0],
				filepath.Base(args[1]), uploadedBy, data)
			if err != nil {
				return err
			}
			cmd.Printf("Uploaded %d rows to panel %q (doc %s)\n", rec.TotalRows, args[0], rec.DocID)
			return nil
		},
	}
	cmd.Flags().StringVar(&uploadedBy, "by", "", "who performed the upload")
	return cmd
}

func newCategorizeCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <panel>",
		Short: "Split the panel's users into internal and other",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			state, err := client.Categorize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Panel %q: %d internal, %d other users\n",
				state.PanelName, state.InternalUsers, state.OtherUsers)
			return nil
		},
	}
}

func newRunCommand(app application.Application) *cobra.Command {
	var performedBy string
	cmd := &cobra.Command{
		Use:   "run <panel>",
		Short: "Reconcile the panel against the configured SOTs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			run, err := client.Reconcile(cmd.Context(), args[0], performedBy)
			if err != nil {
				return err
			}
			cmd.Printf("Run %s for panel %q (%s): %d of %d users matched, %d not found\n",
				run.ReconID, run.PanelName, run.ReconMonth,
				run.Summary.Matched, run.Summary.TotalPanelUsers, run.Summary.NotFound)
			return nil
		},
	}
	cmd.Flags().StringVar(&performedBy, "by", "", "who performed the reconciliation")
	return cmd
}

func newRecategorizeCommand(app application.Application) *cobra.Command {
	var uploadedBy string
	cmd := &cobra.Command{
		Use:   "recategorize <panel> <file>",
		Short: "Apply a manually corrected file to the current run",
		Long: `Apply a corrected classification file to the panel's current run.

The file must carry an identity column (such as email or user_id) and a
status column (such as final_status). Each row updates the final status
of the matching result; rows that match no result are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				return errors.WrapIO("read", args[1], err)
			}

			res, err := client.Recategorize(cmd.Context(), args[0],
				filepath.Base(args[1]), uploadedBy, data)
			if err != nil {
				return err
			}
			cmd.Printf("Run %s: %d results updated, %d corrections skipped\n",
				res.ReconID, res.Updated, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&uploadedBy, "by", "", "who performed the correction")
	return cmd
}

func newCompleteCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <panel>",
		Short: "Mark the panel's current run completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			run, err := client.Complete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Run %s completed for panel %q\n", run.ReconID, run.PanelName)
			return nil
		},
	}
}

func newStatusCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "status <panel>",
		Short: "Show the panel's workflow position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			state, err := client.PanelState(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format != output.FormatTable {
				return output.NewFormatter(format).Format(os.Stdout, state)
			}
			cmd.Printf("Panel %q is %s\n", state.PanelName, state.Status.Display())
			if state.Error != "" {
				cmd.Printf("  last error: %s\n", state.Error)
			}
			return nil
		},
	}
}

func newHistoryCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "history [panel]",
		Short: "List reconciliation runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			panel := ""
			if len(args) == 1 {
				panel = args[0]
			}
			rs, err := client.RunHistory(cmd.Context(), panel)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				return output.NewFormatter(format).Format(os.Stdout, runTable(rs))
			}
			return output.NewFormatter(format).Format(os.Stdout, rs)
		},
	}
}

// runTable renders runs as a summary table.
func runTable(rs []*recon.ReconciliationRun) output.Data {
	data := output.Data{Headers: []string{"RECON ID", "PANEL", "MONTH", "STATUS", "TOTAL", "MATCHED", "NOT FOUND"}}
	for _, r := range rs {
		data.Rows = append(data.Rows, []string{
			r.ReconID,
			r.PanelName,
			r.ReconMonth,
			r.Status.Display(),
			strconv.Itoa(r.Summary.TotalPanelUsers),
			strconv.Itoa(r.Summary.Matched),
			strconv.Itoa(r.Summary.NotFound),
		})
	}
	return data
}
