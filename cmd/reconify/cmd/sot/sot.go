// Package sot provides source-of-truth commands for the reconify CLI.
package sot

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

// NewCommand creates the sot command group.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sot",
		GroupID: "core",
		Short:   "Manage source-of-truth datasets",
		Long: `Manage the source-of-truth datasets panels are reconciled against.

Each upload replaces the SOT's current snapshot wholesale. The built-in
SOT types are hr_data, internal_users, service_users, and thirdparty_users.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newUploadCommand(app))
	cmd.AddCommand(newFieldsCommand(app))
	return cmd
}

func newListCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded SOTs with their row counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			types, err := client.SOTs(cmd.Context())
			if err != nil {
				return err
			}

			data := output.Data{Headers: []string{"TYPE", "ROWS"}}
			for _, t := range types {
				count, err := client.SOTRowCount(cmd.Context(), t)
				if err != nil {
					return err
				}
				data.Rows = append(data.Rows, []string{t.String(), strconv.Itoa(count)})
			}

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				return output.NewFormatter(format).Format(os.Stdout, data)
			}
			return output.NewFormatter(format).Format(os.Stdout, types)
		},
	}
}

func newUploadCommand(app application.Application) *cobra.Command {
	var uploadedBy string
	cmd := &cobra.Command{
		Use:   "upload <type> <file>",
		Short: "Upload a SOT document, replacing the current snapshot",
		Args:  cobra.ExactArgs(2),
		Example: `  # Replace the HR dataset
  reconify sot upload hr_data hr_export.csv --by alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				return errors.WrapIO("read", args[1], err)
			}

			snap, err := client.UploadSOT(cmd.Context(), recon.SOTType(args[0]),
				filepath.Base(args[1]), uploadedBy, data)
			if err != nil {
				return err
			}
			cmd.Printf("SOT %s now at version %d with %d rows\n", snap.Type, snap.Version, snap.RowCount())
			return nil
		},
	}
	cmd.Flags().StringVar(&uploadedBy, "by", "", "who performed the upload")
	return cmd
}

func newFieldsCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <type>",
		Short: "Show a SOT's current column set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			fields, err := client.SOTFields(cmd.Context(), recon.SOTType(args[0]))
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				for _, f := range fields {
					cmd.Println(f)
				}
				return nil
			}
			return output.NewFormatter(format).Format(os.Stdout, fields)
		},
	}
}
