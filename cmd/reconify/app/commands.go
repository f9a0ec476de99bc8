package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/reconify/cmd/reconify/cmd/panel"
	"github.com/agentstation/reconify/cmd/reconify/cmd/recon"
	"github.com/agentstation/reconify/cmd/reconify/cmd/report"
	"github.com/agentstation/reconify/cmd/reconify/cmd/serve"
	"github.com/agentstation/reconify/cmd/reconify/cmd/sot"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(panel.NewCommand(a))
	rootCmd.AddCommand(sot.NewCommand(a))
	rootCmd.AddCommand(recon.NewCommand(a))
	rootCmd.AddCommand(serve.NewCommand(a))

	// Reporting commands
	rootCmd.AddCommand(report.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("reconify %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
