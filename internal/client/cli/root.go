package cli

import (
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/dentdocs/internal/logging"
)

func (a *App) rootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:          "dentctl",
		Short:        "Upload and browse patient documents",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.logger = logging.NewText(a.errOut, a.config.LogLevel)
			return a.config.Validate()
		},
	}
	a.config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		a.uploadCommand(),
		a.listCommand(),
		a.orphansCommand(),
		a.pingCommand(),
	)
	return root
}
