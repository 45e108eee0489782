package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/dentdocs/internal/client/config"
	"github.com/dmitrijs2005/dentdocs/internal/client/store"
)

func (a *App) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the document store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(st store.Store) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), a.config.ReserveTimeout)
				defer cancel()

				if err := st.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok (%s)\n", a.endpoint())
				return nil
			})
		},
	}
}

func (a *App) endpoint() string {
	if a.config.Transport == config.TransportHTTP {
		return a.config.BaseURL
	}
	return a.config.ServerEndpointAddr
}
