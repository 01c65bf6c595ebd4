package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/filmjoin/app"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}

			serveErr := a.Serve(ctx)
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
			defer cancel()
			return errors.Join(serveErr, a.Close(closeCtx))
		},
	}
	cmd.Flags().String("addr", "", "Listen address, e.g. :8000")
	return cmd
}
