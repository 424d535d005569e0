package main

import (
	"github.com/spf13/cobra"

	"github.com/soundstack/soundstack/internal/app/runtime"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			app, err := runtime.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}
