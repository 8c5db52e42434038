package main

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkdesk/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the editor API",
		Long:  "Run the editor API. Configuration is read from LINKDESK_* environment variables.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.New().Run()
		},
	}
}
