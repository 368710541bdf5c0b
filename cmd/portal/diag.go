package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	portal "github.com/ahadik/photo-portal-device"
)

func diagCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Monitor the wired inputs on the console",
		Long:  "Initializes the configured input drivers and prints every debounced transition, for verifying that switches and buttons are wired correctly. No networking.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "diag"})

			p, err := portal.Load(configPath)
			if err != nil {
				return err
			}
			// diagnostics exercise inputs only
			p.Led = nil
			p.Ads1115 = nil

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p.Setup(logger)
			p.InitDrivers(ctx)
			defer p.Close()

			return p.RunDiagnostic(ctx, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path of the JSON configuration file")

	return cmd
}
