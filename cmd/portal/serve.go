package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	portal "github.com/ahadik/photo-portal-device"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		pollEvery  time.Duration
		threshold  float64
		fadePeriod time.Duration
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hardware bridge service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				Prefix:          "portal",
			})
			if debug {
				logger.SetLevel(log.DebugLevel)
			}
			logger.Info("photo portal service starting", "version", Version)

			p, err := portal.Load(configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("listen") {
				p.Listen = listen
			}
			if cmd.Flags().Changed("poll") {
				p.PollInterval = pollEvery
			}
			if cmd.Flags().Changed("threshold") {
				p.ChangeThreshold = threshold
			}
			if cmd.Flags().Changed("fade") {
				p.FadePeriod = fadePeriod
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p.Setup(logger)
			p.InitDrivers(ctx)
			defer func() {
				logger.Info("cleaning up resources")
				if err := p.Close(); err != nil {
					logger.Error("teardown finished with errors", "err", err)
				}
			}()

			if err := p.InitInputs(); err != nil {
				return err
			}

			return p.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path of the JSON configuration file")
	cmd.Flags().StringVar(&listen, "listen", "localhost:8765", "listen address for the websocket server")
	cmd.Flags().DurationVar(&pollEvery, "poll", 100*time.Millisecond, "analog poll interval")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.02, "analog change threshold (fraction of full range)")
	cmd.Flags().DurationVar(&fadePeriod, "fade", 2*time.Second, "full led fade cycle period")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}
