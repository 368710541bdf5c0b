package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// set at build time
var (
	Version = "dev"
	Build   = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "portal",
		Short:         "Photo portal hardware bridge",
		Long:          "Bridges the photo portal's physical controls (buttons, toggles, zoom dial, LED) to WebSocket clients.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		diagCmd(),
		installCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("portal %s (build %s)\n", Version, Build)
		},
	}
}
