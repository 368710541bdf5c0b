package main

import (
	"fmt"

	"github.com/hubertat/servicemaker"
	"github.com/spf13/cobra"
)

var portalService = servicemaker.ServiceMaker{
	User:               "portal",
	UserGroups:         []string{"gpio", "i2c"},
	ServicePath:        "/etc/systemd/system/photoportal.service",
	ServiceDescription: "Photo portal hardware bridge: buttons, toggles, zoom dial and LED over WebSocket",
	ExecDir:            "/srv/photoportal",
	ExecName:           "portal",
}

func installCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the service as a systemd unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := portalService.InstallService(); err != nil {
				return err
			}
			fmt.Println("service installed!")
			return nil
		},
	}
}
