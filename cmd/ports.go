package main

import (
	"fmt"
	"strconv"

	"github.com/harshul/jumpstart/internal/ports"
	"github.com/harshul/jumpstart/internal/ui"
	"github.com/spf13/cobra"
)

// portsCmd reports who is using a port.
var portsCmd = &cobra.Command{
	Use:   "ports <port>...",
	Short: "Show whether ports are free and which process holds them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		probe := ports.NewProbe()
		for _, arg := range args {
			port, err := strconv.Atoi(arg)
			if err == nil {
				err = ports.ValidatePort(port)
			}
			if err != nil {
				return fmt.Errorf("%q: %w", arg, ports.ErrInvalidPort)
			}

			status := ports.GetPortStatus(probe, port)
			if holder := ports.DescribeOccupant(port); holder != "" {
				status += ", " + holder
			}
			ui.Highlight(fmt.Sprintf("Port %d", port), status)
		}
		return nil
	},
}
