package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ideamans/playback-proxy-go/internal/inspector"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <inventory-dir>",
		Short: "Browse a recorded inventory in an interactive TUI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := inspector.Run(args[0]); err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			return nil
		},
	}
}
