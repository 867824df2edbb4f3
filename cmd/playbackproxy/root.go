package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the two-mode process surface from §6: recording,
// playback, plus the ambient, read-only inspect subcommand.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playbackproxy",
		Short: "Record or replay HTTP/HTTPS traffic through a MITM proxy",
	}

	cmd.AddCommand(newRecordingCmd())
	cmd.AddCommand(newPlaybackCmd())
	cmd.AddCommand(newInspectCmd())

	return cmd
}
