// Command playbackproxy runs the recording or playback MITM proxy, or
// opens the inventory inspector TUI over a previously recorded session.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/ideamans/playback-proxy-go/internal/perrors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)

		// Only BindFailed and MalformedInventory are allowed to end the
		// process non-zero; every other taxonomy kind (e.g. a shutdown-time
		// persistence failure) has already been logged at its source and
		// must not turn into a failing exit status. An error that never
		// passed through perrors (a flag-parsing error, say) has no Kind to
		// check, so it keeps the old unconditional exit(1).
		if kind, ok := perrors.KindOf(err); ok && !kind.Fatal() {
			return
		}
		os.Exit(1)
	}
}
