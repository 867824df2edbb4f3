package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ideamans/playback-proxy-go/internal/config"
	"github.com/ideamans/playback-proxy-go/internal/inventory"
	"github.com/ideamans/playback-proxy-go/internal/logging"
	"github.com/ideamans/playback-proxy-go/internal/mitm"
	"github.com/ideamans/playback-proxy-go/internal/perrors"
	"github.com/ideamans/playback-proxy-go/internal/record"
	"github.com/ideamans/playback-proxy-go/internal/shutdown"
	"github.com/ideamans/playback-proxy-go/internal/types"
	"github.com/ideamans/playback-proxy-go/internal/upstream"
)

type recordingFlags struct {
	host         string
	port         int
	inventoryDir string
	entryURL     string
	device       string
	configPath   string
	jsonLogs     bool
	debug        bool
}

func newRecordingCmd() *cobra.Command {
	var flags recordingFlags

	cmd := &cobra.Command{
		Use:   "recording",
		Short: "Run the recording proxy, capturing an inventory of upstream responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecording(flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.host, "host", "0.0.0.0", "bind address")
	f.IntVar(&flags.port, "port", 18080, "bind port (auto-scans upward on conflict)")
	f.StringVar(&flags.inventoryDir, "inventory-dir", "", "directory to write the recorded inventory to (required)")
	f.StringVar(&flags.entryURL, "entry-url", "", "optional entry URL recorded alongside the inventory")
	f.StringVar(&flags.device, "device", "desktop", "device type hint: desktop or mobile")
	f.StringVar(&flags.configPath, "config", "", "optional TOML session-defaults file")
	f.BoolVar(&flags.jsonLogs, "json-logs", false, "emit JSON structured logs instead of text")
	f.BoolVar(&flags.debug, "debug", false, "lower the log level to debug")
	cmd.MarkFlagRequired("inventory-dir")

	return cmd
}

func runRecording(flags recordingFlags) error {
	logger := logging.New(logging.Options{JSON: flags.jsonLogs, Debug: flags.debug})

	device := types.DeviceDesktop
	if flags.device == string(types.DeviceMobile) {
		device = types.DeviceMobile
	}

	session := config.DefaultSession()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		session = loaded
	}

	store, err := inventory.NewStore(flags.inventoryDir)
	if err != nil {
		return perrors.New(perrors.PersistenceFailed, "recording.main", err)
	}

	bodyCache, err := inventory.OpenBodyCache(flags.inventoryDir)
	if err != nil {
		logger.Warn("body de-dup cache unavailable, writes will not be de-duplicated", "error", err)
	} else {
		store.BodyCache = bodyCache
		defer bodyCache.Close()
	}

	ca, err := mitm.LoadOrGenerateCA(
		filepath.Join(flags.inventoryDir, inventory.CAFileName),
		filepath.Join(flags.inventoryDir, inventory.CAKeyFileName),
	)
	if err != nil {
		return perrors.New(perrors.BindFailed, "recording.main", fmt.Errorf("prepare CA: %w", err))
	}

	upstreamClient := upstream.NewClient(session.RequestTimeout())
	recorder := record.NewRecorder(store, upstreamClient, logger)

	listener := &mitm.Listener{
		CA:             ca,
		Leafs:          mitm.NewLeafCache(ca),
		Logger:         logger,
		Handler:        recorder.Handle,
		OnStateChange:  recorder.OnConnState,
		InterceptsHost: session.InterceptsHost,
	}

	ln, boundPort, err := bindListener(flags.host, flags.port)
	if err != nil {
		return err
	}

	future := shutdown.NewFuture()
	bridgeSignals(future)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listener.Serve(future.Context(), ln)
	}()

	fmt.Printf("proxy listening on %s:%d\n", flags.host, boundPort)
	logger.Info("recording session started", "inventoryDir", flags.inventoryDir, "entryUrl", flags.entryURL, "device", device)

	supervisor := shutdown.NewSupervisor(future, logger)
	supervisor.Store = store
	supervisor.EntryURL = flags.entryURL
	supervisor.Device = device
	supervisor.Tasks = []func(){
		func() {
			if err := <-serveErr; err != nil {
				logger.Error("listener stopped with error", "error", err)
			}
		},
	}

	return supervisor.Run()
}

// bridgeSignals is the thin OS-signal-to-shutdown-future bridge the
// external process surface (§6) requires: SIGINT/SIGTERM both map to the
// same graceful-stop event.
func bridgeSignals(future *shutdown.Future) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		future.Fire()
	}()
}
