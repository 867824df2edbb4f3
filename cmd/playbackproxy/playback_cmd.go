package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ideamans/playback-proxy-go/internal/config"
	"github.com/ideamans/playback-proxy-go/internal/inventory"
	"github.com/ideamans/playback-proxy-go/internal/logging"
	"github.com/ideamans/playback-proxy-go/internal/mitm"
	"github.com/ideamans/playback-proxy-go/internal/perrors"
	"github.com/ideamans/playback-proxy-go/internal/playback"
	"github.com/ideamans/playback-proxy-go/internal/shutdown"
)

type playbackFlags struct {
	host         string
	port         int
	inventoryDir string
	configPath   string
	jsonLogs     bool
	debug        bool
}

func newPlaybackCmd() *cobra.Command {
	var flags playbackFlags

	cmd := &cobra.Command{
		Use:   "playback",
		Short: "Run the playback proxy, replaying a previously recorded inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlayback(flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.host, "host", "0.0.0.0", "bind address")
	f.IntVar(&flags.port, "port", 18080, "bind port (auto-scans upward on conflict)")
	f.StringVar(&flags.inventoryDir, "inventory-dir", "", "directory holding a recorded inventory (required)")
	f.StringVar(&flags.configPath, "config", "", "optional TOML session-defaults file")
	f.BoolVar(&flags.jsonLogs, "json-logs", false, "emit JSON structured logs instead of text")
	f.BoolVar(&flags.debug, "debug", false, "lower the log level to debug")
	cmd.MarkFlagRequired("inventory-dir")

	return cmd
}

func runPlayback(flags playbackFlags) error {
	logger := logging.New(logging.Options{JSON: flags.jsonLogs, Debug: flags.debug})

	cfg := config.DefaultSession()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	session, err := playback.Load(flags.inventoryDir, logger, cfg)
	if err != nil {
		return perrors.New(perrors.MalformedInventory, "playback.main", err)
	}

	ca, err := mitm.LoadOrGenerateCA(
		filepath.Join(flags.inventoryDir, inventory.CAFileName),
		filepath.Join(flags.inventoryDir, inventory.CAKeyFileName),
	)
	if err != nil {
		return perrors.New(perrors.BindFailed, "playback.main", fmt.Errorf("prepare CA: %w", err))
	}

	listener := &mitm.Listener{
		CA:             ca,
		Leafs:          mitm.NewLeafCache(ca),
		Logger:         logger,
		Handler:        session.Handle,
		OnStateChange:  session.OnConnState,
		InterceptsHost: cfg.InterceptsHost,
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
	logger.Info("playback session started", "inventoryDir", flags.inventoryDir, "resources", len(session.Inventory.Resources))

	supervisor := shutdown.NewSupervisor(future, logger)
	supervisor.Tasks = []func(){
		func() {
			if err := <-serveErr; err != nil {
				logger.Error("listener stopped with error", "error", err)
			}
		},
	}

	return supervisor.Run()
}
