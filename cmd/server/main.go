// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cmwapi/internal/adapter"
	"github.com/tomtom215/cmwapi/internal/api"
	"github.com/tomtom215/cmwapi/internal/cmwapi"
	"github.com/tomtom215/cmwapi/internal/config"
	"github.com/tomtom215/cmwapi/internal/logging"
	"github.com/tomtom215/cmwapi/internal/overlay"
	"github.com/tomtom215/cmwapi/internal/supervisor"
	"github.com/tomtom215/cmwapi/internal/supervisor/services"
	ws "github.com/tomtom215/cmwapi/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Widget stopped with error")
	}
	logging.Info().Msg("Widget stopped gracefully")
}

//nolint:gocyclo // sequential wiring of every component
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logging.Info().
		Str("instance_id", cfg.Widget.InstanceID).
		Str("bus_mode", cfg.Bus.Mode).
		Str("state_path", cfg.State.Path).
		Bool("http_enabled", cfg.Server.Enabled).
		Msg("Starting CMWAPI widget")

	tree, err := supervisor.NewSupervisorTree(
		logging.NewSlogLoggerWithLevel(cfg.Logging.Level),
		supervisor.TreeConfigFrom(cfg.Supervisor),
	)
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// === TRANSPORT ===

	transport, err := openTransport(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := transport.bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing bus")
		}
	}()
	if transport.embedded != nil {
		tree.AddTransportService(services.NewEmbeddedNATSService(transport.embedded, cfg.Supervisor.ShutdownTimeout))
	}

	capi := cmwapi.New(transport.bus)

	// === OVERLAY TREE ===

	prefs, err := openPreferences(cfg.State)
	if err != nil {
		return err
	}
	defer func() {
		if err := prefs.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing preference store")
		}
	}()

	renderer := adapter.NewLogRenderer()
	treeLogger := logging.WithComponent("overlay-tree")
	opts := []overlay.Option{
		overlay.WithFocuser(renderer),
		overlay.WithPreferences(prefs, cfg.State.Namespace, cfg.State.Name),
		overlay.WithReporter(capi.Error, capi.Identity()),
		overlay.WithErrorNotifier(func(msg string) { treeLogger.Warn().Msg(msg) }),
		overlay.WithInfoNotifier(func(msg string) { treeLogger.Info().Msg(msg) }),
	}
	if cfg.State.AutoArchive {
		opts = append(opts, overlay.WithAutoArchive(ctx))
	}
	manager := overlay.NewManager(renderer, opts...)

	if cfg.State.RestoreOnStart {
		restoreState(ctx, manager, cfg.State.CloseTimeout)
	}

	// === MESSAGING ===

	widget := adapter.New(capi, manager, renderer, adapter.Config{
		WidgetName: cfg.Widget.Name,
		Version:    cfg.Widget.Version,
		MapType:    cfg.Widget.MapType,
	})

	hub := ws.NewHub()
	hub.SetTreeSource(manager)
	manager.BindTreeChangeHandler(hub.TreeObserver(manager))
	if _, err := capi.Error.AddHandler(hub.BroadcastMapError); err != nil {
		return fmt.Errorf("subscribe map.error: %w", err)
	}

	tree.AddMessagingService(services.NewChannelBindingService(widget))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	// === API ===

	if cfg.Server.Enabled {
		handler := api.NewHandler(capi, manager, hub, cfg)
		handler.AddHealthCheck("bus", transport.bus.Healthy)
		handler.AddHealthCheck("preferences", prefs.Ping)
		if embedded := transport.embedded; embedded != nil {
			handler.AddHealthCheck("nats_server", func(context.Context) error {
				if !embedded.IsRunning() {
					return errors.New("embedded NATS server not running")
				}
				return nil
			})
		}

		router := api.NewRouter(handler, api.ChiMiddlewareConfigFromServer(cfg.Server))
		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router.SetupChi(),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	}

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Str("identity", capi.Identity()).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("supervisor tree: %w", err)
		}
		cancel()
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	if err := capi.RemoveAllHandlers(); err != nil {
		logging.Warn().Err(err).Msg("Error removing channel handlers")
	}
	return runErr
}

// restoreState replays the archived tree. A failed restore is logged and
// the widget starts with an empty tree.
func restoreState(ctx context.Context, manager *overlay.Manager, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case err := <-manager.RetrieveState(ctx):
		if err != nil {
			logging.Warn().Err(err).Msg("Overlay state restore failed, starting empty")
			return
		}
	case <-ctx.Done():
		logging.Warn().Err(ctx.Err()).Msg("Overlay state restore timed out, starting empty")
		return
	}

	overlays, features := manager.Counts()
	logging.Info().Int("overlays", overlays).Int("features", features).Msg("Overlay state restored")
}
