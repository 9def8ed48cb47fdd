package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alfredjeanlab/hands/internal/cache"
	"github.com/alfredjeanlab/hands/internal/config"
	"github.com/alfredjeanlab/hands/internal/directory"
	"github.com/alfredjeanlab/hands/internal/events"
	"github.com/alfredjeanlab/hands/internal/hands"
	"github.com/alfredjeanlab/hands/internal/logging"
	"github.com/alfredjeanlab/hands/internal/server"
	"github.com/alfredjeanlab/hands/internal/session"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the hands HTTP and gRPC servers",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// The server configures itself from HANDS_* variables, not the client flags.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := logging.Setup(os.Stderr, cfg.LogLevel)

		// Start the embedded NATS server in dev mode.
		natsURL := cfg.NATSURL
		if cfg.EmbedNATS {
			storeDir := cfg.NATSStoreDir
			if storeDir == "" {
				storeDir, err = os.MkdirTemp("", "hands-nats-")
				if err != nil {
					return fmt.Errorf("creating NATS store dir: %w", err)
				}
				defer os.RemoveAll(storeDir)
			}
			ns, err := cache.StartEmbedded(storeDir, natsPort(cfg.NATSURL))
			if err != nil {
				return err
			}
			defer ns.Shutdown()
			natsURL = ns.ClientURL()
			logger.Info("embedded NATS started", "url", natsURL, "store_dir", storeDir)
		}

		// Open the shared store. An unreachable store disables hand raising
		// instead of failing startup.
		ctx := context.Background()
		store := cache.OpenOrDisabled(ctx, cache.Options{
			URL:         natsURL,
			ExpiringTTL: cfg.AckGrace,
			Timeout:     cfg.StoreTimeout,
			FileStorage: cfg.EmbedNATS && cfg.NATSStoreDir != "",
		})
		var compactor *cache.Compactor
		if n, ok := store.(*cache.NATS); ok {
			compactor = n.StartCompactor(cache.CompactorConfig{})
		}

		// Connect the meeting directory.
		var dir *directory.Postgres
		if cfg.DatabaseURL != "" {
			dir, err = directory.Open(cfg.DatabaseURL)
			if err != nil {
				compactor.Stop()
				store.Close()
				return err
			}
			logger.Info("meeting directory enabled")
		} else {
			logger.Warn("meeting directory disabled (HANDS_DATABASE_URL not set); host checks cannot verify",
				"strict", cfg.StrictHostCheck)
		}
		var verifier *directory.Verifier
		if dir != nil {
			verifier = directory.NewVerifier(dir, cfg.StrictHostCheck)
		} else {
			verifier = directory.NewVerifier(nil, cfg.StrictHostCheck)
		}

		// Create the broadcast publisher.
		var publisher events.Publisher
		if pub, err := events.NewNATSPublisher(natsURL); err != nil {
			logger.Warn("broadcasts disabled", "nats_url", natsURL, "error", err)
			publisher = &events.NoopPublisher{}
		} else {
			publisher = pub
			logger.Info("broadcasts enabled", "nats_url", natsURL)
		}

		// Create server components.
		sessions := session.NewRegistry(store)
		manager := hands.NewManager(store, sessions, hands.Config{
			MaxQueue:   cfg.MaxQueue,
			MaxNameLen: cfg.MaxNameLen,
		})
		handsServer := server.NewHandsServer(store, sessions, manager, verifier, publisher)
		if dir != nil {
			handsServer.SetMeetingStore(dir)
		}
		grpcServer, healthServer := handsServer.NewGRPCServer(cfg.AuthToken)

		if cfg.IdleTimeout > 0 {
			handsServer.StartIdleReaper(cfg.IdleTimeout, time.Minute)
		}

		healthCtx, healthCancel := context.WithCancel(ctx)
		go handsServer.WatchHealth(healthCtx, healthServer, 5*time.Second)

		// Start gRPC listener.
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			healthCancel()
			handsServer.StopIdleReaper()
			publisher.Close()
			compactor.Stop()
			store.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		// Start HTTP server.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handsServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		logger.Info("hands server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"cache_enabled", store.Enabled(),
			"max_queue", cfg.MaxQueue,
			"ack_grace", cfg.AckGrace,
			"idle_timeout", cfg.IdleTimeout,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		healthCancel()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		handsServer.StopIdleReaper()
		compactor.Stop()
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if dir != nil {
			if err := dir.Close(); err != nil {
				logger.Error("error closing directory", "err", err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// natsPort picks the embedded server's port from the configured URL so
// clients using HANDS_NATS_URL reach it. It falls back to a random port.
func natsPort(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return -1
	}
	p, err := strconv.Atoi(u.Port())
	if err != nil {
		return -1
	}
	return p
}
