package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/board"
	"github.com/alfredjeanlab/givecal/internal/config"
	"github.com/alfredjeanlab/givecal/internal/events"
	"github.com/alfredjeanlab/givecal/internal/grid"
	"github.com/alfredjeanlab/givecal/internal/idgen"
	"github.com/alfredjeanlab/givecal/internal/pledges"
	"github.com/alfredjeanlab/givecal/internal/presence"
	"github.com/alfredjeanlab/givecal/internal/server"
	"github.com/alfredjeanlab/givecal/internal/store"
	_ "github.com/alfredjeanlab/givecal/internal/store/diskv"
	_ "github.com/alfredjeanlab/givecal/internal/store/postgres"
	_ "github.com/alfredjeanlab/givecal/internal/store/sqlite"
	pledgesync "github.com/alfredjeanlab/givecal/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve the calendar page, HTTP API and gRPC service",
	GroupID: "system",
	// serve reads GIVECAL_* server variables, not client settings.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		f, err := config.LoadFundraiser(cfg.Fundraiser)
		if err != nil {
			return err
		}

		clientID, err := idgen.Generate()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Pick the mode. A store URL makes the calendar shared.
		var (
			remote    *pledges.Remote
			st        store.Store
			embedded  *events.Embedded
			scheduler *pledgesync.Scheduler
			mode      = board.LocalOnly()
		)
		if storeURL := f.StoreURL(cfg.DatabaseURL); storeURL != "" {
			st, err = store.Open(storeURL)
			if err != nil {
				return err
			}

			natsURL := cfg.NATSURL
			if natsURL == "" {
				embedded, err = events.StartEmbedded("127.0.0.1", -1)
				if err != nil {
					st.Close()
					return err
				}
				natsURL = embedded.URL()
				logger.Info("embedded NATS started", "url", natsURL)
			}
			pub, err := events.NewNATSPublisher(natsURL)
			if err != nil {
				st.Close()
				return err
			}
			sub, err := events.NewNATSSubscriber(natsURL)
			if err != nil {
				pub.Close()
				st.Close()
				return err
			}
			remote = pledges.New(st, pub, sub, logger)
			mode = board.Synced(remote)
			logger.Info("pledges are shared", "nats_url", natsURL)
		} else {
			logger.Info("no store configured, running local-only")
		}

		b := board.New(grid.Build(f.Layout), mode, board.Config{
			OwnerHandle: f.VenmoUsername,
			ClientID:    clientID,
			Logger:      logger,
		})
		viewers := presence.New()
		viewers.StartReaper(nil)
		defer viewers.Stop()

		cs := server.NewCalendarServer(server.Options{
			Fundraiser:    f,
			Board:         b,
			Remote:        remote,
			Viewers:       viewers,
			ClientID:      clientID,
			FallbackDelay: cfg.FallbackDelay,
			Logger:        logger,
		})

		runDone := make(chan struct{})
		go func() {
			defer close(runDone)
			if err := cs.Run(ctx); err != nil {
				logger.Error("pledge feed stopped", "error", err)
			}
		}()

		grpcServer := server.NewGRPCServer(cs, cfg.AuthToken)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			stop()
			<-runDone
			closeRemote(logger, remote, embedded)
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "error", err)
			}
		}()

		httpServer := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: cs.NewHTTPHandler(server.HTTPOptions{
				AuthToken:   cfg.AuthToken,
				CORSOrigins: cfg.CORSOrigins,
			}),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()

		if st != nil && cfg.SyncInterval > 0 {
			dests, err := pledgesync.Destinations(ctx, cfg)
			if err != nil {
				logger.Error("failed to create sync destinations", "error", err)
			} else if len(dests) > 0 {
				scheduler = pledgesync.NewScheduler(st, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval, "destinations", len(dests))
			}
		}

		logger.Info("givecal server started",
			"title", f.Title,
			"mode", b.Mode(),
			"cells", len(b.Snapshot()),
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		<-ctx.Done()
		logger.Info("shutting down")

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		// Request contexts derive from ctx, so open SSE streams have ended.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		logger.Info("HTTP server stopped")

		// Watch streams never finish on their own.
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			grpcServer.Stop()
		}
		logger.Info("gRPC server stopped")

		<-runDone
		closeRemote(logger, remote, embedded)
		logger.Info("shutdown complete")
		return nil
	},
}

func closeRemote(logger *slog.Logger, remote *pledges.Remote, embedded *events.Embedded) {
	if remote != nil {
		if err := remote.Close(); err != nil {
			logger.Error("error closing pledge store", "error", err)
		}
	}
	if embedded != nil {
		_ = embedded.Close()
	}
}
