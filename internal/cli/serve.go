package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jobmate/catalog-service/internal/grpcserver"
	"jobmate/catalog-service/internal/httpapi"
	"jobmate/catalog-service/internal/scheduler"
)

func buildServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers with the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(rt.engine.Sweeper, rt.engine.Sync, scheduler.Options{
		SweepSpec:      cfg.SweepInterval,
		SweepDelay:     cfg.SweepStartDelay,
		BootstrapDelay: cfg.BootstrapDelay,
	}, slog.Default())
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(rt))
	mux.Handle("/metrics", rt.metrics.Handler())
	httpapi.NewHandler(rt.engine, rt.gate, slog.Default()).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// ── gRPC health ──────────────────────────────────────────────────────────
	grpcSrv := grpcserver.NewServer(rt.engine.Service, 0, slog.Default())
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[catalog-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("[catalog-service] gRPC health listening on :%s", cfg.GRPCPort)
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		grpcSrv.Watch(gctx)
		return nil
	})

	// ── Graceful shutdown ────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[catalog-service] Shutting down…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[catalog-service] Shutdown error: %v", err)
		}
		grpcSrv.Stop()
		return nil
	})

	err = g.Wait()
	log.Println("[catalog-service] Stopped.")
	return err
}

func healthHandler(rt *runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remote := "ok"
		if err := rt.engine.Service.Ping(r.Context()); err != nil {
			remote = "unavailable"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"service": "catalog-service",
			"version": version,
			"remote":  remote,
			"cache":   rt.cfg.CacheBackend,
		})
	}
}
