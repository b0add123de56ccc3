package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"elemental-td/internal/sims/sandbox"
	"elemental-td/internal/spectate"
	"elemental-td/internal/store"
)

func openStorage(ctx context.Context, logger *slog.Logger) (store.Storage, error) {
	if os.Getenv("DB_TYPE") == "postgres" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			dsn = "host=localhost user=td password=td dbname=elemental_td sslmode=disable"
		}
		logger.Info("using PostgreSQL persistence")
		return store.NewPostgresStore(ctx, dsn)
	}
	file := os.Getenv("DB_FILE")
	if file == "" {
		file = "levels.json"
	}
	logger.Info("using JSON persistence", "file", file)
	return store.NewJSONStore(file)
}

func main() {
	cfg := sandbox.DefaultConfig()
	cfg.Bind(flag.CommandLine)
	level := flag.String("level", "", "stored level to serve instead of generating one")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	levels, err := openStorage(ctx, logger)
	if err != nil {
		log.Fatalf("failed to initialise persistence: %v", err)
	}
	defer levels.Close()

	world := sandbox.NewWithConfig(cfg).WithLogger(logger)
	world.Reset(0)
	if *level != "" {
		s, err := levels.LoadLevel(ctx, *level)
		if err != nil {
			log.Fatalf("failed to load level: %v", err)
		}
		if err := world.LoadSnapshot(s); err != nil {
			log.Fatal(err)
		}
	}

	hub := spectate.NewHub(world, levels, logger)
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(ctx, cfg.Params.TPS)
	})
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	logger.Info("server stopped")
}
