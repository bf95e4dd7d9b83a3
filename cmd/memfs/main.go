package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fuse"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/config"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/fuse"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/handler"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/middleware"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/ninep"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/repository"
	"github.com/S1riyS/os-course-lab-4/memfs/internal/service"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging/slogext"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging/slogpretty"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the YAML config (defaults to $CONFIG_PATH, then "+defaultConfigPath+")")
	mountpoint := pflag.String("mountpoint", "", "override fuse.mountpoint")
	pflag.Parse()

	cfg := config.MustLoad(resolveConfigPath(*configPath))
	if *mountpoint != "" {
		cfg.Fuse.Mountpoint = *mountpoint
	}

	logger := setupLogger(cfg.Env)

	// Root context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.MakeContextWithLogger(ctx, logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("memfs stopped with error", slogext.Err(err))
		os.Exit(1)
	}

	logger.Info("memfs stopped")
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	// environment and defaults only
	return ""
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Dependencies
	store, err := repository.NewFileStore(cfg.Store.Capacity,
		repository.WithZeroFillOnExtend(cfg.Store.ZeroFillOnExtend))
	if err != nil {
		return fmt.Errorf("creating file store: %w", err)
	}

	ns := repository.NewNamespace()
	if _, err := ns.AddFile(cfg.Store.FileName, store); err != nil {
		return fmt.Errorf("registering %s: %w", cfg.Store.FileName, err)
	}

	fsService := service.NewFileSystemService(ns)

	logger.Info("File store ready",
		slog.String("file", cfg.Store.FileName),
		slog.Int64("capacity", cfg.Store.Capacity),
		slog.Bool("zero_fill_on_extend", cfg.Store.ZeroFillOnExtend))

	// FUSE mounts before any server goroutine starts.
	var fuseServer *gofuse.Server
	if cfg.Fuse.Mountpoint != "" {
		fuseServer, err = fuse.Mount(ctx, fuse.Options{
			Mountpoint:   cfg.Fuse.Mountpoint,
			Service:      fsService,
			FsName:       cfg.Fuse.FsName,
			AllowOther:   cfg.Fuse.AllowOther,
			EntryTimeout: cfg.Fuse.EntryTimeout,
			AttrTimeout:  cfg.Fuse.AttrTimeout,
			Debug:        cfg.Fuse.Debug,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	if fuseServer != nil {
		g.Go(func() error {
			return fuse.UnmountOnDone(ctx, fuseServer)
		})
	}

	// HTTP
	mux := http.NewServeMux()
	handler.NewHandler(fsService).RegisterRoutes(mux)

	server := &http.Server{
		Addr: net.JoinHostPort("", strconv.Itoa(cfg.App.Port)),
		Handler: middleware.Chain(mux,
			middleware.RequestIDMiddleware,
			middleware.LoggerMiddleware(logger),
		),
		ReadTimeout:  cfg.App.DefaultTimeout,
		WriteTimeout: cfg.App.DefaultTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// 9P
	if cfg.NineP.Enabled {
		srv := &ninep.Server{Service: fsService, Logger: logger}
		g.Go(func() error {
			return srv.ListenAndServe(ctx, cfg.NineP.Addr)
		})
	}

	return g.Wait()
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return setupPrettySlog()
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	prettyHandler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(prettyHandler)
}
