package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"CrudAPI/internal"
	"CrudAPI/internal/adapter/prisma"
	"CrudAPI/internal/auth"
	"CrudAPI/internal/cache"
	"CrudAPI/internal/config"
	"CrudAPI/internal/db"
	"CrudAPI/internal/handler"
	"CrudAPI/internal/logger"
	"CrudAPI/internal/model"
	"CrudAPI/internal/route"
	"CrudAPI/internal/router"
	"CrudAPI/internal/store/pgstore"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		logDir     string
		flushCache bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, logDir, flushCache)
		},
	}
	cmd.Flags().StringVar(&logDir, "log-dir", "", "write JSONL logs to <dir>/log/app.log instead of stderr")
	cmd.Flags().BoolVar(&flushCache, "flush-cache", false, "drop every cached response in Redis before serving")
	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, logDir string, flushCache bool) error {
	cfg := config.LoadConfig()
	if logDir != "" {
		if err := logger.Init(logDir); err != nil {
			return fmt.Errorf("log init failed: %w", err)
		}
	}
	logger.SetDebug(opts.Debug)

	reg, err := model.InitRegistry(resourcesDir(cfg.ResourcesDir))
	if err != nil {
		logger.Error("registry_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	logger.Info("resources_initialized", map[string]any{"count": len(reg)})

	pool, err := db.InitPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	defer pool.Close()
	logger.Info("postgres_connected", nil)

	respCache, err := initCache(ctx, cfg)
	if err != nil {
		return err
	}
	if rc, ok := respCache.(*cache.Redis); ok && flushCache {
		if err := rc.Flush(ctx); err != nil {
			logger.Error("cache_flush_failed", map[string]any{"error": err.Error()})
			return err
		}
		logger.Info("cache_flushed", nil)
	}

	var validator *auth.JWTValidator
	if cfg.Auth.Enabled {
		if validator, err = auth.NewJWTValidator(cfg.Auth.JWT); err != nil {
			logger.Error("auth_init_failed", map[string]any{"error": err.Error()})
			return err
		}
	}

	metrics := router.NewMetrics()
	store := pgstore.New(pool, reg, cfg.MaxRelationDepth)
	crud, err := handler.New(handler.Options[*prisma.Query]{
		Adapter:         store,
		Resources:       resourceOptions(reg),
		ExposeStrategy:  route.ExposeStrategy(cfg.ExposeStrategy),
		DefaultPerPage:  cfg.DefaultPerPage,
		OnSuccess:       func(r *http.Request, _ any) { metrics.RecordOperation(r, nil) },
		OnError:         metrics.RecordOperation,
		Cache:           respCache,
		CacheTTL:        time.Duration(cfg.Cache.TTLSec) * time.Second,
		CacheDependents: reg.Dependents,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, crud, validator, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_start", map[string]any{"port": cfg.Port, "prefix": cfg.APIPrefix})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server_error", map[string]any{"error": err.Error()})
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initCache picks Redis when REDIS_ADDR is set, the in-process cache
// otherwise. A zero TTL disables response caching.
func initCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.TTLSec <= 0 {
		return nil, nil
	}
	if cfg.RedisAddr == "" {
		logger.Info("cache_memory", map[string]any{"max_bytes": cfg.Cache.MaxBytes})
		return cache.NewMemory(cfg.Cache.MaxBytes), nil
	}
	rdb, err := db.InitRedis(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("redis_init_failed", map[string]any{"error": err.Error()})
		return nil, err
	}
	logger.Info("cache_redis", map[string]any{"addr": cfg.RedisAddr})
	return cache.NewRedis(rdb), nil
}

func resourceOptions(reg model.Registry) map[string]handler.ResourceOptions {
	out := make(map[string]handler.ResourceOptions, len(reg))
	for name, res := range reg {
		out[name] = handler.ResourceOptions{
			Only:             res.Only,
			Exclude:          res.Exclude,
			FormatResourceID: res.FormatID,
		}
	}
	return out
}

// resourcesDir resolves a relative resources directory against the repo root
// when it does not exist in the working directory.
func resourcesDir(dir string) string {
	if _, err := os.Stat(dir); err == nil {
		return dir
	}
	if root, err := internal.FindRepoRoot(); err == nil {
		return filepath.Join(root, dir)
	}
	return dir
}
