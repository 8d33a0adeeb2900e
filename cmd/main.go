package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"QrestAPI/internal/config"
	"QrestAPI/internal/db"
	"QrestAPI/internal/logger"
	"QrestAPI/internal/resource"
	"QrestAPI/internal/router"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	flag.Parse()

	if err := logger.Init("."); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)

	cfg := config.LoadConfig()

	if err := db.InitPostgres(cfg.PostgresDSN); err != nil {
		logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("postgres_connected", nil)

	if cfg.AliasCache.Enabled {
		db.InitRedis(cfg.RedisAddr)
		if err := db.PingRedis(); err != nil {
			logger.Warn("redis_unavailable", map[string]any{"error": err.Error()})
		}
	}
	resource.ConfigureAliasCache(cfg.AliasCache.Enabled, cfg.AliasCache.TTLSec)

	// registry is written here, during single-threaded startup, and is
	// read-only once the server starts
	if err := resource.InitRegistry(cfg.ResourcesDir); err != nil {
		logger.Error("registry_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("resources_initialized", map[string]any{"count": len(resource.Registry)})

	// declarations may have changed since the last deploy; cached alias
	// maps from a previous registry must not survive it
	if err := resource.FlushAliasMaps(context.Background()); err != nil {
		logger.Warn("alias_cache_flush_failed", map[string]any{"error": err.Error()})
	}

	h := router.InitRoutes(cfg)

	logger.Info("server_start", map[string]any{"port": cfg.Port})
	if err := http.ListenAndServe(":"+cfg.Port, h); err != nil {
		logger.Error("server_error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
