package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/nrmkhd/namewatch/internal/config"
	"github.com/nrmkhd/namewatch/internal/httpapi"
	"github.com/nrmkhd/namewatch/internal/logging"
	"github.com/nrmkhd/namewatch/internal/query"
	"github.com/nrmkhd/namewatch/internal/repo"
	"github.com/nrmkhd/namewatch/internal/repo/memory"
	"github.com/nrmkhd/namewatch/internal/repo/postgres"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	var (
		watches repo.WatchStore
		checks  repo.CheckLogStore
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pg.Close()
		watches, checks = pg, pg
	} else {
		mem := memory.New()
		watches, checks = mem, mem
	}

	// The static username list, when present, enables the watcher-less
	// GET /logs variant.
	var configured []string
	if cfg.MonitorConfig != "" {
		ml, err := config.LoadMonitorList(cfg.MonitorConfig)
		if err != nil {
			logger.Fatal("monitor_config_invalid", zap.Error(err))
		}
		configured = ml.Usernames
	}

	svc := query.NewService(watches, checks, configured, logger)
	api := httpapi.NewServer(logger, watches, svc)

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, api.Router()); err != nil {
		log.Fatal(err)
	}
}
