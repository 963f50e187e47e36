package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nrmkhd/namewatch/internal/account"
	"github.com/nrmkhd/namewatch/internal/config"
	"github.com/nrmkhd/namewatch/internal/logging"
	"github.com/nrmkhd/namewatch/internal/monitor"
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

	// Credentials are required before any cycle work starts.
	if missing := cfg.MissingMonitorVars(); len(missing) > 0 {
		logger.Fatal("missing_required_configuration",
			zap.String("vars", strings.Join(missing, ",")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	// Static-list deployments poll a fixed set of usernames at the interval
	// from the monitor config; otherwise the watch list drives the cycle.
	var source monitor.Source = monitor.WatchListSource{Watches: watches}
	interval := cfg.CheckInterval
	if cfg.MonitorConfig != "" {
		ml, err := config.LoadMonitorList(cfg.MonitorConfig)
		if err != nil {
			logger.Fatal("monitor_config_invalid", zap.Error(err))
		}
		source = monitor.StaticSource(ml.Usernames)
		interval = ml.Interval()
	}

	dialer := account.NewTelegram(account.Config{
		Token:        cfg.BotToken,
		OwnerChatID:  cfg.OwnerChatID,
		UserAPIURL:   cfg.UserAPIURL,
		UserAPIToken: cfg.UserAPIToken,
	}, logger)

	cycle := monitor.NewCycle(logger, dialer, source, checks)
	runOnce := func() {
		if err := cycle.Run(ctx); err != nil {
			logger.Error("cycle_failed", zap.Error(err))
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), runOnce); err != nil {
		logger.Fatal("schedule_invalid", zap.Error(err))
	}

	logger.Info("monitor_started", zap.Duration("interval", interval))
	runOnce() // immediate first pass
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("monitor_stopped")
}
