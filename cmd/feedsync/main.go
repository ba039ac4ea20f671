package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/retaildemo/feedsync/adapters/virtualfeed"
	"github.com/retaildemo/feedsync/games"
	"github.com/retaildemo/feedsync/internal/api"
	"github.com/retaildemo/feedsync/internal/booking"
	"github.com/retaildemo/feedsync/internal/closer"
	"github.com/retaildemo/feedsync/internal/config"
	"github.com/retaildemo/feedsync/internal/database"
	"github.com/retaildemo/feedsync/internal/logging"
	"github.com/retaildemo/feedsync/internal/publisher"
	"github.com/retaildemo/feedsync/internal/registry"
	"github.com/retaildemo/feedsync/internal/scheduler"
	"github.com/retaildemo/feedsync/internal/store"
	"github.com/retaildemo/feedsync/pkg/contracts"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "migration error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "feedsync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if err := database.MigrateUp(cfg.DatabaseURL, logger); err != nil {
		return err
	}
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database")

	st := store.New(db, logger)

	// Games
	cat, err := games.Load(cfg.GamesConfig)
	if err != nil {
		return err
	}
	gameRegistry, err := registry.FromCatalogue(cat)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"registered": gameRegistry.Count(),
		"enabled":    len(gameRegistry.Enabled()),
	}).Info("games registered")

	// Upstream feed
	upstream := cfg.Upstream(cat.Defaults)
	feed := virtualfeed.NewClient(upstream, logger)

	// Publishers
	hub := api.NewHub(logger)
	publishers := []contracts.Publisher{hub}
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		logger.WithField("addr", cfg.RedisURL).Info("connected to redis")
		publishers = append(publishers, publisher.NewRedisPublisher(redisClient))
	}
	fanout := publisher.NewFanout(publishers...)

	// Sync
	sweeper := closer.NewCloser(st, feed, fanout, logger)
	sched := scheduler.NewScheduler(scheduler.Config{
		Store:     st,
		Feed:      feed,
		Sweeper:   sweeper,
		Publisher: fanout,
		Games:     gameRegistry,
		Logger:    logger,
	})

	// HTTP
	server := api.NewServer(api.Config{
		Addr:    cfg.ListenAddr(),
		Store:   st,
		Booking: booking.NewService(st, logger),
		Sync:    sched,
		Feed:    feed,
		Games:   gameRegistry,
		Upstream: api.UpstreamInfo{
			SessionGUID:           upstream.SessionGUID,
			OperatorGUID:          upstream.OperatorGUID,
			APIBase:               upstream.BaseURL,
			OffsetSeconds:         upstream.OffsetSeconds,
			PrimaryMarketClassIDs: upstream.PrimaryMarketClassIDs,
			LanguageCode:          upstream.LanguageCode,
			BettingLayout:         upstream.BettingLayout,
		},
		Hub:         hub,
		Logger:      logger,
		SyncContext: ctx,
	})

	go hub.Run(ctx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	if cfg.AutoSyncOnStart {
		summary, err := sched.Start(ctx)
		if err != nil {
			// Serve the API even when nothing can be synced
			logger.WithError(err).Warn("auto-sync on start failed")
		} else {
			logger.WithField("games", len(summary.Games)).Info(summary.Message)
		}
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.WithError(err).Error("http server failed")
		}
	}

	if final, err := sched.Stop(); err == nil {
		logger.WithFields(logrus.Fields{
			"cycles": final.Cycles,
			"errors": final.Errors,
		}).Info("auto-sync stopped")
	} else if !errors.Is(err, scheduler.ErrNotActive) {
		logger.WithError(err).Warn("stop auto-sync")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	cancel()
	sched.Wait()

	logger.Info("feedsync stopped")
	return nil
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: feedsync migrate [up|down [n]|status]")
	}

	logger := logrus.New()
	databaseURL := config.DatabaseURL()

	switch args[0] {
	case "up":
		return database.MigrateUp(databaseURL, logger)
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		return database.MigrateDown(databaseURL, steps, logger)
	case "status":
		return database.MigrateStatus(databaseURL, logger)
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
