package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/newsroom/app/ai"
	"github.com/lysyi3m/newsroom/app/api"
	"github.com/lysyi3m/newsroom/app/cfg"
	"github.com/lysyi3m/newsroom/app/control"
	"github.com/lysyi3m/newsroom/app/crawler"
	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/feed"
	"github.com/lysyi3m/newsroom/app/pipeline"
	"github.com/lysyi3m/newsroom/app/queue"
	"github.com/lysyi3m/newsroom/app/tasks"
	"github.com/lysyi3m/newsroom/app/trends"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogging(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Newsroom stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting newsroom", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := queue.NewRedisClient(startCtx, appCfg.RedisURL)
	cancel()
	if err != nil {
		return err
	}
	defer redisClient.Close()

	catalog := feed.NewSourceCatalog(appCfg.SourcesFile)
	if err := catalog.Run(); err != nil {
		return fmt.Errorf("failed to load source catalog: %w", err)
	}
	slog.Info("Source catalog loaded", "path", appCfg.SourcesFile, "sources", catalog.GetSourceCount())

	sourceStore := database.NewSourceStore(db)
	ledgerStore := database.NewLedgerStore(db)
	trendStore := database.NewTrendStore(db)
	articleStore := database.NewArticleStore(db)
	authorStore := database.NewAuthorStore(db)
	performanceStore := database.NewPerformanceStore(db)

	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent, appCfg.FetchTimeoutDuration())
	feedCrawler := crawler.New(sourceStore, ledgerStore, fetcher, feed.NewParser(), feed.NewContentExtractor(), catalog)

	contentQueue := queue.New(redisClient, queue.ContentQueueConfig(appCfg.ContentWorkers, appCfg.ContentRateLimit))
	trendQueue := queue.New(redisClient, queue.TrendQueueConfig(appCfg.TrendWorkers))
	prometheus.MustRegister(queue.NewDepthCollector(contentQueue, trendQueue))

	completer := ai.NewAnthropicCompleter(appCfg.AIAPIKey, appCfg.AIModel, appCfg.AIMaxTokens)
	contentPipeline := pipeline.New(ai.NewService(completer), articleStore, authorStore)
	trendCollector := trends.NewCollector(trends.DefaultConfig(), trendStore, fetcher)

	retention := tasks.DefaultRetention()
	retention.Articles = days(appCfg.ArticleRetentionDays)
	retention.Trends = days(appCfg.TrendRetentionDays)
	retention.Dedup = days(appCfg.DedupRetentionDays)

	scheduler := tasks.NewScheduler(map[tasks.TaskType]tasks.TaskFactory{
		tasks.TaskTypeCrawl: func() tasks.TaskInterface {
			return tasks.NewCrawlTask(feedCrawler, contentQueue, "")
		},
		tasks.TaskTypeTrends: func() tasks.TaskInterface {
			return tasks.NewTrendsTask(trendQueue)
		},
		tasks.TaskTypeCleanup: func() tasks.TaskInterface {
			return tasks.NewCleanupTask(retention, articleStore, trendStore, ledgerStore, contentQueue, trendQueue)
		},
		tasks.TaskTypeOptimize: func() tasks.TaskInterface {
			return tasks.NewOptimizeTask(performanceStore, trendStore)
		},
		tasks.TaskTypeSyncSources: func() tasks.TaskInterface {
			return tasks.NewSyncSourcesTask(catalog, sourceStore)
		},
	})

	if err := scheduler.RunNow(tasks.TaskTypeSyncSources); err != nil {
		return fmt.Errorf("failed to sync sources: %w", err)
	}

	contentQueue.Start(contentPipeline.HandleJob)
	trendQueue.Start(trendCollector.HandleJob)
	scheduler.Start()

	controlService := control.NewService(scheduler, sourceStore, articleStore, contentQueue, trendQueue).
		WithTrends(trendStore)

	health := func(ctx context.Context) (map[string]any, error) {
		details := map[string]any{
			"sources": catalog.GetSourceCount(),
			"redis":   queue.Health(ctx, redisClient),
		}
		if count, err := articleStore.CountArticles(ctx); err == nil {
			details["articles"] = count
		}
		if err := db.PingContext(ctx); err != nil {
			return details, fmt.Errorf("database unreachable: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return details, fmt.Errorf("redis unreachable: %w", err)
		}
		return details, nil
	}

	handler := api.NewHandler(controlService, health, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	contentQueue.Stop()
	trendQueue.Stop()
	controlService.Wait()

	slog.Info("Newsroom shutdown complete")
	return runErr
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
