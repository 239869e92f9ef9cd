package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-scanner/config"
	"market-scanner/logger"
	"market-scanner/routes"
	"market-scanner/scheduler"
	"market-scanner/services/analysis"
	"market-scanner/services/datafetcher"
	"market-scanner/services/report"
	"market-scanner/services/screener"
	"market-scanner/services/store"
	"market-scanner/services/strategies"
	"market-scanner/services/universe"
	"market-scanner/services/validation"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("environment", cfg.Environment).Msg("market scanner starting")

	scanCfg, err := config.LoadScanConfig(cfg.ScanConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load scan config")
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatal().Err(err).Msg("could not open database")
	}

	st, err := store.New(db, cfg.DBPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize store")
	}

	limiter := datafetcher.NewRateLimiter(scanCfg.RateLimits)
	provider := datafetcher.NewBinanceProvider(scanCfg.Fetcher.Timeout)
	fetcher := datafetcher.NewFetcher(provider, limiter, scanCfg, log)
	validator := validation.New(
		scanCfg.Validation.MaxPriceDeviation,
		scanCfg.Validation.MaxDateGapDays,
		scanCfg.Validation.VolumeOutlierZ,
		log,
	)
	engine := analysis.NewEngine(log)
	registry := strategies.NewRegistry(scanCfg)
	uni := universe.New(scanCfg, log)
	reporter := report.New(scanCfg.Report.OutputDir, scanCfg.Report.HistoryFile, log)

	scan := screener.New(scanCfg, st, uni, fetcher, validator, engine, registry, reporter, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	routes.SetupRoutes(router, scan)

	jobs := scheduler.NewScheduler(scanCfg, scan, log)
	jobs.Start()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      15 * time.Minute, // scans run synchronously
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	jobs.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("stopped")
}
