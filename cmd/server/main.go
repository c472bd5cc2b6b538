package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/web3-frozen/portfolio-exporter/internal/config"
	"github.com/web3-frozen/portfolio-exporter/internal/exporter"
	"github.com/web3-frozen/portfolio-exporter/internal/exporter/sources"
	"github.com/web3-frozen/portfolio-exporter/internal/exporter/zapper"
	"github.com/web3-frozen/portfolio-exporter/internal/fetch"
	"github.com/web3-frozen/portfolio-exporter/internal/handler"
	"github.com/web3-frozen/portfolio-exporter/internal/middleware"
	"github.com/web3-frozen/portfolio-exporter/internal/scrape"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()

	if cfg.ZapperAPIKey == "" {
		logger.Warn("ZAPPER_API_KEY not set, zapper routes will fail upstream auth")
	}

	httpc := fetch.New(fetch.WithTimeout(30 * time.Second))
	// thecelo presents a certificate chain resty refuses to verify.
	celoc := fetch.New(fetch.WithTimeout(30*time.Second), fetch.WithInsecureTLS())
	browser := scrape.NewBrowser(logger)

	zapperClient := zapper.NewClient(httpc, zapper.DefaultBaseURL, cfg.ZapperAPIKey)

	reg := exporter.NewRegistry(logger)
	reg.Register(sources.NewApyVision(httpc, sources.ApyVisionBaseURL))
	reg.Register(sources.NewLiquidityVision(httpc, sources.LiquidityVisionBaseURL))
	reg.Register(sources.NewCoinGecko(httpc, sources.CoinGeckoBaseURL))
	reg.Register(sources.NewTheCelo(celoc, fetch.NewRoundRobin(cfg.TheCeloHosts...)))
	reg.Register(sources.NewFeesWtf(browser, sources.FeesWtfBaseURL))
	reg.Register(sources.NewPoolsVision(browser, sources.PoolsVisionBaseURL))
	reg.Register(zapper.NewBalances(zapperClient, logger))
	reg.Register(zapper.NewRefresh(zapperClient, logger))

	// HTTP routes
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())

	for _, name := range reg.Names() {
		r.Get("/"+name, handler.Export(logger, reg.Get(name)))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "sources", reg.Names())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
