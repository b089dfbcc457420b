package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "go.uber.org/automaxprocs"

	"github.com/czhharrison/MerchantChat/internal/assistant"
	"github.com/czhharrison/MerchantChat/internal/collab"
	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/generate"
	"github.com/czhharrison/MerchantChat/internal/httpapi"
	"github.com/czhharrison/MerchantChat/internal/logging"
	"github.com/czhharrison/MerchantChat/internal/metrics"
	"github.com/czhharrison/MerchantChat/internal/storage"
	"github.com/czhharrison/MerchantChat/internal/tokenize"
)

const shutdownGrace = 10 * time.Second

// #region main
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("failed to open database")
	}
	defer db.Close()

	handle, closer, err := collab.Open(ctx, cfg.Collaborator)
	if err != nil {
		logger.Warn().Err(err).Str("kind", cfg.Collaborator.Kind).Msg("collaborator unavailable, using template generation")
	}
	defer closer.Close()

	tok := tokenize.NewGse(cfg.Vocabulary())
	if err := tok.Err(); err != nil {
		logger.Warn().Err(err).Msg("gse dictionary unavailable, using lexicon segmentation")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	svc, err := assistant.New(assistant.Deps{
		Config:       cfg,
		DB:           db,
		Tokenizer:    tok,
		Collaborator: handle,
		Selector:     generate.NewRandSelector(time.Now().UnixNano()),
		Metrics:      m,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build assistant")
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(svc, httpapi.Options{
		Metrics:        m,
		Gatherer:       reg,
		Logger:         &logger,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("db", cfg.Storage.Path).
		Str("collaborator", handle.Name()).
		Float64("accept_threshold", cfg.Refine.AcceptThreshold).
		Msg("merchant assistant listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}

// #endregion main
