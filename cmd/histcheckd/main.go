package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/dbhist/histcheck/internal/telemetry"
	"github.com/dbhist/histcheck/pkg/logging"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port to listen on")
	debug := flag.Bool("debug", false, "Run gin in debug mode with request logging")
	logDir := flag.String("log-dir", "", "Directory to additionally write JSON log files to")
	flag.Parse()

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  *logDir,
		Service: "histcheckd",
		JSON:    true,
	})
	defer logger.Close()

	providers, err := telemetry.SetupPrometheus(context.Background())
	if err != nil {
		logger.Error("failed to set up telemetry providers", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer providers.Shutdown(context.Background())

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("histcheckd"))
	if *debug {
		router.Use(gin.Logger())
	}

	registerRoutes(router, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: router,
	}

	go func() {
		logger.Info("starting histcheckd", slog.Int("port", *port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down histcheckd")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}
