// Package main provides the SAR wind retrieval HTTP server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/metno/sarwind/internal/adapter/export"
	"github.com/metno/sarwind/internal/adapter/sar"
	"github.com/metno/sarwind/internal/adapter/topography"
	"github.com/metno/sarwind/internal/adapter/windfield"
	"github.com/metno/sarwind/internal/config"
	"github.com/metno/sarwind/internal/domain"
	httpHandler "github.com/metno/sarwind/internal/http"
	"github.com/metno/sarwind/internal/observability"
	"github.com/metno/sarwind/internal/registry"
	"github.com/metno/sarwind/internal/usecase"
)

const version = "0.1.0"

func main() {
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		fmt.Printf("sarwind-server version %s\n", version)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	topo, err := buildTopography(cfg.Topography, logger)
	if err != nil {
		logger.Error("topography initialization failed", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Data.OutputDir, 0o755); err != nil {
		logger.Error("creating output directory failed", "dir", cfg.Data.OutputDir, "error", err)
		os.Exit(1)
	}

	var store usecase.RetrievalStore
	var lister httpHandler.RetrievalLister
	if cfg.Data.RegistryPath != "" {
		reg, err := registry.Open(cfg.Data.RegistryPath)
		if err != nil {
			logger.Error("opening retrieval registry failed", "path", cfg.Data.RegistryPath, "error", err)
			os.Exit(1)
		}
		defer func() { _ = reg.Close() }()
		store, lister = reg, reg
		logger.Info("retrieval registry open", "path", cfg.Data.RegistryPath)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(promReg)

	inversion := domain.DefaultInversionConfig()
	inversion.NoiseFloor = cfg.Retrieval.NoiseFloor
	inversion.MaxSpeedMS = cfg.Retrieval.MaxSpeed

	orch := usecase.NewOrchestrator(topo, usecase.Config{
		Colocation: usecase.ColocationConfig{
			Stride:            cfg.Retrieval.Stride,
			TemporalTolerance: cfg.Retrieval.TemporalTolerance,
		},
		Inversion: inversion,
		Workers:   cfg.Retrieval.Workers,
	}, logger, metrics, clockwork.NewRealClock())

	proc := usecase.NewProcessor(sar.NewReader(), windfield.NewReader(), export.NewNetCDF(),
		store, orch, usecase.ProcessorConfig{OutputDir: cfg.Data.OutputDir}, logger)

	router := httpHandler.SetupRouter(httpHandler.NewHandler(proc, lister), promReg)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	logger.Info("server listening", "addr", cfg.Server.Addr, "version", version)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// buildTopography picks the land mask source: elevation raster when
// configured, coastline polygons otherwise.
func buildTopography(cfg config.TopographyConfig, logger *slog.Logger) (topography.Provider, error) {
	if cfg.RasterPath != "" {
		logger.Info("loading topography raster", "path", cfg.RasterPath)
		return topography.NewRaster(cfg.RasterPath)
	}
	logger.Info("loading shoreline polygons", "path", cfg.ShorelinePath)
	return topography.NewShoreline(cfg.ShorelinePath)
}

func printUsage() {
	fmt.Printf("SAR Wind Retrieval Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  sarwind-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Read from config.yaml (./ or ./configs) and SARWIND_* environment")
	fmt.Println("  variables, e.g. SARWIND_SERVER_ADDR, SARWIND_RETRIEVAL_STRIDE,")
	fmt.Println("  SARWIND_TOPOGRAPHY_RASTER_PATH.")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health          Health check")
	fmt.Println("  GET  /metrics         Prometheus metrics")
	fmt.Println("  POST /v1/retrievals   Run a retrieval for a scene/wind-field pair")
	fmt.Println("  GET  /v1/retrievals   List recorded retrievals")
	fmt.Println()
}
