// Package main provides the one-shot SAR wind retrieval CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/metno/sarwind/internal/adapter/export"
	"github.com/metno/sarwind/internal/adapter/sar"
	"github.com/metno/sarwind/internal/adapter/topography"
	"github.com/metno/sarwind/internal/adapter/windfield"
	"github.com/metno/sarwind/internal/config"
	"github.com/metno/sarwind/internal/domain"
	"github.com/metno/sarwind/internal/registry"
	"github.com/metno/sarwind/internal/usecase"
)

func main() {
	scenePath := flag.String("scene", "", "Path to the SAR scene NetCDF file")
	windPath := flag.String("wind", "", "Path to the model wind field NetCDF file")
	force := flag.Bool("force", false, "Reprocess the scene even if already recorded")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *scenePath == "" || *windPath == "" {
		fmt.Fprintln(os.Stderr, "usage: sarwind -scene <scene.nc> -wind <wind.nc> [-force]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, *scenePath, *windPath, *force, logger); err != nil {
		if errors.Is(err, usecase.ErrAlreadyProcessed) {
			logger.Warn("nothing to do", "error", err)
			return
		}
		logger.Error("retrieval failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, scenePath, windPath string, force bool, logger *slog.Logger) error {
	var topo topography.Provider
	var err error
	if cfg.Topography.RasterPath != "" {
		topo, err = topography.NewRaster(cfg.Topography.RasterPath)
	} else {
		topo, err = topography.NewShoreline(cfg.Topography.ShorelinePath)
	}
	if err != nil {
		return fmt.Errorf("loading topography: %w", err)
	}

	if err := os.MkdirAll(cfg.Data.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var store usecase.RetrievalStore
	if cfg.Data.RegistryPath != "" {
		reg, err := registry.Open(cfg.Data.RegistryPath)
		if err != nil {
			return fmt.Errorf("opening retrieval registry: %w", err)
		}
		defer func() { _ = reg.Close() }()
		store = reg
	}

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
	}, logger, nil, clockwork.NewRealClock())

	proc := usecase.NewProcessor(sar.NewReader(), windfield.NewReader(), export.NewNetCDF(),
		store, orch, usecase.ProcessorConfig{OutputDir: cfg.Data.OutputDir, Force: force}, logger)

	rec, err := proc.Process(context.Background(), scenePath, windPath)
	if err != nil {
		return err
	}

	fmt.Printf("scene:  %s\n", rec.SARID)
	fmt.Printf("wind:   %s\n", rec.WindID)
	fmt.Printf("output: %s\n", rec.OutputPath)
	for _, f := range domain.Flags {
		fmt.Printf("%-17s %d\n", f.String()+":", rec.FlagCounts[f])
	}
	return nil
}
