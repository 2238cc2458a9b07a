package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/metno/sarwind/internal/domain"
)

// ErrAlreadyProcessed is returned when a scene is found in the retrieval
// store and reprocessing is not forced.
var ErrAlreadyProcessed = errors.New("scene already processed")

// SceneReader loads a SAR observation from a product file.
type SceneReader interface {
	Read(ctx context.Context, path string) (*domain.SARObservation, error)
}

// WindFieldReader loads an auxiliary model wind field from a product file.
type WindFieldReader interface {
	Read(ctx context.Context, path string) (*domain.AuxiliaryWindField, error)
}

// ResultExporter writes a retrieval result to a product file.
type ResultExporter interface {
	Export(ctx context.Context, path string, res *domain.RetrievalResult) error
}

// RetrievalRecord is the bookkeeping row for one completed retrieval.
type RetrievalRecord struct {
	SARID       string
	WindID      string
	OutputPath  string
	ProcessedAt time.Time
	FlagCounts  map[domain.Flag]int
}

// RetrievalStore keeps track of which scenes have been processed.
type RetrievalStore interface {
	Seen(ctx context.Context, sarID string) (bool, error)
	Record(ctx context.Context, rec RetrievalRecord) error
}

// ProcessorConfig holds the file-processing settings on top of the
// retrieval configuration.
type ProcessorConfig struct {
	OutputDir string

	// Force reprocesses scenes already present in the store.
	Force bool
}

// Processor runs the retrieval end to end for product files: read, retrieve,
// export, record. The store may be nil, in which case every scene is
// processed unconditionally and nothing is recorded.
type Processor struct {
	scenes SceneReader
	winds  WindFieldReader
	export ResultExporter
	store  RetrievalStore
	orch   *Orchestrator
	cfg    ProcessorConfig
	logger *slog.Logger
}

func NewProcessor(scenes SceneReader, winds WindFieldReader, export ResultExporter, store RetrievalStore, orch *Orchestrator, cfg ProcessorConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{scenes: scenes, winds: winds, export: export, store: store, orch: orch, cfg: cfg, logger: logger}
}

// Process retrieves wind from one scene/wind-field pair and returns the
// record of the completed run.
func (p *Processor) Process(ctx context.Context, scenePath, windPath string) (*RetrievalRecord, error) {
	sar, err := p.scenes.Read(ctx, scenePath)
	if err != nil {
		return nil, fmt.Errorf("reading SAR scene %s: %w", scenePath, err)
	}
	if p.store != nil && !p.cfg.Force {
		seen, err := p.store.Seen(ctx, sar.ID)
		if err != nil {
			return nil, fmt.Errorf("checking retrieval store for %q: %w", sar.ID, err)
		}
		if seen {
			return nil, fmt.Errorf("scene %q: %w", sar.ID, ErrAlreadyProcessed)
		}
	}

	aux, err := p.winds.Read(ctx, windPath)
	if err != nil {
		return nil, fmt.Errorf("reading wind field %s: %w", windPath, err)
	}

	res, err := p.orch.Retrieve(ctx, sar, aux)
	if err != nil {
		return nil, err
	}

	outPath := filepath.Join(p.cfg.OutputDir, OutputName(scenePath))
	if err := p.export.Export(ctx, outPath, res); err != nil {
		return nil, fmt.Errorf("exporting retrieval to %s: %w", outPath, err)
	}

	rec := &RetrievalRecord{
		SARID:       sar.ID,
		WindID:      aux.ID,
		OutputPath:  outPath,
		ProcessedAt: res.Provenance.ProcessedAt,
		FlagCounts:  res.Provenance.FlagCounts,
	}
	if p.store != nil {
		if err := p.store.Record(ctx, *rec); err != nil {
			return nil, fmt.Errorf("recording retrieval of %q: %w", sar.ID, err)
		}
	}
	p.logger.Info("scene processed", "sar", sar.ID, "wind", aux.ID, "output", outPath)
	return rec, nil
}

// OutputName derives the wind product filename from the scene filename.
func OutputName(scenePath string) string {
	base := filepath.Base(scenePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "_wind.nc"
}
