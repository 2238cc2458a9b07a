package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/metno/sarwind/internal/adapter/topography"
	"github.com/metno/sarwind/internal/domain"
	"github.com/metno/sarwind/internal/observability"
)

// retrievalState tracks the orchestrator's progress through one retrieval.
type retrievalState int

const (
	stateInit retrievalState = iota
	stateMasked
	stateColocated
	stateInverted
	stateDone
	stateFailed
)

func (s retrievalState) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case stateMasked:
		return "MASKED"
	case stateColocated:
		return "COLOCATED"
	case stateInverted:
		return "INVERTED"
	case stateDone:
		return "DONE"
	}
	return "FAILED"
}

// Config bundles the retrieval settings.
type Config struct {
	Colocation ColocationConfig
	Inversion  domain.InversionConfig

	// Workers is the number of goroutines inverting pixels in parallel.
	// Every pixel is independent, so this only partitions the rows.
	Workers int
}

// DefaultConfig returns the operational retrieval settings.
func DefaultConfig() Config {
	return Config{
		Colocation: DefaultColocationConfig(),
		Inversion:  domain.DefaultInversionConfig(),
		Workers:    4,
	}
}

// Orchestrator runs the full retrieval: mask land, colocate the auxiliary
// direction field, invert the GMF per pixel, assemble the result.
type Orchestrator struct {
	topo    topography.Provider
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// NewOrchestrator creates an Orchestrator. Metrics may be nil; logger and
// clock fall back to defaults when nil.
func NewOrchestrator(topo topography.Provider, cfg Config, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator{topo: topo, cfg: cfg, logger: logger, metrics: metrics, clock: clock}
}

// Retrieve derives wind speed on the SAR grid. Structural input problems
// abort with an error; localized problems (coverage gaps, out-of-range
// pixels, non-convergence) are absorbed into the per-pixel quality flags,
// so a returned result always spans the full SAR grid.
func (o *Orchestrator) Retrieve(ctx context.Context, sar *domain.SARObservation, aux *domain.AuxiliaryWindField) (*domain.RetrievalResult, error) {
	start := o.clock.Now()
	st := stateInit
	log := o.logger.With("sar", sar.ID, "wind", aux.ID)

	fail := func(err error) (*domain.RetrievalResult, error) {
		st = stateFailed
		log.Error("retrieval failed", "state", st.String(), "error", err)
		if o.metrics != nil {
			o.metrics.RetrievalsTotal.WithLabelValues("failed").Inc()
		}
		return nil, err
	}

	// INIT: structural validation.
	if err := sar.Validate(); err != nil {
		return fail(err)
	}
	if err := aux.Validate(); err != nil {
		return fail(err)
	}
	if !sar.Grid.BoundingBox().Intersects(aux.Grid.BoundingBox()) {
		return fail(domain.Invalidf("SAR scene %q and wind field %q do not overlap spatially", sar.ID, aux.ID))
	}

	rows, cols := sar.Grid.Shape()
	res := &domain.RetrievalResult{
		SpeedMS:          nanFilled(rows, cols),
		DirectionFromDeg: nanFilled(rows, cols),
		Flags:            domain.NewFlag2D(rows, cols),
		Grid:             sar.Grid,
	}

	// MASKED: land and unknown pixels leave the pipeline here but keep
	// their place in the output grid.
	lons, lats, geoOK := pixelCoordinates(sar.Grid)
	classes, err := o.topo.Classify(lons, lats)
	if err != nil {
		return fail(domain.Invalidf("topography classification failed: %v", err))
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !geoOK[i*cols+j] || classes[i*cols+j] != topography.ClassSea {
				res.Flags[i][j] = domain.FlagLandMasked
			}
		}
	}
	st = stateMasked
	log.Debug("retrieval state", "state", st.String())

	// COLOCATED: direction field onto the SAR grid. A temporal mismatch
	// of the whole axis is structural, not per-pixel.
	wind, err := Colocate(sar, aux, o.cfg.Colocation)
	if err != nil {
		return fail(err)
	}
	anyCoverage := false
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if res.Flags[i][j] != domain.FlagValid {
				continue
			}
			if !wind.Valid[i][j] {
				res.Flags[i][j] = domain.FlagNoAuxiliaryData
				continue
			}
			anyCoverage = true
			res.DirectionFromDeg[i][j] = wind.DirectionFromDeg[i][j]
		}
	}
	if wind.SpeedMS != nil {
		res.ModelSpeedMS = wind.SpeedMS
	}
	st = stateColocated
	log.Debug("retrieval state", "state", st.String())

	seaPixels := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if res.Flags[i][j] != domain.FlagLandMasked {
				seaPixels++
			}
		}
	}
	if seaPixels > 0 && !anyCoverage {
		return fail(domain.Invalidf("wind field %q covers no sea pixel of SAR scene %q", aux.ID, sar.ID))
	}

	// INVERTED: per-pixel GMF inversion, partitioned across workers.
	if err := o.invertAll(ctx, sar, res); err != nil {
		return fail(err)
	}
	st = stateInverted
	log.Debug("retrieval state", "state", st.String())

	// DONE: provenance and counts.
	counts := make(map[domain.Flag]int, len(domain.Flags))
	for _, f := range domain.Flags {
		counts[f] = 0
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			counts[res.Flags[i][j]]++
		}
	}
	res.Provenance = domain.Provenance{
		SARID:             sar.ID,
		WindID:            aux.ID,
		GMFName:           domain.GMFName,
		GMFVersion:        domain.GMFVersion,
		AcquisitionTime:   sar.AcquisitionTime,
		ProcessedAt:       o.clock.Now(),
		TemporalTolerance: o.cfg.Colocation.TemporalTolerance,
		Stride:            o.cfg.Colocation.Stride,
		FlagCounts:        counts,
	}
	st = stateDone

	if o.metrics != nil {
		o.metrics.RetrievalsTotal.WithLabelValues("ok").Inc()
		o.metrics.RetrievalDuration.Observe(o.clock.Since(start).Seconds())
		for f, n := range counts {
			o.metrics.PixelsTotal.WithLabelValues(f.String()).Add(float64(n))
		}
	}
	log.Info("retrieval complete",
		"state", st.String(),
		"valid", counts[domain.FlagValid],
		"land_masked", counts[domain.FlagLandMasked],
		"no_auxiliary", counts[domain.FlagNoAuxiliaryData],
		"out_of_range", counts[domain.FlagOutOfRange],
		"inversion_failed", counts[domain.FlagInversionFailed],
		"duration", o.clock.Since(start))
	return res, nil
}

// invertAll runs the GMF inversion for every pixel still flagged VALID.
// Workers split the grid by rows; pixels are independent, so no
// synchronization beyond the final join is needed.
func (o *Orchestrator) invertAll(ctx context.Context, sar *domain.SARObservation, res *domain.RetrievalResult) error {
	rows, _ := sar.Grid.Shape()
	workers := o.cfg.Workers
	if workers > rows {
		workers = rows
	}
	chunk := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > rows {
			hi = rows
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			o.invertRows(ctx, sar, res, lo, hi)
		}(lo, hi)
	}
	wg.Wait()
	return ctx.Err()
}

func (o *Orchestrator) invertRows(ctx context.Context, sar *domain.SARObservation, res *domain.RetrievalResult, lo, hi int) {
	isHH := sar.Polarization == domain.PolHH
	for i := lo; i < hi; i++ {
		if ctx.Err() != nil {
			return
		}
		for j := range res.Flags[i] {
			if res.Flags[i][j] != domain.FlagValid {
				continue
			}
			nrcs := sar.NRCS[i][j]
			inc := sar.IncidenceDeg[i][j]
			if isHH {
				nrcs *= domain.PolarizationRatioHH(inc)
			}
			phi := domain.RelativeDirection(res.DirectionFromDeg[i][j], sar.LookDirectionDeg[i][j])
			speed, err := domain.InvertWindSpeed(nrcs, phi, inc, o.cfg.Inversion)
			if err != nil {
				var oor *domain.OutOfRangeError
				if errors.As(err, &oor) {
					res.Flags[i][j] = domain.FlagOutOfRange
				} else {
					res.Flags[i][j] = domain.FlagInversionFailed
				}
				continue
			}
			res.SpeedMS[i][j] = speed
		}
	}
}

// pixelCoordinates flattens the per-pixel geographic coordinates of a grid,
// reporting which pixels geolocated successfully.
func pixelCoordinates(g domain.GeoGrid) (lons, lats []float64, ok []bool) {
	rows, cols := g.Shape()
	lons = make([]float64, rows*cols)
	lats = make([]float64, rows*cols)
	ok = make([]bool, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			lon, lat, err := g.PixelToLonLat(float64(i), float64(j))
			k := i*cols + j
			lons[k], lats[k] = lon, lat
			ok[k] = err == nil
		}
	}
	return lons, lats, ok
}

func nanFilled(rows, cols int) [][]float64 {
	out := domain.NewFloat2D(rows, cols)
	nan := math.NaN()
	for i := range out {
		for j := range out[i] {
			out[i][j] = nan
		}
	}
	return out
}
