package usecase

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/metno/sarwind/internal/adapter/topography"
	"github.com/metno/sarwind/internal/domain"
)

// classifierFunc adapts a per-point rule into a topography.Provider.
type classifierFunc func(lon, lat float64) topography.Class

func (f classifierFunc) Classify(lons, lats []float64) ([]topography.Class, error) {
	out := make([]topography.Class, len(lons))
	for i := range lons {
		out[i] = f(lons[i], lats[i])
	}
	return out, nil
}

var allSea = classifierFunc(func(lon, lat float64) topography.Class { return topography.ClassSea })

func testOrchestrator(t *testing.T, topo topography.Provider) *Orchestrator {
	t.Helper()
	cfg := Config{
		Colocation: ColocationConfig{Stride: 1, TemporalTolerance: 3 * time.Hour},
		Inversion:  domain.DefaultInversionConfig(),
		Workers:    2,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(topo, cfg, logger, nil, clockwork.NewFakeClock())
}

// scene4 is a 4x4 all-water scene whose backscatter corresponds exactly to
// a 10 m/s wind blowing from 45 degrees, look direction north.
func scene4(t *testing.T) *domain.SARObservation {
	t.Helper()
	grid, err := domain.NewLatLonGrid(4, 4, 5.0, 60.0, 0.01, -0.01)
	if err != nil {
		t.Fatalf("building SAR grid: %v", err)
	}
	return &domain.SARObservation{
		ID:               "S1A_SCENE4",
		NRCS:             uniform(4, 4, domain.CMOD5N(10, 45, 35)),
		IncidenceDeg:     uniform(4, 4, 35),
		LookDirectionDeg: uniform(4, 4, 0),
		Polarization:     domain.PolVV,
		AcquisitionTime:  testAcquisition,
		Grid:             grid,
	}
}

func wind4(t *testing.T) *domain.AuxiliaryWindField {
	t.Helper()
	return testWindField(t, []float64{45}, []time.Time{testAcquisition})
}

func TestRetrieveUniformScene(t *testing.T) {
	o := testOrchestrator(t, allSea)
	sar, aux := scene4(t), wind4(t)

	res, err := o.Retrieve(context.Background(), sar, aux)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	rows, cols := res.Grid.Shape()
	if rows != 4 || cols != 4 {
		t.Fatalf("result shape = (%d, %d), want (4, 4)", rows, cols)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if f := res.Flags[i][j]; f != domain.FlagValid {
				t.Fatalf("pixel (%d, %d) flag = %s, want VALID", i, j, f)
			}
			if sp := res.SpeedMS[i][j]; math.Abs(sp-10) > 0.1 {
				t.Errorf("pixel (%d, %d) speed = %.3f, want 10 +/- 0.1", i, j, sp)
			}
			if d := res.DirectionFromDeg[i][j]; math.Abs(d-45) > 1e-6 {
				t.Errorf("pixel (%d, %d) direction = %.6f, want 45", i, j, d)
			}
		}
	}

	prov := res.Provenance
	if prov.SARID != "S1A_SCENE4" || prov.WindID != "nwp_test" {
		t.Errorf("provenance ids = (%q, %q)", prov.SARID, prov.WindID)
	}
	if prov.GMFName != domain.GMFName || prov.GMFVersion != domain.GMFVersion {
		t.Errorf("provenance model = (%q, %q)", prov.GMFName, prov.GMFVersion)
	}
	if prov.ProcessedAt.IsZero() {
		t.Error("provenance has no processing timestamp")
	}
	total := 0
	for _, n := range prov.FlagCounts {
		total += n
	}
	if total != 16 {
		t.Errorf("flag counts sum to %d, want 16", total)
	}
	if prov.FlagCounts[domain.FlagValid] != 16 {
		t.Errorf("valid count = %d, want 16", prov.FlagCounts[domain.FlagValid])
	}
}

func TestRetrieveMasksLand(t *testing.T) {
	// A headland occupies the northwest 2x2 block of the scene.
	coast := classifierFunc(func(lon, lat float64) topography.Class {
		if lon < 5.015 && lat > 59.985 {
			return topography.ClassLand
		}
		return topography.ClassSea
	})
	o := testOrchestrator(t, coast)

	res, err := o.Retrieve(context.Background(), scene4(t), wind4(t))
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := domain.FlagValid
			if i < 2 && j < 2 {
				want = domain.FlagLandMasked
			}
			if f := res.Flags[i][j]; f != want {
				t.Errorf("pixel (%d, %d) flag = %s, want %s", i, j, f, want)
			}
			if want == domain.FlagLandMasked && !math.IsNaN(res.SpeedMS[i][j]) {
				t.Errorf("pixel (%d, %d): masked pixel has speed %.3f", i, j, res.SpeedMS[i][j])
			}
		}
	}
	if n := res.Provenance.FlagCounts[domain.FlagLandMasked]; n != 4 {
		t.Errorf("land count = %d, want 4", n)
	}
}

func TestRetrieveTreatsUnknownAsLand(t *testing.T) {
	unknown := classifierFunc(func(lon, lat float64) topography.Class { return topography.ClassUnknown })
	o := testOrchestrator(t, unknown)

	res, err := o.Retrieve(context.Background(), scene4(t), wind4(t))
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if n := res.Provenance.FlagCounts[domain.FlagLandMasked]; n != 16 {
		t.Errorf("land count = %d, want all 16 unknown pixels masked", n)
	}
}

func TestRetrievePartialAuxiliaryCoverage(t *testing.T) {
	// Wind grid ends at 5.015 degrees east, so the two eastern SAR
	// columns have no auxiliary data. The result still spans the scene.
	grid, err := domain.NewLatLonGrid(4, 4, 4.955, 60.05, 0.02, -0.05)
	if err != nil {
		t.Fatalf("building wind grid: %v", err)
	}
	aux := &domain.AuxiliaryWindField{
		ID:               "nwp_half",
		DirectionFromDeg: [][][]float64{uniform(4, 4, 45)},
		Times:            []time.Time{testAcquisition},
		Grid:             grid,
	}
	o := testOrchestrator(t, allSea)

	res, err := o.Retrieve(context.Background(), scene4(t), aux)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	rows, cols := res.Grid.Shape()
	if rows != 4 || cols != 4 {
		t.Fatalf("result shape = (%d, %d), want (4, 4)", rows, cols)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := domain.FlagValid
			if j >= 2 {
				want = domain.FlagNoAuxiliaryData
			}
			if f := res.Flags[i][j]; f != want {
				t.Errorf("pixel (%d, %d) flag = %s, want %s", i, j, f, want)
			}
		}
	}
}

func TestRetrieveFailsWithoutSpatialOverlap(t *testing.T) {
	grid, err := domain.NewLatLonGrid(6, 6, 20.0, 60.1, 0.05, -0.05)
	if err != nil {
		t.Fatalf("building wind grid: %v", err)
	}
	aux := &domain.AuxiliaryWindField{
		ID:               "nwp_far",
		DirectionFromDeg: [][][]float64{uniform(6, 6, 45)},
		Times:            []time.Time{testAcquisition},
		Grid:             grid,
	}
	o := testOrchestrator(t, allSea)
	if _, err := o.Retrieve(context.Background(), scene4(t), aux); err == nil {
		t.Fatal("Retrieve() accepted a wind field with no spatial overlap")
	}
}

func TestRetrieveFailsWithoutTemporalOverlap(t *testing.T) {
	aux := testWindField(t, []float64{45}, []time.Time{testAcquisition.Add(-24 * time.Hour)})
	o := testOrchestrator(t, allSea)
	if _, err := o.Retrieve(context.Background(), scene4(t), aux); err == nil {
		t.Fatal("Retrieve() accepted a wind field with no usable timestamp")
	}
}

func TestRetrieveFlagsOutOfRangePixels(t *testing.T) {
	sar := scene4(t)
	sar.NRCS[0][0] = 5e-5 // below the noise floor
	sar.IncidenceDeg[1][1] = 12
	o := testOrchestrator(t, allSea)

	res, err := o.Retrieve(context.Background(), sar, wind4(t))
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if f := res.Flags[0][0]; f != domain.FlagOutOfRange {
		t.Errorf("noise-floor pixel flag = %s, want OUT_OF_RANGE", f)
	}
	if f := res.Flags[1][1]; f != domain.FlagOutOfRange {
		t.Errorf("low-incidence pixel flag = %s, want OUT_OF_RANGE", f)
	}
	if n := res.Provenance.FlagCounts[domain.FlagValid]; n != 14 {
		t.Errorf("valid count = %d, want 14", n)
	}
}

func TestRetrieveHHPolarization(t *testing.T) {
	sar := scene4(t)
	sar.Polarization = domain.PolHH
	// Scale the VV-equivalent backscatter down to what an HH channel
	// would have measured.
	pr := domain.PolarizationRatioHH(35)
	for i := range sar.NRCS {
		for j := range sar.NRCS[i] {
			sar.NRCS[i][j] /= pr
		}
	}
	o := testOrchestrator(t, allSea)

	res, err := o.Retrieve(context.Background(), sar, wind4(t))
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if sp := res.SpeedMS[2][2]; math.Abs(sp-10) > 0.1 {
		t.Errorf("HH retrieved speed = %.3f, want 10 +/- 0.1", sp)
	}
}

func TestRetrieveCarriesModelSpeed(t *testing.T) {
	aux := wind4(t)
	aux.SpeedMS = [][][]float64{uniform(6, 6, 9.5)}
	o := testOrchestrator(t, allSea)

	res, err := o.Retrieve(context.Background(), scene4(t), aux)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if res.ModelSpeedMS == nil {
		t.Fatal("model speed not carried into the result")
	}
	if sp := res.ModelSpeedMS[1][2]; math.Abs(sp-9.5) > 1e-6 {
		t.Errorf("model speed = %.6f, want 9.5", sp)
	}
}

func TestRetrieveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := testOrchestrator(t, allSea)
	if _, err := o.Retrieve(ctx, scene4(t), wind4(t)); err == nil {
		t.Fatal("Retrieve() ignored a cancelled context")
	}
}
