package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SARWIND_TOPOGRAPHY_RASTER_PATH", "/data/gmted2010.nc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Retrieval.Stride)
	assert.Equal(t, 3*time.Hour, cfg.Retrieval.TemporalTolerance)
	assert.Equal(t, 1e-4, cfg.Retrieval.NoiseFloor)
	assert.Equal(t, 50.0, cfg.Retrieval.MaxSpeed)
	assert.Equal(t, "/data/gmted2010.nc", cfg.Topography.RasterPath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SARWIND_TOPOGRAPHY_RASTER_PATH", "/data/gmted2010.nc")
	t.Setenv("SARWIND_RETRIEVAL_STRIDE", "8")
	t.Setenv("SARWIND_RETRIEVAL_TEMPORAL_TOLERANCE", "1h")
	t.Setenv("SARWIND_SERVER_ADDR", ":9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Retrieval.Stride)
	assert.Equal(t, time.Hour, cfg.Retrieval.TemporalTolerance)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadRejectsMissingTopography(t *testing.T) {
	_, err := Load()
	assert.ErrorContains(t, err, "topography")
}

func TestValidateCatchesBadValues(t *testing.T) {
	t.Setenv("SARWIND_TOPOGRAPHY_RASTER_PATH", "/data/gmted2010.nc")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Retrieval.Stride = 0
	cfg.Retrieval.Workers = -1
	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "retrieval.stride")
	assert.ErrorContains(t, err, "retrieval.workers")
}
