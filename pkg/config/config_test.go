package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrilevelset/internal/models"
	"mrilevelset/pkg/evolution"
	"mrilevelset/pkg/volume"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	s := cfg.EvolutionSettings()
	want := evolution.DefaultSettings()
	assert.Equal(t, want.Params.TimeStep, s.Params.TimeStep)
	assert.Equal(t, want.Params.SmoothingScale, s.Params.SmoothingScale)
	assert.Equal(t, want.ThresholdLow, s.ThresholdLow)
	assert.Equal(t, want.CentralTolerance, s.CentralTolerance)
	assert.Equal(t, want.MaxIterations, s.MaxIterations)
	require.NotNil(t, s.HoleFill)
	assert.Equal(t, 5.0, s.HoleFill.GapThreshold)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("missing file should give defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
evolution:
  smoothingScale: 0.0002
  maxIterations: 250
volume:
  pixelSpacing: 0.5
  orientation: sagittal
  convention: "+"
processing:
  warmStart: false
  numWorkers: 2
output:
  saveReslices: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.0002, cfg.Evolution.SmoothingScale)
	assert.Equal(t, 250, cfg.Evolution.MaxIterations)
	assert.Equal(t, 1.0, cfg.Evolution.TimeStep, "unset keys keep their defaults")

	meta, err := cfg.VolumeMetadata()
	require.NoError(t, err)
	assert.Equal(t, volume.Metadata{
		PixelSpacing:  0.5,
		SliceDistance: 1,
		Orientation:   models.Sagittal,
		Convention:    volume.PositiveAxis,
	}, meta)

	params := cfg.SegmentationParams(meta.Orientation)
	assert.False(t, params.WarmStart)
	assert.Equal(t, 2, params.NumWorkers)
	assert.Equal(t, -1, params.SeedIndex)
	assert.Equal(t, models.Sagittal, params.Orientation)
	assert.Equal(t, 250, params.Evolution.MaxIterations)
	assert.Equal(t, 0.8, params.Initializer.ThresholdFraction)
	assert.True(t, params.SaveReslices)
	assert.False(t, params.SavePlots)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("evolution: [1, 2"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("round trip changed config (-want +got):\n%s", diff)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Evolution.TimeStep = 0
	cfg.Evolution.ReinitMaxPasses = 500
	cfg.Volume.Orientation = "oblique"
	cfg.Processing.NumWorkers = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"timeStep", "reinitMaxPasses", "orientation", "numWorkers"} {
		assert.Contains(t, err.Error(), key)
	}

	_, err = cfg.VolumeMetadata()
	assert.Error(t, err)
}
