// Package config provides configuration loading and management for mrilevelset.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"mrilevelset/internal/models"
	"mrilevelset/pkg/denoise"
	"mrilevelset/pkg/evolution"
	"mrilevelset/pkg/holefill"
	"mrilevelset/pkg/initializer"
	"mrilevelset/pkg/levelset"
	"mrilevelset/pkg/segmentation"
	"mrilevelset/pkg/volume"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Evolution parameters of the per-slice controller
	Evolution struct {
		TimeStep       float64 `yaml:"timeStep"`
		GridSpacing    float64 `yaml:"gridSpacing"`
		ForceWeight    float64 `yaml:"forceWeight"`
		SmoothingScale float64 `yaml:"smoothingScale"`

		// ThresholdSelector is used as is when AdaptiveThreshold is off
		ThresholdSelector float64 `yaml:"thresholdSelector"`
		AdaptiveThreshold bool    `yaml:"adaptiveThreshold"`
		ThresholdLow      float64 `yaml:"thresholdLow"`
		ThresholdHigh     float64 `yaml:"thresholdHigh"`

		ReinitTimeStep  float64 `yaml:"reinitTimeStep"`
		ReinitMaxPasses int     `yaml:"reinitMaxPasses"`

		CentralTolerance    int `yaml:"centralTolerance"`
		PeripheralTolerance int `yaml:"peripheralTolerance"`
		CreepTolerance      int `yaml:"creepTolerance"`
		StallLimit          int `yaml:"stallLimit"`

		// MaxIterations is the safety ceiling per slice
		MaxIterations int `yaml:"maxIterations"`
	} `yaml:"evolution"`

	// Initializer parameters
	Initializer struct {
		// ThresholdFraction places the rough foreground threshold between p2 and p98
		ThresholdFraction float64 `yaml:"thresholdFraction"`

		// MinThicknessMM is the shortest foreground run that counts as tissue
		MinThicknessMM float64 `yaml:"minThicknessMM"`
	} `yaml:"initializer"`

	// HoleFill parameters
	HoleFill struct {
		GapThreshold float64 `yaml:"gapThreshold"`
		ProbeMargin  float64 `yaml:"probeMargin"`
		MinRun       int     `yaml:"minRun"`
	} `yaml:"holeFill"`

	// Volume metadata used when the input carries none
	Volume struct {
		PixelSpacing  float64 `yaml:"pixelSpacing"`
		SliceDistance float64 `yaml:"sliceDistance"`
		SubjectAge    float64 `yaml:"subjectAge"`
		Orientation   string  `yaml:"orientation"`
		Convention    string  `yaml:"convention"`
	} `yaml:"volume"`

	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many slices are evolved concurrently
		NumWorkers int `yaml:"numWorkers"`

		// WarmStart propagates converged fields from the seed slice outward
		WarmStart bool `yaml:"warmStart"`

		// SeedIndex selects the seed slice, -1 for the central one
		SeedIndex int `yaml:"seedIndex"`

		PerSliceStats bool    `yaml:"perSliceStats"`
		Denoise       bool    `yaml:"denoise"`
		DenoiseSigma  float64 `yaml:"denoiseSigma"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Directory receives overlays and masks
		Directory string `yaml:"directory"`

		// SavePlots writes the convergence plot
		SavePlots bool `yaml:"savePlots"`

		// SaveReslices writes x and y reslices of the segmented mask stack
		SaveReslices bool `yaml:"saveReslices"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	p := levelset.DefaultParams()
	s := evolution.DefaultSettings()
	cfg.Evolution.TimeStep = p.TimeStep
	cfg.Evolution.GridSpacing = p.GridSpacing
	cfg.Evolution.ForceWeight = p.ForceWeight
	cfg.Evolution.SmoothingScale = p.SmoothingScale
	cfg.Evolution.ThresholdSelector = p.ThresholdSelector
	cfg.Evolution.AdaptiveThreshold = s.AdaptiveThreshold
	cfg.Evolution.ThresholdLow = s.ThresholdLow
	cfg.Evolution.ThresholdHigh = s.ThresholdHigh
	cfg.Evolution.ReinitTimeStep = p.ReinitTimeStep
	cfg.Evolution.ReinitMaxPasses = p.ReinitMaxPasses
	cfg.Evolution.CentralTolerance = s.CentralTolerance
	cfg.Evolution.PeripheralTolerance = s.PeripheralTolerance
	cfg.Evolution.CreepTolerance = s.CreepTolerance
	cfg.Evolution.StallLimit = s.StallLimit
	cfg.Evolution.MaxIterations = s.MaxIterations

	cfg.Initializer.ThresholdFraction = initializer.DefaultThresholdFraction
	cfg.Initializer.MinThicknessMM = initializer.DefaultMinThicknessMM

	cfg.HoleFill.GapThreshold = holefill.DefaultGapThreshold
	cfg.HoleFill.ProbeMargin = holefill.DefaultProbeMargin
	cfg.HoleFill.MinRun = 1

	cfg.Volume.PixelSpacing = 1.0
	cfg.Volume.SliceDistance = 1.0
	cfg.Volume.SubjectAge = 0
	cfg.Volume.Orientation = models.Axial.String()
	cfg.Volume.Convention = volume.NegativeAxis.String()

	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.WarmStart = true
	cfg.Processing.SeedIndex = -1
	cfg.Processing.DenoiseSigma = denoise.DefaultSigma

	cfg.Output.Verbose = true

	return cfg
}

// Validate reports every out-of-range setting
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, v ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, v...))
		}
	}

	e := c.Evolution
	check(e.TimeStep > 0, "evolution.timeStep must be positive, got %g", e.TimeStep)
	check(e.GridSpacing > 0, "evolution.gridSpacing must be positive, got %g", e.GridSpacing)
	check(e.SmoothingScale >= 0, "evolution.smoothingScale must not be negative, got %g", e.SmoothingScale)
	check(e.ThresholdSelector >= 0 && e.ThresholdSelector <= 1, "evolution.thresholdSelector must be in [0,1], got %g", e.ThresholdSelector)
	check(e.ThresholdLow >= 0 && e.ThresholdLow <= e.ThresholdHigh && e.ThresholdHigh <= 1,
		"evolution.thresholdLow/High must satisfy 0 <= low <= high <= 1, got %g/%g", e.ThresholdLow, e.ThresholdHigh)
	check(e.ReinitTimeStep > 0, "evolution.reinitTimeStep must be positive, got %g", e.ReinitTimeStep)
	check(e.ReinitMaxPasses > 0 && e.ReinitMaxPasses <= 200, "evolution.reinitMaxPasses must be in [1,200], got %d", e.ReinitMaxPasses)
	check(e.CentralTolerance >= 0 && e.PeripheralTolerance >= 0, "evolution tolerances must not be negative")
	check(e.StallLimit >= 0, "evolution.stallLimit must not be negative, got %d", e.StallLimit)
	check(e.MaxIterations > 0, "evolution.maxIterations must be positive, got %d", e.MaxIterations)

	check(c.Initializer.ThresholdFraction > 0 && c.Initializer.ThresholdFraction < 1,
		"initializer.thresholdFraction must be in (0,1), got %g", c.Initializer.ThresholdFraction)
	check(c.Initializer.MinThicknessMM >= 0, "initializer.minThicknessMM must not be negative, got %g", c.Initializer.MinThicknessMM)

	check(c.HoleFill.GapThreshold > 0, "holeFill.gapThreshold must be positive, got %g", c.HoleFill.GapThreshold)
	check(c.HoleFill.ProbeMargin >= 0, "holeFill.probeMargin must not be negative, got %g", c.HoleFill.ProbeMargin)

	check(c.Volume.PixelSpacing > 0, "volume.pixelSpacing must be positive, got %g", c.Volume.PixelSpacing)
	check(c.Volume.SubjectAge >= 0, "volume.subjectAge must not be negative, got %g", c.Volume.SubjectAge)
	if _, err := models.ParseOrientation(c.Volume.Orientation); err != nil {
		errs = append(errs, fmt.Errorf("volume.orientation: %w", err))
	}
	if _, err := volume.ParseConvention(c.Volume.Convention); err != nil {
		errs = append(errs, fmt.Errorf("volume.convention: %w", err))
	}

	check(c.Processing.NumWorkers > 0, "processing.numWorkers must be positive, got %d", c.Processing.NumWorkers)
	check(!c.Processing.Denoise || c.Processing.DenoiseSigma > 0, "processing.denoiseSigma must be positive when denoising")

	return errors.Join(errs...)
}

// EvolutionSettings converts the evolution and holeFill sections
func (c *Config) EvolutionSettings() evolution.Settings {
	e := c.Evolution
	return evolution.Settings{
		Params: levelset.Params{
			TimeStep:          e.TimeStep,
			GridSpacing:       e.GridSpacing,
			ForceWeight:       e.ForceWeight,
			SmoothingScale:    e.SmoothingScale,
			ThresholdSelector: e.ThresholdSelector,
			ReinitTimeStep:    e.ReinitTimeStep,
			ReinitMaxPasses:   e.ReinitMaxPasses,
		},
		AdaptiveThreshold:   e.AdaptiveThreshold,
		ThresholdLow:        e.ThresholdLow,
		ThresholdHigh:       e.ThresholdHigh,
		CentralTolerance:    e.CentralTolerance,
		PeripheralTolerance: e.PeripheralTolerance,
		CreepTolerance:      e.CreepTolerance,
		StallLimit:          e.StallLimit,
		MaxIterations:       e.MaxIterations,
		HoleFill:            c.HoleFiller(),
	}
}

// HoleFiller converts the holeFill section
func (c *Config) HoleFiller() *holefill.Filler {
	return &holefill.Filler{
		GapThreshold: c.HoleFill.GapThreshold,
		ProbeMargin:  c.HoleFill.ProbeMargin,
		MinRun:       c.HoleFill.MinRun,
	}
}

// VolumeMetadata converts the volume section
func (c *Config) VolumeMetadata() (volume.Metadata, error) {
	o, err := models.ParseOrientation(c.Volume.Orientation)
	if err != nil {
		return volume.Metadata{}, err
	}
	conv, err := volume.ParseConvention(c.Volume.Convention)
	if err != nil {
		return volume.Metadata{}, err
	}
	return volume.Metadata{
		PixelSpacing:  c.Volume.PixelSpacing,
		SliceDistance: c.Volume.SliceDistance,
		SubjectAge:    c.Volume.SubjectAge,
		Orientation:   o,
		Convention:    conv,
	}, nil
}

// SegmentationParams converts the processing and output sections
func (c *Config) SegmentationParams(orientation models.Orientation) *segmentation.Params {
	return &segmentation.Params{
		SeedIndex:     c.Processing.SeedIndex,
		WarmStart:     c.Processing.WarmStart,
		NumWorkers:    c.Processing.NumWorkers,
		Orientation:   orientation,
		Denoise:       c.Processing.Denoise,
		DenoiseSigma:  c.Processing.DenoiseSigma,
		PerSliceStats: c.Processing.PerSliceStats,
		Evolution:     c.EvolutionSettings(),
		Initializer: &initializer.Initializer{
			ThresholdFraction: c.Initializer.ThresholdFraction,
			MinThicknessMM:    c.Initializer.MinThicknessMM,
		},
		OutputDir:    c.Output.Directory,
		SavePlots:    c.Output.SavePlots,
		SaveReslices: c.Output.SaveReslices,
	}
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
