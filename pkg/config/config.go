// Package config provides configuration loading and management for polsarseg.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"polsarseg/pkg/raster"
	"polsarseg/pkg/segmenter"
	"polsarseg/pkg/wishart"
)

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Strategy is the registered segmentation strategy name
		Strategy string `yaml:"strategy"`

		// Bands lists the input bands used as features, in order
		Bands []int `yaml:"bands"`

		// EnableThreadedProcessing runs several block workers
		EnableThreadedProcessing bool `yaml:"enableThreadedProcessing"`

		// NumCores is the maximum number of workers, 0 for one per CPU
		NumCores int `yaml:"numCores"`

		// EnableBlockProcessing splits the image into blocks
		EnableBlockProcessing bool `yaml:"enableBlockProcessing"`

		// MaxBlockSize is the maximum block side in pixels, 0 for automatic
		MaxBlockSize int `yaml:"maxBlockSize"`

		// BlocksOverlapPercent is the overlap between blocks, 0 to 25
		BlocksOverlapPercent int `yaml:"blocksOverlapPercent"`
	} `yaml:"processing"`

	// Wishart strategy parameters
	Wishart wishart.Params `yaml:"wishart"`

	// Input raster description
	Input struct {
		// File is a raw band-sequential complex128 raster
		File string `yaml:"file"`

		Rows  int `yaml:"rows"`
		Cols  int `yaml:"cols"`
		Bands int `yaml:"bands"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// LabelsFile receives the uint32 label raster
		LabelsFile string `yaml:"labelsFile"`

		// PreviewFile receives a colored rendering of the labels, format by extension
		PreviewFile string `yaml:"previewFile"`

		// PreviewWidth scales the preview, 0 keeps the raster size
		PreviewWidth int `yaml:"previewWidth"`

		// CutOffLinesFile receives the cut-off profiles as a TIFF image
		CutOffLinesFile string `yaml:"cutOffLinesFile"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.Strategy = wishart.StrategyName
	cfg.Processing.Bands = []int{0, 1, 2, 3, 4, 5, 6, 7, 8}
	cfg.Processing.EnableThreadedProcessing = true
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.EnableBlockProcessing = true
	cfg.Processing.MaxBlockSize = 0
	cfg.Processing.BlocksOverlapPercent = 10

	// Set default strategy parameters
	cfg.Wishart = wishart.DefaultParams()

	// Set default input parameters
	cfg.Input.Bands = 9

	// Set default output parameters
	cfg.Output.LabelsFile = "labels.raw"
	cfg.Output.PreviewFile = "labels.png"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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

// Validate checks the settings that can be verified without the input data
func (c *Config) Validate() error {
	if c.Input.Rows <= 0 || c.Input.Cols <= 0 || c.Input.Bands <= 0 {
		return fmt.Errorf("%w: input geometry %dx%d with %d bands", ErrInvalidConfig,
			c.Input.Rows, c.Input.Cols, c.Input.Bands)
	}
	if len(c.Processing.Bands) == 0 {
		return fmt.Errorf("%w: no processing bands", ErrInvalidConfig)
	}
	for _, b := range c.Processing.Bands {
		if b < 0 || b >= c.Input.Bands {
			return fmt.Errorf("%w: band %d outside the %d input bands", ErrInvalidConfig, b, c.Input.Bands)
		}
	}
	if c.Processing.NumCores < 0 {
		return fmt.Errorf("%w: negative core count", ErrInvalidConfig)
	}
	if c.Processing.MaxBlockSize < 0 {
		return fmt.Errorf("%w: negative block size", ErrInvalidConfig)
	}
	if p := c.Processing.BlocksOverlapPercent; p < 0 || p > segmenter.MaxBlocksOverlapPercent {
		return fmt.Errorf("%w: blocks overlap %d%%", ErrInvalidConfig, p)
	}
	if c.Output.PreviewWidth < 0 {
		return fmt.Errorf("%w: negative preview width", ErrInvalidConfig)
	}
	if c.Processing.Strategy == wishart.StrategyName {
		if err := c.Wishart.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// InputGeometry returns the configured input raster geometry
func (c *Config) InputGeometry() raster.Geometry {
	return raster.Geometry{Rows: c.Input.Rows, Cols: c.Input.Cols}
}

// SegmenterParams converts the configuration into segmenter parameters for in
func (c *Config) SegmenterParams(in raster.Raster, log logrus.FieldLogger) segmenter.InputParameters {
	params := segmenter.DefaultInputParameters()
	params.InputRaster = in
	params.InputRasterBands = append([]int(nil), c.Processing.Bands...)
	params.StrategyName = c.Processing.Strategy
	if c.Processing.Strategy == wishart.StrategyName {
		params.StrategyParams = c.Wishart
	}
	params.EnableThreadedProcessing = c.Processing.EnableThreadedProcessing
	params.MaxThreads = c.Processing.NumCores
	params.EnableBlockProcessing = c.Processing.EnableBlockProcessing
	params.MaxBlockSize = c.Processing.MaxBlockSize
	params.BlocksOverlapPercent = c.Processing.BlocksOverlapPercent
	params.CutOffLinesFile = c.Output.CutOffLinesFile
	params.Logger = log
	return params
}
