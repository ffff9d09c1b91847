package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"polsarseg/internal/models"
	"polsarseg/pkg/raster"
	"polsarseg/pkg/wishart"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Input.Rows = 10
	cfg.Input.Cols = 12
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Processing.Strategy != wishart.StrategyName {
		t.Errorf("unexpected default strategy %q", cfg.Processing.Strategy)
	}
	if cfg.Processing.NumCores <= 0 {
		t.Error("default core count should be positive")
	}
	if cfg.Wishart != wishart.DefaultParams() {
		t.Errorf("default wishart params differ: %+v", cfg.Wishart)
	}
	if err := validConfig().Validate(); err != nil {
		t.Errorf("default config with a geometry should be valid: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Processing.BlocksOverlapPercent != DefaultConfig().Processing.BlocksOverlapPercent {
		t.Error("expected default values for a missing file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := validConfig()
	cfg.Processing.Bands = []int{0, 4, 8, 1}
	cfg.Wishart.DataType = models.CoherenceMatrix
	cfg.Wishart.Connectivity = models.Moore
	cfg.Wishart.MinSegmentSize = 12
	cfg.Output.CutOffLinesFile = "lines.tif"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.Wishart != cfg.Wishart {
		t.Errorf("wishart params changed: %+v vs %+v", loaded.Wishart, cfg.Wishart)
	}
	if len(loaded.Processing.Bands) != 4 || loaded.Processing.Bands[1] != 4 {
		t.Errorf("bands changed: %v", loaded.Processing.Bands)
	}
	if loaded.Output.CutOffLinesFile != "lines.tif" || loaded.Input.Cols != 12 {
		t.Error("output or input settings were not preserved")
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("wishart:\n  connectivity: moore\n  dataType: coherence\ninput:\n  rows: 5\n  cols: 5\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Wishart.Connectivity != models.Moore || cfg.Wishart.DataType != models.CoherenceMatrix {
		t.Errorf("enum values not parsed: %+v", cfg.Wishart)
	}
	if cfg.Wishart.RegionGrowingLimit != 15 {
		t.Errorf("unset values should keep their defaults, got %d", cfg.Wishart.RegionGrowingLimit)
	}

	if err := os.WriteFile(path, []byte("wishart:\n  connectivity: hexagonal\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for an unknown connectivity")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no geometry", func(c *Config) { c.Input.Rows = 0 }},
		{"band beyond input", func(c *Config) { c.Processing.Bands = []int{9} }},
		{"no bands", func(c *Config) { c.Processing.Bands = nil }},
		{"overlap", func(c *Config) { c.Processing.BlocksOverlapPercent = 30 }},
		{"cores", func(c *Config) { c.Processing.NumCores = -2 }},
		{"wishart", func(c *Config) { c.Wishart.ENLLZero = 0.5 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSegmenterParams(t *testing.T) {
	cfg := validConfig()
	cfg.Processing.NumCores = 3
	cfg.Processing.MaxBlockSize = 64

	in, err := raster.NewMemory(cfg.InputGeometry(), cfg.Input.Bands)
	if err != nil {
		t.Fatal(err)
	}
	params := cfg.SegmenterParams(in, nil)
	if err := params.Validate(); err != nil {
		t.Fatalf("converted params are invalid: %v", err)
	}
	if params.MaxThreads != 3 || params.MaxBlockSize != 64 || len(params.InputRasterBands) != 9 {
		t.Errorf("unexpected conversion: %+v", params)
	}
	if p, ok := params.StrategyParams.(wishart.Params); !ok || p != cfg.Wishart {
		t.Errorf("strategy params not forwarded: %#v", params.StrategyParams)
	}
}
