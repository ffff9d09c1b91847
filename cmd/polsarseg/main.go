package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"polsarseg/pkg/config"
	"polsarseg/pkg/raster"
	"polsarseg/pkg/segmenter"
	"polsarseg/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "polsarseg.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	inputFile := flag.String("input", "", "Raw complex128 band-sequential input raster (overrides config)")
	rows := flag.Int("rows", 0, "Input raster rows (overrides config)")
	cols := flag.Int("cols", 0, "Input raster columns (overrides config)")
	outputFile := flag.String("output", "", "Label output file (overrides config)")
	numCores := flag.Int("cores", -1, "Number of worker threads, 0 for all CPUs (overrides config)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := initLogger(*debugMode)

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			logger.WithError(err).Fatal("Failed to write default configuration")
		}
		logger.WithField("file", *configPath).Info("Default configuration written")
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if *inputFile != "" {
		cfg.Input.File = *inputFile
	}
	if *rows > 0 {
		cfg.Input.Rows = *rows
	}
	if *cols > 0 {
		cfg.Input.Cols = *cols
	}
	if *outputFile != "" {
		cfg.Output.LabelsFile = *outputFile
	}
	if *numCores >= 0 {
		cfg.Processing.NumCores = *numCores
	}
	if !cfg.Output.Verbose && !*debugMode {
		logger.SetLevel(logrus.WarnLevel)
	}

	if cfg.Input.File == "" {
		flag.Usage()
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Segmentation failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"file":  cfg.Input.File,
		"rows":  cfg.Input.Rows,
		"cols":  cfg.Input.Cols,
		"bands": cfg.Input.Bands,
	}).Info("Reading input raster")

	in, err := raster.ReadRaw(cfg.Input.File, cfg.InputGeometry(), cfg.Input.Bands)
	if err != nil {
		return err
	}

	seg := segmenter.New()
	if err := seg.Initialize(cfg.SegmenterParams(in, logger)); err != nil {
		return err
	}

	startTime := time.Now()
	var out segmenter.OutputParameters
	if err := seg.Execute(ctx, &out); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"blocks":            out.Summary.Blocks,
		"segments":          out.Summary.Segments,
		"merges":            out.Summary.Merges,
		"mean_segment_size": fmt.Sprintf("%.2f", out.Summary.MeanSegmentSize),
		"elapsed":           time.Since(startTime).Round(time.Millisecond).String(),
	}).Info("Segmentation completed")

	if err := raster.WriteLabels(cfg.Output.LabelsFile, out.OutputRaster, 0); err != nil {
		return err
	}
	logger.WithField("file", cfg.Output.LabelsFile).Info("Labels saved")

	if cfg.Output.PreviewFile == "" {
		return nil
	}
	viewer, err := visualization.NewViewer(out.OutputRaster, 0)
	if err != nil {
		return err
	}
	if cfg.Output.CutOffLinesFile != "" {
		if err := viewer.LoadOverlay(cfg.Output.CutOffLinesFile); err != nil {
			logger.WithError(err).Warn("Cut-off lines not drawn on the preview")
		}
	}
	if err := viewer.Save(cfg.Output.PreviewFile, cfg.Output.PreviewWidth); err != nil {
		return err
	}
	logger.WithField("file", cfg.Output.PreviewFile).Info("Preview saved")

	return nil
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
