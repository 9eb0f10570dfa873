// Package main is the entry point for the instancer CLI. It loads a glTF
// scene, discovers duplicate and repeating structure, and reports what could
// be shared as instances.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/meshfab/instancer/internal/config"
	"github.com/meshfab/instancer/internal/logger"
	"github.com/meshfab/instancer/internal/report"
	"github.com/meshfab/instancer/internal/scene/gltfscene"
	"github.com/meshfab/instancer/internal/separator"
)

var (
	flagInput  = flag.String("input", "", "Path to a .gltf/.glb scene (required)")
	flagReport = flag.String("report", "", "Write a YAML separation report to this path")
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *flagInput == "" {
		fmt.Fprintln(os.Stderr, "Usage: instancer --input scene.glb [--report out.yaml]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger.Info("loading scene", zap.String("path", *flagInput))
	ms, handles, err := gltfscene.Load(*flagInput)
	if err != nil {
		logger.Error("failed to load scene", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("scene loaded", zap.Int("nodes", len(handles)))

	sep := separator.New(ms, ms, optionsFromConfig(cfg))
	result, err := sep.Separate(handles)
	if err != nil {
		if errors.Is(err, separator.ErrNoNodes) || errors.Is(err, separator.ErrNoPayloads) {
			logger.Error("nothing to analyze", zap.Error(err))
			os.Exit(1)
		}
		logger.Error("separation failed", zap.Error(err))
		os.Exit(1)
	}

	if *flagReport != "" {
		r := report.Build(result, ms)
		if err := r.WriteTo(*flagReport); err != nil {
			logger.Error("failed to write report", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("report written", zap.String("path", *flagReport))
	}
}

// optionsFromConfig maps the yaml surface onto separator options.
func optionsFromConfig(cfg *config.Config) separator.Options {
	return separator.Options{
		Tolerance:               cfg.Separation.Tolerance,
		RequireSameMaterial:     cfg.Separation.RequireSameMaterial,
		SplitShells:             cfg.Separation.SplitShells,
		RebuildInstances:        cfg.Rebuild.Enabled,
		PositionTolerance:       cfg.Separation.PositionTolerance,
		RotationTolerance:       cfg.Separation.RotationTolerance,
		DeriveAnchorAssemblies:  cfg.Separation.DeriveAnchorAssemblies,
		AnchorCaptureMultiplier: cfg.Separation.AnchorCaptureMultiplier,
		CollapseRebuilt:         cfg.Rebuild.Collapse,
	}
}
