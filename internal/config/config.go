// Package config handles pipeline configuration loading and management.
package config

// Config holds all instancer settings.
type Config struct {
	Separation SeparationConfig `yaml:"separation"`
	Rebuild    RebuildConfig    `yaml:"rebuild"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SeparationConfig holds grouping tolerances and discovery policy.
type SeparationConfig struct {
	Tolerance               float64 `yaml:"tolerance"`
	RequireSameMaterial     bool    `yaml:"require_same_material"`
	SplitShells             bool    `yaml:"split_shells"`
	DeriveAnchorAssemblies  bool    `yaml:"derive_anchor_assemblies"`
	AnchorCaptureMultiplier float64 `yaml:"anchor_capture_multiplier"`
	PositionTolerance       float64 `yaml:"position_tolerance"`
	RotationTolerance       float64 `yaml:"rotation_tolerance"`
}

// RebuildConfig holds mutation-phase settings.
type RebuildConfig struct {
	Enabled  bool `yaml:"enabled"`
	Collapse bool `yaml:"collapse"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Separation: SeparationConfig{
			Tolerance:               0.98,
			RequireSameMaterial:     true,
			SplitShells:             true,
			DeriveAnchorAssemblies:  true,
			AnchorCaptureMultiplier: 4.0,
			PositionTolerance:       0.1,
			RotationTolerance:       5.0,
		},
		Rebuild: RebuildConfig{
			Enabled:  false,
			Collapse: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
