package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagTolerance = flag.Float64("tolerance", 0, "Shape similarity tolerance in (0,1]")
	flagRebuild   = flag.Bool("rebuild", false, "Rebuild duplicate assemblies as instances")
	flagNoShells  = flag.Bool("no-shell-split", false, "Analyze multi-shell meshes whole")
	flagNoAnchors = flag.Bool("no-anchors", false, "Disable anchor sub-assembly derivation")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagTolerance > 0 && *flagTolerance <= 1 {
		cfg.Separation.Tolerance = *flagTolerance
	}
	if *flagRebuild {
		cfg.Rebuild.Enabled = true
	}
	if *flagNoShells {
		cfg.Separation.SplitShells = false
	}
	if *flagNoAnchors {
		cfg.Separation.DeriveAnchorAssemblies = false
	}
}
