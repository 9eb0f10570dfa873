package separator

// Options controls grouping tolerances and rebuild policy.
type Options struct {
	// Tolerance is the shape-similarity threshold in (0,1]. Two payloads
	// whose combined axis/volume similarity reaches it are duplicates.
	Tolerance float64

	// RequireSameMaterial gates grouping on identical material signatures.
	RequireSameMaterial bool

	// SplitShells expands multi-shell meshes into per-shell objects before
	// analysis.
	SplitShells bool

	// RebuildInstances runs the mutation phase after discovery.
	RebuildInstances bool

	// PositionTolerance is the maximum translation delta (scene units) a
	// component may be off its template slot.
	PositionTolerance float64

	// RotationTolerance is the maximum per-axis rotation delta in degrees.
	RotationTolerance float64

	// DeriveAnchorAssemblies enables splitting one source bucket into
	// repeated sub-assemblies around anchor components.
	DeriveAnchorAssemblies bool

	// AnchorCaptureMultiplier scales an anchor's longest bounding-box axis
	// into its capture radius. Scene-scale dependent; see also the k-th
	// neighbor fallback in the capture radius computation.
	AnchorCaptureMultiplier float64

	// CollapseRebuilt merges each rebuilt assembly into a single object.
	CollapseRebuilt bool
}

// DefaultOptions returns the tolerances the discovery engine ships with.
func DefaultOptions() Options {
	return Options{
		Tolerance:               0.98,
		RequireSameMaterial:     true,
		SplitShells:             true,
		RebuildInstances:        false,
		PositionTolerance:       0.1,
		RotationTolerance:       5.0,
		DeriveAnchorAssemblies:  true,
		AnchorCaptureMultiplier: 4.0,
		CollapseRebuilt:         true,
	}
}

// normalized clamps out-of-range values back to usable defaults.
func (o Options) normalized() Options {
	if o.Tolerance <= 0 || o.Tolerance > 1 {
		o.Tolerance = 0.98
	}
	if o.PositionTolerance <= 0 {
		o.PositionTolerance = 0.1
	}
	if o.RotationTolerance <= 0 {
		o.RotationTolerance = 5.0
	}
	if o.AnchorCaptureMultiplier <= 0 {
		o.AnchorCaptureMultiplier = 4.0
	}
	return o
}
