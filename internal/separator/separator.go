package separator

import (
	"errors"

	"go.uber.org/zap"

	"github.com/meshfab/instancer/internal/logger"
	"github.com/meshfab/instancer/internal/scene"
)

// Discovery-phase precondition failures. Everything past these degrades
// per item instead of aborting the pass.
var (
	// ErrNoNodes means no handles were supplied.
	ErrNoNodes = errors.New("separator: no transforms supplied")

	// ErrNoPayloads means none of the supplied handles carried a mesh.
	ErrNoPayloads = errors.New("separator: no mesh payloads discovered")
)

// Separator encapsulates mesh comparison and grouping over a scene provider.
// It is single-threaded; one Separator must not be shared across goroutines.
type Separator struct {
	provider scene.Provider
	mutator  scene.Mutator
	opts     Options
	log      *zap.Logger

	registry *sourceRegistry
}

// New returns a Separator reading from provider. mutator may be nil when the
// rebuild phase is disabled; with RebuildInstances set and no mutator the
// rebuild is skipped with a warning.
func New(provider scene.Provider, mutator scene.Mutator, opts Options) *Separator {
	return &Separator{
		provider: provider,
		mutator:  mutator,
		opts:     opts.normalized(),
		log:      logger.L().Named("separator"),
	}
}

// Separate analyzes the handles and returns the grouping outcome. Discovery
// itself never mutates the scene; the rebuild phase runs afterwards when
// enabled. Result ordering follows first appearance in the input.
func (s *Separator) Separate(handles []scene.Handle) (*Result, error) {
	// Re-resolve the package logger so a logger.Init after New still
	// takes effect.
	s.log = logger.L().Named("separator")

	if len(handles) == 0 {
		return nil, ErrNoNodes
	}

	s.registry = newSourceRegistry(s.provider, s.log)
	for _, h := range handles {
		s.registry.Register(h)
	}

	if s.opts.SplitShells {
		handles = s.expandShells(handles)
	}

	var payloads []*Payload
	for _, h := range handles {
		if payload := s.buildPayload(h); payload != nil {
			payloads = append(payloads, payload)
		}
	}
	if len(payloads) == 0 {
		return nil, ErrNoPayloads
	}

	groups := s.groupPayloads(payloads)
	assemblies, err := s.buildAssemblies(payloads)
	if err != nil {
		return nil, err
	}
	assemblyGroups := s.groupAssemblies(assemblies)

	result := &Result{
		Groups:         groups,
		PayloadCount:   len(payloads),
		Assemblies:     assemblies,
		AssemblyGroups: assemblyGroups,
	}
	s.logSummary(result)

	if s.opts.RebuildInstances {
		if s.mutator == nil {
			s.log.Warn("rebuild requested but no mutator available, skipping")
		} else {
			s.rebuildInstantiableAssemblies(result)
		}
	}

	return result, nil
}

// expandShells replaces multi-shell objects with their per-shell splits,
// registering each split back to the original as its source.
func (s *Separator) expandShells(handles []scene.Handle) []scene.Handle {
	expanded := make([]scene.Handle, 0, len(handles))
	for _, h := range handles {
		s.registry.Register(h)
		if !s.provider.NeedsShellSplit(h) {
			expanded = append(expanded, h)
			continue
		}

		shells, err := s.provider.SplitShells(h)
		if err != nil || len(shells) == 0 {
			if err != nil {
				s.log.Warn("shell split failed, analyzing object whole",
					zap.String("node", s.provider.Name(h)), zap.Error(err))
			}
			expanded = append(expanded, h)
			continue
		}
		for _, shell := range shells {
			s.registry.SetSource(shell, h)
		}
		expanded = append(expanded, shells...)
	}
	return expanded
}

func (s *Separator) logSummary(result *Result) {
	instantiable := result.InstantiableGroups()
	s.log.Info("separation complete",
		zap.Int("payloads", result.PayloadCount),
		zap.Int("instantiable_groups", len(instantiable)),
		zap.Int("unique_groups", len(result.UniqueGroups())),
	)
	for _, group := range instantiable {
		s.log.Debug("instantiable group",
			zap.String("prototype", s.provider.Name(group.Prototype.Transform)),
			zap.Int("duplicates", len(group.Members)),
		)
	}
	if groups := result.InstantiableAssemblyGroups(); len(groups) > 0 {
		s.log.Info("assemblies",
			zap.Int("instantiable_groups", len(groups)),
			zap.Int("unique", len(result.UniqueAssemblies())),
		)
	}
}
