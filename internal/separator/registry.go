package separator

import (
	"github.com/flywave/go3d/float64/mat4"
	"go.uber.org/zap"

	"github.com/meshfab/instancer/internal/scene"
)

// sourceRegistry maps each analyzed object to the composite object it was
// exploded from and caches that source's world matrix. Entries are written
// once per discovery pass; lookups fail soft so a dead handle degrades to an
// identity matrix instead of aborting the pass.
type sourceRegistry struct {
	provider scene.Provider
	log      *zap.Logger

	sources   map[scene.Handle]scene.Handle
	worldMats map[scene.Handle]mat4.T
}

func newSourceRegistry(provider scene.Provider, log *zap.Logger) *sourceRegistry {
	return &sourceRegistry{
		provider:  provider,
		log:       log,
		sources:   make(map[scene.Handle]scene.Handle),
		worldMats: make(map[scene.Handle]mat4.T),
	}
}

// Register records the handle as its own source and caches its world matrix.
// Idempotent: already-registered handles keep their first entry.
func (r *sourceRegistry) Register(h scene.Handle) {
	if _, ok := r.worldMats[h]; !ok {
		r.worldMats[h] = r.lookupMatrix(h)
	}
	if _, ok := r.sources[h]; !ok {
		r.sources[h] = h
	}
}

// SetSource records that component was exploded from source.
func (r *sourceRegistry) SetSource(component, source scene.Handle) {
	r.sources[component] = source
}

// SourceOf returns the recorded source of the handle, defaulting to the
// handle itself.
func (r *sourceRegistry) SourceOf(h scene.Handle) scene.Handle {
	if source, ok := r.sources[h]; ok {
		return source
	}
	return h
}

// SourceMatrix returns the cached world matrix of a source handle, computing
// and caching it on miss.
func (r *sourceRegistry) SourceMatrix(h scene.Handle) mat4.T {
	if m, ok := r.worldMats[h]; ok {
		return m
	}
	m := r.lookupMatrix(h)
	r.worldMats[h] = m
	return m
}

func (r *sourceRegistry) lookupMatrix(h scene.Handle) mat4.T {
	m, err := r.provider.WorldMatrix(h)
	if err != nil {
		r.log.Warn("source world matrix unavailable, using identity",
			zap.Int64("handle", int64(h)), zap.Error(err))
		return mat4.Ident
	}
	return m
}
