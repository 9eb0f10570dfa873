package separator

import (
	"testing"

	"github.com/flywave/go3d/float64/vec3"

	"github.com/meshfab/instancer/internal/logger"
	"github.com/meshfab/instancer/internal/scene"
	"github.com/meshfab/instancer/internal/scene/memscene"
	"github.com/meshfab/instancer/pkg/xform"
)

func TestRegistrySourceDefaultsToSelf(t *testing.T) {
	ms := memscene.New()
	r := newSourceRegistry(ms, logger.L())

	h := scene.Handle(42)
	if got := r.SourceOf(h); got != h {
		t.Errorf("unregistered source: got %d, want %d", got, h)
	}
}

func TestRegistrySetSource(t *testing.T) {
	ms := memscene.New()
	source := ms.AddNode("asm", scene.Nil, xform.Translate(1, 2, 3), nil)
	component := ms.AddNode("part", scene.Nil, xform.Translate(4, 5, 6), nil)

	r := newSourceRegistry(ms, logger.L())
	r.Register(source)
	r.SetSource(component, source)

	if got := r.SourceOf(component); got != source {
		t.Errorf("source: got %d, want %d", got, source)
	}

	m := r.SourceMatrix(source)
	if got := xform.Translation(&m); got != (vec3.T{1, 2, 3}) {
		t.Errorf("source matrix translation: got %v", got)
	}
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	ms := memscene.New()
	h := ms.AddNode("box", scene.Nil, xform.Translate(1, 0, 0), nil)

	r := newSourceRegistry(ms, logger.L())
	r.Register(h)

	// A later scene mutation must not change the cached matrix.
	if err := ms.BakeWorldMatrix(h, xform.Translate(9, 9, 9)); err != nil {
		t.Fatalf("bake: %v", err)
	}
	r.Register(h)

	m := r.SourceMatrix(h)
	if got := xform.Translation(&m); got != (vec3.T{1, 0, 0}) {
		t.Errorf("cached matrix drifted: got %v", got)
	}
}

func TestRegistryDeadHandleFallsBackToIdentity(t *testing.T) {
	ms := memscene.New()
	r := newSourceRegistry(ms, logger.L())

	m := r.SourceMatrix(scene.Handle(404))
	if got := xform.Translation(&m); got != (vec3.T{}) {
		t.Errorf("dead handle matrix should be identity, translation %v", got)
	}
}
