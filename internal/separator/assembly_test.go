package separator

import (
	"testing"

	"github.com/flywave/go3d/float64/vec3"

	"github.com/meshfab/instancer/internal/scene"
	"github.com/meshfab/instancer/internal/scene/memscene"
	"github.com/meshfab/instancer/pkg/xform"
)

// cartMesh is a composite of two identical wheels and a body, stored as
// mesh shells so discovery explodes it.
func cartMesh() *memscene.MeshData {
	wheel := memscene.MeshData{VertexCount: 120, Size: vec3.T{0.5, 0.5, 0.5}, Materials: []string{"rubber"}}
	body := memscene.MeshData{VertexCount: 400, Size: vec3.T{2, 1, 1}, Materials: []string{"steel"}}
	return &memscene.MeshData{
		VertexCount: 640,
		Size:        vec3.T{2, 1, 1},
		Materials:   []string{"rubber", "steel"},
		Shells:      []memscene.MeshData{wheel, wheel, body},
	}
}

func buildCartScene(count int) (*memscene.Scene, []scene.Handle) {
	ms := memscene.New()
	handles := make([]scene.Handle, 0, count)
	for i := 0; i < count; i++ {
		name := "cart" + string(rune('A'+i))
		h := ms.AddNode(name, scene.Nil, xform.Translate(float64(i)*20, 0, 0), cartMesh())
		handles = append(handles, h)
	}
	return ms, handles
}

func TestGroupAssembliesRepeatedComposites(t *testing.T) {
	ms, handles := buildCartScene(3)
	s := New(ms, ms, DefaultOptions())

	result, err := s.Separate(handles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Assemblies) != 3 {
		t.Fatalf("assembly count: got %d, want 3", len(result.Assemblies))
	}
	if len(result.AssemblyGroups) != 1 {
		t.Fatalf("assembly group count: got %d, want 1", len(result.AssemblyGroups))
	}

	group := result.AssemblyGroups[0]
	if len(group.TemplateSlots) != 3 {
		t.Errorf("template slots: got %d, want 3", len(group.TemplateSlots))
	}
	if len(group.Members) != 2 {
		t.Errorf("members: got %d, want 2", len(group.Members))
	}

	// The root slot holds the largest component.
	for _, slot := range group.TemplateSlots {
		if slot.IsRoot && slot.Prototype.VertexCount != 400 {
			t.Errorf("root slot prototype: got %d vertices, want 400", slot.Prototype.VertexCount)
		}
	}
}

func TestMatchedSlotsBijection(t *testing.T) {
	ms, handles := buildCartScene(3)
	s := New(ms, ms, DefaultOptions())

	result, err := s.Separate(handles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	group := result.AssemblyGroups[0]
	descriptors := append([]*AssemblyDescriptor{group.Prototype}, group.Members...)
	for _, descriptor := range descriptors {
		if len(descriptor.MatchedSlots) != len(group.TemplateSlots) {
			t.Fatalf("matched slots: got %d, want %d",
				len(descriptor.MatchedSlots), len(group.TemplateSlots))
		}
		seen := make(map[scene.Handle]bool)
		for _, slot := range group.TemplateSlots {
			payload, ok := descriptor.MatchedSlots[slot.ID]
			if !ok || payload == nil {
				t.Fatalf("slot %d unfilled", slot.ID)
			}
			if seen[payload.Transform] {
				t.Errorf("payload %d fills two slots", payload.Transform)
			}
			seen[payload.Transform] = true
		}
	}
}

func TestGroupAssembliesSingletonStaysUnique(t *testing.T) {
	ms, handles := buildCartScene(1)
	s := New(ms, ms, DefaultOptions())

	result, err := s.Separate(handles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(result.InstantiableAssemblyGroups()); got != 0 {
		t.Errorf("instantiable assembly groups: got %d, want 0", got)
	}
	if got := len(result.UniqueAssemblies()); got != 1 {
		t.Errorf("unique assemblies: got %d, want 1", got)
	}
}

func TestGroupAssembliesMismatchedLayoutOrphaned(t *testing.T) {
	// Two descriptors with the same component multiset but different
	// world-space arrangement share a signature bucket, yet the second
	// fails the position gate during template matching and stays orphaned
	// as its own memberless group.
	mkPair := func(base int64, source scene.Handle, satOffset float64) *AssemblyDescriptor {
		anchor := placedPayload(base, source, 200, vec3.T{1, 1, 1}, vec3.T{float64(base) * 10, 0, 0}, "steel")
		sat := placedPayload(base+1, source, 50, vec3.T{0.3, 0.3, 0.3}, vec3.T{float64(base)*10 + satOffset, 0, 0}, "rubber")
		anchor.LocalMatrix = xform.Translate(0, 0, 0)
		sat.LocalMatrix = xform.Translate(0, 0, 0)
		return newDescriptor(source, []*Payload{anchor, sat})
	}

	d1 := mkPair(1, scene.Handle(100), 1)
	d2 := mkPair(3, scene.Handle(200), 2)
	if d1.Signature != d2.Signature {
		t.Fatal("descriptors should share a signature bucket")
	}

	s := newTestSeparator(DefaultOptions())
	groups := s.groupAssemblies([]*AssemblyDescriptor{d1, d2})

	if len(groups) != 2 {
		t.Fatalf("group count: got %d, want 2", len(groups))
	}
	for i, group := range groups {
		if len(group.Members) != 0 {
			t.Errorf("group %d should be memberless, got %d members", i, len(group.Members))
		}
	}
}

func TestMatrixDifferenceScoreGates(t *testing.T) {
	s := newTestSeparator(DefaultOptions())

	reference := xform.Translate(1, 0, 0)

	within := xform.Translate(1.05, 0, 0)
	if _, ok := s.matrixDifferenceScore(&within, &reference); !ok {
		t.Error("candidate within position tolerance should be eligible")
	}

	beyond := xform.Translate(1.2, 0, 0)
	if _, ok := s.matrixDifferenceScore(&beyond, &reference); ok {
		t.Error("candidate beyond position tolerance should be rejected")
	}

	exact := xform.Translate(1, 0, 0)
	score, ok := s.matrixDifferenceScore(&exact, &reference)
	if !ok || score != 0 {
		t.Errorf("exact match: got score %v, eligible %v, want 0 and true", score, ok)
	}
}
