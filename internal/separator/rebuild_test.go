package separator

import (
	"testing"

	"github.com/flywave/go3d/float64/vec3"

	"github.com/meshfab/instancer/internal/scene"
)

func TestRebuildCollapsesAssemblies(t *testing.T) {
	ms, handles := buildCartScene(3)

	opts := DefaultOptions()
	opts.RebuildInstances = true
	s := New(ms, ms, opts)

	result, err := s.Separate(handles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	group := result.AssemblyGroups[0]
	descriptors := append([]*AssemblyDescriptor{group.Prototype}, group.Members...)
	if len(descriptors) != 3 {
		t.Fatalf("descriptor count: got %d, want 3", len(descriptors))
	}

	for i, descriptor := range descriptors {
		// Collapse reduces every descriptor to one merged payload.
		if len(descriptor.Components) != 1 {
			t.Fatalf("descriptor %d components: got %d, want 1", i, len(descriptor.Components))
		}
		merged := descriptor.Components[0]
		if !ms.Exists(merged.Transform) {
			t.Errorf("descriptor %d merged node does not exist", i)
		}
		// Wheels and body are merged, so vertex counts sum.
		if merged.VertexCount != 640 {
			t.Errorf("descriptor %d merged vertices: got %d, want 640", i, merged.VertexCount)
		}
		if descriptor.SourceTransform != merged.Transform {
			t.Errorf("descriptor %d source should point at the merged node", i)
		}
		if len(descriptor.MatchedSlots) != 1 {
			t.Errorf("descriptor %d matched slots: got %d, want 1", i, len(descriptor.MatchedSlots))
		}
	}
}

func TestRebuildWithoutCollapseKeepsComponents(t *testing.T) {
	ms, handles := buildCartScene(3)

	opts := DefaultOptions()
	opts.RebuildInstances = true
	opts.CollapseRebuilt = false
	s := New(ms, ms, opts)

	result, err := s.Separate(handles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	group := result.AssemblyGroups[0]
	for _, member := range group.Members {
		if len(member.Components) != 3 {
			t.Fatalf("member components: got %d, want 3", len(member.Components))
		}
		// Member components were replaced by live instances of the
		// prototype slots.
		for _, payload := range member.Components {
			if !ms.Exists(payload.Transform) {
				t.Errorf("rebuilt component %d does not exist", payload.Transform)
			}
			if _, ok := ms.Shape(payload.Transform); !ok {
				t.Errorf("rebuilt component %d has no shape", payload.Transform)
			}
		}
	}
}

func TestRebuildSkippedWithoutMutator(t *testing.T) {
	ms, handles := buildCartScene(2)

	opts := DefaultOptions()
	opts.RebuildInstances = true
	s := New(ms, nil, opts)

	result, err := s.Separate(handles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Discovery results are intact; the rebuild was skipped with a warning.
	if len(result.AssemblyGroups) != 1 {
		t.Errorf("assembly groups: got %d, want 1", len(result.AssemblyGroups))
	}
	group := result.AssemblyGroups[0]
	for _, descriptor := range append([]*AssemblyDescriptor{group.Prototype}, group.Members...) {
		if len(descriptor.Components) != 3 {
			t.Errorf("components: got %d, want 3", len(descriptor.Components))
		}
	}
}

func TestCollapseSkipsSingleComponent(t *testing.T) {
	s := newTestSeparator(DefaultOptions())
	descriptor := newDescriptor(scene.Handle(1), []*Payload{testPayload(1, 8, vec3.T{1, 1, 1})})
	descriptor.MatchedSlots = map[int]*Payload{0: descriptor.Components[0]}

	// Nothing to merge: the descriptor is left untouched.
	s.collapseAssemblyComponents(descriptor)
	if len(descriptor.Components) != 1 {
		t.Errorf("components: got %d, want 1", len(descriptor.Components))
	}
}
