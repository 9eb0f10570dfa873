package gltfscene

import (
	gomath "math"
	"testing"

	"github.com/flywave/go3d/float64/vec3"
	"github.com/qmuntal/gltf"

	"github.com/meshfab/instancer/pkg/xform"
)

func uint32Ptr(v uint32) *uint32 { return &v }

// cubeDocument builds a two-node document: a named cube with a material and
// an empty group parenting it.
func cubeDocument() *gltf.Document {
	return &gltf.Document{
		Scene:  uint32Ptr(0),
		Scenes: []*gltf.Scene{{Nodes: []uint32{0}}},
		Nodes: []*gltf.Node{
			{
				Name:        "group",
				Translation: [3]float32{10, 0, 0},
				Children:    []uint32{1},
			},
			{
				Name:        "cube",
				Translation: [3]float32{0, 2, 0},
				Mesh:        uint32Ptr(0),
			},
		},
		Meshes: []*gltf.Mesh{{
			Primitives: []*gltf.Primitive{{
				Attributes: gltf.Attribute{"POSITION": 0},
				Material:   uint32Ptr(0),
			}},
		}},
		Accessors: []*gltf.Accessor{{
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         24,
			Min:           []float32{-0.5, -0.5, -0.5},
			Max:           []float32{0.5, 0.5, 0.5},
		}},
		Materials: []*gltf.Material{{Name: "steel"}},
	}
}

func TestFromDocument(t *testing.T) {
	ms, handles, err := FromDocument(cubeDocument())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("handle count: got %d, want 2", len(handles))
	}

	group, cube := handles[0], handles[1]
	if got := ms.Name(group); got != "group" {
		t.Errorf("first node name: got %q, want %q", got, "group")
	}
	if _, ok := ms.Shape(group); ok {
		t.Error("meshless group should have no shape")
	}

	// World matrices flatten the parent chain.
	w, err := ms.WorldMatrix(cube)
	if err != nil {
		t.Fatalf("world matrix: %v", err)
	}
	if got := xform.Translation(&w); got != (vec3.T{10, 2, 0}) {
		t.Errorf("cube world translation: got %v, want (10 2 0)", got)
	}

	shape, ok := ms.Shape(cube)
	if !ok {
		t.Fatal("cube should have a shape")
	}
	if got := ms.VertexCount(shape); got != 24 {
		t.Errorf("vertex count: got %d, want 24", got)
	}
	mats, err := ms.Materials(cube)
	if err != nil || len(mats) != 1 || mats[0] != "steel" {
		t.Errorf("materials: got %v, %v", mats, err)
	}

	// Accessor min/max become the local bounding box, placed by the world
	// matrix.
	center, size, err := ms.BoundingBox(cube)
	if err != nil {
		t.Fatalf("bounding box: %v", err)
	}
	if center != (vec3.T{10, 2, 0}) {
		t.Errorf("center: got %v, want (10 2 0)", center)
	}
	if size != (vec3.T{1, 1, 1}) {
		t.Errorf("size: got %v, want (1 1 1)", size)
	}
}

func TestFromDocumentEmpty(t *testing.T) {
	ms, handles, err := FromDocument(&gltf.Document{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(handles) != 0 || ms.Len() != 0 {
		t.Errorf("empty document should import nothing")
	}
}

func TestNodeMatrixDefaults(t *testing.T) {
	// All-zero TRS fields take the glTF defaults: identity.
	m := nodeMatrix(&gltf.Node{})
	if got := xform.Translation(&m); got != (vec3.T{}) {
		t.Errorf("default node translation: got %v", got)
	}
	t2, _, s2 := xform.Decompose(&m)
	if t2 != (vec3.T{}) || s2 != (vec3.T{1, 1, 1}) {
		t.Errorf("default node TRS: got t=%v s=%v", t2, s2)
	}
}

func TestNodeMatrixFlat(t *testing.T) {
	node := &gltf.Node{
		Matrix: [16]float32{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			7, 8, 9, 1,
		},
	}
	m := nodeMatrix(node)
	if got := xform.Translation(&m); got != (vec3.T{7, 8, 9}) {
		t.Errorf("flat matrix translation: got %v, want (7 8 9)", got)
	}
}

func TestNodeMatrixRotation(t *testing.T) {
	// 90 degrees around Y, as a quaternion.
	half := gomath.Pi / 4
	node := &gltf.Node{
		Rotation: [4]float32{0, float32(gomath.Sin(half)), 0, float32(gomath.Cos(half))},
		Scale:    [3]float32{1, 1, 1},
	}
	m := nodeMatrix(node)
	_, rot, _ := xform.Decompose(&m)
	// The quaternion components are float32, so allow for their quantization.
	if gomath.Abs(rot[1]-90) > 1e-4 {
		t.Errorf("rotation: got %v degrees around y, want 90", rot[1])
	}
}

func TestMaterialNameFallbacks(t *testing.T) {
	doc := &gltf.Document{Materials: []*gltf.Material{{Name: ""}}}

	if got := materialName(doc, nil); got != "default" {
		t.Errorf("nil material: got %q, want %q", got, "default")
	}
	if got := materialName(doc, uint32Ptr(0)); got != "material_0" {
		t.Errorf("unnamed material: got %q, want %q", got, "material_0")
	}
	if got := materialName(doc, uint32Ptr(9)); got != "material_9" {
		t.Errorf("out-of-range material: got %q, want %q", got, "material_9")
	}
}
