package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flywave/go3d/float64/vec3"
	"gopkg.in/yaml.v3"

	"github.com/meshfab/instancer/internal/scene"
	"github.com/meshfab/instancer/internal/scene/memscene"
	"github.com/meshfab/instancer/internal/separator"
	"github.com/meshfab/instancer/pkg/xform"
)

func discoverFixture(t *testing.T) (*separator.Result, *memscene.Scene) {
	t.Helper()
	ms := memscene.New()
	mesh := &memscene.MeshData{VertexCount: 8, Size: vec3.T{1, 1, 1}, Materials: []string{"steel"}}

	a := ms.AddNode("boxA", scene.Nil, xform.Translate(0, 0, 0), mesh)
	b := ms.AddNode("boxB", scene.Nil, xform.Translate(5, 0, 0), mesh)
	c := ms.AddNode("pole", scene.Nil, xform.Translate(9, 0, 0),
		&memscene.MeshData{VertexCount: 30, Size: vec3.T{0.2, 4, 0.2}, Materials: []string{"wood"}})

	s := separator.New(ms, nil, separator.DefaultOptions())
	result, err := s.Separate([]scene.Handle{a, b, c})
	if err != nil {
		t.Fatalf("separate: %v", err)
	}
	return result, ms
}

func TestBuild(t *testing.T) {
	result, ms := discoverFixture(t)
	r := Build(result, ms)

	if r.PayloadCount != 3 {
		t.Errorf("payload count: got %d, want 3", r.PayloadCount)
	}
	if len(r.InstantiableGroups) != 1 {
		t.Fatalf("instantiable groups: got %d, want 1", len(r.InstantiableGroups))
	}
	entry := r.InstantiableGroups[0]
	if entry.Prototype != "boxA" {
		t.Errorf("prototype: got %q, want %q", entry.Prototype, "boxA")
	}
	if len(entry.Duplicates) != 1 || entry.Duplicates[0] != "boxB" {
		t.Errorf("duplicates: got %v, want [boxB]", entry.Duplicates)
	}
	if len(r.UniqueObjects) != 1 || r.UniqueObjects[0] != "pole" {
		t.Errorf("unique objects: got %v, want [pole]", r.UniqueObjects)
	}
}

func TestWriteTo(t *testing.T) {
	result, ms := discoverFixture(t)
	r := Build(result, ms)

	path := filepath.Join(t.TempDir(), "out", "report.yaml")
	if err := r.WriteTo(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "payload_count: 3") {
		t.Errorf("missing payload count in output:\n%s", data)
	}

	var decoded Report
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.PayloadCount != r.PayloadCount || len(decoded.InstantiableGroups) != 1 {
		t.Errorf("round trip drifted: %+v", decoded)
	}
}
