// Package gltfscene imports glTF 2.0 documents into an in-memory scene so
// the discovery engine can analyze interchange files without a live host
// application.
package gltfscene

import (
	"fmt"

	"github.com/flywave/go3d/float64/mat4"
	"github.com/flywave/go3d/float64/quaternion"
	"github.com/flywave/go3d/float64/vec3"
	"github.com/qmuntal/gltf"

	"github.com/meshfab/instancer/internal/scene"
	"github.com/meshfab/instancer/internal/scene/memscene"
	"github.com/meshfab/instancer/pkg/xform"
)

// Load reads a .gltf/.glb file and returns the imported scene plus the
// handles of all imported nodes in traversal order.
func Load(path string) (*memscene.Scene, []scene.Handle, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening gltf %s: %w", path, err)
	}
	return FromDocument(doc)
}

// FromDocument imports an already-parsed glTF document. Node transforms are
// flattened to world matrices; mesh nodes get vertex counts from POSITION
// accessors, bounding boxes from accessor min/max and materials from the
// primitives.
func FromDocument(doc *gltf.Document) (*memscene.Scene, []scene.Handle, error) {
	ms := memscene.New()
	var handles []scene.Handle

	roots := rootNodes(doc)
	if len(roots) == 0 && len(doc.Nodes) > 0 {
		return nil, nil, fmt.Errorf("gltf document has %d nodes but no scene roots", len(doc.Nodes))
	}

	var walk func(idx uint32, parent scene.Handle, parentWorld mat4.T) error
	walk = func(idx uint32, parent scene.Handle, parentWorld mat4.T) error {
		if int(idx) >= len(doc.Nodes) {
			return fmt.Errorf("gltf node index %d out of range", idx)
		}
		node := doc.Nodes[idx]

		local := nodeMatrix(node)
		world := xform.Mul(&parentWorld, &local)

		var mesh *memscene.MeshData
		if node.Mesh != nil {
			m, err := meshData(doc, *node.Mesh)
			if err != nil {
				return err
			}
			mesh = m
		}

		name := node.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", idx)
		}
		h := ms.AddNode(name, parent, world, mesh)
		handles = append(handles, h)

		for _, child := range node.Children {
			if err := walk(child, h, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := walk(root, scene.Nil, mat4.Ident); err != nil {
			return nil, nil, err
		}
	}
	return ms, handles, nil
}

// rootNodes returns the node indices of the default scene, falling back to
// the first scene when no default is set.
func rootNodes(doc *gltf.Document) []uint32 {
	sceneIdx := 0
	if doc.Scene != nil {
		sceneIdx = int(*doc.Scene)
	}
	if sceneIdx >= len(doc.Scenes) {
		return nil
	}
	return doc.Scenes[sceneIdx].Nodes
}

// nodeMatrix composes a node's local transform. glTF stores either a flat
// column-major matrix or separate TRS properties with spec defaults.
func nodeMatrix(node *gltf.Node) mat4.T {
	if m, ok := flatMatrix(node.Matrix); ok {
		return m
	}

	translation := vec3.T{
		float64(node.Translation[0]),
		float64(node.Translation[1]),
		float64(node.Translation[2]),
	}

	rotation := quaternion.T{
		float64(node.Rotation[0]),
		float64(node.Rotation[1]),
		float64(node.Rotation[2]),
		float64(node.Rotation[3]),
	}
	if rotation[0] == 0 && rotation[1] == 0 && rotation[2] == 0 && rotation[3] == 0 {
		rotation[3] = 1
	}

	scale := vec3.T{float64(node.Scale[0]), float64(node.Scale[1]), float64(node.Scale[2])}
	if scale[0] == 0 && scale[1] == 0 && scale[2] == 0 {
		scale = vec3.T{1, 1, 1}
	}

	return xform.ComposeTRS(translation, rotation, scale)
}

// flatMatrix converts the node's column-major matrix, reporting false when it
// is unset (all zero) or the identity, in which case TRS applies.
func flatMatrix(flat [16]float32) (mat4.T, bool) {
	zero := true
	for _, v := range flat {
		if v != 0 {
			zero = false
			break
		}
	}
	if zero {
		return mat4.Ident, false
	}

	var m mat4.T
	for i, v := range flat {
		m[i/4][i%4] = float64(v)
	}
	if m == mat4.Ident {
		return mat4.Ident, false
	}
	return m, true
}

// meshData summarizes one glTF mesh: vertex counts summed over primitives,
// bounding box unioned from POSITION accessor min/max, material names
// collected per primitive.
func meshData(doc *gltf.Document, meshIdx uint32) (*memscene.MeshData, error) {
	if int(meshIdx) >= len(doc.Meshes) {
		return nil, fmt.Errorf("gltf mesh index %d out of range", meshIdx)
	}
	mesh := doc.Meshes[meshIdx]

	var (
		vertexCount int
		hasBounds   bool
		minB        [3]float64
		maxB        [3]float64
		materials   []string
		seenMat     = make(map[string]bool)
	)

	for _, prim := range mesh.Primitives {
		posIdx, ok := prim.Attributes["POSITION"]
		if !ok {
			continue
		}
		if int(posIdx) >= len(doc.Accessors) {
			return nil, fmt.Errorf("gltf accessor index %d out of range", posIdx)
		}
		acc := doc.Accessors[posIdx]
		vertexCount += int(acc.Count)

		if len(acc.Min) >= 3 && len(acc.Max) >= 3 {
			for i := 0; i < 3; i++ {
				lo, hi := float64(acc.Min[i]), float64(acc.Max[i])
				if !hasBounds {
					minB[i], maxB[i] = lo, hi
				} else {
					if lo < minB[i] {
						minB[i] = lo
					}
					if hi > maxB[i] {
						maxB[i] = hi
					}
				}
			}
			hasBounds = true
		}

		name := materialName(doc, prim.Material)
		if !seenMat[name] {
			seenMat[name] = true
			materials = append(materials, name)
		}
	}

	data := &memscene.MeshData{
		VertexCount: vertexCount,
		Materials:   materials,
	}
	if hasBounds {
		data.Center = vec3.T{
			(minB[0] + maxB[0]) / 2,
			(minB[1] + maxB[1]) / 2,
			(minB[2] + maxB[2]) / 2,
		}
		data.Size = vec3.T{
			maxB[0] - minB[0],
			maxB[1] - minB[1],
			maxB[2] - minB[2],
		}
	}
	return data, nil
}

func materialName(doc *gltf.Document, idx *uint32) string {
	if idx == nil {
		return "default"
	}
	if int(*idx) >= len(doc.Materials) {
		return fmt.Sprintf("material_%d", *idx)
	}
	if name := doc.Materials[*idx].Name; name != "" {
		return name
	}
	return fmt.Sprintf("material_%d", *idx)
}
