// Package memscene provides an in-memory scene graph implementing both the
// Provider and Mutator contracts. It backs tests, glTF imports and embedders
// that have no live host scene.
//
// A Scene is not safe for concurrent use; discovery and rebuild run
// single-threaded by contract.
package memscene

import (
	"errors"
	"fmt"
	gomath "math"
	"sort"

	"github.com/flywave/go3d/float64/mat4"
	"github.com/flywave/go3d/float64/vec3"

	"github.com/meshfab/instancer/internal/scene"
)

// ErrNotFound is returned when a handle does not resolve to a live node.
var ErrNotFound = errors.New("memscene: node not found")

// MeshData describes the mesh backing a node. Center and Size are the
// local-space bounding box; Shells lists independent sub-shells when the
// mesh is a combined object.
type MeshData struct {
	VertexCount int
	Center      vec3.T
	Size        vec3.T
	Materials   []string
	Shells      []MeshData
}

type node struct {
	name     string
	parent   scene.Handle
	children []scene.Handle
	world    mat4.T
	visible  bool
	mesh     *MeshData
	shape    scene.Handle
}

// Scene is an id-keyed in-memory scene graph.
type Scene struct {
	nodes      map[scene.Handle]*node
	shapeOwner map[scene.Handle]scene.Handle
	nextID     scene.Handle
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{
		nodes:      make(map[scene.Handle]*node),
		shapeOwner: make(map[scene.Handle]scene.Handle),
		nextID:     1,
	}
}

// AddNode creates a node and returns its handle. mesh may be nil for plain
// group/transform nodes. parent may be scene.Nil for root-level nodes.
func (s *Scene) AddNode(name string, parent scene.Handle, world mat4.T, mesh *MeshData) scene.Handle {
	h := s.allocate()
	n := &node{
		name:    name,
		parent:  parent,
		world:   world,
		visible: true,
	}
	if mesh != nil {
		n.mesh = cloneMesh(mesh)
		n.shape = s.allocate()
		s.shapeOwner[n.shape] = h
	}
	s.nodes[h] = n
	if p, ok := s.nodes[parent]; ok {
		p.children = append(p.children, h)
	}
	return h
}

// Exists reports whether the handle refers to a live node.
func (s *Scene) Exists(h scene.Handle) bool {
	_, ok := s.nodes[h]
	return ok
}

// Len returns the number of live nodes.
func (s *Scene) Len() int { return len(s.nodes) }

func (s *Scene) allocate() scene.Handle {
	h := s.nextID
	s.nextID++
	return h
}

func cloneMesh(m *MeshData) *MeshData {
	out := *m
	out.Materials = append([]string(nil), m.Materials...)
	out.Shells = append([]MeshData(nil), m.Shells...)
	return &out
}

// ----------------------------------------------------------------------------
// Provider
// ----------------------------------------------------------------------------

// Name returns the node's display name, or "" for dead handles.
func (s *Scene) Name(h scene.Handle) string {
	if n, ok := s.nodes[h]; ok {
		return n.name
	}
	return ""
}

// Shape returns the mesh shape handle backing the node.
func (s *Scene) Shape(h scene.Handle) (scene.Handle, bool) {
	n, ok := s.nodes[h]
	if !ok || n.mesh == nil {
		return scene.Nil, false
	}
	return n.shape, true
}

// VertexCount returns the vertex count of a mesh shape, 0 for dead handles.
func (s *Scene) VertexCount(shape scene.Handle) int {
	owner, ok := s.shapeOwner[shape]
	if !ok {
		return 0
	}
	n, ok := s.nodes[owner]
	if !ok || n.mesh == nil {
		return 0
	}
	return n.mesh.VertexCount
}

// WorldMatrix returns the node's world transform.
func (s *Scene) WorldMatrix(h scene.Handle) (mat4.T, error) {
	n, ok := s.nodes[h]
	if !ok {
		return mat4.Ident, fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	return n.world, nil
}

// BoundingBox returns the world-space bounding box of the node's mesh. The
// local box center is transformed by the world matrix and the size scaled by
// the per-axis scale magnitudes.
func (s *Scene) BoundingBox(h scene.Handle) (center, size vec3.T, err error) {
	n, ok := s.nodes[h]
	if !ok {
		return vec3.T{}, vec3.T{}, fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	if n.mesh == nil {
		return vec3.T{}, vec3.T{}, fmt.Errorf("memscene: node %d has no mesh", h)
	}
	local := n.mesh.Center
	center = n.world.MulVec3(&local)
	sx, sy, sz := axisScales(&n.world)
	size = vec3.T{n.mesh.Size[0] * sx, n.mesh.Size[1] * sy, n.mesh.Size[2] * sz}
	return center, size, nil
}

func axisScales(m *mat4.T) (sx, sy, sz float64) {
	sx = gomath.Sqrt(m[0][0]*m[0][0] + m[0][1]*m[0][1] + m[0][2]*m[0][2])
	sy = gomath.Sqrt(m[1][0]*m[1][0] + m[1][1]*m[1][1] + m[1][2]*m[1][2])
	sz = gomath.Sqrt(m[2][0]*m[2][0] + m[2][1]*m[2][1] + m[2][2]*m[2][2])
	return sx, sy, sz
}

// Materials returns the node's material ids, sorted.
func (s *Scene) Materials(h scene.Handle) ([]string, error) {
	n, ok := s.nodes[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	if n.mesh == nil {
		return nil, nil
	}
	mats := append([]string(nil), n.mesh.Materials...)
	sort.Strings(mats)
	return mats, nil
}

// Parent returns the node's parent, or false at the root.
func (s *Scene) Parent(h scene.Handle) (scene.Handle, bool) {
	n, ok := s.nodes[h]
	if !ok || n.parent.IsNil() {
		return scene.Nil, false
	}
	return n.parent, true
}

// Visibility reports the node's visibility, false for dead handles.
func (s *Scene) Visibility(h scene.Handle) bool {
	if n, ok := s.nodes[h]; ok {
		return n.visible
	}
	return false
}

// NeedsShellSplit reports whether the node's mesh holds more than one shell.
func (s *Scene) NeedsShellSplit(h scene.Handle) bool {
	n, ok := s.nodes[h]
	if !ok || n.mesh == nil {
		return false
	}
	return len(n.mesh.Shells) > 1
}

// SplitShells materializes one node per mesh shell, siblings of the original.
// The original node is left in place.
func (s *Scene) SplitShells(h scene.Handle) ([]scene.Handle, error) {
	n, ok := s.nodes[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	if n.mesh == nil || len(n.mesh.Shells) < 2 {
		return nil, fmt.Errorf("memscene: node %d has no shells to split", h)
	}

	handles := make([]scene.Handle, 0, len(n.mesh.Shells))
	for i := range n.mesh.Shells {
		shell := n.mesh.Shells[i]
		name := fmt.Sprintf("%s_shell%d", n.name, i+1)
		sh := s.AddNode(name, n.parent, n.world, &shell)
		s.nodes[sh].visible = n.visible
		handles = append(handles, sh)
	}
	return handles, nil
}

// ----------------------------------------------------------------------------
// Mutator
// ----------------------------------------------------------------------------

// InstancePrototype creates a new node sharing the prototype's mesh data.
func (s *Scene) InstancePrototype(h scene.Handle) (scene.Handle, error) {
	n, ok := s.nodes[h]
	if !ok {
		return scene.Nil, fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	if n.mesh == nil {
		return scene.Nil, fmt.Errorf("memscene: node %d has no mesh to instance", h)
	}

	inst := s.allocate()
	in := &node{
		name:    n.name + "_inst",
		parent:  n.parent,
		world:   n.world,
		visible: n.visible,
		mesh:    n.mesh, // shared, that is the point of an instance
		shape:   s.allocate(),
	}
	s.nodes[inst] = in
	s.shapeOwner[in.shape] = inst
	if p, ok := s.nodes[n.parent]; ok {
		p.children = append(p.children, inst)
	}
	return inst, nil
}

// BakeWorldMatrix sets the node's world transform.
func (s *Scene) BakeWorldMatrix(h scene.Handle, m mat4.T) error {
	n, ok := s.nodes[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	n.world = m
	return nil
}

// Reparent moves the node under a new parent. World placement is kept since
// nodes store world matrices directly.
func (s *Scene) Reparent(h, parent scene.Handle) error {
	n, ok := s.nodes[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	if !parent.IsNil() {
		if _, ok := s.nodes[parent]; !ok {
			return fmt.Errorf("%w: parent %d", ErrNotFound, parent)
		}
	}
	s.detach(h)
	n.parent = parent
	if p, ok := s.nodes[parent]; ok {
		p.children = append(p.children, h)
	}
	return nil
}

// SetVisibility shows or hides the node.
func (s *Scene) SetVisibility(h scene.Handle, visible bool) error {
	n, ok := s.nodes[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	n.visible = visible
	return nil
}

// Delete removes the node and its subtree.
func (s *Scene) Delete(h scene.Handle) error {
	n, ok := s.nodes[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	for _, child := range append([]scene.Handle(nil), n.children...) {
		_ = s.Delete(child)
	}
	s.detach(h)
	if !n.shape.IsNil() {
		delete(s.shapeOwner, n.shape)
	}
	delete(s.nodes, h)
	return nil
}

func (s *Scene) detach(h scene.Handle) {
	n := s.nodes[h]
	p, ok := s.nodes[n.parent]
	if !ok {
		return
	}
	for i, child := range p.children {
		if child == h {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
}

// Rename gives the node a new display name.
func (s *Scene) Rename(h scene.Handle, name string) error {
	n, ok := s.nodes[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	n.name = name
	return nil
}

// MergeComponents combines the given nodes into one new node. Vertex counts
// are summed, world bounding boxes unioned and materials merged. The inputs
// are left in place for the caller to delete.
func (s *Scene) MergeComponents(hs []scene.Handle) (scene.Handle, error) {
	if len(hs) == 0 {
		return scene.Nil, errors.New("memscene: nothing to merge")
	}

	var (
		vertexCount int
		minCorner   = vec3.T{gomath.Inf(1), gomath.Inf(1), gomath.Inf(1)}
		maxCorner   = vec3.T{gomath.Inf(-1), gomath.Inf(-1), gomath.Inf(-1)}
		materialSet = make(map[string]struct{})
	)
	for _, h := range hs {
		n, ok := s.nodes[h]
		if !ok || n.mesh == nil {
			return scene.Nil, fmt.Errorf("%w: %d", ErrNotFound, h)
		}
		center, size, err := s.BoundingBox(h)
		if err != nil {
			return scene.Nil, err
		}
		vertexCount += n.mesh.VertexCount
		for i := 0; i < 3; i++ {
			lo := center[i] - size[i]/2
			hi := center[i] + size[i]/2
			if lo < minCorner[i] {
				minCorner[i] = lo
			}
			if hi > maxCorner[i] {
				maxCorner[i] = hi
			}
		}
		for _, mat := range n.mesh.Materials {
			materialSet[mat] = struct{}{}
		}
	}

	materials := make([]string, 0, len(materialSet))
	for mat := range materialSet {
		materials = append(materials, mat)
	}
	sort.Strings(materials)

	mesh := &MeshData{
		VertexCount: vertexCount,
		Center: vec3.T{
			(minCorner[0] + maxCorner[0]) / 2,
			(minCorner[1] + maxCorner[1]) / 2,
			(minCorner[2] + maxCorner[2]) / 2,
		},
		Size: vec3.T{
			maxCorner[0] - minCorner[0],
			maxCorner[1] - minCorner[1],
			maxCorner[2] - minCorner[2],
		},
		Materials: materials,
	}
	name := s.Name(hs[0]) + "_merged"
	return s.AddNode(name, scene.Nil, mat4.Ident, mesh), nil
}

// DeleteHistory removes construction history. The in-memory scene keeps
// none, so this only validates the handle.
func (s *Scene) DeleteHistory(h scene.Handle) error {
	if _, ok := s.nodes[h]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	return nil
}

// FreezeTransform bakes the node's transform into its mesh bounds and resets
// the world matrix to identity.
func (s *Scene) FreezeTransform(h scene.Handle) error {
	n, ok := s.nodes[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	if n.mesh != nil {
		center, size, err := s.BoundingBox(h)
		if err != nil {
			return err
		}
		n.mesh.Center = center
		n.mesh.Size = size
	}
	n.world = mat4.Ident
	return nil
}

var _ scene.Provider = (*Scene)(nil)
var _ scene.Mutator = (*Scene)(nil)
