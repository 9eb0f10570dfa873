// Package scene defines the collaborator contracts the discovery engine is
// built against: a read-only geometry provider and a mutation service.
//
// Handles are stable value identities into an external scene model. The
// engine never owns the objects a handle refers to; it only keys registries
// and results by them.
package scene

import (
	"github.com/flywave/go3d/float64/mat4"
	"github.com/flywave/go3d/float64/vec3"
)

// Handle identifies one scene object. The zero value is the nil handle.
type Handle int64

// Nil is the absent handle.
const Nil Handle = 0

// IsNil reports whether the handle refers to nothing.
func (h Handle) IsNil() bool { return h == Nil }

// Provider exposes read-only geometry queries against the host scene.
// Implementations must be side-effect free: discovery calls them repeatedly
// and caches nothing beyond its own registries.
type Provider interface {
	// Name returns a display name for the handle, used only for logs and
	// reports.
	Name(h Handle) string

	// Shape returns the mesh shape backing the object, or false when the
	// object carries no mesh (group nodes, locators and similar).
	Shape(h Handle) (Handle, bool)

	// VertexCount returns the vertex count of a mesh shape.
	VertexCount(shape Handle) int

	// WorldMatrix returns the object's world transform.
	WorldMatrix(h Handle) (mat4.T, error)

	// BoundingBox returns the world-space bounding box center and size.
	BoundingBox(h Handle) (center, size vec3.T, err error)

	// Materials returns the material identifiers assigned to the object.
	Materials(h Handle) ([]string, error)

	// Parent returns the object's parent, or false at the scene root.
	Parent(h Handle) (Handle, bool)

	// Visibility reports whether the object is visible.
	Visibility(h Handle) bool

	// NeedsShellSplit reports whether the object's mesh contains more than
	// one independent shell.
	NeedsShellSplit(h Handle) bool

	// SplitShells materializes one object per independent mesh shell and
	// returns their handles. The original object is left untouched.
	SplitShells(h Handle) ([]Handle, error)
}

// Mutator exposes the scene mutations the rebuild phase issues. It must be
// called from the execution context that owns the scene; mutations can
// invalidate handles held elsewhere.
type Mutator interface {
	// InstancePrototype creates a new instance sharing the prototype's mesh.
	InstancePrototype(h Handle) (Handle, error)

	// BakeWorldMatrix sets the object's world transform.
	BakeWorldMatrix(h Handle, m mat4.T) error

	// Reparent moves the object under a new parent, keeping world placement.
	Reparent(h, parent Handle) error

	// SetVisibility shows or hides the object.
	SetVisibility(h Handle, visible bool) error

	// Delete removes the object and its subtree.
	Delete(h Handle) error

	// Rename gives the object a new display name.
	Rename(h Handle, name string) error

	// MergeComponents combines the given objects into one merged object.
	// The inputs are left in place; callers delete them afterwards.
	MergeComponents(hs []Handle) (Handle, error)

	// DeleteHistory removes construction history from the object.
	DeleteHistory(h Handle) error

	// FreezeTransform bakes the object's transform into its geometry,
	// resetting the world matrix to identity.
	FreezeTransform(h Handle) error
}
