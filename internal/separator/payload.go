// Package separator discovers duplicate and repeating structure among placed
// 3D objects. It groups geometrically and materially equivalent objects into
// instance groups, detects composite structures that repeat at different
// locations as assembly groups, and can rebuild the scene so duplicates share
// instanced geometry.
package separator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/flywave/go3d/float64/mat4"
	"github.com/flywave/go3d/float64/vec3"
	"go.uber.org/zap"

	"github.com/meshfab/instancer/internal/scene"
	"github.com/meshfab/instancer/pkg/xform"
)

// Payload captures the analyzed state of a single object slated for
// instancing. It is a value view keyed by handles; it owns nothing.
type Payload struct {
	Transform   scene.Handle
	Shape       scene.Handle
	WorldMatrix mat4.T
	BBoxCenter  vec3.T
	BBoxSize    vec3.T

	// Materials is the sorted material signature.
	Materials []string

	Parent      scene.Handle
	Visible     bool
	VertexCount int

	// SourceTransform is the composite object this payload was exploded
	// from; equals Transform when the object stood alone.
	SourceTransform scene.Handle

	// LocalMatrix is inverse(worldMatrix(SourceTransform)) * WorldMatrix.
	// Identity when SourceTransform == Transform.
	LocalMatrix mat4.T

	// WorldPosition is the world translation rounded to 4 decimals, used as
	// a stable comparison and sort key.
	WorldPosition vec3.T
}

// Volume returns the bounding-box volume with degenerate axes clamped so
// flat objects still order meaningfully.
func (p *Payload) Volume() float64 {
	return clamp(p.BBoxSize[0], 1e-4) * clamp(p.BBoxSize[1], 1e-4) * clamp(p.BBoxSize[2], 1e-4)
}

func clamp(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

// positionLess orders world positions lexicographically (x, then y, then z).
func positionLess(a, b vec3.T) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// GeomSignature is the equality/bucketing key for one component: vertex
// count, bounding-box size rounded to 4 decimals, and the material signature.
type GeomSignature struct {
	VertexCount int
	BBox        [3]float64
	Materials   string
}

// String renders a canonical form usable inside composite signatures.
func (g GeomSignature) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(g.VertexCount))
	for _, v := range g.BBox {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v, 'f', 4, 64))
	}
	b.WriteByte('|')
	b.WriteString(g.Materials)
	return b.String()
}

// geomSignatureOf derives the component signature of a payload.
func geomSignatureOf(p *Payload) GeomSignature {
	return GeomSignature{
		VertexCount: p.VertexCount,
		BBox: [3]float64{
			xform.Round(p.BBoxSize[0], 4),
			xform.Round(p.BBoxSize[1], 4),
			xform.Round(p.BBoxSize[2], 4),
		},
		Materials: strings.Join(p.Materials, ","),
	}
}

// matrixSignature reduces a matrix to rounded TRS components: translation and
// scale to 4 decimals, rotation to 2.
func matrixSignature(m *mat4.T) [9]float64 {
	t, r, s := xform.Decompose(m)
	return [9]float64{
		xform.Round(t[0], 4), xform.Round(t[1], 4), xform.Round(t[2], 4),
		xform.Round(r[0], 2), xform.Round(r[1], 2), xform.Round(r[2], 2),
		xform.Round(s[0], 4), xform.Round(s[1], 4), xform.Round(s[2], 4),
	}
}

// pairSignatureOf combines a payload's geometry signature with its
// local-matrix signature; assemblies bucket on the sorted set of these.
func pairSignatureOf(p *Payload) string {
	local := p.LocalMatrix
	sig := matrixSignature(&local)

	var b strings.Builder
	b.WriteString(geomSignatureOf(p).String())
	for _, v := range sig {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v, 'f', 4, 64))
	}
	return b.String()
}

// assemblySignature is the order-independent structural signature of a
// component set.
func assemblySignature(components []*Payload) string {
	parts := make([]string, len(components))
	for i, p := range components {
		parts[i] = pairSignatureOf(p)
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

// buildPayload captures one object, or nil when it has no mesh shape.
// Non-geometric objects are silently skipped, not errors.
func (s *Separator) buildPayload(h scene.Handle) *Payload {
	shape, ok := s.provider.Shape(h)
	if !ok {
		return nil
	}

	world, err := s.provider.WorldMatrix(h)
	if err != nil {
		s.log.Warn("world matrix unavailable, using identity",
			zap.String("node", s.provider.Name(h)), zap.Error(err))
		world = mat4.Ident
	}

	source := s.registry.SourceOf(h)
	sourceMatrix := s.registry.SourceMatrix(source)
	inverse := xform.Inverse(&sourceMatrix)
	local := xform.Mul(&inverse, &world)

	center, size, err := s.provider.BoundingBox(h)
	if err != nil {
		s.log.Warn("bounding box unavailable, using zero box",
			zap.String("node", s.provider.Name(h)), zap.Error(err))
		center, size = vec3.T{}, vec3.T{}
	}

	materials, err := s.provider.Materials(h)
	if err != nil {
		s.log.Warn("materials unavailable, using empty signature",
			zap.String("node", s.provider.Name(h)), zap.Error(err))
		materials = nil
	}
	materials = append([]string(nil), materials...)
	sort.Strings(materials)

	parent, _ := s.provider.Parent(h)

	return &Payload{
		Transform:       h,
		Shape:           shape,
		WorldMatrix:     world,
		BBoxCenter:      center,
		BBoxSize:        size,
		Materials:       materials,
		Parent:          parent,
		Visible:         s.provider.Visibility(h),
		VertexCount:     s.provider.VertexCount(shape),
		SourceTransform: source,
		LocalMatrix:     local,
		WorldPosition:   xform.RoundVec(xform.Translation(&world), 4),
	}
}
