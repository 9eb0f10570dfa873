package separator

import (
	gomath "math"

	"github.com/flywave/go3d/float64/mat4"

	"github.com/meshfab/instancer/pkg/xform"
)

// TemplateSlot is one position inside a canonical assembly layout: the
// expected component signature and the transform relative to the template's
// root a matching component must satisfy.
type TemplateSlot struct {
	ID              int
	Signature       GeomSignature
	ReferenceMatrix mat4.T
	Prototype       *Payload
	IsRoot          bool
}

// relativeMatrix expresses payload's matrix in root's frame.
func relativeMatrix(root, payload *mat4.T) mat4.T {
	inv := xform.Inverse(root)
	return xform.Mul(&inv, payload)
}

// buildTemplateSlots derives the slot layout of a descriptor, expressing
// every component relative to the root component.
func buildTemplateSlots(descriptor *AssemblyDescriptor) []TemplateSlot {
	rootMatrix := descriptor.RootComponent.WorldMatrix
	slots := make([]TemplateSlot, 0, len(descriptor.Components))
	for i, payload := range descriptor.Components {
		slots = append(slots, TemplateSlot{
			ID:              i,
			Signature:       geomSignatureOf(payload),
			ReferenceMatrix: relativeMatrix(&rootMatrix, &payload.WorldMatrix),
			Prototype:       payload,
			IsRoot:          payload == descriptor.RootComponent,
		})
	}
	return slots
}

// matchDescriptorToTemplate greedily assigns the descriptor's components to
// the template slots. Per slot the cheapest candidate under both tolerance
// gates wins and leaves the pool; returns false as soon as a slot cannot be
// filled. The assignment is locally, not globally, optimal.
func (s *Separator) matchDescriptorToTemplate(descriptor *AssemblyDescriptor, slots []TemplateSlot) (map[int]*Payload, bool) {
	rootMatrix := descriptor.RootComponent.WorldMatrix

	available := make(map[GeomSignature][]*Payload)
	for _, payload := range descriptor.Components {
		sig := geomSignatureOf(payload)
		available[sig] = append(available[sig], payload)
	}

	matches := make(map[int]*Payload, len(slots))
	for _, slot := range slots {
		candidates := available[slot.Signature]

		bestIdx := -1
		bestScore := 0.0
		for idx, payload := range candidates {
			relative := relativeMatrix(&rootMatrix, &payload.WorldMatrix)
			score, ok := s.matrixDifferenceScore(&relative, &slot.ReferenceMatrix)
			if !ok {
				continue
			}
			if bestIdx < 0 || score < bestScore {
				bestIdx = idx
				bestScore = score
			}
		}
		if bestIdx < 0 {
			return nil, false
		}
		matches[slot.ID] = candidates[bestIdx]
		available[slot.Signature] = append(candidates[:bestIdx], candidates[bestIdx+1:]...)
	}
	return matches, true
}

// matrixDifferenceScore scores how far candidate is from reference. Both the
// translation and rotation deltas must pass their hard tolerance gates;
// eligible candidates score translationDelta + rotationDelta/rotationTolerance.
func (s *Separator) matrixDifferenceScore(candidate, reference *mat4.T) (float64, bool) {
	candT, candR, _ := xform.Decompose(candidate)
	refT, refR, _ := xform.Decompose(reference)

	translationDelta := xform.Distance(candT, refT)
	if translationDelta > s.opts.PositionTolerance {
		return 0, false
	}

	rotationDelta := 0.0
	for i := 0; i < 3; i++ {
		delta := gomath.Abs(xform.AngleDelta(candR[i], refR[i]))
		if delta > rotationDelta {
			rotationDelta = delta
		}
	}
	if rotationDelta > s.opts.RotationTolerance {
		return 0, false
	}

	return translationDelta + rotationDelta/gomath.Max(s.opts.RotationTolerance, 1e-3), true
}
