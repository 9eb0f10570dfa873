package separator

import (
	"fmt"
	gomath "math"
	"sort"

	"github.com/meshfab/instancer/internal/scene"
	"github.com/meshfab/instancer/pkg/xform"
)

// deriveAnchorAssemblies attempts to split one source bucket into multiple
// smaller assemblies, each representing one occurrence of a repeating
// sub-pattern around an anchor component. Returns nil when no decomposition
// with at least two occurrences exists; the caller then falls back to a
// whole-bucket descriptor.
func (s *Separator) deriveAnchorAssemblies(source scene.Handle, components []*Payload) ([]*AssemblyDescriptor, error) {
	if len(components) < 2 {
		return nil, nil
	}

	anchors := selectAnchorPayloads(components)
	if len(anchors) < 2 {
		return nil, nil
	}
	for _, templateAnchor := range anchors {
		descriptors, err := s.deriveFromTemplateAnchor(templateAnchor, anchors, components, source)
		if err != nil {
			return nil, err
		}
		if len(descriptors) > 0 {
			return descriptors, nil
		}
	}
	return nil, nil
}

// deriveFromTemplateAnchor builds a template around one anchor and tries to
// replay it at every other anchor. Succeeds only when the template anchor
// occupies exactly one root slot and at least one other anchor matches the
// full template; leftovers become one fallback descriptor.
func (s *Separator) deriveFromTemplateAnchor(
	templateAnchor *Payload,
	anchors []*Payload,
	components []*Payload,
	source scene.Handle,
) ([]*AssemblyDescriptor, error) {
	slots := s.buildAnchorTemplateSlots(templateAnchor, components, anchors)
	if len(slots) <= 1 {
		return nil, nil
	}

	rootSignature := geomSignatureOf(templateAnchor)
	rootSlots := 0
	rootIsAnchor := false
	for _, slot := range slots {
		if slot.Signature == rootSignature {
			rootSlots++
			rootIsAnchor = slot.IsRoot
		}
	}
	if rootSlots != 1 || !rootIsAnchor {
		return nil, nil
	}

	templateMapping := slotPrototypes(slots)
	used := make(map[scene.Handle]bool)
	for _, payload := range templateMapping {
		used[payload.Transform] = true
	}

	templateDescriptor, err := s.descriptorFromSlotMapping(templateAnchor, templateAnchor.Transform, templateMapping, slots)
	if err != nil {
		return nil, err
	}
	descriptors := []*AssemblyDescriptor{templateDescriptor}

	availability := buildAnchorAvailability(components, templateMapping, anchors)

	for _, anchor := range anchors {
		if anchor == templateAnchor {
			continue
		}
		matches, ok := s.matchAnchorToTemplateSlots(anchor, slots, availability)
		if !ok {
			continue
		}
		descriptor, err := s.descriptorFromSlotMapping(anchor, anchor.Transform, matches, slots)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, descriptor)
		for _, payload := range matches {
			used[payload.Transform] = true
		}
	}

	if len(descriptors) <= 1 {
		return nil, nil
	}

	var unused []*Payload
	for _, payload := range components {
		if !used[payload.Transform] {
			unused = append(unused, payload)
		}
	}
	if len(unused) > 0 {
		descriptors = append(descriptors, newDescriptor(source, unused))
	}

	return descriptors, nil
}

// selectAnchorPayloads elects the anchor signature: among the components,
// walking from the largest bounding volume down, the first signature shared
// by at least two components wins. Anchors come back sorted by world
// position so derivation order is stable.
func selectAnchorPayloads(components []*Payload) []*Payload {
	byVolume := append([]*Payload(nil), components...)
	sort.SliceStable(byVolume, func(i, j int) bool {
		return byVolume[i].Volume() > byVolume[j].Volume()
	})

	for _, candidate := range byVolume {
		signature := geomSignatureOf(candidate)
		var duplicates []*Payload
		for _, payload := range components {
			if geomSignatureOf(payload) == signature {
				duplicates = append(duplicates, payload)
			}
		}
		if len(duplicates) >= 2 {
			sort.SliceStable(duplicates, func(i, j int) bool {
				return positionLess(duplicates[i].WorldPosition, duplicates[j].WorldPosition)
			})
			return duplicates
		}
	}
	return nil
}

// buildAnchorTemplateSlots collects every component within the anchor's
// capture radius into a slot, expressed relative to the anchor.
func (s *Separator) buildAnchorTemplateSlots(anchor *Payload, components []*Payload, anchors []*Payload) []TemplateSlot {
	radius := s.anchorCaptureRadius(anchor, components, anchors)

	var slots []TemplateSlot
	for _, payload := range components {
		if payloadDistance(anchor, payload) > radius {
			continue
		}
		slots = append(slots, TemplateSlot{
			ID:              len(slots),
			Signature:       geomSignatureOf(payload),
			ReferenceMatrix: relativeMatrix(&anchor.WorldMatrix, &payload.WorldMatrix),
			Prototype:       payload,
			IsRoot:          payload == anchor,
		})
	}
	return slots
}

// buildAnchorAvailability pools the components still assignable to other
// anchor occurrences: everything not consumed by the template occurrence and
// not itself an anchor, bucketed by signature and sorted by world position.
func buildAnchorAvailability(components []*Payload, consumed map[int]*Payload, anchors []*Payload) map[GeomSignature][]*Payload {
	taken := make(map[scene.Handle]bool)
	for _, payload := range consumed {
		taken[payload.Transform] = true
	}
	for _, anchor := range anchors {
		taken[anchor.Transform] = true
	}

	availability := make(map[GeomSignature][]*Payload)
	for _, payload := range components {
		if taken[payload.Transform] {
			continue
		}
		sig := geomSignatureOf(payload)
		availability[sig] = append(availability[sig], payload)
	}
	for _, payloads := range availability {
		sort.SliceStable(payloads, func(i, j int) bool {
			return positionLess(payloads[i].WorldPosition, payloads[j].WorldPosition)
		})
	}
	return availability
}

// matchAnchorToTemplateSlots replays the template at another anchor. The
// anchor itself fills the root slot; every other slot takes the cheapest
// available same-signature payload under the tolerance gates. Consumed
// candidates leave the pool and are not restored if a later slot fails.
func (s *Separator) matchAnchorToTemplateSlots(
	anchor *Payload,
	slots []TemplateSlot,
	availability map[GeomSignature][]*Payload,
) (map[int]*Payload, bool) {
	matches := make(map[int]*Payload, len(slots))
	for _, slot := range slots {
		if slot.IsRoot {
			matches[slot.ID] = anchor
			continue
		}

		candidates := availability[slot.Signature]
		bestIdx := -1
		bestScore := 0.0
		for idx, payload := range candidates {
			relative := relativeMatrix(&anchor.WorldMatrix, &payload.WorldMatrix)
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
		availability[slot.Signature] = append(candidates[:bestIdx], candidates[bestIdx+1:]...)
	}
	return matches, true
}

// descriptorFromSlotMapping materializes a descriptor from a slot mapping.
// Every slot must carry a payload; a gap signals a bug in template
// derivation and is surfaced, never coerced.
func (s *Separator) descriptorFromSlotMapping(
	anchor *Payload,
	source scene.Handle,
	slotPayloads map[int]*Payload,
	slots []TemplateSlot,
) (*AssemblyDescriptor, error) {
	ordered := make([]*Payload, 0, len(slots))
	for _, slot := range slots {
		payload, ok := slotPayloads[slot.ID]
		if !ok || payload == nil {
			return nil, fmt.Errorf("template slot %d missing payload for anchor %s",
				slot.ID, s.provider.Name(anchor.Transform))
		}
		ordered = append(ordered, payload)
	}

	matched := make(map[int]*Payload, len(slotPayloads))
	for id, payload := range slotPayloads {
		matched[id] = payload
	}

	return &AssemblyDescriptor{
		SourceTransform: source,
		Components:      ordered,
		Signature:       assemblySignature(ordered),
		RootComponent:   anchor,
		RootSignature:   geomSignatureOf(anchor),
		MatchedSlots:    matched,
	}, nil
}

// anchorCaptureRadius is the heuristic reach of one anchor occurrence: the
// anchor's longest bounding-box axis scaled by the capture multiplier, or the
// k-th-nearest-neighbor distance when the scene is denser than that.
func (s *Separator) anchorCaptureRadius(anchor *Payload, components []*Payload, anchors []*Payload) float64 {
	longestAxis := gomath.Max(anchor.BBoxSize[0], gomath.Max(anchor.BBoxSize[1], anchor.BBoxSize[2]))
	scaleRadius := gomath.Max(longestAxis*s.opts.AnchorCaptureMultiplier, 1.0)
	return gomath.Max(scaleRadius, s.neighborRadius(anchor, components, anchors))
}

// neighborRadius estimates the per-occurrence reach as the distance to the
// k-th nearest non-anchor component, where k is the expected member count of
// one occurrence beyond its root, padded by the position tolerance. Other
// anchors are excluded from the distance pool: they root their own
// occurrences and must never pull the radius out to a neighboring occurrence.
func (s *Separator) neighborRadius(anchor *Payload, components []*Payload, anchors []*Payload) float64 {
	assemblyCount := len(anchors)
	if assemblyCount <= 0 {
		return 1.0
	}

	isAnchor := make(map[scene.Handle]bool, assemblyCount)
	for _, other := range anchors {
		isAnchor[other.Transform] = true
	}

	var distances []float64
	for _, payload := range components {
		if payload == anchor || isAnchor[payload.Transform] {
			continue
		}
		distances = append(distances, payloadDistance(anchor, payload))
	}
	if len(distances) == 0 {
		return 1.0
	}
	sort.Float64s(distances)

	// Floor division: stray components that belong to no occurrence must
	// not inflate the estimated occurrence size.
	approxComponents := len(components) / assemblyCount
	neighborIndex := approxComponents - 2
	if neighborIndex < 0 {
		neighborIndex = 0
	}
	if neighborIndex > len(distances)-1 {
		neighborIndex = len(distances) - 1
	}
	return distances[neighborIndex] + s.opts.PositionTolerance
}

func payloadDistance(a, b *Payload) float64 {
	return xform.Distance(a.WorldPosition, b.WorldPosition)
}
