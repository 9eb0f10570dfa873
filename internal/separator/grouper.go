package separator

import gomath "math"

// InstanceGroup pairs a prototype payload with the payloads that can
// instance it. A group with no members found no duplicates.
type InstanceGroup struct {
	Prototype *Payload
	Members   []*Payload
}

// AllPayloads returns the prototype followed by the members.
func (g *InstanceGroup) AllPayloads() []*Payload {
	out := make([]*Payload, 0, len(g.Members)+1)
	out = append(out, g.Prototype)
	return append(out, g.Members...)
}

// groupPayloads partitions the payloads into instance groups with a single
// first-fit scan. The result is order dependent on purpose: input order is
// the tie-break, so reruns over unchanged input are stable.
func (s *Separator) groupPayloads(payloads []*Payload) []*InstanceGroup {
	var groups []*InstanceGroup
	for _, payload := range payloads {
		group := s.matchGroup(payload, groups)
		if group == nil {
			groups = append(groups, &InstanceGroup{Prototype: payload})
			continue
		}
		group.Members = append(group.Members, payload)
	}
	return groups
}

// matchGroup returns the first group whose prototype the payload matches.
func (s *Separator) matchGroup(payload *Payload, groups []*InstanceGroup) *InstanceGroup {
	for _, group := range groups {
		if !s.materialsMatch(payload, group.Prototype) {
			continue
		}
		if s.geometryMatches(payload, group.Prototype) {
			return group
		}
	}
	return nil
}

func (s *Separator) materialsMatch(payload, prototype *Payload) bool {
	if !s.opts.RequireSameMaterial {
		return true
	}
	if len(payload.Materials) != len(prototype.Materials) {
		return false
	}
	for i, mat := range payload.Materials {
		if prototype.Materials[i] != mat {
			return false
		}
	}
	return true
}

// geometryMatches applies the tolerance-weighted shape similarity after the
// hard vertex-count gate.
func (s *Separator) geometryMatches(payload, prototype *Payload) bool {
	if payload.VertexCount != prototype.VertexCount {
		return false
	}
	return similarity(payload, prototype) >= s.opts.Tolerance
}

// similarity scores two payloads in [0,1] by averaging per-axis bounding-box
// ratios with a volume ratio. Symmetric in its arguments.
func similarity(a, b *Payload) float64 {
	ratio := func(x, y float64) float64 {
		denom := gomath.Max(gomath.Max(x, y), 1e-6)
		return 1.0 - gomath.Abs(x-y)/denom
	}

	axisSimilarity := (ratio(a.BBoxSize[0], b.BBoxSize[0]) +
		ratio(a.BBoxSize[1], b.BBoxSize[1]) +
		ratio(a.BBoxSize[2], b.BBoxSize[2])) / 3.0

	volumeA := gomath.Max(a.BBoxSize[0]*a.BBoxSize[1]*a.BBoxSize[2], 1e-12)
	volumeB := gomath.Max(b.BBoxSize[0]*b.BBoxSize[1]*b.BBoxSize[2], 1e-12)
	volumeSimilarity := 1.0 - gomath.Abs(volumeA-volumeB)/gomath.Max(volumeA, volumeB)

	return (axisSimilarity + volumeSimilarity) / 2.0
}
