package separator

import (
	"github.com/meshfab/instancer/internal/scene"
)

// AssemblyDescriptor represents one originating composite object and the
// component payloads discovered under it.
type AssemblyDescriptor struct {
	SourceTransform scene.Handle
	Components      []*Payload

	// Signature is the order-independent structural signature of the
	// component set.
	Signature string

	// RootComponent is the component with the greatest bounding volume.
	RootComponent *Payload
	RootSignature GeomSignature

	// MatchedSlots maps template slot ids to this descriptor's payloads once
	// the descriptor has been matched into a group.
	MatchedSlots map[int]*Payload
}

// AssemblyGroup collects assemblies sharing one structural signature: the
// elected prototype, the template slots derived from it, and the member
// descriptors that matched every slot.
type AssemblyGroup struct {
	Prototype     *AssemblyDescriptor
	TemplateSlots []TemplateSlot
	Members       []*AssemblyDescriptor
}

// newDescriptor builds a descriptor over the components, electing the
// largest-volume component as root.
func newDescriptor(source scene.Handle, components []*Payload) *AssemblyDescriptor {
	root := components[0]
	for _, payload := range components[1:] {
		if payload.Volume() > root.Volume() {
			root = payload
		}
	}
	return &AssemblyDescriptor{
		SourceTransform: source,
		Components:      components,
		Signature:       assemblySignature(components),
		RootComponent:   root,
		RootSignature:   geomSignatureOf(root),
	}
}

// buildAssemblies buckets payloads by source transform and produces one
// descriptor per bucket, or several when anchor derivation splits a bucket
// into repeated sub-assemblies.
func (s *Separator) buildAssemblies(payloads []*Payload) ([]*AssemblyDescriptor, error) {
	var order []scene.Handle
	buckets := make(map[scene.Handle][]*Payload)
	for _, payload := range payloads {
		if _, ok := buckets[payload.SourceTransform]; !ok {
			order = append(order, payload.SourceTransform)
		}
		buckets[payload.SourceTransform] = append(buckets[payload.SourceTransform], payload)
	}

	var assemblies []*AssemblyDescriptor
	for _, source := range order {
		components := buckets[source]
		if s.opts.DeriveAnchorAssemblies {
			derived, err := s.deriveAnchorAssemblies(source, components)
			if err != nil {
				return nil, err
			}
			if len(derived) > 0 {
				assemblies = append(assemblies, derived...)
				continue
			}
		}
		assemblies = append(assemblies, newDescriptor(source, components))
	}
	return assemblies, nil
}

// groupAssemblies buckets descriptors by structural signature, elects the
// descriptor with the most components as each bucket's reference, and matches
// the rest onto the reference's template. Descriptors that fail to fill every
// slot stay orphaned and are emitted as their own trivial groups, as are
// descriptors with an empty signature.
func (s *Separator) groupAssemblies(assemblies []*AssemblyDescriptor) []*AssemblyGroup {
	var order []string
	buckets := make(map[string][]*AssemblyDescriptor)
	for _, descriptor := range assemblies {
		if descriptor.Signature == "" {
			continue
		}
		if _, ok := buckets[descriptor.Signature]; !ok {
			order = append(order, descriptor.Signature)
		}
		buckets[descriptor.Signature] = append(buckets[descriptor.Signature], descriptor)
	}

	assigned := make(map[*AssemblyDescriptor]bool)
	var groups []*AssemblyGroup

	for _, signature := range order {
		bucket := buckets[signature]

		reference := bucket[0]
		for _, descriptor := range bucket[1:] {
			if len(descriptor.Components) > len(reference.Components) {
				reference = descriptor
			}
		}

		slots := buildTemplateSlots(reference)
		reference.MatchedSlots = slotPrototypes(slots)
		group := &AssemblyGroup{Prototype: reference, TemplateSlots: slots}
		assigned[reference] = true

		for _, descriptor := range bucket {
			if descriptor == reference {
				continue
			}
			matches, ok := s.matchDescriptorToTemplate(descriptor, slots)
			if !ok {
				continue
			}
			descriptor.MatchedSlots = matches
			group.Members = append(group.Members, descriptor)
			assigned[descriptor] = true
		}

		groups = append(groups, group)
	}

	for _, descriptor := range assemblies {
		if assigned[descriptor] {
			continue
		}
		slots := buildTemplateSlots(descriptor)
		descriptor.MatchedSlots = slotPrototypes(slots)
		groups = append(groups, &AssemblyGroup{
			Prototype:     descriptor,
			TemplateSlots: slots,
		})
	}

	return groups
}

func slotPrototypes(slots []TemplateSlot) map[int]*Payload {
	out := make(map[int]*Payload, len(slots))
	for _, slot := range slots {
		out[slot.ID] = slot.Prototype
	}
	return out
}
