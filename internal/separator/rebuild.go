package separator

import (
	"sort"

	"go.uber.org/zap"

	"github.com/meshfab/instancer/internal/scene"
)

// rebuildInstantiableAssemblies walks every instantiable assembly group and
// substitutes matched components with instances of the template prototypes.
// Substitution runs for every descriptor before any collapse: collapsing
// deletes a descriptor's component transforms, and the prototype's must stay
// alive until the last member has been instanced from them.
// Strictly best-effort: a failed slot is logged and skipped, and there is no
// rollback of mutations already applied.
func (s *Separator) rebuildInstantiableAssemblies(result *Result) {
	for _, group := range result.InstantiableAssemblyGroups() {
		targets := make([]*AssemblyDescriptor, 0, len(group.Members)+1)
		targets = append(targets, group.Prototype)
		targets = append(targets, group.Members...)
		for _, descriptor := range targets {
			s.rebuildSingleAssembly(group, descriptor)
		}
		if s.opts.CollapseRebuilt {
			for _, descriptor := range targets {
				s.collapseAssemblyComponents(descriptor)
			}
		}
	}
}

func (s *Separator) rebuildSingleAssembly(group *AssemblyGroup, target *AssemblyDescriptor) {
	if len(group.TemplateSlots) == 0 {
		return
	}

	for _, slot := range group.TemplateSlots {
		targetPayload := target.MatchedSlots[slot.ID]
		prototype := slot.Prototype
		if targetPayload == nil || prototype == nil {
			continue
		}
		if targetPayload.Transform == prototype.Transform {
			continue
		}

		instance, err := s.mutator.InstancePrototype(prototype.Transform)
		if err != nil {
			s.log.Warn("failed to instance prototype",
				zap.String("prototype", s.provider.Name(prototype.Transform)),
				zap.String("component", s.provider.Name(targetPayload.Transform)),
				zap.Error(err))
			continue
		}

		if err := s.mutator.BakeWorldMatrix(instance, targetPayload.WorldMatrix); err != nil {
			s.log.Warn("failed to bake world matrix", zap.Error(err))
		}
		if !targetPayload.Parent.IsNil() {
			if err := s.mutator.Reparent(instance, targetPayload.Parent); err != nil {
				s.log.Warn("failed to reparent instance", zap.Error(err))
			}
		}
		if err := s.mutator.SetVisibility(instance, targetPayload.Visible); err != nil {
			s.log.Warn("failed to set instance visibility", zap.Error(err))
		}

		// The original's name becomes free once it is deleted.
		name := s.provider.Name(targetPayload.Transform)
		if err := s.mutator.Delete(targetPayload.Transform); err != nil {
			s.log.Warn("failed to delete replaced component", zap.Error(err))
		}
		if name != "" {
			if err := s.mutator.Rename(instance, name); err != nil {
				s.log.Warn("failed to rename instance", zap.Error(err))
			}
		}

		targetPayload.Transform = instance
		if shape, ok := s.provider.Shape(instance); ok {
			targetPayload.Shape = shape
		}
		if world, err := s.provider.WorldMatrix(instance); err == nil {
			targetPayload.WorldMatrix = world
		}
	}
}

// collapseAssemblyComponents merges all of a descriptor's slot transforms
// into one object and re-derives the descriptor around the merged result.
func (s *Separator) collapseAssemblyComponents(descriptor *AssemblyDescriptor) {
	slotIDs := make([]int, 0, len(descriptor.MatchedSlots))
	for id := range descriptor.MatchedSlots {
		slotIDs = append(slotIDs, id)
	}
	sort.Ints(slotIDs)

	seen := make(map[scene.Handle]bool)
	var transforms []scene.Handle
	for _, id := range slotIDs {
		payload := descriptor.MatchedSlots[id]
		if payload == nil || payload.Transform.IsNil() {
			continue
		}
		if _, ok := s.provider.Shape(payload.Transform); !ok {
			continue
		}
		if seen[payload.Transform] {
			continue
		}
		seen[payload.Transform] = true
		transforms = append(transforms, payload.Transform)
	}
	if len(transforms) <= 1 {
		return
	}

	var parent scene.Handle
	var targetName string
	if !descriptor.SourceTransform.IsNil() {
		parent, _ = s.provider.Parent(descriptor.SourceTransform)
		targetName = s.provider.Name(descriptor.SourceTransform)
	}

	merged, err := s.mutator.MergeComponents(transforms)
	if err != nil {
		s.log.Warn("failed to collapse assembly components",
			zap.String("assembly", s.provider.Name(descriptor.SourceTransform)),
			zap.Error(err))
		return
	}

	if err := s.mutator.DeleteHistory(merged); err != nil {
		s.log.Warn("failed to delete merge history", zap.Error(err))
	}
	if err := s.mutator.FreezeTransform(merged); err != nil {
		s.log.Warn("failed to freeze merged transform", zap.Error(err))
	}
	if !parent.IsNil() {
		if err := s.mutator.Reparent(merged, parent); err != nil {
			s.log.Warn("failed to reparent merged object", zap.Error(err))
		}
	}

	for _, t := range transforms {
		if t == merged {
			continue
		}
		if err := s.mutator.Delete(t); err != nil {
			s.log.Warn("failed to delete merged component", zap.Error(err))
		}
	}

	if targetName != "" {
		if err := s.mutator.Rename(merged, targetName); err != nil {
			s.log.Warn("failed to rename merged object", zap.Error(err))
		}
	}

	s.registry.Register(merged)
	descriptor.SourceTransform = merged

	payload := s.buildPayload(merged)
	if payload == nil {
		descriptor.Components = nil
		descriptor.MatchedSlots = nil
		return
	}

	descriptor.Components = []*Payload{payload}
	descriptor.RootComponent = payload
	descriptor.RootSignature = geomSignatureOf(payload)
	descriptor.Signature = assemblySignature(descriptor.Components)
	descriptor.MatchedSlots = map[int]*Payload{0: payload}
}
