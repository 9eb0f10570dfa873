package separator

// Result is the outcome of one discovery pass.
type Result struct {
	Groups         []*InstanceGroup
	PayloadCount   int
	Assemblies     []*AssemblyDescriptor
	AssemblyGroups []*AssemblyGroup
}

// InstantiableGroups returns the groups that found at least one duplicate.
func (r *Result) InstantiableGroups() []*InstanceGroup {
	var out []*InstanceGroup
	for _, group := range r.Groups {
		if len(group.Members) > 0 {
			out = append(out, group)
		}
	}
	return out
}

// UniqueGroups returns the groups that found no duplicates.
func (r *Result) UniqueGroups() []*InstanceGroup {
	var out []*InstanceGroup
	for _, group := range r.Groups {
		if len(group.Members) == 0 {
			out = append(out, group)
		}
	}
	return out
}

// InstantiablePayloads flattens the payloads of all instantiable groups,
// prototypes first.
func (r *Result) InstantiablePayloads() []*Payload {
	var out []*Payload
	for _, group := range r.InstantiableGroups() {
		out = append(out, group.AllPayloads()...)
	}
	return out
}

// UniquePayloads returns the prototypes of the unique groups.
func (r *Result) UniquePayloads() []*Payload {
	var out []*Payload
	for _, group := range r.UniqueGroups() {
		out = append(out, group.Prototype)
	}
	return out
}

// InstantiableAssemblyGroups returns the assembly groups with members beyond
// the prototype.
func (r *Result) InstantiableAssemblyGroups() []*AssemblyGroup {
	var out []*AssemblyGroup
	for _, group := range r.AssemblyGroups {
		if len(group.Members) > 0 {
			out = append(out, group)
		}
	}
	return out
}

// UniqueAssemblies returns the prototypes of assembly groups that found no
// repeats.
func (r *Result) UniqueAssemblies() []*AssemblyDescriptor {
	var out []*AssemblyDescriptor
	for _, group := range r.AssemblyGroups {
		if len(group.Members) == 0 {
			out = append(out, group.Prototype)
		}
	}
	return out
}
