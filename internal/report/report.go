// Package report renders a separation result into a serializable summary.
package report

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/meshfab/instancer/internal/scene"
	"github.com/meshfab/instancer/internal/separator"
)

// Report is the YAML-facing summary of one discovery pass.
type Report struct {
	PayloadCount       int             `yaml:"payload_count"`
	InstantiableGroups []InstanceEntry `yaml:"instantiable_groups"`
	UniqueObjects      []string        `yaml:"unique_objects"`
	AssemblyGroups     []AssemblyEntry `yaml:"assembly_groups,omitempty"`
	UniqueAssemblies   []string        `yaml:"unique_assemblies,omitempty"`
}

// InstanceEntry summarizes one instantiable instance group.
type InstanceEntry struct {
	Prototype  string   `yaml:"prototype"`
	Duplicates []string `yaml:"duplicates"`
}

// AssemblyEntry summarizes one instantiable assembly group.
type AssemblyEntry struct {
	Prototype string   `yaml:"prototype"`
	SlotCount int      `yaml:"slot_count"`
	Members   []string `yaml:"members"`
}

// Build assembles a report, resolving display names through the provider.
func Build(result *separator.Result, provider scene.Provider) *Report {
	r := &Report{PayloadCount: result.PayloadCount}

	for _, group := range result.InstantiableGroups() {
		entry := InstanceEntry{Prototype: provider.Name(group.Prototype.Transform)}
		for _, member := range group.Members {
			entry.Duplicates = append(entry.Duplicates, provider.Name(member.Transform))
		}
		r.InstantiableGroups = append(r.InstantiableGroups, entry)
	}
	for _, group := range result.UniqueGroups() {
		r.UniqueObjects = append(r.UniqueObjects, provider.Name(group.Prototype.Transform))
	}

	for _, group := range result.InstantiableAssemblyGroups() {
		entry := AssemblyEntry{
			Prototype: provider.Name(group.Prototype.SourceTransform),
			SlotCount: len(group.TemplateSlots),
		}
		for _, member := range group.Members {
			entry.Members = append(entry.Members, provider.Name(member.SourceTransform))
		}
		r.AssemblyGroups = append(r.AssemblyGroups, entry)
	}
	for _, descriptor := range result.UniqueAssemblies() {
		r.UniqueAssemblies = append(r.UniqueAssemblies, provider.Name(descriptor.SourceTransform))
	}

	return r
}

// WriteTo marshals the report as YAML to the given path.
func (r *Report) WriteTo(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
