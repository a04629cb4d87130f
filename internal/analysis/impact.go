package analysis

import (
	"pyuml/internal/graph"
	"pyuml/internal/model"
)

// ImpactReport summarizes the classes affected by a set of changed
// source units.
type ImpactReport struct {
	// DirectlyAffected are classes whose defining unit changed,
	// in registry order.
	DirectlyAffected []string
	// IndirectlyAffected are transitive subclasses of the directly
	// affected classes that did not themselves change.
	IndirectlyAffected []string
}

// Analyzer maps changed units to affected classes through the origin
// index and the inheritance hierarchy.
type Analyzer struct {
	reg     *model.Registry
	origins model.OriginIndex
	h       *graph.Hierarchy
}

func NewAnalyzer(reg *model.Registry, origins model.OriginIndex) *Analyzer {
	return &Analyzer{
		reg:     reg,
		origins: origins,
		h:       graph.Build(reg),
	}
}

// AnalyzeImpact reports which classes a set of changed unit paths
// touches. Paths must be relative to the scan root, the way the
// origin index records them.
func (a *Analyzer) AnalyzeImpact(changedPaths []string) *ImpactReport {
	report := &ImpactReport{
		DirectlyAffected:   []string{},
		IndirectlyAffected: []string{},
	}

	changed := make(map[string]bool, len(changedPaths))
	for _, p := range changedPaths {
		changed[p] = true
	}

	direct := make(map[string]bool)
	for _, name := range a.reg.Names() {
		if changed[a.origins[name]] {
			report.DirectlyAffected = append(report.DirectlyAffected, name)
			direct[name] = true
		}
	}

	seen := make(map[string]bool)
	for _, name := range report.DirectlyAffected {
		for _, sub := range a.h.Descendants(name) {
			if direct[sub] || seen[sub] {
				continue
			}
			seen[sub] = true
			report.IndirectlyAffected = append(report.IndirectlyAffected, sub)
		}
	}

	return report
}
