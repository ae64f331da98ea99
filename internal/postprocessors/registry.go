package postprocessors

import (
	"fmt"
	"slices"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// BuilderFunc creates a processor from its step config.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Step names a registered processor and its config.
type Step struct {
	Name   string
	Config map[string]any
}

// Registry maps processor names to builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds a builder. name should match the processor's Name().
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates one processor.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q", domain.ErrInvalidInput, name)
	}
	return builder(cfg)
}

// Pipeline builds steps in order into a pipeline.
func (r *Registry) Pipeline(steps ...Step) (*Pipeline, error) {
	p := NewPipeline()
	for _, step := range steps {
		proc, err := r.Build(step.Name, step.Config)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", step.Name, err)
		}
		p.Add(proc)
	}
	return p, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
