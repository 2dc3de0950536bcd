// Package workflow holds the static function-type to workflow mapping.
package workflow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/models"
)

// ErrUnknownFunctionType is returned when a function type has no registered
// workflow descriptor.
var ErrUnknownFunctionType = errors.New("unknown function type")

// Registry is a read-only lookup from function type to workflow descriptor.
// It is populated once at startup and safe for concurrent use.
type Registry struct {
	descriptors map[string]models.WorkflowDescriptor
}

// NewRegistry builds a registry from the configured workflow map.
func NewRegistry(workflows map[string]models.WorkflowDescriptor) (*Registry, error) {
	if len(workflows) == 0 {
		return nil, errors.New("no workflows configured")
	}

	descriptors := make(map[string]models.WorkflowDescriptor, len(workflows))
	for name, wf := range workflows {
		if wf.WorkflowID == "" {
			return nil, fmt.Errorf("workflow %q has no workflow id", name)
		}
		descriptors[name] = wf
	}

	return &Registry{descriptors: descriptors}, nil
}

// Lookup resolves a function type to its workflow descriptor.
func (r *Registry) Lookup(functionType string) (models.WorkflowDescriptor, error) {
	wf, ok := r.descriptors[functionType]
	if !ok {
		return models.WorkflowDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownFunctionType, functionType)
	}
	return wf, nil
}

// Names returns the registered function types in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MergeParams overlays caller-supplied overrides onto a descriptor's default
// parameters, key by key. Neither input map is mutated.
func MergeParams(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
