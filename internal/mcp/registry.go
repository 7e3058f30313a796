package mcp

import (
	"errors"
	"fmt"
	"sort"

	"healthomics/internal/config"
)

type Registry interface {
	Add(spec ToolSpec) error
	List() []ToolInfo
	Get(name string) (ToolSpec, bool)
}

type ToolRegistry struct {
	cfg    *config.Config
	tools  map[string]ToolSpec
	hidden []string
}

func NewRegistry(cfg *config.Config) *ToolRegistry {
	return &ToolRegistry{cfg: cfg, tools: map[string]ToolSpec{}}
}

func (r *ToolRegistry) Add(spec ToolSpec) error {
	if spec.Name == "" {
		return errors.New("tool name required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("tool %s: handler required", spec.Name)
	}
	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("tool %s already registered", spec.Name)
	}
	if !r.allowedBySafety(spec) {
		r.hidden = append(r.hidden, spec.Name)
		return nil
	}
	r.tools[spec.Name] = spec
	return nil
}

func (r *ToolRegistry) List() []ToolInfo {
	infos := make([]ToolInfo, 0, len(r.tools))
	for _, tool := range r.Specs() {
		infos = append(infos, ToolInfo{Name: tool.Name, Description: tool.Description, InputSchema: tool.InputSchema})
	}
	return infos
}

func (r *ToolRegistry) Get(name string) (ToolSpec, bool) {
	spec, ok := r.tools[name]
	return spec, ok
}

func (r *ToolRegistry) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool)
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	})
	return specs
}

func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hidden lists tools that were dropped because the server runs read-only.
func (r *ToolRegistry) Hidden() []string {
	hidden := append([]string(nil), r.hidden...)
	sort.Strings(hidden)
	return hidden
}

// allowedBySafety drops mutating tools when the server runs read-only.
func (r *ToolRegistry) allowedBySafety(spec ToolSpec) bool {
	if r.cfg == nil || !r.cfg.ReadOnly {
		return true
	}
	return spec.Safety == SafetyReadOnly
}
