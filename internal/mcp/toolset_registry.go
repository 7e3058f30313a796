package mcp

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Toolset is a group of tools enabled together by id in config. Toolsets
// register a factory from init and are instantiated once per server build.
type Toolset interface {
	ID() string
	Version() string
	Init(ctx ToolsetContext) error
	Register(reg Registry) error
}

type ToolsetFactory func() Toolset

type toolsetRegistry struct {
	mu        sync.RWMutex
	factories map[string]ToolsetFactory
}

var registry = toolsetRegistry{factories: map[string]ToolsetFactory{}}

func RegisterToolset(id string, factory ToolsetFactory) error {
	if id == "" {
		return errors.New("toolset id required")
	}
	if factory == nil {
		return fmt.Errorf("toolset %s: factory required", id)
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.factories[id]; exists {
		return fmt.Errorf("toolset %s already registered", id)
	}
	registry.factories[id] = factory
	return nil
}

func MustRegisterToolset(id string, factory ToolsetFactory) {
	if err := RegisterToolset(id, factory); err != nil {
		panic(err)
	}
}

func ToolsetFactoryFor(id string) (ToolsetFactory, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	factory, ok := registry.factories[id]
	return factory, ok
}

func RegisteredToolsets() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	ids := make([]string, 0, len(registry.factories))
	for id := range registry.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
