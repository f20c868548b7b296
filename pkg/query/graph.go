package query

import (
	"fmt"
	"sort"
	"sync"
)

// Graph declares which entities each entity's views read from. The
// invalidation set of a mutation on E is E's key plus the key of every entity
// that reads E, transitively.
type Graph struct {
	mu      sync.RWMutex
	keys    map[string]Key
	readers map[string]map[string]struct{}
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		keys:    make(map[string]Key),
		readers: make(map[string]map[string]struct{}),
	}
}

// Declare registers entity under key and records that its views read every
// entity in reads. Declaring an entity twice replaces its key and adds reads.
func (g *Graph) Declare(entity string, key Key, reads ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys[entity] = key
	for _, dep := range reads {
		if g.readers[dep] == nil {
			g.readers[dep] = make(map[string]struct{})
		}
		g.readers[dep][entity] = struct{}{}
	}
}

// Key returns the key declared for entity.
func (g *Graph) Key(entity string) (Key, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	key, ok := g.keys[entity]
	return key, ok
}

// InvalidationSet returns the keys to invalidate after a mutation of entity,
// ordered by entity name with entity itself first.
func (g *Graph) InvalidationSet(entity string) ([]Key, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	own, ok := g.keys[entity]
	if !ok {
		return nil, fmt.Errorf("query: entity %q is not declared", entity)
	}

	seen := map[string]struct{}{entity: {}}
	queue := []string{entity}
	var dependents []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for reader := range g.readers[current] {
			if _, done := seen[reader]; done {
				continue
			}
			seen[reader] = struct{}{}
			dependents = append(dependents, reader)
			queue = append(queue, reader)
		}
	}
	sort.Strings(dependents)

	out := []Key{own}
	for _, name := range dependents {
		if key, ok := g.keys[name]; ok {
			out = append(out, key)
		}
	}
	return out, nil
}
