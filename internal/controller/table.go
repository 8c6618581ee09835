package controller

import (
	"sort"
	"sync"
)

// Table holds the live controllers by accessory UUID.
// All methods are safe for concurrent use.
type Table struct {
	mu          sync.RWMutex
	controllers map[string]Controller
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{controllers: make(map[string]Controller)}
}

// Put stores c, replacing any controller with the same UUID.
func (t *Table) Put(c Controller) {
	t.mu.Lock()
	t.controllers[c.UUID()] = c
	t.mu.Unlock()
}

// Get returns the controller for uuid.
func (t *Table) Get(uuid string) (Controller, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.controllers[uuid]
	return c, ok
}

// Delete removes the controller for uuid.
func (t *Table) Delete(uuid string) {
	t.mu.Lock()
	delete(t.controllers, uuid)
	t.mu.Unlock()
}

// ByEntity returns the controller of a hub entity.
func (t *Table) ByEntity(entityID int) (Controller, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.controllers {
		if c.Entity().ID == entityID {
			return c, true
		}
	}
	return nil, false
}

// All returns every controller ordered by entity id.
func (t *Table) All() []Controller {
	t.mu.RLock()
	out := make([]Controller, 0, len(t.controllers))
	for _, c := range t.controllers {
		out = append(out, c)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Entity().ID < out[j].Entity().ID })
	return out
}

// Len returns the number of controllers.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.controllers)
}
