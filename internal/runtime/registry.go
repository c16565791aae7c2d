package runtime

import (
	"sort"
	"sync"
)

// Registry maps widget ids to their mounted instance. It is created once by the
// bootstrap and injected wherever instances are added or removed.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*Instance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

// Get returns the instance mounted for id.
func (r *Registry) Get(id string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// add stores inst unless id is taken, in which case the existing instance is returned.
func (r *Registry) add(inst *Instance) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.instances[inst.id]; ok {
		return existing, false
	}
	r.instances[inst.id] = inst
	return inst, true
}

// remove deletes id only while it still maps to inst.
func (r *Registry) remove(id string, inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instances[id] == inst {
		delete(r.instances, id)
	}
}

// IDs returns the mounted widget ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of mounted instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// DestroyAll destroys every instance.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	all := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		all = append(all, inst)
	}
	r.mu.Unlock()

	for _, inst := range all {
		inst.Destroy()
	}
}
