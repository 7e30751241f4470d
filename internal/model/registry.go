package model

// Registry is an insertion-ordered multimap from qualified name to object.
// Redefinitions under one name never discard the older object: the newest
// insertion becomes the default answer while the full history stays
// addressable for diagnostics and back-references computed before the
// shadowing was known.
type Registry struct {
	store map[string][]ApiObject
	keys  []string
}

func NewRegistry() *Registry {
	return &Registry{store: make(map[string][]ApiObject)}
}

// Put appends ob to the history for name. Re-inserting an object that is
// already present moves it to the end ("touch"). When shadow is false the
// object is slotted in just before the current winner instead, so the
// existing answer for the name is preserved.
func (r *Registry) Put(name string, ob ApiObject, shadow bool) {
	queue, ok := r.store[name]
	if !ok {
		r.store[name] = []ApiObject{ob}
		r.keys = append(r.keys, name)
		return
	}
	if queue[len(queue)-1] == ob {
		return
	}
	for i, existing := range queue {
		if existing == ob {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if shadow {
		queue = append(queue, ob)
	} else {
		last := queue[len(queue)-1]
		queue = append(queue[:len(queue)-1], ob, last)
	}
	r.store[name] = queue
}

// Get returns the most recently inserted surviving object for name, or nil.
func (r *Registry) Get(name string) ApiObject {
	queue := r.store[name]
	if len(queue) == 0 {
		return nil
	}
	return queue[len(queue)-1]
}

// GetAll returns the full insertion-ordered history for name. The returned
// slice is owned by the registry and must not be mutated.
func (r *Registry) GetAll(name string) []ApiObject {
	return r.store[name]
}

// Shadowed returns every object registered under name except the current
// winner.
func (r *Registry) Shadowed(name string) []ApiObject {
	queue := r.store[name]
	if len(queue) <= 1 {
		return nil
	}
	return queue[:len(queue)-1]
}

// Promote makes ob the current winner for name. Used by the pipeline when a
// later-registered object must not shadow an earlier one (property accessors,
// package __init__ names over submodules).
func (r *Registry) Promote(name string, ob ApiObject) {
	r.Put(name, ob, true)
}

// Remove deletes one occurrence of ob from name's history, promoting the
// next most recent automatically. Removing the last occurrence deletes the
// name. Returns false when ob was not registered under name.
func (r *Registry) Remove(name string, ob ApiObject) bool {
	queue, ok := r.store[name]
	if !ok {
		return false
	}
	for i, existing := range queue {
		if existing == ob {
			queue = append(queue[:i], queue[i+1:]...)
			if len(queue) == 0 {
				delete(r.store, name)
				r.removeKey(name)
			} else {
				r.store[name] = queue
			}
			return true
		}
	}
	return false
}

func (r *Registry) removeKey(name string) {
	for i, k := range r.keys {
		if k == name {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			return
		}
	}
}

// Len returns the number of distinct names.
func (r *Registry) Len() int { return len(r.store) }

// Names returns all registered names in first-insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Iter calls fn for every name/current-winner pair in first-insertion order.
// Returning false stops the iteration.
func (r *Registry) Iter(fn func(name string, ob ApiObject) bool) {
	for _, name := range r.keys {
		if !fn(name, r.Get(name)) {
			return
		}
	}
}
