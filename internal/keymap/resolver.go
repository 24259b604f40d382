package keymap

import "slices"

// Resolver maps key strings to bindings. When two actions claim the same
// key, the binding listed first keeps it and the clash is recorded.
type Resolver struct {
	byKey     map[string]Binding
	conflicts []Conflict
}

// Conflict is a key claimed by more than one action.
type Conflict struct {
	Key      string
	Kept     Action
	Shadowed Action
}

// NewResolver indexes bindings by key.
func NewResolver(bindings []Binding) *Resolver {
	r := &Resolver{byKey: make(map[string]Binding, len(bindings))}
	for _, b := range bindings {
		for _, key := range b.Keys {
			prev, taken := r.byKey[key]
			switch {
			case !taken:
				r.byKey[key] = b
			case prev.Action != b.Action:
				r.conflicts = append(r.conflicts, Conflict{Key: key, Kept: prev.Action, Shadowed: b.Action})
			}
		}
	}
	return r
}

// Resolve returns the action bound to key, or "" when the key is unbound.
func (r *Resolver) Resolve(key string) Action {
	return r.byKey[key].Action
}

// Lookup returns the binding that owns key.
func (r *Resolver) Lookup(key string) (Binding, bool) {
	b, ok := r.byKey[key]
	return b, ok
}

// KeysFor returns the keys resolving to action, sorted.
func (r *Resolver) KeysFor(action Action) []string {
	var keys []string
	for k, b := range r.byKey {
		if b.Action == action {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Conflicts lists the keys that lost an action to an earlier binding.
func (r *Resolver) Conflicts() []Conflict {
	return r.conflicts
}
