// Package hook holds the cross-cutting behaviours (branding, welcome page,
// embedded browser, custom) that contribute to a provisioning model. Hooks are
// kept in an ordered Registry and applied to the model exactly once.
package hook

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
)

// Target is the part of a model under construction that hooks may change.
type Target interface {
	AddInstall(id string) error
	AddRepository(url string) error
	SetProperty(subpath, key, value string)
	SetSystemProperty(key, value string)
}

// Hook contributes to a model.
type Hook interface {
	Name() string
	ApplyTo(t Target) error
}

// Describer is implemented by hooks that hand settings to the launched
// runtime. The launcher writes these out in registry order.
type Describer interface {
	Properties() map[string]string
}

// Description is a serializable summary of one hook.
type Description struct {
	Name       string            `yaml:"name"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Registry is an ordered, append-only list of hooks. It is frozen once the
// model that owns it is prepared.
type Registry struct {
	mu      sync.Mutex
	hooks   []Hook
	frozen  bool
	applied bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends h. Adding the same hook twice is a no-op; adding after Freeze
// is a configuration error.
func (r *Registry) Add(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return equoerr.Configf(equoerr.StagePrepare, h.Name(), "hook registry is frozen")
	}
	for _, existing := range r.hooks {
		if same(existing, h) {
			return nil
		}
	}
	r.hooks = append(r.hooks, h)
	return nil
}

// same reports whether a and b are the same hook. Values of a type that
// cannot be compared are never the same.
func same(a, b Hook) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// List returns the hooks in insertion order.
func (r *Registry) List() []Hook {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Hook(nil), r.hooks...)
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// Freeze rejects further additions.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// ApplyOnce applies every hook to t in insertion order. Only the first call
// does anything; later calls return nil without touching t.
func (r *Registry) ApplyOnce(t Target) error {
	r.mu.Lock()
	if r.applied {
		r.mu.Unlock()
		return nil
	}
	r.applied = true
	hooks := append([]Hook(nil), r.hooks...)
	r.mu.Unlock()

	for _, h := range hooks {
		if err := h.ApplyTo(t); err != nil {
			return fmt.Errorf("hook %s: %w", h.Name(), err)
		}
	}
	return nil
}

// Describe summarizes the hooks in insertion order.
func (r *Registry) Describe() []Description {
	hooks := r.List()
	out := make([]Description, 0, len(hooks))
	for _, h := range hooks {
		d := Description{Name: h.Name()}
		if desc, ok := h.(Describer); ok {
			d.Properties = desc.Properties()
		}
		out = append(out, d)
	}
	return out
}

// sortedProps copies props into t in key order so application is
// deterministic.
func sortedProps(t Target, props map[string]string) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.SetSystemProperty(k, props[k])
	}
}
