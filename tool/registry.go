package tool

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is an immutable mapping from tool name to Tool, built once at agent
// construction. Because it never changes after NewRegistry returns it is safe
// to share between sessions.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry. Names must be unique, non-empty and made of
// word characters so that the call parser can address them.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}

	for _, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("nil tool")
		}

		name := t.Name()
		if !validName(name) {
			return nil, fmt.Errorf("invalid tool name %q", name)
		}

		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}

		r.tools[name] = t
		r.order = append(r.order, name)
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}

	return r
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}

	t, ok := r.tools[name]

	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.tools)
}

// Names returns the registered names sorted alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)

	return names
}

// Tools returns the tools in registration order.
func (r *Registry) Tools() []Tool {
	if r == nil {
		return nil
	}

	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}

	return out
}

// Describe renders one line per tool in registration order, e.g.
//
//	- weather(latitude, longitude): Get the current weather.
//
// The text is embedded in the system prompt.
func (r *Registry) Describe() string {
	var b strings.Builder

	for _, t := range r.Tools() {
		fmt.Fprintf(&b, "- %s: %s\n", Signature(t), t.Description())
	}

	return strings.TrimRight(b.String(), "\n")
}

func validName(name string) bool {
	if name == "" {
		return false
	}

	for _, c := range name {
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}

	return true
}
