package vm

import (
	"fmt"
	"sort"
)

// Callable is a host function imported with `with`.
type Callable interface {
	Call(args []Value) (Value, error)
}

// CallableFunc adapts an ordinary function to Callable.
type CallableFunc func(args []Value) (Value, error)

// Call calls f(args).
func (f CallableFunc) Call(args []Value) (Value, error) {
	return f(args)
}

// Resolver looks up host functions by module and function name.
type Resolver interface {
	Resolve(module, function string) (Callable, bool)
}

// ForeignCallError reports a host function called with arguments it cannot
// accept.
type ForeignCallError struct {
	Module   string
	Function string
	Message  string
}

// Error implements the error interface.
func (e *ForeignCallError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Module, e.Function, e.Message)
}

// NewForeignCallError creates a ForeignCallError.
func NewForeignCallError(module, function, format string, args ...any) *ForeignCallError {
	return &ForeignCallError{
		Module:   module,
		Function: function,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Registry is a Resolver backed by a map. The host fills it before
// execution starts.
type Registry struct {
	modules map[string]map[string]Callable
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]Callable)}
}

// Register adds fn as module.function, replacing any previous entry.
func (r *Registry) Register(module, function string, fn Callable) {
	m, ok := r.modules[module]
	if !ok {
		m = make(map[string]Callable)
		r.modules[module] = m
	}
	m[function] = fn
}

// RegisterFunc is Register for a plain function.
func (r *Registry) RegisterFunc(module, function string, fn func(args []Value) (Value, error)) {
	r.Register(module, function, CallableFunc(fn))
}

// Resolve implements Resolver.
func (r *Registry) Resolve(module, function string) (Callable, bool) {
	fn, ok := r.modules[module][function]
	return fn, ok
}

// Names returns every registered "module.function", sorted.
func (r *Registry) Names() []string {
	var names []string
	for module, fns := range r.modules {
		for function := range fns {
			names = append(names, module+"."+function)
		}
	}
	sort.Strings(names)
	return names
}

// Filter returns a Registry holding only the entries whose
// "module.function" name is in allowed.
func (r *Registry) Filter(allowed []string) *Registry {
	keep := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		keep[name] = true
	}
	filtered := NewRegistry()
	for module, fns := range r.modules {
		for function, fn := range fns {
			if keep[module+"."+function] {
				filtered.Register(module, function, fn)
			}
		}
	}
	return filtered
}

// CheckArgs validates the argument shape of a host function call. A kind
// of KindNull in kinds accepts any value.
func CheckArgs(module, function string, args []Value, kinds ...Kind) error {
	if len(args) != len(kinds) {
		return NewForeignCallError(module, function, "expected %d arguments, got %d", len(kinds), len(args))
	}
	for i, want := range kinds {
		if want != KindNull && args[i].Kind() != want {
			return NewForeignCallError(module, function, "argument %d must be a %s, got %s", i+1, want, args[i].Kind())
		}
	}
	return nil
}
