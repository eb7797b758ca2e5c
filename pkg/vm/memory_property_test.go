package vm

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property-based tests for the scope chain.

func TestPropertyMemoryScopeIsolation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("names defined in a scope are gone after it exits", prop.ForAll(
		func(names []string, depth int) bool {
			m := NewMemory()
			for i := 0; i < depth; i++ {
				m.EnterScope("block")
			}
			for _, name := range names {
				m.DefineVal(name, Number(1))
			}
			for i := 0; i < depth; i++ {
				m.ExitScope()
			}
			for _, name := range names {
				if m.HasVal(name) {
					return false
				}
			}
			return m.Depth() == 0
		},
		gen.SliceOf(gen.Identifier()),
		gen.IntRange(1, 8),
	))

	properties.Property("shadowing never changes the outer binding", prop.ForAll(
		func(name string, outer, inner float64) bool {
			m := NewMemory()
			m.DefineVal(name, Number(outer))
			m.EnterScope("if")
			if err := m.DefineVal(name, Number(inner)); err != nil {
				return false
			}
			m.ExitScope()
			v, err := m.GetVal(name)
			return err == nil && v == Number(outer)
		},
		gen.Identifier(),
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.Property("Push updates the nearest binding only", prop.ForAll(
		func(name string, value float64) bool {
			m := NewMemory()
			m.DefineVal(name, Number(0))
			m.EnterScope("a")
			m.DefineVal(name, Number(1))
			m.EnterScope("b")
			m.Push(name, Number(value))
			m.ExitScope()
			inner, _ := m.GetVal(name)
			m.ExitScope()
			outer, _ := m.GetVal(name)
			return inner == Number(value) && outer == Number(0)
		},
		gen.Identifier(),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
