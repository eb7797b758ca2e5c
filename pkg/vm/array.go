package vm

import "strings"

// Array is a fixed-length sequence of values. It is always handled through
// a pointer, so every binding that holds the same *Array sees the same
// elements.
type Array struct {
	elements []Value
}

// NewArray creates a new Array with the specified size.
// All elements are initialized to Null.
func NewArray(size int) *Array {
	elements := make([]Value, size)
	for i := range elements {
		elements[i] = Null
	}
	return &Array{elements: elements}
}

// NewArrayFromSlice creates a new Array that takes ownership of values.
func NewArrayFromSlice(values []Value) *Array {
	return &Array{elements: values}
}

// Get retrieves the element at the specified index.
// The bool is false when index is out of range.
func (a *Array) Get(index int) (Value, bool) {
	if index < 0 || index >= len(a.elements) {
		return Null, false
	}
	return a.elements[index], true
}

// Set stores value at index. Arrays never grow: the bool is false when
// index is out of range and nothing is stored.
func (a *Array) Set(index int, value Value) bool {
	if index < 0 || index >= len(a.elements) {
		return false
	}
	a.elements[index] = value
	return true
}

// Len returns the length of the array.
func (a *Array) Len() int {
	return len(a.elements)
}

// ToSlice returns a copy of the elements.
func (a *Array) ToSlice() []Value {
	result := make([]Value, len(a.elements))
	copy(result, a.elements)
	return result
}

func (a *Array) Kind() Kind { return KindArray }
func (a *Array) value()     {}

// Text renders the elements as "[1, a, null]". An array that contains
// itself renders the inner occurrence as "[...]".
func (a *Array) Text() string {
	var sb strings.Builder
	a.writeText(&sb, make(map[*Array]bool))
	return sb.String()
}

func (a *Array) writeText(sb *strings.Builder, seen map[*Array]bool) {
	if seen[a] {
		sb.WriteString("[...]")
		return
	}
	seen[a] = true
	defer delete(seen, a)

	sb.WriteString("[")
	for i, e := range a.elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		if inner, ok := e.(*Array); ok {
			inner.writeText(sb, seen)
			continue
		}
		sb.WriteString(e.Text())
	}
	sb.WriteString("]")
}

func (a *Array) String() string { return a.Text() }
