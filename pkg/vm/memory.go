package vm

import "sort"

// frame is one level of the memory chain.
type frame struct {
	label     string
	values    map[string]Value
	functions map[string]Routine
}

func newFrame(label string) *frame {
	return &frame{
		label:     label,
		values:    make(map[string]Value),
		functions: make(map[string]Routine),
	}
}

// reset empties the frame so it can be handed to the next scope at the
// same depth.
func (f *frame) reset() {
	clear(f.values)
	clear(f.functions)
	f.label = ""
}

// Memory is the scope chain of an evaluator.
//
// Frames live in an arena indexed by chain depth. Entering a scope moves to
// the next depth and reuses the frame already allocated there; exiting a
// scope clears its frame first, so no binding survives a pop. Lookups walk
// from the current depth down to the root.
//
// Memory also tracks head frames: the frame each active function call
// started in. `this.x` resolves from the innermost head frame outward.
type Memory struct {
	frames []*frame
	depth  int
	heads  []int
}

// NewMemory creates a memory chain holding only the root frame.
func NewMemory() *Memory {
	return &Memory{
		frames: []*frame{newFrame("global")},
		heads:  []int{0},
	}
}

// EnterScope pushes a new, empty frame.
//
// Parameters:
//   - label: A name used in error messages, like "if" or "fun add"
func (m *Memory) EnterScope(label string) {
	m.depth++
	if m.depth == len(m.frames) {
		m.frames = append(m.frames, newFrame(label))
		return
	}
	m.frames[m.depth].label = label
}

// ExitScope clears the current frame and pops it. The root frame is never
// popped.
func (m *Memory) ExitScope() {
	if m.depth == 0 {
		return
	}
	m.frames[m.depth].reset()
	m.depth--
}

// ClearScope empties the current frame without popping it. Loops use it
// between iterations.
func (m *Memory) ClearScope() {
	label := m.frames[m.depth].label
	m.frames[m.depth].reset()
	m.frames[m.depth].label = label
}

// EnterCall pushes a frame for a function body and makes it the head
// frame.
func (m *Memory) EnterCall(label string) {
	m.EnterScope(label)
	m.heads = append(m.heads, m.depth)
}

// ExitCall pops the frame pushed by EnterCall and restores the previous
// head frame.
func (m *Memory) ExitCall() {
	if len(m.heads) > 1 {
		m.heads = m.heads[:len(m.heads)-1]
	}
	m.ExitScope()
}

// Unwind pops every frame above the root and forgets all head frames but
// the root's. Root bindings are kept.
func (m *Memory) Unwind() {
	for m.depth > 0 {
		m.ExitScope()
	}
	m.heads = m.heads[:1]
}

// Depth returns the index of the current frame; the root is 0.
func (m *Memory) Depth() int {
	return m.depth
}

// Label returns the label of the current frame.
func (m *Memory) Label() string {
	return m.frames[m.depth].label
}

// DefineVal binds name in the current frame.
//
// Parameters:
//   - name: The variable name
//   - value: The initial value
//
// Returns:
//   - error: REDEFINED_NAME if name is already a value of the current frame
func (m *Memory) DefineVal(name string, value Value) error {
	f := m.frames[m.depth]
	if _, ok := f.values[name]; ok {
		return NewRedefinedError(f.label, name)
	}
	f.values[name] = value
	return nil
}

// Push reassigns the nearest binding of name.
//
// Returns:
//   - error: UNDEFINED_VARIABLE if no frame binds name
func (m *Memory) Push(name string, value Value) error {
	return m.pushFrom(m.depth, name, value)
}

// GetVal returns the nearest binding of name.
//
// Returns:
//   - Value: The bound value
//   - error: UNDEFINED_VARIABLE if no frame binds name
func (m *Memory) GetVal(name string) (Value, error) {
	return m.getFrom(m.depth, name)
}

// GetHeadVal is GetVal starting at the head frame instead of the current one.
func (m *Memory) GetHeadVal(name string) (Value, error) {
	return m.getFrom(m.head(), name)
}

// PushHead is Push starting at the head frame instead of the current one.
func (m *Memory) PushHead(name string, value Value) error {
	return m.pushFrom(m.head(), name, value)
}

// HasVal reports whether name is bound in any frame.
func (m *Memory) HasVal(name string) bool {
	_, err := m.GetVal(name)
	return err == nil
}

// DefineFun binds a function in the current frame's function namespace.
//
// Returns:
//   - error: REDEFINED_NAME if name is already a value or a function of the
//     current frame
func (m *Memory) DefineFun(name string, fn Routine) error {
	f := m.frames[m.depth]
	if _, ok := f.values[name]; ok {
		return NewRedefinedError(f.label, name)
	}
	if _, ok := f.functions[name]; ok {
		return NewRedefinedError(f.label, name)
	}
	f.functions[name] = fn
	return nil
}

// GetFun returns the nearest function bound to name.
func (m *Memory) GetFun(name string) (Routine, bool) {
	for d := m.depth; d >= 0; d-- {
		if fn, ok := m.frames[d].functions[name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Names returns the sorted value names visible from the current frame.
func (m *Memory) Names() []string {
	seen := make(map[string]bool)
	for d := m.depth; d >= 0; d-- {
		for name := range m.frames[d].values {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunNames returns the sorted function names visible from the current frame.
func (m *Memory) FunNames() []string {
	seen := make(map[string]bool)
	for d := m.depth; d >= 0; d-- {
		for name := range m.frames[d].functions {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of values bound in the current frame.
func (m *Memory) Size() int {
	return len(m.frames[m.depth].values)
}

func (m *Memory) head() int {
	return m.heads[len(m.heads)-1]
}

func (m *Memory) getFrom(depth int, name string) (Value, error) {
	for d := depth; d >= 0; d-- {
		if v, ok := m.frames[d].values[name]; ok {
			return v, nil
		}
	}
	return nil, NewUndefinedVariableError(name)
}

func (m *Memory) pushFrom(depth int, name string, value Value) error {
	for d := depth; d >= 0; d-- {
		if _, ok := m.frames[d].values[name]; ok {
			m.frames[d].values[name] = value
			return nil
		}
	}
	return NewUndefinedVariableError(name)
}
