// Package vm provides the tree-walking evaluator for Sketch programs.
// It implements:
// - Expression evaluation over the closed set of AST nodes
// - Scope management (an arena of frames with head frames for `this`)
// - Control-flow signals (return, break, continue, forward)
// - Native functions and host imports
package vm

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"unicode/utf8"

	"github.com/zurustar/sketch/pkg/compiler"
	"github.com/zurustar/sketch/pkg/compiler/ast"
	"github.com/zurustar/sketch/pkg/compiler/token"
	"github.com/zurustar/sketch/pkg/logger"
)

// MaxStackDepth is the default maximum depth of nested user function calls.
const MaxStackDepth = 1000

// Evaluator executes Sketch programs. It is single-threaded: one Evaluator
// must not be used from several goroutines at once.
type Evaluator struct {
	memory  *Memory
	sink    io.Writer
	foreign Resolver
	natives map[string]NativeFunc

	maxDepth  int
	callDepth int
	calls     int

	log *slog.Logger
}

// Option is a functional option for configuring the Evaluator.
type Option func(*Evaluator)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Evaluator) {
		e.log = log
	}
}

// WithMaxDepth bounds the depth of nested user function calls. A value of
// zero or less removes the bound.
func WithMaxDepth(depth int) Option {
	return func(e *Evaluator) {
		e.maxDepth = depth
	}
}

// WithForeign sets the resolver `with` imports are looked up in.
func WithForeign(r Resolver) Option {
	return func(e *Evaluator) {
		e.foreign = r
	}
}

// New creates an Evaluator with a fresh root memory that writes program
// output to sink.
//
// Parameters:
//   - sink: Destination of print and printf
//   - opts: Optional configuration options (logger, max depth, foreign registry)
//
// Returns:
//   - *Evaluator: The initialized evaluator
func New(sink io.Writer, opts ...Option) *Evaluator {
	e := &Evaluator{
		memory:   NewMemory(),
		sink:     sink,
		natives:  make(map[string]NativeFunc),
		maxDepth: MaxStackDepth,
		log:      logger.GetLogger(),
	}
	e.registerNatives()

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Memory returns the evaluator's scope chain.
func (e *Evaluator) Memory() *Memory {
	return e.memory
}

// Execute compiles and runs source. Compile errors are returned as
// *compiler.CompileError, runtime errors as *RuntimeError. Output written
// before an error stays written.
func (e *Evaluator) Execute(source string) error {
	program, err := compiler.Compile(source)
	if err != nil {
		return err
	}
	return e.ExecuteProgram(program)
}

// ExecuteProgram runs the top-level expressions of program in order against
// the root frame. A top-level return ends the program normally.
//
// After an error the memory is unwound to the root frame, so the evaluator
// can be reused, for example by a REPL.
func (e *Evaluator) ExecuteProgram(program *ast.Program) error {
	e.callDepth = 0
	for _, expr := range program.Exprs {
		interrupt, err := e.exec(expr)
		if err != nil {
			e.log.Debug("Execution failed", "error", err, "depth", e.memory.Depth())
			e.memory.Unwind()
			e.callDepth = 0
			return err
		}
		if interrupt == nil {
			continue
		}
		if interrupt.Kind == InterruptReturn {
			break
		}
		return NewSignalEscapedError(interrupt.Token, interrupt.Kind.String())
	}
	e.log.Debug("Program finished", "calls", e.calls, "frames", len(e.memory.frames))
	return nil
}

// EvaluateBlock evaluates exprs in order and returns the first interrupt
// produced, or nil.
func (e *Evaluator) EvaluateBlock(exprs []ast.Expr) (*Interrupt, error) {
	for _, expr := range exprs {
		interrupt, err := e.exec(expr)
		if err != nil || interrupt != nil {
			return interrupt, err
		}
	}
	return nil, nil
}

// exec evaluates one statement. Control forms are handled here, anything
// else is evaluated for its side effects.
func (e *Evaluator) exec(expr ast.Expr) (*Interrupt, error) {
	switch n := expr.(type) {
	case *ast.If:
		return e.execIf(n)
	case *ast.While:
		return e.execWhile(n)
	case *ast.For:
		return e.execFor(n)
	case *ast.Each:
		return e.execEach(n)
	case *ast.FunctionDecl:
		return nil, e.declareFunction(n)
	case *ast.With:
		return nil, e.importForeign(n)
	case *ast.Return:
		value := Null
		if n.Value != nil {
			v, err := e.Evaluate(n.Value)
			if err != nil {
				return nil, err
			}
			value = v
		}
		return &Interrupt{Kind: InterruptReturn, Value: value, Token: n.Token}, nil
	case *ast.Break:
		return &Interrupt{Kind: InterruptBreak, Token: n.Token}, nil
	case *ast.Continue:
		return &Interrupt{Kind: InterruptContinue, Token: n.Token}, nil
	case *ast.Forward:
		count, err := e.Evaluate(n.Count)
		if err != nil {
			return nil, err
		}
		num, ok := count.(Number)
		if !ok {
			return nil, NewTypeMismatchError(n.Token, "Expected number for forward, got %s", count.Kind())
		}
		return &Interrupt{Kind: InterruptForward, Count: float64(num), Token: n.Token}, nil
	default:
		_, err := e.Evaluate(expr)
		return nil, err
	}
}

// Evaluate computes the value of expr.
func (e *Evaluator) Evaluate(expr ast.Expr) (Value, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		return FromLiteral(n.Value), nil

	case *ast.Identifier:
		v, err := e.memory.GetVal(n.Name)
		return v, at(err, n.Token)

	case *ast.PropertyAccess:
		v, err := e.memory.GetHeadVal(n.Name)
		return v, at(err, n.Token)

	case *ast.ArrayLiteral:
		elements := make([]Value, len(n.Elements))
		for i, el := range n.Elements {
			v, err := e.Evaluate(el)
			if err != nil {
				return nil, err
			}
			elements[i] = v
		}
		return NewArrayFromSlice(elements), nil

	case *ast.ArrayAccess:
		return e.evalIndex(n)

	case *ast.Unary:
		return e.evalUnary(n)

	case *ast.Binary:
		return e.evalBinary(n)

	case *ast.Logical:
		return e.evalLogical(n)

	case *ast.Increment:
		return e.evalIncrement(n)

	case *ast.Val:
		return e.evalVal(n)

	case *ast.Ternary:
		cond, err := e.evalCondition(n.Cond, n.Token)
		if err != nil {
			return nil, err
		}
		if cond {
			return e.Evaluate(n.Then)
		}
		return e.Evaluate(n.Else)

	case *ast.FunctionCall:
		return e.call(n)

	case *ast.Range:
		return nil, NewRuntimeErrorAt(ErrorInvalidOperation, n.Token, "A range can only be used in a for loop")

	case *ast.If, *ast.While, *ast.For, *ast.Each, *ast.FunctionDecl, *ast.With,
		*ast.Return, *ast.Break, *ast.Continue, *ast.Forward:
		interrupt, err := e.exec(n)
		if err != nil {
			return nil, err
		}
		if interrupt != nil {
			return nil, NewSignalEscapedError(interrupt.Token, interrupt.Kind.String())
		}
		return Null, nil
	}
	return nil, NewRuntimeError(ErrorInvalidOperation, fmt.Sprintf("unknown expression %T", expr))
}

func (e *Evaluator) evalCondition(expr ast.Expr, tok token.Token) (bool, error) {
	v, err := e.Evaluate(expr)
	if err != nil {
		return false, err
	}
	b, ok := v.(Boolean)
	if !ok {
		return false, NewTypeMismatchError(tok, "Expected boolean condition, got %s", v.Kind())
	}
	return bool(b), nil
}

func (e *Evaluator) evalIndex(n *ast.ArrayAccess) (Value, error) {
	target, err := e.Evaluate(n.Target)
	if err != nil {
		return nil, err
	}
	index, err := e.evalIndexNumber(n)
	if err != nil {
		return nil, err
	}

	switch t := target.(type) {
	case *Array:
		v, ok := t.Get(index)
		if !ok {
			return nil, NewIndexOutOfRangeError(n.Token, index, t.Len())
		}
		return v, nil
	case String:
		runes := []rune(string(t))
		if index < 0 || index >= len(runes) {
			return nil, NewIndexOutOfRangeError(n.Token, index, len(runes))
		}
		return String(runes[index]), nil
	}
	return nil, NewTypeMismatchError(n.Token, "%s is not an array", target.Kind())
}

// evalIndexNumber evaluates the index of n, truncated to an integer.
func (e *Evaluator) evalIndexNumber(n *ast.ArrayAccess) (int, error) {
	v, err := e.Evaluate(n.Index)
	if err != nil {
		return 0, err
	}
	num, ok := v.(Number)
	if !ok {
		return 0, NewTypeMismatchError(n.Token, "Needs a number for array access, got %s", v.Kind())
	}
	f := math.Trunc(float64(num))
	if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return -1, nil
	}
	return int(f), nil
}

func (e *Evaluator) evalUnary(n *ast.Unary) (Value, error) {
	operand, err := e.Evaluate(n.Operand)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case token.MINUS:
		if num, ok := operand.(Number); ok {
			return -num, nil
		}
	case token.BANG:
		if b, ok := operand.(Boolean); ok {
			return !b, nil
		}
	}
	return nil, NewOperatorError(n.Token, operand)
}

func (e *Evaluator) evalBinary(n *ast.Binary) (Value, error) {
	left, err := e.Evaluate(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(n.Right)
	if err != nil {
		return nil, err
	}

	l, lok := left.(Number)
	r, rok := right.(Number)
	if lok && rok {
		switch n.Operator {
		case token.PLUS:
			return l + r, nil
		case token.MINUS:
			return l - r, nil
		case token.STAR:
			return l * r, nil
		case token.SLASH:
			return l / r, nil
		case token.PERCENT:
			return Number(math.Mod(float64(l), float64(r))), nil
		}
	}

	if n.Operator == token.PLUS && (left.Kind() == KindString || right.Kind() == KindString) {
		return String(Concat(left, right)), nil
	}
	return nil, NewOperatorError(n.Token, left, right)
}

func (e *Evaluator) evalLogical(n *ast.Logical) (Value, error) {
	left, err := e.Evaluate(n.Left)
	if err != nil {
		return nil, err
	}

	right, err := e.Evaluate(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case token.EQ:
		return Boolean(Equal(left, right)), nil
	case token.NEQ:
		return Boolean(!Equal(left, right)), nil
	case token.AND, token.OR, token.BIT_AND, token.BIT_OR:
		// Both sides are always evaluated and both must be Boolean.
		l, lok := left.(Boolean)
		r, rok := right.(Boolean)
		if !lok || !rok {
			return nil, NewOperatorError(n.Token, left, right)
		}
		if n.Operator == token.AND || n.Operator == token.BIT_AND {
			return l && r, nil
		}
		return l || r, nil
	}

	l, lok := left.(Number)
	r, rok := right.(Number)
	if !lok || !rok {
		return nil, NewOperatorError(n.Token, left, right)
	}
	switch n.Operator {
	case token.LT:
		return Boolean(l < r), nil
	case token.GT:
		return Boolean(l > r), nil
	case token.LTE:
		return Boolean(l <= r), nil
	case token.GTE:
		return Boolean(l >= r), nil
	}
	return nil, NewOperatorError(n.Token, left, right)
}

func (e *Evaluator) evalIncrement(n *ast.Increment) (Value, error) {
	v, err := e.memory.GetVal(n.Target.Name)
	if err != nil {
		return nil, at(err, n.Target.Token)
	}
	old, ok := v.(Number)
	if !ok {
		return nil, NewOperatorError(n.Token, v)
	}

	updated := old + 1
	if n.Operator == token.DECREMENT {
		updated = old - 1
	}
	if err := e.memory.Push(n.Target.Name, updated); err != nil {
		return nil, at(err, n.Target.Token)
	}
	if n.Prefix {
		return updated, nil
	}
	return old, nil
}

// evalVal handles declarations and assignments. The value is evaluated
// before the target.
func (e *Evaluator) evalVal(n *ast.Val) (Value, error) {
	value := Null
	if n.Value != nil {
		v, err := e.Evaluate(n.Value)
		if err != nil {
			return nil, err
		}
		value = v
	}

	switch target := n.Target.(type) {
	case *ast.Identifier:
		if n.Define {
			return value, at(e.memory.DefineVal(target.Name, value), target.Token)
		}
		return value, at(e.memory.Push(target.Name, value), target.Token)

	case *ast.PropertyAccess:
		return value, at(e.memory.PushHead(target.Name, value), target.Token)

	case *ast.ArrayAccess:
		container, err := e.Evaluate(target.Target)
		if err != nil {
			return nil, err
		}
		arr, ok := container.(*Array)
		if !ok {
			return nil, NewTypeMismatchError(target.Token, "%s is not an array", container.Kind())
		}
		index, err := e.evalIndexNumber(target)
		if err != nil {
			return nil, err
		}
		if !arr.Set(index, value) {
			return nil, NewIndexOutOfRangeError(target.Token, index, arr.Len())
		}
		return value, nil
	}
	return nil, NewRuntimeErrorAt(ErrorInvalidOperation, n.Token, "Invalid assignment operation")
}

func (e *Evaluator) execIf(n *ast.If) (*Interrupt, error) {
	cond, err := e.evalCondition(n.Cond, n.Token)
	if err != nil {
		return nil, err
	}

	branch := n.Then
	if !cond {
		if n.Else == nil {
			return nil, nil
		}
		branch = n.Else
	}

	e.memory.EnterScope("if")
	interrupt, err := e.EvaluateBlock(branch)
	e.memory.ExitScope()
	return interrupt, err
}

// execWhile runs one scope for the whole loop, cleared after every
// iteration. The condition is evaluated inside it.
func (e *Evaluator) execWhile(n *ast.While) (*Interrupt, error) {
	e.memory.EnterScope("while")
	defer e.memory.ExitScope()

	for {
		cond, err := e.evalCondition(n.Cond, n.Token)
		if err != nil || !cond {
			return nil, err
		}

		interrupt, err := e.EvaluateBlock(n.Body)
		if err != nil {
			return nil, err
		}
		if interrupt != nil {
			switch interrupt.Kind {
			case InterruptBreak:
				return nil, nil
			case InterruptContinue:
			default:
				return interrupt, nil
			}
		}
		e.memory.ClearScope()
	}
}

// execFor runs a counted loop. The loop variable lives in the enclosing
// frame; after every iteration it is re-read, so changes made by the body
// carry over, and then advanced by one step.
func (e *Evaluator) execFor(n *ast.For) (*Interrupt, error) {
	from, to, err := e.evalRange(n.Range)
	if err != nil {
		return nil, err
	}
	name := n.Name.Name

	step := 1.0
	inRange := func(x float64) bool { return x <= to }
	if n.Range.Descending {
		step = -1
		inRange = func(x float64) bool { return x >= to }
	}

	if err := e.memory.DefineVal(name, Number(from)); err != nil {
		return nil, at(err, n.Name.Token)
	}

	e.memory.EnterScope("for loop")
	defer e.memory.ExitScope()

	for x := from; inRange(x); {
		interrupt, err := e.EvaluateBlock(n.Body)
		if err != nil {
			return nil, err
		}

		extra := 0.0
		if interrupt != nil {
			switch interrupt.Kind {
			case InterruptBreak:
				return nil, nil
			case InterruptContinue:
			case InterruptForward:
				extra = step * interrupt.Count
			default:
				return interrupt, nil
			}
		}

		current, err := e.memory.GetVal(name)
		if err != nil {
			return nil, at(err, n.Name.Token)
		}
		num, ok := current.(Number)
		if !ok {
			return nil, NewTypeMismatchError(n.Name.Token, "Loop variable %q modified to a non number", name)
		}
		x = float64(num) + step + extra
		if err := e.memory.Push(name, Number(x)); err != nil {
			return nil, at(err, n.Name.Token)
		}
		e.memory.ClearScope()
	}
	return nil, nil
}

func (e *Evaluator) evalRange(r *ast.Range) (float64, float64, error) {
	from, err := e.Evaluate(r.From)
	if err != nil {
		return 0, 0, err
	}
	to, err := e.Evaluate(r.To)
	if err != nil {
		return 0, 0, err
	}
	f, fok := from.(Number)
	t, tok := to.(Number)
	if !fok || !tok {
		return 0, 0, NewOperatorError(r.Token, from, to)
	}
	return float64(f), float64(t), nil
}

// execEach iterates the elements of an array or the characters of a
// string, binding each in a fresh per-element scope.
func (e *Evaluator) execEach(n *ast.Each) (*Interrupt, error) {
	target, err := e.Evaluate(n.Target)
	if err != nil {
		return nil, err
	}

	var next func(i int) (Value, bool)
	switch t := target.(type) {
	case *Array:
		next = t.Get
	case String:
		s := string(t)
		next = func(int) (Value, bool) {
			if s == "" {
				return nil, false
			}
			r, size := utf8.DecodeRuneInString(s)
			s = s[size:]
			return String(r), true
		}
	default:
		return nil, NewTypeMismatchError(n.Token, "Needs an array or a string to iterate, got %s", target.Kind())
	}

	e.memory.EnterScope("each")
	defer e.memory.ExitScope()

	for i := 0; ; i++ {
		element, ok := next(i)
		if !ok {
			return nil, nil
		}
		if err := e.memory.DefineVal(n.Element.Name, element); err != nil {
			return nil, at(err, n.Element.Token)
		}

		interrupt, err := e.EvaluateBlock(n.Body)
		if err != nil {
			return nil, err
		}
		e.memory.ClearScope()
		if interrupt != nil {
			switch interrupt.Kind {
			case InterruptBreak:
				return nil, nil
			case InterruptContinue:
			default:
				return interrupt, nil
			}
		}
	}
}

func (e *Evaluator) declareFunction(n *ast.FunctionDecl) error {
	params := make([]string, len(n.Params))
	for i, p := range n.Params {
		params[i] = p.Name
	}
	fn := &Function{Name: n.Name.Name, Params: params, Body: n.Body}
	return at(e.memory.DefineFun(fn.Name, fn), n.Name.Token)
}

func (e *Evaluator) importForeign(n *ast.With) error {
	var callable Callable
	ok := false
	if e.foreign != nil {
		callable, ok = e.foreign.Resolve(n.Module, n.Function)
	}
	if !ok {
		return NewRuntimeErrorAt(ErrorImportNotFound, n.Token,
			fmt.Sprintf("[with] did not find func %q from %q", n.Function, n.Module))
	}

	ref := &ForeignRef{Module: n.Module, Function: n.Function, Callable: callable}
	if err := e.memory.DefineFun(n.Alias, ref); err != nil {
		return at(err, n.Token)
	}
	e.log.Debug("Imported host function", "module", n.Module, "function", n.Function, "as", n.Alias)
	return nil
}

// call dispatches a call to a native, a host import or a user function,
// in that order.
func (e *Evaluator) call(n *ast.FunctionCall) (Value, error) {
	name := n.Function.Name

	if native, ok := e.natives[name]; ok {
		args, err := e.evalArgs(n.Arguments)
		if err != nil {
			return nil, err
		}
		return native(e, n.Token, args)
	}

	routine, ok := e.memory.GetFun(name)
	if !ok {
		return nil, at(NewUndefinedFunctionError(name), n.Token)
	}

	switch fn := routine.(type) {
	case *ForeignRef:
		args, err := e.evalArgs(n.Arguments)
		if err != nil {
			return nil, err
		}
		result, err := fn.Callable.Call(args)
		if err != nil {
			return nil, &RuntimeError{Type: ErrorForeignCall, Message: err.Error(), Token: &n.Token, Err: err}
		}
		if result == nil {
			return Null, nil
		}
		return result, nil

	case *Function:
		return e.callFunction(n, fn)
	}
	return nil, NewRuntimeErrorAt(ErrorInvalidOperation, n.Token, fmt.Sprintf("%q is not callable", name))
}

func (e *Evaluator) callFunction(n *ast.FunctionCall, fn *Function) (Value, error) {
	if len(n.Arguments) != len(fn.Params) {
		return nil, NewArityError(n.Token, fn.Name, len(fn.Params), len(n.Arguments))
	}
	if e.maxDepth > 0 && e.callDepth >= e.maxDepth {
		return nil, NewStackOverflowError(n.Token, e.callDepth+1, e.maxDepth)
	}

	// Arguments are evaluated in the caller's scope.
	args, err := e.evalArgs(n.Arguments)
	if err != nil {
		return nil, err
	}

	e.callDepth++
	e.calls++
	e.memory.EnterCall("fun " + fn.Name)
	defer func() {
		e.memory.ExitCall()
		e.callDepth--
	}()

	for i, param := range fn.Params {
		if err := e.memory.DefineVal(param, args[i]); err != nil {
			return nil, at(err, n.Token)
		}
	}

	interrupt, err := e.EvaluateBlock(fn.Body)
	if err != nil {
		return nil, err
	}
	if interrupt == nil {
		return Null, nil
	}
	if interrupt.Kind != InterruptReturn {
		return nil, NewSignalEscapedError(interrupt.Token, interrupt.Kind.String())
	}
	return interrupt.Value, nil
}

func (e *Evaluator) evalArgs(exprs []ast.Expr) ([]Value, error) {
	args := make([]Value, len(exprs))
	for i, expr := range exprs {
		v, err := e.Evaluate(expr)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// write sends text to the sink. A failed write is fatal.
func (e *Evaluator) write(text string) error {
	if _, err := io.WriteString(e.sink, text); err != nil {
		return NewIOError(err)
	}
	return nil
}
