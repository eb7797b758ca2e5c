package vm

import "github.com/zurustar/sketch/pkg/compiler/token"

// InterruptKind identifies a control-flow signal.
type InterruptKind int

const (
	InterruptReturn InterruptKind = iota + 1
	InterruptBreak
	InterruptContinue
	InterruptForward
)

func (k InterruptKind) String() string {
	switch k {
	case InterruptReturn:
		return "return"
	case InterruptBreak:
		return "break"
	case InterruptContinue:
		return "continue"
	case InterruptForward:
		return "forward"
	}
	return "unknown"
}

// Interrupt is an out-of-band control signal produced by return, break,
// continue and forward. It travels up through statement lists until a loop
// or a function call consumes it. It is not a Value.
type Interrupt struct {
	Kind  InterruptKind
	Value Value   // result of a return
	Count float64 // extra steps of a forward
	Token token.Token
}
