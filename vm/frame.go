package vm

import (
	"github.com/wudi/pyvm/values"
)

// ExcInfo is the frame's active (type, value, traceback) triple. It is
// non-nil exactly while unwinding or inside an except-handler block.
type ExcInfo struct {
	Type      *values.Value
	Value     *values.Value
	Traceback *values.Value
}

// Frame is one activation record. Its operand
// stack holds *values.Value items plus two VM-internal kinds: FOR_ITER's
// *iterator and *FinallyMarker — the latter is how END_FINALLY learns why a finally/with block was entered without
// polluting the guest Value union with VM-internal bookkeeping states.
type Frame struct {
	Name string // for diagnostics: qualified function name

	Code     *Code
	Globals  map[string]*values.Value
	Locals   map[string]*values.Value
	Builtins map[string]*values.Value

	Stack  []interface{}
	Blocks []*Block

	PC     int
	Lasti  int
	Line   int

	Cells []*values.Cell // cellvars ++ freevars, in that order

	Caller *Frame

	Generator *Generator

	ReturnValue   *values.Value
	LastException *ExcInfo
}

// NewFrame builds a frame ready to execute code from pc 0.
func NewFrame(code *Code, globals, locals, builtins map[string]*values.Value, caller *Frame) *Frame {
	return &Frame{
		Name:     code.Name,
		Code:     code,
		Globals:  globals,
		Locals:   locals,
		Builtins: builtins,
		Stack:    make([]interface{}, 0, code.StackSize),
		Caller:   caller,
		Line:     code.FirstLineNo,
	}
}

// ---- operand stack ----

func (f *Frame) underflow() *VMError {
	return newVMError(ErrStackUnderflow, "in %s", f.Name)
}

// Push appends raw stack items (*values.Value, *iterator or *FinallyMarker).
func (f *Frame) Push(items ...interface{}) {
	f.Stack = append(f.Stack, items...)
}

// PushValue pushes one or more guest values, in argument order.
func (f *Frame) PushValue(vs ...*values.Value) {
	for _, v := range vs {
		f.Stack = append(f.Stack, v)
	}
}

// Pop removes and returns the raw top-of-stack item, panicking with a
// *VMError on underflow — this is a host bug, never a guest-recoverable
// condition, so it is treated like Go's own "index out of range": fatal,
// recovered once at the dispatch loop boundary (see VM.RunFrame).
func (f *Frame) Pop() interface{} {
	n := len(f.Stack)
	if n == 0 {
		panic(f.underflow())
	}
	item := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	return item
}

// PopValue pops and asserts a *values.Value.
func (f *Frame) PopValue() *values.Value {
	item := f.Pop()
	v, ok := item.(*values.Value)
	if !ok {
		panic(newVMError(ErrBadInstructionArg, "expected a value on the stack, found %T", item))
	}
	return v
}

// PopN removes and returns the last n raw items in push order: if the
// stack is `…,a,b,c` with c on top, PopN(3) returns [a,b,c].
func (f *Frame) PopN(n int) []interface{} {
	if n == 0 {
		return nil
	}
	total := len(f.Stack)
	if total < n {
		panic(f.underflow())
	}
	out := append([]interface{}{}, f.Stack[total-n:]...)
	f.Stack = f.Stack[:total-n]
	return out
}

// PopValueN is PopN for the common case where every popped item is known to
// be a guest value.
func (f *Frame) PopValueN(n int) []*values.Value {
	raw := f.PopN(n)
	out := make([]*values.Value, len(raw))
	for i, item := range raw {
		v, ok := item.(*values.Value)
		if !ok {
			panic(newVMError(ErrBadInstructionArg, "expected a value on the stack, found %T", item))
		}
		out[i] = v
	}
	return out
}

// Top returns the top-of-stack item without removing it.
func (f *Frame) Top() interface{} {
	n := len(f.Stack)
	if n == 0 {
		panic(f.underflow())
	}
	return f.Stack[n-1]
}

func (f *Frame) TopValue() *values.Value {
	v, ok := f.Top().(*values.Value)
	if !ok {
		panic(newVMError(ErrBadInstructionArg, "expected a value on top of stack, found %T", f.Top()))
	}
	return v
}

// Peek returns the i-th item from the top without removing it; i=1 is TOS.
func (f *Frame) Peek(i int) interface{} {
	n := len(f.Stack)
	if i < 1 || i > n {
		panic(f.underflow())
	}
	return f.Stack[n-i]
}

func (f *Frame) PeekValue(i int) *values.Value {
	v, ok := f.Peek(i).(*values.Value)
	if !ok {
		panic(newVMError(ErrBadInstructionArg, "expected a value at stack depth %d, found %T", i, f.Peek(i)))
	}
	return v
}

// PopAt removes the i-th item from the top (i=1 is TOS), shifting items
// above it down.
func (f *Frame) PopAt(i int) interface{} {
	n := len(f.Stack)
	if i < 1 || i > n {
		panic(f.underflow())
	}
	idx := n - i
	item := f.Stack[idx]
	f.Stack = append(f.Stack[:idx], f.Stack[idx+1:]...)
	return item
}

// Depth reports the current operand stack depth.
func (f *Frame) Depth() int { return len(f.Stack) }

// Jump sets the program counter to an absolute target, overriding the
// normal advance-past-this-instruction increment.
func (f *Frame) Jump(target int) { f.PC = target }
