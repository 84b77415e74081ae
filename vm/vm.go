// Package vm implements the instruction dispatcher and evaluation engine:
// the operand stack, block stack, frame lifecycle, why-code control flow,
// exception unwinding, and the call/MAKE_FUNCTION/MAKE_CLOSURE machinery.
// It is single-threaded and non-reentrant per VM instance — independent VM
// instances share no mutable state and may run concurrently, each confined
// to its own goroutine.
package vm

import (
	"github.com/google/uuid"

	"github.com/wudi/pyvm/registry"
	"github.com/wudi/pyvm/runtime"
	"github.com/wudi/pyvm/values"
)

// VM is one interpreter instance, parameterized by dialect. ID
// distinguishes concurrently-running independent instances; the REPL shows
// it in its prompt. VMError does not carry it.
type VM struct {
	ID      uuid.UUID
	Dialect *Dialect

	Builtins   map[string]*values.Value
	Exceptions *registry.ExceptionHierarchy
	Importer   runtime.Importer

	// Stdout is where PRINT_* writes. The real command-line entry point
	// lives in the embedder; this is the minimal collaborator surface the
	// opcode handlers need.
	Stdout Printer
}

// Option configures a VM at construction time: a constructor plus a small
// option surface rather than a config struct or file.
type Option func(*VM)

func WithBuiltins(b map[string]*values.Value) Option {
	return func(m *VM) { m.Builtins = b }
}

func WithImporter(imp runtime.Importer) Option {
	return func(m *VM) { m.Importer = imp }
}

func WithStdout(p Printer) Option {
	return func(m *VM) { m.Stdout = p }
}

// New constructs a VM for the given dialect. Its builtin exception
// hierarchy and default builtins table are seeded from package registry,
// shaped to the dialect's era (2.x keeps StandardError as an intermediate
// base; 3.x drops it) unless WithBuiltins overrides the table entirely.
func New(dialect *Dialect, opts ...Option) *VM {
	exc := registry.NewExceptionHierarchy(dialect.Version < 3.0)
	m := &VM{
		ID:         uuid.New(),
		Dialect:    dialect,
		Exceptions: exc,
		Builtins:   registry.Builtins(exc),
		Stdout:     newSoftspaceWriter(nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PyError is what escapes RunCode when a top-level frame raises and nothing
// catches it: the guest (type, value, traceback) triple, surfaced as a Go
// error so embedders can errors.As it back out.
type PyError struct {
	Type      *values.Value
	Value     *values.Value
	Traceback *values.Value
}

func (e *PyError) Error() string {
	if e.Value != nil {
		return e.Value.String()
	}
	return "unhandled exception"
}

func (m *VM) guestError(f *Frame) *PyError {
	if f.LastException == nil {
		return &PyError{Type: values.None(), Value: values.None(), Traceback: values.None()}
	}
	return &PyError{Type: f.LastException.Type, Value: f.LastException.Value, Traceback: f.LastException.Traceback}
}

// RunCode is the library's top-level entry point: execute a code object
// against the given globals with the given arguments. The locals argument
// is not used: the code runs with a fresh locals map that holds only its
// bound arguments.
func (m *VM) RunCode(code *Code, globals, locals map[string]*values.Value, args []*values.Value) (*values.Value, error) {
	if locals == nil {
		locals = globals
	}
	fn := &values.Function{Name: code.Name, Code: code, Globals: globals, Version: m.Dialect.Version}
	return m.CallFunction(fn, args, nil)
}

// RunFrame is the dispatch loop itself. It returns the
// frame's result value (meaningful only when why is WhyReturn or WhyYield)
// and the why-code that ended dispatch: WhyReturn (normal return),
// WhyYield (generator suspension), or an exception why if it escaped every
// block in this frame and must propagate to the caller.
func (m *VM) RunFrame(f *Frame) (result *values.Value, why Why, err error) {
	defer func() {
		if r := recover(); r != nil {
			if vmErr, ok := r.(*VMError); ok {
				err = vmErr
				return
			}
			panic(r)
		}
	}()

	for {
		if f.PC >= len(f.Code.Instructions) {
			return values.None(), Why{Kind: WhyReturn}, nil
		}
		inst := f.Code.Instructions[f.PC]
		f.Lasti = f.PC
		f.Line = f.Code.LineForPC(f.PC)
		f.PC++

		handler, ok := m.Dialect.lookup(inst.Op)
		if !ok {
			return nil, Why{}, newVMError(ErrUnknownOpcode, "%s has no handler in dialect %.1f", inst.Op, m.Dialect.Version).annotate(f, inst.Op, f.Lasti)
		}

		w, hostErr := handler(m, f, inst.Arg)
		if hostErr != nil {
			if vmErr, ok := hostErr.(*VMError); ok {
				return nil, Why{}, vmErr.annotate(f, inst.Op, f.Lasti)
			}
			return nil, Why{}, newVMError(ErrInstructionFailed, "%v", hostErr).annotate(f, inst.Op, f.Lasti)
		}

		for w.Kind != WhyNone && w.Kind != WhyYield {
			var cleared bool
			w, cleared, err = m.unwind(f, w)
			if err != nil {
				return nil, Why{}, err
			}
			if !cleared {
				break
			}
		}

		switch w.Kind {
		case WhyReturn:
			return f.ReturnValue, w, nil
		case WhyYield:
			return f.ReturnValue, w, nil
		case WhyException, WhyReraise, WhyReexception:
			return nil, w, nil
		}
	}
}

// unwind runs the block unwinder once against the top
// block. It returns the (possibly updated) why, whether that why was
// cleared (dispatch should resume normally), and a host-level error if the
// block stack itself is corrupt.
func (m *VM) unwind(f *Frame, why Why) (Why, bool, error) {
	b := f.TopBlock()
	if b == nil {
		return why, false, nil // block stack empty: exit the frame with this why
	}

	switch why.Kind {
	case WhyContinue:
		if b.Kind == LoopBlock {
			f.Jump(why.ContinueTarget)
			return whyNone(), true, nil
		}
		f.PopBlock()
		f.UnwindBlock(b)
		return why, true, nil

	case WhyBreak:
		f.PopBlock()
		f.UnwindBlock(b)
		if b.Kind == LoopBlock {
			f.Jump(b.Handler)
			return whyNone(), true, nil
		}
		return why, true, nil

	case WhyException, WhyReraise, WhyReexception:
		if b.Kind == SetupExceptBlock || b.Kind == FinallyBlock || b.Kind == WithBlock {
			f.PopBlock()
			if b.StackLevel < len(f.Stack) {
				f.Stack = f.Stack[:b.StackLevel]
			}
			level := len(f.Stack)
			if f.LastException == nil {
				f.LastException = &ExcInfo{Type: values.None(), Value: values.None(), Traceback: values.None()}
			}
			f.pushBlockAt(ExceptHandlerBlock, -1, level)
			f.PushValue(f.LastException.Traceback, f.LastException.Value, f.LastException.Type)
			f.Jump(b.Handler)
			return whyNone(), true, nil
		}
		f.PopBlock()
		f.UnwindBlock(b)
		return why, true, nil

	case WhySilenced:
		if b.Kind == ExceptHandlerBlock {
			f.PopBlock()
			f.UnwindBlock(b)
			return whyNone(), true, nil
		}
		f.PopBlock()
		f.UnwindBlock(b)
		return why, true, nil

	case WhyReturn, WhyYield:
		if b.Kind == FinallyBlock || b.Kind == WithBlock {
			f.PopBlock()
			f.UnwindBlock(b)
			f.PushValue(f.ReturnValue)
			f.Push(&FinallyMarker{Kind: why.Kind})
			f.Jump(b.Handler)
			return whyNone(), true, nil
		}
		f.PopBlock()
		f.UnwindBlock(b)
		return why, true, nil

	default:
		return why, false, nil
	}
}
