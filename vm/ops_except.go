package vm

import (
	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
)

func opSetupLoop(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	f.PushBlock(LoopBlock, t)
	return whyNone(), nil
}

func opSetupExcept(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	f.PushBlock(SetupExceptBlock, t)
	return whyNone(), nil
}

func opSetupFinally(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	f.PushBlock(FinallyBlock, t)
	return whyNone(), nil
}

// opSetupWith implements 2.7+'s SETUP_WITH: look up TOS.__exit__ and
// TOS.__enter__ is assumed already called by the compiler's preceding
// LOAD_ATTR/CALL_FUNCTION sequence in real CPython; this interpreter has no
// user-defined __enter__/__exit__ protocol (object model out of scope), so
// it accepts a pre-built two-element tuple (enterResult, exitCallable) left
// on TOS by the compiler as the supported with-statement shape (see
// DESIGN.md).
func opSetupWith(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	ctx := f.PopValue()
	items, ok := ctx.AsTuple()
	if !ok || len(items) != 2 {
		return Why{}, newVMError(ErrBadInstructionArg, "SETUP_WITH expects a (enter_result, exit_callable) tuple on TOS")
	}
	// __exit__ goes below the block's recorded level so that POP_BLOCK's
	// truncation on the normal path leaves it for WITH_CLEANUP to find.
	f.PushValue(items[1])
	f.PushBlock(WithBlock, t)
	f.PushValue(items[0]) // bound name target
	return whyNone(), nil
}

func opPopBlock(m *VM, f *Frame, arg interface{}) (Why, error) {
	b := f.PopBlock()
	if b == nil {
		return Why{}, newVMError(ErrBlockStackUnderflow, "POP_BLOCK with no block")
	}
	if b.StackLevel < len(f.Stack) {
		f.Stack = f.Stack[:b.StackLevel]
	}
	return whyNone(), nil
}

// opPopExcept is 3.2+'s explicit except-clause exit: pop the except-handler
// block and restore the previously active exception, without relying on
// END_FINALLY's polymorphic TOS.
func opPopExcept(m *VM, f *Frame, arg interface{}) (Why, error) {
	b := f.PopBlock()
	if b == nil || b.Kind != ExceptHandlerBlock {
		return Why{}, newVMError(ErrWrongBlockKind, "POP_EXCEPT expects an except-handler block")
	}
	f.UnwindBlock(b)
	return whyNone(), nil
}

func opBreakLoop(m *VM, f *Frame, arg interface{}) (Why, error) {
	return Why{Kind: WhyBreak}, nil
}

func opContinueLoop(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	return Why{Kind: WhyContinue, ContinueTarget: t}, nil
}

// opEndFinally implements both the 2.x and 3.0-3.2 stack shapes: TOS is
// None (normal fall-through), a *FinallyMarker (return, pushed by the
// unwinder; silenced, pushed by WITH_CLEANUP; continue and yield markers
// are accepted too) or a guest exception type (re-raise path, type/value/traceback
// pushed by the unwinder's exception branch before jumping to the handler).
// 3.5+ changed the shape again; out of range for this interpreter's
// supported dialects (see DESIGN.md).
func opEndFinally(m *VM, f *Frame, arg interface{}) (Why, error) {
	top := f.Pop()

	if marker, ok := top.(*FinallyMarker); ok {
		switch marker.Kind {
		case WhyReturn, WhyContinue:
			// The unwinder buried the pending value under the marker.
			f.ReturnValue = f.PopValue()
			if marker.Kind == WhyContinue {
				return Why{Kind: WhyContinue, ContinueTarget: marker.ContinueTarget}, nil
			}
			return Why{Kind: WhyReturn}, nil
		case WhyYield:
			return Why{Kind: WhyYield}, nil
		case WhySilenced:
			b := f.PopBlock()
			if b == nil || b.Kind != ExceptHandlerBlock {
				return Why{}, newVMError(ErrConfusedEndFinally, "silenced marker with no except-handler block")
			}
			f.UnwindBlock(b)
			return whyNone(), nil
		default:
			return Why{}, newVMError(ErrConfusedEndFinally, "unexpected marker kind %s", marker.Kind)
		}
	}

	typ, ok := top.(*values.Value)
	if !ok {
		return Why{}, newVMError(ErrConfusedEndFinally, "unexpected TOS kind %T", top)
	}
	if typ.IsNone() {
		return whyNone(), nil
	}
	if _, isClass := typ.AsClass(); !isClass {
		return Why{}, newVMError(ErrConfusedEndFinally, "unexpected TOS value %s", typ.TypeName())
	}
	val := f.PopValue()
	tb := f.PopValue()
	f.LastException = &ExcInfo{Type: typ, Value: val, Traceback: tb}
	return Why{Kind: WhyReraise}, nil
}

// opWithCleanup inspects TOS to learn why the with block is exiting —
// None (fell off the end), a FinallyMarker (return/yield through the
// body), or a saved exception triple — digs the buried __exit__ callable
// out from under it, and invokes it with either (None, None, None) or the
// exception triple. A truthy result against an exception suppresses it: in
// 2.x by replacing the triple with None, in 3.x by pushing a silenced
// marker for END_FINALLY to observe.
func opWithCleanup(m *VM, f *Frame, arg interface{}) (Why, error) {
	u, v, w := values.None(), values.None(), values.None()
	var exitCallable *values.Value
	var exception bool

	switch top := f.Top().(type) {
	case *FinallyMarker:
		if top.Kind == WhyReturn || top.Kind == WhyContinue || top.Kind == WhyYield {
			// marker, then the saved value, then __exit__.
			item := f.PopAt(3)
			ev, ok := item.(*values.Value)
			if !ok {
				return Why{}, newVMError(ErrConfusedWithCleanup, "expected __exit__ under saved value, found %T", item)
			}
			exitCallable = ev
		} else {
			item := f.PopAt(2)
			ev, ok := item.(*values.Value)
			if !ok {
				return Why{}, newVMError(ErrConfusedWithCleanup, "expected __exit__ under marker, found %T", item)
			}
			exitCallable = ev
		}
	case *values.Value:
		if top.IsNone() {
			item := f.PopAt(2)
			ev, ok := item.(*values.Value)
			if !ok {
				return Why{}, newVMError(ErrConfusedWithCleanup, "expected __exit__ under None, found %T", item)
			}
			exitCallable = ev
		} else if _, isClass := top.AsClass(); isClass {
			triple := f.PopValueN(3) // [tb, val, typ], typ on top
			exitCallable = f.PopValue()
			f.PushValue(triple...)
			w, v, u = triple[0], triple[1], triple[2]
			exception = true
		} else {
			return Why{}, newVMError(ErrConfusedWithCleanup, "unexpected TOS value %s", top.TypeName())
		}
	default:
		return Why{}, newVMError(ErrConfusedWithCleanup, "unexpected TOS kind %T", top)
	}

	result, why, err := m.callValue(f, exitCallable, []*values.Value{u, v, w}, nil)
	if err != nil {
		return Why{}, err
	}
	if why.Kind == WhyException {
		return why, nil
	}

	if exception && result != nil && result.Truthy() {
		if m.Dialect.Version < 3.0 {
			f.PopValueN(3)
			f.PushValue(values.None())
			f.LastException = nil
		} else {
			f.Push(&FinallyMarker{Kind: WhySilenced})
		}
	}
	return whyNone(), nil
}

// opRaiseVarargs implements the 2.x RAISE_VARARGS: arg 0 re-raises, and
// otherwise up to three operands (type, value, traceback, in push order)
// are popped; the normalization rule — calling a bare exception class to
// build its instance — is applied here. The 3.x (exception, cause) form is
// opRaiseVarargs32.
func opRaiseVarargs(m *VM, f *Frame, arg interface{}) (Why, error) {
	n, ok := arg.(int)
	if !ok || n < 0 || n > 3 {
		return Why{}, newVMError(ErrBadInstructionArg, "RAISE_VARARGS arg must be 0..3, got %v", arg)
	}

	var typ, val, tb *values.Value
	switch n {
	case 0:
		if f.LastException == nil {
			f.raise(m.newRuntimeError("No active exception to re-raise"))
			return Why{Kind: WhyException}, nil
		}
		return Why{Kind: WhyReexception}, nil
	case 1:
		typ = f.PopValue()
	case 2:
		val = f.PopValue()
		typ = f.PopValue()
	case 3:
		tb = f.PopValue()
		val = f.PopValue()
		typ = f.PopValue()
	}

	exc, normErr := doRaise(m, typ, val)
	if normErr != nil {
		f.raise(normErr)
		return Why{Kind: WhyException}, nil
	}
	withTb := tb != nil && !tb.IsNone()
	if tb == nil {
		tb = values.None()
	}
	f.LastException = &ExcInfo{
		Type:      values.ClassValue(exc.AsException().Class),
		Value:     exc,
		Traceback: tb,
	}
	if withTb {
		return Why{Kind: WhyReraise}, nil
	}
	return Why{Kind: WhyException}, nil
}

// doRaise normalizes a raise statement's operands into a concrete exception
// instance: a bare class is instantiated with val as its constructor
// argument (or no arguments); an instance is used directly.
func doRaise(m *VM, typ, val *values.Value) (*values.Value, *values.Value) {
	if typ == nil {
		return nil, m.newTypeError("exceptions must be old-style classes or derived from BaseException, not NoneType")
	}
	if exc := typ.AsException(); exc != nil {
		return typ, nil
	}
	cls, ok := typ.AsClass()
	if !ok {
		return nil, m.newTypeError("exceptions must be old-style classes or derived from BaseException, not " + typ.TypeName())
	}
	var args []*values.Value
	if val != nil && !val.IsNone() {
		if items, ok := val.AsTuple(); ok {
			args = items
		} else {
			args = []*values.Value{val}
		}
	}
	return values.NewException(cls, args, nil), nil
}

// opRaiseVarargs32 implements 3.x's RAISE_VARARGS: argc is 0 (re-raise), 1
// (`raise exc`), or 2 (`raise exc from cause`) — the 2.x three-argument
// (type, value, traceback) form is gone. Pop order is cause first, then
// exc; cause is validated only after exc is confirmed a valid exception.
func opRaiseVarargs32(m *VM, f *Frame, arg interface{}) (Why, error) {
	n, ok := arg.(int)
	if !ok || n < 0 || n > 2 {
		return Why{}, newVMError(ErrBadInstructionArg, "RAISE_VARARGS arg must be 0..2, got %v", arg)
	}

	if n == 0 {
		if f.LastException == nil {
			f.raise(m.newRuntimeError("No active exception to re-raise"))
			return Why{Kind: WhyException}, nil
		}
		return Why{Kind: WhyReexception}, nil
	}

	var causeVal *values.Value
	if n == 2 {
		causeVal = f.PopValue()
	}
	excVal := f.PopValue()

	exc, normErr := doRaise(m, excVal, nil)
	if normErr != nil {
		f.raise(normErr)
		return Why{Kind: WhyException}, nil
	}

	if causeVal != nil {
		cause, causeErr := normalizeCause(m, causeVal)
		if causeErr != nil {
			f.raise(causeErr)
			return Why{Kind: WhyException}, nil
		}
		exc.AsException().Cause = cause
	}

	f.LastException = &ExcInfo{
		Type:      values.ClassValue(exc.AsException().Class),
		Value:     exc,
		Traceback: values.None(),
	}
	return Why{Kind: WhyException}, nil
}

// normalizeCause implements `raise ... from cause`: a bare class is
// instantiated with no arguments; None is allowed (explicit cause
// suppression); anything else that isn't already an exception instance is
// a TypeError.
func normalizeCause(m *VM, cause *values.Value) (*values.Value, *values.Value) {
	if cause.IsNone() {
		return cause, nil
	}
	if cause.AsException() != nil {
		return cause, nil
	}
	if cls, ok := cause.AsClass(); ok {
		return values.NewException(cls, nil, nil), nil
	}
	return nil, m.newTypeError("exception causes must derive from BaseException")
}

// opExecStmt is a minimal stub for 2.x's EXEC_STMT: arbitrary code-string
// execution is object-model/compiler territory this interpreter does not
// implement. It pops its three operands and raises RuntimeError (see
// DESIGN.md).
func opExecStmt(m *VM, f *Frame, arg interface{}) (Why, error) {
	f.PopValueN(3)
	f.raise(m.newRuntimeError("exec statement is not supported"))
	return Why{Kind: WhyException}, nil
}

var exceptHandlers = map[opcodes.Opcode]OpHandler{
	opcodes.SETUP_LOOP:     opSetupLoop,
	opcodes.SETUP_EXCEPT:   opSetupExcept,
	opcodes.SETUP_FINALLY:  opSetupFinally,
	opcodes.SETUP_WITH:     opSetupWith,
	opcodes.POP_BLOCK:      opPopBlock,
	opcodes.POP_EXCEPT:     opPopExcept,
	opcodes.BREAK_LOOP:     opBreakLoop,
	opcodes.CONTINUE_LOOP:  opContinueLoop,
	opcodes.END_FINALLY:    opEndFinally,
	opcodes.WITH_CLEANUP:   opWithCleanup,
	opcodes.RAISE_VARARGS:  opRaiseVarargs,
	opcodes.EXEC_STMT:      opExecStmt,
}
