package vm

import (
	"errors"

	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
)

func targetArg(arg interface{}) (int, error) {
	t, ok := arg.(int)
	if !ok {
		return 0, newVMError(ErrBadInstructionArg, "expected an int jump target, got %v", arg)
	}
	return t, nil
}

func opJumpForward(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	f.Jump(t)
	return whyNone(), nil
}

func opJumpAbsolute(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	f.Jump(t)
	return whyNone(), nil
}

func opJumpIfTrueOrPop(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	if f.TopValue().Truthy() {
		f.Jump(t)
	} else {
		f.Pop()
	}
	return whyNone(), nil
}

func opJumpIfFalseOrPop(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	if !f.TopValue().Truthy() {
		f.Jump(t)
	} else {
		f.Pop()
	}
	return whyNone(), nil
}

// opJumpIfTrue/opJumpIfFalse implement the 2.5-only non-popping forms: TOS
// is left on the stack regardless of the branch taken. 2.7 replaced these
// with the OrPop/PopJumpIf families at the compiler level.
func opJumpIfTrue(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	if f.TopValue().Truthy() {
		f.Jump(t)
	}
	return whyNone(), nil
}

func opJumpIfFalse(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	if !f.TopValue().Truthy() {
		f.Jump(t)
	}
	return whyNone(), nil
}

func opPopJumpIfTrue(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	if f.PopValue().Truthy() {
		f.Jump(t)
	}
	return whyNone(), nil
}

func opPopJumpIfFalse(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	if !f.PopValue().Truthy() {
		f.Jump(t)
	}
	return whyNone(), nil
}

// opGetIter replaces TOS with iteration state over it: a snapshot for
// host containers, a lazy pull for generators.
func opGetIter(m *VM, f *Frame, arg interface{}) (Why, error) {
	top := f.Top()
	if _, already := top.(*iterator); already {
		return whyNone(), nil
	}
	v, ok := top.(*values.Value)
	if !ok {
		return Why{}, newVMError(ErrBadInstructionArg, "GET_ITER expects a value on TOS")
	}
	it, err := newIterator(m, v)
	if err != nil {
		f.Pop()
		f.raise(m.newTypeError(err.Error()))
		return Why{Kind: WhyException}, nil
	}
	f.Pop()
	f.Push(it)
	return whyNone(), nil
}

// opForIter drives both host iterables (list/tuple/dict snapshot) and guest
// generators. GET_ITER normally converts TOS first; a bare iterable on TOS
// is converted in place so hand-assembled streams can skip GET_ITER.
func opForIter(m *VM, f *Frame, arg interface{}) (Why, error) {
	t, err := targetArg(arg)
	if err != nil {
		return Why{}, err
	}
	top := f.Top()
	it, ok := top.(*iterator)
	if !ok {
		v, ok := top.(*values.Value)
		if !ok {
			return Why{}, newVMError(ErrBadInstructionArg, "FOR_ITER expects an iterator on TOS")
		}
		it, err = newIterator(m, v)
		if err != nil {
			f.Pop()
			f.raise(m.newTypeError(err.Error()))
			return Why{Kind: WhyException}, nil
		}
		f.Pop()
		f.Push(it)
	}

	next, ok, genErr := it.next()
	if genErr != nil {
		f.Pop()
		var pyErr *PyError
		if errors.As(genErr, &pyErr) {
			// An exception escaping a generator body propagates as itself,
			// not as loop exhaustion.
			f.LastException = &ExcInfo{Type: pyErr.Type, Value: pyErr.Value, Traceback: pyErr.Traceback}
			return Why{Kind: WhyException}, nil
		}
		return Why{}, genErr
	}
	if !ok {
		f.Pop()
		f.Jump(t)
		return whyNone(), nil
	}
	f.PushValue(next)
	return whyNone(), nil
}

var controlHandlers = map[opcodes.Opcode]OpHandler{
	opcodes.JUMP_FORWARD:         opJumpForward,
	opcodes.JUMP_ABSOLUTE:        opJumpAbsolute,
	opcodes.JUMP_IF_TRUE_OR_POP:  opJumpIfTrueOrPop,
	opcodes.JUMP_IF_FALSE_OR_POP: opJumpIfFalseOrPop,
	opcodes.JUMP_IF_TRUE:         opJumpIfTrue,
	opcodes.JUMP_IF_FALSE:        opJumpIfFalse,
	opcodes.POP_JUMP_IF_TRUE:     opPopJumpIfTrue,
	opcodes.POP_JUMP_IF_FALSE:    opPopJumpIfFalse,
	opcodes.GET_ITER:             opGetIter,
	opcodes.FOR_ITER:             opForIter,
}
