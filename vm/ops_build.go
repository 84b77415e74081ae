package vm

import (
	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
)

func countArg(arg interface{}) (int, error) {
	n, ok := arg.(int)
	if !ok || n < 0 {
		return 0, newVMError(ErrBadInstructionArg, "expected a non-negative int count, got %v", arg)
	}
	return n, nil
}

func opBuildTuple(m *VM, f *Frame, arg interface{}) (Why, error) {
	n, err := countArg(arg)
	if err != nil {
		return Why{}, err
	}
	items := f.PopValueN(n)
	f.PushValue(values.Tuple(items))
	return whyNone(), nil
}

func opBuildList(m *VM, f *Frame, arg interface{}) (Why, error) {
	n, err := countArg(arg)
	if err != nil {
		return Why{}, err
	}
	items := f.PopValueN(n)
	f.PushValue(values.List(items))
	return whyNone(), nil
}

func opBuildSet(m *VM, f *Frame, arg interface{}) (Why, error) {
	n, err := countArg(arg)
	if err != nil {
		return Why{}, err
	}
	items := f.PopValueN(n)
	f.PushValue(values.NewSet(items))
	return whyNone(), nil
}

// opBuildMap pushes a fresh empty dict; STORE_MAP then fills it one pair at
// a time (2.x bytecode shape) — the dict literal's initial capacity hint
// (arg) carries no observable behavior in this implementation.
func opBuildMap(m *VM, f *Frame, arg interface{}) (Why, error) {
	f.PushValue(values.NewDictValue())
	return whyNone(), nil
}

// opStoreMap implements the dict-literal bytecode shape: TOS is the key,
// TOS1 the value, TOS2 the dict; the dict is left on the stack for the next
// STORE_MAP or the consumer of BUILD_MAP's result.
func opStoreMap(m *VM, f *Frame, arg interface{}) (Why, error) {
	key := f.PopValue()
	value := f.PopValue()
	d := f.TopValue()
	dict, ok := d.AsDict()
	if !ok {
		return Why{}, newVMError(ErrBadInstructionArg, "STORE_MAP target is not a dict")
	}
	dict.Set(key, value)
	return whyNone(), nil
}

func opBuildSlice(m *VM, f *Frame, arg interface{}) (Why, error) {
	n, err := countArg(arg)
	if err != nil {
		return Why{}, err
	}
	switch n {
	case 2:
		stop := f.PopValue()
		start := f.PopValue()
		f.PushValue(values.SliceValue(start, stop, nil))
	case 3:
		step := f.PopValue()
		stop := f.PopValue()
		start := f.PopValue()
		f.PushValue(values.SliceValue(start, stop, step))
	default:
		return Why{}, newVMError(ErrBadInstructionArg, "BUILD_SLICE arg must be 2 or 3, got %d", n)
	}
	return whyNone(), nil
}

var buildHandlers = map[opcodes.Opcode]OpHandler{
	opcodes.BUILD_TUPLE: opBuildTuple,
	opcodes.BUILD_LIST:  opBuildList,
	opcodes.BUILD_SET:   opBuildSet,
	opcodes.BUILD_MAP:   opBuildMap,
	opcodes.STORE_MAP:   opStoreMap,
	opcodes.BUILD_SLICE: opBuildSlice,
}
