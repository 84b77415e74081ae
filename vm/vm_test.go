package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
	"github.com/wudi/pyvm/vm"
)

func newFrame(m *vm.VM, code *vm.Code, globals map[string]*values.Value) *vm.Frame {
	if globals == nil {
		globals = map[string]*values.Value{}
	}
	return vm.NewFrame(code, globals, map[string]*values.Value{}, m.Builtins, nil)
}

// TestArithmeticAndComparison builds (2 + 3) * 4 > 15 by hand and checks
// the dispatcher routes BINARY_ADD/BINARY_MULTIPLY/COMPARE_OP correctly.
func TestArithmeticAndComparison(t *testing.T) {
	m := vm.New(vm.Dialect32())
	code := &vm.Code{
		Name:      "arith",
		Consts:    []*values.Value{values.Int(2), values.Int(3), values.Int(4), values.Int(15)},
		StackSize: 4,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_CONST, Arg: 0},
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.BINARY_ADD},
			{Op: opcodes.LOAD_CONST, Arg: 2},
			{Op: opcodes.BINARY_MULTIPLY},
			{Op: opcodes.LOAD_CONST, Arg: 3},
			{Op: opcodes.COMPARE_OP, Arg: vm.CmpGT},
			{Op: opcodes.RETURN_VALUE},
		},
	}

	result, why, err := m.RunFrame(newFrame(m, code, nil))
	require.NoError(t, err)
	assert.Equal(t, vm.WhyReturn, why.Kind)
	b, ok := result.Data.(bool)
	require.True(t, ok)
	assert.True(t, b)
}

// TestTryExceptCatchesMatchingException assembles `raise ValueError, "boom"`
// guarded by a matching except clause and checks the handler's bound name
// ends up holding the raised instance, with no exception escaping the frame.
func TestTryExceptCatchesMatchingException(t *testing.T) {
	m := vm.New(vm.Dialect27())
	veClass := values.ClassValue(m.Exceptions.ValueError)
	code := &vm.Code{
		Name:      "catch",
		Consts:    []*values.Value{values.Str("boom"), veClass},
		StackSize: 4,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.SETUP_EXCEPT, Arg: 4},
			{Op: opcodes.LOAD_CONST, Arg: 1}, // typ
			{Op: opcodes.LOAD_CONST, Arg: 0}, // val
			{Op: opcodes.RAISE_VARARGS, Arg: 2},
			// handler (pc 4):
			{Op: opcodes.DUP_TOP},
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.COMPARE_OP, Arg: vm.CmpExceptionMatch},
			{Op: opcodes.POP_JUMP_IF_FALSE, Arg: 4}, // never taken
			{Op: opcodes.POP_TOP},                   // discard type
			{Op: opcodes.STORE_FAST, Arg: "e"},
			{Op: opcodes.POP_TOP}, // discard traceback
			{Op: opcodes.POP_BLOCK},
			{Op: opcodes.LOAD_FAST, Arg: "e"},
			{Op: opcodes.RETURN_VALUE},
		},
	}

	result, why, err := m.RunFrame(newFrame(m, code, nil))
	require.NoError(t, err)
	assert.Equal(t, vm.WhyReturn, why.Kind)
	exc := result.AsException()
	require.NotNil(t, exc)
	assert.Same(t, m.Exceptions.ValueError, exc.Class)
	msg, _ := exc.Args[0].AsStr()
	assert.Equal(t, "boom", msg)
}

// TestUncaughtExceptionPropagatesAsPyError checks RunCode's top-level
// contract: an exception with nothing to catch it escapes as *vm.PyError
// carrying the (type, value, traceback) triple.
func TestUncaughtExceptionPropagatesAsPyError(t *testing.T) {
	m := vm.New(vm.Dialect27())
	veClass := values.ClassValue(m.Exceptions.ValueError)
	code := &vm.Code{
		Name:      "uncaught",
		Consts:    []*values.Value{veClass, values.Str("oops")},
		StackSize: 2,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_CONST, Arg: 0},
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.RAISE_VARARGS, Arg: 2},
		},
	}

	_, err := m.RunCode(code, map[string]*values.Value{}, nil, nil)
	require.Error(t, err)
	pe, ok := err.(*vm.PyError)
	require.True(t, ok)
	exc := pe.Value.AsException()
	require.NotNil(t, exc)
	msg, _ := exc.Args[0].AsStr()
	assert.Equal(t, "oops", msg)
}

// TestTryFinallyRunsOnReturn checks that a finally block executes a side
// effect (storing a global) even though the try body already returned, and
// that the original return value survives the detour through the handler.
func TestTryFinallyRunsOnReturn(t *testing.T) {
	m := vm.New(vm.Dialect27())
	code := &vm.Code{
		Name:      "finally",
		Consts:    []*values.Value{values.Int(1), values.Bool(true)},
		StackSize: 3,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.SETUP_FINALLY, Arg: 3},
			{Op: opcodes.LOAD_CONST, Arg: 0},
			{Op: opcodes.RETURN_VALUE},
			// handler (pc 3):
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.STORE_GLOBAL, Arg: "ran"},
			{Op: opcodes.END_FINALLY},
		},
	}

	globals := map[string]*values.Value{}
	result, why, err := m.RunFrame(newFrame(m, code, globals))
	require.NoError(t, err)
	assert.Equal(t, vm.WhyReturn, why.Kind)
	i, _ := result.AsInt()
	assert.EqualValues(t, 1, i)
	assert.True(t, globals["ran"].Truthy())
}

// TestWithStatementSuppressesException exercises SETUP_WITH/WITH_CLEANUP's
// suppression path: the context manager's __exit__ returns a truthy value,
// so the pending ValueError never reaches the caller and the function
// returns its own sentinel instead.
func TestWithStatementSuppressesException(t *testing.T) {
	m := vm.New(vm.Dialect27())
	veClass := values.ClassValue(m.Exceptions.ValueError)
	exitFn := values.HostCallableValue(&values.HostCallable{
		Name: "__exit__",
		Fn: func(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
			return values.Bool(true), nil
		},
	})
	ctxTuple := values.Tuple([]*values.Value{values.None(), exitFn})

	code := &vm.Code{
		Name:      "with",
		Consts:    []*values.Value{ctxTuple, veClass, values.Str("boom"), values.Str("suppressed")},
		StackSize: 5,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_CONST, Arg: 0},
			{Op: opcodes.SETUP_WITH, Arg: 6},
			{Op: opcodes.POP_TOP}, // discard __enter__ result
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.LOAD_CONST, Arg: 2},
			{Op: opcodes.RAISE_VARARGS, Arg: 2},
			// handler (pc 6): the unwinder arrives here with the saved
			// (tb, val, typ) triple on top of the buried __exit__.
			{Op: opcodes.WITH_CLEANUP},
			{Op: opcodes.END_FINALLY},
			{Op: opcodes.LOAD_CONST, Arg: 3},
			{Op: opcodes.RETURN_VALUE},
		},
	}

	f := newFrame(m, code, nil)
	result, why, err := m.RunFrame(f)
	require.NoError(t, err)
	assert.Equal(t, vm.WhyReturn, why.Kind)
	s, _ := result.AsStr()
	assert.Equal(t, "suppressed", s)
	assert.Nil(t, f.LastException)
}

// TestTryExceptNonMatchingReRaises assembles `raise ValueError` guarded by
// an except clause testing for TypeError: the match fails, END_FINALLY
// re-raises, and the original ValueError escapes the frame.
func TestTryExceptNonMatchingReRaises(t *testing.T) {
	m := vm.New(vm.Dialect27())
	veClass := values.ClassValue(m.Exceptions.ValueError)
	teClass := values.ClassValue(m.Exceptions.TypeError)
	code := &vm.Code{
		Name:      "nomatch",
		Consts:    []*values.Value{veClass, values.Str("boom"), teClass},
		StackSize: 5,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.SETUP_EXCEPT, Arg: 4},
			{Op: opcodes.LOAD_CONST, Arg: 0},
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.RAISE_VARARGS, Arg: 2},
			// handler (pc 4):
			{Op: opcodes.DUP_TOP},
			{Op: opcodes.LOAD_CONST, Arg: 2},
			{Op: opcodes.COMPARE_OP, Arg: vm.CmpExceptionMatch},
			{Op: opcodes.POP_JUMP_IF_FALSE, Arg: 8},
			// no-match path (pc 8): re-raise the saved exception.
			{Op: opcodes.END_FINALLY},
		},
	}

	f := newFrame(m, code, nil)
	_, why, err := m.RunFrame(f)
	require.NoError(t, err)
	assert.Equal(t, vm.WhyReraise, why.Kind)
	require.NotNil(t, f.LastException)
	exc := f.LastException.Value.AsException()
	require.NotNil(t, exc)
	assert.Same(t, m.Exceptions.ValueError, exc.Class)
}

// TestForLoopSumsList drives SETUP_LOOP/GET_ITER/FOR_ITER over a list
// constant and checks the loop body ran once per element.
func TestForLoopSumsList(t *testing.T) {
	m := vm.New(vm.Dialect32())
	list := values.List([]*values.Value{values.Int(1), values.Int(2), values.Int(3)})
	code := &vm.Code{
		Name:      "sumloop",
		Consts:    []*values.Value{values.Int(0), list},
		Varnames:  []string{"total", "x"},
		Nlocals:   2,
		StackSize: 3,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_CONST, Arg: 0},
			{Op: opcodes.STORE_FAST, Arg: "total"},
			{Op: opcodes.SETUP_LOOP, Arg: 13},
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.GET_ITER},
			{Op: opcodes.FOR_ITER, Arg: 12}, // pc 5: loop head
			{Op: opcodes.STORE_FAST, Arg: "x"},
			{Op: opcodes.LOAD_FAST, Arg: "total"},
			{Op: opcodes.LOAD_FAST, Arg: "x"},
			{Op: opcodes.BINARY_ADD},
			{Op: opcodes.STORE_FAST, Arg: "total"},
			{Op: opcodes.JUMP_ABSOLUTE, Arg: 5},
			{Op: opcodes.POP_BLOCK}, // pc 12: exhausted
			{Op: opcodes.LOAD_FAST, Arg: "total"},
			{Op: opcodes.RETURN_VALUE},
		},
	}

	result, why, err := m.RunFrame(newFrame(m, code, nil))
	require.NoError(t, err)
	assert.Equal(t, vm.WhyReturn, why.Kind)
	n, _ := result.AsInt()
	assert.EqualValues(t, 6, n)
}

// TestMakeFunctionThenCall builds a two-argument adder with MAKE_FUNCTION
// and invokes it with CALL_FUNCTION, checking the constructed function binds
// positional arguments the same way a direct frame run would.
func TestMakeFunctionThenCall(t *testing.T) {
	m := vm.New(vm.Dialect32())
	adder := &vm.Code{
		Name:      "adder",
		Varnames:  []string{"a", "b"},
		Argcount:  2,
		Nlocals:   2,
		StackSize: 2,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_FAST, Arg: "a"},
			{Op: opcodes.LOAD_FAST, Arg: "b"},
			{Op: opcodes.BINARY_ADD},
			{Op: opcodes.RETURN_VALUE},
		},
	}
	outer := &vm.Code{
		Name:      "outer",
		Consts:    []*values.Value{values.CodeValue(adder), values.Int(20), values.Int(22)},
		StackSize: 3,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_CONST, Arg: 0},
			{Op: opcodes.MAKE_FUNCTION, Arg: 0},
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.LOAD_CONST, Arg: 2},
			{Op: opcodes.CALL_FUNCTION, Arg: 2},
			{Op: opcodes.RETURN_VALUE},
		},
	}

	result, why, err := m.RunFrame(newFrame(m, outer, nil))
	require.NoError(t, err)
	assert.Equal(t, vm.WhyReturn, why.Kind)
	n, _ := result.AsInt()
	assert.EqualValues(t, 42, n)
}

// TestGeneratorYieldSequence drives a two-yield generator through Next,
// confirming the resumable frame survives repeated suspension and
// resumption and raises ErrStopIteration exactly once the body falls off
// the end.
func TestGeneratorYieldSequence(t *testing.T) {
	m := vm.New(vm.Dialect32())
	code := &vm.Code{
		Name:      "gen",
		Consts:    []*values.Value{values.Int(1), values.Int(2), values.None()},
		StackSize: 2,
		Flags:     vm.CoGenerator,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_CONST, Arg: 0},
			{Op: opcodes.YIELD_VALUE},
			{Op: opcodes.POP_TOP},
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.YIELD_VALUE},
			{Op: opcodes.POP_TOP},
			{Op: opcodes.LOAD_CONST, Arg: 2},
			{Op: opcodes.RETURN_VALUE},
		},
	}

	g := vm.NewGenerator(m, newFrame(m, code, nil))

	v1, err := g.Next()
	require.NoError(t, err)
	n1, _ := v1.AsInt()
	assert.EqualValues(t, 1, n1)

	v2, err := g.Next()
	require.NoError(t, err)
	n2, _ := v2.AsInt()
	assert.EqualValues(t, 2, n2)

	_, err = g.Next()
	assert.ErrorIs(t, err, vm.ErrStopIteration)
	assert.True(t, g.Finished())
}

// TestClosureCellAliasing checks that a Cell shared between two frames sees
// writes made by either — the mechanism closures rely on instead of copying
// captured variables at call time.
func TestClosureCellAliasing(t *testing.T) {
	m := vm.New(vm.Dialect32())
	cell := values.NewCell(nil)

	writer := &vm.Code{
		Name:      "writer",
		Consts:    []*values.Value{values.Int(42), values.None()},
		StackSize: 1,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_CONST, Arg: 0},
			{Op: opcodes.STORE_DEREF, Arg: 0},
			{Op: opcodes.LOAD_CONST, Arg: 1},
			{Op: opcodes.RETURN_VALUE},
		},
	}
	reader := &vm.Code{
		Name:      "reader",
		StackSize: 1,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_DEREF, Arg: 0},
			{Op: opcodes.RETURN_VALUE},
		},
	}

	wf := newFrame(m, writer, nil)
	wf.Cells = []*values.Cell{cell}
	_, why, err := m.RunFrame(wf)
	require.NoError(t, err)
	assert.Equal(t, vm.WhyReturn, why.Kind)
	assert.True(t, cell.Bound())

	rf := newFrame(m, reader, nil)
	rf.Cells = []*values.Cell{cell}
	result, why, err := m.RunFrame(rf)
	require.NoError(t, err)
	assert.Equal(t, vm.WhyReturn, why.Kind)
	n, _ := result.AsInt()
	assert.EqualValues(t, 42, n)
}
