package vm

import (
	"fmt"
	"strings"

	"github.com/wudi/pyvm/values"
)

// Printer is the minimal stdout collaborator PRINT_* opcodes write through;
// the real command-line entry point and any buffering policy belong to the
// embedder.
type Printer interface {
	WriteString(s string) (int, error)
	Softspace() bool
	SetSoftspace(bool)
}

// CallFunction invokes a Function directly — the embedder-facing half of
// the call machinery. It performs
// argument binding (positional, defaults, keyword) the same way
// CALL_FUNCTION's handler does, then either runs the frame to completion or,
// for a generator function, returns a *Generator wrapped in a Value without
// executing a single instruction (construction does not start the body).
func (m *VM) CallFunction(fn *values.Function, posargs []*values.Value, namedargs map[string]*values.Value) (*values.Value, error) {
	code, ok := fn.Code.(*Code)
	if !ok {
		return nil, newVMError(ErrBadInstructionArg, "function %s has no resolved code object", fn.Name)
	}

	locals, err := bindArguments(fn, code, posargs, namedargs)
	if err != nil {
		return nil, err
	}

	f := NewFrame(code, fn.Globals, locals, m.Builtins, nil)
	f.Name = fn.Name
	f.Cells = makeClosureCells(code, fn.Closure)

	if code.Flags.Has(CoGenerator) {
		g := NewGenerator(m, f)
		return values.GeneratorValue(g), nil
	}

	result, why, hostErr := m.RunFrame(f)
	if hostErr != nil {
		return nil, hostErr
	}
	switch why.Kind {
	case WhyReturn:
		return result, nil
	case WhyException, WhyReraise, WhyReexception:
		return nil, m.guestError(f)
	default:
		return nil, newVMError(ErrInstructionFailed, "frame exited with unexpected why=%s", why.Kind)
	}
}

// makeClosureCells lays out a frame's cell array: cellvars first, then
// freevars bound from the defining function's captured closure.
func makeClosureCells(code *Code, closure []*values.Cell) []*values.Cell {
	cells := make([]*values.Cell, len(code.Cellvars)+len(code.Freevars))
	for i := range code.Cellvars {
		cells[i] = values.NewCell(nil)
	}
	for i := range code.Freevars {
		if i < len(closure) {
			cells[len(code.Cellvars)+i] = closure[i]
		} else {
			cells[len(code.Cellvars)+i] = values.NewCell(nil)
		}
	}
	return cells
}

// bindArguments packs positional, default, and keyword arguments into a
// fresh locals map keyed by name, following CPython's left-to-right
// positional/keyword binding rule with defaults filling any trailing gap.
func bindArguments(fn *values.Function, code *Code, posargs []*values.Value, namedargs map[string]*values.Value) (map[string]*values.Value, error) {
	locals := make(map[string]*values.Value, code.Nlocals)
	nparams := code.Argcount

	for i := 0; i < nparams; i++ {
		name := code.Varnames[i]
		switch {
		case i < len(posargs):
			locals[name] = posargs[i]
		case namedargs != nil && namedargs[name] != nil:
			locals[name] = namedargs[name]
		default:
			if d, ok := defaultFor(fn, nparams, i); ok {
				locals[name] = d
			} else {
				return nil, newVMError(ErrInvalidArguments, "%s() missing required positional argument: '%s'", fn.Name, name)
			}
		}
	}

	for i := 0; i < code.KwonlyArgcount; i++ {
		name := code.Varnames[nparams+i]
		if namedargs != nil && namedargs[name] != nil {
			locals[name] = namedargs[name]
		} else if fn.KwDefaults != nil && fn.KwDefaults[name] != nil {
			locals[name] = fn.KwDefaults[name]
		} else {
			return nil, newVMError(ErrInvalidArguments, "%s() missing required keyword-only argument: '%s'", fn.Name, name)
		}
	}

	if code.Flags.Has(CoVarargs) {
		idx := nparams + code.KwonlyArgcount
		var extra []*values.Value
		if len(posargs) > nparams {
			extra = append(extra, posargs[nparams:]...)
		}
		locals[code.Varnames[idx]] = values.Tuple(extra)
	}

	return locals, nil
}

func defaultFor(fn *values.Function, nparams, i int) (*values.Value, bool) {
	// Defaults fill the trailing positional parameters.
	firstDefaultIdx := nparams - len(fn.Defaults)
	if i < firstDefaultIdx {
		return nil, false
	}
	return fn.Defaults[i-firstDefaultIdx], true
}

var ErrInvalidArguments = fmt.Errorf("invalid function arguments")

// callValue dispatches CALL_FUNCTION's resolved callable to the right
// invocation path: user Function, BoundMethod (receiver checked and
// inserted), HostCallable (errors converted to guest exceptions at this
// boundary), or Class (exception instantiation only — see DESIGN.md).
func (m *VM) callValue(f *Frame, callee *values.Value, posargs []*values.Value, namedargs map[string]*values.Value) (*values.Value, Why, error) {
	switch callee.Kind {
	case values.KindFunction:
		fn, _ := callee.AsFunction()
		return m.callFunctionValue(f, fn, posargs, namedargs)

	case values.KindBoundMethod:
		bm, _ := callee.AsBoundMethod()
		if bm.Receiver != nil && !bm.Receiver.IsNone() {
			posargs = append([]*values.Value{bm.Receiver}, posargs...)
		}
		if len(posargs) == 0 || !receiverMatches(bm, posargs[0]) {
			got := "nothing"
			if len(posargs) > 0 {
				got = posargs[0].TypeName() + " instance"
			}
			f.raise(m.newTypeError(fmt.Sprintf(
				"unbound method %s() must be called with %s instance as first argument (got %s instead)",
				bm.Func.Name, bm.Class.Name, got)))
			return nil, Why{Kind: WhyException}, nil
		}
		return m.callFunctionValue(f, bm.Func, posargs, namedargs)

	case values.KindHostCallable:
		hc, _ := callee.AsHostCallable()
		if special := m.redirectedBuiltin(f, hc, posargs); special != nil {
			return special, whyNone(), nil
		}
		result, err := hc.Fn(posargs, namedargs)
		if err != nil {
			f.raise(m.newRuntimeError(err.Error()))
			return nil, Why{Kind: WhyException}, nil
		}
		return result, whyNone(), nil

	case values.KindClass:
		cls, _ := callee.AsClass()
		v, err := cls.Instantiate(posargs)
		if err != nil {
			f.raise(m.newRuntimeError(err.Error()))
			return nil, Why{Kind: WhyException}, nil
		}
		return v, whyNone(), nil

	default:
		f.raise(m.newTypeError(fmt.Sprintf("'%s' object is not callable", callee.TypeName())))
		return nil, Why{Kind: WhyException}, nil
	}
}

func receiverMatches(bm *values.BoundMethod, receiver *values.Value) bool {
	if bm.Class == nil {
		return true
	}
	cls, ok := receiver.AsClass()
	if ok {
		return cls.IsSubclass(bm.Class)
	}
	// Host/primitive receivers (e.g. builtins bound as methods in tests)
	// are accepted unconditionally: full instance typing is object-model
	// territory out of scope here.
	return true
}

// redirectedBuiltin implements the `globals`/`locals` call-site special
// case: calling the host builtin named "globals" or "locals" must use
// *this frame's* dict, not whatever the interpreter's own notion of
// "current" would be. `print` is redirected too, so its output lands on
// the VM's configured Stdout rather than the process's.
func (m *VM) redirectedBuiltin(f *Frame, hc *values.HostCallable, posargs []*values.Value) *values.Value {
	switch hc.Name {
	case "globals":
		return dictFromMap(f.Globals)
	case "locals":
		return dictFromMap(f.Locals)
	case "print":
		var b strings.Builder
		for i, a := range posargs {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(a.String())
		}
		b.WriteString("\n")
		m.Stdout.WriteString(b.String())
		return values.None()
	}
	return nil
}

func dictFromMap(m map[string]*values.Value) *values.Value {
	d := values.NewDict()
	for k, v := range m {
		d.Set(values.Str(k), v)
	}
	return values.DictValue(d)
}

// MaxCallDepth bounds the depth of synchronous Go recursion CALL_FUNCTION
// can drive (each guest call runs RunFrame from inside an opcode handler
// running inside RunFrame): unlike a real interpreter's recursion limit,
// exceeding it is a host fault, not a catchable guest RuntimeError.
const MaxCallDepth = 1000

func callDepth(f *Frame) int {
	n := 0
	for ; f != nil; f = f.Caller {
		n++
	}
	return n
}

// callFunctionValue runs fn to completion synchronously and folds the
// result back into a (value, why, error) triple the CALL_FUNCTION handler
// can push onto the caller's stack — a generator call instead yields a
// Generator value without ever entering RunFrame.
func (m *VM) callFunctionValue(caller *Frame, fn *values.Function, posargs []*values.Value, namedargs map[string]*values.Value) (*values.Value, Why, error) {
	if depth := callDepth(caller); depth >= MaxCallDepth {
		return nil, Why{}, stackDepthError(depth, MaxCallDepth)
	}

	code, ok := fn.Code.(*Code)
	if !ok {
		return nil, Why{}, newVMError(ErrBadInstructionArg, "function %s has no resolved code object", fn.Name)
	}
	locals, err := bindArguments(fn, code, posargs, namedargs)
	if err != nil {
		caller.raise(m.newTypeError(err.Error()))
		return nil, Why{Kind: WhyException}, nil
	}

	nf := NewFrame(code, fn.Globals, locals, m.Builtins, caller)
	nf.Name = fn.Name
	nf.Cells = makeClosureCells(code, fn.Closure)

	if code.Flags.Has(CoGenerator) {
		g := NewGenerator(m, nf)
		return values.GeneratorValue(g), whyNone(), nil
	}

	result, why, hostErr := m.RunFrame(nf)
	if hostErr != nil {
		return nil, Why{}, hostErr
	}
	switch why.Kind {
	case WhyReturn:
		return result, whyNone(), nil
	case WhyException, WhyReraise, WhyReexception:
		caller.LastException = nf.LastException
		return nil, Why{Kind: WhyException}, nil
	default:
		return nil, Why{}, newVMError(ErrInstructionFailed, "callee frame exited with unexpected why=%s", why.Kind)
	}
}
