package vm

import (
	"errors"

	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
)

var errBaseNotAClass = errors.New("base is not a class")

// runClassBody executes a class body's code as an ordinary call, except the
// resulting namespace is the frame's own Locals dict rather than a return
// value — the class statement's body writes its methods and attributes with
// STORE_NAME, and those become the class's Dict: the class body's frame is
// discarded after running, only its local namespace survives.
func (m *VM) runClassBody(fn *values.Function) (map[string]*values.Value, error) {
	code, ok := fn.Code.(*Code)
	if !ok {
		return nil, newVMError(ErrBadInstructionArg, "class body has no resolved code object")
	}
	locals := make(map[string]*values.Value, code.Nlocals)
	f := NewFrame(code, fn.Globals, locals, m.Builtins, nil)
	f.Name = fn.Name
	f.Cells = makeClosureCells(code, fn.Closure)

	_, why, err := m.RunFrame(f)
	if err != nil {
		return nil, err
	}
	if why.Kind == WhyException || why.Kind == WhyReraise || why.Kind == WhyReexception {
		return nil, m.guestError(f)
	}
	return f.Locals, nil
}

// opBuildClass implements 2.x's BUILD_CLASS: TOS is the namespace dict
// (already fully populated — the 2.x compiler runs the body to a dict via a
// preceding CALL_FUNCTION and places the result here), TOS1 the bases
// tuple, TOS2 the name.
func opBuildClass(m *VM, f *Frame, arg interface{}) (Why, error) {
	namespace := f.PopValue()
	basesTuple := f.PopValue()
	name := f.PopValue()

	nameStr, _ := name.AsStr()
	bases, err := classesFromTuple(basesTuple)
	if err != nil {
		f.raise(m.newTypeError(err.Error()))
		return Why{Kind: WhyException}, nil
	}
	dict, ok := namespace.AsDict()
	if !ok {
		return Why{}, newVMError(ErrBadInstructionArg, "BUILD_CLASS namespace is not a dict")
	}
	cls := &values.Class{Name: nameStr, Bases: bases, Dict: dictToMap(dict)}
	f.PushValue(values.ClassValue(cls))
	return whyNone(), nil
}

func classesFromTuple(t *values.Value) ([]*values.Class, error) {
	items, ok := t.AsTuple()
	if !ok {
		return nil, errNotSubscriptable
	}
	out := make([]*values.Class, 0, len(items))
	for _, it := range items {
		cls, ok := it.AsClass()
		if !ok {
			return nil, errBaseNotAClass
		}
		out = append(out, cls)
	}
	return out, nil
}

func dictToMap(d *values.Dict) map[string]*values.Value {
	out := make(map[string]*values.Value, d.Len())
	for _, item := range d.Items() {
		k, _ := item.Key.AsStr()
		out[k] = item.Value
	}
	return out
}

// opLoadBuildClass implements 3.x's LOAD_BUILD_CLASS: push a host callable
// that the compiler's CALL_FUNCTION(func, name, *bases) invokes. It runs
// func's body (see runClassBody) to obtain the class namespace, then builds
// the Class the same way BUILD_CLASS does.
func opLoadBuildClass(m *VM, f *Frame, arg interface{}) (Why, error) {
	m2 := m
	f.PushValue(values.HostCallableValue(&values.HostCallable{
		Name: "__build_class__",
		Fn: func(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
			if len(args) < 2 {
				return nil, errBuildClassArity
			}
			bodyFn, ok := args[0].AsFunction()
			if !ok {
				return nil, errBuildClassArity
			}
			name, _ := args[1].AsStr()
			bases := make([]*values.Class, 0, len(args)-2)
			for _, b := range args[2:] {
				cls, ok := b.AsClass()
				if !ok {
					return nil, errBuildClassArity
				}
				bases = append(bases, cls)
			}
			locals, err := m2.runClassBody(bodyFn)
			if err != nil {
				return nil, err
			}
			cls := &values.Class{Name: name, Bases: bases, Dict: locals}
			return values.ClassValue(cls), nil
		},
	}))
	return whyNone(), nil
}

var errBuildClassArity = newVMError(ErrBadInstructionArg, "__build_class__ expects (function, name, *bases)")

// opStoreLocals implements 3.0-3.2's STORE_LOCALS: the class body frame's
// pre-built locals dict is TOS; this interpreter's class bodies already use
// a Go map as their Locals, so this opcode only pops and discards that
// dict (the mapping is maintained by STORE_NAME within the class body).
func opStoreLocals(m *VM, f *Frame, arg interface{}) (Why, error) {
	f.Pop()
	return whyNone(), nil
}

var classHandlers = map[opcodes.Opcode]OpHandler{
	opcodes.BUILD_CLASS:      opBuildClass,
	opcodes.LOAD_BUILD_CLASS: opLoadBuildClass,
	opcodes.STORE_LOCALS:     opStoreLocals,
}
