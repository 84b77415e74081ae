package vm

import (
	"fmt"

	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
)

// nameArg extracts the string name operand every LOAD_*/STORE_*/DELETE_*
// handler below expects; the decoder always resolves the names-table index
// to the literal string before building the Instruction.
func nameArg(arg interface{}) (string, error) {
	s, ok := arg.(string)
	if !ok {
		return "", newVMError(ErrBadInstructionArg, "expected a name string, got %v", arg)
	}
	return s, nil
}

func lookupName(f *Frame, name string) (*values.Value, bool) {
	if v, ok := f.Locals[name]; ok {
		return v, true
	}
	if v, ok := f.Globals[name]; ok {
		return v, true
	}
	if v, ok := f.Builtins[name]; ok {
		return v, true
	}
	return nil, false
}

func opLoadName(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	v, ok := lookupName(f, name)
	if !ok {
		f.raise(m.newNameError(fmt.Sprintf("name '%s' is not defined", name)))
		return Why{Kind: WhyException}, nil
	}
	f.PushValue(v)
	return whyNone(), nil
}

func opStoreName(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	f.Locals[name] = f.PopValue()
	return whyNone(), nil
}

func opDeleteName(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	if _, ok := f.Locals[name]; !ok {
		f.raise(m.newNameError(fmt.Sprintf("name '%s' is not defined", name)))
		return Why{Kind: WhyException}, nil
	}
	delete(f.Locals, name)
	return whyNone(), nil
}

func opLoadGlobal(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	if v, ok := f.Globals[name]; ok {
		f.PushValue(v)
		return whyNone(), nil
	}
	if v, ok := f.Builtins[name]; ok {
		f.PushValue(v)
		return whyNone(), nil
	}
	f.raise(m.newNameError(fmt.Sprintf("global name '%s' is not defined", name)))
	return Why{Kind: WhyException}, nil
}

func opStoreGlobal(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	f.Globals[name] = f.PopValue()
	return whyNone(), nil
}

func opDeleteGlobal(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	if _, ok := f.Globals[name]; !ok {
		f.raise(m.newNameError(fmt.Sprintf("global name '%s' is not defined", name)))
		return Why{Kind: WhyException}, nil
	}
	delete(f.Globals, name)
	return whyNone(), nil
}

func opLoadFast(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	v, ok := f.Locals[name]
	if !ok {
		f.raise(m.newUnboundLocalError(fmt.Sprintf(
			"local variable '%s' referenced before assignment", name)))
		return Why{Kind: WhyException}, nil
	}
	f.PushValue(v)
	return whyNone(), nil
}

func opStoreFast(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	f.Locals[name] = f.PopValue()
	return whyNone(), nil
}

func opDeleteFast(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	delete(f.Locals, name)
	return whyNone(), nil
}

func opLoadConst(m *VM, f *Frame, arg interface{}) (Why, error) {
	idx, ok := arg.(int)
	if !ok || idx < 0 || idx >= len(f.Code.Consts) {
		return Why{}, newVMError(ErrBadInstructionArg, "LOAD_CONST index %v out of range", arg)
	}
	f.PushValue(f.Code.Consts[idx])
	return whyNone(), nil
}

// cellIndex resolves the slot into f.Cells. The compiler assigns indices
// 0..len(Cellvars)-1 to cellvars and the remainder to freevars, matching
// the layout makeClosureCells builds.
func cellIndex(arg interface{}) (int, error) {
	idx, ok := arg.(int)
	if !ok {
		return 0, newVMError(ErrBadInstructionArg, "expected an int cell index, got %v", arg)
	}
	return idx, nil
}

func opLoadClosure(m *VM, f *Frame, arg interface{}) (Why, error) {
	idx, err := cellIndex(arg)
	if err != nil {
		return Why{}, err
	}
	if idx < 0 || idx >= len(f.Cells) {
		return Why{}, newVMError(ErrBadInstructionArg, "LOAD_CLOSURE cell index %d out of range", idx)
	}
	f.PushValue(values.CellValue(f.Cells[idx]))
	return whyNone(), nil
}

func opLoadDeref(m *VM, f *Frame, arg interface{}) (Why, error) {
	idx, err := cellIndex(arg)
	if err != nil {
		return Why{}, err
	}
	if idx < 0 || idx >= len(f.Cells) {
		return Why{}, newVMError(ErrBadInstructionArg, "LOAD_DEREF cell index %d out of range", idx)
	}
	cell := f.Cells[idx]
	if !cell.Bound() {
		f.raise(m.newNameError("free variable referenced before assignment in enclosing scope"))
		return Why{Kind: WhyException}, nil
	}
	f.PushValue(cell.Get())
	return whyNone(), nil
}

func opStoreDeref(m *VM, f *Frame, arg interface{}) (Why, error) {
	idx, err := cellIndex(arg)
	if err != nil {
		return Why{}, err
	}
	if idx < 0 || idx >= len(f.Cells) {
		return Why{}, newVMError(ErrBadInstructionArg, "STORE_DEREF cell index %d out of range", idx)
	}
	f.Cells[idx].Set(f.PopValue())
	return whyNone(), nil
}

// ---- attributes: minimal object-model support for Module/Class/Exception
// — the three container kinds this interpreter actually produces. Full
// user-instance attribute semantics belong to the host object model.

func opLoadAttr(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	obj := f.PopValue()
	v, ok := getAttr(obj, name)
	if !ok {
		f.raise(m.newAttributeError(fmt.Sprintf("'%s' object has no attribute '%s'", obj.TypeName(), name)))
		return Why{Kind: WhyException}, nil
	}
	f.PushValue(v)
	return whyNone(), nil
}

func getAttr(obj *values.Value, name string) (*values.Value, bool) {
	switch obj.Kind {
	case values.KindModule:
		mod := obj.Data.(*values.Module)
		v, ok := mod.Dict[name]
		return v, ok
	case values.KindClass:
		cls, _ := obj.AsClass()
		return classAttr(cls, name)
	case values.KindException:
		exc := obj.AsException()
		switch name {
		case "args":
			return values.Tuple(exc.Args), true
		case "message":
			if len(exc.Args) > 0 {
				return exc.Args[0], true
			}
			return values.Str(""), true
		}
		return classAttr(exc.Class, name)
	default:
		return nil, false
	}
}

func classAttr(cls *values.Class, name string) (*values.Value, bool) {
	if v, ok := cls.Dict[name]; ok {
		return v, true
	}
	for _, b := range cls.Bases {
		if v, ok := classAttr(b, name); ok {
			return v, true
		}
	}
	return nil, false
}

func opStoreAttr(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	obj := f.PopValue()
	value := f.PopValue()
	switch obj.Kind {
	case values.KindModule:
		obj.Data.(*values.Module).Dict[name] = value
	case values.KindClass:
		cls, _ := obj.AsClass()
		cls.Dict[name] = value
	default:
		f.raise(m.newAttributeError(fmt.Sprintf("'%s' object attribute '%s' is read-only", obj.TypeName(), name)))
		return Why{Kind: WhyException}, nil
	}
	return whyNone(), nil
}

func opDeleteAttr(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	obj := f.PopValue()
	switch obj.Kind {
	case values.KindModule:
		delete(obj.Data.(*values.Module).Dict, name)
	case values.KindClass:
		cls, _ := obj.AsClass()
		delete(cls.Dict, name)
	default:
		f.raise(m.newAttributeError(fmt.Sprintf("'%s' object attribute '%s' is read-only", obj.TypeName(), name)))
		return Why{Kind: WhyException}, nil
	}
	return whyNone(), nil
}

var nameHandlers = map[opcodes.Opcode]OpHandler{
	opcodes.LOAD_NAME:     opLoadName,
	opcodes.STORE_NAME:    opStoreName,
	opcodes.DELETE_NAME:   opDeleteName,
	opcodes.LOAD_GLOBAL:   opLoadGlobal,
	opcodes.STORE_GLOBAL:  opStoreGlobal,
	opcodes.DELETE_GLOBAL: opDeleteGlobal,
	opcodes.LOAD_FAST:     opLoadFast,
	opcodes.STORE_FAST:    opStoreFast,
	opcodes.DELETE_FAST:   opDeleteFast,
	opcodes.LOAD_CONST:    opLoadConst,
	opcodes.LOAD_CLOSURE:  opLoadClosure,
	opcodes.LOAD_DEREF:    opLoadDeref,
	opcodes.STORE_DEREF:   opStoreDeref,
	opcodes.LOAD_ATTR:     opLoadAttr,
	opcodes.STORE_ATTR:    opStoreAttr,
	opcodes.DELETE_ATTR:   opDeleteAttr,
}
