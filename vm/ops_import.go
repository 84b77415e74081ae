package vm

import (
	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
)

// opImportName implements IMPORT_NAME: TOS is the fromlist tuple, TOS1 the
// import level (relative-import depth; 0 means absolute). The resolved
// module comes from the VM's configured Importer — no Importer configured
// is an ImportError, not a host fault, since "no import support" is a valid
// embedding choice.
func opImportName(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	fromlistVal := f.PopValue()
	level := f.PopValue()

	if m.Importer == nil {
		f.raise(m.newImportError("no module named " + name))
		return Why{Kind: WhyException}, nil
	}

	var fromlist []string
	if items, ok := fromlistVal.AsTuple(); ok {
		for _, it := range items {
			if s, ok := it.AsStr(); ok {
				fromlist = append(fromlist, s)
			}
		}
	}
	lvl, _ := level.AsInt()

	mod, err := m.Importer.Import(name, f.Globals, f.Locals, fromlist, int(lvl))
	if err != nil {
		f.raise(m.newImportError(err.Error()))
		return Why{Kind: WhyException}, nil
	}
	f.PushValue(mod)
	return whyNone(), nil
}

// opImportFrom implements IMPORT_FROM: TOS is the module just imported (left
// in place for subsequent IMPORT_FROMs of the same statement); push the
// named attribute without popping the module. The traceback attached to a
// failing lookup here is a placeholder: this interpreter does not track
// source positions through the import machinery, so the traceback is
// simply None.
func opImportFrom(m *VM, f *Frame, arg interface{}) (Why, error) {
	name, err := nameArg(arg)
	if err != nil {
		return Why{}, err
	}
	mod := f.TopValue()
	v, ok := getAttr(mod, name)
	if !ok {
		f.raise(m.newImportError("cannot import name '" + name + "'"))
		return Why{Kind: WhyReexception}, nil
	}
	f.PushValue(v)
	return whyNone(), nil
}

// opImportStar implements IMPORT_STAR: pop the module, copy every
// non-underscore name into the current frame's locals. Function-local
// star-imports are a SyntaxError in real CPython, so at the only place
// this opcode occurs locals and globals are the same dict.
func opImportStar(m *VM, f *Frame, arg interface{}) (Why, error) {
	mod := f.PopValue()
	modData, ok := mod.Data.(*values.Module)
	if !ok {
		f.raise(m.newTypeError("IMPORT_STAR expects a module"))
		return Why{Kind: WhyException}, nil
	}
	for name, v := range modData.Dict {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		f.Locals[name] = v
	}
	return whyNone(), nil
}

var importHandlers = map[opcodes.Opcode]OpHandler{
	opcodes.IMPORT_NAME: opImportName,
	opcodes.IMPORT_FROM: opImportFrom,
	opcodes.IMPORT_STAR: opImportStar,
}
