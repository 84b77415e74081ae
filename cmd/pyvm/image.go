package main

import (
	"fmt"

	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/runtime"
	"github.com/wudi/pyvm/values"
	"github.com/wudi/pyvm/vm"
)

// nameBearingOps takes a string operand (a names/varnames entry resolved to
// its literal by the decoder) rather than an int index into a side table
// (const and cell operands stay ints) — the loader needs to know which is which since runtime.Image
// carries both shapes through the same interface{} field.
var nameBearingOps = map[opcodes.Opcode]bool{
	opcodes.STORE_NAME:    true,
	opcodes.DELETE_NAME:   true,
	opcodes.LOAD_NAME:     true,
	opcodes.LOAD_FAST:     true,
	opcodes.STORE_FAST:    true,
	opcodes.DELETE_FAST:   true,
	opcodes.LOAD_GLOBAL:   true,
	opcodes.STORE_GLOBAL:  true,
	opcodes.DELETE_GLOBAL: true,
	opcodes.LOAD_ATTR:     true,
	opcodes.STORE_ATTR:    true,
	opcodes.DELETE_ATTR:   true,
	opcodes.IMPORT_NAME:   true,
	opcodes.IMPORT_FROM:   true,
}

// loadCode turns a decoded runtime.Image into a *vm.Code the VM can run.
// This conversion is deliberately kept out of package runtime (see
// runtime.Decoder's doc comment): it is the one place allowed to know about
// both the plain-data decoder output and vm.Code's concrete shape.
func loadCode(img *runtime.Image) (*vm.Code, error) {
	consts := make([]*values.Value, len(img.Consts))
	for i, c := range img.Consts {
		v, err := loadConst(&c)
		if err != nil {
			return nil, fmt.Errorf("const %d: %w", i, err)
		}
		consts[i] = v
	}

	instructions := make([]opcodes.Instruction, len(img.Instructions))
	for i, ri := range img.Instructions {
		op, ok := opcodes.Lookup(ri.Op)
		if !ok {
			return nil, fmt.Errorf("instruction %d: unknown opcode %q", i, ri.Op)
		}
		arg, err := loadArg(op, ri.Arg)
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, ri.Op, err)
		}
		instructions[i] = opcodes.Instruction{Op: op, Arg: arg, Line: ri.Line}
	}

	lines := make([]vm.LineEntry, len(img.Lines))
	for i, l := range img.Lines {
		lines[i] = vm.LineEntry{PC: l.PC, Line: l.Line}
	}

	return &vm.Code{
		Name:           img.Name,
		Filename:       img.Filename,
		FirstLineNo:    img.FirstLineNo,
		Consts:         consts,
		Names:          img.Names,
		Varnames:       img.Varnames,
		Cellvars:       img.Cellvars,
		Freevars:       img.Freevars,
		Instructions:   instructions,
		StackSize:      img.StackSize,
		Argcount:       img.Argcount,
		KwonlyArgcount: img.KwonlyArgcount,
		Nlocals:        img.Nlocals,
		Flags:          vm.CodeFlags(img.Flags),
		Lines:          lines,
	}, nil
}

func loadConst(c *runtime.ImageConst) (*values.Value, error) {
	switch c.Kind {
	case "none", "":
		return values.None(), nil
	case "bool":
		return values.Bool(c.Bool), nil
	case "int":
		return values.Int(c.Int), nil
	case "float":
		return values.Float(c.Float), nil
	case "str":
		return values.Str(c.Str), nil
	case "code":
		if c.Code == nil {
			return nil, fmt.Errorf("code constant missing its image")
		}
		nested, err := loadCode(c.Code)
		if err != nil {
			return nil, err
		}
		return values.CodeValue(nested), nil
	default:
		return nil, fmt.Errorf("unknown const kind %q", c.Kind)
	}
}

// loadArg decides whether a JSON-decoded instruction operand should become
// a string (name-bearing opcodes) or an int (every other operand shape:
// const/cell indices, jump targets, packed call/argument counts).
// encoding/json unmarshals numbers into float64, so plain arguments need a
// conversion the decoder itself never had to perform.
func loadArg(op opcodes.Opcode, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	if nameBearingOps[op] {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string operand, got %T", raw)
		}
		return s, nil
	}

	var n int
	switch v := raw.(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	default:
		return nil, fmt.Errorf("expected a numeric operand, got %T", raw)
	}

	if op == opcodes.COMPARE_OP {
		return vm.CompareOp(n), nil
	}
	return n, nil
}
