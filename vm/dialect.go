package vm

import "github.com/wudi/pyvm/opcodes"

// OpHandler implements one opcode for one dialect. arg is the instruction's
// already-resolved argument (see opcodes.Instruction); handlers that raise a
// guest exception set f.LastException themselves and return WhyException —
// they never return a non-nil error for guest-level faults, only for host
// bugs.
type OpHandler func(m *VM, f *Frame, arg interface{}) (Why, error)

// Dialect is a per-version opcode dispatch table. Dialects are composed by
// copying a parent's table and applying a declarative diff — never by
// mutating a shared base.
type Dialect struct {
	Version  float64
	Handlers map[opcodes.Opcode]OpHandler
}

func (d *Dialect) lookup(op opcodes.Opcode) (OpHandler, bool) {
	h, ok := d.Handlers[op]
	return h, ok
}

// diff derives a new dialect from parent: copy its table, delete `remove`,
// then apply `overrides` (semantics changed) and `adds` (new opcodes) on
// top. Order matters only in that overrides and adds both take precedence
// over the inherited handler; they never collide with each other in
// practice since each opcode appears in at most one of the two maps.
func diff(parent *Dialect, version float64, removes []opcodes.Opcode, overrides, adds map[opcodes.Opcode]OpHandler) *Dialect {
	table := make(map[opcodes.Opcode]OpHandler, len(parent.Handlers)+len(adds))
	for op, h := range parent.Handlers {
		table[op] = h
	}
	for _, op := range removes {
		delete(table, op)
	}
	for op, h := range overrides {
		table[op] = h
	}
	for op, h := range adds {
		table[op] = h
	}
	return &Dialect{Version: version, Handlers: table}
}
