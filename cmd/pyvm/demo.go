package main

import (
	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
	"github.com/wudi/pyvm/vm"
)

// demoCode builds one fixed code object: sum(range(n)), the bytecode a
// compiler would emit for
//
//	def demo(n):
//	    total = 0
//	    i = 0
//	    while i < n:
//	        total = total + i
//	        i = i + 1
//	    return total
//
// repl has no compiler front end behind it, so it evaluates this single
// hand-assembled code object against whatever n the current input line
// supplies, by line length. Illustrative, not a language implementation.
func demoCode() *vm.Code {
	return &vm.Code{
		Name:        "demo",
		Filename:    "<repl>",
		FirstLineNo: 1,
		Consts:      []*values.Value{values.Int(0), values.Int(1)},
		Varnames:    []string{"n", "total", "i"},
		Argcount:    1,
		Nlocals:     3,
		StackSize:   2,
		Instructions: []opcodes.Instruction{
			{Op: opcodes.LOAD_CONST, Arg: 0},        // 0: total = 0
			{Op: opcodes.STORE_FAST, Arg: "total"},  // 1
			{Op: opcodes.LOAD_CONST, Arg: 0},        // 2: i = 0
			{Op: opcodes.STORE_FAST, Arg: "i"},      // 3
			{Op: opcodes.LOAD_FAST, Arg: "i"},       // 4: loop head
			{Op: opcodes.LOAD_FAST, Arg: "n"},       // 5
			{Op: opcodes.COMPARE_OP, Arg: vm.CmpLT}, // 6
			{Op: opcodes.POP_JUMP_IF_FALSE, Arg: 17},// 7
			{Op: opcodes.LOAD_FAST, Arg: "total"},   // 8
			{Op: opcodes.LOAD_FAST, Arg: "i"},       // 9
			{Op: opcodes.BINARY_ADD},                // 10
			{Op: opcodes.STORE_FAST, Arg: "total"},  // 11
			{Op: opcodes.LOAD_FAST, Arg: "i"},        // 12
			{Op: opcodes.LOAD_CONST, Arg: 1},        // 13
			{Op: opcodes.BINARY_ADD},                // 14
			{Op: opcodes.STORE_FAST, Arg: "i"},       // 15
			{Op: opcodes.JUMP_ABSOLUTE, Arg: 4},     // 16
			{Op: opcodes.LOAD_FAST, Arg: "total"},   // 17: loop exit
			{Op: opcodes.RETURN_VALUE},               // 18
		},
	}
}
