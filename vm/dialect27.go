package vm

import "github.com/wudi/pyvm/opcodes"

// Dialect27 builds on Dialect25: adds BUILD_SET,
// SETUP_WITH, the JUMP_IF_*_OR_POP / POP_JUMP_IF_* families (replacing
// 2.5's non-popping JUMP_IF_TRUE/FALSE at the compiler level — both sets of
// handlers stay registered since nothing requires removing the 2.5 forms,
// but real 2.7 bytecode never emits them).
func Dialect27() *Dialect {
	parent := Dialect25()
	adds := map[opcodes.Opcode]OpHandler{
		opcodes.BUILD_SET:            opBuildSet,
		opcodes.SETUP_WITH:           opSetupWith,
		opcodes.JUMP_IF_TRUE_OR_POP:  opJumpIfTrueOrPop,
		opcodes.JUMP_IF_FALSE_OR_POP: opJumpIfFalseOrPop,
		opcodes.POP_JUMP_IF_TRUE:     opPopJumpIfTrue,
		opcodes.POP_JUMP_IF_FALSE:    opPopJumpIfFalse,
	}
	return diff(parent, 2.7, nil, nil, adds)
}
