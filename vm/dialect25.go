package vm

import "github.com/wudi/pyvm/opcodes"

// Dialect25 is the base dialect: Python 2.5's opcode set. Every later
// dialect is derived from this one by diff, never by starting over.
func Dialect25() *Dialect {
	handlers := map[opcodes.Opcode]OpHandler{}
	merge(handlers, stackAndBinaryHandlers)
	merge(handlers, nameHandlers)
	merge(handlers, buildHandlers)
	merge(handlers, controlHandlers)
	merge(handlers, exceptHandlers)
	merge(handlers, funcHandlers)
	merge(handlers, classHandlers)
	merge(handlers, importHandlers)
	merge(handlers, printHandlers)

	handlers[opcodes.NOP] = opNop
	handlers[opcodes.MAKE_FUNCTION] = opMakeFunction
	handlers[opcodes.RAISE_VARARGS] = opRaiseVarargs

	// 2.7+ additions not yet present in 2.5: BUILD_SET, SETUP_WITH,
	// JUMP_IF_*_OR_POP, POP_JUMP_IF_*, POP_EXCEPT, DUP_TOP_TWO,
	// LOAD_BUILD_CLASS, STORE_LOCALS.
	delete(handlers, opcodes.BUILD_SET)
	delete(handlers, opcodes.SETUP_WITH)
	delete(handlers, opcodes.JUMP_IF_TRUE_OR_POP)
	delete(handlers, opcodes.JUMP_IF_FALSE_OR_POP)
	delete(handlers, opcodes.POP_JUMP_IF_TRUE)
	delete(handlers, opcodes.POP_JUMP_IF_FALSE)
	delete(handlers, opcodes.POP_EXCEPT)
	delete(handlers, opcodes.DUP_TOP_TWO)
	delete(handlers, opcodes.LOAD_BUILD_CLASS)
	delete(handlers, opcodes.STORE_LOCALS)

	return &Dialect{Version: 2.5, Handlers: handlers}
}

func merge(dst, src map[opcodes.Opcode]OpHandler) {
	for op, h := range src {
		dst[op] = h
	}
}

func opNop(m *VM, f *Frame, arg interface{}) (Why, error) {
	return whyNone(), nil
}
