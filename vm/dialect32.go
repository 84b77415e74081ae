package vm

import "github.com/wudi/pyvm/opcodes"

// Dialect32 builds on Dialect27: removes PRINT_*, EXEC_STMT, BUILD_CLASS,
// DUP_TOPX, UNARY_CONVERT, classic division, and the 2.5 non-popping jump
// forms; overrides MAKE_FUNCTION (packed argc shape) and RAISE_VARARGS
// (two-argument exc/cause shape); adds DUP_TOP_TWO, POP_EXCEPT,
// LOAD_BUILD_CLASS, STORE_LOCALS.
func Dialect32() *Dialect {
	parent := Dialect27()

	removes := []opcodes.Opcode{
		opcodes.PRINT_EXPR,
		opcodes.PRINT_ITEM,
		opcodes.PRINT_ITEM_TO,
		opcodes.PRINT_NEWLINE,
		opcodes.PRINT_NEWLINE_TO,
		opcodes.EXEC_STMT,
		opcodes.BUILD_CLASS,
		opcodes.DUP_TOPX,
		opcodes.UNARY_CONVERT,
		opcodes.BINARY_DIVIDE,
		opcodes.INPLACE_DIVIDE,
		opcodes.JUMP_IF_TRUE,
		opcodes.JUMP_IF_FALSE,
	}

	overrides := map[opcodes.Opcode]OpHandler{
		opcodes.MAKE_FUNCTION:  opMakeFunction32,
		opcodes.RAISE_VARARGS: opRaiseVarargs32,
	}

	adds := map[opcodes.Opcode]OpHandler{
		opcodes.DUP_TOP_TWO:      opDupTopTwo,
		opcodes.POP_EXCEPT:       opPopExcept,
		opcodes.LOAD_BUILD_CLASS: opLoadBuildClass,
		opcodes.STORE_LOCALS:     opStoreLocals,
	}

	return diff(parent, 3.2, removes, overrides, adds)
}
