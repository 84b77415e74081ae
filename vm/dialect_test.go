package vm

import (
	"reflect"
	"testing"

	"github.com/wudi/pyvm/opcodes"
)

func handlerPtr(h OpHandler) uintptr {
	return reflect.ValueOf(h).Pointer()
}

func TestDialect25ExcludesLaterOpcodes(t *testing.T) {
	d := Dialect25()
	for _, op := range []opcodes.Opcode{
		opcodes.BUILD_SET,
		opcodes.SETUP_WITH,
		opcodes.JUMP_IF_TRUE_OR_POP,
		opcodes.JUMP_IF_FALSE_OR_POP,
		opcodes.POP_JUMP_IF_TRUE,
		opcodes.POP_JUMP_IF_FALSE,
		opcodes.POP_EXCEPT,
		opcodes.DUP_TOP_TWO,
		opcodes.LOAD_BUILD_CLASS,
		opcodes.STORE_LOCALS,
	} {
		if _, ok := d.lookup(op); ok {
			t.Fatalf("Dialect25 should not have a handler for %s", op)
		}
	}
	if _, ok := d.lookup(opcodes.DUP_TOPX); !ok {
		t.Fatal("Dialect25 should still have DUP_TOPX (2.5/2.7 only)")
	}
	if _, ok := d.lookup(opcodes.EXEC_STMT); !ok {
		t.Fatal("Dialect25 should still have EXEC_STMT (2.x only)")
	}
}

func TestDialect27AddsWithAndPopJumpFamilies(t *testing.T) {
	d := Dialect27()
	for _, op := range []opcodes.Opcode{
		opcodes.BUILD_SET,
		opcodes.SETUP_WITH,
		opcodes.JUMP_IF_TRUE_OR_POP,
		opcodes.JUMP_IF_FALSE_OR_POP,
		opcodes.POP_JUMP_IF_TRUE,
		opcodes.POP_JUMP_IF_FALSE,
	} {
		if _, ok := d.lookup(op); !ok {
			t.Fatalf("Dialect27 should have a handler for %s", op)
		}
	}
	// 2.7 still uses the 2.x three-operand RAISE_VARARGS form.
	h27, _ := d.lookup(opcodes.RAISE_VARARGS)
	h25, _ := Dialect25().lookup(opcodes.RAISE_VARARGS)
	if handlerPtr(h27) != handlerPtr(h25) {
		t.Fatal("Dialect27 should inherit Dialect25's RAISE_VARARGS handler unchanged")
	}
}

func TestDialect32RemovesAndOverrides(t *testing.T) {
	d := Dialect32()
	for _, op := range []opcodes.Opcode{
		opcodes.PRINT_EXPR,
		opcodes.PRINT_ITEM,
		opcodes.PRINT_ITEM_TO,
		opcodes.PRINT_NEWLINE,
		opcodes.PRINT_NEWLINE_TO,
		opcodes.EXEC_STMT,
		opcodes.BUILD_CLASS,
		opcodes.DUP_TOPX,
	} {
		if _, ok := d.lookup(op); ok {
			t.Fatalf("Dialect32 should have removed %s", op)
		}
	}
	for _, op := range []opcodes.Opcode{
		opcodes.DUP_TOP_TWO,
		opcodes.POP_EXCEPT,
		opcodes.LOAD_BUILD_CLASS,
		opcodes.STORE_LOCALS,
	} {
		if _, ok := d.lookup(op); !ok {
			t.Fatalf("Dialect32 should add %s", op)
		}
	}

	d27 := Dialect27()
	mf32, _ := d.lookup(opcodes.MAKE_FUNCTION)
	mf27, _ := d27.lookup(opcodes.MAKE_FUNCTION)
	if handlerPtr(mf32) == handlerPtr(mf27) {
		t.Fatal("Dialect32's MAKE_FUNCTION override should differ from Dialect27's")
	}

	rv32, _ := d.lookup(opcodes.RAISE_VARARGS)
	rv27, _ := d27.lookup(opcodes.RAISE_VARARGS)
	if handlerPtr(rv32) == handlerPtr(rv27) {
		t.Fatal("Dialect32's RAISE_VARARGS override should differ from Dialect27's")
	}
}

func TestDiffDoesNotMutateParent(t *testing.T) {
	parent := Dialect27()
	before, ok := parent.lookup(opcodes.MAKE_FUNCTION)
	if !ok {
		t.Fatal("parent should have MAKE_FUNCTION")
	}
	_ = Dialect32()
	after, ok := parent.lookup(opcodes.MAKE_FUNCTION)
	if !ok || handlerPtr(before) != handlerPtr(after) {
		t.Fatal("deriving a child dialect must not mutate the parent's table")
	}
}
