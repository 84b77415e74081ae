package vm

import (
	"errors"
	"strings"

	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
)

var (
	errNotAnInt         = errors.New("indices must be integers")
	errIndexOutOfRange  = errors.New("index out of range")
	errKeyNotFound      = errors.New("key not found")
	errNotSubscriptable = errors.New("object is not subscriptable")
	errUnknownCompareOp = errors.New("unknown comparison operator")
)

func opPopTop(m *VM, f *Frame, arg interface{}) (Why, error) {
	f.Pop()
	return whyNone(), nil
}

func opRotTwo(m *VM, f *Frame, arg interface{}) (Why, error) {
	a, b := f.Pop(), f.Pop()
	f.Push(a, b)
	return whyNone(), nil
}

func opRotThree(m *VM, f *Frame, arg interface{}) (Why, error) {
	a, b, c := f.Pop(), f.Pop(), f.Pop()
	f.Push(a, c, b)
	return whyNone(), nil
}

func opRotFour(m *VM, f *Frame, arg interface{}) (Why, error) {
	a, b, c, d := f.Pop(), f.Pop(), f.Pop(), f.Pop()
	f.Push(a, d, c, b)
	return whyNone(), nil
}

func opDupTop(m *VM, f *Frame, arg interface{}) (Why, error) {
	top := f.Top()
	f.Push(top)
	return whyNone(), nil
}

func opDupTopTwo(m *VM, f *Frame, arg interface{}) (Why, error) {
	a, b := f.Peek(2), f.Peek(1)
	f.Push(a, b)
	return whyNone(), nil
}

// opDupTopX duplicates the top n items as a group, leaving two copies in
// their original relative order — the normative reading of DUP_TOPX's
// argument (see DESIGN.md, Open Questions, for why this is preferred over
// reproducing the source's apparent double-duplication for n==2).
func opDupTopX(m *VM, f *Frame, arg interface{}) (Why, error) {
	n, ok := arg.(int)
	if !ok || n < 1 {
		return Why{}, newVMError(ErrBadInstructionArg, "DUP_TOPX requires a positive int arg, got %v", arg)
	}
	items := make([]interface{}, n)
	for i := 0; i < n; i++ {
		items[i] = f.Peek(n - i)
	}
	f.Push(items...)
	return whyNone(), nil
}

func unaryOp(fn func(*values.Value) (*values.Value, error)) OpHandler {
	return func(m *VM, f *Frame, arg interface{}) (Why, error) {
		v := f.PopValue()
		result, err := fn(v)
		if err != nil {
			f.raise(m.newTypeError(err.Error()))
			return Why{Kind: WhyException}, nil
		}
		f.PushValue(result)
		return whyNone(), nil
	}
}

func opUnaryConvert(m *VM, f *Frame, arg interface{}) (Why, error) {
	v := f.PopValue()
	f.PushValue(values.Str(v.String()))
	return whyNone(), nil
}

func opUnaryNot(m *VM, f *Frame, arg interface{}) (Why, error) {
	v := f.PopValue()
	f.PushValue(values.Bool(!v.Truthy()))
	return whyNone(), nil
}

func binaryOp(fn func(*values.Value, *values.Value) (*values.Value, error)) OpHandler {
	return func(m *VM, f *Frame, arg interface{}) (Why, error) {
		rhs := f.PopValue()
		lhs := f.PopValue()
		result, err := fn(lhs, rhs)
		if err != nil {
			f.raise(typeOrZeroDivisionError(m, err))
			return Why{Kind: WhyException}, nil
		}
		f.PushValue(result)
		return whyNone(), nil
	}
}

// inplaceOp wraps the same binary function as binaryOp: this interpreter
// has no distinct mutable-in-place numeric representation, so INPLACE_* and
// BINARY_* opcodes share handlers: INPLACE_* behaves like BINARY_* for
// immutable numeric operands, which covers every numeric type this Value
// union models.
func inplaceOp(fn func(*values.Value, *values.Value) (*values.Value, error)) OpHandler {
	return binaryOp(fn)
}

func typeOrZeroDivisionError(m *VM, err error) *values.Value {
	if strings.Contains(err.Error(), "division by zero") || strings.Contains(err.Error(), "modulo by zero") {
		return m.newZeroDivisionError(err.Error())
	}
	return m.newTypeError(err.Error())
}

func opBinarySubscr(m *VM, f *Frame, arg interface{}) (Why, error) {
	index := f.PopValue()
	container := f.PopValue()
	result, err := subscript(container, index)
	if err != nil {
		if errors.Is(err, errKeyNotFound) {
			f.raise(m.newKeyError(index.String()))
		} else if errors.Is(err, errNotAnInt) || errors.Is(err, errNotSubscriptable) {
			f.raise(m.newTypeError(err.Error()))
		} else {
			f.raise(m.newIndexError(err.Error()))
		}
		return Why{Kind: WhyException}, nil
	}
	f.PushValue(result)
	return whyNone(), nil
}

func subscript(container, index *values.Value) (*values.Value, error) {
	switch container.Kind {
	case values.KindList:
		items, _ := container.AsList()
		i, ok := index.AsInt()
		if !ok {
			return nil, errNotAnInt
		}
		idx := normalizeIndex(i, len(*items))
		if idx < 0 || idx >= len(*items) {
			return nil, errIndexOutOfRange
		}
		return (*items)[idx], nil
	case values.KindTuple:
		items, _ := container.AsTuple()
		i, ok := index.AsInt()
		if !ok {
			return nil, errNotAnInt
		}
		idx := normalizeIndex(i, len(items))
		if idx < 0 || idx >= len(items) {
			return nil, errIndexOutOfRange
		}
		return items[idx], nil
	case values.KindDict:
		d, _ := container.AsDict()
		v, ok := d.Get(index)
		if !ok {
			return nil, errKeyNotFound
		}
		return v, nil
	case values.KindStr:
		s, _ := container.AsStr()
		i, ok := index.AsInt()
		if !ok {
			return nil, errNotAnInt
		}
		runes := []rune(s)
		idx := normalizeIndex(i, len(runes))
		if idx < 0 || idx >= len(runes) {
			return nil, errIndexOutOfRange
		}
		return values.Str(string(runes[idx])), nil
	default:
		return nil, errNotSubscriptable
	}
}

func normalizeIndex(i int64, length int) int {
	if i < 0 {
		i += int64(length)
	}
	return int(i)
}

func opStoreSubscr(m *VM, f *Frame, arg interface{}) (Why, error) {
	index := f.PopValue()
	container := f.PopValue()
	value := f.PopValue()
	switch container.Kind {
	case values.KindList:
		items, _ := container.AsList()
		i, ok := index.AsInt()
		if !ok {
			f.raise(m.newTypeError("list indices must be integers"))
			return Why{Kind: WhyException}, nil
		}
		idx := normalizeIndex(i, len(*items))
		if idx < 0 || idx >= len(*items) {
			f.raise(m.newIndexError("list assignment index out of range"))
			return Why{Kind: WhyException}, nil
		}
		(*items)[idx] = value
	case values.KindDict:
		d, _ := container.AsDict()
		d.Set(index, value)
	default:
		f.raise(m.newTypeError("object does not support item assignment"))
		return Why{Kind: WhyException}, nil
	}
	return whyNone(), nil
}

func opDeleteSubscr(m *VM, f *Frame, arg interface{}) (Why, error) {
	index := f.PopValue()
	container := f.PopValue()
	switch container.Kind {
	case values.KindDict:
		d, _ := container.AsDict()
		d.Delete(index)
	case values.KindList:
		items, _ := container.AsList()
		i, ok := index.AsInt()
		if !ok {
			f.raise(m.newTypeError("list indices must be integers"))
			return Why{Kind: WhyException}, nil
		}
		idx := normalizeIndex(i, len(*items))
		if idx < 0 || idx >= len(*items) {
			f.raise(m.newIndexError("list assignment index out of range"))
			return Why{Kind: WhyException}, nil
		}
		*items = append((*items)[:idx], (*items)[idx+1:]...)
	default:
		f.raise(m.newTypeError("object does not support item deletion"))
		return Why{Kind: WhyException}, nil
	}
	return whyNone(), nil
}

func opCompareOp(m *VM, f *Frame, arg interface{}) (Why, error) {
	op, ok := arg.(CompareOp)
	if !ok {
		return Why{}, newVMError(ErrBadInstructionArg, "COMPARE_OP requires a CompareOp arg, got %v", arg)
	}
	rhs := f.PopValue()
	lhs := f.PopValue()
	result, err := evalCompare(op, lhs, rhs)
	if err != nil {
		f.raise(m.newTypeError(err.Error()))
		return Why{Kind: WhyException}, nil
	}
	f.PushValue(result)
	return whyNone(), nil
}

// CompareOp enumerates COMPARE_OP's argument space: the six rich
// comparisons plus the two guest-visible membership/identity tests and the
// exception-matching pseudo-op that except clauses compile to.
type CompareOp int

const (
	CmpLT CompareOp = iota
	CmpLE
	CmpEQ
	CmpNE
	CmpGT
	CmpGE
	CmpIn
	CmpNotIn
	CmpIs
	CmpIsNot
	CmpExceptionMatch
)

func evalCompare(op CompareOp, lhs, rhs *values.Value) (*values.Value, error) {
	switch op {
	case CmpIs:
		return values.Bool(lhs.Is(rhs)), nil
	case CmpIsNot:
		return values.Bool(!lhs.Is(rhs)), nil
	case CmpIn:
		ok, err := rhs.Contains(lhs)
		if err != nil {
			return nil, err
		}
		return values.Bool(ok), nil
	case CmpNotIn:
		ok, err := rhs.Contains(lhs)
		if err != nil {
			return nil, err
		}
		return values.Bool(!ok), nil
	case CmpExceptionMatch:
		return values.Bool(exceptionMatches(lhs, rhs)), nil
	}

	if op == CmpEQ {
		return values.Bool(lhs.Equal(rhs)), nil
	}
	if op == CmpNE {
		return values.Bool(!lhs.Equal(rhs)), nil
	}

	c, err := lhs.Compare(rhs)
	if err != nil {
		return nil, err
	}
	switch op {
	case CmpLT:
		return values.Bool(c < 0), nil
	case CmpLE:
		return values.Bool(c <= 0), nil
	case CmpGT:
		return values.Bool(c > 0), nil
	case CmpGE:
		return values.Bool(c >= 0), nil
	default:
		return nil, errUnknownCompareOp
	}
}

// exceptionMatches implements except-clause matching: rhs may be a single
// class or a tuple of classes, and lhs (the raised exception's type/value)
// matches if it is an instance of any of them.
func exceptionMatches(lhs, rhs *values.Value) bool {
	candidates := []*values.Value{rhs}
	if items, ok := rhs.AsTuple(); ok {
		candidates = items
	}
	var lhsClass *values.Class
	if exc := lhs.AsException(); exc != nil {
		lhsClass = exc.Class
	} else if cls, ok := lhs.AsClass(); ok {
		lhsClass = cls
	}
	if lhsClass == nil {
		return false
	}
	for _, c := range candidates {
		if cls, ok := c.AsClass(); ok && lhsClass.IsSubclass(cls) {
			return true
		}
	}
	return false
}

var stackAndBinaryHandlers = map[opcodes.Opcode]OpHandler{
	opcodes.POP_TOP:  opPopTop,
	opcodes.ROT_TWO:   opRotTwo,
	opcodes.ROT_THREE: opRotThree,
	opcodes.ROT_FOUR:  opRotFour,
	opcodes.DUP_TOP:     opDupTop,
	opcodes.DUP_TOP_TWO: opDupTopTwo,
	opcodes.DUP_TOPX:    opDupTopX,

	opcodes.UNARY_POSITIVE: unaryOp(func(v *values.Value) (*values.Value, error) { return v, nil }),
	opcodes.UNARY_NEGATIVE: unaryOp((*values.Value).Negate),
	opcodes.UNARY_NOT:      opUnaryNot,
	opcodes.UNARY_CONVERT:  opUnaryConvert,
	opcodes.UNARY_INVERT:   unaryOp((*values.Value).Invert),

	opcodes.BINARY_POWER:       binaryOp((*values.Value).Power),
	opcodes.BINARY_MULTIPLY:    binaryOp((*values.Value).Multiply),
	opcodes.BINARY_DIVIDE:      binaryOp((*values.Value).ClassicDivide),
	opcodes.BINARY_FLOOR_DIVIDE: binaryOp((*values.Value).FloorDivide),
	opcodes.BINARY_TRUE_DIVIDE:  binaryOp((*values.Value).Divide),
	opcodes.BINARY_MODULO:      binaryOp((*values.Value).Modulo),
	opcodes.BINARY_ADD:         binaryOp((*values.Value).Add),
	opcodes.BINARY_SUBTRACT:    binaryOp((*values.Value).Subtract),
	opcodes.BINARY_SUBSCR:      opBinarySubscr,
	opcodes.BINARY_LSHIFT:      binaryOp((*values.Value).LShift),
	opcodes.BINARY_RSHIFT:      binaryOp((*values.Value).RShift),
	opcodes.BINARY_AND:         binaryOp((*values.Value).And),
	opcodes.BINARY_XOR:         binaryOp((*values.Value).Xor),
	opcodes.BINARY_OR:          binaryOp((*values.Value).Or),

	opcodes.INPLACE_POWER:       inplaceOp((*values.Value).Power),
	opcodes.INPLACE_MULTIPLY:    inplaceOp((*values.Value).Multiply),
	opcodes.INPLACE_DIVIDE:      inplaceOp((*values.Value).ClassicDivide),
	opcodes.INPLACE_FLOOR_DIVIDE: inplaceOp((*values.Value).FloorDivide),
	opcodes.INPLACE_TRUE_DIVIDE:  inplaceOp((*values.Value).Divide),
	opcodes.INPLACE_MODULO:      inplaceOp((*values.Value).Modulo),
	opcodes.INPLACE_ADD:         inplaceOp((*values.Value).Add),
	opcodes.INPLACE_SUBTRACT:    inplaceOp((*values.Value).Subtract),
	opcodes.INPLACE_LSHIFT:      inplaceOp((*values.Value).LShift),
	opcodes.INPLACE_RSHIFT:      inplaceOp((*values.Value).RShift),
	opcodes.INPLACE_AND:         inplaceOp((*values.Value).And),
	opcodes.INPLACE_XOR:         inplaceOp((*values.Value).Xor),
	opcodes.INPLACE_OR:          inplaceOp((*values.Value).Or),

	opcodes.STORE_SUBSCR:  opStoreSubscr,
	opcodes.DELETE_SUBSCR: opDeleteSubscr,

	opcodes.COMPARE_OP: opCompareOp,
}
