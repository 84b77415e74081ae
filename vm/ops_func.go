package vm

import (
	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
)

// opMakeFunction implements the 2.x MAKE_FUNCTION: TOS is the code object,
// popped first; below it are the default values for the trailing
// positional parameters, count given by arg (arg = number of defaults).
// 3.0-3.2's packed argument shape is opMakeFunction32; 3.3's qualname
// shape is out of range (see DESIGN.md).
func opMakeFunction(m *VM, f *Frame, arg interface{}) (Why, error) {
	ndefaults, ok := arg.(int)
	if !ok || ndefaults < 0 {
		return Why{}, newVMError(ErrBadInstructionArg, "MAKE_FUNCTION requires a non-negative int arg, got %v", arg)
	}
	codeVal := f.PopValue()
	code, ok := codeVal.Data.(*Code)
	if !ok {
		return Why{}, newVMError(ErrBadInstructionArg, "MAKE_FUNCTION TOS is not a code object")
	}
	defaults := f.PopValueN(ndefaults)
	fn := &values.Function{
		Name:     code.Name,
		QualName: code.Name,
		Code:     code,
		Globals:  f.Globals,
		Defaults: defaults,
		Version:  m.Dialect.Version,
	}
	f.PushValue(values.FunctionValue(fn))
	return whyNone(), nil
}

// opMakeFunction32 implements 3.0-3.2's MAKE_FUNCTION: argc packs
// (annotate_count<<16 | kw_default_count<<8 | default_count). Annotation
// values are popped and discarded — this interpreter does not model
// parameter annotations (Function.Annotations stays nil in that case).
// No qualname pop: that is 3.3+, out of range here.
func opMakeFunction32(m *VM, f *Frame, arg interface{}) (Why, error) {
	packed, ok := arg.(int)
	if !ok || packed < 0 {
		return Why{}, newVMError(ErrBadInstructionArg, "MAKE_FUNCTION requires a non-negative packed int arg, got %v", arg)
	}
	annotateCount := (packed >> 16) & 0xff
	kwDefCount := (packed >> 8) & 0xff
	defCount := packed & 0xff

	codeVal := f.PopValue()
	code, ok := codeVal.Data.(*Code)
	if !ok {
		return Why{}, newVMError(ErrBadInstructionArg, "MAKE_FUNCTION TOS is not a code object")
	}

	if annotateCount > 0 {
		f.PopValueN(annotateCount) // names tuple + values, discarded
	}

	var kwDefaults map[string]*values.Value
	if kwDefCount > 0 {
		pairs := f.PopValueN(2 * kwDefCount)
		kwDefaults = make(map[string]*values.Value, kwDefCount)
		for i := 0; i < len(pairs); i += 2 {
			name, _ := pairs[i].AsStr()
			kwDefaults[name] = pairs[i+1]
		}
	}

	defaults := f.PopValueN(defCount)

	fn := &values.Function{
		Name:       code.Name,
		QualName:   code.Name,
		Code:       code,
		Globals:    f.Globals,
		Defaults:   defaults,
		KwDefaults: kwDefaults,
		Version:    m.Dialect.Version,
	}
	f.PushValue(values.FunctionValue(fn))
	return whyNone(), nil
}

// opMakeClosure is MAKE_FUNCTION plus a tuple of cells, sitting immediately
// below the code object, that becomes the new function's captured closure.
func opMakeClosure(m *VM, f *Frame, arg interface{}) (Why, error) {
	ndefaults, ok := arg.(int)
	if !ok || ndefaults < 0 {
		return Why{}, newVMError(ErrBadInstructionArg, "MAKE_CLOSURE requires a non-negative int arg, got %v", arg)
	}
	codeVal := f.PopValue()
	code, ok := codeVal.Data.(*Code)
	if !ok {
		return Why{}, newVMError(ErrBadInstructionArg, "MAKE_CLOSURE TOS is not a code object")
	}
	cellsTuple := f.PopValue()
	defaults := f.PopValueN(ndefaults)
	items, ok := cellsTuple.AsTuple()
	if !ok {
		return Why{}, newVMError(ErrBadInstructionArg, "MAKE_CLOSURE expects a tuple of cells below the code object")
	}
	closure := make([]*values.Cell, len(items))
	for i, it := range items {
		c, ok := it.Data.(*values.Cell)
		if !ok {
			return Why{}, newVMError(ErrBadInstructionArg, "MAKE_CLOSURE tuple element %d is not a cell", i)
		}
		closure[i] = c
	}
	fn := &values.Function{
		Name:     code.Name,
		QualName: code.Name,
		Code:     code,
		Globals:  f.Globals,
		Defaults: defaults,
		Closure:  closure,
		Version:  m.Dialect.Version,
	}
	f.PushValue(values.FunctionValue(fn))
	return whyNone(), nil
}

// opCallFunction implements CALL_FUNCTION: arg packs (nkwargs<<8 | nposargs)
// per the classic encoding; kwargs are pushed as alternating name/value
// pairs above the positional args, callee below all of it.
func opCallFunction(m *VM, f *Frame, arg interface{}) (Why, error) {
	n, ok := arg.(int)
	if !ok || n < 0 {
		return Why{}, newVMError(ErrBadInstructionArg, "CALL_FUNCTION requires a non-negative int arg, got %v", arg)
	}
	nargs := n & 0xff
	nkwargs := (n >> 8) & 0xff

	kwargs := make(map[string]*values.Value, nkwargs)
	for i := 0; i < nkwargs; i++ {
		val := f.PopValue()
		key := f.PopValue()
		name, _ := key.AsStr()
		kwargs[name] = val
	}
	posargs := f.PopValueN(nargs)
	callee := f.PopValue()

	result, why, err := m.callValue(f, callee, posargs, kwargs)
	if err != nil {
		return Why{}, err
	}
	if why.Kind == WhyException {
		return why, nil
	}
	f.PushValue(result)
	return whyNone(), nil
}

// opCallFunctionVar/opCallFunctionKw/opCallFunctionVarKw implement the
// *args/**kwargs call-site variants: an extra keyword-dict (TOS) and/or
// positional-tuple argument sits above the packed positional/keyword args
// and is popped first, per the classic CALL_FUNCTION_VAR[_KW] encoding.
func opCallFunctionVar(m *VM, f *Frame, arg interface{}) (Why, error) {
	return callFunctionVariant(m, f, arg, true, false)
}

func opCallFunctionKw(m *VM, f *Frame, arg interface{}) (Why, error) {
	return callFunctionVariant(m, f, arg, false, true)
}

func opCallFunctionVarKw(m *VM, f *Frame, arg interface{}) (Why, error) {
	return callFunctionVariant(m, f, arg, true, true)
}

func callFunctionVariant(m *VM, f *Frame, arg interface{}, hasVar, hasKw bool) (Why, error) {
	n, ok := arg.(int)
	if !ok || n < 0 {
		return Why{}, newVMError(ErrBadInstructionArg, "CALL_FUNCTION_* requires a non-negative int arg, got %v", arg)
	}
	nargs := n & 0xff
	nkwargs := (n >> 8) & 0xff

	var extraKwDict *values.Value
	if hasKw {
		extraKwDict = f.PopValue()
	}
	var extraVarTuple *values.Value
	if hasVar {
		extraVarTuple = f.PopValue()
	}

	kwargs := make(map[string]*values.Value, nkwargs)
	for i := 0; i < nkwargs; i++ {
		val := f.PopValue()
		key := f.PopValue()
		name, _ := key.AsStr()
		kwargs[name] = val
	}
	posargs := f.PopValueN(nargs)
	callee := f.PopValue()

	if extraVarTuple != nil {
		items, ok := extraVarTuple.AsTuple()
		if !ok {
			f.raise(m.newTypeError("argument after * must be a tuple"))
			return Why{Kind: WhyException}, nil
		}
		posargs = append(posargs, items...)
	}
	if extraKwDict != nil {
		d, ok := extraKwDict.AsDict()
		if ok {
			for _, item := range d.Items() {
				name, _ := item.Key.AsStr()
				kwargs[name] = item.Value
			}
		}
	}

	result, why, err := m.callValue(f, callee, posargs, kwargs)
	if err != nil {
		return Why{}, err
	}
	if why.Kind == WhyException {
		return why, nil
	}
	f.PushValue(result)
	return whyNone(), nil
}

var funcHandlers = map[opcodes.Opcode]OpHandler{
	opcodes.MAKE_FUNCTION:        opMakeFunction,
	opcodes.MAKE_CLOSURE:         opMakeClosure,
	opcodes.CALL_FUNCTION:        opCallFunction,
	opcodes.CALL_FUNCTION_VAR:    opCallFunctionVar,
	opcodes.CALL_FUNCTION_KW:     opCallFunctionKw,
	opcodes.CALL_FUNCTION_VAR_KW: opCallFunctionVarKw,
	opcodes.RETURN_VALUE:         opReturnValue,
	opcodes.YIELD_VALUE:          opYieldValue,
}

func opReturnValue(m *VM, f *Frame, arg interface{}) (Why, error) {
	f.ReturnValue = f.PopValue()
	return Why{Kind: WhyReturn}, nil
}

func opYieldValue(m *VM, f *Frame, arg interface{}) (Why, error) {
	f.ReturnValue = f.PopValue()
	return Why{Kind: WhyYield}, nil
}
