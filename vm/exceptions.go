package vm

import "github.com/wudi/pyvm/values"

// raise installs exc as the frame's active exception, the host-side half of
// a `raise` statement or a builtin's internal fault: the opcode handler or
// call machinery that calls this still returns WhyException itself; the
// unwinder reads LastException, it does not set it.
func (f *Frame) raise(exc *values.Value) {
	f.LastException = &ExcInfo{
		Type:      values.ClassValue(exc.AsException().Class),
		Value:     exc,
		Traceback: values.None(),
	}
}

// The newXError helpers build a guest exception instance of the matching
// builtin class for the VM's dialect. They mirror do_raise's normalization
// in that the class and the instance are always produced together, never a
// bare class left for the unwinder to instantiate later.

func (m *VM) newTypeError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.TypeError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

func (m *VM) newValueError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.ValueError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

func (m *VM) newNameError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.NameError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

func (m *VM) newUnboundLocalError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.UnboundLocalError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

func (m *VM) newAttributeError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.AttributeError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

func (m *VM) newIndexError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.IndexError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

func (m *VM) newKeyError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.KeyError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

func (m *VM) newZeroDivisionError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.ZeroDivisionError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

func (m *VM) newStopIteration() *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.StopIteration, nil, nil)
	}, "StopIteration")
}

func (m *VM) newImportError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.ImportError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

func (m *VM) newRuntimeError(message string) *values.Value {
	return excOrFallback(m.Exceptions != nil, func() *values.Value {
		return values.NewException(m.Exceptions.RuntimeError, []*values.Value{values.Str(message)}, nil)
	}, message)
}

// excOrFallback guards against a VM constructed without New (so
// Exceptions is nil) — never expected in practice, but cheaper than
// nil-checking at every call site.
func excOrFallback(ok bool, build func() *values.Value, message string) *values.Value {
	if ok {
		return build()
	}
	return values.NewException(&values.Class{Name: "RuntimeError"}, []*values.Value{values.Str(message)}, nil)
}
