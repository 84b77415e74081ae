// Package registry builds the default environment a VM starts with: the
// builtin exception class hierarchy and the builtin callables (print, len,
// isinstance, ...) that every dialect's globals/builtins dict is seeded
// with. None of this is bytecode-dispatch logic, so it lives in its own
// package rather than inline in the evaluator.
package registry

import "github.com/wudi/pyvm/values"

// ExceptionHierarchy is the builtin exception class hierarchy, rooted at
// BaseException the way CPython 2.5+ organizes it. The 2.x shape
// additionally has StandardError as an intermediate base (removed in 3.x);
// NewExceptionHierarchy builds either shape and vm.New picks the 2.x one
// for every dialect below 3.0.
type ExceptionHierarchy struct {
	BaseException      *values.Class
	Exception           *values.Class
	StandardError       *values.Class // 2.x only
	TypeError            *values.Class
	ValueError           *values.Class
	NameError            *values.Class
	UnboundLocalError    *values.Class
	ImportError          *values.Class
	LookupError          *values.Class
	IndexError           *values.Class
	KeyError             *values.Class
	AttributeError       *values.Class
	ArithmeticError      *values.Class
	ZeroDivisionError    *values.Class
	RuntimeError         *values.Class
	NotImplementedError  *values.Class
	StopIteration        *values.Class
	AssertionError       *values.Class
	IOError              *values.Class
	OverflowError        *values.Class
	SystemExit           *values.Class
	KeyboardInterrupt    *values.Class
	GeneratorExit        *values.Class
}

func class(name string, bases ...*values.Class) *values.Class {
	return &values.Class{Name: name, Bases: bases, Dict: map[string]*values.Value{}}
}

// NewExceptionHierarchy builds the exception classes for a given dialect
// version. legacyStandardError controls whether StandardError is spliced
// in between BaseException and the concrete error classes, matching
// Python 2's layout; 3.x drops it.
func NewExceptionHierarchy(legacyStandardError bool) *ExceptionHierarchy {
	h := &ExceptionHierarchy{}
	h.BaseException = class("BaseException")
	h.Exception = class("Exception", h.BaseException)

	root := h.Exception
	if legacyStandardError {
		h.StandardError = class("StandardError", h.Exception)
		root = h.StandardError
	}

	h.TypeError = class("TypeError", root)
	h.ValueError = class("ValueError", root)
	h.NameError = class("NameError", root)
	h.UnboundLocalError = class("UnboundLocalError", h.NameError)
	h.ImportError = class("ImportError", root)
	h.LookupError = class("LookupError", root)
	h.IndexError = class("IndexError", h.LookupError)
	h.KeyError = class("KeyError", h.LookupError)
	h.AttributeError = class("AttributeError", root)
	h.ArithmeticError = class("ArithmeticError", root)
	h.ZeroDivisionError = class("ZeroDivisionError", h.ArithmeticError)
	h.OverflowError = class("OverflowError", h.ArithmeticError)
	h.RuntimeError = class("RuntimeError", root)
	h.NotImplementedError = class("NotImplementedError", h.RuntimeError)
	h.AssertionError = class("AssertionError", root)
	h.IOError = class("IOError", root)
	h.StopIteration = class("StopIteration", h.Exception)
	h.SystemExit = class("SystemExit", h.BaseException)
	h.KeyboardInterrupt = class("KeyboardInterrupt", h.BaseException)
	h.GeneratorExit = class("GeneratorExit", h.BaseException)

	return h
}

// AsBuiltins exposes every class in the hierarchy under its name, the way
// these names are visible as builtins in real CPython.
func (h *ExceptionHierarchy) AsBuiltins() map[string]*values.Value {
	out := map[string]*values.Value{
		"BaseException":       values.ClassValue(h.BaseException),
		"Exception":           values.ClassValue(h.Exception),
		"TypeError":           values.ClassValue(h.TypeError),
		"ValueError":          values.ClassValue(h.ValueError),
		"NameError":           values.ClassValue(h.NameError),
		"UnboundLocalError":   values.ClassValue(h.UnboundLocalError),
		"ImportError":         values.ClassValue(h.ImportError),
		"LookupError":         values.ClassValue(h.LookupError),
		"IndexError":          values.ClassValue(h.IndexError),
		"KeyError":            values.ClassValue(h.KeyError),
		"AttributeError":      values.ClassValue(h.AttributeError),
		"ArithmeticError":     values.ClassValue(h.ArithmeticError),
		"ZeroDivisionError":   values.ClassValue(h.ZeroDivisionError),
		"OverflowError":       values.ClassValue(h.OverflowError),
		"RuntimeError":        values.ClassValue(h.RuntimeError),
		"NotImplementedError": values.ClassValue(h.NotImplementedError),
		"AssertionError":      values.ClassValue(h.AssertionError),
		"IOError":             values.ClassValue(h.IOError),
		"StopIteration":       values.ClassValue(h.StopIteration),
		"SystemExit":          values.ClassValue(h.SystemExit),
		"KeyboardInterrupt":   values.ClassValue(h.KeyboardInterrupt),
		"GeneratorExit":       values.ClassValue(h.GeneratorExit),
	}
	if h.StandardError != nil {
		out["StandardError"] = values.ClassValue(h.StandardError)
	}
	return out
}

// New builds a *values.Value exception instance of this class with a single
// string message argument — the common case (`raise TypeError("...")`).
func New(cls *values.Class, message string) *values.Value {
	return values.NewException(cls, []*values.Value{values.Str(message)}, nil)
}
