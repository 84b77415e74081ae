package registry

import (
	"fmt"

	"github.com/wudi/pyvm/values"
)

// Builtins returns the default name -> callable table every frame's
// Builtins dict falls back to on LOAD_NAME/LOAD_GLOBAL miss. Only the
// builtins the interpreter core actually needs are implemented; everything
// else is deliberately absent rather than stubbed, so a guest program
// calling a missing builtin gets a clean NameError instead of a silent
// no-op.
func Builtins(exc *ExceptionHierarchy) map[string]*values.Value {
	b := map[string]*values.Value{
		"print":      host("print", builtinPrint),
		"len":        host("len", builtinLen),
		"isinstance": host("isinstance", builtinIsinstance),
		"repr":       host("repr", builtinRepr),
		"str":        host("str", builtinStr),
		"int":        host("int", builtinInt),
		"float":      host("float", builtinFloat),
		"bool":       host("bool", builtinBool),
		"range":      host("range", builtinRange),
		"globals":    host("globals", builtinIdentityPlaceholder), // redirected at the call site, see vm.redirectedBuiltin
		"locals":     host("locals", builtinIdentityPlaceholder),
	}
	for name, cls := range exc.AsBuiltins() {
		b[name] = cls
	}
	return b
}

func host(name string, fn func([]*values.Value, map[string]*values.Value) (*values.Value, error)) *values.Value {
	return values.HostCallableValue(&values.HostCallable{Name: name, Fn: fn})
}

func builtinIdentityPlaceholder(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	return values.NewDictValue(), nil
}

func builtinPrint(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	fmt.Println(out)
	return values.None(), nil
}

func builtinLen(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len() takes exactly one argument (%d given)", len(args))
	}
	v := args[0]
	switch v.Kind {
	case values.KindStr:
		s, _ := v.AsStr()
		return values.Int(int64(len(s))), nil
	case values.KindList:
		items, _ := v.AsList()
		return values.Int(int64(len(*items))), nil
	case values.KindTuple:
		items, _ := v.AsTuple()
		return values.Int(int64(len(items))), nil
	case values.KindDict:
		d, _ := v.AsDict()
		return values.Int(int64(d.Len())), nil
	default:
		return nil, fmt.Errorf("object of type '%s' has no len()", v.TypeName())
	}
}

func builtinIsinstance(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("isinstance() takes exactly two arguments (%d given)", len(args))
	}
	cls, ok := args[1].AsClass()
	if !ok {
		return nil, fmt.Errorf("isinstance() arg 2 must be a class")
	}
	if exc := args[0].AsException(); exc != nil {
		return values.Bool(exc.Class.IsSubclass(cls)), nil
	}
	if vcls, ok := args[0].AsClass(); ok {
		return values.Bool(vcls.IsSubclass(cls)), nil
	}
	return values.Bool(false), nil
}

func builtinRepr(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("repr() takes exactly one argument (%d given)", len(args))
	}
	return values.Str(args[0].String()), nil
}

func builtinStr(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	if len(args) == 0 {
		return values.Str(""), nil
	}
	return values.Str(args[0].String()), nil
}

func builtinInt(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	if len(args) == 0 {
		return values.Int(0), nil
	}
	if i, ok := args[0].AsInt(); ok {
		return values.Int(i), nil
	}
	if f, ok := args[0].AsFloat(); ok {
		return values.Int(int64(f)), nil
	}
	return nil, fmt.Errorf("invalid literal for int(): %s", args[0].String())
}

func builtinFloat(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	if len(args) == 0 {
		return values.Float(0), nil
	}
	if f, ok := args[0].AsFloat(); ok {
		return values.Float(f), nil
	}
	if i, ok := args[0].AsInt(); ok {
		return values.Float(float64(i)), nil
	}
	return nil, fmt.Errorf("invalid literal for float(): %s", args[0].String())
}

func builtinBool(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	if len(args) == 0 {
		return values.Bool(false), nil
	}
	return values.Bool(args[0].Truthy()), nil
}

func builtinRange(args []*values.Value, kwargs map[string]*values.Value) (*values.Value, error) {
	var start, stop, step int64 = 0, 0, 1
	switch len(args) {
	case 1:
		v, _ := args[0].AsInt()
		stop = v
	case 2:
		v0, _ := args[0].AsInt()
		v1, _ := args[1].AsInt()
		start, stop = v0, v1
	case 3:
		v0, _ := args[0].AsInt()
		v1, _ := args[1].AsInt()
		v2, _ := args[2].AsInt()
		start, stop, step = v0, v1, v2
		if step == 0 {
			return nil, fmt.Errorf("range() arg 3 must not be zero")
		}
	default:
		return nil, fmt.Errorf("range() expected 1 to 3 arguments, got %d", len(args))
	}
	var out []*values.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, values.Int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, values.Int(i))
		}
	}
	return values.List(out), nil
}
