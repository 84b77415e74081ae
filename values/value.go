// Package values implements the dynamically-typed runtime value that flows
// through the interpreter's operand stack, locals, and globals. It mirrors
// the host language's own arithmetic, comparison, and truthiness rules so
// that opcode handlers never need to special-case a concrete Go type.
package values

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind tags the variant a Value currently holds.
type Kind byte

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindBytes
	KindTuple
	KindList
	KindDict
	KindSet
	KindSlice
	KindCell
	KindFunction
	KindBoundMethod
	KindClass
	KindModule
	KindTraceback
	KindException
	KindHostCallable
	KindGenerator
	KindCode
)

var kindNames = [...]string{
	"None", "Bool", "Int", "Float", "Str", "Bytes", "Tuple", "List", "Dict",
	"Set", "Slice", "Cell", "Function", "BoundMethod", "Class", "Module",
	"Traceback", "Exception", "HostCallable", "Generator", "Code",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Value is the interpreter's tagged runtime value.
// Data holds the variant-specific payload; its concrete type is determined
// entirely by Kind, never inspected independently of it.
type Value struct {
	Kind Kind
	Data interface{}
}

// Cell is a mutable one-slot box used to share a variable between an
// enclosing frame and the closures that capture it. Multiple Functions and
// Frames may hold the same *Cell; writes through any of them are visible to
// all.
type Cell struct {
	value *Value
}

// NewCell creates a cell. A nil initial is treated as an empty cell (read
// before first store raises NameError at the call site, matching
// LOAD_DEREF on an unbound freevar).
func NewCell(initial *Value) *Cell {
	return &Cell{value: initial}
}

func (c *Cell) Get() *Value   { return c.value }
func (c *Cell) Set(v *Value) { c.value = v }
func (c *Cell) Bound() bool   { return c.value != nil }

// Slice represents the object built by BUILD_SLICE.
type Slice struct {
	Start, Stop, Step *Value
}

// Class is a minimal class object: a name, zero or more bases (for
// COMPARE_OP's exception-match and issubclass checks) and a namespace dict
// populated by BUILD_CLASS / __build_class__. Full object-instance layout
// (arbitrary user instances) is part of the host object model and out of
// scope here; the one instantiation path this interpreter needs —
// exceptions — is implemented directly (see NewException/Instantiate).
type Class struct {
	Name  string
	Bases []*Class
	Dict  map[string]*Value
}

// IsSubclass reports whether c is other or descends from it — the "x is a
// subclass of y" half of COMPARE_OP's exception-match comparator.
func (c *Class) IsSubclass(other *Class) bool {
	if c == nil || other == nil {
		return false
	}
	if c == other {
		return true
	}
	for _, b := range c.Bases {
		if b.IsSubclass(other) {
			return true
		}
	}
	return false
}

// Instantiate builds a new exception Value of this class. Any Class,
// exception or not, yields an exception value (see DESIGN.md, Open
// Questions); the returned error is always nil.
func (c *Class) Instantiate(args []*Value) (*Value, error) {
	return NewException(c, args, nil), nil
}

// Module is the namespace object produced by a host import.
type Module struct {
	Name string
	Dict map[string]*Value
}

// Function is a user-defined callable: a code object plus the captured
// binding environment. The VM/Code types live in package vm; Function holds
// them as interface{} to avoid an import cycle (vm imports values, not the
// reverse), unwrapped by the vm package at call sites.
type Function struct {
	Name           string
	QualName       string
	Code           interface{} // *vm.Code
	Globals        map[string]*Value
	Defaults       []*Value
	KwDefaults     map[string]*Value
	Annotations    map[string]*Value
	Closure        []*Cell
	Version        float64
}

// BoundMethod pairs a receiver with the function it was looked up from, plus
// the class that declared it (used to validate the receiver's type at call
// time, matching CPython 2.x unbound/bound method semantics).
type BoundMethod struct {
	Receiver *Value
	Func     *Function
	Class    *Class
}

// Traceback is a minimal, cons-list traceback entry.
type Traceback struct {
	FrameName string
	Lasti     int
	Line      int
	Next      *Traceback
}

// Exception is both the payload of a raised error and an ordinary value
// (e.g. the result of `ValueError('x')`, before it is ever raised). Args
// holds the constructor's positional arguments (conventionally the error
// message is Args[0]).
type Exception struct {
	Class     *Class
	Args      []*Value
	Cause     *Value
	Traceback *Value // *Traceback wrapped in a Value, or None
}

func NewException(class *Class, args []*Value, tb *Value) *Value {
	if tb == nil {
		tb = None()
	}
	return &Value{Kind: KindException, Data: &Exception{Class: class, Args: args, Traceback: tb}}
}

func (v *Value) AsException() *Exception {
	if v == nil || v.Kind != KindException {
		return nil
	}
	return v.Data.(*Exception)
}

// HostCallable wraps a Go function as a callable guest value — the
// embedding surface for builtins (print, len, isinstance, ...). Errors
// returned here are converted to guest exceptions at the call site, never
// propagated as Go errors past the VM boundary.
type HostCallable struct {
	Name string
	Fn   func(args []*Value, kwargs map[string]*Value) (*Value, error)
}

// ---- constructors ----

func None() *Value           { return &Value{Kind: KindNone} }
func Bool(b bool) *Value     { return &Value{Kind: KindBool, Data: b} }
func Int(i int64) *Value     { return &Value{Kind: KindInt, Data: i} }
func Float(f float64) *Value { return &Value{Kind: KindFloat, Data: f} }
func Str(s string) *Value    { return &Value{Kind: KindStr, Data: s} }
func Bytes(b []byte) *Value  { return &Value{Kind: KindBytes, Data: b} }

func Tuple(items []*Value) *Value { return &Value{Kind: KindTuple, Data: append([]*Value{}, items...)} }
func List(items []*Value) *Value  { return &Value{Kind: KindList, Data: &items} }

// Dict wraps a Go map as a guest dict. Keys are the canonical string form
// of the guest key (sufficient for the name-keyed dicts this interpreter
// actually builds: globals, locals, STORE_MAP targets).
type Dict struct {
	keys    []string
	keyVals map[string]*Value
	values  map[string]*Value
}

func NewDict() *Dict {
	return &Dict{values: make(map[string]*Value), keyVals: make(map[string]*Value)}
}

func (d *Dict) Set(key *Value, val *Value) {
	k := key.dictKey()
	if _, exists := d.values[k]; !exists {
		d.keys = append(d.keys, k)
	}
	d.keyVals[k] = key
	d.values[k] = val
}

func (d *Dict) Get(key *Value) (*Value, bool) {
	v, ok := d.values[key.dictKey()]
	return v, ok
}

func (d *Dict) Delete(key *Value) {
	k := key.dictKey()
	if _, ok := d.values[k]; !ok {
		return
	}
	delete(d.values, k)
	delete(d.keyVals, k)
	for i, kk := range d.keys {
		if kk == k {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the dict's keys in insertion order, as the original guest
// Values they were set with (not the canonical string encoding).
func (d *Dict) Keys() []*Value {
	out := make([]*Value, len(d.keys))
	for i, k := range d.keys {
		out[i] = d.keyVals[k]
	}
	return out
}

// Items returns (key, value) pairs in insertion order.
func (d *Dict) Items() []DictItem {
	out := make([]DictItem, len(d.keys))
	for i, k := range d.keys {
		out[i] = DictItem{Key: d.keyVals[k], Value: d.values[k]}
	}
	return out
}

// DictItem is one key/value pair as returned by Dict.Items.
type DictItem struct {
	Key   *Value
	Value *Value
}

func DictValue(d *Dict) *Value { return &Value{Kind: KindDict, Data: d} }

func NewDictValue() *Value { return DictValue(NewDict()) }

// Set (the container kind) is backed by the same key scheme as Dict.
type Set struct {
	members map[string]*Value
}

func NewSet(items []*Value) *Value {
	s := &Set{members: make(map[string]*Value, len(items))}
	for _, it := range items {
		s.members[it.dictKey()] = it
	}
	return &Value{Kind: KindSet, Data: s}
}

// Members returns the set's elements in a stable (canonical-key) order, so
// iteration over a set is deterministic from run to run.
func (s *Set) Members() []*Value {
	keys := make([]string, 0, len(s.members))
	for k := range s.members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Value, len(keys))
	for i, k := range keys {
		out[i] = s.members[k]
	}
	return out
}

func SliceValue(start, stop, step *Value) *Value {
	return &Value{Kind: KindSlice, Data: &Slice{Start: start, Stop: stop, Step: step}}
}

func CellValue(c *Cell) *Value { return &Value{Kind: KindCell, Data: c} }

func FunctionValue(f *Function) *Value { return &Value{Kind: KindFunction, Data: f} }

func BoundMethodValue(bm *BoundMethod) *Value { return &Value{Kind: KindBoundMethod, Data: bm} }

func ClassValue(c *Class) *Value { return &Value{Kind: KindClass, Data: c} }

func ModuleValue(m *Module) *Value { return &Value{Kind: KindModule, Data: m} }

func TracebackValue(t *Traceback) *Value { return &Value{Kind: KindTraceback, Data: t} }

func HostCallableValue(h *HostCallable) *Value { return &Value{Kind: KindHostCallable, Data: h} }

// GeneratorValue wraps a *vm.Generator (held as interface{} to avoid an
// import cycle — vm imports values, not the reverse; see Function.Code for
// the same pattern). A suspendable generator
// handle is not itself a host primitive but must still flow through the
// stack, locals, and FOR_ITER like any other value.
func GeneratorValue(g interface{}) *Value { return &Value{Kind: KindGenerator, Data: g} }

// CodeValue wraps a *vm.Code (held as interface{}, same import-cycle
// avoidance as Function.Code/GeneratorValue) so a nested function or class
// body's compiled code can sit in a Code's constant pool and be pushed by
// LOAD_CONST ahead of MAKE_FUNCTION/MAKE_CLOSURE/BUILD_CLASS.
func CodeValue(c interface{}) *Value { return &Value{Kind: KindCode, Data: c} }

func (v *Value) AsGenerator() interface{} {
	if v.Kind != KindGenerator {
		return nil
	}
	return v.Data
}

// ---- predicates / conversions ----

func (v *Value) dictKey() string {
	switch v.Kind {
	case KindStr:
		return "s:" + v.Data.(string)
	case KindInt:
		return fmt.Sprintf("i:%d", v.Data.(int64))
	case KindFloat:
		return fmt.Sprintf("f:%v", v.Data.(float64))
	case KindBool:
		return fmt.Sprintf("b:%v", v.Data.(bool))
	case KindNone:
		return "n"
	default:
		return fmt.Sprintf("p:%p", v)
	}
}

func (v *Value) IsNone() bool { return v == nil || v.Kind == KindNone }

// Truthy implements the host's boolean-coercion rule used by the
// conditional jumps, UNARY_NOT, WITH_CLEANUP's suppression check and bool().
func (v *Value) Truthy() bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case KindNone:
		return false
	case KindBool:
		return v.Data.(bool)
	case KindInt:
		return v.Data.(int64) != 0
	case KindFloat:
		return v.Data.(float64) != 0
	case KindStr:
		return len(v.Data.(string)) != 0
	case KindBytes:
		return len(v.Data.([]byte)) != 0
	case KindTuple:
		return len(v.Data.([]*Value)) != 0
	case KindList:
		return len(*v.Data.(*[]*Value)) != 0
	case KindDict:
		return v.Data.(*Dict).Len() != 0
	case KindSet:
		return len(v.Data.(*Set).members) != 0
	default:
		return true
	}
}

func (v *Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Data.(int64), true
	case KindBool:
		if v.Data.(bool) {
			return 1, true
		}
		return 0, true
	case KindFloat:
		return int64(v.Data.(float64)), true
	}
	return 0, false
}

func (v *Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Data.(float64), true
	case KindInt:
		return float64(v.Data.(int64)), true
	case KindBool:
		if v.Data.(bool) {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (v *Value) AsStr() (string, bool) {
	if v.Kind == KindStr {
		return v.Data.(string), true
	}
	return "", false
}

func (v *Value) AsClass() (*Class, bool) {
	if v.Kind == KindClass {
		return v.Data.(*Class), true
	}
	return nil, false
}

func (v *Value) AsFunction() (*Function, bool) {
	if v.Kind == KindFunction {
		return v.Data.(*Function), true
	}
	return nil, false
}

func (v *Value) AsBoundMethod() (*BoundMethod, bool) {
	if v.Kind == KindBoundMethod {
		return v.Data.(*BoundMethod), true
	}
	return nil, false
}

func (v *Value) AsHostCallable() (*HostCallable, bool) {
	if v.Kind == KindHostCallable {
		return v.Data.(*HostCallable), true
	}
	return nil, false
}

func (v *Value) AsList() (*[]*Value, bool) {
	if v.Kind == KindList {
		return v.Data.(*[]*Value), true
	}
	return nil, false
}

func (v *Value) AsTuple() ([]*Value, bool) {
	if v.Kind == KindTuple {
		return v.Data.([]*Value), true
	}
	return nil, false
}

func (v *Value) AsDict() (*Dict, bool) {
	if v.Kind == KindDict {
		return v.Data.(*Dict), true
	}
	return nil, false
}

// String renders a value roughly the way `str()`/`repr()` would, for
// diagnostics and the PRINT_* family.
func (v *Value) String() string {
	if v == nil || v.Kind == KindNone {
		return "None"
	}
	switch v.Kind {
	case KindBool:
		if v.Data.(bool) {
			return "True"
		}
		return "False"
	case KindInt:
		return fmt.Sprintf("%d", v.Data.(int64))
	case KindFloat:
		return fmt.Sprintf("%v", v.Data.(float64))
	case KindStr:
		return v.Data.(string)
	case KindBytes:
		return fmt.Sprintf("b%q", v.Data.([]byte))
	case KindTuple:
		items := v.Data.([]*Value)
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = it.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindList:
		items := *v.Data.(*[]*Value)
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindDict:
		d := v.Data.(*Dict)
		parts := make([]string, 0, len(d.keys))
		keys := append([]string{}, d.keys...)
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, d.values[k].String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindFunction:
		return fmt.Sprintf("<function %s>", v.Data.(*Function).Name)
	case KindBoundMethod:
		return fmt.Sprintf("<bound method %s>", v.Data.(*BoundMethod).Func.Name)
	case KindClass:
		return fmt.Sprintf("<class '%s'>", v.Data.(*Class).Name)
	case KindModule:
		return fmt.Sprintf("<module '%s'>", v.Data.(*Module).Name)
	case KindException:
		e := v.Data.(*Exception)
		name := "<exception>"
		if e.Class != nil {
			name = e.Class.Name
		}
		if len(e.Args) > 0 {
			return fmt.Sprintf("%s(%s)", name, e.Args[0].String())
		}
		return name
	case KindHostCallable:
		return fmt.Sprintf("<built-in function %s>", v.Data.(*HostCallable).Name)
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}

// TypeName mirrors type(x).__name__.
func (v *Value) TypeName() string {
	if v == nil || v.Kind == KindNone {
		return "NoneType"
	}
	switch v.Kind {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindTuple:
		return "tuple"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindSet:
		return "set"
	case KindSlice:
		return "slice"
	case KindClass:
		return v.Data.(*Class).Name
	case KindException:
		if e := v.AsException(); e != nil && e.Class != nil {
			return e.Class.Name
		}
		return "Exception"
	default:
		return v.Kind.String()
	}
}

// ---- arithmetic ----

func numeric(v *Value) bool {
	return v.Kind == KindInt || v.Kind == KindFloat || v.Kind == KindBool
}

// Add implements BINARY_ADD: numeric addition, string/tuple/list
// concatenation.
func (v *Value) Add(other *Value) (*Value, error) {
	switch {
	case v.Kind == KindStr && other.Kind == KindStr:
		return Str(v.Data.(string) + other.Data.(string)), nil
	case v.Kind == KindTuple && other.Kind == KindTuple:
		a, _ := v.AsTuple()
		b, _ := other.AsTuple()
		return Tuple(append(append([]*Value{}, a...), b...)), nil
	case v.Kind == KindList && other.Kind == KindList:
		a, _ := v.AsList()
		b, _ := other.AsList()
		out := append(append([]*Value{}, *a...), *b...)
		return List(out), nil
	case numeric(v) && numeric(other):
		return numericBinOp(v, other, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
	}
	return nil, fmt.Errorf("unsupported operand type(s) for +: '%s' and '%s'", v.TypeName(), other.TypeName())
}

func (v *Value) Subtract(other *Value) (*Value, error) {
	if numeric(v) && numeric(other) {
		return numericBinOp(v, other, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	}
	if v.Kind == KindSet && other.Kind == KindSet {
		a := v.Data.(*Set)
		b := other.Data.(*Set)
		out := &Set{members: make(map[string]*Value)}
		for k, val := range a.members {
			if _, in := b.members[k]; !in {
				out.members[k] = val
			}
		}
		return &Value{Kind: KindSet, Data: out}, nil
	}
	return nil, fmt.Errorf("unsupported operand type(s) for -: '%s' and '%s'", v.TypeName(), other.TypeName())
}

func (v *Value) Multiply(other *Value) (*Value, error) {
	if numeric(v) && numeric(other) {
		return numericBinOp(v, other, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	}
	if v.Kind == KindStr && numeric(other) {
		n, _ := other.AsInt()
		return Str(strings.Repeat(v.Data.(string), int(n))), nil
	}
	return nil, fmt.Errorf("unsupported operand type(s) for *: '%s' and '%s'", v.TypeName(), other.TypeName())
}

// Divide implements true division: the result is a float even when the
// operands divide evenly.
func (v *Value) Divide(other *Value) (*Value, error) {
	a, ok1 := v.AsFloat()
	b, ok2 := other.AsFloat()
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("unsupported operand type(s) for /: '%s' and '%s'", v.TypeName(), other.TypeName())
	}
	if b == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return Float(a / b), nil
}

// ClassicDivide implements the 2.x default `/`: floor division when both
// operands are ints, true division otherwise.
func (v *Value) ClassicDivide(other *Value) (*Value, error) {
	if v.Kind == KindInt && other.Kind == KindInt {
		return v.FloorDivide(other)
	}
	return v.Divide(other)
}

func (v *Value) FloorDivide(other *Value) (*Value, error) {
	a, ok1 := v.AsFloat()
	b, ok2 := other.AsFloat()
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("unsupported operand type(s) for //: '%s' and '%s'", v.TypeName(), other.TypeName())
	}
	if b == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	if v.Kind == KindInt && other.Kind == KindInt {
		ai, _ := v.AsInt()
		bi, _ := other.AsInt()
		return Int(int64(math.Floor(float64(ai) / float64(bi)))), nil
	}
	return Float(math.Floor(a / b)), nil
}

func (v *Value) Modulo(other *Value) (*Value, error) {
	if v.Kind == KindStr {
		return Str(formatStr(v.Data.(string), other)), nil
	}
	a, ok1 := v.AsFloat()
	b, ok2 := other.AsFloat()
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("unsupported operand type(s) for %%: '%s' and '%s'", v.TypeName(), other.TypeName())
	}
	if b == 0 {
		return nil, fmt.Errorf("integer division or modulo by zero")
	}
	if v.Kind == KindInt && other.Kind == KindInt {
		ai, _ := v.AsInt()
		bi, _ := other.AsInt()
		m := ai % bi
		if (m < 0) != (bi < 0) && m != 0 {
			m += bi
		}
		return Int(m), nil
	}
	return Float(math.Mod(a, b)), nil
}

func (v *Value) Power(other *Value) (*Value, error) {
	if numeric(v) && numeric(other) {
		a, _ := v.AsFloat()
		b, _ := other.AsFloat()
		if v.Kind == KindInt && other.Kind == KindInt {
			bi, _ := other.AsInt()
			if bi >= 0 {
				ai, _ := v.AsInt()
				result := int64(1)
				for i := int64(0); i < bi; i++ {
					result *= ai
				}
				return Int(result), nil
			}
		}
		return Float(math.Pow(a, b)), nil
	}
	return nil, fmt.Errorf("unsupported operand type(s) for ** or pow(): '%s' and '%s'", v.TypeName(), other.TypeName())
}

// formatStr implements the %-operator's common conversions (%s, %r, %d,
// %i, %f, %%). args may be a single value or a tuple of values, consumed
// left to right; a directive with no argument left consumes None, and an
// unrecognized directive is copied to the output unchanged.
func formatStr(format string, args *Value) string {
	var vals []*Value
	if items, ok := args.AsTuple(); ok {
		vals = items
	} else {
		vals = []*Value{args}
	}
	var b strings.Builder
	next := 0
	take := func() *Value {
		if next < len(vals) {
			v := vals[next]
			next++
			return v
		}
		return None()
	}
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			b.WriteByte(format[i])
			continue
		}
		i++
		switch format[i] {
		case '%':
			b.WriteByte('%')
		case 's', 'r':
			b.WriteString(take().String())
		case 'd', 'i':
			n, _ := take().AsInt()
			fmt.Fprintf(&b, "%d", n)
		case 'f':
			f, _ := take().AsFloat()
			fmt.Fprintf(&b, "%f", f)
		default:
			fmt.Fprintf(&b, "%%%c", format[i])
		}
	}
	return b.String()
}

func numericBinOp(a, b *Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) (*Value, error) {
	if a.Kind == KindFloat || b.Kind == KindFloat {
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return Float(floatOp(af, bf)), nil
	}
	ai, _ := a.AsInt()
	bi, _ := b.AsInt()
	return Int(intOp(ai, bi)), nil
}

func bitwiseOp(a, b *Value, op func(int64, int64) int64, symbol string) (*Value, error) {
	ai, ok1 := a.AsInt()
	bi, ok2 := b.AsInt()
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("unsupported operand type(s) for %s: '%s' and '%s'", symbol, a.TypeName(), b.TypeName())
	}
	return Int(op(ai, bi)), nil
}

func (v *Value) LShift(o *Value) (*Value, error) {
	return bitwiseOp(v, o, func(a, b int64) int64 { return a << uint(b) }, "<<")
}
func (v *Value) RShift(o *Value) (*Value, error) {
	return bitwiseOp(v, o, func(a, b int64) int64 { return a >> uint(b) }, ">>")
}
func (v *Value) And(o *Value) (*Value, error) {
	return bitwiseOp(v, o, func(a, b int64) int64 { return a & b }, "&")
}
func (v *Value) Or(o *Value) (*Value, error) {
	return bitwiseOp(v, o, func(a, b int64) int64 { return a | b }, "|")
}
func (v *Value) Xor(o *Value) (*Value, error) {
	return bitwiseOp(v, o, func(a, b int64) int64 { return a ^ b }, "^")
}

func (v *Value) Negate() (*Value, error) {
	switch v.Kind {
	case KindInt:
		return Int(-v.Data.(int64)), nil
	case KindFloat:
		return Float(-v.Data.(float64)), nil
	case KindBool:
		b, _ := v.AsInt()
		return Int(-b), nil
	}
	return nil, fmt.Errorf("bad operand type for unary -: '%s'", v.TypeName())
}

func (v *Value) Invert() (*Value, error) {
	i, ok := v.AsInt()
	if !ok {
		return nil, fmt.Errorf("bad operand type for unary ~: '%s'", v.TypeName())
	}
	return Int(^i), nil
}

// ---- comparison ----

// Compare returns -1, 0, or 1 for ordered comparisons. Numbers compare by
// value, strings bytewise and tuples lexicographically; any other pairing,
// lists included, is an error (mirroring Python 3's ban on e.g. `1 < "a"`;
// Python 2's total-ordering fallback is not reproduced).
func (v *Value) Compare(other *Value) (int, error) {
	if numeric(v) && numeric(other) {
		a, _ := v.AsFloat()
		b, _ := other.AsFloat()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if v.Kind == KindStr && other.Kind == KindStr {
		return strings.Compare(v.Data.(string), other.Data.(string)), nil
	}
	if v.Kind == KindTuple && other.Kind == KindTuple {
		a, _ := v.AsTuple()
		b, _ := other.AsTuple()
		for i := 0; i < len(a) && i < len(b); i++ {
			c, err := a[i].Compare(b[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		return len(a) - len(b), nil
	}
	return 0, fmt.Errorf("unorderable types: %s() < %s()", v.TypeName(), other.TypeName())
}

// Equal implements `==`. Unlike Compare it never errors: cross-type
// comparisons are simply unequal, matching host equality semantics.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if numeric(v) && numeric(other) {
		a, _ := v.AsFloat()
		b, _ := other.AsFloat()
		return a == b
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNone:
		return true
	case KindStr:
		return v.Data.(string) == other.Data.(string)
	case KindTuple:
		a, _ := v.AsTuple()
		b, _ := other.AsTuple()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindList:
		a, _ := v.AsList()
		b, _ := other.AsList()
		if len(*a) != len(*b) {
			return false
		}
		for i := range *a {
			if !(*a)[i].Equal((*b)[i]) {
				return false
			}
		}
		return true
	default:
		return v.Data == other.Data
	}
}

// Is implements `is` identity comparison.
func (v *Value) Is(other *Value) bool {
	if v.IsNone() && other.IsNone() {
		return true
	}
	if v.Kind == KindBool && other.Kind == KindBool {
		return v.Data.(bool) == other.Data.(bool)
	}
	return v == other
}

// Contains implements the `in` operator: self is the container, x the
// candidate member.
func (container *Value) Contains(x *Value) (bool, error) {
	switch container.Kind {
	case KindStr:
		s, ok := x.AsStr()
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string as left operand, not %s", x.TypeName())
		}
		return strings.Contains(container.Data.(string), s), nil
	case KindTuple:
		items, _ := container.AsTuple()
		for _, it := range items {
			if it.Equal(x) {
				return true, nil
			}
		}
		return false, nil
	case KindList:
		items, _ := container.AsList()
		for _, it := range *items {
			if it.Equal(x) {
				return true, nil
			}
		}
		return false, nil
	case KindDict:
		d := container.Data.(*Dict)
		_, ok := d.Get(x)
		return ok, nil
	case KindSet:
		s := container.Data.(*Set)
		_, ok := s.members[x.dictKey()]
		return ok, nil
	}
	return false, fmt.Errorf("argument of type '%s' is not iterable", container.TypeName())
}
