package values

import "testing"

func TestArithmetic(t *testing.T) {
	cases := []struct {
		name     string
		op       func(a, b *Value) (*Value, error)
		a, b     *Value
		wantInt  int64
		wantFlt  float64
		isFloat  bool
	}{
		{"add ints", (*Value).Add, Int(2), Int(3), 5, 0, false},
		{"add floats", (*Value).Add, Float(1.5), Int(1), 0, 2.5, true},
		{"subtract", (*Value).Subtract, Int(5), Int(3), 2, 0, false},
		{"multiply", (*Value).Multiply, Int(4), Int(3), 12, 0, false},
		{"floor divide", (*Value).FloorDivide, Int(7), Int(2), 3, 0, false},
		{"modulo", (*Value).Modulo, Int(-7), Int(3), 2, 0, false},
		{"power", (*Value).Power, Int(2), Int(10), 1024, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.op(c.a, c.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.isFloat {
				f, ok := got.AsFloat()
				if !ok || f != c.wantFlt {
					t.Fatalf("got %v, want float %v", got, c.wantFlt)
				}
				return
			}
			i, ok := got.AsInt()
			if !ok || i != c.wantInt {
				t.Fatalf("got %v, want int %v", got, c.wantInt)
			}
		})
	}
}

func TestAddStringConcatenation(t *testing.T) {
	got, err := Str("foo").Add(Str("bar"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, _ := got.AsStr(); s != "foobar" {
		t.Fatalf("got %q, want %q", s, "foobar")
	}
}

func TestDivideByZero(t *testing.T) {
	if _, err := Int(1).Divide(Int(0)); err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestComparisonOrdering(t *testing.T) {
	cases := []struct {
		name string
		a, b *Value
		want int
	}{
		{"less", Int(1), Int(2), -1},
		{"equal", Int(2), Int(2), 0},
		{"greater", Int(3), Int(2), 1},
		{"string less", Str("a"), Str("b"), -1},
		{"tuple prefix", Tuple([]*Value{Int(1)}), Tuple([]*Value{Int(1), Int(2)}), -1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.a.Compare(c.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got < 0) != (c.want < 0) || (got > 0) != (c.want > 0) || (got == 0) != (c.want == 0) {
				t.Fatalf("got %d, want sign of %d", got, c.want)
			}
		})
	}
}

func TestCompareCrossTypeIsError(t *testing.T) {
	if _, err := Int(1).Compare(Str("a")); err == nil {
		t.Fatal("expected unorderable-types error")
	}
}

func TestEqualNeverErrorsAcrossTypes(t *testing.T) {
	if Int(1).Equal(Str("1")) {
		t.Fatal("int and str must not compare equal")
	}
	if !Int(1).Equal(Float(1.0)) {
		t.Fatal("numeric Equal should cross int/float")
	}
}

func TestTruthiness(t *testing.T) {
	cases := []struct {
		name string
		v    *Value
		want bool
	}{
		{"none", None(), false},
		{"zero int", Int(0), false},
		{"nonzero int", Int(1), true},
		{"empty string", Str(""), false},
		{"nonempty string", Str("x"), true},
		{"empty tuple", Tuple(nil), false},
		{"nonempty tuple", Tuple([]*Value{Int(1)}), true},
		{"empty dict", NewDictValue(), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.Truthy(); got != c.want {
				t.Fatalf("Truthy() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestDictPreservesInsertionOrder(t *testing.T) {
	d := NewDict()
	d.Set(Str("z"), Int(1))
	d.Set(Str("a"), Int(2))
	d.Set(Str("m"), Int(3))

	keys := d.Keys()
	want := []string{"z", "a", "m"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i, k := range keys {
		s, _ := k.AsStr()
		if s != want[i] {
			t.Fatalf("key[%d] = %q, want %q", i, s, want[i])
		}
	}

	// Re-setting an existing key updates the value without reordering.
	d.Set(Str("z"), Int(99))
	keys = d.Keys()
	if s, _ := keys[0].AsStr(); s != "z" {
		t.Fatalf("re-set key moved position: %q", s)
	}
	v, ok := d.Get(Str("z"))
	if !ok {
		t.Fatal("expected key to still be present")
	}
	if i, _ := v.AsInt(); i != 99 {
		t.Fatalf("got %d, want 99", i)
	}
}

func TestDictDelete(t *testing.T) {
	d := NewDict()
	d.Set(Str("a"), Int(1))
	d.Set(Str("b"), Int(2))
	d.Delete(Str("a"))

	if _, ok := d.Get(Str("a")); ok {
		t.Fatal("expected key to be gone")
	}
	if d.Len() != 1 {
		t.Fatalf("got len %d, want 1", d.Len())
	}
}

func TestCellGetSetBound(t *testing.T) {
	c := NewCell(nil)
	if c.Bound() {
		t.Fatal("fresh cell with nil initial should be unbound")
	}
	c.Set(Int(7))
	if !c.Bound() {
		t.Fatal("cell should be bound after Set")
	}
	if i, _ := c.Get().AsInt(); i != 7 {
		t.Fatalf("got %d, want 7", i)
	}
}

func TestContainsAcrossContainerKinds(t *testing.T) {
	cases := []struct {
		name      string
		container *Value
		member    *Value
		want      bool
	}{
		{"string substring", Str("hello"), Str("ell"), true},
		{"string absent", Str("hello"), Str("xyz"), false},
		{"tuple member", Tuple([]*Value{Int(1), Int(2)}), Int(2), true},
		{"list member", List([]*Value{Str("a"), Str("b")}), Str("b"), true},
		{"list absent", List([]*Value{Str("a")}), Str("z"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.container.Contains(c.member)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("Contains() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestContainsDict(t *testing.T) {
	d := NewDict()
	d.Set(Str("key"), Int(1))
	dv := DictValue(d)

	ok, err := dv.Contains(Str("key"))
	if err != nil || !ok {
		t.Fatalf("expected 'key' in dict, got ok=%v err=%v", ok, err)
	}
	ok, err = dv.Contains(Str("missing"))
	if err != nil || ok {
		t.Fatalf("expected 'missing' not in dict, got ok=%v err=%v", ok, err)
	}
}

func TestClassIsSubclass(t *testing.T) {
	base := &Class{Name: "BaseException"}
	mid := &Class{Name: "Exception", Bases: []*Class{base}}
	leaf := &Class{Name: "ValueError", Bases: []*Class{mid}}

	if !leaf.IsSubclass(base) {
		t.Fatal("leaf should be a subclass of base through mid")
	}
	if !leaf.IsSubclass(leaf) {
		t.Fatal("a class is always a subclass of itself")
	}
	other := &Class{Name: "TypeError", Bases: []*Class{mid}}
	if leaf.IsSubclass(other) {
		t.Fatal("siblings must not be subclasses of each other")
	}
}
