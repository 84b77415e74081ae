package vm

import (
	"errors"

	"github.com/wudi/pyvm/values"
)

// iterator is the FOR_ITER-visible iteration state. It is deliberately kept
// out of the values.Value union the same way *FinallyMarker is: iteration
// position is VM bookkeeping, not a guest-observable type.
type iterator struct {
	items []*values.Value
	pos   int
	gen   *Generator
}

var errNotIterable = errors.New("object is not iterable")

// newIterator builds an iterator snapshotting v's contents (list/tuple/set)
// or wrapping a generator for lazy pull (FOR_ITER calling Generator.Next).
func newIterator(m *VM, v *values.Value) (*iterator, error) {
	switch v.Kind {
	case values.KindList:
		items, _ := v.AsList()
		return &iterator{items: append([]*values.Value{}, (*items)...)}, nil
	case values.KindTuple:
		items, _ := v.AsTuple()
		return &iterator{items: append([]*values.Value{}, items...)}, nil
	case values.KindStr:
		s, _ := v.AsStr()
		runes := []rune(s)
		items := make([]*values.Value, len(runes))
		for i, r := range runes {
			items[i] = values.Str(string(r))
		}
		return &iterator{items: items}, nil
	case values.KindDict:
		d, _ := v.AsDict()
		return &iterator{items: d.Keys()}, nil
	case values.KindSet:
		s := v.Data.(*values.Set)
		return &iterator{items: s.Members()}, nil
	case values.KindGenerator:
		g, ok := v.AsGenerator().(*Generator)
		if !ok {
			return nil, errNotIterable
		}
		return &iterator{gen: g}, nil
	default:
		return nil, errNotIterable
	}
}

// next returns (value, true, nil) for a produced item, (nil, false, nil) on
// exhaustion, or a non-nil error for a guest exception escaping a
// generator's frame (a *PyError) or a genuine host fault.
func (it *iterator) next() (*values.Value, bool, error) {
	if it.gen != nil {
		v, err := it.gen.Next()
		if err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return v, true, nil
	}
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}
