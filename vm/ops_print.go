package vm

import (
	"io"
	"os"
	"unicode"

	"github.com/wudi/pyvm/opcodes"
	"github.com/wudi/pyvm/values"
)

// softspaceWriter implements Printer over an io.Writer, reproducing the
// "softspace" protocol from the 2.x PRINT_ITEM/PRINT_NEWLINE family: a
// pending space is owed before the next printed item unless that item is
// about to start a fresh line.
type softspaceWriter struct {
	w         io.Writer
	softspace bool
}

// newSoftspaceWriter wraps w (os.Stdout when nil) as a Printer.
func newSoftspaceWriter(w io.Writer) *softspaceWriter {
	if w == nil {
		w = os.Stdout
	}
	return &softspaceWriter{w: w}
}

func (s *softspaceWriter) WriteString(str string) (int, error) { return io.WriteString(s.w, str) }
func (s *softspaceWriter) Softspace() bool                     { return s.softspace }
func (s *softspaceWriter) SetSoftspace(v bool)                  { s.softspace = v }

// printItem implements PRINT_ITEM/PRINT_ITEM_TO: write a leading space if
// softspace is owed, then the item's str(), then mark softspace owed again —
// unless the item was a string ending in a whitespace character other than
// a plain space (a trailing tab or newline already provides the boundary).
func printItem(p Printer, v *values.Value) {
	if p.Softspace() {
		p.WriteString(" ")
	}
	p.WriteString(v.String())
	p.SetSoftspace(true)
	if s, ok := v.AsStr(); ok && s != "" {
		last := rune(s[len(s)-1])
		if unicode.IsSpace(last) && last != ' ' {
			p.SetSoftspace(false)
		}
	}
}

func printNewline(p Printer) {
	p.WriteString("\n")
	p.SetSoftspace(false)
}

func opPrintExpr(m *VM, f *Frame, arg interface{}) (Why, error) {
	v := f.PopValue()
	// PRINT_EXPR writes the value's String() form, the same rendering
	// printItem uses for print statements, followed by a newline.
	m.Stdout.WriteString(v.String())
	m.Stdout.WriteString("\n")
	return whyNone(), nil
}

func opPrintItem(m *VM, f *Frame, arg interface{}) (Why, error) {
	v := f.PopValue()
	printItem(m.Stdout, v)
	return whyNone(), nil
}

// opPrintItemTo pops the target stream then the value (`print >>fh, x`);
// this interpreter has no guest file-object model, so the target is popped
// and discarded and the item is written to the VM's own Stdout.
func opPrintItemTo(m *VM, f *Frame, arg interface{}) (Why, error) {
	_ = f.PopValue() // target stream, unused: no guest file objects
	v := f.PopValue()
	printItem(m.Stdout, v)
	return whyNone(), nil
}

func opPrintNewline(m *VM, f *Frame, arg interface{}) (Why, error) {
	printNewline(m.Stdout)
	return whyNone(), nil
}

func opPrintNewlineTo(m *VM, f *Frame, arg interface{}) (Why, error) {
	_ = f.PopValue() // target stream, unused: see opPrintItemTo
	printNewline(m.Stdout)
	return whyNone(), nil
}

var printHandlers = map[opcodes.Opcode]OpHandler{
	opcodes.PRINT_EXPR:       opPrintExpr,
	opcodes.PRINT_ITEM:       opPrintItem,
	opcodes.PRINT_ITEM_TO:    opPrintItemTo,
	opcodes.PRINT_NEWLINE:    opPrintNewline,
	opcodes.PRINT_NEWLINE_TO: opPrintNewlineTo,
}
