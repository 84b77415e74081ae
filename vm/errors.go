package vm

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/wudi/pyvm/opcodes"
)

// Sentinel errors for host-level faults: bytecode corruption or an
// interpreter bug, never a condition the guest program can catch. Compare
// against these with errors.Is.
var (
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrStackOverflow      = errors.New("stack overflow")
	ErrBlockStackUnderflow = errors.New("block stack underflow")
	ErrWrongBlockKind     = errors.New("popped block is not of the expected kind")
	ErrUnknownOpcode      = errors.New("unknown opcode")
	ErrConfusedEndFinally = errors.New("confused END_FINALLY")
	ErrConfusedWithCleanup = errors.New("confused WITH_CLEANUP")
	ErrNotCallable        = errors.New("object is not callable")
	ErrBadInstructionArg  = errors.New("instruction argument has the wrong shape")
	ErrInstructionFailed  = errors.New("instruction execution failed")
)

// VMError wraps a sentinel with the dynamic context needed to diagnose a
// host fault: which opcode was executing, in which frame, at which program
// counter. It implements Unwrap/Is so callers can still `errors.Is(err,
// ErrStackUnderflow)` after it has been enriched.
type VMError struct {
	Type    error
	Message string
	Opcode  opcodes.Opcode
	Frame   string
	PC      int
}

func (e *VMError) Error() string {
	msg := fmt.Sprintf("pyvm: %s", e.Type)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Frame != "" {
		msg = fmt.Sprintf("%s (in %s at pc=%d, op=%s)", msg, e.Frame, e.PC, e.Opcode)
	}
	return msg
}

func (e *VMError) Unwrap() error { return e.Type }

func (e *VMError) Is(target error) bool { return errors.Is(e.Type, target) }

func newVMError(sentinel error, format string, args ...interface{}) *VMError {
	return &VMError{Type: sentinel, Message: fmt.Sprintf(format, args...)}
}

// annotate fills in the frame/opcode/pc context once the error has bubbled
// up to the dispatch loop that knows them.
func (e *VMError) annotate(f *Frame, op opcodes.Opcode, pc int) *VMError {
	e.Frame = f.Name
	e.Opcode = op
	e.PC = pc
	return e
}

func stackDepthError(depth, maxDepth int) *VMError {
	return newVMError(ErrStackOverflow, "depth %s exceeds declared max %s",
		humanize.Comma(int64(depth)), humanize.Comma(int64(maxDepth)))
}
