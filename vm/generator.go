package vm

import (
	"errors"

	"github.com/wudi/pyvm/values"
)

// ErrStopIteration is the internal signal FOR_ITER and Generator.Next use
// to detect exhaustion. FOR_ITER catches it itself rather than letting it
// escape as a guest exception.
var ErrStopIteration = errors.New("StopIteration")

// Generator is a suspendable frame with explicit saved state — no threads,
// no separate coroutine stack.
// YIELD_VALUE simply returns control to RunFrame's caller with the frame's
// stack, blocks, and pc left exactly as they were; resuming re-enters
// RunFrame at that same pc.
type Generator struct {
	vm       *VM
	frame    *Frame
	started  bool
	finished bool
}

// NewGenerator wraps frame as a generator handle. The frame must belong to
// a code object with the CoGenerator flag; the VM enforces this at the call
// site (see VM.CallFunction and callFunctionValue).
func NewGenerator(vm *VM, frame *Frame) *Generator {
	g := &Generator{vm: vm, frame: frame}
	frame.Generator = g
	return g
}

func (g *Generator) Finished() bool { return g.finished }

// Next resumes the generator with no injected value, equivalent to
// `next(gen)` / `send(None)` on a not-yet-started generator.
func (g *Generator) Next() (*values.Value, error) {
	return g.resume(nil)
}

// Send resumes the generator, delivering v as the result of the
// `yield` expression the generator is currently suspended at. Sending a
// non-None value into a brand-new (not yet started) generator is a
// TypeError in CPython; callers needing that check should inspect
// g.Started() first — this interpreter does not special-case it, since the
// strict start-only-with-None rule lives in object-model territory the
// host owns.
func (g *Generator) Send(v *values.Value) (*values.Value, error) {
	return g.resume(v)
}

func (g *Generator) Started() bool { return g.started }

func (g *Generator) resume(sendValue *values.Value) (*values.Value, error) {
	if g.finished {
		return nil, ErrStopIteration
	}
	if g.started {
		if sendValue == nil {
			sendValue = values.None()
		}
		g.frame.PushValue(sendValue)
	}
	g.started = true

	result, why, err := g.vm.RunFrame(g.frame)
	if err != nil {
		g.finished = true
		return nil, err
	}
	switch why.Kind {
	case WhyYield:
		return result, nil
	case WhyReturn:
		g.finished = true
		return nil, ErrStopIteration
	case WhyException, WhyReraise, WhyReexception:
		g.finished = true
		return nil, g.vm.guestError(g.frame)
	default:
		g.finished = true
		return nil, ErrStopIteration
	}
}
