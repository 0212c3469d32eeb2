package bytecode

import "fmt"

// Emitter appends opcodes to a single flat bytecode stream. It never
// back-patches: callers are responsible for emitting resource creation in
// dependency order (see the compiler's assembler), and structural
// opcodes (define_pass/define_frame/...) before code that belongs under
// them.
type Emitter struct {
	buf []byte
}

// NewEmitter returns an empty bytecode emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Len reports the current stream length; callers use this to record a
// frame or pass's starting byte offset before emitting its body.
func (e *Emitter) Len() int {
	return len(e.buf)
}

// Bytes returns the accumulated bytecode stream.
func (e *Emitter) Bytes() []byte {
	return e.buf
}

// Emit appends one opcode and its parameters, in the fixed order declared
// by paramSpecs. It panics if the param count doesn't match the spec —
// that is always a bug in the caller, never a runtime/data condition.
func (e *Emitter) Emit(op Opcode, params ...uint64) {
	spec := paramSpecs[op]
	if len(params) != len(spec) {
		panic(fmt.Sprintf("bytecode: %s expects %d params, got %d", op, len(spec), len(params)))
	}
	e.buf = append(e.buf, byte(op))
	for i, kind := range spec {
		switch kind {
		case kVarint:
			e.buf = PutUvarint(e.buf, params[i])
		case kByte:
			if params[i] > 0xff {
				panic(fmt.Sprintf("bytecode: %s param %d does not fit in a byte: %d", op, i, params[i]))
			}
			e.buf = append(e.buf, byte(params[i]))
		}
	}
}
