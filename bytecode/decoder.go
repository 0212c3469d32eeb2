package bytecode

import "errors"

// Errors the decoder surfaces (spec.md §4.5, §6 failure modes).
var (
	ErrInvalidOpcode     = errors.New("bytecode: invalid_opcode")
	ErrTruncatedBytecode = errors.New("bytecode: truncated_bytecode")
)

// Instruction is one decoded opcode plus its resolved parameter values, in
// emission order.
type Instruction struct {
	Op     Opcode
	Params []uint64
}

// Decoder walks a bytecode stream one instruction at a time using the
// same static parameter-length table the emitter wrote with, so it can
// always compute an instruction's length without knowing what the
// opcode means — letting callers step over opcodes they don't need to
// act on (e.g. reserved opcodes, spec.md §9). An opcode byte outside the
// known set has no table entry and is rejected with ErrInvalidOpcode.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps a bytecode stream for sequential decoding starting at
// byte offset 0.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Seek repositions the decoder to an absolute byte offset (used by
// execute_frame to jump straight to a frame's bytecode_offset).
func (d *Decoder) Seek(offset int) {
	d.pos = offset
}

// Pos returns the decoder's current byte offset.
func (d *Decoder) Pos() int {
	return d.pos
}

// Done reports whether the decoder has consumed the entire stream.
func (d *Decoder) Done() bool {
	return d.pos >= len(d.buf)
}

// Next decodes the instruction at the current position and advances past
// it. It returns ErrTruncatedBytecode if the stream ends mid-instruction
// and ErrInvalidOpcode if the opcode byte is outside the known set.
func (d *Decoder) Next() (Instruction, error) {
	if d.pos >= len(d.buf) {
		return Instruction{}, ErrTruncatedBytecode
	}
	op := Opcode(d.buf[d.pos])
	if int(op) >= int(opcodeCount) {
		return Instruction{}, ErrInvalidOpcode
	}
	d.pos++

	spec := paramSpecs[op]
	params := make([]uint64, len(spec))
	for i, kind := range spec {
		switch kind {
		case kVarint:
			v, n := Uvarint(d.buf[d.pos:])
			if n == 0 {
				return Instruction{}, ErrTruncatedBytecode
			}
			params[i] = v
			d.pos += n
		case kByte:
			if d.pos >= len(d.buf) {
				return Instruction{}, ErrTruncatedBytecode
			}
			params[i] = uint64(d.buf[d.pos])
			d.pos++
		}
	}
	return Instruction{Op: op, Params: params}, nil
}
