// Package pngb implements the PNGB binary container (spec.md §3, §4.7):
// a compiled module's string table, data section, uniform table,
// animation table, and bytecode stream, serialized as one flat byte
// buffer. Versions 4 and 5 are both readable; this package's Serialize
// always writes v5, which is the only version with an explicit
// bytecode_offset field (spec.md §9 REDESIGN FLAGS).
package pngb

import (
	"encoding/binary"
	"errors"
)

const magic = "PNGB"

const (
	Version4 uint16 = 4
	Version5 uint16 = 5
)

const (
	headerSizeV4 = 28
	headerSizeV5 = 40
)

// Decode failure modes (spec.md §4.7).
var (
	ErrInvalidMagic       = errors.New("pngb: invalid_magic")
	ErrUnsupportedVersion = errors.New("pngb: unsupported_version")
	ErrTruncated          = errors.New("pngb: truncated")
	ErrBadOffset          = errors.New("pngb: bad_offset")
)

// UniformBinding is one entry of the uniform table: a buffer carrying one
// or more reflected uniform fields.
type UniformBinding struct {
	BufferID     uint16
	NameStringID uint16
	Group        uint8
	Binding      uint8
	Fields       []FieldDescriptor
}

// FieldDescriptor is one 10-byte field record within a uniform binding:
// offset(4) + size(4) + kind(1) + reserved(1).
type FieldDescriptor struct {
	Offset uint32
	Size   uint32
	Kind   uint8
}

// Scene is one entry of the animation table.
type Scene struct {
	FrameStringID uint16
	StartMs       uint32
	EndMs         uint32
}

// AnimationTable describes a module's optional animation timeline.
type AnimationTable struct {
	DurationMs uint32
	Loop       bool
	Scenes     []Scene
}

// Module is a deserialized, zero-copy view over a PNGB byte buffer: its
// accessors slice directly into buf rather than allocating copies.
type Module struct {
	Version uint16
	Flags   uint16
	buf     []byte

	stringOffsets [][2]uint32 // [offset, length] pairs, relative to buf
	dataOffsets   [][2]uint32

	Uniforms  []UniformBinding
	Animation *AnimationTable

	bytecodeOffset uint32
	bytecodeEnd    uint32
}

// String returns the interned string at id, or nil if out of range.
func (m *Module) String(id uint16) []byte {
	if int(id) >= len(m.stringOffsets) {
		return nil
	}
	off, length := m.stringOffsets[id][0], m.stringOffsets[id][1]
	return m.buf[off : off+length]
}

// Data returns the interned data blob at id, or nil if out of range.
func (m *Module) Data(id uint16) []byte {
	if int(id) >= len(m.dataOffsets) {
		return nil
	}
	off, length := m.dataOffsets[id][0], m.dataOffsets[id][1]
	return m.buf[off : off+length]
}

// Bytecode returns the raw opcode stream.
func (m *Module) Bytecode() []byte {
	return m.buf[m.bytecodeOffset:m.bytecodeEnd]
}

// FindFieldByStringID looks up a uniform field by its reflected variable
// name's string_id, returning the owning buffer/offset/size/kind.
func (m *Module) FindFieldByStringID(stringID uint16) (bufferID uint16, offset, size uint32, kind uint8, ok bool) {
	for _, u := range m.Uniforms {
		if u.NameStringID != stringID {
			continue
		}
		if len(u.Fields) == 0 {
			continue
		}
		f := u.Fields[0]
		return u.BufferID, f.Offset, f.Size, f.Kind, true
	}
	return 0, 0, 0, 0, false
}

// FindSceneAtTime binary-searches the animation table's scenes by
// start_ms, applying loop semantics first (spec.md §4.9). It returns
// false if there is no animation table or t falls outside a non-looping
// timeline.
func (m *Module) FindSceneAtTime(tMs uint32) (idx int, ok bool) {
	if m.Animation == nil || len(m.Animation.Scenes) == 0 {
		return 0, false
	}
	t := tMs
	if m.Animation.Loop {
		t = t % m.Animation.DurationMs
	} else if t > m.Animation.DurationMs {
		return 0, false
	}
	scenes := m.Animation.Scenes
	lo, hi := 0, len(scenes)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		s := scenes[mid]
		switch {
		case t < s.StartMs:
			hi = mid - 1
		case t >= s.EndMs:
			lo = mid + 1
		default:
			return mid, true
		}
	}
	return 0, false
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

func getU32(buf []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(buf[off:])
}
