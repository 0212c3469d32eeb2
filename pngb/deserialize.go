package pngb

import "encoding/binary"

// Deserialize validates the magic and version, reads section offsets, and
// returns a *Module whose accessors slice directly into buf (no copying).
// buf must outlive the returned Module.
func Deserialize(buf []byte) (*Module, error) {
	if len(buf) < 8 || string(buf[0:4]) != magic {
		return nil, ErrInvalidMagic
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	flags := binary.LittleEndian.Uint16(buf[6:8])

	switch version {
	case Version5:
		return deserializeV5(buf, flags)
	case Version4:
		return deserializeV4(buf, flags)
	default:
		return nil, ErrUnsupportedVersion
	}
}

func deserializeV5(buf []byte, flags uint16) (*Module, error) {
	if len(buf) < headerSizeV5 {
		return nil, ErrTruncated
	}
	bytecodeOff := getU32(buf, 8)
	stringOff, stringLen := getU32(buf, 12), getU32(buf, 16)
	dataOff := getU32(buf, 20)
	uniformOff, uniformLen := getU32(buf, 24), getU32(buf, 28)
	animOff, animLen := getU32(buf, 32), getU32(buf, 36)

	m := &Module{Version: Version5, Flags: flags, buf: buf, bytecodeOffset: bytecodeOff, bytecodeEnd: uint32(len(buf))}
	if err := checkBounds(buf, bytecodeOff); err != nil {
		return nil, err
	}

	var err error
	m.stringOffsets, err = decodeBlobTable(buf, stringOff, stringLen)
	if err != nil {
		return nil, err
	}
	// Data section length isn't in the header directly; it runs from
	// dataOff to uniformOff (or bytecodeOff if there's no uniform table).
	dataLen := uniformOff - dataOff
	if uniformLen == 0 && animLen == 0 {
		dataLen = bytecodeOff - dataOff
	}
	m.dataOffsets, err = decodeBlobTable(buf, dataOff, dataLen)
	if err != nil {
		return nil, err
	}
	if uniformLen > 0 {
		m.Uniforms, err = decodeUniformTable(buf, uniformOff, uniformLen)
		if err != nil {
			return nil, err
		}
	}
	if animLen > 0 {
		m.Animation, err = decodeAnimationTable(buf, animOff, animLen)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// deserializeV4 reads the shorter 28-byte header. v4 has no explicit
// bytecode_offset or animation table; bytecode placement is inferred as
// immediately after the header (spec.md §9).
func deserializeV4(buf []byte, flags uint16) (*Module, error) {
	if len(buf) < headerSizeV4 {
		return nil, ErrTruncated
	}
	stringOff, stringLen := getU32(buf, 8), getU32(buf, 12)
	dataOff := getU32(buf, 16)
	uniformOff, uniformLen := getU32(buf, 20), getU32(buf, 24)

	bytecodeEnd := uint32(len(buf))
	for _, candidate := range []uint32{stringOff, dataOff} {
		if candidate > headerSizeV4 && candidate < bytecodeEnd {
			bytecodeEnd = candidate
		}
	}
	m := &Module{Version: Version4, Flags: flags, buf: buf, bytecodeOffset: headerSizeV4, bytecodeEnd: bytecodeEnd}

	var err error
	m.stringOffsets, err = decodeBlobTable(buf, stringOff, stringLen)
	if err != nil {
		return nil, err
	}
	dataLen := uniformOff - dataOff
	if uniformLen == 0 {
		dataLen = uint32(len(buf)) - dataOff
	}
	m.dataOffsets, err = decodeBlobTable(buf, dataOff, dataLen)
	if err != nil {
		return nil, err
	}
	if uniformLen > 0 {
		m.Uniforms, err = decodeUniformTable(buf, uniformOff, uniformLen)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func checkBounds(buf []byte, off uint32) error {
	if int(off) > len(buf) {
		return ErrBadOffset
	}
	return nil
}

func decodeBlobTable(buf []byte, off, length uint32) ([][2]uint32, error) {
	if length == 0 {
		return nil, nil
	}
	if err := checkBounds(buf, off+length); err != nil {
		return nil, err
	}
	section := buf[off : off+length]
	if len(section) < 2 {
		return nil, ErrTruncated
	}
	count := binary.LittleEndian.Uint16(section[0:2])
	headerLen := 2 + 8*int(count)
	if len(section) < headerLen {
		return nil, ErrTruncated
	}
	entries := make([][2]uint32, count)
	for i := 0; i < int(count); i++ {
		entryOff := 2 + 8*i
		relOff := binary.LittleEndian.Uint32(section[entryOff:])
		entryLen := binary.LittleEndian.Uint32(section[entryOff+4:])
		absOff := off + relOff
		if int(absOff+entryLen) > len(buf) {
			return nil, ErrBadOffset
		}
		entries[i] = [2]uint32{absOff, entryLen}
	}
	return entries, nil
}

func decodeUniformTable(buf []byte, off, length uint32) ([]UniformBinding, error) {
	if err := checkBounds(buf, off+length); err != nil {
		return nil, err
	}
	section := buf[off : off+length]
	if len(section) < 2 {
		return nil, ErrTruncated
	}
	count := binary.LittleEndian.Uint16(section[0:2])
	pos := 2
	bindings := make([]UniformBinding, count)
	for i := 0; i < int(count); i++ {
		if pos+8 > len(section) {
			return nil, ErrTruncated
		}
		u := UniformBinding{
			BufferID:     binary.LittleEndian.Uint16(section[pos : pos+2]),
			NameStringID: binary.LittleEndian.Uint16(section[pos+2 : pos+4]),
			Group:        section[pos+4],
			Binding:      section[pos+5],
		}
		fieldCount := binary.LittleEndian.Uint16(section[pos+6 : pos+8])
		pos += 8
		u.Fields = make([]FieldDescriptor, fieldCount)
		for j := 0; j < int(fieldCount); j++ {
			if pos+10 > len(section) {
				return nil, ErrTruncated
			}
			u.Fields[j] = FieldDescriptor{
				Offset: binary.LittleEndian.Uint32(section[pos : pos+4]),
				Size:   binary.LittleEndian.Uint32(section[pos+4 : pos+8]),
				Kind:   section[pos+8],
			}
			pos += 10
		}
		bindings[i] = u
	}
	return bindings, nil
}

func decodeAnimationTable(buf []byte, off, length uint32) (*AnimationTable, error) {
	if err := checkBounds(buf, off+length); err != nil {
		return nil, err
	}
	section := buf[off : off+length]
	if len(section) < 7 {
		return nil, ErrTruncated
	}
	anim := &AnimationTable{
		DurationMs: binary.LittleEndian.Uint32(section[0:4]),
		Loop:       section[4] != 0,
	}
	sceneCount := binary.LittleEndian.Uint16(section[5:7])
	pos := 7
	anim.Scenes = make([]Scene, sceneCount)
	for i := 0; i < int(sceneCount); i++ {
		if pos+10 > len(section) {
			return nil, ErrTruncated
		}
		anim.Scenes[i] = Scene{
			FrameStringID: binary.LittleEndian.Uint16(section[pos : pos+2]),
			StartMs:       binary.LittleEndian.Uint32(section[pos+2 : pos+6]),
			EndMs:         binary.LittleEndian.Uint32(section[pos+6 : pos+10]),
		}
		pos += 10
	}
	return anim, nil
}
