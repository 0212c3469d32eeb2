package pngb

import (
	"encoding/binary"
)

// Serialize builds a v5 PNGB byte buffer from a compiled module's parts.
// strings and data are interned tables in dense-ID order (see package
// intern); anim may be nil for modules with no animation.
func Serialize(strings [][]byte, data [][]byte, uniforms []UniformBinding, anim *AnimationTable, bytecode []byte) []byte {
	stringTable := encodeBlobTable(strings)
	dataSection := encodeBlobTable(data)
	uniformTable := encodeUniformTable(uniforms)
	animTable := encodeAnimationTable(anim)

	stringOff := uint32(headerSizeV5)
	dataOff := stringOff + uint32(len(stringTable))
	uniformOff := dataOff + uint32(len(dataSection))
	animOff := uniformOff + uint32(len(uniformTable))
	bytecodeOff := animOff + uint32(len(animTable))

	total := int(bytecodeOff) + len(bytecode)
	buf := make([]byte, total)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint16(buf[4:6], Version5)
	binary.LittleEndian.PutUint16(buf[6:8], 0) // flags

	putU32(buf, 8, bytecodeOff)
	putU32(buf, 12, stringOff)
	putU32(buf, 16, uint32(len(stringTable)))
	putU32(buf, 20, dataOff)
	putU32(buf, 24, uniformOff)
	putU32(buf, 28, uint32(len(uniformTable)))
	putU32(buf, 32, animOff)
	putU32(buf, 36, uint32(len(animTable)))

	copy(buf[stringOff:], stringTable)
	copy(buf[dataOff:], dataSection)
	copy(buf[uniformOff:], uniformTable)
	copy(buf[animOff:], animTable)
	copy(buf[bytecodeOff:], bytecode)

	return buf
}

func encodeBlobTable(blobs [][]byte) []byte {
	header := make([]byte, 2+8*len(blobs))
	binary.LittleEndian.PutUint16(header[0:2], uint16(len(blobs)))

	bodyOff := uint32(len(header))
	var body []byte
	for i, b := range blobs {
		entryOff := 2 + 8*i
		binary.LittleEndian.PutUint32(header[entryOff:], bodyOff)
		binary.LittleEndian.PutUint32(header[entryOff+4:], uint32(len(b)))
		body = append(body, b...)
		bodyOff += uint32(len(b))
	}
	return append(header, body...)
}

func encodeUniformTable(uniforms []UniformBinding) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(len(uniforms)))
	for _, u := range uniforms {
		head := make([]byte, 8)
		binary.LittleEndian.PutUint16(head[0:2], u.BufferID)
		binary.LittleEndian.PutUint16(head[2:4], u.NameStringID)
		head[4] = u.Group
		head[5] = u.Binding
		binary.LittleEndian.PutUint16(head[6:8], uint16(len(u.Fields)))
		buf = append(buf, head...)
		for _, f := range u.Fields {
			field := make([]byte, 10)
			binary.LittleEndian.PutUint32(field[0:4], f.Offset)
			binary.LittleEndian.PutUint32(field[4:8], f.Size)
			field[8] = f.Kind
			field[9] = 0
			buf = append(buf, field...)
		}
	}
	return buf
}

func encodeAnimationTable(anim *AnimationTable) []byte {
	if anim == nil {
		return nil
	}
	buf := make([]byte, 7)
	binary.LittleEndian.PutUint32(buf[0:4], anim.DurationMs)
	if anim.Loop {
		buf[4] = 1
	}
	binary.LittleEndian.PutUint16(buf[5:7], uint16(len(anim.Scenes)))
	for _, s := range anim.Scenes {
		rec := make([]byte, 10)
		binary.LittleEndian.PutUint16(rec[0:2], s.FrameStringID)
		binary.LittleEndian.PutUint32(rec[2:6], s.StartMs)
		binary.LittleEndian.PutUint32(rec[6:10], s.EndMs)
		buf = append(buf, rec...)
	}
	return buf
}
