package pngb

import (
	"bytes"
	"testing"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	strings := [][]byte{[]byte("cam"), []byte("main")}
	data := [][]byte{[]byte("shader body"), []byte("descriptor blob")}
	uniforms := []UniformBinding{
		{BufferID: 0, NameStringID: 0, Group: 1, Binding: 2, Fields: []FieldDescriptor{
			{Offset: 0, Size: 64, Kind: 1},
		}},
	}
	anim := &AnimationTable{
		DurationMs: 2000,
		Loop:       true,
		Scenes: []Scene{
			{FrameStringID: 1, StartMs: 0, EndMs: 1000},
			{FrameStringID: 1, StartMs: 1000, EndMs: 2000},
		},
	}
	bytecode := []byte{0x01, 0x02, 0x03}

	buf := Serialize(strings, data, uniforms, anim, bytecode)
	if string(buf[0:4]) != "PNGB" {
		t.Fatalf("bad magic: %q", buf[0:4])
	}

	m, err := Deserialize(buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if m.Version != Version5 {
		t.Errorf("version = %d, want 5", m.Version)
	}
	if !bytes.Equal(m.String(0), []byte("cam")) {
		t.Errorf("string 0 = %q, want cam", m.String(0))
	}
	if !bytes.Equal(m.String(1), []byte("main")) {
		t.Errorf("string 1 = %q, want main", m.String(1))
	}
	if !bytes.Equal(m.Data(0), []byte("shader body")) {
		t.Errorf("data 0 = %q", m.Data(0))
	}
	if !bytes.Equal(m.Bytecode(), bytecode) {
		t.Errorf("bytecode = %v, want %v", m.Bytecode(), bytecode)
	}
	if len(m.Uniforms) != 1 || m.Uniforms[0].Group != 1 || m.Uniforms[0].Binding != 2 {
		t.Fatalf("uniforms = %+v", m.Uniforms)
	}
	if m.Animation == nil || m.Animation.DurationMs != 2000 || len(m.Animation.Scenes) != 2 {
		t.Fatalf("animation = %+v", m.Animation)
	}
}

func TestDeserializeInvalidMagic(t *testing.T) {
	_, err := Deserialize([]byte("XXXX0000000000000000000000000000"))
	if err != ErrInvalidMagic {
		t.Fatalf("err = %v, want ErrInvalidMagic", err)
	}
}

func TestDeserializeUnsupportedVersion(t *testing.T) {
	buf := make([]byte, headerSizeV5)
	copy(buf[0:4], "PNGB")
	buf[4] = 99
	_, err := Deserialize(buf)
	if err != ErrUnsupportedVersion {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestDeserializeTruncated(t *testing.T) {
	buf := make([]byte, headerSizeV5)
	copy(buf[0:4], "PNGB")
	buf[4] = 5
	_, err := Deserialize(buf[:10])
	if err != ErrTruncated {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestFindSceneAtTimeWithLoop(t *testing.T) {
	m := &Module{Animation: &AnimationTable{
		DurationMs: 1000,
		Loop:       true,
		Scenes: []Scene{
			{FrameStringID: 0, StartMs: 0, EndMs: 500},
			{FrameStringID: 1, StartMs: 500, EndMs: 1000},
		},
	}}
	idx, ok := m.FindSceneAtTime(1600) // 1600 mod 1000 = 600 -> scene 1
	if !ok || idx != 1 {
		t.Fatalf("idx=%d ok=%v, want 1,true", idx, ok)
	}
}

func TestFindSceneAtTimeNoLoopOutOfRange(t *testing.T) {
	m := &Module{Animation: &AnimationTable{
		DurationMs: 1000,
		Loop:       false,
		Scenes:     []Scene{{FrameStringID: 0, StartMs: 0, EndMs: 1000}},
	}}
	_, ok := m.FindSceneAtTime(5000)
	if ok {
		t.Fatal("expected no scene for out-of-range, non-looping time")
	}
}

func TestDeserializeV4AssumesBytecodeAfterHeader(t *testing.T) {
	// Hand-build a v4 buffer: header(28) + bytecode + string table + data
	// section, with the header's offsets pointing at the latter two and
	// bytecode placement left implicit (spec.md §9).
	bytecode := []byte{0xAA, 0xBB}
	stringTable := encodeBlobTable([][]byte{[]byte("a")})
	dataSection := encodeBlobTable(nil)

	stringOff := uint32(headerSizeV4) + uint32(len(bytecode))
	dataOff := stringOff + uint32(len(stringTable))

	v4 := make([]byte, headerSizeV4)
	copy(v4[0:4], "PNGB")
	v4[4] = 4
	putU32(v4, 8, stringOff)
	putU32(v4, 12, uint32(len(stringTable)))
	putU32(v4, 16, dataOff)
	putU32(v4, 20, 0)
	putU32(v4, 24, 0)
	v4 = append(v4, bytecode...)
	v4 = append(v4, stringTable...)
	v4 = append(v4, dataSection...)

	m, err := Deserialize(v4)
	if err != nil {
		t.Fatalf("Deserialize v4: %v", err)
	}
	if !bytes.Equal(m.String(0), []byte("a")) {
		t.Errorf("string 0 = %q, want a", m.String(0))
	}
	if !bytes.Equal(m.Bytecode(), bytecode) {
		t.Errorf("bytecode = %v, want %v", m.Bytecode(), bytecode)
	}
}
