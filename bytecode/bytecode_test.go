package bytecode

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 65535, 1 << 32, 1<<64 - 1}
	for _, want := range cases {
		buf := PutUvarint(nil, want)
		got, n := Uvarint(buf)
		if n != len(buf) {
			t.Errorf("%d: consumed %d bytes, want %d", want, n, len(buf))
		}
		if got != want {
			t.Errorf("round trip %d got %d", want, got)
		}
	}
}

func TestVarintSingleByteForSmallValues(t *testing.T) {
	buf := PutUvarint(nil, 100)
	if len(buf) != 1 {
		t.Errorf("expected 1 byte for value < 128, got %d", len(buf))
	}
}

func TestTruncatedVarint(t *testing.T) {
	_, n := Uvarint([]byte{0x80, 0x80})
	if n != 0 {
		t.Errorf("expected n=0 for truncated varint, got %d", n)
	}
}

func TestEmitDecodeRoundTrip(t *testing.T) {
	e := NewEmitter()
	e.Emit(OpCreateBuffer, 0, 256, 3)
	e.Emit(OpCreateShader, 1, 0)
	e.Emit(OpBeginRenderPass, 2, 1, 0, 0)
	e.Emit(OpSetPipeline, 0)
	e.Emit(OpDraw, 3, 1, 0, 0)
	e.Emit(OpEndPass)
	e.Emit(OpSubmit)

	d := NewDecoder(e.Bytes())
	want := []Opcode{OpCreateBuffer, OpCreateShader, OpBeginRenderPass, OpSetPipeline, OpDraw, OpEndPass, OpSubmit}
	for i, w := range want {
		inst, err := d.Next()
		if err != nil {
			t.Fatalf("instruction %d: %v", i, err)
		}
		if inst.Op != w {
			t.Errorf("instruction %d op = %s, want %s", i, inst.Op, w)
		}
	}
	if !d.Done() {
		t.Errorf("decoder should have consumed the entire stream")
	}
}

func TestEmitWrongParamCountPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for wrong param count")
		}
	}()
	e := NewEmitter()
	e.Emit(OpCreateBuffer, 0, 256) // missing the usage byte
}

func TestDecodeUnknownOpcode(t *testing.T) {
	d := NewDecoder([]byte{0xFE})
	_, err := d.Next()
	if err != ErrInvalidOpcode {
		t.Fatalf("err = %v, want ErrInvalidOpcode", err)
	}
}

func TestDecodeTruncatedStream(t *testing.T) {
	e := NewEmitter()
	e.Emit(OpCreateBuffer, 0, 256, 3)
	truncated := e.Bytes()[:len(e.Bytes())-1]
	d := NewDecoder(truncated)
	_, err := d.Next()
	if err != ErrTruncatedBytecode {
		t.Fatalf("err = %v, want ErrTruncatedBytecode", err)
	}
}

func TestReservedOpcodesAreSkippable(t *testing.T) {
	e := NewEmitter()
	e.Emit(OpFillLinear, 0, 0, 0)
	e.Emit(OpNop)
	d := NewDecoder(e.Bytes())
	inst, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if inst.Op != OpFillLinear {
		t.Fatalf("op = %s, want fill_linear", inst.Op)
	}
	if !d.Done() {
		if _, err := d.Next(); err != nil {
			t.Fatalf("Next (nop): %v", err)
		}
	}
}
