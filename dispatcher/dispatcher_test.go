package dispatcher

import (
	"errors"
	"testing"

	"github.com/gogpu/pngine/bytecode"
	"github.com/gogpu/pngine/gpu/mockgpu"
	"github.com/gogpu/pngine/pngb"
)

func buildModule(t *testing.T, program func(e *bytecode.Emitter)) *pngb.Module {
	t.Helper()
	e := bytecode.NewEmitter()
	program(e)

	buf := pngb.Serialize(
		[][]byte{[]byte("frameA")},
		[][]byte{[]byte("descriptor-blob")},
		nil, nil,
		e.Bytes(),
	)
	m, err := pngb.Deserialize(buf)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	return m
}

func happyPathModule(t *testing.T) *pngb.Module {
	return buildModule(t, func(e *bytecode.Emitter) {
		e.Emit(bytecode.OpCreateBuffer, 1, 64, 0)
		e.Emit(bytecode.OpCreateRenderPipeline, 3, 0)

		e.Emit(bytecode.OpDefineFrame, 0) // string_id 0 -> "frameA"
		e.Emit(bytecode.OpWriteTimeUniform, 1, 0, 16)
		e.Emit(bytecode.OpBeginRenderPass, 2, 1, 0, 0)
		e.Emit(bytecode.OpSetPipeline, 3)
		e.Emit(bytecode.OpDraw, 3, 1, 0, 0)
		e.Emit(bytecode.OpEndPass)
		e.Emit(bytecode.OpEndFrame)
	})
}

func TestExecuteAllCreatesResourcesAndIndexesFrames(t *testing.T) {
	m := happyPathModule(t)
	dev := mockgpu.New()
	d := NewDispatcher(dev, m, nil)

	if err := d.ExecuteAll(); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if len(dev.Calls) != 2 {
		t.Fatalf("expected 2 calls from init phase, got %d: %+v", len(dev.Calls), dev.Calls)
	}
	if dev.Calls[0].Method != "CreateBuffer" || dev.Calls[1].Method != "CreateRenderPipeline" {
		t.Fatalf("unexpected init calls: %+v", dev.Calls)
	}
	if _, ok := d.frameOffsets["frameA"]; !ok {
		t.Fatal("expected frameA to be indexed")
	}
}

func TestExecuteFrameRunsBodyAndAdvancesCounter(t *testing.T) {
	m := happyPathModule(t)
	dev := mockgpu.New()
	d := NewDispatcher(dev, m, nil)
	d.Width, d.Height = 800, 600

	if err := d.ExecuteAll(); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if err := d.ExecuteFrame("frameA", 500); err != nil {
		t.Fatalf("ExecuteFrame: %v", err)
	}
	if d.FrameCounter() != 1 {
		t.Fatalf("FrameCounter = %d, want 1", d.FrameCounter())
	}

	var methods []string
	for _, c := range dev.Calls {
		methods = append(methods, c.Method)
	}
	want := []string{"CreateBuffer", "CreateRenderPipeline", "WriteBuffer", "BeginRenderPass", "SetPipeline", "Draw", "EndRenderPass"}
	if len(methods) != len(want) {
		t.Fatalf("calls = %v, want %v", methods, want)
	}
	for i, m := range want {
		if methods[i] != m {
			t.Errorf("call[%d] = %s, want %s", i, methods[i], m)
		}
	}
}

func TestExecuteFrameUnknownNameFails(t *testing.T) {
	m := happyPathModule(t)
	d := NewDispatcher(mockgpu.New(), m, nil)
	if err := d.ExecuteAll(); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	err := d.ExecuteFrame("missing", 0)
	if !errors.Is(err, ErrFrameNotFound) {
		t.Fatalf("err = %v, want ErrFrameNotFound", err)
	}
}

func TestDrawOutsidePassViolatesPassState(t *testing.T) {
	m := buildModule(t, func(e *bytecode.Emitter) {
		e.Emit(bytecode.OpDefineFrame, 0)
		e.Emit(bytecode.OpDraw, 3, 1, 0, 0)
		e.Emit(bytecode.OpEndFrame)
	})
	d := NewDispatcher(mockgpu.New(), m, nil)
	if err := d.ExecuteAll(); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	err := d.ExecuteFrame("frameA", 0)
	if !errors.Is(err, ErrPassStateViolation) {
		t.Fatalf("err = %v, want ErrPassStateViolation", err)
	}
}

func TestExecPassReplaysDefinedPassBody(t *testing.T) {
	m := buildModule(t, func(e *bytecode.Emitter) {
		e.Emit(bytecode.OpCreateBuffer, 1, 64, 0)
		e.Emit(bytecode.OpCreateRenderPipeline, 3, 0)

		e.Emit(bytecode.OpDefinePass, 7)
		e.Emit(bytecode.OpSetPipeline, 3)
		e.Emit(bytecode.OpDraw, 3, 1, 0, 0)
		e.Emit(bytecode.OpEndPassDef)

		e.Emit(bytecode.OpDefineFrame, 0)
		e.Emit(bytecode.OpBeginRenderPass, 2, 1, 0, 0)
		e.Emit(bytecode.OpExecPass, 7)
		e.Emit(bytecode.OpEndPass)
		e.Emit(bytecode.OpEndFrame)
	})
	dev := mockgpu.New()
	d := NewDispatcher(dev, m, nil)
	if err := d.ExecuteAll(); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if len(d.passRanges) != 1 {
		t.Fatalf("expected 1 captured pass, got %d", len(d.passRanges))
	}
	if err := d.ExecuteFrame("frameA", 0); err != nil {
		t.Fatalf("ExecuteFrame: %v", err)
	}

	var methods []string
	for _, c := range dev.Calls {
		methods = append(methods, c.Method)
	}
	want := []string{"CreateBuffer", "CreateRenderPipeline", "BeginRenderPass", "SetPipeline", "Draw", "EndRenderPass"}
	if len(methods) != len(want) {
		t.Fatalf("calls = %v, want %v", methods, want)
	}
	for i := range want {
		if methods[i] != want[i] {
			t.Errorf("call[%d] = %s, want %s", i, methods[i], want[i])
		}
	}
}

func TestSetPipelineOnUncreatedResourceFails(t *testing.T) {
	m := buildModule(t, func(e *bytecode.Emitter) {
		e.Emit(bytecode.OpDefineFrame, 0)
		e.Emit(bytecode.OpBeginRenderPass, 2, 1, 0, 0)
		e.Emit(bytecode.OpSetPipeline, 99)
		e.Emit(bytecode.OpEndPass)
		e.Emit(bytecode.OpEndFrame)
	})
	d := NewDispatcher(mockgpu.New(), m, nil)
	if err := d.ExecuteAll(); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	err := d.ExecuteFrame("frameA", 0)
	if !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("err = %v, want ErrResourceNotFound", err)
	}
}
