// Package dispatcher implements the bytecode interpreter that drives a
// gpu.Device from a compiled PNGB module (spec.md §4.8). It runs in two
// phases: ExecuteAll walks the stream once to create every resource and
// index each frame's byte offset, then ExecuteFrame re-enters the stream
// at a named frame's offset on every subsequent call.
package dispatcher

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pngine/animation"
	"github.com/gogpu/pngine/bytecode"
	"github.com/gogpu/pngine/gpu"
	"github.com/gogpu/pngine/internal/logging"
	"github.com/gogpu/pngine/pngb"
)

// Failure modes (spec.md §4.8, §6).
var (
	ErrInvalidOpcode      = bytecode.ErrInvalidOpcode
	ErrTruncatedBytecode  = bytecode.ErrTruncatedBytecode
	ErrResourceNotFound   = errors.New("dispatcher: resource_not_found")
	ErrPassStateViolation = errors.New("dispatcher: pass_state_violation")
	ErrFrameNotFound      = errors.New("dispatcher: frame_not_found")
	ErrNoWasmRuntime      = errors.New("dispatcher: no_wasm_runtime")
)

// passState tracks whether the interpreter is inside a render pass, a
// compute pass, or neither. Pass-scoped opcodes (set_pipeline, draw, ...)
// are only legal while the matching pass is open.
type passState uint8

const (
	stateIdle passState = iota
	stateInRenderPass
	stateInComputePass
)

// Dispatcher executes one PNGB module's bytecode against a gpu.Device. It
// is single-threaded and stateful: ExecuteAll must run exactly once before
// the first ExecuteFrame call (spec.md §5).
type Dispatcher struct {
	device gpu.Device
	module *pngb.Module
	wasm   gpu.WasmRuntime

	frameOffsets map[string]int
	passRanges   map[uint64][2]int // pass id -> [start, end) bytecode offsets
	created      map[gpu.ResourceID]bool

	state    passState
	render   gpu.RenderPassEncoder
	compute  gpu.ComputePassEncoder

	frameCounter uint32

	Width, Height uint32
}

// NewDispatcher wraps device and module for interpretation. wasm may be
// nil if the module has no init_module/call_func opcodes.
func NewDispatcher(device gpu.Device, module *pngb.Module, wasm gpu.WasmRuntime) *Dispatcher {
	return &Dispatcher{
		device:       device,
		module:       module,
		wasm:         wasm,
		frameOffsets: make(map[string]int),
		passRanges:   make(map[uint64][2]int),
		created:      make(map[gpu.ResourceID]bool),
		Width:        1,
		Height:       1,
	}
}

// ExecuteAll runs every resource-creation opcode from the start of the
// stream. It treats define_frame/end_frame and define_pass/end_pass_def
// as structural brackets: their bodies are not executed during this
// walk, only indexed by offset, since a frame's draws only make sense
// once per ExecuteFrame call and a named pass's body is only meant to
// run when exec_pass replays it (spec.md §4.5, §4.8).
func (d *Dispatcher) ExecuteAll() error {
	dec := bytecode.NewDecoder(d.module.Bytecode())

	skipping := false
	var skipEnd bytecode.Opcode
	var passID uint64
	var passStart int

	for !dec.Done() {
		pos := dec.Pos()
		inst, err := dec.Next()
		if err != nil {
			return err
		}

		if skipping {
			if inst.Op == skipEnd {
				if skipEnd == bytecode.OpEndPassDef {
					d.passRanges[passID] = [2]int{passStart, pos}
				}
				skipping = false
			}
			continue
		}

		switch inst.Op {
		case bytecode.OpDefineFrame:
			d.frameOffsets[d.frameName(inst)] = dec.Pos()
			skipping, skipEnd = true, bytecode.OpEndFrame
			continue
		case bytecode.OpDefinePass:
			passID, passStart = inst.Params[0], dec.Pos()
			skipping, skipEnd = true, bytecode.OpEndPassDef
			continue
		}

		if err := d.dispatch(inst); err != nil {
			return err
		}
	}
	logging.Logger().Debug("dispatcher: execute_all complete",
		"frames", len(d.frameOffsets), "passes", len(d.passRanges))
	return nil
}

// ExecuteFrame replays a named frame's bytecode at simulation time tMs.
// Each write_time_uniform met in the frame's stream is served with the
// current scene time (tMs in seconds when there is no animation table).
// It returns ErrFrameNotFound if name was never seen by ExecuteAll.
func (d *Dispatcher) ExecuteFrame(name string, tMs uint32) error {
	offset, ok := d.frameOffsets[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, name)
	}

	dec := bytecode.NewDecoder(d.module.Bytecode())
	dec.Seek(offset)

	sceneTimeS := float64(tMs) / 1000.0
	if _, st, ok := animation.GetSceneTime(d.module, tMs); ok {
		sceneTimeS = st.SceneTimeS
	}

	for {
		if dec.Done() {
			return ErrTruncatedBytecode
		}
		inst, err := dec.Next()
		if err != nil {
			return err
		}
		if inst.Op == bytecode.OpEndFrame {
			break
		}
		if inst.Op == bytecode.OpWriteTimeUniform {
			d.writeTimeUniform(inst, sceneTimeS)
			continue
		}
		if err := d.dispatch(inst); err != nil {
			return err
		}
	}

	if d.state != stateIdle {
		return fmt.Errorf("%w: frame %q ended with an open pass", ErrPassStateViolation, name)
	}

	d.frameCounter++
	return nil
}

// FrameCounter returns the number of execute_frame calls completed so
// far, wrapping at 2^32 like the interpreter's own counter.
func (d *Dispatcher) FrameCounter() uint32 {
	return d.frameCounter
}

func (d *Dispatcher) frameName(inst bytecode.Instruction) string {
	stringID := uint16(inst.Params[0])
	if b := d.module.String(stringID); b != nil {
		return string(b)
	}
	return fmt.Sprintf("<frame#%d>", stringID)
}

func (d *Dispatcher) writeTimeUniform(inst bytecode.Instruction, t float64) {
	bufferID := gpu.ResourceID(inst.Params[0])
	offset := inst.Params[1]

	var aspect float32 = 1
	if d.Height > 0 {
		aspect = float32(d.Width) / float32(d.Height)
	}

	payload := make([]byte, 16)
	binary.LittleEndian.PutUint32(payload[0:4], math.Float32bits(float32(t)))
	binary.LittleEndian.PutUint32(payload[4:8], math.Float32bits(float32(d.Width)))
	binary.LittleEndian.PutUint32(payload[8:12], math.Float32bits(float32(d.Height)))
	binary.LittleEndian.PutUint32(payload[12:16], math.Float32bits(aspect))

	d.device.WriteBuffer(bufferID, offset, payload)
}

// dispatch executes one non-structural instruction, enforcing the
// pass-state machine and the created-resource set along the way.
func (d *Dispatcher) dispatch(inst bytecode.Instruction) error {
	switch inst.Op {
	case bytecode.OpNop, bytecode.OpSeekScene, bytecode.OpDefinePass, bytecode.OpEndPassDef:
		return nil

	case bytecode.OpCreateShaderConcat, bytecode.OpSetBindGroupPool, bytecode.OpSelectFromPool,
		bytecode.OpFillLinear, bytecode.OpFillElementIndex:
		// Reserved opcodes: accepted and skipped, never executed.
		return nil

	case bytecode.OpExecPass:
		rng, ok := d.passRanges[inst.Params[0]]
		if !ok {
			return fmt.Errorf("%w: pass %d", ErrResourceNotFound, inst.Params[0])
		}
		return d.replayPass(rng[0], rng[1])

	case bytecode.OpCreateBuffer:
		id := gpu.ResourceID(inst.Params[0])
		d.device.CreateBuffer(id, gpu.BufferDescriptor{Size: inst.Params[1], Usage: gputypes.BufferUsage(inst.Params[2])})
		d.created[id] = true
		return nil

	case bytecode.OpCreateTexture, bytecode.OpCreateSampler, bytecode.OpCreateShader,
		bytecode.OpCreateBindGroupLayout, bytecode.OpCreatePipelineLayout, bytecode.OpCreateBindGroup,
		bytecode.OpCreateRenderPipeline, bytecode.OpCreateComputePipeline, bytecode.OpCreateTextureView,
		bytecode.OpCreateImageBitmap, bytecode.OpCreateRenderBundle, bytecode.OpCreateQuerySet:
		return d.dispatchCreate(inst)

	case bytecode.OpBeginRenderPass:
		if d.state != stateIdle {
			return fmt.Errorf("%w: begin_render_pass while state=%d", ErrPassStateViolation, d.state)
		}
		colorTex := gpu.ResourceID(inst.Params[0])
		loadOp := gpu.RenderPassLoadOp(inst.Params[1])
		storeOp := gpu.RenderPassStoreOp(inst.Params[2])
		depthTex := gpu.ResourceID(inst.Params[3])
		d.render = d.device.BeginRenderPass(colorTex, loadOp, storeOp, depthTex)
		d.state = stateInRenderPass
		return nil

	case bytecode.OpBeginComputePass:
		if d.state != stateIdle {
			return fmt.Errorf("%w: begin_compute_pass while state=%d", ErrPassStateViolation, d.state)
		}
		d.compute = d.device.BeginComputePass()
		d.state = stateInComputePass
		return nil

	case bytecode.OpEndPass:
		switch d.state {
		case stateInRenderPass:
			d.render.End()
			d.render = nil
		case stateInComputePass:
			d.compute.End()
			d.compute = nil
		default:
			return fmt.Errorf("%w: end_pass while idle", ErrPassStateViolation)
		}
		d.state = stateIdle
		return nil

	case bytecode.OpSetPipeline:
		id := gpu.ResourceID(inst.Params[0])
		if !d.created[id] {
			return fmt.Errorf("%w: pipeline %d", ErrResourceNotFound, id)
		}
		return d.withPassEncoder(
			func(e gpu.RenderPassEncoder) { e.SetPipeline(id) },
			func(e gpu.ComputePassEncoder) { e.SetPipeline(id) },
		)

	case bytecode.OpSetBindGroup:
		slot := uint8(inst.Params[0])
		id := gpu.ResourceID(inst.Params[1])
		if !d.created[id] {
			return fmt.Errorf("%w: bind_group %d", ErrResourceNotFound, id)
		}
		return d.withPassEncoder(
			func(e gpu.RenderPassEncoder) { e.SetBindGroup(slot, id) },
			func(e gpu.ComputePassEncoder) { e.SetBindGroup(slot, id) },
		)

	case bytecode.OpSetVertexBuffer:
		if d.state != stateInRenderPass {
			return fmt.Errorf("%w: set_vertex_buffer outside render pass", ErrPassStateViolation)
		}
		d.render.SetVertexBuffer(uint8(inst.Params[0]), gpu.ResourceID(inst.Params[1]))
		return nil

	case bytecode.OpSetIndexBuffer:
		if d.state != stateInRenderPass {
			return fmt.Errorf("%w: set_index_buffer outside render pass", ErrPassStateViolation)
		}
		d.render.SetIndexBuffer(gpu.ResourceID(inst.Params[0]), gputypes.IndexFormat(inst.Params[1]))
		return nil

	case bytecode.OpDraw:
		if d.state != stateInRenderPass {
			return fmt.Errorf("%w: draw outside render pass", ErrPassStateViolation)
		}
		d.render.Draw(uint32(inst.Params[0]), uint32(inst.Params[1]), uint32(inst.Params[2]), uint32(inst.Params[3]))
		return nil

	case bytecode.OpDrawIndexed:
		if d.state != stateInRenderPass {
			return fmt.Errorf("%w: draw_indexed outside render pass", ErrPassStateViolation)
		}
		// baseVertex is carried as an unsigned varint on the wire: PBSF
		// never expresses a negative vertex base, so the sign bit of the
		// back-end's int32 parameter is always zero (see DESIGN.md).
		d.render.DrawIndexed(uint32(inst.Params[0]), uint32(inst.Params[1]), uint32(inst.Params[2]), int32(inst.Params[3]), uint32(inst.Params[4]))
		return nil

	case bytecode.OpExecuteRenderBundle:
		if d.state != stateInRenderPass {
			return fmt.Errorf("%w: execute_render_bundle outside render pass", ErrPassStateViolation)
		}
		id := gpu.ResourceID(inst.Params[0])
		if !d.created[id] {
			return fmt.Errorf("%w: render_bundle %d", ErrResourceNotFound, id)
		}
		d.render.ExecuteBundle(id)
		return nil

	case bytecode.OpDispatch:
		if d.state != stateInComputePass {
			return fmt.Errorf("%w: dispatch outside compute pass", ErrPassStateViolation)
		}
		d.compute.Dispatch(uint32(inst.Params[0]), uint32(inst.Params[1]), uint32(inst.Params[2]))
		return nil

	case bytecode.OpWriteBuffer:
		id := gpu.ResourceID(inst.Params[0])
		if !d.created[id] {
			return fmt.Errorf("%w: buffer %d", ErrResourceNotFound, id)
		}
		d.device.WriteBuffer(id, inst.Params[1], d.module.Data(uint16(inst.Params[2])))
		return nil

	case bytecode.OpCopyBufferToBuffer:
		d.device.CopyBufferToBuffer(
			gpu.ResourceID(inst.Params[0]), inst.Params[1],
			gpu.ResourceID(inst.Params[2]), inst.Params[3], inst.Params[4],
		)
		return nil

	case bytecode.OpCopyExternalImageToTexture:
		d.device.CopyExternalImageToTexture(gpu.ResourceID(inst.Params[0]), gpu.ResourceID(inst.Params[1]))
		return nil

	case bytecode.OpCopyTextureToTexture:
		d.device.CopyTextureToTexture(gpu.ResourceID(inst.Params[0]), gpu.ResourceID(inst.Params[1]), nil)
		return nil

	case bytecode.OpSubmit:
		d.device.Submit()
		return nil

	case bytecode.OpInitModule, bytecode.OpCallFunc, bytecode.OpWriteBufferFromWasm:
		if d.wasm == nil {
			return ErrNoWasmRuntime
		}
		return d.dispatchWasm(inst)

	case bytecode.OpCreateTypedArray, bytecode.OpFillRandom, bytecode.OpFillConstant,
		bytecode.OpFillExpression, bytecode.OpWriteBufferFromArray:
		// Data-generation helpers operate entirely on compiler-owned scratch
		// buffers folded at compile time; nothing crosses the Device
		// boundary for them.
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrInvalidOpcode, inst.Op)
	}
}

func (d *Dispatcher) dispatchWasm(inst bytecode.Instruction) error {
	switch inst.Op {
	case bytecode.OpInitModule:
		d.wasm.InitModule(gpu.ResourceID(inst.Params[0]), d.module.Data(uint16(inst.Params[1])))
	case bytecode.OpCallFunc:
		name := d.module.String(uint16(inst.Params[2]))
		args := d.module.Data(uint16(inst.Params[3]))
		d.wasm.CallFunc(gpu.ResourceID(inst.Params[0]), gpu.ResourceID(inst.Params[1]), string(name), args)
	case bytecode.OpWriteBufferFromWasm:
		d.wasm.WriteBufferFromWasm(gpu.ResourceID(inst.Params[0]), gpu.ResourceID(inst.Params[1]))
	}
	return nil
}

// replayPass re-executes a captured define_pass body bounded to
// [start, end) of the bytecode stream, for exec_pass reuse.
func (d *Dispatcher) replayPass(start, end int) error {
	dec := bytecode.NewDecoder(d.module.Bytecode())
	dec.Seek(start)
	for dec.Pos() < end {
		inst, err := dec.Next()
		if err != nil {
			return err
		}
		if err := d.dispatch(inst); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) withPassEncoder(onRender func(gpu.RenderPassEncoder), onCompute func(gpu.ComputePassEncoder)) error {
	switch d.state {
	case stateInRenderPass:
		onRender(d.render)
		return nil
	case stateInComputePass:
		onCompute(d.compute)
		return nil
	default:
		return fmt.Errorf("%w: pass-scoped opcode while idle", ErrPassStateViolation)
	}
}

func (d *Dispatcher) dispatchCreate(inst bytecode.Instruction) error {
	id := gpu.ResourceID(inst.Params[0])

	switch inst.Op {
	case bytecode.OpCreateTexture:
		d.device.CreateTexture(id, decodeTextureDescriptor(d.module.Data(uint16(inst.Params[1]))))
	case bytecode.OpCreateSampler:
		d.device.CreateSampler(id, gpu.SamplerDescriptor{})
	case bytecode.OpCreateShader:
		d.device.CreateShader(id, gpu.ShaderDescriptor{Source: string(d.module.Data(uint16(inst.Params[1])))})
	case bytecode.OpCreateBindGroupLayout:
		d.device.CreateBindGroupLayout(id, gpu.BindGroupLayoutDescriptor{Entries: d.module.Data(uint16(inst.Params[1]))})
	case bytecode.OpCreatePipelineLayout:
		d.device.CreatePipelineLayout(id, gpu.PipelineLayoutDescriptor{})
	case bytecode.OpCreateBindGroup:
		d.device.CreateBindGroup(id, gpu.BindGroupDescriptor{
			Layout:  gpu.ResourceID(inst.Params[1]),
			Entries: d.module.Data(uint16(inst.Params[2])),
		})
	case bytecode.OpCreateRenderPipeline:
		d.device.CreateRenderPipeline(id, gpu.RenderPipelineDescriptor{Stages: d.module.Data(uint16(inst.Params[1]))})
	case bytecode.OpCreateComputePipeline:
		d.device.CreateComputePipeline(id, gpu.ComputePipelineDescriptor{Stage: d.module.Data(uint16(inst.Params[1]))})
	case bytecode.OpCreateTextureView:
		d.device.CreateTextureView(id, gpu.TextureViewDescriptor{
			Texture: gpu.ResourceID(inst.Params[1]),
			Options: d.module.Data(uint16(inst.Params[2])),
		})
	case bytecode.OpCreateImageBitmap:
		d.device.CreateImageBitmap(id, d.module.Data(uint16(inst.Params[1])))
	case bytecode.OpCreateRenderBundle:
		d.device.CreateRenderBundle(id, gpu.RenderBundleDescriptor{Entries: d.module.Data(uint16(inst.Params[1]))})
	case bytecode.OpCreateQuerySet:
		d.device.CreateQuerySet(id, gpu.QuerySetDescriptor{Options: d.module.Data(uint16(inst.Params[1]))})
	}
	d.created[id] = true
	return nil
}
