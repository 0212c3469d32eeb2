// Package gpu defines the back-end interface the dispatcher drives
// (spec.md §4.8, §6): one method per bytecode opcode category, modeled on
// the resource-creation/pass/queue split used by lower-level GPU HALs.
// The dispatcher is the only component that calls into Device; resource
// IDs are the dispatcher's own dense allocation, not the back-end's.
package gpu

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/pngine/ast"
)

// ResourceID is a dispatcher-assigned handle into one of a Device's
// per-category resource tables. It is never interpreted by the
// dispatcher itself beyond equality and bounds checks.
type ResourceID uint32

// BufferDescriptor mirrors #buffer's resolved properties. Usage is the
// GPUBufferUsage-style bitmask compiler/usage.go folds from usage=[...],
// reusing the wire type the rest of the pack's GPU back ends use for the
// same flags (see DESIGN.md).
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// TextureDescriptor mirrors #texture's resolved properties.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// SamplerDescriptor mirrors #sampler's resolved properties.
type SamplerDescriptor struct {
	Label string
}

// ShaderDescriptor carries a shader's WGSL (or pre-reflected) source.
type ShaderDescriptor struct {
	Label  string
	Source string
}

// BindGroupLayoutDescriptor, BindGroupDescriptor, PipelineLayoutDescriptor
// carry opaque entry lists: the analyzer/assembler already resolved and
// validated them, so the back-end only needs to round-trip the decoded
// JSON blob (see package compiler) into its native descriptor shape.
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []byte // raw decoded descriptor payload
}

type BindGroupDescriptor struct {
	Label   string
	Layout  ResourceID
	Entries []byte // decoded entries_data_id payload
}

// QuerySetDescriptor mirrors #querySet's resolved properties.
type QuerySetDescriptor struct {
	Label   string
	Options []byte // raw decoded descriptor payload
}

type PipelineLayoutDescriptor struct {
	Label            string
	BindGroupLayouts []ResourceID
}

// RenderPipelineDescriptor and ComputePipelineDescriptor carry the
// decoded vertex/fragment/compute stage configuration.
type RenderPipelineDescriptor struct {
	Label  string
	Layout ResourceID
	Stages []byte
}

type ComputePipelineDescriptor struct {
	Label  string
	Layout ResourceID
	Stage  []byte
}

type RenderBundleDescriptor struct {
	Label   string
	Entries []byte
}

type TextureViewDescriptor struct {
	Label   string
	Texture ResourceID
	Options []byte
}

// RenderPassLoadOp / RenderPassStoreOp are the load_op/store_op byte
// values carried directly in the begin_render_pass opcode (spec.md §6).
type RenderPassLoadOp uint8

const (
	LoadOpLoad  RenderPassLoadOp = 0
	LoadOpClear RenderPassLoadOp = 1
)

type RenderPassStoreOp uint8

const (
	StoreOpStore   RenderPassStoreOp = 0
	StoreOpDiscard RenderPassStoreOp = 1
)

// NoDepthTexture is the depth_tex_id sentinel meaning "no depth
// attachment": resource id 0 is never allocated to a real texture, so the
// assembler uses it in begin_render_pass to mean "none" rather than
// inventing a separate presence flag (see DESIGN.md).
const NoDepthTexture ResourceID = 0

// Device is the polymorphic GPU back-end the dispatcher drives. Every
// create_* method is idempotent from the interpreter's point of view: the
// back-end tracks a per-category allocation bitset and panics on a
// duplicate ID, since that is always a bug in the emitted bytecode, never
// a runtime condition (spec.md §4.8).
type Device interface {
	CreateBuffer(id ResourceID, desc BufferDescriptor)
	CreateTexture(id ResourceID, desc TextureDescriptor)
	CreateSampler(id ResourceID, desc SamplerDescriptor)
	CreateShader(id ResourceID, desc ShaderDescriptor)
	CreateBindGroupLayout(id ResourceID, desc BindGroupLayoutDescriptor)
	CreatePipelineLayout(id ResourceID, desc PipelineLayoutDescriptor)
	CreateBindGroup(id ResourceID, desc BindGroupDescriptor)
	CreateRenderPipeline(id ResourceID, desc RenderPipelineDescriptor)
	CreateComputePipeline(id ResourceID, desc ComputePipelineDescriptor)
	CreateTextureView(id ResourceID, desc TextureViewDescriptor)
	CreateImageBitmap(id ResourceID, sourceData []byte)
	CreateRenderBundle(id ResourceID, desc RenderBundleDescriptor)
	CreateQuerySet(id ResourceID, desc QuerySetDescriptor)

	// BeginRenderPass opens a render pass targeting colorTex, with
	// depthTex == NoDepthTexture meaning no depth attachment.
	BeginRenderPass(colorTex ResourceID, loadOp RenderPassLoadOp, storeOp RenderPassStoreOp, depthTex ResourceID) RenderPassEncoder
	BeginComputePass() ComputePassEncoder

	WriteBuffer(buffer ResourceID, offset uint64, data []byte)
	CopyBufferToBuffer(src ResourceID, srcOffset uint64, dst ResourceID, dstOffset uint64, size uint64)
	CopyExternalImageToTexture(bitmap ResourceID, texture ResourceID)
	CopyTextureToTexture(src, dst ResourceID, desc []byte)
	Submit()
}

// RenderPassEncoder records draw commands within one render pass.
type RenderPassEncoder interface {
	SetPipeline(id ResourceID)
	SetBindGroup(slot uint8, id ResourceID)
	SetVertexBuffer(slot uint8, id ResourceID)
	SetIndexBuffer(id ResourceID, indexFormat gputypes.IndexFormat)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	ExecuteBundle(id ResourceID)
	End()
}

// ComputePassEncoder records dispatch commands within one compute pass.
type ComputePassEncoder interface {
	SetPipeline(id ResourceID)
	SetBindGroup(slot uint8, id ResourceID)
	Dispatch(x, y, z uint32)
	End()
}

// WasmRuntime is the optional WASM-in-WASM host the dispatcher drives for
// #wasmCall macros (spec.md's "WASM-in-WASM" opcode group). It is passed
// to the dispatcher separately from the Device; the dispatcher returns
// ErrNoWasmRuntime if wasm opcodes appear and none was supplied.
type WasmRuntime interface {
	InitModule(id ResourceID, code []byte)
	CallFunc(callID, moduleID ResourceID, funcName string, args []byte)
	WriteBufferFromWasm(buffer ResourceID, module ResourceID) []byte
}

// ExprEvaluator is implemented by back-ends that want to support
// fill_expression directly rather than delegating to the analyzer's
// folded constant; unused by mockgpu, kept for forward-compatible
// back-ends that can evaluate at bytecode-execution time against
// resolved AST references.
type ExprEvaluator interface {
	EvaluateAt(idx ast.Index) (float64, bool)
}
