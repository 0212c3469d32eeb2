// Package mockgpu implements gpu.Device by recording every call instead
// of issuing it to real hardware, in the spirit of gogpu-wgpu's hal/noop
// backend. Tests use it to assert
// dispatch order and resource lifecycle without a real GPU.
package mockgpu

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pngine/gpu"
)

// Call is one recorded Device/pass-encoder invocation.
type Call struct {
	Method string
	Args   []any
}

// Device records every gpu.Device call into Calls, and tracks a
// per-category allocation bitset so a duplicate resource ID panics, the
// same contract real back-ends must honor (spec.md §4.8).
type Device struct {
	Calls []Call

	buffers        map[gpu.ResourceID]bool
	textures       map[gpu.ResourceID]bool
	samplers       map[gpu.ResourceID]bool
	shaders        map[gpu.ResourceID]bool
	bindGroups     map[gpu.ResourceID]bool
	bindLayouts    map[gpu.ResourceID]bool
	pipelineLayout map[gpu.ResourceID]bool
	pipelines      map[gpu.ResourceID]bool
	textureViews   map[gpu.ResourceID]bool
	bitmaps        map[gpu.ResourceID]bool
	bundles        map[gpu.ResourceID]bool
	querySets      map[gpu.ResourceID]bool
}

// New returns an empty recording Device.
func New() *Device {
	return &Device{
		buffers:        make(map[gpu.ResourceID]bool),
		textures:       make(map[gpu.ResourceID]bool),
		samplers:       make(map[gpu.ResourceID]bool),
		shaders:        make(map[gpu.ResourceID]bool),
		bindGroups:     make(map[gpu.ResourceID]bool),
		bindLayouts:    make(map[gpu.ResourceID]bool),
		pipelineLayout: make(map[gpu.ResourceID]bool),
		pipelines:      make(map[gpu.ResourceID]bool),
		textureViews:   make(map[gpu.ResourceID]bool),
		bitmaps:        make(map[gpu.ResourceID]bool),
		bundles:        make(map[gpu.ResourceID]bool),
		querySets:      make(map[gpu.ResourceID]bool),
	}
}

func claim(table map[gpu.ResourceID]bool, category string, id gpu.ResourceID) {
	if table[id] {
		panic(fmt.Sprintf("mockgpu: duplicate %s id %d", category, id))
	}
	table[id] = true
}

func (d *Device) record(method string, args ...any) {
	d.Calls = append(d.Calls, Call{Method: method, Args: args})
}

func (d *Device) CreateBuffer(id gpu.ResourceID, desc gpu.BufferDescriptor) {
	claim(d.buffers, "buffer", id)
	d.record("CreateBuffer", id, desc)
}

func (d *Device) CreateTexture(id gpu.ResourceID, desc gpu.TextureDescriptor) {
	claim(d.textures, "texture", id)
	d.record("CreateTexture", id, desc)
}

func (d *Device) CreateSampler(id gpu.ResourceID, desc gpu.SamplerDescriptor) {
	claim(d.samplers, "sampler", id)
	d.record("CreateSampler", id, desc)
}

func (d *Device) CreateShader(id gpu.ResourceID, desc gpu.ShaderDescriptor) {
	claim(d.shaders, "shader", id)
	d.record("CreateShader", id, desc)
}

func (d *Device) CreateBindGroupLayout(id gpu.ResourceID, desc gpu.BindGroupLayoutDescriptor) {
	claim(d.bindLayouts, "bind_group_layout", id)
	d.record("CreateBindGroupLayout", id, desc)
}

func (d *Device) CreatePipelineLayout(id gpu.ResourceID, desc gpu.PipelineLayoutDescriptor) {
	claim(d.pipelineLayout, "pipeline_layout", id)
	d.record("CreatePipelineLayout", id, desc)
}

func (d *Device) CreateBindGroup(id gpu.ResourceID, desc gpu.BindGroupDescriptor) {
	claim(d.bindGroups, "bind_group", id)
	d.record("CreateBindGroup", id, desc)
}

func (d *Device) CreateRenderPipeline(id gpu.ResourceID, desc gpu.RenderPipelineDescriptor) {
	claim(d.pipelines, "render_pipeline", id)
	d.record("CreateRenderPipeline", id, desc)
}

func (d *Device) CreateComputePipeline(id gpu.ResourceID, desc gpu.ComputePipelineDescriptor) {
	claim(d.pipelines, "compute_pipeline", id)
	d.record("CreateComputePipeline", id, desc)
}

func (d *Device) CreateTextureView(id gpu.ResourceID, desc gpu.TextureViewDescriptor) {
	claim(d.textureViews, "texture_view", id)
	d.record("CreateTextureView", id, desc)
}

// CreateImageBitmap decodes sourceData (PNG or JPEG, whatever
// create_image_bitmap's blob_data_id carried) into an RGBA bitmap the same
// way the pack's 2D renderers normalize source images before upload, so the
// recorded call reflects real pixel dimensions rather than a byte count.
// A blob that isn't a decodable image (a placeholder fixture, for example)
// still records a call, with width/height left at zero.
func (d *Device) CreateImageBitmap(id gpu.ResourceID, sourceData []byte) {
	claim(d.bitmaps, "image_bitmap", id)

	var width, height int
	if src, _, err := image.Decode(bytes.NewReader(sourceData)); err == nil {
		bounds := src.Bounds()
		rgba := image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, src, bounds.Min, draw.Src)
		width, height = bounds.Dx(), bounds.Dy()
	}
	d.record("CreateImageBitmap", id, len(sourceData), width, height)
}

func (d *Device) CreateRenderBundle(id gpu.ResourceID, desc gpu.RenderBundleDescriptor) {
	claim(d.bundles, "render_bundle", id)
	d.record("CreateRenderBundle", id, desc)
}

func (d *Device) CreateQuerySet(id gpu.ResourceID, desc gpu.QuerySetDescriptor) {
	claim(d.querySets, "query_set", id)
	d.record("CreateQuerySet", id, desc)
}

func (d *Device) BeginRenderPass(colorTex gpu.ResourceID, loadOp gpu.RenderPassLoadOp, storeOp gpu.RenderPassStoreOp, depthTex gpu.ResourceID) gpu.RenderPassEncoder {
	d.record("BeginRenderPass", colorTex, loadOp, storeOp, depthTex)
	return &renderPassEncoder{device: d}
}

func (d *Device) BeginComputePass() gpu.ComputePassEncoder {
	d.record("BeginComputePass")
	return &computePassEncoder{device: d}
}

func (d *Device) WriteBuffer(buffer gpu.ResourceID, offset uint64, data []byte) {
	d.record("WriteBuffer", buffer, offset, len(data))
}

func (d *Device) CopyBufferToBuffer(src gpu.ResourceID, srcOffset uint64, dst gpu.ResourceID, dstOffset, size uint64) {
	d.record("CopyBufferToBuffer", src, srcOffset, dst, dstOffset, size)
}

func (d *Device) CopyExternalImageToTexture(bitmap, texture gpu.ResourceID) {
	d.record("CopyExternalImageToTexture", bitmap, texture)
}

func (d *Device) CopyTextureToTexture(src, dst gpu.ResourceID, desc []byte) {
	d.record("CopyTextureToTexture", src, dst, desc)
}

func (d *Device) Submit() {
	d.record("Submit")
}

type renderPassEncoder struct {
	device *Device
}

func (e *renderPassEncoder) SetPipeline(id gpu.ResourceID)        { e.device.record("SetPipeline", id) }
func (e *renderPassEncoder) SetBindGroup(slot uint8, id gpu.ResourceID) {
	e.device.record("SetBindGroup", slot, id)
}
func (e *renderPassEncoder) SetVertexBuffer(slot uint8, id gpu.ResourceID) {
	e.device.record("SetVertexBuffer", slot, id)
}
func (e *renderPassEncoder) SetIndexBuffer(id gpu.ResourceID, indexFormat gputypes.IndexFormat) {
	e.device.record("SetIndexBuffer", id, indexFormat)
}
func (e *renderPassEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.device.record("Draw", vertexCount, instanceCount, firstVertex, firstInstance)
}
func (e *renderPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	e.device.record("DrawIndexed", indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}
func (e *renderPassEncoder) ExecuteBundle(id gpu.ResourceID) {
	e.device.record("ExecuteBundle", id)
}
func (e *renderPassEncoder) End() { e.device.record("EndRenderPass") }

type computePassEncoder struct {
	device *Device
}

func (e *computePassEncoder) SetPipeline(id gpu.ResourceID) { e.device.record("SetPipeline", id) }
func (e *computePassEncoder) SetBindGroup(slot uint8, id gpu.ResourceID) {
	e.device.record("SetBindGroup", slot, id)
}
func (e *computePassEncoder) Dispatch(x, y, z uint32) { e.device.record("Dispatch", x, y, z) }
func (e *computePassEncoder) End()                    { e.device.record("EndComputePass") }
