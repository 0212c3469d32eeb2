// Package bytecode implements the PBSF bytecode stream: a flat sequence
// of (opcode byte, params...) with unsigned LEB128-encoded integer params
// and literal fixed-width byte params (spec.md §4.5). There is no
// back-patching: the emitter writes resource-creation opcodes in
// dependency order and structural opcodes (define_frame/end_frame, ...)
// bound frame boundaries so the dispatcher never needs forward jumps it
// can't compute from the stream alone.
package bytecode

// Opcode identifies one bytecode instruction. The numeric values are the
// wire encoding and must never be reordered once a PNGB file exists that
// depends on them; new opcodes are appended at the end.
type Opcode uint8

const (
	OpNop Opcode = iota

	// Resource creation. Composite descriptors (bind group layouts,
	// pipelines, bind groups, bundles, textures, views, samplers) are
	// interned once as a JSON blob in the data section and referenced by
	// data_id, keeping every creation opcode's shape fixed regardless of
	// how many entries/bindings the descriptor has.
	OpCreateBuffer
	OpCreateTexture
	OpCreateSampler
	OpCreateShader
	OpCreateBindGroupLayout
	OpCreatePipelineLayout
	OpCreateBindGroup
	OpCreateRenderPipeline
	OpCreateComputePipeline
	OpCreateTextureView
	OpCreateImageBitmap
	OpCreateRenderBundle
	OpCreateQuerySet

	// Pass lifecycle and drawing.
	OpBeginRenderPass
	OpBeginComputePass
	OpSetPipeline
	OpSetBindGroup
	OpSetVertexBuffer
	OpSetIndexBuffer
	OpDraw
	OpDrawIndexed
	OpDispatch
	OpEndPass

	// Queue operations.
	OpWriteBuffer
	OpCopyBufferToBuffer
	OpCopyExternalImageToTexture
	OpCopyTextureToTexture
	OpSubmit

	// WASM-in-WASM.
	OpInitModule
	OpCallFunc
	OpWriteBufferFromWasm

	// Render bundles.
	OpExecuteRenderBundle

	// Animation.
	OpSeekScene

	// Data generation helpers.
	OpCreateTypedArray
	OpFillRandom
	OpFillConstant
	OpFillExpression
	OpWriteBufferFromArray

	// Per-frame time uniform.
	OpWriteTimeUniform

	// Structural opcodes: these bound the frame/pass tables so
	// execute_all and execute_frame can find byte offsets without a
	// separate index.
	OpDefinePass
	OpExecPass
	OpDefineFrame
	OpEndFrame
	OpEndPassDef

	// Reserved: accepted and skipped by the decoder via the length table,
	// but never emitted by this module's assembler (see DESIGN.md).
	OpCreateShaderConcat
	OpSetBindGroupPool
	OpSelectFromPool
	OpFillLinear
	OpFillElementIndex

	opcodeCount
)

var opcodeNames = [...]string{
	OpNop:                        "nop",
	OpCreateBuffer:               "create_buffer",
	OpCreateTexture:              "create_texture",
	OpCreateSampler:              "create_sampler",
	OpCreateShader:               "create_shader",
	OpCreateBindGroupLayout:      "create_bind_group_layout",
	OpCreatePipelineLayout:       "create_pipeline_layout",
	OpCreateBindGroup:            "create_bind_group",
	OpCreateRenderPipeline:       "create_render_pipeline",
	OpCreateComputePipeline:      "create_compute_pipeline",
	OpCreateTextureView:          "create_texture_view",
	OpCreateImageBitmap:          "create_image_bitmap",
	OpCreateRenderBundle:         "create_render_bundle",
	OpCreateQuerySet:             "create_query_set",
	OpBeginRenderPass:            "begin_render_pass",
	OpBeginComputePass:           "begin_compute_pass",
	OpSetPipeline:                "set_pipeline",
	OpSetBindGroup:               "set_bind_group",
	OpSetVertexBuffer:            "set_vertex_buffer",
	OpSetIndexBuffer:             "set_index_buffer",
	OpDraw:                       "draw",
	OpDrawIndexed:                "draw_indexed",
	OpDispatch:                   "dispatch",
	OpEndPass:                    "end_pass",
	OpWriteBuffer:                "write_buffer",
	OpCopyBufferToBuffer:         "copy_buffer_to_buffer",
	OpCopyExternalImageToTexture: "copy_external_image_to_texture",
	OpCopyTextureToTexture:       "copy_texture_to_texture",
	OpSubmit:                     "submit",
	OpInitModule:                 "init_module",
	OpCallFunc:                   "call_func",
	OpWriteBufferFromWasm:        "write_buffer_from_wasm",
	OpExecuteRenderBundle:        "execute_render_bundle",
	OpSeekScene:                  "seek_scene",
	OpCreateTypedArray:           "create_typed_array",
	OpFillRandom:                 "fill_random",
	OpFillConstant:               "fill_constant",
	OpFillExpression:             "fill_expression",
	OpWriteBufferFromArray:       "write_buffer_from_array",
	OpWriteTimeUniform:           "write_time_uniform",
	OpDefinePass:                 "define_pass",
	OpExecPass:                   "exec_pass",
	OpDefineFrame:                "define_frame",
	OpEndFrame:                   "end_frame",
	OpEndPassDef:                 "end_pass_def",
	OpCreateShaderConcat:         "create_shader_concat",
	OpSetBindGroupPool:           "set_bind_group_pool",
	OpSelectFromPool:             "select_from_pool",
	OpFillLinear:                 "fill_linear",
	OpFillElementIndex:           "fill_element_index",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "unknown_opcode"
}

// paramKind describes how one parameter of an opcode is encoded.
type paramKind uint8

const (
	kVarint paramKind = iota
	kByte
)

// paramSpecs is the static parameter-length table (spec.md §4.5): the
// source of truth both the emitter and the decoder use, so an unknown
// opcode can never be introduced whose length can't be computed from the
// stream alone.
var paramSpecs = [opcodeCount][]paramKind{
	OpNop: {},

	OpCreateBuffer:          {kVarint, kVarint, kByte},
	OpCreateTexture:         {kVarint, kVarint},
	OpCreateSampler:         {kVarint, kVarint},
	OpCreateShader:          {kVarint, kVarint},
	OpCreateBindGroupLayout: {kVarint, kVarint},
	OpCreatePipelineLayout:  {kVarint, kVarint},
	OpCreateBindGroup:       {kVarint, kVarint, kVarint}, // id, layout_id, entries_data_id
	OpCreateRenderPipeline:  {kVarint, kVarint},
	OpCreateComputePipeline: {kVarint, kVarint},
	OpCreateTextureView:     {kVarint, kVarint, kVarint},
	OpCreateImageBitmap:     {kVarint, kVarint},
	OpCreateRenderBundle:    {kVarint, kVarint},
	OpCreateQuerySet:        {kVarint, kVarint},

	// color_tex_id, load_op, store_op, depth_tex_id (0 = none; resource
	// id 0 is never allocated to a real texture, see DESIGN.md).
	OpBeginRenderPass:  {kVarint, kByte, kByte, kVarint},
	OpBeginComputePass: {},
	OpSetPipeline:      {kVarint},
	OpSetBindGroup:     {kByte, kVarint},
	OpSetVertexBuffer:  {kByte, kVarint},
	OpSetIndexBuffer:   {kVarint, kByte},
	OpDraw:             {kVarint, kVarint, kVarint, kVarint},         // vertexCount, instanceCount, firstVertex, firstInstance
	OpDrawIndexed:      {kVarint, kVarint, kVarint, kVarint, kVarint}, // indexCount, instanceCount, firstIndex, baseVertex, firstInstance
	OpDispatch:         {kVarint, kVarint, kVarint},
	OpEndPass:          {},

	OpWriteBuffer:                {kVarint, kVarint, kVarint}, // buffer_id, offset, data_id
	OpCopyBufferToBuffer:         {kVarint, kVarint, kVarint, kVarint, kVarint},
	OpCopyExternalImageToTexture: {kVarint, kVarint},
	OpCopyTextureToTexture:       {kVarint, kVarint, kVarint},
	OpSubmit:                     {},

	OpInitModule:          {kVarint, kVarint},
	OpCallFunc:            {kVarint, kVarint, kVarint, kVarint}, // call_id, mod_id, func_name_id, args_data_id
	OpWriteBufferFromWasm: {kVarint, kVarint},

	// execute_bundles(&[id]) is expressed as one execute_render_bundle
	// opcode per bundle id, in the order the bundles should execute;
	// this keeps the opcode's wire shape fixed without inventing a
	// separate id-list data blob for what repetition already expresses.
	OpExecuteRenderBundle: {kVarint},

	OpSeekScene: {kVarint},

	OpCreateTypedArray:     {kVarint, kVarint},
	OpFillRandom:           {kVarint, kVarint},
	OpFillConstant:         {kVarint, kVarint},
	OpFillExpression:       {kVarint, kVarint},
	OpWriteBufferFromArray: {kVarint, kVarint},

	OpWriteTimeUniform: {kVarint, kVarint, kVarint},

	OpDefinePass:  {kVarint},
	OpExecPass:    {kVarint},
	OpDefineFrame: {kVarint},
	OpEndFrame:    {},
	OpEndPassDef:  {},

	OpCreateShaderConcat: {kVarint, kVarint, kVarint},
	OpSetBindGroupPool:   {kVarint, kVarint},
	OpSelectFromPool:     {kVarint, kVarint},
	OpFillLinear:         {kVarint, kVarint, kVarint},
	OpFillElementIndex:   {kVarint},
}
