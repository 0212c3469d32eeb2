package analyzer

import "github.com/gogpu/pngine/ast"

// requiredProperties lists, per macro keyword, the property names that
// must be present for the macro to be well-formed. This is not an
// exhaustive WGSL-level descriptor schema: it covers the fields the
// dispatcher's bytecode actually needs to emit a working command, which
// is also what spec.md's worked examples require (#wgsl/value,
// #shaderModule/code, #buffer/size+usage, #texture/format+usage,
// #renderPipeline/vertex).
var requiredProperties = map[ast.NodeTag][]string{
	ast.NodeMacroWGSL:            {"value"},
	ast.NodeMacroShaderModule:    {"code"},
	ast.NodeMacroBuffer:          {"size", "usage"},
	ast.NodeMacroTexture:         {"format", "usage"},
	ast.NodeMacroSampler:         {},
	ast.NodeMacroBindGroup:       {"layout", "entries"},
	ast.NodeMacroBindGroupLayout: {"entries"},
	ast.NodeMacroPipelineLayout:  {},
	ast.NodeMacroRenderPipeline:  {"vertex"},
	ast.NodeMacroComputePipeline: {"compute"},
	ast.NodeMacroRenderPass:      {"pipeline"},
	ast.NodeMacroComputePass:     {"pipeline"},
	ast.NodeMacroRenderBundle:    {},
	ast.NodeMacroFrame:           {"perform"},
	ast.NodeMacroData:            {"size"},
	ast.NodeMacroQueue:           {},
	ast.NodeMacroImageBitmap:     {"source"},
	ast.NodeMacroWasmCall:        {"module", "func"},
	ast.NodeMacroQuerySet:        {"type", "count"},
	ast.NodeMacroTextureView:     {"texture"},
	ast.NodeMacroAnimation:       {"duration", "scenes"},
}
