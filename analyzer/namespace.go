package analyzer

import "github.com/gogpu/pngine/ast"

// Namespace groups symbols by macro keyword. Names are unique across every
// namespace (spec.md §4.3), so Symbols below is a single flat map, but
// reference resolution still needs to know which namespaces a given
// property is allowed to point into.
type Namespace uint8

const (
	NsWGSL Namespace = iota
	NsShaderModule
	NsBuffer
	NsTexture
	NsSampler
	NsBindGroup
	NsBindGroupLayout
	NsPipelineLayout
	NsRenderPipeline
	NsComputePipeline
	NsRenderPass
	NsComputePass
	NsRenderBundle
	NsFrame
	NsData
	NsQueue
	NsImageBitmap
	NsWasmCall
	NsQuerySet
	NsTextureView
	NsAnimation
)

var namespaceByNodeTag = map[ast.NodeTag]Namespace{
	ast.NodeMacroWGSL:            NsWGSL,
	ast.NodeMacroShaderModule:    NsShaderModule,
	ast.NodeMacroBuffer:          NsBuffer,
	ast.NodeMacroTexture:         NsTexture,
	ast.NodeMacroSampler:         NsSampler,
	ast.NodeMacroBindGroup:       NsBindGroup,
	ast.NodeMacroBindGroupLayout: NsBindGroupLayout,
	ast.NodeMacroPipelineLayout:  NsPipelineLayout,
	ast.NodeMacroRenderPipeline:  NsRenderPipeline,
	ast.NodeMacroComputePipeline: NsComputePipeline,
	ast.NodeMacroRenderPass:      NsRenderPass,
	ast.NodeMacroComputePass:     NsComputePass,
	ast.NodeMacroRenderBundle:    NsRenderBundle,
	ast.NodeMacroFrame:           NsFrame,
	ast.NodeMacroData:            NsData,
	ast.NodeMacroQueue:           NsQueue,
	ast.NodeMacroImageBitmap:     NsImageBitmap,
	ast.NodeMacroWasmCall:        NsWasmCall,
	ast.NodeMacroQuerySet:        NsQuerySet,
	ast.NodeMacroTextureView:     NsTextureView,
	ast.NodeMacroAnimation:       NsAnimation,
}

func namespaceOf(tag ast.NodeTag) (Namespace, bool) {
	ns, ok := namespaceByNodeTag[tag]
	return ns, ok
}

// propertyNamespaces maps a property name to the set of namespaces a bare
// identifier value under it is allowed to resolve into. Properties absent
// from this table are either non-reference fields (size, format, usage,
// ...) or are only meaningful nested inside an object/array, in which case
// the generic walk still descends into them looking for recognized names.
var propertyNamespaces = map[string][]Namespace{
	"module":           {NsShaderModule, NsWGSL},
	"imports":          {NsWGSL, NsShaderModule},
	"pipeline":         {NsRenderPipeline, NsComputePipeline},
	"layout":           {NsPipelineLayout},
	"perform":          {NsRenderPass, NsComputePass, NsQueue},
	"buffer":           {NsBuffer},
	"texture":          {NsTexture},
	"sampler":          {NsSampler},
	"view":             {NsTextureView},
	"bindGroupLayout":  {NsBindGroupLayout},
	"bindGroupLayouts": {NsBindGroupLayout},
	"bindGroup":        {NsBindGroup},
	"bindGroups":       {NsBindGroup},
	"querySet":         {NsQuerySet},
	"frame":            {NsFrame},
	"source":           {NsImageBitmap},
}

func namespaceIn(ns Namespace, set []Namespace) bool {
	for _, s := range set {
		if s == ns {
			return true
		}
	}
	return false
}

// Symbol is one entry of the global symbol table: a macro's namespace and
// the node that declared it.
type Symbol struct {
	Namespace Namespace
	Node      ast.Index
}
