package compiler

import (
	"github.com/gogpu/pngine/analyzer"
	"github.com/gogpu/pngine/ast"
	"github.com/gogpu/pngine/bytecode"
	"github.com/gogpu/pngine/gpu"
	"github.com/gogpu/pngine/intern"
	"github.com/gogpu/pngine/internal/logging"
	"github.com/gogpu/pngine/pngb"
)

// assembler holds the emission-pass state: the resource-ID allocation
// (spec.md's "dispatcher's own dense allocation"), the shared interner,
// and the bytecode stream under construction.
type assembler struct {
	tree   *ast.Tree
	result *analyzer.AnalysisResult
	tables *intern.Tables

	ids    map[string]gpu.ResourceID
	nextID gpu.ResourceID

	emitter *bytecode.Emitter

	passIDs    map[string]uint64 // pass macro name -> define_pass id
	nextPassID uint64

	frameOrder []string
	scenes     []pngb.Scene
	animDur    uint32
	animLoop   bool
}

func (a *assembler) allocID(name string) gpu.ResourceID {
	if id, ok := a.ids[name]; ok {
		return id
	}
	id := a.nextID
	a.nextID++
	a.ids[name] = id
	return id
}

// run drives the full emission pass: resource creation in dependency
// order, then one define_pass per #renderPass/#computePass symbol, then
// one define_frame per #frame (spec.md §4.6 stage 3).
func (a *assembler) run() {
	a.passIDs = make(map[string]uint64)
	a.nextPassID = 1

	for _, group := range emissionGroups {
		a.emitGroup(group)
	}

	a.emitPasses()
	a.emitFrames()
	a.emitAnimation()
}

func (a *assembler) macrosByTag(tags []ast.NodeTag) []ast.Node {
	want := make(map[ast.NodeTag]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var out []ast.Node
	for _, mi := range a.tree.RootMacros() {
		n := a.tree.Node(ast.Index(mi))
		if want[n.Tag] {
			out = append(out, n)
		}
	}
	return out
}

func (a *assembler) emitGroup(tags []ast.NodeTag) {
	for _, n := range a.macrosByTag(tags) {
		a.emitResource(n)
	}
}

func (a *assembler) emitResource(n ast.Node) {
	name := a.tree.MacroName(n)
	id := a.allocID(name)

	switch n.Tag {
	case ast.NodeMacroWGSL:
		code := a.requireString(n, "value")
		dataID := a.tables.Data([]byte(code))
		a.emitter.Emit(bytecode.OpCreateShader, uint64(id), uint64(dataID))

	case ast.NodeMacroShaderModule:
		code := a.requireString(n, "code")
		dataID := a.tables.Data([]byte(code))
		a.emitter.Emit(bytecode.OpCreateShader, uint64(id), uint64(dataID))

	case ast.NodeMacroBindGroupLayout:
		blob := a.descriptorBlob(n, nil)
		a.emitter.Emit(bytecode.OpCreateBindGroupLayout, uint64(id), uint64(blob))

	case ast.NodeMacroPipelineLayout:
		blob := a.descriptorBlob(n, nil)
		a.emitter.Emit(bytecode.OpCreatePipelineLayout, uint64(id), uint64(blob))

	case ast.NodeMacroRenderPipeline:
		blob := a.descriptorBlob(n, nil)
		a.emitter.Emit(bytecode.OpCreateRenderPipeline, uint64(id), uint64(blob))

	case ast.NodeMacroComputePipeline:
		blob := a.descriptorBlob(n, nil)
		a.emitter.Emit(bytecode.OpCreateComputePipeline, uint64(id), uint64(blob))

	case ast.NodeMacroBuffer:
		size := a.resolveUint(n, "size")
		usage := a.resolveUsageFlags(n, "usage")
		a.emitter.Emit(bytecode.OpCreateBuffer, uint64(id), size, uint64(usage))

	case ast.NodeMacroTexture:
		blob := a.descriptorBlob(n, nil)
		a.emitter.Emit(bytecode.OpCreateTexture, uint64(id), uint64(blob))

	case ast.NodeMacroSampler:
		blob := a.descriptorBlob(n, nil)
		a.emitter.Emit(bytecode.OpCreateSampler, uint64(id), uint64(blob))

	case ast.NodeMacroQuerySet:
		blob := a.descriptorBlob(n, nil)
		a.emitter.Emit(bytecode.OpCreateQuerySet, uint64(id), uint64(blob))

	case ast.NodeMacroImageBitmap:
		// create_image_bitmap's second param is a blob_data_id (spec.md
		// §6), not a desc_data_id: the interned bytes are the image's raw
		// encoded source, handed to the back end to decode directly.
		source := a.requireString(n, "source")
		dataID := a.tables.Data([]byte(source))
		a.emitter.Emit(bytecode.OpCreateImageBitmap, uint64(id), uint64(dataID))

	case ast.NodeMacroTextureView:
		texID := a.resolveRefID(n, "texture")
		blob := a.descriptorBlob(n, map[string]bool{"texture": true})
		a.emitter.Emit(bytecode.OpCreateTextureView, uint64(id), uint64(texID), uint64(blob))

	case ast.NodeMacroBindGroup:
		layoutID := a.resolveRefID(n, "layout")
		blob := a.descriptorBlob(n, map[string]bool{"layout": true})
		a.emitter.Emit(bytecode.OpCreateBindGroup, uint64(id), uint64(layoutID), uint64(blob))

	case ast.NodeMacroRenderBundle:
		blob := a.descriptorBlob(n, nil)
		a.emitter.Emit(bytecode.OpCreateRenderBundle, uint64(id), uint64(blob))

	default:
		logging.Logger().Warn("compiler: unhandled resource macro", "tag", n.Tag, "name", name)
	}
}

func (a *assembler) requireString(n ast.Node, prop string) string {
	idx, ok := a.findProperty(n, prop)
	if !ok {
		return ""
	}
	v := a.tree.Node(idx)
	switch v.Tag {
	case ast.NodeStringValue, ast.NodeRuntimeInterpolation:
		text := a.tree.TokenText(v.MainToken)
		if len(text) >= 2 {
			text = text[1 : len(text)-1]
		}
		return string(text)
	}
	return ""
}

func (a *assembler) findProperty(n ast.Node, name string) (ast.Index, bool) {
	_, props := a.tree.MacroHeader(n)
	for _, pi := range props {
		p := a.tree.Node(ast.Index(pi))
		if a.tree.PropertyName(p) == name {
			return a.tree.PropertyValue(p), true
		}
	}
	return 0, false
}

func (a *assembler) resolveUint(n ast.Node, prop string) uint64 {
	idx, ok := a.findProperty(n, prop)
	if !ok {
		return 0
	}
	if f, ok := a.result.ResolvedExpressions[idx]; ok && f != nil {
		return uint64(*f)
	}
	return 0
}

func (a *assembler) resolveByte(n ast.Node, prop string) uint8 {
	return uint8(a.resolveUint(n, prop))
}

// resolveRefID resolves a property whose value is an identifier_value
// naming another macro, returning that macro's allocated resource ID. The
// referenced macro must already have been emitted by emission-group
// order, which is guaranteed by spec.md §4.6's dependency ordering.
func (a *assembler) resolveRefID(n ast.Node, prop string) gpu.ResourceID {
	idx, ok := a.findProperty(n, prop)
	if !ok {
		return 0
	}
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeIdentifierValue {
		return 0
	}
	name := string(a.tree.TokenText(v.MainToken))
	return a.allocID(name)
}
