package compiler

import (
	"github.com/gogpu/pngine/ast"
	"github.com/gogpu/pngine/bytecode"
	"github.com/gogpu/pngine/gpu"
	"github.com/gogpu/pngine/pngb"
)

// emitPasses emits one define_pass/end_pass_def block per #renderPass and
// #computePass macro (spec.md example: "#renderPass draw { pipeline=pp
// draw=3 }"), so a #frame's perform=[...] list can reuse a pass body via
// exec_pass rather than inlining it at every call site.
func (a *assembler) emitPasses() {
	for _, n := range a.macrosByTag([]ast.NodeTag{ast.NodeMacroRenderPass, ast.NodeMacroComputePass}) {
		name := a.tree.MacroName(n)
		passID := a.nextPassID
		a.nextPassID++
		a.passIDs[name] = passID

		a.emitter.Emit(bytecode.OpDefinePass, passID)
		if n.Tag == ast.NodeMacroRenderPass {
			a.emitRenderPassBody(n)
		} else {
			a.emitComputePassBody(n)
		}
		a.emitter.Emit(bytecode.OpEndPassDef)
	}
}

func (a *assembler) emitRenderPassBody(n ast.Node) {
	colorTex := a.resolveOptionalRefID(n, "colorTarget")
	depthTex := a.resolveOptionalRefID(n, "depthTexture")
	loadOp := a.loadOpOf(n)
	storeOp := a.storeOpOf(n)
	a.emitter.Emit(bytecode.OpBeginRenderPass, uint64(colorTex), uint64(loadOp), uint64(storeOp), uint64(depthTex))

	if pipelineID, ok := a.optionalRefID(n, "pipeline"); ok {
		a.emitter.Emit(bytecode.OpSetPipeline, uint64(pipelineID))
	}
	a.emitBindGroups(n)
	a.emitVertexBuffers(n)
	if idxID, ok := a.optionalRefID(n, "indexBuffer"); ok {
		a.emitter.Emit(bytecode.OpSetIndexBuffer, uint64(idxID), uint64(a.indexFormatOf(n)))
	}

	if idx, ok := a.findProperty(n, "drawIndexed"); ok {
		indexCount, instanceCount, firstIndex, baseVertex, firstInstance := a.drawIndexedArgs(idx)
		a.emitter.Emit(bytecode.OpDrawIndexed, indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	} else if idx, ok := a.findProperty(n, "draw"); ok {
		vertexCount, instanceCount, firstVertex, firstInstance := a.drawArgs(idx)
		a.emitter.Emit(bytecode.OpDraw, vertexCount, instanceCount, firstVertex, firstInstance)
	}

	a.emitBundles(n)
	a.emitter.Emit(bytecode.OpEndPass)
}

func (a *assembler) emitComputePassBody(n ast.Node) {
	a.emitter.Emit(bytecode.OpBeginComputePass)
	if pipelineID, ok := a.optionalRefID(n, "pipeline"); ok {
		a.emitter.Emit(bytecode.OpSetPipeline, uint64(pipelineID))
	}
	a.emitBindGroups(n)
	if idx, ok := a.findProperty(n, "dispatch"); ok {
		x, y, z := a.dispatchArgs(idx)
		a.emitter.Emit(bytecode.OpDispatch, x, y, z)
	}
	a.emitter.Emit(bytecode.OpEndPass)
}

func (a *assembler) emitBindGroups(n ast.Node) {
	idx, ok := a.findProperty(n, "bindGroups")
	if !ok {
		return
	}
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeArray {
		return
	}
	for slot, elemIdx := range a.tree.ArrayElements(v) {
		elem := a.tree.Node(ast.Index(elemIdx))
		if elem.Tag != ast.NodeIdentifierValue {
			continue
		}
		id := a.allocID(string(a.tree.TokenText(elem.MainToken)))
		a.emitter.Emit(bytecode.OpSetBindGroup, uint64(slot), uint64(id))
	}
}

func (a *assembler) emitVertexBuffers(n ast.Node) {
	idx, ok := a.findProperty(n, "vertexBuffers")
	if !ok {
		return
	}
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeArray {
		return
	}
	for slot, elemIdx := range a.tree.ArrayElements(v) {
		elem := a.tree.Node(ast.Index(elemIdx))
		if elem.Tag != ast.NodeIdentifierValue {
			continue
		}
		id := a.allocID(string(a.tree.TokenText(elem.MainToken)))
		a.emitter.Emit(bytecode.OpSetVertexBuffer, uint64(slot), uint64(id))
	}
}

func (a *assembler) emitBundles(n ast.Node) {
	idx, ok := a.findProperty(n, "executeBundles")
	if !ok {
		return
	}
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeArray {
		return
	}
	// execute_bundles(&[id]) is one execute_render_bundle opcode per id,
	// in order (see bytecode/opcode.go).
	for _, elemIdx := range a.tree.ArrayElements(v) {
		elem := a.tree.Node(ast.Index(elemIdx))
		if elem.Tag != ast.NodeIdentifierValue {
			continue
		}
		id := a.allocID(string(a.tree.TokenText(elem.MainToken)))
		a.emitter.Emit(bytecode.OpExecuteRenderBundle, uint64(id))
	}
}

func (a *assembler) optionalRefID(n ast.Node, prop string) (gpu.ResourceID, bool) {
	idx, ok := a.findProperty(n, prop)
	if !ok {
		return 0, false
	}
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeIdentifierValue {
		return 0, false
	}
	return a.allocID(string(a.tree.TokenText(v.MainToken))), true
}

// resolveOptionalRefID is like optionalRefID but returns gpu.NoDepthTexture
// (0) when the property is absent, matching begin_render_pass's sentinel
// convention for "no attachment".
func (a *assembler) resolveOptionalRefID(n ast.Node, prop string) gpu.ResourceID {
	if id, ok := a.optionalRefID(n, prop); ok {
		return id
	}
	return gpu.NoDepthTexture
}

func (a *assembler) loadOpOf(n ast.Node) gpu.RenderPassLoadOp {
	if s := a.literalString(n, "loadOp"); s == "load" {
		return gpu.LoadOpLoad
	}
	return gpu.LoadOpClear
}

func (a *assembler) storeOpOf(n ast.Node) gpu.RenderPassStoreOp {
	if s := a.literalString(n, "storeOp"); s == "discard" {
		return gpu.StoreOpDiscard
	}
	return gpu.StoreOpStore
}

func (a *assembler) indexFormatOf(n ast.Node) uint8 {
	if a.literalString(n, "indexFormat") == "uint16" {
		return 0
	}
	return 1
}

func (a *assembler) literalString(n ast.Node, prop string) string {
	idx, ok := a.findProperty(n, prop)
	if !ok {
		return ""
	}
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeStringValue {
		return ""
	}
	text := a.tree.TokenText(v.MainToken)
	if len(text) >= 2 {
		text = text[1 : len(text)-1]
	}
	return string(text)
}

// drawArgs supports both the terse "draw=3" form (spec.md's Triangle
// example) and a full "draw={vertexCount=3 instanceCount=1 ...}" object.
func (a *assembler) drawArgs(idx ast.Index) (vertexCount, instanceCount, firstVertex, firstInstance uint64) {
	instanceCount = 1
	if f, ok := a.result.ResolvedExpressions[idx]; ok && f != nil {
		return uint64(*f), 1, 0, 0
	}
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeObject {
		return 0, 1, 0, 0
	}
	vertexCount = a.numericField(v, "vertexCount")
	if ic := a.numericFieldOk(v, "instanceCount"); ic != nil {
		instanceCount = *ic
	}
	firstVertex = a.numericField(v, "firstVertex")
	firstInstance = a.numericField(v, "firstInstance")
	return
}

func (a *assembler) drawIndexedArgs(idx ast.Index) (indexCount, instanceCount, firstIndex, baseVertex, firstInstance uint64) {
	instanceCount = 1
	if f, ok := a.result.ResolvedExpressions[idx]; ok && f != nil {
		return uint64(*f), 1, 0, 0, 0
	}
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeObject {
		return 0, 1, 0, 0, 0
	}
	indexCount = a.numericField(v, "indexCount")
	if ic := a.numericFieldOk(v, "instanceCount"); ic != nil {
		instanceCount = *ic
	}
	firstIndex = a.numericField(v, "firstIndex")
	// baseVertex travels as an unsigned varint: PBSF never expresses a
	// negative vertex base (see DESIGN.md).
	baseVertex = a.numericField(v, "baseVertex")
	firstInstance = a.numericField(v, "firstInstance")
	return
}

func (a *assembler) dispatchArgs(idx ast.Index) (x, y, z uint64) {
	y, z = 1, 1
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeObject {
		if f, ok := a.result.ResolvedExpressions[idx]; ok && f != nil {
			return uint64(*f), 1, 1
		}
		return 0, 1, 1
	}
	x = a.numericField(v, "x")
	if yv := a.numericFieldOk(v, "y"); yv != nil {
		y = *yv
	}
	if zv := a.numericFieldOk(v, "z"); zv != nil {
		z = *zv
	}
	return
}

func (a *assembler) numericField(obj ast.Node, name string) uint64 {
	if v := a.numericFieldOk(obj, name); v != nil {
		return *v
	}
	return 0
}

func (a *assembler) numericFieldOk(obj ast.Node, name string) *uint64 {
	for _, pi := range a.tree.ObjectProperties(obj) {
		p := a.tree.Node(ast.Index(pi))
		if a.tree.PropertyName(p) != name {
			continue
		}
		valIdx := a.tree.PropertyValue(p)
		if f, ok := a.result.ResolvedExpressions[valIdx]; ok && f != nil {
			u := uint64(*f)
			return &u
		}
	}
	return nil
}

// emitFrames emits one define_frame/end_frame block per #frame macro
// (spec.md §4.6 stage 3): writeBuffer=[...] writes first, then one
// exec_pass per perform=[...] entry, in source order.
func (a *assembler) emitFrames() {
	for _, n := range a.macrosByTag([]ast.NodeTag{ast.NodeMacroFrame}) {
		name := a.tree.MacroName(n)
		a.frameOrder = append(a.frameOrder, name)
		nameID, ok := a.tables.String(name)
		if !ok {
			continue
		}

		a.emitter.Emit(bytecode.OpDefineFrame, uint64(nameID))
		a.emitWriteBuffers(n)
		a.emitPerform(n)
		a.emitter.Emit(bytecode.OpEndFrame)
	}
}

func (a *assembler) emitWriteBuffers(n ast.Node) {
	idx, ok := a.findProperty(n, "writeBuffer")
	if !ok {
		return
	}
	arr := a.tree.Node(idx)
	if arr.Tag != ast.NodeArray {
		return
	}
	for _, elemIdx := range a.tree.ArrayElements(arr) {
		obj := a.tree.Node(ast.Index(elemIdx))
		if obj.Tag != ast.NodeObject {
			continue
		}
		a.emitWriteBufferEntry(obj)
	}
}

// emitWriteBufferEntry handles one {buffer=... data=...} writeBuffer
// element. A time.seconds or time.millis builtin reference as data
// becomes write_time_uniform; a module.var uniform access becomes a
// zero-length write_buffer; everything else becomes write_buffer against
// an interned byte blob.
func (a *assembler) emitWriteBufferEntry(obj ast.Node) {
	var bufferID gpu.ResourceID
	var dataIdx ast.Index
	haveBuffer, haveData := false, false

	for _, pi := range a.tree.ObjectProperties(obj) {
		p := a.tree.Node(ast.Index(pi))
		switch a.tree.PropertyName(p) {
		case "buffer":
			v := a.tree.Node(a.tree.PropertyValue(p))
			if v.Tag == ast.NodeIdentifierValue {
				bufferID = a.allocID(string(a.tree.TokenText(v.MainToken)))
				haveBuffer = true
			}
		case "data":
			dataIdx = a.tree.PropertyValue(p)
			haveData = true
		}
	}
	if !haveBuffer || !haveData {
		return
	}

	dataNode := a.tree.Node(dataIdx)
	if dataNode.Tag == ast.NodeBuiltinRef {
		field := string(a.tree.TokenText(dataNode.Data.LHS))
		if field == "seconds" || field == "millis" {
			// write_time_uniform(buffer_id, offset, size) at offset 0.
			// The dispatcher writes a 16-byte block there, four f32
			// values (time, width, height, aspect); it does not read the
			// size parameter, which is emitted as 4.
			a.emitter.Emit(bytecode.OpWriteTimeUniform, uint64(bufferID), 0, 4)
			return
		}
	}

	if dataNode.Tag == ast.NodeUniformAccess {
		// data=shaderName.varName (scenario: WGSL reflection example):
		// the analyzer already resolved this to a bind_group/binding pair
		// in ResolvedUniforms during its reflection phase; the assembler
		// has no host-side value to copy yet (PBSF has no literal CPU
		// buffer tied to a shader var), so it emits a zero-length write
		// for now and relies on an explicit writeBuffer data=<literal>
		// entry to carry real bytes. See DESIGN.md.
		if _, ok := a.result.ResolvedUniforms[dataIdx]; ok {
			dataID := a.tables.Data(nil)
			a.emitter.Emit(bytecode.OpWriteBuffer, uint64(bufferID), 0, uint64(dataID))
		}
		return
	}

	blob := a.literalOrZero(dataNode)
	dataID := a.tables.Data(blob)
	a.emitter.Emit(bytecode.OpWriteBuffer, uint64(bufferID), 0, uint64(dataID))
}

func (a *assembler) literalOrZero(n ast.Node) []byte {
	switch n.Tag {
	case ast.NodeStringValue:
		text := a.tree.TokenText(n.MainToken)
		if len(text) >= 2 {
			text = text[1 : len(text)-1]
		}
		return append([]byte(nil), text...)
	default:
		return nil
	}
}

func (a *assembler) emitPerform(n ast.Node) {
	idx, ok := a.findProperty(n, "perform")
	if !ok {
		return
	}
	arr := a.tree.Node(idx)
	if arr.Tag != ast.NodeArray {
		return
	}
	for _, elemIdx := range a.tree.ArrayElements(arr) {
		elem := a.tree.Node(ast.Index(elemIdx))
		if elem.Tag != ast.NodeIdentifierValue {
			continue
		}
		name := string(a.tree.TokenText(elem.MainToken))
		if passID, ok := a.passIDs[name]; ok {
			a.emitter.Emit(bytecode.OpExecPass, passID)
		}
	}
	a.emitter.Emit(bytecode.OpSubmit)
}

// animationTable builds the optional animation table from the first
// #animation macro, if present; any further #animation macros are
// ignored.
func (a *assembler) animationTable() *pngb.AnimationTable {
	macros := a.macrosByTag([]ast.NodeTag{ast.NodeMacroAnimation})
	if len(macros) == 0 {
		return nil
	}
	n := macros[0]

	table := &pngb.AnimationTable{}
	if f, idx, ok := a.findNumericProperty(n, "duration"); ok {
		_ = idx
		table.DurationMs = uint32(f)
	}
	if s := a.literalString(n, "loop"); s == "true" {
		table.Loop = true
	} else if idx, ok := a.findProperty(n, "loop"); ok {
		v := a.tree.Node(idx)
		if v.Tag == ast.NodeBooleanValue {
			table.Loop = string(a.tree.TokenText(v.MainToken)) == "true"
		}
	}

	idx, ok := a.findProperty(n, "scenes")
	if !ok {
		return table
	}
	arr := a.tree.Node(idx)
	if arr.Tag != ast.NodeArray {
		return table
	}
	for _, elemIdx := range a.tree.ArrayElements(arr) {
		obj := a.tree.Node(ast.Index(elemIdx))
		if obj.Tag != ast.NodeObject {
			continue
		}
		table.Scenes = append(table.Scenes, a.sceneOf(obj))
	}
	return table
}

func (a *assembler) sceneOf(obj ast.Node) pngb.Scene {
	var scene pngb.Scene
	for _, pi := range a.tree.ObjectProperties(obj) {
		p := a.tree.Node(ast.Index(pi))
		valIdx := a.tree.PropertyValue(p)
		switch a.tree.PropertyName(p) {
		case "frame":
			v := a.tree.Node(valIdx)
			if v.Tag == ast.NodeIdentifierValue {
				if id, ok := a.tables.String(string(a.tree.TokenText(v.MainToken))); ok {
					scene.FrameStringID = uint16(id)
				}
			}
		case "start":
			if f, ok := a.result.ResolvedExpressions[valIdx]; ok && f != nil {
				scene.StartMs = uint32(*f)
			}
		case "end":
			if f, ok := a.result.ResolvedExpressions[valIdx]; ok && f != nil {
				scene.EndMs = uint32(*f)
			}
		}
	}
	return scene
}

func (a *assembler) findNumericProperty(n ast.Node, name string) (value float64, idx ast.Index, ok bool) {
	pidx, found := a.findProperty(n, name)
	if !found {
		return 0, 0, false
	}
	if f, resolved := a.result.ResolvedExpressions[pidx]; resolved && f != nil {
		return *f, pidx, true
	}
	return 0, pidx, false
}

func (a *assembler) emitAnimation() {
	// Animation scenes reference frames by string id only; no additional
	// bytecode is needed beyond the frame bodies already emitted by
	// emitFrames and the AnimationTable written into the PNGB header by
	// Compile. The dispatcher resolves the active scene from that table at
	// runtime (animation.GetSceneTime); seek_scene is never emitted.
}
