package ast

// NodeTag identifies the syntactic form of a Node. One macro tag exists
// per macro keyword so the analyzer can switch on it directly instead of
// re-deriving the macro kind from the keyword token.
type NodeTag uint8

const (
	NodeRoot NodeTag = iota

	NodeMacroWGSL
	NodeMacroShaderModule
	NodeMacroBuffer
	NodeMacroTexture
	NodeMacroSampler
	NodeMacroBindGroup
	NodeMacroBindGroupLayout
	NodeMacroPipelineLayout
	NodeMacroRenderPipeline
	NodeMacroComputePipeline
	NodeMacroRenderPass
	NodeMacroComputePass
	NodeMacroRenderBundle
	NodeMacroFrame
	NodeMacroData
	NodeMacroQueue
	NodeMacroImageBitmap
	NodeMacroWasmCall
	NodeMacroQuerySet
	NodeMacroTextureView
	NodeMacroAnimation
	NodeDefine

	NodeProperty
	NodeObject
	NodeArray

	NodeStringValue
	NodeNumberValue
	NodeBooleanValue
	NodeIdentifierValue
	NodeRuntimeInterpolation
	NodeBuiltinRef
	NodeUniformAccess

	NodeExprAdd
	NodeExprSub
	NodeExprMul
	NodeExprDiv
	NodeExprNegate
)

// MacroNodeTags lists every node tag that represents a top-level macro
// declaration (i.e. everything except NodeDefine, which has its own shape).
var MacroNodeTags = map[NodeTag]bool{
	NodeMacroWGSL:             true,
	NodeMacroShaderModule:     true,
	NodeMacroBuffer:           true,
	NodeMacroTexture:          true,
	NodeMacroSampler:          true,
	NodeMacroBindGroup:        true,
	NodeMacroBindGroupLayout:  true,
	NodeMacroPipelineLayout:   true,
	NodeMacroRenderPipeline:   true,
	NodeMacroComputePipeline:  true,
	NodeMacroRenderPass:       true,
	NodeMacroComputePass:      true,
	NodeMacroRenderBundle:     true,
	NodeMacroFrame:            true,
	NodeMacroData:             true,
	NodeMacroQueue:            true,
	NodeMacroImageBitmap:      true,
	NodeMacroWasmCall:         true,
	NodeMacroQuerySet:         true,
	NodeMacroTextureView:      true,
	NodeMacroAnimation:        true,
}

// MacroTokenToNodeTag maps a macro keyword token tag to the node tag used
// to represent its declaration.
var MacroTokenToNodeTag = map[TokenTag]NodeTag{
	TokenMacroWGSL:            NodeMacroWGSL,
	TokenMacroShaderModule:    NodeMacroShaderModule,
	TokenMacroBuffer:          NodeMacroBuffer,
	TokenMacroTexture:         NodeMacroTexture,
	TokenMacroSampler:         NodeMacroSampler,
	TokenMacroBindGroup:       NodeMacroBindGroup,
	TokenMacroBindGroupLayout: NodeMacroBindGroupLayout,
	TokenMacroPipelineLayout:  NodeMacroPipelineLayout,
	TokenMacroRenderPipeline:  NodeMacroRenderPipeline,
	TokenMacroComputePipeline: NodeMacroComputePipeline,
	TokenMacroRenderPass:      NodeMacroRenderPass,
	TokenMacroComputePass:     NodeMacroComputePass,
	TokenMacroRenderBundle:    NodeMacroRenderBundle,
	TokenMacroFrame:           NodeMacroFrame,
	TokenMacroData:            NodeMacroData,
	TokenMacroQueue:           NodeMacroQueue,
	TokenMacroImageBitmap:     NodeMacroImageBitmap,
	TokenMacroWasmCall:        NodeMacroWasmCall,
	TokenMacroQuerySet:        NodeMacroQuerySet,
	TokenMacroTextureView:     NodeMacroTextureView,
	TokenMacroAnimation:       NodeMacroAnimation,
}

// Index is a dense index into a Tree's node arrays. Index(0) is always the
// root node.
type Index uint32

// NoIndex marks the absence of a node reference (e.g. an unused Data field).
const NoIndex Index = 1<<32 - 1

// Data is the uniform payload every node carries. Its interpretation
// depends on the node's Tag; see the per-tag comments below. A single
// {LHS, RHS} pair is enough to express all four shapes the spec calls
// for:
//
//   - none:            both fields unused
//   - single index:    LHS holds the index (node or, for builtin/uniform
//     refs, a token), RHS unused
//   - pair:             LHS and RHS both hold indices
//   - extra_range:      LHS/RHS are (start, end) bounds into Tree.ExtraData
type Data struct {
	LHS uint32
	RHS uint32
}

// Node is one entry of the syntax tree's node list: Tree.Nodes[i] holds
// node i's tag, main token, and data together (one slice of structs, not
// parallel per-field arrays).
//
// Per-tag shape of MainToken/NodeData:
//
//	NodeRoot:                 MainToken unused. Data = extra_range of top-level node indices.
//	NodeMacroXxx:             MainToken = keyword token. Data = extra_range (start,end) into
//	                          ExtraData, laid out as [nameToken, propCount, propIndex...].
//	NodeDefine:               MainToken = keyword token. Data = pair{nameToken, valueNodeIndex}.
//	NodeProperty:             MainToken = property-name identifier token. Data = single{valueNodeIndex}.
//	NodeObject:                MainToken = opening '{' token. Data = extra_range of property node indices.
//	NodeArray:                MainToken = opening '[' token. Data = extra_range of value node indices.
//	NodeStringValue:          MainToken = string token. Data unused.
//	NodeRuntimeInterpolation: MainToken = string token (contains '$'). Data unused.
//	NodeNumberValue:          MainToken = number token, or identifier token for PI/E/TAU. Data unused.
//	NodeBooleanValue:         MainToken = true/false token. Data unused.
//	NodeIdentifierValue:      MainToken = identifier token. Data unused.
//	NodeBuiltinRef:           MainToken = base identifier token (canvas/time). Data.LHS = field token index.
//	NodeUniformAccess:        MainToken = shader identifier token. Data.LHS = var-name token index.
//	NodeExprAdd/Sub/Mul/Div:  MainToken = operator token. Data = pair{lhsNode, rhsNode}.
//	NodeExprNegate:           MainToken = '-' token. Data = single{operandNode}.
type Node struct {
	Tag       NodeTag
	MainToken uint32
	Data      Data
}

// Tree is the parser's output: tokens plus the flat node list.
type Tree struct {
	Source []byte
	Tokens []Token

	// TokenEnds mirrors Tokens: TokenEnds[i] is the byte offset just past
	// token i. The lexer fills this in as it scans each token's exact
	// extent (string escapes, hex digits, keyword length, ...); nothing
	// about a token's tag alone determines its length, so this is kept
	// alongside Tokens rather than recomputed on each lookup.
	TokenEnds []uint32

	Nodes     []Node
	ExtraData []uint32
}

// AddNode appends a node and returns its index.
func (t *Tree) AddNode(n Node) Index {
	t.Nodes = append(t.Nodes, n)
	return Index(len(t.Nodes) - 1)
}

// AddExtra appends a slice of indices to ExtraData and returns the
// (start, end) range that bounds them, ready to store in a Data field.
func (t *Tree) AddExtra(values []uint32) (start, end uint32) {
	start = uint32(len(t.ExtraData))
	t.ExtraData = append(t.ExtraData, values...)
	end = uint32(len(t.ExtraData))
	return start, end
}

// ExtraRange returns the slice of ExtraData bounded by [start, end).
func (t *Tree) ExtraRange(start, end uint32) []uint32 {
	return t.ExtraData[start:end]
}

// Node returns the node at index i.
func (t *Tree) Node(i Index) Node {
	return t.Nodes[i]
}

// TokenText returns the literal source text covered by the token at index
// i.
func (t *Tree) TokenText(i uint32) []byte {
	return t.Source[t.Tokens[i].Start:t.TokenEnds[i]]
}

// RootMacros returns the indices of the top-level macro/define nodes.
func (t *Tree) RootMacros() []uint32 {
	root := t.Node(0)
	return t.ExtraRange(root.Data.LHS, root.Data.RHS)
}

// MacroHeader decodes a NodeMacroXxx node's extra_range, laid out by the
// parser as [nameToken, propCount, propIndex...].
func (t *Tree) MacroHeader(n Node) (nameToken uint32, properties []uint32) {
	extra := t.ExtraRange(n.Data.LHS, n.Data.RHS)
	nameToken = extra[0]
	count := extra[1]
	return nameToken, extra[2 : 2+count]
}

// MacroName returns the declared name of a macro node, as source text.
func (t *Tree) MacroName(n Node) string {
	nameToken, _ := t.MacroHeader(n)
	return string(t.TokenText(nameToken))
}

// PropertyName returns a property node's name, as source text.
func (t *Tree) PropertyName(n Node) string {
	return string(t.TokenText(n.MainToken))
}

// PropertyValue returns the node index of a property's value.
func (t *Tree) PropertyValue(n Node) Index {
	return Index(n.Data.LHS)
}

// ArrayElements returns an array node's element node indices.
func (t *Tree) ArrayElements(n Node) []uint32 {
	return t.ExtraRange(n.Data.LHS, n.Data.RHS)
}

// ObjectProperties returns an object node's property node indices.
func (t *Tree) ObjectProperties(n Node) []uint32 {
	return t.ExtraRange(n.Data.LHS, n.Data.RHS)
}

// DefineName returns a #define node's constant name, as source text.
func (t *Tree) DefineName(n Node) string {
	return string(t.TokenText(n.Data.LHS))
}

// DefineValue returns a #define node's value node index.
func (t *Tree) DefineValue(n Node) Index {
	return Index(n.Data.RHS)
}
