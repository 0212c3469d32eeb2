// Package analyzer implements the semantic-analysis stage of the PBSF
// pipeline (spec.md §4.3): it walks a parsed *ast.Tree and produces symbol
// tables, resolved references, reflected shader uniforms, and folded
// constant expressions, ready for the bytecode emitter to consume.
//
// Ownership: the analyzer interns shader body content as it deduplicates
// shader fragments by hash (phase 4), since a real data_id is needed to
// build the shader-fragment table; every other string (macro names used as
// frame/uniform identifiers, descriptor blobs) is interned later by the
// module assembler once it knows the final emission order.
package analyzer

import (
	"fmt"

	"github.com/gogpu/pngine/ast"
	"github.com/gogpu/pngine/internal/logging"
	"github.com/gogpu/pngine/intern"
)

// UniformRef is a resolved module.var uniform access: which shader owns
// the binding, and where WGSL reflection placed it.
type UniformRef struct {
	ShaderDataID intern.DataID
	BindGroup    uint8
	Binding      uint8
	VarName      string
}

// ShaderFragment is one entry of the shader-fragment table: the macro that
// declared the shader body, and the (deduplicated) data_id of its content.
type ShaderFragment struct {
	OwnerMacro ast.Index
	DataID     intern.DataID
}

// AnalysisResult is everything the bytecode emitter needs from semantic
// analysis.
type AnalysisResult struct {
	Symbols             map[string]Symbol
	Defines             map[string]ast.Index
	ResolvedIdentifiers map[ast.Index]Namespace
	ResolvedUniforms    map[ast.Index]UniformRef
	ResolvedExpressions map[ast.Index]*float64
	ShaderFragments     []ShaderFragment
	Errors              []*Error
}

type analyzer struct {
	tree     *ast.Tree
	interner *intern.Tables
	result   *AnalysisResult

	shaderBodyProp map[ast.NodeTag]string
	shaderCache    map[string]map[string]uniformLoc // macro name -> reflected locations
	fragmentByName map[string]intern.DataID
}

// Analyze runs all seven analysis phases over tree and returns the
// accumulated result. interner is used to assign data_ids to deduplicated
// shader bodies; callers that only need diagnostics may pass a fresh
// intern.NewTables().
func Analyze(tree *ast.Tree, interner *intern.Tables) *AnalysisResult {
	a := &analyzer{
		tree:     tree,
		interner: interner,
		result: &AnalysisResult{
			Symbols:             make(map[string]Symbol),
			Defines:             make(map[string]ast.Index),
			ResolvedIdentifiers: make(map[ast.Index]Namespace),
			ResolvedUniforms:    make(map[ast.Index]UniformRef),
			ResolvedExpressions: make(map[ast.Index]*float64),
		},
		shaderBodyProp: map[ast.NodeTag]string{
			ast.NodeMacroWGSL:         "value",
			ast.NodeMacroShaderModule: "code",
		},
		shaderCache:    make(map[string]map[string]uniformLoc),
		fragmentByName: make(map[string]intern.DataID),
	}

	a.collectSymbols()        // phase 1
	a.resolveReferences()     // phase 2
	a.detectCycles()          // phase 3
	a.dedupShaders()          // phase 4
	a.reflectUniformAccesses() // phase 5
	a.validateRequiredProps() // phase 6
	a.evaluateExpressions()   // phase 7

	logging.Logger().Debug("analysis complete",
		"symbols", len(a.result.Symbols),
		"errors", len(a.result.Errors),
		"shaderFragments", len(a.result.ShaderFragments))

	return a.result
}

func (a *analyzer) addError(kind ErrorKind, msg string, offset uint32) {
	a.result.Errors = append(a.result.Errors, &Error{Kind: kind, Message: msg, Offset: offset})
}

// phase 1: collect #define names into Defines and every other macro name
// into the namespace-tagged symbol table, flagging duplicates within each
// (macro names are globally unique).
func (a *analyzer) collectSymbols() {
	for _, mi := range a.tree.RootMacros() {
		idx := ast.Index(mi)
		n := a.tree.Node(idx)
		if n.Tag == ast.NodeDefine {
			name := a.tree.DefineName(n)
			if _, dup := a.result.Defines[name]; dup {
				a.addError(ErrDuplicateDefinition, fmt.Sprintf("duplicate #define %q", name), a.tree.Tokens[n.MainToken].Start)
				continue
			}
			a.result.Defines[name] = a.tree.DefineValue(n)
			continue
		}
		ns, ok := namespaceOf(n.Tag)
		if !ok {
			continue
		}
		name := a.tree.MacroName(n)
		if existing, dup := a.result.Symbols[name]; dup {
			a.addError(ErrDuplicateDefinition, fmt.Sprintf("duplicate definition %q (first defined at byte %d)", name, a.tree.Tokens[a.tree.Node(existing.Node).MainToken].Start), a.tree.Tokens[n.MainToken].Start)
			continue
		}
		a.result.Symbols[name] = Symbol{Namespace: ns, Node: idx}
	}
}

// phase 2: resolve every identifier_value that appears under a
// namespace-typed property (module=, pipeline=, perform=[...], ...).
func (a *analyzer) resolveReferences() {
	for _, mi := range a.tree.RootMacros() {
		n := a.tree.Node(ast.Index(mi))
		if n.Tag == ast.NodeDefine {
			continue
		}
		_, props := a.tree.MacroHeader(n)
		for _, pi := range props {
			p := a.tree.Node(ast.Index(pi))
			name := a.tree.PropertyName(p)
			valIdx := a.tree.PropertyValue(p)
			if expected, ok := propertyNamespaces[name]; ok {
				a.resolveRef(valIdx, expected)
			} else {
				a.walk(valIdx)
			}
		}
	}
}

func (a *analyzer) resolveRef(idx ast.Index, expected []Namespace) {
	n := a.tree.Node(idx)
	switch n.Tag {
	case ast.NodeIdentifierValue:
		text := string(a.tree.TokenText(n.MainToken))
		if text == "auto" {
			return
		}
		sym, ok := a.result.Symbols[text]
		if !ok {
			a.addError(ErrUndefinedReference, fmt.Sprintf("undefined reference %q", text), a.tree.Tokens[n.MainToken].Start)
			return
		}
		if !namespaceIn(sym.Namespace, expected) {
			a.addError(ErrTypeMismatch, fmt.Sprintf("%q does not refer to an allowed namespace here", text), a.tree.Tokens[n.MainToken].Start)
			return
		}
		a.result.ResolvedIdentifiers[idx] = sym.Namespace
	case ast.NodeArray:
		for _, e := range a.tree.ArrayElements(n) {
			a.resolveRef(ast.Index(e), expected)
		}
	default:
		a.walk(idx)
	}
}

// walk recurses into objects/arrays looking for nested properties whose
// name is itself namespace-typed (e.g. vertex={ module=s }).
func (a *analyzer) walk(idx ast.Index) {
	n := a.tree.Node(idx)
	switch n.Tag {
	case ast.NodeObject:
		for _, pi := range a.tree.ObjectProperties(n) {
			p := a.tree.Node(ast.Index(pi))
			name := a.tree.PropertyName(p)
			valIdx := a.tree.PropertyValue(p)
			if expected, ok := propertyNamespaces[name]; ok {
				a.resolveRef(valIdx, expected)
			} else {
				a.walk(valIdx)
			}
		}
	case ast.NodeArray:
		for _, e := range a.tree.ArrayElements(n) {
			a.walk(ast.Index(e))
		}
	}
}

// phase 4: hash every shader body and assign one data_id per distinct
// hash, recording (owner_macro, data_id) for each shader macro.
func (a *analyzer) dedupShaders() {
	for _, mi := range a.tree.RootMacros() {
		idx := ast.Index(mi)
		n := a.tree.Node(idx)
		propName, ok := a.shaderBodyProp[n.Tag]
		if !ok {
			continue
		}
		body, ok := a.findPropertyString(n, propName)
		if !ok {
			continue
		}
		id := a.interner.Data([]byte(body))
		a.result.ShaderFragments = append(a.result.ShaderFragments, ShaderFragment{OwnerMacro: idx, DataID: id})
		a.fragmentByName[a.tree.MacroName(n)] = id
	}
}

func (a *analyzer) findPropertyString(macro ast.Node, propName string) (string, bool) {
	_, props := a.tree.MacroHeader(macro)
	for _, pi := range props {
		p := a.tree.Node(ast.Index(pi))
		if a.tree.PropertyName(p) != propName {
			continue
		}
		v := a.tree.Node(a.tree.PropertyValue(p))
		switch v.Tag {
		case ast.NodeStringValue, ast.NodeRuntimeInterpolation:
			text := a.tree.TokenText(v.MainToken)
			if len(text) >= 2 {
				text = text[1 : len(text)-1] // strip surrounding quotes
			}
			return string(text), true
		}
	}
	return "", false
}

// phase 5: for every uniform_access node anywhere in the tree, reflect the
// target shader's WGSL source for @group/@binding annotations.
func (a *analyzer) reflectUniformAccesses() {
	for _, mi := range a.tree.RootMacros() {
		n := a.tree.Node(ast.Index(mi))
		if n.Tag == ast.NodeDefine {
			continue
		}
		_, props := a.tree.MacroHeader(n)
		for _, pi := range props {
			p := a.tree.Node(ast.Index(pi))
			a.findUniformAccesses(a.tree.PropertyValue(p))
		}
	}
}

func (a *analyzer) findUniformAccesses(idx ast.Index) {
	n := a.tree.Node(idx)
	switch n.Tag {
	case ast.NodeUniformAccess:
		shaderName := string(a.tree.TokenText(n.MainToken))
		varName := string(a.tree.TokenText(n.Data.LHS))
		sym, ok := a.result.Symbols[shaderName]
		if !ok || (sym.Namespace != NsWGSL && sym.Namespace != NsShaderModule) {
			a.addError(ErrUndefinedReference, fmt.Sprintf("%q is not a shader", shaderName), a.tree.Tokens[n.MainToken].Start)
			return
		}
		locs, cached := a.shaderCache[shaderName]
		if !cached {
			shaderNode := a.tree.Node(sym.Node)
			body, _ := a.findPropertyString(shaderNode, a.shaderBodyProp[shaderNode.Tag])
			locs = reflectUniforms(body)
			a.shaderCache[shaderName] = locs
		}
		loc := locs[varName]
		a.result.ResolvedUniforms[idx] = UniformRef{
			ShaderDataID: a.fragmentByName[shaderName],
			BindGroup:    loc.group,
			Binding:      loc.binding,
			VarName:      varName,
		}
	case ast.NodeObject:
		for _, pi := range a.tree.ObjectProperties(n) {
			p := a.tree.Node(ast.Index(pi))
			a.findUniformAccesses(a.tree.PropertyValue(p))
		}
	case ast.NodeArray:
		for _, e := range a.tree.ArrayElements(n) {
			a.findUniformAccesses(ast.Index(e))
		}
	}
}

// phase 6: every macro must carry the properties its keyword requires.
func (a *analyzer) validateRequiredProps() {
	for _, mi := range a.tree.RootMacros() {
		n := a.tree.Node(ast.Index(mi))
		required, ok := requiredProperties[n.Tag]
		if !ok || len(required) == 0 {
			continue
		}
		_, props := a.tree.MacroHeader(n)
		present := make(map[string]bool, len(props))
		for _, pi := range props {
			p := a.tree.Node(ast.Index(pi))
			present[a.tree.PropertyName(p)] = true
		}
		for _, req := range required {
			if !present[req] {
				a.addError(ErrMissingRequiredProp,
					fmt.Sprintf("%s %q is missing required property %q", a.tree.TokenText(n.MainToken), a.tree.MacroName(n), req),
					a.tree.Tokens[n.MainToken].Start)
			}
		}
	}
}

// phase 7: fold every constant-expression-shaped property value reachable
// from a macro body, recording None as a nil *float64.
func (a *analyzer) evaluateExpressions() {
	for _, mi := range a.tree.RootMacros() {
		n := a.tree.Node(ast.Index(mi))
		if n.Tag == ast.NodeDefine {
			continue
		}
		_, props := a.tree.MacroHeader(n)
		for _, pi := range props {
			p := a.tree.Node(ast.Index(pi))
			a.evalWalk(a.tree.PropertyValue(p))
		}
	}
}

func (a *analyzer) evalWalk(idx ast.Index) {
	n := a.tree.Node(idx)
	if isEvaluableTag(n.Tag) {
		a.result.ResolvedExpressions[idx] = EvaluateExpression(a.tree, a.result.Defines, idx)
		return
	}
	switch n.Tag {
	case ast.NodeObject:
		for _, pi := range a.tree.ObjectProperties(n) {
			p := a.tree.Node(ast.Index(pi))
			a.evalWalk(a.tree.PropertyValue(p))
		}
	case ast.NodeArray:
		for _, e := range a.tree.ArrayElements(n) {
			a.evalWalk(ast.Index(e))
		}
	}
}
