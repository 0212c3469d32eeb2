package parser

import (
	"testing"

	"github.com/gogpu/pngine/ast"
)

func TestParseTriangleScenario(t *testing.T) {
	src := []byte(`
#wgsl s { value="@vertex fn vs() -> @builtin(position) vec4f { return vec4f(0); }" }
#renderPipeline pp { layout=auto vertex={ entryPoint=vs module=s } }
#renderPass draw { pipeline=pp draw=3 }
#frame main { perform=[draw] }
`)
	tree, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	macros := tree.RootMacros()
	if len(macros) != 4 {
		t.Fatalf("got %d macros, want 4", len(macros))
	}
	wantTags := []ast.NodeTag{ast.NodeMacroWGSL, ast.NodeMacroRenderPipeline, ast.NodeMacroRenderPass, ast.NodeMacroFrame}
	wantNames := []string{"s", "pp", "draw", "main"}
	for i, idx := range macros {
		n := tree.Node(ast.Index(idx))
		if n.Tag != wantTags[i] {
			t.Errorf("macro %d tag = %v, want %v", i, n.Tag, wantTags[i])
		}
		if got := tree.MacroName(n); got != wantNames[i] {
			t.Errorf("macro %d name = %q, want %q", i, got, wantNames[i])
		}
	}
}

func TestParseArrayDisambiguation(t *testing.T) {
	tree, err := Parse([]byte(`#data d { values=[1 -1 2 -2] }`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	macro := tree.Node(ast.Index(tree.RootMacros()[0]))
	_, props := tree.MacroHeader(macro)
	if len(props) != 1 {
		t.Fatalf("got %d properties, want 1", len(props))
	}
	prop := tree.Node(ast.Index(props[0]))
	val := tree.Node(tree.PropertyValue(prop))
	if val.Tag != ast.NodeArray {
		t.Fatalf("value tag = %v, want array", val.Tag)
	}
	elems := tree.ArrayElements(val)
	if len(elems) != 4 {
		t.Fatalf("got %d elements, want 4 (one per literal)", len(elems))
	}
	// A leading '-' is a unary negation of the literal that follows it,
	// never a subtraction from the previous element.
	wantTags := []ast.NodeTag{ast.NodeNumberValue, ast.NodeExprNegate, ast.NodeNumberValue, ast.NodeExprNegate}
	for i, e := range elems {
		n := tree.Node(ast.Index(e))
		if n.Tag != wantTags[i] {
			t.Errorf("element %d tag = %v, want %v", i, n.Tag, wantTags[i])
			continue
		}
		if n.Tag == ast.NodeExprNegate {
			if op := tree.Node(ast.Index(n.Data.LHS)); op.Tag != ast.NodeNumberValue {
				t.Errorf("element %d operand tag = %v, want number_value", i, op.Tag)
			}
		}
	}
}

func TestParseParenthesizedExpressionInArray(t *testing.T) {
	tree, err := Parse([]byte(`#data d { values=[(1+2) 3] }`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	macro := tree.Node(ast.Index(tree.RootMacros()[0]))
	_, props := tree.MacroHeader(macro)
	prop := tree.Node(ast.Index(props[0]))
	val := tree.Node(tree.PropertyValue(prop))
	elems := tree.ArrayElements(val)
	if len(elems) != 2 {
		t.Fatalf("got %d elements, want 2", len(elems))
	}
	first := tree.Node(ast.Index(elems[0]))
	if first.Tag != ast.NodeExprAdd {
		t.Fatalf("first element tag = %v, want expr_add", first.Tag)
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	tree, err := Parse([]byte(`#buffer b { size=(1+2)*3 usage=[UNIFORM] }`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	macro := tree.Node(ast.Index(tree.RootMacros()[0]))
	_, props := tree.MacroHeader(macro)
	sizeProp := tree.Node(ast.Index(props[0]))
	if tree.PropertyName(sizeProp) != "size" {
		t.Fatalf("first property = %q, want size", tree.PropertyName(sizeProp))
	}
	val := tree.Node(tree.PropertyValue(sizeProp))
	if val.Tag != ast.NodeExprMul {
		t.Fatalf("size value tag = %v, want expr_mul", val.Tag)
	}
}

func TestParseUniformAndBuiltinRefs(t *testing.T) {
	tree, err := Parse([]byte(`
#frame main { writeBuffer=[{ buffer=cb data=sh.cam }] perform=[] }
#buffer cb { size=canvas.width usage=[uniform] }
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	frameMacro := tree.Node(ast.Index(tree.RootMacros()[0]))
	_, frameProps := tree.MacroHeader(frameMacro)
	var found bool
	for _, pi := range frameProps {
		p := tree.Node(ast.Index(pi))
		if tree.PropertyName(p) != "writeBuffer" {
			continue
		}
		arrNode := tree.Node(tree.PropertyValue(p))
		objNode := tree.Node(ast.Index(tree.ArrayElements(arrNode)[0]))
		for _, oi := range tree.ObjectProperties(objNode) {
			op := tree.Node(ast.Index(oi))
			if tree.PropertyName(op) == "data" {
				dv := tree.Node(tree.PropertyValue(op))
				if dv.Tag != ast.NodeUniformAccess {
					t.Fatalf("data value tag = %v, want uniform_access", dv.Tag)
				}
				found = true
			}
		}
	}
	if !found {
		t.Fatal("did not find writeBuffer[0].data property")
	}

	bufMacro := tree.Node(ast.Index(tree.RootMacros()[1]))
	_, bufProps := tree.MacroHeader(bufMacro)
	sizeProp := tree.Node(ast.Index(bufProps[0]))
	sizeVal := tree.Node(tree.PropertyValue(sizeProp))
	if sizeVal.Tag != ast.NodeBuiltinRef {
		t.Fatalf("size value tag = %v, want builtin_ref", sizeVal.Tag)
	}
}

func TestParseDefine(t *testing.T) {
	tree, err := Parse([]byte(`
#define WIDTH = 100
#buffer b { size=WIDTH*2 usage=[UNIFORM] }
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defineNode := tree.Node(ast.Index(tree.RootMacros()[0]))
	if defineNode.Tag != ast.NodeDefine {
		t.Fatalf("tag = %v, want define", defineNode.Tag)
	}
	if tree.DefineName(defineNode) != "WIDTH" {
		t.Fatalf("name = %q, want WIDTH", tree.DefineName(defineNode))
	}
}

func TestParseUnclosedObjectIsParseError(t *testing.T) {
	_, err := Parse([]byte(`#buffer b { size=64`))
	if err == nil {
		t.Fatal("expected parse_error for unclosed object")
	}
	if _, ok := err.(*Error); !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
}

func TestParseDeeplyNestedArraysDoNotRecurse(t *testing.T) {
	// 2000 nested single-element arrays would overflow a recursive-descent
	// container parser's Go call stack; the explicit frame-stack design
	// must handle it without panicking.
	src := "#data d { values="
	depth := 2000
	for i := 0; i < depth; i++ {
		src += "["
	}
	src += "1"
	for i := 0; i < depth; i++ {
		src += "]"
	}
	src += " }"
	tree, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tree.RootMacros()) != 1 {
		t.Fatalf("got %d macros, want 1", len(tree.RootMacros()))
	}
}
