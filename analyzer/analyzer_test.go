package analyzer

import (
	"testing"

	"github.com/gogpu/pngine/ast"
	"github.com/gogpu/pngine/intern"
	"github.com/gogpu/pngine/parser"
)

func mustParse(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func TestAnalyzeTriangleScenarioHasNoErrors(t *testing.T) {
	tree := mustParse(t, `
#wgsl s { value="@vertex fn vs() -> @builtin(position) vec4f { return vec4f(0); }" }
#renderPipeline pp { layout=auto vertex={ entryPoint=vs module=s } }
#renderPass draw { pipeline=pp draw=3 }
#frame main { perform=[draw] }
`)
	result := Analyze(tree, intern.NewTables())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if _, ok := result.Symbols["s"]; !ok {
		t.Error("expected symbol s")
	}
	if _, ok := result.Symbols["pp"]; !ok {
		t.Error("expected symbol pp")
	}
}

func TestAnalyzeUndefinedReference(t *testing.T) {
	tree := mustParse(t, `#renderPass draw { pipeline=ghost draw=3 }`)
	result := Analyze(tree, intern.NewTables())
	if len(result.Errors) == 0 {
		t.Fatal("expected an undefined_reference error")
	}
	if result.Errors[0].Kind != ErrUndefinedReference {
		t.Errorf("kind = %v, want undefined_reference", result.Errors[0].Kind)
	}
}

func TestAnalyzeDuplicateDefinition(t *testing.T) {
	tree := mustParse(t, `
#buffer b { size=64 usage=[uniform] }
#buffer b { size=128 usage=[uniform] }
`)
	result := Analyze(tree, intern.NewTables())
	found := false
	for _, e := range result.Errors {
		if e.Kind == ErrDuplicateDefinition {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected duplicate_definition, got %v", result.Errors)
	}
}

func TestAnalyzeCircularImport(t *testing.T) {
	tree := mustParse(t, `
#wgsl a { value="..." imports=[b] }
#wgsl b { value="..." imports=[a] }
`)
	result := Analyze(tree, intern.NewTables())
	found := false
	for _, e := range result.Errors {
		if e.Kind == ErrCircularDependency {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected circular_dependency, got %v", result.Errors)
	}
}

func TestAnalyzeSelfImportIsCircular(t *testing.T) {
	tree := mustParse(t, `#wgsl a { value="..." imports=[a] }`)
	result := Analyze(tree, intern.NewTables())
	found := false
	for _, e := range result.Errors {
		if e.Kind == ErrCircularDependency {
			found = true
		}
	}
	if !found {
		t.Fatal("expected self-import to be flagged circular_dependency")
	}
}

func TestAnalyzeShaderDeduplication(t *testing.T) {
	tree := mustParse(t, `
#wgsl a { value="same text" }
#wgsl b { value="same text" }
#wgsl c { value="different" }
`)
	result := Analyze(tree, intern.NewTables())
	if len(result.ShaderFragments) != 3 {
		t.Fatalf("got %d fragments, want 3 (one per macro)", len(result.ShaderFragments))
	}
	byMacro := map[string]uint16{}
	for _, f := range result.ShaderFragments {
		byMacro[tree.MacroName(tree.Node(f.OwnerMacro))] = uint16(f.DataID)
	}
	if byMacro["a"] != byMacro["b"] {
		t.Errorf("identical shader bodies should share a data_id: %d != %d", byMacro["a"], byMacro["b"])
	}
	if byMacro["a"] == byMacro["c"] {
		t.Errorf("distinct shader bodies should not share a data_id")
	}
}

func TestAnalyzeUniformReflection(t *testing.T) {
	tree := mustParse(t, `
#wgsl s { value="@group(1) @binding(2) var<uniform> cam : mat4x4f;" }
#frame main { writeBuffer=[{ buffer=cb data=s.cam }] perform=[] }
#buffer cb { size=64 usage=[uniform] }
`)
	result := Analyze(tree, intern.NewTables())
	var found bool
	for _, ref := range result.ResolvedUniforms {
		if ref.VarName != "cam" {
			continue
		}
		found = true
		if ref.BindGroup != 1 || ref.Binding != 2 {
			t.Errorf("got group=%d binding=%d, want 1,2", ref.BindGroup, ref.Binding)
		}
	}
	if !found {
		t.Fatal("expected a resolved uniform for s.cam")
	}
}

func TestAnalyzeUniformReflectionDefaultsWhenMissingAnnotation(t *testing.T) {
	tree := mustParse(t, `
#wgsl s { value="var<uniform> cam : mat4x4f;" }
#frame main { writeBuffer=[{ buffer=cb data=s.cam }] perform=[] }
#buffer cb { size=64 usage=[uniform] }
`)
	result := Analyze(tree, intern.NewTables())
	for _, ref := range result.ResolvedUniforms {
		if ref.VarName == "cam" && (ref.BindGroup != 0 || ref.Binding != 0) {
			t.Errorf("missing annotation should default to group=0 binding=0, got %d,%d", ref.BindGroup, ref.Binding)
		}
	}
}

func TestAnalyzeMissingRequiredProperty(t *testing.T) {
	tree := mustParse(t, `#buffer b { usage=[uniform] }`)
	result := Analyze(tree, intern.NewTables())
	found := false
	for _, e := range result.Errors {
		if e.Kind == ErrMissingRequiredProp {
			found = true
		}
	}
	if !found {
		t.Fatal("expected missing_required_property for #buffer without size")
	}
}

func TestAnalyzeExpressionEvaluation(t *testing.T) {
	tree := mustParse(t, `
#define WIDTH = 3
#buffer b { size=(1+2)*WIDTH usage=[uniform] }
`)
	result := Analyze(tree, intern.NewTables())
	var got *float64
	for idx, v := range result.ResolvedExpressions {
		n := tree.Node(idx)
		if n.Tag == ast.NodeExprMul {
			got = v
		}
	}
	if got == nil {
		t.Fatal("expected size expression to evaluate")
	}
	if *got != 9.0 {
		t.Errorf("size = %v, want 9", *got)
	}
}

func TestAnalyzeDivisionByZeroEvaluatesToNone(t *testing.T) {
	tree := mustParse(t, `#buffer b { size=4/0 usage=[uniform] }`)
	result := Analyze(tree, intern.NewTables())
	for idx, v := range result.ResolvedExpressions {
		n := tree.Node(idx)
		if n.Tag == ast.NodeExprDiv {
			if v != nil {
				t.Errorf("division by zero should evaluate to None, got %v", *v)
			}
		}
	}
}
