package analyzer

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/pngine/ast"
)

const maxEvalDepth = 64

var mathConstants = map[string]float64{
	"PI":  math.Pi,
	"E":   math.E,
	"TAU": 2 * math.Pi,
}

// EvaluateExpression folds a constant-expression subtree to a float64.
// It returns nil when the expression cannot be folded: an undefined
// #define reference, division by zero, or a result that would not be a
// finite, non-NaN float64. It never panics on cyclic #define chains; depth
// is bounded the same way parser expression recursion is bounded.
func EvaluateExpression(tree *ast.Tree, defines map[string]ast.Index, idx ast.Index) *float64 {
	return evalNode(tree, defines, idx, 0)
}

func evalNode(tree *ast.Tree, defines map[string]ast.Index, idx ast.Index, depth int) *float64 {
	if depth > maxEvalDepth {
		return nil
	}
	n := tree.Node(idx)
	switch n.Tag {
	case ast.NodeNumberValue:
		text := string(tree.TokenText(n.MainToken))
		if v, ok := mathConstants[text]; ok {
			return &v
		}
		v, err := parseNumberLiteral(text)
		if err != nil {
			return nil
		}
		return &v

	case ast.NodeIdentifierValue:
		name := string(tree.TokenText(n.MainToken))
		target, ok := defines[name]
		if !ok {
			return nil
		}
		return evalNode(tree, defines, target, depth+1)

	case ast.NodeExprNegate:
		operand := evalNode(tree, defines, ast.Index(n.Data.LHS), depth+1)
		if operand == nil {
			return nil
		}
		v := -*operand
		return &v

	case ast.NodeExprAdd, ast.NodeExprSub, ast.NodeExprMul, ast.NodeExprDiv:
		l := evalNode(tree, defines, ast.Index(n.Data.LHS), depth+1)
		r := evalNode(tree, defines, ast.Index(n.Data.RHS), depth+1)
		if l == nil || r == nil {
			return nil
		}
		var v float64
		switch n.Tag {
		case ast.NodeExprAdd:
			v = *l + *r
		case ast.NodeExprSub:
			v = *l - *r
		case ast.NodeExprMul:
			v = *l * *r
		case ast.NodeExprDiv:
			if *r == 0 {
				return nil
			}
			v = *l / *r
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v

	default:
		return nil
	}
}

func parseNumberLiteral(text string) (float64, error) {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		u, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return float64(u), nil
	}
	return strconv.ParseFloat(text, 64)
}

// isEvaluableTag reports whether a node's tag is one evaluate_expression
// understands, i.e. a candidate leaf/operator in a constant expression.
func isEvaluableTag(tag ast.NodeTag) bool {
	switch tag {
	case ast.NodeNumberValue, ast.NodeIdentifierValue,
		ast.NodeExprAdd, ast.NodeExprSub, ast.NodeExprMul, ast.NodeExprDiv, ast.NodeExprNegate:
		return true
	default:
		return false
	}
}
