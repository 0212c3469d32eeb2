// Package parser builds a flat, index-based AST from a PBSF token stream.
//
// Container parsing (arrays and objects, including macro property lists)
// never recurses in Go: a single loop drives an explicit stack of frames,
// one per currently-open container, so nesting depth is bounded only by
// available memory and by MAX_PARSE_ITERATIONS, never by the Go call
// stack. Arithmetic-expression parsing (the one place genuine recursion is
// useful — parenthesized sub-expressions and unary minus are naturally
// self-similar and arithmetic nesting in practice is shallow) uses
// ordinary recursive-descent precedence climbing, bounded explicitly by
// MAX_EXPR_DEPTH so pathological input still fails with a parse_error
// instead of overflowing the stack.
package parser

import (
	"fmt"

	"github.com/gogpu/pngine/ast"
	"github.com/gogpu/pngine/internal/logging"
	"github.com/gogpu/pngine/lexer"
)

const (
	maxMacros          = 4096
	maxProperties      = 1024
	maxParseIterations = 65536
	maxExprDepth       = 64
)

const noProperty = uint32(ast.NoIndex)

// Error reports a parse failure with the byte offset of the offending
// token.
type Error struct {
	Offset uint32
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse_error at byte %d: %s", e.Offset, e.Msg)
}

type parser struct {
	tree *ast.Tree
	pos  uint32
}

// Parse lexes and parses src into a Tree. Errors are *lexer.Error (kind
// lex_error) or *Error (kind parse_error).
func Parse(src []byte) (*ast.Tree, error) {
	tokens, ends, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tree: &ast.Tree{Source: src, Tokens: tokens, TokenEnds: ends}}
	p.tree.AddNode(ast.Node{Tag: ast.NodeRoot}) // index 0, fixed up below

	var macros []uint32
	iterations := 0
	for p.peek().Tag != ast.TokenEOF {
		iterations++
		if iterations > maxParseIterations {
			return nil, p.errf("exceeded maximum parse iterations")
		}
		if len(macros) >= maxMacros {
			return nil, p.errf("too many top-level macros (max %d)", maxMacros)
		}
		idx, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		macros = append(macros, uint32(idx))
	}
	start, end := p.tree.AddExtra(macros)
	p.tree.Nodes[0] = ast.Node{Tag: ast.NodeRoot, Data: ast.Data{LHS: start, RHS: end}}
	logging.Logger().Debug("parse complete", "macros", len(macros), "nodes", len(p.tree.Nodes))
	return p.tree, nil
}

// --- token cursor -----------------------------------------------------

func (p *parser) skipComments() {
	for p.pos < uint32(len(p.tree.Tokens)) && p.tree.Tokens[p.pos].Tag == ast.TokenComment {
		p.pos++
	}
}

func (p *parser) peek() ast.Token {
	p.skipComments()
	return p.tree.Tokens[p.pos]
}

func (p *parser) peekAt(offset uint32) ast.Token {
	p.skipComments()
	i := p.pos + offset
	for i < uint32(len(p.tree.Tokens)) && p.tree.Tokens[i].Tag == ast.TokenComment {
		i++
	}
	if i >= uint32(len(p.tree.Tokens)) {
		return ast.Token{Tag: ast.TokenEOF}
	}
	return p.tree.Tokens[i]
}

// advanceIdx consumes the current token and returns its index.
func (p *parser) advanceIdx() uint32 {
	p.skipComments()
	i := p.pos
	p.pos++
	return i
}

func (p *parser) expect(tag ast.TokenTag) (uint32, error) {
	tok := p.peek()
	if tok.Tag != tag {
		return 0, p.errf("expected %s, found %s", tag, tok.Tag)
	}
	return p.advanceIdx(), nil
}

func (p *parser) errf(format string, args ...any) error {
	return &Error{Offset: p.peek().Start, Msg: fmt.Sprintf(format, args...)}
}

// --- top level ----------------------------------------------------------

func (p *parser) parseTopLevel() (ast.Index, error) {
	tok := p.peek()
	if tok.Tag == ast.TokenMacroDefine {
		return p.parseDefine()
	}
	nodeTag, ok := ast.MacroTokenToNodeTag[tok.Tag]
	if !ok {
		return 0, p.errf("expected a macro keyword, found %s", tok.Tag)
	}
	keywordTok := p.advanceIdx()
	nameTok, err := p.expect(ast.TokenIdentifier)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(ast.TokenLBrace); err != nil {
		return 0, err
	}
	props, err := p.parsePropertyList()
	if err != nil {
		return 0, err
	}
	if len(props) > maxProperties {
		return 0, p.errf("macro has too many properties (max %d)", maxProperties)
	}
	header := make([]uint32, 0, 2+len(props))
	header = append(header, nameTok, uint32(len(props)))
	header = append(header, props...)
	start, end := p.tree.AddExtra(header)
	return p.tree.AddNode(ast.Node{Tag: nodeTag, MainToken: keywordTok, Data: ast.Data{LHS: start, RHS: end}}), nil
}

func (p *parser) parseDefine() (ast.Index, error) {
	kwTok := p.advanceIdx()
	nameTok, err := p.expect(ast.TokenIdentifier)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(ast.TokenEquals); err != nil {
		return 0, err
	}
	val, err := p.parseValue()
	if err != nil {
		return 0, err
	}
	return p.tree.AddNode(ast.Node{Tag: ast.NodeDefine, MainToken: kwTok, Data: ast.Data{LHS: nameTok, RHS: uint32(val)}}), nil
}

// parsePropertyList parses `property*` up to and including the matching
// '}' of a macro body (the opening '{' has already been consumed by the
// caller).
func (p *parser) parsePropertyList() ([]uint32, error) {
	_, elems, err := p.runContainer(&containerFrame{kind: frameObject, bare: true, forProperty: noProperty})
	return elems, err
}

// parseValue parses a single property/define/array-element value,
// dispatching to the container machine for '[' / '{' and to the leaf
// parser otherwise.
func (p *parser) parseValue() (ast.Index, error) {
	switch p.peek().Tag {
	case ast.TokenLBracket:
		openTok := p.advanceIdx()
		node, _, err := p.runContainer(&containerFrame{kind: frameArray, openTok: openTok, forProperty: noProperty})
		return node, err
	case ast.TokenLBrace:
		openTok := p.advanceIdx()
		node, _, err := p.runContainer(&containerFrame{kind: frameObject, openTok: openTok, forProperty: noProperty})
		return node, err
	default:
		return p.parseLeafValue(true)
	}
}

// --- container machine ---------------------------------------------------

type frameKind uint8

const (
	frameArray frameKind = iota
	frameObject
)

// containerFrame is one entry of the explicit stack that drives array and
// object (and macro body / property list) parsing without Go recursion.
type containerFrame struct {
	kind    frameKind
	bare    bool   // macro body / property list: yields raw elems, no NodeObject wrapper
	openTok uint32 // index of the opening '[' or '{' token
	elems   []uint32

	// forProperty is noProperty unless this frame is the value of an
	// object property; in that case it is the property-name token index,
	// and on completion this frame's result is wrapped in a NodeProperty
	// before being attached to the parent frame.
	forProperty uint32
}

// runContainer drives container parsing for the frame stack rooted at
// initial. It returns either a completed node (arrays, and objects where
// bare is false) or, for a bare object, the raw property-node indices.
func (p *parser) runContainer(initial *containerFrame) (ast.Index, []uint32, error) {
	stack := []*containerFrame{initial}
	iterations := 0
	for {
		iterations++
		if iterations > maxParseIterations {
			return 0, nil, p.errf("exceeded maximum parse iterations")
		}
		top := stack[len(stack)-1]
		switch top.kind {
		case frameArray:
			if p.peek().Tag == ast.TokenRBracket {
				p.advanceIdx()
				start, end := p.tree.AddExtra(top.elems)
				node := p.tree.AddNode(ast.Node{Tag: ast.NodeArray, MainToken: top.openTok, Data: ast.Data{LHS: start, RHS: end}})
				stack = stack[:len(stack)-1]
				if len(stack) == 0 {
					return node, nil, nil
				}
				if err := p.attach(stack[len(stack)-1], top.forProperty, node); err != nil {
					return 0, nil, err
				}
				continue
			}
			if p.peek().Tag == ast.TokenEOF {
				return 0, nil, p.errf("unclosed array")
			}
			switch p.peek().Tag {
			case ast.TokenLBracket:
				openTok := p.advanceIdx()
				stack = append(stack, &containerFrame{kind: frameArray, openTok: openTok, forProperty: noProperty})
			case ast.TokenLBrace:
				openTok := p.advanceIdx()
				stack = append(stack, &containerFrame{kind: frameObject, openTok: openTok, forProperty: noProperty})
			default:
				// Array-element disambiguation: a bare leaf here never
				// folds across whitespace into a following operator
				// (spec.md §4.2 "Array disambiguation rule"); a
				// parenthesized group folds fully inside its own parens.
				val, err := p.parseLeafValue(false)
				if err != nil {
					return 0, nil, err
				}
				top.elems = append(top.elems, uint32(val))
			}

		case frameObject:
			if p.peek().Tag == ast.TokenRBrace {
				p.advanceIdx()
				if top.bare {
					elems := top.elems
					stack = stack[:len(stack)-1]
					if len(stack) != 0 {
						return 0, nil, p.errf("internal: bare property list is not top-level")
					}
					return ast.NoIndex, elems, nil
				}
				start, end := p.tree.AddExtra(top.elems)
				node := p.tree.AddNode(ast.Node{Tag: ast.NodeObject, MainToken: top.openTok, Data: ast.Data{LHS: start, RHS: end}})
				stack = stack[:len(stack)-1]
				if len(stack) == 0 {
					return node, nil, nil
				}
				if err := p.attach(stack[len(stack)-1], top.forProperty, node); err != nil {
					return 0, nil, err
				}
				continue
			}
			if p.peek().Tag == ast.TokenEOF {
				return 0, nil, p.errf("unclosed object")
			}
			if len(top.elems) >= maxProperties {
				return 0, nil, p.errf("too many properties (max %d)", maxProperties)
			}
			nameTok, err := p.expect(ast.TokenIdentifier)
			if err != nil {
				return 0, nil, err
			}
			if _, err := p.expect(ast.TokenEquals); err != nil {
				return 0, nil, err
			}
			switch p.peek().Tag {
			case ast.TokenLBracket:
				openTok := p.advanceIdx()
				stack = append(stack, &containerFrame{kind: frameArray, openTok: openTok, forProperty: nameTok})
			case ast.TokenLBrace:
				openTok := p.advanceIdx()
				stack = append(stack, &containerFrame{kind: frameObject, openTok: openTok, forProperty: nameTok})
			default:
				val, err := p.parseLeafValue(true)
				if err != nil {
					return 0, nil, err
				}
				propNode := p.tree.AddNode(ast.Node{Tag: ast.NodeProperty, MainToken: nameTok, Data: ast.Data{LHS: uint32(val)}})
				top.elems = append(top.elems, uint32(propNode))
			}
		}
	}
}

// attach wires a just-completed child frame's node into its parent frame:
// as a property (when forProperty names the owning property) or as a
// bare array element otherwise.
func (p *parser) attach(parent *containerFrame, forProperty uint32, child ast.Index) error {
	if forProperty != noProperty {
		if parent.kind != frameObject {
			return p.errf("internal: property-valued frame attached to non-object parent")
		}
		propNode := p.tree.AddNode(ast.Node{Tag: ast.NodeProperty, MainToken: forProperty, Data: ast.Data{LHS: uint32(child)}})
		parent.elems = append(parent.elems, uint32(propNode))
		return nil
	}
	if parent.kind != frameArray {
		return p.errf("internal: bare-valued frame attached to non-array parent")
	}
	parent.elems = append(parent.elems, uint32(child))
	return nil
}

// --- leaf values (string/bool/identifier-refs/numeric expressions) ------

func (p *parser) parseLeafValue(allowFold bool) (ast.Index, error) {
	tok := p.peek()
	switch tok.Tag {
	case ast.TokenString:
		idx := p.advanceIdx()
		tag := ast.NodeStringValue
		if containsDollar(p.tree.TokenText(idx)) {
			tag = ast.NodeRuntimeInterpolation
		}
		return p.tree.AddNode(ast.Node{Tag: tag, MainToken: idx}), nil

	case ast.TokenTrue, ast.TokenFalse:
		idx := p.advanceIdx()
		return p.tree.AddNode(ast.Node{Tag: ast.NodeBooleanValue, MainToken: idx}), nil

	case ast.TokenIdentifier:
		if p.peekAt(1).Tag == ast.TokenDot {
			baseTok := p.advanceIdx()
			p.advanceIdx() // '.'
			fieldTok, err := p.expect(ast.TokenIdentifier)
			if err != nil {
				return 0, err
			}
			tag := ast.NodeUniformAccess
			base := string(p.tree.TokenText(baseTok))
			if base == "canvas" || base == "time" {
				tag = ast.NodeBuiltinRef
			}
			return p.tree.AddNode(ast.Node{Tag: tag, MainToken: baseTok, Data: ast.Data{LHS: fieldTok}}), nil
		}
		fallthrough

	case ast.TokenNumber, ast.TokenMinus, ast.TokenLParen:
		if allowFold {
			return p.parseExpr(0, 0)
		}
		return p.parseUnary(0)

	default:
		return 0, p.errf("unexpected token %s in value position", tok.Tag)
	}
}

func containsDollar(b []byte) bool {
	for _, c := range b {
		if c == '$' {
			return true
		}
	}
	return false
}

// --- arithmetic expressions (bounded recursive-descent) ------------------

var binOpPrec = map[ast.TokenTag]int{
	ast.TokenPlus:  1,
	ast.TokenMinus: 1,
	ast.TokenStar:  2,
	ast.TokenSlash: 2,
}

var binOpTag = map[ast.TokenTag]ast.NodeTag{
	ast.TokenPlus:  ast.NodeExprAdd,
	ast.TokenMinus: ast.NodeExprSub,
	ast.TokenStar:  ast.NodeExprMul,
	ast.TokenSlash: ast.NodeExprDiv,
}

// parseExpr implements precedence climbing: it parses one unary term and
// then folds in any trailing binary operators whose precedence is at
// least minPrec, recursing (with prec+1) to parse each operator's
// right-hand side so that higher-precedence operators bind tighter and
// operators of equal precedence associate left.
func (p *parser) parseExpr(minPrec, depth int) (ast.Index, error) {
	if depth > maxExprDepth {
		return 0, p.errf("expression nesting exceeds MAX_EXPR_DEPTH (%d)", maxExprDepth)
	}
	left, err := p.parseUnary(depth + 1)
	if err != nil {
		return 0, err
	}
	for {
		prec, ok := binOpPrec[p.peek().Tag]
		if !ok || prec < minPrec {
			return left, nil
		}
		opTag := binOpTag[p.peek().Tag]
		opTok := p.advanceIdx()
		right, err := p.parseExpr(prec+1, depth+1)
		if err != nil {
			return 0, err
		}
		left = p.tree.AddNode(ast.Node{Tag: opTag, MainToken: opTok, Data: ast.Data{LHS: uint32(left), RHS: uint32(right)}})
	}
}

func (p *parser) parseUnary(depth int) (ast.Index, error) {
	if depth > maxExprDepth {
		return 0, p.errf("expression nesting exceeds MAX_EXPR_DEPTH (%d)", maxExprDepth)
	}
	if p.peek().Tag == ast.TokenMinus {
		opTok := p.advanceIdx()
		operand, err := p.parseUnary(depth + 1)
		if err != nil {
			return 0, err
		}
		return p.tree.AddNode(ast.Node{Tag: ast.NodeExprNegate, MainToken: opTok, Data: ast.Data{LHS: uint32(operand)}}), nil
	}
	return p.parsePrimary(depth)
}

func (p *parser) parsePrimary(depth int) (ast.Index, error) {
	if depth > maxExprDepth {
		return 0, p.errf("expression nesting exceeds MAX_EXPR_DEPTH (%d)", maxExprDepth)
	}
	tok := p.peek()
	switch tok.Tag {
	case ast.TokenLParen:
		p.advanceIdx()
		inner, err := p.parseExpr(0, depth+1)
		if err != nil {
			return 0, err
		}
		if _, err := p.expect(ast.TokenRParen); err != nil {
			return 0, err
		}
		return inner, nil
	case ast.TokenNumber:
		idx := p.advanceIdx()
		return p.tree.AddNode(ast.Node{Tag: ast.NodeNumberValue, MainToken: idx}), nil
	case ast.TokenIdentifier:
		idx := p.advanceIdx()
		text := string(p.tree.TokenText(idx))
		if text == "PI" || text == "E" || text == "TAU" {
			return p.tree.AddNode(ast.Node{Tag: ast.NodeNumberValue, MainToken: idx}), nil
		}
		return p.tree.AddNode(ast.Node{Tag: ast.NodeIdentifierValue, MainToken: idx}), nil
	default:
		return 0, p.errf("unexpected token %s in expression", tok.Tag)
	}
}
