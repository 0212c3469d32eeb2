package analyzer

import (
	"fmt"

	"github.com/gogpu/pngine/ast"
)

type color uint8

const (
	white color = iota
	gray
	black
)

// detectCycles runs an iterative, explicit-stack DFS with three-color
// marking over the import graph (#wgsl/#shaderModule "imports" edges).
// A back edge to a gray node is a cycle; self-imports are caught the same
// way, since a node stays gray until its own DFS frame pops.
func (a *analyzer) detectCycles() {
	adjacency := map[string][]string{}
	names := map[string]bool{}

	for _, mi := range a.tree.RootMacros() {
		n := a.tree.Node(ast.Index(mi))
		if n.Tag != ast.NodeMacroWGSL && n.Tag != ast.NodeMacroShaderModule {
			continue
		}
		name := a.tree.MacroName(n)
		names[name] = true
		_, props := a.tree.MacroHeader(n)
		for _, pi := range props {
			p := a.tree.Node(ast.Index(pi))
			if a.tree.PropertyName(p) != "imports" {
				continue
			}
			val := a.tree.Node(a.tree.PropertyValue(p))
			if val.Tag != ast.NodeArray {
				continue
			}
			for _, ei := range a.tree.ArrayElements(val) {
				en := a.tree.Node(ast.Index(ei))
				if en.Tag == ast.NodeIdentifierValue {
					adjacency[name] = append(adjacency[name], string(a.tree.TokenText(en.MainToken)))
				}
			}
		}
	}

	colors := map[string]color{}
	for name := range names {
		if colors[name] != white {
			continue
		}
		a.iterativeDFS(name, adjacency, colors)
	}
}

type dfsFrame struct {
	name string
	idx  int
}

func (a *analyzer) iterativeDFS(start string, adjacency map[string][]string, colors map[string]color) {
	stack := []dfsFrame{{start, 0}}
	colors[start] = gray
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		edges := adjacency[top.name]
		if top.idx < len(edges) {
			next := edges[top.idx]
			top.idx++
			switch colors[next] {
			case white:
				colors[next] = gray
				stack = append(stack, dfsFrame{next, 0})
			case gray:
				a.addError(ErrCircularDependency, fmt.Sprintf("circular import dependency: %s -> %s", top.name, next), 0)
			case black:
				// already fully explored via another path; no cycle here
			}
			continue
		}
		colors[top.name] = black
		stack = stack[:len(stack)-1]
	}
}
