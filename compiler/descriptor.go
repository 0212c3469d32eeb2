package compiler

import (
	"encoding/json"
	"sort"

	"github.com/gogpu/pngine/ast"
	"github.com/gogpu/pngine/intern"
)

// descriptorBlob builds the generic JSON descriptor for a resource macro
// and interns it, returning its data ID. Properties named in skip (the
// ones already pulled out as direct opcode params, e.g. "layout" or
// "texture") are omitted from the blob; everything else is encoded
// generically, since the dispatcher's GPU back end only needs these
// fields at resource-creation time, never at dispatch time (spec.md
// §4.6's rationale for keeping every Create* opcode's shape fixed).
func (a *assembler) descriptorBlob(n ast.Node, skip map[string]bool) intern.DataID {
	_, props := a.tree.MacroHeader(n)
	obj := make(map[string]interface{}, len(props))
	for _, pi := range props {
		p := a.tree.Node(ast.Index(pi))
		name := a.tree.PropertyName(p)
		if skip[name] {
			continue
		}
		obj[name] = a.propertyJSON(a.tree.PropertyValue(p))
	}
	buf, err := json.Marshal(sortedMap(obj))
	if err != nil {
		buf = []byte("{}")
	}
	return a.tables.Data(buf)
}

// propertyJSON converts a value node into a plain Go value suitable for
// json.Marshal: numeric literals fold through the analyzer's constant
// evaluation when available, identifiers referring to other macros become
// their allocated resource id, and everything else falls back to its
// source text.
func (a *assembler) propertyJSON(idx ast.Index) interface{} {
	if f, ok := a.result.ResolvedExpressions[idx]; ok && f != nil {
		return *f
	}
	n := a.tree.Node(idx)
	switch n.Tag {
	case ast.NodeStringValue, ast.NodeRuntimeInterpolation:
		text := a.tree.TokenText(n.MainToken)
		if len(text) >= 2 {
			text = text[1 : len(text)-1]
		}
		return string(text)
	case ast.NodeBooleanValue:
		return string(a.tree.TokenText(n.MainToken)) == "true"
	case ast.NodeNumberValue:
		return string(a.tree.TokenText(n.MainToken))
	case ast.NodeIdentifierValue:
		name := string(a.tree.TokenText(n.MainToken))
		if id, known := a.ids[name]; known {
			return uint64(id)
		}
		return name
	case ast.NodeArray:
		elems := a.tree.ArrayElements(n)
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = a.propertyJSON(ast.Index(e))
		}
		return out
	case ast.NodeObject:
		props := a.tree.ObjectProperties(n)
		obj := make(map[string]interface{}, len(props))
		for _, pi := range props {
			p := a.tree.Node(ast.Index(pi))
			obj[a.tree.PropertyName(p)] = a.propertyJSON(a.tree.PropertyValue(p))
		}
		return sortedMap(obj)
	default:
		return nil
	}
}

// sortedMap is a map alias whose MarshalJSON emits keys in sorted order,
// keeping identical descriptors byte-identical across compiles so the
// data interner's content-addressing actually dedupes them.
type sortedMap map[string]interface{}

func (m sortedMap) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}
