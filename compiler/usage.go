package compiler

import (
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pngine/ast"
)

// bufferUsageFlags maps a #buffer usage=[...] flag identifier (case
// insensitive: UNIFORM, uniform, and Uniform all resolve the same way) to its GPUBufferUsage bit, per spec.md scenarios 4 and 5.
// create_buffer's usage param is a single byte on the wire
// (bytecode/opcode.go's kByte), so only the GPUBufferUsage flags that fit
// under bit 7 are representable here; Indirect and QueryResolve sit at
// bits 8 and 9 and have no #buffer caller anywhere in the worked
// examples, so they're left unmapped rather than silently truncated.
var bufferUsageFlags = map[string]gputypes.BufferUsage{
	"map_read":  gputypes.BufferUsageMapRead,
	"map_write": gputypes.BufferUsageMapWrite,
	"copy_src":  gputypes.BufferUsageCopySrc,
	"copy_dst":  gputypes.BufferUsageCopyDst,
	"index":     gputypes.BufferUsageIndex,
	"vertex":    gputypes.BufferUsageVertex,
	"uniform":   gputypes.BufferUsageUniform,
	"storage":   gputypes.BufferUsageStorage,
}

func normalizeFlagName(s string) string {
	return strings.ToLower(s)
}

// resolveUsageFlags folds a usage property into a bitmask. An array value
// ORs together each identifier's flag via bufferUsageFlags, matching
// #buffer b { usage=[UNIFORM] } and #buffer cb { usage=[uniform copy_dst] }.
// A non-array value falls back to resolveByte's numeric folding, so a
// literal or expression-valued usage still compiles.
func (a *assembler) resolveUsageFlags(n ast.Node, prop string) uint8 {
	idx, ok := a.findProperty(n, prop)
	if !ok {
		return 0
	}
	v := a.tree.Node(idx)
	if v.Tag != ast.NodeArray {
		return a.resolveByte(n, prop)
	}

	var mask gputypes.BufferUsage
	for _, ei := range a.tree.ArrayElements(v) {
		en := a.tree.Node(ast.Index(ei))
		if en.Tag != ast.NodeIdentifierValue {
			continue
		}
		name := normalizeFlagName(string(a.tree.TokenText(en.MainToken)))
		mask |= bufferUsageFlags[name]
	}
	return uint8(mask)
}
