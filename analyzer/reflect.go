package analyzer

import (
	"regexp"
	"strconv"
)

// uniformLoc is a shader-reflected bind location. Missing or out-of-range
// annotations leave both fields at their zero value per spec.md §4.3
// phase 5.
type uniformLoc struct {
	group, binding uint8
}

// uniformDeclRe finds every `var<uniform> name : ...` declaration in a WGSL
// body, with its optional preceding @group/@binding annotation pair
// captured alongside it.
var uniformDeclRe = regexp.MustCompile(`(?:@group\(\s*(\d+)\s*\)\s*@binding\(\s*(\d+)\s*\)\s*)?var<uniform>\s*(\w+)\s*:`)

// reflectUniforms scans a shader body for @group/@binding annotated (or
// bare) uniform-buffer variable declarations.
func reflectUniforms(body string) map[string]uniformLoc {
	locs := make(map[string]uniformLoc)
	for _, m := range uniformDeclRe.FindAllStringSubmatch(body, -1) {
		loc := uniformLoc{}
		if m[1] != "" && m[2] != "" {
			group, gerr := strconv.Atoi(m[1])
			binding, berr := strconv.Atoi(m[2])
			if gerr == nil && berr == nil && group >= 0 && group <= 255 && binding >= 0 && binding <= 255 {
				loc = uniformLoc{group: uint8(group), binding: uint8(binding)}
			}
		}
		locs[m[3]] = loc
	}
	return locs
}
