package dispatcher

import (
	"encoding/json"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pngine/gpu"
)

// textureFormats maps a #texture format identifier to its GPUTextureFormat
// wire value. Names follow WebGPU's hyphenated spelling as well as the
// unhyphenated form a bare PBSF identifier can carry.
var textureFormats = map[string]gputypes.TextureFormat{
	"rgba8unorm":           gputypes.TextureFormatRGBA8Unorm,
	"bgra8unorm":           gputypes.TextureFormatBGRA8Unorm,
	"r8unorm":              gputypes.TextureFormatR8Unorm,
	"depth24plus-stencil8": gputypes.TextureFormatDepth24PlusStencil8,
	"depth24plusstencil8":  gputypes.TextureFormatDepth24PlusStencil8,
}

// textureUsageFlags maps a #texture usage=[...] flag identifier to its
// GPUTextureUsage bit, the texture-side counterpart of
// compiler.bufferUsageFlags.
var textureUsageFlags = map[string]gputypes.TextureUsage{
	"copy_src":          gputypes.TextureUsageCopySrc,
	"copy_dst":          gputypes.TextureUsageCopyDst,
	"texture_binding":   gputypes.TextureUsageTextureBinding,
	"render_attachment": gputypes.TextureUsageRenderAttachment,
}

// textureDescriptorJSON mirrors the subset of compiler.descriptorBlob's
// generic encoding that create_texture's back end actually needs.
type textureDescriptorJSON struct {
	Label  string   `json:"label"`
	Format string   `json:"format"`
	Usage  []string `json:"usage"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
}

// decodeTextureDescriptor turns a #texture macro's descriptor blob into the
// typed fields gpu.Device.CreateTexture needs. An unrecognized format or
// usage identifier resolves to the zero value rather than failing the
// module: a real back end can still reject it at creation time.
func decodeTextureDescriptor(raw []byte) gpu.TextureDescriptor {
	var j textureDescriptorJSON
	_ = json.Unmarshal(raw, &j)

	var usage gputypes.TextureUsage
	for _, flag := range j.Usage {
		usage |= textureUsageFlags[strings.ToLower(flag)]
	}

	return gpu.TextureDescriptor{
		Label:  j.Label,
		Width:  uint32(j.Width),
		Height: uint32(j.Height),
		Format: textureFormats[strings.ToLower(j.Format)],
		Usage:  usage,
	}
}
