package gpu

import "github.com/lightview/lightview/internal/video"

// The conversion uniform holds the YCbCr matrix as three vec4-padded
// columns followed by the per-channel offsets. 64 bytes, std140 compatible.
const convertUniformSize = 64

const shaderCommon = `
struct Convert {
    m: mat3x3<f32>,
    offsets: vec3<f32>,
}

@group(0) @binding(0) var<uniform> conv: Convert;

struct VSOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VSOut {
    // Fullscreen triangle.
    var out: VSOut;
    let x = f32(i32(idx & 1u) * 4 - 1);
    let y = f32(i32(idx & 2u) * 2 - 1);
    out.pos = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>((x + 1.0) * 0.5, (1.0 - y) * 0.5);
    return out;
}

fn convert(yuv: vec3<f32>) -> vec4<f32> {
    let rgb = conv.m * (yuv - conv.offsets);
    return vec4<f32>(clamp(rgb, vec3<f32>(0.0), vec3<f32>(1.0)), 1.0);
}
`

const shaderBiplanar = shaderCommon + `
@group(0) @binding(1) var luma: texture_2d<f32>;
@group(0) @binding(2) var chroma: texture_2d<f32>;

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
    let dims = vec2<f32>(textureDimensions(luma));
    let p = vec2<i32>(in.uv * dims);
    let y = textureLoad(luma, p, 0).r;
    let cbcr = textureLoad(chroma, p / 2, 0).rg;
    return convert(vec3<f32>(y, cbcr));
}
`

const shaderTriplanar = shaderCommon + `
@group(0) @binding(1) var luma: texture_2d<f32>;
@group(0) @binding(2) var cb: texture_2d<f32>;
@group(0) @binding(3) var cr: texture_2d<f32>;

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
    let dims = vec2<f32>(textureDimensions(luma));
    let p = vec2<i32>(in.uv * dims);
    let y = textureLoad(luma, p, 0).r;
    let u = textureLoad(cb, p / 2, 0).r;
    let v = textureLoad(cr, p / 2, 0).r;
    return convert(vec3<f32>(y, u, v));
}
`

const shaderPacked = shaderCommon + `
@group(0) @binding(1) var frame: texture_2d<f32>;

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
    let dims = vec2<f32>(textureDimensions(frame));
    let p = vec2<i32>(in.uv * dims);
    return textureLoad(frame, p, 0);
}
`

// shaderFor picks the conversion shader for a frame layout.
func shaderFor(format video.PixelFormat) string {
	switch format {
	case video.FormatNV12, video.FormatP010:
		return shaderBiplanar
	case video.FormatYUV420:
		return shaderTriplanar
	default:
		return shaderPacked
	}
}
