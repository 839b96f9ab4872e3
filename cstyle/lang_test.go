package cstyle

import (
	"fmt"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/gogpu/kgen/ir"
)

func TestRenderConst(t *testing.T) {
	l := newTestLang(Conf{})
	tests := []struct {
		name string
		v    float64
		dt   ir.DType
		want string
	}{
		{"float", 2.5, ir.Float32, "2.5f"},
		{"float whole", 4, ir.Float32, "4.0f"},
		{"float exponent", 1e20, ir.Float32, "1e+20f"},
		{"int", 42, ir.Int32, "42"},
		{"bool true", 1, ir.Bool, "true"},
		{"bool false", 0, ir.Bool, "false"},
		{"nan", math.NaN(), ir.Float32, "NAN"},
		{"inf", math.Inf(1), ir.Float32, "INFINITY"},
		{"neg inf", math.Inf(-1), ir.Float32, "-INFINITY"},
		{"vector widens", 1, ir.Float32.Vec(2), "(float2)(1.0f,1.0f)"},
		{"non-core scalar casts", 5, ir.Int64, "(long)(5)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.RenderConst(tt.v, tt.dt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderConst_HalfRounding(t *testing.T) {
	l := newTestLang(Conf{})
	// The emitted literal is the value after rounding to half precision,
	// not the requested one.
	rounded := float64(float16.Fromfloat32(0.1).Float32())
	got, err := l.RenderConst(0.1, ir.Float16)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("(half)(%sf)", formatFloat(rounded)), got)
	assert.NotContains(t, got, "0.1f")
}

func TestRenderCast(t *testing.T) {
	l := newTestLang(Conf{BufferPrefix: "__global "})

	got, err := l.RenderCast([]string{"x"}, ir.Int32, false)
	require.NoError(t, err)
	assert.Equal(t, "(int)(x)", got)

	got, err = l.RenderCast([]string{"x"}, ir.Float32, true)
	require.NoError(t, err)
	assert.Equal(t, "(*((__global float*)&x))", got)

	got, err = l.RenderCast([]string{"a", "b", "c", "d"}, ir.Float32.Vec(4), false)
	require.NoError(t, err)
	assert.Equal(t, "(float4)(a,b,c,d)", got)

	_, err = l.RenderCast([]string{"a", "b"}, ir.Float32.Vec(4), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong size")

	_, err = l.RenderCast(nil, ir.Float32, false)
	require.Error(t, err)
}

func TestRenderCast_NoVectorCtor(t *testing.T) {
	// A profile without a vector construction form cannot widen.
	l := &testLang{}
	l.CLang = NewBase(l, Conf{})
	_, err := l.RenderCast([]string{"a", "b"}, ir.Float32.Vec(2), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotImplemented))
}

func TestRenderLoad(t *testing.T) {
	l := newTestLang(Conf{BufferPrefix: "__global ", UsesVload: true})

	got, err := l.RenderLoad(ir.Float32, "data0", ir.Float32.Pointer(), "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "data0[idx]", got)

	// Widening from a differently typed buffer routes through the cast hook.
	got, err = l.RenderLoad(ir.Float32, "data0", ir.Int32.Pointer(), "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "(float)(data0[idx])", got)

	// Wide loads pun the buffer pointer and cast the result.
	got, err = l.RenderLoad(ir.Float32.Vec(4), "data0", ir.Float32.Pointer(), "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "(float4)(*((__global float4*)(data0+idx)))", got)

	// Half buffers read through the vload intrinsics when the result is
	// not half itself.
	got, err = l.RenderLoad(ir.Float32, "data0", ir.Float16.Pointer(), "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "vload_half(0, data0+idx)", got)

	got, err = l.RenderLoad(ir.Float32.Vec(4), "data0", ir.Float16.Pointer(), "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "vload_half4(0, data0+idx)", got)
}

func TestRenderLoad_Image(t *testing.T) {
	l := newTestLang(Conf{})
	got, err := l.RenderLoad(ir.Float32.Vec(4), "tex0", ir.Image2D, "(int2)(x,y)", false)
	require.NoError(t, err)
	assert.Equal(t, "read_imagef(tex0, smp, (int2)(x,y))", got)

	_, err = l.RenderLoad(ir.Float32, "tex0", ir.Image2D, "(int2)(x,y)", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float4")
}

func TestRenderLoad_PtrArithmetic(t *testing.T) {
	l := newTestLang(Conf{UsesPtrArithmetic: true})
	got, err := l.RenderLoad(ir.Float32, "data0", ir.Float32.Pointer(), "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "*(data0+idx)", got)
}

func TestRenderStore(t *testing.T) {
	l := newTestLang(Conf{BufferPrefix: "__global ", UsesVload: true})

	got, err := l.RenderStore("data0", ir.Float32.Pointer(), "v", ir.Float32, "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "data0[idx] = v;", got)

	got, err = l.RenderStore("data0", ir.Float32.Pointer(), "v", ir.Float32.Vec(2), "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "*((__global float2*)(data0+idx)) = (float2)v;", got)

	got, err = l.RenderStore("data0", ir.Float16.Pointer(), "v", ir.Float32, "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "vstore_half(v, 0, data0+idx);", got)

	got, err = l.RenderStore("data0", ir.Float16.Pointer(), "v", ir.Float32.Vec(4), "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "vstore_half4(v, 0, data0+idx);", got)

	got, err = l.RenderStore("tex0", ir.Image2D, "v", ir.Float32.Vec(4), "(int2)(x,y)", false)
	require.NoError(t, err)
	assert.Equal(t, "write_imagef(tex0, (int2)(x,y), v);", got)
}

func TestRenderStore_LocalCastPrefix(t *testing.T) {
	l := newTestLang(Conf{
		BufferPrefix:      "__global ",
		SMEMPrefix:        "__local ",
		SMEMPrefixForCast: true,
	})
	got, err := l.RenderStore("temp0", ir.Float32.Pointer(), "v", ir.Float32.Vec(2), "idx", true)
	require.NoError(t, err)
	assert.Equal(t, "*((__local float2*)(temp0+idx)) = (float2)v;", got)

	// Global stores keep the global qualifier even on the same profile.
	got, err = l.RenderStore("data0", ir.Float32.Pointer(), "v", ir.Float32.Vec(2), "idx", false)
	require.NoError(t, err)
	assert.Equal(t, "*((__global float2*)(data0+idx)) = (float2)v;", got)
}

func TestRenderKernel_Signature(t *testing.T) {
	l := newTestLang(Conf{BufferPrefix: "__global "})
	bufs := []Buffer{
		{Name: "data0", DType: ir.Float32.Pointer()},
		{Name: "data1", DType: ir.Float16.Pointer()},
		{Name: "n", DType: ir.Int32},
	}
	src := l.RenderKernel("k", []string{"  /* body */"}, bufs, nil, nil)

	assert.Contains(t, src, "__kernel void k(__global float* data0, const __global half* data1, const int n) {")
}

func TestRenderKernel_ExtraArgsAndBounds(t *testing.T) {
	l := newTestLang(Conf{
		KernelPrefix: "kernel ",
		ExtraArgs:    []string{"uint3 gid [[thread_position_in_grid]]"},
		LaunchBounds: true,
	})
	src := l.RenderKernel("k", nil, []Buffer{{Name: "data0", DType: ir.Float32.Pointer()}}, []int{4, 8}, nil)
	assert.Contains(t, src, "kernel void __launch_bounds__ (32, 1) k(")
	assert.Contains(t, src, "data0, uint3 gid [[thread_position_in_grid]])")
}

func TestRenderKernel_ImageSampler(t *testing.T) {
	l := newTestLang(Conf{})
	bufs := []Buffer{
		{Name: "out0", DType: ir.Image2D},
		{Name: "in0", DType: ir.Image2D},
	}
	src := l.RenderKernel("k", nil, bufs, nil, nil)
	assert.Contains(t, src, "write_only image2d_t out0")
	assert.Contains(t, src, "read_only image2d_t in0")
	assert.Contains(t, src, "const sampler_t smp")
}

func TestRenderKernel_HalfPrekernel(t *testing.T) {
	l := newTestLang(Conf{HalfPrekernel: "#pragma EXT half : enable"})
	withHalf := []Buffer{{Name: "data0", DType: ir.Float16.Pointer()}}
	src := l.RenderKernel("k", nil, withHalf, nil, nil)
	assert.True(t, len(src) > 0 && src[0] == '#', "preamble leads the unit")
	assert.Contains(t, src, "#pragma EXT half : enable\n")

	noHalf := []Buffer{{Name: "data0", DType: ir.Float32.Pointer()}}
	src = l.RenderKernel("k", nil, noHalf, nil, nil)
	assert.NotContains(t, src, "#pragma")
}

func TestRenderKernel_PrekernelLines(t *testing.T) {
	l := newTestLang(Conf{})
	src := l.RenderKernel("k", nil, nil, nil, []string{"float temp0[16];"})
	assert.Contains(t, src, "float temp0[16];\n__kernel void k() {")
}

func TestOpExpr(t *testing.T) {
	l := newTestLang(Conf{})

	got, err := l.OpExpr(ir.AluAdd, ir.Float32, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "(a+b)", got)

	got, err = l.OpExpr(ir.AluWhere, ir.Float32, "c", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "(c?x:y)", got)

	// Boolean negation is logical, not arithmetic.
	got, err = l.OpExpr(ir.AluNeg, ir.Bool, "a")
	require.NoError(t, err)
	assert.Equal(t, "(!a)", got)

	_, err = l.OpExpr(ir.AluAdd, ir.Float32, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 2 operands")

	_, err = l.OpExpr(ir.AluInvalid, ir.Float32, "a")
	require.Error(t, err)
}

func TestOpExpr_ProfileOverride(t *testing.T) {
	l := newTestLang(Conf{Ops: map[ir.AluOp]OpFunc{
		ir.AluMulAcc: func(_ ir.DType, a ...string) string {
			return fmt.Sprintf("mad(%s,%s,%s)", a[0], a[1], a[2])
		},
	}})
	got, err := l.OpExpr(ir.AluMulAcc, ir.Float32, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, "mad(a,b,c)", got)

	// Unmapped operators still hit the default table.
	got, err = l.OpExpr(ir.AluAdd, ir.Float32, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "(a+b)", got)
}

func TestHalfIntrinsicOps(t *testing.T) {
	l := newTestLang(Conf{Ops: HalfIntrinsicOps})

	got, err := l.OpExpr(ir.AluMax, ir.Float16, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "__hmax(a,b)", got)

	got, err = l.OpExpr(ir.AluMax, ir.Float32, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "max(a,b)", got)

	got, err = l.OpExpr(ir.AluSqrt, ir.Float16, "a")
	require.NoError(t, err)
	assert.Equal(t, "hsqrt(a)", got)

	got, err = l.OpExpr(ir.AluExp2, ir.Float32, "a")
	require.NoError(t, err)
	assert.Equal(t, "exp2(a)", got)
}

func TestTypeName(t *testing.T) {
	l := newTestLang(Conf{TypeMap: map[ir.ScalarKind]string{
		ir.ScalarUint32: "uint",
	}})
	assert.Equal(t, "uint", l.TypeName(ir.Uint32))
	assert.Equal(t, "uint4", l.TypeName(ir.Uint32.Vec(4)))
	assert.Equal(t, "float", l.TypeName(ir.Float32))
	assert.Equal(t, "half8", l.TypeName(ir.Float16.Vec(8)))
}
