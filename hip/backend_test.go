package hip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/kgen/cstyle"
	"github.com/gogpu/kgen/ir"
)

func TestRenderElementwise(t *testing.T) {
	out := ir.NewOp(ir.DefineGlobal, ir.Float32.Pointer(), nil, "data0")
	in := ir.NewOp(ir.DefineGlobal, ir.Float32.Pointer(), nil, "data1")
	lidx := ir.NewOp(ir.Special, ir.Int32, nil, ir.Axis{Index: 0, Name: "lidx0", Size: 32})
	ld := ir.NewOp(ir.Load, ir.Float32, []*ir.Op{in, lidx}, nil)
	neg := ir.NewOp(ir.ALU, ir.Float32, []*ir.Op{ld}, ir.AluNeg)
	st := ir.NewOp(ir.Store, ir.DType{}, []*ir.Op{out, lidx, neg}, nil)

	prog, err := cstyle.Render(New(), "neg_kernel", []*ir.Op{out, in, lidx, ld, neg, st})
	require.NoError(t, err)

	assert.Contains(t, prog.Source, "#include <hip/hip_common.h>")
	assert.Contains(t, prog.Source, "#define INFINITY (__builtin_inff())")
	// The launch-bounds attribute carries the product of the local size.
	assert.Contains(t, prog.Source,
		"extern \"C\" __global__ void __launch_bounds__ (32, 1) neg_kernel(float* data0, const float* data1) {")
	assert.Contains(t, prog.Source, "int lidx0 = threadIdx.x; /* 32 */")
	assert.Contains(t, prog.Source, "*(data0+lidx0) = (-val0);")
	assert.Equal(t, []int{32}, prog.LocalSize)
}

func TestLaunchBoundsWithoutLocalAxes(t *testing.T) {
	out := ir.NewOp(ir.DefineGlobal, ir.Float32.Pointer(), nil, "data0")
	zero := ir.NewOp(ir.Const, ir.Int32, nil, 0.0)
	c := ir.NewOp(ir.Const, ir.Float32, nil, 1.0)
	st := ir.NewOp(ir.Store, ir.DType{}, []*ir.Op{out, zero, c}, nil)

	prog, err := cstyle.Render(New(), "fill", []*ir.Op{out, zero, c, st})
	require.NoError(t, err)
	// An empty local size degenerates to a single thread.
	assert.Contains(t, prog.Source, "__launch_bounds__ (1, 1) fill(")
}

func TestHalfIntrinsics(t *testing.T) {
	l := New()
	got, err := l.OpExpr(ir.AluSqrt, ir.Float16, "a")
	require.NoError(t, err)
	assert.Equal(t, "hsqrt(a)", got)

	got, err = l.OpExpr(ir.AluMax, ir.Float16, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "__hmax(a,b)", got)
}

func TestHalfPrekernel(t *testing.T) {
	out := ir.NewOp(ir.DefineGlobal, ir.Float16.Pointer(), nil, "data0")
	zero := ir.NewOp(ir.Const, ir.Int32, nil, 0.0)
	c := ir.NewOp(ir.Const, ir.Float16, nil, 1.0)
	st := ir.NewOp(ir.Store, ir.DType{}, []*ir.Op{out, zero, c}, nil)

	prog, err := cstyle.Render(New(), "fill", []*ir.Op{out, zero, c, st})
	require.NoError(t, err)
	assert.Contains(t, prog.Source, "#include <hip/hip_fp16.h>")
	assert.Contains(t, prog.Source, "half data[8]; } half8;")
}

func TestWMMA(t *testing.T) {
	a16 := ir.NewOp(ir.DefineGlobal, ir.Float16.Pointer(), nil, "data1")
	b16 := ir.NewOp(ir.DefineGlobal, ir.Float16.Pointer(), nil, "data2")
	out := ir.NewOp(ir.DefineGlobal, ir.Float32.Pointer(), nil, "data0")
	zero := ir.NewOp(ir.Const, ir.Int32, nil, 0.0)
	la := ir.NewOp(ir.Load, ir.Float16.Vec(16), []*ir.Op{a16, zero}, nil)
	lb := ir.NewOp(ir.Load, ir.Float16.Vec(16), []*ir.Op{b16, zero}, nil)
	acc := ir.NewOp(ir.Load, ir.Float32.Vec(8), []*ir.Op{out, zero}, nil)
	w := ir.NewOp(ir.WMMA, ir.Float32.Vec(8), []*ir.Op{la, lb, acc}, ir.WMMAHIP)
	el := ir.NewOp(ir.GEP, ir.Float32, []*ir.Op{w}, 5)
	st := ir.NewOp(ir.Store, ir.DType{}, []*ir.Op{out, zero, el}, nil)

	prog, err := cstyle.Render(New(), "mma", []*ir.Op{a16, b16, out, zero, la, lb, acc, w, el, st})
	require.NoError(t, err)

	assert.Contains(t, prog.Source, "float8 wmma0 = __builtin_amdgcn_wmma_f32_16x16x16_f16_w32(val0, val1, val2);")
	assert.Contains(t, prog.Source, "*(data0+0) = (wmma0)[5];")
}

func TestWMMAWrongOutputType(t *testing.T) {
	c := ir.NewOp(ir.Const, ir.Float32, nil, 1.0)
	w := ir.NewOp(ir.WMMA, ir.Float32.Vec(2), []*ir.Op{c, c, c}, ir.WMMAHIP)
	_, err := cstyle.Render(New(), "mma", []*ir.Op{c, w})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float8")
}
