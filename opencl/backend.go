// Package opencl provides the OpenCL C kernel language profile.
package opencl

import (
	"fmt"

	"github.com/gogpu/kgen/cstyle"
	"github.com/gogpu/kgen/ir"
)

// Language renders OpenCL C kernels.
type Language struct {
	cstyle.CLang
}

// New returns the OpenCL profile. The returned value is read-only and
// safe to share across Render calls.
func New() *Language {
	l := &Language{}
	l.CLang = cstyle.NewBase(l, cstyle.Conf{
		KernelPrefix:      "__kernel ",
		BufferPrefix:      "__global ",
		SMEMAlign:         "__attribute__ ((aligned (16))) ",
		SMEMPrefix:        "__local ",
		SMEMPrefixForCast: true,
		HalfPrekernel:     "#pragma OPENCL EXTENSION cl_khr_fp16 : enable",
		Barrier:           "barrier(CLK_LOCAL_MEM_FENCE);",
		Float4:            "(float4)",
		GID:               axisExprs("get_group_id(%d)"),
		LID:               axisExprs("get_local_id(%d)"),
		XID:               axisExprs("get_global_id(%d)"),
		UsesVload:         true,
		Ops: map[ir.AluOp]cstyle.OpFunc{
			// mad keeps the loads from being reordered into the math
			// on some mobile GPUs.
			ir.AluMulAcc: func(_ ir.DType, a ...string) string {
				return fmt.Sprintf("mad(%s,%s,%s)", a[0], a[1], a[2])
			},
		},
		// as_<type> cannot spell the multi-word unsigned names.
		TypeMap: map[ir.ScalarKind]string{
			ir.ScalarUint8:  "uchar",
			ir.ScalarUint16: "ushort",
			ir.ScalarUint32: "uint",
			ir.ScalarUint64: "ulong",
		},
	})
	return l
}

func axisExprs(format string) []string {
	out := make([]string, 3)
	for i := range out {
		out[i] = fmt.Sprintf(format, i)
	}
	return out
}

// RenderCast uses OpenCL's as_<type> form for bitcasts.
func (l *Language) RenderCast(operands []string, dt ir.DType, bitcast bool) (string, error) {
	if bitcast && len(operands) > 0 {
		return fmt.Sprintf("as_%s(%s)", l.TypeName(dt), operands[0]), nil
	}
	return l.CLang.RenderCast(operands, dt, bitcast)
}
