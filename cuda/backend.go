// Package cuda provides the CUDA C kernel language profile.
package cuda

import (
	"fmt"

	"github.com/gogpu/kgen/cstyle"
)

// halfPrekernel supplies the fp16 header and a half4 construction
// helper the generic vector-cast form expands to.
const halfPrekernel = `#include <cuda_fp16.h>
struct half4 { half x, y, z, w; };
__device__ half4 make_half4(half x, half y, half z, half w) { half4 ret; ret.x = x; ret.y = y; ret.z = z; ret.w = w; return ret; }
`

// Language renders CUDA C kernels.
type Language struct {
	cstyle.CLang
}

// New returns the CUDA profile. The returned value is read-only and
// safe to share across Render calls.
func New() *Language {
	l := &Language{}
	l.CLang = cstyle.NewBase(l, cstyle.Conf{
		KernelPrefix: "#define INFINITY (__int_as_float(0x7f800000))\n" +
			"#define NAN (__int_as_float(0x7fffffff))\n" +
			"extern \"C\" __global__ ",
		SMEMPrefix:        "__shared__ ",
		SMEMPrefixForCast: false,
		GlobalMax:         []int{65535, 65535, 2147483647},
		LocalMax:          []int{64, 1024, 1024},
		Barrier:           "__syncthreads();",
		Float4:            "make_float4",
		GID:               componentExprs("blockIdx.%c"),
		LID:               componentExprs("threadIdx.%c"),
		XID:               componentExprs("(blockIdx.%[1]c*blockDim.%[1]c+threadIdx.%[1]c)"),
		Ops:               cstyle.HalfIntrinsicOps,
		HalfPrekernel:     halfPrekernel,
	})
	return l
}

func componentExprs(format string) []string {
	out := make([]string, 3)
	for i := range out {
		out[i] = fmt.Sprintf(format, 'x'+i)
	}
	return out
}
