// Package hip provides the HIP (AMD) kernel language profile.
package hip

import (
	"fmt"

	"github.com/gogpu/kgen/cstyle"
)

// kernelPrefix carries HIP's common header, inf/nan builtins and the
// float8 vector type the wide WMMA result uses.
const kernelPrefix = `#include <hip/hip_common.h>
#define INFINITY (__builtin_inff())
#define NAN (__builtin_nanf(""))
typedef float float8 __attribute__((ext_vector_type(8)));
__device__ float8 make_float8(float x, float y, float z, float w, float a, float b, float c, float d) { return {x, y, z, w, a, b, c, d}; }
extern "C" __global__ `

// halfPrekernel defines the half vector types and their construction
// helpers used by half-precision wide loads and vector casts.
const halfPrekernel = `#include <hip/hip_fp16.h>
typedef union { struct { half x, y, z, w; } __attribute__((aligned(8))); half data[4]; } half4;
__device__ half4 make_half4(half x, half y, half z, half w) { return {x, y, z, w}; }
typedef union { struct { half x, y, z, w, a, b, c, d; } __attribute__((aligned(16))); half data[8]; } half8;
__device__ half8 make_half8(half x, half y, half z, half w, half a, half b, half c, half d) { return {x, y, z, w, a, b, c, d}; }
typedef _Float16 half16 __attribute__((ext_vector_type(16)));
__device__ half16 make_half16(half x, half y, half z, half w, half a, half b, half c, half d,
                              half e, half f, half g, half h, half i, half j, half k, half l) {
                                return {x, y, z, w, a, b, c, d, e, f, g, h, i, j, k, l}; }
`

// Language renders HIP kernels.
type Language struct {
	cstyle.CLang
}

// New returns the HIP profile. The returned value is read-only and
// safe to share across Render calls.
func New() *Language {
	l := &Language{}
	l.CLang = cstyle.NewBase(l, cstyle.Conf{
		KernelPrefix:      kernelPrefix,
		LaunchBounds:      true,
		SMEMPrefix:        "__shared__ ",
		SMEMPrefixForCast: false,
		Barrier:           "__syncthreads();",
		Float4:            "make_float4",
		UsesPtrArithmetic: true,
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
