// Package metal provides the Metal Shading Language kernel profile.
package metal

import (
	"fmt"

	"github.com/gogpu/kgen/cstyle"
	"github.com/gogpu/kgen/ir"
)

// Language renders Metal Shading Language kernels.
type Language struct {
	cstyle.CLang
}

// New returns the Metal profile. The returned value is read-only and
// safe to share across Render calls.
func New() *Language {
	l := &Language{}
	l.CLang = cstyle.NewBase(l, cstyle.Conf{
		KernelPrefix:      "#include <metal_stdlib>\nusing namespace metal;\nkernel ",
		BufferPrefix:      "device ",
		SMEMPrefix:        "threadgroup ",
		SMEMPrefixForCast: true,
		ArgIntPrefix:      "constant int&",
		Barrier:           "threadgroup_barrier(mem_flags::mem_threadgroup);",
		Float4:            "float4",
		UsesPtrArithmetic: true,
		GID:               componentExprs("gid"),
		LID:               componentExprs("lid"),
		ExtraArgs: []string{
			"uint3 gid [[threadgroup_position_in_grid]]",
			"uint3 lid [[thread_position_in_threadgroup]]",
		},
	})
	return l
}

func componentExprs(base string) []string {
	out := make([]string, 3)
	for i := range out {
		out[i] = fmt.Sprintf("%s.%c", base, "xyz"[i])
	}
	return out
}

// RenderCast uses Metal's as_type<T> form for bitcasts.
func (l *Language) RenderCast(operands []string, dt ir.DType, bitcast bool) (string, error) {
	if bitcast && len(operands) > 0 {
		return fmt.Sprintf("as_type<%s>(%s)", dt.CName(), operands[0]), nil
	}
	return l.CLang.RenderCast(operands, dt, bitcast)
}
