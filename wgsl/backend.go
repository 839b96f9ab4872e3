// Package wgsl provides the WGSL compute shader profile.
//
// WGSL is the least C-like of the supported targets: buffers bind as
// @group/@binding declarations above the entry point, the workgroup
// size is part of the function attribute (with dimensions reversed
// relative to the sequence's local-axis order), local memory must be
// declared at module scope, and boolean scalars are encoded as f32
// because the storage grammar has no bool element type. These are
// deliberate, documented special cases of this profile, not general
// renderer rules.
package wgsl

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/gogpu/kgen/cstyle"
	"github.com/gogpu/kgen/ir"
)

// helperFuncs supplies nan() and inf() since WGSL has no literal form
// for either value.
const helperFuncs = "fn nan() -> f32 { let bits = 0xffffffffu; return bitcast<f32>(bits); }\n" +
	"fn inf(a: f32) -> f32 { return a/0.0; }\n"

// Language renders WGSL compute shaders.
type Language struct {
	cstyle.CLang
}

// New returns the WGSL profile. The returned value is read-only and
// safe to share across Render calls.
func New() *Language {
	l := &Language{}
	l.CLang = cstyle.NewBase(l, cstyle.Conf{
		SizePrefix:        "let",
		GenericVarPrefix:  "var",
		Barrier:           "workgroupBarrier();",
		ExternalLocalBufs: true,
		GID:               indexExprs("gindex"),
		LID:               indexExprs("lindex"),
		Ops: map[ir.AluOp]cstyle.OpFunc{
			// Comparison results feed arithmetic downstream, so the
			// bool is widened to f32 right here.
			ir.AluCmpLt: func(_ ir.DType, a ...string) string {
				return fmt.Sprintf("f32(%s<%s)", a[0], a[1])
			},
			ir.AluMulAcc: func(_ ir.DType, a ...string) string {
				return fmt.Sprintf("fma(%s,%s,%s)", a[0], a[1], a[2])
			},
			ir.AluWhere: func(_ ir.DType, a ...string) string {
				return fmt.Sprintf("select(%s,%s,bool(%s))", a[2], a[1], a[0])
			},
		},
		TypeMap: map[ir.ScalarKind]string{
			ir.ScalarFloat32: "f32",
			ir.ScalarFloat16: "f16",
			ir.ScalarInt32:   "i32",
			ir.ScalarUint32:  "u32",
			ir.ScalarBool:    "f32",
		},
	})
	return l
}

func indexExprs(base string) []string {
	out := make([]string, 3)
	for i := range out {
		out[i] = fmt.Sprintf("i32(%s.%c)", base, "xyz"[i])
	}
	return out
}

// RenderCast renders T(x) conversions and bitcast<T>(x); only the
// scalar types of the profile's map exist in the target grammar.
func (l *Language) RenderCast(operands []string, dt ir.DType, bitcast bool) (string, error) {
	if len(operands) != 1 || dt.Count != 1 {
		return "", errors.Wrapf(cstyle.ErrNotImplemented, "no WGSL cast for %s from %d operands", dt, len(operands))
	}
	if _, ok := l.Conf().TypeMap[dt.Kind]; !ok {
		return "", errors.Wrapf(cstyle.ErrNotImplemented, "no WGSL cast for %s", dt)
	}
	if bitcast {
		return fmt.Sprintf("bitcast<%s>(%s)", l.TypeName(dt), operands[0]), nil
	}
	return fmt.Sprintf("%s(%s)", l.TypeName(dt), operands[0]), nil
}

// RenderConst emits the helper-function tokens for NaN and infinity
// and parenthesizes everything else: WGSL's type-inferred declarations
// make a bare literal ambiguous once inlined.
func (l *Language) RenderConst(v float64, dt ir.DType) (string, error) {
	if math.IsNaN(v) {
		return "nan()", nil
	}
	if math.IsInf(v, 1) {
		return "inf(1.0)", nil
	}
	if math.IsInf(v, -1) {
		return "-inf(1.0)", nil
	}
	s, err := l.CLang.RenderConst(v, dt)
	if err != nil {
		return "", err
	}
	return "(" + s + ")", nil
}

// RenderLocal declares workgroup memory at module scope.
func (l *Language) RenderLocal(name string, size int) string {
	return fmt.Sprintf("var<workgroup> %s: array<f32,%d>;", name, size)
}

// RenderIf forces the condition back to bool; comparison results are
// f32-encoded in this profile.
func (l *Language) RenderIf(cond string) string {
	return fmt.Sprintf("if (bool(%s)) {", cond)
}

// RenderConditional uses select, whose operand order is (false, true, cond).
func (l *Language) RenderConditional(cond, x, y string) string {
	return fmt.Sprintf("select(%s, %s, bool(%s))", y, x, cond)
}

// RenderStore subscripts the binding and converts the value to the
// buffer element type when they differ.
func (l *Language) RenderStore(buf string, bufDT ir.DType, val string, valDT ir.DType, idx string, _ bool) (string, error) {
	if valDT != bufDT.Scalar() {
		cast, err := l.RenderCast([]string{val}, bufDT.Scalar(), false)
		if err != nil {
			return "", err
		}
		val = cast
	}
	return fmt.Sprintf("%s[%s] = %s;", buf, idx, val), nil
}

// RenderKernel assembles the shader: helper functions, hoisted
// workgroup declarations, one binding per buffer, then the entry point
// with its workgroup size. Local-size dimensions reverse because the
// sequence's innermost local axis is WGSL's x dimension.
func (l *Language) RenderKernel(name string, body []string, bufs []cstyle.Buffer, localSize []int, prekernel []string) string {
	size := make([]int, 0, 3)
	for i := len(localSize) - 1; i >= 0; i-- {
		size = append(size, localSize[i])
	}
	if len(size) == 0 {
		size = []int{1}
	}
	dims := make([]string, len(size))
	for i, d := range size {
		dims[i] = fmt.Sprint(d)
	}

	var sb strings.Builder
	sb.WriteString(helperFuncs)
	lines := make([]string, 0, len(prekernel)+len(bufs))
	lines = append(lines, prekernel...)
	for i, buf := range bufs {
		if buf.DType.Ptr {
			lines = append(lines, fmt.Sprintf("@group(0) @binding(%d) var<storage,read_write> %s: array<%s>;",
				i, buf.Name, l.TypeName(buf.DType.Scalar())))
		} else {
			lines = append(lines, fmt.Sprintf("@group(0) @binding(%d) var<uniform> %s: i32;", i, buf.Name))
		}
	}
	sb.WriteString(strings.Join(lines, "\n"))
	fmt.Fprintf(&sb, "\n@compute @workgroup_size(%s) fn %s(@builtin(workgroup_id) gindex: vec3<u32>, @builtin(local_invocation_id) lindex: vec3<u32>) {\n",
		strings.Join(dims, ","), name)
	sb.WriteString(strings.Join(body, "\n"))
	sb.WriteString("\n}")
	return sb.String()
}
