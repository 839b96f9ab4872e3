package cstyle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gogpu/kgen/ir"
)

// Buffer is one kernel parameter: a buffer name and its semantic type.
// The renderer returns them in declaration order, which is also the
// generated kernel's formal parameter order.
type Buffer struct {
	Name  string
	DType ir.DType
}

// OpFunc renders one ALU primitive as an expression, given the rendered
// operand strings and the result type.
type OpFunc func(dt ir.DType, operands ...string) string

// Conf is the declarative half of a language profile. It is read-only
// after construction; profiles share one Conf across Render calls.
type Conf struct {
	// Declaration prefix for thread-index variables ("int", "let").
	SizePrefix string
	// Declaration prefix for temporaries on type-inferred targets
	// ("var" for WGSL). Empty means declarations spell the type name.
	GenericVarPrefix string

	KernelPrefix string // kernel entry point prefix, including any preamble
	BufferPrefix string // address-space qualifier for global buffers
	BufferSuffix string
	SMEMAlign    string // alignment attribute for local-memory declarations
	SMEMPrefix   string // address-space qualifier for local memory
	// SMEMPrefixForCast selects SMEMPrefix (instead of BufferPrefix)
	// when casting a local-memory pointer for a wide load/store.
	SMEMPrefixForCast bool
	ArgIntPrefix      string // parameter prefix for scalar integer arguments

	Barrier string // barrier statement, emitted verbatim

	XID []string // per-axis global thread index expressions
	GID []string // per-axis group index expressions
	LID []string // per-axis local index expressions

	GlobalMax []int // optional per-axis global size limits
	LocalMax  []int // optional per-axis local size limits

	ExtraArgs []string // extra formal parameters appended to every kernel

	// Float4 is the vector construction form ("(float4)", "make_float4").
	// The "float4" substring is replaced by the requested vector type
	// name. Empty means the target has no vector construction.
	Float4 string

	// HalfPrekernel is prepended to the kernel when any buffer has a
	// half-precision element type.
	HalfPrekernel string

	UsesVload         bool // half-precision access goes through vload/vstore intrinsics
	ExternalLocalBufs bool // local-memory declarations hoist above the kernel
	UsesPtrArithmetic bool // scalar access is *(buf+idx) instead of buf[idx]
	LaunchBounds      bool // kernel carries a launch-bounds attribute

	// TypeMap overrides scalar type names where the target cannot spell
	// the C name (bitcast forms, WGSL types).
	TypeMap map[ir.ScalarKind]string

	// Ops overrides entries of the default operator table.
	Ops map[ir.AluOp]OpFunc
}

// Language is the profile contract the renderer programs against. Every
// hook has a C-like default on CLang; backends override selectively.
type Language interface {
	Conf() *Conf

	// OpExpr renders one ALU primitive application.
	OpExpr(op ir.AluOp, dt ir.DType, operands ...string) (string, error)

	// RenderCast converts operands to dt: a type-name cast for one
	// operand, vector construction for several (operand count must
	// equal the vector width), or a bit reinterpretation.
	RenderCast(operands []string, dt ir.DType, bitcast bool) (string, error)

	// RenderConst renders a literal of type dt, including the NaN and
	// infinity tokens of the target.
	RenderConst(v float64, dt ir.DType) (string, error)

	// RenderLoad renders an expression reading buf[idx] as type out.
	RenderLoad(out ir.DType, buf string, bufDT ir.DType, idx string, local bool) (string, error)

	// RenderStore renders the statement buf[idx] = val.
	RenderStore(buf string, bufDT ir.DType, val string, valDT ir.DType, idx string, local bool) (string, error)

	// RenderLocal renders a local-memory array declaration.
	RenderLocal(name string, size int) string

	// RenderFor and RenderIf open scopes; the engine emits the close.
	RenderFor(v, lo, hi string) string
	RenderIf(cond string) string

	// RenderConditional renders a value selected by a runtime condition.
	RenderConditional(cond, x, y string) string

	// RenderKernel assembles the final source unit.
	RenderKernel(name string, body []string, bufs []Buffer, localSize []int, prekernel []string) string
}

// defaultOps is the generic C operator table. Profiles override entries
// through Conf.Ops.
var defaultOps = map[ir.AluOp]OpFunc{
	ir.AluNeg: func(dt ir.DType, a ...string) string {
		if dt.Kind == ir.ScalarBool {
			return fmt.Sprintf("(!%s)", a[0])
		}
		return fmt.Sprintf("(-%s)", a[0])
	},
	ir.AluExp2:   func(_ ir.DType, a ...string) string { return fmt.Sprintf("exp2(%s)", a[0]) },
	ir.AluLog2:   func(_ ir.DType, a ...string) string { return fmt.Sprintf("log2(%s)", a[0]) },
	ir.AluSin:    func(_ ir.DType, a ...string) string { return fmt.Sprintf("sin(%s)", a[0]) },
	ir.AluSqrt:   func(_ ir.DType, a ...string) string { return fmt.Sprintf("sqrt(%s)", a[0]) },
	ir.AluAdd:    func(_ ir.DType, a ...string) string { return fmt.Sprintf("(%s+%s)", a[0], a[1]) },
	ir.AluSub:    func(_ ir.DType, a ...string) string { return fmt.Sprintf("(%s-%s)", a[0], a[1]) },
	ir.AluMul:    func(_ ir.DType, a ...string) string { return fmt.Sprintf("(%s*%s)", a[0], a[1]) },
	ir.AluDiv:    func(_ ir.DType, a ...string) string { return fmt.Sprintf("(%s/%s)", a[0], a[1]) },
	ir.AluMax:    func(_ ir.DType, a ...string) string { return fmt.Sprintf("max(%s,%s)", a[0], a[1]) },
	ir.AluMod:    func(_ ir.DType, a ...string) string { return fmt.Sprintf("(%s%%%s)", a[0], a[1]) },
	ir.AluCmpLt:  func(_ ir.DType, a ...string) string { return fmt.Sprintf("(%s<%s)", a[0], a[1]) },
	ir.AluXor:    func(_ ir.DType, a ...string) string { return fmt.Sprintf("(%s^%s)", a[0], a[1]) },
	ir.AluMulAcc: func(_ ir.DType, a ...string) string { return fmt.Sprintf("((%s*%s)+%s)", a[0], a[1], a[2]) },
	ir.AluWhere:  func(_ ir.DType, a ...string) string { return fmt.Sprintf("(%s?%s:%s)", a[0], a[1], a[2]) },
}

// HalfIntrinsicOps maps operators to their dedicated half-precision
// intrinsics on targets that have them (CUDA, HIP); other result types
// fall through to the generic forms.
var HalfIntrinsicOps = map[ir.AluOp]OpFunc{
	ir.AluMax: func(dt ir.DType, a ...string) string {
		if dt.Kind == ir.ScalarFloat16 {
			return fmt.Sprintf("__hmax(%s,%s)", a[0], a[1])
		}
		return fmt.Sprintf("max(%s,%s)", a[0], a[1])
	},
	ir.AluSqrt: halfUnary("sqrt", "hsqrt"),
	ir.AluSin:  halfUnary("sin", "hsin"),
	ir.AluLog2: halfUnary("log2", "hlog2"),
	ir.AluExp2: halfUnary("exp2", "hexp2"),
}

func halfUnary(generic, half string) OpFunc {
	return func(dt ir.DType, a ...string) string {
		if dt.Kind == ir.ScalarFloat16 {
			return fmt.Sprintf("%s(%s)", half, a[0])
		}
		return fmt.Sprintf("%s(%s)", generic, a[0])
	}
}

// CLang carries a profile Conf and implements the Language hooks with
// generic C behavior. Backends embed it and override selectively; the
// self reference keeps delegating defaults (const → cast, load → cast)
// routed through the overrides.
type CLang struct {
	conf Conf
	self Language
}

// NewBase wires a CLang for the concrete profile self, applying
// defaults for unset Conf fields.
func NewBase(self Language, conf Conf) CLang {
	if conf.SizePrefix == "" {
		conf.SizePrefix = "int"
	}
	if conf.ArgIntPrefix == "" {
		conf.ArgIntPrefix = "const int"
	}
	return CLang{conf: conf, self: self}
}

// Conf returns the profile configuration.
func (l *CLang) Conf() *Conf { return &l.conf }

// TypeName resolves dt's name through the profile's TypeMap, falling
// back to the C name, with the vector count appended for widths > 1.
func (l *CLang) TypeName(dt ir.DType) string {
	name, ok := l.conf.TypeMap[dt.Kind]
	if !ok {
		name = dt.Kind.String()
	}
	if dt.Count > 1 {
		name += strconv.Itoa(dt.Count)
	}
	return name
}

// OpExpr renders one ALU primitive, preferring the profile's override
// table over the generic forms.
func (l *CLang) OpExpr(op ir.AluOp, dt ir.DType, operands ...string) (string, error) {
	fn := l.conf.Ops[op]
	if fn == nil {
		fn = defaultOps[op]
	}
	if fn == nil {
		return "", errors.Errorf("no renderer for ALU op %s", op)
	}
	if len(operands) != op.Arity() {
		return "", errors.Errorf("ALU op %s expects %d operands, got %d", op, op.Arity(), len(operands))
	}
	return fn(dt, operands...), nil
}

// RenderCast implements the generic cast forms: pointer-punning bitcast,
// type-name cast for a single operand, vector construction otherwise.
func (l *CLang) RenderCast(operands []string, dt ir.DType, bitcast bool) (string, error) {
	if len(operands) == 0 {
		return "", errors.Errorf("cast with no operands")
	}
	if bitcast {
		return fmt.Sprintf("(*((%s%s*)&%s))", l.conf.BufferPrefix, dt.CName(), operands[0]), nil
	}
	if len(operands) == 1 {
		return fmt.Sprintf("(%s)(%s)", dt.CName(), operands[0]), nil
	}
	if len(operands) != dt.Count {
		return "", errors.Errorf("cast is wrong size %d != %d", len(operands), dt.Count)
	}
	if l.conf.Float4 == "" {
		return "", errors.Wrapf(ErrNotImplemented, "vectorized cast on this target")
	}
	ctor := strings.Replace(l.conf.Float4, "float4", dt.CName(), 1)
	return fmt.Sprintf("%s(%s)", ctor, strings.Join(operands, ",")), nil
}

// RenderConst renders a literal, special-casing NaN and the infinities
// and widening to a vector construction when dt is a vector.
func (l *CLang) RenderConst(v float64, dt ir.DType) (string, error) {
	var val string
	switch {
	case math.IsNaN(v):
		val = "NAN"
	case math.IsInf(v, 1):
		val = "INFINITY"
	case math.IsInf(v, -1):
		val = "-INFINITY"
	case dt.IsFloat():
		if dt.Kind == ir.ScalarFloat16 {
			// Round to the nearest representable half so the emitted
			// literal matches the value the kernel actually computes.
			v = float64(float16.Fromfloat32(float32(v)).Float32())
		}
		val = formatFloat(v) + "f"
	case dt.IsInt():
		val = strconv.FormatInt(int64(v), 10)
	default:
		val = strconv.FormatBool(v != 0)
	}
	if dt.Count > 1 || (dt != ir.Float32 && dt != ir.Int32 && dt != ir.Bool) {
		operands := make([]string, dt.Count)
		for i := range operands {
			operands[i] = val
		}
		return l.self.RenderCast(operands, dt, false)
	}
	return val, nil
}

// formatFloat renders v with an explicit decimal point so the literal
// reads as floating point in every target grammar.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// RenderLoad renders a read of buf[idx] with result type out, handling
// image buffers, half-precision wide loads, vector loads via pointer
// punning, and the target's addressing style.
func (l *CLang) RenderLoad(out ir.DType, buf string, bufDT ir.DType, idx string, local bool) (string, error) {
	if bufDT.Image {
		if out != ir.Float32.Vec(4) {
			return "", errors.Errorf("image loads must be float4, getting %s", out)
		}
		return fmt.Sprintf("read_imagef(%s, smp, %s)", buf, idx), nil
	}
	if l.conf.UsesVload && bufDT.Kind == ir.ScalarFloat16 && out.Kind != ir.ScalarFloat16 {
		if out.Count > 1 {
			return fmt.Sprintf("vload_half%d(0, %s+%s)", out.Count, buf, idx), nil
		}
		return fmt.Sprintf("vload_half(0, %s+%s)", buf, idx), nil
	}
	var outVal string
	if out.Count > 1 {
		outVal = fmt.Sprintf("*((%s%s%d*)(%s+%s))", l.castPrefix(local), bufDT.Kind, out.Count, buf, idx)
	} else if l.conf.UsesPtrArithmetic {
		outVal = fmt.Sprintf("*(%s+%s)", buf, idx)
	} else {
		outVal = fmt.Sprintf("%s[%s]", buf, idx)
	}
	if out != (ir.DType{Kind: bufDT.Kind, Count: bufDT.Count}) {
		return l.self.RenderCast([]string{outVal}, out, false)
	}
	return outVal, nil
}

// castPrefix picks the address-space qualifier for a punned wide access.
func (l *CLang) castPrefix(local bool) string {
	if local && l.conf.SMEMPrefixForCast {
		return l.conf.SMEMPrefix
	}
	return l.conf.BufferPrefix
}

// RenderStore renders the statement writing val into buf[idx].
func (l *CLang) RenderStore(buf string, bufDT ir.DType, val string, valDT ir.DType, idx string, local bool) (string, error) {
	if bufDT.Image {
		if valDT != ir.Float32.Vec(4) {
			return "", errors.Errorf("image stores must be float4, getting %s", valDT)
		}
		return fmt.Sprintf("write_imagef(%s, %s, %s);", buf, idx, val), nil
	}
	if l.conf.UsesVload && bufDT.Kind == ir.ScalarFloat16 && valDT.Kind != ir.ScalarFloat16 {
		if valDT.Count > 1 {
			return fmt.Sprintf("vstore_half%d(%s, 0, %s+%s);", valDT.Count, val, buf, idx), nil
		}
		return fmt.Sprintf("vstore_half(%s, 0, %s+%s);", val, buf, idx), nil
	}
	if valDT.Count > 1 {
		return fmt.Sprintf("*((%s%s%d*)(%s+%s)) = (%s%d)%s;",
			l.castPrefix(local), bufDT.Kind, valDT.Count, buf, idx, bufDT.Kind, valDT.Count, val), nil
	}
	if l.conf.UsesPtrArithmetic {
		return fmt.Sprintf("*(%s+%s) = %s;", buf, idx, val), nil
	}
	return fmt.Sprintf("%s[%s] = %s;", buf, idx, val), nil
}

// RenderLocal renders a local-memory array declaration of float elements.
func (l *CLang) RenderLocal(name string, size int) string {
	return fmt.Sprintf("%s%sfloat %s[%d];", l.conf.SMEMAlign, l.conf.SMEMPrefix, name, size)
}

// RenderFor opens a counted loop scope.
func (l *CLang) RenderFor(v, lo, hi string) string {
	prefix := l.conf.GenericVarPrefix
	if prefix == "" {
		prefix = "int"
	}
	return fmt.Sprintf("for (%s %s = %s; %s < %s; %s++) {", prefix, v, lo, v, hi, v)
}

// RenderIf opens a conditional scope.
func (l *CLang) RenderIf(cond string) string {
	return fmt.Sprintf("if (%s) {", cond)
}

// RenderConditional renders a ternary select.
func (l *CLang) RenderConditional(cond, x, y string) string {
	return fmt.Sprintf("(%s)?(%s):%s", cond, x, y)
}

// RenderKernel assembles the kernel: signature from the buffer list
// (qualifiers depend on pointer vs image vs scalar int parameters),
// sampler preamble when images are bound, optional launch bounds, body,
// and the half-precision preamble when a half buffer is present.
func (l *CLang) RenderKernel(name string, body []string, bufs []Buffer, localSize []int, prekernel []string) string {
	var sb strings.Builder
	for _, line := range prekernel {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(l.conf.KernelPrefix)
	sb.WriteString("void ")
	if l.conf.LaunchBounds {
		fmt.Fprintf(&sb, "__launch_bounds__ (%d, 1) ", prod(localSize))
	}
	sb.WriteString(name)
	sb.WriteByte('(')

	params := make([]string, 0, len(bufs)+len(l.conf.ExtraArgs))
	for i, buf := range bufs {
		params = append(params, fmt.Sprintf("%s %s", l.bufferParam(i, buf.DType), buf.Name))
	}
	params = append(params, l.conf.ExtraArgs...)
	sb.WriteString(strings.Join(params, ", "))
	sb.WriteString(") {\n")

	if hasImage(bufs) {
		sb.WriteString("const sampler_t smp = CLK_NORMALIZED_COORDS_FALSE | CLK_ADDRESS_CLAMP | CLK_FILTER_NEAREST;\n")
	}
	sb.WriteString(strings.Join(body, "\n"))
	sb.WriteString("\n}")

	prg := sb.String()
	if l.conf.HalfPrekernel != "" && hasHalf(bufs) {
		prg = l.conf.HalfPrekernel + "\n" + prg
	}
	return prg
}

// bufferParam renders the parameter type for one buffer. The first
// image parameter is the kernel output and is bound write-only.
func (l *CLang) bufferParam(i int, dt ir.DType) string {
	switch {
	case dt.Image:
		if i > 0 {
			return "read_only image2d_t"
		}
		return "write_only image2d_t"
	case dt.Ptr:
		qual := ""
		if i > 0 {
			qual = "const "
		}
		return qual + l.conf.BufferPrefix + dt.Vec(dt.Count).CName() + "*" + l.conf.BufferSuffix
	default:
		return l.conf.ArgIntPrefix
	}
}

func hasImage(bufs []Buffer) bool {
	for _, b := range bufs {
		if b.DType.Image {
			return true
		}
	}
	return false
}

func hasHalf(bufs []Buffer) bool {
	for _, b := range bufs {
		if b.DType.Kind == ir.ScalarFloat16 {
			return true
		}
	}
	return false
}

// prod multiplies the local-size dimensions; an empty size is 1.
func prod(xs []int) int {
	p := 1
	for _, x := range xs {
		p *= x
	}
	return p
}
