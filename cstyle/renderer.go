package cstyle

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gogpu/kgen/ir"
)

// Options configures the engine's materialization policy.
type Options struct {
	// MaterializeAll emits a named temporary for every ALU result,
	// overriding the inline policy. Useful when debugging generated
	// kernels line by line.
	MaterializeAll bool

	// MaterializeInts lets integer-typed ALU results follow the normal
	// use-count policy. By default they are always inlined: some
	// targets mis-expand deeply nested integer index expressions when
	// they are materialized, and the inline form reads better for
	// address math. This is a readability knob, not a semantic one.
	MaterializeInts bool
}

// DefaultOptions returns the policy used by Render.
func DefaultOptions() Options { return Options{} }

// Program is the result of rendering one sequence: the kernel source
// and the buffer parameters in declaration order, to be bound
// positionally by the dispatch layer.
type Program struct {
	Name      string
	Source    string
	Buffers   []Buffer
	LocalSize []int
}

// Render renders ops as a kernel named name under the given profile.
// The sequence must satisfy the ir.Validate invariants; violations
// surface as errors naming the offending record.
func Render(lang Language, name string, ops []*ir.Op) (*Program, error) {
	return RenderWithOptions(lang, name, ops, DefaultOptions())
}

// RenderWithOptions is Render with an explicit materialization policy.
func RenderWithOptions(lang Language, name string, ops []*ir.Op, opts Options) (*Program, error) {
	r := &renderer{
		lang:   lang,
		conf:   lang.Conf(),
		opts:   opts,
		syms:   make(map[*ir.Op]string, len(ops)),
		uses:   ir.UseCounts(ops),
		counts: make(map[string]int),
		depth:  1,
	}
	for i, op := range ops {
		if err := r.step(op); err != nil {
			return nil, errors.WithMessagef(err, "rendering op %d (%s)", i, op.Kind)
		}
	}
	src := lang.RenderKernel(name, r.kernel, r.bufs, r.localSize, r.prekernel)
	klog.V(2).Infof("kgen: rendered %q: %d ops, %d buffers, %d body lines",
		name, len(ops), len(r.bufs), len(r.kernel))
	return &Program{Name: name, Source: src, Buffers: r.bufs, LocalSize: r.localSize}, nil
}

// renderer is the per-call engine state: symbol table, use counts,
// nesting depth, fresh-name counters and the output accumulators.
// Nothing in it survives the Render call.
type renderer struct {
	lang Language
	conf *Conf
	opts Options

	syms   map[*ir.Op]string
	uses   map[*ir.Op]int
	counts map[string]int
	depth  int

	kernel    []string
	prekernel []string
	bufs      []Buffer
	localSize []int
}

// kk appends one body line at the current nesting depth.
func (r *renderer) kk(s string) {
	r.kernel = append(r.kernel, strings.Repeat("  ", r.depth)+s)
}

// ssa binds op to a fresh name in the given counter namespace.
func (r *renderer) ssa(op *ir.Op, prefix string) string {
	name := fmt.Sprintf("%s%d", prefix, r.counts[prefix])
	r.counts[prefix]++
	r.syms[op] = name
	return name
}

// sym returns the rendered expression or name bound to op.
func (r *renderer) sym(op *ir.Op) (string, error) {
	if s, ok := r.syms[op]; ok {
		return s, nil
	}
	return "", errors.Errorf("operand %s was never rendered", op.Kind)
}

// operands resolves all operands of op in position order.
func (r *renderer) operands(op *ir.Op) ([]string, error) {
	out := make([]string, len(op.Src))
	for i, src := range op.Src {
		s, err := r.sym(src)
		if err != nil {
			return nil, errors.WithMessagef(err, "operand %d", i)
		}
		out[i] = s
	}
	return out, nil
}

// declPrefix is the declaration prefix for a temporary of type dt.
func (r *renderer) declPrefix(dt ir.DType) string {
	if r.conf.GenericVarPrefix != "" {
		return r.conf.GenericVarPrefix
	}
	return dt.CName()
}

// step emits one record.
func (r *renderer) step(op *ir.Op) error {
	switch op.Kind {
	case ir.Loop:
		args, err := r.operands(op)
		if err != nil {
			return err
		}
		if len(args) != 2 {
			return errors.Errorf("LOOP expects 2 bound operands, got %d", len(args))
		}
		r.kk(r.lang.RenderFor(r.ssa(op, "ridx"), args[0], args[1]))
		r.depth++

	case ir.If:
		args, err := r.operands(op)
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return errors.Errorf("IF expects a condition operand, got %d", len(args))
		}
		r.kk(r.lang.RenderIf(args[0]))
		r.depth++

	case ir.End:
		if r.depth <= 1 {
			return errors.Errorf("END without matching LOOP or IF")
		}
		r.depth--
		r.kk("}")

	case ir.Barrier:
		r.kk(r.conf.Barrier)

	case ir.DefineGlobal:
		name, ok := op.Arg.(string)
		if !ok {
			return errors.Errorf("DEFINE_GLOBAL payload %v (%T) is not a buffer name", op.Arg, op.Arg)
		}
		r.bufs = append(r.bufs, Buffer{Name: name, DType: op.DType})
		r.syms[op] = name

	case ir.DefineLocal:
		lb, ok := op.Arg.(ir.LocalBuf)
		if !ok {
			return errors.Errorf("DEFINE_LOCAL payload %v (%T) is not a LocalBuf", op.Arg, op.Arg)
		}
		decl := r.lang.RenderLocal(lb.Name, lb.Size)
		if r.conf.ExternalLocalBufs {
			r.prekernel = append(r.prekernel, decl)
		} else {
			r.kk(decl)
		}
		r.syms[op] = lb.Name

	case ir.DefineAcc:
		v, err := constValue(op.Arg)
		if err != nil {
			return err
		}
		init, err := r.lang.RenderConst(v, op.DType)
		if err != nil {
			return err
		}
		r.kk(fmt.Sprintf("%s %s = %s;", r.declPrefix(op.DType), r.ssa(op, "acc"), init))

	case ir.Special:
		return r.stepSpecial(op)

	case ir.Const:
		v, err := constValue(op.Arg)
		if err != nil {
			return err
		}
		s, err := r.lang.RenderConst(v, op.DType)
		if err != nil {
			return err
		}
		// Negative literals are parenthesized so textual inlining
		// cannot change the consumer's parse.
		if v < 0 {
			s = "(" + s + ")"
		}
		r.syms[op] = s

	case ir.ALU:
		return r.stepALU(op)

	case ir.Cast:
		return r.stepCast(op)

	case ir.Load:
		return r.stepLoad(op)

	case ir.Store:
		return r.stepStore(op)

	case ir.Phi:
		args, err := r.operands(op)
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return errors.Errorf("PHI expects a target and a value operand, got %d", len(args))
		}
		r.kk(fmt.Sprintf("%s = %s;", args[0], args[1]))
		r.syms[op] = args[0]

	case ir.GEP:
		return r.stepGEP(op)

	case ir.WMMA:
		return r.stepWMMA(op)

	default:
		return errors.Errorf("failed to render %s", op.Kind)
	}
	return nil
}

// stepSpecial declares one thread-identity variable, picking the
// expression list by the axis category encoded in the name prefix.
// Local axes record their extent for the kernel's local size.
func (r *renderer) stepSpecial(op *ir.Op) error {
	axis, ok := op.Arg.(ir.Axis)
	if !ok {
		return errors.Errorf("SPECIAL payload %v (%T) is not an Axis", op.Arg, op.Arg)
	}
	var exprs []string
	switch {
	case strings.HasPrefix(axis.Name, "g"):
		exprs = r.conf.GID
	case strings.HasPrefix(axis.Name, "i"):
		exprs = r.conf.XID
	default:
		exprs = r.conf.LID
	}
	if axis.Index < 0 || axis.Index >= len(exprs) {
		return errors.Errorf("axis %d out of range for %q (target has %d)", axis.Index, axis.Name, len(exprs))
	}
	r.kk(fmt.Sprintf("%s %s = %s; /* %d */", r.conf.SizePrefix, axis.Name, exprs[axis.Index], axis.Size))
	if strings.HasPrefix(axis.Name, "l") {
		r.localSize = append(r.localSize, axis.Size)
	}
	r.syms[op] = axis.Name
	return nil
}

// stepALU renders one arithmetic record and applies the inline policy.
func (r *renderer) stepALU(op *ir.Op) error {
	alu, ok := op.Arg.(ir.AluOp)
	if !ok {
		return errors.Errorf("ALU payload %v (%T) is not an AluOp", op.Arg, op.Arg)
	}
	args, err := r.operands(op)
	if err != nil {
		return err
	}
	// Associative chains of the same operator read without the nested
	// parentheses; this is textual only, the grouping is unchanged
	// numerically for the operators it applies to.
	if len(op.Src) > 0 && op.Src[0].Kind == ir.ALU && op.Src[0].Arg == op.Arg && stripsParens(alu) {
		args[0] = stripParens(args[0])
	}
	val, err := r.lang.OpExpr(alu, op.DType, args...)
	if err != nil {
		return err
	}
	if r.uses[op] == 0 {
		return errors.Errorf("ALU result has no consumers")
	}
	inline := (r.uses[op] <= 1 || (op.DType.IsInt() && !r.opts.MaterializeInts)) &&
		alu != ir.AluMax && !r.opts.MaterializeAll
	if inline {
		r.syms[op] = val
		return nil
	}
	r.kk(fmt.Sprintf("%s %s = %s;", r.declPrefix(op.DType), r.ssa(op, "alu"), val))
	return nil
}

func stripsParens(op ir.AluOp) bool {
	switch op {
	case ir.AluAdd, ir.AluSub, ir.AluMul, ir.AluXor:
		return true
	default:
		return false
	}
}

// stepCast renders a cast or bitcast, inlined unless reused.
func (r *renderer) stepCast(op *ir.Op) error {
	args, err := r.operands(op)
	if err != nil {
		return err
	}
	bitcast := false
	if ca, ok := op.Arg.(ir.CastArg); ok {
		bitcast = ca.Bitcast
	}
	val, err := r.lang.RenderCast(args, op.DType, bitcast)
	if err != nil {
		return err
	}
	if r.uses[op] <= 1 && !r.opts.MaterializeAll {
		r.syms[op] = val
		return nil
	}
	r.kk(fmt.Sprintf("%s %s = %s;", r.declPrefix(op.DType), r.ssa(op, "cast"), val))
	return nil
}

// stepLoad always materializes: a load happens exactly once, at the
// point it was scheduled. An optional (condition, fallback) operand
// pair renders as a predicated load.
func (r *renderer) stepLoad(op *ir.Op) error {
	if len(op.Src) < 2 {
		return errors.Errorf("LOAD expects buffer and index operands, got %d", len(op.Src))
	}
	args, err := r.operands(op)
	if err != nil {
		return err
	}
	buf := op.Src[0]
	val, err := r.lang.RenderLoad(op.DType, args[0], buf.DType, stripParens(args[1]), buf.Kind == ir.DefineLocal)
	if err != nil {
		return err
	}
	if len(op.Src) > 3 {
		val = r.lang.RenderConditional(args[2], val, args[3])
	}
	r.kk(fmt.Sprintf("%s %s = %s;", r.declPrefix(op.DType), r.ssa(op, "val"), val))
	return nil
}

// stepStore emits the store statement, wrapped in a guard scope when a
// predicate operand is present.
func (r *renderer) stepStore(op *ir.Op) error {
	if len(op.Src) < 3 {
		return errors.Errorf("STORE expects buffer, index and value operands, got %d", len(op.Src))
	}
	args, err := r.operands(op)
	if err != nil {
		return err
	}
	buf, val := op.Src[0], op.Src[2]
	if !buf.DType.Valid() || !val.DType.Valid() {
		return errors.Errorf("STORE operands must carry types")
	}
	stmt, err := r.lang.RenderStore(args[0], buf.DType, args[2], val.DType, stripParens(args[1]), buf.Kind == ir.DefineLocal)
	if err != nil {
		return err
	}
	if len(op.Src) > 3 {
		r.kk(r.lang.RenderIf(args[3]))
		r.kk(stmt)
		r.kk("}")
		return nil
	}
	r.kk(stmt)
	return nil
}

// stepGEP extracts one vector component: named fields cover the first
// four positions, wider vectors subscript.
func (r *renderer) stepGEP(op *ir.Op) error {
	idx, ok := op.Arg.(int)
	if !ok {
		return errors.Errorf("GEP payload %v (%T) is not a component index", op.Arg, op.Arg)
	}
	if len(op.Src) != 1 {
		return errors.Errorf("GEP expects one vector operand, got %d", len(op.Src))
	}
	src, err := r.sym(op.Src[0])
	if err != nil {
		return err
	}
	if op.Src[0].DType.Count > 4 {
		r.syms[op] = fmt.Sprintf("(%s)[%d]", src, idx)
		return nil
	}
	if idx < 0 || idx > 3 {
		return errors.Errorf("component %d out of range for named access", idx)
	}
	r.syms[op] = fmt.Sprintf("(%s).%c", src, "xyzw"[idx])
	return nil
}

// stepWMMA emits the matrix-multiply-accumulate template for the
// record's target tag.
func (r *renderer) stepWMMA(op *ir.Op) error {
	target, ok := op.Arg.(ir.WMMATarget)
	if !ok {
		return errors.Errorf("WMMA payload %v (%T) is not a WMMATarget", op.Arg, op.Arg)
	}
	args, err := r.operands(op)
	if err != nil {
		return err
	}
	switch target {
	case ir.WMMAMetal:
		if op.DType != ir.Float32.Vec(2) {
			return errors.Errorf("output type of METAL WMMA is float2, getting %s", op.DType)
		}
		if len(args) != 6 {
			return errors.Errorf("METAL WMMA expects 6 operands, got %d", len(args))
		}
		output := r.ssa(op, "wmma")
		r.kk(fmt.Sprintf("%s %s;", r.declPrefix(op.DType), output))
		r.kk("{ simdgroup_float8x8 a,b,c;")
		r.kk(fmt.Sprintf("a.thread_elements()[0] = %s; a.thread_elements()[1] = %s;", args[0], args[1]))
		r.kk(fmt.Sprintf("b.thread_elements()[0] = %s; b.thread_elements()[1] = %s;", args[2], args[3]))
		r.kk(fmt.Sprintf("c.thread_elements()[0] = %s; c.thread_elements()[1] = %s;", args[4], args[5]))
		r.kk("simdgroup_multiply_accumulate(c, a, b, c);")
		r.kk(fmt.Sprintf("%s.x = c.thread_elements()[0]; %s.y = c.thread_elements()[1]; }", output, output))
	case ir.WMMAHIP:
		if op.DType != ir.Float32.Vec(8) {
			return errors.Errorf("output type of HIP WMMA is float8, getting %s", op.DType)
		}
		if len(args) != 3 {
			return errors.Errorf("HIP WMMA expects 3 operands, got %d", len(args))
		}
		r.kk(fmt.Sprintf("%s %s = __builtin_amdgcn_wmma_f32_16x16x16_f16_w32(%s, %s, %s);",
			r.declPrefix(op.DType), r.ssa(op, "wmma"), args[0], args[1], args[2]))
	default:
		return errors.Wrapf(ErrNotImplemented, "WMMA for target %s", target)
	}
	return nil
}

// constValue coerces the numeric payload kinds a Const or DefineAcc
// record may carry.
func constValue(arg any) (float64, error) {
	switch v := arg.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, errors.Errorf("constant payload %v (%T) is not numeric", arg, arg)
}

// stripParens removes one redundant level of parentheses when the
// remainder still parses as a unit.
func stripParens(s string) string {
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		inner := s[1 : len(s)-1]
		if strings.Index(inner, "(") <= strings.Index(inner, ")") {
			return inner
		}
	}
	return s
}
