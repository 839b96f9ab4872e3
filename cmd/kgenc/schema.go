package main

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/gogpu/kgen/ir"
)

// The input schema is private to this tool: the library itself consumes
// in-memory sequences and owns no file format. Operands reference
// earlier records by index.
//
//	{
//	  "name": "E_4",
//	  "ops": [
//	    {"kind": "DEFINE_GLOBAL", "dtype": "float*", "name": "data0"},
//	    {"kind": "CONST", "dtype": "int", "value": 0},
//	    {"kind": "CONST", "dtype": "float", "value": 1.0},
//	    {"kind": "STORE", "src": [0, 1, 2]}
//	  ]
//	}

type sequenceFile struct {
	Name string   `json:"name"`
	Ops  []opSpec `json:"ops"`
}

type opSpec struct {
	Kind  string  `json:"kind"`
	DType string  `json:"dtype,omitempty"`
	Src   []int   `json:"src,omitempty"`
	Alu   string  `json:"alu,omitempty"`
	Value float64 `json:"value,omitempty"`
	Name  string  `json:"name,omitempty"`
	Size  int     `json:"size,omitempty"`
	Axis  int     `json:"axis,omitempty"`
	Index int     `json:"index,omitempty"`
	// Bitcast marks a CAST as a bit reinterpretation.
	Bitcast bool `json:"bitcast,omitempty"`
	// Target selects the WMMA encoding ("METAL" or "HIP").
	Target string `json:"target,omitempty"`
}

type decoded struct {
	Name string
	Ops  []*ir.Op
}

var kindTags = map[string]ir.Kind{
	"LOOP":          ir.Loop,
	"IF":            ir.If,
	"END":           ir.End,
	"BARRIER":       ir.Barrier,
	"DEFINE_GLOBAL": ir.DefineGlobal,
	"DEFINE_LOCAL":  ir.DefineLocal,
	"DEFINE_ACC":    ir.DefineAcc,
	"SPECIAL":       ir.Special,
	"CONST":         ir.Const,
	"ALU":           ir.ALU,
	"CAST":          ir.Cast,
	"LOAD":          ir.Load,
	"STORE":         ir.Store,
	"PHI":           ir.Phi,
	"GEP":           ir.GEP,
	"WMMA":          ir.WMMA,
}

var aluTags = map[string]ir.AluOp{
	"neg": ir.AluNeg, "exp2": ir.AluExp2, "log2": ir.AluLog2,
	"sin": ir.AluSin, "sqrt": ir.AluSqrt,
	"add": ir.AluAdd, "sub": ir.AluSub, "mul": ir.AluMul,
	"div": ir.AluDiv, "max": ir.AluMax, "mod": ir.AluMod,
	"cmplt": ir.AluCmpLt, "xor": ir.AluXor,
	"mulacc": ir.AluMulAcc, "where": ir.AluWhere,
}

var scalarTags = map[string]ir.DType{
	"bool": ir.Bool, "char": ir.Int8, "short": ir.Int16,
	"int": ir.Int32, "long": ir.Int64,
	"uchar": ir.Uint8, "ushort": ir.Uint16,
	"uint": ir.Uint32, "ulong": ir.Uint64,
	"half": ir.Float16, "float": ir.Float32,
}

// parseDType accepts "float", "float4", "float*", "half4*", "image2d".
func parseDType(s string) (ir.DType, error) {
	if s == "" {
		return ir.DType{}, nil
	}
	if s == "image2d" {
		return ir.Image2D, nil
	}
	ptr := strings.HasSuffix(s, "*")
	s = strings.TrimSuffix(s, "*")
	count := 1
	base := strings.TrimRight(s, "0123456789")
	if digits := s[len(base):]; digits != "" {
		n := 0
		for _, c := range digits {
			n = n*10 + int(c-'0')
		}
		count = n
	}
	dt, ok := scalarTags[base]
	if !ok {
		return ir.DType{}, errors.Errorf("unknown dtype %q", s)
	}
	dt = dt.Vec(count)
	dt.Ptr = ptr
	return dt, nil
}

// decodeSequence parses the tool's JSON sequence format.
func decodeSequence(data []byte) (*decoded, error) {
	var file sequenceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parsing JSON")
	}

	ops := make([]*ir.Op, len(file.Ops))
	for i, spec := range file.Ops {
		kind, ok := kindTags[spec.Kind]
		if !ok {
			return nil, errors.Errorf("op %d: unknown kind %q", i, spec.Kind)
		}
		dt, err := parseDType(spec.DType)
		if err != nil {
			return nil, errors.WithMessagef(err, "op %d", i)
		}

		src := make([]*ir.Op, len(spec.Src))
		for j, ref := range spec.Src {
			if ref < 0 || ref >= i {
				return nil, errors.Errorf("op %d: operand reference %d out of range", i, ref)
			}
			src[j] = ops[ref]
		}

		arg, err := decodeArg(kind, &spec)
		if err != nil {
			return nil, errors.WithMessagef(err, "op %d", i)
		}
		ops[i] = ir.NewOp(kind, dt, src, arg)
	}
	return &decoded{Name: file.Name, Ops: ops}, nil
}

func decodeArg(kind ir.Kind, spec *opSpec) (any, error) {
	switch kind {
	case ir.ALU:
		alu, ok := aluTags[spec.Alu]
		if !ok {
			return nil, errors.Errorf("unknown alu op %q", spec.Alu)
		}
		return alu, nil
	case ir.Const, ir.DefineAcc:
		return spec.Value, nil
	case ir.DefineGlobal:
		return spec.Name, nil
	case ir.DefineLocal:
		return ir.LocalBuf{Name: spec.Name, Size: spec.Size}, nil
	case ir.Special:
		return ir.Axis{Index: spec.Axis, Name: spec.Name, Size: spec.Size}, nil
	case ir.Cast:
		return ir.CastArg{Bitcast: spec.Bitcast}, nil
	case ir.GEP:
		return spec.Index, nil
	case ir.WMMA:
		switch spec.Target {
		case "METAL":
			return ir.WMMAMetal, nil
		case "HIP":
			return ir.WMMAHIP, nil
		default:
			return nil, errors.Errorf("unknown WMMA target %q", spec.Target)
		}
	default:
		return nil, nil
	}
}
