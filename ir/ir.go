package ir

import "fmt"

// Kind represents the operation kinds of the linear IR.
type Kind uint8

const (
	// Control
	Loop Kind = iota
	If
	End
	Barrier

	// Declarations
	DefineGlobal
	DefineLocal
	DefineAcc

	// Thread identity
	Special

	// Value producing
	Const
	ALU
	Cast
	Load
	Store
	Phi
	GEP
	WMMA
)

var kindNames = [...]string{
	Loop:         "LOOP",
	If:           "IF",
	End:          "END",
	Barrier:      "BARRIER",
	DefineGlobal: "DEFINE_GLOBAL",
	DefineLocal:  "DEFINE_LOCAL",
	DefineAcc:    "DEFINE_ACC",
	Special:      "SPECIAL",
	Const:        "CONST",
	ALU:          "ALU",
	Cast:         "CAST",
	Load:         "LOAD",
	Store:        "STORE",
	Phi:          "PHI",
	GEP:          "GEP",
	WMMA:         "WMMA",
}

// String returns the canonical uppercase tag of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Op is one record of the linear IR. Records are immutable once the
// sequence is handed to a renderer and are identified by pointer: the
// same *Op appearing twice in Src means the same value, not an equal one.
//
// Arg holds a kind-specific payload:
//
//	ALU           AluOp
//	Const         float64 (booleans: 0 or 1)
//	DefineAcc     float64 (initial accumulator value)
//	DefineGlobal  string (buffer name)
//	DefineLocal   LocalBuf
//	Special       Axis
//	Cast          CastArg (absent means plain cast)
//	GEP           int (component index)
//	WMMA          WMMATarget
type Op struct {
	Kind  Kind
	DType DType // zero when the kind produces no value
	Src   []*Op
	Arg   any
}

// LocalBuf is the DefineLocal payload: a named local/shared-memory
// array of Size scalar elements.
type LocalBuf struct {
	Name string
	Size int
}

// Axis is the Special payload, requesting one thread-identity axis.
// The category is taken from the Name prefix, matching the upstream
// scheduler's naming contract: "gidx..." selects the group-index list,
// "idx..." the global-index list, "lidx..." the local-index list.
// Size is the declared extent of the axis; local axes contribute it to
// the kernel's local size.
type Axis struct {
	Index int // axis number, selects into the profile's expression list
	Name  string
	Size  int
}

// CastArg is the Cast payload. Bitcast reinterprets raw bits instead of
// converting numerically.
type CastArg struct {
	Bitcast bool
}

// WMMATarget is the WMMA payload: the closed set of accelerator targets
// with a known matrix-multiply-accumulate encoding.
type WMMATarget uint8

const (
	WMMAMetal WMMATarget = iota
	WMMAHIP
)

// String returns the target tag name.
func (t WMMATarget) String() string {
	switch t {
	case WMMAMetal:
		return "METAL"
	case WMMAHIP:
		return "HIP"
	default:
		return fmt.Sprintf("WMMATarget(%d)", uint8(t))
	}
}

// NewOp builds an Op. It is a plain constructor for readability at call
// sites; sequences are normally produced by an external scheduler.
func NewOp(kind Kind, dtype DType, src []*Op, arg any) *Op {
	return &Op{Kind: kind, DType: dtype, Src: src, Arg: arg}
}

// UseCounts returns, for every record referenced as an operand anywhere
// in ops, the number of records that consume it. Records never used as
// an operand are absent from the map.
func UseCounts(ops []*Op) map[*Op]int {
	counts := make(map[*Op]int, len(ops))
	for _, op := range ops {
		for _, src := range op.Src {
			counts[src]++
		}
	}
	return counts
}
