package ir

import "fmt"

// AluOp enumerates the arithmetic and logical primitives an ALU record
// can carry as payload.
type AluOp uint8

const (
	AluInvalid AluOp = iota

	// Unary
	AluNeg
	AluExp2
	AluLog2
	AluSin
	AluSqrt

	// Binary
	AluAdd
	AluSub
	AluMul
	AluDiv
	AluMax
	AluMod
	AluCmpLt
	AluXor

	// Ternary
	AluMulAcc
	AluWhere
)

var aluNames = [...]string{
	AluInvalid: "invalid",
	AluNeg:     "neg",
	AluExp2:    "exp2",
	AluLog2:    "log2",
	AluSin:     "sin",
	AluSqrt:    "sqrt",
	AluAdd:     "add",
	AluSub:     "sub",
	AluMul:     "mul",
	AluDiv:     "div",
	AluMax:     "max",
	AluMod:     "mod",
	AluCmpLt:   "cmplt",
	AluXor:     "xor",
	AluMulAcc:  "mulacc",
	AluWhere:   "where",
}

// String returns the lowercase mnemonic of the op.
func (o AluOp) String() string {
	if int(o) < len(aluNames) {
		return aluNames[o]
	}
	return fmt.Sprintf("AluOp(%d)", uint8(o))
}

// Arity returns the operand count the op expects, or 0 for AluInvalid.
func (o AluOp) Arity() int {
	switch {
	case o >= AluNeg && o <= AluSqrt:
		return 1
	case o >= AluAdd && o <= AluXor:
		return 2
	case o == AluMulAcc || o == AluWhere:
		return 3
	default:
		return 0
	}
}
