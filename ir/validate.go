package ir

import "fmt"

// ValidationError represents one violation of the sequence invariants.
type ValidationError struct {
	Message string
	// Index of the offending record in the sequence, or -1 for
	// sequence-level violations (e.g. an unclosed scope).
	Index int
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("op %d: %s", e.Index, e.Message)
	}
	return e.Message
}

// Validate checks a sequence for the invariants the renderer relies on:
//   - every operand reference points at an earlier record in the sequence
//   - Loop/If and End records balance
//   - ALU records carry a valid AluOp payload with matching operand count
//   - value-producing records carry a result type
//   - ALU records have at least one consumer (dead-value violation)
//
// Returns the violations found, or nil if the sequence is valid. A nil
// result means the renderer's own defensive checks should never fire.
func Validate(ops []*Op) []ValidationError {
	var errs []ValidationError
	report := func(index int, format string, args ...any) {
		errs = append(errs, ValidationError{Message: fmt.Sprintf(format, args...), Index: index})
	}

	seen := make(map[*Op]int, len(ops))
	uses := UseCounts(ops)
	depth := 0

	for i, op := range ops {
		if op == nil {
			report(i, "nil record")
			continue
		}
		for j, src := range op.Src {
			if src == nil {
				report(i, "operand %d is nil", j)
				continue
			}
			if _, ok := seen[src]; !ok {
				report(i, "operand %d does not precede its use", j)
			}
		}

		switch op.Kind {
		case Loop, If:
			depth++
		case End:
			if depth == 0 {
				report(i, "END without matching LOOP or IF")
			} else {
				depth--
			}
		case ALU:
			alu, ok := op.Arg.(AluOp)
			if !ok || alu.Arity() == 0 {
				report(i, "ALU payload %v is not a valid AluOp", op.Arg)
			} else if len(op.Src) != alu.Arity() {
				report(i, "ALU op %s expects %d operands, got %d", alu, alu.Arity(), len(op.Src))
			}
			if !op.DType.Valid() {
				report(i, "ALU record has no result type")
			}
			if uses[op] == 0 {
				report(i, "ALU result has no consumers")
			}
		case Const, Cast, Load, DefineAcc:
			if !op.DType.Valid() {
				report(i, "%s record has no result type", op.Kind)
			}
		case DefineGlobal:
			if !op.DType.Valid() {
				report(i, "DEFINE_GLOBAL record has no buffer type")
			}
			if _, ok := op.Arg.(string); !ok {
				report(i, "DEFINE_GLOBAL payload %v is not a buffer name", op.Arg)
			}
		case DefineLocal:
			if _, ok := op.Arg.(LocalBuf); !ok {
				report(i, "DEFINE_LOCAL payload %v is not a LocalBuf", op.Arg)
			}
		case Special:
			if _, ok := op.Arg.(Axis); !ok {
				report(i, "SPECIAL payload %v is not an Axis", op.Arg)
			}
		}

		seen[op] = i
	}

	if depth != 0 {
		errs = append(errs, ValidationError{
			Message: fmt.Sprintf("%d unclosed LOOP/IF scope(s)", depth),
			Index:   -1,
		})
	}
	return errs
}
