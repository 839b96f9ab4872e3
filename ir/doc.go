// Package ir defines the linear intermediate representation consumed by
// the kernel source generators.
//
// The IR is designed to be:
//   - Target-agnostic: Not tied to any specific kernel language
//   - Linear: An already-scheduled sequence of micro-ops, not a graph
//   - Minimal: Only what a single-pass renderer needs
//
// # Structure
//
// A program is an ordered []*Op. Each Op carries a Kind, an optional
// result DType, its operand Ops in Src (operand position is significant),
// and a kind-specific payload in Arg. Operands always precede their uses
// in sequence order, and Loop/If records are bracketed by matching End
// records.
//
// # Translation Pipeline
//
// The typical pipeline is:
//
//	Scheduler (out of tree) → []*Op → cstyle renderer → kernel source
//
// Validation (Validate) checks the sequence invariants the renderer
// relies on; the renderer itself assumes a valid sequence.
package ir
