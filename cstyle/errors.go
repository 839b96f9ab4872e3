package cstyle

import "github.com/pkg/errors"

// ErrNotImplemented marks a known feature gap: the sequence asked for
// something this target has no encoding for (an unrecognized WMMA
// target, a vectorized cast on a target without vector construction).
// It is distinct from contract violations, which indicate a corrupt
// sequence or profile and are reported as plain errors.
//
// It carries no stack; attach one with errors.Wrapf at the return site.
var ErrNotImplemented = errors.New("not implemented")
