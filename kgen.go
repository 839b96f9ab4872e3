// Package kgen renders scheduled micro-op sequences into GPU kernel
// source code.
//
// kgen translates a linear, already-scheduled sequence of primitive
// compute operations into textual kernel source for one of several
// targets:
//   - OpenCL C
//   - MSL (Metal Shading Language)
//   - CUDA C
//   - HIP (AMD's CUDA dialect)
//   - WGSL (WebGPU Shading Language)
//
// The package provides a one-call API as well as lower-level access to
// the individual stages.
//
// Example usage:
//
//	ops := []*ir.Op{ /* produced by an external scheduler */ }
//	prog, err := kgen.Render(kgen.TargetOpenCL, "E_4", ops)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(prog.Source)
//
// For more control, construct a profile directly and use the cstyle
// package:
//
//	lang := metal.New()
//	prog, err := cstyle.RenderWithOptions(lang, "r_16", ops, opts)
package kgen

import (
	"github.com/pkg/errors"

	"github.com/gogpu/kgen/cstyle"
	"github.com/gogpu/kgen/cuda"
	"github.com/gogpu/kgen/hip"
	"github.com/gogpu/kgen/ir"
	"github.com/gogpu/kgen/metal"
	"github.com/gogpu/kgen/opencl"
	"github.com/gogpu/kgen/wgsl"
)

// Target selects an output kernel language.
type Target uint8

const (
	TargetOpenCL Target = iota
	TargetMetal
	TargetCUDA
	TargetHIP
	TargetWGSL
)

var targetNames = [...]string{
	TargetOpenCL: "opencl",
	TargetMetal:  "metal",
	TargetCUDA:   "cuda",
	TargetHIP:    "hip",
	TargetWGSL:   "wgsl",
}

// String returns the lowercase target name.
func (t Target) String() string {
	if int(t) < len(targetNames) {
		return targetNames[t]
	}
	return "unknown"
}

// ParseTarget resolves a target by its lowercase name.
func ParseTarget(name string) (Target, error) {
	for t, n := range targetNames {
		if n == name {
			return Target(t), nil //nolint:gosec // G115: t indexes a 5-entry table
		}
	}
	return 0, errors.Errorf("unknown target %q", name)
}

// RenderOptions configures a Render call.
type RenderOptions struct {
	// Validate runs ir.Validate on the sequence before rendering.
	Validate bool

	// Engine is the materialization policy passed through to the
	// renderer engine.
	Engine cstyle.Options
}

// DefaultOptions returns sensible default options.
func DefaultOptions() RenderOptions {
	return RenderOptions{Validate: true}
}

// NewLanguage returns the profile for a target. Profiles are read-only
// and may be shared across concurrent Render calls.
func NewLanguage(t Target) (cstyle.Language, error) {
	switch t {
	case TargetOpenCL:
		return opencl.New(), nil
	case TargetMetal:
		return metal.New(), nil
	case TargetCUDA:
		return cuda.New(), nil
	case TargetHIP:
		return hip.New(), nil
	case TargetWGSL:
		return wgsl.New(), nil
	default:
		return nil, errors.Errorf("unknown target %d", t)
	}
}

// Render renders ops as a kernel named name for the target, using
// default options.
//
// The pipeline is:
//  1. Select the target profile
//  2. Validate the sequence invariants
//  3. Render through the cstyle engine
func Render(t Target, name string, ops []*ir.Op) (*cstyle.Program, error) {
	return RenderWithOptions(t, name, ops, DefaultOptions())
}

// RenderWithOptions renders with explicit options.
func RenderWithOptions(t Target, name string, ops []*ir.Op, opts RenderOptions) (*cstyle.Program, error) {
	lang, err := NewLanguage(t)
	if err != nil {
		return nil, err
	}

	if opts.Validate {
		if verrs := ir.Validate(ops); len(verrs) > 0 {
			return nil, errors.Wrapf(&verrs[0], "validation failed (%d error(s))", len(verrs))
		}
	}

	prog, err := cstyle.RenderWithOptions(lang, name, ops, opts.Engine)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s generation", t)
	}
	return prog, nil
}
