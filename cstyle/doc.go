// Package cstyle renders linear micro-op sequences into kernel source
// for C-family GPU languages.
//
// The package splits the work in two:
//
//   - Language is the profile contract: a read-only Conf of target
//     tokens plus overridable rendering hooks (constants, casts, memory
//     access, control flow, final kernel assembly). CLang implements
//     the hooks with generic C defaults; each backend package (opencl,
//     metal, cuda, hip, wgsl) embeds CLang and overrides what its
//     grammar requires.
//
//   - Render is the engine: a single pass over the sequence that keeps
//     a symbol table, use counts and nesting depth, decides per record
//     whether to inline its expression or materialize a named
//     temporary, and delegates every language-specific decision to the
//     active Language.
//
// Rendering is purely functional over its inputs: all mutable state
// lives in the per-call renderer, so one Language value can serve any
// number of concurrent Render calls.
package cstyle
