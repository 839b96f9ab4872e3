package ir

import "fmt"

// ScalarKind represents the scalar element kinds supported by the IR.
type ScalarKind uint8

const (
	ScalarInvalid ScalarKind = iota
	ScalarBool
	ScalarInt8
	ScalarInt16
	ScalarInt32
	ScalarInt64
	ScalarUint8
	ScalarUint16
	ScalarUint32
	ScalarUint64
	ScalarFloat16
	ScalarFloat32
)

// cNames maps scalar kinds to their C-family type names. Backends that
// cannot spell these names directly (e.g. "unsigned int" inside an
// as_<type> bitcast) carry their own override map in the profile.
var cNames = [...]string{
	ScalarInvalid: "void",
	ScalarBool:    "bool",
	ScalarInt8:    "char",
	ScalarInt16:   "short",
	ScalarInt32:   "int",
	ScalarInt64:   "long",
	ScalarUint8:   "unsigned char",
	ScalarUint16:  "unsigned short",
	ScalarUint32:  "unsigned int",
	ScalarUint64:  "unsigned long",
	ScalarFloat16: "half",
	ScalarFloat32: "float",
}

// String returns the C-family name of the scalar kind.
func (k ScalarKind) String() string {
	if int(k) < len(cNames) {
		return cNames[k]
	}
	return fmt.Sprintf("ScalarKind(%d)", uint8(k))
}

// DType is the semantic type of an Op result or buffer element:
// a scalar kind plus a vector count, optionally marked as a buffer
// pointer or as an image (texture-backed buffer).
//
// The zero DType is invalid and stands for "no result type".
type DType struct {
	Kind  ScalarKind
	Count int  // vector width; 1 for scalars
	Ptr   bool // pointer-to-element buffer type
	Image bool // texture-backed buffer (element type is float32)
}

// Predeclared scalar types.
var (
	Bool    = DType{Kind: ScalarBool, Count: 1}
	Int8    = DType{Kind: ScalarInt8, Count: 1}
	Int16   = DType{Kind: ScalarInt16, Count: 1}
	Int32   = DType{Kind: ScalarInt32, Count: 1}
	Int64   = DType{Kind: ScalarInt64, Count: 1}
	Uint8   = DType{Kind: ScalarUint8, Count: 1}
	Uint16  = DType{Kind: ScalarUint16, Count: 1}
	Uint32  = DType{Kind: ScalarUint32, Count: 1}
	Uint64  = DType{Kind: ScalarUint64, Count: 1}
	Float16 = DType{Kind: ScalarFloat16, Count: 1}
	Float32 = DType{Kind: ScalarFloat32, Count: 1}

	// Image2D is the distinguished type of texture-backed buffers.
	// Loads and stores against it transfer exactly a float32 4-vector.
	Image2D = DType{Kind: ScalarFloat32, Count: 1, Ptr: true, Image: true}
)

// Valid reports whether d carries a type at all.
func (d DType) Valid() bool { return d.Kind != ScalarInvalid }

// Vec returns the n-wide vector version of d's scalar.
func (d DType) Vec(n int) DType {
	return DType{Kind: d.Kind, Count: n}
}

// Scalar returns the element type of d: width 1, no pointer/image marker.
func (d DType) Scalar() DType {
	return DType{Kind: d.Kind, Count: 1}
}

// Pointer returns the buffer-pointer version of d.
func (d DType) Pointer() DType {
	return DType{Kind: d.Kind, Count: d.Count, Ptr: true}
}

// IsFloat reports whether d's scalar kind is a floating-point kind.
func (d DType) IsFloat() bool {
	return d.Kind == ScalarFloat16 || d.Kind == ScalarFloat32
}

// IsInt reports whether d's scalar kind is an integer kind (signed or not).
func (d DType) IsInt() bool {
	return d.Kind >= ScalarInt8 && d.Kind <= ScalarUint64
}

// IsUnsigned reports whether d's scalar kind is an unsigned integer kind.
func (d DType) IsUnsigned() bool {
	return d.Kind >= ScalarUint8 && d.Kind <= ScalarUint64
}

// CName returns the C-family type name of d, with the vector count
// appended for widths above 1 ("float", "float4", "half8").
func (d DType) CName() string {
	if d.Count > 1 {
		return fmt.Sprintf("%s%d", d.Kind, d.Count)
	}
	return d.Kind.String()
}

// String implements fmt.Stringer for diagnostics.
func (d DType) String() string {
	switch {
	case !d.Valid():
		return "none"
	case d.Image:
		return fmt.Sprintf("image2d<%s>", d.Scalar().CName())
	case d.Ptr:
		return fmt.Sprintf("ptr<%s>", d.Vec(d.Count).CName())
	default:
		return d.CName()
	}
}
