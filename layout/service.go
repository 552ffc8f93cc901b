// Package layout computes IR representations for source types: scalar and
// composite type mapping, record field placement in layout chunks, and the
// fat-pointer descriptor model for unconstrained arrays.  The lowering core
// consumes it through the Service and Arrays interfaces so that a different
// layout strategy can be substituted without touching the core.
package layout

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
)

// Bound selects which bound of an array dimension to fetch.
type Bound int

const (
	Low Bound = iota
	High
)

// FieldSlot places one record field inside its layout chunk.
type FieldSlot struct {
	Field *ast.Field

	// Offset is the byte offset of the field from the start of the record,
	// or -1 when it is only discoverable at runtime.
	Offset int64

	// Index is the structural index of the field within its chunk.
	Index int
}

// Chunk is one physical sub-struct of a record layout.  Records with
// dynamically sized components are laid out as a fixed leading chunk
// followed by one chunk per dynamic field.
type Chunk struct {
	// Offset is the static byte offset of the chunk, or -1 when the chunk
	// is found only at runtime by walking the sizes of preceding fields.
	Offset int64

	Fields []FieldSlot
}

// Service is the type-layout boundary consumed by the lowering core.
type Service interface {
	// AddressType is the opaque address type (i8*).
	AddressType() types.Type

	// CreateType maps a source type to its IR value representation.
	// Unconstrained arrays map to their fat-pointer struct and subprogram
	// types to the uniform {code, link} routine-value struct.
	CreateType(t *ast.Type) types.Type

	// CreateAccessType maps a source type to the representation of an
	// access (pointer) to it: the fat-pointer struct for unconstrained
	// arrays, a thin typed pointer otherwise.
	CreateAccessType(t *ast.Type) types.Type

	// DataType is the IR type of an array's element storage: [n x T] for
	// constrained arrays, [0 x T] for unconstrained ones.
	DataType(t *ast.Type) types.Type

	// BoundsType is the IR struct holding an unconstrained array's runtime
	// bounds, one {low, high} pair of fields per dimension.
	BoundsType(t *ast.Type) *types.StructType

	// RecordLayout returns the ordered layout chunks of a record type.
	RecordLayout(t *ast.Type) []Chunk

	// ChunkOffset materializes the byte offset of the given chunk,
	// emitting loads of discriminants as needed for chunks that follow
	// dynamically sized fields.  base is the record's address as i8*.
	ChunkOffset(b *ir.Block, base value.Value, t *ast.Type, chunk int) value.Value

	// ByteSize is the static size of t in bytes.  It is a fatal condition
	// to ask for the size of a dynamically sized type.
	ByteSize(t *ast.Type) int64

	// TypeDefs returns the named type definitions created so far, keyed by
	// name, for emission into the module.
	TypeDefs() map[string]types.Type
}

// Arrays is the array-descriptor boundary consumed by the lowering core.
type Arrays interface {
	// Data returns the address of the array's element storage.  For a
	// constrained array v is already that address; for an unconstrained
	// array v is a fat pointer and the data pointer is extracted.
	Data(b *ir.Block, v value.Value, t *ast.Type) value.Value

	// BoundValue returns the requested bound of the given dimension, as an
	// address-width integer.
	BoundValue(b *ir.Block, v value.Value, t *ast.Type, which Bound, dim int) value.Value

	// Length returns the element count of the given dimension, clamped at
	// zero for null ranges.
	Length(b *ir.Block, v value.Value, t *ast.Type, dim int) value.Value

	// FatPointer wraps the address of a constrained array of type t into a
	// bounds+data fat pointer.
	FatPointer(b *ir.Block, thin value.Value, t *ast.Type) value.Value
}
