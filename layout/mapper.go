package layout

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/report"
)

// Mapper is the reference Service implementation.  Records are laid out
// packed: a leading chunk of statically placed fields, then one chunk per
// field once a dynamically sized field has been seen.
type Mapper struct {
	wordSize int

	// typeDefs collects named struct definitions for emission.
	typeDefs map[string]types.Type

	// recs memoizes record struct types by source type identity.
	recs map[*ast.Type]types.Type
}

// New returns a Mapper for the given pointer width in bits.
func New(wordSize int) *Mapper {
	return &Mapper{
		wordSize: wordSize,
		typeDefs: make(map[string]types.Type),
		recs:     make(map[*ast.Type]types.Type),
	}
}

func (m *Mapper) AddressType() types.Type {
	return types.I8Ptr
}

func (m *Mapper) TypeDefs() map[string]types.Type {
	return m.typeDefs
}

func (m *Mapper) CreateType(t *ast.Type) types.Type {
	switch t.Kind {
	case ast.KindSigned, ast.KindUnsigned, ast.KindModular:
		return types.NewInt(uint64(t.Bits))
	case ast.KindBoolean:
		return types.I1
	case ast.KindFloat:
		switch t.Bits {
		case 32:
			return types.Float
		case 64:
			return types.Double
		}
		report.Fatal("no IR representation for a %d-bit floating-point type", t.Bits)
	case ast.KindPointer:
		return m.CreateAccessType(t.Designated)
	case ast.KindArray:
		if !t.Constrained {
			return m.fatPointerType(t)
		}
		return m.DataType(t)
	case ast.KindRecord:
		return m.recordType(t)
	case ast.KindSubprogram:
		// Routine values have the uniform two-pointer shape regardless of
		// the routine's profile.
		return types.NewStruct(types.I8Ptr, types.I8Ptr)
	}
	report.Fatal("no IR representation for type %q (kind %d)", t.Name, t.Kind)
	return nil
}

func (m *Mapper) CreateAccessType(t *ast.Type) types.Type {
	if t.IsFatArray() {
		return m.fatPointerType(t)
	}
	return types.NewPointer(m.CreateType(t))
}

func (m *Mapper) DataType(t *ast.Type) types.Type {
	elem := m.CreateType(t.Elem)
	for i := len(t.Dims) - 1; i >= 0; i-- {
		var n uint64
		if t.Constrained {
			d := t.Dims[i]
			if d.High >= d.Low {
				n = uint64(d.High - d.Low + 1)
			}
		}
		elem = types.NewArray(n, elem)
	}
	return elem
}

func (m *Mapper) BoundsType(t *ast.Type) *types.StructType {
	fields := make([]types.Type, 2*len(t.Dims))
	for i := range fields {
		fields[i] = types.I64
	}
	return types.NewStruct(fields...)
}

// fatPointerType is the bounds+data representation of an unconstrained
// array: {data *[0 x T], bounds *{low, high, ...}}.
func (m *Mapper) fatPointerType(t *ast.Type) *types.StructType {
	return types.NewStruct(
		types.NewPointer(m.DataType(t)),
		types.NewPointer(m.BoundsType(t)),
	)
}

// recordType maps a record to the struct of its leading static chunk.
// Trailing chunks are addressed by runtime offset and have no presence in
// the record's IR type.
func (m *Mapper) recordType(t *ast.Type) types.Type {
	if st, ok := m.recs[t]; ok {
		return st
	}
	chunks := m.RecordLayout(t)
	var fields []types.Type
	if len(chunks) > 0 && chunks[0].Offset == 0 {
		for _, slot := range chunks[0].Fields {
			fields = append(fields, m.CreateType(slot.Field.Type))
		}
	}
	st := types.NewStruct(fields...)
	if t.Name != "" {
		st.SetName(t.Name)
		m.typeDefs[t.Name] = st
	}
	m.recs[t] = st
	return st
}

func (m *Mapper) RecordLayout(t *ast.Type) []Chunk {
	if t.Kind != ast.KindRecord {
		report.Fatal("record layout requested for non-record type %q", t.Name)
	}
	var chunks []Chunk
	lead := Chunk{Offset: 0}
	off := int64(0)
	dynamic := false
	for _, f := range t.Fields {
		if !dynamic && f.LenField == nil && !f.Type.IsDynamic() {
			lead.Fields = append(lead.Fields, FieldSlot{
				Field:  f,
				Offset: off,
				Index:  len(lead.Fields),
			})
			off += m.ByteSize(f.Type)
			continue
		}
		if !dynamic {
			chunks = append(chunks, lead)
			dynamic = true
		}
		// one chunk per field beyond the static prefix
		chunks = append(chunks, Chunk{
			Offset: -1,
			Fields: []FieldSlot{{Field: f, Offset: -1, Index: 0}},
		})
	}
	if !dynamic {
		chunks = append(chunks, lead)
	}
	return chunks
}

func (m *Mapper) ChunkOffset(b *ir.Block, base value.Value, t *ast.Type, chunk int) value.Value {
	chunks := m.RecordLayout(t)
	if chunks[chunk].Offset >= 0 {
		return constant.NewInt(types.I64, chunks[chunk].Offset)
	}

	// Walk the accumulated sizes of everything before the requested chunk.
	var off value.Value = constant.NewInt(types.I64, m.chunkStaticSize(chunks[0]))
	for j := 1; j < chunk; j++ {
		f := chunks[j].Fields[0].Field
		var size value.Value
		switch {
		case f.LenField != nil:
			n := m.loadDiscriminant(b, base, chunks, f.LenField)
			size = b.NewMul(n, constant.NewInt(types.I64, m.ByteSize(f.Type.Elem)))
		case !f.Type.IsDynamic():
			size = constant.NewInt(types.I64, m.ByteSize(f.Type))
		default:
			report.Fatal("field %q has runtime size but no length discriminant", f.Name)
		}
		off = b.NewAdd(off, size)
	}
	return off
}

// loadDiscriminant reads the runtime value of a length discriminant field,
// widened to an address-width count.
func (m *Mapper) loadDiscriminant(b *ir.Block, base value.Value, chunks []Chunk, disc *ast.Field) value.Value {
	for _, slot := range chunks[0].Fields {
		if slot.Field != disc {
			continue
		}
		addr := b.NewGetElementPtr(types.I8, base, constant.NewInt(types.I64, slot.Offset))
		intTy := m.CreateType(disc.Type).(*types.IntType)
		ptr := b.NewBitCast(addr, types.NewPointer(intTy))
		n := b.NewLoad(intTy, ptr)
		if intTy.BitSize >= 64 {
			return n
		}
		if disc.Type.IsUnsigned() {
			return b.NewZExt(n, types.I64)
		}
		return b.NewSExt(n, types.I64)
	}
	report.Fatal("length discriminant %q is not in the static part of the record", disc.Name)
	return nil
}

func (m *Mapper) chunkStaticSize(c Chunk) int64 {
	var size int64
	for _, slot := range c.Fields {
		size += m.ByteSize(slot.Field.Type)
	}
	return size
}

func (m *Mapper) ByteSize(t *ast.Type) int64 {
	switch t.Kind {
	case ast.KindSigned, ast.KindUnsigned, ast.KindModular:
		return int64((t.Bits + 7) / 8)
	case ast.KindBoolean:
		return 1
	case ast.KindFloat:
		return int64(t.Bits / 8)
	case ast.KindPointer:
		if t.Designated.IsFatArray() {
			return int64(2 * m.wordSize / 8)
		}
		return int64(m.wordSize / 8)
	case ast.KindArray:
		if !t.Constrained {
			// fat pointer value
			return int64(2 * m.wordSize / 8)
		}
		size := m.ByteSize(t.Elem)
		for _, d := range t.Dims {
			var n int64
			if d.High >= d.Low {
				n = d.High - d.Low + 1
			}
			size *= n
		}
		return size
	case ast.KindRecord:
		if t.IsDynamic() {
			report.Fatal("static size requested for dynamically sized record %q", t.Name)
		}
		var size int64
		for _, f := range t.Fields {
			size += m.ByteSize(f.Type)
		}
		return size
	case ast.KindSubprogram:
		return int64(2 * m.wordSize / 8)
	}
	report.Fatal("no size for type %q (kind %d)", t.Name, t.Kind)
	return 0
}
