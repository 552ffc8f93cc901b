package layout

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/toabey/gnat-llvm/ast"
)

func i32() *ast.Type  { return &ast.Type{Kind: ast.KindSigned, Name: "integer", Bits: 32} }
func boolT() *ast.Type { return &ast.Type{Kind: ast.KindBoolean, Name: "boolean", Bits: 1} }

func constrainedArray(elem *ast.Type, low, high int64) *ast.Type {
	return &ast.Type{
		Kind:        ast.KindArray,
		Elem:        elem,
		Dims:        []ast.Dim{{Low: low, High: high}},
		Constrained: true,
	}
}

func unconstrainedArray(elem *ast.Type) *ast.Type {
	return &ast.Type{
		Kind: ast.KindArray,
		Elem: elem,
		Dims: []ast.Dim{{}},
	}
}

func testBlock() *ir.Block {
	fn := ir.NewModule().NewFunc("scratch", types.Void)
	return fn.NewBlock("entry")
}

func TestCreateTypeScalars(t *testing.T) {
	m := New(64)

	cases := []struct {
		src  *ast.Type
		want types.Type
	}{
		{i32(), types.I32},
		{boolT(), types.I1},
		{&ast.Type{Kind: ast.KindModular, Bits: 8, Modulus: 10}, types.I8},
		{&ast.Type{Kind: ast.KindFloat, Bits: 32}, types.Float},
		{&ast.Type{Kind: ast.KindFloat, Bits: 64}, types.Double},
	}
	for _, c := range cases {
		got := m.CreateType(c.src)
		if !types.Equal(got, c.want) {
			t.Errorf("CreateType(kind %d, %d bits) = %v, want %v", c.src.Kind, c.src.Bits, got, c.want)
		}
	}
}

func TestCreateTypeFatPointer(t *testing.T) {
	m := New(64)
	got := m.CreateType(unconstrainedArray(i32()))
	want := types.NewStruct(
		types.NewPointer(types.NewArray(0, types.I32)),
		types.NewPointer(types.NewStruct(types.I64, types.I64)),
	)
	if !types.Equal(got, want) {
		t.Errorf("unconstrained array lowered to %v, want %v", got, want)
	}
}

func TestDataTypeConstrained(t *testing.T) {
	m := New(64)
	got := m.DataType(constrainedArray(i32(), 1, 3))
	if !types.Equal(got, types.NewArray(3, types.I32)) {
		t.Errorf("DataType = %v, want [3 x i32]", got)
	}
}

func TestAccessTypeToFatArrayIsFatPointer(t *testing.T) {
	m := New(64)
	u := unconstrainedArray(i32())
	if !types.Equal(m.CreateAccessType(u), m.CreateType(u)) {
		t.Error("access to an unconstrained array must be the fat pointer itself")
	}
}

func TestByteSize(t *testing.T) {
	m := New(64)

	rec := &ast.Type{Kind: ast.KindRecord, Fields: []*ast.Field{
		{Name: "a", Type: i32()},
		{Name: "b", Type: boolT()},
	}}
	cases := []struct {
		src  *ast.Type
		want int64
	}{
		{i32(), 4},
		{boolT(), 1},
		{constrainedArray(i32(), 1, 3), 12},
		{constrainedArray(i32(), 3, 1), 0}, // null range
		{unconstrainedArray(i32()), 16},    // fat pointer value
		{rec, 5},                           // packed
	}
	for _, c := range cases {
		if got := m.ByteSize(c.src); got != c.want {
			t.Errorf("ByteSize(kind %d) = %d, want %d", c.src.Kind, got, c.want)
		}
	}
}

func TestRecordLayoutStatic(t *testing.T) {
	m := New(64)
	rec := &ast.Type{Kind: ast.KindRecord, Name: "point", Fields: []*ast.Field{
		{Name: "x", Type: i32()},
		{Name: "y", Type: i32()},
	}}
	chunks := m.RecordLayout(rec)
	if len(chunks) != 1 {
		t.Fatalf("static record has %d chunks, want 1", len(chunks))
	}
	if chunks[0].Offset != 0 {
		t.Errorf("leading chunk offset = %d, want 0", chunks[0].Offset)
	}
	if len(chunks[0].Fields) != 2 {
		t.Fatalf("leading chunk has %d fields, want 2", len(chunks[0].Fields))
	}
	if chunks[0].Fields[1].Offset != 4 {
		t.Errorf("second field offset = %d, want 4", chunks[0].Fields[1].Offset)
	}
}

func TestRecordLayoutDynamicTail(t *testing.T) {
	m := New(64)
	n := &ast.Field{Name: "n", Type: i32()}
	data := &ast.Field{
		Name:     "data",
		Type:     unconstrainedArray(&ast.Type{Kind: ast.KindSigned, Bits: 8}),
		LenField: n,
	}
	tail := &ast.Field{Name: "tag", Type: boolT()}
	rec := &ast.Type{Kind: ast.KindRecord, Name: "buffer", Fields: []*ast.Field{n, data, tail}}

	chunks := m.RecordLayout(rec)
	if len(chunks) != 3 {
		t.Fatalf("record has %d chunks, want 3", len(chunks))
	}
	if chunks[1].Offset != -1 || chunks[2].Offset != -1 {
		t.Error("trailing chunks must have runtime offsets")
	}

	// Everything past the first dynamic field is one chunk per field, even
	// when statically sized.
	if chunks[2].Fields[0].Field != tail {
		t.Error("statically sized field after a dynamic one must start its own chunk")
	}
}

func TestChunkOffsetStaticPrefix(t *testing.T) {
	m := New(64)
	n := &ast.Field{Name: "n", Type: i32()}
	data := &ast.Field{
		Name:     "data",
		Type:     unconstrainedArray(&ast.Type{Kind: ast.KindSigned, Bits: 8}),
		LenField: n,
	}
	rec := &ast.Type{Kind: ast.KindRecord, Name: "buffer2", Fields: []*ast.Field{n, data}}

	b := testBlock()
	base := b.NewAlloca(types.I8)
	off := m.ChunkOffset(b, base, rec, 1)
	ci, ok := off.(*constant.Int)
	if !ok {
		t.Fatalf("offset of the first trailing chunk is %T, want a constant", off)
	}
	if ci.X.Int64() != 4 {
		t.Errorf("first trailing chunk offset = %d, want 4", ci.X.Int64())
	}
}

func TestChunkOffsetAfterDynamicField(t *testing.T) {
	m := New(64)
	n := &ast.Field{Name: "n", Type: i32()}
	data := &ast.Field{
		Name:     "data",
		Type:     unconstrainedArray(&ast.Type{Kind: ast.KindSigned, Bits: 8}),
		LenField: n,
	}
	tail := &ast.Field{Name: "tag", Type: boolT()}
	rec := &ast.Type{Kind: ast.KindRecord, Name: "buffer3", Fields: []*ast.Field{n, data, tail}}

	b := testBlock()
	base := b.NewBitCast(b.NewAlloca(types.I64), types.I8Ptr)
	off := m.ChunkOffset(b, base, rec, 2)
	if _, ok := off.(*constant.Int); ok {
		t.Fatal("offset past a runtime-sized field must be computed, not constant")
	}
	// The discriminant load must have reached the block.
	foundLoad := false
	for _, inst := range b.Insts {
		if _, ok := inst.(*ir.InstLoad); ok {
			foundLoad = true
		}
	}
	if !foundLoad {
		t.Error("computed chunk offset never loaded the length discriminant")
	}
}

func TestRecordTypeIsLeadingChunkOnly(t *testing.T) {
	m := New(64)
	n := &ast.Field{Name: "n", Type: i32()}
	data := &ast.Field{
		Name:     "data",
		Type:     unconstrainedArray(&ast.Type{Kind: ast.KindSigned, Bits: 8}),
		LenField: n,
	}
	rec := &ast.Type{Kind: ast.KindRecord, Name: "buffer4", Fields: []*ast.Field{n, data}}

	st, ok := m.CreateType(rec).(*types.StructType)
	if !ok {
		t.Fatal("record did not lower to a struct")
	}
	if len(st.Fields) != 1 {
		t.Errorf("record struct has %d fields, want only the static prefix (1)", len(st.Fields))
	}
	if _, ok := m.TypeDefs()["buffer4"]; !ok {
		t.Error("named record type was not registered for emission")
	}
}
