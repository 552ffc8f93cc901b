package generate

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/layout"
	"github.com/toabey/gnat-llvm/report"
)

// genAddr computes the address of the storage a tree node denotes.  For
// unconstrained arrays the fat pointer stands in for the address.
func (g *Generator) genAddr(e ast.Expr) value.Value {
	switch e := e.(type) {
	case *ast.Ident:
		if e.E.Kind == ast.EntSubprogram || e.E.Kind == ast.EntLiteral {
			report.Fatal("entity %q does not denote storage", e.E.Name)
		}
		return g.env.Lookup(e.E)
	case *ast.Deref:
		return g.genExpr(e.X)
	case *ast.FieldSel:
		return g.genFieldAddr(e)
	case *ast.IndexExpr:
		return g.genIndexAddr(e)
	case *ast.SliceExpr:
		return g.genSliceAddr(e)
	default:
		// Aggregates and other value-producing nodes used as lvalues are
		// materialized into anonymous frame storage.  The slot is never
		// reclaimed before the frame exits; frames are bounded, so the
		// leak is accepted rather than fixed.
		v := g.genExpr(e)
		slot := g.entryAlloca(v.Type())
		g.block.NewStore(v, slot)
		return slot
	}
}

// genFieldAddr addresses a record field through its layout chunk: directly
// by structural index in the static leading chunk, or by re-basing through
// the accumulated sizes of preceding fields for trailing chunks.
func (g *Generator) genFieldAddr(e *ast.FieldSel) value.Value {
	recType := e.Prefix.Type()
	if recType.Kind != ast.KindRecord {
		report.Fatal("field %q selected from non-record prefix", e.Field.Name)
	}
	base := g.genAddr(e.Prefix)
	chunks := g.lay.RecordLayout(recType)
	for ci, c := range chunks {
		for _, slot := range c.Fields {
			if slot.Field != e.Field {
				continue
			}
			if ci == 0 {
				recTy := g.irType(recType)
				return g.block.NewGetElementPtr(recTy, base,
					constant.NewInt(types.I32, 0),
					constant.NewInt(types.I32, int64(slot.Index)))
			}
			raw := g.block.NewBitCast(base, types.I8Ptr)
			off := g.lay.ChunkOffset(g.block, raw, recType, ci)
			cbase := g.block.NewGetElementPtr(types.I8, raw, off)
			chunkTy := g.chunkType(c)
			typed := g.block.NewBitCast(cbase, types.NewPointer(chunkTy))
			return g.block.NewGetElementPtr(chunkTy, typed,
				constant.NewInt(types.I32, 0),
				constant.NewInt(types.I32, int64(slot.Index)))
		}
	}
	report.Fatal("field %q is not part of record type %q", e.Field.Name, recType.Name)
	return nil
}

// chunkType is the IR struct of one trailing layout chunk.  Dynamic array
// fields are stored inline, so they appear as their element storage rather
// than as fat pointers.
func (g *Generator) chunkType(c layout.Chunk) *types.StructType {
	var fields []types.Type
	for _, slot := range c.Fields {
		t := slot.Field.Type
		if slot.Field.LenField != nil || t.IsFatArray() {
			fields = append(fields, g.lay.DataType(t))
		} else {
			fields = append(fields, g.irType(t))
		}
	}
	return types.NewStruct(fields...)
}

// genArrayBase evaluates an array-typed prefix to the value its descriptor
// operations expect: the storage address for a constrained array, the fat
// pointer for an unconstrained one.
func (g *Generator) genArrayBase(prefix ast.Expr) value.Value {
	if prefix.Type().Constrained {
		return g.genAddr(prefix)
	}
	return g.genExpr(prefix)
}

// genIndexAddr addresses one array element: each index is shifted to a
// zero-based offset by subtracting the dimension's lower bound, then a
// single multi-dimensional element GEP is issued with a leading zero index.
func (g *Generator) genIndexAddr(e *ast.IndexExpr) value.Value {
	t := e.Prefix.Type()
	if t.Kind != ast.KindArray {
		report.Fatal("indexed component over non-array prefix")
	}
	base := g.genArrayBase(e.Prefix)
	data := g.arr.Data(g.block, base, t)

	indices := []value.Value{constant.NewInt(types.I64, 0)}
	for dim, ix := range e.Indexes {
		iv := g.widenIndex(g.genExpr(ix), ix.Type())
		low := g.arr.BoundValue(g.block, base, t, layout.Low, dim)
		indices = append(indices, g.block.NewSub(iv, low))
	}
	return g.block.NewGetElementPtr(g.lay.DataType(t), data, indices...)
}

// genSliceAddr re-bases an array onto a slice: advance the data pointer by
// the delta between the slice's and the prefix's low bounds, then
// reinterpret as the slice's own array type.
func (g *Generator) genSliceAddr(e *ast.SliceExpr) value.Value {
	st := e.Type()
	pt := e.Prefix.Type()
	if st.Kind != ast.KindArray || !st.Constrained {
		report.Fatal("slice must have a constrained array type")
	}
	base := g.genArrayBase(e.Prefix)
	data := g.arr.Data(g.block, base, pt)

	low := g.arr.BoundValue(g.block, base, pt, layout.Low, 0)
	delta := g.block.NewSub(constant.NewInt(types.I64, st.Dims[0].Low), low)
	first := g.block.NewGetElementPtr(g.lay.DataType(pt), data,
		constant.NewInt(types.I64, 0), delta)
	return g.block.NewBitCast(first, types.NewPointer(g.lay.DataType(st)))
}

// widenIndex brings an index value to address width for GEP arithmetic.
func (g *Generator) widenIndex(v value.Value, t *ast.Type) value.Value {
	it, ok := v.Type().(*types.IntType)
	if !ok {
		report.Fatal("array index is not an integer")
	}
	if it.BitSize >= 64 {
		return v
	}
	if t.IsUnsigned() {
		return g.block.NewZExt(v, types.I64)
	}
	return g.block.NewSExt(v, types.I64)
}
