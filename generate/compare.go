package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/report"
)

var signedPreds = map[ast.BinOp]enum.IPred{
	ast.OpEq: enum.IPredEQ,
	ast.OpNe: enum.IPredNE,
	ast.OpLt: enum.IPredSLT,
	ast.OpLe: enum.IPredSLE,
	ast.OpGt: enum.IPredSGT,
	ast.OpGe: enum.IPredSGE,
}

var unsignedPreds = map[ast.BinOp]enum.IPred{
	ast.OpEq: enum.IPredEQ,
	ast.OpNe: enum.IPredNE,
	ast.OpLt: enum.IPredULT,
	ast.OpLe: enum.IPredULE,
	ast.OpGt: enum.IPredUGT,
	ast.OpGe: enum.IPredUGE,
}

var orderedPreds = map[ast.BinOp]enum.FPred{
	ast.OpEq: enum.FPredOEQ,
	ast.OpNe: enum.FPredONE,
	ast.OpLt: enum.FPredOLT,
	ast.OpLe: enum.FPredOLE,
	ast.OpGt: enum.FPredOGT,
	ast.OpGe: enum.FPredOGE,
}

// genCompare lowers a comparison, selecting the predicate variant from the
// operand category.
func (g *Generator) genCompare(e *ast.BinaryExpr) value.Value {
	t := e.L.Type()
	switch {
	case t.Kind == ast.KindFloat:
		l := g.genExpr(e.L)
		r := g.genExpr(e.R)
		return g.block.NewFCmp(orderedPreds[e.Op], l, r)
	case t.IsInteger() || t.Kind == ast.KindPointer:
		l := g.genExpr(e.L)
		r := g.genExpr(e.R)
		if t.IsUnsigned() || t.Kind == ast.KindPointer {
			return g.block.NewICmp(unsignedPreds[e.Op], l, r)
		}
		return g.block.NewICmp(signedPreds[e.Op], l, r)
	case t.Kind == ast.KindRecord:
		// The tree producer expands record comparisons component-wise
		// before they reach the backend.
		report.Fatal("record comparison reached the backend unexpanded")
	case t.Kind == ast.KindArray:
		if e.Op != ast.OpEq && e.Op != ast.OpNe {
			report.Unsupported("ordering comparison of arrays", e)
		}
		return g.genArrayCompare(e)
	}
	report.Unsupported("comparison operand type", e)
	return nil
}

// genArrayCompare lowers array equality as explicit control flow: unequal
// lengths are false without touching element data, zero lengths are true,
// and equal nonzero lengths defer to a raw memory comparison.  The three
// paths merge through a phi node.
func (g *Generator) genArrayCompare(e *ast.BinaryExpr) value.Value {
	lt := e.L.Type()
	rt := e.R.Type()
	lbase := g.genArrayBase(e.L)
	rbase := g.genArrayBase(e.R)

	llen := g.totalLength(lbase, lt)
	rlen := g.totalLength(rbase, rt)

	zeroBlock := g.appendBlock()
	dataBlock := g.appendBlock()
	mergeBlock := g.appendBlock()

	lenEq := g.block.NewICmp(enum.IPredEQ, llen, rlen)
	fromLen := g.block
	g.block.NewCondBr(lenEq, zeroBlock, mergeBlock)

	g.block = zeroBlock
	isZero := g.block.NewICmp(enum.IPredEQ, llen, constant.NewInt(types.I64, 0))
	g.block.NewCondBr(isZero, mergeBlock, dataBlock)

	g.block = dataBlock
	ldata := g.arr.Data(g.block, lbase, lt)
	rdata := g.arr.Data(g.block, rbase, rt)
	bytes := g.block.NewMul(llen, constant.NewInt(types.I64, g.lay.ByteSize(lt.Elem)))
	rc := g.block.NewCall(g.memcmpFn(),
		g.block.NewBitCast(ldata, types.I8Ptr),
		g.block.NewBitCast(rdata, types.I8Ptr),
		bytes)
	dataEq := g.block.NewICmp(enum.IPredEQ, rc, constant.NewInt(types.I32, 0))
	fromData := g.block
	g.block.NewBr(mergeBlock)

	g.block = mergeBlock
	eq := g.block.NewPhi(
		ir.NewIncoming(constant.NewBool(false), fromLen),
		ir.NewIncoming(constant.NewBool(true), zeroBlock),
		ir.NewIncoming(dataEq, fromData),
	)
	if e.Op == ast.OpNe {
		return g.block.NewXor(eq, constant.NewBool(true))
	}
	return eq
}

// totalLength is the element count of an array across all dimensions.
func (g *Generator) totalLength(base value.Value, t *ast.Type) value.Value {
	n := g.arr.Length(g.block, base, t, 0)
	for dim := 1; dim < len(t.Dims); dim++ {
		n = g.block.NewMul(n, g.arr.Length(g.block, base, t, dim))
	}
	return n
}
