package generate

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/report"
)

// genShift lowers shift and rotate operators over a container of bit width
// W.  The IR leaves shifts by W or more undefined, so plain shifts select a
// saturated value for oversized counts and rotates reduce the count mod W.
func (g *Generator) genShift(e *ast.BinaryExpr) value.Value {
	t := e.Type()
	it, ok := g.irType(t).(*types.IntType)
	if !ok {
		report.Fatal("shift over non-integer type %q", t.Name)
	}
	x := g.genExpr(e.L)
	n := g.genExpr(e.R)
	w := constant.NewInt(it, int64(it.BitSize))

	switch e.Op {
	case ast.OpRotl, ast.OpRotr:
		return g.genRotate(e.Op, it, x, n, w)
	}

	naive := g.genPlainShift(e.Op, x, n)
	var saturated value.Value
	switch e.Op {
	case ast.OpShl, ast.OpLshr:
		saturated = constant.NewInt(it, 0)
	case ast.OpAshr:
		// Shifting by W-1 spreads the sign bit: all-ones for negative
		// operands, zero otherwise.
		saturated = g.block.NewAShr(x, constant.NewInt(it, int64(it.BitSize-1)))
	}
	oversized := g.block.NewICmp(enum.IPredUGE, n, w)
	return g.block.NewSelect(oversized, saturated, naive)
}

func (g *Generator) genPlainShift(op ast.BinOp, x, n value.Value) value.Value {
	switch op {
	case ast.OpShl:
		return g.block.NewShl(x, n)
	case ast.OpLshr:
		return g.block.NewLShr(x, n)
	default:
		return g.block.NewAShr(x, n)
	}
}

// genRotate lowers a rotation as two opposed shifts or-ed together.  The
// count reduces mod W; the opposite count is masked with W-1 so a zero
// count keeps the opposite shift in range instead of shifting by W.
func (g *Generator) genRotate(op ast.BinOp, it *types.IntType, x, n, w value.Value) value.Value {
	count := g.block.NewURem(n, w)
	mask := constant.NewInt(it, int64(it.BitSize-1))
	opposite := g.block.NewAnd(g.block.NewSub(w, count), mask)

	var toward, away value.Value
	if op == ast.OpRotl {
		toward = g.block.NewShl(x, count)
		away = g.block.NewLShr(x, opposite)
	} else {
		toward = g.block.NewLShr(x, count)
		away = g.block.NewShl(x, opposite)
	}
	return g.block.NewOr(toward, away)
}
