package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
)

// lowerIf is the shared conditional lowering used by both the statement and
// expression forms.  genElse may be nil, in which case the else block is
// elided and the false edge goes straight to the next block.  When both arms
// return a value the result is a phi over the arm exit blocks; otherwise nil
// is returned.
func (g *Generator) lowerIf(cond ast.Expr, genThen, genElse func() value.Value) value.Value {
	cv := g.genExpr(cond)

	thenBlock := g.appendBlock()
	nextBlock := g.appendBlock()
	elseBlock := nextBlock
	if genElse != nil {
		elseBlock = g.appendBlock()
	}
	g.block.NewCondBr(cv, thenBlock, elseBlock)

	var incoming []*ir.Incoming

	g.block = thenBlock
	tv := genThen()
	if !g.terminated() {
		if tv != nil {
			incoming = append(incoming, ir.NewIncoming(tv, g.block))
		}
		g.block.NewBr(nextBlock)
	}

	var ev value.Value
	if genElse != nil {
		g.block = elseBlock
		ev = genElse()
		if !g.terminated() {
			if ev != nil {
				incoming = append(incoming, ir.NewIncoming(ev, g.block))
			}
			g.block.NewBr(nextBlock)
		}
	}

	g.block = nextBlock
	if tv != nil && ev != nil && len(incoming) > 0 {
		return g.block.NewPhi(incoming...)
	}
	return nil
}

// genCondExpr lowers a conditional expression, merging the arm values with a
// phi selected by the taken predecessor.
func (g *Generator) genCondExpr(e *ast.CondExpr) value.Value {
	return g.lowerIf(e.Cond,
		func() value.Value { return g.genExpr(e.Then) },
		func() value.Value { return g.genExpr(e.Else) },
	)
}
