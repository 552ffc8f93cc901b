package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/report"
)

// genStmts lowers a statement sequence.  Statements following a terminator
// (return, exit, goto) open a fresh block for the unreachable tail rather
// than emitting into a closed one.
func (g *Generator) genStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		if g.terminated() {
			g.block = g.appendBlock()
		}
		g.genStmt(s)
	}
}

func (g *Generator) genStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ObjectDecl:
		g.genObjectDecl(s)
	case *ast.AssignStmt:
		addr := g.genAddr(s.Target)
		v := g.genExpr(s.Value)
		g.block.NewStore(v, addr)
	case *ast.CallStmt:
		g.genCall(s.Call)
	case *ast.IfStmt:
		g.genIfStmt(s)
	case *ast.LoopStmt:
		g.genLoop(s)
	case *ast.ExitStmt:
		g.genExit(s)
	case *ast.BlockStmt:
		g.genBlockStmt(s)
	case *ast.FreeStmt:
		g.genFree(s)
	case *ast.GotoStmt:
		g.block.NewBr(g.labelBlock(s.Label))
	case *ast.LabelStmt:
		target := g.labelBlock(s.Label)
		if !g.terminated() {
			g.block.NewBr(target)
		}
		g.block = target
	case *ast.ReturnStmt:
		if s.Value != nil {
			g.block.NewRet(g.genExpr(s.Value))
		} else {
			g.block.NewRet(nil)
		}
	case *ast.SubpBody:
		g.lowerBody(s)
	default:
		report.Unsupported("statement", s)
	}
}

// genObjectDecl allocates local storage, runs the initializer, and
// publishes the variable to nested routines if it is captured.
func (g *Generator) genObjectDecl(s *ast.ObjectDecl) {
	slot := g.entryAlloca(g.irType(s.Object.Type))
	g.env.Bind(s.Object, slot)
	if s.Init != nil {
		g.block.NewStore(g.genExpr(s.Init), slot)
	}
	g.matchStaticLinkVariable(s.Object, slot)
}

// genIfStmt lowers an if statement through the shared conditional lowering;
// the else block is elided when there is no else part.
func (g *Generator) genIfStmt(s *ast.IfStmt) {
	genThen := func() value.Value {
		g.env.PushScope()
		g.genStmts(s.Then)
		g.env.PopScope()
		return nil
	}
	var genElse func() value.Value
	if len(s.Else) > 0 {
		genElse = func() value.Value {
			g.env.PushScope()
			g.genStmts(s.Else)
			g.env.PopScope()
			return nil
		}
	}
	g.lowerIf(s.Cond, genThen, genElse)
}

// genLoop lowers a loop with an optional while condition.  The loop's exit
// block is pushed for exit statements; a conditionless loop leaves only
// through them.
func (g *Generator) genLoop(s *ast.LoopStmt) {
	headBlock := g.appendBlock()
	bodyBlock := g.appendBlock()
	exitBlock := g.appendBlock()

	g.env.PushScope()
	g.env.PushLoop(s.Label, exitBlock)

	g.block.NewBr(headBlock)
	g.block = headBlock
	if s.Cond != nil {
		cv := g.genExpr(s.Cond)
		g.block.NewCondBr(cv, bodyBlock, exitBlock)
	} else {
		g.block.NewBr(bodyBlock)
	}

	g.block = bodyBlock
	g.genStmts(s.Body)
	if !g.terminated() {
		g.block.NewBr(headBlock)
	}

	g.env.PopLoop()
	g.env.PopScope()
	g.block = exitBlock
}

// genExit branches to the exit block of the named (or innermost) loop,
// conditionally when a condition is present.
func (g *Generator) genExit(s *ast.ExitStmt) {
	target := g.env.ExitBlock(s.Label)
	if s.Cond == nil {
		g.block.NewBr(target)
		return
	}
	cv := g.genExpr(s.Cond)
	cont := g.appendBlock()
	g.block.NewCondBr(cv, target, cont)
	g.block = cont
}

// genBlockStmt lowers a declare block.  The stack pointer is saved and
// restored around the block so storage for block-local temporaries of
// dynamic size does not accumulate across repeated entries.
func (g *Generator) genBlockStmt(s *ast.BlockStmt) {
	g.env.PushScope()
	saved := g.block.NewCall(g.stackSaveFn())
	g.genStmts(s.Stmts)
	if !g.terminated() {
		g.block.NewCall(g.stackRestoreFn(), saved)
	}
	g.env.PopScope()
}

// genFree passes the access object's raw pointer to the configured
// deallocation routine and nulls the object so double frees trap on null
// instead of reusing the storage.
func (g *Generator) genFree(s *ast.FreeStmt) {
	t := s.Access.Type()
	if t.Kind != ast.KindPointer {
		report.Fatal("deallocation of a non-access object")
	}
	pt, ok := g.irType(t).(*types.PointerType)
	if !ok {
		report.Unsupported("deallocation through a fat access object", s)
	}
	addr := g.genAddr(s.Access)
	ptr := g.block.NewLoad(pt, addr)
	g.block.NewCall(g.freeFn(), g.block.NewBitCast(ptr, types.I8Ptr))
	g.block.NewStore(constant.NewNull(pt), addr)
}

// labelBlock returns the block of a goto label, creating and binding it on
// first reference from either the goto or the label statement.
func (g *Generator) labelBlock(label *ast.Entity) *ir.Block {
	if b, ok := g.env.BlockFor(label); ok {
		return b
	}
	b := g.appendBlock()
	g.env.BindBlock(label, b)
	return b
}
