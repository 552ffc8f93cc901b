package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/report"
)

// declareAll declares the IR function of a body and of every body nested in
// it, so that calls can be lowered before the callee's body is reached.
func (g *Generator) declareAll(b *ast.SubpBody) {
	g.declareSubp(b.Subp)
	var walk func(stmts []ast.Stmt)
	walk = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch s := s.(type) {
			case *ast.SubpBody:
				g.declareAll(s)
			case *ast.IfStmt:
				walk(s.Then)
				walk(s.Else)
			case *ast.LoopStmt:
				walk(s.Body)
			case *ast.BlockStmt:
				walk(s.Stmts)
			}
		}
	}
	walk(b.Body)
}

// declareSubp creates the IR function for a subprogram entity and binds it.
// Routines taking a static link receive one extra trailing opaque pointer.
func (g *Generator) declareSubp(e *ast.Entity) *ir.Func {
	if g.env.Has(e) {
		return g.subpFunc(e)
	}

	var ret types.Type = types.Void
	if e.Result != nil {
		ret = g.irType(e.Result)
	}
	var params []*ir.Param
	for _, p := range e.Params {
		params = append(params, ir.NewParam(p.Entity.Name, g.paramType(p)))
	}
	if d := g.links.descFor(e); d != nil && d.takesLink {
		params = append(params, ir.NewParam("static_link", types.I8Ptr))
	}

	fn := g.mod.NewFunc(e.Name, ret, params...)
	g.env.Bind(e, fn)
	return fn
}

// paramType is the IR type a formal travels as: its value representation
// by value, the representation of its address by reference.  Unconstrained
// arrays are fat pointers either way.
func (g *Generator) paramType(p *ast.Param) types.Type {
	if p.Mode == ast.ByReference {
		return g.lay.CreateAccessType(p.Entity.Type)
	}
	return g.irType(p.Entity.Type)
}

// lowerBody lowers one subprogram body.  Nested bodies reach here through
// their parent's statement list, stacking a fresh current-subprogram record.
func (g *Generator) lowerBody(b *ast.SubpBody) {
	e := b.Subp
	fn := g.subpFunc(e)
	st := &subpState{subp: e, fn: fn, desc: g.links.descFor(e)}
	g.subps = append(g.subps, st)
	prev := g.block
	g.block = fn.NewBlock("entry")
	g.env.PushScope()

	g.setupFrame(st)
	g.bindParams(e, fn)
	g.genStmts(b.Body)

	if !g.terminated() {
		if types.Equal(fn.Sig.RetType, types.Void) {
			g.block.NewRet(nil)
		} else {
			// A value-returning routine falling off its end is a
			// front-end guarantee violation; mark it unreachable.
			g.block.NewUnreachable()
		}
	}

	if err := verifyFunc(fn); err != nil {
		report.Verification(fn.GlobalName, err, fn.LLString())
	}

	g.env.PopScope()
	g.subps = g.subps[:len(g.subps)-1]
	g.block = prev
}

// setupFrame allocates the routine's static-link structure, saves the
// incoming parent pointer, and caches the address of every captured outer
// entity so later uses look like ordinary local bindings.
func (g *Generator) setupFrame(st *subpState) {
	d := st.desc
	if d == nil || (!d.takesLink && len(d.closure) == 0 && !d.hasNested) {
		return
	}
	ty := g.linkStructType(d)
	st.frame = g.block.NewAlloca(ty)
	if !d.takesLink {
		return
	}

	linkParam := st.fn.Params[len(st.fn.Params)-1]
	var parentPtr value.Value = linkParam
	if d.parent >= 0 {
		parentPtr = g.block.NewBitCast(linkParam,
			types.NewPointer(g.linkStructType(g.links.arena[d.parent])))
	}
	f0 := g.block.NewGetElementPtr(ty, st.frame,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
	g.block.NewStore(parentPtr, f0)

	for _, a := range d.accesses {
		ptr := parentPtr
		pd := g.links.arena[d.parent]
		for i := 1; i < a.depth; i++ {
			ptr = g.loadParentFrom(ptr, pd)
			pd = g.links.arena[pd.parent]
		}
		ost := g.linkStructType(pd)
		fieldAddr := g.block.NewGetElementPtr(ost, ptr,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(a.field)))
		g.env.Bind(a.ent, g.block.NewLoad(ost.Fields[a.field], fieldAddr))
	}
}

// bindParams gives each formal its Environment binding: by-reference formals
// already arrive as addresses; by-value formals get a local slot.
func (g *Generator) bindParams(e *ast.Entity, fn *ir.Func) {
	for i, p := range e.Params {
		irp := fn.Params[i]
		if p.Mode == ast.ByReference || p.Entity.Type.IsFatArray() {
			g.env.Bind(p.Entity, irp)
			g.matchStaticLinkVariable(p.Entity, irp)
			continue
		}
		slot := g.block.NewAlloca(g.irType(p.Entity.Type))
		g.block.NewStore(irp, slot)
		g.env.Bind(p.Entity, slot)
		g.matchStaticLinkVariable(p.Entity, slot)
	}
}
