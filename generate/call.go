package generate

import (
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/report"
)

// formal describes one parameter slot of a callee, direct or indirect.
type formal struct {
	name string
	typ  *ast.Type
	mode ast.ParamMode
}

// genCall lowers a subprogram call.  It returns nil when the callee yields
// no value.
func (g *Generator) genCall(e *ast.CallExpr) value.Value {
	if id, ok := e.Callee.(*ast.Ident); ok && id.E.Kind == ast.EntSubprogram {
		return g.genDirectCall(id.E, e)
	}
	return g.genIndirectCall(e)
}

func (g *Generator) genDirectCall(callee *ast.Entity, e *ast.CallExpr) value.Value {
	formals := make([]formal, len(callee.Params))
	for i, p := range callee.Params {
		formals[i] = formal{name: p.Entity.Name, typ: p.Entity.Type, mode: p.Mode}
	}
	args := g.genActuals(formals, e.Args)

	if d := g.links.descFor(callee); d != nil && d.takesLink {
		args = append(args, g.staticLink(callee))
	}

	call := g.block.NewCall(g.subpFunc(callee), args...)
	if callee.Result == nil {
		return nil
	}
	return call
}

// genIndirectCall calls through a routine value: the code and static-link
// pointers are extracted from the pair and the link is always passed as the
// trailing argument, per the uniform calling convention.
func (g *Generator) genIndirectCall(e *ast.CallExpr) value.Value {
	ft := e.Callee.Type()
	if ft.Kind != ast.KindSubprogram {
		report.Fatal("call through a non-subprogram value")
	}
	pair := g.genExpr(e.Callee)
	code := g.block.NewExtractValue(pair, 0)
	link := g.block.NewExtractValue(pair, 1)

	formals := make([]formal, len(ft.Formals))
	paramTys := make([]types.Type, 0, len(ft.Formals)+1)
	for i, f := range ft.Formals {
		formals[i] = formal{typ: f.Type, mode: f.Mode}
		if f.Mode == ast.ByReference {
			paramTys = append(paramTys, g.lay.CreateAccessType(f.Type))
		} else {
			paramTys = append(paramTys, g.irType(f.Type))
		}
	}
	paramTys = append(paramTys, types.I8Ptr)
	var ret types.Type = types.Void
	if ft.Result != nil {
		ret = g.irType(ft.Result)
	}
	fnTy := types.NewFunc(ret, paramTys...)
	fptr := g.block.NewBitCast(code, types.NewPointer(fnTy))

	args := g.genActuals(formals, e.Args)
	args = append(args, link)

	call := g.block.NewCall(fptr, args...)
	if ft.Result == nil {
		return nil
	}
	return call
}

// genActuals resolves named and positional actuals to their formal slots and
// evaluates each with the representation its formal requires.  Positional
// actuals take the leftmost formal not already claimed by a named actual.
func (g *Generator) genActuals(formals []formal, actuals []*ast.Arg) []value.Value {
	byName := make(map[string]int, len(formals))
	for i, f := range formals {
		if f.name != "" {
			byName[f.name] = i
		}
	}

	args := make([]value.Value, len(formals))
	next := 0
	for _, a := range actuals {
		var pos int
		if a.Formal != "" {
			p, ok := byName[a.Formal]
			if !ok {
				report.Fatal("no formal parameter named %q", a.Formal)
			}
			pos = p
		} else {
			// Slots already filled by named actuals are skipped, so a
			// positional actual following a named one still lands on the
			// first open formal.
			for next < len(args) && args[next] != nil {
				next++
			}
			pos = next
			next++
		}
		if pos >= len(formals) {
			report.Fatal("too many actual parameters in call")
		}
		args[pos] = g.genActual(formals[pos], a.Value)
	}
	for i, a := range args {
		if a == nil {
			report.Fatal("no actual for formal parameter %d", i)
		}
	}
	return args
}

// genActual evaluates one actual argument and adapts its representation to
// the formal at the call boundary.
func (g *Generator) genActual(f formal, actual ast.Expr) value.Value {
	at := actual.Type()

	// Unconstrained-array formal taking a constrained actual: wrap the thin
	// address into a bounds+data fat pointer.
	if f.typ.IsFatArray() && at.Kind == ast.KindArray && at.Constrained {
		thin := g.genAddr(actual)
		return g.arr.FatPointer(g.block, thin, at)
	}

	if f.mode == ast.ByReference {
		addr := g.genAddr(actual)
		// Constrained formal taking an unconstrained actual: unwrap the
		// fat pointer to its thin data pointer.
		if !f.typ.IsFatArray() && at.IsFatArray() {
			data := g.arr.Data(g.block, addr, at)
			return g.block.NewBitCast(data, g.lay.CreateAccessType(f.typ))
		}
		want := g.lay.CreateAccessType(f.typ)
		if !types.Equal(addr.Type(), want) {
			if _, ok := addr.Type().(*types.PointerType); ok {
				return g.block.NewBitCast(addr, want)
			}
		}
		return addr
	}

	v := g.genExpr(actual)
	want := g.irType(f.typ)
	if !types.Equal(v.Type(), want) {
		_, vp := v.Type().(*types.PointerType)
		_, wp := want.(*types.PointerType)
		if vp && wp {
			return g.block.NewBitCast(v, want)
		}
	}
	return v
}
