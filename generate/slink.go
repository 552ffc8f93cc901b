package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/report"
)

// access records one captured outer entity read or written by a nested
// routine: the entity, how many parent hops away its owner is, and the field
// slot of its address inside the owner's static-link structure.
type access struct {
	ent   *ast.Entity
	depth int
	field int
}

// linkDesc is the static-link descriptor of one routine.  Descriptors form a
// tree mirroring lexical nesting, held in an arena and linked by index.
type linkDesc struct {
	id   int
	subp *ast.Entity

	// parent is the arena index of the lexically enclosing routine's
	// descriptor, or -1 at library level.
	parent int

	// closure lists this routine's own entities captured by descendants;
	// slots maps each to its field index in the static-link structure
	// (field 0 is the parent pointer, so slots start at 1).
	closure []*ast.Entity
	slots   map[*ast.Entity]int

	// accesses lists the outer entities this routine reads or writes.
	accesses []access

	// takesLink marks routines that receive a trailing static-link
	// parameter.  Every nested routine takes one so that sibling and
	// uncle calls always have a chain to walk.
	takesLink bool

	// hasNested marks routines containing nested routines.  Such a routine
	// needs a frame even with an empty closure: its children's links point
	// at it.
	hasNested bool

	structTy *types.StructType
}

type linkManager struct {
	arena []*linkDesc
	index map[*ast.Entity]int
}

func newLinkManager() *linkManager {
	return &linkManager{index: make(map[*ast.Entity]int)}
}

// descFor returns the descriptor of the given routine, or nil if the routine
// was never seen by the closure computation pass.
func (lm *linkManager) descFor(e *ast.Entity) *linkDesc {
	if i, ok := lm.index[e]; ok {
		return lm.arena[i]
	}
	return nil
}

func (lm *linkManager) ensure(e *ast.Entity) *linkDesc {
	if d := lm.descFor(e); d != nil {
		return d
	}
	parent := -1
	if e.Scope != nil {
		pd := lm.ensure(e.Scope)
		pd.hasNested = true
		parent = pd.id
	}
	d := &linkDesc{
		id:        len(lm.arena),
		subp:      e,
		parent:    parent,
		slots:     make(map[*ast.Entity]int),
		takesLink: e.Scope != nil,
	}
	lm.arena = append(lm.arena, d)
	lm.index[e] = d.id
	return d
}

// -----------------------------------------------------------------------------
// Closure computation pass.

// compute walks a subprogram body and the bodies nested inside it, recording
// in the descriptors every up-level entity reference.
func (lm *linkManager) compute(b *ast.SubpBody) {
	lm.ensure(b.Subp)
	lm.walkStmts(b.Subp, b.Body)
}

func (lm *linkManager) walkStmts(cur *ast.Entity, stmts []ast.Stmt) {
	for _, s := range stmts {
		lm.walkStmt(cur, s)
	}
}

func (lm *linkManager) walkStmt(cur *ast.Entity, s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ObjectDecl:
		lm.walkExpr(cur, s.Init)
	case *ast.AssignStmt:
		lm.walkExpr(cur, s.Target)
		lm.walkExpr(cur, s.Value)
	case *ast.CallStmt:
		lm.walkExpr(cur, s.Call)
	case *ast.IfStmt:
		lm.walkExpr(cur, s.Cond)
		lm.walkStmts(cur, s.Then)
		lm.walkStmts(cur, s.Else)
	case *ast.LoopStmt:
		lm.walkExpr(cur, s.Cond)
		lm.walkStmts(cur, s.Body)
	case *ast.ExitStmt:
		lm.walkExpr(cur, s.Cond)
	case *ast.BlockStmt:
		lm.walkStmts(cur, s.Stmts)
	case *ast.FreeStmt:
		lm.walkExpr(cur, s.Access)
	case *ast.ReturnStmt:
		lm.walkExpr(cur, s.Value)
	case *ast.SubpBody:
		lm.compute(s)
	case *ast.GotoStmt, *ast.LabelStmt, nil:
		// no expressions
	}
}

func (lm *linkManager) walkExpr(cur *ast.Entity, e ast.Expr) {
	switch e := e.(type) {
	case nil:
	case *ast.Ident:
		lm.reference(cur, e.E)
	case *ast.BinaryExpr:
		lm.walkExpr(cur, e.L)
		lm.walkExpr(cur, e.R)
	case *ast.UnaryExpr:
		lm.walkExpr(cur, e.X)
	case *ast.Convert:
		lm.walkExpr(cur, e.X)
	case *ast.Aggregate:
		for _, c := range e.Comps {
			lm.walkExpr(cur, c)
		}
	case *ast.CondExpr:
		lm.walkExpr(cur, e.Cond)
		lm.walkExpr(cur, e.Then)
		lm.walkExpr(cur, e.Else)
	case *ast.CallExpr:
		lm.walkExpr(cur, e.Callee)
		for _, a := range e.Args {
			lm.walkExpr(cur, a.Value)
		}
	case *ast.Deref:
		lm.walkExpr(cur, e.X)
	case *ast.FieldSel:
		lm.walkExpr(cur, e.Prefix)
	case *ast.IndexExpr:
		lm.walkExpr(cur, e.Prefix)
		for _, ix := range e.Indexes {
			lm.walkExpr(cur, ix)
		}
	case *ast.SliceExpr:
		lm.walkExpr(cur, e.Prefix)
	}
}

// reference records an up-level reference to ent from inside cur.
func (lm *linkManager) reference(cur *ast.Entity, ent *ast.Entity) {
	if ent.Kind != ast.EntVariable && ent.Kind != ast.EntParameter {
		return
	}
	owner := ent.Scope
	if owner == nil || owner == cur {
		return
	}
	isAncestor := false
	depth := 0
	for s := cur; s != nil; s = s.Scope {
		if s == owner {
			isAncestor = true
			break
		}
		depth++
	}
	if !isAncestor {
		return
	}

	od := lm.ensure(owner)
	slot, ok := od.slots[ent]
	if !ok {
		od.closure = append(od.closure, ent)
		slot = len(od.closure) // field 0 is the parent pointer
		od.slots[ent] = slot
	}

	cd := lm.ensure(cur)
	for _, a := range cd.accesses {
		if a.ent == ent {
			return
		}
	}
	cd.accesses = append(cd.accesses, access{ent: ent, depth: depth, field: slot})
}

// -----------------------------------------------------------------------------
// Static-link structure types.

// linkStructType builds (once) the IR struct mirroring a routine's closure:
// field 0 points at the parent routine's structure, fields 1..n hold the
// addresses of the captured entities.
func (g *Generator) linkStructType(d *linkDesc) *types.StructType {
	if d.structTy != nil {
		return d.structTy
	}
	var parentField types.Type = types.I8Ptr
	if d.parent >= 0 {
		parentField = types.NewPointer(g.linkStructType(g.links.arena[d.parent]))
	}
	fields := []types.Type{parentField}
	for _, ent := range d.closure {
		fields = append(fields, g.bindingType(ent))
	}
	st := types.NewStruct(fields...)
	name := d.subp.Name + ".slink"
	st.SetName(name)
	g.typeDefs[name] = st
	d.structTy = st
	return st
}

// bindingType is the IR type of an entity's Environment binding: the address
// of its storage, except for unconstrained arrays whose fat pointer is both
// value and address.
func (g *Generator) bindingType(ent *ast.Entity) types.Type {
	if ent.Type.IsFatArray() {
		return g.irType(ent.Type)
	}
	return types.NewPointer(g.irType(ent.Type))
}

// matchStaticLinkVariable publishes a just-allocated local to descendants by
// storing its address into the matching field of the current static-link
// structure.
func (g *Generator) matchStaticLinkVariable(e *ast.Entity, addr value.Value) {
	st := g.cur()
	if st.desc == nil || st.frame == nil {
		return
	}
	slot, ok := st.desc.slots[e]
	if !ok {
		return
	}
	fieldAddr := g.block.NewGetElementPtr(st.desc.structTy, st.frame,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(slot)))
	g.block.NewStore(addr, fieldAddr)
}

// loadParentFrom reads the parent pointer out of a static-link structure.
func (g *Generator) loadParentFrom(frame value.Value, d *linkDesc) value.Value {
	st := g.linkStructType(d)
	addr := g.block.NewGetElementPtr(st, frame,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
	return g.block.NewLoad(st.Fields[0], addr)
}

// staticLink computes the static-link argument for calling the given
// routine: the pointer to the callee's parent frame, found on the caller's
// own chain.  Routines needing no link get a null opaque pointer.  The walk
// always terminates: the language guarantees the callee's lexical parent is
// the caller or one of its ancestors.
func (g *Generator) staticLink(callee *ast.Entity) value.Value {
	cd := g.links.descFor(callee)
	if cd == nil || !cd.takesLink {
		return constant.NewNull(types.I8Ptr)
	}
	target := cd.parent

	st := g.cur()
	d := st.desc
	if d == nil || st.frame == nil {
		report.Fatal("caller of %q has no static-link chain", callee.Name)
	}
	if d.id == target {
		return g.block.NewBitCast(st.frame, types.I8Ptr)
	}
	if d.parent < 0 {
		report.Fatal("static-link chain does not reach the parent of %q", callee.Name)
	}
	ptr := g.loadParentFrom(st.frame, d)
	pd := g.links.arena[d.parent]
	for {
		if pd.id == target {
			return g.block.NewBitCast(ptr, types.I8Ptr)
		}
		if pd.parent < 0 {
			report.Fatal("static-link chain does not reach the parent of %q", callee.Name)
		}
		ptr = g.loadParentFrom(ptr, pd)
		pd = g.links.arena[pd.parent]
	}
}

// -----------------------------------------------------------------------------
// Callback wrappers and routine values.

// wrapper synthesizes (once per routine) a forwarding routine with one extra
// trailing opaque-pointer parameter that it ignores, so every routine value
// observes the uniform calling convention.
func (g *Generator) wrapper(e *ast.Entity) *ir.Func {
	if w, ok := g.wrappers[e]; ok {
		return w
	}
	orig := g.subpFunc(e)
	var params []*ir.Param
	for _, p := range orig.Params {
		params = append(params, ir.NewParam(p.Name(), p.Typ))
	}
	params = append(params, ir.NewParam("static_link", types.I8Ptr))
	w := g.mod.NewFunc(orig.GlobalName+".cb", orig.Sig.RetType, params...)

	b := w.NewBlock("entry")
	var args []value.Value
	for _, p := range w.Params[:len(w.Params)-1] {
		args = append(args, p)
	}
	ret := b.NewCall(orig, args...)
	if types.Equal(orig.Sig.RetType, types.Void) {
		b.NewRet(nil)
	} else {
		b.NewRet(ret)
	}

	g.wrappers[e] = w
	return w
}

// routineValue evaluates a routine-denoting name to the uniform
// {code pointer, static-link pointer} pair.
func (g *Generator) routineValue(e *ast.Entity) value.Value {
	fn := g.subpFunc(e)
	cd := g.links.descFor(e)
	var code value.Value = fn
	if cd == nil || !cd.takesLink {
		code = g.wrapper(e)
	}
	codePtr := g.block.NewBitCast(code, types.I8Ptr)
	link := g.staticLink(e)

	t := types.NewStruct(types.I8Ptr, types.I8Ptr)
	v := g.block.NewInsertValue(constant.NewUndef(t), codePtr, 0)
	return g.block.NewInsertValue(v, link, 1)
}

// subpFunc returns the declared IR function of a subprogram entity.
func (g *Generator) subpFunc(e *ast.Entity) *ir.Func {
	v := g.env.Lookup(e)
	fn, ok := v.(*ir.Func)
	if !ok {
		report.Fatal("entity %q is not bound to a function", e.Name)
	}
	return fn
}
