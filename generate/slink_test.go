package generate_test

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/toabey/gnat-llvm/ast"
)

func TestNestedRoutineStaticLinkChain(t *testing.T) {
	outer := procedure("outer", nil)
	v := variable("v", intType, outer)
	mid := procedure("mid", outer)
	inner := procedure("inner", mid)

	innerBody := &ast.SubpBody{Subp: inner, Body: []ast.Stmt{
		&ast.AssignStmt{Target: ref(v), Value: lit(intType, 1)},
	}}
	midBody := &ast.SubpBody{Subp: mid, Body: []ast.Stmt{
		innerBody,
		callStmt(inner),
	}}
	outerBody := &ast.SubpBody{Subp: outer, Body: []ast.Stmt{
		&ast.ObjectDecl{Object: v, Init: lit(intType, 0)},
		midBody,
		callStmt(mid),
	}}

	mod := lower(t, outerBody)

	// Every nested routine takes the trailing link parameter.
	for _, name := range []string{"mid", "inner"} {
		fn := findFunc(t, mod, name)
		last := fn.Params[len(fn.Params)-1]
		if last.Name() != "static_link" || !types.Equal(last.Typ, types.I8Ptr) {
			t.Errorf("%s does not take a trailing opaque static link", name)
		}
	}
	if len(findFunc(t, mod, "outer").Params) != 0 {
		t.Error("library-level routine must not take a static link")
	}

	// The capture of v gives outer a link structure; the chain types are
	// emitted as named definitions.
	s := mod.String()
	for _, def := range []string{"outer.slink", "mid.slink"} {
		if !strings.Contains(s, def) {
			t.Errorf("module does not define the %s structure", def)
		}
	}

	// inner reaches v two hops up: one load follows mid's parent pointer,
	// one load reads the captured address out of outer's structure.
	innerFn := findFunc(t, mod, "inner")
	loads := 0
	for _, inst := range innerFn.Blocks[0].Insts {
		if _, ok := inst.(*ir.InstLoad); ok {
			loads++
		}
	}
	if loads != 2 {
		t.Errorf("inner issued %d chain loads, want 2", loads)
	}
}

func TestDirectCallPassesLink(t *testing.T) {
	outer := procedure("outer", nil)
	v := variable("v", intType, outer)
	child := procedure("child", outer)
	childBody := &ast.SubpBody{Subp: child, Body: []ast.Stmt{
		&ast.AssignStmt{Target: ref(v), Value: lit(intType, 1)},
	}}
	outerBody := &ast.SubpBody{Subp: outer, Body: []ast.Stmt{
		&ast.ObjectDecl{Object: v, Init: lit(intType, 0)},
		childBody,
		callStmt(child),
	}}

	mod := lower(t, outerBody)
	call := findCallTo(findFunc(t, mod, "outer"), findFunc(t, mod, "child"))
	if call == nil {
		t.Fatal("outer never calls child")
	}
	if len(call.Args) != 1 {
		t.Fatalf("call to child passes %d arguments, want only the link", len(call.Args))
	}
	if _, ok := call.Args[0].(*ir.InstBitCast); !ok {
		t.Error("link argument is not the caller's own frame pointer")
	}
}

func TestNonCapturingNestedChildCall(t *testing.T) {
	outer := procedure("outer", nil)
	child := procedure("child", outer)
	local := variable("tmp", intType, child)
	childBody := &ast.SubpBody{Subp: child, Body: []ast.Stmt{
		&ast.ObjectDecl{Object: local, Init: lit(intType, 0)},
	}}
	outerBody := &ast.SubpBody{Subp: outer, Body: []ast.Stmt{
		childBody,
		callStmt(child),
	}}

	// The child captures nothing, but its link still has to point at a real
	// parent frame.
	mod := lower(t, outerBody)
	call := findCallTo(findFunc(t, mod, "outer"), findFunc(t, mod, "child"))
	if call == nil {
		t.Fatal("outer never calls child")
	}
	if len(call.Args) != 1 {
		t.Fatalf("call to child passes %d arguments, want only the link", len(call.Args))
	}
	if _, ok := call.Args[0].(*ir.InstBitCast); !ok {
		t.Error("link argument is not the parent's frame pointer")
	}
	if !strings.Contains(mod.String(), "outer.slink") {
		t.Error("parent of a nested routine has no frame structure")
	}
}

func TestRoutineValueWrapperMemoized(t *testing.T) {
	subpT := &ast.Type{Kind: ast.KindSubprogram}
	cb := procedure("cb", nil)
	user := procedure("user", nil)
	h1 := variable("h1", subpT, user)
	h2 := variable("h2", subpT, user)
	userBody := &ast.SubpBody{Subp: user, Body: []ast.Stmt{
		&ast.ObjectDecl{Object: h1, Init: routineRef(cb, subpT)},
		&ast.ObjectDecl{Object: h2, Init: routineRef(cb, subpT)},
	}}

	mod := lower(t, &ast.SubpBody{Subp: cb}, userBody)

	wrappers := 0
	for _, f := range mod.Funcs {
		if f.GlobalName == "cb.cb" {
			wrappers++
		}
	}
	if wrappers != 1 {
		t.Errorf("module declares %d callback wrappers for cb, want 1", wrappers)
	}
	// Handles carry the uniform two-pointer routine value.
	user2 := findFunc(t, mod, "user")
	ivs := 0
	for _, b := range user2.Blocks {
		for _, inst := range b.Insts {
			if _, ok := inst.(*ir.InstInsertValue); ok {
				ivs++
			}
		}
	}
	if ivs != 4 {
		t.Errorf("routine values issued %d insertvalues, want 2 per handle", ivs)
	}
}

func TestNestedRoutineValueUsesOwnFunction(t *testing.T) {
	outer := procedure("outer", nil)
	v := variable("v", intType, outer)
	child := procedure("child", outer)
	subpT := &ast.Type{Kind: ast.KindSubprogram}
	h := variable("h", subpT, outer)

	childBody := &ast.SubpBody{Subp: child, Body: []ast.Stmt{
		&ast.AssignStmt{Target: ref(v), Value: lit(intType, 1)},
	}}
	outerBody := &ast.SubpBody{Subp: outer, Body: []ast.Stmt{
		&ast.ObjectDecl{Object: v, Init: lit(intType, 0)},
		childBody,
		&ast.ObjectDecl{Object: h, Init: routineRef(child, subpT)},
	}}

	mod := lower(t, outerBody)
	// child already follows the uniform convention; no wrapper is needed.
	for _, f := range mod.Funcs {
		if strings.HasSuffix(f.GlobalName, ".cb") {
			t.Errorf("spurious wrapper %q for a link-taking routine", f.GlobalName)
		}
	}
}
