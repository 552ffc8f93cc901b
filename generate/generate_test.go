package generate_test

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/generate"
	"github.com/toabey/gnat-llvm/layout"
	"github.com/toabey/gnat-llvm/report"
)

// -----------------------------------------------------------------------------
// Tree-building helpers shared by the lowering tests.

var (
	intType  = &ast.Type{Kind: ast.KindSigned, Name: "integer", Bits: 32}
	byteType = &ast.Type{Kind: ast.KindUnsigned, Name: "byte", Bits: 8}
	boolType = &ast.Type{Kind: ast.KindBoolean, Name: "boolean", Bits: 1}
)

func newGen() *generate.Generator {
	m := layout.New(64)
	return generate.NewGenerator(generate.DefaultConfig(), m, layout.NewOps(m))
}

func procedure(name string, scope *ast.Entity) *ast.Entity {
	return &ast.Entity{Name: name, Kind: ast.EntSubprogram, Scope: scope}
}

func function(name string, scope *ast.Entity, result *ast.Type) *ast.Entity {
	return &ast.Entity{Name: name, Kind: ast.EntSubprogram, Scope: scope, Result: result}
}

func addParam(subp *ast.Entity, name string, t *ast.Type, mode ast.ParamMode) *ast.Entity {
	p := &ast.Entity{Name: name, Kind: ast.EntParameter, Type: t, Scope: subp}
	subp.Params = append(subp.Params, &ast.Param{Entity: p, Mode: mode})
	return p
}

func variable(name string, t *ast.Type, scope *ast.Entity) *ast.Entity {
	return &ast.Entity{Name: name, Kind: ast.EntVariable, Type: t, Scope: scope}
}

func ref(e *ast.Entity) *ast.Ident {
	return &ast.Ident{ExprBase: ast.ExprBase{Typ: e.Type}, E: e}
}

func routineRef(e *ast.Entity, t *ast.Type) *ast.Ident {
	return &ast.Ident{ExprBase: ast.ExprBase{Typ: t}, E: e}
}

func lit(t *ast.Type, v int64) *ast.IntLit {
	return &ast.IntLit{ExprBase: ast.ExprBase{Typ: t}, Val: v}
}

func bin(op ast.BinOp, t *ast.Type, l, r ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{ExprBase: ast.ExprBase{Typ: t}, Op: op, L: l, R: r}
}

func constrainedArray(elem *ast.Type, low, high int64) *ast.Type {
	return &ast.Type{
		Kind:        ast.KindArray,
		Elem:        elem,
		Dims:        []ast.Dim{{Low: low, High: high}},
		Constrained: true,
	}
}

func unconstrainedArray(elem *ast.Type) *ast.Type {
	return &ast.Type{Kind: ast.KindArray, Elem: elem, Dims: []ast.Dim{{}}}
}

func lower(t *testing.T, units ...*ast.SubpBody) *ir.Module {
	t.Helper()
	report.InitReporter(report.LogLevelSilent)
	g := newGen()
	g.Lower(units...)
	if !report.ShouldProceed() {
		t.Fatal("lowering of supported constructs reported a verification failure")
	}
	return g.Module()
}

func findFunc(t *testing.T, m *ir.Module, name string) *ir.Func {
	t.Helper()
	for _, f := range m.Funcs {
		if f.GlobalName == name {
			return f
		}
	}
	t.Fatalf("module has no function %q", name)
	return nil
}

func countInsts(fn *ir.Func, match func(ir.Instruction) bool) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			if match(inst) {
				n++
			}
		}
	}
	return n
}

// -----------------------------------------------------------------------------

func TestFunctionLowering(t *testing.T) {
	add := function("add", nil, intType)
	a := addParam(add, "a", intType, ast.ByValue)
	b := addParam(add, "b", intType, ast.ByValue)
	body := &ast.SubpBody{Subp: add, Body: []ast.Stmt{
		&ast.ReturnStmt{Value: bin(ast.OpAdd, intType, ref(a), ref(b))},
	}}

	mod := lower(t, body)
	fn := findFunc(t, mod, "add")
	if len(fn.Params) != 2 {
		t.Fatalf("add has %d parameters, want 2", len(fn.Params))
	}
	if !types.Equal(fn.Sig.RetType, types.I32) {
		t.Errorf("add returns %v, want i32", fn.Sig.RetType)
	}
	ret, ok := fn.Blocks[len(fn.Blocks)-1].Term.(*ir.TermRet)
	if !ok {
		t.Fatal("add does not end in a return")
	}
	if _, ok := ret.X.(*ir.InstAdd); !ok {
		t.Errorf("returned value is %T, want the add instruction", ret.X)
	}
}

func TestProcedureImplicitReturn(t *testing.T) {
	p := procedure("noop", nil)
	mod := lower(t, &ast.SubpBody{Subp: p})
	fn := findFunc(t, mod, "noop")
	ret, ok := fn.Blocks[0].Term.(*ir.TermRet)
	if !ok || ret.X != nil {
		t.Error("procedure falling off its end must return void")
	}
}

func TestValueFunctionFallthroughIsUnreachable(t *testing.T) {
	f := function("broken", nil, intType)
	mod := lower(t, &ast.SubpBody{Subp: f})
	fn := findFunc(t, mod, "broken")
	if _, ok := fn.Blocks[0].Term.(*ir.TermUnreachable); !ok {
		t.Error("value function falling off its end must be marked unreachable")
	}
}

func TestWhileLoopShape(t *testing.T) {
	p := procedure("countdown", nil)
	i := variable("i", intType, p)
	body := &ast.SubpBody{Subp: p, Body: []ast.Stmt{
		&ast.ObjectDecl{Object: i, Init: lit(intType, 10)},
		&ast.LoopStmt{
			Cond: bin(ast.OpGt, boolType, ref(i), lit(intType, 0)),
			Body: []ast.Stmt{
				&ast.AssignStmt{Target: ref(i), Value: bin(ast.OpSub, intType, ref(i), lit(intType, 1))},
			},
		},
	}}

	mod := lower(t, body)
	fn := findFunc(t, mod, "countdown")
	if len(fn.Blocks) != 4 {
		t.Fatalf("while loop lowered to %d blocks, want entry/head/body/exit", len(fn.Blocks))
	}
	head, loopBody, exit := fn.Blocks[1], fn.Blocks[2], fn.Blocks[3]

	cbr, ok := head.Term.(*ir.TermCondBr)
	if !ok {
		t.Fatal("loop head does not end in a conditional branch")
	}
	if cbr.TargetTrue != loopBody || cbr.TargetFalse != exit {
		t.Error("loop head branches do not reach the body and exit blocks")
	}
	back, ok := loopBody.Term.(*ir.TermBr)
	if !ok || back.Target != head {
		t.Error("loop body does not branch back to the head")
	}
	if _, ok := exit.Term.(*ir.TermRet); !ok {
		t.Error("loop exit does not fall through to the return")
	}
}

func TestExitWhenCondition(t *testing.T) {
	p := procedure("drain", nil)
	i := variable("i", intType, p)
	body := &ast.SubpBody{Subp: p, Body: []ast.Stmt{
		&ast.ObjectDecl{Object: i, Init: lit(intType, 10)},
		&ast.LoopStmt{Body: []ast.Stmt{
			&ast.ExitStmt{Cond: bin(ast.OpEq, boolType, ref(i), lit(intType, 0))},
			&ast.AssignStmt{Target: ref(i), Value: bin(ast.OpSub, intType, ref(i), lit(intType, 1))},
		}},
	}}

	mod := lower(t, body)
	fn := findFunc(t, mod, "drain")
	if len(fn.Blocks) != 5 {
		t.Fatalf("loop with conditional exit lowered to %d blocks, want 5", len(fn.Blocks))
	}
	loopBody, exit := fn.Blocks[2], fn.Blocks[3]
	cbr, ok := loopBody.Term.(*ir.TermCondBr)
	if !ok {
		t.Fatal("conditional exit did not produce a conditional branch")
	}
	if cbr.TargetTrue != exit {
		t.Error("exit condition does not branch to the loop's exit block")
	}
}

func TestGotoForwardLabel(t *testing.T) {
	p := procedure("skip", nil)
	l := &ast.Entity{Name: "done", Kind: ast.EntLabel, Scope: p}
	body := &ast.SubpBody{Subp: p, Body: []ast.Stmt{
		&ast.GotoStmt{Label: l},
		&ast.LabelStmt{Label: l},
		&ast.ReturnStmt{},
	}}

	mod := lower(t, body)
	fn := findFunc(t, mod, "skip")
	br, ok := fn.Blocks[0].Term.(*ir.TermBr)
	if !ok {
		t.Fatal("goto did not lower to an unconditional branch")
	}
	target, ok := br.Target.(*ir.Block)
	if !ok {
		t.Fatal("goto target is not a block")
	}
	if _, ok := target.Term.(*ir.TermRet); !ok {
		t.Error("goto does not reach the block holding the label's code")
	}
	for _, b := range fn.Blocks {
		if b.Term == nil {
			t.Errorf("block %q left unterminated", b.Name())
		}
	}
}

func TestConditionalExpressionPhi(t *testing.T) {
	f := function("pick", nil, intType)
	c := addParam(f, "c", boolType, ast.ByValue)
	body := &ast.SubpBody{Subp: f, Body: []ast.Stmt{
		&ast.ReturnStmt{Value: &ast.CondExpr{
			ExprBase: ast.ExprBase{Typ: intType},
			Cond:     ref(c),
			Then:     lit(intType, 1),
			Else:     lit(intType, 2),
		}},
	}}

	mod := lower(t, body)
	fn := findFunc(t, mod, "pick")
	var phi *ir.InstPhi
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			if inst, ok := inst.(*ir.InstPhi); ok {
				phi = inst
			}
		}
	}
	if phi == nil {
		t.Fatal("conditional expression did not merge through a phi")
	}
	if len(phi.Incs) != 2 {
		t.Errorf("phi has %d incomings, want 2", len(phi.Incs))
	}
}

func TestShortCircuitAndThen(t *testing.T) {
	p := procedure("guard", nil)
	a := addParam(p, "a", boolType, ast.ByValue)
	b := addParam(p, "b", boolType, ast.ByValue)
	r := variable("r", boolType, p)
	body := &ast.SubpBody{Subp: p, Body: []ast.Stmt{
		&ast.ObjectDecl{Object: r, Init: bin(ast.OpAndThen, boolType, ref(a), ref(b))},
	}}

	mod := lower(t, body)
	fn := findFunc(t, mod, "guard")
	if len(fn.Blocks) != 3 {
		t.Fatalf("and-then lowered to %d blocks, want entry/right/merge", len(fn.Blocks))
	}
	right, merge := fn.Blocks[1], fn.Blocks[2]
	cbr, ok := fn.Blocks[0].Term.(*ir.TermCondBr)
	if !ok {
		t.Fatal("and-then did not branch on the left operand")
	}
	// A false left operand must skip the right operand entirely.
	if cbr.TargetTrue != right || cbr.TargetFalse != merge {
		t.Error("and-then branch edges are inverted")
	}
	hasAnd := false
	for _, inst := range right.Insts {
		if _, ok := inst.(*ir.InstAnd); ok {
			hasAnd = true
		}
	}
	if !hasAnd {
		t.Error("right block never combines the operands")
	}
}

func TestShortCircuitOrElse(t *testing.T) {
	p := procedure("either", nil)
	a := addParam(p, "a", boolType, ast.ByValue)
	b := addParam(p, "b", boolType, ast.ByValue)
	r := variable("r", boolType, p)
	body := &ast.SubpBody{Subp: p, Body: []ast.Stmt{
		&ast.ObjectDecl{Object: r, Init: bin(ast.OpOrElse, boolType, ref(a), ref(b))},
	}}

	mod := lower(t, body)
	fn := findFunc(t, mod, "either")
	right, merge := fn.Blocks[1], fn.Blocks[2]
	cbr := fn.Blocks[0].Term.(*ir.TermCondBr)
	// A true left operand must skip the right operand entirely.
	if cbr.TargetTrue != merge || cbr.TargetFalse != right {
		t.Error("or-else branch edges are inverted")
	}
}

func TestDeclareBlockSavesStack(t *testing.T) {
	p := procedure("scratch", nil)
	tmp := variable("tmp", intType, p)
	body := &ast.SubpBody{Subp: p, Body: []ast.Stmt{
		&ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.ObjectDecl{Object: tmp, Init: lit(intType, 0)},
		}},
	}}

	mod := lower(t, body)
	findFunc(t, mod, "llvm.stacksave")
	findFunc(t, mod, "llvm.stackrestore")

	fn := findFunc(t, mod, "scratch")
	calls := countInsts(fn, func(inst ir.Instruction) bool {
		_, ok := inst.(*ir.InstCall)
		return ok
	})
	if calls != 2 {
		t.Errorf("declare block issued %d intrinsic calls, want save and restore", calls)
	}
}
