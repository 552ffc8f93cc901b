package generate

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/report"
)

// genExpr computes the value of an expression, emitting into the current
// block.
func (g *Generator) genExpr(e ast.Expr) value.Value {
	switch e := e.(type) {
	case *ast.Ident:
		return g.genIdent(e)
	case *ast.IntLit:
		it, ok := g.irType(e.Type()).(*types.IntType)
		if !ok {
			report.Fatal("integer literal of non-integer type %q", e.Type().Name)
		}
		return constant.NewInt(it, e.Val)
	case *ast.StrLit:
		return g.genStrLit(e)
	case *ast.BinaryExpr:
		return g.genBinary(e)
	case *ast.UnaryExpr:
		return g.genUnary(e)
	case *ast.Convert:
		return g.genConvert(e)
	case *ast.Aggregate:
		return g.genAggregate(e)
	case *ast.CondExpr:
		return g.genCondExpr(e)
	case *ast.CallExpr:
		v := g.genCall(e)
		if v == nil {
			report.Fatal("call to procedure used as an expression")
		}
		return v
	case *ast.Deref:
		return g.genLoadFrom(g.genExpr(e.X), e.Type())
	case *ast.FieldSel, *ast.IndexExpr, *ast.SliceExpr:
		return g.genLoadFrom(g.genAddr(e), e.Type())
	case *ast.Allocator:
		return g.genAllocator(e)
	default:
		report.Unsupported("expression", e)
		return nil
	}
}

// genIdent evaluates a name: enumeration literals fold to constants,
// subprogram names become routine values, object names load from their
// bound storage.
func (g *Generator) genIdent(e *ast.Ident) value.Value {
	switch e.E.Kind {
	case ast.EntLiteral:
		it := g.irType(e.E.Type).(*types.IntType)
		return constant.NewInt(it, e.E.LitValue)
	case ast.EntSubprogram:
		return g.routineValue(e.E)
	default:
		return g.genLoadFrom(g.env.Lookup(e.E), e.Type())
	}
}

// genLoadFrom reads the value stored at an address binding.  Unconstrained
// arrays travel as fat pointers, which are their own value representation.
func (g *Generator) genLoadFrom(addr value.Value, t *ast.Type) value.Value {
	if t.IsFatArray() {
		return addr
	}
	return g.block.NewLoad(g.irType(t), addr)
}

// genStrLit lowers a string literal to an inline array constant, one element
// per character, each sign-extended to the element representation.
func (g *Generator) genStrLit(e *ast.StrLit) value.Value {
	t := e.Type()
	if t.Kind != ast.KindArray {
		report.Fatal("string literal of non-array type %q", t.Name)
	}
	elemTy := g.irType(t.Elem).(*types.IntType)
	elems := make([]constant.Constant, len(e.Val))
	for i := 0; i < len(e.Val); i++ {
		// Character codes are always 0..255; reinterpretation only applies
		// when the element representation itself is a signed byte.
		v := int64(e.Val[i])
		if !t.Elem.IsUnsigned() && t.Elem.Bits == 8 {
			v = int64(int8(e.Val[i]))
		}
		elems[i] = constant.NewInt(elemTy, v)
	}
	arrTy := types.NewArray(uint64(len(e.Val)), elemTy)
	return constant.NewArray(arrTy, elems...)
}

// genBinary dispatches a binary operator application.
func (g *Generator) genBinary(e *ast.BinaryExpr) value.Value {
	switch e.Op {
	case ast.OpAndThen, ast.OpOrElse:
		return g.genShortCircuit(e)
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return g.genCompare(e)
	case ast.OpShl, ast.OpLshr, ast.OpAshr, ast.OpRotl, ast.OpRotr:
		return g.genShift(e)
	}

	t := e.Type()
	l := g.genExpr(e.L)
	r := g.genExpr(e.R)
	var v value.Value
	switch e.Op {
	case ast.OpAdd:
		if t.Kind == ast.KindFloat {
			v = g.block.NewFAdd(l, r)
		} else {
			v = g.block.NewAdd(l, r)
		}
	case ast.OpSub:
		if t.Kind == ast.KindFloat {
			v = g.block.NewFSub(l, r)
		} else {
			v = g.block.NewSub(l, r)
		}
	case ast.OpMul:
		if t.Kind == ast.KindFloat {
			v = g.block.NewFMul(l, r)
		} else {
			v = g.block.NewMul(l, r)
		}
	case ast.OpDiv:
		switch {
		case t.Kind == ast.KindFloat:
			return g.block.NewFDiv(l, r)
		case t.IsUnsigned():
			return g.block.NewUDiv(l, r)
		default:
			return g.block.NewSDiv(l, r)
		}
	case ast.OpRem:
		if !t.IsInteger() {
			report.Unsupported("remainder operand type", e)
		}
		if t.IsUnsigned() {
			return g.block.NewURem(l, r)
		}
		return g.block.NewSRem(l, r)
	case ast.OpAnd:
		return g.block.NewAnd(l, r)
	case ast.OpOr:
		return g.block.NewOr(l, r)
	case ast.OpXor:
		return g.block.NewXor(l, r)
	default:
		report.Unsupported("binary operator", e)
	}
	return g.modularFix(v, t)
}

// modularFix applies the unsigned-remainder correction required after
// arithmetic on a type whose modulus is not a power of two.
func (g *Generator) modularFix(v value.Value, t *ast.Type) value.Value {
	if !t.NonBinaryModulus() {
		return v
	}
	it := g.irType(t).(*types.IntType)
	return g.block.NewURem(v, constant.NewInt(it, int64(t.Modulus)))
}

// genUnary lowers a unary operator: plus is the identity, minus computes
// 0 - x in the result type, not computes x xor all-ones.
func (g *Generator) genUnary(e *ast.UnaryExpr) value.Value {
	x := g.genExpr(e.X)
	t := e.Type()
	switch e.Op {
	case ast.OpPlus:
		return x
	case ast.OpNeg:
		if t.Kind == ast.KindFloat {
			ft := g.irType(t).(*types.FloatType)
			return g.block.NewFSub(constant.NewFloat(ft, 0), x)
		}
		it := g.irType(t).(*types.IntType)
		return g.modularFix(g.block.NewSub(constant.NewInt(it, 0), x), t)
	case ast.OpNot:
		it := g.irType(t).(*types.IntType)
		return g.block.NewXor(x, constant.NewInt(it, -1))
	default:
		report.Unsupported("unary operator", e)
		return nil
	}
}

// genShortCircuit lowers `and then` / `or else` with ordinary branches: the
// left operand lands in a temporary, the right operand is evaluated only
// when it can change the result, and the merge block reloads the temporary.
func (g *Generator) genShortCircuit(e *ast.BinaryExpr) value.Value {
	it := g.irType(e.Type()).(*types.IntType)
	tmp := g.entryAlloca(it)

	left := g.genExpr(e.L)
	g.block.NewStore(left, tmp)

	rightBlock := g.appendBlock()
	mergeBlock := g.appendBlock()
	if e.Op == ast.OpAndThen {
		g.block.NewCondBr(left, rightBlock, mergeBlock)
	} else {
		g.block.NewCondBr(left, mergeBlock, rightBlock)
	}

	g.block = rightBlock
	right := g.genExpr(e.R)
	var combined value.Value
	stored := g.block.NewLoad(it, tmp)
	if e.Op == ast.OpAndThen {
		combined = g.block.NewAnd(stored, right)
	} else {
		combined = g.block.NewOr(stored, right)
	}
	g.block.NewStore(combined, tmp)
	g.block.NewBr(mergeBlock)

	g.block = mergeBlock
	return g.block.NewLoad(it, tmp)
}

// genConvert lowers a checked or unchecked type conversion.
func (g *Generator) genConvert(e *ast.Convert) value.Value {
	src := e.X.Type()
	dst := e.Type()
	v := g.genExpr(e.X)

	switch {
	case src.IsInteger() && dst.IsInteger():
		srcTy := g.irType(src).(*types.IntType)
		dstTy := g.irType(dst).(*types.IntType)
		switch {
		case srcTy.BitSize == dstTy.BitSize:
			return v
		case srcTy.BitSize < dstTy.BitSize:
			if dst.IsUnsigned() {
				return g.block.NewZExt(v, dstTy)
			}
			return g.block.NewSExt(v, dstTy)
		default:
			return g.block.NewTrunc(v, dstTy)
		}
	case src.Kind == ast.KindFloat && dst.Kind == ast.KindFloat:
		switch {
		case src.Bits == dst.Bits:
			return v
		case src.Bits < dst.Bits:
			return g.block.NewFPExt(v, g.irType(dst))
		default:
			return g.block.NewFPTrunc(v, g.irType(dst))
		}
	case e.Unchecked && src.Kind == ast.KindPointer && dst.Kind == ast.KindPointer:
		return g.block.NewBitCast(v, g.irType(dst))
	case e.Unchecked && src.Kind == ast.KindPointer && dst.IsInteger():
		return g.block.NewPtrToInt(v, g.irType(dst))
	case e.Unchecked && src.IsInteger() && dst.Kind == ast.KindPointer:
		return g.block.NewIntToPtr(v, g.irType(dst))
	}
	report.Fatal("unsupported conversion from %q to %q", src.Name, dst.Name)
	return nil
}

// genAggregate builds a record or array aggregate by inserting each supplied
// component into an otherwise-undefined composite at its structural index.
func (g *Generator) genAggregate(e *ast.Aggregate) value.Value {
	t := e.Type()
	if t.Kind != ast.KindRecord && !(t.Kind == ast.KindArray && t.Constrained) {
		report.Unsupported("aggregate type", e)
	}
	var agg value.Value = constant.NewUndef(g.irType(t))
	for i, comp := range e.Comps {
		agg = g.block.NewInsertValue(agg, g.genExpr(comp), uint64(i))
	}
	return agg
}

// genAllocator computes the allocated size, calls the configured allocation
// routine, and reinterprets the raw pointer as the access type.
func (g *Generator) genAllocator(e *ast.Allocator) value.Value {
	if e.Alloc.IsDynamic() {
		report.Unsupported("allocator of dynamically sized type", e)
	}
	size := g.lay.ByteSize(e.Alloc)
	raw := g.block.NewCall(g.allocFn(), constant.NewInt(types.I64, size))
	return g.block.NewBitCast(raw, g.lay.CreateAccessType(e.Alloc))
}
