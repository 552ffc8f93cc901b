package layout

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
)

// Ops is the reference Arrays implementation over Mapper's descriptor model.
type Ops struct {
	m *Mapper
}

// NewOps returns the array operations bound to the given mapper.
func NewOps(m *Mapper) *Ops {
	return &Ops{m: m}
}

func (o *Ops) Data(b *ir.Block, v value.Value, t *ast.Type) value.Value {
	if t.Constrained {
		// v is already the address of the element storage.
		return v
	}
	return b.NewExtractValue(v, 0)
}

func (o *Ops) BoundValue(b *ir.Block, v value.Value, t *ast.Type, which Bound, dim int) value.Value {
	if t.Constrained {
		d := t.Dims[dim]
		if which == Low {
			return constant.NewInt(types.I64, d.Low)
		}
		return constant.NewInt(types.I64, d.High)
	}
	boundsTy := o.m.BoundsType(t)
	bptr := b.NewExtractValue(v, 1)
	field := int64(2 * dim)
	if which == High {
		field++
	}
	addr := b.NewGetElementPtr(boundsTy, bptr,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, field))
	return b.NewLoad(types.I64, addr)
}

func (o *Ops) Length(b *ir.Block, v value.Value, t *ast.Type, dim int) value.Value {
	if t.Constrained {
		d := t.Dims[dim]
		var n int64
		if d.High >= d.Low {
			n = d.High - d.Low + 1
		}
		return constant.NewInt(types.I64, n)
	}
	low := o.BoundValue(b, v, t, Low, dim)
	high := o.BoundValue(b, v, t, High, dim)
	n := b.NewAdd(b.NewSub(high, low), constant.NewInt(types.I64, 1))
	isNull := b.NewICmp(enum.IPredSLT, high, low)
	return b.NewSelect(isNull, constant.NewInt(types.I64, 0), n)
}

func (o *Ops) FatPointer(b *ir.Block, thin value.Value, t *ast.Type) value.Value {
	// The bounds block lives in the frame; its address escapes only into
	// the fat pointer handed to the callee.
	u := unconstrainedOf(t)
	boundsTy := o.m.BoundsType(u)
	entry := b.Parent.Blocks[0]
	bounds := entry.NewAlloca(boundsTy)
	for i, d := range t.Dims {
		lowAddr := b.NewGetElementPtr(boundsTy, bounds,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(2*i)))
		b.NewStore(constant.NewInt(types.I64, d.Low), lowAddr)
		highAddr := b.NewGetElementPtr(boundsTy, bounds,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(2*i+1)))
		b.NewStore(constant.NewInt(types.I64, d.High), highAddr)
	}

	fatTy := o.m.fatPointerType(u)
	data := b.NewBitCast(thin, fatTy.Fields[0])
	fat := b.NewInsertValue(constant.NewUndef(fatTy), data, 0)
	return b.NewInsertValue(fat, bounds, 1)
}

// unconstrainedOf strips the bounds off a constrained array type so the fat
// representation matches what an unconstrained formal expects.
func unconstrainedOf(t *ast.Type) *ast.Type {
	if !t.Constrained {
		return t
	}
	u := *t
	u.Constrained = false
	return &u
}
