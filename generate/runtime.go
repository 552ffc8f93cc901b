package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// runtimeFuncs holds lazily declared handles to the runtime support
// routines.  Names come from the codegen configuration.
type runtimeFuncs struct {
	alloc        *ir.Func
	free         *ir.Func
	memcmp       *ir.Func
	stackSave    *ir.Func
	stackRestore *ir.Func
}

// allocFn declares (once) the default allocation routine: i8* (i64).
func (g *Generator) allocFn() *ir.Func {
	if g.rt.alloc == nil {
		g.rt.alloc = g.mod.NewFunc(g.cfg.AllocRoutine, types.I8Ptr,
			ir.NewParam("size", types.I64))
	}
	return g.rt.alloc
}

// freeFn declares (once) the default deallocation routine: void (i8*).
func (g *Generator) freeFn() *ir.Func {
	if g.rt.free == nil {
		g.rt.free = g.mod.NewFunc(g.cfg.FreeRoutine, types.Void,
			ir.NewParam("ptr", types.I8Ptr))
	}
	return g.rt.free
}

// memcmpFn declares (once) the raw memory comparison routine:
// i32 (i8*, i8*, i64).
func (g *Generator) memcmpFn() *ir.Func {
	if g.rt.memcmp == nil {
		g.rt.memcmp = g.mod.NewFunc(g.cfg.MemcmpRoutine, types.I32,
			ir.NewParam("lhs", types.I8Ptr),
			ir.NewParam("rhs", types.I8Ptr),
			ir.NewParam("size", types.I64))
	}
	return g.rt.memcmp
}

// stackSaveFn declares (once) the llvm.stacksave intrinsic.
func (g *Generator) stackSaveFn() *ir.Func {
	if g.rt.stackSave == nil {
		g.rt.stackSave = g.mod.NewFunc("llvm.stacksave", types.I8Ptr)
	}
	return g.rt.stackSave
}

// stackRestoreFn declares (once) the llvm.stackrestore intrinsic.
func (g *Generator) stackRestoreFn() *ir.Func {
	if g.rt.stackRestore == nil {
		g.rt.stackRestore = g.mod.NewFunc("llvm.stackrestore", types.Void,
			ir.NewParam("ptr", types.I8Ptr))
	}
	return g.rt.stackRestore
}
