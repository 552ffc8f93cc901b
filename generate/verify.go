package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"
)

// verifyFunc checks the structural well-formedness of a lowered function
// before it is accepted into the module: terminated blocks, in-function
// branch targets, phi incomings matching the predecessor set, and call
// arities matching the callee signature.
func verifyFunc(fn *ir.Func) error {
	if len(fn.Blocks) == 0 {
		// Declaration only.
		return nil
	}

	inFunc := make(map[*ir.Block]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		inFunc[b] = true
	}

	preds := make(map[*ir.Block]map[*ir.Block]bool)
	for _, b := range fn.Blocks {
		if b.Term == nil {
			return errors.Errorf("block %q has no terminator", b.Name())
		}
		for _, succ := range b.Term.Succs() {
			if !inFunc[succ] {
				return errors.Errorf("block %q branches to a block outside the function", b.Name())
			}
			if preds[succ] == nil {
				preds[succ] = make(map[*ir.Block]bool)
			}
			preds[succ][b] = true
		}
	}

	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			switch inst := inst.(type) {
			case *ir.InstPhi:
				if err := verifyPhi(b, inst, preds[b]); err != nil {
					return err
				}
			case *ir.InstCall:
				if err := verifyCall(b, inst); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func verifyPhi(b *ir.Block, phi *ir.InstPhi, preds map[*ir.Block]bool) error {
	if len(phi.Incs) != len(preds) {
		return errors.Errorf("phi in block %q has %d incomings for %d predecessors",
			b.Name(), len(phi.Incs), len(preds))
	}
	seen := make(map[*ir.Block]bool, len(phi.Incs))
	for _, inc := range phi.Incs {
		pred, ok := inc.Pred.(*ir.Block)
		if !ok {
			return errors.Errorf("phi in block %q has a non-block predecessor", b.Name())
		}
		if !preds[pred] {
			return errors.Errorf("phi in block %q names non-predecessor %q", b.Name(), pred.Name())
		}
		if seen[pred] {
			return errors.Errorf("phi in block %q names predecessor %q twice", b.Name(), pred.Name())
		}
		seen[pred] = true
	}
	return nil
}

func verifyCall(b *ir.Block, call *ir.InstCall) error {
	pt, ok := call.Callee.Type().(*types.PointerType)
	if !ok {
		return errors.Errorf("call in block %q through a non-pointer callee", b.Name())
	}
	ft, ok := pt.ElemType.(*types.FuncType)
	if !ok {
		return errors.Errorf("call in block %q through a non-function pointer", b.Name())
	}
	switch {
	case ft.Variadic:
		if len(call.Args) < len(ft.Params) {
			return errors.Errorf("call in block %q passes %d args to a variadic callee wanting at least %d",
				b.Name(), len(call.Args), len(ft.Params))
		}
	case len(call.Args) != len(ft.Params):
		return errors.Errorf("call in block %q passes %d args to a callee wanting %d",
			b.Name(), len(call.Args), len(ft.Params))
	}
	return nil
}
