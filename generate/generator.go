// Package generate lowers the resolved, typed program tree to LLVM IR.  It
// performs a synchronous recursive descent over the tree, emitting
// instructions at a movable insertion point; all lowering state lives in the
// Generator and its Environment, never in package globals.
package generate

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/rickypai/natsort"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/layout"
	"github.com/toabey/gnat-llvm/report"
)

// Generator is responsible for converting resolved subprogram bodies into an
// LLVM module.
type Generator struct {
	cfg *Config

	// lay and arr are the type-layout and array-descriptor collaborators.
	lay layout.Service
	arr layout.Arrays

	// mod is the LLVM module being generated.
	mod *ir.Module

	// env is the lowering environment: entity bindings, scope stack and
	// loop-exit stack.
	env *Environment

	// links manages static-link descriptors for nested routines.
	links *linkManager

	// wrappers memoizes the synthesized callback wrapper of each routine.
	wrappers map[*ast.Entity]*ir.Func

	// subps is the stack of subprograms currently being lowered; nested
	// bodies push onto it.
	subps []*subpState

	// block is the current basic block being emitted into.
	block *ir.Block

	// typeDefs collects named types created by the generator itself (the
	// static-link structures); emitted in natural order at finalization.
	typeDefs map[string]types.Type

	rt runtimeFuncs

	finished bool
}

// subpState is the transient per-routine record: the IR function, the stack
// slot of the routine's own static-link structure, and its descriptor.
type subpState struct {
	subp  *ast.Entity
	fn    *ir.Func
	desc  *linkDesc
	frame value.Value // alloca of the static-link structure, nil if none
}

// NewGenerator creates a generator over the given layout and array services.
func NewGenerator(cfg *Config, lay layout.Service, arr layout.Arrays) *Generator {
	return &Generator{
		cfg:      cfg,
		lay:      lay,
		arr:      arr,
		mod:      ir.NewModule(),
		env:      NewEnvironment(),
		links:    newLinkManager(),
		wrappers: make(map[*ast.Entity]*ir.Func),
		typeDefs: make(map[string]types.Type),
	}
}

// Lower lowers the given library-level subprogram bodies into the module.
// Nested bodies are lowered when their parent's declarative part is reached.
func (g *Generator) Lower(units ...*ast.SubpBody) {
	for _, u := range units {
		g.links.compute(u)
	}
	for _, u := range units {
		g.declareAll(u)
	}
	for _, u := range units {
		g.lowerBody(u)
	}
}

// Module finalizes and returns the generated module.  Named type definitions
// are appended in natural sort order so output is deterministic.
func (g *Generator) Module() *ir.Module {
	if g.finished {
		return g.mod
	}
	g.finished = true

	defs := make(map[string]types.Type, len(g.typeDefs))
	for name, t := range g.lay.TypeDefs() {
		defs[name] = t
	}
	for name, t := range g.typeDefs {
		defs[name] = t
	}
	var names []string
	for name := range defs {
		names = append(names, name)
	}
	natsort.Strings(names)
	for _, name := range names {
		g.mod.NewTypeDef(name, defs[name])
	}
	return g.mod
}

// -----------------------------------------------------------------------------

// cur returns the subprogram currently being lowered.
func (g *Generator) cur() *subpState {
	if len(g.subps) == 0 {
		report.Fatal("lowering outside of any subprogram")
	}
	return g.subps[len(g.subps)-1]
}

// appendBlock adds a new basic block to the current function.  It does *not*
// move the insertion point.
func (g *Generator) appendBlock() *ir.Block {
	fn := g.cur().fn
	return fn.NewBlock(fmt.Sprintf("bb%d", len(fn.Blocks)))
}

// entryAlloca allocates a stack slot in the entry block of the current
// function so the allocation is not repeated on loop back-edges.
func (g *Generator) entryAlloca(t types.Type) *ir.InstAlloca {
	return g.cur().fn.Blocks[0].NewAlloca(t)
}

// terminated reports whether the current block already has a terminator.
func (g *Generator) terminated() bool {
	return g.block.Term != nil
}

// irType is shorthand for the layout service's value representation.
func (g *Generator) irType(t *ast.Type) types.Type {
	return g.lay.CreateType(t)
}
