package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"github.com/toabey/gnat-llvm/ast"
	"github.com/toabey/gnat-llvm/report"
)

// Environment maps resolved entities to the IR values generated for them and
// tracks the scope and loop-exit stacks of the routine being lowered.
//
// Bindings are never removed on scope exit: the front end guarantees lexical
// uniqueness of entities, so stale bindings can never be observed.
type Environment struct {
	values map[*ast.Entity]value.Value
	blocks map[*ast.Entity]*ir.Block

	// scopeDepth counts open scopes; Push/Pop must pair.
	scopeDepth int

	loops []loopFrame
}

type loopFrame struct {
	label *ast.Entity // nil for unlabeled loops
	exit  *ir.Block
}

// NewEnvironment creates an empty lowering environment.
func NewEnvironment() *Environment {
	return &Environment{
		values: make(map[*ast.Entity]value.Value),
		blocks: make(map[*ast.Entity]*ir.Block),
	}
}

// Bind records the IR value generated for an entity.
func (env *Environment) Bind(e *ast.Entity, v value.Value) {
	env.values[e] = v
}

// Has reports whether the entity already has a binding.
func (env *Environment) Has(e *ast.Entity) bool {
	_, ok := env.values[e]
	return ok
}

// Lookup returns the IR value bound to the entity.  A missing binding is a
// backend bug or a front-end ordering bug, never a recoverable condition.
func (env *Environment) Lookup(e *ast.Entity) value.Value {
	v, ok := env.values[e]
	if !ok {
		report.Fatal("no binding for entity %q", e.Name)
	}
	return v
}

// BindBlock records the basic block generated for a label entity.
func (env *Environment) BindBlock(e *ast.Entity, b *ir.Block) {
	env.blocks[e] = b
}

// BlockFor returns the basic block bound to a label entity, if any.
func (env *Environment) BlockFor(e *ast.Entity) (*ir.Block, bool) {
	b, ok := env.blocks[e]
	return b, ok
}

// PushScope opens a lexical scope.
func (env *Environment) PushScope() {
	env.scopeDepth++
}

// PopScope closes the innermost scope.
func (env *Environment) PopScope() {
	if env.scopeDepth == 0 {
		report.Fatal("scope stack underflow")
	}
	env.scopeDepth--
}

// PushLoop records the exit block of an entered loop.
func (env *Environment) PushLoop(label *ast.Entity, exit *ir.Block) {
	env.loops = append(env.loops, loopFrame{label: label, exit: exit})
}

// PopLoop removes the innermost loop.
func (env *Environment) PopLoop() {
	if len(env.loops) == 0 {
		report.Fatal("loop stack underflow")
	}
	env.loops = env.loops[:len(env.loops)-1]
}

// ExitBlock returns the exit block of the loop named by label, or of the
// innermost loop when label is nil.
func (env *Environment) ExitBlock(label *ast.Entity) *ir.Block {
	for i := len(env.loops) - 1; i >= 0; i-- {
		if label == nil || env.loops[i].label == label {
			return env.loops[i].exit
		}
	}
	if label != nil {
		report.Fatal("exit names unknown loop %q", label.Name)
	}
	report.Fatal("exit statement outside of any loop")
	return nil
}
