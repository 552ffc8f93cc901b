package ast

// Expr is implemented by all expression nodes.  Every expression carries the
// type the front end resolved for it.
type Expr interface {
	// Type is the resolved type of the expression.
	Type() *Type
}

// ExprBase is the base struct for all expression nodes.
type ExprBase struct {
	Typ *Type
}

func (eb *ExprBase) Type() *Type { return eb.Typ }

// BinOp enumerates binary operators.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl  // logical shift left
	OpLshr // logical shift right
	OpAshr // arithmetic shift right
	OpRotl
	OpRotr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAndThen // short-circuit and
	OpOrElse  // short-circuit or
)

// UnOp enumerates unary operators.
type UnOp int

const (
	OpPlus UnOp = iota
	OpNeg
	OpNot
)

// Ident is a reference to a resolved entity: a variable, parameter,
// enumeration literal, or subprogram (yielding a routine value).
type Ident struct {
	ExprBase
	E *Entity
}

// IntLit is an integer or character literal.
type IntLit struct {
	ExprBase
	Val int64
}

// StrLit is a string literal; it lowers to an inline array constant with one
// element per character.
type StrLit struct {
	ExprBase
	Val string
}

// BinaryExpr is a binary operator application, including the short-circuit
// forms and comparisons.
type BinaryExpr struct {
	ExprBase
	Op   BinOp
	L, R Expr
}

// UnaryExpr is a unary operator application.
type UnaryExpr struct {
	ExprBase
	Op UnOp
	X  Expr
}

// Convert is a type conversion to the node's resolved type.  Unchecked
// conversions additionally permit pointer and pointer/integer
// reinterpretation.
type Convert struct {
	ExprBase
	X         Expr
	Unchecked bool
}

// Aggregate is a record or array aggregate with positional components in
// structural order.
type Aggregate struct {
	ExprBase
	Comps []Expr
}

// CondExpr is a conditional (if) expression.
type CondExpr struct {
	ExprBase
	Cond Expr
	Then Expr
	Else Expr
}

// Arg is one actual argument of a call.  Formal is empty for positional
// arguments and names the formal parameter otherwise.
type Arg struct {
	Formal string
	Value  Expr
}

// CallExpr is a subprogram call, direct (Callee is an Ident denoting a
// subprogram) or indirect through a routine value.
type CallExpr struct {
	ExprBase
	Callee Expr
	Args   []*Arg
}

// Deref is an explicit pointer dereference.
type Deref struct {
	ExprBase
	X Expr
}

// FieldSel selects a record field.
type FieldSel struct {
	ExprBase
	Prefix Expr
	Field  *Field
}

// IndexExpr addresses one element of a (possibly multi-dimensional) array.
type IndexExpr struct {
	ExprBase
	Prefix  Expr
	Indexes []Expr
}

// SliceExpr re-bases an array onto a sub-range.  The node's type is the
// slice's own constrained array type.
type SliceExpr struct {
	ExprBase
	Prefix Expr
}

// Allocator allocates an object of Alloc on the heap; the node's type is the
// resulting access type.
type Allocator struct {
	ExprBase
	Alloc *Type
}
