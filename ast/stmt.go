package ast

// Stmt is implemented by all statement nodes.
type Stmt interface {
	stmtNode()
}

// StmtBase is the base struct for all statement nodes.
type StmtBase struct{}

func (StmtBase) stmtNode() {}

// ObjectDecl declares a local variable, optionally initialized.
type ObjectDecl struct {
	StmtBase
	Object *Entity
	Init   Expr
}

// AssignStmt stores Value into the storage denoted by Target.
type AssignStmt struct {
	StmtBase
	Target Expr
	Value  Expr
}

// CallStmt invokes a subprogram for effect.
type CallStmt struct {
	StmtBase
	Call *CallExpr
}

// IfStmt is a conditional statement.  Else may be nil.
type IfStmt struct {
	StmtBase
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// LoopStmt is a loop with an optional label and an optional while condition.
// A nil Cond loops until an exit or goto leaves it.
type LoopStmt struct {
	StmtBase
	Label *Entity
	Cond  Expr
	Body  []Stmt
}

// ExitStmt leaves the innermost loop, or the loop named by Label.  A non-nil
// Cond makes the exit conditional.
type ExitStmt struct {
	StmtBase
	Label *Entity
	Cond  Expr
}

// BlockStmt is a declare block: a scope with local declarations.
type BlockStmt struct {
	StmtBase
	Stmts []Stmt
}

// FreeStmt releases heap storage reached through an access object and resets
// the object to null.
type FreeStmt struct {
	StmtBase
	Access Expr
}

// GotoStmt transfers control to a label.
type GotoStmt struct {
	StmtBase
	Label *Entity
}

// LabelStmt marks a goto target.
type LabelStmt struct {
	StmtBase
	Label *Entity
}

// ReturnStmt returns from the current routine, with a value for functions.
type ReturnStmt struct {
	StmtBase
	Value Expr
}

// SubpBody is a subprogram body.  Nested bodies appear as statements inside
// their parent's declarative part.
type SubpBody struct {
	StmtBase
	Subp *Entity
	Body []Stmt
}
