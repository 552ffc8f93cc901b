package ast

// EntityKind enumerates the kinds of resolved symbols the front end hands to
// the backend.
type EntityKind int

const (
	EntVariable EntityKind = iota
	EntParameter
	EntSubprogram
	EntType
	EntLiteral // enumeration literal
	EntLabel
)

// ParamMode is the declared passing mode of a formal parameter.
type ParamMode int

const (
	ByValue ParamMode = iota
	ByReference
)

// Entity is an opaque handle to a resolved source symbol.  Entities are
// created and owned by the front end; the backend uses their identity (the
// pointer) as a key and never mutates them.
type Entity struct {
	Name string
	Kind EntityKind

	// Type is the entity's type: the object type for variables and
	// parameters, the denoted type for type entities, the enumeration base
	// type for literals.  It is nil for subprograms and labels.
	Type *Type

	// Scope is the subprogram entity this entity is declared inside, or nil
	// at library level.  For subprograms this is the lexically enclosing
	// subprogram.
	Scope *Entity

	// Subprogram-only fields.
	Params []*Param
	Result *Type // nil for procedures

	// LitValue is the representation value of an enumeration literal.
	LitValue int64
}

// Param is one declared formal parameter of a subprogram entity.
type Param struct {
	Entity *Entity
	Mode   ParamMode
}

// Depth returns the lexical nesting depth of the entity's declaration:
// 0 for library level, 1 for inside a library-level subprogram, and so on.
func (e *Entity) Depth() int {
	n := 0
	for s := e.Scope; s != nil; s = s.Scope {
		n++
	}
	return n
}
