package ast

// TypeKind enumerates the categories of source types the backend understands.
type TypeKind int

const (
	KindSigned TypeKind = iota
	KindUnsigned
	KindModular // unsigned with a wrap-around modulus
	KindBoolean
	KindFloat
	KindPointer
	KindArray
	KindRecord
	KindSubprogram
)

// Type describes a fully resolved source type.  Types are produced by the
// front end and consumed read-only by the backend.
type Type struct {
	Kind TypeKind
	Name string

	// Bits is the scalar bit width (integer, modular, boolean, float).
	Bits int

	// Modulus is the wrap-around modulus of a modular type.  A modulus of 0
	// on a modular type means "full range of Bits" and needs no correction.
	Modulus uint64

	// Designated is the pointed-to type of a pointer type.
	Designated *Type

	// Elem and Dims describe an array type.  Constrained arrays carry their
	// bounds in Dims; unconstrained arrays leave Dims with the declared
	// number of dimensions but take their bounds from a runtime descriptor.
	Elem        *Type
	Dims        []Dim
	Constrained bool

	// Fields describes a record type, in declaration order.
	Fields []*Field

	// Formals and Result describe a subprogram type (used for
	// routine-valued objects).  Result is nil for procedures.
	Formals []Formal
	Result  *Type
}

// Dim is one dimension of a constrained array type.
type Dim struct {
	Low, High int64
}

// Field is one component of a record type.
type Field struct {
	Name string
	Type *Type

	// LenField, when non-nil, names the discriminant field whose runtime
	// value gives the element count of this (dynamically sized) array
	// field.  Fields with a LenField start a new layout chunk.
	LenField *Field
}

// Formal is one parameter slot of a subprogram type.
type Formal struct {
	Type *Type
	Mode ParamMode
}

// IsInteger reports whether t is an integer type of any flavor.
func (t *Type) IsInteger() bool {
	switch t.Kind {
	case KindSigned, KindUnsigned, KindModular, KindBoolean:
		return true
	}
	return false
}

// IsUnsigned reports whether t compares and divides with unsigned semantics.
func (t *Type) IsUnsigned() bool {
	switch t.Kind {
	case KindUnsigned, KindModular, KindBoolean:
		return true
	}
	return false
}

// IsScalar reports whether t is a scalar (integer, float or pointer) type.
func (t *Type) IsScalar() bool {
	return t.IsInteger() || t.Kind == KindFloat || t.Kind == KindPointer
}

// IsFatArray reports whether values of t travel as bounds+data fat pointers.
func (t *Type) IsFatArray() bool {
	return t.Kind == KindArray && !t.Constrained
}

// IsDynamic reports whether the size of t is unknown until runtime.
func (t *Type) IsDynamic() bool {
	switch t.Kind {
	case KindArray:
		return !t.Constrained
	case KindRecord:
		for _, f := range t.Fields {
			if f.LenField != nil || f.Type.IsDynamic() {
				return true
			}
		}
	}
	return false
}

// NonBinaryModulus reports whether arithmetic on t needs an explicit
// remainder correction because its modulus is not a power of two.
func (t *Type) NonBinaryModulus() bool {
	return t.Kind == KindModular && t.Modulus != 0 && t.Modulus&(t.Modulus-1) != 0
}
