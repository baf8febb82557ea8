package schema

// Kind identifies one schema node variant. The set is closed: translation
// is an exhaustive switch over these values, never structural probing.
type Kind string

const (
	KindObject     Kind = "object"
	KindArray      Kind = "array"
	KindPrimitive  Kind = "primitive"
	KindLiteral    Kind = "literal"
	KindEnum       Kind = "enum"
	KindNativeEnum Kind = "nativeEnum"
	KindRecord     Kind = "record"
	KindUnion      Kind = "union"
	KindLazy       Kind = "lazy"
)

// Modifier wrapper kinds. Each wraps exactly one inner node (Elem).
const (
	KindOptional Kind = "optional"
	KindNullable Kind = "nullable"
	KindDefault  Kind = "default"
	KindCatch    Kind = "catch"
	KindReadonly Kind = "readonly"
	KindBranded  Kind = "branded"
	KindEffects  Kind = "effects"
	KindPipeline Kind = "pipeline"
)

// Primitive identifies the scalar base types.
type Primitive string

const (
	PrimString Primitive = "string"
	PrimInt    Primitive = "int"
	PrimFloat  Primitive = "float"
	PrimBool   Primitive = "bool"
	PrimNull   Primitive = "null"
)

// Field is one named member of an object schema. Field order is
// declaration order and is preserved through translation and rendering.
type Field struct {
	Name   string
	Schema *Node
}

// Node is one unit of a type schema. Exactly one variant payload is
// meaningful for a given Kind; the rest stay zero.
type Node struct {
	Kind Kind

	// Desc surfaces as a quoted description annotation on the field that
	// carries this node. The outermost non-empty description along a
	// modifier chain wins.
	Desc string

	Prim    Primitive    // KindPrimitive
	Fields  []Field      // KindObject, ordered
	Elem    *Node        // KindArray element; inner node of every modifier wrapper
	Key     *Node        // KindRecord key, nil means string
	Value   *Node        // KindRecord value
	Literal any          // KindLiteral constant
	Values  []string     // KindEnum / KindNativeEnum, ordered
	Options []*Node      // KindUnion, ordered
	Resolve func() *Node // KindLazy resolver

	DefaultValue any    // KindDefault fallback
	CatchValue   any    // KindCatch fallback
	Brand        string // KindBranded tag
	Target       *Node  // KindPipeline output stage
}

// IsModifier reports whether the node is a wrapper around an inner node.
func (n *Node) IsModifier() bool {
	switch n.Kind {
	case KindOptional, KindNullable, KindDefault, KindCatch,
		KindReadonly, KindBranded, KindEffects, KindPipeline:
		return true
	}
	return false
}
