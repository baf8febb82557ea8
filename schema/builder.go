package schema

// String creates a string primitive node.
func String() *Node {
	return &Node{Kind: KindPrimitive, Prim: PrimString}
}

// Int creates an integer primitive node.
func Int() *Node {
	return &Node{Kind: KindPrimitive, Prim: PrimInt}
}

// Float creates a float primitive node.
func Float() *Node {
	return &Node{Kind: KindPrimitive, Prim: PrimFloat}
}

// Bool creates a boolean primitive node.
func Bool() *Node {
	return &Node{Kind: KindPrimitive, Prim: PrimBool}
}

// Null creates a null primitive node.
func Null() *Node {
	return &Node{Kind: KindPrimitive, Prim: PrimNull}
}

// LiteralOf creates a literal node holding one constant value.
func LiteralOf(value any) *Node {
	return &Node{Kind: KindLiteral, Literal: value}
}

// EnumOf creates an enum node over the given ordered values.
func EnumOf(values ...string) *Node {
	return &Node{Kind: KindEnum, Values: values}
}

// NativeEnumOf creates a native-enum node over the given ordered values.
func NativeEnumOf(values ...string) *Node {
	return &Node{Kind: KindNativeEnum, Values: values}
}

// Object creates an object node with fields in declaration order.
func Object(fields ...Field) *Node {
	return &Node{Kind: KindObject, Fields: fields}
}

// F is a field constructor for Object.
func F(name string, s *Node) Field {
	return Field{Name: name, Schema: s}
}

// Array creates an array node over the given element.
func Array(elem *Node) *Node {
	return &Node{Kind: KindArray, Elem: elem}
}

// Record creates a record node. A nil key defaults to string at
// translation time.
func Record(key, value *Node) *Node {
	return &Node{Kind: KindRecord, Key: key, Value: value}
}

// Union creates a union node over the given ordered options.
func Union(options ...*Node) *Node {
	return &Node{Kind: KindUnion, Options: options}
}

// Lazy creates a lazily resolved node. The resolver runs at translation
// time, bounded by the translator's recursion budget.
func Lazy(resolve func() *Node) *Node {
	return &Node{Kind: KindLazy, Resolve: resolve}
}

// Describe attaches a description and returns the node for chaining.
func (n *Node) Describe(desc string) *Node {
	n.Desc = desc
	return n
}

// Optional wraps the node so its absence is allowed on the containing field.
func (n *Node) Optional() *Node {
	return &Node{Kind: KindOptional, Elem: n}
}

// Nullable wraps the node so null is an accepted value.
func (n *Node) Nullable() *Node {
	return &Node{Kind: KindNullable, Elem: n}
}

// Default wraps the node with a fallback applied when input is absent.
func (n *Node) Default(value any) *Node {
	return &Node{Kind: KindDefault, Elem: n, DefaultValue: value}
}

// Catch wraps the node with a fallback applied when validation fails.
func (n *Node) Catch(value any) *Node {
	return &Node{Kind: KindCatch, Elem: n, CatchValue: value}
}

// Readonly marks the node read-only. Translation passes through.
func (n *Node) Readonly() *Node {
	return &Node{Kind: KindReadonly, Elem: n}
}

// Brand tags the node with a nominal brand. Translation passes through.
func (n *Node) Brand(brand string) *Node {
	return &Node{Kind: KindBranded, Elem: n, Brand: brand}
}

// Effects wraps the node in a refinement/transform stage. Translation
// passes through to the inner node.
func (n *Node) Effects() *Node {
	return &Node{Kind: KindEffects, Elem: n}
}

// Pipe chains the node into a second validation stage. Translation uses
// the input stage.
func (n *Node) Pipe(target *Node) *Node {
	return &Node{Kind: KindPipeline, Elem: n, Target: target}
}
