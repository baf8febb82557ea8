package translate

import (
	"fmt"
	"strings"

	"github.com/BaSui01/schemaflow/schema"
	"github.com/BaSui01/schemaflow/types"
)

const (
	// maxUnwrapDepth bounds modifier-wrapper peeling. It guards against
	// malformed wrapper chains, not true schema cycles.
	maxUnwrapDepth = 50

	// maxTranslateDepth bounds overall recursion, which also bounds
	// lazy-resolver expansion of self-referential schemas that are not
	// shared by pointer.
	maxTranslateDepth = 64
)

// unionOperator joins union options in rendered type expressions.
const unionOperator = " | "

// fieldInfo is the result of translating one value position: the rendered
// type expression plus the flags and description peeled off its modifier
// chain.
type fieldInfo struct {
	expr        string
	optional    bool
	description string
}

type translator struct {
	ctx *Context

	// seen maps object nodes already translated (by pointer identity) to
	// their declared class name, so shared and self-referential objects
	// are declared once and referenced by name thereafter.
	seen map[*schema.Node]string
}

// Translate converts a schema node into a rendered type expression,
// registering every class, enum, and alias declaration it requires in
// ctx. nameHint seeds Pascal-case declaration names.
func Translate(node *schema.Node, ctx *Context, nameHint string) (string, error) {
	tr := &translator{ctx: ctx, seen: make(map[*schema.Node]string)}
	info, err := tr.translate(node, nameHint, 0)
	if err != nil {
		return "", err
	}
	return info.expr, nil
}

// translate unwraps the node's modifier chain, dispatches on the core
// kind, and applies the nullable union. The optional flag only has
// meaning to field callers; value positions drop it.
func (t *translator) translate(node *schema.Node, hint string, depth int) (fieldInfo, error) {
	if depth > maxTranslateDepth {
		return fieldInfo{}, types.NewTranslationError(
			fmt.Sprintf("schema nesting exceeds depth budget (%d)", maxTranslateDepth))
	}

	u, err := unwrap(node)
	if err != nil {
		return fieldInfo{}, err
	}

	expr, err := t.dispatch(u.node, hint, depth)
	if err != nil {
		return fieldInfo{}, err
	}
	if u.nullable {
		expr += unionOperator + "null"
	}
	return fieldInfo{expr: expr, optional: u.optional, description: u.desc}, nil
}

func (t *translator) dispatch(node *schema.Node, hint string, depth int) (string, error) {
	switch node.Kind {
	case schema.KindPrimitive:
		return primitiveExpr(node.Prim)

	case schema.KindLiteral:
		return literalExpr(node.Literal)

	case schema.KindObject:
		return t.translateObject(node, hint, depth)

	case schema.KindArray:
		if node.Elem == nil {
			return "", types.NewTranslationError("array schema has no element")
		}
		elem, err := t.translate(node.Elem, hint+"Item", depth+1)
		if err != nil {
			return "", err
		}
		expr := elem.expr
		if isTopLevelUnion(expr) {
			expr = "(" + expr + ")"
		}
		return expr + "[]", nil

	case schema.KindEnum, schema.KindNativeEnum:
		return t.translateEnum(node, hint)

	case schema.KindRecord:
		return t.translateRecord(node, hint, depth)

	case schema.KindUnion:
		return t.translateUnion(node, hint, depth)

	case schema.KindLazy:
		if node.Resolve == nil {
			return "", types.NewTranslationError("lazy schema has no resolver")
		}
		resolved := node.Resolve()
		if resolved == nil {
			return "", types.NewTranslationError("lazy resolver returned no schema")
		}
		info, err := t.translate(resolved, hint, depth+1)
		if err != nil {
			return "", err
		}
		return info.expr, nil

	default:
		return "", types.NewUnsupportedTypeError(string(node.Kind))
	}
}

func (t *translator) translateObject(node *schema.Node, hint string, depth int) (string, error) {
	if name, ok := t.seen[node]; ok {
		return name, nil
	}

	name := t.ctx.uniqueName(pascalCase(hint))
	t.seen[node] = name
	class := t.ctx.declareClass(name)

	fields := make([]ClassField, 0, len(node.Fields))
	for _, f := range node.Fields {
		if f.Schema == nil {
			return "", types.NewTranslationError(
				fmt.Sprintf("object field %q has no schema", f.Name)).WithPath(name)
		}
		info, err := t.translate(f.Schema, f.Name, depth+1)
		if err != nil {
			return "", err
		}
		fields = append(fields, ClassField{
			Name:        f.Name,
			Type:        info.expr,
			Optional:    info.optional,
			Description: info.description,
		})
	}
	class.Fields = fields
	return name, nil
}

// translateEnum registers a named enumeration when every value is a valid
// identifier; otherwise it registers a literal-union alias, since the
// target grammar's enum form only admits identifier-safe members.
func (t *translator) translateEnum(node *schema.Node, hint string) (string, error) {
	if len(node.Values) == 0 {
		return "", types.NewTranslationError("enum schema has no values")
	}

	allIdentifiers := true
	for _, v := range node.Values {
		if !isIdentifier(v) {
			allIdentifiers = false
			break
		}
	}

	name := t.ctx.uniqueName(pascalCase(hint))
	if allIdentifiers {
		t.ctx.declareEnum(name, node.Values)
		return name, nil
	}

	quoted := make([]string, len(node.Values))
	for i, v := range node.Values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	t.ctx.declareAlias(name, strings.Join(quoted, unionOperator))
	return name, nil
}

func (t *translator) translateRecord(node *schema.Node, hint string, depth int) (string, error) {
	keyExpr := "string"
	if node.Key != nil {
		info, err := t.translate(node.Key, hint+"Key", depth+1)
		if err != nil {
			return "", err
		}
		keyExpr = info.expr
	}

	if node.Value == nil {
		return "", types.NewTranslationError("record schema has no value type")
	}
	value, err := t.translate(node.Value, hint+"Value", depth+1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("map<%s, %s>", keyExpr, value.expr), nil
}

// translateUnion translates every option with a disambiguating hint and
// joins them. No discriminator is inferred; all options are preserved
// structurally for the downstream parser.
func (t *translator) translateUnion(node *schema.Node, hint string, depth int) (string, error) {
	if len(node.Options) == 0 {
		return "", types.NewTranslationError("union schema has no options")
	}

	parts := make([]string, 0, len(node.Options))
	for i, opt := range node.Options {
		if opt == nil {
			return "", types.NewTranslationError(
				fmt.Sprintf("union option %d is missing", i))
		}
		info, err := t.translate(opt, fmt.Sprintf("%s_%d", hint, i), depth+1)
		if err != nil {
			return "", err
		}
		parts = append(parts, info.expr)
	}
	return strings.Join(parts, unionOperator), nil
}

// unwrapped is the result of peeling a modifier chain down to a core node.
type unwrapped struct {
	node     *schema.Node
	optional bool
	nullable bool
	desc     string
}

// unwrap peels modifier wrappers, recording the optional and nullable
// flags and the outermost non-empty description. The iteration bound
// guards against malformed wrapper chains.
func unwrap(node *schema.Node) (unwrapped, error) {
	u := unwrapped{node: node}
	for i := 0; i <= maxUnwrapDepth; i++ {
		if u.node == nil {
			return u, types.NewTranslationError("modifier wrapper has no inner schema")
		}
		if u.desc == "" && u.node.Desc != "" {
			u.desc = u.node.Desc
		}

		switch u.node.Kind {
		case schema.KindOptional:
			u.optional = true
			u.node = u.node.Elem
		case schema.KindNullable:
			u.nullable = true
			u.node = u.node.Elem
		case schema.KindDefault, schema.KindCatch, schema.KindReadonly,
			schema.KindBranded, schema.KindEffects, schema.KindPipeline:
			u.node = u.node.Elem
		default:
			return u, nil
		}
	}
	return u, types.NewTranslationError(
		fmt.Sprintf("modifier unwrap budget exceeded (%d)", maxUnwrapDepth))
}

func primitiveExpr(p schema.Primitive) (string, error) {
	switch p {
	case schema.PrimString:
		return "string", nil
	case schema.PrimInt:
		return "int", nil
	case schema.PrimFloat:
		return "float", nil
	case schema.PrimBool:
		return "bool", nil
	case schema.PrimNull:
		return "null", nil
	default:
		return "", types.NewUnsupportedTypeError(fmt.Sprintf("primitive:%s", p))
	}
}

// literalExpr maps a literal constant to its underlying primitive type.
// Integral floats count as integers, matching the number-constraint rule.
func literalExpr(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return "string", nil
	case bool:
		return "bool", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int", nil
	case float32:
		if v == float32(int64(v)) {
			return "int", nil
		}
		return "float", nil
	case float64:
		if v == float64(int64(v)) {
			return "int", nil
		}
		return "float", nil
	case nil:
		return "null", nil
	default:
		return "", types.NewUnsupportedTypeError(fmt.Sprintf("literal:%T", value))
	}
}
