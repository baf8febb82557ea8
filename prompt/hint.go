package prompt

import (
	"fmt"
	"strings"

	"github.com/BaSui01/schemaflow/schema"
)

// maxDescribeDepth bounds recursive descent so self-referential lazy
// schemas cannot expand forever; deeper structure renders as an ellipsis.
const maxDescribeDepth = 32

// DescribeSchema renders a schema as an inline structural description for
// prompting. The notation is intentionally simpler than the compiler
// source text: objects are brace-delimited key/type lists, arrays carry a
// trailing [] suffix, unions join with |, records use an index-signature
// form, and literals appear as constants. Optional and nullable wrappers
// peel through; a field's optionality shows as a ? on the field name.
func DescribeSchema(node *schema.Node) string {
	return describe(node, 0)
}

func describe(node *schema.Node, depth int) string {
	if node == nil {
		return "any"
	}
	if depth > maxDescribeDepth {
		return "..."
	}

	switch node.Kind {
	case schema.KindPrimitive:
		return string(node.Prim)

	case schema.KindLiteral:
		return literalConstant(node.Literal)

	case schema.KindObject:
		if len(node.Fields) == 0 {
			return "{}"
		}
		parts := make([]string, 0, len(node.Fields))
		for _, f := range node.Fields {
			name := f.Name
			if isOptional(f.Schema) {
				name += "?"
			}
			parts = append(parts, name+": "+describe(f.Schema, depth+1))
		}
		return "{ " + strings.Join(parts, ", ") + " }"

	case schema.KindArray:
		elem := describe(node.Elem, depth+1)
		if topLevelUnion(elem) {
			elem = "(" + elem + ")"
		}
		return elem + "[]"

	case schema.KindEnum, schema.KindNativeEnum:
		if len(node.Values) == 0 {
			return "string"
		}
		quoted := make([]string, len(node.Values))
		for i, v := range node.Values {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		return strings.Join(quoted, " | ")

	case schema.KindRecord:
		key := "string"
		if node.Key != nil {
			key = describe(node.Key, depth+1)
		}
		return "{ [key: " + key + "]: " + describe(node.Value, depth+1) + " }"

	case schema.KindUnion:
		parts := make([]string, 0, len(node.Options))
		for _, opt := range node.Options {
			parts = append(parts, describe(opt, depth+1))
		}
		return strings.Join(parts, " | ")

	case schema.KindLazy:
		if node.Resolve == nil {
			return "any"
		}
		return describe(node.Resolve(), depth+1)

	case schema.KindOptional, schema.KindNullable, schema.KindDefault,
		schema.KindCatch, schema.KindReadonly, schema.KindBranded,
		schema.KindEffects, schema.KindPipeline:
		return describe(node.Elem, depth+1)

	default:
		return "any"
	}
}

// BuildJSONHint wraps the structural description in a directive that
// demands JSON-only output matching the schema.
func BuildJSONHint(node *schema.Node) string {
	return "Answer exclusively with a single JSON value matching this schema:\n" +
		DescribeSchema(node) +
		"\nOutput only the JSON value itself, with no code fences, markdown, or commentary."
}

// isOptional reports whether the node's modifier chain marks it optional.
func isOptional(node *schema.Node) bool {
	for i := 0; node != nil && i < maxDescribeDepth; i++ {
		switch node.Kind {
		case schema.KindOptional:
			return true
		case schema.KindNullable, schema.KindDefault, schema.KindCatch,
			schema.KindReadonly, schema.KindBranded, schema.KindEffects,
			schema.KindPipeline:
			node = node.Elem
		default:
			return false
		}
	}
	return false
}

func literalConstant(value any) string {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case nil:
		return "null"
	default:
		return fmt.Sprint(v)
	}
}

// topLevelUnion reports whether the description contains a union operator
// outside any bracket pair, where an array suffix would bind too tightly.
func topLevelUnion(desc string) bool {
	depth := 0
	for _, r := range desc {
		switch r {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case '|':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}
