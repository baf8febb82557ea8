package translate

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/schemaflow/schema"
)

// genNode draws a random schema tree with bounded depth. Structure is
// fully determined by the draw sequence, so two materializations of the
// same draws are structurally identical without sharing pointers.
func genNode(rt *rapid.T, label string, depth int) *schema.Node {
	kinds := []string{"string", "int", "float", "bool", "literal", "enum"}
	if depth < 3 {
		kinds = append(kinds, "object", "array", "union", "record", "optional", "nullable", "default")
	}

	switch rapid.SampledFrom(kinds).Draw(rt, label+"/kind") {
	case "string":
		return schema.String()
	case "int":
		return schema.Int()
	case "float":
		return schema.Float()
	case "bool":
		return schema.Bool()
	case "literal":
		return schema.LiteralOf(rapid.SampledFrom([]any{"on", true, 3, 2.5}).Draw(rt, label+"/lit"))
	case "enum":
		values := rapid.SampledFrom([][]string{
			{"Admin", "User"},
			{"North America", "Europe"},
			{"Red", "Green", "Blue"},
		}).Draw(rt, label+"/enum")
		return schema.EnumOf(values...)
	case "object":
		n := rapid.IntRange(1, 4).Draw(rt, label+"/nfields")
		fields := make([]schema.Field, 0, n)
		for i := 0; i < n; i++ {
			name := rapid.StringMatching(`[a-z][a-zA-Z]{1,6}`).Draw(rt, label+"/fname")
			fields = append(fields, schema.F(name, genNode(rt, label+"/"+name, depth+1)))
		}
		return schema.Object(fields...)
	case "array":
		return schema.Array(genNode(rt, label+"/elem", depth+1))
	case "union":
		n := rapid.IntRange(2, 3).Draw(rt, label+"/nopts")
		options := make([]*schema.Node, 0, n)
		for i := 0; i < n; i++ {
			options = append(options, genNode(rt, label+"/opt", depth+1))
		}
		return schema.Union(options...)
	case "record":
		return schema.Record(nil, genNode(rt, label+"/value", depth+1))
	case "optional":
		return genNode(rt, label+"/inner", depth+1).Optional()
	case "nullable":
		return genNode(rt, label+"/inner", depth+1).Nullable()
	default:
		return genNode(rt, label+"/inner", depth+1).Default("fallback")
	}
}

// copyNode rebuilds the tree with fresh pointers so the second
// translation cannot ride on pointer-identity memoization.
func copyNode(n *schema.Node) *schema.Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Elem = copyNode(n.Elem)
	out.Key = copyNode(n.Key)
	out.Value = copyNode(n.Value)
	out.Target = copyNode(n.Target)
	if n.Fields != nil {
		out.Fields = make([]schema.Field, len(n.Fields))
		for i, f := range n.Fields {
			out.Fields[i] = schema.Field{Name: f.Name, Schema: copyNode(f.Schema)}
		}
	}
	if n.Options != nil {
		out.Options = make([]*schema.Node, len(n.Options))
		for i, opt := range n.Options {
			out.Options[i] = copyNode(opt)
		}
	}
	if n.Values != nil {
		out.Values = append([]string(nil), n.Values...)
	}
	return &out
}

func TestProperty_TranslationDeterminism(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tree := genNode(rt, "root", 0)

		first, err := BuildSource(tree, "answer")
		require.NoError(t, err)

		second, err := BuildSource(copyNode(tree), "answer")
		require.NoError(t, err)

		require.Equal(t, first.Source, second.Source,
			"structurally identical schemas must render byte-identical source")
		require.Equal(t, first.RootType, second.RootType)
		require.Equal(t, first.FunctionName, second.FunctionName)
	})
}
