package translate

import (
	"github.com/BaSui01/schemaflow/schema"
)

// Output ties one translation pass together: the root type expression,
// the rendered source text, and the parse-function name the generated
// parser will be looked up under.
type Output struct {
	RootType     string
	FunctionName string
	Source       string
	Context      *Context
}

// BuildSource translates a schema under rootHint and renders the
// resulting declarations. The parse-function name is derived from the
// declared root class when the root is an object, and from the hint
// otherwise.
func BuildSource(node *schema.Node, rootHint string) (*Output, error) {
	ctx := NewContext()
	rootType, err := Translate(node, ctx, rootHint)
	if err != nil {
		return nil, err
	}

	functionName := "Parse" + pascalCase(rootHint)
	if ctx.IsClass(rootType) {
		functionName = "Parse" + rootType
	}

	return &Output{
		RootType:     rootType,
		FunctionName: functionName,
		Source:       Render(ctx),
		Context:      ctx,
	}, nil
}
