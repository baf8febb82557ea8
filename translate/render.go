package translate

import (
	"strconv"
	"strings"
)

// Render serializes the context's declarations into schema-description
// source text. Output is deterministic for a fixed context: enum blocks
// first, then literal-union aliases, then classes, each group in
// first-encounter order. The byte-for-byte stability of this output is
// what keeps the build cache key stable across runs of an identical
// schema.
func Render(ctx *Context) string {
	if ctx.Empty() {
		return ""
	}

	var b strings.Builder

	for _, name := range ctx.enumOrder {
		b.WriteString("enum ")
		b.WriteString(name)
		b.WriteString(" {\n")
		for _, value := range ctx.enums[name] {
			b.WriteString("  ")
			b.WriteString(value)
			b.WriteString("\n")
		}
		b.WriteString("}\n\n")
	}

	for _, name := range ctx.aliasOrder {
		b.WriteString("type ")
		b.WriteString(name)
		b.WriteString(" = ")
		b.WriteString(ctx.aliases[name])
		b.WriteString("\n\n")
	}

	for _, name := range ctx.classOrder {
		class := ctx.classes[name]
		b.WriteString("class ")
		b.WriteString(name)
		b.WriteString(" {\n")
		for _, f := range class.Fields {
			b.WriteString("  ")
			b.WriteString(f.Name)
			b.WriteString(" ")
			b.WriteString(f.Type)
			if f.Optional {
				b.WriteString("?")
			}
			if f.Description != "" {
				b.WriteString(" @description(")
				b.WriteString(strconv.Quote(f.Description))
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
		b.WriteString("}\n\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
