package workspace

import (
	"fmt"

	"github.com/BaSui01/schemaflow/types"
)

// ParseFunc validates raw model output against one compiled schema and
// returns the decoded value.
type ParseFunc func(raw string) (any, error)

// Registry maps generated parse function names to their implementations.
type Registry map[string]ParseFunc

// Lookup returns the parse function registered under name.
func (r Registry) Lookup(name string) (ParseFunc, error) {
	fn, ok := r[name]
	if !ok {
		return nil, types.NewError(types.ErrArtifactNotFound,
			fmt.Sprintf("compiled artifact exposes no parse function %q", name))
	}
	return fn, nil
}

// Names returns the registered parse function names in no particular order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}
