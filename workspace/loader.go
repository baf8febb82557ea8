package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/types"
)

// artifactCandidates are the artifact file names probed inside a
// workspace output directory, in priority order. The first one that
// exists is loaded; the rest are ignored.
var artifactCandidates = []string{
	"parser.so",
	"client.so",
	filepath.Join("legacy", "parser.so"),
}

// OpenFunc opens one compiled artifact file and extracts its parse
// function registry.
type OpenFunc func(path string) (Registry, error)

// Loader opens compiled parser artifacts and caches them per workspace.
// A workspace's artifact is loaded at most once per process; later calls
// return the cached registry.
type Loader struct {
	open   OpenFunc
	logger *zap.Logger

	mu     sync.Mutex
	loaded map[string]Registry
}

// NewLoader creates an artifact loader. A nil open falls back to the
// process-wide plugin opener.
func NewLoader(open OpenFunc, logger *zap.Logger) *Loader {
	if open == nil {
		open = openPlugin
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		open:   open,
		logger: logger.With(zap.String("component", "loader")),
		loaded: make(map[string]Registry),
	}
}

// Load returns the parse function registry for a compiled workspace,
// probing the candidate artifact forms in order. Open failures propagate
// unchanged; only a workspace with no candidate present at all yields an
// artifact-not-found failure.
func (l *Loader) Load(ws *Workspace) (Registry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if reg, ok := l.loaded[ws.Key]; ok {
		return reg, nil
	}

	path, ok := l.findArtifact(ws.OutputDir)
	if !ok {
		return nil, types.NewArtifactNotFoundError(ws.OutputDir)
	}

	reg, err := l.open(path)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("loaded parser artifact",
		zap.String("workspace", ws.Key),
		zap.String("artifact", path),
		zap.Int("parsers", len(reg)))

	l.loaded[ws.Key] = reg
	return reg, nil
}

func (l *Loader) findArtifact(dir string) (string, bool) {
	for _, name := range artifactCandidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// clientSymbol is the accessor convention newer artifacts expose instead
// of a flat registry variable.
type clientSymbol interface {
	Parsers() Registry
}

// openPlugin loads a compiled artifact as a Go plugin. The artifact must
// export either a Parsers registry variable or a Client value wrapping
// one.
func openPlugin(path string) (Registry, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrArtifactNotFound,
			fmt.Sprintf("artifact %s could not be opened", path)).WithCause(err)
	}

	if sym, err := p.Lookup("Parsers"); err == nil {
		switch v := sym.(type) {
		case *Registry:
			return *v, nil
		case *map[string]ParseFunc:
			return Registry(*v), nil
		}
	}

	if sym, err := p.Lookup("Client"); err == nil {
		if client, ok := sym.(clientSymbol); ok {
			return client.Parsers(), nil
		}
		if clientPtr, ok := sym.(*clientSymbol); ok && clientPtr != nil {
			return (*clientPtr).Parsers(), nil
		}
	}

	return nil, types.NewError(types.ErrArtifactNotFound,
		fmt.Sprintf("artifact %s exposes neither Parsers nor Client", path))
}
