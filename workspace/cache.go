package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/types"
)

const (
	// SourceFileName is the rendered schema source inside a workspace.
	SourceFileName = "main.baml"

	// OutputDirName is the compiler's conventional output subdirectory.
	OutputDirName = "baml_client"
)

// CacheConfig configures the content-addressed build cache.
type CacheConfig struct {
	// Root is the shared cache directory. Empty selects a directory under
	// the system temp location.
	Root string `yaml:"root" json:"root"`
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Root: filepath.Join(os.TempDir(), "schemaflow-cache")}
}

// Workspace is one cache entry: the directory for a single rendered
// source hash, holding the source text and compiled artifacts.
type Workspace struct {
	Key        string
	Dir        string
	SourcePath string
	OutputDir  string
}

// Manager maps rendered source text onto workspace directories under the
// cache root. Entries are created lazily, never rewritten with different
// content, and never deleted here; cleanup is an operational concern.
type Manager struct {
	root   string
	logger *zap.Logger
}

// NewManager creates a workspace manager.
func NewManager(cfg CacheConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Root == "" {
		cfg.Root = DefaultCacheConfig().Root
	}
	return &Manager{
		root:   cfg.Root,
		logger: logger.With(zap.String("component", "workspace")),
	}
}

// Root returns the cache root directory.
func (m *Manager) Root() string {
	return m.root
}

// Key computes the stable content hash of rendered source text. Identical
// text always maps to the same key; any textual difference, even a
// semantically neutral one, yields a distinct entry.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:16])
}

// Workspace returns the workspace paths for a key without touching disk.
func (m *Manager) Workspace(key string) *Workspace {
	dir := filepath.Join(m.root, key)
	return &Workspace{
		Key:        key,
		Dir:        dir,
		SourcePath: filepath.Join(dir, SourceFileName),
		OutputDir:  filepath.Join(dir, OutputDirName),
	}
}

// Ensure resolves the workspace for the source text and reports whether
// its compiled artifacts already exist. On a miss the source file is
// (re)written; the write is idempotent for identical content, so
// concurrent processes racing on one key stay safe.
func (m *Manager) Ensure(source string) (*Workspace, bool, error) {
	key := Key(source)
	ws := m.Workspace(key)

	if info, err := os.Stat(ws.OutputDir); err == nil && info.IsDir() {
		m.logger.Debug("workspace cache hit",
			zap.String("key", key),
			zap.String("dir", ws.Dir))
		return ws, true, nil
	}

	if err := os.MkdirAll(ws.Dir, 0o755); err != nil {
		return nil, false, types.NewError(types.ErrCache,
			fmt.Sprintf("create workspace %s", ws.Dir)).WithCause(err)
	}
	if err := os.WriteFile(ws.SourcePath, []byte(source), 0o644); err != nil {
		return nil, false, types.NewError(types.ErrCache,
			fmt.Sprintf("write source %s", ws.SourcePath)).WithCause(err)
	}

	m.logger.Debug("workspace cache miss",
		zap.String("key", key),
		zap.Int("source_bytes", len(source)))
	return ws, false, nil
}
