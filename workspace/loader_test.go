package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/types"
)

// fakeOpener records which artifact paths were opened and serves a
// scripted registry or error.
type fakeOpener struct {
	opened []string
	reg    Registry
	err    error
}

func (f *fakeOpener) open(path string) (Registry, error) {
	f.opened = append(f.opened, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func compiledWorkspace(t *testing.T, artifacts ...string) *Workspace {
	t.Helper()
	mgr := NewManager(CacheConfig{Root: t.TempDir()}, nil)
	ws, _, err := mgr.Ensure("class Person {\n  name string\n}\n")
	require.NoError(t, err)
	for _, name := range artifacts {
		path := filepath.Join(ws.OutputDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("artifact"), 0o644))
	}
	return ws
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	reg := Registry{"ParsePerson": func(string) (any, error) { return nil, nil }}

	t.Run("primary artifact form is preferred", func(t *testing.T) {
		t.Parallel()
		ws := compiledWorkspace(t, "parser.so", "client.so", filepath.Join("legacy", "parser.so"))
		opener := &fakeOpener{reg: reg}

		got, err := NewLoader(opener.open, nil).Load(ws)
		require.NoError(t, err)
		assert.Contains(t, got, "ParsePerson")
		require.Len(t, opener.opened, 1)
		assert.Equal(t, filepath.Join(ws.OutputDir, "parser.so"), opener.opened[0])
	})

	t.Run("falls back through the candidate order", func(t *testing.T) {
		t.Parallel()
		ws := compiledWorkspace(t, filepath.Join("legacy", "parser.so"))
		opener := &fakeOpener{reg: reg}

		_, err := NewLoader(opener.open, nil).Load(ws)
		require.NoError(t, err)
		require.Len(t, opener.opened, 1)
		assert.Equal(t, filepath.Join(ws.OutputDir, "legacy", "parser.so"), opener.opened[0])
	})

	t.Run("no candidate at all reports artifact not found", func(t *testing.T) {
		t.Parallel()
		ws := compiledWorkspace(t)
		opener := &fakeOpener{reg: reg}

		_, err := NewLoader(opener.open, nil).Load(ws)
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrArtifactNotFound))
		assert.Empty(t, opener.opened)
	})

	t.Run("a workspace is opened at most once", func(t *testing.T) {
		t.Parallel()
		ws := compiledWorkspace(t, "parser.so")
		opener := &fakeOpener{reg: reg}
		loader := NewLoader(opener.open, nil)

		first, err := loader.Load(ws)
		require.NoError(t, err)
		second, err := loader.Load(ws)
		require.NoError(t, err)

		assert.Len(t, opener.opened, 1)
		assert.Equal(t, first.Names(), second.Names())
	})

	t.Run("open failures propagate and are not cached", func(t *testing.T) {
		t.Parallel()
		ws := compiledWorkspace(t, "parser.so")
		broken := types.NewError(types.ErrArtifactNotFound, "symbol layout mismatch")
		opener := &fakeOpener{reg: reg, err: broken}
		loader := NewLoader(opener.open, nil)

		_, err := loader.Load(ws)
		require.ErrorIs(t, err, broken)

		opener.err = nil
		_, err = loader.Load(ws)
		require.NoError(t, err)
		assert.Len(t, opener.opened, 2)
	})
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	reg := Registry{
		"ParseInvoice": func(string) (any, error) { return map[string]any{"total": 1}, nil },
	}

	t.Run("returns the registered function", func(t *testing.T) {
		t.Parallel()
		fn, err := reg.Lookup("ParseInvoice")
		require.NoError(t, err)
		v, err := fn("{}")
		require.NoError(t, err)
		assert.NotNil(t, v)
	})

	t.Run("unknown name reports artifact not found", func(t *testing.T) {
		t.Parallel()
		_, err := reg.Lookup("ParseReceipt")
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrArtifactNotFound))
		assert.Contains(t, err.Error(), "ParseReceipt")
	})
}
