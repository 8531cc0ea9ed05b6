package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/testutil"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// writeTree creates files relative to a new temp dir and returns the dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func TestDiscover(t *testing.T) {
	root := writeTree(t, map[string]string{
		"views/b.sql":         "SELECT 1",
		"views/a.sql":         "SELECT 1",
		"procs/p.prc":         "SELECT 1",
		"procs/notes.txt":     "x",
		".git/hook.sql":       "SELECT 1",
		"archive/old.sql":     "SELECT 1",
		"views/a_backup.sql":  "SELECT 1",
		"views/nested/c.SQL":  "SELECT 1",
		"views/nested/.d.sql": "SELECT 1",
	})

	rel := func(files []string) []string {
		out := make([]string, len(files))
		for i, f := range files {
			r, err := filepath.Rel(root, f)
			require.NoError(t, err)
			out[i] = filepath.ToSlash(r)
		}
		return out
	}

	t.Run("defaults", func(t *testing.T) {
		files, err := Discover([]string{root}, Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"archive/old.sql",
			"views/a.sql",
			"views/a_backup.sql",
			"views/b.sql",
			"views/nested/c.SQL",
		}, rel(files))
	})

	t.Run("extensions and excludes", func(t *testing.T) {
		files, err := Discover([]string{root}, Options{
			Extensions: []string{".sql", ".prc"},
			Exclude:    []string{"archive", "*_backup.sql"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"procs/p.prc",
			"views/a.sql",
			"views/b.sql",
			"views/nested/c.SQL",
		}, rel(files))
	})

	t.Run("explicit file and duplicates", func(t *testing.T) {
		notes := filepath.Join(root, "procs", "notes.txt")
		files, err := Discover([]string{notes, filepath.Join(root, "views"), filepath.Join(root, "views", "a.sql")}, Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"procs/notes.txt",
			"views/a.sql",
			"views/a_backup.sql",
			"views/b.sql",
			"views/nested/c.SQL",
		}, rel(files))
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := Discover([]string{filepath.Join(root, "nope")}, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoad(t *testing.T) {
	root := writeTree(t, map[string]string{
		"dbo.refresh_sales.sql": "/*---\nowner: finance\ndefault_schema: sales\n---*/\nSELECT a FROM T",
		"named.sql":             "/*---\nname: dbo.v_named\ntags: [views]\n---*/\nSELECT b FROM U",
		"skipped.sql":           "/*---\nskip: true\n---*/\nSELECT 1",
	})

	files, err := Load([]string{root}, Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "dbo.refresh_sales", files[0].Definition.Name)
	assert.Equal(t, "sales", files[0].Definition.DefaultSchema)
	assert.Equal(t, "finance", files[0].Frontmatter.Owner)

	assert.Equal(t, "dbo.v_named", files[1].Definition.Name)
	assert.Equal(t, []string{"views"}, files[1].Frontmatter.Tags)

	defs := Definitions(files)
	require.Len(t, defs, 2)

	// The frontmatter block is a comment: line numbers match the file.
	res := lineage.ExtractSQL(defs[0].SQL, lineage.Options{})
	require.Len(t, res.Edges, 1)
	assert.Equal(t, 5, res.Edges[0].Line)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("no definitions", func(t *testing.T) {
		_, err := Load([]string{t.TempDir()}, Options{})
		assert.ErrorIs(t, err, ErrNoDefinitions)
	})

	t.Run("unknown frontmatter field names the file", func(t *testing.T) {
		root := writeTree(t, map[string]string{"bad.sql": "/*---\nmaterialized: view\n---*/\nSELECT 1"})

		_, err := Load([]string{root}, Options{})
		var fieldErr *UnknownFieldError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, "materialized", fieldErr.Field)
		assert.Contains(t, err.Error(), "bad.sql")
	})
}
