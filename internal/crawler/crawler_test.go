package crawler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestCrawler_ScanProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pets/dog.py", []byte("class Dog:\n    pass\n"))
	writeFile(t, root, "base.py", []byte("class Animal:\n    pass\n"))
	writeFile(t, root, "notes.txt", []byte("not source"))
	writeFile(t, root, "__pycache__/stale.py", []byte("class Stale:\n    pass\n"))
	writeFile(t, root, ".git/hook.py", []byte("class Hook:\n    pass\n"))

	c := New()
	var paths []string
	err := c.ScanProject(root, func(src Source) error {
		paths = append(paths, filepath.ToSlash(src.Path))
		assert.NotEmpty(t, src.Text)
		return nil
	})
	require.NoError(t, err)

	// Lexical walk order, ignored directories pruned.
	assert.Equal(t, []string{"base.py", "pets/dog.py"}, paths)
	assert.Equal(t, "utf-8", c.Encoding())
	assert.Empty(t, c.Skipped())
}

func TestCrawler_NoSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "readme.md", []byte("nothing to scan"))

	c := New()
	err := c.ScanProject(root, func(Source) error { return nil })
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestCrawler_GBKProbe(t *testing.T) {
	root := t.TempDir()
	// "你" encoded as GBK, invalid as UTF-8.
	gbk := append([]byte(`label = "`), 0xc4, 0xe3)
	gbk = append(gbk, '"', '\n')
	writeFile(t, root, "a.py", gbk)
	writeFile(t, root, "b.py", []byte("plain = 1\n"))

	c := New()
	var texts []string
	err := c.ScanProject(root, func(src Source) error {
		texts = append(texts, string(src.Text))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "gbk", c.Encoding())
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "你")
	assert.Contains(t, texts[1], "plain = 1")
}

func TestCrawler_EncodingIsSticky(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", []byte("first = 1\n"))
	// Invalid UTF-8 in a later file does not re-probe; the file is skipped.
	writeFile(t, root, "b.py", append([]byte("second = "), 0xc4, 0xe3, '\n'))

	c := New()
	var paths []string
	err := c.ScanProject(root, func(src Source) error {
		paths = append(paths, src.Path)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "utf-8", c.Encoding())
	assert.Equal(t, []string{"a.py"}, paths)

	skipped := c.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "b.py", skipped[0].UnitPath)
	assert.Contains(t, skipped[0].Reason, "decode failed")
}

func TestCrawler_CallbackErrorAborts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", []byte("x = 1\n"))
	writeFile(t, root, "b.py", []byte("y = 2\n"))

	boom := errors.New("stop here")
	c := New()
	seen := 0
	err := c.ScanProject(root, func(Source) error {
		seen++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, seen)
}

func TestCrawler_LoadSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pets/dog.py", []byte("class Dog:\n    pass\n"))

	c := New()
	src, err := c.LoadSource(root, "pets/dog.py")
	require.NoError(t, err)
	assert.Equal(t, "pets/dog.py", src.Path)
	assert.Contains(t, string(src.Text), "class Dog")

	_, err = c.LoadSource(root, "missing.py")
	assert.Error(t, err)
}
