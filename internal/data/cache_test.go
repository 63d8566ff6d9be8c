package data

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCache(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	p := filepath.Join(root, "nv.csv")
	writeFile(t, root, "nv.csv", ",1\n2020-01-02,1\n")

	c := NewFrameCache()
	first, err := c.Get(p)
	require.NoError(t, err)
	second, err := c.Get(p)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())

	writeFile(t, root, "nv.csv", ",1,2\n2020-01-02,1,2\n")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(p, later, later))

	third, err := c.Get(p)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, []string{"1", "2"}, third.Columns())

	c.Clear()
	assert.Equal(t, 0, c.Len())

	_, err = c.Get(filepath.Join(root, "missing.csv"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestNilFrameCacheReadsThrough(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "nv.csv", ",1\n2020-01-02,1\n")

	var c *FrameCache
	f, err := c.Get(filepath.Join(root, "nv.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, f.Columns())
	assert.Equal(t, 0, c.Len())
	c.Clear()
}
