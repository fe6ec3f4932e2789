package wallpaper

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDecoder produces fixed-size buffers and counts decode calls
// per path.
type countingDecoder struct {
	mu     sync.Mutex
	counts map[string]int
	side   int // square image edge length
	fail   map[string]error
}

func newCountingDecoder(side int) *countingDecoder {
	return &countingDecoder{counts: make(map[string]int), side: side, fail: make(map[string]error)}
}

func (d *countingDecoder) Decode(path string) (*Buffer, error) {
	d.mu.Lock()
	d.counts[path]++
	err := d.fail[path]
	d.mu.Unlock()
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	info, statErr := os.Stat(path)
	mod := time.Now()
	if statErr == nil {
		mod = info.ModTime()
	}
	return &Buffer{
		Path:    path,
		Image:   image.NewRGBA(image.Rect(0, 0, d.side, d.side)),
		ModTime: mod,
	}, nil
}

func (d *countingDecoder) count(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[path]
}

func tempImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestCacheHit(t *testing.T) {
	decoder := newCountingDecoder(2)
	cache := NewCache(decoder, 0)
	path := tempImage(t, "a.png")

	first, err := cache.Acquire(path)
	require.NoError(t, err)
	second, err := cache.Acquire(path)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, decoder.count(path))

	cache.Release(first)
	cache.Release(second)
}

func TestCacheRedecodesOnMtimeAdvance(t *testing.T) {
	decoder := newCountingDecoder(2)
	cache := NewCache(decoder, 0)
	path := tempImage(t, "a.png")

	buf, err := cache.Acquire(path)
	require.NoError(t, err)
	cache.Release(buf)

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	again, err := cache.Acquire(path)
	require.NoError(t, err)
	cache.Release(again)

	assert.Equal(t, 2, decoder.count(path))
}

func TestCacheEvictionRespectsRefsAndBudget(t *testing.T) {
	// Each 2x2 buffer is 16 bytes; the budget fits two.
	decoder := newCountingDecoder(2)
	cache := NewCache(decoder, 32)

	a := tempImage(t, "a.png")
	b := tempImage(t, "b.png")
	c := tempImage(t, "c.png")

	bufA, err := cache.Acquire(a)
	require.NoError(t, err)
	bufB, err := cache.Acquire(b)
	require.NoError(t, err)
	cache.Release(bufB)

	// Third entry pushes the cache over budget; only the unreferenced
	// b may go.
	bufC, err := cache.Acquire(c)
	require.NoError(t, err)
	assert.LessOrEqual(t, cache.Bytes(), int64(32))

	// a is still referenced and must have survived.
	again, err := cache.Acquire(a)
	require.NoError(t, err)
	assert.Same(t, bufA, again)
	assert.Equal(t, 1, decoder.count(a))

	// b was evicted and re-decodes.
	rebuilt, err := cache.Acquire(b)
	require.NoError(t, err)
	assert.Equal(t, 2, decoder.count(b))

	cache.Release(bufA)
	cache.Release(again)
	cache.Release(bufC)
	cache.Release(rebuilt)
}

func TestCacheInvalidateSkipsReferenced(t *testing.T) {
	decoder := newCountingDecoder(2)
	cache := NewCache(decoder, 0)
	path := tempImage(t, "a.png")

	buf, err := cache.Acquire(path)
	require.NoError(t, err)

	cache.Invalidate(path)
	again, err := cache.Acquire(path)
	require.NoError(t, err)
	assert.Same(t, buf, again)
	assert.Equal(t, 1, decoder.count(path))

	cache.Release(buf)
	cache.Release(again)
	cache.Invalidate(path)

	_, err = cache.Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, 2, decoder.count(path))
}

func TestCacheDecodeErrorPropagates(t *testing.T) {
	decoder := newCountingDecoder(2)
	cache := NewCache(decoder, 0)
	path := tempImage(t, "broken.png")
	decoder.fail[path] = fmt.Errorf("truncated file")

	_, err := cache.Acquire(path)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, int64(0), cache.Bytes())
}
