package wallpaper

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wallmon/internal/config"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
}

func TestResolve(t *testing.T) {
	t.Run("regular file is a pool of one", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "fixed.png")
		fixed := filepath.Join(dir, "fixed.png")

		pool, err := Resolve(config.Entry{Path: fixed})
		require.NoError(t, err)
		assert.Equal(t, Pool{fixed}, pool)
	})

	t.Run("directory lists image files sorted", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "b.jpg", "a.png", "c.WEBP", "notes.txt", "video.mp4")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0755))

		pool, err := Resolve(config.Entry{Path: dir})
		require.NoError(t, err)
		assert.Equal(t, Pool{
			filepath.Join(dir, "a.png"),
			filepath.Join(dir, "b.jpg"),
			filepath.Join(dir, "c.WEBP"),
		}, pool)
	})

	t.Run("directory without images yields ErrEmptyPool", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "notes.txt")

		_, err := Resolve(config.Entry{Path: dir})
		assert.ErrorIs(t, err, ErrEmptyPool)
	})

	t.Run("missing source is an error", func(t *testing.T) {
		_, err := Resolve(config.Entry{Path: filepath.Join(t.TempDir(), "gone")})
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrEmptyPool))
	})
}

func TestPick(t *testing.T) {
	t.Run("single member always returned", func(t *testing.T) {
		pool := Pool{"/pics/only.png"}
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 10; i++ {
			assert.Equal(t, "/pics/only.png", pool.Pick(rng, "/pics/only.png"))
		}
	})

	t.Run("deterministic under a fixed seed", func(t *testing.T) {
		pool := Pool{"/a", "/b", "/c", "/d"}

		run := func() []string {
			rng := rand.New(rand.NewSource(42))
			var seq []string
			prev := ""
			for i := 0; i < 20; i++ {
				prev = pool.Pick(rng, prev)
				seq = append(seq, prev)
			}
			return seq
		}
		assert.Equal(t, run(), run())
	})

	t.Run("repeats only via double draw", func(t *testing.T) {
		// With two members a repeat needs the same member drawn twice
		// in a row, so repeats happen but stay the minority.
		pool := Pool{"/a", "/b"}
		rng := rand.New(rand.NewSource(7))
		repeats := 0
		prev := ""
		const n = 1000
		for i := 0; i < n; i++ {
			pick := pool.Pick(rng, prev)
			if pick == prev {
				repeats++
			}
			prev = pick
		}
		assert.Greater(t, repeats, 0)
		assert.Less(t, repeats, n/3)
	})
}
