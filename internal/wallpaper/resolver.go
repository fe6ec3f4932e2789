package wallpaper

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bnema/wallmon/internal/config"
)

// imageExtensions are the file extensions treated as wallpaper
// candidates when listing a directory source.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Pool is the ordered set of candidate image paths for one source. A
// fixed-file source is a pool of one.
type Pool []string

// Resolve turns a config entry into a pool. Directory sources are
// listed fresh on every call so picks always reflect the directory's
// current contents. An image-less directory yields ErrEmptyPool.
func Resolve(entry config.Entry) (Pool, error) {
	info, err := os.Stat(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("wallpaper source %s: %w", entry.Path, err)
	}

	if !info.IsDir() {
		return Pool{entry.Path}, nil
	}

	entries, err := os.ReadDir(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("wallpaper source %s: %w", entry.Path, err)
	}

	var pool Pool
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			pool = append(pool, filepath.Join(entry.Path, e.Name()))
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyPool, entry.Path)
	}
	sort.Strings(pool)
	return pool, nil
}

// Pick selects a path uniformly at random. With more than one member,
// a draw equal to previous is redrawn once before a repeat is
// accepted, so back-to-back repeats stay unlikely without being
// structurally impossible. Deterministic under a seeded rng.
func (p Pool) Pick(rng *rand.Rand, previous string) string {
	if len(p) == 1 {
		return p[0]
	}
	pick := p[rng.Intn(len(p))]
	if pick == previous {
		pick = p[rng.Intn(len(p))]
	}
	return pick
}
