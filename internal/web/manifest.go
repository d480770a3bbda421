package web

import (
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"golang.org/x/crypto/blake2b"
)

// Asset is one static file with its content fingerprint.
type Asset struct {
	Path string
	Size int64
	ETag string
}

// Manifest maps URL paths to fingerprinted assets.
type Manifest struct {
	root   string
	assets map[string]Asset
}

// BuildManifest walks the asset root and fingerprints every regular file.
// The short blake2b hash becomes the ETag.
func BuildManifest(root string) (*Manifest, error) {
	var mu sync.Mutex
	assets := make(map[string]Asset)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sum := blake2b.Sum256(data)

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := "/" + filepath.ToSlash(rel)

		mu.Lock()
		assets[key] = Asset{
			Path: path,
			Size: int64(len(data)),
			ETag: `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Manifest{root: root, assets: assets}, nil
}

// Lookup returns the asset for a URL path.
func (m *Manifest) Lookup(urlPath string) (Asset, bool) {
	a, ok := m.assets[urlPath]
	return a, ok
}

// Len returns the asset count.
func (m *Manifest) Len() int { return len(m.assets) }

// Paths returns every asset path, sorted.
func (m *Manifest) Paths() []string {
	out := make([]string, 0, len(m.assets))
	for k := range m.assets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
