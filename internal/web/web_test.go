package web

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jweese001/threejs-ide/internal/importmap"
)

const injectPage = `<!DOCTYPE html>
<html>
<head>
<script type="importmap"></script>
</head>
<body></body>
</html>`

func TestInjectImportMap(t *testing.T) {
	m := importmap.Baseline()
	m.Set("gsap", "https://cdn.jsdelivr.net/npm/gsap@3.12.5/+esm")

	out, err := InjectImportMap([]byte(injectPage), m)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `"three"`)
	assert.Contains(t, html, `"gsap"`)
	assert.Contains(t, html, "gsap@3.12.5")

	// the serialized map sits inside the placeholder tag
	start := strings.Index(html, `<script type="importmap">`)
	require.GreaterOrEqual(t, start, 0)
	assert.Contains(t, html[start:], `"imports"`)
}

func TestInjectImportMapMissingPlaceholder(t *testing.T) {
	_, err := InjectImportMap([]byte(`<html><body></body></html>`), importmap.Baseline())
	assert.Error(t, err)
}

func TestInjectImportMapDuplicatePlaceholder(t *testing.T) {
	page := `<html><head>` +
		`<script type="importmap"></script>` +
		`<script type="importmap"></script>` +
		`</head></html>`
	_, err := InjectImportMap([]byte(page), importmap.Baseline())
	assert.Error(t, err)
}

func TestBuildManifest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "js", "app.js"), []byte("export {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))

	m, err := BuildManifest(root)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"/index.html", "/js/app.js"}, m.Paths())

	a, ok := m.Lookup("/js/app.js")
	require.True(t, ok)
	assert.Equal(t, int64(len("export {}")), a.Size)
	assert.True(t, strings.HasPrefix(a.ETag, `"`) && strings.HasSuffix(a.ETag, `"`))

	_, ok = m.Lookup("/.hidden")
	assert.False(t, ok)
}

func TestManifestETagTracksContent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	m1, err := BuildManifest(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	m2, err := BuildManifest(root)
	require.NoError(t, err)

	a1, _ := m1.Lookup("/a.txt")
	a2, _ := m2.Lookup("/a.txt")
	assert.NotEqual(t, a1.ETag, a2.ETag)
}
