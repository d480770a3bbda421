package web

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// sandboxPage is the bootstrap document for the sandbox iframe. The
// importmap placeholder is filled server-side; the inline script connects
// back to the host over WebSocket and owns the in-iframe half of the
// protocol.
const sandboxPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>sketch</title>
<style>html,body{margin:0;height:100%;overflow:hidden;background:#000}canvas{display:block}</style>
<script type="importmap">{}</script>
<script type="module" src="/assets/sandbox-boot.js"></script>
</head>
<body></body>
</html>
`

// SandboxPage returns the bootstrap page template.
func SandboxPage() []byte {
	return []byte(sandboxPage)
}

// StaticHandler serves a manifest-backed asset tree, gzip-compressed, with
// content-hash ETags.
func StaticHandler(manifest *Manifest, root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if asset, ok := manifest.Lookup(r.URL.Path); ok {
			if match := r.Header.Get("If-None-Match"); match == asset.ETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", asset.ETag)
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		files.ServeHTTP(w, r)
	})
	return gzhttp.GzipHandler(inner)
}
