package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*.html
var staticFS embed.FS

// FS returns an http.FileSystem for the embedded docs site.
func FS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// Expose the unrooted FS on error.
		return http.FS(staticFS)
	}
	return http.FS(sub)
}
