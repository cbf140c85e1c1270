// Package site serves the embedded documentation pages under /docs/.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded documentation site routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.StripPrefix("/docs/", http.FileServer(FS()))
	mux.Handle("/docs/", files)
	mux.Handle("/docs", http.RedirectHandler("/docs/", http.StatusMovedPermanently))
}
