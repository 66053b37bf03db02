// Package web serves the single-page chat UI.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/index.html static/app.js static/style.css
var staticFS embed.FS

// Handler serves the embedded UI files from the site root.
func Handler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// staticFS is fixed at build time
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
