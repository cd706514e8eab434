// Package views embeds the page templates.
package views

import (
	"embed"
	"net/http"
)

//go:embed *.html layouts/*.html partials/*.html
var files embed.FS

// FS serves the templates to the html engine.
func FS() http.FileSystem {
	return http.FS(files)
}
