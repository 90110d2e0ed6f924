// Package web holds the HTML templates and static assets. Both are
// embedded so the binary runs from any working directory.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Templates returns the page templates, rooted at the templates directory.
func Templates() fs.FS {
	return mustSub("templates")
}

// Static returns the files served under /static/.
func Static() fs.FS {
	return mustSub("static")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		// Only fails for an invalid path, which is a compile-time constant here.
		panic(err)
	}
	return sub
}
