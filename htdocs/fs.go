// Package htdocs embeds the chat and history pages.
package htdocs

import (
	"embed"
	"io/fs"
)

//go:embed *.html *.js *.css
var static embed.FS

func FS() fs.FS {
	return static
}
