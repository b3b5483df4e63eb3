//go:build ui

// Package ui embeds the built dashboard frontend. The embed only happens
// under the ui build tag so a plain `go build` works without a frontend
// build step.
package ui

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// DistFS returns the embedded dashboard filesystem rooted at dist/.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}
