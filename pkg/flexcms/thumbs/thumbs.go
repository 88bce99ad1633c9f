// Package thumbs builds derived thumbnail asset paths. Actual image
// resizing is an external collaborator; this package only agrees on the
// path contract with it.
package thumbs

import (
	"fmt"
	"strings"
)

// Fit constants accepted by the thumbnailing collaborator.
const (
	FitCrop    = "c"
	FitResize  = "r"
	FitBorder  = "b"
	FitFit     = "f"
	DefaultFit = FitCrop
)

// Builder renders thumbnail paths under a fixed base path.
type Builder struct {
	basePath string
}

// NewBuilder returns a Builder serving thumbs under basePath
// (default "/thumbs").
func NewBuilder(basePath string) *Builder {
	if basePath == "" {
		basePath = "/thumbs"
	}
	return &Builder{basePath: strings.TrimSuffix(basePath, "/")}
}

// Path returns the thumbnail path for filename at the given size with the
// default fit, e.g. "/thumbs/400x400xc/kitten.jpg".
func (b *Builder) Path(filename string, width, height int) string {
	return b.PathWithFit(filename, width, height, DefaultFit)
}

// PathWithFit is Path with an explicit fit mode.
func (b *Builder) PathWithFit(filename string, width, height int, fit string) string {
	if filename == "" {
		return ""
	}
	if width <= 0 {
		width = 400
	}
	if height <= 0 {
		height = 400
	}
	if fit == "" {
		fit = DefaultFit
	}
	filename = strings.TrimPrefix(filename, "/")
	return fmt.Sprintf("%s/%dx%dx%s/%s", b.basePath, width, height, fit, filename)
}
