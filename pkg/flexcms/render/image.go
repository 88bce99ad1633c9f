package render

import (
	"fmt"
	"html/template"

	"github.com/tendant/flex-cms/pkg/flexcms"
	"github.com/tendant/flex-cms/pkg/flexcms/schema"
	"github.com/tendant/flex-cms/pkg/flexcms/thumbs"
)

// ImageHelper produces presentation markup for image values. An image may
// arrive as an image field, a mapping with a filename key, or a bare
// filename string.
type ImageHelper struct {
	thumbs *thumbs.Builder
}

// NewImageHelper returns an ImageHelper building thumbnail URLs with tb.
func NewImageHelper(tb *thumbs.Builder) *ImageHelper {
	return &ImageHelper{thumbs: tb}
}

// Popup renders a thumbnail wrapped in a link to a large rendition of the
// same image, sized for lightbox-style viewers.
func (h *ImageHelper) Popup(image any, locale string, width, height int) template.HTML {
	filename, alt := resolveImage(image, locale)
	if filename == "" {
		return ""
	}
	large := h.thumbs.Path(filename, 1000, 750)
	thumb := h.thumbs.Path(filename, width, height)
	return template.HTML(fmt.Sprintf(
		`<a href="%s" class="image-popup"><img src="%s" width="%d" height="%d" alt="%s"></a>`,
		large, thumb, width, height, template.HTMLEscapeString(alt)))
}

// ShowImage renders a plain img tag at the requested size.
func (h *ImageHelper) ShowImage(image any, locale string, width, height int) template.HTML {
	filename, alt := resolveImage(image, locale)
	if filename == "" {
		return ""
	}
	return template.HTML(fmt.Sprintf(
		`<img src="%s" width="%d" height="%d" alt="%s">`,
		h.thumbs.Path(filename, width, height), width, height,
		template.HTMLEscapeString(alt)))
}

// Thumbnail returns the thumbnail path for the image at the given size.
func (h *ImageHelper) Thumbnail(image any, locale string, width, height int, fit string) string {
	filename, _ := resolveImage(image, locale)
	if filename == "" {
		return ""
	}
	return h.thumbs.PathWithFit(filename, width, height, fit)
}

// resolveImage extracts the filename and alt text from any of the accepted
// image shapes.
func resolveImage(image any, locale string) (filename, alt string) {
	switch v := image.(type) {
	case string:
		return v, ""
	case *flexcms.Field:
		if v == nil {
			return "", ""
		}
		return resolveImage(v.Value(locale), locale)
	case map[string]any:
		filename, _ = v["filename"].(string)
		alt, _ = v["alt"].(string)
		return filename, alt
	case *schema.OrderedMap:
		if v == nil {
			return "", ""
		}
		filename, _ = v.Get("filename").(string)
		alt, _ = v.Get("alt").(string)
		return filename, alt
	}
	return "", ""
}
