package flexcms

import (
	"context"
	"fmt"
	"sort"

	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

// FilesBasePath is the public path uploaded files are served under.
const FilesBasePath = "/files/"

func imageValueBase() map[string]any {
	return map[string]any{
		"filename":  "",
		"path":      "",
		"media":     "",
		"thumbnail": "",
		"fieldname": "",
		"alt":       "",
		"url":       "",
	}
}

// imageValue merges the fixed base shape with whatever keys are stored, and
// computes path, URL and a 400x400 thumbnail once a filename is present.
func (f *Field) imageValue(locale string) map[string]any {
	value := imageValueBase()

	switch raw := f.rawValue(locale).(type) {
	case map[string]any:
		for k, v := range raw {
			value[k] = v
		}
	case *schema.OrderedMap:
		for _, k := range raw.Keys() {
			value[k] = raw.Get(k)
		}
	case []any:
		// A bare one-element list is a filename persisted as JSON noise.
		if len(raw) == 1 {
			if s, ok := raw[0].(string); ok {
				value["filename"] = s
			}
		}
	}

	// Remove the stray positional key occasionally stored alongside.
	delete(value, "0")

	value["fieldname"] = f.Name

	filename, _ := value["filename"].(string)
	if filename == "" {
		// No filename set: return the shape with placeholders.
		return value
	}

	value["path"] = FilesBasePath + filename
	value["url"] = FilesBasePath + filename
	if f.thumbs != nil {
		value["thumbnail"] = f.thumbs.Path(filename, 400, 400)
	}

	return value
}

// imageListValue hydrates each stored entry into an independent image field
// so callers get the same surface as a singular image field.
func (f *Field) imageListValue(locale string) []*Field {
	var result []*Field

	hydrate := func(key string, payload any) {
		child := NewDetachedField(key, schema.OrderedMapOf("type", string(schema.KindImage)))
		child.thumbs = f.thumbs
		child.renderer = f.renderer
		child.SetParent(f)
		child.SetValue("", payload)
		result = append(result, child)
	}

	switch raw := f.rawValue(locale).(type) {
	case []any:
		for i, payload := range raw {
			hydrate(fmt.Sprintf("%d", i), payload)
		}
	case *schema.OrderedMap:
		for _, key := range raw.Keys() {
			hydrate(key, raw.Get(key))
		}
	case map[string]any:
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			hydrate(key, raw[key])
		}
	}

	return result
}

// imageListAPIValue flattens every hydrated entry through its own APIValue,
// with the same per-locale fan-out as a scalar field when translatable.
func (f *Field) imageListAPIValue() any {
	flatten := func(locale string) []any {
		images := f.imageListValue(locale)
		values := make([]any, 0, len(images))
		for _, image := range images {
			values = append(values, image.APIValue())
		}
		return values
	}

	if !f.IsTranslatable() {
		return flatten("")
	}

	result := make(map[string]any, len(f.locales))
	for _, locale := range f.locales {
		result[locale] = flatten(locale)
	}
	return result
}

// LinkedMedia resolves the media record an image field points at, by id
// first and stored filename second. Absence yields nil, not an error.
func (f *Field) LinkedMedia(ctx context.Context, locale string, lookup MediaLookup) *Media {
	if id := f.getString(locale, "media"); id != "" {
		if m, err := lookup.MediaByID(ctx, id); err == nil {
			return m
		}
	}
	if filename := f.getString(locale, "filename"); filename != "" {
		if m, err := lookup.MediaByFilename(ctx, filename); err == nil {
			return m
		}
	}
	return nil
}

// MediaLookup resolves media references for image fields.
type MediaLookup interface {
	MediaByID(ctx context.Context, id string) (*Media, error)
	MediaByFilename(ctx context.Context, filename string) (*Media, error)
}
