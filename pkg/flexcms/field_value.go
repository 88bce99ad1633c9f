package flexcms

import (
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

// sanitisePolicy is the shared HTML sanitiser applied when a definition
// marks the field sanitised.
var sanitisePolicy = bluemonday.UGCPolicy()

// Value resolves the field's full value for the given locale, with
// kind-specific shaping for image kinds.
func (f *Field) Value(locale string) any {
	switch f.def.Kind {
	case schema.KindImage:
		return f.imageValue(locale)
	case schema.KindImagelist:
		return f.imageListValue(locale)
	}
	return f.rawValue(locale)
}

// Get reads one key from the field's value. A field with no persisted
// identity reads from the schema default instead, which must be
// mapping-shaped; a scalar default under keyed access is a configuration
// defect and fails loudly.
func (f *Field) Get(locale, key string) (any, error) {
	if f.IsNew() && f.def.Default != nil {
		dm, ok := f.def.Default.(*schema.OrderedMap)
		if !ok {
			return nil, &FieldError{
				Field: f.Name,
				Op:    "get",
				Err:   fmt.Errorf("default value is %T but must be a mapping for keyed lookup", f.def.Default),
			}
		}
		return dm.Get(key), nil
	}

	switch v := f.Value(locale).(type) {
	case map[string]any:
		return v[key], nil
	case *schema.OrderedMap:
		return v.Get(key), nil
	}
	return nil, nil
}

// getString reads one key as a string, ignoring lookup errors.
func (f *Field) getString(locale, key string) string {
	v, err := f.Get(locale, key)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ParsedValue collapses the storage ambiguity between "one value" and
// "a list holding one value": a single-element positionally-indexed
// sequence yields its element, an empty sequence yields nil, anything else
// passes through unchanged.
func (f *Field) ParsedValue(locale string) any {
	return collapseSingle(f.Value(locale))
}

func collapseSingle(v any) any {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return nil
		}
		if len(t) == 1 {
			return t[0]
		}
	case map[string]any:
		if len(t) == 0 {
			return nil
		}
		if len(t) == 1 {
			// JSON round-trips sometimes persist a one-element list as a
			// mapping keyed "0".
			if single, ok := t["0"]; ok {
				return single
			}
		}
	}
	return v
}

// DisplayValue is the display-time pipeline: sanitise, then render as a
// template string when the definition allows it, then wrap as pre-escaped
// markup when HTML is allowed. The order matters; each stage feeds the
// next's expected input.
func (f *Field) DisplayValue(locale string) any {
	value := f.ParsedValue(locale)

	s, ok := value.(string)
	if !ok {
		return value
	}

	if f.def.Sanitise {
		s = sanitisePolicy.Sanitize(s)
	}

	if f.def.AllowTemplate {
		if f.renderer == nil {
			s = renderWarning(f.Name, "no template renderer is available")
		} else if rendered, err := f.renderer.RenderString(s, f); err != nil {
			s = renderWarning(f.Name, err.Error())
		} else {
			s = rendered
		}
	}

	if f.def.AllowHTML {
		return template.HTML(s)
	}
	return s
}

// renderWarning produces the visible inline warning block shown instead of
// failing the whole page when template rendering is misconfigured.
func renderWarning(fieldName, reason string) string {
	return fmt.Sprintf(
		`<div style="background: #fff3d4; border-left: 5px solid #a46a1f; padding: 1rem; margin: 1rem 0;">`+
			`Could not render field <code>%s</code> as a template: %s.</div>`,
		template.HTMLEscapeString(fieldName), template.HTMLEscapeString(reason))
}

// APIValue produces the JSON-safe export value: the parsed value for a
// non-translatable field, or a locale-keyed mapping over every stored
// translation for a translatable one.
func (f *Field) APIValue() any {
	if f.def.Kind == schema.KindImagelist {
		return f.imageListAPIValue()
	}

	if !f.IsTranslatable() {
		return jsonSafe(f.ParsedValue(""))
	}

	result := make(map[string]any, len(f.locales))
	for _, locale := range f.locales {
		result[locale] = jsonSafe(f.ParsedValue(locale))
	}
	return result
}

// jsonSafe converts internal ordered mappings into plain maps so the API
// contract stays mapping/scalar/list of JSON-safe values.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case *schema.OrderedMap:
		out := make(map[string]any, t.Len())
		for _, k := range t.Keys() {
			out[k] = jsonSafe(t.Get(k))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = jsonSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonSafe(val)
		}
		return out
	}
	return v
}
