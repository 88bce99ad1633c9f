// Package render evaluates inline field templates and provides the HTML
// and JSON helpers used when presenting records.
package render

import (
	"fmt"
	"html/template"
	"strings"
)

// Renderer compiles and executes inline templates carried by field values.
// Templates use Go template syntax with a small helper funcmap.
type Renderer struct {
	funcs template.FuncMap
}

// NewRenderer returns a Renderer with the default helper functions.
func NewRenderer() *Renderer {
	r := &Renderer{}
	r.funcs = template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"trim":  strings.TrimSpace,
	}
	return r
}

// Funcs registers additional helpers available to rendered templates.
func (r *Renderer) Funcs(funcs template.FuncMap) {
	for name, fn := range funcs {
		r.funcs[name] = fn
	}
}

// RenderString parses and executes tpl with data bound as the template
// context, typically the field whose value carries the template.
func (r *Renderer) RenderString(tpl string, data any) (string, error) {
	t, err := template.New("inline").Funcs(r.funcs).Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("parse inline template: %w", err)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute inline template: %w", err)
	}
	return sb.String(), nil
}
