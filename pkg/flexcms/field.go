package flexcms

import (
	"github.com/google/uuid"

	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

// Renderer renders a template string against a value. It is an external
// collaborator; a nil Renderer is tolerated and degrades to a visible
// warning block instead of failing the page.
type Renderer interface {
	RenderString(tpl string, data any) (string, error)
}

// Thumbnailer derives a thumbnail asset path for a stored filename.
type Thumbnailer interface {
	Path(filename string, width, height int) string
}

// Field is the runtime value holder for one field of a content record. Its
// definition is supplied at construction (from the schema snapshot plus the
// owning record's content type); detached usage gets an explicit mock
// definition instead of an implicit fallback.
//
// A Field is owned by exactly one record (or by the caller, when detached)
// and is not safe for concurrent use.
type Field struct {
	ID        uuid.UUID
	Name      string
	SortOrder int

	def    *schema.FieldType
	parent *Field

	// translations maps locale -> stored payload. A field that is not
	// marked translatable always resolves to the single fixed slot "";
	// every locale argument aliases that slot.
	translations map[string]any
	locales      []string

	renderer Renderer
	thumbs   Thumbnailer
}

// NewField creates a field bound to its resolved definition.
func NewField(def *schema.FieldType) *Field {
	return &Field{
		Name:         def.Name,
		def:          def,
		translations: make(map[string]any),
	}
}

// NewDetachedField creates a field with a standalone mock definition, for
// use outside any content record. The overrides mapping may set type,
// label, localize, allow_html, sanitise, allow_twig and default.
func NewDetachedField(name string, overrides *schema.OrderedMap) *Field {
	return NewField(schema.Mock(name, overrides))
}

// NewStoredField reconstructs a field from persisted state. It starts on a
// mock definition; the loader rebinds the real one before the field is
// read. Use SetTranslation to restore slots verbatim.
func NewStoredField(id uuid.UUID, name string, sortOrder int) *Field {
	f := NewDetachedField(name, nil)
	f.ID = id
	f.SortOrder = sortOrder
	return f
}

// SetTranslation stores a payload under the exact slot given, without the
// translatability aliasing SetValue applies. Persistence layers use it to
// restore rows before the real definition is bound.
func (f *Field) SetTranslation(locale string, value any) {
	if f.translations == nil {
		f.translations = make(map[string]any)
	}
	if _, ok := f.translations[locale]; !ok {
		f.locales = append(f.locales, locale)
	}
	f.translations[locale] = value
}

// Definition returns the field's bound definition.
func (f *Field) Definition() *schema.FieldType {
	return f.def
}

// Rebind replaces the bound definition. Intended for detached fields and
// for re-binding after a schema reload.
func (f *Field) Rebind(def *schema.FieldType) {
	f.def = def
}

// BindRenderer attaches the template renderer used by DisplayValue.
func (f *Field) BindRenderer(r Renderer) {
	f.renderer = r
}

// BindThumbnailer attaches the thumbnail path builder image values use.
func (f *Field) BindThumbnailer(t Thumbnailer) {
	f.thumbs = t
}

// Parent returns the enclosing repeater field, if any.
func (f *Field) Parent() *Field {
	return f.parent
}

// SetParent records the enclosing repeater field.
func (f *Field) SetParent(parent *Field) {
	f.parent = parent
}

// IsNew reports whether the field has no persisted identity yet. New fields
// resolve keyed reads from the schema default rather than stored values.
func (f *Field) IsNew() bool {
	return f.ID == uuid.Nil
}

// IsTranslatable reports whether values are stored per locale.
func (f *Field) IsTranslatable() bool {
	return f.def.IsTranslatable()
}

// DefaultValue returns the schema-configured default, or nil.
func (f *Field) DefaultValue() any {
	return f.def.Default
}

// Locales returns the locales holding a stored translation, in insertion
// order. For a non-translatable field this is at most the fixed slot "".
func (f *Field) Locales() []string {
	out := make([]string, len(f.locales))
	copy(out, f.locales)
	return out
}

// slot maps a requested locale onto the storage slot. Non-translatable
// fields alias everything to the fixed slot.
func (f *Field) slot(locale string) string {
	if !f.IsTranslatable() {
		return ""
	}
	return locale
}

// SetValue stores the full value payload for the given locale.
func (f *Field) SetValue(locale string, value any) {
	if f.translations == nil {
		f.translations = make(map[string]any)
	}
	slot := f.slot(locale)
	if _, ok := f.translations[slot]; !ok {
		f.locales = append(f.locales, slot)
	}
	f.translations[slot] = value
}

// Translation returns the payload stored under the exact slot given,
// without the aliasing rawValue applies. The counterpart of
// SetTranslation for persistence layers.
func (f *Field) Translation(locale string) any {
	return f.translations[locale]
}

// rawValue reads the stored payload for the given locale without any
// kind-specific shaping.
func (f *Field) rawValue(locale string) any {
	return f.translations[f.slot(locale)]
}

// Clone returns a copy that shares the definition but owns its own
// translation slots. Stored payloads are shared, not deep-copied; callers
// must not mutate payloads in place.
func (f *Field) Clone() *Field {
	out := &Field{
		ID:           f.ID,
		Name:         f.Name,
		SortOrder:    f.SortOrder,
		def:          f.def,
		parent:       f.parent,
		translations: make(map[string]any, len(f.translations)),
		locales:      make([]string, len(f.locales)),
		renderer:     f.renderer,
		thumbs:       f.thumbs,
	}
	for slot, v := range f.translations {
		out.translations[slot] = v
	}
	copy(out.locales, f.locales)
	return out
}
