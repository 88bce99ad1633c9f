package schema

// FieldType describes one field of a content type, fully normalized: every
// optional attribute carries its computed default. Immutable once parsed;
// it lives as long as the owning ContentType.
type FieldType struct {
	Name          string
	Kind          Kind
	Label         string
	Group         string
	Hidden        bool
	Localize      bool
	AllowHTML     bool
	Sanitise      bool
	AllowTemplate bool
	// Extensions is always concrete once parsed; file and image kinds never
	// carry an empty "use the global default" marker at runtime.
	Extensions []string
	// Values holds select options as an ordered option -> label mapping.
	Values *OrderedMap
	// Default is the typed default value, mapping-shaped for keyed kinds.
	Default any
	// Uses names the fields a slug is composed from.
	Uses []string
	// Fields holds the nested definitions of repeating kinds.
	Fields *FieldTypes
}

// IsTranslatable reports whether values of this field are stored per locale.
func (ft *FieldType) IsTranslatable() bool {
	return ft != nil && ft.Localize
}

// Mock builds a standalone definition for a field detached from any content
// record, with optional overrides.
func Mock(name string, overrides *OrderedMap) *FieldType {
	ft := &FieldType{
		Name:  name,
		Kind:  KindText,
		Label: Humanize(name),
		Group: defaultGroup,
	}
	if overrides != nil {
		if t := overrides.GetString("type"); t != "" {
			ft.Kind = Kind(t)
		}
	}
	ft.AllowHTML = ft.Kind.DefaultAllowHTML()
	ft.Sanitise = ft.Kind.DefaultSanitise()
	if overrides == nil {
		return ft
	}
	if l := overrides.GetString("label"); l != "" {
		ft.Label = l
	}
	if b, ok := overrides.GetBool("localize"); ok {
		ft.Localize = b
	}
	if b, ok := overrides.GetBool("allow_html"); ok {
		ft.AllowHTML = b
	}
	if b, ok := overrides.GetBool("sanitise"); ok {
		ft.Sanitise = b
	}
	if b, ok := overrides.GetBool("allow_twig"); ok {
		ft.AllowTemplate = b
	}
	if overrides.Has("default") {
		ft.Default = overrides.Get("default")
	}
	return ft
}

// FieldTypes is an ordered collection of field definitions keyed by name.
type FieldTypes struct {
	names  []string
	byName map[string]*FieldType
}

// NewFieldTypes returns an empty collection.
func NewFieldTypes() *FieldTypes {
	return &FieldTypes{byName: make(map[string]*FieldType)}
}

// Add appends a definition, replacing any previous one with the same name
// while keeping its position.
func (f *FieldTypes) Add(ft *FieldType) {
	if f.byName == nil {
		f.byName = make(map[string]*FieldType)
	}
	if _, ok := f.byName[ft.Name]; !ok {
		f.names = append(f.names, ft.Name)
	}
	f.byName[ft.Name] = ft
}

// Remove drops a definition by name.
func (f *FieldTypes) Remove(name string) {
	if f == nil {
		return
	}
	if _, ok := f.byName[name]; !ok {
		return
	}
	delete(f.byName, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i], f.names[i+1:]...)
			break
		}
	}
}

// Get returns the definition for name.
func (f *FieldTypes) Get(name string) (*FieldType, bool) {
	if f == nil {
		return nil, false
	}
	ft, ok := f.byName[name]
	return ft, ok
}

// Has reports whether a definition exists for name.
func (f *FieldTypes) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Names returns the field names in declaration order.
func (f *FieldTypes) Names() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// All returns the definitions in declaration order.
func (f *FieldTypes) All() []*FieldType {
	if f == nil {
		return nil
	}
	out := make([]*FieldType, 0, len(f.names))
	for _, n := range f.names {
		out = append(out, f.byName[n])
	}
	return out
}

// Len returns the number of definitions.
func (f *FieldTypes) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}
