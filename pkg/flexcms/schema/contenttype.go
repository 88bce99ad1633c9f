package schema

import "strings"

// ContentType is the normalized description of one content schema. Built
// once at configuration-load time and never mutated afterwards; a reload
// produces a fresh Set rather than patching an existing one.
type ContentType struct {
	Slug         string
	SingularSlug string
	Name         string
	SingularName string

	Fields *FieldTypes
	Groups []string

	// Taxonomy holds taxonomy-type slugs; Relations is keyed by the related
	// content type's slug, never its display name.
	Taxonomy  []string
	Relations *OrderedMap

	Order         string
	DefaultStatus Status
	TitleFormat   []string

	Singleton         bool
	Viewless          bool
	Searchable        bool
	ShowOnDashboard   bool
	ShowInMenu        bool
	AllowNumericSlugs bool

	IconOne  string
	IconMany string

	RecordTemplate  string
	ListingTemplate string

	ListingRecords int
	RecordsPerPage int

	// Locales restricts which locale codes records of this type may carry;
	// empty means unrestricted.
	Locales []string
}

// HasLocale reports whether the given locale is permitted for this type.
// An empty restriction list permits everything.
func (ct *ContentType) HasLocale(locale string) bool {
	if len(ct.Locales) == 0 {
		return true
	}
	for _, l := range ct.Locales {
		if l == locale {
			return true
		}
	}
	return false
}

// DefaultLocale returns the first declared locale, or "" when unrestricted.
func (ct *ContentType) DefaultLocale() string {
	if len(ct.Locales) == 0 {
		return ""
	}
	return ct.Locales[0]
}

// Set is the immutable snapshot of every parsed content type, keyed by
// slug in declaration order. It is safe to share across requests; reloads
// replace the whole snapshot.
type Set struct {
	slugs  []string
	bySlug map[string]*ContentType
}

func newSet() *Set {
	return &Set{bySlug: make(map[string]*ContentType)}
}

func (s *Set) add(ct *ContentType) {
	if _, ok := s.bySlug[ct.Slug]; !ok {
		s.slugs = append(s.slugs, ct.Slug)
	}
	s.bySlug[ct.Slug] = ct
}

// Get returns the content type for slug.
func (s *Set) Get(slug string) (*ContentType, bool) {
	if s == nil {
		return nil, false
	}
	ct, ok := s.bySlug[slug]
	return ct, ok
}

// BySingularSlug returns the content type whose singular slug matches.
func (s *Set) BySingularSlug(slug string) (*ContentType, bool) {
	if s == nil {
		return nil, false
	}
	for _, key := range s.slugs {
		if s.bySlug[key].SingularSlug == slug {
			return s.bySlug[key], true
		}
	}
	return nil, false
}

// Slugs returns every content type slug in declaration order.
func (s *Set) Slugs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.slugs))
	copy(out, s.slugs)
	return out
}

// All returns every content type in declaration order.
func (s *Set) All() []*ContentType {
	if s == nil {
		return nil
	}
	out := make([]*ContentType, 0, len(s.slugs))
	for _, slug := range s.slugs {
		out = append(out, s.bySlug[slug])
	}
	return out
}

// Len returns the number of content types.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.slugs)
}

// RouteRequirement returns a routing pattern alternation over every slug
// and singular slug, for URL requirements like "pages|page|entries|entry".
func (s *Set) RouteRequirement() string {
	var parts []string
	for _, ct := range s.All() {
		parts = append(parts, ct.Slug)
		if ct.SingularSlug != ct.Slug {
			parts = append(parts, ct.SingularSlug)
		}
	}
	return strings.Join(parts, "|")
}
