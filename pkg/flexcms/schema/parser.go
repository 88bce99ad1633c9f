package schema

import (
	"strings"
)

// defaultGroup is the editor group fields belong to until a field switches
// the current group.
const defaultGroup = "content"

// Settings carries the process-wide fallback values the parser consults:
// listing and paging counts plus the global accepted-file-types list.
type Settings struct {
	ListingRecords  int
	RecordsPerPage  int
	AcceptFileTypes []string
}

// Parser normalizes a raw content types document into an immutable Set.
type Parser struct {
	settings Settings
	locales  []string
}

// NewParser returns a parser bound to the given settings and the permitted
// locale codes. An empty locale list means no restriction is enforced.
func NewParser(settings Settings, permittedLocales []string) *Parser {
	return &Parser{settings: settings, locales: permittedLocales}
}

// Result is a parsed snapshot plus the non-fatal warnings normalization
// produced along the way.
type Result struct {
	Set      *Set
	Warnings []Warning
}

// Parse validates and normalizes the raw document. Entries whose key starts
// with "__" are treated as comment blocks and skipped. Any invariant
// violation aborts with a *ConfigurationError naming the offending key.
func (p *Parser) Parse(doc *OrderedMap) (*Result, error) {
	res := &Result{Set: newSet()}
	seenSingular := make(map[string]string)

	for _, key := range doc.Keys() {
		raw, ok := doc.Get(key).(*OrderedMap)
		if !ok {
			continue
		}
		ct, warnings, err := p.parseContentType(key, raw)
		if err != nil {
			return nil, err
		}
		res.Warnings = append(res.Warnings, warnings...)
		if ct == nil {
			continue
		}
		if _, exists := res.Set.Get(ct.Slug); exists {
			return nil, configErrf(key, "", "slug %q is already used by another content type", ct.Slug)
		}
		if other, exists := seenSingular[ct.SingularSlug]; exists {
			return nil, configErrf(key, "", "singular slug %q is already used by content type %q", ct.SingularSlug, other)
		}
		seenSingular[ct.SingularSlug] = ct.Slug
		res.Set.add(ct)
	}

	return res, nil
}

func (p *Parser) parseContentType(key string, raw *OrderedMap) (*ContentType, []Warning, error) {
	if strings.HasPrefix(key, "__") {
		return nil, nil, nil
	}

	if !raw.Has("name") && !raw.Has("slug") {
		return nil, nil, configErrf(key, "", "neither 'name' nor 'slug' is set")
	}
	if !raw.Has("singular_name") && !raw.Has("singular_slug") {
		return nil, nil, configErrf(key, "", "neither 'singular_name' nor 'singular_slug' is set")
	}
	if !raw.Has("fields") {
		return nil, nil, configErrf(key, "", "no 'fields' are set")
	}

	ct := &ContentType{
		Slug:         raw.GetString("slug"),
		Name:         raw.GetString("name"),
		SingularSlug: raw.GetString("singular_slug"),
		SingularName: raw.GetString("singular_name"),
	}
	if ct.Slug == "" {
		ct.Slug = Slugify(ct.Name)
	}
	if ct.Name == "" {
		ct.Name = Humanize(ct.Slug)
	}
	if ct.SingularSlug == "" {
		ct.SingularSlug = Slugify(ct.SingularName)
	}
	if ct.SingularName == "" {
		ct.SingularName = Humanize(ct.SingularSlug)
	}

	ct.ShowOnDashboard = boolOr(raw, "show_on_dashboard", true)
	ct.ShowInMenu = boolOr(raw, "show_in_menu", true)

	ct.DefaultStatus = Status(raw.GetString("default_status"))
	if !ValidStatus(ct.DefaultStatus) {
		ct.DefaultStatus = StatusPublished
	}

	ct.Viewless = boolOr(raw, "viewless", false)
	ct.Searchable = boolOr(raw, "searchable", !ct.Viewless)
	// A viewless type makes no sense to search.
	if ct.Viewless {
		ct.Searchable = false
	}

	ct.IconOne = icon(raw.GetString("icon_one"), "fa-file")
	ct.IconMany = icon(raw.GetString("icon_many"), "fa-copy")

	ct.AllowNumericSlugs = boolOr(raw, "allow_numeric_slugs", false)
	ct.Singleton = boolOr(raw, "singleton", false)

	ct.RecordTemplate = raw.GetString("record_template")
	if ct.RecordTemplate == "" {
		ct.RecordTemplate = ct.SingularSlug + ".html"
	}
	ct.ListingTemplate = raw.GetString("listing_template")
	if ct.ListingTemplate == "" {
		ct.ListingTemplate = ct.Slug + ".html"
	}

	ct.ListingRecords = p.pageCount(raw, "listing_records", ct.Singleton, p.settings.ListingRecords)
	ct.RecordsPerPage = p.pageCount(raw, "records_per_page", ct.Singleton, p.settings.RecordsPerPage)

	if raw.Has("locales") {
		ct.Locales = stringList(raw.Get("locales"))
		if len(p.locales) > 0 {
			if forbidden := difference(ct.Locales, p.locales); len(forbidden) > 0 {
				return nil, nil, configErrf(key, "",
					"the %q locale(s) were requested, but permitted locales are %q",
					strings.Join(forbidden, ", "), strings.Join(p.locales, ", "))
			}
		}
	}

	fields, groups, warnings, err := p.parseFieldsAndGroups(key, raw.GetMap("fields"))
	if err != nil {
		return nil, nil, err
	}
	ct.Fields = fields
	ct.Groups = groups

	ct.Order = determineOrder(raw, fields)

	if raw.Has("title_format") {
		ct.TitleFormat = stringList(raw.Get("title_format"))
	} else if slugField, ok := fields.Get("slug"); ok && len(slugField.Uses) > 0 {
		ct.TitleFormat = slugField.Uses
	}

	ct.Taxonomy = stringList(raw.Get("taxonomy"))

	ct.Relations = NewOrderedMap()
	if rels := raw.GetMap("relations"); rels != nil {
		// Relations are keyed by the related type's slug, never its name.
		for _, relKey := range rels.Keys() {
			ct.Relations.Set(Slugify(relKey), rels.Get(relKey))
		}
	}

	if ct.Relations.Len() > 0 || len(ct.Taxonomy) > 0 {
		ct.Groups = append(ct.Groups, "Relations")
	}

	return ct, warnings, nil
}

// groupState is the accumulator for the stateful group fold: a field with
// an explicit group switches the current group for itself and every
// following field without one.
type groupState struct {
	current string
	seen    []string
	seenSet map[string]bool
}

func newGroupState() *groupState {
	return &groupState{current: defaultGroup, seenSet: make(map[string]bool)}
}

func (g *groupState) record(group string) {
	if !g.seenSet[group] {
		g.seenSet[group] = true
		g.seen = append(g.seen, group)
	}
}

// fork copies the current group into a fresh state. Repeater parsing works
// on the copy, so a group declared on a nested field never switches the
// top-level fold and never lands in the content type's group list.
func (g *groupState) fork() *groupState {
	return &groupState{current: g.current, seenSet: make(map[string]bool)}
}

func (p *Parser) parseFieldsAndGroups(ctKey string, rawFields *OrderedMap) (*FieldTypes, []string, []Warning, error) {
	if rawFields == nil {
		rawFields = NewOrderedMap()
	}

	// Even without a declared `slug` field we want one; it is hidden so the
	// editor does not show it.
	if !rawFields.Has("slug") {
		rawFields.Set("slug", OrderedMapOf("type", "slug", "hidden", true))
	}

	fields := NewFieldTypes()
	state := newGroupState()
	var warnings []Warning

	for _, key := range rawFields.Keys() {
		raw, ok := rawFields.Get(key).(*OrderedMap)
		if !ok {
			return nil, nil, nil, configErrf(ctKey, key, "field definition must be a mapping")
		}

		ft, err := p.parseField(ctKey, key, raw, state)
		if err != nil {
			return nil, nil, nil, err
		}
		state.record(ft.Group)

		if raw.Has("fields") {
			repeater, w := p.parseFieldRepeaters(ctKey, ft, raw.GetMap("fields"), state.fork())
			warnings = append(warnings, w...)
			if repeater == nil {
				continue
			}
			ft = repeater
		}

		fields.Add(ft)
	}

	return fields, state.seen, warnings, nil
}

func (p *Parser) parseField(ctKey, key string, raw *OrderedMap, state *groupState) (*FieldType, error) {
	key = SafeKey(key)

	typeTag := raw.GetString("type")
	if typeTag == "" {
		return nil, configErrf(ctKey, key, "has no 'type' set")
	}
	kind := Kind(typeTag)
	if !kind.Known() {
		return nil, configErrf(ctKey, key, "has unknown type %q", typeTag)
	}

	ft := &FieldType{Name: key, Kind: kind}

	if kind.FileLike() {
		ft.Extensions = stringList(raw.Get("extensions"))
		if len(ft.Extensions) == 0 {
			ft.Extensions = append([]string(nil), p.settings.AcceptFileTypes...)
		}
	}
	if kind.ImageLike() {
		ft.Extensions = stringList(raw.Get("extensions"))
		if len(ft.Extensions) == 0 {
			ft.Extensions = intersect(imageExtensions, p.settings.AcceptFileTypes)
		}
	}

	if kind == KindSelect {
		switch values := raw.Get("values").(type) {
		case []any:
			// Indexed lists become associative: each value labels itself.
			vm := NewOrderedMap()
			for _, v := range stringList(values) {
				vm.Set(v, v)
			}
			ft.Values = vm
		case *OrderedMap:
			ft.Values = values
		}
	}

	ft.Label = raw.GetString("label")
	if ft.Label == "" {
		ft.Label = Humanize(key)
	}

	ft.AllowHTML = boolOr(raw, "allow_html", kind.DefaultAllowHTML())
	ft.Sanitise = boolOr(raw, "sanitise", kind.DefaultSanitise())
	ft.AllowTemplate = boolOr(raw, "allow_twig", false)
	ft.Localize = boolOr(raw, "localize", false)
	ft.Hidden = boolOr(raw, "hidden", false)
	ft.Default = raw.Get("default")

	if raw.Has("uses") {
		ft.Uses = stringList(raw.Get("uses"))
	}

	if group := raw.GetString("group"); group != "" {
		state.current = group
	}
	ft.Group = state.current

	return ft, nil
}

// parseFieldRepeaters validates a field that declares nested fields. Only
// collection and set kinds may repeat; anything else is dropped entirely.
// Within a surviving repeater, nested fields whose kind is blacklisted are
// stripped. Every drop is surfaced as a Warning rather than lost silently.
func (p *Parser) parseFieldRepeaters(ctKey string, ft *FieldType, rawFields *OrderedMap, state *groupState) (*FieldType, []Warning) {
	var warnings []Warning

	if !ft.Kind.Repeating() {
		return nil, []Warning{{
			ContentType: ctKey,
			Field:       ft.Name,
			Reason:      "declares nested fields but has type " + string(ft.Kind) + "; only collection and set may repeat, field dropped",
		}}
	}

	nested := NewFieldTypes()

	for _, key := range rawFields.Keys() {
		raw, ok := rawFields.Get(key).(*OrderedMap)
		if !ok {
			warnings = append(warnings, Warning{ContentType: ctKey, Field: key, Reason: "nested field definition is not a mapping, stripped"})
			continue
		}

		nestedKind := Kind(raw.GetString("type"))
		if nestedKind == "" || blacklistedInRepeater(nestedKind) {
			warnings = append(warnings, Warning{
				ContentType: ctKey,
				Field:       key,
				Reason:      "type " + string(nestedKind) + " is not allowed inside a repeating field, stripped",
			})
			continue
		}

		child, err := p.parseField(ctKey, key, raw, state.fork())
		if err != nil {
			warnings = append(warnings, Warning{ContentType: ctKey, Field: key, Reason: err.Error() + ", stripped"})
			continue
		}

		if raw.Has("fields") {
			validated, w := p.parseFieldRepeaters(ctKey, child, raw.GetMap("fields"), state)
			warnings = append(warnings, w...)
			if validated == nil {
				continue
			}
			child = validated
		}

		nested.Add(child)
	}

	ft.Fields = nested
	return ft, warnings
}

func blacklistedInRepeater(kind Kind) bool {
	switch kind {
	case KindRepeater, KindSlug, KindTemplateField:
		return true
	}
	return false
}

// orderAliases maps legacy sort names onto the timestamp columns. The
// replacements run sequentially, so the Atat/AtAt entries clean up the
// double substitutions the earlier entries can produce.
var orderAliases = []struct{ from, to string }{
	{"created", "createdAt"},
	{"createdat", "createdAt"},
	{"datechanged", "modifiedAt"},
	{"datecreated", "createdAt"},
	{"datepublish", "publishedAt"},
	{"modified", "modifiedAt"},
	{"modifiedat", "modifiedAt"},
	{"published", "publishedAt"},
	{"publishedat", "publishedAt"},
	{"Atat", "At"},
	{"AtAt", "At"},
}

// reservedSortColumns are always sortable, declared fields aside.
var reservedSortColumns = map[string]bool{
	"createdAt":   true,
	"modifiedAt":  true,
	"publishedAt": true,
	"id":          true,
}

func determineOrder(raw *OrderedMap, fields *FieldTypes) string {
	var order string
	switch {
	case raw.Has("order"):
		order = joinOrder(raw.Get("order"))
	case raw.Has("sort"):
		// Deprecated `sort` is consulted as a fallback, then dropped.
		order = joinOrder(raw.Get("sort"))
	default:
		order = "-createdAt"
	}

	for _, alias := range orderAliases {
		order = strings.ReplaceAll(order, alias.from, alias.to)
	}

	name := strings.TrimLeft(order, "-")
	if !fields.Has(name) && !reservedSortColumns[name] {
		return "-createdAt"
	}
	return order
}

func joinOrder(v any) string {
	if list, ok := v.([]any); ok {
		return strings.Join(stringList(list), ",")
	}
	parts := stringList(v)
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

func (p *Parser) pageCount(raw *OrderedMap, key string, singleton bool, fallback int) int {
	if singleton {
		return 1
	}
	if n, ok := raw.GetInt(key); ok {
		return n
	}
	return fallback
}

func boolOr(raw *OrderedMap, key string, fallback bool) bool {
	if b, ok := raw.GetBool(key); ok {
		return b
	}
	return fallback
}

func icon(value, fallback string) string {
	if value == "" {
		return fallback
	}
	// Shorthand `fa:file` expands to `fa-file`.
	return strings.ReplaceAll(value, "fa:", "fa-")
}

// intersect keeps the members of fixed that also appear in accepted,
// preserving fixed's order.
func intersect(fixed, accepted []string) []string {
	set := make(map[string]bool, len(accepted))
	for _, ext := range accepted {
		set[ext] = true
	}
	var out []string
	for _, ext := range fixed {
		if set[ext] {
			out = append(out, ext)
		}
	}
	return out
}

func difference(values, permitted []string) []string {
	set := make(map[string]bool, len(permitted))
	for _, v := range permitted {
		set[v] = true
	}
	var out []string
	for _, v := range values {
		if !set[v] {
			out = append(out, v)
		}
	}
	return out
}
