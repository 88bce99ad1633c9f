package schema

// Kind is the domain type for field type tags. The vocabulary is closed:
// adding a field type means adding a Kind constant and a row in the
// capability table.
type Kind string

// Field kind constants (typed).
const (
	KindText          Kind = "text"
	KindTextarea      Kind = "textarea"
	KindHTML          Kind = "html"
	KindMarkdown      Kind = "markdown"
	KindSlug          Kind = "slug"
	KindFile          Kind = "file"
	KindFilelist      Kind = "filelist"
	KindImage         Kind = "image"
	KindImagelist     Kind = "imagelist"
	KindSelect        Kind = "select"
	KindNumber        Kind = "number"
	KindDate          Kind = "date"
	KindEmail         Kind = "email"
	KindEmbed         Kind = "embed"
	KindCheckbox      Kind = "checkbox"
	KindHidden        Kind = "hidden"
	KindCollection    Kind = "collection"
	KindSet           Kind = "set"
	KindRepeater      Kind = "repeater"
	KindTemplateField Kind = "templatefield"
)

// capability describes the per-kind behavior the parser and the runtime
// field resolution dispatch on.
type capability struct {
	fileLike     bool // extensions resolved against the accepted-file-types list
	imageLike    bool // extensions resolved against the image extension set
	repeating    bool // may declare nested fields
	allowsHTML   bool // allow_html defaults to true
	sanitised    bool // sanitise defaults to true
	selectValues bool // carries a values option
}

var capabilities = map[Kind]capability{
	KindText:          {sanitised: true},
	KindTextarea:      {sanitised: true},
	KindHTML:          {allowsHTML: true, sanitised: true},
	KindMarkdown:      {allowsHTML: true, sanitised: true},
	KindSlug:          {},
	KindFile:          {fileLike: true},
	KindFilelist:      {fileLike: true},
	KindImage:         {imageLike: true},
	KindImagelist:     {imageLike: true},
	KindSelect:        {selectValues: true},
	KindNumber:        {},
	KindDate:          {},
	KindEmail:         {},
	KindEmbed:         {},
	KindCheckbox:      {},
	KindHidden:        {},
	KindCollection:    {repeating: true},
	KindSet:           {repeating: true},
	KindRepeater:      {},
	KindTemplateField: {},
}

// Known reports whether k is part of the field type vocabulary.
func (k Kind) Known() bool {
	_, ok := capabilities[k]
	return ok
}

// FileLike reports whether the kind stores uploaded files and needs an
// extensions allow-list.
func (k Kind) FileLike() bool { return capabilities[k].fileLike }

// ImageLike reports whether the kind stores images.
func (k Kind) ImageLike() bool { return capabilities[k].imageLike }

// Repeating reports whether the kind may declare nested sub-fields.
func (k Kind) Repeating() bool { return capabilities[k].repeating }

// DefaultAllowHTML returns the allow_html default for the kind.
func (k Kind) DefaultAllowHTML() bool { return capabilities[k].allowsHTML }

// DefaultSanitise returns the sanitise default for the kind.
func (k Kind) DefaultSanitise() bool { return capabilities[k].sanitised }

// imageExtensions is the fixed set an image field's extensions are
// intersected with when none are declared.
var imageExtensions = []string{"gif", "jpg", "jpeg", "png", "svg"}
