package flexcms

import "strings"

// ContentColumns is the fixed set of native content row columns. A resolved
// sort column outside this set sorts on a joined per-locale field value
// instead of the content row.
var ContentColumns = []string{
	"id", "author", "contentType", "status",
	"createdAt", "modifiedAt", "publishedAt", "depublishedAt",
}

// SortSpec is a resolved sort expression.
type SortSpec struct {
	Column     string
	Descending bool
	// ByField is true when Column names a content field rather than a
	// native content column, requiring a join into the translated values.
	ByField bool
}

// ResolveSort parses a sort expression. A leading "-" takes precedence and
// is stripped before suffix checks; a trailing " DESC" also sorts
// descending, " ASC" or nothing sorts ascending.
func ResolveSort(order string) SortSpec {
	order = strings.TrimSpace(order)
	spec := SortSpec{}

	switch {
	case strings.HasPrefix(order, "-"):
		spec.Descending = true
		order = strings.TrimPrefix(order, "-")
	case strings.Contains(order, " DESC"):
		spec.Descending = true
		order = strings.ReplaceAll(order, " DESC", "")
	default:
		order = strings.ReplaceAll(order, " ASC", "")
	}

	spec.Column = strings.TrimSpace(order)
	spec.ByField = !isContentColumn(spec.Column)
	return spec
}

func isContentColumn(name string) bool {
	for _, col := range ContentColumns {
		if col == name {
			return true
		}
	}
	return false
}
