// Package query implements the "set content" directive mini-language and
// the query description the repositories accept.
package query

// Query describes one content selection: which content type, filter
// predicates, ordering and paging. It is storage-agnostic; repositories
// translate it into their own query shape.
type Query struct {
	// TargetName is the template variable receiving the results.
	TargetName string
	// ContentType is the slug of the content type to select from.
	ContentType string

	Where map[string]any
	Limit int
	Order string
	Page  int

	Paging       bool
	PrintQuery   bool
	ReturnSingle bool
}
