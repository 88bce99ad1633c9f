package schema

// Status is the publication state of a content record.
type Status string

// Status constants (typed).
const (
	StatusPublished Status = "published"
	StatusHeld      Status = "held"
	StatusTimed     Status = "timed"
	StatusDraft     Status = "draft"
)

// Statuses returns every valid status.
func Statuses() []Status {
	return []Status{StatusPublished, StatusHeld, StatusTimed, StatusDraft}
}

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPublished, StatusHeld, StatusTimed, StatusDraft:
		return true
	}
	return false
}
