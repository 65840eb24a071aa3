package audit

import (
	"strings"
	"time"

	"minerfix-backend/models"
)

// Filter selects entries. Zero fields match everything. PageSize 0 means
// no pagination.
type Filter struct {
	UserID   string
	Action   string
	Resource string
	Category string
	Severity string
	Status   string
	Search   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

const maxPageSize = 200

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 50
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	return f
}

func (f Filter) offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Match is the in-memory form of the filter, used by the file store.
func (f Filter) Match(e models.AuditLog) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Action != "" && !strings.EqualFold(e.Action, f.Action) {
		return false
	}
	if f.Resource != "" && !strings.EqualFold(e.Resource, f.Resource) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
		return false
	}
	if f.Severity != "" && !strings.EqualFold(e.Severity, f.Severity) {
		return false
	}
	if f.Status != "" && !strings.EqualFold(e.Status, f.Status) {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.UserEmail), q) &&
			!strings.Contains(strings.ToLower(e.ResourceID), q) &&
			!strings.Contains(strings.ToLower(e.Resource), q) {
			return false
		}
	}
	return true
}
