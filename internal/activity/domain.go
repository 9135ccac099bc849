package activity

import "time"

// Entity type identifiers recorded on log entries.
const (
	EntityPeriod        = "period"
	EntityChecklistItem = "checklist_item"
	EntityEntry         = "adjusting_entry"
)

// Entry is one immutable record in the activity log. Entries are only ever
// appended; the log is the sole source of audit truth for the close engine.
type Entry struct {
	ID         int64
	PeriodID   int64
	Action     string
	EntityType string
	EntityID   string
	ActorID    int64
	Details    string
	OldValue   string
	NewValue   string
	At         time.Time
}

// Filters narrows a timeline query. Zero values mean no filter.
type Filters struct {
	Action     string
	EntityType string
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// PagingInfo carries cursor-free paging metadata for the timeline.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	NextPage int
	PrevPage int
}

// Result bundles timeline rows with paging information.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}
