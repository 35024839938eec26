package board

import (
	"slices"
	"time"

	"kanban/internal/models"
)

// Sentinel display values used in change entries.
const (
	Unassigned = "Unassigned"
	NoDate     = "No date"
)

// IDFunc allocates a new identifier with the given prefix, e.g. "task".
type IDFunc func(prefix string) string

// NameResolver maps a user id to a display name. It returns false when
// the id cannot be resolved.
type NameResolver func(userID string) (string, bool)

// Recorder derives and appends activity entries. Entries are appended in
// call order; readers sort by timestamp for display.
type Recorder struct {
	now   func() time.Time
	newID IDFunc
}

// NewRecorder builds a recorder using the given clock and id allocator.
func NewRecorder(now func() time.Time, newID IDFunc) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now, newID: newID}
}

func (r *Recorder) append(t *models.Task, kind models.ActivityType, userID string, details models.ActivityDetails) {
	t.Activity = append(slices.Clip(t.Activity), models.Activity{
		ID:        r.newID("act"),
		Type:      kind,
		Timestamp: r.now(),
		UserID:    userID,
		Details:   details,
	})
}

// RecordCreation appends the single CREATED entry of a new task.
func (r *Recorder) RecordCreation(t *models.Task, userID string) {
	r.append(t, models.ActivityCreated, userID, models.ActivityDetails{})
}

// RecordComment appends a COMMENT entry carrying text.
func (r *Recorder) RecordComment(t *models.Task, userID, text string) {
	r.append(t, models.ActivityComment, userID, models.ActivityDetails{Text: text})
}

// RecordStatusChange appends a STATUS_CHANGE entry between two column titles.
func (r *Recorder) RecordStatusChange(t *models.Task, userID, from, to string) {
	r.append(t, models.ActivityStatusChange, userID, models.ActivityDetails{From: from, To: to})
}

// RecordFieldChanges diffs assignee, priority and due date of old against
// next and appends one entry per changed field to next.
func (r *Recorder) RecordFieldChanges(old models.Task, next *models.Task, userID string, resolve NameResolver) {
	if old.AssigneeID != next.AssigneeID {
		r.append(next, models.ActivityAssigneeChange, userID, models.ActivityDetails{
			From: assigneeName(old.AssigneeID, resolve),
			To:   assigneeName(next.AssigneeID, resolve),
		})
	}
	if old.Priority != next.Priority {
		r.append(next, models.ActivityPriorityChange, userID, models.ActivityDetails{
			From: string(old.Priority),
			To:   string(next.Priority),
		})
	}
	if old.DueDate != next.DueDate {
		r.append(next, models.ActivityDueDateChange, userID, models.ActivityDetails{
			From: dateOrSentinel(old.DueDate),
			To:   dateOrSentinel(next.DueDate),
		})
	}
}

func assigneeName(id string, resolve NameResolver) string {
	if id == "" || resolve == nil {
		return Unassigned
	}
	if name, ok := resolve(id); ok {
		return name
	}
	return Unassigned
}

func dateOrSentinel(d string) string {
	if d == "" {
		return NoDate
	}
	return d
}
