package models

import (
	"strconv"
	"strings"
	"time"
)

// Priority ranks a task on the board.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ActivityType classifies an entry of a task's activity log.
type ActivityType string

const (
	ActivityCreated        ActivityType = "CREATED"
	ActivityStatusChange   ActivityType = "STATUS_CHANGE"
	ActivityAssigneeChange ActivityType = "ASSIGNEE_CHANGE"
	ActivityPriorityChange ActivityType = "PRIORITY_CHANGE"
	ActivityDueDateChange  ActivityType = "DUE_DATE_CHANGE"
	ActivityComment        ActivityType = "COMMENT"
)

// Global and project roles. Roles are free-form; only admin is privileged.
const (
	RoleAdmin  = "Admin"
	RoleMember = "Member"
)

// DateLayout is the calendar date format used for due dates.
const DateLayout = "2006-01-02"

// IsAdminRole reports whether role grants admin rights.
func IsAdminRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(role), RoleAdmin)
}

// ActivityDetails carries comment text or the from/to values of a change.
type ActivityDetails struct {
	Text string `json:"text,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Activity is one entry of a task's append-only audit log.
type Activity struct {
	ID        string          `json:"id"`
	Type      ActivityType    `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"userId"`
	Details   ActivityDetails `json:"details"`
}

// Subtask is a checklist item owned by a task.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Attachment is a file stored inline on a task.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// Task represents a single card on the board.
type Task struct {
	ID          string       `json:"id"`
	DisplayID   string       `json:"displayId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    Priority     `json:"priority"`
	AssigneeID  string       `json:"assigneeId"`
	ReporterID  string       `json:"reporterId"`
	DueDate     string       `json:"dueDate,omitempty"`
	Subtasks    []Subtask    `json:"subtasks,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Activity    []Activity   `json:"activity"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	out.Subtasks = cloneSlice(t.Subtasks)
	out.Attachments = cloneSlice(t.Attachments)
	out.Activity = cloneSlice(t.Activity)
	return out
}

// Column is an ordered list of task ids shown as one board lane.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	TaskIDs []string `json:"taskIds"`
}

// Board is the tasks/columns/columnOrder triple of one project.
type Board struct {
	Tasks       map[string]Task   `json:"tasks"`
	Columns     map[string]Column `json:"columns"`
	ColumnOrder []string          `json:"columnOrder"`
}

// NewBoard returns an empty board with the default To Do / In Progress / Done columns.
func NewBoard() Board {
	b := Board{
		Tasks:   map[string]Task{},
		Columns: map[string]Column{},
	}
	for i, title := range []string{"To Do", "In Progress", "Done"} {
		id := "col-" + strconv.Itoa(i+1)
		b.Columns[id] = Column{ID: id, Title: title, TaskIDs: []string{}}
		b.ColumnOrder = append(b.ColumnOrder, id)
	}
	return b
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	out := Board{
		Tasks:       make(map[string]Task, len(b.Tasks)),
		Columns:     make(map[string]Column, len(b.Columns)),
		ColumnOrder: cloneSlice(b.ColumnOrder),
	}
	for id, t := range b.Tasks {
		out.Tasks[id] = t.Clone()
	}
	for id, c := range b.Columns {
		c.TaskIDs = cloneSlice(c.TaskIDs)
		if c.TaskIDs == nil {
			c.TaskIDs = []string{}
		}
		out.Columns[id] = c
	}
	return out
}

// ColumnOf returns the id of the column listing taskID.
func (b Board) ColumnOf(taskID string) (string, bool) {
	for _, colID := range b.ColumnOrder {
		for _, id := range b.Columns[colID].TaskIDs {
			if id == taskID {
				return colID, true
			}
		}
	}
	return "", false
}

// Member is a user's membership record inside a project.
type Member struct {
	Role string `json:"role"`
}

// Project owns exactly one board and its memberships.
type Project struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	InviteCode string            `json:"inviteCode"`
	Members    map[string]Member `json:"members"`
	Board      Board             `json:"boardData"`
	TaskSeq    int               `json:"taskSeq"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	out := p
	out.Members = make(map[string]Member, len(p.Members))
	for id, m := range p.Members {
		out.Members[id] = m
	}
	out.Board = p.Board.Clone()
	return out
}

// IsMember reports whether userID belongs to the project.
func (p Project) IsMember(userID string) bool {
	_, ok := p.Members[userID]
	return ok
}

// User is a registered account.
type User struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	AvatarURL        string `json:"avatarUrl"`
	Role             string `json:"role"`
	AboutMe          string `json:"aboutMe,omitempty"`
	ProfileBannerURL string `json:"profileBannerUrl,omitempty"`
}

// Assignee is a project member with the project-scoped role.
type Assignee struct {
	User
	Description string `json:"description,omitempty"`
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
