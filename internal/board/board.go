// Package board applies task mutations to a single project's board while
// keeping the tasks map, the per-column task lists and the column order
// consistent.
package board

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"kanban/internal/models"
)

// TaskFields holds the caller supplied fields of a new task.
type TaskFields struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.Priority     `json:"priority"`
	AssigneeID  string              `json:"assigneeId"`
	DueDate     string              `json:"dueDate,omitempty"`
	Subtasks    []models.Subtask    `json:"subtasks,omitempty"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// SubtaskPatch is merged over an existing subtask.
type SubtaskPatch struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// Store mutates one project's board in place. Every method validates its
// inputs before writing, so a failed call leaves the project untouched.
type Store struct {
	project *models.Project
	rec     *Recorder
	newID   IDFunc
}

// New wraps project. The caller owns project and is expected to pass a copy
// when it needs to discard the result of a failed call.
func New(project *models.Project, rec *Recorder, newID IDFunc) *Store {
	if project.Board.Tasks == nil {
		project.Board.Tasks = map[string]models.Task{}
	}
	if project.Board.Columns == nil {
		project.Board.Columns = map[string]models.Column{}
	}
	return &Store{project: project, rec: rec, newID: newID}
}

// Board returns the current board.
func (s *Store) Board() models.Board {
	return s.project.Board
}

func (s *Store) task(taskID string) (models.Task, error) {
	t, ok := s.project.Board.Tasks[taskID]
	if !ok {
		return models.Task{}, fmt.Errorf("task %q: %w", taskID, models.ErrNotFound)
	}
	return t, nil
}

func (s *Store) column(columnID string) (models.Column, error) {
	c, ok := s.project.Board.Columns[columnID]
	if !ok {
		return models.Column{}, fmt.Errorf("column %q: %w", columnID, models.ErrNotFound)
	}
	return c, nil
}

// MoveTask removes taskID from the source column and inserts it into the
// destination column at destIndex, clamped to the list bounds. Moving
// between different columns records a STATUS_CHANGE.
func (s *Store) MoveTask(actor, taskID, sourceColumnID, destColumnID string, destIndex int) error {
	task, err := s.task(taskID)
	if err != nil {
		return err
	}
	src, err := s.column(sourceColumnID)
	if err != nil {
		return err
	}
	dst, err := s.column(destColumnID)
	if err != nil {
		return err
	}
	pos := slices.Index(src.TaskIDs, taskID)
	if pos < 0 {
		return fmt.Errorf("task %q in column %q: %w", taskID, sourceColumnID, models.ErrNotFound)
	}

	src.TaskIDs = slices.Delete(slices.Clone(src.TaskIDs), pos, pos+1)
	if sourceColumnID == destColumnID {
		dst = src
	}
	destIndex = max(0, min(destIndex, len(dst.TaskIDs)))
	dst.TaskIDs = slices.Insert(slices.Clone(dst.TaskIDs), destIndex, taskID)

	s.project.Board.Columns[sourceColumnID] = src
	s.project.Board.Columns[destColumnID] = dst

	if sourceColumnID != destColumnID {
		s.rec.RecordStatusChange(&task, actor, src.Title, dst.Title)
		s.project.Board.Tasks[taskID] = task
	}
	return nil
}

// AddTask creates a task at the top of columnID and returns it.
func (s *Store) AddTask(actor, columnID string, fields TaskFields) (models.Task, error) {
	col, err := s.column(columnID)
	if err != nil {
		return models.Task{}, err
	}
	if fields.Priority == "" {
		fields.Priority = models.PriorityMedium
	}
	if err := validateFields(fields.Title, fields.Priority, fields.DueDate); err != nil {
		return models.Task{}, err
	}

	taskID := s.newID("task")
	attachments, err := s.withAttachmentIDs(fields.Attachments)
	if err != nil {
		return models.Task{}, err
	}
	subtasks, err := s.withSubtaskIDs(fields.Subtasks)
	if err != nil {
		return models.Task{}, err
	}

	seq := NextDisplayNumber(s.project.Board.Tasks, s.project.Name, s.project.TaskSeq)
	task := models.Task{
		ID:          taskID,
		DisplayID:   fmt.Sprintf("%s-%d", DisplayPrefix(s.project.Name), seq),
		Title:       strings.TrimSpace(fields.Title),
		Description: fields.Description,
		Priority:    fields.Priority,
		AssigneeID:  fields.AssigneeID,
		ReporterID:  actor,
		DueDate:     fields.DueDate,
		Subtasks:    subtasks,
		Attachments: attachments,
	}
	s.rec.RecordCreation(&task, actor)

	col.TaskIDs = slices.Insert(slices.Clone(col.TaskIDs), 0, task.ID)
	s.project.Board.Columns[columnID] = col
	s.project.Board.Tasks[task.ID] = task
	s.project.TaskSeq = seq
	return task, nil
}

// DeleteTask removes the task and every column reference to it.
func (s *Store) DeleteTask(taskID string) error {
	if _, err := s.task(taskID); err != nil {
		return err
	}
	delete(s.project.Board.Tasks, taskID)
	for id, col := range s.project.Board.Columns {
		if !slices.Contains(col.TaskIDs, taskID) {
			continue
		}
		col.TaskIDs = slices.DeleteFunc(slices.Clone(col.TaskIDs), func(v string) bool { return v == taskID })
		s.project.Board.Columns[id] = col
	}
	return nil
}

// UpdateTask replaces the mutable fields of the stored task with updated.
// Identity, reporter and the activity log are kept; one activity entry is
// appended per changed assignee, priority or due date.
func (s *Store) UpdateTask(actor string, updated models.Task, resolve NameResolver) (models.Task, error) {
	old, err := s.task(updated.ID)
	if err != nil {
		return models.Task{}, err
	}
	if updated.Priority == "" {
		updated.Priority = old.Priority
	}
	if err := validateFields(updated.Title, updated.Priority, updated.DueDate); err != nil {
		return models.Task{}, err
	}

	attachments, err := s.withAttachmentIDs(updated.Attachments)
	if err != nil {
		return models.Task{}, err
	}
	subtasks, err := s.withSubtaskIDs(updated.Subtasks)
	if err != nil {
		return models.Task{}, err
	}

	next := old.Clone()
	next.Title = strings.TrimSpace(updated.Title)
	next.Description = updated.Description
	next.Priority = updated.Priority
	next.AssigneeID = updated.AssigneeID
	next.DueDate = updated.DueDate
	next.Subtasks = subtasks
	next.Attachments = attachments

	s.rec.RecordFieldChanges(old, &next, actor, resolve)
	s.project.Board.Tasks[next.ID] = next
	return next, nil
}

// AddComment appends a COMMENT entry to the task's activity.
func (s *Store) AddComment(actor, taskID, text string) error {
	task, err := s.task(taskID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("comment text: %w", models.ErrInvalidInput)
	}
	s.rec.RecordComment(&task, actor, text)
	s.project.Board.Tasks[taskID] = task
	return nil
}

func (s *Store) withAttachmentIDs(in []models.Attachment) ([]models.Attachment, error) {
	return assignIDs(in, func(a *models.Attachment) *string { return &a.ID }, func() string { return s.newID("att") }, "attachment")
}

func (s *Store) withSubtaskIDs(in []models.Subtask) ([]models.Subtask, error) {
	return assignIDs(in, func(st *models.Subtask) *string { return &st.ID }, func() string { return s.newID("sub") }, "subtask")
}

// assignIDs copies items, filling blank ids and rejecting ids that repeat.
func assignIDs[T any](items []T, idOf func(*T) *string, newID func() string, kind string) ([]T, error) {
	out := slices.Clone(items)
	seen := make(map[string]bool, len(out))
	for i := range out {
		id := idOf(&out[i])
		if *id == "" {
			*id = newID()
		}
		if seen[*id] {
			return nil, fmt.Errorf("%s id %q: %w", kind, *id, models.ErrAlreadyExists)
		}
		seen[*id] = true
	}
	return out, nil
}

func validateFields(title string, priority models.Priority, dueDate string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("task title must not be empty: %w", models.ErrInvalidInput)
	}
	if !priority.Valid() {
		return fmt.Errorf("priority %q: %w", priority, models.ErrInvalidInput)
	}
	if dueDate != "" {
		if _, err := time.Parse(models.DateLayout, dueDate); err != nil {
			return fmt.Errorf("due date %q: %w", dueDate, models.ErrInvalidInput)
		}
	}
	return nil
}
