package board

import (
	"fmt"
	"slices"
	"strings"

	"kanban/internal/models"
)

// Subtask and attachment changes do not touch the activity log.

// AddSubtask appends an open subtask to the task.
func (s *Store) AddSubtask(taskID, title string) (models.Subtask, error) {
	task, err := s.task(taskID)
	if err != nil {
		return models.Subtask{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Subtask{}, fmt.Errorf("subtask title must not be empty: %w", models.ErrInvalidInput)
	}
	sub := models.Subtask{ID: s.newID("sub"), Title: title}
	task.Subtasks = append(slices.Clone(task.Subtasks), sub)
	s.project.Board.Tasks[taskID] = task
	return sub, nil
}

// UpdateSubtask merges patch over the subtask. An unknown subtask id is a no-op.
func (s *Store) UpdateSubtask(taskID, subtaskID string, patch SubtaskPatch) error {
	task, err := s.task(taskID)
	if err != nil {
		return err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fmt.Errorf("subtask title must not be empty: %w", models.ErrInvalidInput)
	}
	subs := slices.Clone(task.Subtasks)
	for i := range subs {
		if subs[i].ID != subtaskID {
			continue
		}
		if patch.Title != nil {
			subs[i].Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Completed != nil {
			subs[i].Completed = *patch.Completed
		}
	}
	task.Subtasks = subs
	s.project.Board.Tasks[taskID] = task
	return nil
}

// DeleteSubtask removes the subtask if present.
func (s *Store) DeleteSubtask(taskID, subtaskID string) error {
	task, err := s.task(taskID)
	if err != nil {
		return err
	}
	task.Subtasks = slices.DeleteFunc(slices.Clone(task.Subtasks), func(st models.Subtask) bool {
		return st.ID == subtaskID
	})
	s.project.Board.Tasks[taskID] = task
	return nil
}

// AddAttachment stores att on the task, assigning an id when it has none.
// An id already used on the task is rejected.
func (s *Store) AddAttachment(taskID string, att models.Attachment) (models.Attachment, error) {
	task, err := s.task(taskID)
	if err != nil {
		return models.Attachment{}, err
	}
	if strings.TrimSpace(att.Name) == "" {
		return models.Attachment{}, fmt.Errorf("attachment name must not be empty: %w", models.ErrInvalidInput)
	}
	if att.ID == "" {
		att.ID = s.newID("att")
	}
	if slices.ContainsFunc(task.Attachments, func(a models.Attachment) bool { return a.ID == att.ID }) {
		return models.Attachment{}, fmt.Errorf("attachment %q on task %q: %w", att.ID, taskID, models.ErrAlreadyExists)
	}
	task.Attachments = append(slices.Clone(task.Attachments), att)
	s.project.Board.Tasks[taskID] = task
	return att, nil
}

// DeleteAttachment removes the attachment if present.
func (s *Store) DeleteAttachment(taskID, attachmentID string) error {
	task, err := s.task(taskID)
	if err != nil {
		return err
	}
	task.Attachments = slices.DeleteFunc(slices.Clone(task.Attachments), func(a models.Attachment) bool {
		return a.ID == attachmentID
	})
	s.project.Board.Tasks[taskID] = task
	return nil
}
