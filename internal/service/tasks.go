package service

import (
	"context"
	"log/slog"

	"kanban/internal/board"
	"kanban/internal/models"
)

// AddTaskResult is returned by AddTask.
type AddTaskResult struct {
	Board        models.Board `json:"board"`
	NewDisplayID string       `json:"newDisplayId"`
}

// GetBoard returns the project's board to a member or global admin.
func (s *Service) GetBoard(ctx context.Context, projectID string) (models.Board, error) {
	_, project, err := s.accessibleProject(ctx, projectID)
	if err != nil {
		return models.Board{}, err
	}
	return project.Board, nil
}

// MoveTask moves a task between (or within) columns.
func (s *Service) MoveTask(ctx context.Context, projectID, taskID, sourceColumnID, destColumnID string, destIndex int) (models.Board, error) {
	return s.mutateBoard(ctx, projectID, func(actor models.User, _ *models.Project, st *board.Store) error {
		if err := st.MoveTask(actor.ID, taskID, sourceColumnID, destColumnID, destIndex); err != nil {
			return err
		}
		s.logger.Debug("task moved",
			slog.String("project", projectID),
			slog.String("task", taskID),
			slog.String("from", sourceColumnID),
			slog.String("to", destColumnID),
			slog.Int("index", destIndex))
		return nil
	})
}

// AddTask creates a task at the top of columnID.
func (s *Service) AddTask(ctx context.Context, projectID, columnID string, fields board.TaskFields) (AddTaskResult, error) {
	var displayID string
	b, err := s.mutateBoard(ctx, projectID, func(actor models.User, _ *models.Project, st *board.Store) error {
		task, err := st.AddTask(actor.ID, columnID, fields)
		if err != nil {
			return err
		}
		displayID = task.DisplayID
		s.logger.Info("task created",
			slog.String("project", projectID),
			slog.String("task", task.ID),
			slog.String("display_id", task.DisplayID),
			slog.String("user", actor.ID))
		return nil
	})
	if err != nil {
		return AddTaskResult{}, err
	}
	return AddTaskResult{Board: b, NewDisplayID: displayID}, nil
}

// UpdateTask replaces a task's mutable fields, recording assignee, priority
// and due date changes in its activity log.
func (s *Service) UpdateTask(ctx context.Context, projectID string, task models.Task) (models.Board, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return models.Board{}, err
	}
	return s.mutateBoard(ctx, projectID, func(actor models.User, p *models.Project, st *board.Store) error {
		if _, err := st.UpdateTask(actor.ID, task, memberNames(users, *p)); err != nil {
			return err
		}
		s.logger.Debug("task updated", slog.String("project", projectID), slog.String("task", task.ID))
		return nil
	})
}

// DeleteTask removes a task and its column reference.
func (s *Service) DeleteTask(ctx context.Context, projectID, taskID string) (models.Board, error) {
	return s.mutateBoard(ctx, projectID, func(actor models.User, _ *models.Project, st *board.Store) error {
		if err := st.DeleteTask(taskID); err != nil {
			return err
		}
		s.logger.Info("task deleted",
			slog.String("project", projectID),
			slog.String("task", taskID),
			slog.String("user", actor.ID))
		return nil
	})
}

// AddComment appends a comment to the task's activity.
func (s *Service) AddComment(ctx context.Context, projectID, taskID, text string) (models.Board, error) {
	return s.mutateBoard(ctx, projectID, func(actor models.User, _ *models.Project, st *board.Store) error {
		return st.AddComment(actor.ID, taskID, text)
	})
}

// AddSubtask appends an open subtask.
func (s *Service) AddSubtask(ctx context.Context, projectID, taskID, title string) (models.Board, error) {
	return s.mutateBoard(ctx, projectID, func(_ models.User, _ *models.Project, st *board.Store) error {
		_, err := st.AddSubtask(taskID, title)
		return err
	})
}

// UpdateSubtask merges patch over a subtask.
func (s *Service) UpdateSubtask(ctx context.Context, projectID, taskID, subtaskID string, patch board.SubtaskPatch) (models.Board, error) {
	return s.mutateBoard(ctx, projectID, func(_ models.User, _ *models.Project, st *board.Store) error {
		return st.UpdateSubtask(taskID, subtaskID, patch)
	})
}

// DeleteSubtask removes a subtask.
func (s *Service) DeleteSubtask(ctx context.Context, projectID, taskID, subtaskID string) (models.Board, error) {
	return s.mutateBoard(ctx, projectID, func(_ models.User, _ *models.Project, st *board.Store) error {
		return st.DeleteSubtask(taskID, subtaskID)
	})
}

// AddAttachment stores an attachment on a task.
func (s *Service) AddAttachment(ctx context.Context, projectID, taskID string, att models.Attachment) (models.Board, error) {
	return s.mutateBoard(ctx, projectID, func(_ models.User, _ *models.Project, st *board.Store) error {
		_, err := st.AddAttachment(taskID, att)
		return err
	})
}

// DeleteAttachment removes an attachment from a task.
func (s *Service) DeleteAttachment(ctx context.Context, projectID, taskID, attachmentID string) (models.Board, error) {
	return s.mutateBoard(ctx, projectID, func(_ models.User, _ *models.Project, st *board.Store) error {
		return st.DeleteAttachment(taskID, attachmentID)
	})
}

// memberNames resolves user ids to names among the project's members.
func memberNames(users []models.User, p models.Project) board.NameResolver {
	names := make(map[string]string, len(p.Members))
	for _, u := range users {
		if p.IsMember(u.ID) {
			names[u.ID] = u.Name
		}
	}
	return func(id string) (string, bool) {
		name, ok := names[id]
		return name, ok
	}
}
