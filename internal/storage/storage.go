// Package storage defines the persistence contract shared by every backend.
package storage

import (
	"context"
	"sort"

	"kanban/internal/models"
)

// Repository persists users and projects. Projects are loaded and saved
// whole, board and memberships included. Implementations return copies:
// mutating a returned value never changes stored state.
//
// Lookups of absent records fail with models.ErrNotFound; CreateUser fails
// with models.ErrAlreadyExists when the email (case-insensitive) is taken.
type Repository interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) error

	CreateProject(ctx context.Context, project models.Project) error
	GetProject(ctx context.Context, id string) (models.Project, error)
	FindProjectByInviteCode(ctx context.Context, code string) (models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	// UpdateProject loads the project, applies fn and stores the result as
	// one atomic step, also against other processes sharing the store. An
	// error from fn leaves the stored project unchanged. fn must not call
	// back into the repository.
	UpdateProject(ctx context.Context, id string, fn func(*models.Project) error) (models.Project, error)
	DeleteProject(ctx context.Context, id string) error

	Close() error
}

// SortProjects orders projects by creation time, then id.
func SortProjects(projects []models.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
}
