// Package memory provides an in-process implementation of storage.Repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"kanban/internal/models"
	"kanban/internal/storage"
)

var _ storage.Repository = (*Store)(nil)

// Store keeps users and projects in maps guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]models.User
	projects map[string]models.Project
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    map[string]models.User{},
		projects: map[string]models.Project{},
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %q: %w", user.ID, models.ErrAlreadyExists)
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %q: %w", user.Email, models.ErrAlreadyExists)
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %q: %w", id, models.ErrNotFound)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user with email %q: %w", email, models.ErrNotFound)
}

// ListUsers returns users ordered by id.
func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Store) UpdateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user %q: %w", user.ID, models.ErrNotFound)
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) CreateProject(_ context.Context, project models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; ok {
		return fmt.Errorf("project %q: %w", project.ID, models.ErrAlreadyExists)
	}
	for _, p := range s.projects {
		if p.InviteCode == project.InviteCode {
			return fmt.Errorf("invite code %q: %w", project.InviteCode, models.ErrAlreadyExists)
		}
	}
	s.projects[project.ID] = project.Clone()
	return nil
}

func (s *Store) GetProject(_ context.Context, id string) (models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, fmt.Errorf("project %q: %w", id, models.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *Store) FindProjectByInviteCode(_ context.Context, code string) (models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.projects {
		if p.InviteCode == code {
			return p.Clone(), nil
		}
	}
	return models.Project{}, fmt.Errorf("invite code %q: %w", code, models.ErrNotFound)
}

// ListProjects returns projects ordered by creation time.
func (s *Store) ListProjects(_ context.Context) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, p.Clone())
	}
	storage.SortProjects(projects)
	return projects, nil
}

func (s *Store) UpdateProject(_ context.Context, id string, fn func(*models.Project) error) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.projects[id]
	if !ok {
		return models.Project{}, fmt.Errorf("project %q: %w", id, models.ErrNotFound)
	}
	p := stored.Clone()
	if err := fn(&p); err != nil {
		return models.Project{}, err
	}
	s.projects[id] = p.Clone()
	return p, nil
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %q: %w", id, models.ErrNotFound)
	}
	delete(s.projects, id)
	return nil
}
