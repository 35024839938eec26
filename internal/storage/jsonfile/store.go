// Package jsonfile provides a storage.Repository backed by a single JSON
// document on disk. Every call reads the file under a file lock, and
// UpdateProject holds the exclusive lock across its whole read-modify-write,
// so several processes may share one document.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"kanban/internal/models"
	"kanban/internal/storage"
)

var _ storage.Repository = (*Store)(nil)

// document is the on-disk layout.
type document struct {
	Users    map[string]models.User    `json:"users"`
	Projects map[string]models.Project `json:"projects"`
}

// Store implements storage.Repository using a JSON file.
type Store struct {
	path     string
	lockPath string
}

// Open returns a store for path. The file is created on first write.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty store path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{path: path, lockPath: path + ".lock"}, nil
}

// Close is a no-op; the file is not held open between calls.
func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, user models.User) error {
	return s.withLockWrite(func(doc *document) error {
		if _, ok := doc.Users[user.ID]; ok {
			return fmt.Errorf("user %q: %w", user.ID, models.ErrAlreadyExists)
		}
		for _, u := range doc.Users {
			if strings.EqualFold(u.Email, user.Email) {
				return fmt.Errorf("email %q: %w", user.Email, models.ErrAlreadyExists)
			}
		}
		doc.Users[user.ID] = user
		return nil
	})
}

func (s *Store) GetUser(_ context.Context, id string) (models.User, error) {
	var user models.User
	err := s.withLock(func(doc *document) error {
		u, ok := doc.Users[id]
		if !ok {
			return fmt.Errorf("user %q: %w", id, models.ErrNotFound)
		}
		user = u
		return nil
	})
	return user, err
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	var user models.User
	err := s.withLock(func(doc *document) error {
		for _, u := range doc.Users {
			if strings.EqualFold(u.Email, email) {
				user = u
				return nil
			}
		}
		return fmt.Errorf("user with email %q: %w", email, models.ErrNotFound)
	})
	return user, err
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	var users []models.User
	err := s.withLock(func(doc *document) error {
		users = make([]models.User, 0, len(doc.Users))
		for _, u := range doc.Users {
			users = append(users, u)
		}
		sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
		return nil
	})
	return users, err
}

func (s *Store) UpdateUser(_ context.Context, user models.User) error {
	return s.withLockWrite(func(doc *document) error {
		if _, ok := doc.Users[user.ID]; !ok {
			return fmt.Errorf("user %q: %w", user.ID, models.ErrNotFound)
		}
		doc.Users[user.ID] = user
		return nil
	})
}

func (s *Store) CreateProject(_ context.Context, project models.Project) error {
	return s.withLockWrite(func(doc *document) error {
		if _, ok := doc.Projects[project.ID]; ok {
			return fmt.Errorf("project %q: %w", project.ID, models.ErrAlreadyExists)
		}
		for _, p := range doc.Projects {
			if p.InviteCode == project.InviteCode {
				return fmt.Errorf("invite code %q: %w", project.InviteCode, models.ErrAlreadyExists)
			}
		}
		doc.Projects[project.ID] = project
		return nil
	})
}

func (s *Store) GetProject(_ context.Context, id string) (models.Project, error) {
	var project models.Project
	err := s.withLock(func(doc *document) error {
		p, ok := doc.Projects[id]
		if !ok {
			return fmt.Errorf("project %q: %w", id, models.ErrNotFound)
		}
		project = p
		return nil
	})
	return project, err
}

func (s *Store) FindProjectByInviteCode(_ context.Context, code string) (models.Project, error) {
	var project models.Project
	err := s.withLock(func(doc *document) error {
		for _, p := range doc.Projects {
			if p.InviteCode == code {
				project = p
				return nil
			}
		}
		return fmt.Errorf("invite code %q: %w", code, models.ErrNotFound)
	})
	return project, err
}

func (s *Store) ListProjects(_ context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := s.withLock(func(doc *document) error {
		projects = make([]models.Project, 0, len(doc.Projects))
		for _, p := range doc.Projects {
			projects = append(projects, p)
		}
		storage.SortProjects(projects)
		return nil
	})
	return projects, err
}

func (s *Store) UpdateProject(_ context.Context, id string, fn func(*models.Project) error) (models.Project, error) {
	var project models.Project
	err := s.withLockWrite(func(doc *document) error {
		p, ok := doc.Projects[id]
		if !ok {
			return fmt.Errorf("project %q: %w", id, models.ErrNotFound)
		}
		if err := fn(&p); err != nil {
			return err
		}
		doc.Projects[id] = p
		project = p
		return nil
	})
	return project, err
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	return s.withLockWrite(func(doc *document) error {
		if _, ok := doc.Projects[id]; !ok {
			return fmt.Errorf("project %q: %w", id, models.ErrNotFound)
		}
		delete(doc.Projects, id)
		return nil
	})
}

// withLock executes fn with a shared lock on a freshly decoded document.
func (s *Store) withLock(fn func(*document) error) error {
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	doc, err := s.read()
	if err != nil {
		return err
	}
	return fn(doc)
}

// withLockWrite executes fn with an exclusive lock and writes the result.
func (s *Store) withLockWrite(fn func(*document) error) error {
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

func (s *Store) read() (*document, error) {
	doc := &document{}
	content, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read store file: %w", err)
	default:
		if err := json.Unmarshal(content, doc); err != nil {
			return nil, fmt.Errorf("parse store file: %w", err)
		}
	}
	if doc.Users == nil {
		doc.Users = map[string]models.User{}
	}
	if doc.Projects == nil {
		doc.Projects = map[string]models.Project{}
	}
	return doc, nil
}

func (s *Store) write(doc *document) error {
	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
