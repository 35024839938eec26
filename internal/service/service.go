// Package service exposes the board mutation API and the project registry.
// Every mutating call runs as one atomic repository update of the project,
// so concurrent callers, in this process or another sharing the store, never
// see or produce interleaved partial writes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kanban/internal/board"
	"kanban/internal/models"
	"kanban/internal/storage"
)

// Options tunes a Service. Zero values select production defaults.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	NewID  board.IDFunc
	// InviteSuffix returns the random part of a new invite code.
	InviteSuffix func() string
}

// Service implements the board mutation API on top of a storage.Repository.
type Service struct {
	repo         storage.Repository
	logger       *slog.Logger
	now          func() time.Time
	newID        board.IDFunc
	inviteSuffix func() string
	rec          *board.Recorder

	registerMu sync.Mutex
	createMu   sync.Mutex
}

// New constructs a Service.
func New(repo storage.Repository, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = func(prefix string) string { return prefix + "-" + uuid.NewString() }
	}
	if opts.InviteSuffix == nil {
		opts.InviteSuffix = randomInviteSuffix
	}
	return &Service{
		repo:         repo,
		logger:       opts.Logger,
		now:          opts.Now,
		newID:        opts.NewID,
		inviteSuffix: opts.InviteSuffix,
		rec:          board.NewRecorder(opts.Now, opts.NewID),
	}
}

type actorKey struct{}

// WithActor returns a context attributing mutations to userID.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the acting user id stored in ctx.
func ActorFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	return id, ok && id != ""
}

// actor resolves the acting user, failing with ErrUnauthenticated when the
// context carries no id or an id of an unknown user.
func (s *Service) actor(ctx context.Context) (models.User, error) {
	id, ok := ActorFrom(ctx)
	if !ok {
		return models.User{}, models.ErrUnauthenticated
	}
	user, err := s.repo.GetUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, fmt.Errorf("unknown user %q: %w", id, models.ErrUnauthenticated)
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// canAccess reports whether user may see and mutate the project's board.
func canAccess(user models.User, p models.Project) bool {
	return models.IsAdminRole(user.Role) || p.IsMember(user.ID)
}

// canAdminister reports whether user may manage the project's members.
func canAdminister(user models.User, p models.Project) bool {
	if models.IsAdminRole(user.Role) {
		return true
	}
	m, ok := p.Members[user.ID]
	return ok && models.IsAdminRole(m.Role)
}

// accessibleProject loads a project the actor may see.
func (s *Service) accessibleProject(ctx context.Context, projectID string) (models.User, models.Project, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return models.User{}, models.Project{}, err
	}
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return models.User{}, models.Project{}, err
	}
	if !canAccess(actor, project) {
		return models.User{}, models.Project{}, fmt.Errorf("user %q on project %q: %w", actor.ID, projectID, models.ErrForbidden)
	}
	return actor, project, nil
}

// mutation is applied to a private copy of the project; returning an error
// discards the copy. It runs inside the repository's update and must not
// call back into the repository.
type mutation func(actor models.User, p *models.Project, st *board.Store) error

// mutateBoard runs fn as one atomic read-modify-write of the project.
func (s *Service) mutateBoard(ctx context.Context, projectID string, fn mutation) (models.Board, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return models.Board{}, err
	}

	project, err := s.repo.UpdateProject(ctx, projectID, func(p *models.Project) error {
		if !canAccess(actor, *p) {
			return fmt.Errorf("user %q on project %q: %w", actor.ID, projectID, models.ErrForbidden)
		}
		return fn(actor, p, board.New(p, s.rec, s.newID))
	})
	if err != nil {
		return models.Board{}, err
	}
	return project.Board, nil
}
