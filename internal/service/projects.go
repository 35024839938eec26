package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"kanban/internal/models"
)

const (
	inviteAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteSuffixLen   = 4
	inviteNameLen     = 4
	maxInviteAttempts = 16
)

func randomInviteSuffix() string {
	var sb strings.Builder
	for range inviteSuffixLen {
		sb.WriteByte(inviteAlphabet[rand.IntN(len(inviteAlphabet))])
	}
	return sb.String()
}

// inviteCode builds a join token from the project name and a random suffix.
func inviteCode(name, suffix string) string {
	head := []rune(name)
	if len(head) > inviteNameLen {
		head = head[:inviteNameLen]
	}
	return fmt.Sprintf("JOIN-%s-%s", strings.ToUpper(string(head)), suffix)
}

// GetUserProjects returns every project for global admins and the
// projects the user is a member of otherwise. Unknown users get none.
func (s *Service) GetUserProjects(ctx context.Context, userID string) ([]models.Project, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return []models.Project{}, nil
	}
	if err != nil {
		return nil, err
	}

	all, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if models.IsAdminRole(user.Role) {
		return all, nil
	}
	projects := make([]models.Project, 0, len(all))
	for _, p := range all {
		if p.IsMember(userID) {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

// JoinProject adds userID as a Member of the project owning inviteCode.
// Joining a project twice leaves the existing membership untouched.
func (s *Service) JoinProject(ctx context.Context, userID, inviteCode string) (bool, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, fmt.Errorf("unknown user %q: %w", userID, models.ErrUnauthenticated)
		}
		return false, err
	}

	found, err := s.repo.FindProjectByInviteCode(ctx, strings.TrimSpace(inviteCode))
	if errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("%q: %w", inviteCode, models.ErrInvalidCode)
	}
	if err != nil {
		return false, err
	}

	added := false
	_, err = s.repo.UpdateProject(ctx, found.ID, func(p *models.Project) error {
		if p.IsMember(userID) {
			return nil
		}
		if p.Members == nil {
			p.Members = map[string]models.Member{}
		}
		p.Members[userID] = models.Member{Role: models.RoleMember}
		added = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("join project %q: %w", found.ID, err)
	}
	if added {
		s.logger.Info("user joined project", slog.String("project", found.ID), slog.String("user", userID))
	}
	return true, nil
}

// CreateProject creates a project with the default columns and makes the
// creator its admin.
func (s *Service) CreateProject(ctx context.Context, name, creatorUserID string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty: %w", models.ErrInvalidInput)
	}
	if _, err := s.repo.GetUser(ctx, creatorUserID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Project{}, fmt.Errorf("unknown user %q: %w", creatorUserID, models.ErrUnauthenticated)
		}
		return models.Project{}, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	code, err := s.uniqueInviteCode(ctx, name)
	if err != nil {
		return models.Project{}, err
	}
	project := models.Project{
		ID:         s.newID("proj"),
		Name:       name,
		InviteCode: code,
		Members:    map[string]models.Member{creatorUserID: {Role: models.RoleAdmin}},
		Board:      models.NewBoard(),
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}
	s.logger.Info("project created",
		slog.String("project", project.ID),
		slog.String("name", name),
		slog.String("user", creatorUserID))
	return project, nil
}

func (s *Service) uniqueInviteCode(ctx context.Context, name string) (string, error) {
	for range maxInviteAttempts {
		code := inviteCode(name, s.inviteSuffix())
		_, err := s.repo.FindProjectByInviteCode(ctx, code)
		if errors.Is(err, models.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free invite code for %q after %d attempts", name, maxInviteAttempts)
}

// UpdateMemberRole overwrites the project role of an existing member. The
// actor must be a global admin or an admin of the project.
func (s *Service) UpdateMemberRole(ctx context.Context, projectID, userID, newRole string) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}
	newRole = strings.TrimSpace(newRole)
	if newRole == "" {
		return fmt.Errorf("role must not be empty: %w", models.ErrInvalidInput)
	}

	_, err = s.repo.UpdateProject(ctx, projectID, func(p *models.Project) error {
		if !p.IsMember(userID) {
			return fmt.Errorf("member %q of project %q: %w", userID, projectID, models.ErrNotFound)
		}
		if !canAdminister(actor, *p) {
			return fmt.Errorf("user %q on project %q: %w", actor.ID, projectID, models.ErrForbidden)
		}
		p.Members[userID] = models.Member{Role: newRole}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("member role updated",
		slog.String("project", projectID),
		slog.String("user", userID),
		slog.String("role", newRole))
	return nil
}

// DeleteProject removes a project and its board.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}

	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !canAdminister(actor, project) {
		return fmt.Errorf("user %q on project %q: %w", actor.ID, projectID, models.ErrForbidden)
	}
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	s.logger.Info("project deleted", slog.String("project", projectID), slog.String("user", actor.ID))
	return nil
}

// GetProjectAssignees lists the project's members with their project role.
// Only members and global admins may list them.
func (s *Service) GetProjectAssignees(ctx context.Context, projectID string) ([]models.Assignee, error) {
	_, project, err := s.accessibleProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	assignees := []models.Assignee{}
	for _, u := range users {
		m, ok := project.Members[u.ID]
		if !ok {
			continue
		}
		u.Role = m.Role
		assignees = append(assignees, models.Assignee{User: u, Description: "Team Member"})
	}
	return assignees, nil
}
