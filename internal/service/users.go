package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"kanban/internal/models"
)

const defaultBanner = "#4b5563"

// ProfilePatch lists the profile fields a user may change.
type ProfilePatch struct {
	Name             *string `json:"name"`
	AvatarURL        *string `json:"avatarUrl"`
	AboutMe          *string `json:"aboutMe"`
	ProfileBannerURL *string `json:"profileBannerUrl"`
}

// Register creates an account. The first account becomes the global admin.
func (s *Service) Register(ctx context.Context, name, email string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return models.User{}, fmt.Errorf("name must not be empty: %w", models.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, fmt.Errorf("email %q: %w", email, models.ErrInvalidInput)
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	_, err := s.repo.FindUserByEmail(ctx, email)
	if err == nil {
		return models.User{}, fmt.Errorf("email %q already in use: %w", email, models.ErrAlreadyExists)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.User{}, err
	}

	existing, err := s.repo.ListUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	role := models.RoleMember
	if len(existing) == 0 {
		role = models.RoleAdmin
	}

	id := s.newID("user")
	user := models.User{
		ID:               id,
		Name:             name,
		Email:            email,
		AvatarURL:        GeometricAvatar(id),
		Role:             role,
		ProfileBannerURL: defaultBanner,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return models.User{}, err
	}
	s.logger.Info("user registered", slog.String("user", id), slog.String("role", role))
	return user, nil
}

// Login looks up the account for email.
func (s *Service) Login(ctx context.Context, email string) (models.User, error) {
	return s.repo.FindUserByEmail(ctx, strings.TrimSpace(email))
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, userID string) (models.User, error) {
	return s.repo.GetUser(ctx, userID)
}

// ListUsers returns every registered user to a signed-in caller.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	if _, err := s.actor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

// UpdateProfile applies patch to userID's profile. Users edit their own
// profile; global admins may edit anyone's.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (models.User, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return models.User{}, err
	}
	if actor.ID != userID && !models.IsAdminRole(actor.Role) {
		return models.User{}, fmt.Errorf("edit profile of %q: %w", userID, models.ErrForbidden)
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.User{}, fmt.Errorf("name must not be empty: %w", models.ErrInvalidInput)
		}
		user.Name = name
	}
	if patch.AvatarURL != nil {
		user.AvatarURL = *patch.AvatarURL
	}
	if patch.AboutMe != nil {
		user.AboutMe = *patch.AboutMe
	}
	if patch.ProfileBannerURL != nil {
		user.ProfileBannerURL = *patch.ProfileBannerURL
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}
