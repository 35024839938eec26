// Package storagetest holds the contract tests every storage.Repository
// backend must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/models"
	"kanban/internal/storage"
)

// Factory returns a fresh, empty repository.
type Factory func(t *testing.T) storage.Repository

// Run executes the contract suite against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newRepo(t)) })
	t.Run("ProjectRoundTrip", func(t *testing.T) { testProjectRoundTrip(t, newRepo(t)) })
	t.Run("UpdateProject", func(t *testing.T) { testUpdateProject(t, newRepo(t)) })
	t.Run("InviteCodes", func(t *testing.T) { testInviteCodes(t, newRepo(t)) })
	t.Run("ListAndDelete", func(t *testing.T) { testListAndDelete(t, newRepo(t)) })
}

var created = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

// SampleProject returns a project whose board exercises every stored field.
func SampleProject(id, inviteCode string) models.Project {
	board := models.NewBoard()
	board.Tasks["task-1"] = models.Task{
		ID:          "task-1",
		DisplayID:   "ALPHA-1",
		Title:       "Write docs",
		Description: "<p>intro</p>",
		Priority:    models.PriorityHigh,
		AssigneeID:  "user-2",
		ReporterID:  "user-1",
		DueDate:     "2024-06-01",
		Subtasks: []models.Subtask{
			{ID: "sub-1", Title: "outline", Completed: true},
			{ID: "sub-2", Title: "draft"},
		},
		Attachments: []models.Attachment{
			{ID: "att-1", Name: "brief.pdf", Type: "application/pdf", Data: "JVBERi0="},
		},
		Activity: []models.Activity{
			{ID: "act-1", Type: models.ActivityCreated, Timestamp: created, UserID: "user-1"},
			{ID: "act-2", Type: models.ActivityComment, Timestamp: created.Add(time.Minute), UserID: "user-2", Details: models.ActivityDetails{Text: "on it"}},
			{ID: "act-3", Type: models.ActivityStatusChange, Timestamp: created.Add(2 * time.Minute), UserID: "user-2", Details: models.ActivityDetails{From: "To Do", To: "In Progress"}},
		},
	}
	board.Tasks["task-2"] = models.Task{
		ID:         "task-2",
		DisplayID:  "ALPHA-2",
		Title:      "Review",
		Priority:   models.PriorityLow,
		ReporterID: "user-1",
		Activity: []models.Activity{
			{ID: "act-4", Type: models.ActivityCreated, Timestamp: created, UserID: "user-1"},
		},
	}
	board.Tasks["task-3"] = models.Task{
		ID:         "task-3",
		DisplayID:  "ALPHA-3",
		Title:      "Ship",
		Priority:   models.PriorityMedium,
		ReporterID: "user-1",
		Activity: []models.Activity{
			{ID: "act-5", Type: models.ActivityCreated, Timestamp: created, UserID: "user-1"},
		},
	}
	col := board.Columns["col-2"]
	col.TaskIDs = []string{"task-3", "task-1"}
	board.Columns["col-2"] = col
	col = board.Columns["col-1"]
	col.TaskIDs = []string{"task-2"}
	board.Columns["col-1"] = col

	return models.Project{
		ID:         id,
		Name:       "Alpha Project",
		InviteCode: inviteCode,
		Members: map[string]models.Member{
			"user-1": {Role: models.RoleAdmin},
			"user-2": {Role: "backend-er"},
		},
		Board:     board,
		TaskSeq:   3,
		CreatedAt: created,
	}
}

func testUsers(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	alice := models.User{ID: "user-1", Name: "Alice", Email: "Alice@example.com", AvatarURL: "data:x", Role: models.RoleAdmin, AboutMe: "hi", ProfileBannerURL: "#4b5563"}

	require.NoError(t, repo.CreateUser(ctx, alice))
	err := repo.CreateUser(ctx, models.User{ID: "user-2", Name: "Other", Email: "alice@EXAMPLE.com"})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	got, err := repo.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	got, err = repo.FindUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)

	_, err = repo.GetUser(ctx, "user-404")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = repo.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)

	alice.Name = "Alice B."
	require.NoError(t, repo.UpdateUser(ctx, alice))
	got, err = repo.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.Name)
	assert.ErrorIs(t, repo.UpdateUser(ctx, models.User{ID: "user-404", Email: "x@y"}), models.ErrNotFound)

	require.NoError(t, repo.CreateUser(ctx, models.User{ID: "user-0", Name: "Zed", Email: "zed@example.com", Role: models.RoleMember}))
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "user-0", users[0].ID)
	assert.Equal(t, "user-1", users[1].ID)
}

func testProjectRoundTrip(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	want := SampleProject("proj-1", "JOIN-ALPH-AB12")

	require.NoError(t, repo.CreateProject(ctx, want))

	got, err := repo.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	require.NoError(t, got.Board.Validate())

	_, err = repo.GetProject(ctx, "proj-404")
	assert.ErrorIs(t, err, models.ErrNotFound)

	got.Board.Tasks["task-1"] = models.Task{ID: "task-1", Title: "mutated"}
	again, err := repo.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "Write docs", again.Board.Tasks["task-1"].Title)
}

func testUpdateProject(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, SampleProject("proj-1", "JOIN-ALPH-AB12")))

	reshape := func(p *models.Project) error {
		delete(p.Board.Tasks, "task-3")
		col := p.Board.Columns["col-2"]
		col.TaskIDs = []string{"task-1"}
		p.Board.Columns["col-2"] = col
		col = p.Board.Columns["col-3"]
		col.TaskIDs = []string{"task-2"}
		p.Board.Columns["col-3"] = col
		col = p.Board.Columns["col-1"]
		col.TaskIDs = []string{}
		p.Board.Columns["col-1"] = col
		p.Members["user-3"] = models.Member{Role: models.RoleMember}
		p.TaskSeq = 9
		return nil
	}
	want := SampleProject("proj-1", "JOIN-ALPH-AB12")
	require.NoError(t, reshape(&want))

	updated, err := repo.UpdateProject(ctx, "proj-1", reshape)
	require.NoError(t, err)
	assert.Equal(t, want, updated)
	got, err := repo.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// a failing update leaves the stored project untouched
	boom := errors.New("boom")
	_, err = repo.UpdateProject(ctx, "proj-1", func(p *models.Project) error {
		p.Name = "Renamed"
		delete(p.Board.Tasks, "task-1")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, err = repo.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	called := false
	_, err = repo.UpdateProject(ctx, "proj-404", func(*models.Project) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, called)
}

func testInviteCodes(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.CreateProject(ctx, SampleProject("proj-1", "JOIN-ALPH-AB12")))

	err := repo.CreateProject(ctx, SampleProject("proj-2", "JOIN-ALPH-AB12"))
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	got, err := repo.FindProjectByInviteCode(ctx, "JOIN-ALPH-AB12")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", got.ID)

	_, err = repo.FindProjectByInviteCode(ctx, "JOIN-NOPE-0000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testListAndDelete(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	later := SampleProject("proj-a", "JOIN-A")
	later.CreatedAt = created.Add(time.Hour)
	earlier := SampleProject("proj-b", "JOIN-B")

	require.NoError(t, repo.CreateProject(ctx, later))
	require.NoError(t, repo.CreateProject(ctx, earlier))

	projects, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "proj-b", projects[0].ID)
	assert.Equal(t, "proj-a", projects[1].ID)

	require.NoError(t, repo.DeleteProject(ctx, "proj-b"))
	assert.ErrorIs(t, repo.DeleteProject(ctx, "proj-b"), models.ErrNotFound)
	_, err = repo.GetProject(ctx, "proj-b")
	assert.ErrorIs(t, err, models.ErrNotFound)

	projects, err = repo.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "proj-a", projects[0].ID)
}
