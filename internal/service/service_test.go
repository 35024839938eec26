package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/board"
	"kanban/internal/models"
	"kanban/internal/storage/memory"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	repo    *memory.Store
	admin   models.User
	member  models.User
	project models.Project
}

func (f *fixture) as(u models.User) context.Context {
	return WithActor(context.Background(), u.ID)
}

func newService(t *testing.T, suffixes ...string) (*Service, *memory.Store) {
	t.Helper()
	var mu sync.Mutex
	n := 0
	ids := func(prefix string) string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
	next := 0
	suffix := func() string {
		if len(suffixes) == 0 {
			return randomInviteSuffix()
		}
		s := suffixes[min(next, len(suffixes)-1)]
		next++
		return s
	}
	repo := memory.New()
	svc := New(repo, Options{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:          func() time.Time { return testNow },
		NewID:        ids,
		InviteSuffix: suffix,
	})
	return svc, repo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc, repo := newService(t, "AAAA")
	ctx := context.Background()

	admin, err := svc.Register(ctx, "Ada Admin", "ada@example.com")
	require.NoError(t, err)
	member, err := svc.Register(ctx, "Bob", "bob@example.com")
	require.NoError(t, err)

	project, err := svc.CreateProject(ctx, "Alpha Project", member.ID)
	require.NoError(t, err)

	return &fixture{svc: svc, repo: repo, admin: admin, member: member, project: project}
}

func (f *fixture) addTask(t *testing.T, column, title string) (string, string) {
	t.Helper()
	res, err := f.svc.AddTask(f.as(f.member), f.project.ID, column, board.TaskFields{Title: title})
	require.NoError(t, err)
	for id, task := range res.Board.Tasks {
		if task.DisplayID == res.NewDisplayID {
			return id, res.NewDisplayID
		}
	}
	t.Fatalf("task %s not on board", res.NewDisplayID)
	return "", ""
}

func (f *fixture) storedBoard(t *testing.T) models.Board {
	t.Helper()
	b, err := f.svc.GetBoard(f.as(f.admin), f.project.ID)
	require.NoError(t, err)
	return b
}

func TestAddTask_DisplayIDsAreNeverReused(t *testing.T) {
	f := newFixture(t)

	firstID, first := f.addTask(t, "col-1", "one")
	_, second := f.addTask(t, "col-1", "two")
	assert.Equal(t, "ALPHA-1", first)
	assert.Equal(t, "ALPHA-2", second)

	_, err := f.svc.DeleteTask(f.as(f.member), f.project.ID, firstID)
	require.NoError(t, err)

	_, third := f.addTask(t, "col-1", "three")
	assert.Equal(t, "ALPHA-3", third)
	require.NoError(t, f.storedBoard(t).Validate())
}

func TestAddTask_RecordsReporterAndCreation(t *testing.T) {
	f := newFixture(t)
	id, _ := f.addTask(t, "col-2", "task")

	task := f.storedBoard(t).Tasks[id]
	assert.Equal(t, f.member.ID, task.ReporterID)
	require.Len(t, task.Activity, 1)
	assert.Equal(t, models.Activity{ID: task.Activity[0].ID, Type: models.ActivityCreated, Timestamp: testNow, UserID: f.member.ID}, task.Activity[0])
}

func TestAddThenDelete_LeavesNoOrphans(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "col-2", "keep")
	before := f.storedBoard(t)

	id, _ := f.addTask(t, "col-1", "temp")
	after, err := f.svc.DeleteTask(f.as(f.member), f.project.ID, id)
	require.NoError(t, err)

	assert.Len(t, after.Tasks, len(before.Tasks))
	assert.Equal(t, before.Columns, after.Columns)
	require.NoError(t, after.Validate())
}

func TestMoveTask_ActivityOnlyAcrossColumns(t *testing.T) {
	f := newFixture(t)
	a, _ := f.addTask(t, "col-1", "a")
	b, _ := f.addTask(t, "col-1", "b")

	got, err := f.svc.MoveTask(f.as(f.admin), f.project.ID, a, "col-1", "col-1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, got.Columns["col-1"].TaskIDs)
	assert.Len(t, got.Tasks[a].Activity, 1)

	got, err = f.svc.MoveTask(f.as(f.admin), f.project.ID, a, "col-1", "col-3", 0)
	require.NoError(t, err)
	activity := got.Tasks[a].Activity
	require.Len(t, activity, 2)
	assert.Equal(t, models.ActivityStatusChange, activity[1].Type)
	assert.Equal(t, f.admin.ID, activity[1].UserID)
	assert.Equal(t, models.ActivityDetails{From: "To Do", To: "Done"}, activity[1].Details)
	assert.Equal(t, got, f.storedBoard(t))
}

func TestMoveTask_StaleSourceLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	a, _ := f.addTask(t, "col-1", "a")
	_, err := f.svc.MoveTask(f.as(f.member), f.project.ID, a, "col-1", "col-2", 0)
	require.NoError(t, err)
	before := f.storedBoard(t)

	_, err = f.svc.MoveTask(f.as(f.member), f.project.ID, a, "col-1", "col-2", 0)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, before, f.storedBoard(t))
}

func TestUpdateTask_Activity(t *testing.T) {
	f := newFixture(t)
	id, _ := f.addTask(t, "col-1", "task")
	task := f.storedBoard(t).Tasks[id]

	task.Title = "renamed"
	got, err := f.svc.UpdateTask(f.as(f.member), f.project.ID, task)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Tasks[id].Title)
	assert.Len(t, got.Tasks[id].Activity, 1)

	task = got.Tasks[id]
	task.AssigneeID = f.member.ID
	task.Priority = models.PriorityLow
	task.DueDate = "2024-02-29"
	got, err = f.svc.UpdateTask(f.as(f.member), f.project.ID, task)
	require.NoError(t, err)

	activity := got.Tasks[id].Activity
	require.Len(t, activity, 4)
	assert.Equal(t, models.ActivityAssigneeChange, activity[1].Type)
	assert.Equal(t, models.ActivityDetails{From: "Unassigned", To: "Bob"}, activity[1].Details)
	assert.Equal(t, models.ActivityPriorityChange, activity[2].Type)
	assert.Equal(t, models.ActivityDetails{From: "MEDIUM", To: "LOW"}, activity[2].Details)
	assert.Equal(t, models.ActivityDueDateChange, activity[3].Type)
	assert.Equal(t, models.ActivityDetails{From: "No date", To: "2024-02-29"}, activity[3].Details)
}

func TestUpdateTask_NonMemberAssigneeResolvesToUnassigned(t *testing.T) {
	f := newFixture(t)
	id, _ := f.addTask(t, "col-1", "task")
	task := f.storedBoard(t).Tasks[id]

	// the global admin is not a member of the project
	task.AssigneeID = f.admin.ID
	got, err := f.svc.UpdateTask(f.as(f.admin), f.project.ID, task)
	require.NoError(t, err)

	activity := got.Tasks[id].Activity
	require.Len(t, activity, 2)
	assert.Equal(t, models.ActivityDetails{From: "Unassigned", To: "Unassigned"}, activity[1].Details)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	id, _ := f.addTask(t, "col-1", "task")

	got, err := f.svc.AddComment(f.as(f.member), f.project.ID, id, "first!")
	require.NoError(t, err)
	activity := got.Tasks[id].Activity
	require.Len(t, activity, 2)
	assert.Equal(t, models.ActivityComment, activity[1].Type)
	assert.Equal(t, "first!", activity[1].Details.Text)

	_, err = f.svc.AddComment(context.Background(), f.project.ID, id, "anon")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = f.svc.AddComment(f.as(f.member), f.project.ID, "task-404", "hi")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubtasksAndAttachments_DoNotRecordActivity(t *testing.T) {
	f := newFixture(t)
	ctx := f.as(f.member)
	id, _ := f.addTask(t, "col-1", "task")

	got, err := f.svc.AddSubtask(ctx, f.project.ID, id, "step one")
	require.NoError(t, err)
	require.Len(t, got.Tasks[id].Subtasks, 1)
	sub := got.Tasks[id].Subtasks[0]
	assert.False(t, sub.Completed)

	done := true
	got, err = f.svc.UpdateSubtask(ctx, f.project.ID, id, sub.ID, board.SubtaskPatch{Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, models.Subtask{ID: sub.ID, Title: "step one", Completed: true}, got.Tasks[id].Subtasks[0])

	got, err = f.svc.AddAttachment(ctx, f.project.ID, id, models.Attachment{Name: "a.txt", Type: "text/plain", Data: "aGk="})
	require.NoError(t, err)
	require.Len(t, got.Tasks[id].Attachments, 1)
	attID := got.Tasks[id].Attachments[0].ID
	assert.NotEmpty(t, attID)

	got, err = f.svc.DeleteAttachment(ctx, f.project.ID, id, attID)
	require.NoError(t, err)
	assert.Empty(t, got.Tasks[id].Attachments)

	got, err = f.svc.DeleteSubtask(ctx, f.project.ID, id, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tasks[id].Subtasks)

	got, err = f.svc.DeleteSubtask(ctx, f.project.ID, id, "sub-404")
	require.NoError(t, err)

	assert.Len(t, got.Tasks[id].Activity, 1)

	_, err = f.svc.AddSubtask(ctx, f.project.ID, "task-404", "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.svc.DeleteAttachment(ctx, f.project.ID, "task-404", attID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMutations_RequireKnownActor(t *testing.T) {
	f := newFixture(t)
	id, _ := f.addTask(t, "col-1", "task")
	before := f.storedBoard(t)

	anonymous := context.Background()
	ghost := WithActor(context.Background(), "user-ghost")
	for _, ctx := range []context.Context{anonymous, ghost} {
		_, err := f.svc.AddTask(ctx, f.project.ID, "col-1", board.TaskFields{Title: "x"})
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		_, err = f.svc.MoveTask(ctx, f.project.ID, id, "col-1", "col-2", 0)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		_, err = f.svc.DeleteTask(ctx, f.project.ID, id)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		err = f.svc.UpdateMemberRole(ctx, f.project.ID, f.member.ID, "Lead")
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	}
	assert.Equal(t, before, f.storedBoard(t))
}

func TestMutations_RequireMembership(t *testing.T) {
	f := newFixture(t)
	outsider, err := f.svc.Register(context.Background(), "Eve", "eve@example.com")
	require.NoError(t, err)

	_, err = f.svc.AddTask(f.as(outsider), f.project.ID, "col-1", board.TaskFields{Title: "x"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	// global admins reach every board
	_, err = f.svc.AddTask(f.as(f.admin), f.project.ID, "col-1", board.TaskFields{Title: "x"})
	assert.NoError(t, err)
}

func TestReads_RequireKnownActorAndMembership(t *testing.T) {
	f := newFixture(t)
	outsider, err := f.svc.Register(context.Background(), "Eve", "eve@example.com")
	require.NoError(t, err)

	anonymous := context.Background()
	ghost := WithActor(context.Background(), "user-ghost")
	for _, ctx := range []context.Context{anonymous, ghost} {
		_, err := f.svc.GetBoard(ctx, f.project.ID)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		_, err = f.svc.GetProjectAssignees(ctx, f.project.ID)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		_, err = f.svc.ListUsers(ctx)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	}

	_, err = f.svc.GetBoard(f.as(outsider), f.project.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = f.svc.GetProjectAssignees(f.as(outsider), f.project.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	for _, u := range []models.User{f.member, f.admin} {
		_, err = f.svc.GetBoard(f.as(u), f.project.ID)
		assert.NoError(t, err)
		_, err = f.svc.GetProjectAssignees(f.as(u), f.project.ID)
		assert.NoError(t, err)
	}
	users, err := f.svc.ListUsers(f.as(outsider))
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestGetBoard_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetBoard(f.as(f.admin), "proj-404")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.MoveTask(f.as(f.admin), "proj-404", "t", "col-1", "col-2", 0)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "JOIN-ALPH-AAAA", f.project.InviteCode)
	assert.Equal(t, map[string]models.Member{f.member.ID: {Role: models.RoleAdmin}}, f.project.Members)
	assert.Equal(t, []string{"col-1", "col-2", "col-3"}, f.project.Board.ColumnOrder)
	assert.Equal(t, "In Progress", f.project.Board.Columns["col-2"].Title)
	assert.Empty(t, f.project.Board.Tasks)

	_, err := f.svc.CreateProject(context.Background(), "  ", f.member.ID)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.svc.CreateProject(context.Background(), "Beta", "user-ghost")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestCreateProject_RetriesTakenInviteCodes(t *testing.T) {
	svc, _ := newService(t, "AAAA", "AAAA", "BBBB")
	ctx := context.Background()
	user, err := svc.Register(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)

	first, err := svc.CreateProject(ctx, "Alpha", user.ID)
	require.NoError(t, err)
	second, err := svc.CreateProject(ctx, "Alpha", user.ID)
	require.NoError(t, err)

	assert.Equal(t, "JOIN-ALPH-AAAA", first.InviteCode)
	assert.Equal(t, "JOIN-ALPH-BBBB", second.InviteCode)
}

func TestJoinProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carol, err := f.svc.Register(ctx, "Carol", "carol@example.com")
	require.NoError(t, err)

	ok, err := f.svc.JoinProject(ctx, carol.ID, f.project.InviteCode)
	require.NoError(t, err)
	assert.True(t, ok)

	after, err := f.repo.GetProject(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Member{Role: models.RoleMember}, after.Members[carol.ID])

	ok, err = f.svc.JoinProject(ctx, carol.ID, f.project.InviteCode)
	require.NoError(t, err)
	assert.True(t, ok)
	again, err := f.repo.GetProject(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, after.Members, again.Members)

	// an existing admin keeps the role when re-joining
	_, err = f.svc.JoinProject(ctx, f.member.ID, f.project.InviteCode)
	require.NoError(t, err)
	again, err = f.repo.GetProject(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, again.Members[f.member.ID].Role)

	_, err = f.svc.JoinProject(ctx, carol.ID, "JOIN-NOPE-0000")
	assert.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestGetUserProjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := f.svc.CreateProject(ctx, "Other", f.admin.ID)
	require.NoError(t, err)
	carol, err := f.svc.Register(ctx, "Carol", "carol@example.com")
	require.NoError(t, err)

	projects, err := f.svc.GetUserProjects(ctx, f.member.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, f.project.ID, projects[0].ID)

	projects, err = f.svc.GetUserProjects(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 2)

	projects, err = f.svc.GetUserProjects(ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = f.svc.JoinProject(ctx, carol.ID, other.InviteCode)
	require.NoError(t, err)
	projects, err = f.svc.GetUserProjects(ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, other.ID, projects[0].ID)

	projects, err = f.svc.GetUserProjects(ctx, "user-ghost")
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestGetUserProjects_AdminRoleIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.member
	u.Role = "ADMIN"
	require.NoError(t, f.repo.UpdateUser(ctx, u))
	_, err := f.svc.CreateProject(ctx, "Other", f.admin.ID)
	require.NoError(t, err)

	projects, err := f.svc.GetUserProjects(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestUpdateMemberRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carol, err := f.svc.Register(ctx, "Carol", "carol@example.com")
	require.NoError(t, err)
	_, err = f.svc.JoinProject(ctx, carol.ID, f.project.InviteCode)
	require.NoError(t, err)

	err = f.svc.UpdateMemberRole(f.as(carol), f.project.ID, f.member.ID, "Member")
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, f.svc.UpdateMemberRole(f.as(f.member), f.project.ID, carol.ID, "backend-er"))
	assignees, err := f.svc.GetProjectAssignees(f.as(f.member), f.project.ID)
	require.NoError(t, err)
	roles := map[string]string{}
	for _, a := range assignees {
		roles[a.ID] = a.Role
	}
	assert.Equal(t, map[string]string{f.member.ID: models.RoleAdmin, carol.ID: "backend-er"}, roles)

	err = f.svc.UpdateMemberRole(f.as(f.admin), f.project.ID, f.admin.ID, "Member")
	assert.ErrorIs(t, err, models.ErrNotFound)
	err = f.svc.UpdateMemberRole(f.as(f.admin), "proj-404", carol.ID, "Member")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carol, err := f.svc.Register(ctx, "Carol", "carol@example.com")
	require.NoError(t, err)
	_, err = f.svc.JoinProject(ctx, carol.ID, f.project.InviteCode)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteProject(f.as(carol), f.project.ID), models.ErrForbidden)
	require.NoError(t, f.svc.DeleteProject(f.as(f.member), f.project.ID))

	_, err = f.svc.GetBoard(f.as(f.admin), f.project.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.True(t, strings.HasPrefix(first.AvatarURL, "data:image/svg+xml;base64,"))

	second, err := svc.Register(ctx, "Bob", "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, second.Role)

	_, err = svc.Register(ctx, "Bobby", "BOB@example.com")
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
	_, err = svc.Register(ctx, "Nobody", "not-an-email")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	got, err := svc.Login(ctx, "Bob@Example.com")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = svc.Login(ctx, "eve@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	name := "Robert"
	about := "builds things"

	got, err := f.svc.UpdateProfile(f.as(f.member), f.member.ID, ProfilePatch{Name: &name, AboutMe: &about})
	require.NoError(t, err)
	assert.Equal(t, "Robert", got.Name)
	assert.Equal(t, "builds things", got.AboutMe)
	assert.Equal(t, f.member.Email, got.Email)

	_, err = f.svc.UpdateProfile(f.as(f.member), f.admin.ID, ProfilePatch{Name: &name})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.svc.UpdateProfile(f.as(f.admin), f.member.ID, ProfilePatch{AboutMe: &about})
	assert.NoError(t, err)
}

func TestAddTask_ConcurrentCallsGetDistinctDisplayIDs(t *testing.T) {
	f := newFixture(t)
	const n = 20

	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.AddTask(f.as(f.member), f.project.ID, "col-1", board.TaskFields{Title: fmt.Sprintf("t%d", i)})
			if assert.NoError(t, err) {
				results <- res.NewDisplayID
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for id := range results {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("ALPHA-%d", i)])
	}

	b := f.storedBoard(t)
	assert.Len(t, b.Columns["col-1"].TaskIDs, n)
	require.NoError(t, b.Validate())
}

func TestGeometricAvatar_Deterministic(t *testing.T) {
	assert.Equal(t, GeometricAvatar("user-1"), GeometricAvatar("user-1"))
	assert.True(t, strings.HasPrefix(GeometricAvatar(""), "data:image/svg+xml;base64,"))
}
