package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kanban/internal/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateProject persists a new project together with its board and members.
func (s *Store) CreateProject(ctx context.Context, p models.Project) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO projects(id, name, invite_code, task_seq, created_at) VALUES(?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.InviteCode, p.TaskSeq, formatTime(p.CreatedAt))
		if isUniqueViolation(err) {
			return fmt.Errorf("project %q: %w", p.ID, models.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		return writeChildren(ctx, tx, p)
	})
}

// GetProject loads a project with its full board.
func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	return loadProject(ctx, s.db, id)
}

// FindProjectByInviteCode loads the project owning code.
func (s *Store) FindProjectByInviteCode(ctx context.Context, code string) (models.Project, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM projects WHERE invite_code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("invite code %q: %w", code, models.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("find project: %w", err)
	}
	return loadProject(ctx, s.db, id)
}

// ListProjects retrieves all projects ordered by creation date.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM projects ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	projects := make([]models.Project, 0, len(ids))
	for _, id := range ids {
		p, err := loadProject(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// UpdateProject loads, mutates and saves a project inside one write
// transaction. Transactions begin IMMEDIATE, so other connections cannot
// write between the load and the save.
func (s *Store) UpdateProject(ctx context.Context, id string, fn func(*models.Project) error) (models.Project, error) {
	var project models.Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := loadProject(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		if err := saveProject(ctx, tx, p); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// saveProject replaces the stored project row, board and members.
func saveProject(ctx context.Context, tx *sql.Tx, p models.Project) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET name = ?, invite_code = ?, task_seq = ? WHERE id = ?`,
		p.Name, p.InviteCode, p.TaskSeq, p.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("invite code %q: %w", p.InviteCode, models.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("project %q: %w", p.ID, models.ErrNotFound)
	}

	for _, table := range []string{"project_members", "board_columns", "tasks", "task_subtasks", "task_attachments", "task_activity"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE project_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return writeChildren(ctx, tx, p)
}

// DeleteProject removes a project along with its board.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("project %q: %w", id, models.ErrNotFound)
	}
	return nil
}

func writeChildren(ctx context.Context, tx *sql.Tx, p models.Project) error {
	for userID, m := range p.Members {
		if _, err := tx.ExecContext(ctx, `INSERT INTO project_members(project_id, user_id, role) VALUES(?, ?, ?)`, p.ID, userID, m.Role); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}

	placed := map[string]struct {
		column   string
		position int
	}{}
	for pos, colID := range p.Board.ColumnOrder {
		col, ok := p.Board.Columns[colID]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO board_columns(project_id, id, title, position) VALUES(?, ?, ?, ?)`, p.ID, col.ID, col.Title, pos); err != nil {
			return fmt.Errorf("insert column: %w", err)
		}
		for i, taskID := range col.TaskIDs {
			placed[taskID] = struct {
				column   string
				position int
			}{colID, i}
		}
	}

	for _, t := range p.Board.Tasks {
		var column sql.NullString
		position := 0
		if at, ok := placed[t.ID]; ok {
			column = sql.NullString{String: at.column, Valid: true}
			position = at.position
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO tasks(project_id, id, display_id, column_id, position, title, description, priority, assignee_id, reporter_id, due_date)
            VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, t.ID, t.DisplayID, column, position, t.Title, t.Description, string(t.Priority), t.AssigneeID, t.ReporterID, t.DueDate)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		for i, st := range t.Subtasks {
			if _, err := tx.ExecContext(ctx, `INSERT INTO task_subtasks(project_id, task_id, id, title, completed, position) VALUES(?, ?, ?, ?, ?, ?)`,
				p.ID, t.ID, st.ID, st.Title, st.Completed, i); err != nil {
				return fmt.Errorf("insert subtask: %w", err)
			}
		}
		for i, a := range t.Attachments {
			if _, err := tx.ExecContext(ctx, `INSERT INTO task_attachments(project_id, task_id, id, name, mime_type, data, position) VALUES(?, ?, ?, ?, ?, ?, ?)`,
				p.ID, t.ID, a.ID, a.Name, a.Type, a.Data, i); err != nil {
				return fmt.Errorf("insert attachment: %w", err)
			}
		}
		for i, act := range t.Activity {
			if _, err := tx.ExecContext(ctx, `INSERT INTO task_activity(project_id, task_id, id, seq, type, ts, user_id, text, from_value, to_value) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, t.ID, act.ID, i, string(act.Type), formatTime(act.Timestamp), act.UserID, act.Details.Text, act.Details.From, act.Details.To); err != nil {
				return fmt.Errorf("insert activity: %w", err)
			}
		}
	}
	return nil
}

func loadProject(ctx context.Context, q queryer, id string) (models.Project, error) {
	p := models.Project{
		Members: map[string]models.Member{},
		Board: models.Board{
			Tasks:       map[string]models.Task{},
			Columns:     map[string]models.Column{},
			ColumnOrder: []string{},
		},
	}
	var createdAt string
	err := q.QueryRowContext(ctx, `SELECT id, name, invite_code, task_seq, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.InviteCode, &p.TaskSeq, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %q: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Project{}, err
	}

	steps := []func(context.Context, queryer, *models.Project) error{
		loadMembers, loadColumns, loadTasks, loadSubtasks, loadAttachments, loadActivity,
	}
	for _, step := range steps {
		if err := step(ctx, q, &p); err != nil {
			return models.Project{}, err
		}
	}
	return p, nil
}

func loadMembers(ctx context.Context, q queryer, p *models.Project) error {
	rows, err := q.QueryContext(ctx, `SELECT user_id, role FROM project_members WHERE project_id = ?`, p.ID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, role string
		if err := rows.Scan(&userID, &role); err != nil {
			return fmt.Errorf("scan member: %w", err)
		}
		p.Members[userID] = models.Member{Role: role}
	}
	return rows.Err()
}

func loadColumns(ctx context.Context, q queryer, p *models.Project) error {
	rows, err := q.QueryContext(ctx, `SELECT id, title FROM board_columns WHERE project_id = ? ORDER BY position`, p.ID)
	if err != nil {
		return fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		col := models.Column{TaskIDs: []string{}}
		if err := rows.Scan(&col.ID, &col.Title); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		p.Board.Columns[col.ID] = col
		p.Board.ColumnOrder = append(p.Board.ColumnOrder, col.ID)
	}
	return rows.Err()
}

func loadTasks(ctx context.Context, q queryer, p *models.Project) error {
	rows, err := q.QueryContext(ctx, `SELECT id, display_id, column_id, title, description, priority, assignee_id, reporter_id, due_date
        FROM tasks WHERE project_id = ? ORDER BY position, id`, p.ID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t        models.Task
			column   sql.NullString
			priority string
		)
		if err := rows.Scan(&t.ID, &t.DisplayID, &column, &t.Title, &t.Description, &priority, &t.AssigneeID, &t.ReporterID, &t.DueDate); err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		t.Priority = models.Priority(priority)
		p.Board.Tasks[t.ID] = t
		if col, ok := p.Board.Columns[column.String]; column.Valid && ok {
			col.TaskIDs = append(col.TaskIDs, t.ID)
			p.Board.Columns[column.String] = col
		}
	}
	return rows.Err()
}

func loadSubtasks(ctx context.Context, q queryer, p *models.Project) error {
	rows, err := q.QueryContext(ctx, `SELECT task_id, id, title, completed FROM task_subtasks WHERE project_id = ? ORDER BY task_id, position`, p.ID)
	if err != nil {
		return fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID string
		var st models.Subtask
		if err := rows.Scan(&taskID, &st.ID, &st.Title, &st.Completed); err != nil {
			return fmt.Errorf("scan subtask: %w", err)
		}
		if t, ok := p.Board.Tasks[taskID]; ok {
			t.Subtasks = append(t.Subtasks, st)
			p.Board.Tasks[taskID] = t
		}
	}
	return rows.Err()
}

func loadAttachments(ctx context.Context, q queryer, p *models.Project) error {
	rows, err := q.QueryContext(ctx, `SELECT task_id, id, name, mime_type, data FROM task_attachments WHERE project_id = ? ORDER BY task_id, position`, p.ID)
	if err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID string
		var a models.Attachment
		if err := rows.Scan(&taskID, &a.ID, &a.Name, &a.Type, &a.Data); err != nil {
			return fmt.Errorf("scan attachment: %w", err)
		}
		if t, ok := p.Board.Tasks[taskID]; ok {
			t.Attachments = append(t.Attachments, a)
			p.Board.Tasks[taskID] = t
		}
	}
	return rows.Err()
}

func loadActivity(ctx context.Context, q queryer, p *models.Project) error {
	rows, err := q.QueryContext(ctx, `SELECT task_id, id, type, ts, user_id, text, from_value, to_value
        FROM task_activity WHERE project_id = ? ORDER BY task_id, seq`, p.ID)
	if err != nil {
		return fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID, kind, ts string
			act              models.Activity
		)
		if err := rows.Scan(&taskID, &act.ID, &kind, &ts, &act.UserID, &act.Details.Text, &act.Details.From, &act.Details.To); err != nil {
			return fmt.Errorf("scan activity: %w", err)
		}
		act.Type = models.ActivityType(kind)
		timestamp, err := parseTime(ts)
		if err != nil {
			return err
		}
		act.Timestamp = timestamp
		if t, ok := p.Board.Tasks[taskID]; ok {
			t.Activity = append(t.Activity, act)
			p.Board.Tasks[taskID] = t
		}
	}
	return rows.Err()
}
