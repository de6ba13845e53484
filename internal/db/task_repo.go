package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Create(ctx context.Context, task *Task) error {
	if task.ID == "" {
		id, err := NewID()
		if err != nil {
			return err
		}
		task.ID = id
	}
	if task.Status == "" {
		task.Status = "pending"
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = nowUTC()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}

	tagsRaw, err := encodeStringSlice(task.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO tasks (id, project_path, title, content, status, priority, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, task.ID, task.ProjectPath, task.Title, task.Content, task.Status, task.Priority, tagsRaw, formatTimestamp(task.CreatedAt), formatTimestamp(task.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*Task, error) {
	var t Task
	var tagsRaw, createdAtRaw, updatedAtRaw string

	err := r.db.QueryRowContext(ctx, `
SELECT id, project_path, title, content, status, priority, tags, created_at, updated_at
FROM tasks
WHERE id = ?
`, id).Scan(&t.ID, &t.ProjectPath, &t.Title, &t.Content, &t.Status, &t.Priority, &tagsRaw, &createdAtRaw, &updatedAtRaw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task %q: %w", id, err)
	}

	t.Tags, err = decodeStringSlice(tagsRaw)
	if err != nil {
		return nil, err
	}
	t.CreatedAt, err = parseTimestamp(createdAtRaw)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTimestamp(updatedAtRaw)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *TaskRepo) List(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	query := `SELECT id, project_path, title, content, status, priority, tags, created_at, updated_at FROM tasks`
	args := []any{}
	where := []string{}

	if filter.ProjectPath != "" {
		where = append(where, "project_path = ?")
		args = append(args, filter.ProjectPath)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		var t Task
		var tagsRaw, createdAtRaw, updatedAtRaw string
		if err := rows.Scan(&t.ID, &t.ProjectPath, &t.Title, &t.Content, &t.Status, &t.Priority, &tagsRaw, &createdAtRaw, &updatedAtRaw); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Tags, err = decodeStringSlice(tagsRaw)
		if err != nil {
			return nil, err
		}
		t.CreatedAt, err = parseTimestamp(createdAtRaw)
		if err != nil {
			return nil, err
		}
		t.UpdatedAt, err = parseTimestamp(updatedAtRaw)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepo) ListByProject(ctx context.Context, projectPath string) ([]*Task, error) {
	return r.List(ctx, TaskFilter{ProjectPath: projectPath})
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE tasks
SET status = ?, updated_at = ?
WHERE id = ?
`, status, formatTimestamp(nowUTC()), id)
	if err != nil {
		return fmt.Errorf("failed to update task %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read updated rows for task %q: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task %q: %w", id, err)
	}
	return nil
}
