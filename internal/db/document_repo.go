package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		id, err := NewID()
		if err != nil {
			return err
		}
		doc.ID = id
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = nowUTC()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}

	tagsRaw, err := encodeStringSlice(doc.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (id, project_path, title, content, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, doc.ID, doc.ProjectPath, doc.Title, doc.Content, tagsRaw, formatTimestamp(doc.CreatedAt), formatTimestamp(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*Document, error) {
	var d Document
	var tagsRaw, createdAtRaw, updatedAtRaw string

	err := r.db.QueryRowContext(ctx, `
SELECT id, project_path, title, content, tags, created_at, updated_at
FROM documents
WHERE id = ?
`, id).Scan(&d.ID, &d.ProjectPath, &d.Title, &d.Content, &tagsRaw, &createdAtRaw, &updatedAtRaw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %q: %w", id, err)
	}

	d.Tags, err = decodeStringSlice(tagsRaw)
	if err != nil {
		return nil, err
	}
	d.CreatedAt, err = parseTimestamp(createdAtRaw)
	if err != nil {
		return nil, err
	}
	d.UpdatedAt, err = parseTimestamp(updatedAtRaw)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

func (r *DocumentRepo) List(ctx context.Context, filter DocumentFilter) ([]*Document, error) {
	query := `SELECT id, project_path, title, content, tags, created_at, updated_at FROM documents`
	args := []any{}
	where := []string{}

	if filter.ProjectPath != "" {
		where = append(where, "project_path = ?")
		args = append(args, filter.ProjectPath)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*Document{}
	for rows.Next() {
		var d Document
		var tagsRaw, createdAtRaw, updatedAtRaw string
		if err := rows.Scan(&d.ID, &d.ProjectPath, &d.Title, &d.Content, &tagsRaw, &createdAtRaw, &updatedAtRaw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Tags, err = decodeStringSlice(tagsRaw)
		if err != nil {
			return nil, err
		}
		d.CreatedAt, err = parseTimestamp(createdAtRaw)
		if err != nil {
			return nil, err
		}
		d.UpdatedAt, err = parseTimestamp(updatedAtRaw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating documents: %w", err)
	}

	return docs, nil
}

func (r *DocumentRepo) ListByProject(ctx context.Context, projectPath string) ([]*Document, error) {
	return r.List(ctx, DocumentFilter{ProjectPath: projectPath})
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %q: %w", id, err)
	}
	return nil
}
