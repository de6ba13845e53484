package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentdesk-test.db")
	database, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})
	return database, path
}

func assertTableExists(t *testing.T, conn *sql.DB, table string) {
	t.Helper()
	var count int
	err := conn.QueryRow(`SELECT count(1) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master error: %v", err)
	}
	if count != 1 {
		t.Fatalf("table %q not found", table)
	}
}

func TestOpenCreatesDBFileAndRunsMigrations(t *testing.T) {
	database, path := openTestDB(t)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected DB file at %q: %v", path, err)
	}

	assertTableExists(t, database.SQL(), "_meta")
	assertTableExists(t, database.SQL(), "tasks")
	assertTableExists(t, database.SQL(), "documents")
}

func TestMigrationsAreIdempotent(t *testing.T) {
	database, _ := openTestDB(t)

	if err := RunMigrations(context.Background(), database.SQL()); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var version string
	if err := database.SQL().QueryRow(`SELECT value FROM _meta WHERE key='schema_version'`).Scan(&version); err != nil {
		t.Fatalf("read schema version error = %v", err)
	}
	if version != "1" {
		t.Fatalf("schema version = %s, want 1", version)
	}
}

func TestTaskRepoCRUDAndJSONTags(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewTaskRepo(database.SQL())
	ctx := context.Background()

	task := &Task{
		ProjectPath: "/tmp/p1",
		Title:       "Wire the drawer",
		Content:     "Persist tasks in sqlite",
		Priority:    2,
		Tags:        []string{"storage", "sqlite"},
	}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if task.ID == "" {
		t.Fatal("Create() did not set task ID")
	}
	if task.Status != "pending" {
		t.Fatalf("Create() status = %q, want pending", task.Status)
	}

	got, err := repo.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Title != "Wire the drawer" || got.Priority != 2 {
		t.Fatalf("Get() got = %#v", got)
	}
	if !reflect.DeepEqual(got.Tags, []string{"storage", "sqlite"}) {
		t.Fatalf("Tags = %#v, want [storage sqlite]", got.Tags)
	}

	byProject, err := repo.ListByProject(ctx, "/tmp/p1")
	if err != nil {
		t.Fatalf("ListByProject() error = %v", err)
	}
	if len(byProject) != 1 {
		t.Fatalf("ListByProject len = %d, want 1", len(byProject))
	}

	pending, err := repo.List(ctx, TaskFilter{ProjectPath: "/tmp/p1", Status: "pending"})
	if err != nil {
		t.Fatalf("List(pending) error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("List(pending) len = %d, want 1", len(pending))
	}

	if err := repo.UpdateStatus(ctx, task.ID, "done"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	updated, err := repo.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get() after update error = %v", err)
	}
	if updated.Status != "done" {
		t.Fatalf("updated status = %q, want done", updated.Status)
	}

	if err := repo.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	deleted, err := repo.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if deleted != nil {
		t.Fatalf("Get() after delete = %#v, want nil", deleted)
	}
}

func TestTaskListNewestFirst(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewTaskRepo(database.SQL())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"oldest", "middle", "newest"} {
		task := &Task{
			ProjectPath: "/tmp/ordered",
			Title:       title,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("Create(%s) error = %v", title, err)
		}
	}

	list, err := repo.ListByProject(ctx, "/tmp/ordered")
	if err != nil {
		t.Fatalf("ListByProject() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListByProject len = %d, want 3", len(list))
	}
	wantOrder := []string{"newest", "middle", "oldest"}
	for i, task := range list {
		if task.Title != wantOrder[i] {
			t.Fatalf("list[%d] = %q, want %q", i, task.Title, wantOrder[i])
		}
	}
}

func TestUpdateStatusMissingTaskReturnsNotFound(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewTaskRepo(database.SQL())

	err := repo.UpdateStatus(context.Background(), "no-such-id", "done")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateStatus() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepoCRUD(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewDocumentRepo(database.SQL())
	ctx := context.Background()

	doc := &Document{
		ProjectPath: "/tmp/p2",
		Title:       "Design notes",
		Content:     "# Plan\n\nShip it.",
		Tags:        []string{"notes"},
	}
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Title != "Design notes" || got.Content != "# Plan\n\nShip it." {
		t.Fatalf("Get() got = %#v", got)
	}

	list, err := repo.ListByProject(ctx, "/tmp/p2")
	if err != nil {
		t.Fatalf("ListByProject() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListByProject len = %d, want 1", len(list))
	}

	other, err := repo.ListByProject(ctx, "/tmp/other")
	if err != nil {
		t.Fatalf("ListByProject(other) error = %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("ListByProject(other) len = %d, want 0", len(other))
	}

	if err := repo.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	deleted, err := repo.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if deleted != nil {
		t.Fatalf("Get() after delete = %#v, want nil", deleted)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	ids := make(map[string]struct{}, 2000)
	for i := 0; i < 2000; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID() error = %v", err)
		}
		if _, exists := ids[id]; exists {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		ids[id] = struct{}{}
	}
}
