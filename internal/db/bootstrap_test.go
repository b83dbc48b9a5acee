package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/dblearn/quizdesk/internal/db"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func TestBootstrapProvisionsTeacher(t *testing.T) {
	dbh := openTestDB(t)
	ctx := context.Background()

	if err := db.Bootstrap(ctx, dbh, "head", "$2a$12$fakehashfakehashfakehash"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	var role string
	var fullName sql.NullString
	err := dbh.QueryRow(`SELECT role, full_name FROM users WHERE username='head'`).Scan(&role, &fullName)
	if err != nil {
		t.Fatalf("provisioned row: %v", err)
	}
	if role != "teacher" {
		t.Fatalf("expected role teacher, got %q", role)
	}
	// No display name is known at provisioning time.
	if fullName.Valid {
		t.Fatalf("full_name should be NULL, got %q", fullName.String)
	}

	// Re-running must not duplicate or overwrite.
	if err := db.Bootstrap(ctx, dbh, "head", "other-hash"); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	var n int
	if err := dbh.QueryRow(`SELECT COUNT(*) FROM users WHERE username='head'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected one row, got %d", n)
	}
}

func TestBootstrapSkippedWithoutCredentials(t *testing.T) {
	dbh := openTestDB(t)
	ctx := context.Background()

	if err := db.Bootstrap(ctx, dbh, "", "hash"); err != nil {
		t.Fatalf("bootstrap without username: %v", err)
	}
	if err := db.Bootstrap(ctx, dbh, "head", ""); err != nil {
		t.Fatalf("bootstrap without hash: %v", err)
	}
	var n int
	if err := dbh.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no rows, got %d", n)
	}
}
