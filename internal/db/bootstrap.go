package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Bootstrap provisions the configured teacher account if it does not
// exist yet. The credential comes from configuration (a bcrypt hash);
// when either value is empty nothing is created.
func Bootstrap(ctx context.Context, db *sql.DB, username, passHash string) error {
	if username == "" || passHash == "" {
		return nil
	}
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=$1`, username).Scan(&one)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES ($1,$2,'teacher',$3)`,
		username, passHash, time.Now().Unix())
	return err
}
