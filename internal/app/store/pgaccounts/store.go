// Package pgaccounts is the Postgres implementation of accounts.Repository.
// Members live in the users table, next to admins and groups.
package pgaccounts

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/dalemusser/filescout/internal/app/store/accounts"
	"github.com/dalemusser/filescout/internal/domain/models"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

var _ accounts.Repository = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the pgx driver, verifies the connection and applies
// pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, "migrations")
}

// DB exposes the pool for health checks and shutdown.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", accounts.ErrDuplicate, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}

func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return accounts.ErrNotFound
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Groups                                                                      */
/* -------------------------------------------------------------------------- */

func (s *Store) EnsureGroup(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return mapErr(err)
}

func (s *Store) GroupExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM groups WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, mapErr(err)
	}
	return exists, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, created_at, updated_at FROM groups ORDER BY name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, g)
	}
	return out, mapErr(rows.Err())
}

/* -------------------------------------------------------------------------- */
/* Admins                                                                      */
/* -------------------------------------------------------------------------- */

func (s *Store) GetAdmin(ctx context.Context, phone string) (models.Admin, error) {
	var a models.Admin
	err := s.db.QueryRowContext(ctx,
		`SELECT phone, password_hash, created_at, updated_at FROM admins WHERE phone = $1`, phone).
		Scan(&a.Phone, &a.Hash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Admin{}, mapErr(err)
	}
	return a, nil
}

func (s *Store) CreateAdmin(ctx context.Context, phone, hash string) (models.Admin, error) {
	a := models.Admin{Phone: phone, Hash: hash}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO admins (phone, password_hash) VALUES ($1, $2) RETURNING created_at, updated_at`,
		phone, hash).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Admin{}, mapErr(err)
	}
	return a, nil
}

func (s *Store) DeleteAdmin(ctx context.Context, phone string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE phone = $1`, phone)
	if err != nil {
		return mapErr(err)
	}
	return rowsAffected(res)
}

func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phone, password_hash, created_at, updated_at FROM admins ORDER BY created_at, id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Admin
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.Phone, &a.Hash, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, a)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM admins`).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

/* -------------------------------------------------------------------------- */
/* Members                                                                     */
/* -------------------------------------------------------------------------- */

const memberColumns = `u.phone, u.password_hash, g.name, u.chat_id, u.created_at, u.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(sc scanner) (models.Member, error) {
	var (
		m    models.Member
		chat sql.NullInt64
	)
	if err := sc.Scan(&m.Phone, &m.Hash, &m.Group, &chat, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return models.Member{}, err
	}
	if chat.Valid {
		id := chat.Int64
		m.ChatID = &id
	}
	return m, nil
}

func (s *Store) GetMember(ctx context.Context, phone string) (models.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM users u JOIN groups g ON g.id = u.group_id WHERE u.phone = $1`, phone)
	m, err := scanMember(row)
	if err != nil {
		return models.Member{}, mapErr(err)
	}
	return m, nil
}

// CreateMember resolves the group and inserts in one statement. No row
// back means the group does not exist.
func (s *Store) CreateMember(ctx context.Context, phone, hash, group string) (models.Member, error) {
	m := models.Member{Phone: phone, Hash: hash, Group: group}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (phone, password_hash, group_id)
		 SELECT $1, $2, id FROM groups WHERE name = $3
		 RETURNING created_at, updated_at`,
		phone, hash, group).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return models.Member{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) DeleteMember(ctx context.Context, phone string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE phone = $1`, phone)
	if err != nil {
		return mapErr(err)
	}
	return rowsAffected(res)
}

// SetMemberGroup returns accounts.ErrNotFound when either the member or
// the group is missing.
func (s *Store) SetMemberGroup(ctx context.Context, phone, group string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users u SET group_id = g.id, updated_at = now()
		 FROM groups g
		 WHERE g.name = $2 AND u.phone = $1`,
		phone, group)
	if err != nil {
		return mapErr(err)
	}
	return rowsAffected(res)
}

// BindChat moves chatID to the member in one transaction. chat_id is
// unique, so any previous holder is unbound first.
func (s *Store) BindChat(ctx context.Context, phone string, chatID int64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET chat_id = NULL, updated_at = now() WHERE chat_id = $1 AND phone <> $2`,
		chatID, phone); err != nil {
		return mapErr(err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET chat_id = $1, updated_at = now() WHERE phone = $2`,
		chatID, phone)
	if err != nil {
		return mapErr(err)
	}
	if err = rowsAffected(res); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context) ([]models.Member, error) {
	return s.queryMembers(ctx,
		`SELECT `+memberColumns+` FROM users u JOIN groups g ON g.id = u.group_id ORDER BY g.name, u.phone`)
}

func (s *Store) ListMembersByGroup(ctx context.Context, group string) ([]models.Member, error) {
	return s.queryMembers(ctx,
		`SELECT `+memberColumns+` FROM users u JOIN groups g ON g.id = u.group_id WHERE g.name = $1 ORDER BY u.phone`,
		group)
}

func (s *Store) queryMembers(ctx context.Context, query string, args ...any) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}
