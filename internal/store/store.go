// Package store persists resource trees in Postgres.
//
// Trees are kept in a json column (not jsonb) so that mapping key order
// survives the round trip. Every Put bumps the revision and appends the
// new version to restful.resource_revisions in the same transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NoxZet/Restful/internal/models"
	"github.com/NoxZet/Restful/internal/resource"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	// ErrNotFound is returned when no resource has the given name.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidName is returned for empty or oversized names.
	ErrInvalidName = errors.New("invalid resource name")
)

const maxNameLength = 255

type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Put stores data under name and returns the new revision.
func (s *Store) Put(ctx context.Context, name string, data *resource.Value, contentType string) (rev int64, err error) {
	if err := validateName(name); err != nil {
		return 0, err
	}

	raw, err := data.MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("encode resource: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				slog.Error("failed to rollback resource transaction", "name", name, "error", rbErr)
			}
			return
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("commit tx: %w", commitErr)
		}
	}()

	if err = tx.QueryRow(ctx, `
        INSERT INTO restful.resources (name, data, content_type, revision, updated_at)
        VALUES ($1, $2, $3, 1, now())
        ON CONFLICT (name) DO UPDATE
        SET data = EXCLUDED.data,
            content_type = EXCLUDED.content_type,
            revision = restful.resources.revision + 1,
            updated_at = now()
        RETURNING revision
    `, name, string(raw), contentType).Scan(&rev); err != nil {
		return 0, fmt.Errorf("upsert resource: %w", err)
	}

	if _, err = tx.Exec(ctx, `
        INSERT INTO restful.resource_revisions (name, revision, data, content_type)
        VALUES ($1, $2, $3, $4)
    `, name, rev, string(raw), contentType); err != nil {
		return 0, fmt.Errorf("insert revision: %w", err)
	}

	slog.Info("stored resource", "name", name, "revision", rev, "content_type", contentType)
	return rev, nil
}

// Get returns the latest version of name.
func (s *Store) Get(ctx context.Context, name string) (*models.Resource, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	var (
		res models.Resource
		raw []byte
	)
	err := s.db.QueryRow(ctx, `
        SELECT name, data, content_type, revision, updated_at
        FROM restful.resources WHERE name = $1
    `, name).Scan(&res.Name, &raw, &res.ContentType, &res.Revision, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("select resource: %w", err)
	}

	res.Data, err = resource.ParseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode stored resource %s: %w", name, err)
	}
	return &res, nil
}

// Delete removes name together with its revision history.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM restful.resources WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	slog.Info("deleted resource", "name", name)
	return nil
}

// List returns metadata of all resources ordered by name.
func (s *Store) List(ctx context.Context) ([]models.ResourceInfo, error) {
	rows, err := s.db.Query(ctx, `
        SELECT name, content_type, revision, updated_at
        FROM restful.resources ORDER BY name
    `)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []models.ResourceInfo
	for rows.Next() {
		var info models.ResourceInfo
		if err := rows.Scan(&info.Name, &info.ContentType, &info.Revision, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return out, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
