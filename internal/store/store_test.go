package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/NoxZet/Restful/internal/resource"
)

func sampleTree() *resource.Value {
	return resource.Map(
		resource.Pair("name", resource.String("a")),
		resource.Pair("tags", resource.List(resource.String("x"), resource.String("y"))),
	)
}

const sampleJSON = `{"name":"a","tags":["x","y"]}`

func TestPut(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		resName   string
		setupMock func(pgxmock.PgxPoolIface)
		wantRev   int64
		wantErr   error
	}{
		{
			name:    "new resource",
			resName: "config",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO restful\.resources`).
					WithArgs("config", sampleJSON, "application/xml").
					WillReturnRows(pgxmock.NewRows([]string{"revision"}).AddRow(int64(1)))
				mock.ExpectExec(`INSERT INTO restful\.resource_revisions`).
					WithArgs("config", int64(1), sampleJSON, "application/xml").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
			wantRev: 1,
		},
		{
			name:    "revision insert fails",
			resName: "config",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO restful\.resources`).
					WithArgs("config", sampleJSON, "application/xml").
					WillReturnRows(pgxmock.NewRows([]string{"revision"}).AddRow(int64(4)))
				mock.ExpectExec(`INSERT INTO restful\.resource_revisions`).
					WithArgs("config", int64(4), sampleJSON, "application/xml").
					WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
		},
		{
			name:      "empty name",
			resName:   "  ",
			setupMock: nil,
			wantErr:   ErrInvalidName,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create pgx mock: %v", err)
			}
			defer mock.Close()

			if tc.setupMock != nil {
				tc.setupMock(mock)
			}

			rev, err := New(mock).Put(context.Background(), tc.resName, sampleTree(), "application/xml")
			switch {
			case tc.wantErr != nil:
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
			case tc.wantRev == 0:
				if err == nil {
					t.Fatalf("expected error")
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if rev != tc.wantRev {
					t.Fatalf("expected revision %d, got %d", tc.wantRev, rev)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT name, data, content_type, revision, updated_at\s+FROM restful\.resources WHERE name = \$1`).
		WithArgs("config").
		WillReturnRows(pgxmock.NewRows([]string{"name", "data", "content_type", "revision", "updated_at"}).
			AddRow("config", []byte(sampleJSON), "application/xml", int64(3), updated))
	mock.ExpectQuery(`FROM restful\.resources WHERE name = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	s := New(mock)
	res, err := s.Get(context.Background(), "config")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Revision != 3 || res.ContentType != "application/xml" || !res.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected metadata: %+v", res.ResourceInfo)
	}
	if !res.Data.Equal(sampleTree()) {
		t.Fatalf("unexpected data: %s", res.Data)
	}
	if got := res.Data.Keys(); strings.Join(got, ",") != "name,tags" {
		t.Fatalf("key order lost: %v", got)
	}

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM restful\.resources WHERE name = \$1`).
		WithArgs("config").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM restful\.resources WHERE name = \$1`).
		WithArgs("config").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	s := New(mock)
	if err := s.Delete(context.Background(), "config"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(context.Background(), "config"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT name, content_type, revision, updated_at\s+FROM restful\.resources ORDER BY name`).
		WillReturnRows(pgxmock.NewRows([]string{"name", "content_type", "revision", "updated_at"}).
			AddRow("a", "application/json", int64(1), updated).
			AddRow("b", "application/xml", int64(5), updated))

	infos, err := New(mock).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "a" || infos[1].Revision != 5 {
		t.Fatalf("unexpected list: %+v", infos)
	}

	tree := infos[1].Tree()
	if v, _ := tree.Get("updated_at"); v.Text() != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected updated_at: %s", v)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS restful`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := EnsureSchema(context.Background(), mock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
