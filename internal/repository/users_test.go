package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/mottokeeper/internal/common"
	"github.com/lib/pq"
)

func setupUserMock(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresUserRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

const (
	existsQuery = `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	insertQuery = `INSERT INTO users (username, password, motto) VALUES ($1, $2, NULL) RETURNING id`
	selectQuery = `SELECT id, username, password, motto FROM users WHERE username = $1`
	updateQuery = `UPDATE users SET motto = $1 WHERE username = $2`
)

func TestUserExists_True(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("user1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.UserExists(context.Background(), "user1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Errorf("expected user to exist, got false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserExists_Error(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("user3").
		WillReturnError(errors.New("query failed"))

	if _, err := repo.UserExists(context.Background(), "user3"); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("alice", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	user, err := repo.CreateUser(context.Background(), "alice", "hash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 7 || user.Username != "alice" || user.Motto != nil {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("alice", "hash").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.CreateUser(context.Background(), "alice", "hash")
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateUser_DBError(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("alice", "hash").
		WillReturnError(errors.New("db down"))

	_, err := repo.CreateUser(context.Background(), "alice", "hash")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	tests := []struct {
		name      string
		rows      *sqlmock.Rows
		queryErr  error
		wantErr   error
		wantMotto *string
	}{
		{
			name: "with motto",
			rows: sqlmock.NewRows([]string{"id", "username", "password", "motto"}).
				AddRow(int64(1), "bob", "hash", "cipher"),
			wantMotto: strPtr("cipher"),
		},
		{
			name: "null motto",
			rows: sqlmock.NewRows([]string{"id", "username", "password", "motto"}).
				AddRow(int64(1), "bob", "hash", nil),
		},
		{
			name:     "not found",
			queryErr: sql.ErrNoRows,
			wantErr:  common.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserMock(t)
			defer cleanup()

			exp := mock.ExpectQuery(regexp.QuoteMeta(selectQuery)).WithArgs("bob")
			if tt.queryErr != nil {
				exp.WillReturnError(tt.queryErr)
			} else {
				exp.WillReturnRows(tt.rows)
			}

			user, err := repo.GetUserByUsername(context.Background(), "bob")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v; want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.ID != 1 || user.Username != "bob" || user.PasswordHash != "hash" {
				t.Errorf("unexpected user: %+v", user)
			}
			switch {
			case tt.wantMotto == nil && user.Motto != nil:
				t.Errorf("motto = %q; want nil", *user.Motto)
			case tt.wantMotto != nil && (user.Motto == nil || *user.Motto != *tt.wantMotto):
				t.Errorf("motto = %v; want %q", user.Motto, *tt.wantMotto)
			}
		})
	}
}

func TestUpdateMotto(t *testing.T) {
	tests := []struct {
		name    string
		result  driver.Result
		execErr error
		wantErr error
	}{
		{name: "updated", result: sqlmock.NewResult(0, 1)},
		{name: "missing user", result: sqlmock.NewResult(0, 0), wantErr: common.ErrNotFound},
		{name: "db error", execErr: errors.New("update failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserMock(t)
			defer cleanup()

			exp := mock.ExpectExec(regexp.QuoteMeta(updateQuery)).WithArgs("cipher", "carol")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.UpdateMotto(context.Background(), "carol", "cipher")
			switch {
			case tt.execErr != nil:
				if err == nil {
					t.Fatal("expected error, got nil")
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v; want %v", err, tt.wantErr)
				}
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
