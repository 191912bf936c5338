package session

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresBackend_LoadMissingKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value")).
		WithArgs("dash", KeyAccessToken).
		WillReturnError(sql.ErrNoRows)

	b := NewPostgresBackend(db, "dash")
	_, ok, err := b.Load(context.Background(), KeyAccessToken)
	if err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresBackend_LoadValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value")).
		WithArgs("dash", KeyRefreshToken).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("r1"))

	b := NewPostgresBackend(db, "dash")
	v, ok, err := b.Load(context.Background(), KeyRefreshToken)
	if err != nil || !ok || v != "r1" {
		t.Fatalf("unexpected load: %q ok=%v err=%v", v, ok, err)
	}
}

func TestPostgresBackend_SaveUpsertsInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	upsert := regexp.QuoteMeta("INSERT INTO portal_session_kv")
	mock.ExpectBegin()
	mock.ExpectExec(upsert).WithArgs("dash", KeyAccessToken, "a1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsert).WithArgs("dash", KeyRefreshToken, "r1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := NewPostgresBackend(db, "dash")
	err = b.Save(context.Background(), map[string]string{KeyRefreshToken: "r1", KeyAccessToken: "a1"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresBackend_RemoveRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	del := regexp.QuoteMeta("DELETE FROM portal_session_kv")
	mock.ExpectBegin()
	mock.ExpectExec(del).WithArgs("dash", KeyAccessToken).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(del).WithArgs("dash", KeyRefreshToken).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	b := NewPostgresBackend(db, "dash")
	if err := b.Remove(context.Background(), KeyAccessToken, KeyRefreshToken); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresBackend_PingSurfacesFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	s := NewStore(NewPostgresBackend(db, "dash"), nil)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping failure")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
