package model

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

var errDisk = errors.New("disk I/O error")

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return newStore(db), mock
}

func TestInsertStorageError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO posts").
		WithArgs("Apples", "10.0", "20").
		WillReturnError(errDisk)

	_, err := s.Insert(context.Background(), apples)
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
	if !errors.Is(err, errDisk) {
		t.Errorf("expected driver error to stay in the chain, got %v", err)
	}
	if s.Version() != 0 {
		t.Errorf("failed insert must not bump version")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateStorageError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE posts SET").WillReturnError(errDisk)

	err := s.Update(context.Background(), Post{ID: 1, Title: "a"})
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestDeleteStorageError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM posts").WillReturnError(errDisk)

	_, err := s.Delete(context.Background(), Post{ID: 1})
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestRowsAffectedError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE posts SET").
		WillReturnResult(sqlmock.NewErrorResult(errDisk))

	err := s.Update(context.Background(), Post{ID: 1, Title: "a"})
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestAllStorageError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, title, description, author FROM posts").WillReturnError(errDisk)

	_, err := s.All(context.Background())
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestAllRowIterationError(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "title", "description", "author"}).
		AddRow(1, "Apples", "10.0", "20").
		RowError(0, errDisk)
	mock.ExpectQuery("SELECT id, title, description, author FROM posts").WillReturnRows(rows)

	_, err := s.All(context.Background())
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestClassifyPassesContextErrors(t *testing.T) {
	err := classify("insert post", context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrStorage) {
		t.Errorf("cancellation must not be reported as ErrStorage")
	}
	if classify("noop", nil) != nil {
		t.Error("classify(nil) should be nil")
	}
}
