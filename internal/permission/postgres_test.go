package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreFindLive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	cols := []string{"id", "owner_id", "function", "is_permitted", "created_at", "updated_at", "deleted_at"}
	mock.ExpectQuery("select id, owner_id, function, is_permitted.*deleted_at is null").
		WithArgs("u-1", "VIEW_TASKS").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("g-1", "u-1", "VIEW_TASKS", true, now, now, nil))
	mock.ExpectQuery("select id, owner_id, function, is_permitted.*deleted_at is null").
		WithArgs("u-1", "VIEW_TEAMS").
		WillReturnRows(sqlmock.NewRows(cols))

	store := NewPGStore(db)
	g, err := store.FindLive(context.Background(), "u-1", "VIEW_TASKS")
	if err != nil {
		t.Fatalf("FindLive: %v", err)
	}
	if g.ID != "g-1" || !g.IsPermitted {
		t.Fatalf("unexpected grant: %+v", g)
	}
	if _, err := store.FindLive(context.Background(), "u-1", "VIEW_TEAMS"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreCreateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into permissions").
		WithArgs(sqlmock.AnyArg(), "u-1", "VIEW_TASKS", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into permissions").
		WithArgs(sqlmock.AnyArg(), "u-1", "VIEW_TASKS", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db)
	g := &Grant{OwnerID: "u-1", Function: "VIEW_TASKS", IsPermitted: true}
	if err := store.Create(context.Background(), g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.ID == "" {
		t.Fatal("expected generated id")
	}
	dup := &Grant{OwnerID: "u-1", Function: "VIEW_TASKS", IsPermitted: true}
	if err := store.Create(context.Background(), dup); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreSoftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update permissions set deleted_at").
		WithArgs("g-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update permissions set deleted_at").
		WithArgs("g-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db)
	if err := store.SoftDelete(context.Background(), "g-1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	// Second delete hits no live row.
	if err := store.SoftDelete(context.Background(), "g-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	cols := []string{"id", "owner_id", "function", "is_permitted", "created_at", "updated_at", "deleted_at"}
	permitted := false
	mock.ExpectQuery("update permissions").
		WithArgs("g-1", nil, false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("g-1", "u-1", "VIEW_TASKS", false, now, now, nil))

	g, err := NewPGStore(db).Update(context.Background(), "g-1", GrantUpdate{IsPermitted: &permitted})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if g.IsPermitted {
		t.Fatalf("expected is_permitted=false, got %+v", g)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
