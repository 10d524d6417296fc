package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"directory-console/backend/internal/audit/domain"
)

func TestCreate_InsertsAllColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs("id-1", "admin1", "admin", "user.disable", "CN=Bob", "success",
			"10.0.0.9", "curl/8", "", []byte(`{"enabled":true}`), []byte(`{"enabled":false}`), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	err = repo.Create(context.Background(), &domain.Event{
		ID: "id-1", Actor: "admin1", ActorRole: "admin", Action: "user.disable",
		Target: "CN=Bob", Outcome: "success", IP: "10.0.0.9", UserAgent: "curl/8",
		Before: []byte(`{"enabled":true}`), After: []byte(`{"enabled":false}`),
		CreatedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreate_EmptySnapshotsInsertNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs("id-2", "admin1", "admin", "login", "", "success",
			"", "", "", nil, nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	err = repo.Create(context.Background(), &domain.Event{
		ID: "id-2", Actor: "admin1", ActorRole: "admin", Action: "login",
		Outcome: "success", CreatedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetByID_MissingRowIsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM audit_logs WHERE id").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewPostgresRepository(db)
	e, err := repo.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Errorf("want nil for a missing row, got %+v", e)
	}
}

func TestList_AppliesFiltersAndPaging(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now().UTC()
	cols := []string{"id", "actor", "actor_role", "action", "target", "outcome",
		"ip", "user_agent", "detail", "before_json", "after_json", "created_at"}
	mock.ExpectQuery("SELECT .+ FROM audit_logs WHERE actor = .+ AND action = .+ ORDER BY created_at DESC").
		WithArgs("admin1", "user.disable", int32(10), int32(20)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("id-1", "admin1", "admin", "user.disable", "CN=Bob", "success",
				"", "", "", nil, nil, now))

	repo := NewPostgresRepository(db)
	events, err := repo.List(context.Background(), domain.ListFilter{
		Actor: "admin1", Action: "user.disable", Limit: 10, Offset: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Actor != "admin1" {
		t.Errorf("events = %+v", events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestList_DefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM audit_logs ORDER BY created_at DESC").
		WithArgs(int32(50), int32(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewPostgresRepository(db)
	if _, err := repo.List(context.Background(), domain.ListFilter{}); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
