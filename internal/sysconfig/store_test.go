package sysconfig

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"directory-console/backend/internal/apperr"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	s := NewStore(db)
	s.nowF = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

func TestSet_UpsertsAndAppendsHistory(t *testing.T) {
	s, mock := newStore(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO system_config ").
		WithArgs("SMS_SEND_INTERVAL", []byte("60"), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO system_config_history").
		WithArgs("SMS_SEND_INTERVAL", []byte("60"), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := s.Set(context.Background(), "SMS_SEND_INTERVAL", 60); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGet_MissingKeyIsNil(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery("SELECT value_json FROM system_config WHERE key").
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"value_json"}))

	v, err := s.Get(context.Background(), "NOPE")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("want nil, got %s", v)
	}
}

func TestGetAll(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery("SELECT key, value_json FROM system_config").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value_json"}).
			AddRow("APP_NAME", []byte(`"Console"`)).
			AddRow("SMS_SEND_INTERVAL", []byte("60")))

	all, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(all["APP_NAME"]) != `"Console"` || string(all["SMS_SEND_INTERVAL"]) != "60" {
		t.Errorf("all = %v", all)
	}
}

func TestRollback_ReappliesHistoricValue(t *testing.T) {
	s, mock := newStore(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT key, value_json FROM system_config_history WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value_json"}).
			AddRow("SMS_SEND_INTERVAL", []byte("30")))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO system_config ").
		WithArgs("SMS_SEND_INTERVAL", []byte("30"), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO system_config_history").
		WithArgs("SMS_SEND_INTERVAL", []byte("30"), now).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	if err := s.Rollback(context.Background(), 7); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRollback_UnknownEntry(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery("SELECT key, value_json FROM system_config_history WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value_json"}))

	err := s.Rollback(context.Background(), 99)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestHistory_OrderAndLimit(t *testing.T) {
	s, mock := newStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, key, value_json, created_at FROM system_config_history").
		WithArgs(int32(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key", "value_json", "created_at"}).
			AddRow(int64(2), "APP_NAME", []byte(`"B"`), now).
			AddRow(int64(1), "APP_NAME", []byte(`"A"`), now))

	entries, err := s.History(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].ID != 2 {
		t.Errorf("entries = %+v", entries)
	}
}
