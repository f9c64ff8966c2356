package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"imagebot/internal/domain"
)

// scriptedRow answers one Scan call with either fixed column values or an
// error. Value assignment covers only the column types the account queries
// use.
type scriptedRow struct {
	err  error
	vals []any
}

func (r scriptedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.vals))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.vals[i].(uuid.UUID)
		case *int64:
			*p = r.vals[i].(int64)
		case *int:
			*p = r.vals[i].(int)
		case *string:
			*p = r.vals[i].(string)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// scriptedDB serves QueryRow calls from a fixed sequence of rows.
type scriptedDB struct {
	rows    []scriptedRow
	queries []string
}

func (db *scriptedDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	db.queries = append(db.queries, sql)
	if len(db.rows) == 0 {
		return scriptedRow{err: fmt.Errorf("unexpected query: %s", sql)}
	}
	row := db.rows[0]
	db.rows = db.rows[1:]
	return row
}

func (db *scriptedDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("not scripted")
}

func (db *scriptedDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, fmt.Errorf("not scripted")
}

func accountRow(id uuid.UUID, telegramID int64, balance int) scriptedRow {
	now := time.Now()
	return scriptedRow{vals: []any{
		id, telegramID, "lena", "Lena", balance,
		domain.DefaultModel, domain.DefaultImageQuality, domain.DefaultImageSize,
		now, now,
	}}
}

func TestGetOrCreateFirstContact(t *testing.T) {
	id := uuid.New()
	db := &scriptedDB{rows: []scriptedRow{
		{err: pgx.ErrNoRows},       // no existing account
		accountRow(id, 4242, 1056), // insert returns the new row
	}}

	account, created, err := NewAccountRepository(db).GetOrCreate(context.Background(), 4242, "lena", "Lena", 1056)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if !created {
		t.Fatalf("first contact must report created")
	}
	if account.ID != id || account.Balance != 1056 {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestGetOrCreateExistingAccount(t *testing.T) {
	db := &scriptedDB{rows: []scriptedRow{
		accountRow(uuid.New(), 4242, 300),
	}}

	account, created, err := NewAccountRepository(db).GetOrCreate(context.Background(), 4242, "lena", "Lena", 1056)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if created {
		t.Fatalf("existing account must not report created")
	}
	if account.Balance != 300 {
		t.Fatalf("balance = %d, want the stored 300, not the signup grant", account.Balance)
	}
	if len(db.queries) != 1 {
		t.Fatalf("existing account should need one query, got %d", len(db.queries))
	}
}

func TestGetOrCreateLostInsertRace(t *testing.T) {
	// Two first contacts race: this caller's lookup misses, its insert
	// conflicts and returns no row, and the fallback read finds the winner's
	// account. It must not be greeted as a new signup.
	db := &scriptedDB{rows: []scriptedRow{
		{err: pgx.ErrNoRows},      // lookup before the winner commits
		{err: pgx.ErrNoRows},      // insert conflicted, DO NOTHING returned nothing
		accountRow(uuid.New(), 4242, 1056), // winner's row
	}}

	account, created, err := NewAccountRepository(db).GetOrCreate(context.Background(), 4242, "lena", "Lena", 1056)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if created {
		t.Fatalf("race loser must report created = false")
	}
	if account == nil || account.TelegramID != 4242 {
		t.Fatalf("race loser should get the existing account, got %+v", account)
	}
}
