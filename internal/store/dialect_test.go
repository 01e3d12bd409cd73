package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestParamBuilder_Placeholders(t *testing.T) {
	pg := NewDialect("postgres").NewParamBuilder()
	if got := pg.Add("a"); got != "$1" {
		t.Errorf("postgres placeholder = %s, want $1", got)
	}
	if got := pg.Add("b"); got != "$2" {
		t.Errorf("postgres placeholder = %s, want $2", got)
	}

	lite := NewDialect("sqlite").NewParamBuilder()
	if got := lite.Add("a"); got != "?1" {
		t.Errorf("sqlite placeholder = %s, want ?1", got)
	}
	if got := lite.Add("b"); got != "?2" {
		t.Errorf("sqlite placeholder = %s, want ?2", got)
	}

	if pg.Count() != 2 || len(pg.Params()) != 2 {
		t.Errorf("count = %d, params = %v", pg.Count(), pg.Params())
	}
}

func TestNewDialect_DefaultsToPostgres(t *testing.T) {
	if d := NewDialect(""); d.Name() != "postgres" {
		t.Errorf("Name() = %s, want postgres", d.Name())
	}
	if d := NewDialect("sqlite"); d.DriverName() != "sqlite" {
		t.Errorf("DriverName() = %s, want sqlite", d.DriverName())
	}
}

func TestMapError_UniqueViolation(t *testing.T) {
	pg := &PostgresDialect{}
	pgErr := &pgconn.PgError{Code: "23505", Detail: "Key (sku)=(WID-1) already exists."}
	if !errors.Is(pg.MapError(pgErr), ErrUniqueViolation) {
		t.Error("postgres 23505 should map to ErrUniqueViolation")
	}
	other := errors.New("connection refused")
	if pg.MapError(other) != other {
		t.Error("unrelated errors should pass through unchanged")
	}

	lite := &SQLiteDialect{}
	if !errors.Is(lite.MapError(errors.New("UNIQUE constraint failed: inventory.sku")), ErrUniqueViolation) {
		t.Error("sqlite unique failure should map to ErrUniqueViolation")
	}
	if lite.MapError(other) != other {
		t.Error("unrelated errors should pass through unchanged")
	}
}

func TestTableStatements_CoverAllTables(t *testing.T) {
	for _, d := range []Dialect{&PostgresDialect{}, &SQLiteDialect{}} {
		stmts := d.TableStatements()
		if len(stmts) != 8 {
			t.Errorf("%s: %d table statements, want 8", d.Name(), len(stmts))
		}
	}
}
