package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresDialect implements Dialect for PostgreSQL via the pgx stdlib driver.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) NowExpr() string { return "NOW()" }

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.Detail)
	}
	return err
}

func (d *PostgresDialect) TableStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS category (
    id          SERIAL PRIMARY KEY,
    name        VARCHAR(255) NOT NULL,
    description TEXT
)`,
		`CREATE TABLE IF NOT EXISTS inventory (
    id          SERIAL PRIMARY KEY,
    sku         VARCHAR(100) NOT NULL UNIQUE,
    name        VARCHAR(255) NOT NULL,
    quantity    INTEGER NOT NULL,
    price       NUMERIC(10,2) NOT NULL,
    category_id INTEGER NOT NULL REFERENCES category(id),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS customer (
    id         SERIAL PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    last_name  VARCHAR(100) NOT NULL,
    email      VARCHAR(255) NOT NULL UNIQUE,
    phone      VARCHAR(20),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS sale (
    id           SERIAL PRIMARY KEY,
    customer_id  INTEGER NOT NULL REFERENCES customer(id),
    sale_date    DATE NOT NULL,
    total_amount NUMERIC(10,2) NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS sale_item (
    id           SERIAL PRIMARY KEY,
    sale_id      INTEGER NOT NULL REFERENCES sale(id),
    inventory_id INTEGER NOT NULL REFERENCES inventory(id),
    quantity     INTEGER NOT NULL,
    unit_price   NUMERIC(10,2) NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS support_ticket (
    id          SERIAL PRIMARY KEY,
    customer_id INTEGER NOT NULL REFERENCES customer(id),
    subject     VARCHAR(255) NOT NULL,
    description TEXT,
    status      VARCHAR(20) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
    id           SERIAL PRIMARY KEY,
    entity       VARCHAR(100) NOT NULL,
    entity_id    BIGINT NOT NULL,
    action       VARCHAR(50) NOT NULL,
    performed_by VARCHAR(100) NOT NULL,
    performed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    details      TEXT,
    request_id   VARCHAR(36)
)`,
		`CREATE TABLE IF NOT EXISTS migration_tracking (
    id          SERIAL PRIMARY KEY,
    legacy_id   VARCHAR(100) NOT NULL,
    new_id      BIGINT NOT NULL,
    entity      VARCHAR(100) NOT NULL,
    migrated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status      VARCHAR(20) NOT NULL
)`,
	}
}
