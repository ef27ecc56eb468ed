package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/plbrasil/hs-notify/internal/domain"
)

// Timestamps are stored as Unix nanoseconds so ordering and range filters
// stay numeric in SQLite.
type sqliteContratoRepository struct {
	db *sql.DB
}

// NewSQLiteContratoRepository returns a ContratoRepository backed by SQLite,
// intended for local development and single-node installs.
func NewSQLiteContratoRepository(db *sql.DB) ContratoRepository {
	return &sqliteContratoRepository{db: db}
}

func (r *sqliteContratoRepository) Create(ctx context.Context, c *domain.Contrato) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contratos
			(id, empresa, cnpj, plano, vidas, created_by, notified_at, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Empresa, c.CNPJ, string(c.Plano), c.Vidas, c.CreatedBy,
		nullableNanos(c.NotifiedAt), c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano(),
	)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert contrato: %w", err)
	}
	return nil
}

func (r *sqliteContratoRepository) GetByID(ctx context.Context, id string) (*domain.Contrato, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contratoColumns+` FROM contratos WHERE id = ?`, id)

	c, err := scanSQLiteContrato(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

func (r *sqliteContratoRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Contrato, int, error) {
	where, args := buildListWhere(f, func(int) string { return "?" })
	for i, a := range args {
		if t, ok := a.(time.Time); ok {
			args[i] = t.UnixNano()
		}
	}
	offset := (f.Page - 1) * f.Limit

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contratos"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contratos: %w", err)
	}

	args = append(args, f.Limit, offset)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contratoColumns+`
		FROM contratos`+where+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list contratos: %w", err)
	}
	defer rows.Close()

	contratos, err := scanSQLiteContratos(rows)
	return contratos, total, err
}

func (r *sqliteContratoRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contratos SET notified_at = ?, updated_at = ? WHERE id = ?`,
		at.UnixNano(), at.UnixNano(), id)
	return err
}

func (r *sqliteContratoRepository) FindUnnotified(ctx context.Context, since time.Time, limit int) ([]*domain.Contrato, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contratoColumns+`
		FROM contratos
		WHERE notified_at IS NULL
		  AND created_at >= ?
		ORDER BY created_at ASC
		LIMIT ?`, since.UnixNano(), limit)
	if err != nil {
		return nil, fmt.Errorf("find unnotified: %w", err)
	}
	defer rows.Close()
	return scanSQLiteContratos(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteContrato(row rowScanner) (*domain.Contrato, error) {
	var (
		c                    domain.Contrato
		plano                string
		notified             sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&c.ID, &c.Empresa, &c.CNPJ, &plano, &c.Vidas, &c.CreatedBy,
		&notified, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Plano = domain.Plano(plano)
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	c.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if notified.Valid {
		t := time.Unix(0, notified.Int64).UTC()
		c.NotifiedAt = &t
	}
	return &c, nil
}

func scanSQLiteContratos(rows *sql.Rows) ([]*domain.Contrato, error) {
	var result []*domain.Contrato
	for rows.Next() {
		c, err := scanSQLiteContrato(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
