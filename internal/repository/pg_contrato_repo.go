package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plbrasil/hs-notify/internal/domain"
)

const uniqueViolation = "23505"

const contratoColumns = `id, empresa, cnpj, plano, vidas, created_by, notified_at, created_at, updated_at`

type pgContratoRepository struct {
	pool *pgxpool.Pool
}

// NewPgContratoRepository returns a ContratoRepository backed by PostgreSQL.
func NewPgContratoRepository(pool *pgxpool.Pool) ContratoRepository {
	return &pgContratoRepository{pool: pool}
}

func (r *pgContratoRepository) Create(ctx context.Context, c *domain.Contrato) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO contratos
			(id, empresa, cnpj, plano, vidas, created_by, notified_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Empresa, c.CNPJ, c.Plano, c.Vidas, c.CreatedBy, c.NotifiedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert contrato: %w", err)
	}
	return nil
}

func (r *pgContratoRepository) GetByID(ctx context.Context, id string) (*domain.Contrato, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contratoColumns+` FROM contratos WHERE id = $1`, id)

	c, err := scanContrato(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

func (r *pgContratoRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Contrato, int, error) {
	where, args := buildListWhere(f, func(n int) string { return fmt.Sprintf("$%d", n) })
	offset := (f.Page - 1) * f.Limit

	// Count total matching rows for pagination metadata.
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM contratos"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contratos: %w", err)
	}

	args = append(args, f.Limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM contratos%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, contratoColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list contratos: %w", err)
	}
	defer rows.Close()

	contratos, err := scanContratos(rows)
	return contratos, total, err
}

func (r *pgContratoRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE contratos SET notified_at = $1, updated_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *pgContratoRepository) FindUnnotified(ctx context.Context, since time.Time, limit int) ([]*domain.Contrato, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contratoColumns+`
		FROM contratos
		WHERE notified_at IS NULL
		  AND created_at >= $1
		ORDER BY created_at ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("find unnotified: %w", err)
	}
	defer rows.Close()
	return scanContratos(rows)
}

// ---- helpers ----

func scanContrato(row pgx.Row) (*domain.Contrato, error) {
	var c domain.Contrato
	err := row.Scan(
		&c.ID, &c.Empresa, &c.CNPJ, &c.Plano, &c.Vidas, &c.CreatedBy,
		&c.NotifiedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanContratos(rows pgx.Rows) ([]*domain.Contrato, error) {
	var result []*domain.Contrato
	for rows.Next() {
		c, err := scanContrato(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// buildListWhere builds a parameterised WHERE clause from a ListFilter.
// placeholder renders the n-th bind parameter in the target dialect.
func buildListWhere(f domain.ListFilter, placeholder func(n int) string) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, condition+placeholder(len(args)))
	}

	if f.Plano != nil {
		add("plano = ", string(*f.Plano))
	}
	if f.From != nil {
		add("created_at >= ", *f.From)
	}
	if f.To != nil {
		add("created_at <= ", *f.To)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
