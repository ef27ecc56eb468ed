package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/plbrasil/hs-notify/internal/db"
	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/repository"
)

func newSQLiteRepo(t *testing.T) repository.ContratoRepository {
	t.Helper()
	conn, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "hs.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return repository.NewSQLiteContratoRepository(conn)
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func contrato(id, cnpj string, plano domain.Plano, created time.Time) *domain.Contrato {
	return &domain.Contrato{
		ID: id, Empresa: "Empresa " + id, CNPJ: cnpj, Plano: plano, Vidas: 10,
		CreatedBy: "ana", CreatedAt: created, UpdatedAt: created,
	}
}

func TestSQLiteContratoRepository_CreateAndGet(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	want := contrato("c1", "11222333000181", domain.PlanoCompleto, base)
	if err := repo.Create(ctx, want); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Empresa != want.Empresa || got.Plano != want.Plano || got.Vidas != 10 || got.CreatedBy != "ana" {
		t.Fatalf("unexpected contrato %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("expected created_at %v, got %v", base, got.CreatedAt)
	}
	if got.NotifiedAt != nil {
		t.Fatal("expected notified_at to be nil")
	}
}

func TestSQLiteContratoRepository_GetByID_NotFound(t *testing.T) {
	repo := newSQLiteRepo(t)
	if _, err := repo.GetByID(context.Background(), "missing"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteContratoRepository_DuplicateCNPJ(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, contrato("c1", "11222333000181", domain.PlanoBasico, base)); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := repo.Create(ctx, contrato("c2", "11222333000181", domain.PlanoBasico, base))
	if err != domain.ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSQLiteContratoRepository_ListFiltersAndPaginates(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	seed := []*domain.Contrato{
		contrato("c1", "00000000000191", domain.PlanoBasico, base),
		contrato("c2", "11222333000181", domain.PlanoCompleto, base.Add(time.Minute)),
		contrato("c3", "11444777000161", domain.PlanoBasico, base.Add(2*time.Minute)),
	}
	for _, c := range seed {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("create %s: %v", c.ID, err)
		}
	}

	plano := domain.PlanoBasico
	got, total, err := repo.List(ctx, domain.ListFilter{Plano: &plano, Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(got) != 2 || got[0].ID != "c3" || got[1].ID != "c1" {
		t.Fatalf("unexpected filtered list total=%d %v", total, ids(got))
	}

	from := base.Add(30 * time.Second)
	got, total, err = repo.List(ctx, domain.ListFilter{From: &from, Page: 2, Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(got) != 1 || got[0].ID != "c2" {
		t.Fatalf("unexpected paginated list total=%d %v", total, ids(got))
	}
}

func TestSQLiteContratoRepository_UnnotifiedLifecycle(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_ = repo.Create(ctx, contrato("old", "00000000000191", domain.PlanoBasico, base.Add(-time.Hour)))
	_ = repo.Create(ctx, contrato("b", "11222333000181", domain.PlanoBasico, base.Add(time.Second)))
	_ = repo.Create(ctx, contrato("a", "11444777000161", domain.PlanoBasico, base))

	got, err := repo.FindUnnotified(ctx, base.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("expected [a b], got %v", ids(got))
	}

	at := base.Add(time.Minute)
	if err := repo.MarkNotified(ctx, "a", at); err != nil {
		t.Fatalf("mark: %v", err)
	}
	got, _ = repo.FindUnnotified(ctx, base.Add(-time.Minute), 10)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected [b], got %v", ids(got))
	}

	c, _ := repo.GetByID(ctx, "a")
	if c.NotifiedAt == nil || !c.NotifiedAt.Equal(at) {
		t.Fatalf("expected notified_at %v, got %v", at, c.NotifiedAt)
	}
}

func ids(cs []*domain.Contrato) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
