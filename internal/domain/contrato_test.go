package domain_test

import (
	"strings"
	"testing"

	"github.com/plbrasil/hs-notify/internal/domain"
)

func TestCreateContratoRequest_Validate(t *testing.T) {
	valid := domain.CreateContratoRequest{
		Empresa: "Metalúrgica Paraná Ltda",
		CNPJ:    "11.222.333/0001-81",
		Plano:   domain.PlanoCompleto,
		Vidas:   120,
	}

	t.Run("valid request passes and normalizes cnpj", func(t *testing.T) {
		r := valid
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.CNPJ != "11222333000181" {
			t.Fatalf("expected normalized cnpj, got %q", r.CNPJ)
		}
	})

	t.Run("empresa is trimmed", func(t *testing.T) {
		r := valid
		r.Empresa = "  Acme  "
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.Empresa != "Acme" {
			t.Fatalf("expected trimmed empresa, got %q", r.Empresa)
		}
	})

	t.Run("blank empresa", func(t *testing.T) {
		r := valid
		r.Empresa = "   "
		if err := r.Validate(); err != domain.ErrInvalidEmpresa {
			t.Fatalf("expected ErrInvalidEmpresa, got %v", err)
		}
	})

	t.Run("empresa too long", func(t *testing.T) {
		r := valid
		r.Empresa = strings.Repeat("ã", 201)
		if err := r.Validate(); err != domain.ErrInvalidEmpresa {
			t.Fatalf("expected ErrInvalidEmpresa, got %v", err)
		}
	})

	t.Run("empresa at max length passes", func(t *testing.T) {
		r := valid
		r.Empresa = strings.Repeat("ã", 200)
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error at max length, got %v", err)
		}
	})

	t.Run("invalid cnpj", func(t *testing.T) {
		r := valid
		r.CNPJ = "11.222.333/0001-82"
		if err := r.Validate(); err != domain.ErrInvalidCNPJ {
			t.Fatalf("expected ErrInvalidCNPJ, got %v", err)
		}
	})

	t.Run("invalid plano", func(t *testing.T) {
		r := valid
		r.Plano = "premium"
		if err := r.Validate(); err != domain.ErrInvalidPlano {
			t.Fatalf("expected ErrInvalidPlano, got %v", err)
		}
	})

	t.Run("vidas out of range", func(t *testing.T) {
		for _, v := range []int{0, -1, 100001} {
			r := valid
			r.Vidas = v
			if err := r.Validate(); err != domain.ErrInvalidVidas {
				t.Fatalf("vidas=%d: expected ErrInvalidVidas, got %v", v, err)
			}
		}
	})

	t.Run("all valid planos accepted", func(t *testing.T) {
		for _, p := range []domain.Plano{domain.PlanoBasico, domain.PlanoIntermediario, domain.PlanoCompleto} {
			r := valid
			r.Plano = p
			if err := r.Validate(); err != nil {
				t.Fatalf("plano %q: expected no error, got %v", p, err)
			}
		}
	})
}

func TestNormalizeCNPJ(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"11.222.333/0001-81", "11222333000181", true},
		{"11222333000181", "11222333000181", true},
		{"00.000.000/0001-91", "00000000000191", true},
		{"11 222 333 0001 81", "11222333000181", true},
		{"11.222.333/0001-80", "", false},
		{"11.222.333/0001-8", "", false},
		{"11.222.333/0001-811", "", false},
		{"11.222.333/0001-8a", "", false},
		{"00000000000000", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		got, ok := domain.NormalizeCNPJ(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("NormalizeCNPJ(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNewContratoCriado(t *testing.T) {
	c := &domain.Contrato{ID: "c-1", Empresa: "Acme", Plano: domain.PlanoBasico, Vidas: 10, CreatedBy: "ana"}
	p := domain.NewContratoCriado(c)

	if p.ContratoID != "c-1" || p.Empresa != "Acme" || p.CreatedBy != "ana" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Message != "Novo contrato: Acme (basico, 10 vidas)" {
		t.Fatalf("unexpected message %q", p.Message)
	}
}
