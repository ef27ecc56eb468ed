package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/plbrasil/hs-notify/internal/api/middleware"
	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/service"
)

// ContratoHandler handles the contract endpoints.
type ContratoHandler struct {
	svc    *service.ContratoService
	logger *zap.Logger
}

func NewContratoHandler(svc *service.ContratoService, logger *zap.Logger) *ContratoHandler {
	return &ContratoHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/contratos
//
// @Summary     Create a contract and announce it to dashboards
// @Tags        contratos
// @Accept      json
// @Produce     json
// @Param       body  body      domain.CreateContratoRequest  true  "Contract payload"
// @Success     201   {object}  domain.Contrato
// @Failure     409   {object}  map[string]string
// @Failure     422   {object}  map[string]string
// @Failure     429   {object}  map[string]string
// @Router      /api/v1/contratos [post]
func (h *ContratoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateContratoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.logger.Warn("create contrato failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// GetByID handles GET /api/v1/contratos/{id}
//
// @Summary  Get a contract by ID
// @Tags     contratos
// @Produce  json
// @Param    id   path      string  true  "Contract UUID"
// @Success  200  {object}  domain.Contrato
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/contratos/{id} [get]
func (h *ContratoHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// List handles GET /api/v1/contratos
//
// @Summary  List contracts with filtering and pagination
// @Tags     contratos
// @Produce  json
// @Param    plano  query     string  false  "Filter by plano"
// @Param    from   query     string  false  "Created after (RFC3339)"
// @Param    to     query     string  false  "Created before (RFC3339)"
// @Param    page   query     int     false  "Page number (default 1)"
// @Param    limit  query     int     false  "Items per page (default 20, max 100)"
// @Success  200    {object}  map[string]any
// @Router   /api/v1/contratos [get]
func (h *ContratoHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	contratos, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list contratos failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list contratos")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  contratos,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if s := q.Get("plano"); s != "" {
		p := domain.Plano(s)
		filter.Plano = &p
	}
	if f := q.Get("from"); f != "" {
		if t, err := time.Parse(time.RFC3339, f); err == nil {
			filter.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}
	return filter
}
