package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sistema-ppc/ppc-api/internal/dto"
	"github.com/sistema-ppc/ppc-api/internal/middleware"
	"github.com/sistema-ppc/ppc-api/internal/models"
	"github.com/sistema-ppc/ppc-api/internal/service"
	appErrors "github.com/sistema-ppc/ppc-api/pkg/errors"
	"github.com/sistema-ppc/ppc-api/pkg/response"
)

type propostaService interface {
	Create(ctx context.Context, req dto.CreatePropostaRequest, actor *models.JWTClaims) (*models.Proposta, error)
	List(ctx context.Context, actor *models.JWTClaims) ([]models.Proposta, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Proposta, error)
	Evaluate(ctx context.Context, id string, req dto.AvaliarRequest, actor *models.JWTClaims) (*models.Proposta, error)
	Decide(ctx context.Context, id string, req dto.DecidirRequest, actor *models.JWTClaims) (*models.Proposta, error)
}

type exportService interface {
	Export(ctx context.Context, id string, format service.ExportFormat, actor *models.JWTClaims) (*service.ExportResult, error)
}

// PropostaHandler exposes the course proposal workflow endpoints.
type PropostaHandler struct {
	service propostaService
	export  exportService
}

// NewPropostaHandler constructs a PropostaHandler.
func NewPropostaHandler(svc propostaService, export exportService) *PropostaHandler {
	return &PropostaHandler{service: svc, export: export}
}

// Create submits a new proposal.
// POST /propostas
func (h *PropostaHandler) Create(c *gin.Context) {
	var req dto.CreatePropostaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(map[string]string{"body": "invalid JSON payload"}))
		return
	}

	proposta, err := h.service.Create(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, proposta)
}

// List returns proposals visible to the caller.
// GET /propostas
func (h *PropostaHandler) List(c *gin.Context) {
	propostas, err := h.service.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, propostas, map[string]interface{}{
		"total": len(propostas),
	})
}

// Get returns one proposal with disciplines and full status history.
// GET /propostas/:id
func (h *PropostaHandler) Get(c *gin.Context) {
	proposta, err := h.service.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposta)
}

// Evaluate records an evaluator verdict on a proposal.
// PUT /propostas/:id/avaliar
func (h *PropostaHandler) Evaluate(c *gin.Context) {
	var req dto.AvaliarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(map[string]string{"body": "invalid JSON payload"}))
		return
	}

	proposta, err := h.service.Evaluate(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposta)
}

// Decide records the final verdict on a proposal.
// PUT /propostas/:id/decidir
func (h *PropostaHandler) Decide(c *gin.Context) {
	var req dto.DecidirRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(map[string]string{"body": "invalid JSON payload"}))
		return
	}

	proposta, err := h.service.Decide(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposta)
}

// Export renders the proposal dossier as PDF or CSV.
// GET /propostas/:id/exportar?formato=pdf|csv
func (h *PropostaHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("formato", string(service.ExportFormatPDF)))

	result, err := h.export.Export(c.Request.Context(), c.Param("id"), format, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
