package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-ppc/ppc-api/internal/dto"
	"github.com/sistema-ppc/ppc-api/internal/middleware"
	"github.com/sistema-ppc/ppc-api/internal/models"
	"github.com/sistema-ppc/ppc-api/internal/service"
	appErrors "github.com/sistema-ppc/ppc-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type propostaServiceStub struct {
	createFn   func(ctx context.Context, req dto.CreatePropostaRequest, actor *models.JWTClaims) (*models.Proposta, error)
	listFn     func(ctx context.Context, actor *models.JWTClaims) ([]models.Proposta, error)
	getFn      func(ctx context.Context, id string, actor *models.JWTClaims) (*models.Proposta, error)
	evaluateFn func(ctx context.Context, id string, req dto.AvaliarRequest, actor *models.JWTClaims) (*models.Proposta, error)
	decideFn   func(ctx context.Context, id string, req dto.DecidirRequest, actor *models.JWTClaims) (*models.Proposta, error)
}

func (s *propostaServiceStub) Create(ctx context.Context, req dto.CreatePropostaRequest, actor *models.JWTClaims) (*models.Proposta, error) {
	return s.createFn(ctx, req, actor)
}

func (s *propostaServiceStub) List(ctx context.Context, actor *models.JWTClaims) ([]models.Proposta, error) {
	return s.listFn(ctx, actor)
}

func (s *propostaServiceStub) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Proposta, error) {
	return s.getFn(ctx, id, actor)
}

func (s *propostaServiceStub) Evaluate(ctx context.Context, id string, req dto.AvaliarRequest, actor *models.JWTClaims) (*models.Proposta, error) {
	return s.evaluateFn(ctx, id, req, actor)
}

func (s *propostaServiceStub) Decide(ctx context.Context, id string, req dto.DecidirRequest, actor *models.JWTClaims) (*models.Proposta, error) {
	return s.decideFn(ctx, id, req, actor)
}

type exportServiceStub struct {
	exportFn func(ctx context.Context, id string, format service.ExportFormat, actor *models.JWTClaims) (*service.ExportResult, error)
}

func (s *exportServiceStub) Export(ctx context.Context, id string, format service.ExportFormat, actor *models.JWTClaims) (*service.ExportResult, error) {
	return s.exportFn(ctx, id, format, actor)
}

func performRequest(t *testing.T, handler gin.HandlerFunc, method, target, body string, claims *models.JWTClaims, params ...gin.Param) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}

	handler(c)
	return recorder
}

func submissorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u1", Tipo: models.RoleSubmissor}
}

func TestCreateReturnsCreatedEnvelope(t *testing.T) {
	svc := &propostaServiceStub{
		createFn: func(_ context.Context, req dto.CreatePropostaRequest, actor *models.JWTClaims) (*models.Proposta, error) {
			assert.Equal(t, "Engenharia Civil", req.Nome)
			assert.Equal(t, "u1", actor.UserID)
			return &models.Proposta{ID: "p1", Nome: req.Nome}, nil
		},
	}
	h := NewPropostaHandler(svc, nil)

	body := `{"nome":"Engenharia Civil","carga_horaria_total":3200,"quantidade_semestres":8,"justificativa":"x","impacto_social":"y","disciplinas":[{"nome":"Intro","carga_horaria":60,"semestre":1}]}`
	rec := performRequest(t, h.Create, http.MethodPost, "/api/propostas", body, submissorClaims())

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data models.Proposta `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "p1", envelope.Data.ID)
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	h := NewPropostaHandler(&propostaServiceStub{}, nil)

	rec := performRequest(t, h.Create, http.MethodPost, "/api/propostas", `{"nome":`, submissorClaims())

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestListCarriesTotalMeta(t *testing.T) {
	svc := &propostaServiceStub{
		listFn: func(_ context.Context, _ *models.JWTClaims) ([]models.Proposta, error) {
			return []models.Proposta{{ID: "p1"}, {ID: "p2"}}, nil
		},
	}
	h := NewPropostaHandler(svc, nil)

	rec := performRequest(t, h.List, http.MethodGet, "/api/propostas", "", submissorClaims())

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.Proposta      `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
	assert.EqualValues(t, 2, envelope.Meta["total"])
}

func TestEvaluatePropagatesTransitionError(t *testing.T) {
	svc := &propostaServiceStub{
		evaluateFn: func(_ context.Context, id string, _ dto.AvaliarRequest, _ *models.JWTClaims) (*models.Proposta, error) {
			assert.Equal(t, "p1", id)
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, `proposta cannot be evaluated while at status "aprovada"`)
		},
	}
	h := NewPropostaHandler(svc, nil)

	body := `{"comentario":"ok","status_novo":"em_aprovacao"}`
	rec := performRequest(t, h.Evaluate, http.MethodPut, "/api/propostas/p1/avaliar", body, &models.JWTClaims{UserID: "a1", Tipo: models.RoleAvaliador}, gin.Param{Key: "id", Value: "p1"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, envelope.Error.Code)
	assert.Contains(t, envelope.Error.Message, "aprovada")
}

func TestDecideReturnsUpdatedProposta(t *testing.T) {
	svc := &propostaServiceStub{
		decideFn: func(_ context.Context, id string, req dto.DecidirRequest, _ *models.JWTClaims) (*models.Proposta, error) {
			assert.Equal(t, models.StatusAprovada, req.StatusFinal)
			return &models.Proposta{ID: id}, nil
		},
	}
	h := NewPropostaHandler(svc, nil)

	body := `{"comentario":"parecer favorável","status_final":"aprovada"}`
	rec := performRequest(t, h.Decide, http.MethodPut, "/api/propostas/p1/decidir", body, &models.JWTClaims{UserID: "d1", Tipo: models.RoleDecisor}, gin.Param{Key: "id", Value: "p1"})

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExportStreamsAttachment(t *testing.T) {
	export := &exportServiceStub{
		exportFn: func(_ context.Context, id string, format service.ExportFormat, _ *models.JWTClaims) (*service.ExportResult, error) {
			assert.Equal(t, "p1", id)
			assert.Equal(t, service.ExportFormatCSV, format)
			return &service.ExportResult{
				Content:     []byte("Status,Data\n"),
				ContentType: "text/csv",
				Filename:    "proposta-p1.csv",
			}, nil
		},
	}
	h := NewPropostaHandler(&propostaServiceStub{}, export)

	rec := performRequest(t, h.Export, http.MethodGet, "/api/propostas/p1/exportar?formato=csv", "", submissorClaims(), gin.Param{Key: "id", Value: "p1"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "proposta-p1.csv")
}
