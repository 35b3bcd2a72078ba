package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-ppc/ppc-api/internal/dto"
	"github.com/sistema-ppc/ppc-api/internal/models"
	"github.com/sistema-ppc/ppc-api/internal/repository"
	appErrors "github.com/sistema-ppc/ppc-api/pkg/errors"
)

type storeStub struct {
	createFn     func(ctx context.Context, proposta *models.Proposta, observacao string) error
	getFn        func(ctx context.Context, id string) (*models.Proposta, error)
	listFn       func(ctx context.Context) ([]models.Proposta, error)
	transitionFn func(ctx context.Context, params repository.TransitionParams) error

	createCalls     int
	transitionCalls []repository.TransitionParams
}

func (s *storeStub) CreateWithDisciplinas(ctx context.Context, proposta *models.Proposta, observacao string) error {
	s.createCalls++
	if s.createFn != nil {
		return s.createFn(ctx, proposta, observacao)
	}
	proposta.ID = "generated"
	return nil
}

func (s *storeStub) GetByID(ctx context.Context, id string) (*models.Proposta, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (s *storeStub) ListAll(ctx context.Context) ([]models.Proposta, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *storeStub) Transition(ctx context.Context, params repository.TransitionParams) error {
	s.transitionCalls = append(s.transitionCalls, params)
	if s.transitionFn != nil {
		return s.transitionFn(ctx, params)
	}
	return nil
}

type auditStub struct {
	entries []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func claimsFor(role models.Role, userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Tipo: role}
}

func validCreateRequest() dto.CreatePropostaRequest {
	return dto.CreatePropostaRequest{
		Nome:                "Engenharia de Computação",
		CargaHorariaTotal:   3600,
		QuantidadeSemestres: 10,
		Justificativa:       "Demanda do polo tecnológico",
		ImpactoSocial:       "Ampliação do acesso ao ensino superior",
		Disciplinas: []dto.DisciplinaPayload{
			{Nome: "Cálculo I", CargaHoraria: 90, Semestre: 1},
		},
	}
}

func propostaWithHistory(id string, autorID string, statuses ...models.ProposalStatus) models.Proposta {
	p := models.Proposta{ID: id, Nome: "Curso " + id}
	if autorID != "" {
		p.AutorID = &autorID
	}
	for _, status := range statuses {
		p.HistoricoStatus = append(p.HistoricoStatus, models.StatusEvento{PropostaID: id, Status: status})
	}
	return p
}

func TestCreateRejectsNonSubmissor(t *testing.T) {
	store := &storeStub{}
	svc := NewPropostaService(store, &auditStub{}, nil, nil)

	_, err := svc.Create(context.Background(), validCreateRequest(), claimsFor(models.RoleAvaliador, "u1"))

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Zero(t, store.createCalls, "role failures must not reach the store")
}

func TestCreateRequiresAtLeastOneDisciplina(t *testing.T) {
	store := &storeStub{}
	svc := NewPropostaService(store, &auditStub{}, nil, nil)

	req := validCreateRequest()
	req.Disciplinas = nil
	_, err := svc.Create(context.Background(), req, claimsFor(models.RoleSubmissor, "u1"))

	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "disciplinas")
	assert.Zero(t, store.createCalls)
}

func TestCreateCollectsAllFieldErrors(t *testing.T) {
	svc := NewPropostaService(&storeStub{}, &auditStub{}, nil, nil)

	req := dto.CreatePropostaRequest{
		Disciplinas: []dto.DisciplinaPayload{{Nome: "", CargaHoraria: 0, Semestre: 0}},
	}
	_, err := svc.Create(context.Background(), req, claimsFor(models.RoleSubmissor, "u1"))

	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	for _, field := range []string{
		"nome", "carga_horaria_total", "quantidade_semestres", "justificativa", "impacto_social",
		"disciplinas.0.nome", "disciplinas.0.carga_horaria", "disciplinas.0.semestre",
	} {
		assert.Contains(t, appErr.Fields, field)
	}
}

func TestCreateStampsAuthorAndAudits(t *testing.T) {
	store := &storeStub{}
	audit := &auditStub{}
	svc := NewPropostaService(store, audit, nil, nil)

	proposta, err := svc.Create(context.Background(), validCreateRequest(), claimsFor(models.RoleSubmissor, "autor-9"))
	require.NoError(t, err)

	require.NotNil(t, proposta.AutorID)
	assert.Equal(t, "autor-9", *proposta.AutorID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionPropostaCreate, audit.entries[0].Action)
}

func TestEvaluateSendsGuardedTransition(t *testing.T) {
	reloaded := propostaWithHistory("p1", "autor-9", models.StatusSubmetida, models.StatusEmAprovacao)
	store := &storeStub{
		getFn: func(_ context.Context, id string) (*models.Proposta, error) {
			return &reloaded, nil
		},
	}
	svc := NewPropostaService(store, &auditStub{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "p1", dto.AvaliarRequest{
		Comentario: "estrutura adequada",
		StatusNovo: models.StatusEmAprovacao,
	}, claimsFor(models.RoleAvaliador, "aval-1"))
	require.NoError(t, err)

	require.Len(t, store.transitionCalls, 1)
	params := store.transitionCalls[0]
	assert.Equal(t, []models.ProposalStatus{models.StatusSubmetida, models.StatusEmAvaliacao}, params.AllowedSources)
	assert.Equal(t, models.StatusEmAprovacao, params.NewStatus)
	require.NotNil(t, params.AvaliadorID)
	assert.Equal(t, "aval-1", *params.AvaliadorID)
	require.NotNil(t, params.ComentarioAvaliador)
	assert.Equal(t, "estrutura adequada", *params.ComentarioAvaliador)
	assert.Nil(t, params.ComentarioDecisor)
}

func TestEvaluateRejectsInvalidTarget(t *testing.T) {
	store := &storeStub{}
	svc := NewPropostaService(store, &auditStub{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "p1", dto.AvaliarRequest{
		Comentario: "ok",
		StatusNovo: models.StatusAprovada,
	}, claimsFor(models.RoleAvaliador, "aval-1"))

	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "status_novo")
	assert.Empty(t, store.transitionCalls)
}

// A proposal sent back for adjustments cannot re-enter evaluation: the source
// set only admits submetida and em_avaliacao.
func TestEvaluateDoesNotReadmitAdjustedProposal(t *testing.T) {
	store := &storeStub{
		transitionFn: func(_ context.Context, _ repository.TransitionParams) error {
			return &repository.TransitionError{Current: models.StatusAjustesRequeridos}
		},
	}
	svc := NewPropostaService(store, &auditStub{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "p1", dto.AvaliarRequest{
		Comentario: "segunda rodada",
		StatusNovo: models.StatusEmAprovacao,
	}, claimsFor(models.RoleAvaliador, "aval-1"))

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "ajustes_requeridos")
}

func TestDecideRequiresEmAprovacao(t *testing.T) {
	store := &storeStub{
		transitionFn: func(_ context.Context, _ repository.TransitionParams) error {
			return &repository.TransitionError{Current: models.StatusSubmetida}
		},
	}
	svc := NewPropostaService(store, &auditStub{}, nil, nil)

	_, err := svc.Decide(context.Background(), "p1", dto.DecidirRequest{
		Comentario:  "aprovado com louvor",
		StatusFinal: models.StatusAprovada,
	}, claimsFor(models.RoleDecisor, "dec-1"))

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "submetida")

	require.Len(t, store.transitionCalls, 1)
	assert.Equal(t, []models.ProposalStatus{models.StatusEmAprovacao}, store.transitionCalls[0].AllowedSources)
}

func TestDecideRejectsNonDecisor(t *testing.T) {
	store := &storeStub{}
	svc := NewPropostaService(store, &auditStub{}, nil, nil)

	_, err := svc.Decide(context.Background(), "p1", dto.DecidirRequest{
		Comentario:  "ok",
		StatusFinal: models.StatusAprovada,
	}, claimsFor(models.RoleSubmissor, "u1"))

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, store.transitionCalls)
}

func TestGetMapsMissingRowToNotFound(t *testing.T) {
	svc := NewPropostaService(&storeStub{}, &auditStub{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing", claimsFor(models.RoleSubmissor, "u1"))

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGetForbidsProposalOutsideVisibility(t *testing.T) {
	other := propostaWithHistory("p1", "someone-else", models.StatusSubmetida)
	store := &storeStub{
		getFn: func(_ context.Context, _ string) (*models.Proposta, error) {
			return &other, nil
		},
	}
	svc := NewPropostaService(store, &auditStub{}, nil, nil)

	_, err := svc.Get(context.Background(), "p1", claimsFor(models.RoleSubmissor, "u1"))

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestListFiltersByRole(t *testing.T) {
	all := []models.Proposta{
		propostaWithHistory("own", "u1", models.StatusSubmetida),
		propostaWithHistory("foreign", "u2", models.StatusSubmetida),
		propostaWithHistory("decided", "u2", models.StatusSubmetida, models.StatusEmAprovacao, models.StatusAprovada),
	}
	store := &storeStub{
		listFn: func(_ context.Context) ([]models.Proposta, error) {
			return all, nil
		},
	}
	svc := NewPropostaService(store, &auditStub{}, nil, nil)

	t.Run("submissor sees only own proposals", func(t *testing.T) {
		visible, err := svc.List(context.Background(), claimsFor(models.RoleSubmissor, "u1"))
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, "own", visible[0].ID)
	})

	t.Run("avaliador sees proposals that passed through submission", func(t *testing.T) {
		visible, err := svc.List(context.Background(), claimsFor(models.RoleAvaliador, "aval-1"))
		require.NoError(t, err)
		assert.Len(t, visible, 3)
	})

	t.Run("decisor keeps seeing decided proposals", func(t *testing.T) {
		visible, err := svc.List(context.Background(), claimsFor(models.RoleDecisor, "dec-1"))
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, "decided", visible[0].ID)
	})

	t.Run("unknown role sees nothing", func(t *testing.T) {
		visible, err := svc.List(context.Background(), claimsFor(models.Role("coordenador"), "x"))
		require.NoError(t, err)
		assert.Empty(t, visible)
	})
}

func TestVisibleToAssignedEvaluator(t *testing.T) {
	avaliadorID := "aval-1"
	p := propostaWithHistory("p1", "autor", models.StatusAprovada)
	p.AvaliadorID = &avaliadorID

	assert.True(t, visibleTo(claimsFor(models.RoleAvaliador, "aval-1"), &p))
	assert.False(t, visibleTo(claimsFor(models.RoleAvaliador, "aval-2"), &p))
}
