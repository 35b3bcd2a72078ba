package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sistema-ppc/ppc-api/internal/dto"
	"github.com/sistema-ppc/ppc-api/internal/models"
	"github.com/sistema-ppc/ppc-api/internal/repository"
	appErrors "github.com/sistema-ppc/ppc-api/pkg/errors"
)

// Note recorded on the initial status event of every proposal. Never
// user-supplied.
const initialStatusNote = "Proposta inicial submetida pela unidade acadêmica."

const maxNomeLength = 255

// Allowed source and target sets per operation. The evaluate source set
// deliberately excludes ajustes_requeridos: a proposal sent back for changes
// cannot be re-evaluated through this gate (kept as-is pending product
// clarification).
var (
	evaluateSources = []models.ProposalStatus{models.StatusSubmetida, models.StatusEmAvaliacao}
	evaluateTargets = []models.ProposalStatus{models.StatusAjustesRequeridos, models.StatusEmAprovacao}
	decideSources   = []models.ProposalStatus{models.StatusEmAprovacao}
	decideTargets   = []models.ProposalStatus{models.StatusAprovada, models.StatusRejeitada}
)

type propostaStore interface {
	CreateWithDisciplinas(ctx context.Context, proposta *models.Proposta, observacao string) error
	GetByID(ctx context.Context, id string) (*models.Proposta, error)
	ListAll(ctx context.Context) ([]models.Proposta, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// PropostaService is the workflow engine: it authorizes by role, validates
// payloads, enforces the transition table and delegates atomic writes to the
// repository.
type PropostaService struct {
	repo   propostaStore
	audit  auditLogger
	cache  *CacheService
	logger *zap.Logger
}

// NewPropostaService constructs the service.
func NewPropostaService(repo propostaStore, audit auditLogger, cache *CacheService, logger *zap.Logger) *PropostaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropostaService{repo: repo, audit: audit, cache: cache, logger: logger}
}

// Create submits a new proposal. Only submissor users may call it; the
// proposal, its disciplines and the initial submetida event are stored in one
// atomic unit.
func (s *PropostaService) Create(ctx context.Context, req dto.CreatePropostaRequest, actor *models.JWTClaims) (*models.Proposta, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Tipo != models.RoleSubmissor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only submissor users may submit course proposals")
	}

	if fields := validateCreatePayload(req); len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}

	autorID := actor.UserID
	proposta := &models.Proposta{
		Nome:                strings.TrimSpace(req.Nome),
		CargaHorariaTotal:   req.CargaHorariaTotal,
		QuantidadeSemestres: req.QuantidadeSemestres,
		Justificativa:       req.Justificativa,
		ImpactoSocial:       req.ImpactoSocial,
		AutorID:             &autorID,
	}
	for _, payload := range req.Disciplinas {
		proposta.Disciplinas = append(proposta.Disciplinas, models.Disciplina{
			Nome:         strings.TrimSpace(payload.Nome),
			CargaHoraria: payload.CargaHoraria,
			Semestre:     payload.Semestre,
		})
	}

	if err := s.repo.CreateWithDisciplinas(ctx, proposta, initialStatusNote); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proposta")
	}

	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor, models.AuditActionPropostaCreate, proposta.ID, map[string]interface{}{
		"nome":   proposta.Nome,
		"status": models.StatusSubmetida,
	})
	return proposta, nil
}

// List returns the proposals visible to the caller's role. Unknown roles get
// an empty result, not an error.
func (s *PropostaService) List(ctx context.Context, actor *models.JWTClaims) ([]models.Proposta, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	cacheKey := fmt.Sprintf("propostas:list:%s:%s", actor.Tipo, actor.UserID)
	var cached []models.Proposta
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	propostas, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list propostas")
	}

	visible := make([]models.Proposta, 0, len(propostas))
	for i := range propostas {
		if visibleTo(actor, &propostas[i]) {
			visible = append(visible, propostas[i])
		}
	}

	if err := s.cache.Set(ctx, cacheKey, visible, 0); err != nil {
		s.logger.Warn("failed to cache proposta list", zap.Error(err))
	}
	return visible, nil
}

// Get returns a single proposal, applying the same visibility predicate as
// List. A proposal outside the caller's scope yields forbidden, not found is
// reserved for absent rows.
func (s *PropostaService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Proposta, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	proposta, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposta not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposta")
	}

	if !visibleTo(actor, proposta) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not allowed to view this proposta")
	}
	return proposta, nil
}

// Evaluate records an evaluator verdict: the comment lands on the proposal,
// the caller becomes the assigned evaluator and a new status event is
// appended, all in one atomic unit.
func (s *PropostaService) Evaluate(ctx context.Context, id string, req dto.AvaliarRequest, actor *models.JWTClaims) (*models.Proposta, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Tipo != models.RoleAvaliador {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only avaliador users may evaluate propostas")
	}

	fields := map[string]string{}
	comentario := strings.TrimSpace(req.Comentario)
	if comentario == "" {
		fields["comentario"] = "comentario is required"
	}
	if !statusIn(req.StatusNovo, evaluateTargets) {
		fields["status_novo"] = "status_novo must be ajustes_requeridos or em_aprovacao"
	}
	if len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}

	avaliadorID := actor.UserID
	err := s.repo.Transition(ctx, repository.TransitionParams{
		PropostaID:          id,
		AllowedSources:      evaluateSources,
		NewStatus:           req.StatusNovo,
		Observacao:          &comentario,
		ComentarioAvaliador: &comentario,
		AvaliadorID:         &avaliadorID,
	})
	if err != nil {
		return nil, s.mapTransitionError(err, "evaluated")
	}

	proposta, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload proposta")
	}

	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor, models.AuditActionPropostaAvaliar, id, map[string]interface{}{
		"status_novo": req.StatusNovo,
	})
	return proposta, nil
}

// Decide records the final verdict on a proposal sitting at em_aprovacao.
func (s *PropostaService) Decide(ctx context.Context, id string, req dto.DecidirRequest, actor *models.JWTClaims) (*models.Proposta, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Tipo != models.RoleDecisor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only decisor users may decide propostas")
	}

	fields := map[string]string{}
	comentario := strings.TrimSpace(req.Comentario)
	if comentario == "" {
		fields["comentario"] = "comentario is required"
	}
	if !statusIn(req.StatusFinal, decideTargets) {
		fields["status_final"] = "status_final must be aprovada or rejeitada"
	}
	if len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}

	decisorID := actor.UserID
	err := s.repo.Transition(ctx, repository.TransitionParams{
		PropostaID:        id,
		AllowedSources:    decideSources,
		NewStatus:         req.StatusFinal,
		Observacao:        &comentario,
		ComentarioDecisor: &comentario,
		DecisorFinalID:    &decisorID,
	})
	if err != nil {
		return nil, s.mapTransitionError(err, "decided")
	}

	proposta, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload proposta")
	}

	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor, models.AuditActionPropostaDecidir, id, map[string]interface{}{
		"status_final": req.StatusFinal,
	})
	return proposta, nil
}

func (s *PropostaService) mapTransitionError(err error, action string) error {
	var transitionErr *repository.TransitionError
	if errors.As(err, &transitionErr) {
		message := fmt.Sprintf("proposta cannot be %s while at status %q", action, transitionErr.Current)
		return appErrors.Clone(appErrors.ErrInvalidTransition, message)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "proposta not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
}

func (s *PropostaService) invalidateListCache(ctx context.Context) {
	if err := s.cache.InvalidatePattern(ctx, "propostas:*"); err != nil {
		s.logger.Warn("failed to invalidate proposta cache", zap.Error(err))
	}
}

func (s *PropostaService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(values)
	userID := actor.UserID
	rid := resourceID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "proposta",
		ResourceID: &rid,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func statusIn(status models.ProposalStatus, set []models.ProposalStatus) bool {
	for _, candidate := range set {
		if status == candidate {
			return true
		}
	}
	return false
}

func validateCreatePayload(req dto.CreatePropostaRequest) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(req.Nome) == "" {
		fields["nome"] = "nome is required"
	} else if len(req.Nome) > maxNomeLength {
		fields["nome"] = "nome must not exceed 255 characters"
	}
	if req.CargaHorariaTotal < 1 {
		fields["carga_horaria_total"] = "carga_horaria_total must be at least 1"
	}
	if req.QuantidadeSemestres < 1 {
		fields["quantidade_semestres"] = "quantidade_semestres must be at least 1"
	}
	if strings.TrimSpace(req.Justificativa) == "" {
		fields["justificativa"] = "justificativa is required"
	}
	if strings.TrimSpace(req.ImpactoSocial) == "" {
		fields["impacto_social"] = "impacto_social is required"
	}
	if len(req.Disciplinas) == 0 {
		fields["disciplinas"] = "at least one disciplina is required"
	}
	for i, disciplina := range req.Disciplinas {
		if strings.TrimSpace(disciplina.Nome) == "" {
			fields[fmt.Sprintf("disciplinas.%d.nome", i)] = "nome is required"
		} else if len(disciplina.Nome) > maxNomeLength {
			fields[fmt.Sprintf("disciplinas.%d.nome", i)] = "nome must not exceed 255 characters"
		}
		if disciplina.CargaHoraria < 1 {
			fields[fmt.Sprintf("disciplinas.%d.carga_horaria", i)] = "carga_horaria must be at least 1"
		}
		if disciplina.Semestre < 1 {
			fields[fmt.Sprintf("disciplinas.%d.semestre", i)] = "semestre must be at least 1"
		}
	}
	return fields
}
