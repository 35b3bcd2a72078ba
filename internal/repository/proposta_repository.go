package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sistema-ppc/ppc-api/internal/models"
)

// TransitionError reports that the proposal's current status fell outside
// the allowed source set at the moment the row lock was taken.
type TransitionError struct {
	Current models.ProposalStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("proposta is at status %q", e.Current)
}

// TransitionParams describes one atomic workflow move: the guard, the new
// event and the proposal columns updated alongside it.
type TransitionParams struct {
	PropostaID     string
	AllowedSources []models.ProposalStatus
	NewStatus      models.ProposalStatus
	Observacao     *string

	ComentarioAvaliador *string
	AvaliadorID         *string
	ComentarioDecisor   *string
	DecisorFinalID      *string
}

// PropostaRepository persists proposals, their disciplines and status history.
type PropostaRepository struct {
	db *sqlx.DB
}

// NewPropostaRepository constructs the repository.
func NewPropostaRepository(db *sqlx.DB) *PropostaRepository {
	return &PropostaRepository{db: db}
}

const propostaColumns = `id, nome, carga_horaria_total, quantidade_semestres, justificativa, impacto_social,
	comentario_avaliador, comentario_decisor, id_autor, id_avaliador, id_decisor_final, created_at, updated_at`

const eventoColumns = `id, id_proposta, status, data_status, observacao, created_at`

// CreateWithDisciplinas inserts the proposal, its disciplines and the initial
// submetida event in one transaction. Either everything lands or nothing does.
func (r *PropostaRepository) CreateWithDisciplinas(ctx context.Context, proposta *models.Proposta, observacao string) (err error) {
	if proposta.ID == "" {
		proposta.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	proposta.CreatedAt = now
	proposta.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin proposta transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertProposta = `INSERT INTO propostas_curso
	(id, nome, carga_horaria_total, quantidade_semestres, justificativa, impacto_social, id_autor, created_at, updated_at)
	VALUES (:id, :nome, :carga_horaria_total, :quantidade_semestres, :justificativa, :impacto_social, :id_autor, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertProposta, proposta); err != nil {
		return fmt.Errorf("insert proposta: %w", err)
	}

	const insertDisciplina = `INSERT INTO disciplinas (id, id_curso, nome, carga_horaria, semestre, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range proposta.Disciplinas {
		disciplina := &proposta.Disciplinas[i]
		if disciplina.ID == "" {
			disciplina.ID = uuid.NewString()
		}
		disciplina.PropostaID = proposta.ID
		disciplina.CreatedAt = now
		if _, err = tx.ExecContext(ctx, insertDisciplina,
			disciplina.ID, disciplina.PropostaID, disciplina.Nome, disciplina.CargaHoraria, disciplina.Semestre, disciplina.CreatedAt); err != nil {
			return fmt.Errorf("insert disciplina: %w", err)
		}
	}

	evento := models.StatusEvento{
		ID:         uuid.NewString(),
		PropostaID: proposta.ID,
		Status:     models.StatusSubmetida,
		DataStatus: now,
		CreatedAt:  now,
	}
	if observacao != "" {
		evento.Observacao = &observacao
	}
	if err = insertEvento(ctx, tx, &evento); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit proposta: %w", err)
	}

	proposta.HistoricoStatus = []models.StatusEvento{evento}
	return nil
}

// GetByID fetches a proposal with its disciplines and full status history.
func (r *PropostaRepository) GetByID(ctx context.Context, id string) (*models.Proposta, error) {
	query := fmt.Sprintf(`SELECT %s FROM propostas_curso WHERE id = $1 LIMIT 1`, propostaColumns)
	var proposta models.Proposta
	if err := r.db.GetContext(ctx, &proposta, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get proposta: %w", err)
	}

	if err := r.loadRelations(ctx, []*models.Proposta{&proposta}); err != nil {
		return nil, err
	}
	return &proposta, nil
}

// ListAll returns every proposal with relations loaded, newest first. Role
// visibility is applied by the service over the loaded history.
func (r *PropostaRepository) ListAll(ctx context.Context) ([]models.Proposta, error) {
	query := fmt.Sprintf(`SELECT %s FROM propostas_curso ORDER BY created_at DESC`, propostaColumns)
	var propostas []models.Proposta
	if err := r.db.SelectContext(ctx, &propostas, query); err != nil {
		return nil, fmt.Errorf("list propostas: %w", err)
	}
	if len(propostas) == 0 {
		return propostas, nil
	}

	refs := make([]*models.Proposta, len(propostas))
	for i := range propostas {
		refs[i] = &propostas[i]
	}
	if err := r.loadRelations(ctx, refs); err != nil {
		return nil, err
	}
	return propostas, nil
}

// GetLatestStatus resolves the current status of a proposal. Equal
// data_status values are broken by insertion order so the result is
// deterministic.
func (r *PropostaRepository) GetLatestStatus(ctx context.Context, propostaID string) (models.ProposalStatus, error) {
	const query = `SELECT status FROM status_proposta_curso WHERE id_proposta = $1
	ORDER BY data_status DESC, created_at DESC, id DESC LIMIT 1`
	var status models.ProposalStatus
	if err := r.db.GetContext(ctx, &status, query, propostaID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("get latest status: %w", err)
	}
	return status, nil
}

// HasHistoricalStatus reports whether the proposal ever carried one of the
// given statuses.
func (r *PropostaRepository) HasHistoricalStatus(ctx context.Context, propostaID string, statuses ...models.ProposalStatus) (bool, error) {
	if len(statuses) == 0 {
		return false, nil
	}
	query, args, err := sqlx.In(`SELECT EXISTS (SELECT 1 FROM status_proposta_curso WHERE id_proposta = ? AND status IN (?))`, propostaID, statuses)
	if err != nil {
		return false, fmt.Errorf("build historical status query: %w", err)
	}
	query = r.db.Rebind(query)
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check historical status: %w", err)
	}
	return exists, nil
}

// Transition executes one workflow move as a single critical section: it
// locks the proposal row, re-reads the latest status under the lock, verifies
// the guard, updates the proposal columns and appends the new event. A guard
// failure surfaces as *TransitionError; a missing proposal as sql.ErrNoRows.
func (r *PropostaRepository) Transition(ctx context.Context, params TransitionParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID string
	if err = tx.GetContext(ctx, &lockedID, `SELECT id FROM propostas_curso WHERE id = $1 FOR UPDATE`, params.PropostaID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock proposta: %w", err)
	}

	var current models.ProposalStatus
	const latestQuery = `SELECT status FROM status_proposta_curso WHERE id_proposta = $1
	ORDER BY data_status DESC, created_at DESC, id DESC LIMIT 1`
	if err = tx.GetContext(ctx, &current, latestQuery, params.PropostaID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("read latest status: %w", err)
	}

	allowed := false
	for _, source := range params.AllowedSources {
		if current == source {
			allowed = true
			break
		}
	}
	if !allowed {
		err = &TransitionError{Current: current}
		return err
	}

	now := time.Now().UTC()
	setParts := []string{"updated_at = :updated_at"}
	updateArgs := map[string]interface{}{
		"id":         params.PropostaID,
		"updated_at": now,
	}
	if params.ComentarioAvaliador != nil {
		setParts = append(setParts, "comentario_avaliador = :comentario_avaliador", "id_avaliador = :id_avaliador")
		updateArgs["comentario_avaliador"] = params.ComentarioAvaliador
		updateArgs["id_avaliador"] = params.AvaliadorID
	}
	if params.ComentarioDecisor != nil {
		setParts = append(setParts, "comentario_decisor = :comentario_decisor", "id_decisor_final = :id_decisor_final")
		updateArgs["comentario_decisor"] = params.ComentarioDecisor
		updateArgs["id_decisor_final"] = params.DecisorFinalID
	}
	updateQuery := fmt.Sprintf(`UPDATE propostas_curso SET %s WHERE id = :id`, strings.Join(setParts, ", "))
	if _, err = tx.NamedExecContext(ctx, updateQuery, updateArgs); err != nil {
		return fmt.Errorf("update proposta: %w", err)
	}

	evento := models.StatusEvento{
		ID:         uuid.NewString(),
		PropostaID: params.PropostaID,
		Status:     params.NewStatus,
		DataStatus: now,
		Observacao: params.Observacao,
		CreatedAt:  now,
	}
	if err = insertEvento(ctx, tx, &evento); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

func insertEvento(ctx context.Context, tx *sqlx.Tx, evento *models.StatusEvento) error {
	const query = `INSERT INTO status_proposta_curso (id, id_proposta, status, data_status, observacao, created_at)
	VALUES (:id, :id_proposta, :status, :data_status, :observacao, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, evento); err != nil {
		return fmt.Errorf("insert status evento: %w", err)
	}
	return nil
}

func (r *PropostaRepository) loadRelations(ctx context.Context, propostas []*models.Proposta) error {
	ids := make([]string, len(propostas))
	byID := make(map[string]*models.Proposta, len(propostas))
	for i, proposta := range propostas {
		ids[i] = proposta.ID
		byID[proposta.ID] = proposta
	}

	query, args, err := sqlx.In(`SELECT id, id_curso, nome, carga_horaria, semestre, created_at
	FROM disciplinas WHERE id_curso IN (?) ORDER BY semestre ASC, created_at ASC`, ids)
	if err != nil {
		return fmt.Errorf("build disciplinas query: %w", err)
	}
	var disciplinas []models.Disciplina
	if err := r.db.SelectContext(ctx, &disciplinas, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load disciplinas: %w", err)
	}
	for _, disciplina := range disciplinas {
		if proposta, ok := byID[disciplina.PropostaID]; ok {
			proposta.Disciplinas = append(proposta.Disciplinas, disciplina)
		}
	}

	query, args, err = sqlx.In(fmt.Sprintf(`SELECT %s FROM status_proposta_curso WHERE id_proposta IN (?)
	ORDER BY data_status ASC, created_at ASC, id ASC`, eventoColumns), ids)
	if err != nil {
		return fmt.Errorf("build historico query: %w", err)
	}
	var eventos []models.StatusEvento
	if err := r.db.SelectContext(ctx, &eventos, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load historico status: %w", err)
	}
	for _, evento := range eventos {
		if proposta, ok := byID[evento.PropostaID]; ok {
			proposta.HistoricoStatus = append(proposta.HistoricoStatus, evento)
		}
	}

	return nil
}
