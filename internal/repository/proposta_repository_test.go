package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-ppc/ppc-api/internal/models"
)

func newMockPropostaRepo(t *testing.T) (*PropostaRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPropostaRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateWithDisciplinasCommitsEverythingTogether(t *testing.T) {
	repo, mock := newMockPropostaRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO propostas_curso`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO disciplinas`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO disciplinas`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO status_proposta_curso`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	autorID := "autor-1"
	proposta := &models.Proposta{
		Nome:                "Engenharia de Software",
		CargaHorariaTotal:   3200,
		QuantidadeSemestres: 8,
		Justificativa:       "Demanda regional",
		ImpactoSocial:       "Formação de profissionais",
		AutorID:             &autorID,
		Disciplinas: []models.Disciplina{
			{Nome: "Algoritmos", CargaHoraria: 80, Semestre: 1},
			{Nome: "Banco de Dados", CargaHoraria: 60, Semestre: 2},
		},
	}

	err := repo.CreateWithDisciplinas(context.Background(), proposta, "nota inicial")
	require.NoError(t, err)

	assert.NotEmpty(t, proposta.ID)
	for _, disciplina := range proposta.Disciplinas {
		assert.NotEmpty(t, disciplina.ID)
		assert.Equal(t, proposta.ID, disciplina.PropostaID)
	}
	require.Len(t, proposta.HistoricoStatus, 1)
	assert.Equal(t, models.StatusSubmetida, proposta.HistoricoStatus[0].Status)
	require.NotNil(t, proposta.HistoricoStatus[0].Observacao)
	assert.Equal(t, "nota inicial", *proposta.HistoricoStatus[0].Observacao)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithDisciplinasRollsBackWhenEventInsertFails(t *testing.T) {
	repo, mock := newMockPropostaRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO propostas_curso`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO disciplinas`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO status_proposta_curso`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	proposta := &models.Proposta{
		Nome:        "Curso",
		Disciplinas: []models.Disciplina{{Nome: "Intro", CargaHoraria: 40, Semestre: 1}},
	}

	err := repo.CreateWithDisciplinas(context.Background(), proposta, "nota")
	require.Error(t, err)
	assert.Empty(t, proposta.HistoricoStatus)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionLocksRowAndAppendsEvent(t *testing.T) {
	repo, mock := newMockPropostaRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM propostas_curso WHERE id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectQuery(`SELECT status FROM status_proposta_curso WHERE id_proposta = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("submetida"))
	mock.ExpectExec(`UPDATE propostas_curso SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO status_proposta_curso`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	comentario := "bem estruturada"
	avaliadorID := "avaliador-1"
	err := repo.Transition(context.Background(), TransitionParams{
		PropostaID:          "p1",
		AllowedSources:      []models.ProposalStatus{models.StatusSubmetida, models.StatusEmAvaliacao},
		NewStatus:           models.StatusEmAprovacao,
		Observacao:          &comentario,
		ComentarioAvaliador: &comentario,
		AvaliadorID:         &avaliadorID,
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionRejectsStatusOutsideSourceSet(t *testing.T) {
	repo, mock := newMockPropostaRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM propostas_curso WHERE id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectQuery(`SELECT status FROM status_proposta_curso WHERE id_proposta = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("ajustes_requeridos"))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), TransitionParams{
		PropostaID:     "p1",
		AllowedSources: []models.ProposalStatus{models.StatusSubmetida, models.StatusEmAvaliacao},
		NewStatus:      models.StatusEmAprovacao,
	})

	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusAjustesRequeridos, transitionErr.Current)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionMissingPropostaSurfacesNoRows(t *testing.T) {
	repo, mock := newMockPropostaRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM propostas_curso WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), TransitionParams{
		PropostaID:     "missing",
		AllowedSources: []models.ProposalStatus{models.StatusSubmetida},
		NewStatus:      models.StatusEmAprovacao,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestStatusUsesDeterministicOrdering(t *testing.T) {
	repo, mock := newMockPropostaRepo(t)

	mock.ExpectQuery(`ORDER BY data_status DESC, created_at DESC, id DESC LIMIT 1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("em_aprovacao"))

	status, err := repo.GetLatestStatus(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmAprovacao, status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasHistoricalStatusBuildsExistsQuery(t *testing.T) {
	repo, mock := newMockPropostaRepo(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasHistoricalStatus(context.Background(), "p1", models.StatusEmAprovacao)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
