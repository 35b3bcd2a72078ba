package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-ppc/ppc-api/internal/models"
)

func newMockUsuarioRepo(t *testing.T) (*UsuarioRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUsuarioRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateUsuarioAssignsIdentifier(t *testing.T) {
	repo, mock := newMockUsuarioRepo(t)

	mock.ExpectExec(`INSERT INTO usuarios`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	usuario := &models.Usuario{
		Nome:      "Maria Souza",
		Email:     "maria@example.com",
		SenhaHash: "hash",
		Tipo:      models.RoleSubmissor,
	}
	require.NoError(t, repo.Create(context.Background(), usuario))

	assert.NotEmpty(t, usuario.ID)
	assert.False(t, usuario.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmailNotFound(t *testing.T) {
	repo, mock := newMockUsuarioRepo(t)

	mock.ExpectQuery(`SELECT id, nome, email, senha, tipo, created_at, updated_at FROM usuarios WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailExists(t *testing.T) {
	repo, mock := newMockUsuarioRepo(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("maria@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.EmailExists(context.Background(), "maria@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeRefreshToken(t *testing.T) {
	repo, mock := newMockUsuarioRepo(t)

	revokedAt := time.Now().UTC()
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked = TRUE`).
		WithArgs("token-id", revokedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RevokeRefreshToken(context.Background(), "token-id", revokedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLogFillsDefaults(t *testing.T) {
	repo, mock := newMockUsuarioRepo(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
