package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sistema-ppc/ppc-api/internal/models"
)

// UsuarioRepository provides database access for user accounts, refresh
// tokens and audit log entries.
type UsuarioRepository struct {
	db *sqlx.DB
}

// NewUsuarioRepository creates a new instance of UsuarioRepository.
func NewUsuarioRepository(db *sqlx.DB) *UsuarioRepository {
	return &UsuarioRepository{db: db}
}

// Create inserts a new user and returns the stored record.
func (r *UsuarioRepository) Create(ctx context.Context, usuario *models.Usuario) error {
	if usuario.ID == "" {
		usuario.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if usuario.CreatedAt.IsZero() {
		usuario.CreatedAt = now
	}
	usuario.UpdatedAt = now

	const query = `INSERT INTO usuarios (id, nome, email, senha, tipo, created_at, updated_at)
	VALUES (:id, :nome, :email, :senha, :tipo, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, usuario); err != nil {
		return fmt.Errorf("create usuario: %w", err)
	}
	return nil
}

// FindByEmail returns a user by email address.
func (r *UsuarioRepository) FindByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	const query = `SELECT id, nome, email, senha, tipo, created_at, updated_at FROM usuarios WHERE email = $1 LIMIT 1`
	var usuario models.Usuario
	if err := r.db.GetContext(ctx, &usuario, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find usuario by email: %w", err)
	}
	return &usuario, nil
}

// FindByID returns a user by identifier.
func (r *UsuarioRepository) FindByID(ctx context.Context, id string) (*models.Usuario, error) {
	const query = `SELECT id, nome, email, senha, tipo, created_at, updated_at FROM usuarios WHERE id = $1 LIMIT 1`
	var usuario models.Usuario
	if err := r.db.GetContext(ctx, &usuario, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find usuario by id: %w", err)
	}
	return &usuario, nil
}

// EmailExists reports whether an account already uses the given email.
func (r *UsuarioRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM usuarios WHERE email = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check usuario email: %w", err)
	}
	return exists, nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *UsuarioRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent)
	VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UsuarioRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
	FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *UsuarioRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *UsuarioRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *UsuarioRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
