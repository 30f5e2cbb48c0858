package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zakpos/auth-service/internal/domain/entity"
	"github.com/zakpos/auth-service/internal/domain/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

const sessionColumns = `id, user_id, token_hash, user_agent, expires_at, revoked, created_at, last_used`

// SessionRepo implementación del puerto SessionRepository sobre PostgreSQL.
// Persiste refresh tokens hasheados; el token en claro nunca toca la DB.
type SessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepository construye el adaptador de persistencia para sesiones.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// Create persiste una nueva sesión (refresh token recién emitido).
func (r *SessionRepo) Create(ctx context.Context, s *entity.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query,
		s.ID, s.UserID, s.TokenHash, s.UserAgent, s.ExpiresAt, s.Revoked, s.CreatedAt, s.LastUsed,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByTokenHash busca una sesión por el hash del refresh token.
// Devuelve (nil, nil) si no existe.
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE token_hash = $1`
	var s entity.Session
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.ExpiresAt, &s.Revoked, &s.CreatedAt, &s.LastUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return &s, nil
}

// Revoke marca una sesión como revocada. Idempotente.
func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAllForUser revoca todas las sesiones activas de un usuario.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	if err != nil {
		return fmt.Errorf("revoke sessions for user: %w", err)
	}
	return nil
}

// Touch actualiza la marca de último uso de la sesión.
func (r *SessionRepo) Touch(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_used = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// DeleteExpired borra sesiones vencidas; devuelve cuántas eliminó.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
