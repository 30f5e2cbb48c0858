package repository

import (
	"context"

	"github.com/zakpos/auth-service/internal/domain/entity"
)

// SessionRepository define el puerto de persistencia para refresh tokens.
// Sustituye los mapas en memoria por proceso: las sesiones sobreviven reinicios
// y pueden compartirse entre instancias.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	Touch(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int, error)
}
