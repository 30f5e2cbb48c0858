package repository

import (
	"context"

	"github.com/zakpos/auth-service/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
// Los métodos Get* devuelven (nil, nil) cuando el registro no existe:
// "no encontrado" es un resultado válido, no un error de infraestructura.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.User, error)
	Count(ctx context.Context) (int, error)
}
