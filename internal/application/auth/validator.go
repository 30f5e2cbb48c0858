package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zakpos/auth-service/internal/domain/entity"
	"github.com/zakpos/auth-service/internal/domain/repository"
)

var _ CredentialValidator = (*LocalValidator)(nil)
var _ CredentialValidator = (*FederatedValidator)(nil)

// LocalValidator valida credenciales contra el hash bcrypt del directorio local.
type LocalValidator struct {
	users repository.UserRepository
}

// NewLocalValidator construye el validador local.
func NewLocalValidator(users repository.UserRepository) *LocalValidator {
	return &LocalValidator{users: users}
}

// Validate busca el usuario por email y compara el password contra su hash.
// Usuario inexistente, identidad sin hash (federada pura) o password incorrecto
// son "sin coincidencia", nunca errores.
func (v *LocalValidator) Validate(ctx context.Context, email, password string) (*entity.User, error) {
	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return user, nil
}

// FederatedValidator delega la validación al proveedor de identidad externo
// (password grant); nunca compara passwords localmente. El perfil federado se
// reconcilia contra el directorio local, auto-aprovisionando si hace falta.
type FederatedValidator struct {
	client IdentityClient
	users  repository.UserRepository
}

// NewFederatedValidator construye el validador federado.
func NewFederatedValidator(client IdentityClient, users repository.UserRepository) *FederatedValidator {
	return &FederatedValidator{client: client, users: users}
}

// Validate autentica contra el proveedor y devuelve el usuario local asociado.
func (v *FederatedValidator) Validate(ctx context.Context, email, password string) (*entity.User, error) {
	tokens, err := v.client.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, nil
	}
	profile, err := v.client.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	return reconcileFederated(ctx, v.users, profile.Email, profile.Name, profile.Sub)
}

// reconcileFederated busca el usuario local por el email federado y lo
// aprovisiona con los defaults (cashier, tenant-1) si no existe. Si existe
// sin external id, adopta el del proveedor.
func reconcileFederated(ctx context.Context, users repository.UserRepository, email, name, externalID string) (*entity.User, error) {
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if user == nil {
		if name == "" {
			name = email
		}
		user = &entity.User{
			ID:         uuid.New().String(),
			TenantID:   entity.DefaultTenantID,
			Email:      email,
			Name:       name,
			Role:       entity.RoleCashier,
			ExternalID: externalID,
			Status:     "active",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := users.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if user.ExternalID == "" && externalID != "" {
		user.ExternalID = externalID
		user.UpdatedAt = now
		if err := users.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}
