package auth

import (
	"context"

	"github.com/zakpos/auth-service/internal/domain/entity"
	"github.com/zakpos/auth-service/internal/infrastructure/identity"
)

// IdentityClient contrato del cliente de federación de identidad.
// Lo implementa *identity.Client; la interfaz permite sustituirlo en tests.
type IdentityClient interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*identity.Tokens, error)
	UserInfo(ctx context.Context, accessToken string) (*identity.Profile, error)
	PasswordGrant(ctx context.Context, email, password string) (*identity.Tokens, error)
	LogoutURL(returnTo string) string
}

// CredentialValidator verifica un par email/password.
// (nil, nil) significa "sin coincidencia": credenciales incorrectas no son un
// error, solo un resultado negativo. Error solo ante fallos de infraestructura.
type CredentialValidator interface {
	Validate(ctx context.Context, email, password string) (*entity.User, error)
}
