package dto

import "time"

// RegisterRequest entrada para registro: email, password y nombre.
// Role es opcional (por defecto cashier); el tenant siempre es el por defecto.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"omitempty,max=200"`
	Role     string `json:"role" validate:"omitempty,oneof=owner manager cashier"`
}

// LoginRequest entrada para login local.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse salida de un usuario (nunca incluye el hash de password).
type UserResponse struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthResponse salida de login/register: par de tokens + usuario saneado.
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// RefreshRequest entrada para rotar un refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse salida de la rotación: par nuevo, el anterior queda revocado.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest entrada para revocar un refresh token.
// All=true revoca todas las sesiones del usuario dueño del token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	All          bool   `json:"all"`
}

// MessageResponse respuesta simple con mensaje.
type MessageResponse struct {
	Message string `json:"message"`
}

// ProfileResponse claims del token decodificado del caller.
type ProfileResponse struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	TenantID    string   `json:"tenant_id"`
	Role        string   `json:"role"`
	ExternalID  string   `json:"external_id,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HealthResponse diagnóstico del subsistema de autenticación.
type HealthResponse struct {
	Status         string               `json:"status"`
	Timestamp      time.Time            `json:"timestamp"`
	Authentication HealthAuthentication `json:"authentication"`
	JWT            HealthJWT            `json:"jwt"`
	Database       HealthDatabase       `json:"database"`
}

// HealthAuthentication estado de los mecanismos de autenticación.
type HealthAuthentication struct {
	Local    HealthLocalAuth     `json:"local"`
	Provider HealthExternalIdent `json:"provider"`
}

// HealthLocalAuth estado del login local.
type HealthLocalAuth struct {
	Enabled   bool `json:"enabled"`
	UserCount int  `json:"user_count"`
}

// HealthExternalIdent presencia de configuración del proveedor externo
// (solo presencia: los valores nunca se exponen).
type HealthExternalIdent struct {
	Enabled      bool   `json:"enabled"`
	Domain       string `json:"domain"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// HealthJWT presencia de configuración del emisor de tokens.
type HealthJWT struct {
	Enabled    bool   `json:"enabled"`
	Secret     string `json:"secret"`
	ExpMinutes int    `json:"exp_minutes"`
}

// HealthDatabase conectividad con el directorio de usuarios.
type HealthDatabase struct {
	Connected bool `json:"connected"`
	Users     int  `json:"users"`
}
