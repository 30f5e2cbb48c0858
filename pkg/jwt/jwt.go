package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpMinutes expiración por defecto cuando no hay configuración: 7 días.
const DefaultExpMinutes = 7 * 24 * 60

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// Role viaja en el token para que el guard RBAC decida sin consultar la DB;
// Permissions es un snapshot opcional calculado al emitir (registro y callback
// federado lo incluyen, login no).
type Claims struct {
	jwt.RegisteredClaims
	Email       string   `json:"email"`
	TenantID    string   `json:"tenant_id"`
	Role        string   `json:"role"` // "owner" | "manager" | "cashier"
	ExternalID  string   `json:"external_id,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Payload campos de aplicación para emitir un token. Subject es el ID del usuario.
type Payload struct {
	Subject     string
	Email       string
	TenantID    string
	Role        string
	ExternalID  string
	Permissions []string
}

// Generate emite un token JWT HS256 firmado con el secret configurado.
// Si expMinutes <= 0 se aplica DefaultExpMinutes (7 días).
func Generate(secret string, p Payload, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	if expMinutes <= 0 {
		expMinutes = DefaultExpMinutes
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		Email:       p.Email,
		TenantID:    p.TenantID,
		Role:        p.Role,
		ExternalID:  p.ExternalID,
		Permissions: p.Permissions,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida firma y expiración, y devuelve los claims decodificados.
// Retorna error si el token es inválido, expirado o tiene firma incorrecta.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	return claims, nil
}
