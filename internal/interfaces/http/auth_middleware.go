package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/zakpos/auth-service/internal/application/dto"
	"github.com/zakpos/auth-service/internal/domain/authz"
	"github.com/zakpos/auth-service/pkg/jwt"
)

// Locals keys para los claims decodificados en Fiber.
const (
	LocalUserID      = "user_id"
	LocalEmail       = "email"
	LocalTenantID    = "tenant_id"
	LocalRole        = "role"
	LocalExternalID  = "external_id"
	LocalPermissions = "permissions"
)

// AuthMiddleware valida el Bearer Token JWT y extrae los claims a c.Locals.
// Token ausente, malformado, con firma inválida o expirado → 401.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalTenantID, claims.TenantID)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalExternalID, claims.ExternalID)
		c.Locals(LocalPermissions, claims.Permissions)
		return c.Next()
	}
}

// RequirePermissions devuelve un middleware que autoriza la operación indicada
// consultando el mapeo de requerimientos construido en el arranque. Debe usarse
// DESPUÉS de AuthMiddleware (necesita LocalRole).
//
// Comportamiento:
//   - Sin rol en el contexto → 403 (el token no trae el claim).
//   - Rol fuera del conjunto definido → 403 (fail closed, nunca conjunto vacío silencioso).
//   - Falta algún permiso requerido → 403.
func RequirePermissions(reqs *authz.Requirements, operationID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		required := reqs.For(operationID)
		if len(required) == 0 {
			return c.Next()
		}
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		ok, err := authz.HasAll(role, required)
		if err != nil {
			// Rol desconocido: misconfiguración, se niega el acceso.
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "UNKNOWN_ROLE", Message: "rol sin mapeo de permisos"})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "permisos insuficientes: " + strings.Join(required, ", ")})
		}
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string { return localString(c, LocalUserID) }

// GetEmail devuelve el email del contexto.
func GetEmail(c *fiber.Ctx) string { return localString(c, LocalEmail) }

// GetTenantID devuelve el TenantID del contexto.
func GetTenantID(c *fiber.Ctx) string { return localString(c, LocalTenantID) }

// GetRole devuelve el rol del contexto.
func GetRole(c *fiber.Ctx) string { return localString(c, LocalRole) }

// GetExternalID devuelve el external id del contexto (vacío si identidad local).
func GetExternalID(c *fiber.Ctx) string { return localString(c, LocalExternalID) }

// GetPermissions devuelve el snapshot de permisos del token, si lo trae.
func GetPermissions(c *fiber.Ctx) []string {
	v := c.Locals(LocalPermissions)
	if v == nil {
		return nil
	}
	perms, _ := v.([]string)
	return perms
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
