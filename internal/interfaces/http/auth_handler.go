package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/zakpos/auth-service/internal/application/auth"
	"github.com/zakpos/auth-service/internal/application/dto"
	"github.com/zakpos/auth-service/internal/domain"
)

// providerName único proveedor de identidad externo soportado.
const providerName = "auth0"

// AuthHandler maneja login, registro, refresh y el flujo federado.
type AuthHandler struct {
	uc *auth.UseCase
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *auth.UseCase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// Login godoc
// @Summary      Iniciar sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.AuthResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Email == "" || in.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email y password son requeridos"})
	}
	out, err := h.uc.Login(c.Context(), in, c.Get("User-Agent"))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			// Mismo mensaje exista o no el email: no se filtra la existencia de cuentas.
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// Register godoc
// @Summary      Registrar usuario
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterRequest  true  "email, password, name"
// @Success      201   {object}  dto.AuthResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Email == "" || in.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email y password son requeridos"})
	}
	if len(in.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "password debe tener al menos 8 caracteres"})
	}
	out, err := h.uc.Register(c.Context(), in, c.Get("User-Agent"))
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "EMAIL_EXISTS", Message: "el email ya está registrado"})
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "rol inválido"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Profile godoc
// @Summary      Claims del caller autenticado
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.ProfileResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/auth/profile [get]
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	return c.JSON(dto.ProfileResponse{
		UserID:      GetUserID(c),
		Email:       GetEmail(c),
		TenantID:    GetTenantID(c),
		Role:        GetRole(c),
		ExternalID:  GetExternalID(c),
		Permissions: GetPermissions(c),
	})
}

// Refresh godoc
// @Summary      Rotar refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RefreshRequest  true  "refresh_token"
// @Success      200   {object}  dto.RefreshResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var in dto.RefreshRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Refresh(c.Context(), in.RefreshToken, c.Get("User-Agent"))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "refresh token inválido, vencido o revocado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// Logout godoc
// @Summary      Revocar refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LogoutRequest  false  "refresh_token, all"
// @Success      200   {object}  dto.MessageResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var in dto.LogoutRequest
	_ = c.BodyParser(&in) // cuerpo vacío = logout sin sesión que revocar
	if err := h.uc.Logout(c.Context(), in.RefreshToken, in.All); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.MessageResponse{Message: "sesión cerrada"})
}

// FederatedLogin godoc
// @Summary      Redirigir al authorize endpoint del proveedor
// @Tags         auth
// @Param        provider  path  string  true  "proveedor (auth0)"
// @Success      302
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/auth/{provider}/login [get]
func (h *AuthHandler) FederatedLogin(c *fiber.Ctx) error {
	if c.Params("provider") != providerName {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "UNKNOWN_PROVIDER", Message: "proveedor no soportado"})
	}
	url, err := h.uc.FederatedLoginURL()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "PROVIDER_DISABLED", Message: "proveedor externo no configurado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Redirect(url, fiber.StatusFound)
}

// FederatedCallback godoc
// @Summary      Paso terminal del flujo authorization-code
// @Description  Siempre responde 302 hacia el frontend; los fallos viajan como ?error=.
// @Tags         auth
// @Param        provider  path   string  true   "proveedor (auth0)"
// @Param        code      query  string  false  "authorization code"
// @Success      302
// @Router       /api/auth/{provider}/callback [get]
func (h *AuthHandler) FederatedCallback(c *fiber.Ctx) error {
	if c.Params("provider") != providerName {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "UNKNOWN_PROVIDER", Message: "proveedor no soportado"})
	}
	redirect := h.uc.FederatedCallback(c.Context(), c.Query("code"), c.Get("User-Agent"))
	return c.Redirect(redirect, fiber.StatusFound)
}

// FederatedLogout godoc
// @Summary      Redirigir al logout del proveedor
// @Tags         auth
// @Param        provider  path  string  true  "proveedor (auth0)"
// @Success      302
// @Router       /api/auth/{provider}/logout [get]
func (h *AuthHandler) FederatedLogout(c *fiber.Ctx) error {
	if c.Params("provider") != providerName {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "UNKNOWN_PROVIDER", Message: "proveedor no soportado"})
	}
	url, err := h.uc.FederatedLogoutURL()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "PROVIDER_DISABLED", Message: "proveedor externo no configurado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Redirect(url, fiber.StatusFound)
}

// Health godoc
// @Summary      Diagnóstico del subsistema de autenticación
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.HealthResponse
// @Router       /api/auth/health [get]
func (h *AuthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(h.uc.Health(c.Context()))
}
