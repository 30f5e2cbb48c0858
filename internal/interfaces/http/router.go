package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/zakpos/auth-service/internal/application/auth"
	"github.com/zakpos/auth-service/internal/application/usecase"
	"github.com/zakpos/auth-service/internal/domain/authz"
)

// Identificadores de operación para el mapeo de permisos.
const (
	OpUsersList   = "users:list"
	OpUsersGet    = "users:get"
	OpUsersDelete = "users:delete"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC    *auth.UseCase
	UserUC    *usecase.UserUseCase
	JWTSecret string
}

// Requirements construye el mapeo operación → permisos requeridos.
// Se arma una sola vez en el arranque; el guard lo consulta por operación.
func Requirements() *authz.Requirements {
	return authz.NewRequirements().
		Declare(OpUsersList, authz.PermUserRead).
		Declare(OpUsersGet, authz.PermUserRead).
		Declare(OpUsersDelete, authz.PermUserDelete)
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	reqs := Requirements()

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/health", authHandler.Health)

	// Flujo federado: redirects de navegador, nunca errores de API.
	authGroup.Get("/:provider/login", authHandler.FederatedLogin)
	authGroup.Get("/:provider/callback", authHandler.FederatedCallback)
	authGroup.Get("/:provider/logout", authHandler.FederatedLogout)

	// Profile requiere token válido.
	authGroup.Get("/profile", AuthMiddleware(deps.JWTSecret), authHandler.Profile)

	// Usuarios (protegido: token + permisos por operación)
	users := api.Group("/users", AuthMiddleware(deps.JWTSecret))
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", RequirePermissions(reqs, OpUsersList), userHandler.List)
	users.Get("/:id", RequirePermissions(reqs, OpUsersGet), userHandler.GetByID)
	users.Delete("/:id", RequirePermissions(reqs, OpUsersDelete), userHandler.Delete)
}
