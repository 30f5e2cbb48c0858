package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/zakpos/auth-service/internal/application/auth"
	"github.com/zakpos/auth-service/internal/application/usecase"
	"github.com/zakpos/auth-service/internal/infrastructure/identity"
	"github.com/zakpos/auth-service/internal/infrastructure/postgres"
	httpRouter "github.com/zakpos/auth-service/internal/interfaces/http"
	"github.com/zakpos/auth-service/pkg/config"
	"github.com/zakpos/auth-service/pkg/logger"
)

// sessionCleanupEvery frecuencia de la purga de sesiones vencidas.
const sessionCleanupEvery = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("auth_provider", cfg.Auth.Provider).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	// Cliente de identidad externa: solo si hay proveedor configurado.
	var identityClient auth.IdentityClient
	if cfg.Auth0.Configured() {
		identityClient = identity.NewClient(cfg.Auth0)
	}

	// Validador de credenciales según despliegue: local (bcrypt contra el
	// directorio) o federado (delegado por completo al proveedor).
	var validator auth.CredentialValidator
	if cfg.Auth.Provider == "auth0" {
		validator = auth.NewFederatedValidator(identityClient, userRepo)
	} else {
		validator = auth.NewLocalValidator(userRepo)
	}

	authUC := auth.NewUseCase(auth.Deps{
		Users:     userRepo,
		Sessions:  sessionRepo,
		Validator: validator,
		Identity:  identityClient,
		JWT: auth.JWTConfig{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		},
		Frontend: cfg.Auth.FrontendURL,
		Provider: auth.ProviderInfo{
			Enabled:   cfg.Auth0.Configured(),
			Domain:    cfg.Auth0.Domain,
			ClientID:  cfg.Auth0.ClientID != "",
			ClientSec: cfg.Auth0.ClientSecret != "",
		},
		Log: log.Component("auth"),
	})
	userUC := usecase.NewUserUseCase(userRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "ZakPOS Auth API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:    authUC,
		UserUC:    userUC,
		JWTSecret: cfg.JWT.Secret,
	})

	// Purga periódica de sesiones vencidas.
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(sessionCleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				n, err := authUC.CleanupExpiredSessions(cleanupCtx)
				if err != nil {
					log.Warn().Err(err).Msg("purga de sesiones vencidas")
					continue
				}
				if n > 0 {
					log.Info().Int("deleted", n).Msg("sesiones vencidas purgadas")
				}
			}
		}
	}()

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopCleanup()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
