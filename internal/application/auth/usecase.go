package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zakpos/auth-service/internal/application/dto"
	"github.com/zakpos/auth-service/internal/domain"
	"github.com/zakpos/auth-service/internal/domain/authz"
	"github.com/zakpos/auth-service/internal/domain/entity"
	"github.com/zakpos/auth-service/internal/domain/repository"
	"github.com/zakpos/auth-service/pkg/jwt"
	"github.com/zakpos/auth-service/pkg/logger"
)

// bcryptCost factor de trabajo para hashear passwords en el registro.
const bcryptCost = 12

// defaultRefreshTTL vida de un refresh token antes de requerir login completo.
const defaultRefreshTTL = 30 * 24 * time.Hour

// JWTConfig configuración para emisión de tokens de acceso.
type JWTConfig struct {
	Secret     string
	ExpMinutes int // 0 = default del emisor (7 días)
	Issuer     string
}

// ProviderInfo presencia de configuración del proveedor externo, para /auth/health.
type ProviderInfo struct {
	Enabled   bool
	Domain    string
	ClientID  bool
	ClientSec bool
}

// UseCase orquesta los flujos de autenticación: login, registro, callback
// federado, rotación de refresh tokens y diagnóstico.
type UseCase struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	validator  CredentialValidator
	identity   IdentityClient // nil si no hay proveedor configurado
	jwtCfg     JWTConfig
	frontend   string
	provider   ProviderInfo
	refreshTTL time.Duration
	log        *logger.Logger
}

// Deps dependencias del orquestador.
type Deps struct {
	Users      repository.UserRepository
	Sessions   repository.SessionRepository
	Validator  CredentialValidator
	Identity   IdentityClient
	JWT        JWTConfig
	Frontend   string // base URL del frontend para el redirect del callback
	Provider   ProviderInfo
	RefreshTTL time.Duration
	Log        *logger.Logger
}

// NewUseCase construye el orquestador de autenticación.
func NewUseCase(d Deps) *UseCase {
	ttl := d.RefreshTTL
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	if d.Log == nil {
		d.Log = logger.New(logger.Config{Env: "production", Level: "error"})
	}
	return &UseCase{
		users:      d.Users,
		sessions:   d.Sessions,
		validator:  d.Validator,
		identity:   d.Identity,
		jwtCfg:     d.JWT,
		frontend:   d.Frontend,
		provider:   d.Provider,
		refreshTTL: ttl,
		log:        d.Log,
	}
}

// Login valida credenciales y emite el par de tokens.
// Credenciales incorrectas son ErrUnauthorized sin distinguir si el email existe.
func (uc *UseCase) Login(ctx context.Context, in dto.LoginRequest, userAgent string) (*dto.AuthResponse, error) {
	user, err := uc.validator.Validate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	access, err := uc.issueAccess(user, nil)
	if err != nil {
		return nil, err
	}
	refresh, err := uc.mintSession(ctx, user.ID, userAgent)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         toUserResponse(user, nil),
	}, nil
}

// Register crea un usuario local: verifica email libre, hashea el password con
// bcrypt (cost 12) y emite tokens con snapshot de permisos.
// El chequeo previo es best effort: el constraint único de la DB es quien
// decide ante registros concurrentes del mismo email.
func (uc *UseCase) Register(ctx context.Context, in dto.RegisterRequest, userAgent string) (*dto.AuthResponse, error) {
	role := in.Role
	if role == "" {
		role = entity.RoleCashier
	}
	if !authz.IsValidRole(role) {
		return nil, domain.ErrInvalidInput
	}

	existing, err := uc.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	name := in.Name
	if name == "" {
		name = in.Email
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		TenantID:     entity.DefaultTenantID,
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}

	perms, err := authz.PermissionsFor(user.Role)
	if err != nil {
		return nil, err
	}
	access, err := uc.issueAccess(user, perms)
	if err != nil {
		return nil, err
	}
	refresh, err := uc.mintSession(ctx, user.ID, userAgent)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         toUserResponse(user, perms),
	}, nil
}

// FederatedLoginURL construye la URL del authorize endpoint del proveedor.
func (uc *UseCase) FederatedLoginURL() (string, error) {
	if uc.identity == nil {
		return "", domain.ErrNotFound
	}
	state, err := generateOpaque()
	if err != nil {
		return "", err
	}
	return uc.identity.AuthorizationURL(state), nil
}

// FederatedLogoutURL construye la URL de logout del proveedor.
func (uc *UseCase) FederatedLogoutURL() (string, error) {
	if uc.identity == nil {
		return "", domain.ErrNotFound
	}
	return uc.identity.LogoutURL(uc.frontend), nil
}

// FederatedCallback completa el flujo authorization-code: intercambia el code,
// obtiene el perfil federado, reconcilia o aprovisiona el usuario local y emite
// tokens. Siempre devuelve una URL de redirect al frontend: el caller es un
// navegador a mitad de redirección, así que los fallos viajan como
// ?error=<código> en la query y nunca como respuesta HTTP de error.
func (uc *UseCase) FederatedCallback(ctx context.Context, code, userAgent string) string {
	if uc.identity == nil {
		return uc.frontendRedirect("", "provider_not_configured")
	}
	if code == "" {
		return uc.frontendRedirect("", "missing_code")
	}

	tokens, err := uc.identity.ExchangeCode(ctx, code)
	if err != nil {
		uc.log.Warn().Err(err).Msg("callback federado: intercambio de code falló")
		return uc.frontendRedirect("", "exchange_failed")
	}
	profile, err := uc.identity.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		uc.log.Warn().Err(err).Msg("callback federado: userinfo falló")
		return uc.frontendRedirect("", "userinfo_failed")
	}

	user, err := reconcileFederated(ctx, uc.users, profile.Email, profile.Name, profile.Sub)
	if err != nil {
		uc.log.Error().Err(err).Msg("callback federado: reconciliación falló")
		return uc.frontendRedirect("", "provisioning_failed")
	}

	perms, err := authz.PermissionsFor(user.Role)
	if err != nil {
		uc.log.Error().Err(err).Str("role", user.Role).Msg("callback federado: rol sin mapeo de permisos")
		return uc.frontendRedirect("", "unknown_role")
	}
	access, err := uc.issueAccess(user, perms)
	if err != nil {
		return uc.frontendRedirect("", "token_issue_failed")
	}
	if _, err := uc.mintSession(ctx, user.ID, userAgent); err != nil {
		uc.log.Warn().Err(err).Msg("callback federado: no se pudo crear la sesión")
	}
	return uc.frontendRedirect(access, "")
}

// Refresh rota un refresh token: revoca el presentado y emite un par nuevo.
// Un token desconocido, vencido o ya revocado es ErrUnauthorized.
func (uc *UseCase) Refresh(ctx context.Context, refreshToken, userAgent string) (*dto.RefreshResponse, error) {
	session, err := uc.usableSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := uc.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}

	// Rotación: el token viejo muere antes de emitir el nuevo.
	if err := uc.sessions.Revoke(ctx, session.ID); err != nil {
		return nil, err
	}
	access, err := uc.issueAccess(user, nil)
	if err != nil {
		return nil, err
	}
	refresh, err := uc.mintSession(ctx, user.ID, userAgent)
	if err != nil {
		return nil, err
	}
	return &dto.RefreshResponse{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revoca el refresh token presentado. Con all=true revoca todas las
// sesiones del usuario dueño del token. Idempotente: un token ya inválido
// no es un error.
func (uc *UseCase) Logout(ctx context.Context, refreshToken string, all bool) error {
	if refreshToken == "" {
		return nil
	}
	session, err := uc.sessions.GetByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	if all {
		return uc.sessions.RevokeAllForUser(ctx, session.UserID)
	}
	return uc.sessions.Revoke(ctx, session.ID)
}

// Health reporta presencia de configuración y conectividad del directorio.
// Los valores sensibles se reportan solo como "configured"/"not configured".
func (uc *UseCase) Health(ctx context.Context) *dto.HealthResponse {
	userCount, err := uc.users.Count(ctx)
	connected := err == nil
	if err != nil {
		uc.log.Warn().Err(err).Msg("health: directorio de usuarios inaccesible")
	}

	domainLabel := uc.provider.Domain
	if domainLabel == "" {
		domainLabel = "not configured"
	}
	return &dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Authentication: dto.HealthAuthentication{
			Local: dto.HealthLocalAuth{Enabled: true, UserCount: userCount},
			Provider: dto.HealthExternalIdent{
				Enabled:      uc.provider.Enabled,
				Domain:       domainLabel,
				ClientID:     presence(uc.provider.ClientID),
				ClientSecret: presence(uc.provider.ClientSec),
			},
		},
		JWT: dto.HealthJWT{
			Enabled:    true,
			Secret:     presence(uc.jwtCfg.Secret != ""),
			ExpMinutes: effectiveExpMinutes(uc.jwtCfg.ExpMinutes),
		},
		Database: dto.HealthDatabase{Connected: connected, Users: userCount},
	}
}

// CleanupExpiredSessions purga sesiones vencidas (lo invoca el ticker de mantenimiento).
func (uc *UseCase) CleanupExpiredSessions(ctx context.Context) (int, error) {
	return uc.sessions.DeleteExpired(ctx)
}

// ── internos ─────────────────────────────────────────────────────────────────

func (uc *UseCase) issueAccess(user *entity.User, perms []authz.Permission) (string, error) {
	return jwt.Generate(uc.jwtCfg.Secret, jwt.Payload{
		Subject:     user.ID,
		Email:       user.Email,
		TenantID:    user.TenantID,
		Role:        user.Role,
		ExternalID:  user.ExternalID,
		Permissions: perms,
	}, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
}

// mintSession emite un refresh token opaco y persiste su hash.
func (uc *UseCase) mintSession(ctx context.Context, userID, userAgent string) (string, error) {
	token, err := generateOpaque()
	if err != nil {
		return "", err
	}
	now := time.Now()
	session := &entity.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hashToken(token),
		UserAgent: userAgent,
		ExpiresAt: now.Add(uc.refreshTTL),
		CreatedAt: now,
		LastUsed:  now,
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

func (uc *UseCase) usableSession(ctx context.Context, refreshToken string) (*entity.Session, error) {
	if refreshToken == "" {
		return nil, domain.ErrUnauthorized
	}
	session, err := uc.sessions.GetByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Usable(time.Now()) {
		return nil, domain.ErrUnauthorized
	}
	if err := uc.sessions.Touch(ctx, session.ID); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo actualizar last_used de la sesión")
	}
	return session, nil
}

func (uc *UseCase) frontendRedirect(token, errCode string) string {
	q := url.Values{}
	if errCode != "" {
		q.Set("error", errCode)
	} else {
		q.Set("token", token)
	}
	return uc.frontend + "/auth/callback?" + q.Encode()
}

func generateOpaque() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func presence(configured bool) string {
	if configured {
		return "configured"
	}
	return "not configured"
}

func effectiveExpMinutes(configured int) int {
	if configured > 0 {
		return configured
	}
	return jwt.DefaultExpMinutes
}

func toUserResponse(u *entity.User, perms []authz.Permission) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Status:      u.Status,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
