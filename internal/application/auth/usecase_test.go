package auth_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zakpos/auth-service/internal/application/auth"
	"github.com/zakpos/auth-service/internal/application/dto"
	"github.com/zakpos/auth-service/internal/domain"
	"github.com/zakpos/auth-service/internal/domain/entity"
	"github.com/zakpos/auth-service/internal/infrastructure/identity"
	pkgjwt "github.com/zakpos/auth-service/pkg/jwt"
)

const (
	testSecret   = "test-secret-key-for-unit-tests"
	testIssuer   = "zakpos-auth-test"
	testFrontend = "http://localhost:3000"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria de los puertos de persistencia
// ──────────────────────────────────────────────────────────────────────────────

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]*entity.User
	fail error // si no es nil, toda operación falla (directorio caído)
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*entity.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return domain.ErrEmailAlreadyExists // emula el constraint único
		}
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *memUserRepo) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.User
	for _, u := range r.byID {
		if u.TenantID == tenantID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUserRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return 0, r.fail
	}
	return len(r.byID), nil
}

type memSessionRepo struct {
	mu     sync.Mutex
	byID   map[string]*entity.Session
	byHash map[string]string // token hash -> session id
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: map[string]*entity.Session{}, byHash: map[string]string{}}
}

func (r *memSessionRepo) Create(_ context.Context, s *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	r.byHash[s.TokenHash] = s.ID
	return nil
}

func (r *memSessionRepo) GetByTokenHash(_ context.Context, hash string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHash[hash]
	if !ok {
		return nil, nil
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *memSessionRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s.Revoked = true
	}
	return nil
}

func (r *memSessionRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.UserID == userID {
			s.Revoked = true
		}
	}
	return nil
}

func (r *memSessionRepo) Touch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s.LastUsed = time.Now()
	}
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	now := time.Now()
	for id, s := range r.byID {
		if s.Expired(now) {
			delete(r.byHash, s.TokenHash)
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// fakeIdentity cliente de identidad programable por test.
type fakeIdentity struct {
	exchangeErr error
	userinfoErr error
	grantNil    bool
	profile     identity.Profile
}

func (f *fakeIdentity) AuthorizationURL(state string) string {
	return "https://idp.test/authorize?state=" + state
}

func (f *fakeIdentity) ExchangeCode(_ context.Context, code string) (*identity.Tokens, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &identity.Tokens{AccessToken: "federated-access", IDToken: "federated-id"}, nil
}

func (f *fakeIdentity) UserInfo(_ context.Context, _ string) (*identity.Profile, error) {
	if f.userinfoErr != nil {
		return nil, f.userinfoErr
	}
	p := f.profile
	return &p, nil
}

func (f *fakeIdentity) PasswordGrant(_ context.Context, _, _ string) (*identity.Tokens, error) {
	if f.grantNil {
		return nil, nil
	}
	return &identity.Tokens{AccessToken: "federated-access"}, nil
}

func (f *fakeIdentity) LogoutURL(returnTo string) string {
	return "https://idp.test/v2/logout?returnTo=" + url.QueryEscape(returnTo)
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func buildUseCase(t *testing.T, users *memUserRepo, ident auth.IdentityClient) *auth.UseCase {
	t.Helper()
	return auth.NewUseCase(auth.Deps{
		Users:     users,
		Sessions:  newMemSessionRepo(),
		Validator: auth.NewLocalValidator(users),
		Identity:  ident,
		JWT:       auth.JWTConfig{Secret: testSecret, ExpMinutes: 60, Issuer: testIssuer},
		Frontend:  testFrontend,
		Provider:  auth.ProviderInfo{Enabled: ident != nil, Domain: "idp.test", ClientID: true, ClientSec: true},
	})
}

func seedUser(t *testing.T, users *memUserRepo, email, password, role string) *entity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	u := &entity.User{
		ID:           "user-" + email,
		TenantID:     entity.DefaultTenantID,
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test User",
		Role:         role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func redirectQuery(t *testing.T, redirect string) url.Values {
	t.Helper()
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	return u.Query()
}

// ──────────────────────────────────────────────────────────────────────────────
// Login
// ──────────────────────────────────────────────────────────────────────────────

func TestLogin_Exitoso(t *testing.T) {
	users := newMemUserRepo()
	seeded := seedUser(t, users, "a@x.com", "password123", entity.RoleOwner)
	uc := buildUseCase(t, users, nil)

	out, err := uc.Login(context.Background(), dto.LoginRequest{Email: "a@x.com", Password: "password123"}, "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, out.AccessToken)
	require.NotEmpty(t, out.RefreshToken)

	claims, err := pkgjwt.Parse(testSecret, out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, claims.Subject, "sub debe ser el ID del usuario")
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, entity.DefaultTenantID, claims.TenantID)
	assert.Equal(t, entity.RoleOwner, claims.Role)

	assert.Equal(t, seeded.ID, out.User.ID)
	assert.Equal(t, "a@x.com", out.User.Email)
}

func TestLogin_PasswordIncorrecto_NoFiltraExistencia(t *testing.T) {
	users := newMemUserRepo()
	seedUser(t, users, "a@x.com", "password123", entity.RoleCashier)
	uc := buildUseCase(t, users, nil)

	_, errWrongPass := uc.Login(context.Background(), dto.LoginRequest{Email: "a@x.com", Password: "incorrecta"}, "")
	_, errNoUser := uc.Login(context.Background(), dto.LoginRequest{Email: "nadie@x.com", Password: "lo-que-sea"}, "")

	// Mismo error en ambos casos: no se distingue si el email existe.
	assert.ErrorIs(t, errWrongPass, domain.ErrUnauthorized)
	assert.ErrorIs(t, errNoUser, domain.ErrUnauthorized)
}

func TestLogin_UsuarioSoloFederado_SinHashLocal(t *testing.T) {
	users := newMemUserRepo()
	u := seedUser(t, users, "fed@x.com", "x", entity.RoleCashier)
	u.PasswordHash = "" // identidad completamente federada
	require.NoError(t, users.Update(context.Background(), u))
	uc := buildUseCase(t, users, nil)

	_, err := uc.Login(context.Background(), dto.LoginRequest{Email: "fed@x.com", Password: "x"}, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized,
		"sin hash local no hay comparación posible: sin coincidencia")
}

// ──────────────────────────────────────────────────────────────────────────────
// Register
// ──────────────────────────────────────────────────────────────────────────────

func TestRegister_DefaultsYHash(t *testing.T) {
	users := newMemUserRepo()
	uc := buildUseCase(t, users, nil)

	out, err := uc.Register(context.Background(), dto.RegisterRequest{
		Email: "a@x.com", Password: "password123", Name: "A",
	}, "test-agent")
	require.NoError(t, err)

	assert.Equal(t, entity.RoleCashier, out.User.Role, "rol por defecto es cashier")
	assert.Equal(t, entity.DefaultTenantID, out.User.TenantID)
	assert.NotEmpty(t, out.User.Permissions, "el registro incluye snapshot de permisos")

	stored, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "password123", stored.PasswordHash, "nunca se persiste el password en claro")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")))

	claims, err := pkgjwt.Parse(testSecret, out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.Subject)
	assert.NotEmpty(t, claims.Permissions)
}

func TestRegister_EmailDuplicado_Conflicto(t *testing.T) {
	users := newMemUserRepo()
	uc := buildUseCase(t, users, nil)

	_, err := uc.Register(context.Background(), dto.RegisterRequest{Email: "a@x.com", Password: "password123", Name: "A"}, "")
	require.NoError(t, err)

	_, err = uc.Register(context.Background(), dto.RegisterRequest{Email: "a@x.com", Password: "password123", Name: "A"}, "")
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestRegister_RolInvalido(t *testing.T) {
	uc := buildUseCase(t, newMemUserRepo(), nil)
	_, err := uc.Register(context.Background(), dto.RegisterRequest{
		Email: "a@x.com", Password: "password123", Role: "admin",
	}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Refresh / Logout (rotación y revocación)
// ──────────────────────────────────────────────────────────────────────────────

func TestRefresh_RotaYRevocaElAnterior(t *testing.T) {
	users := newMemUserRepo()
	seedUser(t, users, "a@x.com", "password123", entity.RoleManager)
	uc := buildUseCase(t, users, nil)

	login, err := uc.Login(context.Background(), dto.LoginRequest{Email: "a@x.com", Password: "password123"}, "")
	require.NoError(t, err)

	rotated, err := uc.Refresh(context.Background(), login.RefreshToken, "")
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// El token presentado quedó revocado: una segunda rotación falla.
	_, err = uc.Refresh(context.Background(), login.RefreshToken, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// El nuevo sí sirve.
	_, err = uc.Refresh(context.Background(), rotated.RefreshToken, "")
	assert.NoError(t, err)
}

func TestRefresh_TokenDesconocido(t *testing.T) {
	uc := buildUseCase(t, newMemUserRepo(), nil)
	_, err := uc.Refresh(context.Background(), "token-inventado", "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogout_RevocaYEsIdempotente(t *testing.T) {
	users := newMemUserRepo()
	seedUser(t, users, "a@x.com", "password123", entity.RoleCashier)
	uc := buildUseCase(t, users, nil)

	login, err := uc.Login(context.Background(), dto.LoginRequest{Email: "a@x.com", Password: "password123"}, "")
	require.NoError(t, err)

	require.NoError(t, uc.Logout(context.Background(), login.RefreshToken, false))
	_, err = uc.Refresh(context.Background(), login.RefreshToken, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "un refresh token revocado no rota")

	// Repetir logout con el mismo token (o con uno vacío) no es un error.
	assert.NoError(t, uc.Logout(context.Background(), login.RefreshToken, false))
	assert.NoError(t, uc.Logout(context.Background(), "", false))
}

func TestLogout_All_RevocaTodasLasSesiones(t *testing.T) {
	users := newMemUserRepo()
	seedUser(t, users, "a@x.com", "password123", entity.RoleCashier)
	uc := buildUseCase(t, users, nil)

	first, err := uc.Login(context.Background(), dto.LoginRequest{Email: "a@x.com", Password: "password123"}, "device-1")
	require.NoError(t, err)
	second, err := uc.Login(context.Background(), dto.LoginRequest{Email: "a@x.com", Password: "password123"}, "device-2")
	require.NoError(t, err)

	require.NoError(t, uc.Logout(context.Background(), first.RefreshToken, true))

	_, err = uc.Refresh(context.Background(), second.RefreshToken, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "all=true revoca también las otras sesiones")
}

// ──────────────────────────────────────────────────────────────────────────────
// Callback federado
// ──────────────────────────────────────────────────────────────────────────────

func TestFederatedCallback_SinCode_RedirectConError(t *testing.T) {
	uc := buildUseCase(t, newMemUserRepo(), &fakeIdentity{})
	redirect := uc.FederatedCallback(context.Background(), "", "")

	assert.True(t, strings.HasPrefix(redirect, testFrontend), "siempre redirige al frontend")
	assert.Equal(t, "missing_code", redirectQuery(t, redirect).Get("error"))
}

func TestFederatedCallback_AutoProvision(t *testing.T) {
	users := newMemUserRepo()
	ident := &fakeIdentity{profile: identity.Profile{Sub: "auth0|xyz", Email: "fed@x.com", Name: "Fede"}}
	uc := buildUseCase(t, users, ident)

	redirect := uc.FederatedCallback(context.Background(), "auth-code", "browser")
	q := redirectQuery(t, redirect)
	require.Empty(t, q.Get("error"))
	require.NotEmpty(t, q.Get("token"))

	created, err := users.GetByEmail(context.Background(), "fed@x.com")
	require.NoError(t, err)
	require.NotNil(t, created, "el usuario federado se aprovisiona localmente")
	assert.Equal(t, entity.RoleCashier, created.Role)
	assert.Equal(t, entity.DefaultTenantID, created.TenantID)
	assert.Equal(t, "auth0|xyz", created.ExternalID)
	assert.Empty(t, created.PasswordHash, "identidad federada no tiene hash local")

	claims, err := pkgjwt.Parse(testSecret, q.Get("token"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.Subject)
	assert.Equal(t, "auth0|xyz", claims.ExternalID)
	assert.NotEmpty(t, claims.Permissions)
}

func TestFederatedCallback_UsuarioExistente_AdoptaExternalID(t *testing.T) {
	users := newMemUserRepo()
	existing := seedUser(t, users, "fed@x.com", "password123", entity.RoleManager)
	ident := &fakeIdentity{profile: identity.Profile{Sub: "auth0|xyz", Email: "fed@x.com", Name: "Fede"}}
	uc := buildUseCase(t, users, ident)

	redirect := uc.FederatedCallback(context.Background(), "auth-code", "")
	require.Empty(t, redirectQuery(t, redirect).Get("error"))

	updated, err := users.GetByID(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "auth0|xyz", updated.ExternalID)
	assert.Equal(t, entity.RoleManager, updated.Role, "el rol existente se conserva")
}

func TestFederatedCallback_ExchangeFalla_RedirectConError(t *testing.T) {
	ident := &fakeIdentity{exchangeErr: domain.ErrExternalAuth}
	uc := buildUseCase(t, newMemUserRepo(), ident)

	redirect := uc.FederatedCallback(context.Background(), "bad-code", "")
	assert.Equal(t, "exchange_failed", redirectQuery(t, redirect).Get("error"))
}

func TestFederatedCallback_SinProveedor(t *testing.T) {
	uc := buildUseCase(t, newMemUserRepo(), nil)
	redirect := uc.FederatedCallback(context.Background(), "code", "")
	assert.Equal(t, "provider_not_configured", redirectQuery(t, redirect).Get("error"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Validador federado
// ──────────────────────────────────────────────────────────────────────────────

func TestFederatedValidator_CredencialesRechazadas(t *testing.T) {
	users := newMemUserRepo()
	v := auth.NewFederatedValidator(&fakeIdentity{grantNil: true}, users)

	user, err := v.Validate(context.Background(), "fed@x.com", "mala")
	require.NoError(t, err, "credenciales incorrectas no son un error")
	assert.Nil(t, user)
}

func TestFederatedValidator_AutoProvision(t *testing.T) {
	users := newMemUserRepo()
	ident := &fakeIdentity{profile: identity.Profile{Sub: "auth0|abc", Email: "fed@x.com", Name: "Fede"}}
	v := auth.NewFederatedValidator(ident, users)

	user, err := v.Validate(context.Background(), "fed@x.com", "correcta")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, entity.RoleCashier, user.Role)
	assert.Equal(t, "auth0|abc", user.ExternalID)
}

// ──────────────────────────────────────────────────────────────────────────────
// URLs federadas y health
// ──────────────────────────────────────────────────────────────────────────────

func TestFederatedLoginURL_IncluyeState(t *testing.T) {
	uc := buildUseCase(t, newMemUserRepo(), &fakeIdentity{})
	u, err := uc.FederatedLoginURL()
	require.NoError(t, err)
	assert.Contains(t, u, "state=")
}

func TestFederatedLoginURL_SinProveedor(t *testing.T) {
	uc := buildUseCase(t, newMemUserRepo(), nil)
	_, err := uc.FederatedLoginURL()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHealth_ReportaPresenciaYConteo(t *testing.T) {
	users := newMemUserRepo()
	seedUser(t, users, "a@x.com", "password123", entity.RoleOwner)
	seedUser(t, users, "b@x.com", "password123", entity.RoleCashier)
	uc := buildUseCase(t, users, &fakeIdentity{})

	h := uc.Health(context.Background())
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.Database.Connected)
	assert.Equal(t, 2, h.Database.Users)
	assert.True(t, h.Authentication.Provider.Enabled)
	assert.Equal(t, "configured", h.JWT.Secret)
	assert.Equal(t, "configured", h.Authentication.Provider.ClientSecret)
	assert.Equal(t, 60, h.JWT.ExpMinutes)
}

func TestHealth_DirectorioCaido(t *testing.T) {
	users := newMemUserRepo()
	users.fail = domain.ErrNotFound
	uc := buildUseCase(t, users, nil)

	h := uc.Health(context.Background())
	assert.False(t, h.Database.Connected)
	assert.Equal(t, 0, h.Database.Users)
}
