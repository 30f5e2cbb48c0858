// Package identity implementa el cliente de federación de identidad
// (flujo authorization-code estilo Auth0) sobre golang.org/x/oauth2.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/zakpos/auth-service/internal/domain"
	"github.com/zakpos/auth-service/pkg/config"
)

// Scopes fijos del flujo OIDC.
const oidcScopes = "openid profile email"

// httpTimeout límite por llamada al proveedor; una sola tentativa, sin retries.
const httpTimeout = 10 * time.Second

// Tokens resultado de un intercambio con el token endpoint del proveedor.
type Tokens struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

// Profile identidad federada transitoria devuelta por el userinfo endpoint.
// Nunca se persiste como entidad propia; solo se reconcilia contra User.
type Profile struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Client cliente del proveedor de identidad externo.
type Client struct {
	cfg     config.Auth0Config
	oauth   *oauth2.Config
	baseURL string
	http    *http.Client
}

// NewClient construye el cliente. El dominio puede ser un hostname
// (my-tenant.us.auth0.com) o una URL completa (tests con httptest).
func NewClient(cfg config.Auth0Config) *Client {
	base := cfg.Domain
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimSuffix(base, "/")
	return &Client{
		cfg:     cfg,
		baseURL: base,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       strings.Fields(oidcScopes),
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/authorize",
				TokenURL: base + "/oauth/token",
			},
		},
		http: &http.Client{Timeout: httpTimeout},
	}
}

// GenerateState genera el token de estado para el flujo authorization-code.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// AuthorizationURL construye la URL del authorize endpoint con scope OIDC,
// client id, redirect URI, audience y el state indicado.
func (c *Client) AuthorizationURL(state string) string {
	opts := []oauth2.AuthCodeOption{}
	if c.cfg.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", c.cfg.Audience))
	}
	return c.oauth.AuthCodeURL(state, opts...)
}

// ExchangeCode intercambia un authorization code por tokens del proveedor.
// Una sola tentativa; cualquier fallo se reporta como ErrExternalAuth.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %v", domain.ErrExternalAuth, err)
	}
	out := &Tokens{AccessToken: tok.AccessToken}
	if id, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = id
	}
	return out, nil
}

// UserInfo consulta el userinfo endpoint con el access token federado.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", domain.ErrExternalAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo devolvió %d", domain.ErrExternalAuth, resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decodificar userinfo: %v", domain.ErrExternalAuth, err)
	}
	return &p, nil
}

// PasswordGrant valida email/password directamente contra el proveedor
// (resource owner password grant). Lo usa el validador de credenciales
// federado; credenciales incorrectas son (nil, nil), no un error.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*Tokens, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"username":      {email},
		"password":      {password},
		"scope":         {oidcScopes},
	}
	if c.cfg.Audience != "" {
		form.Set("audience", c.cfg.Audience)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: password grant: %v", domain.ErrExternalAuth, err)
	}
	defer resp.Body.Close()

	// 401/403 del proveedor = credenciales incorrectas, un resultado negativo válido.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: token endpoint devolvió %d", domain.ErrExternalAuth, resp.StatusCode)
	}

	var tokens Tokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("%w: decodificar tokens: %v", domain.ErrExternalAuth, err)
	}
	if tokens.AccessToken == "" {
		return nil, nil
	}
	return &tokens, nil
}

// LogoutURL construye la URL de logout del proveedor con retorno al frontend.
func (c *Client) LogoutURL(returnTo string) string {
	q := url.Values{"client_id": {c.cfg.ClientID}}
	if returnTo != "" {
		q.Set("returnTo", returnTo)
	}
	return c.baseURL + "/v2/logout?" + q.Encode()
}
