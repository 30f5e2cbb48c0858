package entity

import "time"

// Session representa un refresh token emitido a un usuario.
// El token opaco nunca se persiste en claro: solo su hash SHA-256.
// Una sesión revocada o vencida no puede rotarse.
type Session struct {
	ID        string
	UserID    string
	TokenHash string // SHA-256 hex del refresh token opaco
	UserAgent string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	LastUsed  time.Time
}

// Expired indica si la sesión ya venció en el instante dado.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Usable indica si la sesión puede rotarse: ni revocada ni vencida.
func (s *Session) Usable(now time.Time) bool {
	return !s.Revoked && !s.Expired(now)
}
