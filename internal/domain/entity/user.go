package entity

import "time"

// Roles válidos para User. Conjunto cerrado, ordenado por privilegio.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// DefaultTenantID tenant único observado por este servicio (no hay partición
// multi-tenant real todavía; el claim viaja en el JWT para cuando exista).
const DefaultTenantID = "tenant-1"

// User representa un usuario del sistema (pertenece a un Tenant).
// PasswordHash queda vacío cuando la identidad es completamente federada
// (el proveedor externo es quien valida la contraseña).
type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // owner, manager, cashier
	ExternalID   string // "sub" del proveedor de identidad externo, vacío si local
	Status       string // active, inactive, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
