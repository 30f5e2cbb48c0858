// Package authz define el modelo estático de roles y permisos del POS.
// La tabla rol → permisos se carga una sola vez y nunca muta en runtime.
package authz

import (
	"fmt"

	"github.com/zakpos/auth-service/internal/domain"
	"github.com/zakpos/auth-service/internal/domain/entity"
)

// Permission es una capacidad atómica con forma "recurso:acción".
type Permission = string

// Catálogo de permisos. Inmutable.
const (
	PermUserCreate Permission = "user:create"
	PermUserRead   Permission = "user:read"
	PermUserUpdate Permission = "user:update"
	PermUserDelete Permission = "user:delete"

	PermProductCreate Permission = "product:create"
	PermProductRead   Permission = "product:read"
	PermProductUpdate Permission = "product:update"
	PermProductDelete Permission = "product:delete"

	PermInventoryCreate Permission = "inventory:create"
	PermInventoryRead   Permission = "inventory:read"
	PermInventoryUpdate Permission = "inventory:update"
	PermInventoryDelete Permission = "inventory:delete"

	PermSaleCreate Permission = "sale:create"
	PermSaleRead   Permission = "sale:read"
	PermSaleUpdate Permission = "sale:update"
	PermSaleDelete Permission = "sale:delete"

	PermReportRead   Permission = "report:read"
	PermReportExport Permission = "report:export"

	PermSystemSettingsUpdate Permission = "system:settings:update"
	PermTenantManage         Permission = "tenant:manage"
	PermDeviceManage         Permission = "device:manage"
	PermSessionManage        Permission = "session:manage"
)

// rolePermissions tabla estática rol → permisos otorgados.
// Nota: manager no es subconjunto estricto de owner en user:*; la tabla refleja
// la operación real del negocio, no una jerarquía formal.
var rolePermissions = map[string][]Permission{
	entity.RoleOwner: {
		PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete,
		PermProductCreate, PermProductRead, PermProductUpdate, PermProductDelete,
		PermInventoryCreate, PermInventoryRead, PermInventoryUpdate, PermInventoryDelete,
		PermSaleCreate, PermSaleRead, PermSaleUpdate, PermSaleDelete,
		PermReportRead, PermReportExport,
		PermSystemSettingsUpdate, PermTenantManage, PermDeviceManage, PermSessionManage,
	},
	entity.RoleManager: {
		PermUserRead, PermUserUpdate,
		PermProductCreate, PermProductRead, PermProductUpdate, PermProductDelete,
		PermInventoryCreate, PermInventoryRead, PermInventoryUpdate, PermInventoryDelete,
		PermSaleCreate, PermSaleRead, PermSaleUpdate, PermSaleDelete,
		PermReportRead, PermReportExport,
		PermDeviceManage, PermSessionManage,
	},
	entity.RoleCashier: {
		PermProductRead,
		PermInventoryRead,
		PermSaleCreate, PermSaleRead,
		PermReportRead,
	},
}

// PermissionsFor devuelve los permisos otorgados a un rol.
// Un rol desconocido es un error explícito (fail closed); un mapa sin entrada
// sería una misconfiguración, no un conjunto vacío válido.
func PermissionsFor(role string) ([]Permission, error) {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out, nil
}

// HasAll indica si el rol tiene todos los permisos requeridos.
// Devuelve error para roles desconocidos (mismo fail closed que PermissionsFor).
func HasAll(role string, required []Permission) (bool, error) {
	perms, err := PermissionsFor(role)
	if err != nil {
		return false, err
	}
	granted := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		granted[p] = struct{}{}
	}
	for _, r := range required {
		if _, ok := granted[r]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// Roles devuelve los roles definidos (para validación de entrada).
func Roles() []string {
	return []string{entity.RoleOwner, entity.RoleManager, entity.RoleCashier}
}

// IsValidRole indica si el rol pertenece al conjunto cerrado.
func IsValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}
