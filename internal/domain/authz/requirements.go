package authz

// Requirements es el mapeo explícito operación → permisos requeridos.
// Se construye una vez en el arranque (router) y después es de solo lectura;
// el guard de autorización lo consulta por identificador de operación.
type Requirements struct {
	byOp map[string][]Permission
}

// NewRequirements crea un mapeo vacío.
func NewRequirements() *Requirements {
	return &Requirements{byOp: make(map[string][]Permission)}
}

// Declare registra los permisos requeridos por una operación. Devuelve el
// receptor para encadenar declaraciones en el arranque.
func (r *Requirements) Declare(operationID string, perms ...Permission) *Requirements {
	r.byOp[operationID] = perms
	return r
}

// For devuelve los permisos requeridos por la operación. Una operación no
// declarada no requiere permisos adicionales (solo autenticación).
func (r *Requirements) For(operationID string) []Permission {
	return r.byOp[operationID]
}
