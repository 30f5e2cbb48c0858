package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrInvalidToken       = errors.New("token inválido o expirado")
	ErrUnknownRole        = errors.New("rol desconocido")
	ErrExternalAuth       = errors.New("fallo de autenticación con el proveedor externo")
	ErrSessionNotFound    = errors.New("sesión no encontrada")
)
