package ports

import "context"

// ScanLock es un lock entre procesos para que sólo una réplica escanee a la vez (opcional).
type ScanLock interface {
	// TryLock intenta adquirir el lock sin bloquear.
	TryLock(ctx context.Context) (bool, error)

	// Refresh renueva el TTL mientras el scan sigue en curso.
	// Devuelve false si el lock ya no es nuestro.
	Refresh(ctx context.Context) (bool, error)

	Unlock(ctx context.Context) error
}
