package ports

import (
	"context"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// PositionProvider obtiene las posiciones abiertas de una wallet desde el proveedor de mercado.
type PositionProvider interface {
	// FetchPositions devuelve hasta limit posiciones raw (una por mercado × outcome).
	// Puede fallar por llamada; el scanner trata el error por wallet.
	FetchPositions(ctx context.Context, address string, limit int) ([]domain.RawPosition, error)
}
