package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// SignalLedger garantiza como mucho una notificación por (mercado, lado, día).
// El insert idempotente es la fuente de verdad; IsAlreadyNotified es sólo un atajo.
type SignalLedger interface {
	// IsAlreadyNotified indica si ya se notificó la señal (marketID, side) en day.
	IsAlreadyNotified(ctx context.Context, marketID string, side domain.Side, day string) (bool, error)

	// SaveSignalIfAbsent persiste la señal si no existe una fila para su clave.
	// Devuelve "" sin error si ya existía.
	SaveSignalIfAbsent(ctx context.Context, sig domain.ConsensusSignal) (string, error)

	// MarkNotified fija notified_at para la señal dada.
	MarkNotified(ctx context.Context, id string, at time.Time) error

	// RecentSignals devuelve las señales de los últimos days días, más recientes primero.
	RecentSignals(ctx context.Context, days int) ([]domain.ConsensusSignal, error)
}
