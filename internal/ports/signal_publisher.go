package ports

import (
	"context"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// SignalPublisher emite cada señal nueva a un stream externo (opcional).
type SignalPublisher interface {
	PublishSignal(ctx context.Context, sig domain.ConsensusSignal) error
}
