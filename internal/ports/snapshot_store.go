package ports

import (
	"context"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// SnapshotStore guarda el histórico de posiciones netas por wallet.
type SnapshotStore interface {
	SavePositionSnapshot(ctx context.Context, snap domain.PositionSnapshot) error
}
