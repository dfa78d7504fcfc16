package scanner

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/consensusbot/internal/ports"
)

// Delivery cuenta el resultado de difundir un mensaje.
type Delivery struct {
	Attempted int
	Delivered int
	Failed    int
}

// Broadcaster resuelve los destinatarios (todos los chats menos los silenciados)
// y entrega cada mensaje aislando los fallos por destinatario.
type Broadcaster struct {
	chats       ports.ChatDirectory
	messenger   ports.Messenger
	mutes       *MuteList
	sendTimeout time.Duration
	metrics     ports.Metrics
}

// NewBroadcaster crea un Broadcaster. Sin chats o sin messenger no se envía nada.
func NewBroadcaster(chats ports.ChatDirectory, messenger ports.Messenger, mutes *MuteList, sendTimeout time.Duration, metrics ports.Metrics) *Broadcaster {
	if mutes == nil {
		mutes = NewMuteList(chats)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Broadcaster{
		chats:       chats,
		messenger:   messenger,
		mutes:       mutes,
		sendTimeout: sendTimeout,
		metrics:     metrics,
	}
}

// Recipients devuelve los chats activos menos los silenciados, ordenados.
// Ante cualquier duda (sin directorio, error de lectura) devuelve vacío: nunca adivina destinatarios.
func (b *Broadcaster) Recipients(ctx context.Context) []int64 {
	if b.chats == nil {
		slog.Warn("no chat directory configured, broadcasting to nobody")
		return nil
	}

	all, err := b.chats.ListActiveChatIDs(ctx)
	if err != nil {
		slog.Error("list chats failed, broadcasting to nobody", "err", err)
		return nil
	}

	muted, err := b.mutes.Snapshot(ctx)
	if err != nil {
		slog.Error("load muted chats failed, broadcasting to nobody", "err", err)
		return nil
	}

	seen := make(map[int64]struct{}, len(all))
	recipients := make([]int64, 0, len(all))
	for _, id := range all {
		if _, skip := muted[id]; skip {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i] < recipients[j] })
	return recipients
}

// Send entrega text a cada destinatario. Un fallo no bloquea al resto.
// Si el contexto se cancela, deja de intentar con los destinatarios pendientes.
func (b *Broadcaster) Send(ctx context.Context, recipients []int64, text string) Delivery {
	var d Delivery
	if b.messenger == nil || len(recipients) == 0 || text == "" {
		return d
	}

	for _, chatID := range recipients {
		if ctx.Err() != nil {
			slog.Warn("broadcast interrupted", "pending", len(recipients)-d.Attempted, "err", ctx.Err())
			break
		}

		d.Attempted++
		sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
		err := b.messenger.Send(sendCtx, chatID, text)
		cancel()

		if err != nil {
			d.Failed++
			b.metrics.DeliveryResult(false)
			slog.Warn("delivery failed", "chat_id", chatID, "err", err)
			continue
		}
		d.Delivered++
		b.metrics.DeliveryResult(true)
	}
	return d
}
