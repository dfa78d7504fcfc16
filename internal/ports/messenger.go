package ports

import "context"

// Messenger entrega un texto ya formateado a un chat.
// Cada llamada puede fallar de forma independiente.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}
