package ports

import "context"

// ChatDirectory es el registro de chats conocidos y su estado de silencio.
// Por defecto todo chat conocido está suscrito (opt-out).
type ChatDirectory interface {
	// ListActiveChatIDs devuelve todos los chats conocidos, silenciados incluidos.
	ListActiveChatIDs(ctx context.Context) ([]int64, error)

	// MutedChatIDs devuelve los chats que se dieron de baja.
	MutedChatIDs(ctx context.Context) ([]int64, error)

	// RegisterChat da de alta un chat si no existía (suscrito).
	RegisterChat(ctx context.Context, chatID int64) error

	// SetMuted silencia o reactiva un chat, registrándolo si hace falta.
	SetMuted(ctx context.Context, chatID int64, muted bool) error
}
