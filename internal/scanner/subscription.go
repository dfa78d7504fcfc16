package scanner

import (
	"context"
	"fmt"
	"log/slog"
)

// SubscribeChat vuelve a activar las alertas para un chat.
func (s *Scanner) SubscribeChat(ctx context.Context, chatID int64) error {
	if err := s.mutes.Set(ctx, chatID, false); err != nil {
		return fmt.Errorf("scanner.SubscribeChat: %w", err)
	}
	slog.Info("chat subscribed", "chat_id", chatID)
	return nil
}

// UnsubscribeChat silencia las alertas futuras de un chat. Lo ya enviado no cambia.
func (s *Scanner) UnsubscribeChat(ctx context.Context, chatID int64) error {
	if err := s.mutes.Set(ctx, chatID, true); err != nil {
		return fmt.Errorf("scanner.UnsubscribeChat: %w", err)
	}
	slog.Info("chat unsubscribed", "chat_id", chatID)
	return nil
}

// IsSubscribed indica si un chat recibe alertas. Por defecto todos los chats están suscritos.
func (s *Scanner) IsSubscribed(ctx context.Context, chatID int64) bool {
	muted, err := s.mutes.IsMuted(ctx, chatID)
	if err != nil {
		slog.Warn("subscription check failed", "chat_id", chatID, "err", err)
		return false
	}
	return !muted
}

// RegisterChat da de alta un chat nuevo (suscrito por defecto).
func (s *Scanner) RegisterChat(ctx context.Context, chatID int64) error {
	if s.deps.Chats == nil {
		return fmt.Errorf("scanner.RegisterChat: no chat directory configured")
	}
	if err := s.deps.Chats.RegisterChat(ctx, chatID); err != nil {
		return fmt.Errorf("scanner.RegisterChat: %w", err)
	}
	return nil
}
