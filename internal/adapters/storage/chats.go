package storage

import (
	"context"
	"fmt"
)

// RegisterChat da de alta un chat. Si ya existía no toca su flag de silencio.
func (s *SQLiteStorage) RegisterChat(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (chat_id, muted, registered_at) VALUES (?, 0, ?) ON CONFLICT(chat_id) DO NOTHING`,
		chatID, formatTime(s.now())); err != nil {
		return fmt.Errorf("storage.RegisterChat: %d: %w", chatID, err)
	}
	return nil
}

// SetMuted persiste el flag de silencio. Un chat desconocido queda registrado.
func (s *SQLiteStorage) SetMuted(ctx context.Context, chatID int64, muted bool) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (chat_id, muted, registered_at) VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET muted = excluded.muted
	`, chatID, boolToInt(muted), formatTime(s.now())); err != nil {
		return fmt.Errorf("storage.SetMuted: %d: %w", chatID, err)
	}
	return nil
}

// ListActiveChatIDs devuelve todos los chats registrados, silenciados incluidos.
func (s *SQLiteStorage) ListActiveChatIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.queryChatIDs(ctx, `SELECT chat_id FROM chats ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListActiveChatIDs: %w", err)
	}
	return ids, nil
}

// MutedChatIDs devuelve los chats dados de baja.
func (s *SQLiteStorage) MutedChatIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.queryChatIDs(ctx, `SELECT chat_id FROM chats WHERE muted = 1 ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("storage.MutedChatIDs: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStorage) queryChatIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
