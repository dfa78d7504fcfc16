package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/alejandrodnm/consensusbot/internal/ports"
)

// MuteList es la caché en memoria de los chats dados de baja.
// La fuente de verdad es el ChatDirectory; la caché se carga en el primer uso.
type MuteList struct {
	dir ports.ChatDirectory

	mu     sync.RWMutex
	loaded bool
	ids    map[int64]struct{}
}

// NewMuteList crea una MuteList respaldada por dir (puede ser nil: sólo memoria).
func NewMuteList(dir ports.ChatDirectory) *MuteList {
	return &MuteList{dir: dir, ids: make(map[int64]struct{})}
}

// Load (re)carga la lista desde el directorio.
func (m *MuteList) Load(ctx context.Context) error {
	if m.dir == nil {
		m.mu.Lock()
		m.loaded = true
		m.mu.Unlock()
		return nil
	}

	ids, err := m.dir.MutedChatIDs(ctx)
	if err != nil {
		return fmt.Errorf("scanner.MuteList.Load: %w", err)
	}

	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	m.mu.Lock()
	m.ids = set
	m.loaded = true
	m.mu.Unlock()
	return nil
}

// ensure carga la lista si todavía no se hizo.
func (m *MuteList) ensure(ctx context.Context) error {
	m.mu.RLock()
	loaded := m.loaded
	m.mu.RUnlock()
	if loaded {
		return nil
	}
	return m.Load(ctx)
}

// Snapshot devuelve una copia del set de chats silenciados.
func (m *MuteList) Snapshot(ctx context.Context) (map[int64]struct{}, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]struct{}, len(m.ids))
	for id := range m.ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// IsMuted indica si chatID está dado de baja.
func (m *MuteList) IsMuted(ctx context.Context, chatID int64) (bool, error) {
	if err := m.ensure(ctx); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[chatID]
	return ok, nil
}

// Count devuelve cuántos chats hay silenciados, cargando la lista si hace falta.
func (m *MuteList) Count(ctx context.Context) (int, error) {
	if err := m.ensure(ctx); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids), nil
}

// Set persiste el estado y actualiza la caché sólo si la escritura tuvo éxito.
func (m *MuteList) Set(ctx context.Context, chatID int64, muted bool) error {
	if err := m.ensure(ctx); err != nil {
		return err
	}
	if m.dir != nil {
		if err := m.dir.SetMuted(ctx, chatID, muted); err != nil {
			return fmt.Errorf("scanner.MuteList.Set: chat %d: %w", chatID, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if muted {
		m.ids[chatID] = struct{}{}
	} else {
		delete(m.ids, chatID)
	}
	return nil
}
