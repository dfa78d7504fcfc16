package domain

import (
	"strings"
	"time"
)

// SmartWallet es una dirección de la watch list cuyas posiciones alimentan el detector.
// Se desactiva con un flag, nunca se borra.
type SmartWallet struct {
	ID      int64     `json:"id"`
	Address string    `json:"address"` // siempre en minúsculas (0x...)
	Alias   string    `json:"alias"`
	Active  bool      `json:"active"`
	AddedAt time.Time `json:"added_at"`
}

// DisplayName devuelve el alias o, si está vacío, la dirección abreviada.
func (w SmartWallet) DisplayName() string {
	if w.Alias != "" {
		return w.Alias
	}
	return ShortAddress(w.Address)
}

// CanonicalAddress normaliza una dirección a su forma canónica (trim + minúsculas).
func CanonicalAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ShortAddress abrevia una dirección a 0x1234…abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
