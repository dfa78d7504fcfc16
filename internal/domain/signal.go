package domain

import (
	"fmt"
	"time"
)

// DayLayout es el formato de la clave de día usada para deduplicar señales.
const DayLayout = "2006-01-02"

// ConfidenceLevel es el nivel ordinal derivado del score de confianza.
type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "VERY_HIGH"
	ConfidenceHigh     ConfidenceLevel = "HIGH"
	ConfidenceMedium   ConfidenceLevel = "MEDIUM"
	ConfidenceLow      ConfidenceLevel = "LOW"
)

// Icon devuelve un emoji para mostrar el nivel en mensajes.
func (l ConfidenceLevel) Icon() string {
	switch l {
	case ConfidenceVeryHigh:
		return "🔥"
	case ConfidenceHigh:
		return "🟢"
	case ConfidenceMedium:
		return "🟡"
	default:
		return "⚪"
	}
}

// Label devuelve el nivel en formato legible ("VERY HIGH").
func (l ConfidenceLevel) Label() string {
	if l == ConfidenceVeryHigh {
		return "VERY HIGH"
	}
	return string(l)
}

// SignalWallet es la contribución de una wallet a una señal de consenso.
type SignalWallet struct {
	Alias            string  `json:"alias,omitempty"`
	Address          string  `json:"address"`
	Value            float64 `json:"value"`  // |NetValue| en USDC
	Shares           float64 `json:"shares"` // |NetShares|
	PortfolioPercent float64 `json:"portfolio_percent"`
}

// ConsensusSignal es un par (mercado, lado) que superó el quórum en un scan.
// Se persiste como mucho una vez por (MarketID, Side, Day).
type ConsensusSignal struct {
	ID          string `json:"id,omitempty"` // asignado por el ledger al persistir
	MarketID    string `json:"market_id"`
	MarketTitle string `json:"market_title"`
	MarketSlug  string `json:"market_slug"`
	Side        Side   `json:"side"`

	WalletCount int     `json:"wallet_count"`
	TotalValue  float64 `json:"total_value"`
	AvgValue    float64 `json:"avg_value"`

	ConfidenceScore int             `json:"confidence_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Breakdown       ScoreBreakdown  `json:"breakdown"`

	Wallets []SignalWallet `json:"wallets"`

	DetectedAt time.Time  `json:"detected_at"`
	Day        string     `json:"day"` // YYYY-MM-DD en la zona horaria del scan
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
}

// Key identifica la señal para deduplicación dentro de un día.
func (s ConsensusSignal) Key() string {
	return fmt.Sprintf("%s|%s|%s", s.MarketID, s.Side, s.Day)
}

// MarketURL devuelve el link público del mercado, o "" si no hay slug.
func (s ConsensusSignal) MarketURL() string {
	if s.MarketSlug == "" {
		return ""
	}
	return "https://polymarket.com/event/" + s.MarketSlug
}

// DayKey devuelve la clave de día de t en la zona loc (UTC si loc es nil).
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// ScanSummary resume un ciclo de scan para el mensaje de estado.
type ScanSummary struct {
	WalletsTotal    int
	WalletsScanned  int
	WalletsFailed   int
	PositionsFound  int
	SignalsDetected int
	SignalsNew      int
	Duration        time.Duration
	FinishedAt      time.Time
}
