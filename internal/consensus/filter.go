package consensus

import (
	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// Filter descarta posiciones que no son significativas.
// Una posición es significativa si supera el umbral en dólares O el umbral de
// porcentaje de cartera: un trade pequeño que es gran parte del book cuenta.
type Filter struct {
	minOrderValue       float64
	minPortfolioPercent float64
}

// NewFilter crea un Filter con los umbrales de cfg.
func NewFilter(cfg Config) *Filter {
	return &Filter{
		minOrderValue:       cfg.MinOrderValue,
		minPortfolioPercent: cfg.MinPortfolioPercent,
	}
}

// Apply devuelve las posiciones que pasan el filtro.
func (f *Filter) Apply(positions []domain.NettedPosition) []domain.NettedPosition {
	result := make([]domain.NettedPosition, 0, len(positions))
	for _, p := range positions {
		if f.passes(p) {
			result = append(result, p)
		}
	}
	return result
}

// passes devuelve true si la posición es direccional y significativa.
func (f *Filter) passes(p domain.NettedPosition) bool {
	if p.Side == domain.SideNeutral || p.MarketID == "" {
		return false
	}
	return p.AbsValue() >= f.minOrderValue || p.PortfolioPercent >= f.minPortfolioPercent
}
