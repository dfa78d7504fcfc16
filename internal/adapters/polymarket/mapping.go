package polymarket

import (
	"strings"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// mapPositions convierte los DTOs de la Data API a domain.RawPosition.
// Las posiciones ya resueltas (redeemable) no son posiciones abiertas y se descartan.
func mapPositions(address string, raw []dataPosition) []domain.RawPosition {
	out := make([]domain.RawPosition, 0, len(raw))
	for _, r := range raw {
		if r.Redeemable || r.ConditionID == "" {
			continue
		}
		out = append(out, mapPosition(address, r))
	}
	return out
}

func mapPosition(address string, r dataPosition) domain.RawPosition {
	slug := r.EventSlug
	if slug == "" {
		slug = r.Slug
	}
	return domain.RawPosition{
		WalletAddress: address,
		MarketID:      r.ConditionID,
		MarketTitle:   strings.TrimSpace(r.Title),
		MarketSlug:    slug,
		Outcome:       r.Outcome,
		Shares:        r.Size,
		AvgPrice:      r.AvgPrice,
		CurPrice:      r.CurPrice,
	}
}

// mapTraders convierte el ranking de Analytics a domain.TraderProfile.
func mapTraders(tag string, raw []traderPerformance) []domain.TraderProfile {
	out := make([]domain.TraderProfile, 0, len(raw))
	for _, r := range raw {
		addr := domain.CanonicalAddress(r.Trader)
		if addr == "" {
			continue
		}
		out = append(out, domain.TraderProfile{
			Address:        addr,
			Name:           strings.TrimSpace(r.TraderName),
			Tag:            tag,
			OverallGain:    r.OverallGain,
			WinRate:        r.WinRate,
			TotalPositions: r.TotalPositions,
			Rank:           r.Rank,
		})
	}
	return out
}
