package polymarket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

const (
	// DefaultTraderTag es el ranking global de polymarketanalytics.
	DefaultTraderTag = "Overall"

	defaultTraderPageSize = 100
	// maxTraderPages acota el crawl por si la API deja de devolver páginas cortas.
	maxTraderPages = 200
)

// TraderQuery son los filtros del ranking de traders.
type TraderQuery struct {
	Tag               string
	MinWinRate        int // porcentaje, 67 = 67%
	MinTotalPositions int
	PageSize          int
	Max               int // 0 = sin límite
}

// FetchTopTraders recorre el ranking de traders (ordenado por PnL desc) página a
// página hasta una página corta, q.Max traders o el tope de páginas.
func (c *Client) FetchTopTraders(ctx context.Context, q TraderQuery) ([]domain.TraderProfile, error) {
	if q.Tag == "" {
		q.Tag = DefaultTraderTag
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultTraderPageSize
	}

	u := c.analyticsBase + "/api/traders-tag-performance"
	var all []domain.TraderProfile

	for page := 1; page <= maxTraderPages; page++ {
		body := tagPerformanceRequest{
			Tag:               q.Tag,
			Page:              page,
			PageSize:          q.PageSize,
			SortBy:            "pnl",
			SortDirection:     "desc",
			MinWinRate:        q.MinWinRate,
			MinTotalPositions: q.MinTotalPositions,
		}

		var resp tagPerformanceResponse
		if err := c.post(ctx, c.analyticsLimiter, u, body, &resp); err != nil {
			if len(all) > 0 {
				// nos quedamos con lo ya recorrido
				slog.Warn("trader crawl interrupted", "tag", q.Tag, "page", page, "collected", len(all), "err", err)
				return all, nil
			}
			return nil, fmt.Errorf("polymarket.FetchTopTraders: page %d: %w", page, err)
		}

		all = append(all, mapTraders(q.Tag, resp.Data)...)
		slog.Debug("trader page fetched", "tag", q.Tag, "page", page, "traders", len(resp.Data), "total", len(all))

		if q.Max > 0 && len(all) >= q.Max {
			return all[:q.Max], nil
		}
		if len(resp.Data) < q.PageSize {
			break
		}
	}
	return all, nil
}
