package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// maxPositionsPerPage es el máximo que acepta la Data API por request.
const maxPositionsPerPage = 500

// FetchPositions implementa ports.PositionProvider.
// Devuelve las posiciones abiertas de address (como mucho limit).
func (c *Client) FetchPositions(ctx context.Context, address string, limit int) ([]domain.RawPosition, error) {
	address = domain.CanonicalAddress(address)
	if limit <= 0 || limit > maxPositionsPerPage {
		limit = maxPositionsPerPage
	}

	q := url.Values{}
	q.Set("user", address)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sizeThreshold", "0")
	u := c.dataBase + "/positions?" + q.Encode()

	var raw []dataPosition
	if err := c.get(ctx, c.positionsLimiter, u, &raw); err != nil {
		return nil, fmt.Errorf("polymarket.FetchPositions: %s: %w", address, err)
	}
	return mapPositions(address, raw), nil
}
