package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Side es la dirección neta de una wallet en un mercado binario.
type Side string

const (
	SideYes     Side = "YES"
	SideNo      Side = "NO"
	SideNeutral Side = "NEUTRAL"
)

// Opposite devuelve el lado contrario (NEUTRAL se queda igual).
func (s Side) Opposite() Side {
	switch s {
	case SideYes:
		return SideNo
	case SideNo:
		return SideYes
	}
	return SideNeutral
}

// netEpsilon absorbe el error de redondeo al restar patas fraccionarias.
const netEpsilon = 1e-9

// SideOf devuelve el signo de netShares como Side. |netShares| < 1e-9 es NEUTRAL.
func SideOf(netShares float64) Side {
	switch {
	case netShares >= netEpsilon:
		return SideYes
	case netShares <= -netEpsilon:
		return SideNo
	default:
		return SideNeutral
	}
}

// RawPosition es una fila (wallet, mercado, outcome) tal como la devuelve el proveedor.
// Es efímera: no se persiste tal cual.
type RawPosition struct {
	WalletAddress string
	MarketID      string // conditionId
	MarketTitle   string
	MarketSlug    string
	Outcome       string // "Yes" | "No" | alias
	Shares        float64
	AvgPrice      float64
	CurPrice      float64
}

// UnitPrice devuelve el precio usado para valorar la posición: el precio medio
// de entrada, o el precio actual si el proveedor no reporta precio medio.
func (r RawPosition) UnitPrice() float64 {
	if p := nonNegative(r.AvgPrice); p > 0 {
		return p
	}
	return nonNegative(r.CurPrice)
}

// Value devuelve shares × precio, con inputs malformados contando como cero.
func (r RawPosition) Value() float64 {
	return nonNegative(r.Shares) * r.UnitPrice()
}

// NettedPosition es la posición neta de una wallet en un mercado.
// Invariantes: NetShares = YesShares - NoShares, NetValue = YesValue - NoValue,
// Side = NEUTRAL sii NetShares = 0.
type NettedPosition struct {
	WalletID      int64  `json:"wallet_id"`
	WalletAddress string `json:"wallet_address"`
	WalletAlias   string `json:"wallet_alias"`

	MarketID    string `json:"market_id"`
	MarketTitle string `json:"market_title"`
	MarketSlug  string `json:"market_slug"`

	YesShares float64 `json:"yes_shares"`
	NoShares  float64 `json:"no_shares"`
	YesValue  float64 `json:"yes_value"`
	NoValue   float64 `json:"no_value"`
	NetShares float64 `json:"net_shares"`
	NetValue  float64 `json:"net_value"`

	PortfolioValue   float64 `json:"portfolio_value"`   // valor total de la wallet (todas las posiciones)
	PortfolioPercent float64 `json:"portfolio_percent"` // |NetValue| / PortfolioValue × 100

	Side Side `json:"side"`
}

// AbsValue devuelve |NetValue|.
func (p NettedPosition) AbsValue() float64 {
	return math.Abs(p.NetValue)
}

// AbsShares devuelve |NetShares|.
func (p NettedPosition) AbsShares() float64 {
	return math.Abs(p.NetShares)
}

// PositionSnapshot es la foto de las posiciones netas de una wallet en un scan.
type PositionSnapshot struct {
	ID             string
	WalletID       int64
	WalletAddress  string
	Positions      []NettedPosition
	PortfolioValue float64
	RawCount       int
	TakenAt        time.Time
}

type outcomeBucket int

const (
	bucketNone outcomeBucket = iota
	bucketYes
	bucketNo
)

// classifyOutcome mapea el outcome a su bucket, tolerando alias y mayúsculas.
func classifyOutcome(outcome string) outcomeBucket {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "yes", "y", "1":
		return bucketYes
	case "no", "n", "0":
		return bucketNo
	}
	return bucketNone
}

// PortfolioValue suma shares × precio sobre todas las posiciones raw,
// incluidas las que luego quedan neutrales o con outcome desconocido.
func PortfolioValue(raw []RawPosition) float64 {
	total := 0.0
	for _, r := range raw {
		total += r.Value()
	}
	return total
}

// NetPositions colapsa las patas YES/NO de cada mercado en una posición neta.
// Los mercados neutrales (netShares = 0) se descartan. El resultado va ordenado por MarketID.
func NetPositions(wallet SmartWallet, raw []RawPosition) []NettedPosition {
	if len(raw) == 0 {
		return nil
	}

	portfolio := PortfolioValue(raw)

	groups := make(map[string]*NettedPosition)
	for _, r := range raw {
		if r.MarketID == "" {
			continue
		}
		bucket := classifyOutcome(r.Outcome)

		g, ok := groups[r.MarketID]
		if !ok {
			g = &NettedPosition{
				WalletID:      wallet.ID,
				WalletAddress: wallet.Address,
				WalletAlias:   wallet.Alias,
				MarketID:      r.MarketID,
			}
			groups[r.MarketID] = g
		}
		if g.MarketTitle == "" {
			g.MarketTitle = r.MarketTitle
		}
		if g.MarketSlug == "" {
			g.MarketSlug = r.MarketSlug
		}

		shares := nonNegative(r.Shares)
		value := r.Value()
		switch bucket {
		case bucketYes:
			g.YesShares += shares
			g.YesValue += value
		case bucketNo:
			g.NoShares += shares
			g.NoValue += value
		}
	}

	out := make([]NettedPosition, 0, len(groups))
	for _, g := range groups {
		g.NetShares = g.YesShares - g.NoShares
		g.NetValue = g.YesValue - g.NoValue
		g.Side = SideOf(g.NetShares)
		if g.Side == SideNeutral {
			continue
		}
		g.PortfolioValue = portfolio
		if portfolio > 0 {
			g.PortfolioPercent = math.Abs(g.NetValue) / portfolio * 100
		}
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].MarketID < out[j].MarketID
	})
	return out
}

// nonNegative trata NaN, Inf y negativos como cero.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
