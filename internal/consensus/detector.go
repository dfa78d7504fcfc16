package consensus

import (
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

const (
	defaultMinWallets          = 3
	defaultMinOrderValue       = 2000.0
	defaultMinPortfolioPercent = 2.0
)

// Config contiene los umbrales del detector.
type Config struct {
	MinWallets          int     // quórum de wallets distintas por (mercado, lado)
	MinOrderValue       float64 // USDC netos mínimos para que una posición cuente
	MinPortfolioPercent float64 // % de cartera mínimo para que una posición cuente
}

// DefaultConfig devuelve los umbrales por defecto (3 wallets, $2000, 2%).
func DefaultConfig() Config {
	return Config{
		MinWallets:          defaultMinWallets,
		MinOrderValue:       defaultMinOrderValue,
		MinPortfolioPercent: defaultMinPortfolioPercent,
	}
}

// Detector agrupa las posiciones netas por (mercado, lado) y puntúa cada grupo que alcanza el quórum.
// Es puro: no hace I/O.
type Detector struct {
	cfg    Config
	filter *Filter
}

// NewDetector crea un Detector. Valores fuera de rango se corrigen a mínimos válidos.
func NewDetector(cfg Config) *Detector {
	if cfg.MinWallets < 1 {
		cfg.MinWallets = 1
	}
	if cfg.MinOrderValue < 0 {
		cfg.MinOrderValue = 0
	}
	if cfg.MinPortfolioPercent < 0 {
		cfg.MinPortfolioPercent = 0
	}
	return &Detector{cfg: cfg, filter: NewFilter(cfg)}
}

// Config devuelve la configuración efectiva.
func (d *Detector) Config() Config {
	return d.cfg
}

type groupKey struct {
	marketID string
	side     domain.Side
}

// Detect devuelve las señales del ciclo ordenadas por score descendente.
func (d *Detector) Detect(positions []domain.NettedPosition, detectedAt time.Time) []domain.ConsensusSignal {
	significant := d.filter.Apply(positions)

	// mercado → lado → wallet → posición. Se conserva el orden de aparición de los grupos.
	groups := make(map[groupKey]map[string]domain.NettedPosition)
	var order []groupKey
	for _, p := range significant {
		k := groupKey{marketID: p.MarketID, side: p.Side}
		g, ok := groups[k]
		if !ok {
			g = make(map[string]domain.NettedPosition)
			groups[k] = g
			order = append(order, k)
		}
		wk := walletKey(p)
		if prev, dup := g[wk]; dup && prev.AbsValue() >= p.AbsValue() {
			continue
		}
		g[wk] = p
	}

	var signals []domain.ConsensusSignal
	for _, k := range order {
		g := groups[k]
		if len(g) < d.cfg.MinWallets {
			continue
		}
		signals = append(signals, d.buildSignal(k, g, detectedAt))
	}

	rankSignals(signals)

	slog.Debug("consensus detection complete",
		"positions", len(positions),
		"significant", len(significant),
		"groups", len(order),
		"signals", len(signals),
	)
	return signals
}

// buildSignal calcula agregados, score y nivel de un grupo que ya alcanzó el quórum.
func (d *Detector) buildSignal(k groupKey, g map[string]domain.NettedPosition, detectedAt time.Time) domain.ConsensusSignal {
	sig := domain.ConsensusSignal{
		MarketID:    k.marketID,
		Side:        k.side,
		WalletCount: len(g),
		DetectedAt:  detectedAt,
		Wallets:     make([]domain.SignalWallet, 0, len(g)),
	}

	var sumPct, maxValue float64
	for _, p := range g {
		v := p.AbsValue()
		sig.TotalValue += v
		sumPct += p.PortfolioPercent
		if v > maxValue {
			maxValue = v
		}
		if sig.MarketTitle == "" {
			sig.MarketTitle = p.MarketTitle
		}
		if sig.MarketSlug == "" {
			sig.MarketSlug = p.MarketSlug
		}
		sig.Wallets = append(sig.Wallets, domain.SignalWallet{
			Alias:            p.WalletAlias,
			Address:          p.WalletAddress,
			Value:            v,
			Shares:           p.AbsShares(),
			PortfolioPercent: p.PortfolioPercent,
		})
	}

	n := float64(sig.WalletCount)
	sig.AvgValue = sig.TotalValue / n
	avgPct := sumPct / n

	// Sin valor no hay wallet dominante: reparto uniforme.
	maxShare := 1 / n
	if sig.TotalValue > 0 {
		maxShare = maxValue / sig.TotalValue
	}

	sig.Breakdown = domain.ScoreConfidence(sig.WalletCount, d.cfg.MinWallets, sig.TotalValue, avgPct, maxShare)
	sig.ConfidenceScore = sig.Breakdown.Total
	sig.ConfidenceLevel = domain.LevelFor(sig.ConfidenceScore)

	sort.Slice(sig.Wallets, func(i, j int) bool {
		if sig.Wallets[i].Value != sig.Wallets[j].Value {
			return sig.Wallets[i].Value > sig.Wallets[j].Value
		}
		return sig.Wallets[i].Address < sig.Wallets[j].Address
	})
	return sig
}

// rankSignals ordena por score desc; desempata por valor total desc, mercado y lado (YES antes que NO).
func rankSignals(signals []domain.ConsensusSignal) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if a.ConfidenceScore != b.ConfidenceScore {
			return a.ConfidenceScore > b.ConfidenceScore
		}
		if a.TotalValue != b.TotalValue {
			return a.TotalValue > b.TotalValue
		}
		if a.MarketID != b.MarketID {
			return a.MarketID < b.MarketID
		}
		return a.Side == domain.SideYes && b.Side != domain.SideYes
	})
}

// walletKey identifica una wallet dentro de un grupo.
func walletKey(p domain.NettedPosition) string {
	if p.WalletAddress != "" {
		return domain.CanonicalAddress(p.WalletAddress)
	}
	return "id:" + strconv.FormatInt(p.WalletID, 10)
}
