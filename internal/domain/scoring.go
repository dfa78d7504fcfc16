package domain

import "math"

// Topes de cada factor del score de confianza. La suma final se limita a MaxConfidenceScore.
const (
	MaxWalletFactor       = 30
	MaxValueFactor        = 30
	MaxConvictionFactor   = 25
	MaxDistributionFactor = 15
	MaxConfidenceScore    = 100

	valuePerPoint        = 1000.0 // 1 punto por cada $1.000 comprometidos
	convictionMultiplier = 2.5
)

// ScoreBreakdown detalla los cuatro factores aditivos del score de confianza.
type ScoreBreakdown struct {
	WalletCount  int `json:"wallet_count"`
	Value        int `json:"value"`
	Conviction   int `json:"conviction"`
	Distribution int `json:"distribution"`
	Total        int `json:"total"`
}

// WalletCountFactor premia cada wallet por encima de 2: (n-2)×10, saturando en 7 wallets.
func WalletCountFactor(walletCount int) int {
	f := (walletCount - 2) * 10
	if f < 0 {
		return 0
	}
	return min(MaxWalletFactor, f)
}

// ValueFactor da un punto por cada $1.000 de valor total, saturando en $30.000.
func ValueFactor(totalValue float64) int {
	if !finitePositive(totalValue) {
		return 0
	}
	return min(MaxValueFactor, int(math.Floor(totalValue/valuePerPoint)))
}

// ConvictionFactor premia a las wallets que comprometen una parte grande de su cartera.
func ConvictionFactor(avgPortfolioPercent float64) int {
	if !finitePositive(avgPortfolioPercent) {
		return 0
	}
	return min(MaxConvictionFactor, int(math.Floor(avgPortfolioPercent*convictionMultiplier)))
}

// DistributionFactor penaliza señales dominadas por una sola wallet.
// maxWalletShare es la fracción (0..1) del valor total que aporta la wallet más grande.
func DistributionFactor(maxWalletShare float64) int {
	switch {
	case maxWalletShare <= 0.5:
		return 15
	case maxWalletShare <= 0.7:
		return 10
	default:
		return 5
	}
}

// ScoreConfidence calcula el score (0-100) de un grupo (mercado, lado).
// Devuelve cero si el grupo no alcanza el quórum.
func ScoreConfidence(walletCount, minWallets int, totalValue, avgPortfolioPercent, maxWalletShare float64) ScoreBreakdown {
	if walletCount < minWallets || walletCount <= 0 {
		return ScoreBreakdown{}
	}
	if math.IsNaN(maxWalletShare) {
		maxWalletShare = 1
	}

	b := ScoreBreakdown{
		WalletCount:  WalletCountFactor(walletCount),
		Value:        ValueFactor(totalValue),
		Conviction:   ConvictionFactor(avgPortfolioPercent),
		Distribution: DistributionFactor(maxWalletShare),
	}
	b.Total = min(MaxConfidenceScore, b.WalletCount+b.Value+b.Conviction+b.Distribution)
	return b
}

// LevelFor mapea un score a su nivel ordinal.
func LevelFor(score int) ConfidenceLevel {
	switch {
	case score >= 80:
		return ConfidenceVeryHigh
	case score >= 60:
		return ConfidenceHigh
	case score >= 40:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
