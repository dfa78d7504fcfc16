package domain

// TraderProfile es un trader del ranking público de rendimiento, candidato a smart wallet.
type TraderProfile struct {
	Address        string
	Name           string
	Tag            string  // categoría del ranking ("Overall", "Politics", ...)
	OverallGain    float64 // PnL en USDC
	WinRate        float64 // fracción 0..1
	TotalPositions int
	Rank           int
}
