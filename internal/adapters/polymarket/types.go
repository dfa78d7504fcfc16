package polymarket

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Data API ---

// dataPosition es un item de GET /positions.
type dataPosition struct {
	ProxyWallet  string  `json:"proxyWallet"`
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	CurPrice     float64 `json:"curPrice"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
	CashPnl      float64 `json:"cashPnl"`
	Redeemable   bool    `json:"redeemable"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	EventSlug    string  `json:"eventSlug"`
	Outcome      string  `json:"outcome"`
	OutcomeIndex int     `json:"outcomeIndex"`
	EndDate      string  `json:"endDate"`
}

// --- Analytics API ---

// tagPerformanceRequest es el body de POST /api/traders-tag-performance.
type tagPerformanceRequest struct {
	Tag               string `json:"tag"`
	Page              int    `json:"page"`
	PageSize          int    `json:"pageSize"`
	SortBy            string `json:"sortBy"`
	SortDirection     string `json:"sortDirection"`
	MinWinRate        int    `json:"minWinRate,omitempty"`
	MinTotalPositions int    `json:"minTotalPositions,omitempty"`
}

// tagPerformanceResponse es la respuesta paginada del ranking de traders.
type tagPerformanceResponse struct {
	Data []traderPerformance `json:"data"`
}

// traderPerformance es un trader del ranking. win_rate viene como fracción (0.71).
type traderPerformance struct {
	Trader         string  `json:"trader"`
	TraderName     string  `json:"trader_name"`
	OverallGain    float64 `json:"overall_gain"`
	WinRate        float64 `json:"win_rate"`
	TotalPositions int     `json:"total_positions"`
	Rank           int     `json:"rank"`
}
