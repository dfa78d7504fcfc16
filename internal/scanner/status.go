package scanner

import (
	"context"
	"log/slog"
	"time"
)

const statusLoadTimeout = 3 * time.Second

// Status es la foto del estado del scanner para el front end.
type Status struct {
	Enabled      bool         `json:"enabled"`
	IsScanning   bool         `json:"is_scanning"`
	LastScanTime *time.Time   `json:"last_scan_time,omitempty"`
	NextRun      *time.Time   `json:"next_run,omitempty"`
	MutedCount   int          `json:"muted_count"`
	Config       StatusConfig `json:"config"`
}

// StatusConfig expone la configuración efectiva.
type StatusConfig struct {
	ScheduleTime        string  `json:"schedule_time"`
	Timezone            string  `json:"timezone"`
	MinWallets          int     `json:"min_wallets"`
	MinOrderValue       float64 `json:"min_order_value"`
	MinPortfolioPercent float64 `json:"min_portfolio_percent"`
	InterWalletDelayMs  int64   `json:"inter_wallet_delay_ms"`
	FetchConcurrency    int     `json:"fetch_concurrency"`
}

// Status devuelve el estado actual.
func (s *Scanner) Status() Status {
	ctx, cancel := context.WithTimeout(context.Background(), statusLoadTimeout)
	defer cancel()
	muted, err := s.mutes.Count(ctx)
	if err != nil {
		slog.Warn("mute list unavailable for status", "err", err)
	}

	st := Status{
		Enabled:    s.cfg.Enabled,
		IsScanning: s.IsScanning(),
		NextRun:    s.NextRun(),
		MutedCount: muted,
		Config: StatusConfig{
			ScheduleTime:        s.cfg.ScheduleTime,
			Timezone:            s.cfg.Location.String(),
			MinWallets:          s.detector.Config().MinWallets,
			MinOrderValue:       s.detector.Config().MinOrderValue,
			MinPortfolioPercent: s.detector.Config().MinPortfolioPercent,
			InterWalletDelayMs:  s.cfg.InterWalletDelay.Milliseconds(),
			FetchConcurrency:    s.cfg.FetchConcurrency,
		},
	}
	if last := s.LastScanTime(); !last.IsZero() {
		st.LastScanTime = &last
	}
	return st
}
