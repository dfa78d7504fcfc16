package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/consensusbot/internal/consensus"
	"github.com/alejandrodnm/consensusbot/internal/domain"
	"github.com/alejandrodnm/consensusbot/internal/ports"
)

const (
	defaultScheduleTime     = "09:00"
	defaultInterWalletDelay = time.Second
	defaultPositionsLimit   = 500
	defaultFetchTimeout     = 15 * time.Second
	defaultSendTimeout      = 10 * time.Second
	defaultLockRefresh      = time.Minute
)

var (
	// ErrScanInProgress indica que ya hay un scan en curso en este proceso.
	ErrScanInProgress = errors.New("scanner: scan already in progress")
	// ErrScanLocked indica que otra réplica tiene el lock distribuido.
	ErrScanLocked = errors.New("scanner: scan lock held elsewhere")
)

// Config contiene la configuración del scanner.
type Config struct {
	Enabled      bool
	ScheduleTime string         // "HH:MM" en Location
	Location     *time.Location // zona horaria del schedule y de la clave de día

	Detector consensus.Config

	// InterWalletDelay es la pausa entre wallets para respetar el rate limit del proveedor.
	InterWalletDelay time.Duration
	// FetchConcurrency > 1 activa fetch concurrente acotado; 1 = secuencial.
	FetchConcurrency int
	PositionsLimit   int
	FetchTimeout     time.Duration
	SendTimeout      time.Duration
	// LockRefreshInterval es cada cuánto se renueva el ScanLock durante el ciclo.
	// Tiene que ser menor que el TTL del lock.
	LockRefreshInterval time.Duration
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		ScheduleTime:     defaultScheduleTime,
		Location:         time.UTC,
		Detector:         consensus.DefaultConfig(),
		InterWalletDelay: defaultInterWalletDelay,
		FetchConcurrency: 1,
		PositionsLimit:   defaultPositionsLimit,
		FetchTimeout:     defaultFetchTimeout,
		SendTimeout:      defaultSendTimeout,

		LockRefreshInterval: defaultLockRefresh,
	}
}

// Deps son los colaboradores del scanner. Snapshots, Chats, Publisher, Lock,
// Metrics y Clock son opcionales.
type Deps struct {
	Wallets   ports.WalletStore
	Positions ports.PositionProvider
	Snapshots ports.SnapshotStore
	Ledger    ports.SignalLedger
	Chats     ports.ChatDirectory
	Messenger ports.Messenger
	Publisher ports.SignalPublisher
	Lock      ports.ScanLock
	Metrics   ports.Metrics
	Clock     func() time.Time
}

// Scanner orquesta el ciclo completo: roster → posiciones → netting → detección →
// dedup → broadcast. Como mucho un ciclo corre a la vez; los triggers solapados se descartan.
type Scanner struct {
	cfg         Config
	deps        Deps
	detector    *consensus.Detector
	broadcaster *Broadcaster
	mutes       *MuteList
	metrics     ports.Metrics
	now         func() time.Time

	scanning atomic.Bool

	mu       sync.Mutex
	lastScan time.Time
	cron     *cron.Cron
	cancel   context.CancelFunc
}

// New crea un Scanner con todas las dependencias inyectadas.
func New(cfg Config, deps Deps) *Scanner {
	cfg = withDefaults(cfg)

	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	mutes := NewMuteList(deps.Chats)
	return &Scanner{
		cfg:         cfg,
		deps:        deps,
		detector:    consensus.NewDetector(cfg.Detector),
		broadcaster: NewBroadcaster(deps.Chats, deps.Messenger, mutes, cfg.SendTimeout, metrics),
		mutes:       mutes,
		metrics:     metrics,
		now:         now,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.ScheduleTime == "" {
		cfg.ScheduleTime = defaultScheduleTime
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.InterWalletDelay < 0 {
		cfg.InterWalletDelay = 0
	}
	if cfg.FetchConcurrency < 1 {
		cfg.FetchConcurrency = 1
	}
	if cfg.PositionsLimit <= 0 {
		cfg.PositionsLimit = defaultPositionsLimit
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.LockRefreshInterval <= 0 {
		cfg.LockRefreshInterval = defaultLockRefresh
	}
	return cfg
}

// Scan ejecuta un ciclo manual y devuelve las señales detectadas.
// Si ya hay un scan en curso devuelve nil inmediatamente.
func (s *Scanner) Scan(ctx context.Context) []domain.ConsensusSignal {
	signals, err := s.TryScan(ctx)
	if err != nil {
		return nil
	}
	return signals
}

// TryScan es como Scan pero informa por qué no se ejecutó el ciclo.
func (s *Scanner) TryScan(ctx context.Context) ([]domain.ConsensusSignal, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		slog.Info("scan already in progress, skipping trigger")
		s.metrics.ScanSkipped("in_progress")
		return nil, ErrScanInProgress
	}
	defer s.scanning.Store(false)

	if s.deps.Lock != nil {
		ok, err := s.deps.Lock.TryLock(ctx)
		if err != nil {
			slog.Warn("scan lock unavailable, skipping scan", "err", err)
			s.metrics.ScanSkipped("lock_error")
			return nil, fmt.Errorf("%w: %v", ErrScanLocked, err)
		}
		if !ok {
			slog.Info("scan lock held by another instance, skipping scan")
			s.metrics.ScanSkipped("locked")
			return nil, ErrScanLocked
		}
		stopRefresh := s.keepLock(ctx)
		defer func() {
			stopRefresh()
			// el ctx del ciclo puede estar cancelado; el unlock tiene que salir igual
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.deps.Lock.Unlock(unlockCtx); err != nil {
				slog.Warn("scan lock release failed", "err", err)
			}
		}()
	}

	return s.runCycle(ctx), nil
}

// keepLock renueva el lock cada LockRefreshInterval hasta que se llame a la
// función devuelta, que espera a que la goroutine termine.
func (s *Scanner) keepLock(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(s.cfg.LockRefreshInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				ok, err := s.deps.Lock.Refresh(ctx)
				switch {
				case err != nil:
					slog.Warn("scan lock refresh failed", "err", err)
				case !ok:
					slog.Warn("scan lock lost mid-scan, another instance may start a cycle")
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// IsScanning indica si hay un ciclo en curso.
func (s *Scanner) IsScanning() bool {
	return s.scanning.Load()
}

// LastScanTime devuelve el fin del último ciclo completado (cero si nunca).
func (s *Scanner) LastScanTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan
}

// runCycle ejecuta un ciclo completo. Un panic dentro del ciclo se recupera y
// el ciclo se reporta vacío.
func (s *Scanner) runCycle(ctx context.Context) (signals []domain.ConsensusSignal) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scan cycle panicked", "panic", r)
			s.metrics.ScanSkipped("panic")
			signals = nil
		}
	}()

	start := s.now()
	day := domain.DayKey(start, s.cfg.Location)

	wallets, err := s.deps.Wallets.ActiveWallets(ctx)
	if err != nil {
		slog.Error("scan cycle aborted: load wallets", "err", err)
		s.metrics.ScanSkipped("roster_error")
		return nil
	}
	if len(wallets) == 0 {
		slog.Info("no active wallets, nothing to scan")
		s.metrics.ScanSkipped("empty_roster")
		return nil
	}

	slog.Info("scan cycle starting", "wallets", len(wallets), "day", day)

	fetched := s.fetchAll(ctx, wallets)
	if err := ctx.Err(); err != nil {
		slog.Warn("scan cycle cancelled", "wallets_scanned", fetched.scanned, "err", err)
		s.metrics.ScanSkipped("cancelled")
		return nil
	}

	signals = s.detector.Detect(fetched.positions, start)
	for i := range signals {
		signals[i].Day = day
	}

	fresh := s.recordSignals(ctx, signals)

	recipients := s.broadcaster.Recipients(ctx)
	for _, idx := range fresh {
		s.notify(ctx, &signals[idx], recipients)
	}

	end := s.now()
	s.mu.Lock()
	s.lastScan = end
	s.mu.Unlock()

	summary := domain.ScanSummary{
		WalletsTotal:    len(wallets),
		WalletsScanned:  fetched.scanned,
		WalletsFailed:   fetched.failed,
		PositionsFound:  len(fetched.positions),
		SignalsDetected: len(signals),
		SignalsNew:      len(fresh),
		Duration:        end.Sub(start),
		FinishedAt:      end,
	}
	s.broadcaster.Send(ctx, recipients, FormatSummary(summary, signals))

	s.metrics.ScanCompleted(summary.Duration, summary.WalletsScanned, summary.PositionsFound, summary.SignalsDetected)
	slog.Info("scan cycle complete",
		"wallets_scanned", summary.WalletsScanned,
		"wallets_failed", summary.WalletsFailed,
		"positions", summary.PositionsFound,
		"signals", summary.SignalsDetected,
		"new_signals", summary.SignalsNew,
		"recipients", len(recipients),
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return signals
}

// recordSignals pasa cada señal por el ledger y devuelve los índices de las nuevas.
// Un error de persistencia salta la señal este ciclo; se re-detectará en el siguiente.
func (s *Scanner) recordSignals(ctx context.Context, signals []domain.ConsensusSignal) []int {
	var fresh []int
	for i := range signals {
		sig := &signals[i]
		log := slog.With("market_id", sig.MarketID, "side", sig.Side, "day", sig.Day)

		notified, err := s.deps.Ledger.IsAlreadyNotified(ctx, sig.MarketID, sig.Side, sig.Day)
		if err != nil {
			// el insert decide
			log.Warn("notified check failed", "err", err)
		} else if notified {
			log.Debug("signal already notified today")
			continue
		}

		id, err := s.deps.Ledger.SaveSignalIfAbsent(ctx, *sig)
		if err != nil {
			log.Error("signal persist failed, skipping broadcast", "err", err)
			continue
		}
		if id == "" {
			log.Debug("signal already recorded today")
			continue
		}

		sig.ID = id
		s.metrics.SignalPersisted(string(sig.ConfidenceLevel))
		fresh = append(fresh, i)
	}
	return fresh
}

// notify difunde una señal nueva y la marca como notificada si hubo al menos un intento.
func (s *Scanner) notify(ctx context.Context, sig *domain.ConsensusSignal, recipients []int64) {
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishSignal(ctx, *sig); err != nil {
			slog.Warn("signal publish failed", "market_id", sig.MarketID, "side", sig.Side, "err", err)
		}
	}

	delivery := s.broadcaster.Send(ctx, recipients, FormatSignal(*sig))
	if delivery.Attempted == 0 {
		slog.Warn("signal not delivered to anyone", "market_id", sig.MarketID, "side", sig.Side)
		return
	}

	at := s.now()
	if err := s.deps.Ledger.MarkNotified(ctx, sig.ID, at); err != nil {
		slog.Warn("mark notified failed", "signal_id", sig.ID, "err", err)
		return
	}
	sig.NotifiedAt = &at
}

// fetchResult acumula las posiciones netas del ciclo.
type fetchResult struct {
	positions []domain.NettedPosition
	scanned   int
	failed    int
}

// fetchAll obtiene y netea las posiciones de todas las wallets. Por defecto
// secuencial con pausa entre wallets; con FetchConcurrency > 1 usa un errgroup acotado.
func (s *Scanner) fetchAll(ctx context.Context, wallets []domain.SmartWallet) fetchResult {
	perWallet := make([][]domain.NettedPosition, len(wallets))
	errs := make([]error, len(wallets))

	if s.cfg.FetchConcurrency <= 1 {
		for i, w := range wallets {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				continue
			}
			perWallet[i], errs[i] = s.scanWalletSafe(ctx, w)
			if i < len(wallets)-1 {
				s.wait(ctx)
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.FetchConcurrency)
		for i, w := range wallets {
			g.Go(func() error {
				if gctx.Err() != nil {
					errs[i] = gctx.Err()
					return nil
				}
				perWallet[i], errs[i] = s.scanWalletSafe(gctx, w)
				s.wait(gctx)
				return nil
			})
		}
		_ = g.Wait() // los errores van por wallet en errs
	}

	var res fetchResult
	for i, w := range wallets {
		if errs[i] != nil {
			res.failed++
			s.metrics.WalletFetchFailed()
			slog.Warn("wallet skipped", "wallet", w.Address, "alias", w.Alias, "err", errs[i])
			continue
		}
		res.scanned++
		res.positions = append(res.positions, perWallet[i]...)
	}
	return res
}

// scanWalletSafe convierte un panic del proveedor o del netting en un fallo de esa
// wallet. En modo concurrente corre en otra goroutine y el recover de runCycle no lo ve.
func (s *Scanner) scanWalletSafe(ctx context.Context, w domain.SmartWallet) (positions []domain.NettedPosition, err error) {
	defer func() {
		if r := recover(); r != nil {
			positions = nil
			err = fmt.Errorf("scanner.scanWallet: %s: panic: %v", w.Address, r)
		}
	}()
	return s.scanWallet(ctx, w)
}

// scanWallet hace fetch → netting → snapshot de una wallet.
// Un fallo del snapshot se loguea pero no descarta la wallet.
func (s *Scanner) scanWallet(ctx context.Context, w domain.SmartWallet) ([]domain.NettedPosition, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	raw, err := s.deps.Positions.FetchPositions(fetchCtx, w.Address, s.cfg.PositionsLimit)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("scanner.scanWallet: fetch %s: %w", w.Address, err)
	}

	netted := domain.NetPositions(w, raw)
	slog.Debug("wallet positions netted",
		"wallet", w.Address,
		"raw", len(raw),
		"netted", len(netted),
	)

	if s.deps.Snapshots != nil {
		snap := domain.PositionSnapshot{
			ID:             uuid.NewString(),
			WalletID:       w.ID,
			WalletAddress:  w.Address,
			Positions:      netted,
			PortfolioValue: domain.PortfolioValue(raw),
			RawCount:       len(raw),
			TakenAt:        s.now(),
		}
		if err := s.deps.Snapshots.SavePositionSnapshot(ctx, snap); err != nil {
			slog.Warn("position snapshot failed", "wallet", w.Address, "err", err)
		}
	}
	return netted, nil
}

// wait espera InterWalletDelay respetando el contexto.
func (s *Scanner) wait(ctx context.Context) {
	if s.cfg.InterWalletDelay <= 0 {
		return
	}
	t := time.NewTimer(s.cfg.InterWalletDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// noopMetrics se usa cuando no se inyecta un recorder.
type noopMetrics struct{}

func (noopMetrics) ScanCompleted(time.Duration, int, int, int) {}
func (noopMetrics) ScanSkipped(string)                         {}
func (noopMetrics) WalletFetchFailed()                         {}
func (noopMetrics) SignalPersisted(string)                     {}
func (noopMetrics) DeliveryResult(bool)                        {}
