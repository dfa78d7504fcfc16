package scanner_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// --- mocks ---

type mockWallets struct {
	wallets []domain.SmartWallet
	err     error
}

func (m *mockWallets) ActiveWallets(_ context.Context) ([]domain.SmartWallet, error) {
	return m.wallets, m.err
}

func (m *mockWallets) ListWallets(_ context.Context) ([]domain.SmartWallet, error) {
	return m.wallets, m.err
}

func (m *mockWallets) AddWallet(_ context.Context, address, alias string) (domain.SmartWallet, error) {
	w := domain.SmartWallet{ID: int64(len(m.wallets) + 1), Address: address, Alias: alias, Active: true}
	m.wallets = append(m.wallets, w)
	return w, nil
}

func (m *mockWallets) DeactivateWallet(_ context.Context, _ string) error { return nil }

type mockPositions struct {
	mu      sync.Mutex
	byAddr  map[string][]domain.RawPosition
	errs    map[string]error
	calls   []string
	block   chan struct{} // si no es nil, FetchPositions espera a que se cierre
	onFetch func(address string)
}

func (m *mockPositions) FetchPositions(ctx context.Context, address string, _ int) ([]domain.RawPosition, error) {
	m.mu.Lock()
	m.calls = append(m.calls, address)
	block, hook := m.block, m.onFetch
	m.mu.Unlock()

	if hook != nil {
		hook(address)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.errs[address]; err != nil {
		return nil, err
	}
	return m.byAddr[address], nil
}

func (m *mockPositions) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockSnapshots struct {
	mu    sync.Mutex
	saved []domain.PositionSnapshot
	err   error
}

func (m *mockSnapshots) SavePositionSnapshot(_ context.Context, snap domain.PositionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, snap)
	return nil
}

// mockLedger emula la clave única (market, side, day) del store real.
type mockLedger struct {
	mu       sync.Mutex
	signals  map[string]*domain.ConsensusSignal
	saveErr  error
	checkErr error
	seq      int
}

func newMockLedger() *mockLedger {
	return &mockLedger{signals: make(map[string]*domain.ConsensusSignal)}
}

func (m *mockLedger) IsAlreadyNotified(_ context.Context, marketID string, side domain.Side, day string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checkErr != nil {
		return false, m.checkErr
	}
	sig, ok := m.signals[marketID+"|"+string(side)+"|"+day]
	return ok && sig.NotifiedAt != nil, nil
}

func (m *mockLedger) SaveSignalIfAbsent(_ context.Context, sig domain.ConsensusSignal) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	if _, ok := m.signals[sig.Key()]; ok {
		return "", nil
	}
	m.seq++
	sig.ID = fmt.Sprintf("sig-%d", m.seq)
	m.signals[sig.Key()] = &sig
	return sig.ID, nil
}

func (m *mockLedger) MarkNotified(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sig := range m.signals {
		if sig.ID == id {
			t := at
			sig.NotifiedAt = &t
			return nil
		}
	}
	return errors.New("signal not found")
}

func (m *mockLedger) RecentSignals(_ context.Context, _ int) ([]domain.ConsensusSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ConsensusSignal, 0, len(m.signals))
	for _, sig := range m.signals {
		out = append(out, *sig)
	}
	return out, nil
}

func (m *mockLedger) notifiedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, sig := range m.signals {
		if sig.NotifiedAt != nil {
			n++
		}
	}
	return n
}

type mockChats struct {
	mu      sync.Mutex
	ids     []int64
	muted   map[int64]bool
	listErr error
	muteErr error
	setErr  error
}

func newMockChats(ids ...int64) *mockChats {
	return &mockChats{ids: ids, muted: make(map[int64]bool)}
}

func (m *mockChats) ListActiveChatIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.ids...), m.listErr
}

func (m *mockChats) MutedChatIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.muteErr != nil {
		return nil, m.muteErr
	}
	var out []int64
	for id, muted := range m.muted {
		if muted {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *mockChats) RegisterChat(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, chatID)
	return nil
}

func (m *mockChats) SetMuted(_ context.Context, chatID int64, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.muted[chatID] = muted
	return nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type mockMessenger struct {
	mu    sync.Mutex
	sent  []sentMessage
	fails map[int64]error
	panic bool
}

func (m *mockMessenger) Send(_ context.Context, chatID int64, text string) error {
	if m.panic {
		panic("messenger exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fails[chatID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (m *mockMessenger) messagesTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.ConsensusSignal
	err       error
}

func (m *mockPublisher) PublishSignal(_ context.Context, sig domain.ConsensusSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, sig)
	return m.err
}

type mockLock struct {
	mu        sync.Mutex
	held      bool
	err       error
	unlocked  int
	refreshed int
	lost      bool
}

func (m *mockLock) TryLock(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.held {
		return false, nil
	}
	m.held = true
	return true, nil
}

func (m *mockLock) Refresh(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed++
	return !m.lost, nil
}

func (m *mockLock) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshed
}

func (m *mockLock) Unlock(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
	m.unlocked++
	return nil
}

type mockMetrics struct {
	mu        sync.Mutex
	completed int
	skipped   []string
	failed    int
	persisted int
	delivered int
	undeliver int
}

func (m *mockMetrics) ScanCompleted(time.Duration, int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
}

func (m *mockMetrics) ScanSkipped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped = append(m.skipped, reason)
}

func (m *mockMetrics) WalletFetchFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func (m *mockMetrics) SignalPersisted(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persisted++
}

func (m *mockMetrics) DeliveryResult(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.delivered++
	} else {
		m.undeliver++
	}
}

// --- helpers ---

const marketA = "0xmarketA"

func wallet(id int64, addr, alias string) domain.SmartWallet {
	return domain.SmartWallet{ID: id, Address: addr, Alias: alias, Active: true}
}

// yesPosition devuelve una posición YES de shares × price en marketA.
func yesPosition(addr string, shares, price float64) domain.RawPosition {
	return domain.RawPosition{
		WalletAddress: addr,
		MarketID:      marketA,
		MarketTitle:   "Will it rain <tomorrow>?",
		MarketSlug:    "will-it-rain",
		Outcome:       "Yes",
		Shares:        shares,
		AvgPrice:      price,
	}
}

// consensusFixture arma tres wallets que coinciden en YES de marketA con 5000 USDC cada una.
func consensusFixture() (*mockWallets, *mockPositions) {
	wallets := &mockWallets{wallets: []domain.SmartWallet{
		wallet(1, "0xaaa", "alpha"),
		wallet(2, "0xbbb", "bravo"),
		wallet(3, "0xccc", "charlie"),
	}}
	positions := &mockPositions{byAddr: map[string][]domain.RawPosition{
		"0xaaa": {yesPosition("0xaaa", 10000, 0.5)},
		"0xbbb": {yesPosition("0xbbb", 10000, 0.5)},
		"0xccc": {yesPosition("0xccc", 10000, 0.5)},
	}}
	return wallets, positions
}
