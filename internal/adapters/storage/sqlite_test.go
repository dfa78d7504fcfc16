package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/consensusbot/internal/adapters/storage"
	"github.com/alejandrodnm/consensusbot/internal/domain"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
)

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeSignal(market string, side domain.Side, day string) domain.ConsensusSignal {
	return domain.ConsensusSignal{
		MarketID:        market,
		MarketTitle:     "Will X happen?",
		MarketSlug:      "will-x-happen",
		Side:            side,
		WalletCount:     3,
		TotalValue:      15000,
		AvgValue:        5000,
		ConfidenceScore: 57,
		ConfidenceLevel: domain.ConfidenceMedium,
		Breakdown:       domain.ScoreBreakdown{WalletCount: 10, Value: 20, Conviction: 15, Distribution: 12, Total: 57},
		Wallets: []domain.SignalWallet{
			{Alias: "alpha", Address: addrA, Value: 7500, Shares: 15000, PortfolioPercent: 12.5},
		},
		DetectedAt: time.Now().UTC().Truncate(time.Second),
		Day:        day,
	}
}

// --- wallets ---

func TestWallets_AddListDeactivate(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)

	w, err := db.AddWallet(ctx, "  0x1111111111111111111111111111111111111111 ", "alpha")
	require.NoError(t, err)
	assert.Equal(t, addrA, w.Address)
	assert.Equal(t, "alpha", w.Alias)
	assert.True(t, w.Active)
	assert.NotZero(t, w.ID)
	assert.False(t, w.AddedAt.IsZero())

	_, err = db.AddWallet(ctx, "0X2222222222222222222222222222222222222222", "")
	require.NoError(t, err)

	active, err := db.ActiveWallets(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, addrB, active[1].Address, "dirección canónica en minúsculas")

	require.NoError(t, db.DeactivateWallet(ctx, addrA))

	active, err = db.ActiveWallets(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, addrB, active[0].Address)

	all, err := db.ListWallets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "desactivar nunca borra")
}

func TestWallets_ReAddReactivatesAndKeepsAlias(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)

	first, err := db.AddWallet(ctx, addrA, "alpha")
	require.NoError(t, err)
	require.NoError(t, db.DeactivateWallet(ctx, addrA))

	again, err := db.AddWallet(ctx, addrA, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, again.Active)
	assert.Equal(t, "alpha", again.Alias)

	renamed, err := db.AddWallet(ctx, addrA, "alpha-2")
	require.NoError(t, err)
	assert.Equal(t, "alpha-2", renamed.Alias)
}

func TestWallets_InvalidAddress(t *testing.T) {
	db := newStore(t)

	for _, addr := range []string{"", "0x123", "not-an-address", "0xZZ11111111111111111111111111111111111111"} {
		_, err := db.AddWallet(context.Background(), addr, "x")
		assert.ErrorIs(t, err, storage.ErrInvalidAddress, addr)
	}
}

func TestWallets_DeactivateUnknown(t *testing.T) {
	db := newStore(t)
	err := db.DeactivateWallet(context.Background(), addrA)
	assert.ErrorIs(t, err, storage.ErrWalletNotFound)
}

func TestNormalizeAddress(t *testing.T) {
	got, err := storage.NormalizeAddress("1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, addrA, got, "sin prefijo 0x también es válida")
}

// --- snapshots ---

func TestSnapshots_SaveAndLatest(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)

	older := domain.PositionSnapshot{
		WalletID:      1,
		WalletAddress: addrA,
		TakenAt:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.SavePositionSnapshot(ctx, older))

	latest := domain.PositionSnapshot{
		ID:             "snap-2",
		WalletID:       1,
		WalletAddress:  addrA,
		PortfolioValue: 10000,
		RawCount:       2,
		Positions: []domain.NettedPosition{{
			WalletID: 1, MarketID: "0xm1", YesShares: 100, NetShares: 100,
			YesValue: 50, NetValue: 50, Side: domain.SideYes,
		}},
		TakenAt: time.Now(),
	}
	require.NoError(t, db.SavePositionSnapshot(ctx, latest))

	got, ok, err := db.LatestSnapshot(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "snap-2", got.ID)
	assert.Equal(t, 2, got.RawCount)
	assert.InDelta(t, 10000, got.PortfolioValue, 1e-9)
	require.Len(t, got.Positions, 1)
	assert.Equal(t, domain.SideYes, got.Positions[0].Side)

	_, ok, err = db.LatestSnapshot(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

// --- signal ledger ---

func TestLedger_SaveIfAbsentIsUniquePerDay(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)

	id, err := db.SaveSignalIfAbsent(ctx, makeSignal("0xm1", domain.SideYes, "2026-03-14"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	dup, err := db.SaveSignalIfAbsent(ctx, makeSignal("0xm1", domain.SideYes, "2026-03-14"))
	require.NoError(t, err)
	assert.Empty(t, dup, "conflicto no es error")

	other, err := db.SaveSignalIfAbsent(ctx, makeSignal("0xm1", domain.SideNo, "2026-03-14"))
	require.NoError(t, err)
	assert.NotEmpty(t, other, "el otro lado es otra señal")

	tomorrow, err := db.SaveSignalIfAbsent(ctx, makeSignal("0xm1", domain.SideYes, "2026-03-15"))
	require.NoError(t, err)
	assert.NotEmpty(t, tomorrow, "al día siguiente se puede volver a señalar")
}

func TestLedger_EmptyDayIsRejected(t *testing.T) {
	db := newStore(t)
	_, err := db.SaveSignalIfAbsent(context.Background(), makeSignal("0xm1", domain.SideYes, ""))
	assert.Error(t, err)
}

func TestLedger_MarkNotified(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)
	day := "2026-03-14"

	id, err := db.SaveSignalIfAbsent(ctx, makeSignal("0xm1", domain.SideYes, day))
	require.NoError(t, err)

	notified, err := db.IsAlreadyNotified(ctx, "0xm1", domain.SideYes, day)
	require.NoError(t, err)
	assert.False(t, notified, "persistida pero no notificada")

	first := time.Date(2026, 3, 14, 9, 0, 5, 0, time.UTC)
	require.NoError(t, db.MarkNotified(ctx, id, first))
	require.NoError(t, db.MarkNotified(ctx, id, first.Add(time.Hour)), "idempotente")

	notified, err = db.IsAlreadyNotified(ctx, "0xm1", domain.SideYes, day)
	require.NoError(t, err)
	assert.True(t, notified)

	notified, err = db.IsAlreadyNotified(ctx, "0xm1", domain.SideNo, day)
	require.NoError(t, err)
	assert.False(t, notified)

	signals, err := db.RecentSignals(ctx, 7)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.NotNil(t, signals[0].NotifiedAt)
	assert.True(t, first.Equal(*signals[0].NotifiedAt), "la primera marca gana")

	assert.ErrorIs(t, db.MarkNotified(ctx, "missing", first), storage.ErrSignalNotFound)
}

func TestLedger_RecentSignals(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)

	old := makeSignal("0xold", domain.SideYes, "2026-01-01")
	old.DetectedAt = time.Now().Add(-10 * 24 * time.Hour)
	_, err := db.SaveSignalIfAbsent(ctx, old)
	require.NoError(t, err)

	recent := makeSignal("0xnew", domain.SideNo, "2026-03-14")
	_, err = db.SaveSignalIfAbsent(ctx, recent)
	require.NoError(t, err)

	signals, err := db.RecentSignals(ctx, 7)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	got := signals[0]
	assert.Equal(t, "0xnew", got.MarketID)
	assert.Equal(t, domain.SideNo, got.Side)
	assert.Equal(t, "2026-03-14", got.Day)
	assert.Equal(t, domain.ConfidenceMedium, got.ConfidenceLevel)
	assert.Equal(t, 57, got.Breakdown.Total)
	assert.True(t, recent.DetectedAt.Equal(got.DetectedAt))
	assert.Nil(t, got.NotifiedAt)
	require.Len(t, got.Wallets, 1)
	assert.Equal(t, "alpha", got.Wallets[0].Alias)

	signals, err = db.RecentSignals(ctx, 30)
	require.NoError(t, err)
	assert.Len(t, signals, 2)
	assert.Equal(t, "0xnew", signals[0].MarketID, "más recientes primero")
}

// --- chats ---

func TestChats_RegisterAndMute(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)

	require.NoError(t, db.RegisterChat(ctx, 300))
	require.NoError(t, db.RegisterChat(ctx, 100))
	require.NoError(t, db.SetMuted(ctx, 100, true))
	require.NoError(t, db.RegisterChat(ctx, 100), "re-registrar no des-silencia")
	require.NoError(t, db.SetMuted(ctx, 200, true), "chat desconocido queda registrado")

	all, err := db.ListActiveChatIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 300}, all)

	muted, err := db.MutedChatIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, muted)

	require.NoError(t, db.SetMuted(ctx, 100, false))
	muted, err = db.MutedChatIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{200}, muted)
}

func TestChats_Empty(t *testing.T) {
	db := newStore(t)
	ids, err := db.ListActiveChatIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
