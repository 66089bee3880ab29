package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecoverer struct {
	calls atomic.Int32
	err   error
}

func (c *countingRecoverer) RecoverPending(context.Context, time.Duration) (*engine.RecoveryReport, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &engine.RecoveryReport{}, nil
}

func TestNewPendingSweeper_Validates(t *testing.T) {
	_, err := NewPendingSweeper(Config{Interval: time.Second, PendingAge: time.Second})
	assert.Error(t, err)
	_, err = NewPendingSweeper(Config{Recoverer: &countingRecoverer{}, PendingAge: time.Second})
	assert.Error(t, err)
	_, err = NewPendingSweeper(Config{Recoverer: &countingRecoverer{}, Interval: time.Second})
	assert.Error(t, err)
}

func TestPendingSweeper_StartStop(t *testing.T) {
	rec := &countingRecoverer{}
	s, err := NewPendingSweeper(Config{Recoverer: rec, Interval: 10 * time.Millisecond, PendingAge: time.Minute})
	require.NoError(t, err)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return rec.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	n := rec.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, rec.calls.Load())

	// A second Stop is harmless
	s.Stop()
}

func TestPendingSweeper_StopWithoutStart(t *testing.T) {
	rec := &countingRecoverer{}
	s, err := NewPendingSweeper(Config{Recoverer: rec, Interval: 10 * time.Millisecond, PendingAge: time.Minute})
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a sweeper that never started")
	}

	// Starting after Stop runs nothing
	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, rec.calls.Load())
	<-s.Done()
}

func TestPendingSweeper_StartTwice(t *testing.T) {
	rec := &countingRecoverer{}
	s, err := NewPendingSweeper(Config{Recoverer: rec, Interval: time.Hour, PendingAge: time.Minute})
	require.NoError(t, err)

	s.Start(context.Background())
	s.Start(context.Background())
	assert.Eventually(t, func() bool { return rec.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), rec.calls.Load())
	s.Stop()
}

func TestPendingSweeper_ContextCancel(t *testing.T) {
	rec := &countingRecoverer{err: errors.New("db down")}
	s, err := NewPendingSweeper(Config{Recoverer: rec, Interval: time.Hour, PendingAge: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return rec.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("sweeper did not exit after cancel")
	}
}

func TestPendingSweeper_ResolvesAbandonedEntries(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewService(ctx, database.InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()

	eng, err := engine.New(engine.Deps{
		Wallets: db.Wallets(),
		Logs:    db.TransactionLogs(),
		Users:   db.Users(),
	}, engine.WithClock(func() time.Time { return time.Now().UTC().Add(time.Hour) }))
	require.NoError(t, err)

	user, err := db.Users().Create(ctx, "Alice", "alice")
	require.NoError(t, err)
	wallets, err := eng.OpenWallets(ctx, user.Id)
	require.NoError(t, err)

	_, err = db.TransactionLogs().InsertOne(ctx, &models.TransactionLog{
		WalletId: wallets[0].Id,
		UserId:   user.Id,
		Type:     models.TransactionTypeCredit,
		Currency: wallets[0].Currency,
		Amount:   decimal.NewFromInt(1),
	}, nil)
	require.NoError(t, err)

	s, err := NewPendingSweeper(Config{Recoverer: eng, Interval: time.Hour, PendingAge: time.Minute})
	require.NoError(t, err)
	s.Sweep(ctx)

	n, err := db.TransactionLogs().Count(ctx, store.Filter{store.FieldStatus: models.TransactionStatusPending}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
