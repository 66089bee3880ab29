package engine

import (
	"context"
	"testing"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWallets struct {
	mock.Mock
}

func (m *mockWallets) FindById(ctx context.Context, id string, sess store.Session) (*models.Wallet, error) {
	args := m.Called(ctx, id, sess)
	w, _ := args.Get(0).(*models.Wallet)
	return w, args.Error(1)
}

func (m *mockWallets) FindOne(ctx context.Context, filter store.Filter, sess store.Session) (*models.Wallet, error) {
	args := m.Called(ctx, filter, sess)
	w, _ := args.Get(0).(*models.Wallet)
	return w, args.Error(1)
}

func (m *mockWallets) Find(ctx context.Context, filter store.Filter, opts store.FindOptions, sess store.Session) ([]models.Wallet, error) {
	args := m.Called(ctx, filter, opts, sess)
	ws, _ := args.Get(0).([]models.Wallet)
	return ws, args.Error(1)
}

func (m *mockWallets) Count(ctx context.Context, filter store.Filter, sess store.Session) (int64, error) {
	args := m.Called(ctx, filter, sess)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWallets) InsertOne(ctx context.Context, rec *models.Wallet, sess store.Session) (*models.Wallet, error) {
	args := m.Called(ctx, rec, sess)
	w, _ := args.Get(0).(*models.Wallet)
	return w, args.Error(1)
}

func (m *mockWallets) InsertMany(ctx context.Context, recs []models.Wallet, sess store.Session) ([]models.Wallet, error) {
	args := m.Called(ctx, recs, sess)
	ws, _ := args.Get(0).([]models.Wallet)
	return ws, args.Error(1)
}

func (m *mockWallets) UpdateOne(ctx context.Context, filter store.Filter, update store.Update, sess store.Session) (int64, error) {
	args := m.Called(ctx, filter, update, sess)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWallets) UpdateMany(ctx context.Context, filter store.Filter, update store.Update, sess store.Session) (int64, error) {
	args := m.Called(ctx, filter, update, sess)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWallets) FindOneAndUpdate(ctx context.Context, filter store.Filter, update store.Update, sess store.Session) (*models.Wallet, error) {
	args := m.Called(ctx, filter, update, sess)
	w, _ := args.Get(0).(*models.Wallet)
	return w, args.Error(1)
}

func (m *mockWallets) StartSession(ctx context.Context) (store.Session, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(store.Session)
	return s, args.Error(1)
}

type mockLogs struct {
	mock.Mock
}

func (m *mockLogs) FindById(ctx context.Context, id string, sess store.Session) (*models.TransactionLog, error) {
	args := m.Called(ctx, id, sess)
	l, _ := args.Get(0).(*models.TransactionLog)
	return l, args.Error(1)
}

func (m *mockLogs) FindOne(ctx context.Context, filter store.Filter, sess store.Session) (*models.TransactionLog, error) {
	args := m.Called(ctx, filter, sess)
	l, _ := args.Get(0).(*models.TransactionLog)
	return l, args.Error(1)
}

func (m *mockLogs) Find(ctx context.Context, filter store.Filter, opts store.FindOptions, sess store.Session) ([]models.TransactionLog, error) {
	args := m.Called(ctx, filter, opts, sess)
	ls, _ := args.Get(0).([]models.TransactionLog)
	return ls, args.Error(1)
}

func (m *mockLogs) Count(ctx context.Context, filter store.Filter, sess store.Session) (int64, error) {
	args := m.Called(ctx, filter, sess)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLogs) InsertOne(ctx context.Context, rec *models.TransactionLog, sess store.Session) (*models.TransactionLog, error) {
	args := m.Called(ctx, rec, sess)
	l, _ := args.Get(0).(*models.TransactionLog)
	return l, args.Error(1)
}

func (m *mockLogs) InsertMany(ctx context.Context, recs []models.TransactionLog, sess store.Session) ([]models.TransactionLog, error) {
	args := m.Called(ctx, recs, sess)
	ls, _ := args.Get(0).([]models.TransactionLog)
	return ls, args.Error(1)
}

func (m *mockLogs) UpdateOne(ctx context.Context, filter store.Filter, update store.Update, sess store.Session) (int64, error) {
	args := m.Called(ctx, filter, update, sess)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLogs) UpdateMany(ctx context.Context, filter store.Filter, update store.Update, sess store.Session) (int64, error) {
	args := m.Called(ctx, filter, update, sess)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLogs) FindOneAndUpdate(ctx context.Context, filter store.Filter, update store.Update, sess store.Session) (*models.TransactionLog, error) {
	args := m.Called(ctx, filter, update, sess)
	l, _ := args.Get(0).(*models.TransactionLog)
	return l, args.Error(1)
}

func (m *mockLogs) SumAmounts(ctx context.Context, walletId string, status models.TransactionStatus) (map[models.TransactionType]decimal.Decimal, error) {
	args := m.Called(ctx, walletId, status)
	totals, _ := args.Get(0).(map[models.TransactionType]decimal.Decimal)
	return totals, args.Error(1)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) FindById(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) Create(ctx context.Context, fullName, username string) (*models.User, error) {
	args := m.Called(ctx, fullName, username)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	us, _ := args.Get(0).([]models.User)
	return us, args.Error(1)
}

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Commit() error { return m.Called().Error(0) }
func (m *mockSession) Abort() error  { return m.Called().Error(0) }

func newMockEngine(t *testing.T) (*Engine, *mockWallets, *mockLogs, *mockUsers) {
	t.Helper()
	wallets, logs, users := &mockWallets{}, &mockLogs{}, &mockUsers{}
	e, err := New(Deps{Wallets: wallets, Logs: logs, Users: users})
	require.NoError(t, err)
	return e, wallets, logs, users
}

func TestTransferFunds_SelfTouchesNothing(t *testing.T) {
	e, wallets, logs, users := newMockEngine(t)

	_, err := e.TransferFunds(context.Background(), TransferRequest{
		UserId: "u-1", Username: "Alice", RecipientUsername: "alice",
		Amount: dec("10"), Currency: models.CurrencyUSD,
	})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	wallets.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything, mock.Anything)
	wallets.AssertNotCalled(t, "StartSession", mock.Anything)
	logs.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

func TestDeposit_LookupErrorIsNotOperationFailed(t *testing.T) {
	e, wallets, logs, _ := newMockEngine(t)
	wallets.On("FindOne", mock.Anything, mock.Anything, nil).Return(nil, assert.AnError)

	_, err := e.Deposit(context.Background(), "u-1", dec("10"), models.CurrencyUSD)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, Kind(""), KindOf(err))
	logs.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeposit_CommitFails(t *testing.T) {
	e, wallets, logs, _ := newMockEngine(t)
	ctx := context.Background()
	wallet := &models.Wallet{Id: "w-1", UserId: "u-1", Currency: models.CurrencyUSD, Balance: dec("5")}
	pending := &models.TransactionLog{Id: "l-1", WalletId: "w-1", UserId: "u-1", Status: models.TransactionStatusPending}
	failed := *pending
	failed.Status = models.TransactionStatusFailed
	failed.ErrorMessage = msgDepositFailed

	sess := &mockSession{}
	sess.On("Commit").Return(assert.AnError)
	sess.On("Abort").Return(nil)

	wallets.On("FindOne", mock.Anything, mock.Anything, nil).Return(wallet, nil)
	logs.On("InsertOne", mock.Anything, mock.Anything, nil).Return(pending, nil)
	wallets.On("StartSession", mock.Anything).Return(sess, nil)
	wallets.On("UpdateOne", mock.Anything, mock.MatchedBy(func(f store.Filter) bool { return f[store.FieldId] == "w-1" }), mock.Anything, sess).Return(int64(1), nil)
	logs.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, sess).Return(pending, nil)
	logs.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, nil).Return(&failed, nil)

	_, err := e.Deposit(ctx, "u-1", dec("10"), models.CurrencyUSD)
	require.ErrorIs(t, err, ErrOperationFailed)
	assert.Equal(t, msgDepositFailed, EntryOf(err).ErrorMessage)
	sess.AssertCalled(t, "Abort")
}

func TestWithdraw_BalanceChangedUnderneath(t *testing.T) {
	e, wallets, logs, _ := newMockEngine(t)
	wallet := &models.Wallet{Id: "w-1", UserId: "u-1", Currency: models.CurrencyUSD, Balance: dec("50")}
	pending := &models.TransactionLog{Id: "l-1", WalletId: "w-1", Status: models.TransactionStatusPending}
	failed := *pending
	failed.Status = models.TransactionStatusFailed

	sess := &mockSession{}
	sess.On("Abort").Return(nil)

	wallets.On("FindOne", mock.Anything, mock.Anything, nil).Return(wallet, nil)
	logs.On("InsertOne", mock.Anything, mock.Anything, nil).Return(pending, nil)
	wallets.On("StartSession", mock.Anything).Return(sess, nil)
	// Guarded debit finds nothing once a concurrent withdrawal drained the wallet
	guarded := mock.MatchedBy(func(f store.Filter) bool {
		cond, ok := f[store.FieldBalance].(store.Cond)
		if !ok || f[store.FieldId] != "w-1" || cond.Op != store.OpGte {
			return false
		}
		floor, ok := cond.Value.(decimal.Decimal)
		return ok && floor.Equal(dec("20"))
	})
	wallets.On("UpdateOne", mock.Anything, guarded, mock.Anything, sess).Return(int64(0), nil)
	logs.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, nil).Return(&failed, nil)

	_, err := e.Withdraw(context.Background(), "u-1", dec("20"), models.CurrencyUSD)
	require.ErrorIs(t, err, ErrOperationFailed)
	sess.AssertNotCalled(t, "Commit")
	logs.AssertNotCalled(t, "FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, sess)
}

func TestDeposit_CreditCappedAtMaxBalance(t *testing.T) {
	e, wallets, logs, _ := newMockEngine(t)
	// A concurrent credit filled the wallet after it was read
	wallet := &models.Wallet{Id: "w-1", UserId: "u-1", Currency: models.CurrencyUSD, Balance: dec("5")}
	pending := &models.TransactionLog{Id: "l-1", WalletId: "w-1", Status: models.TransactionStatusPending}
	failed := *pending
	failed.Status = models.TransactionStatusFailed

	sess := &mockSession{}
	sess.On("Abort").Return(nil)

	wallets.On("FindOne", mock.Anything, mock.Anything, nil).Return(wallet, nil)
	logs.On("InsertOne", mock.Anything, mock.Anything, nil).Return(pending, nil)
	wallets.On("StartSession", mock.Anything).Return(sess, nil)
	capped := mock.MatchedBy(func(f store.Filter) bool {
		cond, ok := f[store.FieldBalance].(store.Cond)
		if !ok || cond.Op != store.OpLte {
			return false
		}
		ceiling, ok := cond.Value.(decimal.Decimal)
		return ok && ceiling.Equal(models.MaxBalance.Sub(dec("10")))
	})
	wallets.On("UpdateOne", mock.Anything, capped, mock.Anything, sess).Return(int64(0), nil)
	logs.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, nil).Return(&failed, nil)

	_, err := e.Deposit(context.Background(), "u-1", dec("10"), models.CurrencyUSD)
	require.ErrorIs(t, err, ErrOperationFailed)
	sess.AssertNotCalled(t, "Commit")
	wallets.AssertExpectations(t)
}
