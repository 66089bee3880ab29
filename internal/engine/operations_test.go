package engine

import (
	"context"
	"testing"

	"wallet-ledger-go/internal/events"
	"wallet-ledger-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeposit(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	alice := env.addUser(t, "alice")

	first, err := env.engine.Deposit(ctx, alice.Id, dec("100"), models.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, first.Status)
	assert.Equal(t, models.TransactionTypeCredit, first.Type)
	assert.Equal(t, models.KindDeposit, first.Meta[models.MetaKind])
	assertDecimal(t, "100", first.Amount)

	_, err = env.engine.Deposit(ctx, alice.Id, dec("50"), models.CurrencyUSD)
	require.NoError(t, err)
	assertDecimal(t, "150", env.balance(t, alice.Id, models.CurrencyUSD))

	entries := env.entries(t, alice.Id)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, models.TransactionStatusSuccess, e.Status)
	}

	published := env.publisher.snapshot()
	require.Len(t, published, 2)
	assert.Equal(t, events.TypeTransactionCompleted, published[0].EventType)
	assert.Equal(t, []string{"success", "success"}, env.metrics.outcomes[opDeposit])
}

func TestDeposit_Rejected(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	alice := env.addUser(t, "alice")

	tests := []struct {
		name     string
		userId   string
		amount   string
		currency models.Currency
		kind     Kind
	}{
		{"zero amount", alice.Id, "0", models.CurrencyUSD, KindInvalidOperation},
		{"negative amount", alice.Id, "-5", models.CurrencyUSD, KindInvalidOperation},
		{"too precise", alice.Id, "1.001", models.CurrencyUSD, KindInvalidOperation},
		{"unsupported currency", alice.Id, "1", "EUR", KindInvalidOperation},
		{"beyond balance limit", alice.Id, "10000000000000", models.CurrencyUSD, KindInvalidOperation},
		{"no wallet", "nobody", "1", models.CurrencyUSD, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.Deposit(ctx, tt.userId, dec(tt.amount), tt.currency)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}

	assert.Empty(t, env.entries(t, alice.Id))
	assert.True(t, env.balance(t, alice.Id, models.CurrencyUSD).IsZero())
}

func TestDeposit_BalanceLimit(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	alice := env.addUser(t, "alice")

	env.fund(t, alice, "9000000000000", models.CurrencyUSD)

	_, err := env.engine.Deposit(ctx, alice.Id, dec("9000000000000"), models.CurrencyUSD)
	require.ErrorIs(t, err, ErrInvalidOperation)

	// The wallet stays readable and exact
	assertDecimal(t, "9000000000000", env.balance(t, alice.Id, models.CurrencyUSD))
	assert.Len(t, env.entries(t, alice.Id), 1)

	// Filling up to the limit is still allowed
	headroom := models.MaxBalance.Sub(dec("9000000000000")).Truncate(2)
	_, err = env.engine.Deposit(ctx, alice.Id, headroom, models.CurrencyUSD)
	require.NoError(t, err)
	assertDecimal(t, "9223372036854.77", env.balance(t, alice.Id, models.CurrencyUSD))

	_, err = env.engine.Deposit(ctx, alice.Id, dec("0.01"), models.CurrencyUSD)
	require.ErrorIs(t, err, ErrInvalidOperation)
}

func TestWithdraw(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	env.fund(t, alice, "100", models.CurrencyUSD)

	entry, err := env.engine.Withdraw(ctx, alice.Id, dec("40.25"), models.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeDebit, entry.Type)
	assert.Equal(t, models.TransactionStatusSuccess, entry.Status)
	assertDecimal(t, "59.75", env.balance(t, alice.Id, models.CurrencyUSD))

	// Exactly the remaining balance is allowed
	_, err = env.engine.Withdraw(ctx, alice.Id, dec("59.75"), models.CurrencyUSD)
	require.NoError(t, err)
	assert.True(t, env.balance(t, alice.Id, models.CurrencyUSD).IsZero())
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	env.fund(t, alice, "10", models.CurrencyUSD)

	_, err := env.engine.Withdraw(ctx, alice.Id, dec("100"), models.CurrencyUSD)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Nil(t, EntryOf(err))

	assertDecimal(t, "10", env.balance(t, alice.Id, models.CurrencyUSD))
	// Only the funding deposit was recorded
	assert.Len(t, env.entries(t, alice.Id), 1)
}

func TestTransferFunds(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	env.fund(t, alice, "100", models.CurrencyUSD)
	env.fund(t, bob, "50", models.CurrencyUSD)

	debit, err := env.engine.TransferFunds(ctx, TransferRequest{
		UserId:            alice.Id,
		Username:          alice.Username,
		RecipientUsername: "Bob",
		Amount:            dec("30"),
		Currency:          models.CurrencyUSD,
	})
	require.NoError(t, err)

	assertDecimal(t, "70", env.balance(t, alice.Id, models.CurrencyUSD))
	assertDecimal(t, "80", env.balance(t, bob.Id, models.CurrencyUSD))

	assert.Equal(t, models.TransactionTypeDebit, debit.Type)
	assert.Equal(t, models.TransactionStatusSuccess, debit.Status)
	assert.Equal(t, "bob", debit.Meta[models.MetaRecipientUsername])

	bobWallet, err := env.engine.GetBalance(ctx, bob.Id, models.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, bobWallet.Id, debit.Meta[models.MetaRecipientWallet])

	credits, err := env.engine.GetTransactionHistory(ctx, bob.Id, models.HistoryFilter{Type: models.TransactionTypeCredit})
	require.NoError(t, err)
	require.Len(t, credits, 2)

	credit := credits[0]
	assert.Equal(t, models.TransactionStatusSuccess, credit.Status)
	assert.Equal(t, models.KindTransfer, credit.Meta[models.MetaKind])
	assert.Equal(t, debit.Id, credit.Meta[models.MetaTransferId])
	assert.Equal(t, "alice", credit.Meta[models.MetaSenderUsername])
	assert.Equal(t, debit.WalletId, credit.Meta[models.MetaSenderWallet])
	assertDecimal(t, "30", credit.Amount)

	published := env.publisher.snapshot()
	require.Len(t, published, 4)
	assert.Equal(t, debit.Id, published[2].EntryId)
	assert.Equal(t, credit.Id, published[3].EntryId)
}

func TestTransferFunds_Rejected(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	env.addUser(t, "bob")
	env.fund(t, alice, "20", models.CurrencyUSD)

	carol, err := env.db.Users().Create(ctx, "Carol", "carol")
	require.NoError(t, err)
	dave := env.addUser(t, "dave")
	env.fund(t, dave, "9223372036854", models.CurrencyUSD)

	tests := []struct {
		name    string
		req     TransferRequest
		kind    Kind
		message string
	}{
		{
			name:    "self by username",
			req:     TransferRequest{UserId: alice.Id, Username: "alice", RecipientUsername: " ALICE ", Amount: dec("1"), Currency: models.CurrencyUSD},
			kind:    KindInvalidOperation,
			message: "Cannot transfer funds to self",
		},
		{
			name:    "self checked before amount",
			req:     TransferRequest{UserId: alice.Id, Username: "alice", RecipientUsername: "alice", Amount: dec("-1"), Currency: models.CurrencyUSD},
			kind:    KindInvalidOperation,
			message: "Cannot transfer funds to self",
		},
		{
			name: "invalid amount",
			req:  TransferRequest{UserId: alice.Id, Username: "alice", RecipientUsername: "bob", Amount: dec("0"), Currency: models.CurrencyUSD},
			kind: KindInvalidOperation,
		},
		{
			name:    "unknown recipient",
			req:     TransferRequest{UserId: alice.Id, Username: "alice", RecipientUsername: "nobody", Amount: dec("1"), Currency: models.CurrencyUSD},
			kind:    KindNotFound,
			message: "Recipient not found",
		},
		{
			name:    "recipient without wallet",
			req:     TransferRequest{UserId: alice.Id, Username: "alice", RecipientUsername: carol.Username, Amount: dec("1"), Currency: models.CurrencyUSD},
			kind:    KindNotFound,
			message: "Recipient wallet not found",
		},
		{
			name:    "sender without wallet",
			req:     TransferRequest{UserId: carol.Id, Username: "carol", RecipientUsername: "bob", Amount: dec("1"), Currency: models.CurrencyUSD},
			kind:    KindNotFound,
			message: "Sender wallet not found",
		},
		{
			name:    "recipient resolves to sender",
			req:     TransferRequest{UserId: alice.Id, Username: "someone-else", RecipientUsername: "alice", Amount: dec("1"), Currency: models.CurrencyUSD},
			kind:    KindInvalidOperation,
			message: "Cannot transfer funds to self",
		},
		{
			name:    "recipient balance limit",
			req:     TransferRequest{UserId: alice.Id, Username: "alice", RecipientUsername: "dave", Amount: dec("1"), Currency: models.CurrencyUSD},
			kind:    KindInvalidOperation,
			message: "Amount exceeds the wallet balance limit",
		},
		{
			name:    "insufficient funds",
			req:     TransferRequest{UserId: alice.Id, Username: "alice", RecipientUsername: "bob", Amount: dec("20.01"), Currency: models.CurrencyUSD},
			kind:    KindInsufficientFunds,
			message: "Insufficient funds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.TransferFunds(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			if tt.message != "" {
				var engineErr *Error
				require.ErrorAs(t, err, &engineErr)
				assert.Equal(t, tt.message, engineErr.Message)
			}
		})
	}

	assertDecimal(t, "20", env.balance(t, alice.Id, models.CurrencyUSD))
	assert.Len(t, env.entries(t, alice.Id), 1)
}

func TestGetTransactionHistory(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	env.addUser(t, "bob")

	env.fund(t, alice, "100", models.CurrencyUSD)
	env.fund(t, alice, "5000", models.CurrencyNGN)
	_, err := env.engine.Withdraw(ctx, alice.Id, dec("10"), models.CurrencyUSD)
	require.NoError(t, err)
	_, err = env.engine.TransferFunds(ctx, TransferRequest{
		UserId: alice.Id, Username: "alice", RecipientUsername: "bob",
		Amount: dec("5"), Currency: models.CurrencyUSD,
	})
	require.NoError(t, err)

	all := env.entries(t, alice.Id)
	require.Len(t, all, 4)
	// Newest first
	assert.Equal(t, models.KindTransfer, all[0].Meta[models.MetaKind])
	assert.Equal(t, models.KindDeposit, all[3].Meta[models.MetaKind])
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}

	usd, err := env.engine.GetTransactionHistory(ctx, alice.Id, models.HistoryFilter{Currency: models.CurrencyUSD})
	require.NoError(t, err)
	assert.Len(t, usd, 3)

	debits, err := env.engine.GetTransactionHistory(ctx, alice.Id, models.HistoryFilter{Type: models.TransactionTypeDebit})
	require.NoError(t, err)
	assert.Len(t, debits, 2)

	page, err := env.engine.GetTransactionHistory(ctx, alice.Id, models.HistoryFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[1].Id, page[0].Id)

	none, err := env.engine.GetTransactionHistory(ctx, "nobody", models.HistoryFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = env.engine.GetTransactionHistory(ctx, alice.Id, models.HistoryFilter{Type: "REFUND"})
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = env.engine.GetTransactionHistory(ctx, alice.Id, models.HistoryFilter{Status: "DONE"})
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = env.engine.GetTransactionHistory(ctx, alice.Id, models.HistoryFilter{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}
