package formance

import (
	"context"
	"fmt"

	"wallet-ledger-go/internal/events"
	"wallet-ledger-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. Metadata is set inside the script via set_tx_meta()
// so the Formance transaction is fully self-describing.
// ---------------------------------------------------------------------------

const numscriptDeposit = `vars {
  asset $asset
  number $amount
  account $wallet
  string $entry_id
  string $wallet_id
}

send [$asset $amount] (
  source = @world
  destination = $wallet
)

set_tx_meta("event_type", "deposit")
set_tx_meta("entry_id", $entry_id)
set_tx_meta("wallet_id", $wallet_id)
`

const numscriptWithdrawal = `vars {
  asset $asset
  number $amount
  account $wallet
  string $entry_id
  string $wallet_id
}

send [$asset $amount] (
  source = $wallet
  destination = @world
)

set_tx_meta("event_type", "withdrawal")
set_tx_meta("entry_id", $entry_id)
set_tx_meta("wallet_id", $wallet_id)
`

const numscriptTransfer = `vars {
  asset $asset
  number $amount
  account $sender
  account $recipient
  string $entry_id
  string $wallet_id
  string $recipient_wallet_id
}

send [$asset $amount] (
  source = $sender
  destination = $recipient
)

set_tx_meta("event_type", "transfer")
set_tx_meta("entry_id", $entry_id)
set_tx_meta("wallet_id", $wallet_id)
set_tx_meta("recipient_wallet_id", $recipient_wallet_id)
`

type posting struct {
	script string
	vars   map[string]string
}

// Publish mirrors a completed entry. Failed entries moved no funds, and the
// recipient side of a transfer is covered by the sender's posting.
func (m *Mirror) Publish(ctx context.Context, ev events.Event) error {
	p, ok, err := m.postingFor(ev)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	postTx := shared.V2PostTransaction{
		Reference: strPtr(ev.EntryId),
		Script: &shared.V2PostTransactionScript{
			Plain: p.script,
			Vars:  p.vars,
		},
	}
	if !ev.Timestamp.IsZero() {
		ts := ev.Timestamp
		postTx.Timestamp = &ts
	}

	err = m.api.createTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            m.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			return nil // already mirrored
		}
		return fmt.Errorf("error mirroring transaction %s: %w", ev.EntryId, err)
	}

	zap.L().Debug("Transaction mirrored to Formance",
		zap.String("entry_id", ev.EntryId),
		zap.String("currency", ev.Currency),
		zap.String("amount", ev.Amount))
	return nil
}

// postingFor selects the Numscript for an event. ok is false when the event
// has nothing to mirror.
func (m *Mirror) postingFor(ev events.Event) (posting, bool, error) {
	if ev.Status != string(models.TransactionStatusSuccess) {
		return posting{}, false, nil
	}

	currency := models.Currency(ev.Currency)
	asset, err := m.asset(currency)
	if err != nil {
		return posting{}, false, err
	}
	amount, err := m.minorUnits(currency, ev.Amount)
	if err != nil {
		return posting{}, false, err
	}

	vars := map[string]string{
		"asset":     asset,
		"amount":    amount,
		"entry_id":  ev.EntryId,
		"wallet_id": ev.WalletId,
	}

	switch kind := ev.Metadata[models.MetaKind]; {
	case kind == models.KindTransfer && ev.TransactionType == string(models.TransactionTypeDebit):
		recipient := ev.Metadata[models.MetaRecipientId]
		if recipient == "" {
			return posting{}, false, fmt.Errorf("transfer %s has no recipient id", ev.EntryId)
		}
		vars["sender"] = walletAccount(ev.UserId, currency)
		vars["recipient"] = walletAccount(recipient, currency)
		vars["recipient_wallet_id"] = ev.Metadata[models.MetaRecipientWallet]
		return posting{script: numscriptTransfer, vars: vars}, true, nil
	case kind == models.KindTransfer:
		return posting{}, false, nil
	case ev.TransactionType == string(models.TransactionTypeCredit):
		vars["wallet"] = walletAccount(ev.UserId, currency)
		return posting{script: numscriptDeposit, vars: vars}, true, nil
	case ev.TransactionType == string(models.TransactionTypeDebit):
		vars["wallet"] = walletAccount(ev.UserId, currency)
		return posting{script: numscriptWithdrawal, vars: vars}, true, nil
	}
	return posting{}, false, fmt.Errorf("unknown transaction type %q", ev.TransactionType)
}

// asset returns the Formance UMN notation, e.g. "USD/2".
func (m *Mirror) asset(c models.Currency) (string, error) {
	spec, ok := m.currencies.Lookup(c)
	if !ok {
		return "", fmt.Errorf("unsupported currency: %s", c)
	}
	return fmt.Sprintf("%s/%d", spec.Code, spec.Precision), nil
}

// minorUnits converts a decimal amount into the integer Numscript expects.
func (m *Mirror) minorUnits(c models.Currency, amount string) (string, error) {
	spec, ok := m.currencies.Lookup(c)
	if !ok {
		return "", fmt.Errorf("unsupported currency: %s", c)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	shifted := d.Shift(int32(spec.Precision))
	if !shifted.Equal(shifted.Truncate(0)) {
		return "", fmt.Errorf("amount %s exceeds %d decimal places for %s", amount, spec.Precision, c)
	}
	return shifted.BigInt().String(), nil
}

func walletAccount(userId string, c models.Currency) string {
	return fmt.Sprintf("users:%s:%s", userId, c)
}

func strPtr(s string) *string { return &s }
