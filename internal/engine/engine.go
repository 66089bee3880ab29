/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package engine is the wallet transaction engine. It moves balances and
// keeps every movement paired with exactly one terminal audit log entry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger-go/internal/events"
	"wallet-ledger-go/internal/metrics"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	opGetBalance  = "get_balance"
	opGetWallets  = "get_wallets"
	opOpenWallets = "open_wallets"
	opDeposit     = "deposit"
	opWithdraw    = "withdraw"
	opTransfer    = "transfer"
	opHistory     = "history"
	opRecover     = "recover_pending"
	opReconcile   = "reconcile"
)

var (
	errEntryNotPending = errors.New("transaction log entry is no longer pending")
	errBalanceChanged  = errors.New("wallet balance changed before debit")
	errCreditRejected  = errors.New("wallet missing or credit exceeds the balance limit")
)

// Deps are the collaborators an Engine is built from.
type Deps struct {
	Wallets    store.WalletRepository
	Logs       store.TransactionLogRepository
	Users      store.UserRepository
	Currencies *models.CurrencyRegistry
}

type Option func(*Engine)

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithMetrics(c metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type Engine struct {
	wallets    store.WalletRepository
	logs       store.TransactionLogRepository
	users      store.UserRepository
	currencies *models.CurrencyRegistry

	publisher events.Publisher
	metrics   metrics.Collector
	now       func() time.Time
}

func New(deps Deps, opts ...Option) (*Engine, error) {
	if deps.Wallets == nil || deps.Logs == nil || deps.Users == nil {
		return nil, fmt.Errorf("engine requires wallet, transaction log and user repositories")
	}
	if deps.Currencies == nil {
		deps.Currencies = models.DefaultCurrencies()
	}

	e := &Engine{
		wallets:    deps.Wallets,
		logs:       deps.Logs,
		users:      deps.Users,
		currencies: deps.Currencies,
		publisher:  events.Noop{},
		metrics:    metrics.Noop{},
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Currencies returns the registry wallets are opened against.
func (e *Engine) Currencies() *models.CurrencyRegistry {
	return e.currencies
}

// GetBalance returns the user's wallet in currency.
func (e *Engine) GetBalance(ctx context.Context, userId string, currency models.Currency) (_ *models.Wallet, err error) {
	defer e.observe(opGetBalance, time.Now(), &err)

	wallet, err := e.findWallet(ctx, userId, currency)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, notFound("Wallet not found")
	}
	return wallet, nil
}

// GetWallets returns every wallet the user owns, newest first.
func (e *Engine) GetWallets(ctx context.Context, userId string) (_ []models.Wallet, err error) {
	defer e.observe(opGetWallets, time.Now(), &err)

	wallets, err := e.wallets.Find(ctx, store.Filter{store.FieldUserId: userId}, store.FindOptions{Sort: store.NewestFirst}, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to list wallets: %w", err)
	}
	if len(wallets) == 0 {
		return nil, notFound("Wallets not found")
	}
	return wallets, nil
}

// OpenWallets creates a zero-balance wallet for every supported currency the
// user does not hold yet, all in one transactional scope. It returns all of
// the user's wallets.
func (e *Engine) OpenWallets(ctx context.Context, userId string) (_ []models.Wallet, err error) {
	defer e.observe(opOpenWallets, time.Now(), &err)

	user, err := e.users.FindById(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to look up user: %w", err)
	}
	if user == nil {
		return nil, notFound("User not found")
	}

	existing, err := e.wallets.Find(ctx, store.Filter{store.FieldUserId: userId}, store.FindOptions{}, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to list wallets: %w", err)
	}
	held := make(map[models.Currency]bool, len(existing))
	for _, w := range existing {
		held[w.Currency] = true
	}

	var missing []models.Wallet
	for _, code := range e.currencies.Codes() {
		if !held[code] {
			missing = append(missing, models.Wallet{UserId: userId, Currency: code, Balance: decimal.Zero})
		}
	}

	if len(missing) > 0 {
		sess, err := e.wallets.StartSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to start session: %w", err)
		}
		defer func() { _ = sess.Abort() }()

		if _, err := e.wallets.InsertMany(ctx, missing, sess); err != nil {
			return nil, fmt.Errorf("unable to create wallets: %w", err)
		}
		if err := sess.Commit(); err != nil {
			return nil, fmt.Errorf("unable to create wallets: %w", err)
		}

		zap.L().Info("Opened wallets",
			zap.String("user_id", userId),
			zap.Int("created", len(missing)))
	}

	return e.GetWallets(ctx, userId)
}

func (e *Engine) findWallet(ctx context.Context, userId string, currency models.Currency) (*models.Wallet, error) {
	wallet, err := e.wallets.FindOne(ctx, store.Filter{
		store.FieldUserId:   userId,
		store.FieldCurrency: currency,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to look up wallet: %w", err)
	}
	return wallet, nil
}

func (e *Engine) validateAmount(currency models.Currency, amount decimal.Decimal) error {
	if err := e.currencies.ValidateAmount(currency, amount); err != nil {
		return invalidOperation(err.Error())
	}
	return nil
}

// openEntry writes the PENDING record of an attempt, outside any scope, so that
// a crash before the scope resolves still leaves evidence.
func (e *Engine) openEntry(ctx context.Context, wallet *models.Wallet, typ models.TransactionType, amount decimal.Decimal, description string, meta map[string]string) (*models.TransactionLog, error) {
	entry, err := e.logs.InsertOne(ctx, &models.TransactionLog{
		WalletId:    wallet.Id,
		UserId:      wallet.UserId,
		Type:        typ,
		Currency:    wallet.Currency,
		Amount:      amount,
		Status:      models.TransactionStatusPending,
		Description: description,
		Meta:        meta,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to record pending transaction: %w", err)
	}
	return entry, nil
}

// settle runs fn inside a fresh transactional scope and commits it.
// Any error aborts the scope.
func (e *Engine) settle(ctx context.Context, fn func(sess store.Session) (*models.TransactionLog, error)) (*models.TransactionLog, error) {
	sess, err := e.wallets.StartSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to start session: %w", err)
	}
	defer func() { _ = sess.Abort() }()

	done, err := fn(sess)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}
	return done, nil
}

// adjust applies a signed balance change with an atomic store expression.
// A debit only matches while the balance still covers it, a credit only while
// the result stays within models.MaxBalance.
func (e *Engine) adjust(ctx context.Context, walletId string, delta decimal.Decimal, sess store.Session) error {
	filter := store.Filter{store.FieldId: walletId}
	if delta.IsNegative() {
		filter[store.FieldBalance] = store.Gte(delta.Neg())
	} else {
		filter[store.FieldBalance] = store.Lte(models.MaxBalance.Sub(delta))
	}

	n, err := e.wallets.UpdateOne(ctx, filter, store.Update{
		Inc: map[string]decimal.Decimal{store.FieldBalance: delta},
	}, sess)
	if err != nil {
		return err
	}
	if n == 0 {
		if delta.IsNegative() {
			return errBalanceChanged
		}
		return errCreditRejected
	}
	return nil
}

// checkCapacity rejects a credit the wallet cannot hold.
func checkCapacity(wallet *models.Wallet, amount decimal.Decimal) error {
	if wallet.Balance.Add(amount).GreaterThan(models.MaxBalance) {
		return invalidOperation("Amount exceeds the wallet balance limit")
	}
	return nil
}

// complete moves a PENDING entry to SUCCESS inside the scope.
func (e *Engine) complete(ctx context.Context, entryId string, sess store.Session) (*models.TransactionLog, error) {
	done, err := e.logs.FindOneAndUpdate(ctx,
		store.Filter{store.FieldId: entryId, store.FieldStatus: models.TransactionStatusPending},
		store.Update{Set: map[string]any{store.FieldStatus: models.TransactionStatusSuccess}},
		sess)
	if err != nil {
		return nil, err
	}
	if done == nil {
		return nil, errEntryNotPending
	}
	return done, nil
}

// compensate runs after the scope has been aborted. It marks the entry FAILED
// on its own and returns the OperationFailed error carrying it. The caller's
// cancellation does not stop it.
func (e *Engine) compensate(ctx context.Context, op string, pending *models.TransactionLog, message string, cause error) error {
	ctx = context.WithoutCancel(ctx)

	zap.L().Error("Transaction failed, rolling back",
		zap.String("operation", op),
		zap.String("transaction_id", pending.Id),
		zap.String("wallet_id", pending.WalletId),
		zap.String("user_id", pending.UserId),
		zap.String("amount", pending.Amount.String()),
		zap.String("currency", string(pending.Currency)),
		zap.Error(cause))

	entry := pending
	failed, err := e.logs.FindOneAndUpdate(ctx,
		store.Filter{store.FieldId: pending.Id, store.FieldStatus: models.TransactionStatusPending},
		store.Update{Set: map[string]any{
			store.FieldStatus:       models.TransactionStatusFailed,
			store.FieldErrorMessage: message,
		}},
		nil)
	switch {
	case err != nil:
		zap.L().Error("Failed to mark transaction failed, left for recovery",
			zap.String("transaction_id", pending.Id),
			zap.Error(err))
	case failed == nil:
		// Already resolved elsewhere, e.g. by the pending sweep
		current, err := e.logs.FindById(ctx, pending.Id, nil)
		if err == nil && current != nil {
			entry = current
		}
	default:
		entry = failed
		e.publish(ctx, *failed)
	}

	return &Error{Kind: KindOperationFailed, Message: message, Entry: entry}
}

func (e *Engine) publish(ctx context.Context, entries ...models.TransactionLog) {
	for _, entry := range entries {
		if err := e.publisher.Publish(ctx, events.FromEntry(entry)); err != nil {
			zap.L().Warn("Failed to publish transaction event",
				zap.String("transaction_id", entry.Id),
				zap.String("status", string(entry.Status)),
				zap.Error(err))
		}
	}
}

func (e *Engine) observe(op string, start time.Time, err *error) {
	e.metrics.ObserveOperation(op, outcome(*err), time.Since(start))
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch KindOf(err) {
	case KindNotFound:
		return "not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindOperationFailed:
		return "operation_failed"
	}
	return "error"
}
