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

package engine

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	msgAbandoned      = "Abandoned before completion"
	recoveryBatchSize = 100
)

// RecoveryReport summarizes one pending sweep.
type RecoveryReport struct {
	Scanned  int
	Resolved []models.TransactionLog
	// Skipped counts entries that reached a terminal state while the sweep ran.
	Skipped int
}

// RecoverPending resolves entries left PENDING for longer than olderThan.
//
// SUCCESS is only ever written in the same scope as the balance change, so a
// PENDING entry means that scope never committed and no balance moved. Such
// entries are marked FAILED with no balance adjustment.
func (e *Engine) RecoverPending(ctx context.Context, olderThan time.Duration) (_ *RecoveryReport, err error) {
	defer e.observe(opRecover, time.Now(), &err)

	if olderThan <= 0 {
		return nil, invalidOperation("recovery age must be positive")
	}
	cutoff := e.now().Add(-olderThan)
	stale := store.Filter{
		store.FieldStatus:    models.TransactionStatusPending,
		store.FieldUpdatedAt: store.Lt(cutoff),
	}

	report := &RecoveryReport{}
	for {
		batch, err := e.logs.Find(ctx, stale, store.FindOptions{
			Sort:  []store.SortField{{Field: store.FieldUpdatedAt}},
			Limit: recoveryBatchSize,
		}, nil)
		if err != nil {
			return report, fmt.Errorf("unable to query pending transactions: %w", err)
		}

		for _, entry := range batch {
			report.Scanned++
			failed, err := e.logs.FindOneAndUpdate(ctx,
				store.Filter{
					store.FieldId:        entry.Id,
					store.FieldStatus:    models.TransactionStatusPending,
					store.FieldUpdatedAt: store.Lt(cutoff),
				},
				store.Update{Set: map[string]any{
					store.FieldStatus:       models.TransactionStatusFailed,
					store.FieldErrorMessage: msgAbandoned,
				}},
				nil)
			if err != nil {
				return report, fmt.Errorf("unable to resolve pending transaction %s: %w", entry.Id, err)
			}
			if failed == nil {
				report.Skipped++
				continue
			}

			zap.L().Warn("Resolved abandoned transaction",
				zap.String("transaction_id", failed.Id),
				zap.String("wallet_id", failed.WalletId),
				zap.String("type", string(failed.Type)),
				zap.String("amount", failed.Amount.String()),
				zap.Time("created_at", failed.CreatedAt))

			report.Resolved = append(report.Resolved, *failed)
			e.publish(ctx, *failed)
		}

		if len(batch) < recoveryBatchSize {
			break
		}
	}

	e.metrics.ObserveRecovered(len(report.Resolved))
	return report, nil
}

// Reconciliation compares a wallet's stored balance with the net of its
// SUCCESS log entries.
type Reconciliation struct {
	Wallet   models.Wallet
	Credits  decimal.Decimal
	Debits   decimal.Decimal
	Expected decimal.Decimal
	Balanced bool
}

func (e *Engine) ReconcileWallet(ctx context.Context, userId string, currency models.Currency) (_ *Reconciliation, err error) {
	defer e.observe(opReconcile, time.Now(), &err)

	wallet, err := e.findWallet(ctx, userId, currency)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, notFound("Wallet not found")
	}

	totals, err := e.logs.SumAmounts(ctx, wallet.Id, models.TransactionStatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("unable to total transactions: %w", err)
	}

	credits := totals[models.TransactionTypeCredit]
	debits := totals[models.TransactionTypeDebit]
	expected := credits.Sub(debits)

	r := &Reconciliation{
		Wallet:   *wallet,
		Credits:  credits,
		Debits:   debits,
		Expected: expected,
		Balanced: expected.Equal(wallet.Balance),
	}
	if !r.Balanced {
		zap.L().Error("Wallet balance does not match transaction log",
			zap.String("wallet_id", wallet.Id),
			zap.String("user_id", userId),
			zap.String("balance", wallet.Balance.String()),
			zap.String("expected", expected.String()))
	}
	return r, nil
}
