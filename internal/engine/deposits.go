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
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const msgDepositFailed = "Unable to complete deposit"

// Deposit credits amount to the user's wallet in currency and returns the
// SUCCESS log entry.
func (e *Engine) Deposit(ctx context.Context, userId string, amount decimal.Decimal, currency models.Currency) (_ *models.TransactionLog, err error) {
	defer e.observe(opDeposit, time.Now(), &err)

	if err := e.validateAmount(currency, amount); err != nil {
		return nil, err
	}

	wallet, err := e.findWallet(ctx, userId, currency)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, notFound("Wallet not found")
	}
	if err := checkCapacity(wallet, amount); err != nil {
		return nil, err
	}

	zap.L().Info("Processing deposit",
		zap.String("user_id", userId),
		zap.String("wallet_id", wallet.Id),
		zap.String("currency", string(currency)),
		zap.String("amount", amount.String()))

	pending, err := e.openEntry(ctx, wallet, models.TransactionTypeCredit, amount, "Wallet deposit",
		map[string]string{models.MetaKind: models.KindDeposit})
	if err != nil {
		return nil, err
	}

	done, err := e.settle(ctx, func(sess store.Session) (*models.TransactionLog, error) {
		if err := e.adjust(ctx, wallet.Id, amount, sess); err != nil {
			return nil, err
		}
		return e.complete(ctx, pending.Id, sess)
	})
	if err != nil {
		return nil, e.compensate(ctx, opDeposit, pending, msgDepositFailed, err)
	}

	zap.L().Info("Deposit processed successfully",
		zap.String("user_id", userId),
		zap.String("transaction_id", done.Id),
		zap.String("currency", string(currency)),
		zap.String("amount", amount.String()))

	e.publish(ctx, *done)
	return done, nil
}
