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

const msgWithdrawalFailed = "Unable to complete withdrawal"

// Withdraw debits amount from the user's wallet in currency. A withdrawal the
// balance cannot cover is rejected before anything is written.
func (e *Engine) Withdraw(ctx context.Context, userId string, amount decimal.Decimal, currency models.Currency) (_ *models.TransactionLog, err error) {
	defer e.observe(opWithdraw, time.Now(), &err)

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
	if wallet.Balance.LessThan(amount) {
		zap.L().Info("Withdrawal rejected for insufficient funds",
			zap.String("user_id", userId),
			zap.String("wallet_id", wallet.Id),
			zap.String("balance", wallet.Balance.String()),
			zap.String("amount", amount.String()))
		return nil, insufficientFunds()
	}

	zap.L().Info("Processing withdrawal",
		zap.String("user_id", userId),
		zap.String("wallet_id", wallet.Id),
		zap.String("currency", string(currency)),
		zap.String("amount", amount.String()))

	pending, err := e.openEntry(ctx, wallet, models.TransactionTypeDebit, amount, "Wallet withdrawal",
		map[string]string{models.MetaKind: models.KindWithdrawal})
	if err != nil {
		return nil, err
	}

	done, err := e.settle(ctx, func(sess store.Session) (*models.TransactionLog, error) {
		if err := e.adjust(ctx, wallet.Id, amount.Neg(), sess); err != nil {
			return nil, err
		}
		return e.complete(ctx, pending.Id, sess)
	})
	if err != nil {
		return nil, e.compensate(ctx, opWithdraw, pending, msgWithdrawalFailed, err)
	}

	zap.L().Info("Withdrawal processed successfully",
		zap.String("user_id", userId),
		zap.String("transaction_id", done.Id),
		zap.String("currency", string(currency)),
		zap.String("amount", amount.String()))

	e.publish(ctx, *done)
	return done, nil
}
