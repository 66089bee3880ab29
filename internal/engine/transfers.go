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
	"sort"
	"strings"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const msgTransferFailed = "Unable to complete transfer"

// TransferRequest moves Amount of Currency from the user identified by
// UserId and Username to the user named RecipientUsername.
type TransferRequest struct {
	UserId            string
	Username          string
	RecipientUsername string
	Amount            decimal.Decimal
	Currency          models.Currency
}

type balanceMove struct {
	walletId string
	delta    decimal.Decimal
}

// TransferFunds debits the sender and credits the recipient in one scope.
// It returns the sender's SUCCESS DEBIT entry; the recipient receives an
// independent SUCCESS CREDIT entry linked through metadata.
func (e *Engine) TransferFunds(ctx context.Context, req TransferRequest) (_ *models.TransactionLog, err error) {
	defer e.observe(opTransfer, time.Now(), &err)

	if sameUsername(req.Username, req.RecipientUsername) {
		return nil, invalidOperation("Cannot transfer funds to self")
	}
	if err := e.validateAmount(req.Currency, req.Amount); err != nil {
		return nil, err
	}

	recipient, err := e.users.FindByUsername(ctx, req.RecipientUsername)
	if err != nil {
		return nil, fmt.Errorf("unable to look up recipient: %w", err)
	}
	if recipient == nil {
		return nil, notFound("Recipient not found")
	}
	if recipient.Id == req.UserId {
		return nil, invalidOperation("Cannot transfer funds to self")
	}

	recipientWallet, err := e.findWallet(ctx, recipient.Id, req.Currency)
	if err != nil {
		return nil, err
	}
	if recipientWallet == nil {
		return nil, notFound("Recipient wallet not found")
	}

	senderWallet, err := e.findWallet(ctx, req.UserId, req.Currency)
	if err != nil {
		return nil, err
	}
	if senderWallet == nil {
		return nil, notFound("Sender wallet not found")
	}
	if senderWallet.Balance.LessThan(req.Amount) {
		return nil, insufficientFunds()
	}
	if err := checkCapacity(recipientWallet, req.Amount); err != nil {
		return nil, err
	}

	zap.L().Info("Processing transfer",
		zap.String("user_id", req.UserId),
		zap.String("recipient_id", recipient.Id),
		zap.String("currency", string(req.Currency)),
		zap.String("amount", req.Amount.String()))

	pending, err := e.openEntry(ctx, senderWallet, models.TransactionTypeDebit, req.Amount,
		fmt.Sprintf("Transfer to %s", recipient.Username),
		map[string]string{
			models.MetaKind:              models.KindTransfer,
			models.MetaRecipientId:       recipient.Id,
			models.MetaRecipientUsername: recipient.Username,
			models.MetaRecipientWallet:   recipientWallet.Id,
		})
	if err != nil {
		return nil, err
	}

	// Wallets are always touched in id order, whichever side is sending
	moves := []balanceMove{
		{walletId: senderWallet.Id, delta: req.Amount.Neg()},
		{walletId: recipientWallet.Id, delta: req.Amount},
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i].walletId < moves[j].walletId })

	var credit *models.TransactionLog
	done, err := e.settle(ctx, func(sess store.Session) (*models.TransactionLog, error) {
		for _, m := range moves {
			if err := e.adjust(ctx, m.walletId, m.delta, sess); err != nil {
				return nil, err
			}
		}

		debit, err := e.complete(ctx, pending.Id, sess)
		if err != nil {
			return nil, err
		}

		credit, err = e.logs.InsertOne(ctx, &models.TransactionLog{
			WalletId:    recipientWallet.Id,
			UserId:      recipient.Id,
			Type:        models.TransactionTypeCredit,
			Currency:    req.Currency,
			Amount:      req.Amount,
			Status:      models.TransactionStatusSuccess,
			Description: fmt.Sprintf("Transfer from %s", senderName(req)),
			Meta: map[string]string{
				models.MetaKind:           models.KindTransfer,
				models.MetaTransferId:     pending.Id,
				models.MetaSenderId:       req.UserId,
				models.MetaSenderUsername: senderName(req),
				models.MetaSenderWallet:   senderWallet.Id,
			},
		}, sess)
		if err != nil {
			return nil, err
		}
		return debit, nil
	})
	if err != nil {
		return nil, e.compensate(ctx, opTransfer, pending, msgTransferFailed, err)
	}

	zap.L().Info("Transfer processed successfully",
		zap.String("transaction_id", done.Id),
		zap.String("credit_transaction_id", credit.Id),
		zap.String("currency", string(req.Currency)),
		zap.String("amount", req.Amount.String()))

	e.publish(ctx, *done, *credit)
	return done, nil
}

func sameUsername(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func senderName(req TransferRequest) string {
	return strings.ToLower(strings.TrimSpace(req.Username))
}
