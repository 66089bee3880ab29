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

package database

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *TransactionLogStore must satisfy store.TransactionLogRepository.
var _ store.TransactionLogRepository = (*TransactionLogStore)(nil)

type transactionLogRow struct {
	Id           string `db:"id"`
	WalletId     string `db:"wallet_id"`
	UserId       string `db:"user_id"`
	Type         string `db:"type"`
	Currency     string `db:"currency"`
	Amount       int64  `db:"amount"`
	Status       string `db:"status"`
	ErrorMessage string `db:"error_message"`
	Description  string `db:"description"`
	Meta         string `db:"meta"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

var transactionLogColumns = []column{
	{store.FieldId, kindText},
	{store.FieldWalletId, kindText},
	{store.FieldUserId, kindText},
	{store.FieldType, kindText},
	{store.FieldCurrency, kindText},
	{store.FieldAmount, kindAmount},
	{store.FieldStatus, kindText},
	{store.FieldErrorMessage, kindText},
	{store.FieldDescription, kindText},
	{store.FieldMeta, kindMeta},
	{store.FieldCreatedAt, kindTime},
	{store.FieldUpdatedAt, kindTime},
}

// TransactionLogStore is the SQLite append-only transaction log.
type TransactionLogStore struct {
	*table[models.TransactionLog, transactionLogRow]
}

func NewTransactionLogStore(db *sqlx.DB) *TransactionLogStore {
	return &TransactionLogStore{newTable(db, "transaction_logs", transactionLogColumns, transactionLogFromRow, transactionLogToRow, stampTransactionLog)}
}

func (s *TransactionLogStore) SumAmounts(ctx context.Context, walletId string, status models.TransactionStatus) (map[models.TransactionType]decimal.Decimal, error) {
	var rows []struct {
		Type  string `db:"type"`
		Total int64  `db:"total"`
	}
	if err := sqlx.SelectContext(ctx, s.db, &rows, querySumTransactionAmounts, walletId, string(status)); err != nil {
		zap.L().Error("Failed to sum transaction amounts", zap.String("wallet_id", walletId), zap.Error(err))
		return nil, fmt.Errorf("unable to sum transaction amounts: %w", err)
	}

	totals := map[models.TransactionType]decimal.Decimal{
		models.TransactionTypeCredit: decimal.Zero,
		models.TransactionTypeDebit:  decimal.Zero,
	}
	for _, r := range rows {
		totals[models.TransactionType(r.Type)] = fromUnits(r.Total)
	}
	return totals, nil
}

func transactionLogFromRow(r transactionLogRow) (models.TransactionLog, error) {
	meta, err := decodeMeta(r.Meta)
	if err != nil {
		return models.TransactionLog{}, err
	}
	return models.TransactionLog{
		Id:           r.Id,
		WalletId:     r.WalletId,
		UserId:       r.UserId,
		Type:         models.TransactionType(r.Type),
		Currency:     models.Currency(r.Currency),
		Amount:       fromUnits(r.Amount),
		Status:       models.TransactionStatus(r.Status),
		ErrorMessage: r.ErrorMessage,
		Description:  r.Description,
		Meta:         meta,
		CreatedAt:    fromStamp(r.CreatedAt),
		UpdatedAt:    fromStamp(r.UpdatedAt),
	}, nil
}

func transactionLogToRow(l *models.TransactionLog) (transactionLogRow, error) {
	amount, err := toUnits(l.Amount)
	if err != nil {
		return transactionLogRow{}, err
	}
	meta, err := encodeMeta(l.Meta)
	if err != nil {
		return transactionLogRow{}, err
	}
	return transactionLogRow{
		Id:           l.Id,
		WalletId:     l.WalletId,
		UserId:       l.UserId,
		Type:         string(l.Type),
		Currency:     string(l.Currency),
		Amount:       amount,
		Status:       string(l.Status),
		ErrorMessage: l.ErrorMessage,
		Description:  l.Description,
		Meta:         meta,
		CreatedAt:    toStamp(l.CreatedAt),
		UpdatedAt:    toStamp(l.UpdatedAt),
	}, nil
}

func stampTransactionLog(l *models.TransactionLog, now time.Time) {
	if l.Id == "" {
		l.Id = ulid.Make().String()
	}
	if l.Status == "" {
		l.Status = models.TransactionStatusPending
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}
}
