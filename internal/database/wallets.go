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
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Compile-time check: *WalletStore must satisfy store.WalletRepository.
var _ store.WalletRepository = (*WalletStore)(nil)

type walletRow struct {
	Id        string `db:"id"`
	UserId    string `db:"user_id"`
	Currency  string `db:"currency"`
	Balance   int64  `db:"balance"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

var walletColumns = []column{
	{store.FieldId, kindText},
	{store.FieldUserId, kindText},
	{store.FieldCurrency, kindText},
	{store.FieldBalance, kindAmount},
	{store.FieldCreatedAt, kindTime},
	{store.FieldUpdatedAt, kindTime},
}

// WalletStore is the SQLite wallet repository.
type WalletStore struct {
	*table[models.Wallet, walletRow]
}

func NewWalletStore(db *sqlx.DB) *WalletStore {
	return &WalletStore{newTable(db, "wallets", walletColumns, walletFromRow, walletToRow, stampWallet)}
}

// StartSession opens a transactional scope shared by every store on the same database.
func (w *WalletStore) StartSession(ctx context.Context) (store.Session, error) {
	return beginSession(ctx, w.db)
}

func walletFromRow(r walletRow) (models.Wallet, error) {
	return models.Wallet{
		Id:        r.Id,
		UserId:    r.UserId,
		Currency:  models.Currency(r.Currency),
		Balance:   fromUnits(r.Balance),
		CreatedAt: fromStamp(r.CreatedAt),
		UpdatedAt: fromStamp(r.UpdatedAt),
	}, nil
}

func walletToRow(w *models.Wallet) (walletRow, error) {
	balance, err := toUnits(w.Balance)
	if err != nil {
		return walletRow{}, err
	}
	return walletRow{
		Id:        w.Id,
		UserId:    w.UserId,
		Currency:  string(w.Currency),
		Balance:   balance,
		CreatedAt: toStamp(w.CreatedAt),
		UpdatedAt: toStamp(w.UpdatedAt),
	}, nil
}

func stampWallet(w *models.Wallet, now time.Time) {
	if w.Id == "" {
		w.Id = uuid.New().String()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = w.CreatedAt
	}
}
