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

// Package store defines the data-access contracts the wallet engine is built
// against. Backends implement them once per entity.
package store

import (
	"context"
	"errors"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrForeignSession = errors.New("session belongs to a different store")
	ErrSessionClosed  = errors.New("session already committed or aborted")
	ErrDuplicate      = errors.New("record already exists")
	ErrEmptyUpdate    = errors.New("update has no fields")
)

// Session is a unit of work. Writes performed with a session are applied all
// together on Commit or not at all on Abort. Abort after Commit is a no-op.
type Session interface {
	Commit() error
	Abort() error
}

// Repository is the generic accessor every entity store provides. A nil
// session runs the call on its own, atomic at the single-record level only.
type Repository[T any] interface {
	// FindById returns nil, nil when no record has the id.
	FindById(ctx context.Context, id string, sess Session) (*T, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, filter Filter, sess Session) (*T, error)
	Find(ctx context.Context, filter Filter, opts FindOptions, sess Session) ([]T, error)
	Count(ctx context.Context, filter Filter, sess Session) (int64, error)

	InsertOne(ctx context.Context, rec *T, sess Session) (*T, error)
	InsertMany(ctx context.Context, recs []T, sess Session) ([]T, error)

	// UpdateOne changes at most one matching record and reports rows affected.
	UpdateOne(ctx context.Context, filter Filter, update Update, sess Session) (int64, error)
	UpdateMany(ctx context.Context, filter Filter, update Update, sess Session) (int64, error)
	// FindOneAndUpdate returns the post-update record, or nil, nil when nothing matched.
	FindOneAndUpdate(ctx context.Context, filter Filter, update Update, sess Session) (*T, error)
}

// WalletRepository is the wallet accessor plus transactional scope acquisition.
type WalletRepository interface {
	Repository[models.Wallet]
	StartSession(ctx context.Context) (Session, error)
}

// TransactionLogRepository is the append-only audit log accessor.
type TransactionLogRepository interface {
	Repository[models.TransactionLog]
	// SumAmounts totals amounts per type over a wallet's entries with the given status.
	SumAmounts(ctx context.Context, walletId string, status models.TransactionStatus) (map[models.TransactionType]decimal.Decimal, error)
}

// UserRepository is the identity lookup consumed by the engine.
type UserRepository interface {
	// FindByUsername returns nil, nil when no user has the username.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindById(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, fullName, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}
