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
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"wallet-ledger-go/internal/store"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Compile-time check: *session must satisfy store.Session.
var _ store.Session = (*session)(nil)

// session wraps one SQLite transaction. The connection string sets
// _txlock=immediate, so the write lock is taken at BEGIN.
type session struct {
	owner *sqlx.DB
	tx    *sqlx.Tx

	mu   sync.Mutex
	done bool
}

func beginSession(ctx context.Context, db *sqlx.DB) (*session, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	return &session{owner: db, tx: tx}, nil
}

func (s *session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return store.ErrSessionClosed
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit transaction: %w", err)
	}
	return nil
}

func (s *session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		zap.L().Warn("Failed to roll back transaction", zap.Error(err))
		return fmt.Errorf("unable to roll back transaction: %w", err)
	}
	return nil
}

func (s *session) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// runner resolves the handle a call executes on: the session's transaction
// when one is supplied, the pool otherwise.
func runner(db *sqlx.DB, sess store.Session) (sqlx.ExtContext, error) {
	if sess == nil {
		return db, nil
	}
	s, ok := sess.(*session)
	if !ok || s.owner != db {
		return nil, store.ErrForeignSession
	}
	if s.closed() {
		return nil, store.ErrSessionClosed
	}
	return s.tx, nil
}
