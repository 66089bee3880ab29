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
	"strings"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Compile-time check: *UserStore must satisfy store.UserRepository.
var _ store.UserRepository = (*UserStore)(nil)

type userRow struct {
	Id        string `db:"id"`
	FullName  string `db:"full_name"`
	Username  string `db:"username"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r userRow) model() models.User {
	return models.User{
		Id:        r.Id,
		FullName:  r.FullName,
		Username:  r.Username,
		CreatedAt: fromStamp(r.CreatedAt),
		UpdatedAt: fromStamp(r.UpdatedAt),
	}
}

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// NormalizeUsername trims and lowercases a username the way it is stored.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, queryListUsers); err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}

	users := make([]models.User, len(rows))
	for i, r := range rows {
		users[i] = r.model()
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *UserStore) FindById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))
	return s.get(ctx, queryGetUserById, userId)
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	username = NormalizeUsername(username)
	zap.L().Debug("Querying user by username", zap.String("username", username))
	return s.get(ctx, queryGetUserByUsername, username)
}

func (s *UserStore) get(ctx context.Context, query string, arg string) (*models.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("Failed to query user", zap.String("key", arg), zap.Error(err))
		return nil, fmt.Errorf("unable to query user: %w", err)
	}
	user := row.model()
	return &user, nil
}

func (s *UserStore) Create(ctx context.Context, fullName, username string) (*models.User, error) {
	username = NormalizeUsername(username)
	fullName = strings.TrimSpace(fullName)
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	now := time.Now().UTC()
	user := models.User{
		Id:        uuid.New().String(),
		FullName:  fullName,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	zap.L().Info("Creating user", zap.String("id", user.Id), zap.String("username", username))

	_, err := s.db.ExecContext(ctx, queryInsertUser, user.Id, user.FullName, user.Username, toStamp(now), toStamp(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user %s", store.ErrDuplicate, username)
		}
		zap.L().Error("Failed to insert user", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	return &user, nil
}
