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

const (
	// User queries
	queryListUsers = `
		SELECT id, full_name, username, created_at, updated_at
		FROM users
		ORDER BY created_at, rowid`

	queryInsertUser = `
		INSERT INTO users (id, full_name, username, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, full_name, username, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryGetUserByUsername = `
		SELECT id, full_name, username, created_at, updated_at
		FROM users
		WHERE username = ?`

	// Transaction log queries
	querySumTransactionAmounts = `
		SELECT type, COALESCE(SUM(amount), 0) AS total
		FROM transaction_logs
		WHERE wallet_id = ? AND status = ?
		GROUP BY type`
)
