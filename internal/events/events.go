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

// Package events fans transaction outcomes out to downstream consumers after
// the ledger has settled them.
package events

import (
	"context"
	"errors"
	"time"

	"wallet-ledger-go/internal/models"
)

const (
	TypeTransactionCompleted = "transaction.completed"
	TypeTransactionFailed    = "transaction.failed"
)

// Event is the JSON payload published for a settled transaction log entry.
type Event struct {
	EventType       string            `json:"event_type"`
	EntryId         string            `json:"entry_id"`
	UserId          string            `json:"user_id"`
	WalletId        string            `json:"wallet_id"`
	TransactionType string            `json:"transaction_type"`
	Status          string            `json:"status"`
	Currency        string            `json:"currency"`
	Amount          string            `json:"amount"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// FromEntry builds the event for a terminal entry.
func FromEntry(entry models.TransactionLog) Event {
	eventType := TypeTransactionCompleted
	if entry.Status == models.TransactionStatusFailed {
		eventType = TypeTransactionFailed
	}
	return Event{
		EventType:       eventType,
		EntryId:         entry.Id,
		UserId:          entry.UserId,
		WalletId:        entry.WalletId,
		TransactionType: string(entry.Type),
		Status:          string(entry.Status),
		Currency:        string(entry.Currency),
		Amount:          entry.Amount.String(),
		ErrorMessage:    entry.ErrorMessage,
		Metadata:        entry.Meta,
		Timestamp:       entry.UpdatedAt,
	}
}

// Publisher delivers events. Publish must not be called after Close.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Multi publishes to every sink, attempting all of them even when one fails.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
