package engine

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"
)

// GetTransactionHistory lists the user's log entries, newest first. Filters
// only narrow the result; nothing matching yields an empty slice.
func (e *Engine) GetTransactionHistory(ctx context.Context, userId string, f models.HistoryFilter) (_ []models.TransactionLog, err error) {
	defer e.observe(opHistory, time.Now(), &err)

	filter := store.Filter{store.FieldUserId: userId}
	if f.Currency != "" {
		filter[store.FieldCurrency] = f.Currency
	}
	if f.Type != "" {
		if !f.Type.Valid() {
			return nil, invalidOperation(fmt.Sprintf("unknown transaction type %q", f.Type))
		}
		filter[store.FieldType] = f.Type
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, invalidOperation(fmt.Sprintf("unknown transaction status %q", f.Status))
		}
		filter[store.FieldStatus] = f.Status
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, invalidOperation("limit and offset cannot be negative")
	}

	entries, err := e.logs.Find(ctx, filter, store.FindOptions{
		Sort:   store.NewestFirst,
		Limit:  f.Limit,
		Offset: f.Offset,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to query transaction history: %w", err)
	}
	if entries == nil {
		entries = []models.TransactionLog{}
	}
	return entries, nil
}
