package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(status models.TransactionStatus) models.TransactionLog {
	return models.TransactionLog{
		Id:           "01HZX",
		WalletId:     "wallet-1",
		UserId:       "user-1",
		Type:         models.TransactionTypeDebit,
		Currency:     models.CurrencyUSD,
		Amount:       decimal.RequireFromString("30.50"),
		Status:       status,
		ErrorMessage: "",
		Meta:         map[string]string{models.MetaRecipientUsername: "bob"},
		UpdatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestFromEntry(t *testing.T) {
	ev := FromEntry(sampleEntry(models.TransactionStatusSuccess))
	assert.Equal(t, TypeTransactionCompleted, ev.EventType)
	assert.Equal(t, "30.5", ev.Amount)
	assert.Equal(t, "DEBIT", ev.TransactionType)
	assert.Equal(t, "bob", ev.Metadata[models.MetaRecipientUsername])

	failed := sampleEntry(models.TransactionStatusFailed)
	failed.ErrorMessage = "Unable to complete transfer"
	ev = FromEntry(failed)
	assert.Equal(t, TypeTransactionFailed, ev.EventType)
	assert.Equal(t, "Unable to complete transfer", ev.ErrorMessage)
}

type recordingPublisher struct {
	events []Event
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestMulti_PublishesToAllSinks(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("sink down")}
	ok := &recordingPublisher{}
	m := Multi{failing, ok}

	err := m.Publish(context.Background(), FromEntry(sampleEntry(models.TransactionStatusSuccess)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1)

	require.NoError(t, m.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}

type fakeRedis struct {
	channel string
	payload []byte
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisPublisher_Publish(t *testing.T) {
	rdb := &fakeRedis{}
	p := newRedisPublisher(rdb, "")

	require.NoError(t, p.Publish(context.Background(), FromEntry(sampleEntry(models.TransactionStatusSuccess))))
	assert.Equal(t, DefaultRedisChannel, rdb.channel)

	var decoded Event
	require.NoError(t, json.Unmarshal(rdb.payload, &decoded))
	assert.Equal(t, "01HZX", decoded.EntryId)
	assert.Equal(t, TypeTransactionCompleted, decoded.EventType)

	rdb.err = errors.New("connection refused")
	err := p.Publish(context.Background(), FromEntry(sampleEntry(models.TransactionStatusSuccess)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish event")
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_KeysByWallet(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), FromEntry(sampleEntry(models.TransactionStatusFailed))))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "wallet-1", string(w.msgs[0].Key))
	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, TypeTransactionFailed, string(w.msgs[0].Headers[0].Value))
}
