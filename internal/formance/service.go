package formance

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger-go/internal/events"
	"wallet-ledger-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

const defaultLedgerName = "wallet-ledger"

// Compile-time check: *Mirror must satisfy events.Publisher.
var _ events.Publisher = (*Mirror)(nil)

// ledgerAPI is the slice of the Formance v2 ledger API the mirror uses.
type ledgerAPI interface {
	createLedger(ctx context.Context, req operations.V2CreateLedgerRequest) error
	createTransaction(ctx context.Context, req operations.V2CreateTransactionRequest) error
}

type sdkLedger struct {
	client *v3.Formance
}

func (l sdkLedger) createLedger(ctx context.Context, req operations.V2CreateLedgerRequest) error {
	_, err := l.client.Ledger.V2.CreateLedger(ctx, req)
	return err
}

func (l sdkLedger) createTransaction(ctx context.Context, req operations.V2CreateTransactionRequest) error {
	_, err := l.client.Ledger.V2.CreateTransaction(ctx, req)
	return err
}

// Mirror replays completed wallet movements into a Formance Stack ledger as
// double-entry postings. The local store stays the source of truth.
type Mirror struct {
	api        ledgerAPI
	ledger     string
	currencies *models.CurrencyRegistry
}

// NewMirror connects to the stack and creates the ledger if it doesn't already exist.
func NewMirror(ctx context.Context, cfg models.FormanceConfig, currencies *models.CurrencyRegistry) (*Mirror, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedgerName
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	m := newMirror(sdkLedger{client: client}, cfg.LedgerName, currencies)
	if err := m.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance mirror initialized", zap.String("ledger", cfg.LedgerName))
	return m, nil
}

func newMirror(api ledgerAPI, ledger string, currencies *models.CurrencyRegistry) *Mirror {
	if currencies == nil {
		currencies = models.DefaultCurrencies()
	}
	return &Mirror{api: api, ledger: ledger, currencies: currencies}
}

// ensureLedger creates the ledger if it does not already exist.
func (m *Mirror) ensureLedger(ctx context.Context) error {
	err := m.api.createLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: m.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "wallet-ledger",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", m.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", m.ledger))
	return nil
}

// Close is a no-op for the Formance backend (HTTP client needs no teardown).
func (m *Mirror) Close() error { return nil }

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}
