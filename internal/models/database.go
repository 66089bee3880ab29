package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a balance change on one wallet.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// TransactionStatus is the lifecycle state of a transaction log entry.
// PENDING moves to exactly one of SUCCESS or FAILED and never changes again.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusSuccess, TransactionStatusFailed:
		return true
	}
	return false
}

func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// Metadata keys recorded on transfer entries
const (
	MetaKind              = "kind"
	MetaTransferId        = "transferId"
	MetaRecipientId       = "recipientId"
	MetaRecipientUsername = "recipientUsername"
	MetaRecipientWallet   = "recipientWallet"
	MetaSenderId          = "senderId"
	MetaSenderUsername    = "senderUsername"
	MetaSenderWallet      = "senderWallet"

	KindDeposit    = "deposit"
	KindWithdrawal = "withdrawal"
	KindTransfer   = "transfer"
)

type User struct {
	Id        string    `db:"id"`
	FullName  string    `db:"full_name"`
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Wallet is the balance a user holds in one currency
type Wallet struct {
	Id        string          `db:"id"`
	UserId    string          `db:"user_id"`
	Currency  Currency        `db:"currency"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// TransactionLog is the audit record of one balance-affecting attempt
type TransactionLog struct {
	Id           string            `db:"id"`
	WalletId     string            `db:"wallet_id"`
	UserId       string            `db:"user_id"`
	Type         TransactionType   `db:"type"`
	Currency     Currency          `db:"currency"`
	Amount       decimal.Decimal   `db:"amount"`
	Status       TransactionStatus `db:"status"`
	ErrorMessage string            `db:"error_message"`
	Description  string            `db:"description"`
	Meta         map[string]string `db:"meta"`
	CreatedAt    time.Time         `db:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at"`
}

// HistoryFilter narrows a user's transaction history. Zero values mean "any".
type HistoryFilter struct {
	Currency Currency
	Type     TransactionType
	Status   TransactionStatus
	Limit    int
	Offset   int
}
