package models

import "time"

// PaymentProvider identifies the external payment channel.
type PaymentProvider string

const (
	ProviderWave        PaymentProvider = "WAVE"
	ProviderOrangeMoney PaymentProvider = "ORANGE_MONEY"
	ProviderPayTech     PaymentProvider = "PAYTECH"
	ProviderCard        PaymentProvider = "CARD"
)

// Valid reports whether p is one of the supported providers.
func (p PaymentProvider) Valid() bool {
	switch p {
	case ProviderWave, ProviderOrangeMoney, ProviderPayTech, ProviderCard:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentConfirmed PaymentStatus = "CONFIRMED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentExpired   PaymentStatus = "EXPIRED"
)

// Valid reports whether s is one of the closed set of payment statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentConfirmed, PaymentCancelled, PaymentFailed, PaymentExpired:
		return true
	}
	return false
}

// Terminal reports whether s is an absorbing state: once reached, no
// further transition is permitted.
func (s PaymentStatus) Terminal() bool {
	return s != PaymentPending
}

// TransactionType classifies a ledger entry attached to a payment.
type TransactionType string

const (
	TxnDebit  TransactionType = "DEBIT"
	TxnCredit TransactionType = "CREDIT"
	TxnRefund TransactionType = "REFUND"
)

// TransactionStatus is the settlement state of a transaction.
type TransactionStatus string

const (
	TxnPending   TransactionStatus = "PENDING"
	TxnSuccess   TransactionStatus = "SUCCESS"
	TxnFailed    TransactionStatus = "FAILED"
	TxnCancelled TransactionStatus = "CANCELLED"
)

// Transaction is a ledger entry created as a side effect of confirming or
// cancelling a payment. Transactions are embedded in the parent payment
// document so the status flip and the ledger write commit atomically,
// and they are immutable once written.
type Transaction struct {
	ID          string            `bson:"id" json:"id"`
	Type        TransactionType   `bson:"type" json:"type"`
	Amount      int64             `bson:"amount" json:"amount"`
	Status      TransactionStatus `bson:"status" json:"status"`
	ExternalRef string            `bson:"external_ref,omitempty" json:"external_ref,omitempty"`
	Details     map[string]any    `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
}

// Payment represents a buyer's purchase attempt against an approved listing.
// Amounts are whole CFA francs.
type Payment struct {
	ID           string          `bson:"_id" json:"id"`
	Reference    string          `bson:"reference" json:"reference"`
	Amount       int64           `bson:"amount" json:"amount"`
	Provider     PaymentProvider `bson:"provider" json:"provider"`
	BuyerID      string          `bson:"buyer_id" json:"buyer_id"`
	ListingID    int64           `bson:"listing_id" json:"listing_id"`
	Status       PaymentStatus   `bson:"status" json:"status"`
	Metadata     map[string]any  `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Transactions []Transaction   `bson:"transactions,omitempty" json:"transactions,omitempty"`
	CreatedAt    time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at" json:"updated_at"`
	ExpiresAt    time.Time       `bson:"expires_at" json:"expires_at"`
}

// TransactionOfType returns the first embedded transaction of the given type,
// or nil if none exists.
func (p *Payment) TransactionOfType(t TransactionType) *Transaction {
	for i := range p.Transactions {
		if p.Transactions[i].Type == t {
			return &p.Transactions[i]
		}
	}
	return nil
}
