package entity

import (
	"database/sql"

	"github.com/rs-ent/starglow-sub013/pkg/enum"
)

type PaymentProductType string

var (
	PaymentProductNFT   = enum.New(PaymentProductType("nfts"))
	PaymentProductEvent = enum.New(PaymentProductType("events"))
)

type PaymentStatusType string

var (
	PaymentPaid      = enum.New(PaymentStatusType("paid"))
	PaymentCompleted = enum.New(PaymentStatusType("completed"))
	PaymentFailed    = enum.New(PaymentStatusType("failed"))
	PaymentCancelled = enum.New(PaymentStatusType("cancelled"))
	PaymentRefunded  = enum.New(PaymentStatusType("refunded"))
)

// IsTerminal reports whether no further transition out of s is allowed.
func (s PaymentStatusType) IsTerminal() bool {
	switch s {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}

	return false
}

type Payment struct {
	Base

	UserID string

	ProductTable PaymentProductType
	ProductID    string
	Quantity     int

	ReceiverWalletAddress string

	Status PaymentStatusType

	// PostProcessResult holds the fulfillment outcome payload. Returned
	// verbatim on repeated dispatch of a terminal payment.
	PostProcessResult Map

	FailureReason string

	CompletedAt sql.NullTime
	RefundedAt  sql.NullTime
}
