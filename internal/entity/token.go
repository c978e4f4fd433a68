package entity

import (
	"database/sql"

	"github.com/rs-ent/starglow-sub013/pkg/enum"
)

type Token struct {
	CollectionID string     `gorm:"primaryKey"`
	Collection   Collection `gorm:"foreignKey:CollectionID"`

	// TokenID is the on-chain token id, unique within the collection.
	TokenID int64 `gorm:"primaryKey"`

	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime

	OwnerAddress string

	// CurrentOwnerAddress caches the last chain-observed owner. It is never
	// consulted to decide transfer eligibility; the chain is.
	CurrentOwnerAddress string

	// UserID is the platform account the token was fulfilled to. Stake and
	// unstake requests must come from this account. Empty while the token
	// sits in escrow.
	UserID string

	IsStaked bool
	IsLocked bool
	IsBurned bool

	StakedAt sql.NullTime

	// UnlockAt is an optional commitment made at stake time; unstaking is
	// rejected until it passes.
	UnlockAt sql.NullTime

	MintPrice         float64
	TransferCount     int
	LastTransferredAt sql.NullTime

	MetadataURI string
}

type TokenEventType string

var (
	TokenEventMint     = enum.New(TokenEventType("mint"))
	TokenEventTransfer = enum.New(TokenEventType("transfer"))
	TokenEventLock     = enum.New(TokenEventType("lock"))
	TokenEventUnlock   = enum.New(TokenEventType("unlock"))
)

// TokenEvent is an append-only ownership history row. It is derived from the
// authoritative token update, so writing it may be deferred.
type TokenEvent struct {
	SnowFlakeBase

	CollectionID string
	TokenID      int64

	Type        TokenEventType
	FromAddress string
	ToAddress   string
	TxHash      string
}

// TokenMetadataFailure records a token whose metadata blob could not be
// generated. Replayed by the single-token regeneration operation.
type TokenMetadataFailure struct {
	CollectionID string `gorm:"primaryKey"`
	TokenID      int64  `gorm:"primaryKey"`

	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime

	Reason string
}
