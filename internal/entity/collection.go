package entity

type Collection struct {
	Base

	Address string `gorm:"uniqueIndex"`
	Network string
	Name    string

	MaxSupply   int64
	MintedCount int64

	BaseURI     string
	ContractURI string

	// CreatorAddress doubles as the escrow-owner key: the escrow wallet whose
	// address equals this field custodially holds the collection's unsold
	// tokens and signs platform transactions for it.
	CreatorAddress string
}

type EscrowWallet struct {
	Base

	Address string `gorm:"uniqueIndex"`

	// WalletNonce combines with the platform secret to derive this wallet's
	// private key. Never stored anywhere else.
	WalletNonce string
}
