package model

type GasOptions struct {
	GasLimit uint64 `json:"gas_limit,omitempty"`

	// GasPrice is in wei. Zero means use the network-suggested price.
	GasPrice int64 `json:"gas_price,omitempty"`
}

type MintRequest struct {
	CollectionAddress string     `json:"collection_address"`
	Recipient         string     `json:"recipient"`
	Quantity          int        `json:"quantity"`
	MintPrice         float64    `json:"mint_price,omitempty"`
	Gas               GasOptions `json:"gas,omitempty"`
}

type MintResponse struct {
	TxHash      string  `json:"tx_hash"`
	FromTokenID int64   `json:"from_token_id"`
	ToTokenID   int64   `json:"to_token_id"`
	TokenIDs    []int64 `json:"token_ids"`
}

type RegenerateTokenMetadataRequest struct {
	CollectionAddress string `json:"collection_address"`
	TokenID           int64  `json:"token_id"`
}

type RegenerateTokenMetadataResponse struct {
	MetadataURI string `json:"metadata_uri"`
}
