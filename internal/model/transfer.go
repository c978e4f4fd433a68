package model

// TransferAuthorization carries the owner's personal-sign over the
// (from, to, tokenId) binding, hex encoded.
type TransferAuthorization struct {
	TokenID   int64  `json:"token_id"`
	Signature string `json:"signature"`
}

type TransferWithAuthorizationRequest struct {
	PaymentID      string                  `json:"payment_id"`
	FromAddress    string                  `json:"from_address"`
	ToAddress      string                  `json:"to_address"`
	Authorizations []TransferAuthorization `json:"authorizations"`
	Gas            GasOptions              `json:"gas,omitempty"`
}

type TransferResponse struct {
	TxHash   string  `json:"tx_hash"`
	TokenIDs []int64 `json:"token_ids"`
}
