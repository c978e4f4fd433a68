package model

type FulfillPaymentRequest struct {
	PaymentID string `json:"payment_id"`
}

type FulfillPaymentResponse struct {
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
}
