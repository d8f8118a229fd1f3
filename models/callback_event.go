package models

import (
	"time"
)

// UnmatchedCallback is a dead-letter record for gateway callbacks whose
// CheckoutRequestID matched no booking. The gateway is still acknowledged
// with a success envelope so it does not retry, but the event is kept for
// manual reconciliation instead of being dropped.
type UnmatchedCallback struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	CheckoutRequestID string    `json:"checkout_request_id" gorm:"index"`
	ResultCode        int       `json:"result_code"`
	ResultDesc        string    `json:"result_desc"`
	Receipt           string    `json:"receipt"`
	Amount            string    `json:"amount"`
	Phone             string    `json:"phone"`
	RawPayload        string    `json:"raw_payload"`
	ReceivedAt        time.Time `json:"received_at"`
}
