package models

import (
	"time"
)

// Payment status constants. The status is monotonic: once a booking is
// paid it never reverts to pending.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Payment method constants
const (
	PaymentMethodMpesa   = "mpesa"
	PaymentMethodCard    = "card"
	PaymentMethodUnknown = "unknown"
)

// Booking is the central entity. It is keyed by OrderID for
// client-initiated operations and, once an STK push has been initiated,
// by CheckoutRequestID for gateway-initiated callbacks (the Daraja
// callback does not echo the order id back).
type Booking struct {
	OrderID           string `json:"order_id" gorm:"primaryKey"`
	ServiceID         string `json:"service_id"`
	ServiceName       string `json:"service_name"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	Notes             string `json:"notes"`
	Price             int    `json:"price"`
	PaymentMethod     string `json:"payment_method"`
	PaymentStatus     string `json:"payment_status"`
	CheckoutRequestID string `json:"checkout_request_id" gorm:"index"`
	CardOrderID       string `json:"card_order_id"`

	// Settlement fields, written once on the transition to paid.
	PaymentIntentID      string `json:"payment_intent_id"`
	TransactionReceipt   string `json:"transaction_receipt"`
	MpesaTransactionCode string `json:"mpesa_transaction_code"`

	CalendarEventID   string `json:"calendar_event_id,omitempty"`
	CalendarEventLink string `json:"calendar_event_link,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Paid reports whether the booking has reached its terminal status.
func (b *Booking) Paid() bool {
	return b.PaymentStatus == PaymentStatusPaid
}
