// Package store persists booking records with the two access patterns the
// payment flow needs: lookup by order id for client-initiated operations
// and lookup by checkout request id for gateway-initiated callbacks.
package store

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/tripplekay/KayCutts/models"
)

var (
	// ErrNotFound is returned when no booking matches the given key.
	ErrNotFound = errors.New("booking not found")
	// ErrDuplicateOrderID is returned when a caller-supplied order id is
	// already taken.
	ErrDuplicateOrderID = errors.New("order id already exists")
	// ErrCheckoutAssigned is returned when a checkout request id is already
	// bound, either to this booking with a different value or to another
	// booking. A checkout request id, once set, is immutable.
	ErrCheckoutAssigned = errors.New("checkout request id already assigned")
)

// Settlement carries the write-once fields recorded on the transition to
// paid. Empty fields are left untouched on the booking.
type Settlement struct {
	PaymentIntentID      string
	TransactionReceipt   string
	MpesaTransactionCode string
}

// BookingStore is the persistence contract for bookings. Implementations
// must keep payment_status monotonic (pending to paid only), keep
// settlement fields write-once, and make MarkPaid a no-op on an already
// paid booking so duplicate callback delivery cannot corrupt settlement
// data.
type BookingStore interface {
	// Create persists a new booking, generating an order id when absent.
	// On a persistence failure the in-memory booking is still returned
	// alongside the error so callers can degrade gracefully.
	Create(b *models.Booking) (*models.Booking, error)
	GetByOrderID(orderID string) (*models.Booking, error)
	GetByCheckoutRequestID(checkoutRequestID string) (*models.Booking, error)
	// List returns all bookings ordered newest-first.
	List() ([]models.Booking, error)
	// AttachCheckoutRequest binds a gateway-issued checkout request id to
	// the booking. Re-binding the same value is a no-op; binding a
	// different value fails with ErrCheckoutAssigned.
	AttachCheckoutRequest(orderID, checkoutRequestID string) error
	AttachCardOrder(orderID, cardOrderID string) error
	// MarkPaid applies the paid transition. The bool result reports
	// whether the booking actually transitioned; a duplicate call leaves
	// the record unchanged and returns false.
	MarkPaid(orderID string, settlement Settlement) (*models.Booking, bool, error)
	SaveUnmatchedCallback(ev *models.UnmatchedCallback) error
	ListUnmatchedCallbacks() ([]models.UnmatchedCallback, error)
}

// NewOrderID generates a unique-enough order token. Timestamp plus random
// suffix; collisions are practically impossible but not cryptographically
// guarded.
func NewOrderID() string {
	return fmt.Sprintf("ORD-%d-%03d", time.Now().UnixMilli(), rand.Intn(1000))
}

// applyPaidTransition converges a booking to paid in place. Settlement
// fields are only written when currently empty. Returns false when the
// booking was already paid.
func applyPaidTransition(b *models.Booking, s Settlement) bool {
	if b.Paid() {
		return false
	}
	b.PaymentStatus = models.PaymentStatusPaid
	if b.PaymentIntentID == "" && s.PaymentIntentID != "" {
		b.PaymentIntentID = s.PaymentIntentID
	}
	if b.TransactionReceipt == "" && s.TransactionReceipt != "" {
		b.TransactionReceipt = s.TransactionReceipt
	}
	if b.MpesaTransactionCode == "" && s.MpesaTransactionCode != "" {
		b.MpesaTransactionCode = s.MpesaTransactionCode
	}
	return true
}
