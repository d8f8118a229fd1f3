package store

import (
	"errors"
	"time"

	"github.com/tripplekay/KayCutts/models"
	"gorm.io/gorm"
)

// GormStore backs the booking contract with Postgres. Row-level updates
// inside transactions replace the file store's whole-collection rewrite,
// which is the recommended driver once more than one process serves
// traffic.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(b *models.Booking) (*models.Booking, error) {
	if b.OrderID == "" {
		b.OrderID = NewOrderID()
	}
	if b.PaymentMethod == "" {
		b.PaymentMethod = models.PaymentMethodUnknown
	}
	b.PaymentStatus = models.PaymentStatusPending
	b.CreatedAt = time.Now().UTC()

	if err := s.db.Create(b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateOrderID
		}
		return b, err
	}
	return b, nil
}

func (s *GormStore) GetByOrderID(orderID string) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.Where("order_id = ?", orderID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *GormStore) GetByCheckoutRequestID(checkoutRequestID string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.Where("checkout_request_id = ? AND checkout_request_id <> ''", checkoutRequestID).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *GormStore) List() ([]models.Booking, error) {
	var bookings []models.Booking
	if err := s.db.Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *GormStore) AttachCheckoutRequest(orderID, checkoutRequestID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Booking{}).
			Where("checkout_request_id = ? AND order_id <> ?", checkoutRequestID, orderID).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrCheckoutAssigned
		}

		var b models.Booking
		if err := tx.Where("order_id = ?", orderID).First(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if b.CheckoutRequestID != "" {
			if b.CheckoutRequestID == checkoutRequestID {
				return nil
			}
			return ErrCheckoutAssigned
		}
		return tx.Model(&b).Update("checkout_request_id", checkoutRequestID).Error
	})
}

func (s *GormStore) AttachCardOrder(orderID, cardOrderID string) error {
	res := s.db.Model(&models.Booking{}).
		Where("order_id = ?", orderID).
		Update("card_order_id", cardOrderID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) MarkPaid(orderID string, settlement Settlement) (*models.Booking, bool, error) {
	var updated models.Booking
	transitioned := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.Where("order_id = ?", orderID).First(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if applyPaidTransition(&b, settlement) {
			transitioned = true
			if err := tx.Save(&b).Error; err != nil {
				return err
			}
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &updated, transitioned, nil
}

func (s *GormStore) SaveUnmatchedCallback(ev *models.UnmatchedCallback) error {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}
	return s.db.Create(ev).Error
}

func (s *GormStore) ListUnmatchedCallbacks() ([]models.UnmatchedCallback, error) {
	var events []models.UnmatchedCallback
	if err := s.db.Order("received_at DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
