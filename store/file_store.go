package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tripplekay/KayCutts/models"
	"github.com/tripplekay/KayCutts/utils"
)

// FileStore keeps bookings in a single JSON file. Every mutation is a full
// read-modify-write cycle over the collection, serialized behind one mutex
// so concurrent writers in this process cannot clobber each other's
// snapshot. That still leaves the file unsuitable for multi-process
// deployments; use the Postgres-backed store there.
type FileStore struct {
	mu             sync.Mutex
	path           string
	deadLetterPath string
}

// NewFileStore creates a store over the given bookings file. Unmatched
// callback dead letters go to a sibling file in the same directory.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:           path,
		deadLetterPath: filepath.Join(filepath.Dir(path), "unmatched_callbacks.json"),
	}
}

// load reads the full collection. A missing or unreadable file degrades to
// an empty collection with a log line, matching booking creation's
// degrade-gracefully policy.
func (s *FileStore) load() []models.Booking {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			utils.LogError("Failed to read bookings file: %v", err)
		}
		return nil
	}
	var bookings []models.Booking
	if err := json.Unmarshal(raw, &bookings); err != nil {
		utils.LogError("Failed to parse bookings file: %v", err)
		return nil
	}
	return bookings
}

func (s *FileStore) save(bookings []models.Booking) error {
	raw, err := json.MarshalIndent(bookings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0644)
}

func (s *FileStore) Create(b *models.Booking) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := s.load()

	if b.OrderID == "" {
		b.OrderID = NewOrderID()
	} else {
		for i := range bookings {
			if bookings[i].OrderID == b.OrderID {
				return nil, ErrDuplicateOrderID
			}
		}
	}
	if b.PaymentMethod == "" {
		b.PaymentMethod = models.PaymentMethodUnknown
	}
	b.PaymentStatus = models.PaymentStatusPending
	b.CreatedAt = time.Now().UTC()

	bookings = append(bookings, *b)
	if err := s.save(bookings); err != nil {
		// The caller still gets the in-memory record; creation degrades
		// to a persistence warning rather than aborting.
		return b, err
	}
	return b, nil
}

func (s *FileStore) GetByOrderID(orderID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findBooking(s.load(), func(b *models.Booking) bool { return b.OrderID == orderID })
}

func (s *FileStore) GetByCheckoutRequestID(checkoutRequestID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findBooking(s.load(), func(b *models.Booking) bool {
		return b.CheckoutRequestID != "" && b.CheckoutRequestID == checkoutRequestID
	})
}

func (s *FileStore) List() ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := s.load()
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (s *FileStore) AttachCheckoutRequest(orderID, checkoutRequestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := s.load()
	idx := -1
	for i := range bookings {
		if bookings[i].OrderID == orderID {
			idx = i
			continue
		}
		if bookings[i].CheckoutRequestID == checkoutRequestID {
			return ErrCheckoutAssigned
		}
	}
	if idx == -1 {
		return ErrNotFound
	}
	if existing := bookings[idx].CheckoutRequestID; existing != "" {
		if existing == checkoutRequestID {
			return nil
		}
		return ErrCheckoutAssigned
	}
	bookings[idx].CheckoutRequestID = checkoutRequestID
	return s.save(bookings)
}

func (s *FileStore) AttachCardOrder(orderID, cardOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := s.load()
	for i := range bookings {
		if bookings[i].OrderID == orderID {
			bookings[i].CardOrderID = cardOrderID
			return s.save(bookings)
		}
	}
	return ErrNotFound
}

func (s *FileStore) MarkPaid(orderID string, settlement Settlement) (*models.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := s.load()
	for i := range bookings {
		if bookings[i].OrderID != orderID {
			continue
		}
		if !applyPaidTransition(&bookings[i], settlement) {
			// Already paid: duplicate delivery leaves the record untouched.
			updated := bookings[i]
			return &updated, false, nil
		}
		updated := bookings[i]
		if err := s.save(bookings); err != nil {
			return &updated, true, err
		}
		return &updated, true, nil
	}
	return nil, false, ErrNotFound
}

func (s *FileStore) SaveUnmatchedCallback(ev *models.UnmatchedCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []models.UnmatchedCallback
	if raw, err := os.ReadFile(s.deadLetterPath); err == nil {
		if err := json.Unmarshal(raw, &events); err != nil {
			utils.LogError("Failed to parse dead-letter file, starting fresh: %v", err)
			events = nil
		}
	}

	ev.ID = uint(len(events) + 1)
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}
	events = append(events, *ev)

	raw, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.deadLetterPath, raw, 0644)
}

func (s *FileStore) ListUnmatchedCallbacks() ([]models.UnmatchedCallback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.deadLetterPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var events []models.UnmatchedCallback
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func findBooking(bookings []models.Booking, match func(*models.Booking) bool) (*models.Booking, error) {
	for i := range bookings {
		if match(&bookings[i]) {
			b := bookings[i]
			return &b, nil
		}
	}
	return nil, ErrNotFound
}
