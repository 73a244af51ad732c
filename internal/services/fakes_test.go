package services

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/database"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// memoryStore implements TravelOptionStore and BookingStore with the same atomicity
// as the SQL repositories: one mutex plays the role of the row lock.
type memoryStore struct {
	mu       sync.Mutex
	options  map[uuid.UUID]models.TravelOption
	bookings map[uuid.UUID]models.Booking
	order    []uuid.UUID

	takenReferences map[string]bool
	searchErr       error
	searches        int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		options:         make(map[uuid.UUID]models.TravelOption),
		bookings:        make(map[uuid.UUID]models.Booking),
		takenReferences: make(map[string]bool),
	}
}

func (m *memoryStore) addOption(opt models.TravelOption) models.TravelOption {
	m.mu.Lock()
	defer m.mu.Unlock()
	if opt.ID == uuid.Nil {
		opt.ID = uuid.New()
	}
	if opt.TotalSeats == 0 {
		opt.TotalSeats = opt.AvailableSeats
	}
	opt.CreatedAt = time.Now()
	m.options[opt.ID] = opt
	return opt
}

func (m *memoryStore) availableSeats(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.options[id].AvailableSeats
}

func (m *memoryStore) Create(ctx context.Context, opt *models.TravelOption) error {
	stored := m.addOption(*opt)
	*opt = stored
	return nil
}

func (m *memoryStore) CreateBatch(ctx context.Context, opts []*models.TravelOption) error {
	for _, opt := range opts {
		if err := m.Create(ctx, opt); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (*models.TravelOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opt, ok := m.options[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "travel option", ID: id.String()}
	}
	return &opt, nil
}

func (m *memoryStore) Search(ctx context.Context, c *models.SearchCriteria) ([]models.TravelOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	if m.searchErr != nil {
		return nil, m.searchErr
	}

	result := []models.TravelOption{}
	for _, opt := range m.options {
		if opt.Source != c.Source || opt.Destination != c.Destination {
			continue
		}
		if opt.DepartureDate.String() != c.DepartureDate.String() || opt.AvailableSeats < c.Passengers {
			continue
		}
		if c.Type != nil && opt.Type != *c.Type {
			continue
		}
		if c.MaxPrice != nil && opt.Price > *c.MaxPrice {
			continue
		}
		result = append(result, opt)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Price < result[j].Price })
	return result, nil
}

func (m *memoryStore) FindDiscrepancies(ctx context.Context) ([]models.InventoryDiscrepancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	confirmed := make(map[uuid.UUID]int)
	for _, b := range m.bookings {
		if b.Status == models.BookingStatusConfirmed {
			confirmed[b.TravelOptionID] += b.NumberOfSeats
		}
	}

	result := []models.InventoryDiscrepancy{}
	for id, opt := range m.options {
		if opt.TotalSeats != opt.AvailableSeats+confirmed[id] {
			result = append(result, models.InventoryDiscrepancy{
				TravelOptionID: id,
				Source:         opt.Source,
				Destination:    opt.Destination,
				TotalSeats:     opt.TotalSeats,
				AvailableSeats: opt.AvailableSeats,
				ConfirmedSeats: confirmed[id],
			})
		}
	}
	return result, nil
}

func (m *memoryStore) CreateWithSeatReservation(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	opt, ok := m.options[booking.TravelOptionID]
	if !ok {
		return &models.NotFoundError{Resource: "travel option", ID: booking.TravelOptionID.String()}
	}
	if opt.AvailableSeats < booking.NumberOfSeats {
		return &models.CapacityError{Requested: booking.NumberOfSeats, Available: opt.AvailableSeats}
	}
	if m.takenReferences[booking.BookingReference] {
		return database.ErrDuplicateReference
	}
	if booking.IdempotencyKey != nil {
		for _, b := range m.bookings {
			if b.UserID == booking.UserID && b.IdempotencyKey != nil && *b.IdempotencyKey == *booking.IdempotencyKey {
				return database.ErrDuplicateIdempotencyKey
			}
		}
	}

	opt.AvailableSeats -= booking.NumberOfSeats
	m.options[opt.ID] = opt

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.Status = models.BookingStatusConfirmed
	booking.CreatedAt = time.Now()
	booking.BookingDate = booking.CreatedAt
	m.bookings[booking.ID] = *booking
	m.order = append(m.order, booking.ID)
	m.takenReferences[booking.BookingReference] = true
	return nil
}

func (m *memoryStore) Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[bookingID]
	if !ok || b.UserID != userID || b.Status != models.BookingStatusConfirmed {
		return nil, database.ErrBookingNotCancellable
	}

	now := time.Now()
	b.Status = models.BookingStatusCancelled
	b.CancelledAt = &now
	m.bookings[bookingID] = b

	opt := m.options[b.TravelOptionID]
	opt.AvailableSeats += b.NumberOfSeats
	m.options[opt.ID] = opt

	return &b, nil
}

func (m *memoryStore) withOption(b models.Booking) models.BookingWithTravelOption {
	return models.BookingWithTravelOption{Booking: b, TravelOption: m.options[b.TravelOptionID]}
}

func (m *memoryStore) GetByBookingID(bookingID uuid.UUID) (*models.BookingWithTravelOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "booking", ID: bookingID.String()}
	}
	result := m.withOption(b)
	return &result, nil
}

func (m *memoryStore) GetByUserID(ctx context.Context, userID uuid.UUID, scope models.BookingScope, today models.Date) ([]models.BookingWithTravelOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []models.BookingWithTravelOption{}
	for i := len(m.order) - 1; i >= 0; i-- {
		b := m.bookings[m.order[i]]
		if b.UserID != userID {
			continue
		}
		departure := m.options[b.TravelOptionID].DepartureDate
		if scope == models.BookingScopeUpcoming && (departure.Before(today) || b.Status != models.BookingStatusConfirmed) {
			continue
		}
		if scope == models.BookingScopePast && !departure.Before(today) {
			continue
		}
		result = append(result, m.withOption(b))
	}
	return result, nil
}

func (m *memoryStore) GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.BookingWithTravelOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.UserID == userID && b.IdempotencyKey != nil && *b.IdempotencyKey == key {
			result := m.withOption(b)
			return &result, nil
		}
	}
	return nil, nil
}

// bookingStore adapts memoryStore to BookingStore; GetByID is taken by the option side.
type bookingStore struct{ *memoryStore }

func (b bookingStore) GetByID(ctx context.Context, bookingID uuid.UUID) (*models.BookingWithTravelOption, error) {
	return b.GetByBookingID(bookingID)
}

// racingStore simulates a same-key request that commits while another is in flight:
// the first hiddenLookups idempotency lookups miss, and beforeReserve runs once
// ahead of the next seat reservation.
type racingStore struct {
	bookingStore
	mu            sync.Mutex
	hiddenLookups int
	beforeReserve func()
}

func (r *racingStore) GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.BookingWithTravelOption, error) {
	r.mu.Lock()
	hide := r.hiddenLookups > 0
	if hide {
		r.hiddenLookups--
	}
	r.mu.Unlock()
	if hide {
		return nil, nil
	}
	return r.bookingStore.GetByIdempotencyKey(ctx, userID, key)
}

func (r *racingStore) CreateWithSeatReservation(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	hook := r.beforeReserve
	r.beforeReserve = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return r.bookingStore.CreateWithSeatReservation(ctx, booking)
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []uuid.UUID
	cancelled []uuid.UUID
	err       error
}

func (p *recordingPublisher) PublishBookingConfirmed(ctx context.Context, booking *models.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, booking.ID)
	return p.err
}

func (p *recordingPublisher) PublishBookingCancelled(ctx context.Context, booking *models.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, booking.ID)
	return p.err
}

type recordingRanking struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (r *recordingRanking) Increment(ctx context.Context, source, destination string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.counts == nil {
		r.counts = make(map[string]int64)
	}
	r.counts[source+"|"+destination]++
	return nil
}

func (r *recordingRanking) Top(ctx context.Context, limit int) ([]models.PopularRoute, error) {
	routes := []models.PopularRoute{}
	for i := 0; i < limit && i < 3; i++ {
		routes = append(routes, models.PopularRoute{Source: "A", Destination: "B", SearchCount: int64(limit)})
	}
	return routes, nil
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func mustDate(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleOption(price int64, seats int) models.TravelOption {
	airline := "Delta Airlines"
	return models.TravelOption{
		Type:           models.TravelTypeFlight,
		Source:         "New York",
		Destination:    "Los Angeles",
		DepartureDate:  mustDate("2024-03-15"),
		DepartureTime:  "2:30 PM",
		Price:          models.NewMoneyFromCents(price),
		AvailableSeats: seats,
		Airline:        &airline,
	}
}

func validPassenger() models.PassengerDetails {
	return models.PassengerDetails{Name: "Jane Doe", Email: "jane@example.com", Phone: "+15551234567"}
}
