package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/travel-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBookingService() (*BookingService, *memoryStore, *recordingPublisher) {
	return setupBookingServiceWith(newMemoryStore())
}

func TestCreateBooking_Success(t *testing.T) {
	service, store, publisher := setupBookingService()
	option := store.addOption(sampleOption(10000, 5))
	userID := uuid.New()

	clientTotal := models.NewMoneyFromCents(1)
	booking, replayed, err := service.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
		TravelOptionID:   option.ID,
		NumberOfSeats:    2,
		PassengerDetails: validPassenger(),
		TotalPrice:       &clientTotal,
	})
	require.NoError(t, err)
	assert.False(t, replayed)

	assert.NotEqual(t, uuid.Nil, booking.ID)
	assert.Regexp(t, `^BK[0-9A-F]{8}$`, booking.BookingReference)
	assert.Equal(t, userID, booking.UserID)
	assert.Equal(t, "200.00", booking.TotalPrice.String())
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, option.ID, booking.TravelOption.ID)
	assert.Equal(t, 3, booking.TravelOption.AvailableSeats)

	assert.Equal(t, 3, store.availableSeats(option.ID))
	assert.Equal(t, []uuid.UUID{booking.ID}, publisher.confirmed)
}

func TestCreateBooking_ValidationFailsBeforeStore(t *testing.T) {
	service, store, _ := setupBookingService()
	option := store.addOption(sampleOption(10000, 5))

	tests := []struct {
		name  string
		req   models.CreateBookingRequest
		field string
	}{
		{"Zero seats", models.CreateBookingRequest{TravelOptionID: option.ID, NumberOfSeats: 0, PassengerDetails: validPassenger()}, "numberOfSeats"},
		{"Eleven seats", models.CreateBookingRequest{TravelOptionID: option.ID, NumberOfSeats: 11, PassengerDetails: validPassenger()}, "numberOfSeats"},
		{"Missing option", models.CreateBookingRequest{NumberOfSeats: 1, PassengerDetails: validPassenger()}, "travelOptionId"},
		{"Missing name", models.CreateBookingRequest{TravelOptionID: option.ID, NumberOfSeats: 1, PassengerDetails: models.PassengerDetails{Email: "jane@example.com", Phone: "+15551234567"}}, "passengerDetails.name"},
		{"Bad email", models.CreateBookingRequest{TravelOptionID: option.ID, NumberOfSeats: 1, PassengerDetails: models.PassengerDetails{Name: "Jane", Email: "jane", Phone: "+15551234567"}}, "passengerDetails.email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := service.CreateBooking(context.Background(), uuid.New(), &tt.req)
			var validationErr *models.ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Equal(t, 5, store.availableSeats(option.ID))
		})
	}
}

func TestCreateBooking_UnknownOption(t *testing.T) {
	service, _, publisher := setupBookingService()

	_, _, err := service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
		TravelOptionID:   uuid.New(),
		NumberOfSeats:    1,
		PassengerDetails: validPassenger(),
	})
	assert.True(t, models.IsNotFound(err))
	assert.Empty(t, publisher.confirmed)
}

func TestCreateBooking_InsufficientSeats(t *testing.T) {
	service, store, _ := setupBookingService()
	option := store.addOption(sampleOption(10000, 2))

	_, _, err := service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
		TravelOptionID:   option.ID,
		NumberOfSeats:    3,
		PassengerDetails: validPassenger(),
	})

	var capacityErr *models.CapacityError
	require.True(t, errors.As(err, &capacityErr))
	assert.Equal(t, 3, capacityErr.Requested)
	assert.Equal(t, 2, capacityErr.Available)
	assert.Equal(t, 2, store.availableSeats(option.ID))
}

func TestCreateBooking_ExhaustsSeatsExactly(t *testing.T) {
	service, store, _ := setupBookingService()
	option := store.addOption(sampleOption(5000, 4))

	_, _, err := service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
		TravelOptionID:   option.ID,
		NumberOfSeats:    4,
		PassengerDetails: validPassenger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, store.availableSeats(option.ID))

	_, _, err = service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
		TravelOptionID:   option.ID,
		NumberOfSeats:    1,
		PassengerDetails: validPassenger(),
	})
	assert.True(t, models.IsCapacity(err))
}

func TestCreateBooking_IdempotentReplay(t *testing.T) {
	service, store, publisher := setupBookingService()
	option := store.addOption(sampleOption(10000, 5))
	userID := uuid.New()

	req := models.CreateBookingRequest{
		TravelOptionID:   option.ID,
		NumberOfSeats:    2,
		PassengerDetails: validPassenger(),
		IdempotencyKey:   "checkout-42",
	}

	first, replayed, err := service.CreateBooking(context.Background(), userID, &req)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := service.CreateBooking(context.Background(), userID, &req)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, store.availableSeats(option.ID))
	assert.Len(t, publisher.confirmed, 1)

	// The same key from another user is a different booking.
	third, replayed, err := service.CreateBooking(context.Background(), uuid.New(), &req)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, 1, store.availableSeats(option.ID))
}

func TestCreateBooking_ConcurrentIdempotentRequests(t *testing.T) {
	service, store, _ := setupBookingService()
	option := store.addOption(sampleOption(10000, 20))
	userID := uuid.New()

	const attempts = 8
	ids := make(chan uuid.UUID, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			booking, _, err := service.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
				TravelOptionID:   option.ID,
				NumberOfSeats:    2,
				PassengerDetails: validPassenger(),
				IdempotencyKey:   "double-click",
			})
			if assert.NoError(t, err) {
				ids <- booking.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	unique := make(map[uuid.UUID]bool)
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, 1)
	assert.Equal(t, 18, store.availableSeats(option.ID))
}

func TestCreateBooking_SameKeyAfterLastSeatReplays(t *testing.T) {
	store := newMemoryStore()
	racing := &racingStore{bookingStore: bookingStore{store}, hiddenLookups: 2}
	service := NewBookingService(racing, store, &recordingPublisher{}, newTestLogger())
	option := store.addOption(sampleOption(10000, 1))
	userID := uuid.New()

	req := models.CreateBookingRequest{
		TravelOptionID:   option.ID,
		NumberOfSeats:    1,
		PassengerDetails: validPassenger(),
		IdempotencyKey:   "k1",
	}

	first, replayed, err := service.CreateBooking(context.Background(), userID, &req)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := service.CreateBooking(context.Background(), userID, &req)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 0, store.availableSeats(option.ID))

	// A different key still sees the sold-out option.
	req.IdempotencyKey = "k2"
	_, _, err = service.CreateBooking(context.Background(), userID, &req)
	assert.True(t, models.IsCapacity(err))
}

func TestCreateBooking_SameKeyCommitsBeforeReservationReplays(t *testing.T) {
	store := newMemoryStore()
	option := store.addOption(sampleOption(10000, 1))
	userID := uuid.New()

	key := "k1"
	winner := &models.Booking{
		UserID:           userID,
		TravelOptionID:   option.ID,
		NumberOfSeats:    1,
		TotalPrice:       models.NewMoneyFromCents(10000),
		BookingReference: "BKWINNER01",
		PassengerDetails: validPassenger(),
		IdempotencyKey:   &key,
	}
	racing := &racingStore{
		bookingStore:  bookingStore{store},
		hiddenLookups: 1,
		beforeReserve: func() {
			require.NoError(t, store.CreateWithSeatReservation(context.Background(), winner))
		},
	}
	publisher := &recordingPublisher{}
	service := NewBookingService(racing, store, publisher, newTestLogger())

	booking, replayed, err := service.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
		TravelOptionID:   option.ID,
		NumberOfSeats:    1,
		PassengerDetails: validPassenger(),
		IdempotencyKey:   key,
	})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, winner.ID, booking.ID)
	assert.Equal(t, 0, store.availableSeats(option.ID))
	assert.Empty(t, publisher.confirmed)
}

func TestCreateBooking_RetriesReferenceCollision(t *testing.T) {
	service, store, _ := setupBookingService()
	option := store.addOption(sampleOption(10000, 5))

	references := []string{"BKAAAAAAAA", "BKAAAAAAAA", "BKBBBBBBBB"}
	next := 0
	service.newReference = func() string {
		ref := references[next]
		next++
		return ref
	}

	first, _, err := service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
		TravelOptionID: option.ID, NumberOfSeats: 1, PassengerDetails: validPassenger(),
	})
	require.NoError(t, err)
	assert.Equal(t, "BKAAAAAAAA", first.BookingReference)

	second, _, err := service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
		TravelOptionID: option.ID, NumberOfSeats: 1, PassengerDetails: validPassenger(),
	})
	require.NoError(t, err)
	assert.Equal(t, "BKBBBBBBBB", second.BookingReference)
	assert.Equal(t, 3, store.availableSeats(option.ID))
}

func TestCreateBooking_PublishFailureDoesNotFailBooking(t *testing.T) {
	service, store, publisher := setupBookingService()
	publisher.err = errors.New("redis down")
	option := store.addOption(sampleOption(10000, 5))

	booking, _, err := service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
		TravelOptionID: option.ID, NumberOfSeats: 1, PassengerDetails: validPassenger(),
	})
	require.NoError(t, err)
	assert.NotNil(t, booking)
	assert.Equal(t, 4, store.availableSeats(option.ID))
}

// More concurrent requests than seats: exactly capacity of them succeed and the
// seat count never goes negative.
func TestCreateBooking_ConcurrentOversubscription(t *testing.T) {
	service, store, _ := setupBookingService()
	const capacity = 7
	const requests = 25
	option := store.addOption(sampleOption(4500, capacity))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
				TravelOptionID:   option.ID,
				NumberOfSeats:    1,
				PassengerDetails: validPassenger(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case models.IsCapacity(err):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, requests-capacity, rejected)
	assert.Equal(t, 0, store.availableSeats(option.ID))

	discrepancies, err := store.FindDiscrepancies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, discrepancies)
}

func TestCancelBooking(t *testing.T) {
	t.Run("Success restores seats", func(t *testing.T) {
		service, store, publisher := setupBookingService()
		option := store.addOption(sampleOption(10000, 5))
		userID := uuid.New()

		booking, _, err := service.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
			TravelOptionID: option.ID, NumberOfSeats: 2, PassengerDetails: validPassenger(),
		})
		require.NoError(t, err)
		require.Equal(t, 3, store.availableSeats(option.ID))

		cancelled, err := service.CancelBooking(context.Background(), booking.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, 5, store.availableSeats(option.ID))
		assert.Equal(t, []uuid.UUID{booking.ID}, publisher.cancelled)
	})

	t.Run("Second cancel is rejected", func(t *testing.T) {
		service, store, _ := setupBookingService()
		option := store.addOption(sampleOption(10000, 5))
		userID := uuid.New()

		booking, _, err := service.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
			TravelOptionID: option.ID, NumberOfSeats: 2, PassengerDetails: validPassenger(),
		})
		require.NoError(t, err)

		_, err = service.CancelBooking(context.Background(), booking.ID, userID)
		require.NoError(t, err)

		_, err = service.CancelBooking(context.Background(), booking.ID, userID)
		assert.True(t, models.IsInvalidState(err))
		assert.Equal(t, 5, store.availableSeats(option.ID))
	})

	t.Run("Departed booking is rejected", func(t *testing.T) {
		service, store, publisher := setupBookingService()
		option := store.addOption(sampleOption(10000, 5))
		userID := uuid.New()

		booking, _, err := service.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
			TravelOptionID: option.ID, NumberOfSeats: 2, PassengerDetails: validPassenger(),
		})
		require.NoError(t, err)

		for _, day := range []time.Time{
			time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC),
		} {
			service.now = func() time.Time { return day }
			_, err = service.CancelBooking(context.Background(), booking.ID, userID)

			var stateErr *models.InvalidStateError
			require.ErrorAs(t, err, &stateErr)
			assert.Equal(t, "departed", stateErr.State)
		}
		assert.Equal(t, 3, store.availableSeats(option.ID))
		assert.Empty(t, publisher.cancelled)

		service.now = func() time.Time { return time.Date(2024, 3, 14, 23, 0, 0, 0, time.UTC) }
		_, err = service.CancelBooking(context.Background(), booking.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, 5, store.availableSeats(option.ID))
	})

	t.Run("Not owner", func(t *testing.T) {
		service, store, _ := setupBookingService()
		option := store.addOption(sampleOption(10000, 5))

		booking, _, err := service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
			TravelOptionID: option.ID, NumberOfSeats: 2, PassengerDetails: validPassenger(),
		})
		require.NoError(t, err)

		_, err = service.CancelBooking(context.Background(), booking.ID, uuid.New())
		assert.True(t, models.IsAuthorization(err))
		assert.Equal(t, 3, store.availableSeats(option.ID))
	})

	t.Run("Unknown booking", func(t *testing.T) {
		service, _, _ := setupBookingService()
		_, err := service.CancelBooking(context.Background(), uuid.New(), uuid.New())
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("Concurrent cancels release seats once", func(t *testing.T) {
		service, store, _ := setupBookingService()
		option := store.addOption(sampleOption(10000, 5))
		userID := uuid.New()

		booking, _, err := service.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
			TravelOptionID: option.ID, NumberOfSeats: 3, PassengerDetails: validPassenger(),
		})
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		successes := 0
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := service.CancelBooking(context.Background(), booking.ID, userID); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				} else {
					assert.True(t, models.IsInvalidState(err))
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, 5, store.availableSeats(option.ID))
	})
}

func TestGetBookingForUser(t *testing.T) {
	service, store, _ := setupBookingService()
	option := store.addOption(sampleOption(10000, 5))
	owner := uuid.New()

	booking, _, err := service.CreateBooking(context.Background(), owner, &models.CreateBookingRequest{
		TravelOptionID: option.ID, NumberOfSeats: 1, PassengerDetails: validPassenger(),
	})
	require.NoError(t, err)

	found, err := service.GetBookingForUser(context.Background(), booking.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, found.ID)
	assert.Equal(t, option.ID, found.TravelOption.ID)

	_, err = service.GetBookingForUser(context.Background(), booking.ID, uuid.New())
	assert.True(t, models.IsAuthorization(err))

	_, err = service.GetBooking(context.Background(), uuid.New())
	assert.True(t, models.IsNotFound(err))
}

func TestGetUserBookings_Scopes(t *testing.T) {
	service, store, _ := setupBookingService()
	userID := uuid.New()

	past := sampleOption(10000, 5)
	past.DepartureDate = mustDate("2024-03-01")
	past = store.addOption(past)

	upcoming := sampleOption(10000, 5)
	upcoming.DepartureDate = mustDate("2024-03-10")
	upcoming = store.addOption(upcoming)

	for _, id := range []uuid.UUID{past.ID, upcoming.ID} {
		_, _, err := service.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
			TravelOptionID: id, NumberOfSeats: 1, PassengerDetails: validPassenger(),
		})
		require.NoError(t, err)
	}
	_, _, err := service.CreateBooking(context.Background(), uuid.New(), &models.CreateBookingRequest{
		TravelOptionID: upcoming.ID, NumberOfSeats: 1, PassengerDetails: validPassenger(),
	})
	require.NoError(t, err)

	all, err := service.GetUserBookings(context.Background(), userID, models.BookingScopeAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, upcoming.ID, all[0].TravelOptionID, "newest first")

	upcomingOnly, err := service.GetUserBookings(context.Background(), userID, models.BookingScopeUpcoming)
	require.NoError(t, err)
	require.Len(t, upcomingOnly, 1)
	assert.Equal(t, upcoming.ID, upcomingOnly[0].TravelOptionID)

	pastOnly, err := service.GetUserBookings(context.Background(), userID, models.BookingScopePast)
	require.NoError(t, err)
	require.Len(t, pastOnly, 1)
	assert.Equal(t, past.ID, pastOnly[0].TravelOptionID)

	// Cancelled bookings drop out of upcoming but stay in all.
	later := sampleOption(10000, 5)
	later = store.addOption(later)
	cancelled, _, err := service.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
		TravelOptionID: later.ID, NumberOfSeats: 1, PassengerDetails: validPassenger(),
	})
	require.NoError(t, err)
	_, err = service.CancelBooking(context.Background(), cancelled.ID, userID)
	require.NoError(t, err)

	upcomingOnly, err = service.GetUserBookings(context.Background(), userID, models.BookingScopeUpcoming)
	require.NoError(t, err)
	require.Len(t, upcomingOnly, 1)
	assert.Equal(t, upcoming.ID, upcomingOnly[0].TravelOptionID)

	all, err = service.GetUserBookings(context.Background(), userID, models.BookingScopeAll)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := service.GetUserBookings(context.Background(), uuid.New(), models.BookingScopeAll)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

// Search, book two seats at 100.00, then cancel: seats go 5 -> 3 -> 5.
func TestBookingLifecycle(t *testing.T) {
	store := newMemoryStore()
	search := NewSearchService(store, &recordingRanking{}, newTestLogger())
	booking, _, _ := setupBookingServiceWith(store)

	option := sampleOption(10000, 5)
	option.Type = models.TravelTypeTrain
	option.Source, option.Destination = "A", "B"
	option = store.addOption(option)

	found, err := search.Search(context.Background(), &models.SearchRequest{
		Source: "A", Destination: "B", DepartureDate: "2024-03-15",
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, option.ID, found[0].ID)

	userID := uuid.New()
	created, _, err := booking.CreateBooking(context.Background(), userID, &models.CreateBookingRequest{
		TravelOptionID: found[0].ID, NumberOfSeats: 2, PassengerDetails: validPassenger(),
	})
	require.NoError(t, err)
	assert.Equal(t, "200.00", created.TotalPrice.String())
	assert.Equal(t, 3, store.availableSeats(option.ID))

	_, err = booking.CancelBooking(context.Background(), created.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, store.availableSeats(option.ID))
}

func setupBookingServiceWith(store *memoryStore) (*BookingService, *memoryStore, *recordingPublisher) {
	publisher := &recordingPublisher{}
	service := NewBookingService(bookingStore{store}, store, publisher, newTestLogger())
	service.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	return service, store, publisher
}
