package services_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/services"
	"github.com/AchilleasB/roombook/booking-client/internal/metrics"
	"github.com/AchilleasB/roombook/booking-client/test/mocks"
)

type coordinatorFixture struct {
	coordinator *services.BookingCoordinator
	bookings    *mocks.MockBookingAPI
	rooms       *mocks.MockRoomAPI
	publisher   *mocks.MockRoomEventPublisher
	journal     *mocks.Journal
	metrics     *metrics.Metrics

	mu          sync.Mutex
	transitions []services.Transition
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	f := &coordinatorFixture{
		bookings:  mocks.NewMockBookingAPI(),
		rooms:     mocks.NewMockRoomAPI(),
		publisher: mocks.NewMockRoomEventPublisher(),
		journal:   &mocks.Journal{},
		metrics:   metrics.New(),
	}
	f.bookings.Journal = f.journal
	f.rooms.Journal = f.journal
	f.publisher.Journal = f.journal

	f.coordinator = services.NewBookingCoordinator(f.bookings, f.rooms, f.publisher, mocks.TestLabels(), services.CoordinatorOptions{
		CompensationTimeout: time.Second,
		Metrics:             f.metrics,
		Logger:              slog.New(slog.DiscardHandler),
		OnTransition: func(tr services.Transition) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.transitions = append(f.transitions, tr)
		},
	})
	return f
}

func (f *coordinatorFixture) states() []services.SagaState {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]services.SagaState, 0, len(f.transitions))
	for _, tr := range f.transitions {
		out = append(out, tr.To)
	}
	return out
}

func TestBookingCoordinator_CreateCommits(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.bookings.SetNextID(42)

	booking, err := f.coordinator.CreateBooking(context.Background(), mocks.CreateTestBookingRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(42), booking.ID)

	assert.Equal(t, []string{"create", "status:使用中", "publish"}, f.journal.Calls())
	assert.Equal(t, []mocks.RoomStatusCall{{RoomID: 7, Label: "使用中"}}, f.rooms.SetStatusCalls)

	events := f.publisher.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, int64(7), events[0].RoomID)
	assert.Equal(t, domain.RoomOccupied, events[0].Status)
	assert.Equal(t, "Room A", events[0].RoomName)

	assert.Equal(t, []services.SagaState{
		services.StateBookingCreated,
		services.StateRoomMarkOccupiedPending,
		services.StateCommitted,
	}, f.states())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Sagas.WithLabelValues("create", "Committed")))
}

func TestBookingCoordinator_CreateRollsBack(t *testing.T) {
	statusErr := domain.NewBusinessError(200, 500, "room update failed")

	tests := []struct {
		name        string
		deleteError error
		compensated string
	}{
		{name: "delete_succeeds", deleteError: nil, compensated: "succeeded"},
		{name: "delete_also_fails", deleteError: errors.New("connection reset"), compensated: "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture(t)
			f.bookings.SetNextID(42)
			f.rooms.SetStatusError = statusErr
			f.bookings.DeleteError = tt.deleteError

			booking, err := f.coordinator.CreateBooking(context.Background(), mocks.CreateTestBookingRequest())
			assert.Nil(t, booking)
			require.Error(t, err)
			assert.Same(t, statusErr, err)

			assert.Equal(t, []int64{42}, f.bookings.DeleteCalls)
			assert.Zero(t, f.publisher.GetPublishCount())
			assert.Equal(t, []string{"create", "status:使用中", "delete"}, f.journal.Calls())

			assert.Equal(t, []services.SagaState{
				services.StateBookingCreated,
				services.StateRoomMarkOccupiedPending,
				services.StateRollingBack,
				services.StateRolledBack,
			}, f.states())
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Compensations.WithLabelValues(tt.compensated)))
		})
	}
}

// nilBookings answers a successful create without a booking body.
type nilBookings struct {
	*mocks.MockBookingAPI
}

func (n nilBookings) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	if _, err := n.MockBookingAPI.CreateBooking(ctx, req); err != nil {
		return nil, err
	}
	return nil, nil
}

func TestBookingCoordinator_CreateWithoutBookingIDLeavesRoomAlone(t *testing.T) {
	tests := []struct {
		name        string
		coordinator func(f *coordinatorFixture) *services.BookingCoordinator
	}{
		{
			name: "zero_id",
			coordinator: func(f *coordinatorFixture) *services.BookingCoordinator {
				f.bookings.SetNextID(0)
				return f.coordinator
			},
		},
		{
			name: "empty_data",
			coordinator: func(f *coordinatorFixture) *services.BookingCoordinator {
				return services.NewBookingCoordinator(nilBookings{f.bookings}, f.rooms, f.publisher, mocks.TestLabels(), services.CoordinatorOptions{
					Metrics: f.metrics,
					Logger:  slog.New(slog.DiscardHandler),
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture(t)
			coordinator := tt.coordinator(f)
			f.rooms.SetStatusError = errors.New("room update failed")

			booking, err := coordinator.CreateBooking(context.Background(), mocks.CreateTestBookingRequest())
			assert.Nil(t, booking)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrBusiness))
			assert.EqualError(t, err, "booking created without id")

			assert.Equal(t, []string{"create"}, f.journal.Calls())
			assert.Empty(t, f.rooms.SetStatusCalls)
			assert.Empty(t, f.bookings.DeleteCalls)
			assert.Zero(t, f.publisher.GetPublishCount())
			assert.Zero(t, testutil.ToFloat64(f.metrics.Compensations.WithLabelValues("succeeded")))
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Sagas.WithLabelValues("create", "Failed")))
		})
	}
}

func TestBookingCoordinator_CompensationSurvivesCallerCancellation(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.bookings.SetNextID(42)

	ctx, cancel := context.WithCancel(context.Background())
	f.rooms.SetStatusError = errors.New("room update failed")
	f.coordinator = services.NewBookingCoordinator(ctxCheckingBookings{f.bookings}, cancelingRooms{MockRoomAPI: f.rooms, cancel: cancel}, f.publisher, mocks.TestLabels(), services.CoordinatorOptions{
		Logger: slog.New(slog.DiscardHandler),
	})

	_, err := f.coordinator.CreateBooking(ctx, mocks.CreateTestBookingRequest())
	require.Error(t, err)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	assert.Equal(t, []int64{42}, f.bookings.DeleteCalls)
	_, exists := f.bookings.Booking(42)
	assert.False(t, exists)
}

// cancelingRooms cancels the caller's context while the room update is in
// flight.
type cancelingRooms struct {
	*mocks.MockRoomAPI
	cancel context.CancelFunc
}

func (r cancelingRooms) SetRoomStatus(ctx context.Context, roomID int64, label string) error {
	r.cancel()
	return r.MockRoomAPI.SetRoomStatus(ctx, roomID, label)
}

// ctxCheckingBookings refuses to delete on a context that is already done.
type ctxCheckingBookings struct {
	*mocks.MockBookingAPI
}

func (b ctxCheckingBookings) DeleteBooking(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.MockBookingAPI.DeleteBooking(ctx, id)
}

func TestBookingCoordinator_CreateFailsBeforeRoomUpdate(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.bookings.CreateError = domain.NewTransportError("network error: unable to reach the server", errors.New("dial tcp"))

	_, err := f.coordinator.CreateBooking(context.Background(), mocks.CreateTestBookingRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransport))

	assert.Empty(t, f.rooms.SetStatusCalls)
	assert.Empty(t, f.bookings.DeleteCalls)
	assert.Zero(t, f.publisher.GetPublishCount())
	assert.Equal(t, []services.SagaState{services.StateFailed}, f.states())
}

func TestBookingCoordinator_CreateValidatesBeforeAnyCall(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.BookingRequest)
	}{
		{name: "missing_room", mutate: func(r *domain.BookingRequest) { r.RoomID = 0 }},
		{name: "missing_user", mutate: func(r *domain.BookingRequest) { r.UserID = 0 }},
		{name: "non_positive_hours", mutate: func(r *domain.BookingRequest) { r.Hours = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture(t)
			req := mocks.CreateTestBookingRequest()
			tt.mutate(&req)

			_, err := f.coordinator.CreateBooking(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			assert.Empty(t, f.journal.Calls())
		})
	}
}

func TestBookingCoordinator_PublishFailureDoesNotFailCommit(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.publisher.PublishError = errors.New("storage unavailable")

	booking, err := f.coordinator.CreateBooking(context.Background(), mocks.CreateTestBookingRequest())
	require.NoError(t, err)
	assert.NotNil(t, booking)
	assert.Empty(t, f.bookings.DeleteCalls)
}

func TestBookingCoordinator_CancelCommits(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.bookings.AddBooking(domain.Booking{ID: 5, RoomID: 7, UserID: 3, Hours: 2, Status: domain.BookingPaid})

	cancelled, err := f.coordinator.CancelBooking(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	assert.Equal(t, int64(7), cancelled.RoomID)

	assert.Equal(t, []string{"get", "status:空闲", "cancel", "publish"}, f.journal.Calls())

	events := f.publisher.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, int64(7), events[0].RoomID)
	assert.Equal(t, domain.RoomFree, events[0].Status)

	assert.Equal(t, []services.SagaState{
		services.StateBookingFetched,
		services.StateRoomMarkFreePending,
		services.StateCancelSubmitted,
		services.StateCommitted,
	}, f.states())
}

func TestBookingCoordinator_CancelAbortsWithoutCompensation(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(*coordinatorFixture)
		wantCalls []string
	}{
		{
			name:      "unknown_booking",
			setupMock: func(f *coordinatorFixture) {},
			wantCalls: []string{"get"},
		},
		{
			name: "fetch_fails",
			setupMock: func(f *coordinatorFixture) {
				f.bookings.AddBooking(domain.Booking{ID: 5, RoomID: 7})
				f.bookings.GetError = domain.NewTransportError("network error", errors.New("timeout"))
			},
			wantCalls: []string{"get"},
		},
		{
			name: "room_update_fails",
			setupMock: func(f *coordinatorFixture) {
				f.bookings.AddBooking(domain.Booking{ID: 5, RoomID: 7})
				f.rooms.SetStatusError = errors.New("room update failed")
			},
			wantCalls: []string{"get", "status:空闲"},
		},
		{
			name: "cancel_fails",
			setupMock: func(f *coordinatorFixture) {
				f.bookings.AddBooking(domain.Booking{ID: 5, RoomID: 7})
				f.bookings.CancelError = domain.NewBusinessError(200, 409, "booking already started")
			},
			wantCalls: []string{"get", "status:空闲", "cancel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture(t)
			tt.setupMock(f)

			_, err := f.coordinator.CancelBooking(context.Background(), 5)
			require.Error(t, err)

			assert.Equal(t, tt.wantCalls, f.journal.Calls())
			assert.Zero(t, f.publisher.GetPublishCount())
			assert.Empty(t, f.bookings.DeleteCalls)

			states := f.states()
			require.NotEmpty(t, states)
			assert.Equal(t, services.StateFailed, states[len(states)-1])
		})
	}
}

func TestBookingCoordinator_CancelValidatesID(t *testing.T) {
	f := newCoordinatorFixture(t)

	_, err := f.coordinator.CancelBooking(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, f.journal.Calls())
}

func TestBookingCoordinator_ListUserBookings(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.bookings.AddBooking(domain.Booking{ID: 1, RoomID: 7, UserID: 3})
	f.bookings.AddBooking(domain.Booking{ID: 2, RoomID: 8, UserID: 4})

	list, err := f.coordinator.ListUserBookings(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)

	_, err = f.coordinator.ListUserBookings(context.Background(), 0)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
