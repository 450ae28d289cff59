package services

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
	"github.com/AchilleasB/roombook/booking-client/internal/metrics"
)

type SagaKind string

const (
	SagaCreate SagaKind = "create"
	SagaCancel SagaKind = "cancel"
)

type SagaState string

const (
	StateRequested               SagaState = "Requested"
	StateBookingCreated          SagaState = "BookingCreated"
	StateRoomMarkOccupiedPending SagaState = "RoomMarkOccupiedPending"
	StateRollingBack             SagaState = "RollingBack"
	StateRolledBack              SagaState = "RolledBack"
	StateBookingFetched          SagaState = "BookingFetched"
	StateRoomMarkFreePending     SagaState = "RoomMarkFreePending"
	StateCancelSubmitted         SagaState = "CancelSubmitted"
	StateCommitted               SagaState = "Committed"
	StateFailed                  SagaState = "Failed"
)

const defaultCompensationTimeout = 5 * time.Second

// Transition is reported to the coordinator's observer on every state change.
type Transition struct {
	SagaID    string
	Kind      SagaKind
	From      SagaState
	To        SagaState
	BookingID int64
	RoomID    int64
	Err       error
}

type CoordinatorOptions struct {
	CompensationTimeout time.Duration
	OnTransition        func(Transition)
	Metrics             *metrics.Metrics
	Logger              *slog.Logger
}

// BookingCoordinator keeps a room's occupancy consistent with its booking
// record across the two independent server calls each workflow makes.
// Create compensates a failed room update by deleting the booking; cancel
// never compensates.
type BookingCoordinator struct {
	bookings  ports.BookingAPI
	rooms     ports.RoomAPI
	publisher ports.RoomEventPublisher
	labels    *domain.Labels

	compensationTimeout time.Duration
	onTransition        func(Transition)
	metrics             *metrics.Metrics
	tracer              trace.Tracer
	logger              *slog.Logger
}

func NewBookingCoordinator(
	bookings ports.BookingAPI,
	rooms ports.RoomAPI,
	publisher ports.RoomEventPublisher,
	labels *domain.Labels,
	opts CoordinatorOptions,
) *BookingCoordinator {
	if opts.CompensationTimeout <= 0 {
		opts.CompensationTimeout = defaultCompensationTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &BookingCoordinator{
		bookings:            bookings,
		rooms:               rooms,
		publisher:           publisher,
		labels:              labels,
		compensationTimeout: opts.CompensationTimeout,
		onTransition:        opts.OnTransition,
		metrics:             opts.Metrics,
		tracer:              otel.Tracer("roombook/booking"),
		logger:              opts.Logger,
	}
}

// saga is the in-flight state of one workflow. It lives only as long as the
// call that created it.
type saga struct {
	id        string
	kind      SagaKind
	state     SagaState
	bookingID int64
	roomID    int64
	c         *BookingCoordinator
	logger    *slog.Logger
}

func (c *BookingCoordinator) begin(kind SagaKind) *saga {
	id := uuid.NewString()
	return &saga{
		id:     id,
		kind:   kind,
		state:  StateRequested,
		c:      c,
		logger: c.logger.With("saga_id", id, "saga", string(kind)),
	}
}

func (s *saga) to(next SagaState, err error) {
	prev := s.state
	s.state = next
	s.logger.Debug("booking saga: transition", "from", prev, "to", next, "booking_id", s.bookingID, "room_id", s.roomID)
	if s.c.onTransition != nil {
		s.c.onTransition(Transition{
			SagaID:    s.id,
			Kind:      s.kind,
			From:      prev,
			To:        next,
			BookingID: s.bookingID,
			RoomID:    s.roomID,
			Err:       err,
		})
	}
	switch next {
	case StateCommitted, StateRolledBack, StateFailed:
		s.c.metrics.Sagas.WithLabelValues(string(s.kind), string(next)).Inc()
	}
}

// fail ends the saga without compensation.
func (s *saga) fail(err error) error {
	s.logger.Warn("booking saga: aborted", "state", s.state, "booking_id", s.bookingID, "error", err)
	s.to(StateFailed, err)
	return err
}

func (c *BookingCoordinator) step(ctx context.Context, s *saga, name string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "booking."+name, trace.WithAttributes(
		attribute.String("saga.id", s.id),
		attribute.Int64("booking.id", s.bookingID),
		attribute.Int64("room.id", s.roomID),
	))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// CreateBooking submits the booking, then marks its room occupied. If the
// room update fails the booking is deleted on a best-effort basis and the
// room update's error is returned. The occupied event is published only on
// commit.
func (c *BookingCoordinator) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s := c.begin(SagaCreate)
	s.roomID = req.RoomID
	ctx, span := c.tracer.Start(ctx, "booking.create_saga", trace.WithAttributes(attribute.String("saga.id", s.id)))
	defer span.End()

	var booking *domain.Booking
	err := c.step(ctx, s, "submit", func(ctx context.Context) error {
		var err error
		booking, err = c.bookings.CreateBooking(ctx, req)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(err)
	}
	if booking == nil || booking.ID <= 0 {
		// Nothing to compensate against; the room is left alone.
		err = domain.NewBusinessError(http.StatusOK, 0, "booking created without id")
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("booking saga: server accepted booking without id", "room_id", req.RoomID)
		return nil, s.fail(err)
	}
	s.bookingID = booking.ID
	s.to(StateBookingCreated, nil)

	s.to(StateRoomMarkOccupiedPending, nil)
	err = c.step(ctx, s, "mark_occupied", func(ctx context.Context) error {
		return c.rooms.SetRoomStatus(ctx, req.RoomID, c.labels.Localized(domain.RoomOccupied))
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.to(StateRollingBack, err)
		c.compensate(ctx, s)
		s.to(StateRolledBack, err)
		return nil, err
	}

	c.publish(ctx, s, domain.NewRoomStatusChanged(req.RoomID, domain.RoomOccupied, req.RoomName))
	s.to(StateCommitted, nil)
	s.logger.Info("booking saga: committed", "booking_id", booking.ID, "room_id", req.RoomID)
	return booking, nil
}

// compensate deletes the booking created by s. It runs detached from the
// caller's cancellation with its own timeout, and its failure is only logged.
func (c *BookingCoordinator) compensate(ctx context.Context, s *saga) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.compensationTimeout)
	defer cancel()

	err := c.step(cctx, s, "compensate_delete", func(ctx context.Context) error {
		return c.bookings.DeleteBooking(ctx, s.bookingID)
	})
	if err != nil {
		c.metrics.Compensations.WithLabelValues("failed").Inc()
		s.logger.Error("booking saga: compensating delete failed, booking left without occupied room",
			"booking_id", s.bookingID, "room_id", s.roomID, "error", err)
		return
	}
	c.metrics.Compensations.WithLabelValues("succeeded").Inc()
	s.logger.Info("booking saga: booking rolled back", "booking_id", s.bookingID)
}

// CancelBooking fetches the booking, frees its room, then cancels the
// booking record. Any failure aborts without undoing earlier steps. The free
// event is published after the cancel request resolves.
func (c *BookingCoordinator) CancelBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	if bookingID <= 0 {
		return nil, domain.NewValidationError("booking id is required")
	}

	s := c.begin(SagaCancel)
	s.bookingID = bookingID
	ctx, span := c.tracer.Start(ctx, "booking.cancel_saga", trace.WithAttributes(attribute.String("saga.id", s.id)))
	defer span.End()

	var booking *domain.Booking
	err := c.step(ctx, s, "fetch", func(ctx context.Context) error {
		var err error
		booking, err = c.bookings.GetBooking(ctx, bookingID)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(err)
	}
	if booking.RoomID <= 0 {
		return nil, s.fail(domain.NewValidationError("booking has no room"))
	}
	s.roomID = booking.RoomID
	s.to(StateBookingFetched, nil)

	s.to(StateRoomMarkFreePending, nil)
	err = c.step(ctx, s, "mark_free", func(ctx context.Context) error {
		return c.rooms.SetRoomStatus(ctx, booking.RoomID, c.labels.Localized(domain.RoomFree))
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(err)
	}

	s.to(StateCancelSubmitted, nil)
	var cancelled *domain.Booking
	err = c.step(ctx, s, "cancel", func(ctx context.Context) error {
		var err error
		cancelled, err = c.bookings.CancelBooking(ctx, bookingID)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("booking saga: room freed but booking not cancelled", "booking_id", bookingID, "room_id", booking.RoomID)
		return nil, s.fail(err)
	}
	if cancelled.RoomID == 0 {
		cancelled.RoomID = booking.RoomID
		cancelled.UserID = booking.UserID
		cancelled.Hours = booking.Hours
		cancelled.TotalPrice = booking.TotalPrice
	}

	c.publish(ctx, s, domain.NewRoomStatusChanged(booking.RoomID, domain.RoomFree, ""))
	s.to(StateCommitted, nil)
	s.logger.Info("booking saga: committed", "booking_id", bookingID, "room_id", booking.RoomID)
	return cancelled, nil
}

// publish announces a committed change. Local listeners have already run
// when Publish returns, so a transport error is logged and not returned.
func (c *BookingCoordinator) publish(ctx context.Context, s *saga, evt domain.RoomStatusChanged) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("booking saga: failed to broadcast room status", "room_id", evt.RoomID, "status", evt.Status, "error", err)
	}
}

func (c *BookingCoordinator) ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	if userID <= 0 {
		return nil, domain.NewValidationError("userId is required")
	}
	return c.bookings.ListUserBookings(ctx, userID)
}
