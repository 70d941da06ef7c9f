// Package services holds the write paths for reservations and expenses and
// assembles the dashboard for a period.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"hostel/internal/core"
	"hostel/internal/finance"
	applog "hostel/internal/log"
	"hostel/internal/sheets"
)

// BookingService validates and writes reservations.
type BookingService struct {
	w     recordWriter
	rooms core.RoomSet
	ids   *core.IDGenerator
}

// NewBookingService writes through store, which should be the cached store
// so reads after a write see it. publisher may be nil.
func NewBookingService(store sheets.Store, rooms core.RoomSet, ids *core.IDGenerator, publisher Publisher, logger *slog.Logger) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	if ids == nil {
		ids = core.NewIDGenerator(nil)
	}
	return &BookingService{
		w:     recordWriter{store: store, publisher: publisher, logger: logger},
		rooms: rooms,
		ids:   ids,
	}
}

// Create validates r, assigns a new id and appends it. Nothing is written
// when validation fails.
func (s *BookingService) Create(ctx context.Context, r core.Reservation) (core.Reservation, error) {
	r, err := s.prepare(r)
	if err != nil {
		return core.Reservation{}, err
	}
	r.ID = s.ids.Next()
	if err := s.w.append(ctx, sheets.Reservations, r.ID, sheets.ReservationValues(r)); err != nil {
		return core.Reservation{}, fmt.Errorf("append reservation: %w", err)
	}
	s.w.logger.InfoContext(ctx, "Reservation created",
		applog.FieldRowID, r.ID, applog.FieldGuest, r.Guest, applog.FieldRooms, r.RoomLabel(), applog.FieldAmountCents, r.Total.Cents)
	return r, nil
}

// Update overwrites the reservation with r.ID. It returns an error wrapping
// sheets.ErrNotFound when no row has that id.
func (s *BookingService) Update(ctx context.Context, r core.Reservation) (core.Reservation, error) {
	if r.ID <= 0 {
		return core.Reservation{}, core.Invalid("id", fmt.Errorf("missing id"))
	}
	r, err := s.prepare(r)
	if err != nil {
		return core.Reservation{}, err
	}
	if err := s.w.update(ctx, sheets.Reservations, r.ID, sheets.ReservationValues(r)); err != nil {
		return core.Reservation{}, fmt.Errorf("update reservation %d: %w", r.ID, err)
	}
	s.w.logger.InfoContext(ctx, "Reservation updated", applog.FieldRowID, r.ID)
	return r, nil
}

func (s *BookingService) Delete(ctx context.Context, id int64) error {
	if err := s.w.delete(ctx, sheets.Reservations, id); err != nil {
		return fmt.Errorf("delete reservation %d: %w", id, err)
	}
	s.w.logger.InfoContext(ctx, "Reservation deleted", applog.FieldRowID, id)
	return nil
}

// List reads and normalizes every reservation.
func (s *BookingService) List(ctx context.Context) ([]core.Reservation, []finance.Issue, error) {
	rows, err := s.w.store.ReadAll(ctx, sheets.Reservations)
	if err != nil {
		return nil, nil, fmt.Errorf("read reservations: %w", err)
	}
	rs, issues := finance.NormalizeReservations(rows)
	for _, r := range rs {
		s.ids.Observe(r.ID)
	}
	return rs, issues, nil
}

// Rooms returns the configured room set.
func (s *BookingService) Rooms() core.RoomSet {
	return s.rooms
}

// prepare canonicalizes rooms and classifications, then validates.
func (s *BookingService) prepare(r core.Reservation) (core.Reservation, error) {
	rooms := make([]string, 0, len(r.Rooms))
	for _, room := range r.Rooms {
		if len(s.rooms) > 0 {
			room = s.rooms.Canonical(room)
		}
		rooms = append(rooms, room)
	}
	slices.Sort(rooms)
	r.Rooms = slices.Compact(rooms)

	if err := r.Validate(); err != nil {
		return r, err
	}
	if len(s.rooms) > 0 {
		if err := s.rooms.Check(r.Rooms); err != nil {
			return r, err
		}
	}

	ch, ok := core.ParseChannel(string(r.Channel))
	if !ok {
		return r, core.Invalid("channel", fmt.Errorf("%w: %q", core.ErrUnknownChannel, r.Channel))
	}
	pay, ok := core.ParsePaymentMethod(string(r.Payment))
	if !ok {
		return r, core.Invalid("payment", fmt.Errorf("%w: %q", core.ErrUnknownPayment, r.Payment))
	}
	r.Channel, r.Payment = ch, pay
	return r, nil
}
