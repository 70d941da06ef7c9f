package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	ChannelOTA       Channel = "online-travel-agency"
	ChannelPhone     Channel = "direct-phone"
	ChannelMessaging Channel = "messaging-app"

	PaymentCash   PaymentMethod = "cash"
	PaymentPix    PaymentMethod = "pix-transfer"
	PaymentCredit PaymentMethod = "credit"
	PaymentDebit  PaymentMethod = "debit"
)

// RoomSeparator joins multi-room assignments in the stored room column.
const RoomSeparator = ", "

type (
	// Channel is the acquisition source of a booking.
	Channel string

	// PaymentMethod is how the guest paid.
	PaymentMethod string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Reservation struct {
		ID       int64
		Guest    string
		Guests   int
		Rooms    []string // sorted, deduplicated room tags
		CheckIn  Date
		CheckOut Date
		Total    Money
		Channel  Channel
		Payment  PaymentMethod
	}

	Expense struct {
		ID          int64
		Date        Date
		Description string
		Amount      Money
	}

	// RoomSet is the fixed list of rooms a reservation may be assigned to.
	RoomSet []string
)

var (
	ErrZeroDate          = errors.New("date cannot be zero")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrEmptyDescription  = errors.New("empty description")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
	ErrEmptyGuest        = errors.New("empty guest name")
	ErrInvalidGuestCount = errors.New("guest count must be at least 1")
	ErrNoRooms           = errors.New("at least one room is required")
	ErrUnknownRoom       = errors.New("unknown room")
	ErrInvalidStay       = errors.New("check-out must be after check-in")
	ErrUnknownChannel    = errors.New("unknown booking channel")
	ErrUnknownPayment    = errors.New("unknown payment method")
)

// ValidationError reports which field violated which constraint.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid wraps err as a ValidationError on field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Nights is the length of stay in days.
func (r Reservation) Nights() int {
	return r.CheckIn.DaysUntil(r.CheckOut)
}

// RoomLabel joins the room tags the way they are stored in the sheet.
func (r Reservation) RoomLabel() string {
	return strings.Join(r.Rooms, RoomSeparator)
}

func (r Reservation) Validate() error {
	if strings.TrimSpace(r.Guest) == "" {
		return Invalid("guest", ErrEmptyGuest)
	}
	if len(r.Guest) > 200 {
		return Invalid("guest", errors.New("guest name too long (max 200 characters)"))
	}
	if r.Guests < 1 {
		return Invalid("guests", ErrInvalidGuestCount)
	}
	if len(r.Rooms) == 0 {
		return Invalid("rooms", ErrNoRooms)
	}
	for _, room := range r.Rooms {
		if strings.TrimSpace(room) == "" {
			return Invalid("rooms", ErrNoRooms)
		}
	}
	if err := r.CheckIn.Validate(); err != nil {
		return Invalid("check_in", err)
	}
	if err := r.CheckOut.Validate(); err != nil {
		return Invalid("check_out", err)
	}
	if !r.CheckOut.After(r.CheckIn.Time) {
		return Invalid("check_out", ErrInvalidStay)
	}
	if err := r.Total.Validate(); err != nil {
		return Invalid("total", err)
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	if strings.TrimSpace(e.Description) == "" {
		return Invalid("description", ErrEmptyDescription)
	}
	if len(e.Description) > 200 {
		return Invalid("description", ErrDescriptionLength)
	}
	if err := e.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	return nil
}

// SplitRooms parses a stored room column into a sorted set of room tags.
func SplitRooms(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || slices.Contains(out, part) {
			continue
		}
		out = append(out, part)
	}
	slices.Sort(out)
	return out
}

// Contains reports whether room is in the set, ignoring case and accents.
func (s RoomSet) Contains(room string) bool {
	key := Fold(room)
	for _, r := range s {
		if Fold(r) == key {
			return true
		}
	}
	return false
}

// Canonical returns the configured spelling of room, or room itself if unknown.
func (s RoomSet) Canonical(room string) string {
	key := Fold(room)
	for _, r := range s {
		if Fold(r) == key {
			return r
		}
	}
	return strings.TrimSpace(room)
}

// Check rejects rooms outside the set.
func (s RoomSet) Check(rooms []string) error {
	for _, room := range rooms {
		if !s.Contains(room) {
			return Invalid("rooms", fmt.Errorf("%w: %s", ErrUnknownRoom, room))
		}
	}
	return nil
}
