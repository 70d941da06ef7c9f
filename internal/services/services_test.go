package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"hostel/internal/amqp"
	"hostel/internal/core"
	"hostel/internal/finance"
	"hostel/internal/sheets"
	"hostel/internal/sheets/cached"
	"hostel/internal/sheets/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRooms = core.RoomSet{"Dormitório A", "Dormitório B", "Master", "Studio"}

type fakePublisher struct {
	msgs []*amqp.RecordChangeMessage
	err  error
}

func (p *fakePublisher) PublishRecordChange(_ context.Context, msg *amqp.RecordChangeMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

// writeCounter counts writes that reach the store.
type writeCounter struct {
	sheets.Store
	writes int
}

func (c *writeCounter) Append(ctx context.Context, t sheets.Table, v []any) error {
	c.writes++
	return c.Store.Append(ctx, t, v)
}

func (c *writeCounter) Update(ctx context.Context, t sheets.Table, id int64, v []any) error {
	c.writes++
	return c.Store.Update(ctx, t, id, v)
}

type downStore struct{}

func (downStore) ReadAll(context.Context, sheets.Table) ([]sheets.Row, error) {
	return nil, sheets.ErrStoreUnavailable
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newReservation() core.Reservation {
	return core.Reservation{
		Guest:    "Ana",
		Guests:   2,
		Rooms:    []string{"studio", "Master"},
		CheckIn:  core.NewDate(2025, 3, 10),
		CheckOut: core.NewDate(2025, 3, 13),
		Total:    core.Money{Cents: 60000},
		Channel:  core.Channel("Booking"),
		Payment:  core.PaymentCash,
	}
}

func TestBookingServiceCreateCanonicalizesAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	ids := core.NewIDGenerator(fixedClock(time.Unix(1741600000, 0)))
	svc := NewBookingService(store, testRooms, ids, pub, nil)

	r, err := svc.Create(ctx, newReservation())
	require.NoError(t, err)
	assert.Equal(t, int64(1741600000), r.ID)
	assert.Equal(t, []string{"Master", "Studio"}, r.Rooms)
	assert.Equal(t, core.ChannelOTA, r.Channel)

	second, err := svc.Create(ctx, newReservation())
	require.NoError(t, err)
	assert.Equal(t, r.ID+1, second.ID, "ids minted in the same second must not collide")

	listed, issues, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, listed, 2)
	assert.Equal(t, r, listed[0])

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, amqp.OpAppend, pub.msgs[0].Op)
	assert.Equal(t, sheets.Reservations, pub.msgs[0].Table)
	assert.Equal(t, r.ID, pub.msgs[0].RowID)
	assert.Equal(t, "Master, Studio", pub.msgs[0].Values[3])
}

func TestBookingServiceRejectsInvalidInputWithoutWriting(t *testing.T) {
	ctx := context.Background()
	store := &writeCounter{Store: memory.New()}
	svc := NewBookingService(store, testRooms, nil, nil, nil)

	tests := []struct {
		name  string
		edit  func(*core.Reservation)
		field string
		err   error
	}{
		{"check-out before check-in", func(r *core.Reservation) { r.CheckOut = r.CheckIn }, "check_out", core.ErrInvalidStay},
		{"no rooms", func(r *core.Reservation) { r.Rooms = nil }, "rooms", core.ErrNoRooms},
		{"unknown room", func(r *core.Reservation) { r.Rooms = []string{"Suite"} }, "rooms", core.ErrUnknownRoom},
		{"negative total", func(r *core.Reservation) { r.Total = core.Money{Cents: -1} }, "total", core.ErrNegativeAmount},
		{"unknown channel", func(r *core.Reservation) { r.Channel = "pombo" }, "channel", core.ErrUnknownChannel},
		{"unknown payment", func(r *core.Reservation) { r.Payment = "" }, "payment", core.ErrUnknownPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReservation()
			tt.edit(&r)
			_, err := svc.Create(ctx, r)

			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Zero(t, store.writes)
}

func TestUpdateMissingIDReturnsNotFoundAndLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	svc := NewBookingService(store, testRooms, nil, pub, nil)

	created, err := svc.Create(ctx, newReservation())
	require.NoError(t, err)
	before, err := store.ReadAll(ctx, sheets.Reservations)
	require.NoError(t, err)

	ghost := newReservation()
	ghost.ID = created.ID + 1000
	_, err = svc.Update(ctx, ghost)
	assert.ErrorIs(t, err, sheets.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, ghost.ID), sheets.ErrNotFound)

	after, err := store.ReadAll(ctx, sheets.Reservations)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, pub.msgs, 1, "failed writes are not published")
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewExpenseService(store, nil, &fakePublisher{err: errors.New("broker down")}, nil)

	e, err := svc.Create(ctx, core.Expense{Date: core.NewDate(2025, 3, 1), Description: " Gás ", Amount: core.Money{Cents: 20000}})
	require.NoError(t, err)
	assert.Equal(t, "Gás", e.Description)

	rows, err := store.ReadAll(ctx, sheets.Expenses)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExpenseServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewExpenseService(memory.New(), nil, pub, nil)

	_, err := svc.Create(ctx, core.Expense{Date: core.NewDate(2025, 3, 1), Description: "", Amount: core.Money{Cents: 1}})
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	e, err := svc.Create(ctx, core.Expense{Date: core.NewDate(2025, 3, 1), Description: "Gás", Amount: core.Money{Cents: 20000}})
	require.NoError(t, err)

	e.Amount = core.Money{Cents: 25000}
	_, err = svc.Update(ctx, e)
	require.NoError(t, err)

	es, _, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, int64(25000), es[0].Amount.Cents)

	require.NoError(t, svc.Delete(ctx, e.ID))
	es, _, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, es)

	var ops []amqp.Op
	for _, m := range pub.msgs {
		ops = append(ops, m.Op)
	}
	assert.Equal(t, []amqp.Op{amqp.OpAppend, amqp.OpUpdate, amqp.OpDelete}, ops)

	_, err = svc.Update(ctx, core.Expense{Date: core.NewDate(2025, 3, 1), Description: "x"})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)
}

func TestDashboardScenario(t *testing.T) {
	ctx := context.Background()
	store := cached.New(memory.New(), time.Minute, nil)
	bookings := NewBookingService(store, testRooms, nil, nil, nil)
	expenses := NewExpenseService(store, nil, nil, nil)
	dash := NewDashboardService(store, finance.DefaultFeePolicy(), testRooms, time.UTC, nil)
	dash.now = fixedClock(time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC))

	march := core.Period{Year: 2025, Month: 3}

	// Prime the cache so the writes below have something to invalidate.
	d, err := dash.Build(ctx, View{Period: march})
	require.NoError(t, err)
	assert.Equal(t, finance.Totals{}, d.Summary.Projected)

	ota := newReservation()
	ota.Total = core.Money{Cents: 100000}
	phone := newReservation()
	phone.Rooms = []string{"Dormitório A"}
	phone.Total = core.Money{Cents: 50000}
	phone.Channel = core.ChannelPhone
	phone.CheckIn, phone.CheckOut = core.NewDate(2025, 3, 31), core.NewDate(2025, 4, 2)
	april := newReservation()
	april.CheckIn, april.CheckOut = core.NewDate(2025, 4, 1), core.NewDate(2025, 4, 3)

	for _, r := range []core.Reservation{ota, phone, april} {
		_, err := bookings.Create(ctx, r)
		require.NoError(t, err)
	}
	_, err = expenses.Create(ctx, core.Expense{Date: core.NewDate(2025, 3, 5), Description: "Gás", Amount: core.Money{Cents: 20000}})
	require.NoError(t, err)

	d, err = dash.Build(ctx, View{Period: march})
	require.NoError(t, err)

	assert.Equal(t, finance.Totals{
		Gross:    core.Money{Cents: 150000},
		Fees:     core.Money{Cents: 15500},
		Expenses: core.Money{Cents: 20000},
		Net:      core.Money{Cents: 114500},
	}, d.Summary.Projected)
	assert.Nil(t, d.Summary.Realized, "march is a past month on April 2nd")
	assert.Len(t, d.Reservations, 2)
	assert.Len(t, d.Agenda, 2)
	assert.Equal(t, 1, d.Occupancy.Counts["Master"])
	assert.Equal(t, 1, d.Occupancy.Counts["Dormitório A"])
	assert.Equal(t, 0, d.Occupancy.Counts["Dormitório B"])
	assert.Equal(t, core.Money{Cents: 50000}, d.Occupancy.Revenue["Studio"])
	assert.Empty(t, d.Warning)

	current, err := dash.Build(ctx, dash.CurrentView())
	require.NoError(t, err)
	require.NotNil(t, current.Summary.Realized)
	assert.Equal(t, int64(60000), current.Summary.Realized.Gross.Cents)
}

func TestDashboardReportsMalformedRowsAndEditTarget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Append(ctx, sheets.Expenses, []any{int64(1), "not a date", "Gás", 10.0}))
	require.NoError(t, store.Append(ctx, sheets.Expenses, []any{int64(2), "2025-03-02", "Luz", 10.0}))
	require.NoError(t, store.Append(ctx, sheets.Reservations,
		[]any{int64(3), "Bia", 1, "Master", "2025-03-01", "2025-03-02", 1, 100.0, "fax", "cash"}))

	dash := NewDashboardService(store, finance.DefaultFeePolicy(), nil, nil, nil)
	d, err := dash.Build(ctx, View{Period: core.Period{Year: 2025, Month: 3}, EditExpense: 2})
	require.NoError(t, err)

	require.Len(t, d.Issues, 2)
	assert.Equal(t, finance.MalformedRow, d.Issues[0].Kind)
	assert.Equal(t, finance.UnknownClassification, d.Issues[1].Kind)
	assert.Contains(t, d.Warning, "skipped 1 malformed row")
	require.NotNil(t, d.EditingExpense)
	assert.Equal(t, "Luz", d.EditingExpense.Description)
	assert.Nil(t, d.EditingReservation)
}

func TestDashboardStoreUnavailableIsFatal(t *testing.T) {
	dash := NewDashboardService(downStore{}, finance.DefaultFeePolicy(), nil, nil, nil)
	d, err := dash.Build(context.Background(), View{Period: core.Period{Year: 2025, Month: 3}})
	assert.Nil(t, d)
	assert.ErrorIs(t, err, sheets.ErrStoreUnavailable)
	assert.ErrorIs(t, dash.Ping(context.Background()), sheets.ErrStoreUnavailable)

	_, err = dash.Build(context.Background(), View{Period: core.Period{Year: 2025, Month: 13}})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}
