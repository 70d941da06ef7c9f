package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"hostel/internal/core"
	"hostel/internal/finance"
	applog "hostel/internal/log"
	"hostel/internal/services"
	"hostel/internal/sheets"
	"hostel/internal/sheets/cached"
	"hostel/internal/sheets/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRooms = core.RoomSet{"Dormitório A", "Privativo 1"}

type downStore struct{ sheets.Store }

func (downStore) ReadAll(context.Context, sheets.Table) ([]sheets.Row, error) {
	return nil, fmt.Errorf("%w: connection refused", sheets.ErrStoreUnavailable)
}

func newTestServer(t *testing.T, store sheets.Store) *Server {
	t.Helper()
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	logger := applog.New(cfg)

	ids := core.NewIDGenerator(func() time.Time { return time.Unix(1741600000, 0) })
	svc := Services{
		Bookings:  services.NewBookingService(store, testRooms, ids, nil, nil),
		Expenses:  services.NewExpenseService(store, ids, nil, nil),
		Dashboard: services.NewDashboardService(store, finance.DefaultFeePolicy(), testRooms, time.UTC, nil),
	}
	s := NewServer(":0", svc, logger)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(t *testing.T, s *Server, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

const validReservation = `{
	"guest": "Ana Souza",
	"guests": 2,
	"rooms": ["privativo 1"],
	"check_in": "2025-03-10",
	"check_out": "2025-03-12",
	"total": "1000",
	"channel": "booking",
	"payment": "credito"
}`

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, memory.New())
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	down := newTestServer(t, downStore{})
	rr := do(t, down, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCreateReservationThenSummary(t *testing.T) {
	s := newTestServer(t, cached.New(memory.New(), time.Minute, nil))

	rr := do(t, s, http.MethodPost, "/api/reservations", validReservation)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created reservationJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, int64(1741600000), created.ID)
	assert.Equal(t, []string{"Privativo 1"}, created.Rooms)
	assert.Equal(t, string(core.ChannelOTA), created.Channel)
	assert.Equal(t, string(core.PaymentCredit), created.Payment)
	assert.Equal(t, 2, created.Nights)
	assert.Equal(t, "1000.00", created.Total)

	rr = do(t, s, http.MethodGet, "/api/summary?year=2025&month=3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sum summaryJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.Equal(t, "2025-03", sum.Period)
	assert.Equal(t, totalsJSON{Gross: "1000.00", Fees: "180.00", Expenses: "0.00", Net: "820.00"}, sum.Projected)
	assert.Nil(t, sum.Realized, "a past month has no realized totals")
	require.Len(t, sum.FeeLines, 1)
	assert.Equal(t, "0.18", sum.FeeLines[0].Rate)
	require.Len(t, sum.Occupancy, 2, "idle rooms are listed too")
	assert.Equal(t, roomJSON{Room: "Privativo 1", Reservations: 1, Nights: 2, Revenue: "1000.00"}, sum.Occupancy[1])

	rr = do(t, s, http.MethodGet, "/api/reservations?year=2025&month=4", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list listJSON[reservationJSON]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Empty(t, list.Items, "April must not list a March check-in")
}

func TestCreateReservationValidation(t *testing.T) {
	store := memory.New()
	s := newTestServer(t, store)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing guest", strings.Replace(validReservation, `"Ana Souza"`, `""`, 1), "guest"},
		{"bad date", strings.Replace(validReservation, `"2025-03-12"`, `"12/03/2025"`, 1), "check_out"},
		{"checkout before checkin", strings.Replace(validReservation, `"2025-03-12"`, `"2025-03-09"`, 1), "check_out"},
		{"no rooms", strings.Replace(validReservation, `["privativo 1"]`, `[]`, 1), "rooms"},
		{"unknown room", strings.Replace(validReservation, `["privativo 1"]`, `["Suite"]`, 1), "rooms"},
		{"unknown channel", strings.Replace(validReservation, `"booking"`, `"pigeon"`, 1), "channel"},
		{"negative total", strings.Replace(validReservation, `"1000"`, `"-5"`, 1), "total"},
		{"zero guests", strings.Replace(validReservation, `"guests": 2`, `"guests": 0`, 1), "guests"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/api/reservations", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			var body errorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.NotEmpty(t, body.Fields)
			assert.Equal(t, tt.field, body.Fields[0].Field)
		})
	}

	rows, err := store.ReadAll(context.Background(), sheets.Reservations)
	require.NoError(t, err)
	assert.Empty(t, rows, "rejected input must not be written")

	rr := do(t, s, http.MethodPost, "/api/reservations", `{"guest":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateAndDeleteReservation(t *testing.T) {
	s := newTestServer(t, memory.New())

	rr := do(t, s, http.MethodPost, "/api/reservations", validReservation)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, s, http.MethodPut, "/api/reservations/1741600000", strings.Replace(validReservation, `"1000"`, `1200.5`, 1))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated reservationJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "1200.50", updated.Total)

	rr = do(t, s, http.MethodPut, "/api/reservations/42", validReservation)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, s, http.MethodDelete, "/api/reservations/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, s, http.MethodDelete, "/api/reservations/1741600000", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, s, http.MethodDelete, "/api/reservations/1741600000", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestExpenseEndpoints(t *testing.T) {
	s := newTestServer(t, memory.New())

	rr := do(t, s, http.MethodPost, "/api/expenses", `{"date":"2025-03-05","description":" Lavanderia ","amount":120.5}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var e expenseJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	assert.Equal(t, "Lavanderia", e.Description)
	assert.Equal(t, "120.50", e.Amount)

	rr = do(t, s, http.MethodGet, "/api/expenses?year=2025&month=3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list listJSON[expenseJSON]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)

	rr = do(t, s, http.MethodPut, fmt.Sprintf("/api/expenses/%d", e.ID), `{"date":"2025-03-06","description":"Gás","amount":"80,00"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, s, http.MethodPost, "/api/expenses", `{"date":"2025-03-05","description":"","amount":"1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, s, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", e.ID), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestAgendaIncludesStaysCrossingIntoMonth(t *testing.T) {
	s := newTestServer(t, memory.New())
	body := strings.NewReplacer(`"2025-03-10"`, `"2025-02-27"`, `"2025-03-12"`, `"2025-03-02"`).Replace(validReservation)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/reservations", body).Code)

	rr := do(t, s, http.MethodGet, "/api/agenda?year=2025&month=3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list listJSON[reservationJSON]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "2025-02-27", list.Items[0].CheckIn)
}

func TestAgendaReportsMalformedRows(t *testing.T) {
	store := memory.New()
	s := newTestServer(t, store)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/reservations", validReservation).Code)
	require.NoError(t, store.Append(context.Background(), sheets.Reservations,
		[]any{int64(42), "Bruno", int64(1), "privativo 1", "2025-03-20", "someday", int64(0), 300.0, "", ""}))

	rr := do(t, s, http.MethodGet, "/api/agenda?year=2025&month=3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list listJSON[reservationJSON]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)

	require.NotEmpty(t, list.Issues)
	assert.Equal(t, "malformed_row", list.Issues[0].Kind)
	assert.Equal(t, int64(42), list.Issues[0].ID)
	assert.Equal(t, "saida", list.Issues[0].Field)
	assert.Equal(t, 3, list.Issues[0].Row)
	assert.NotEmpty(t, list.Warning)
}

func TestStoreUnavailableIs503(t *testing.T) {
	s := newTestServer(t, downStore{})
	for _, path := range []string{"/api/summary?year=2025&month=3", "/api/reservations", "/api/expenses", "/"} {
		rr := do(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
	}
}

func TestPeriodQueryErrors(t *testing.T) {
	s := newTestServer(t, memory.New())
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/summary?year=abc", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, s, http.MethodGet, "/api/summary?year=2025&month=13", "").Code)
}

func TestDashboardPage(t *testing.T) {
	s := newTestServer(t, memory.New())
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/reservations", validReservation).Code)

	rr := do(t, s, http.MethodGet, "/?year=2025&month=3&edit_reservation=1741600000", "")
	require.Equal(t, http.StatusOK, rr.Code)
	page := rr.Body.String()
	assert.Contains(t, page, "Painel 2025-03")
	assert.Contains(t, page, "Ana Souza")
	assert.Contains(t, page, "R$ 1.000,00")
	assert.Contains(t, page, "Editar reserva")
	assert.Contains(t, page, `name="id" value="1741600000"`)
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = do(t, s, http.MethodGet, "/static/style.css", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFormPostsRedirectBackToMonth(t *testing.T) {
	store := memory.New()
	s := newTestServer(t, store)

	form := url.Values{
		"year": {"2025"}, "month": {"3"},
		"date": {"2025-03-05"}, "description": {"Café"}, "amount": {"35,90"},
	}
	rr := postForm(t, s, "/expenses", form)
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	assert.Equal(t, "/?year=2025&month=3", rr.Header().Get("Location"))

	form = url.Values{
		"year": {"2025"}, "month": {"3"},
		"guest": {"Bruno"}, "guests": {"1"}, "rooms": {"Dormitório A", "Privativo 1"},
		"check_in": {"2025-03-01"}, "check_out": {"2025-03-04"}, "total": {"300"},
		"channel": {string(core.ChannelPhone)}, "payment": {string(core.PaymentPix)},
	}
	rr = postForm(t, s, "/reservations", form)
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())

	rows, err := store.ReadAll(context.Background(), sheets.Reservations)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	form.Set("guest", "")
	rr = postForm(t, s, "/reservations", form)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Dados inválidos")

	rr = postForm(t, s, "/expenses/999/delete", url.Values{"year": {"2025"}, "month": {"3"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
