package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"hostel/internal/core"
	"hostel/internal/finance"
	applog "hostel/internal/log"
	"hostel/internal/middleware/trace"
	"hostel/internal/sheets"

	"github.com/go-playground/validator/v10"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	Error     string       `json:"error"`
	RequestID string       `json:"request_id,omitempty"`
	Fields    []fieldError `json:"fields,omitempty"`
}

// statusFor maps domain and store errors to HTTP status codes.
func statusFor(err error) int {
	var ve validator.ValidationErrors
	var de *core.ValidationError
	switch {
	case errors.As(err, &ve), errors.As(err, &de):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadID), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, sheets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheets.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fieldErrors lists the offending fields of a validation failure.
func fieldErrors(err error) []fieldError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]fieldError, 0, len(ve))
		for _, e := range ve {
			out = append(out, fieldError{Field: e.Field(), Message: validationMessage(e)})
		}
		return out
	}
	var de *core.ValidationError
	if errors.As(err, &de) {
		return []fieldError{{Field: de.Field, Message: de.Err.Error()}}
	}
	return nil
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return "At least " + e.Param() + " value required"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "datetime":
		return "Must be a date formatted as YYYY-MM-DD"
	default:
		return "Invalid value"
	}
}

// errorMessage is the client-facing text; internal failures stay generic.
func errorMessage(status int, err error) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return "validation failed"
	case http.StatusNotFound:
		return "record not found"
	case http.StatusServiceUnavailable:
		return "record store unavailable"
	case http.StatusBadRequest:
		return err.Error()
	default:
		return "internal error"
	}
}

// writeError logs err and answers with the matching status and a JSON body.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= 500 {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, op,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
	} else {
		logger.DebugContext(r.Context(), "Request rejected", applog.FieldOperation, op, applog.FieldError, err.Error(), applog.FieldStatusCode, status)
	}
	writeJSON(w, status, errorBody{
		Error:     errorMessage(status, err),
		RequestID: trace.GetRequestID(r.Context()),
		Fields:    fieldErrors(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type reservationJSON struct {
	ID       int64    `json:"id"`
	Guest    string   `json:"guest"`
	Guests   int      `json:"guests"`
	Rooms    []string `json:"rooms"`
	CheckIn  string   `json:"check_in"`
	CheckOut string   `json:"check_out"`
	Nights   int      `json:"nights"`
	Total    string   `json:"total"`
	Channel  string   `json:"channel"`
	Payment  string   `json:"payment"`
}

type expenseJSON struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type totalsJSON struct {
	Gross    string `json:"gross"`
	Fees     string `json:"fees"`
	Expenses string `json:"expenses"`
	Net      string `json:"net"`
}

type feeLineJSON struct {
	ID      int64  `json:"id"`
	Guest   string `json:"guest"`
	Channel string `json:"channel"`
	Payment string `json:"payment"`
	Total   string `json:"total"`
	Rate    string `json:"rate"`
	Fee     string `json:"fee"`
}

type roomJSON struct {
	Room         string `json:"room"`
	Reservations int    `json:"reservations"`
	Nights       int    `json:"nights"`
	Revenue      string `json:"revenue"`
}

type issueJSON struct {
	Kind   string `json:"kind"`
	Table  string `json:"table"`
	Row    int    `json:"row,omitempty"`
	ID     int64  `json:"id,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

type summaryJSON struct {
	Period    string        `json:"period"`
	Projected totalsJSON    `json:"projected"`
	Realized  *totalsJSON   `json:"realized"`
	FeeLines  []feeLineJSON `json:"fee_lines"`
	Occupancy []roomJSON    `json:"occupancy"`
	Issues    []issueJSON   `json:"issues"`
	Warning   string        `json:"warning,omitempty"`
}

type listJSON[T any] struct {
	Period  string      `json:"period"`
	Items   []T         `json:"items"`
	Issues  []issueJSON `json:"issues"`
	Warning string      `json:"warning,omitempty"`
}

// amount renders money as a plain decimal with two places, e.g. "1500.00".
func amount(m core.Money) string {
	return m.Decimal().StringFixed(2)
}

func toReservationJSON(r core.Reservation) reservationJSON {
	rooms := r.Rooms
	if rooms == nil {
		rooms = []string{}
	}
	return reservationJSON{
		ID:       r.ID,
		Guest:    r.Guest,
		Guests:   r.Guests,
		Rooms:    rooms,
		CheckIn:  r.CheckIn.String(),
		CheckOut: r.CheckOut.String(),
		Nights:   r.Nights(),
		Total:    amount(r.Total),
		Channel:  string(r.Channel),
		Payment:  string(r.Payment),
	}
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Date:        e.Date.String(),
		Description: e.Description,
		Amount:      amount(e.Amount),
	}
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

func toTotalsJSON(t finance.Totals) totalsJSON {
	return totalsJSON{
		Gross:    amount(t.Gross),
		Fees:     amount(t.Fees),
		Expenses: amount(t.Expenses),
		Net:      amount(t.Net),
	}
}

func toIssueJSON(i finance.Issue) issueJSON {
	return issueJSON{
		Kind:   string(i.Kind),
		Table:  string(i.Table),
		Row:    i.Row,
		ID:     i.ID,
		Field:  i.Field,
		Reason: i.Reason,
	}
}

func toSummaryJSON(s finance.Summary, o finance.Occupancy, issues []finance.Issue, warning string) summaryJSON {
	out := summaryJSON{
		Period:    s.Period.String(),
		Projected: toTotalsJSON(s.Projected),
		FeeLines: mapSlice(s.FeeLines, func(l finance.FeeLine) feeLineJSON {
			return feeLineJSON{
				ID:      l.ID,
				Guest:   l.Guest,
				Channel: string(l.Channel),
				Payment: string(l.Payment),
				Total:   amount(l.Total),
				Rate:    l.Rate.String(),
				Fee:     amount(l.Fee),
			}
		}),
		Occupancy: mapSlice(o.Rooms(), func(room string) roomJSON {
			return roomJSON{
				Room:         room,
				Reservations: o.Counts[room],
				Nights:       o.Nights[room],
				Revenue:      amount(o.Revenue[room]),
			}
		}),
		Issues:  mapSlice(issues, toIssueJSON),
		Warning: warning,
	}
	if s.Realized != nil {
		t := toTotalsJSON(*s.Realized)
		out.Realized = &t
	}
	return out
}
