package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"hostel/internal/core"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

var (
	errBadRequest = errors.New("malformed request")
	errBadID      = errors.New("invalid id")
)

var validate = newValidator()

// newValidator reports fields by their JSON names, which are also the form
// field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// amountText accepts a JSON number or string and keeps the literal text so
// it can be parsed to cents without going through float64.
type amountText string

func (a *amountText) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountText(n.String())
	return nil
}

type reservationInput struct {
	Guest    string     `json:"guest" validate:"required,max=200"`
	Guests   int        `json:"guests" validate:"gte=1"`
	Rooms    []string   `json:"rooms" validate:"min=1,dive,required"`
	CheckIn  string     `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string     `json:"check_out" validate:"required,datetime=2006-01-02"`
	Total    amountText `json:"total" validate:"required"`
	Channel  string     `json:"channel" validate:"required"`
	Payment  string     `json:"payment" validate:"required"`
}

type expenseInput struct {
	Date        string     `json:"date" validate:"required,datetime=2006-01-02"`
	Description string     `json:"description" validate:"required,max=200"`
	Amount      amountText `json:"amount" validate:"required"`
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeJSON reads a single JSON object of at most maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return r.PostForm, nil
}

func decodeReservation(w http.ResponseWriter, r *http.Request) (reservationInput, error) {
	var in reservationInput
	if isJSON(r) {
		if err := decodeJSON(w, r, &in); err != nil {
			return in, err
		}
	} else {
		form, err := parseForm(w, r)
		if err != nil {
			return in, err
		}
		in = reservationInput{
			Guest:    sanitizeInput(form.Get("guest")),
			Guests:   atoiOrZero(form.Get("guests")),
			CheckIn:  strings.TrimSpace(form.Get("check_in")),
			CheckOut: strings.TrimSpace(form.Get("check_out")),
			Total:    amountText(strings.TrimSpace(form.Get("total"))),
			Channel:  sanitizeInput(form.Get("channel")),
			Payment:  sanitizeInput(form.Get("payment")),
		}
		for _, v := range form["rooms"] {
			in.Rooms = append(in.Rooms, core.SplitRooms(v)...)
		}
	}
	in.Guest = sanitizeInput(in.Guest)
	return in, validate.Struct(in)
}

func decodeExpense(w http.ResponseWriter, r *http.Request) (expenseInput, error) {
	var in expenseInput
	if isJSON(r) {
		if err := decodeJSON(w, r, &in); err != nil {
			return in, err
		}
	} else {
		form, err := parseForm(w, r)
		if err != nil {
			return in, err
		}
		in = expenseInput{
			Date:        strings.TrimSpace(form.Get("date")),
			Description: form.Get("description"),
			Amount:      amountText(strings.TrimSpace(form.Get("amount"))),
		}
	}
	in.Description = sanitizeInput(in.Description)
	return in, validate.Struct(in)
}

func (in reservationInput) reservation(id int64) (core.Reservation, error) {
	checkIn, err := parseDate(in.CheckIn)
	if err != nil {
		return core.Reservation{}, core.Invalid("check_in", err)
	}
	checkOut, err := parseDate(in.CheckOut)
	if err != nil {
		return core.Reservation{}, core.Invalid("check_out", err)
	}
	cents, err := core.ParseDecimalToCents(string(in.Total))
	if err != nil {
		return core.Reservation{}, core.Invalid("total", err)
	}
	return core.Reservation{
		ID:       id,
		Guest:    in.Guest,
		Guests:   in.Guests,
		Rooms:    in.Rooms,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Total:    core.Money{Cents: cents},
		Channel:  core.Channel(in.Channel),
		Payment:  core.PaymentMethod(in.Payment),
	}, nil
}

func (in expenseInput) expense(id int64) (core.Expense, error) {
	date, err := parseDate(in.Date)
	if err != nil {
		return core.Expense{}, core.Invalid("date", err)
	}
	cents, err := core.ParseDecimalToCents(string(in.Amount))
	if err != nil {
		return core.Expense{}, core.Invalid("amount", err)
	}
	return core.Expense{
		ID:          id,
		Date:        date,
		Description: in.Description,
		Amount:      core.Money{Cents: cents},
	}, nil
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

// parsePeriod reads year and month from the query, defaulting to the month
// containing now.
func parsePeriod(q url.Values, now time.Time) (core.Period, error) {
	p := core.CurrentPeriod(now)
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("%w: year %q", errBadRequest, v)
		}
		p.Year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("%w: month %q", errBadRequest, v)
		}
		p.Month = m
	}
	if err := p.Validate(); err != nil {
		return p, core.Invalid("month", err)
	}
	return p, nil
}

// pathID reads the {id} wildcard.
func pathID(r *http.Request) (int64, error) {
	return parseID(r.PathValue("id"))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errBadID, s)
	}
	return id, nil
}

// optionalID reads an id query or form value; blank or invalid means none.
func optionalID(s string) int64 {
	id, err := parseID(s)
	if err != nil {
		return 0
	}
	return id
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
