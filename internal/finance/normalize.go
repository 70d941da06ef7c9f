// Package finance turns raw reservas/despesas rows into typed records and
// derives the period-scoped figures shown on the dashboard: gross revenue,
// channel and payment fees, operating expenses, net profit and the per-room
// occupancy breakdown.
//
// Everything here is a pure function over the rows fetched for one view.
package finance

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"hostel/internal/core"
	"hostel/internal/sheets"
)

// IssueKind classifies a non-fatal data problem.
type IssueKind string

const (
	// MalformedRow means the row was excluded from every figure.
	MalformedRow IssueKind = "malformed_row"
	// UnknownClassification means the reservation was kept but charged a
	// zero rate for the unrecognised channel or payment method.
	UnknownClassification IssueKind = "unknown_classification"
)

// Issue describes one row that needs the operator's attention.
type Issue struct {
	Kind   IssueKind
	Table  sheets.Table
	Row    int   // 1-based sheet row (header is row 1); 0 when not known
	ID     int64 // 0 when the id cell was unreadable
	Field  string
	Reason string
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Table))
	if i.Row > 0 {
		fmt.Fprintf(&b, " row %d", i.Row)
	}
	if i.ID != 0 {
		fmt.Fprintf(&b, " (id %d)", i.ID)
	}
	fmt.Fprintf(&b, ": %s: %s", i.Field, i.Reason)
	return b.String()
}

var labelAliases = map[string]string{
	"name":               "nome",
	"hospede":            "nome",
	"guest":              "nome",
	"guests":             "hospedes",
	"n hospedes":         "hospedes",
	"quartos":            "quarto",
	"room":               "quarto",
	"rooms":              "quarto",
	"check-in":           "entrada",
	"checkin":            "entrada",
	"check in":           "entrada",
	"check-out":          "saida",
	"checkout":           "saida",
	"check out":          "saida",
	"nights":             "noites",
	"valor total":        "total",
	"price":              "total",
	"origem":             "canal",
	"channel":            "canal",
	"forma de pagamento": "pagamento",
	"payment":            "pagamento",
	"date":               "data",
	"description":        "descricao",
	"amount":             "valor",
}

// NormalizeLabel folds a header label (trim, lower-case, strip accents) and
// maps known spelling variants onto the column names this system writes.
func NormalizeLabel(label string) string {
	key := core.Fold(label)
	if alias, ok := labelAliases[key]; ok {
		return alias
	}
	return key
}

// record is a raw row re-keyed by normalized label.
type record map[string]string

func newRecord(row sheets.Row) record {
	rec := make(record, len(row))
	for label, v := range row {
		key := NormalizeLabel(label)
		if key == "" {
			continue
		}
		v = strings.TrimSpace(v)
		// Two labels can fold to the same key; keep the non-empty cell.
		if v == "" && rec[key] != "" {
			continue
		}
		rec[key] = v
	}
	return rec
}

// get returns the first non-empty value among keys.
func (r record) get(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

func (r record) blank() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}

func (r record) id() int64 {
	id, _ := sheets.RowID(r["id"])
	return id
}

// NormalizeReservations converts raw reservas rows. Rows whose dates cannot
// be read, whose stay is not positive, whose room list is empty or whose total
// is negative are left out and reported as MalformedRow issues. Absent or
// unreadable numbers become zero.
func NormalizeReservations(rows []sheets.Row) ([]core.Reservation, []Issue) {
	out := make([]core.Reservation, 0, len(rows))
	var issues []Issue
	for i, row := range rows {
		rec := newRecord(row)
		if rec.blank() {
			continue
		}
		r, field, err := reservationFrom(rec)
		if err != nil {
			issues = append(issues, Issue{
				Kind:   MalformedRow,
				Table:  sheets.Reservations,
				Row:    i + 2,
				ID:     rec.id(),
				Field:  field,
				Reason: err.Error(),
			})
			continue
		}
		out = append(out, r)
	}
	return out, issues
}

func reservationFrom(rec record) (core.Reservation, string, error) {
	r := core.Reservation{
		ID:     rec.id(),
		Guest:  rec.get("nome"),
		Guests: parseCount(rec.get("hospedes")),
		Rooms:  core.SplitRooms(rec.get("quarto")),
	}
	if len(r.Rooms) == 0 {
		return r, "quarto", core.ErrNoRooms
	}

	var err error
	if r.CheckIn, err = ParseDate(rec.get("entrada")); err != nil {
		return r, "entrada", err
	}
	if r.CheckOut, err = ParseDate(rec.get("saida")); err != nil {
		return r, "saida", err
	}
	if !r.CheckOut.After(r.CheckIn.Time) {
		return r, "saida", core.ErrInvalidStay
	}

	if r.Total, err = parseMoney(rec.get("total", "valor")); err != nil {
		return r, "total", err
	}

	// Classification is kept verbatim when unknown; the fee policy flags it.
	if v := rec.get("canal"); v != "" {
		r.Channel, _ = core.ParseChannel(v)
	}
	if v := rec.get("pagamento"); v != "" {
		r.Payment, _ = core.ParsePaymentMethod(v)
	}
	return r, "", nil
}

// NormalizeExpenses converts raw despesas rows, with the same exclusion rules
// as NormalizeReservations for dates and negative amounts.
func NormalizeExpenses(rows []sheets.Row) ([]core.Expense, []Issue) {
	out := make([]core.Expense, 0, len(rows))
	var issues []Issue
	for i, row := range rows {
		rec := newRecord(row)
		if rec.blank() {
			continue
		}
		e, field, err := expenseFrom(rec)
		if err != nil {
			issues = append(issues, Issue{
				Kind:   MalformedRow,
				Table:  sheets.Expenses,
				Row:    i + 2,
				ID:     rec.id(),
				Field:  field,
				Reason: err.Error(),
			})
			continue
		}
		out = append(out, e)
	}
	return out, issues
}

func expenseFrom(rec record) (core.Expense, string, error) {
	e := core.Expense{
		ID:          rec.id(),
		Description: rec.get("descricao"),
	}
	var err error
	if e.Date, err = ParseDate(rec.get("data")); err != nil {
		return e, "data", err
	}
	if e.Amount, err = parseMoney(rec.get("valor")); err != nil {
		return e, "valor", err
	}
	return e, "", nil
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2/1/2006",
}

// Spreadsheet serial dates count days from 1899-12-30.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate reads a date cell in any of the formats a spreadsheet may hand
// back: ISO, Brazilian day-first, datetime, RFC3339 or a serial day number.
func ParseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, core.ErrZeroDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 1 && f < 2958466 {
		return core.DateOf(serialEpoch.AddDate(0, 0, int(math.Floor(f)))), nil
	}
	return core.Date{}, fmt.Errorf("unrecognised date %q", s)
}

func parseCount(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		return int(f)
	}
	return 0
}

// parseMoney reads an amount cell, defaulting to zero when it is absent or
// unreadable. Negative and out-of-range amounts are an error.
func parseMoney(s string) (core.Money, error) {
	if s == "" {
		return core.Money{}, nil
	}
	m, err := core.ParseAmount(s)
	if errors.Is(err, core.ErrAmountOutOfRange) {
		return core.Money{}, err
	}
	if err != nil {
		return core.Money{}, nil
	}
	if m.Cents < 0 {
		return core.Money{}, core.ErrNegativeAmount
	}
	return m, nil
}

// Warning summarises issues in one line for display, or returns "" when
// there are none.
func Warning(issues []Issue) string {
	if len(issues) == 0 {
		return ""
	}
	skipped := map[sheets.Table]int{}
	flagged := 0
	for _, is := range issues {
		switch is.Kind {
		case MalformedRow:
			skipped[is.Table]++
		case UnknownClassification:
			flagged++
		}
	}

	var parts []string
	if len(skipped) > 0 {
		total := 0
		tables := make([]string, 0, len(skipped))
		for t, n := range skipped {
			total += n
			tables = append(tables, fmt.Sprintf("%s: %d", t, n))
		}
		sort.Strings(tables)
		parts = append(parts, fmt.Sprintf("skipped %d malformed %s (%s)", total, plural(total, "row"), strings.Join(tables, ", ")))
	}
	if flagged > 0 {
		parts = append(parts, fmt.Sprintf("%d %s with unknown channel or payment charged at 0%%", flagged, plural(flagged, "reservation")))
	}
	return strings.Join(parts, "; ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
