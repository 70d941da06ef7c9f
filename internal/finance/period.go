package finance

import "hostel/internal/core"

// FilterByPeriod keeps the records whose selected date falls in p, first and
// last day included. Order is preserved and the input is not modified.
func FilterByPeriod[T any](records []T, p core.Period, date func(T) core.Date) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if p.Contains(date(rec)) {
			out = append(out, rec)
		}
	}
	return out
}

// CheckInDate attributes a reservation to the month it starts in, even when
// the stay runs into the next one.
func CheckInDate(r core.Reservation) core.Date { return r.CheckIn }

func ExpenseDate(e core.Expense) core.Date { return e.Date }

// Overlapping returns reservations with at least one night inside p. Unlike
// FilterByPeriod it follows the stay span, which is what the agenda shows.
func Overlapping(rs []core.Reservation, p core.Period) []core.Reservation {
	first, last := p.First(), p.Last()
	out := make([]core.Reservation, 0, len(rs))
	for _, r := range rs {
		if r.CheckIn.After(last.Time) || !r.CheckOut.After(first.Time) {
			continue
		}
		out = append(out, r)
	}
	return out
}
