package finance

import (
	"time"

	"hostel/internal/core"

	"github.com/shopspring/decimal"
)

// Totals are the four headline figures of a period.
type Totals struct {
	Gross    core.Money
	Fees     core.Money
	Expenses core.Money
	Net      core.Money
}

// FeeLine is the fee detail of one reservation.
type FeeLine struct {
	ID      int64
	Guest   string
	Channel core.Channel
	Payment core.PaymentMethod
	Total   core.Money
	Rate    decimal.Decimal
	Fee     core.Money
}

// Summary is what the dashboard shows for one period.
type Summary struct {
	Period    core.Period
	Projected Totals
	// Realized covers records dated up to today. It is only set when Period
	// is the current month; for past and future months it is nil.
	Realized *Totals
	FeeLines []FeeLine
	Issues   []Issue
}

// Aggregate sums already filtered records. Each reservation's total counts
// once in Gross no matter how many rooms it spans. Empty inputs give zeros.
func Aggregate(rs []core.Reservation, es []core.Expense, policy FeePolicy) Totals {
	var t Totals
	for _, r := range rs {
		t.Gross = t.Gross.Add(r.Total)
		t.Fees = t.Fees.Add(policy.Fee(r))
	}
	for _, e := range es {
		t.Expenses = t.Expenses.Add(e.Amount)
	}
	t.Net = t.Gross.Sub(t.Fees).Sub(t.Expenses)
	return t
}

// Summarize scopes rs and es to period and aggregates them. now decides
// whether period is the current month and, if so, where "realized" ends; it
// should already be in the hostel's time zone.
func Summarize(rs []core.Reservation, es []core.Expense, policy FeePolicy, period core.Period, now time.Time) Summary {
	rs = FilterByPeriod(rs, period, CheckInDate)
	es = FilterByPeriod(es, period, ExpenseDate)

	s := Summary{
		Period:    period,
		Projected: Aggregate(rs, es, policy),
		FeeLines:  make([]FeeLine, 0, len(rs)),
	}

	for _, r := range rs {
		rate, _ := policy.Rate(r)
		s.FeeLines = append(s.FeeLines, FeeLine{
			ID:      r.ID,
			Guest:   r.Guest,
			Channel: r.Channel,
			Payment: r.Payment,
			Total:   r.Total,
			Rate:    rate,
			Fee:     applyRate(r.Total, rate),
		})
		if issue, ok := policy.Check(r); ok {
			s.Issues = append(s.Issues, issue)
		}
	}

	if core.CurrentPeriod(now) == period {
		today := core.DateOf(now)
		onOrBefore := func(d core.Date) bool { return !d.After(today.Time) }
		var realizedRs []core.Reservation
		for _, r := range rs {
			if onOrBefore(r.CheckIn) {
				realizedRs = append(realizedRs, r)
			}
		}
		var realizedEs []core.Expense
		for _, e := range es {
			if onOrBefore(e.Date) {
				realizedEs = append(realizedEs, e)
			}
		}
		realized := Aggregate(realizedRs, realizedEs, policy)
		s.Realized = &realized
	}
	return s
}
