package finance

import (
	"errors"
	"fmt"
	"strings"

	"hostel/internal/core"
	"hostel/internal/sheets"

	"github.com/shopspring/decimal"
)

var ErrInvalidRate = errors.New("invalid fee rate")

var hundred = decimal.NewFromInt(100)

// FeePolicy charges every reservation
//
//	fee = total × (channel rate + payment rate)
//
// with each rate looked up in its own table. Unknown classifications are
// charged 0% and reported, never rejected. The combined rate is not capped,
// so a misconfigured table shows up as fees above the total.
type FeePolicy struct {
	Channels map[core.Channel]decimal.Decimal
	Payments map[core.PaymentMethod]decimal.Decimal
}

// DefaultFeePolicy is the composable table the hostel uses today.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		Channels: map[core.Channel]decimal.Decimal{
			core.ChannelOTA:       decimal.RequireFromString("0.13"),
			core.ChannelPhone:     decimal.RequireFromString("0.05"),
			core.ChannelMessaging: decimal.RequireFromString("0.05"),
		},
		Payments: map[core.PaymentMethod]decimal.Decimal{
			core.PaymentCredit: decimal.RequireFromString("0.05"),
			core.PaymentDebit:  decimal.RequireFromString("0.0239"),
			core.PaymentCash:   decimal.Zero,
			core.PaymentPix:    decimal.Zero,
		},
	}
}

// NewFeePolicy builds a policy from rate tables keyed by free-form labels,
// as read from configuration. Labels go through the same alias folding as
// sheet cells, so "Booking" and "online-travel-agency" name the same rate.
// A nil table keeps the default for that side.
func NewFeePolicy(channels, payments map[string]decimal.Decimal) FeePolicy {
	p := DefaultFeePolicy()
	if channels != nil {
		p.Channels = make(map[core.Channel]decimal.Decimal, len(channels))
		for label, rate := range channels {
			c, _ := core.ParseChannel(label)
			p.Channels[c] = rate
		}
	}
	if payments != nil {
		p.Payments = make(map[core.PaymentMethod]decimal.Decimal, len(payments))
		for label, rate := range payments {
			m, _ := core.ParsePaymentMethod(label)
			p.Payments[m] = rate
		}
	}
	return p
}

// Rate returns the combined rate for r and the fields whose classification
// was missing from the tables.
func (p FeePolicy) Rate(r core.Reservation) (decimal.Decimal, []string) {
	var unknown []string
	cr, ok := p.Channels[r.Channel]
	if !ok {
		cr = decimal.Zero
		unknown = append(unknown, "canal")
	}
	pr, ok := p.Payments[r.Payment]
	if !ok {
		pr = decimal.Zero
		unknown = append(unknown, "pagamento")
	}
	return cr.Add(pr), unknown
}

// Fee is r.Total times the combined rate, rounded half-up to the cent.
func (p FeePolicy) Fee(r core.Reservation) core.Money {
	rate, _ := p.Rate(r)
	return applyRate(r.Total, rate)
}

// Check returns an UnknownClassification issue when r's channel or payment
// method has no rate, or ok=false when both are known.
func (p FeePolicy) Check(r core.Reservation) (Issue, bool) {
	_, unknown := p.Rate(r)
	if len(unknown) == 0 {
		return Issue{}, false
	}
	var reasons []string
	for _, f := range unknown {
		switch f {
		case "canal":
			reasons = append(reasons, fmt.Sprintf("channel %q has no rate", r.Channel))
		case "pagamento":
			reasons = append(reasons, fmt.Sprintf("payment method %q has no rate", r.Payment))
		}
	}
	return Issue{
		Kind:   UnknownClassification,
		Table:  sheets.Reservations,
		ID:     r.ID,
		Field:  strings.Join(unknown, ","),
		Reason: strings.Join(reasons, "; ") + ", charged 0%",
	}, true
}

func applyRate(m core.Money, rate decimal.Decimal) core.Money {
	cents := decimal.NewFromInt(m.Cents).Mul(rate).Round(0)
	return core.Money{Cents: cents.IntPart()}
}

// ParseRates reads "label=rate,label=rate" where rate is a percentage, with
// or without a trailing "%": "booking=13, credito=5%, debito=2.39". The
// result holds fractions (13 -> 0.13).
func ParseRates(s string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, value, ok := strings.Cut(part, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return nil, fmt.Errorf("%w: %q: want label=percent", ErrInvalidRate, part)
		}
		value = strings.TrimSuffix(strings.TrimSpace(value), "%")
		pct, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRate, part, err)
		}
		if pct.IsNegative() {
			return nil, fmt.Errorf("%w: %q: negative rate", ErrInvalidRate, part)
		}
		out[label] = pct.Div(hundred)
	}
	return out, nil
}
