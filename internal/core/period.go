package core

import (
	"fmt"
	"time"
)

// Period is the calendar month every report is scoped to.
type Period struct {
	Year  int
	Month int // 1-12
}

// CurrentPeriod returns the month containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: int(now.Month())}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, p.Month)
	}
	return nil
}

// First returns the first day of the month.
func (p Period) First() Date {
	return NewDate(p.Year, p.Month, 1)
}

// Last returns the last day of the month.
func (p Period) Last() Date {
	return Date{Time: p.First().AddDate(0, 1, -1)}
}

// Contains reports whether d falls between First and Last inclusive.
func (p Period) Contains(d Date) bool {
	if d.IsZero() {
		return false
	}
	return d.Year() == p.Year && d.Month() == p.Month
}

func (p Period) Prev() Period {
	return CurrentPeriod(p.First().AddDate(0, -1, 0))
}

func (p Period) Next() Period {
	return CurrentPeriod(p.First().AddDate(0, 1, 0))
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
