package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hostel/internal/core"
	"hostel/internal/finance"
	applog "hostel/internal/log"
	"hostel/internal/sheets"
)

// View is the per-session state a dashboard is rendered for: the selected
// month and, optionally, the record being edited.
type View struct {
	Period          core.Period
	EditReservation int64
	EditExpense     int64
}

// Dashboard is everything one page render needs.
type Dashboard struct {
	View         View
	Summary      finance.Summary
	Occupancy    finance.Occupancy
	Reservations []core.Reservation // checked in during the period
	Expenses     []core.Expense
	Agenda       []core.Reservation // any night inside the period
	Issues       []finance.Issue
	Warning      string

	EditingReservation *core.Reservation
	EditingExpense     *core.Expense
}

type DashboardService struct {
	store    sheets.Reader
	policy   finance.FeePolicy
	rooms    core.RoomSet
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

func NewDashboardService(store sheets.Reader, policy finance.FeePolicy, rooms core.RoomSet, location *time.Location, logger *slog.Logger) *DashboardService {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		store:    store,
		policy:   policy,
		rooms:    rooms,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// Now returns the current time in the hostel's time zone.
func (s *DashboardService) Now() time.Time {
	return s.now().In(s.location)
}

// CurrentView is the default view: this month, nothing being edited.
func (s *DashboardService) CurrentView() View {
	return View{Period: core.CurrentPeriod(s.Now())}
}

// Build reads both tables and derives the dashboard for v. A store failure
// aborts the whole build; rows that cannot be read are skipped and reported
// in Issues and Warning.
func (s *DashboardService) Build(ctx context.Context, v View) (*Dashboard, error) {
	if err := v.Period.Validate(); err != nil {
		return nil, core.Invalid("period", err)
	}

	resRows, err := s.store.ReadAll(ctx, sheets.Reservations)
	if err != nil {
		return nil, fmt.Errorf("read reservations: %w", err)
	}
	expRows, err := s.store.ReadAll(ctx, sheets.Expenses)
	if err != nil {
		return nil, fmt.Errorf("read expenses: %w", err)
	}

	rs, resIssues := finance.NormalizeReservations(resRows)
	es, expIssues := finance.NormalizeExpenses(expRows)

	d := &Dashboard{
		View:         v,
		Summary:      finance.Summarize(rs, es, s.policy, v.Period, s.Now()),
		Reservations: finance.FilterByPeriod(rs, v.Period, finance.CheckInDate),
		Expenses:     finance.FilterByPeriod(es, v.Period, finance.ExpenseDate),
		Agenda:       finance.Overlapping(rs, v.Period),
	}
	d.Occupancy = finance.Breakdown(d.Reservations).WithRooms(s.rooms)

	d.Issues = append(d.Issues, resIssues...)
	d.Issues = append(d.Issues, expIssues...)
	d.Issues = append(d.Issues, d.Summary.Issues...)
	d.Warning = finance.Warning(d.Issues)
	if d.Warning != "" {
		s.logger.WarnContext(ctx, "Dashboard built with data issues",
			applog.FieldPeriod, v.Period.String(), applog.FieldIssues, len(d.Issues), "warning", d.Warning)
	}

	if v.EditReservation != 0 {
		for i := range rs {
			if rs[i].ID == v.EditReservation {
				d.EditingReservation = &rs[i]
				break
			}
		}
	}
	if v.EditExpense != 0 {
		for i := range es {
			if es[i].ID == v.EditExpense {
				d.EditingExpense = &es[i]
				break
			}
		}
	}
	return d, nil
}

// Ping checks that the store answers.
func (s *DashboardService) Ping(ctx context.Context) error {
	_, err := s.store.ReadAll(ctx, sheets.Reservations)
	return err
}
