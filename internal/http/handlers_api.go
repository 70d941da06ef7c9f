package http

import (
	"cmp"
	"net/http"
	"slices"

	"hostel/internal/core"
	"hostel/internal/finance"
	applog "hostel/internal/log"
	"hostel/internal/services"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query(), s.svc.Dashboard.Now())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	d, err := s.svc.Dashboard.Build(r.Context(), services.View{Period: period})
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryJSON(d.Summary, d.Occupancy, d.Issues, d.Warning))
}

// handleAgenda lists every reservation with at least one night in the
// month, ordered by check-in.
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query(), s.svc.Dashboard.Now())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	d, err := s.svc.Dashboard.Build(r.Context(), services.View{Period: period})
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	agenda := slices.Clone(d.Agenda)
	slices.SortStableFunc(agenda, func(a, b core.Reservation) int {
		if c := a.CheckIn.Compare(b.CheckIn.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	writeJSON(w, http.StatusOK, listJSON[reservationJSON]{
		Period:  period.String(),
		Items:   mapSlice(agenda, toReservationJSON),
		Issues:  mapSlice(d.Issues, toIssueJSON),
		Warning: d.Warning,
	})
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query(), s.svc.Dashboard.Now())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	rs, issues, err := s.svc.Bookings.List(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	rs = finance.FilterByPeriod(rs, period, finance.CheckInDate)
	writeJSON(w, http.StatusOK, listJSON[reservationJSON]{
		Period:  period.String(),
		Items:   mapSlice(rs, toReservationJSON),
		Issues:  mapSlice(issues, toIssueJSON),
		Warning: finance.Warning(issues),
	})
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	in, err := decodeReservation(w, r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	res, err := in.reservation(0)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	created, err := s.svc.Bookings.Create(r.Context(), res)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationJSON(created))
}

func (s *Server) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	in, err := decodeReservation(w, r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	res, err := in.reservation(id)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	updated, err := s.svc.Bookings.Update(r.Context(), res)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationJSON(updated))
}

func (s *Server) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.svc.Bookings.Delete(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query(), s.svc.Dashboard.Now())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	es, issues, err := s.svc.Expenses.List(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	es = finance.FilterByPeriod(es, period, finance.ExpenseDate)
	writeJSON(w, http.StatusOK, listJSON[expenseJSON]{
		Period:  period.String(),
		Items:   mapSlice(es, toExpenseJSON),
		Issues:  mapSlice(issues, toIssueJSON),
		Warning: finance.Warning(issues),
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := decodeExpense(w, r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	e, err := in.expense(0)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	created, err := s.svc.Expenses.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseJSON(created))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	in, err := decodeExpense(w, r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	e, err := in.expense(id)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	updated, err := s.svc.Expenses.Update(r.Context(), e)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseJSON(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.svc.Expenses.Delete(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
