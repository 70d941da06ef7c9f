package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"hostel/internal/core"
	applog "hostel/internal/log"
	"hostel/internal/services"

	"github.com/shopspring/decimal"
)

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.String() },
	"percent": func(rate decimal.Decimal) string {
		return strings.Replace(rate.Mul(decimal.NewFromInt(100)).StringFixed(2), ".", ",", 1) + "%"
	},
	"date":  func(d core.Date) string { return d.String() },
	"rooms": func(r core.Reservation) string { return r.RoomLabel() },
	"hasRoom": func(r *core.Reservation, room string) bool {
		if r == nil {
			return false
		}
		for _, x := range r.Rooms {
			if x == room {
				return true
			}
		}
		return false
	},
	"reais": func(m core.Money) string { return amount(m) },
}

// pageData feeds dashboard.html.
type pageData struct {
	*services.Dashboard
	Prev, Next core.Period
	Rooms      []string
	Channels   []core.Channel
	Payments   []core.PaymentMethod
	FormError  string
	Fields     []fieldError
}

// viewFrom reads the session context carried in the query string.
func (s *Server) viewFrom(q url.Values) (services.View, error) {
	period, err := parsePeriod(q, s.svc.Dashboard.Now())
	if err != nil {
		return services.View{}, err
	}
	return services.View{
		Period:          period,
		EditReservation: optionalID(q.Get("edit_reservation")),
		EditExpense:     optionalID(q.Get("edit_expense")),
	}, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewFrom(r.URL.Query())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderDashboard(w, r, v, http.StatusOK, nil)
}

// renderDashboard builds the dashboard for v and writes it with status.
// formErr, when set, is shown above the forms.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, v services.View, status int, formErr error) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	d, err := s.svc.Dashboard.Build(r.Context(), v)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	data := pageData{
		Dashboard: d,
		Prev:      v.Period.Prev(),
		Next:      v.Period.Next(),
		Rooms:     s.svc.Bookings.Rooms(),
		Channels:  core.Channels(),
		Payments:  core.PaymentMethods(),
	}
	if formErr != nil {
		data.FormError = formErrorText(formErr)
		data.Fields = fieldErrors(formErr)
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(),
			"Template execution failed", applog.FieldOperation, applog.OpRender, applog.FieldError, err.Error(), "template", "dashboard.html")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func formErrorText(err error) string {
	switch statusFor(err) {
	case http.StatusUnprocessableEntity:
		return "Dados inválidos"
	case http.StatusNotFound:
		return "Registro não encontrado"
	case http.StatusBadRequest:
		return "Requisição inválida"
	default:
		return "Erro ao salvar"
	}
}

// renderError answers with a plain-text page; store outages become 503.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentDashboard)
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Dashboard unavailable", applog.FieldError, err.Error())
	}
	msg := errorMessage(status, err)
	if status == http.StatusUnprocessableEntity {
		msg = err.Error()
	}
	http.Error(w, msg, status)
}

// redirectToView sends the browser back to the month it was looking at.
func redirectToView(w http.ResponseWriter, r *http.Request, p core.Period) {
	http.Redirect(w, r, fmt.Sprintf("/?year=%d&month=%d", p.Year, p.Month), http.StatusSeeOther)
}

// formView is the month the form was posted from, carried in hidden fields.
func (s *Server) formView(r *http.Request) services.View {
	q := url.Values{"year": {r.PostFormValue("year")}, "month": {r.PostFormValue("month")}}
	v, err := s.viewFrom(q)
	if err != nil {
		return s.svc.Dashboard.CurrentView()
	}
	return v
}

func (s *Server) handleSaveReservationForm(w http.ResponseWriter, r *http.Request) {
	in, err := decodeReservation(w, r)
	v := s.formView(r)
	id := optionalID(r.PostFormValue("id"))
	v.EditReservation = id
	if err == nil {
		var res core.Reservation
		if res, err = in.reservation(id); err == nil {
			if id == 0 {
				_, err = s.svc.Bookings.Create(r.Context(), res)
			} else {
				_, err = s.svc.Bookings.Update(r.Context(), res)
			}
		}
	}
	if err != nil {
		s.formFailed(w, r, v, err)
		return
	}
	redirectToView(w, r, v.Period)
}

func (s *Server) handleDeleteReservationForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		_, err = parseForm(w, r)
	}
	v := s.formView(r)
	if err == nil {
		err = s.svc.Bookings.Delete(r.Context(), id)
	}
	if err != nil {
		s.formFailed(w, r, v, err)
		return
	}
	redirectToView(w, r, v.Period)
}

func (s *Server) handleSaveExpenseForm(w http.ResponseWriter, r *http.Request) {
	in, err := decodeExpense(w, r)
	v := s.formView(r)
	id := optionalID(r.PostFormValue("id"))
	v.EditExpense = id
	if err == nil {
		var e core.Expense
		if e, err = in.expense(id); err == nil {
			if id == 0 {
				_, err = s.svc.Expenses.Create(r.Context(), e)
			} else {
				_, err = s.svc.Expenses.Update(r.Context(), e)
			}
		}
	}
	if err != nil {
		s.formFailed(w, r, v, err)
		return
	}
	redirectToView(w, r, v.Period)
}

func (s *Server) handleDeleteExpenseForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		_, err = parseForm(w, r)
	}
	v := s.formView(r)
	if err == nil {
		err = s.svc.Expenses.Delete(r.Context(), id)
	}
	if err != nil {
		s.formFailed(w, r, v, err)
		return
	}
	redirectToView(w, r, v.Period)
}

// formFailed re-renders the page with the error next to the forms. Store
// outages cannot render a page and fall through to renderError.
func (s *Server) formFailed(w http.ResponseWriter, r *http.Request, v services.View, err error) {
	status := statusFor(err)
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Form rejected",
		applog.FieldError, err.Error(), applog.FieldStatusCode, status)
	if status >= 500 {
		s.renderError(w, r, err)
		return
	}
	if errors.Is(err, errBadID) {
		v.EditReservation, v.EditExpense = 0, 0
	}
	s.renderDashboard(w, r, v, status, err)
}
