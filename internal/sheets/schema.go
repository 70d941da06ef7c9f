package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"hostel/internal/core"
)

var (
	reservationColumns = []string{"id", "nome", "hospedes", "quarto", "entrada", "saida", "noites", "total", "canal", "pagamento"}
	expenseColumns     = []string{"id", "data", "descricao", "valor"}
)

const dateLayout = "2006-01-02"

// ReservationValues encodes r in the reservas column order.
func ReservationValues(r core.Reservation) []any {
	return []any{
		r.ID,
		r.Guest,
		r.Guests,
		r.RoomLabel(),
		r.CheckIn.Format(dateLayout),
		r.CheckOut.Format(dateLayout),
		r.Nights(),
		r.Total.Reais(),
		string(r.Channel),
		string(r.Payment),
	}
}

// ExpenseValues encodes e in the despesas column order.
func ExpenseValues(e core.Expense) []any {
	return []any{
		e.ID,
		e.Date.Format(dateLayout),
		e.Description,
		e.Amount.Reais(),
	}
}

// CellText renders a value the way a spreadsheet would display it unformatted.
func CellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// CellTexts converts a row of values with CellText.
func CellTexts(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = CellText(v)
	}
	return out
}

// RowID extracts the identifier from a first-column cell, tolerating the
// "1700000000.0" rendering numeric cells sometimes get.
func RowID(cell string) (int64, bool) {
	cell = strings.TrimSpace(cell)
	if id, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}
