package sheets

import (
	"context"
	"errors"
)

// Table names a worksheet in the hostel spreadsheet.
type Table string

const (
	Reservations Table = "reservas"
	Expenses     Table = "despesas"
)

// Row maps a header label to the raw cell text, as the sheet presents it.
type Row = map[string]string

var (
	// ErrStoreUnavailable wraps every failure to reach or authenticate
	// against the backing store.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrNotFound is returned by Update and Delete when no row's first
	// column equals the requested id.
	ErrNotFound = errors.New("row not found")
	// ErrUnknownTable is returned for tables outside Reservations/Expenses.
	ErrUnknownTable = errors.New("unknown table")
)

// Ports for outbound adapters.
type (
	// Reader returns every data row of a table; header row excluded.
	Reader interface {
		ReadAll(ctx context.Context, table Table) ([]Row, error)
	}

	// Writer mutates rows. Values are ordered per the table's column schema.
	Writer interface {
		Append(ctx context.Context, table Table, values []any) error
		Update(ctx context.Context, table Table, id int64, values []any) error
		Delete(ctx context.Context, table Table, id int64) error
	}

	Store interface {
		Reader
		Writer
	}

	// Cache is implemented by stores that keep a read cache.
	Cache interface {
		InvalidateCache()
	}
)

// Columns returns the header labels of table in storage order.
func Columns(table Table) ([]string, error) {
	switch table {
	case Reservations:
		return append([]string(nil), reservationColumns...), nil
	case Expenses:
		return append([]string(nil), expenseColumns...), nil
	default:
		return nil, ErrUnknownTable
	}
}
