package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hostel/internal/sheets"
)

// Store keeps each table as a header row plus data rows, mimicking a sheet.
type Store struct {
	mu     sync.Mutex
	tables map[sheets.Table]*table
}

type table struct {
	header []string
	rows   [][]string
}

var _ sheets.Store = (*Store)(nil)

func New() *Store {
	s := &Store{tables: map[sheets.Table]*table{}}
	for _, name := range []sheets.Table{sheets.Reservations, sheets.Expenses} {
		cols, _ := sheets.Columns(name)
		s.tables[name] = &table{header: cols}
	}
	return s
}

// NewFromFiles seeds the store from <base>/reservas.csv and
// <base>/despesas.csv when present. The first CSV record is the header, so
// seed files may use their own labels.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	for name, t := range s.tables {
		records, err := readCSV(filepath.Join(base, string(name)+".csv"))
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}
		t.header = records[0]
		t.rows = records[1:]
	}
	return s, nil
}

// SetHeader replaces a table's header row; used to emulate sheets edited by hand.
func (s *Store) SetHeader(name sheets.Table, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("%w: %s", sheets.ErrUnknownTable, name)
	}
	t.header = append([]string(nil), header...)
	return nil
}

func (s *Store) ReadAll(_ context.Context, name sheets.Table) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sheets.ErrUnknownTable, name)
	}
	out := make([]sheets.Row, 0, len(t.rows))
	for _, cells := range t.rows {
		row := make(sheets.Row, len(t.header))
		for i, label := range t.header {
			if i < len(cells) {
				row[label] = cells[i]
			} else {
				row[label] = ""
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) Append(_ context.Context, name sheets.Table, values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("%w: %s", sheets.ErrUnknownTable, name)
	}
	t.rows = append(t.rows, sheets.CellTexts(values))
	return nil
}

func (s *Store) Update(_ context.Context, name sheets.Table, id int64, values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, idx, err := s.find(name, id)
	if err != nil {
		return err
	}
	t.rows[idx] = sheets.CellTexts(values)
	return nil
}

func (s *Store) Delete(_ context.Context, name sheets.Table, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, idx, err := s.find(name, id)
	if err != nil {
		return err
	}
	t.rows = append(t.rows[:idx], t.rows[idx+1:]...)
	return nil
}

// find must be called with s.mu held.
func (s *Store) find(name sheets.Table, id int64) (*table, int, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, -1, fmt.Errorf("%w: %s", sheets.ErrUnknownTable, name)
	}
	for i, cells := range t.rows {
		if len(cells) == 0 {
			continue
		}
		if got, ok := sheets.RowID(cells[0]); ok && got == id {
			return t, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %s id=%d", sheets.ErrNotFound, name, id)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	out := records[:0]
	for _, rec := range records {
		if len(rec) == 0 || strings.HasPrefix(strings.TrimSpace(rec[0]), "#") {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
