package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hostel/internal/core"
	"hostel/internal/finance"
	applog "hostel/internal/log"
	"hostel/internal/sheets"
)

// ExpenseService validates and writes operating expenses.
type ExpenseService struct {
	w   recordWriter
	ids *core.IDGenerator
}

func NewExpenseService(store sheets.Store, ids *core.IDGenerator, publisher Publisher, logger *slog.Logger) *ExpenseService {
	if logger == nil {
		logger = slog.Default()
	}
	if ids == nil {
		ids = core.NewIDGenerator(nil)
	}
	return &ExpenseService{
		w:   recordWriter{store: store, publisher: publisher, logger: logger},
		ids: ids,
	}
}

func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = s.ids.Next()
	if err := s.w.append(ctx, sheets.Expenses, e.ID, sheets.ExpenseValues(e)); err != nil {
		return core.Expense{}, fmt.Errorf("append expense: %w", err)
	}
	s.w.logger.InfoContext(ctx, "Expense created",
		applog.FieldRowID, e.ID, applog.FieldAmountCents, e.Amount.Cents)
	return e, nil
}

// Update overwrites the expense with e.ID. It returns an error wrapping
// sheets.ErrNotFound when no row has that id.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID <= 0 {
		return core.Expense{}, core.Invalid("id", fmt.Errorf("missing id"))
	}
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.w.update(ctx, sheets.Expenses, e.ID, sheets.ExpenseValues(e)); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	s.w.logger.InfoContext(ctx, "Expense updated", applog.FieldRowID, e.ID)
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if err := s.w.delete(ctx, sheets.Expenses, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	s.w.logger.InfoContext(ctx, "Expense deleted", applog.FieldRowID, id)
	return nil
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, []finance.Issue, error) {
	rows, err := s.w.store.ReadAll(ctx, sheets.Expenses)
	if err != nil {
		return nil, nil, fmt.Errorf("read expenses: %w", err)
	}
	es, issues := finance.NormalizeExpenses(rows)
	for _, e := range es {
		s.ids.Observe(e.ID)
	}
	return es, issues, nil
}
