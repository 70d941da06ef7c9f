package services

import (
	"context"
	"log/slog"

	"hostel/internal/amqp"
	applog "hostel/internal/log"
	"hostel/internal/sheets"
)

// Publisher announces writes so mirrors can replay them.
type Publisher interface {
	PublishRecordChange(ctx context.Context, msg *amqp.RecordChangeMessage) error
}

// recordWriter performs a write against the store and, once it succeeded,
// publishes the change. Publishing is best effort: the store is the source
// of truth and a lost message only delays the mirror.
type recordWriter struct {
	store     sheets.Store
	publisher Publisher
	logger    *slog.Logger
}

func (w recordWriter) append(ctx context.Context, table sheets.Table, id int64, values []any) error {
	if err := w.store.Append(ctx, table, values); err != nil {
		return err
	}
	w.publish(ctx, amqp.NewRecordChangeMessage(table, amqp.OpAppend, id, values))
	return nil
}

func (w recordWriter) update(ctx context.Context, table sheets.Table, id int64, values []any) error {
	if err := w.store.Update(ctx, table, id, values); err != nil {
		return err
	}
	w.publish(ctx, amqp.NewRecordChangeMessage(table, amqp.OpUpdate, id, values))
	return nil
}

func (w recordWriter) delete(ctx context.Context, table sheets.Table, id int64) error {
	if err := w.store.Delete(ctx, table, id); err != nil {
		return err
	}
	w.publish(ctx, amqp.NewRecordChangeMessage(table, amqp.OpDelete, id, nil))
	return nil
}

func (w recordWriter) publish(ctx context.Context, msg *amqp.RecordChangeMessage) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishRecordChange(ctx, msg); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish record change",
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err,
			applog.FieldTable, string(msg.Table),
			"op", string(msg.Op),
			applog.FieldRowID, msg.RowID)
	}
}
