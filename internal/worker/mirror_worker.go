// Package worker replays record changes published by the dashboard into a
// mirror store, typically the Google spreadsheet the hostel staff reads.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hostel/internal/amqp"
	applog "hostel/internal/log"
	"hostel/internal/sheets"
)

// MirrorWorker applies RecordChangeMessages to a mirror store. Every change
// is applied as an upsert or an idempotent delete, so a message redelivered
// after a crash leaves the mirror in the same state.
type MirrorWorker struct {
	mirror sheets.Store
	logger *slog.Logger
}

func NewMirrorWorker(mirror sheets.Store, logger *slog.Logger) *MirrorWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorWorker{mirror: mirror, logger: logger}
}

// Handle applies one message. A returned error means the message should be
// retried.
func (w *MirrorWorker) Handle(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	w.logger.InfoContext(ctx, "Mirroring record change",
		applog.FieldOperation, applog.OpMirror,
		applog.FieldMessageID, msg.MessageID,
		applog.FieldTable, string(msg.Table),
		"op", string(msg.Op),
		applog.FieldRowID, msg.RowID)

	switch msg.Op {
	case amqp.OpAppend, amqp.OpUpdate:
		return w.upsert(ctx, msg)
	case amqp.OpDelete:
		err := w.mirror.Delete(ctx, msg.Table, msg.RowID)
		if errors.Is(err, sheets.ErrNotFound) {
			w.logger.InfoContext(ctx, "Row already absent from mirror",
				applog.FieldTable, string(msg.Table), applog.FieldRowID, msg.RowID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("mirror delete %s id=%d: %w", msg.Table, msg.RowID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown op %q", msg.Op)
	}
}

func (w *MirrorWorker) upsert(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	row := msg.Row()
	err := w.mirror.Update(ctx, msg.Table, msg.RowID, row)
	if errors.Is(err, sheets.ErrNotFound) {
		if err := w.mirror.Append(ctx, msg.Table, row); err != nil {
			return fmt.Errorf("mirror append %s id=%d: %w", msg.Table, msg.RowID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("mirror update %s id=%d: %w", msg.Table, msg.RowID, err)
	}
	return nil
}
