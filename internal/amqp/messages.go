package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"hostel/internal/sheets"

	"github.com/google/uuid"
)

// Op is the kind of write a RecordChangeMessage replays.
type Op string

const (
	OpAppend Op = "append"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// RecordChangeMessage carries one successful write to the primary store so a
// mirror can apply the same change. Values hold the full row as cell text in
// the table's column order; they are empty for deletes.
type RecordChangeMessage struct {
	MessageID string       `json:"message_id"`
	Table     sheets.Table `json:"table"`
	Op        Op           `json:"op"`
	RowID     int64        `json:"row_id"`
	Values    []string     `json:"values,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewRecordChangeMessage creates a message with a fresh id.
func NewRecordChangeMessage(table sheets.Table, op Op, rowID int64, values []any) *RecordChangeMessage {
	msg := &RecordChangeMessage{
		MessageID: uuid.NewString(),
		Table:     table,
		Op:        op,
		RowID:     rowID,
		Timestamp: time.Now(),
	}
	if len(values) > 0 {
		msg.Values = sheets.CellTexts(values)
	}
	return msg
}

// Validate rejects messages a consumer cannot apply.
func (m *RecordChangeMessage) Validate() error {
	if _, err := sheets.Columns(m.Table); err != nil {
		return fmt.Errorf("%w: %q", err, m.Table)
	}
	switch m.Op {
	case OpAppend, OpUpdate:
		if len(m.Values) == 0 {
			return fmt.Errorf("%s without values", m.Op)
		}
	case OpDelete:
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
	if m.RowID == 0 {
		return fmt.Errorf("missing row id")
	}
	return nil
}

// Row returns Values as cells ready for a sheets.Writer.
func (m *RecordChangeMessage) Row() []any {
	out := make([]any, len(m.Values))
	for i, v := range m.Values {
		out[i] = v
	}
	return out
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangeMessageFromJSON decodes and validates a message body.
func RecordChangeMessageFromJSON(data []byte) (*RecordChangeMessage, error) {
	var msg RecordChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
