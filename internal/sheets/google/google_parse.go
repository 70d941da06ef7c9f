package google

import (
	"errors"
	"fmt"
	"strings"

	ports "hostel/internal/sheets"

	"google.golang.org/api/googleapi"
)

// rowsFromValues converts a values matrix (as returned by Sheets API) into
// header-keyed rows. Blank rows are kept so that row i is sheet row i+2;
// short rows are padded.
func rowsFromValues(values [][]interface{}) []ports.Row {
	out := make([]ports.Row, 0, len(values))
	if len(values) == 0 {
		return out
	}
	headers := toStrings(values[0])
	for i := 1; i < len(values); i++ {
		cells := toStrings(values[i])
		row := make(ports.Row, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			row[h] = safeGet(cells, j)
		}
		out = append(out, row)
	}
	return out
}

// rowNumberOf returns the 1-based row whose first cell holds id, or 0.
func rowNumberOf(values [][]interface{}, id int64) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if got, ok := ports.RowID(ports.CellText(row[0])); ok && got == id {
			return i + 1
		}
	}
	return 0
}

// columnLetter converts a 1-based column count to its A1 letter (27 -> "AA").
func columnLetter(n int) string {
	if n < 1 {
		n = 1
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// unavailable wraps a Sheets API failure as ErrStoreUnavailable, keeping the
// HTTP status when the API reported one.
func unavailable(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("%w: %s: status %d: %w", ports.ErrStoreUnavailable, op, gerr.Code, err)
	}
	return fmt.Errorf("%w: %s: %w", ports.ErrStoreUnavailable, op, err)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(ports.CellText(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
