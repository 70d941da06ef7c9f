package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"hostel/internal/core"
	"hostel/internal/finance"
	"hostel/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDashboard(realized bool) *services.Dashboard {
	d := &services.Dashboard{
		Summary: finance.Summary{
			Period: core.Period{Year: 2025, Month: 3},
			Projected: finance.Totals{
				Gross:    core.Money{Cents: 150000},
				Fees:     core.Money{Cents: 19500},
				Expenses: core.Money{Cents: 12050},
				Net:      core.Money{Cents: 118450},
			},
		},
		Occupancy: finance.Occupancy{
			Counts:  map[string]int{"Privativo 1": 1, "Dormitório A": 0},
			Revenue: map[string]core.Money{"Privativo 1": {Cents: 150000}, "Dormitório A": {}},
			Nights:  map[string]int{"Privativo 1": 3, "Dormitório A": 0},
		},
	}
	if realized {
		t := d.Summary.Projected
		d.Summary.Realized = &t
	}
	return d
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, sampleDashboard(false)))

	var out reportOut
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "2025-03", out.Period)
	assert.Equal(t, totalsOut{Gross: "1500.00", Fees: "195.00", Expenses: "120.50", Net: "1184.50"}, out.Projected)
	assert.Nil(t, out.Realized)
	assert.Equal(t, "1500.00", out.Rooms["Privativo 1"])
	assert.Equal(t, "0.00", out.Rooms["Dormitório A"])
	assert.Contains(t, buf.String(), `"realized": null`)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, sampleDashboard(false)))
	out := buf.String()
	assert.Contains(t, out, "Período 2025-03")
	assert.Contains(t, out, "R$ 1.500,00")
	assert.Contains(t, out, "R$ 1.184,50")
	assert.NotContains(t, out, "aviso")

	d := sampleDashboard(true)
	d.Warning = "skipped 1 malformed row (reservas: 1)"
	buf.Reset()
	require.NoError(t, writeText(&buf, d))
	assert.Contains(t, buf.String(), "aviso: skipped 1 malformed row")
}
