// Command hostel-report prints the financial summary of one month.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"hostel/internal/backend"
	"hostel/internal/cli"
	"hostel/internal/core"
	"hostel/internal/finance"
	applog "hostel/internal/log"
	"hostel/internal/services"
)

func main() {
	var (
		year    = flag.Int("year", 0, "report year (default: current)")
		month   = flag.Int("month", 0, "report month 1-12 (default: current)")
		asJSON  = flag.Bool("json", false, "print totals as JSON")
		timeout = flag.Duration("timeout", 30*time.Second, "store read timeout")
	)
	flag.Parse()

	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger(nil, applog.ComponentReport)
	cfg := cli.LoadAndValidateConfig(bootLogger.Slog())
	// Reports only read, so nothing is published.
	cfg.AMQPURL = ""
	logger := cli.SetupLogger(cfg, applog.ComponentReport)

	policy, err := cfg.FeePolicy()
	if err != nil {
		logger.Error("Invalid fee configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid time zone", applog.FieldError, err.Error())
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	backendCfg.CacheCleanupInterval = 0

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer func() { _ = result.Cleanup() }()

	dash := services.NewDashboardService(result.Store, policy, cfg.RoomSet(), loc, logger.Slog())
	view := dash.CurrentView()
	if *year != 0 {
		view.Period.Year = *year
	}
	if *month != 0 {
		view.Period.Month = *month
	}

	d, err := dash.Build(ctx, view)
	if err != nil {
		logger.Error("Report failed", applog.FieldError, err.Error(), applog.FieldPeriod, view.Period.String())
		_ = result.Cleanup()
		os.Exit(1)
	}

	if *asJSON {
		err = writeJSON(os.Stdout, d)
	} else {
		err = writeText(os.Stdout, d)
	}
	if err != nil {
		logger.Error("Failed writing report", applog.FieldError, err.Error())
		_ = result.Cleanup()
		os.Exit(1)
	}
}

type totalsOut struct {
	Gross    string `json:"gross"`
	Fees     string `json:"fees"`
	Expenses string `json:"expenses"`
	Net      string `json:"net"`
}

type reportOut struct {
	Period    string            `json:"period"`
	Projected totalsOut         `json:"projected"`
	Realized  *totalsOut        `json:"realized"`
	Rooms     map[string]string `json:"room_revenue"`
	Warning   string            `json:"warning,omitempty"`
}

func totals(t finance.Totals) totalsOut {
	f := func(m core.Money) string { return m.Decimal().StringFixed(2) }
	return totalsOut{Gross: f(t.Gross), Fees: f(t.Fees), Expenses: f(t.Expenses), Net: f(t.Net)}
}

func writeJSON(w io.Writer, d *services.Dashboard) error {
	out := reportOut{
		Period:    d.Summary.Period.String(),
		Projected: totals(d.Summary.Projected),
		Rooms:     make(map[string]string, len(d.Occupancy.Revenue)),
		Warning:   d.Warning,
	}
	if d.Summary.Realized != nil {
		t := totals(*d.Summary.Realized)
		out.Realized = &t
	}
	for room, m := range d.Occupancy.Revenue {
		out.Rooms[room] = m.Decimal().StringFixed(2)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeText(w io.Writer, d *services.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Período %s\t\t\n", d.Summary.Period)
	fmt.Fprintf(tw, "\tProjetado\tRealizado\n")
	row := func(label string, p, r core.Money) {
		realized := "-"
		if d.Summary.Realized != nil {
			realized = r.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", label, p, realized)
	}
	var rz finance.Totals
	if d.Summary.Realized != nil {
		rz = *d.Summary.Realized
	}
	row("Receita bruta", d.Summary.Projected.Gross, rz.Gross)
	row("Taxas", d.Summary.Projected.Fees, rz.Fees)
	row("Despesas", d.Summary.Projected.Expenses, rz.Expenses)
	row("Líquido", d.Summary.Projected.Net, rz.Net)
	fmt.Fprintln(tw, "\t\t")
	fmt.Fprintln(tw, "Quarto\tReservas\tReceita")
	for _, room := range d.Occupancy.Rooms() {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", room, d.Occupancy.Counts[room], d.Occupancy.Revenue[room])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if d.Warning != "" {
		_, err := fmt.Fprintf(w, "\naviso: %s\n", d.Warning)
		return err
	}
	return nil
}
