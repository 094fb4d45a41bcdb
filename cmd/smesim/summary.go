package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/simulation"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	bold   = color.New(color.Bold)
)

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", 100*v)
}

// recordHeader and recordRow render the columns shared by every table.
const recordHeader = "SMEs\tMean revenue\tFormal\tFinancing\tTech\tE-commerce\tExporters\tResilience"

func recordRow(rec models.AggregateRecord) string {
	return fmt.Sprintf("%d\t%.0f\t%s\t%s\t%s\t%s\t%s\t%.2f",
		rec.TotalSMEs, rec.MeanRevenue, pct(rec.FormalShare), pct(rec.FinancingAccessRate),
		pct(rec.TechAdoptionRate), pct(rec.EcommerceRate), pct(rec.ExporterRate), rec.MeanResilience)
}

// printRunReport prints the final-year outcome of every scenario, then any
// failures.
func printRunReport(w io.Writer, report *simulation.Report) {
	bold.Fprintf(w, "Run %s\n\n", report.RunID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Scenario\tYear\t%s\tTime\n", recordHeader)
	for _, name := range report.Order {
		res, ok := report.Results[name]
		if !ok {
			fmt.Fprintf(tw, "%s\t-\tfailed\n", name)
			continue
		}
		final, ok := res.Final()
		if !ok {
			fmt.Fprintf(tw, "%s\t-\tno years simulated\n", name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", name, final.Year, recordRow(final), res.Duration.Round(time.Millisecond))
	}
	tw.Flush()

	printErrors(w, red, "failed", report.Failures)
	printErrors(w, yellow, "not stored", report.SinkErrors)
	printErrors(w, yellow, "snapshot failed", report.SnapshotErrors)

	fmt.Fprintln(w)
	if report.OK() {
		green.Fprintf(w, "✓ %d scenarios completed\n", len(report.Results))
	} else {
		red.Fprintf(w, "%d of %d scenarios completed\n", len(report.Results), len(report.Order))
	}
}

func printErrors(w io.Writer, c *color.Color, label string, errs map[string]error) {
	if len(errs) == 0 {
		return
	}
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	for _, name := range names {
		c.Fprintf(w, "%s %s: ", name, label)
		fmt.Fprintln(w, errs[name])
	}
}

// printRecords prints one scenario's trajectory, one row per year.
func printRecords(w io.Writer, scenario string, records []models.AggregateRecord) {
	bold.Fprintf(w, "%s\n", scenario)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Year\t%s\n", recordHeader)
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\n", rec.Year, recordRow(rec))
	}
	tw.Flush()
}

// printComparison prints the final record of several scenarios side by side.
func printComparison(w io.Writer, finals []models.AggregateRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Scenario\tYear\t%s\n", recordHeader)
	for _, rec := range finals {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", rec.Scenario, rec.Year, recordRow(rec))
	}
	tw.Flush()
}
