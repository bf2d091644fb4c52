// Package report formats aggregated sales figures for people.
package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fmcg-dashboard/internal/models"
)

const notAvailable = "n/a"

var printer = message.NewPrinter(language.English)

// FormatMetrics renders the metric tiles: grouped thousands for counts and
// units, two decimals for the average price, one for the promotion share.
func FormatMetrics(m models.Metrics) models.MetricsDisplay {
	return models.MetricsDisplay{
		Transactions: printer.Sprintf("%d", m.Transactions),
		TotalUnits:   Number(float64(m.TotalUnits)),
		AvgPrice:     fixed(float64(m.AvgPrice), 2, ""),
		PromoRate:    fixed(float64(m.PromoRate), 1, "%"),
	}
}

// Number groups thousands, dropping the fraction for whole values.
func Number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.2f", v)
}

func fixed(v float64, decimals int, suffix string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return fmt.Sprintf("%.*f%s", decimals, v, suffix)
}

// Write prints the metrics, category totals and correlation matrix as
// aligned text tables.
func Write(w io.Writer, d *models.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	disp := d.Metrics.Display
	fmt.Fprintln(tw, "Key Metrics")
	fmt.Fprintf(tw, "  Total Transactions\t%s\n", disp.Transactions)
	fmt.Fprintf(tw, "  Total Units Sold\t%s\n", disp.TotalUnits)
	fmt.Fprintf(tw, "  Avg Price\t%s\n", disp.AvgPrice)
	fmt.Fprintf(tw, "  Promo %%\t%s\n", disp.PromoRate)

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Sales by Category")
	if len(d.CategorySales) == 0 {
		fmt.Fprintln(tw, "  (no records)")
	}
	for _, c := range d.CategorySales {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Category, Number(c.Units))
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Correlation")
	fmt.Fprint(tw, " ")
	for _, col := range d.Correlation.Columns {
		fmt.Fprintf(tw, "\t%s", col)
	}
	fmt.Fprintln(tw)
	for i, row := range d.Correlation.Values {
		fmt.Fprintf(tw, "  %s", d.Correlation.Columns[i])
		for _, v := range row {
			fmt.Fprintf(tw, "\t%s", fixed(float64(v), 2, ""))
		}
		fmt.Fprintln(tw)
	}

	return tw.Flush()
}
