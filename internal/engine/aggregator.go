package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"fmcg-dashboard/internal/models"
	"fmcg-dashboard/internal/report"
)

const dayLayout = "2006-01-02"

// DefaultPreviewRows matches the dashboard's table preview.
const DefaultPreviewRows = 5

// Count returns the number of records.
func Count(ds *Dataset) int { return ds.Len() }

// TotalUnits sums units_sold; 0 for an empty dataset.
func TotalUnits(ds *Dataset) float64 {
	if ds.Len() == 0 {
		return 0
	}
	total, err := stats.Sum(ds.UnitsSold)
	if err != nil {
		return 0
	}
	return total
}

// AvgPrice is the mean price_unit, NaN when ds is empty.
func AvgPrice(ds *Dataset) float64 {
	if ds.Len() == 0 {
		return math.NaN()
	}
	return mean(ds.PriceUnit)
}

// PromoRate is the share of promoted records as a percentage, NaN when ds is
// empty.
func PromoRate(ds *Dataset) float64 {
	if ds.Len() == 0 {
		return math.NaN()
	}
	return mean(ds.PromotionFlag) * 100
}

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return math.NaN()
	}
	return m
}

// DailyTotals sums units_sold per date, ascending by date.
func DailyTotals(ds *Dataset) []models.DailyItem {
	out := make([]models.DailyItem, 0)
	if ds.Len() == 0 {
		return out
	}

	type day struct {
		date  time.Time
		units float64
	}
	index := make(map[int64]int)
	days := make([]day, 0)
	for i, d := range ds.Dates {
		k, ok := index[d.Unix()]
		if !ok {
			k = len(days)
			index[d.Unix()] = k
			days = append(days, day{date: d})
		}
		days[k].units += ds.UnitsSold[i]
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })

	for _, d := range days {
		out = append(out, models.DailyItem{Date: d.date.Format(dayLayout), Units: d.units})
	}
	return out
}

// CategoryTotals sums units_sold per category, ascending by total. Ties are
// ordered by category name.
func CategoryTotals(ds *Dataset) []models.CategoryItem {
	out := make([]models.CategoryItem, 0)
	if ds.Len() == 0 {
		return out
	}

	// Array indexing by dictionary ID
	sold := make([]float64, len(ds.CategoryDict))
	seen := make([]bool, len(ds.CategoryDict))
	for i, cid := range ds.CategoryIDs {
		sold[cid] += ds.UnitsSold[i]
		seen[cid] = true
	}
	for cid, ok := range seen {
		if ok {
			out = append(out, models.CategoryItem{Category: ds.CategoryDict[cid], Units: sold[cid]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units < out[j].Units
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CorrelationMatrix returns pairwise Pearson coefficients between the named
// numeric columns. Entries involving a constant column, or computed over fewer
// than two records, are NaN. The diagonal is exactly 1 otherwise.
func CorrelationMatrix(ds *Dataset, columns []string) (models.CorrMatrix, error) {
	cols := make([][]float64, len(columns))
	for i, name := range columns {
		col, ok := ds.Numeric(name)
		if !ok {
			return models.CorrMatrix{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		cols[i] = col
	}

	n := len(columns)
	defined := make([]bool, n)
	for i, col := range cols {
		defined[i] = varies(col)
	}

	values := make([][]models.Float, n)
	for i := range values {
		values[i] = make([]models.Float, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := math.NaN()
			switch {
			case !defined[i] || !defined[j]:
				// undefined
			case i == j:
				r = 1
			default:
				r = pearson(cols[i], cols[j])
			}
			values[i][j] = models.Float(r)
			values[j][i] = models.Float(r)
		}
	}

	return models.CorrMatrix{Columns: append([]string(nil), columns...), Values: values}, nil
}

// varies reports whether xs has at least two records and two distinct values.
func varies(xs []float64) bool {
	if len(xs) < 2 {
		return false
	}
	for _, x := range xs[1:] {
		if x != xs[0] {
			return true
		}
	}
	return false
}

func pearson(a, b []float64) float64 {
	r, err := stats.Pearson(a, b)
	if err != nil || math.IsNaN(r) {
		return math.NaN()
	}
	return math.Max(-1, math.Min(1, r))
}

// Scatter returns one price/units point per record.
func Scatter(ds *Dataset) []models.ScatterPoint {
	out := make([]models.ScatterPoint, ds.Len())
	for i := range out {
		out[i] = models.ScatterPoint{
			Price:     ds.PriceUnit[i],
			Units:     ds.UnitsSold[i],
			Promotion: ds.PromotionFlag[i],
		}
	}
	return out
}

// Preview returns the first n records.
func Preview(ds *Dataset, n int) []models.RecordRow {
	if n > ds.Len() {
		n = ds.Len()
	}
	if n < 0 {
		n = 0
	}
	out := make([]models.RecordRow, n)
	for i := range out {
		out[i] = toRow(ds.Record(i))
	}
	return out
}

func toRow(r Record) models.RecordRow {
	return models.RecordRow{
		Date:           r.Date.Format(dayLayout),
		SKU:            r.SKU,
		Category:       r.Category,
		UnitsSold:      r.UnitsSold,
		PriceUnit:      r.PriceUnit,
		PromotionFlag:  r.PromotionFlag,
		DeliveryDays:   r.DeliveryDays,
		StockAvailable: r.StockAvailable,
		Year:           r.Year,
		Month:          r.Month,
		Day:            r.Day,
		Weekday:        r.Weekday,
	}
}

// Summarize computes the four key metrics.
func Summarize(ds *Dataset) models.Metrics {
	m := models.Metrics{
		Transactions: Count(ds),
		TotalUnits:   models.Float(TotalUnits(ds)),
		AvgPrice:     models.Float(AvgPrice(ds)),
		PromoRate:    models.Float(PromoRate(ds)),
	}
	m.Display = report.FormatMetrics(m)
	return m
}

// Aggregate builds every dashboard section for ds. The heatmap covers
// columns, or DefaultCorrelationColumns when none are given.
func (ds *Dataset) Aggregate(columns ...string) (*models.Dashboard, error) {
	if len(columns) == 0 {
		columns = DefaultCorrelationColumns
	}
	corr, err := CorrelationMatrix(ds, columns)
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{
		Metrics:       Summarize(ds),
		DailySales:    DailyTotals(ds),
		CategorySales: CategoryTotals(ds),
		Scatter:       Scatter(ds),
		Correlation:   corr,
		Preview:       Preview(ds, DefaultPreviewRows),
	}, nil
}
