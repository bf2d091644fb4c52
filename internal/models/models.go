package models

import (
	"math"
	"strconv"
)

// Float is a float64 that encodes NaN and ±Inf as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
}

// IsNaN reports whether f is undefined.
func (f Float) IsNaN() bool { return math.IsNaN(float64(f)) }

type Dashboard struct {
	Metrics       Metrics        `json:"metrics"`
	DailySales    []DailyItem    `json:"daily_sales"`
	CategorySales []CategoryItem `json:"category_sales"`
	Scatter       []ScatterPoint `json:"scatter"`
	Correlation   CorrMatrix     `json:"correlation"`
	Preview       []RecordRow    `json:"preview"`
}

type Metrics struct {
	Transactions int            `json:"transactions"`
	TotalUnits   Float          `json:"total_units"`
	AvgPrice     Float          `json:"avg_price"`
	PromoRate    Float          `json:"promo_rate"`
	Display      MetricsDisplay `json:"display"`
}

// MetricsDisplay carries the metric values formatted for a dashboard tile.
type MetricsDisplay struct {
	Transactions string `json:"transactions"`
	TotalUnits   string `json:"total_units"`
	AvgPrice     string `json:"avg_price"`
	PromoRate    string `json:"promo_rate"`
}

type DailyItem struct {
	Date  string  `json:"date"`
	Units float64 `json:"units_sold"`
}

type CategoryItem struct {
	Category string  `json:"category"`
	Units    float64 `json:"units_sold"`
}

type ScatterPoint struct {
	Price     float64 `json:"price_unit"`
	Units     float64 `json:"units_sold"`
	Promotion float64 `json:"promotion_flag"`
}

// CorrMatrix is a square, row-major Pearson correlation matrix.
type CorrMatrix struct {
	Columns []string  `json:"columns"`
	Values  [][]Float `json:"values"`
}

type Options struct {
	SKUs       []string `json:"skus"`
	Categories []string `json:"categories"`
	Years      []int    `json:"years"`
}

type RecordRow struct {
	Date           string  `json:"date"`
	SKU            string  `json:"sku"`
	Category       string  `json:"category"`
	UnitsSold      float64 `json:"units_sold"`
	PriceUnit      float64 `json:"price_unit"`
	PromotionFlag  float64 `json:"promotion_flag"`
	DeliveryDays   float64 `json:"delivery_days"`
	StockAvailable float64 `json:"stock_available"`
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	Day            int     `json:"day"`
	Weekday        string  `json:"weekday"`
}

// DatasetInfo describes the loaded source.
type DatasetInfo struct {
	Source      string `json:"source"`
	Fingerprint string `json:"fingerprint"`
	Rows        int    `json:"rows"`
}
