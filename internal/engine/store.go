package engine

import (
	"strconv"
	"time"
)

// Source column names.
const (
	ColDate           = "date"
	ColSKU            = "sku"
	ColCategory       = "category"
	ColUnitsSold      = "units_sold"
	ColPriceUnit      = "price_unit"
	ColPromotionFlag  = "promotion_flag"
	ColDeliveryDays   = "delivery_days"
	ColStockAvailable = "stock_available"
)

// RequiredColumns must all be present in the source header.
var RequiredColumns = []string{
	ColDate, ColSKU, ColCategory, ColUnitsSold,
	ColPriceUnit, ColPromotionFlag, ColDeliveryDays, ColStockAvailable,
}

// DefaultCorrelationColumns are the numeric columns shown in the heatmap.
var DefaultCorrelationColumns = []string{
	ColPriceUnit, ColPromotionFlag, ColDeliveryDays, ColStockAvailable, ColUnitsSold,
}

// Dataset holds sales records in Struct-of-Arrays format.
// It is never mutated after the loader returns it.
type Dataset struct {
	Source      string
	Fingerprint uint64

	// Calendar columns, all derived from Dates at load time
	Dates    []time.Time
	Years    []int32
	Months   []int32
	Days     []int32
	Weekdays []time.Weekday

	// Measure columns
	UnitsSold      []float64
	PriceUnit      []float64
	PromotionFlag  []float64
	DeliveryDays   []float64
	StockAvailable []float64

	// Dictionary Encoded IDs (0..N)
	SKUIDs      []int32
	CategoryIDs []int32

	// Dictionaries (ID -> String), shared by every subset of the dataset
	SKUDict      []string
	CategoryDict []string
}

// Record is a single row of a Dataset.
type Record struct {
	Date           time.Time
	SKU            string
	Category       string
	UnitsSold      float64
	PriceUnit      float64
	PromotionFlag  float64
	DeliveryDays   float64
	StockAvailable float64
	Year           int
	Month          int
	Day            int
	Weekday        string
}

// Len returns the number of records.
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.Dates)
}

// Record materializes row i.
func (ds *Dataset) Record(i int) Record {
	return Record{
		Date:           ds.Dates[i],
		SKU:            ds.SKUDict[ds.SKUIDs[i]],
		Category:       ds.CategoryDict[ds.CategoryIDs[i]],
		UnitsSold:      ds.UnitsSold[i],
		PriceUnit:      ds.PriceUnit[i],
		PromotionFlag:  ds.PromotionFlag[i],
		DeliveryDays:   ds.DeliveryDays[i],
		StockAvailable: ds.StockAvailable[i],
		Year:           int(ds.Years[i]),
		Month:          int(ds.Months[i]),
		Day:            int(ds.Days[i]),
		Weekday:        ds.Weekdays[i].String(),
	}
}

// Records materializes every row in order.
func (ds *Dataset) Records() []Record {
	out := make([]Record, ds.Len())
	for i := range out {
		out[i] = ds.Record(i)
	}
	return out
}

// FingerprintHex renders the content hash the way it is exposed over HTTP.
func (ds *Dataset) FingerprintHex() string {
	return strconv.FormatUint(ds.Fingerprint, 16)
}

// Numeric returns the measure column with the given source name.
func (ds *Dataset) Numeric(name string) ([]float64, bool) {
	if ds == nil {
		ds = &Dataset{}
	}
	switch name {
	case ColUnitsSold:
		return ds.UnitsSold, true
	case ColPriceUnit:
		return ds.PriceUnit, true
	case ColPromotionFlag:
		return ds.PromotionFlag, true
	case ColDeliveryDays:
		return ds.DeliveryDays, true
	case ColStockAvailable:
		return ds.StockAvailable, true
	}
	return nil, false
}

// take gathers the given rows into a new Dataset sharing the dictionaries.
func (ds *Dataset) take(rows []int) *Dataset {
	return &Dataset{
		Source:         ds.Source,
		Fingerprint:    ds.Fingerprint,
		Dates:          gather(ds.Dates, rows),
		Years:          gather(ds.Years, rows),
		Months:         gather(ds.Months, rows),
		Days:           gather(ds.Days, rows),
		Weekdays:       gather(ds.Weekdays, rows),
		UnitsSold:      gather(ds.UnitsSold, rows),
		PriceUnit:      gather(ds.PriceUnit, rows),
		PromotionFlag:  gather(ds.PromotionFlag, rows),
		DeliveryDays:   gather(ds.DeliveryDays, rows),
		StockAvailable: gather(ds.StockAvailable, rows),
		SKUIDs:         gather(ds.SKUIDs, rows),
		CategoryIDs:    gather(ds.CategoryIDs, rows),
		SKUDict:        ds.SKUDict,
		CategoryDict:   ds.CategoryDict,
	}
}

func gather[T any](src []T, rows []int) []T {
	out := make([]T, len(rows))
	for k, i := range rows {
		out[k] = src[i]
	}
	return out
}
