package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scenarioCSV is the three-record dataset used across the package tests.
const scenarioCSV = `date,sku,category,units_sold,price_unit,promotion_flag,delivery_days,stock_available
2022-01-01,A,X,10,2.50,1,3,100
2022-01-01,B,Y,5,4.00,0,2,50
2023-06-15,A,X,7,3.00,0,4,80
`

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// datasetOf builds a Dataset directly from records, deriving calendar fields
// from Date the same way the loader does.
func datasetOf(records ...Record) *Dataset {
	b := newBuilder("test", 42)
	ds := b.ds
	for _, r := range records {
		d := r.Date
		ds.Dates = append(ds.Dates, d)
		ds.Years = append(ds.Years, int32(d.Year()))
		ds.Months = append(ds.Months, int32(d.Month()))
		ds.Days = append(ds.Days, int32(d.Day()))
		ds.Weekdays = append(ds.Weekdays, d.Weekday())
		ds.UnitsSold = append(ds.UnitsSold, r.UnitsSold)
		ds.PriceUnit = append(ds.PriceUnit, r.PriceUnit)
		ds.PromotionFlag = append(ds.PromotionFlag, r.PromotionFlag)
		ds.DeliveryDays = append(ds.DeliveryDays, r.DeliveryDays)
		ds.StockAvailable = append(ds.StockAvailable, r.StockAvailable)
		ds.SKUIDs = append(ds.SKUIDs, intern(r.SKU, b.skuMap, &ds.SKUDict))
		ds.CategoryIDs = append(ds.CategoryIDs, intern(r.Category, b.catMap, &ds.CategoryDict))
	}
	return ds
}

func scenarioDataset() *Dataset {
	return datasetOf(
		Record{Date: day("2022-01-01"), SKU: "A", Category: "X", UnitsSold: 10, PriceUnit: 2.5, PromotionFlag: 1, DeliveryDays: 3, StockAvailable: 100},
		Record{Date: day("2022-01-01"), SKU: "B", Category: "Y", UnitsSold: 5, PriceUnit: 4, PromotionFlag: 0, DeliveryDays: 2, StockAvailable: 50},
		Record{Date: day("2023-06-15"), SKU: "A", Category: "X", UnitsSold: 7, PriceUnit: 3, PromotionFlag: 0, DeliveryDays: 4, StockAvailable: 80},
	)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
