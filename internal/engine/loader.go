package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	arrowcsv "github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

const defaultChunkSize = 8192

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// measureColumns are read as float64, in this order.
var measureColumns = []string{ColUnitsSold, ColPriceUnit, ColPromotionFlag, ColDeliveryDays, ColStockAvailable}

// Opener resolves a source URI to a byte stream.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Loader turns a CSV source into a Dataset.
type Loader struct {
	opener    Opener
	strict    bool
	chunkSize int
	mem       memory.Allocator
	logger    *zap.Logger
}

type LoaderOption func(*Loader)

// WithStrict makes out-of-range values fail the load instead of being logged.
func WithStrict(strict bool) LoaderOption {
	return func(l *Loader) { l.strict = strict }
}

// WithChunkSize sets the number of CSV rows per Arrow record batch.
func WithChunkSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.chunkSize = n
		}
	}
}

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLoader(opener Opener, opts ...LoaderOption) *Loader {
	l := &Loader{
		opener:    opener,
		chunkSize: defaultChunkSize,
		mem:       memory.NewGoAllocator(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the source at uri and returns a Dataset with calendar fields
// derived. Every failure is a *DataLoadError.
func (l *Loader) Load(ctx context.Context, uri string) (*Dataset, error) {
	start := time.Now()
	l.logger.Info("loading dataset", zap.String("source", uri))

	// A. Read Source
	rc, err := l.opener.Open(ctx, uri)
	if err != nil {
		return nil, loadError(uri, err)
	}
	content, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return nil, loadError(uri, fmt.Errorf("read source: %w", err))
	}
	if closeErr != nil {
		l.logger.Warn("closing source failed", zap.String("source", uri), zap.Error(closeErr))
	}

	// B. Parse
	ds, err := l.Parse(ctx, uri, content)
	if err != nil {
		return nil, err
	}

	l.logger.Info("dataset loaded",
		zap.String("source", uri),
		zap.Int("rows", ds.Len()),
		zap.Int("skus", len(ds.SKUDict)),
		zap.Int("categories", len(ds.CategoryDict)),
		zap.String("fingerprint", ds.FingerprintHex()),
		zap.Duration("duration", time.Since(start)))
	return ds, nil
}

// Parse builds a Dataset from raw CSV bytes. uri is only used for identity
// and error reporting.
func (l *Loader) Parse(ctx context.Context, uri string, content []byte) (*Dataset, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	if err := checkHeader(content); err != nil {
		return nil, loadError(uri, err)
	}

	rdr := arrowcsv.NewInferringReader(bytes.NewReader(content),
		arrowcsv.WithHeader(true),
		arrowcsv.WithChunk(l.chunkSize),
		arrowcsv.WithAllocator(l.mem),
		arrowcsv.WithColumnTypes(columnTypes()),
		arrowcsv.WithIncludeColumns(RequiredColumns),
		arrowcsv.WithNullReader(false, ""),
	)
	defer rdr.Release()

	b := newBuilder(uri, xxh3.Hash(content))
	for rdr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, loadError(uri, err)
		}
		if err := b.appendRecord(rdr.Record(), l.strict); err != nil {
			return nil, loadError(uri, err)
		}
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, loadError(uri, fmt.Errorf("parse csv: %w", err))
	}

	if b.anomalies > 0 {
		l.logger.Warn("dataset contains out-of-range values",
			zap.String("source", uri),
			zap.Int("rows", b.anomalies))
	}
	return b.ds, nil
}

func columnTypes() map[string]arrow.DataType {
	return map[string]arrow.DataType{
		ColDate:           arrow.BinaryTypes.String,
		ColSKU:            arrow.BinaryTypes.String,
		ColCategory:       arrow.BinaryTypes.String,
		ColUnitsSold:      arrow.PrimitiveTypes.Float64,
		ColPriceUnit:      arrow.PrimitiveTypes.Float64,
		ColPromotionFlag:  arrow.PrimitiveTypes.Float64,
		ColDeliveryDays:   arrow.PrimitiveTypes.Float64,
		ColStockAvailable: arrow.PrimitiveTypes.Float64,
	}
}

// checkHeader verifies that every required column is named in the first line.
func checkHeader(content []byte) error {
	header, err := csv.NewReader(bytes.NewReader(content)).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: source is empty", ErrMissingColumn)
		}
		return fmt.Errorf("read header: %w", err)
	}
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, col := range RequiredColumns {
		if !present[col] {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return nil
}

// parseDate returns the calendar date as written, at UTC midnight.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

type builder struct {
	ds        *Dataset
	skuMap    map[string]int32
	catMap    map[string]int32
	row       int
	anomalies int
}

func newBuilder(source string, fingerprint uint64) *builder {
	return &builder{
		ds:     &Dataset{Source: source, Fingerprint: fingerprint},
		skuMap: make(map[string]int32),
		catMap: make(map[string]int32),
	}
}

func (b *builder) appendRecord(rec arrow.Record, strict bool) error {
	dates, err := stringColumn(rec, ColDate)
	if err != nil {
		return err
	}
	skus, err := stringColumn(rec, ColSKU)
	if err != nil {
		return err
	}
	cats, err := stringColumn(rec, ColCategory)
	if err != nil {
		return err
	}
	measures := make([]*array.Float64, 0, len(measureColumns))
	for _, name := range measureColumns {
		col, err := floatColumn(rec, name)
		if err != nil {
			return err
		}
		measures = append(measures, col)
	}
	units, price, promo, delivery, stock := measures[0], measures[1], measures[2], measures[3], measures[4]

	ds := b.ds
	n := int(rec.NumRows())
	for i := 0; i < n; i++ {
		line := b.row + 2 // 1-based, after the header
		b.row++

		for k, col := range measures {
			if col.IsNull(i) {
				return fmt.Errorf("line %d: empty %s", line, measureColumns[k])
			}
			if v := col.Value(i); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("line %d: non-finite %s %v", line, measureColumns[k], v)
			}
		}
		if dates.IsNull(i) {
			return fmt.Errorf("line %d: empty %s", line, ColDate)
		}
		d, err := parseDate(dates.Value(i))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		u, p, f := units.Value(i), price.Value(i), promo.Value(i)
		if u < 0 || p < 0 || (f != 0 && f != 1) {
			if strict {
				return fmt.Errorf("line %d: %w: units_sold=%v price_unit=%v promotion_flag=%v", line, ErrOutOfRange, u, p, f)
			}
			b.anomalies++
		}

		ds.Dates = append(ds.Dates, d)
		ds.Years = append(ds.Years, int32(d.Year()))
		ds.Months = append(ds.Months, int32(d.Month()))
		ds.Days = append(ds.Days, int32(d.Day()))
		ds.Weekdays = append(ds.Weekdays, d.Weekday())

		ds.UnitsSold = append(ds.UnitsSold, u)
		ds.PriceUnit = append(ds.PriceUnit, p)
		ds.PromotionFlag = append(ds.PromotionFlag, f)
		ds.DeliveryDays = append(ds.DeliveryDays, delivery.Value(i))
		ds.StockAvailable = append(ds.StockAvailable, stock.Value(i))

		ds.SKUIDs = append(ds.SKUIDs, intern(skus.Value(i), b.skuMap, &ds.SKUDict))
		ds.CategoryIDs = append(ds.CategoryIDs, intern(cats.Value(i), b.catMap, &ds.CategoryDict))
	}
	return nil
}

// intern returns the dictionary ID for s, adding it on first sight.
func intern(s string, ids map[string]int32, dict *[]string) int32 {
	if id, ok := ids[s]; ok {
		return id
	}
	id := int32(len(*dict))
	*dict = append(*dict, s)
	ids[s] = id
	return id
}

func column(rec arrow.Record, name string) (arrow.Array, error) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return rec.Column(idx[0]), nil
}

func stringColumn(rec arrow.Record, name string) (*array.String, error) {
	arr, err := column(rec, name)
	if err != nil {
		return nil, err
	}
	col, ok := arr.(*array.String)
	if !ok {
		return nil, fmt.Errorf("column %s: unexpected type %s", name, arr.DataType())
	}
	return col, nil
}

func floatColumn(rec arrow.Record, name string) (*array.Float64, error) {
	arr, err := column(rec, name)
	if err != nil {
		return nil, err
	}
	col, ok := arr.(*array.Float64)
	if !ok {
		return nil, fmt.Errorf("column %s: unexpected type %s", name, arr.DataType())
	}
	return col, nil
}
