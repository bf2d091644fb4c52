package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"fmcg-dashboard/internal/engine"
	"fmcg-dashboard/internal/metrics"
	"fmcg-dashboard/internal/models"
)

const defaultPreviewLimit = engine.DefaultPreviewRows

// Handler serves the dashboard API over the cached dataset. It answers 503
// until SetData is called.
type Handler struct {
	mu      sync.RWMutex
	data    *engine.Dataset
	loadErr error

	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewHandler(data *engine.Dataset, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{data: data, metrics: m, logger: logger}
}

// SetData publishes a loaded dataset to every route.
func (h *Handler) SetData(ds *engine.Dataset) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = ds
	h.loadErr = nil
	h.logger.Info("dataset published", zap.String("source", ds.Source), zap.Int("rows", ds.Len()))
}

// SetLoadError records why the dataset is unavailable.
func (h *Handler) SetLoadError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadErr = err
	h.logger.Error("dataset unavailable", zap.Error(err))
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.GET("/dataset", h.GetDatasetInfo)
	api.GET("/options", h.GetOptions)
	api.GET("/records", h.GetRecords)
	api.GET("/metrics", h.GetMetrics)
	api.GET("/sales/daily", h.GetDailySales)
	api.GET("/sales/category", h.GetCategorySales)
	api.GET("/scatter", h.GetScatter)
	api.GET("/correlation", h.GetCorrelation)
	api.GET("/dashboard", h.GetDashboard)
}

// --- HELPERS ---

func (h *Handler) dataset() (*engine.Dataset, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.data != nil {
		return h.data, nil
	}
	if h.loadErr != nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "dataset unavailable: "+h.loadErr.Error())
	}
	return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "dataset is loading")
}

// query parses the selection from the request and filters the dataset.
func (h *Handler) query(c echo.Context, route string) (*engine.Dataset, error) {
	ds, err := h.dataset()
	if err != nil {
		return nil, err
	}
	sel, err := selectionFromQuery(c)
	if err != nil {
		return nil, err
	}
	fd := engine.Apply(ds, sel)
	h.metrics.ObserveQuery(route, fd.Len())
	return fd, nil
}

// respond writes payload with the dataset fingerprint as ETag.
func respond(c echo.Context, ds *engine.Dataset, payload interface{}) error {
	etag := strconv.Quote(ds.FingerprintHex())
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, payload)
}

// splitValues flattens repeated and comma-separated query values.
func splitValues(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, v := range strings.Split(r, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func selectionFromQuery(c echo.Context) (engine.Selection, error) {
	q := c.QueryParams()
	years := make([]int, 0)
	for _, raw := range splitValues(q["year"]) {
		y, err := cast.ToIntE(raw)
		if err != nil {
			return engine.Selection{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid year %q", raw))
		}
		years = append(years, y)
	}
	return engine.NewSelection(splitValues(q["sku"]), splitValues(q["category"]), years), nil
}

func correlationError(err error) error {
	if errors.Is(err, engine.ErrUnknownColumn) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// --- HANDLERS ---

func (h *Handler) Health(c echo.Context) error {
	if _, err := h.dataset(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetDatasetInfo(c echo.Context) error {
	ds, err := h.dataset()
	if err != nil {
		return err
	}
	return respond(c, ds, models.DatasetInfo{
		Source:      ds.Source,
		Fingerprint: ds.FingerprintHex(),
		Rows:        ds.Len(),
	})
}

// options always describe the whole dataset, not the current selection
func (h *Handler) GetOptions(c echo.Context) error {
	ds, err := h.dataset()
	if err != nil {
		return err
	}
	return respond(c, ds, engine.Options(ds))
}

func (h *Handler) GetRecords(c echo.Context) error {
	fd, err := h.query(c, "records")
	if err != nil {
		return err
	}
	total := fd.Len()
	limit, offset := getPaginationParams(c, defaultPreviewLimit)

	rows := []models.RecordRow{}
	if offset < total {
		end := total
		if limit < total-offset {
			end = offset + limit
		}
		rows = engine.Preview(fd, end)[offset:]
	}
	return respond(c, fd, map[string]interface{}{
		"data":   rows,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetMetrics(c echo.Context) error {
	fd, err := h.query(c, "metrics")
	if err != nil {
		return err
	}
	return respond(c, fd, engine.Summarize(fd))
}

func (h *Handler) GetDailySales(c echo.Context) error {
	fd, err := h.query(c, "sales_daily")
	if err != nil {
		return err
	}
	return respond(c, fd, engine.DailyTotals(fd))
}

func (h *Handler) GetCategorySales(c echo.Context) error {
	fd, err := h.query(c, "sales_category")
	if err != nil {
		return err
	}
	return respond(c, fd, engine.CategoryTotals(fd))
}

func (h *Handler) GetScatter(c echo.Context) error {
	fd, err := h.query(c, "scatter")
	if err != nil {
		return err
	}
	return respond(c, fd, engine.Scatter(fd))
}

func (h *Handler) GetCorrelation(c echo.Context) error {
	fd, err := h.query(c, "correlation")
	if err != nil {
		return err
	}
	columns := splitValues(c.QueryParams()["column"])
	if len(columns) == 0 {
		columns = engine.DefaultCorrelationColumns
	}
	corr, err := engine.CorrelationMatrix(fd, columns)
	if err != nil {
		return correlationError(err)
	}
	return respond(c, fd, corr)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	fd, err := h.query(c, "dashboard")
	if err != nil {
		return err
	}
	dash, err := fd.Aggregate(splitValues(c.QueryParams()["column"])...)
	if err != nil {
		return correlationError(err)
	}
	return respond(c, fd, dash)
}
