package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"co2dash/internal/engine"
	"co2dash/internal/export"
	"co2dash/internal/forecast"
	"co2dash/internal/models"
)

// MaxHorizon bounds the horizon query parameter.
const MaxHorizon = 100

// Options are the request defaults applied when a query omits a parameter.
type Options struct {
	Horizon          int
	DefaultYearStart int
	DefaultYearEnd   int
	Forecast         forecast.Options
}

type Handler struct {
	table atomic.Pointer[engine.Table]
	opts  Options
}

// NewHandler returns a handler serving t. A nil table answers 503 until
// SetData is called.
func NewHandler(t *engine.Table, opts Options) *Handler {
	if opts.Horizon <= 0 {
		opts.Horizon = engine.DefaultHorizon
	}
	h := &Handler{opts: opts}
	if t != nil {
		h.table.Store(t)
	}
	return h
}

// SetData publishes a loaded table to the handlers.
func (h *Handler) SetData(t *engine.Table) {
	h.table.Store(t)
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/health", h.GetHealth)
	api.GET("/meta", h.GetMeta)
	api.GET("/trend", h.GetTrend)
	api.GET("/sectors", h.GetSectors)
	api.GET("/correlation", h.GetCorrelation)
	api.GET("/forecast", h.GetForecast)
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/raw", h.GetRaw)
	api.GET("/export", h.GetExport)
}

// --- HELPERS ---

func (h *Handler) ready() (*engine.Table, error) {
	if t := h.table.Load(); t != nil {
		return t, nil
	}
	return nil, echo.NewHTTPError(http.StatusServiceUnavailable, engine.ErrNotReady.Error())
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

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return v, nil
}

// filterSpec reads country, start and end. start > end is allowed and
// simply selects nothing.
func (h *Handler) filterSpec(c echo.Context) (models.FilterSpec, error) {
	spec := models.FilterSpec{Country: c.QueryParam("country")}
	if spec.Country == "" {
		return spec, echo.NewHTTPError(http.StatusBadRequest, "country is required")
	}
	var err error
	if spec.YearStart, err = intParam(c, "start", h.opts.DefaultYearStart); err != nil {
		return spec, err
	}
	if spec.YearEnd, err = intParam(c, "end", h.opts.DefaultYearEnd); err != nil {
		return spec, err
	}
	return spec, nil
}

func (h *Handler) horizon(c echo.Context) (int, error) {
	n, err := intParam(c, "horizon", h.opts.Horizon)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > MaxHorizon {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("horizon must be in [1,%d]", MaxHorizon))
	}
	return n, nil
}

func (h *Handler) subset(c echo.Context) (engine.Subset, error) {
	t, err := h.ready()
	if err != nil {
		return engine.Subset{}, err
	}
	spec, err := h.filterSpec(c)
	if err != nil {
		return engine.Subset{}, err
	}
	return engine.Filter(t, spec), nil
}

// --- HANDLERS ---

func (h *Handler) GetHealth(c echo.Context) error {
	status := "ready"
	code := http.StatusOK
	if _, err := h.ready(); err != nil {
		status = "loading"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]string{"status": status})
}

// countries, year bounds, default range
func (h *Handler) GetMeta(c echo.Context) error {
	t, err := h.ready()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t.Meta(h.opts.DefaultYearStart, h.opts.DefaultYearEnd))
}

func (h *Handler) GetTrend(c echo.Context) error {
	sub, err := h.subset(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, engine.Trend(sub))
}

func (h *Handler) GetSectors(c echo.Context) error {
	sub, err := h.subset(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, engine.Sector(sub))
}

func (h *Handler) GetCorrelation(c echo.Context) error {
	sub, err := h.subset(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, engine.Correlation(sub))
}

// A failed fit answers 422 with the notice; too little data is a normal
// 200 with status "unavailable".
func (h *Handler) GetForecast(c echo.Context) error {
	sub, err := h.subset(c)
	if err != nil {
		return err
	}
	n, err := h.horizon(c)
	if err != nil {
		return err
	}
	fc, err := engine.Forecast(sub, n, h.opts.Forecast)
	var fe *engine.ForecastError
	if errors.As(err, &fe) {
		fc.Status = models.ForecastFailed
		fc.Message = fe.Error()
		c.Logger().Warnf("forecast failed: %v", fe)
		return c.JSON(http.StatusUnprocessableEntity, fc)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fc)
}

// one full pipeline run for a filter change
func (h *Handler) GetDashboard(c echo.Context) error {
	t, err := h.ready()
	if err != nil {
		return err
	}
	spec, err := h.filterSpec(c)
	if err != nil {
		return err
	}
	n, err := h.horizon(c)
	if err != nil {
		return err
	}
	data := t.Aggregate(spec, n, h.opts.Forecast)
	if data.Forecast.Status == models.ForecastFailed {
		c.Logger().Warnf("forecast failed: %s", data.Forecast.Message)
	}
	return c.JSON(http.StatusOK, data)
}

// paginated filtered rows
func (h *Handler) GetRaw(c echo.Context) error {
	sub, err := h.subset(c)
	if err != nil {
		return err
	}
	total := sub.Len()
	limit, offset := getPaginationParams(c, total)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   sub.Page(offset, limit),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetExport(c echo.Context) error {
	sub, err := h.subset(c)
	if err != nil {
		return err
	}
	format := c.QueryParam("format")
	if format == "" {
		format = export.CSV
	}
	ct, ext, err := export.ContentType(format)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, sub.Records()); err != nil {
		return err
	}
	name := fmt.Sprintf("co2_%s_%d_%d.%s", sub.Spec.Country, sub.Spec.YearStart, sub.Spec.YearEnd, ext)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, ct, buf.Bytes())
}
