package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oplens/stockcast/internal/config"
	"github.com/oplens/stockcast/internal/models"
	"github.com/oplens/stockcast/internal/services"
	"github.com/oplens/stockcast/internal/timeseries"
)

const (
	noDataCode    = "no_historical_data"
	noDataTitle   = "Not enough stock operations in the period"
	noDataMessage = "No historical data is defined for the specified period"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DemandComputer is the pipeline entry point the handler depends on.
type DemandComputer interface {
	ComputeSeries(ctx context.Context, req models.ForecastRequest) (*models.DemandSeries, error)
}

// DemandRequest is the wire form of a forecast request. Optional fields
// are pointers so that unset and zero can be told apart; defaults come
// from configuration and are resolved here, at the boundary.
type DemandRequest struct {
	Scope           string `json:"scope"`
	Target          string `json:"target"`
	ProductID       int64  `json:"product_id"`
	TemplateID      int64  `json:"template_id"`
	LocationID      int64  `json:"location_id"`
	IncludeChildren *bool  `json:"include_children"`
	CompanyID       int64  `json:"company_id"`
	TargetName      string `json:"target_name"`
	NoCache         bool   `json:"no_cache"`

	DateStart *string `json:"date_start"`
	DateEnd   *string `json:"date_end"`

	Interval         string `json:"interval"`
	PredictedPeriods *int   `json:"predicted_periods"`
	Method           string `json:"method"`

	Lags      int  `json:"lags"`
	P         *int `json:"p"`
	D         *int `json:"d"`
	Q         *int `json:"q"`
	SeasonalP *int `json:"seasonal_p"`
	SeasonalD *int `json:"seasonal_d"`
	SeasonalQ *int `json:"seasonal_q"`
	Seasons   *int `json:"seasons"`
}

// DemandSeriesResponse is the report payload: records ascending.
type DemandSeriesResponse struct {
	Records           []models.DemandRecord `json:"records"`
	Count             int                   `json:"count"`
	ForecastAvailable bool                  `json:"forecast_available"`
	Timestamp         time.Time             `json:"timestamp"`
}

// DemandDefaultsResponse carries the resolved defaults for a UI form.
type DemandDefaultsResponse struct {
	Interval         string `json:"interval"`
	Method           string `json:"method"`
	PredictedPeriods int    `json:"predicted_periods"`
	Seasons          int    `json:"seasons"`
	DateEnd          string `json:"date_end"`
}

type DemandHandler struct {
	service  DemandComputer
	forecast config.ForecastConfig
	logger   *slog.Logger
}

func NewDemandHandler(service DemandComputer, forecastCfg config.ForecastConfig, logger *slog.Logger) *DemandHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DemandHandler{
		service:  service,
		forecast: forecastCfg,
		logger:   logger,
	}
}

// GetSeries computes the combined history and forecast series and returns
// it in chronological ascending order.
func (h *DemandHandler) GetSeries(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	series, ok := h.compute(c, req)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, DemandSeriesResponse{
		Records:           series.Records,
		Count:             len(series.Records),
		ForecastAvailable: series.ForecastAvailable,
		Timestamp:         time.Now().UTC(),
	})
}

// ExportSeries computes the series and streams it as an xlsx attachment,
// newest bucket first.
func (h *DemandHandler) ExportSeries(c *gin.Context) {
	var wire DemandRequest
	if err := c.ShouldBindJSON(&wire); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	req, err := wire.resolve(h.forecast)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, ok := h.compute(c, req)
	if !ok {
		return
	}

	targetName := wire.TargetName
	if targetName == "" {
		targetName = fmt.Sprintf("%s-%d", req.Target, targetID(req))
	}

	workbook, filename, err := services.BuildDemandWorkbook(*series, targetName)
	if err != nil {
		h.logger.Error("failed to build demand workbook", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build spreadsheet"})
		return
	}
	defer workbook.Close()

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		h.logger.Error("failed to serialize demand workbook", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build spreadsheet"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetDefaults resolves the form defaults for an interval and method
// combination: predicted periods (pinned to 1 for the smoothing methods),
// the seasonal period table entry, and the end of the previous period.
func (h *DemandHandler) GetDefaults(c *gin.Context) {
	interval := c.DefaultQuery("interval", h.forecast.DefaultInterval)
	method := c.DefaultQuery("method", h.forecast.DefaultMethod)

	if !models.Interval(interval).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown interval %q", interval)})
		return
	}
	if !models.Method(method).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown method %q", method)})
		return
	}

	periods := h.forecast.PredictedPeriods
	if models.Method(method).SinglePeriod() {
		periods = 1
	}

	dateEnd := timeseries.PreviousPeriodEnd(time.Now().UTC(), models.Interval(interval))

	c.JSON(http.StatusOK, DemandDefaultsResponse{
		Interval:         interval,
		Method:           method,
		PredictedPeriods: periods,
		Seasons:          h.forecast.SeasonalPeriod(interval),
		DateEnd:          dateEnd.Format("2006-01-02"),
	})
}

func (h *DemandHandler) bindRequest(c *gin.Context) (models.ForecastRequest, bool) {
	var wire DemandRequest
	if err := c.ShouldBindJSON(&wire); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return models.ForecastRequest{}, false
	}
	req, err := wire.resolve(h.forecast)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.ForecastRequest{}, false
	}
	return req, true
}

func (h *DemandHandler) compute(c *gin.Context, req models.ForecastRequest) (*models.DemandSeries, bool) {
	series, err := h.service.ComputeSeries(c.Request.Context(), req)
	switch {
	case err == nil:
		return series, true
	case errors.Is(err, models.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    noDataCode,
			"title":   noDataTitle,
			"message": noDataMessage,
		})
	default:
		h.logger.Error("failed to compute demand series", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute demand series"})
	}
	return nil, false
}

// resolve fills configuration defaults into the wire request and converts
// it to the pipeline's fully resolved form.
func (r DemandRequest) resolve(cfg config.ForecastConfig) (models.ForecastRequest, error) {
	req := models.ForecastRequest{
		Scope:           models.Scope(defaultString(r.Scope, string(models.ScopeLocation))),
		Target:          models.Target(defaultString(r.Target, string(models.TargetProduct))),
		ProductID:       r.ProductID,
		TemplateID:      r.TemplateID,
		LocationID:      r.LocationID,
		IncludeChildren: r.IncludeChildren == nil || *r.IncludeChildren,
		CompanyID:       r.CompanyID,
		SkipCache:       r.NoCache,
		Interval:        models.Interval(defaultString(r.Interval, cfg.DefaultInterval)),
		Method:          models.Method(defaultString(r.Method, cfg.DefaultMethod)),
		Lags:            r.Lags,
		P:               defaultInt(r.P, 1),
		D:               defaultInt(r.D, 1),
		Q:               defaultInt(r.Q, 1),
		SeasonalP:       defaultInt(r.SeasonalP, 1),
		SeasonalD:       defaultInt(r.SeasonalD, 1),
		SeasonalQ:       defaultInt(r.SeasonalQ, 1),
	}

	req.PredictedPeriods = defaultInt(r.PredictedPeriods, cfg.PredictedPeriods)
	// The smoothing methods forecast a single period regardless of the
	// configured horizon.
	if req.Method.SinglePeriod() {
		req.PredictedPeriods = 1
	}

	req.Seasons = defaultInt(r.Seasons, cfg.SeasonalPeriod(string(req.Interval)))

	if r.DateStart != nil {
		start, err := time.ParseInLocation("2006-01-02", *r.DateStart, time.UTC)
		if err != nil {
			return req, fmt.Errorf("invalid date_start: %w", err)
		}
		req.DateStart = &start
	}
	if r.DateEnd != nil {
		end, err := time.ParseInLocation("2006-01-02", *r.DateEnd, time.UTC)
		if err != nil {
			return req, fmt.Errorf("invalid date_end: %w", err)
		}
		req.DateEnd = &end
	}

	return req, nil
}

func targetID(req models.ForecastRequest) int64 {
	if req.Target == models.TargetTemplate {
		return req.TemplateID
	}
	return req.ProductID
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultInt(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}
