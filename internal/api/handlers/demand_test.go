package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oplens/stockcast/internal/config"
	"github.com/oplens/stockcast/internal/models"
	"github.com/oplens/stockcast/internal/services"
)

type stubComputer struct {
	lastReq models.ForecastRequest
	series  *models.DemandSeries
	err     error
}

func (s *stubComputer) ComputeSeries(_ context.Context, req models.ForecastRequest) (*models.DemandSeries, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.series, nil
}

func testForecastConfig() config.ForecastConfig {
	return config.ForecastConfig{
		DefaultInterval:  "month",
		PredictedPeriods: 2,
		DefaultMethod:    "ar",
		CacheTTL:         "10m",
		SeasonalPeriods: map[string]int{
			"day": 7, "week": 1, "month": 3, "quarter": 2, "year": 1,
		},
	}
}

func testSeries() *models.DemandSeries {
	return &models.DemandSeries{
		Records: []models.DemandRecord{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Quantity: 5, IsForecast: false},
			{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Quantity: 7, IsForecast: false},
			{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Quantity: 6.5, IsForecast: true},
		},
		ForecastAvailable: true,
	}
}

func setupRouter(stub *stubComputer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDemandHandler(stub, testForecastConfig(), nil)
	r := gin.New()
	r.POST("/series", h.GetSeries)
	r.POST("/export", h.ExportSeries)
	r.GET("/defaults", h.GetDefaults)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetSeries(t *testing.T) {
	stub := &stubComputer{series: testSeries()}
	r := setupRouter(stub)

	w := postJSON(t, r, "/series", map[string]any{
		"product_id":  42,
		"location_id": 8,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp DemandSeriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Records, 3)
	assert.True(t, resp.ForecastAvailable)
	assert.True(t, resp.Records[2].IsForecast)
}

func TestGetSeriesResolvesDefaults(t *testing.T) {
	stub := &stubComputer{series: testSeries()}
	r := setupRouter(stub)

	w := postJSON(t, r, "/series", map[string]any{
		"product_id":  42,
		"location_id": 8,
	})
	require.Equal(t, http.StatusOK, w.Code)

	req := stub.lastReq
	assert.Equal(t, models.ScopeLocation, req.Scope)
	assert.Equal(t, models.TargetProduct, req.Target)
	assert.True(t, req.IncludeChildren)
	assert.Equal(t, models.IntervalMonth, req.Interval)
	assert.Equal(t, models.MethodAR, req.Method)
	assert.Equal(t, 2, req.PredictedPeriods)
	assert.Equal(t, 3, req.Seasons)
	assert.Equal(t, 1, req.P)
	assert.Equal(t, 1, req.D)
	assert.Equal(t, 1, req.Q)
	assert.Nil(t, req.DateStart)
	assert.Nil(t, req.DateEnd)
}

func TestGetSeriesPinsSmoothingHorizon(t *testing.T) {
	stub := &stubComputer{series: testSeries()}
	r := setupRouter(stub)

	w := postJSON(t, r, "/series", map[string]any{
		"product_id":        42,
		"location_id":       8,
		"method":            "hwes",
		"predicted_periods": 5,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, stub.lastReq.PredictedPeriods)
}

func TestGetSeriesParsesDates(t *testing.T) {
	stub := &stubComputer{series: testSeries()}
	r := setupRouter(stub)

	w := postJSON(t, r, "/series", map[string]any{
		"product_id":  42,
		"location_id": 8,
		"date_start":  "2024-01-15",
		"date_end":    "2024-06-30",
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, stub.lastReq.DateStart)
	require.NotNil(t, stub.lastReq.DateEnd)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *stub.lastReq.DateStart)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), *stub.lastReq.DateEnd)
}

func TestGetSeriesBadDate(t *testing.T) {
	stub := &stubComputer{series: testSeries()}
	r := setupRouter(stub)

	w := postJSON(t, r, "/series", map[string]any{
		"product_id":  42,
		"location_id": 8,
		"date_start":  "15/01/2024",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSeriesBadBody(t *testing.T) {
	stub := &stubComputer{series: testSeries()}
	r := setupRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/series", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSeriesInvalidRequest(t *testing.T) {
	stub := &stubComputer{err: models.ErrInvalidRequest}
	r := setupRouter(stub)

	w := postJSON(t, r, "/series", map[string]any{"product_id": 42, "location_id": 8})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSeriesNoData(t *testing.T) {
	stub := &stubComputer{err: services.ErrNoData}
	r := setupRouter(stub)

	w := postJSON(t, r, "/series", map[string]any{"product_id": 42, "location_id": 8})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "no_historical_data", resp["code"])
	assert.Equal(t, "Not enough stock operations in the period", resp["title"])
	assert.Equal(t, "No historical data is defined for the specified period", resp["message"])
}

func TestGetSeriesInternalError(t *testing.T) {
	stub := &stubComputer{err: errors.New("pool exhausted")}
	r := setupRouter(stub)

	w := postJSON(t, r, "/series", map[string]any{"product_id": 42, "location_id": 8})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestExportSeries(t *testing.T) {
	stub := &stubComputer{series: testSeries()}
	r := setupRouter(stub)

	w := postJSON(t, r, "/export", map[string]any{
		"product_id":  42,
		"location_id": 8,
		"target_name": "Desk Pad",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Desk Pad#")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestExportSeriesNoData(t *testing.T) {
	stub := &stubComputer{err: services.ErrNoData}
	r := setupRouter(stub)

	w := postJSON(t, r, "/export", map[string]any{"product_id": 42, "location_id": 8})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetDefaults(t *testing.T) {
	stub := &stubComputer{}
	r := setupRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/defaults?interval=day&method=ar", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp DemandDefaultsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "day", resp.Interval)
	assert.Equal(t, "ar", resp.Method)
	assert.Equal(t, 2, resp.PredictedPeriods)
	assert.Equal(t, 7, resp.Seasons)

	end, err := time.Parse("2006-01-02", resp.DateEnd)
	require.NoError(t, err)
	assert.True(t, end.Before(time.Now().UTC()))
}

func TestGetDefaultsPinsSmoothingHorizon(t *testing.T) {
	stub := &stubComputer{}
	r := setupRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/defaults?interval=week&method=ses", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp DemandDefaultsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.PredictedPeriods)
	assert.Equal(t, 1, resp.Seasons)
}

func TestGetDefaultsUnknownInterval(t *testing.T) {
	stub := &stubComputer{}
	r := setupRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/defaults?interval=hour", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
