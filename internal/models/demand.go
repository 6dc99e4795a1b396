package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRequest marks validation failures that must be rejected at the
// API boundary before the pipeline runs.
var ErrInvalidRequest = errors.New("invalid forecast request")

// Interval is the bucket granularity of a demand series.
type Interval string

const (
	IntervalDay     Interval = "day"
	IntervalWeek    Interval = "week"
	IntervalMonth   Interval = "month"
	IntervalQuarter Interval = "quarter"
	IntervalYear    Interval = "year"
)

func (i Interval) Valid() bool {
	switch i {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalQuarter, IntervalYear:
		return true
	}
	return false
}

// Method selects one of the supported forecasting models.
type Method string

const (
	MethodAR     Method = "ar"
	MethodARDL   Method = "ardl"
	MethodARIMA  Method = "arima"
	MethodSARIMA Method = "sarima"
	MethodHWES   Method = "hwes"
	MethodSES    Method = "ses"
)

func (m Method) Valid() bool {
	switch m {
	case MethodAR, MethodARDL, MethodARIMA, MethodSARIMA, MethodHWES, MethodSES:
		return true
	}
	return false
}

// SinglePeriod reports whether the method forecasts exactly one period
// ahead regardless of the requested horizon.
func (m Method) SinglePeriod() bool {
	return m == MethodHWES || m == MethodSES
}

// Scope selects which outbound movements feed the series.
type Scope string

const (
	// ScopeLocation counts done moves out of one location (and optionally
	// its children).
	ScopeLocation Scope = "location"
	// ScopeCompany counts every done move leaving the company's internal
	// locations.
	ScopeCompany Scope = "company"
)

func (s Scope) Valid() bool {
	return s == ScopeLocation || s == ScopeCompany
}

// Target selects whether demand is aggregated per product variant or per
// product template.
type Target string

const (
	TargetProduct  Target = "product"
	TargetTemplate Target = "template"
)

func (t Target) Valid() bool {
	return t == TargetProduct || t == TargetTemplate
}

// ForecastRequest is the fully resolved input of one demand computation.
// Defaults are applied before construction; the pipeline never reads
// configuration itself.
type ForecastRequest struct {
	Scope           Scope      `json:"scope"`
	Target          Target     `json:"target"`
	ProductID       int64      `json:"product_id,omitempty"`
	TemplateID      int64      `json:"template_id,omitempty"`
	LocationID      int64      `json:"location_id,omitempty"`
	IncludeChildren bool       `json:"include_children"`
	CompanyID       int64      `json:"company_id"`
	DateStart       *time.Time `json:"date_start,omitempty"`
	DateEnd         *time.Time `json:"date_end,omitempty"`

	Interval         Interval `json:"interval"`
	PredictedPeriods int      `json:"predicted_periods"`
	Method           Method   `json:"method"`

	// SkipCache forces a fresh computation, bypassing the result cache.
	// Excluded from the cache key so a bypassed run still refreshes the
	// entry the next caller will hit.
	SkipCache bool `json:"-"`

	Lags      int `json:"lags"`
	P         int `json:"p"`
	D         int `json:"d"`
	Q         int `json:"q"`
	SeasonalP int `json:"seasonal_p"`
	SeasonalD int `json:"seasonal_d"`
	SeasonalQ int `json:"seasonal_q"`
	Seasons   int `json:"seasons"`
}

// Validate enforces the request invariants. Violations are rejected, never
// silently corrected.
func (r *ForecastRequest) Validate() error {
	if !r.Scope.Valid() {
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidRequest, r.Scope)
	}
	if !r.Target.Valid() {
		return fmt.Errorf("%w: unknown target %q", ErrInvalidRequest, r.Target)
	}
	if r.Target == TargetProduct && r.ProductID <= 0 {
		return fmt.Errorf("%w: product_id is required for product target", ErrInvalidRequest)
	}
	if r.Target == TargetTemplate && r.TemplateID <= 0 {
		return fmt.Errorf("%w: template_id is required for template target", ErrInvalidRequest)
	}
	if r.Scope == ScopeLocation && r.LocationID <= 0 {
		return fmt.Errorf("%w: location_id is required for location scope", ErrInvalidRequest)
	}
	if r.CompanyID <= 0 {
		return fmt.Errorf("%w: company_id is required", ErrInvalidRequest)
	}
	if !r.Interval.Valid() {
		return fmt.Errorf("%w: unknown interval %q", ErrInvalidRequest, r.Interval)
	}
	if !r.Method.Valid() {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidRequest, r.Method)
	}
	if r.PredictedPeriods <= 0 {
		return fmt.Errorf("%w: predicted_periods must be positive, got %d", ErrInvalidRequest, r.PredictedPeriods)
	}
	if r.DateStart != nil && r.DateEnd != nil && !r.DateEnd.After(*r.DateStart) {
		return fmt.Errorf("%w: date_end must be after date_start", ErrInvalidRequest)
	}
	if r.Lags < 0 || r.P < 0 || r.D < 0 || r.Q < 0 ||
		r.SeasonalP < 0 || r.SeasonalD < 0 || r.SeasonalQ < 0 {
		return fmt.Errorf("%w: model orders must not be negative", ErrInvalidRequest)
	}
	if r.Method == MethodSARIMA && r.Seasons < 1 {
		return fmt.Errorf("%w: seasons must be at least 1, got %d", ErrInvalidRequest, r.Seasons)
	}
	return nil
}

// CacheKey derives a stable digest of the request for result caching.
// Identical requests hash identically, which backs the idempotence of
// repeated computations over unchanged data.
func (r *ForecastRequest) CacheKey() string {
	payload, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// RawBucket is one grouped aggregate row from the movement store: the
// truncated bucket start and the summed outbound quantity.
type RawBucket struct {
	BucketStart time.Time `json:"bucket_start" db:"date_gr"`
	Quantity    float64   `json:"quantity" db:"qty"`
}

// DemandRecord is the final output unit of the pipeline.
type DemandRecord struct {
	Date       time.Time `json:"date"`
	Quantity   float64   `json:"quantity"`
	IsForecast bool      `json:"is_forecast"`
}

// DemandSeries is the assembled result: history followed by forecast
// points in ascending date order. ForecastAvailable is false when the
// model could not be fitted and the series degraded to history only.
type DemandSeries struct {
	Records           []DemandRecord `json:"records"`
	ForecastAvailable bool           `json:"forecast_available"`
}
