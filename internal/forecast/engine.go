// Package forecast fits classical time-series models to a normalized
// demand series and extrapolates future buckets.
package forecast

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/oplens/stockcast/internal/models"
)

// Params are the hyperparameters of one forecast run. Only the fields of
// the selected method are consulted.
type Params struct {
	Method  models.Method
	Periods int

	// AR / ARDL
	Lags int

	// ARIMA / SARIMA
	P, D, Q int

	// SARIMA seasonal component; Seasons is the number of buckets per
	// seasonal cycle.
	SeasonalP, SeasonalD, SeasonalQ int
	Seasons                         int
}

// Result is the two-case outcome of a forecast: either a series of future
// points or nothing at all. An unavailable result is not an error; it means
// the model could not be fitted and the caller degrades to history only.
type Result struct {
	Points    []float64
	Available bool
}

func available(points []float64) Result {
	return Result{Points: points, Available: true}
}

func unavailable() Result {
	return Result{}
}

// Engine dispatches forecast runs to the selected method. It holds no
// per-request state; one engine serves all computations.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Forecast fits the selected model to the series and predicts the future
// buckets immediately following it. HWES and SES always produce exactly
// one point regardless of the requested horizon. Any fit or predict
// failure is converted to the unavailable result; the warning log is the
// only side effect.
func (e *Engine) Forecast(values []float64, p Params) Result {
	periods := p.Periods
	if p.Method.SinglePeriod() {
		periods = 1
	}

	var points []float64
	var err error
	switch p.Method {
	case models.MethodAR:
		points, err = forecastOLS(values, p.Lags, periods, false)
	case models.MethodARDL:
		points, err = forecastOLS(values, p.Lags, periods, true)
	case models.MethodARIMA:
		points, err = forecastARIMA(values, p.P, p.D, p.Q, periods)
	case models.MethodSARIMA:
		points, err = forecastSARIMA(values, p, periods)
	case models.MethodHWES:
		points, err = forecastHoltLinear(values)
	case models.MethodSES:
		points, err = forecastSimpleSmoothing(values)
	default:
		err = fmt.Errorf("unknown forecast method %q", p.Method)
	}

	if err != nil {
		e.logger.Warn("data is not sufficient to make a prediction",
			"method", string(p.Method),
			"observations", len(values),
			"error", err)
		return unavailable()
	}

	for i := range points {
		points[i] = roundQuantity(points[i])
	}
	return available(points)
}

// roundQuantity clamps a predicted demand to zero and rounds it to two
// decimal places. Demand cannot be negative.
func roundQuantity(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
