package forecast

import (
	"fmt"
	"math"

	"github.com/sartorproj/goarima/arima"
	"github.com/sartorproj/goarima/sarima"
	"github.com/sartorproj/goarima/timeseries"
)

// forecastARIMA fits an ARIMA(p,d,q) model and predicts future levels of
// the original (undifferenced) series.
func forecastARIMA(values []float64, p, d, q, periods int) ([]float64, error) {
	if err := checkObservations(len(values), p, d, q, 0, 0, 0, 0); err != nil {
		return nil, err
	}

	model := arima.New(p, d, q)
	if err := model.Fit(&timeseries.Series{Values: values}); err != nil {
		return nil, fmt.Errorf("arima(%d,%d,%d) fit: %w", p, d, q, err)
	}
	points, err := model.Predict(periods)
	if err != nil {
		return nil, fmt.Errorf("arima(%d,%d,%d) predict: %w", p, d, q, err)
	}
	return finitePoints(points, periods)
}

// forecastSARIMA fits a SARIMA(p,d,q)(P,D,Q,s) model.
func forecastSARIMA(values []float64, params Params, periods int) ([]float64, error) {
	seasons := params.Seasons
	if seasons < 1 {
		seasons = 1
	}
	if err := checkObservations(len(values), params.P, params.D, params.Q,
		params.SeasonalP, params.SeasonalD, params.SeasonalQ, seasons); err != nil {
		return nil, err
	}

	model := sarima.New(params.P, params.D, params.Q,
		params.SeasonalP, params.SeasonalD, params.SeasonalQ, seasons)
	if err := model.Fit(&timeseries.Series{Values: values}); err != nil {
		return nil, fmt.Errorf("sarima fit: %w", err)
	}
	points, err := model.Predict(periods)
	if err != nil {
		return nil, fmt.Errorf("sarima predict: %w", err)
	}
	return finitePoints(points, periods)
}

// checkObservations rejects orders the series cannot identify before
// handing the data to the model: differencing consumes observations and
// every coefficient needs at least one residual degree of freedom.
func checkObservations(n, p, d, q, sp, sd, sq, seasons int) error {
	effective := n - d - sd*seasons
	coeffs := p + q + sp + sq + 1
	if effective < coeffs+1 {
		return fmt.Errorf("%d observations are insufficient for %d coefficients after differencing", n, coeffs)
	}
	return nil
}

func finitePoints(points []float64, periods int) ([]float64, error) {
	if len(points) < periods {
		return nil, fmt.Errorf("model produced %d of %d requested points", len(points), periods)
	}
	points = points[:periods]
	for i, v := range points {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite prediction at step %d", i+1)
		}
	}
	return points, nil
}
