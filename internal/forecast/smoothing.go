package forecast

import (
	"fmt"
	"math"
)

// Exponential smoothing methods forecast a single period ahead: the flat
// continuation they produce carries no information beyond the first point,
// so the request layer pins the horizon to 1 for them.

// forecastSimpleSmoothing runs simple exponential smoothing with the
// smoothing factor chosen by grid search over the one-step squared error.
func forecastSimpleSmoothing(values []float64) ([]float64, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("simple smoothing needs at least 2 observations, have %d", len(values))
	}

	bestSSE := math.Inf(1)
	bestForecast := values[len(values)-1]
	for alpha := 0.05; alpha < 1.0; alpha += 0.05 {
		level := values[0]
		sse := 0.0
		for i := 1; i < len(values); i++ {
			err := values[i] - level
			sse += err * err
			level = alpha*values[i] + (1-alpha)*level
		}
		if sse < bestSSE {
			bestSSE = sse
			bestForecast = level
		}
	}

	if math.IsNaN(bestForecast) || math.IsInf(bestForecast, 0) {
		return nil, fmt.Errorf("smoothing diverged")
	}
	return []float64{bestForecast}, nil
}

// forecastHoltLinear runs Holt's linear-trend exponential smoothing, the
// non-seasonal Holt-Winters variant, with level and trend factors chosen
// by grid search.
func forecastHoltLinear(values []float64) ([]float64, error) {
	if len(values) < 3 {
		return nil, fmt.Errorf("holt smoothing needs at least 3 observations, have %d", len(values))
	}

	bestSSE := math.Inf(1)
	bestForecast := values[len(values)-1]
	for alpha := 0.1; alpha < 1.0; alpha += 0.1 {
		for beta := 0.1; beta < 1.0; beta += 0.1 {
			level := values[0]
			trend := values[1] - values[0]
			sse := 0.0
			for i := 1; i < len(values); i++ {
				pred := level + trend
				err := values[i] - pred
				sse += err * err
				prevLevel := level
				level = alpha*values[i] + (1-alpha)*(level+trend)
				trend = beta*(level-prevLevel) + (1-beta)*trend
			}
			if sse < bestSSE {
				bestSSE = sse
				bestForecast = level + trend
			}
		}
	}

	if math.IsNaN(bestForecast) || math.IsInf(bestForecast, 0) {
		return nil, fmt.Errorf("smoothing diverged")
	}
	return []float64{bestForecast}, nil
}
