package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// forecastOLS fits an autoregression of the given lag order by ordinary
// least squares and forecasts iteratively, feeding each prediction back as
// the newest observation. With withTrend the design matrix also carries a
// deterministic time index, which is the distributed-lag variant.
//
// lags == 0 degenerates to an intercept-only model (the series mean), or an
// intercept-plus-trend line when withTrend is set.
func forecastOLS(values []float64, lags, periods int, withTrend bool) ([]float64, error) {
	n := len(values)
	if lags < 0 {
		return nil, fmt.Errorf("lag order must not be negative, got %d", lags)
	}

	cols := lags + 1
	if withTrend {
		cols++
	}
	rows := n - lags
	if rows < cols {
		return nil, fmt.Errorf("%d observations cannot identify %d coefficients with %d lags", n, cols, lags)
	}

	design := mat.NewDense(rows, cols, nil)
	target := mat.NewVecDense(rows, nil)
	for t := lags; t < n; t++ {
		i := t - lags
		design.Set(i, 0, 1)
		col := 1
		if withTrend {
			design.Set(i, col, float64(t))
			col++
		}
		for j := 1; j <= lags; j++ {
			design.Set(i, col, values[t-j])
			col++
		}
		target.SetVec(i, values[t])
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, target); err != nil {
		return nil, fmt.Errorf("degenerate lag matrix: %w", err)
	}

	history := make([]float64, n, n+periods)
	copy(history, values)

	out := make([]float64, periods)
	for k := 0; k < periods; k++ {
		pred := beta.AtVec(0)
		col := 1
		if withTrend {
			pred += beta.AtVec(col) * float64(n+k)
			col++
		}
		for j := 1; j <= lags; j++ {
			pred += beta.AtVec(col) * history[len(history)-j]
			col++
		}
		if math.IsNaN(pred) || math.IsInf(pred, 0) {
			return nil, fmt.Errorf("prediction diverged at step %d", k+1)
		}
		out[k] = pred
		history = append(history, pred)
	}
	return out, nil
}
