package service

// linearFit is the result of an ordinary least squares fit over an
// index-ordered series.
type linearFit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// fitLeastSquares regresses values against their indices (x = 0..n-1).
// Fewer than two points yields the zero fit.
func fitLeastSquares(values []float64) linearFit {
	n := len(values)
	if n < 2 {
		return linearFit{}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return linearFit{}
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssTot, ssRes float64
	for i, y := range values {
		predicted := intercept + slope*float64(i)
		ssRes += (y - predicted) * (y - predicted)
		ssTot += (y - meanY) * (y - meanY)
	}

	fit := linearFit{Slope: slope, Intercept: intercept}
	if ssTot > 0 {
		fit.RSquared = clamp01(1 - ssRes/ssTot)
	}
	return fit
}
