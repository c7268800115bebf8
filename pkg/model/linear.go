package model

import (
	"math"

	"rmindex/pkg/common"
)

// LinearModel fits position on key by closed-form least squares.
// Error bounds live on the enclosing stage, not here.
type LinearModel struct {
	Slope     float64
	Intercept float64
}

func NewLinearModel() *LinearModel {
	return &LinearModel{}
}

func (lm *LinearModel) Train(samples []common.Sample) {
	if len(samples) == 0 {
		return
	}

	n := float64(len(samples))
	var sumX, sumY, sumXY, sumXX float64
	for _, s := range samples {
		x := s.Key
		y := float64(s.Pos)

		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	meanX := sumX / n
	meanY := sumY / n

	denominator := sumXX - n*meanX*meanX
	if math.Abs(denominator) < 1e-10 {
		// Degenerate segment (constant keys): predict the mean rank.
		lm.Slope = 0
		lm.Intercept = meanY
		return
	}

	lm.Slope = (sumXY - n*meanX*meanY) / denominator
	lm.Intercept = meanY - lm.Slope*meanX
}

func (lm *LinearModel) Predict(key float64) float64 {
	return lm.Slope*key + lm.Intercept
}

func (lm *LinearModel) SizeBytes() int {
	return 16 // slope + intercept
}
