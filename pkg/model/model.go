package model

import "rmindex/pkg/common"

// Model is the contract every scalar regressor satisfies. Train is
// called at most once, with samples sorted by key and positions in
// global rank units. Predict returns a real-valued rank estimate and
// may extrapolate outside the training range. Empty training input is
// legal; the model then predicts a constant zero.
type Model interface {
	Train(samples []common.Sample)
	Predict(key float64) float64
	SizeBytes() int
}
