package model

import (
	"math"
	"math/rand"

	"rmindex/pkg/common"
)

// Training hyperparameters. Fixed rather than configurable: the
// network only ever sits at the RMI root, and builds must be
// reproducible for identical input.
const (
	nnEpochs       = 100
	nnLearningRate = 0.05
	nnBatchSize    = 128
	nnSeed         = 42

	// Widest hidden layer served by stack scratch space in Predict.
	maxInlineWidth = 64
)

// NeuralModel is a small feed-forward regressor: numHidden ReLU
// layers of width hiddenSize between a scalar input and a linear
// scalar output. Inputs are min-max normalized and targets scaled to
// [0, 1]; the normalization parameters recorded during training are
// re-applied at prediction time.
type NeuralModel struct {
	hiddenSize int
	numHidden  int

	// weights[l] is the flattened in×out matrix of layer l, indexed
	// i*out+j. There are numHidden+1 weight layers.
	weights [][]float64
	biases  [][]float64

	xMin   float64
	xRange float64
	yMax   float64
	useLog bool

	trained bool
}

func NewNeuralModel(hiddenSize, numHidden int) *NeuralModel {
	if hiddenSize < 1 {
		hiddenSize = 1
	}
	if numHidden < 1 {
		numHidden = 1
	}

	nn := &NeuralModel{
		hiddenSize: hiddenSize,
		numHidden:  numHidden,
		weights:    make([][]float64, numHidden+1),
		biases:     make([][]float64, numHidden+1),
	}
	for l := 0; l <= numHidden; l++ {
		in, out := nn.layerDims(l)
		nn.weights[l] = make([]float64, in*out)
		nn.biases[l] = make([]float64, out)
	}
	return nn
}

func (nn *NeuralModel) layerDims(l int) (in, out int) {
	in = nn.hiddenSize
	if l == 0 {
		in = 1
	}
	out = nn.hiddenSize
	if l == nn.numHidden {
		out = 1
	}
	return in, out
}

func (nn *NeuralModel) Train(samples []common.Sample) {
	if len(samples) == 0 {
		return
	}

	n := len(samples)

	// Heavy-tailed key ranges compress badly under min-max scaling;
	// fold them with ln(k+1) before normalizing.
	minKey := samples[0].Key
	maxKey := samples[n-1].Key
	nn.useLog = maxKey/(minKey+1) > 100

	transform := func(k float64) float64 {
		if nn.useLog {
			return math.Log(k + 1)
		}
		return k
	}

	nn.xMin = transform(minKey)
	xMax := transform(maxKey)
	nn.xRange = xMax - nn.xMin
	if nn.xRange < 1 {
		nn.xRange = 1
	}
	nn.yMax = float64(n - 1)
	if nn.yMax < 1 {
		nn.yMax = 1
	}

	// PRNG is local to the model so concurrent builds do not
	// interfere and identical input yields identical weights.
	rng := rand.New(rand.NewSource(nnSeed))
	heStd := math.Sqrt(2.0 / float64(nn.hiddenSize))
	for l := range nn.weights {
		for i := range nn.weights[l] {
			nn.weights[l][i] = rng.NormFloat64() * heStd
		}
		for i := range nn.biases[l] {
			nn.biases[l][i] = 0
		}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, s := range samples {
		xs[i] = (transform(s.Key) - nn.xMin) / nn.xRange
		ys[i] = float64(s.Pos) / nn.yMax
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	layers := nn.numHidden + 1
	weightGrads := make([][]float64, layers)
	biasGrads := make([][]float64, layers)
	for l := 0; l < layers; l++ {
		weightGrads[l] = make([]float64, len(nn.weights[l]))
		biasGrads[l] = make([]float64, len(nn.biases[l]))
	}

	acts := make([][]float64, layers+1)
	deltas := make([][]float64, layers+1)
	acts[0] = make([]float64, 1)
	for l := 0; l < layers; l++ {
		_, out := nn.layerDims(l)
		acts[l+1] = make([]float64, out)
		deltas[l+1] = make([]float64, out)
	}

	for epoch := 0; epoch < nnEpochs; epoch++ {
		rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for batchStart := 0; batchStart < n; batchStart += nnBatchSize {
			batchEnd := batchStart + nnBatchSize
			if batchEnd > n {
				batchEnd = n
			}
			batchLen := batchEnd - batchStart

			for l := 0; l < layers; l++ {
				clear(weightGrads[l])
				clear(biasGrads[l])
			}

			for b := batchStart; b < batchEnd; b++ {
				idx := indices[b]
				acts[0][0] = xs[idx]
				nn.forward(acts)

				// MSE gradient at the linear output neuron.
				deltas[layers][0] = 2 * (acts[layers][0] - ys[idx])

				for l := layers - 1; l >= 0; l-- {
					in, out := nn.layerDims(l)
					for j := 0; j < out; j++ {
						d := deltas[l+1][j]
						biasGrads[l][j] += d
						for i := 0; i < in; i++ {
							weightGrads[l][i*out+j] += acts[l][i] * d
						}
					}
					if l > 0 {
						// Mask by the ReLU derivative of the layer
						// below before propagating further.
						for i := 0; i < in; i++ {
							if acts[l][i] <= 0 {
								deltas[l][i] = 0
								continue
							}
							var sum float64
							for j := 0; j < out; j++ {
								sum += deltas[l+1][j] * nn.weights[l][i*out+j]
							}
							deltas[l][i] = sum
						}
					}
				}
			}

			step := nnLearningRate / float64(batchLen)
			for l := 0; l < layers; l++ {
				for i := range nn.weights[l] {
					nn.weights[l][i] -= step * weightGrads[l][i]
				}
				for i := range nn.biases[l] {
					nn.biases[l][i] -= step * biasGrads[l][i]
				}
			}
		}
	}

	nn.trained = true
}

// forward fills acts[1..] from acts[0]. ReLU on hidden layers,
// identity on the output.
func (nn *NeuralModel) forward(acts [][]float64) {
	layers := nn.numHidden + 1
	for l := 0; l < layers; l++ {
		in, out := nn.layerDims(l)
		for j := 0; j < out; j++ {
			sum := nn.biases[l][j]
			for i := 0; i < in; i++ {
				sum += acts[l][i] * nn.weights[l][i*out+j]
			}
			if l < layers-1 && sum < 0 {
				sum = 0
			}
			acts[l+1][j] = sum
		}
	}
}

func (nn *NeuralModel) Predict(key float64) float64 {
	if !nn.trained {
		return 0
	}

	x := key
	if nn.useLog {
		x = math.Log(x + 1)
	}
	x = (x - nn.xMin) / nn.xRange

	// Scratch buffers live on the stack for the usual widths so the
	// lookup hot path does not allocate.
	var bufA, bufB [maxInlineWidth]float64
	cur, next := bufA[:], bufB[:]
	if nn.hiddenSize > maxInlineWidth {
		cur = make([]float64, nn.hiddenSize)
		next = make([]float64, nn.hiddenSize)
	}
	cur[0] = x

	layers := nn.numHidden + 1
	for l := 0; l < layers; l++ {
		in, out := nn.layerDims(l)
		for j := 0; j < out; j++ {
			sum := nn.biases[l][j]
			for i := 0; i < in; i++ {
				sum += cur[i] * nn.weights[l][i*out+j]
			}
			if l < layers-1 && sum < 0 {
				sum = 0
			}
			next[j] = sum
		}
		cur, next = next, cur
	}

	return cur[0] * nn.yMax
}

func (nn *NeuralModel) SizeBytes() int {
	total := 0
	for l := range nn.weights {
		total += len(nn.weights[l]) * 8
		total += len(nn.biases[l]) * 8
	}
	// Normalization parameters and the log flag.
	return total + 4*8 + 1
}
