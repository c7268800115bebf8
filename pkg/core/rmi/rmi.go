package rmi

import (
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"rmindex/pkg/common"
	"rmindex/pkg/core/keys"
	"rmindex/pkg/model"
	"rmindex/pkg/monitor"
)

// Config controls the shape of the index. StageSizes gives the model
// count per stage and must start with 1. A neural root is used when
// NumHiddenLayers > 0; every other model is linear. ErrorThreshold is
// reserved for a per-leaf fallback that is not part of the lookup
// path.
type Config struct {
	StageSizes      []int
	HiddenSize      int
	NumHiddenLayers int
	ErrorThreshold  float64
}

func (c *Config) validate() error {
	if len(c.StageSizes) == 0 {
		return fmt.Errorf("rmi: stage_sizes must not be empty")
	}
	if c.StageSizes[0] != 1 {
		return fmt.Errorf("rmi: stage_sizes[0] must be 1, got %d", c.StageSizes[0])
	}
	for i, w := range c.StageSizes {
		if w <= 0 {
			return fmt.Errorf("rmi: stage_sizes[%d] must be positive, got %d", i, w)
		}
	}
	if c.NumHiddenLayers < 0 {
		return fmt.Errorf("rmi: num_hidden_layers must be >= 0, got %d", c.NumHiddenLayers)
	}
	if c.HiddenSize == 0 {
		c.HiddenSize = 8
	}
	if c.HiddenSize < 0 {
		return fmt.Errorf("rmi: hidden_size must be positive, got %d", c.HiddenSize)
	}
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = 128
	}
	return nil
}

// stage holds one Model interface per slot (each pointing at its own
// model; models are not stored inline) alongside the per-model signed
// residual bounds, in rank units. Only the final stage's bounds drive
// the lookup search window; earlier bounds are kept for diagnostics.
type stage struct {
	models []model.Model
	minErr []float64
	maxErr []float64
}

// RMI is a recursive model index over a sorted float64 key array.
// Build populates it exactly once; all query methods are read-only
// afterwards and safe for any number of concurrent callers.
type RMI struct {
	cfg    Config
	store  *keys.Store
	stages []stage
	built  bool
	stats  *monitor.SearchStats
}

func New(cfg Config) (*RMI, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &RMI{
		cfg:   cfg,
		store: keys.NewStore(nil),
		stats: monitor.NewSearchStats(),
	}, nil
}

// Build sorts the samples, bulk-loads the key store and trains the
// model hierarchy. The input slice is reordered in place. Build may
// be called once per index.
func (r *RMI) Build(samples []common.Sample) error {
	if r.built {
		return fmt.Errorf("rmi: index already built")
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Key < samples[j].Key
	})
	for i := range samples {
		samples[i].Pos = i
	}

	sorted := make([]float64, len(samples))
	for i, s := range samples {
		sorted[i] = s.Key
	}
	r.store = keys.NewStore(sorted)

	n := len(samples)
	r.stages = make([]stage, len(r.cfg.StageSizes))
	if n == 0 {
		for s, width := range r.cfg.StageSizes {
			r.stages[s] = newStage(width)
			for m := 0; m < width; m++ {
				r.stages[s].models[m] = model.NewLinearModel()
			}
		}
		r.built = true
		return nil
	}

	buckets := [][]common.Sample{samples}
	for s, width := range r.cfg.StageSizes {
		st := newStage(width)

		var nextWidth int
		last := s == len(r.cfg.StageSizes)-1
		if !last {
			nextWidth = r.cfg.StageSizes[s+1]
		}

		// Each model trains on its own bucket, so models of one stage
		// are independent; fan the work out and keep routing buffers
		// per model to stay deterministic.
		routed := make([][][]common.Sample, width)
		g := new(errgroup.Group)
		g.SetLimit(runtime.GOMAXPROCS(0))

		for m := 0; m < width; m++ {
			g.Go(func() error {
				bucket := buckets[m]
				if len(bucket) == 0 {
					// Constant-zero predictor; bounds stay at zero.
					st.models[m] = model.NewLinearModel()
					return nil
				}

				var mdl model.Model
				if s == 0 && r.cfg.NumHiddenLayers > 0 {
					mdl = model.NewNeuralModel(r.cfg.HiddenSize, r.cfg.NumHiddenLayers)
				} else {
					mdl = model.NewLinearModel()
				}
				mdl.Train(bucket)
				st.models[m] = mdl

				if !last {
					routed[m] = make([][]common.Sample, nextWidth)
				}

				// Signed residuals of the quantized rank estimate,
				// kept straddling zero so the window stays sound when
				// the estimate is clamped at the array edges.
				minErr, maxErr := 0.0, 0.0
				for _, sample := range bucket {
					pred := mdl.Predict(sample.Key)
					e := float64(rankEstimate(pred, n) - sample.Pos)
					if e < minErr {
						minErr = e
					}
					if e > maxErr {
						maxErr = e
					}

					if !last {
						next := routeIndex(pred, n, nextWidth)
						routed[m][next] = append(routed[m][next], sample)
					}
				}
				st.minErr[m] = minErr
				st.maxErr[m] = maxErr
				return nil
			})
		}
		g.Wait()

		r.stages[s] = st

		if !last {
			next := make([][]common.Sample, nextWidth)
			for m := 0; m < width; m++ {
				for b, part := range routed[m] {
					next[b] = append(next[b], part...)
				}
			}
			buckets = next
		}
	}

	r.built = true
	return nil
}

func newStage(width int) stage {
	return stage{
		models: make([]model.Model, width),
		minErr: make([]float64, width),
		maxErr: make([]float64, width),
	}
}

// routeIndex maps a predicted global rank to a model slot of the next
// stage: the prediction is clamped to [0, n-1] and scaled to the
// stage width.
func routeIndex(pred float64, n, nextWidth int) int {
	if pred < 0 {
		pred = 0
	}
	if max := float64(n - 1); pred > max {
		pred = max
	}
	idx := int(pred / float64(n) * float64(nextWidth))
	if idx < 0 {
		idx = 0
	}
	if idx > nextWidth-1 {
		idx = nextWidth - 1
	}
	return idx
}

// Lookup returns the smallest rank whose key is >= key, or Len() if
// there is none. Equivalent to LowerBound.
func (r *RMI) Lookup(key float64) int {
	n := r.store.Len()
	if !r.built || n == 0 {
		return 0
	}

	modelIdx := 0
	var pred float64
	for s := range r.stages {
		pred = r.stages[s].models[modelIdx].Predict(key)
		if s < len(r.stages)-1 {
			modelIdx = routeIndex(pred, n, len(r.stages[s+1].models))
		}
	}

	posEstimate := rankEstimate(pred, n)

	// The residual is estimate minus true rank, so the true rank sits
	// at estimate minus residual: the window subtracts the bounds.
	leaf := &r.stages[len(r.stages)-1]
	lo := clampRank(posEstimate-int(leaf.maxErr[modelIdx]), n)
	hi := clampRank(posEstimate-int(leaf.minErr[modelIdx])+1, n)
	if hi < lo {
		hi = lo
	}
	r.stats.RecordLookup(hi - lo)

	pos := r.store.LowerBound(key, lo, hi)
	// The window covers every training residual; a hit on its edge
	// means an out-of-distribution key, so fall back to the rest of
	// the array.
	if pos == lo && lo > 0 && r.store.Key(lo-1) >= key {
		r.stats.RecordFallback()
		pos = r.store.LowerBound(key, 0, lo)
	} else if pos == hi && hi < n {
		r.stats.RecordFallback()
		pos = r.store.LowerBound(key, hi, n)
	}
	return pos
}

// rankEstimate quantizes a real-valued prediction to a rank in
// [0, n-1].
func rankEstimate(pred float64, n int) int {
	if pred < 0 {
		return 0
	}
	if limit := float64(n - 1); pred > limit {
		return n - 1
	}
	return int(pred)
}

func clampRank(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}

// LowerBound returns the rank of the first key >= key.
func (r *RMI) LowerBound(key float64) int {
	return r.Lookup(key)
}

// UpperBound returns the rank of the first key > key. Correct in the
// presence of duplicates: Lookup lands on the first occurrence and
// the scan walks past the run of equal keys.
func (r *RMI) UpperBound(key float64) int {
	pos := r.Lookup(key)
	n := r.store.Len()
	for pos < n && r.store.Key(pos) <= key {
		pos++
	}
	return pos
}

// Len reports the number of indexed records.
func (r *RMI) Len() int {
	return r.store.Len()
}

// TotalSizeBytes sums model weights, error bound arrays and the key
// store.
func (r *RMI) TotalSizeBytes() int {
	total := 0
	for _, st := range r.stages {
		for _, m := range st.models {
			if m != nil {
				total += m.SizeBytes()
			}
		}
		total += len(st.minErr) * 8
		total += len(st.maxErr) * 8
	}
	return total + r.store.SizeBytes()
}

// AverageError estimates the mean absolute rank error by probing up
// to 10,000 evenly spaced training keys.
func (r *RMI) AverageError() float64 {
	n := r.store.Len()
	if n == 0 {
		return 0
	}

	sampleSize := n
	if sampleSize > 10000 {
		sampleSize = 10000
	}
	step := (n + sampleSize - 1) / sampleSize
	if step < 1 {
		step = 1
	}

	total := 0.0
	count := 0
	for i := 0; i < n; i += step {
		pos := r.Lookup(r.store.Key(i))
		d := float64(pos - i)
		if d < 0 {
			d = -d
		}
		total += d
		count++
	}
	return total / float64(count)
}

// Stats exposes lookup instrumentation counters.
func (r *RMI) Stats() map[string]interface{} {
	m := r.stats.Summary()
	m["stages"] = len(r.stages)
	m["records"] = r.store.Len()
	return m
}
