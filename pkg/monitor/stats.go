package monitor

import (
	"sync/atomic"
)

// SearchStats counts lookup activity on an index. All updates are
// atomic so the lookup path stays lock-free under concurrent readers.
type SearchStats struct {
	Lookups     uint64
	Fallbacks   uint64
	WindowTotal uint64
}

func NewSearchStats() *SearchStats {
	return &SearchStats{}
}

// RecordLookup notes one served lookup and the width of its search
// window, in ranks.
func (ss *SearchStats) RecordLookup(window int) {
	atomic.AddUint64(&ss.Lookups, 1)
	if window > 0 {
		atomic.AddUint64(&ss.WindowTotal, uint64(window))
	}
}

// RecordFallback notes a lookup whose predicted window missed and had
// to widen to the rest of the array.
func (ss *SearchStats) RecordFallback() {
	atomic.AddUint64(&ss.Fallbacks, 1)
}

// AvgWindow is the mean search-window width over all lookups so far.
func (ss *SearchStats) AvgWindow() float64 {
	lookups := atomic.LoadUint64(&ss.Lookups)
	if lookups == 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&ss.WindowTotal)) / float64(lookups)
}

func (ss *SearchStats) Summary() map[string]interface{} {
	return map[string]interface{}{
		"lookups":    atomic.LoadUint64(&ss.Lookups),
		"fallbacks":  atomic.LoadUint64(&ss.Fallbacks),
		"avg_window": ss.AvgWindow(),
	}
}
