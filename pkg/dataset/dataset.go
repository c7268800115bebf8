package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"rmindex/pkg/common"
)

// Generators and file loaders all deliver key/rank pairs ready for an
// index build: keys sorted ascending, positions re-derived after the
// sort.

// Sequential produces keys start, start+1, ...
func Sequential(n int, start float64) []common.Sample {
	samples := make([]common.Sample, n)
	for i := range samples {
		samples[i] = common.Sample{Key: start + float64(i), Pos: i}
	}
	return samples
}

// Uniform draws n keys uniformly from [0, max).
func Uniform(n int, max float64, seed uint64) []common.Sample {
	dist := distuv.Uniform{Min: 0, Max: max, Src: rand.NewPCG(seed, 0)}
	samples := make([]common.Sample, n)
	for i := range samples {
		samples[i].Key = dist.Rand()
	}
	finalize(samples)
	return samples
}

// LogNormal draws n keys from lognormal(mu, sigma) scaled by scale, a
// stand-in for heavy-tailed real-world keys such as file sizes or
// inter-arrival times.
func LogNormal(n int, mu, sigma, scale float64, seed uint64) []common.Sample {
	dist := distuv.LogNormal{Mu: mu, Sigma: sigma, Src: rand.NewPCG(seed, 0)}
	samples := make([]common.Sample, n)
	for i := range samples {
		samples[i].Key = dist.Rand() * scale
	}
	finalize(samples)
	return samples
}

const nasaTimeLayout = "02/Jan/2006:15:04:05 -0700"

// LoadNASALogs reads a NASA web server access log and keys each
// request by its Unix timestamp. Lines without a parseable
// [timestamp] are skipped. maxRecords of 0 means no limit.
func LoadNASALogs(path string, maxRecords int) ([]common.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open nasa log: %w", err)
	}
	defer f.Close()

	var samples []common.Sample
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if maxRecords > 0 && len(samples) >= maxRecords {
			break
		}
		line := scanner.Text()
		start := strings.IndexByte(line, '[')
		end := strings.IndexByte(line, ']')
		if start < 0 || end < start {
			continue
		}
		ts, err := time.Parse(nasaTimeLayout, line[start+1:end])
		if err != nil {
			continue
		}
		samples = append(samples, common.Sample{Key: float64(ts.Unix())})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read nasa log: %w", err)
	}

	finalize(samples)
	return samples, nil
}

// LoadOSMLongitudes reads an id,lon,lat CSV (osmium export output)
// and keys each node by its longitude. maxRecords of 0 means no
// limit.
func LoadOSMLongitudes(path string, maxRecords int) ([]common.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open osm csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	// Header row.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("dataset: read osm header: %w", err)
	}

	var samples []common.Sample
	for {
		if maxRecords > 0 && len(samples) >= maxRecords {
			break
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read osm row: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			continue
		}
		samples = append(samples, common.Sample{Key: lon})
	}

	finalize(samples)
	return samples, nil
}

// finalize sorts by key and reassigns positions to global ranks.
func finalize(samples []common.Sample) {
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Key < samples[j].Key
	})
	for i := range samples {
		samples[i].Pos = i
	}
}
