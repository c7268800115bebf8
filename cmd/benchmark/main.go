package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"rmindex/pkg/common"
	"rmindex/pkg/config"
	"rmindex/pkg/core/baseline"
	"rmindex/pkg/core/rmi"
	"rmindex/pkg/dataset"
	"rmindex/pkg/results"
)

func main() {
	configPath := flag.String("config", "", "YAML config path (empty: defaults / rmindex.yaml)")
	records := flag.Int("n", 0, "Override record count")
	queries := flag.Int("queries", 0, "Override query count")
	datasetName := flag.String("dataset", "", "Override dataset (sequential|uniform|lognormal|nasa|osm)")
	dataPath := flag.String("data", "", "Input file for nasa/osm datasets")
	out := flag.String("out", "", "Override results sqlite path (\"-\" disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *records > 0 {
		cfg.Bench.Records = *records
	}
	if *queries > 0 {
		cfg.Bench.Queries = *queries
	}
	if *datasetName != "" {
		cfg.Bench.Dataset = *datasetName
	}
	if *dataPath != "" {
		cfg.Bench.DataPath = *dataPath
	}
	if *out != "" {
		cfg.Bench.ResultsPath = *out
		if *out == "-" {
			cfg.Bench.ResultsPath = ""
		}
	}

	samples, err := loadDataset(&cfg.Bench)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	if len(samples) == 0 {
		log.Fatal("Dataset is empty")
	}
	fmt.Printf("Dataset: %s (%d records)\n", cfg.Bench.Dataset, len(samples))

	queryKeys := makeQueries(samples, cfg.Bench.Queries, cfg.Bench.Seed)

	var rows []results.Result
	rows = append(rows, runBTree(samples, queryKeys, cfg.Bench.BTreeDegree, cfg.Bench.Dataset))
	for _, idxCfg := range cfg.Indexes {
		rows = append(rows, runRMI(samples, queryKeys, idxCfg, cfg.Bench.Dataset))
	}

	printTable(cfg.Bench.Dataset, len(samples), rows)

	if cfg.Bench.ResultsPath != "" {
		store, err := results.Open(cfg.Bench.ResultsPath)
		if err != nil {
			log.Fatalf("Failed to open results store: %v", err)
		}
		defer store.Close()
		if err := store.Save(rows); err != nil {
			log.Fatalf("Failed to save results: %v", err)
		}
		fmt.Printf("\nResults saved to %s\n", cfg.Bench.ResultsPath)
	}
}

func loadDataset(bc *config.BenchConfig) ([]common.Sample, error) {
	switch bc.Dataset {
	case "sequential":
		return dataset.Sequential(bc.Records, 0), nil
	case "uniform":
		return dataset.Uniform(bc.Records, 1e9, bc.Seed), nil
	case "lognormal":
		return dataset.LogNormal(bc.Records, 0, 2, 1e9, bc.Seed), nil
	case "nasa":
		return dataset.LoadNASALogs(bc.DataPath, bc.Records)
	case "osm":
		return dataset.LoadOSMLongitudes(bc.DataPath, bc.Records)
	}
	return nil, fmt.Errorf("unknown dataset %q", bc.Dataset)
}

func makeQueries(samples []common.Sample, n int, seed uint64) []float64 {
	rng := rand.New(rand.NewSource(int64(seed)))
	keys := make([]float64, n)
	for i := range keys {
		keys[i] = samples[rng.Intn(len(samples))].Key
	}
	return keys
}

func runBTree(samples []common.Sample, queryKeys []float64, degree int, ds string) results.Result {
	sorted := make([]float64, len(samples))
	for i, s := range samples {
		sorted[i] = s.Key
	}

	start := time.Now()
	bt := baseline.NewBTreeIndex(sorted, degree)
	buildMs := float64(time.Since(start).Microseconds()) / 1000.0

	start = time.Now()
	for _, q := range queryKeys {
		_ = bt.LowerBound(q)
	}
	lookupNs := float64(time.Since(start).Nanoseconds()) / float64(len(queryKeys))

	return results.Result{
		Dataset:   ds,
		Index:     fmt.Sprintf("btree-%d", degree),
		Records:   len(samples),
		BuildMs:   buildMs,
		LookupNs:  lookupNs,
		SizeBytes: bt.SizeBytes(),
	}
}

func runRMI(samples []common.Sample, queryKeys []float64, idxCfg config.IndexConfig, ds string) results.Result {
	idx, err := rmi.New(rmi.Config{
		StageSizes:      idxCfg.StageSizes,
		HiddenSize:      idxCfg.HiddenSize,
		NumHiddenLayers: idxCfg.NumHiddenLayers,
		ErrorThreshold:  idxCfg.ErrorThreshold,
	})
	if err != nil {
		log.Fatalf("Bad index config %q: %v", idxCfg.Name, err)
	}

	// Build reorders its input; keep the shared dataset intact.
	data := make([]common.Sample, len(samples))
	copy(data, samples)

	start := time.Now()
	if err := idx.Build(data); err != nil {
		log.Fatalf("Build %q: %v", idxCfg.Name, err)
	}
	buildMs := float64(time.Since(start).Microseconds()) / 1000.0

	start = time.Now()
	for _, q := range queryKeys {
		_ = idx.Lookup(q)
	}
	lookupNs := float64(time.Since(start).Nanoseconds()) / float64(len(queryKeys))

	return results.Result{
		Dataset:   ds,
		Index:     idxCfg.Name,
		Records:   len(samples),
		BuildMs:   buildMs,
		LookupNs:  lookupNs,
		SizeBytes: idx.TotalSizeBytes(),
		AvgError:  idx.AverageError(),
	}
}

func printTable(ds string, n int, rows []results.Result) {
	fmt.Printf("\n%s\n", strings.Repeat("=", 95))
	fmt.Printf("DATASET: %s (%d records)\n", ds, n)
	fmt.Println(strings.Repeat("=", 95))
	fmt.Printf("%-30s%15s%15s%15s%15s\n",
		"Configuration", "Build (ms)", "Lookup (ns)", "Size (MB)", "Avg Error")
	fmt.Println(strings.Repeat("-", 95))
	for _, r := range rows {
		fmt.Printf("%-30s%15.2f%15.2f%15.2f%15.1f\n",
			r.Index, r.BuildMs, r.LookupNs,
			float64(r.SizeBytes)/(1024.0*1024.0), r.AvgError)
	}
	fmt.Println(strings.Repeat("=", 95))
}
