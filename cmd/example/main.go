package main

import (
	"fmt"
	"log"
	"time"

	"rmindex/pkg/core/rmi"
	"rmindex/pkg/dataset"
)

func main() {
	fmt.Println("Building a recursive model index over 100K lognormal keys...")
	samples := dataset.LogNormal(100000, 0, 2, 1e9, 42)

	idx, err := rmi.New(rmi.Config{
		StageSizes:      []int{1, 1000},
		HiddenSize:      8,
		NumHiddenLayers: 1,
	})
	if err != nil {
		log.Fatalf("Bad config: %v", err)
	}

	probe := samples[len(samples)/2].Key

	start := time.Now()
	if err := idx.Build(samples); err != nil {
		log.Fatalf("Build failed: %v", err)
	}
	fmt.Printf("Built in %v (%.1f KB of models and keys)\n",
		time.Since(start), float64(idx.TotalSizeBytes())/1024.0)

	start = time.Now()
	rank := idx.Lookup(probe)
	fmt.Printf("Lookup(%.2f) = rank %d (in %v)\n", probe, rank, time.Since(start))

	lb, ub := idx.LowerBound(probe), idx.UpperBound(probe)
	fmt.Printf("Equal-key range: [%d, %d)\n", lb, ub)
	fmt.Printf("Average prediction error: %.2f positions\n", idx.AverageError())
	fmt.Printf("Stats: %v\n", idx.Stats())
}
