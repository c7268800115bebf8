package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bench   BenchConfig   `yaml:"bench"`
	Indexes []IndexConfig `yaml:"indexes"`
}

type BenchConfig struct {
	Records     int    `yaml:"records"`      // synthetic dataset size
	Queries     int    `yaml:"queries"`      // lookups per measurement
	Dataset     string `yaml:"dataset"`      // sequential | uniform | lognormal | nasa | osm
	DataPath    string `yaml:"data_path"`    // input file for nasa/osm
	Seed        uint64 `yaml:"seed"`         // synthetic generator seed
	ResultsPath string `yaml:"results_path"` // sqlite output, empty disables
	BTreeDegree int    `yaml:"btree_degree"`
}

type IndexConfig struct {
	Name            string  `yaml:"name"`
	StageSizes      []int   `yaml:"stage_sizes"`
	HiddenSize      int     `yaml:"hidden_size"`
	NumHiddenLayers int     `yaml:"num_hidden_layers"`
	ErrorThreshold  float64 `yaml:"error_threshold"`
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	if configPath == "" {
		for _, p := range []string{"configs/rmindex.yaml", "rmindex.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Bench: BenchConfig{
			Records:     1000000,
			Queries:     10000,
			Dataset:     "lognormal",
			Seed:        42,
			ResultsPath: "benchmark_results.db",
			BTreeDegree: 64,
		},
		Indexes: []IndexConfig{
			{
				Name:       "rmi-linear-1k",
				StageSizes: []int{1, 1000},
			},
			{
				Name:            "rmi-neural-1k",
				StageSizes:      []int{1, 1000},
				HiddenSize:      8,
				NumHiddenLayers: 1,
			},
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Bench.Records <= 0 {
		cfg.Bench.Records = 1000000
	}
	if cfg.Bench.Queries <= 0 {
		cfg.Bench.Queries = 10000
	}
	if cfg.Bench.Dataset == "" {
		cfg.Bench.Dataset = "lognormal"
	}
	if cfg.Bench.Seed == 0 {
		cfg.Bench.Seed = 42
	}
	if cfg.Bench.BTreeDegree <= 0 {
		cfg.Bench.BTreeDegree = 64
	}
	for i := range cfg.Indexes {
		idx := &cfg.Indexes[i]
		if len(idx.StageSizes) == 0 {
			idx.StageSizes = []int{1, 1000}
		}
		if idx.HiddenSize <= 0 {
			idx.HiddenSize = 8
		}
		if idx.ErrorThreshold <= 0 {
			idx.ErrorThreshold = 128
		}
	}
}
