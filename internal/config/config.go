// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bcem/ragprep/internal/chunk"
)

// PipelineConfig controls the per-email preparation stages.
type PipelineConfig struct {
	ChunkSize        int
	Overlap          int
	QualityThreshold float64
	RemoveSignatures bool
	ExtractEntities  bool
	OptimizeForRAG   bool
	Workers          int
	StopWords        []string
}

// TenantConfig holds Graph API credentials for a single tenant.
type TenantConfig struct {
	Alias        string `yaml:"alias"`
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// Users limits discovery to these mailboxes when non-empty.
	Users        []string `yaml:"users"`
	ExcludeUsers []string `yaml:"exclude_users"`
}

// Config holds all configuration for the preparation service and CLI.
type Config struct {
	Pipeline PipelineConfig

	// Graph source
	Tenants       []TenantConfig
	GraphBaseURL  string
	GraphLookback time.Duration

	// Redis
	RedisURL       string
	DocumentsQueue string
	DedupTTL       time.Duration

	// Postgres ledger
	DatabaseURL string

	// Local bleve index
	IndexPath string

	// Server
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Pipeline struct {
		ChunkSize        int      `yaml:"chunk_size"`
		Overlap          *int     `yaml:"overlap"`
		QualityThreshold *float64 `yaml:"quality_threshold"`
		RemoveSignatures *bool    `yaml:"remove_signatures"`
		ExtractEntities  *bool    `yaml:"extract_entities"`
		OptimizeForRAG   *bool    `yaml:"optimize_for_rag"`
		Workers          int      `yaml:"workers"`
		StopWords        []string `yaml:"stop_words"`
	} `yaml:"pipeline"`
	Graph struct {
		BaseURL  string         `yaml:"base_url"`
		Lookback string         `yaml:"lookback"`
		Tenants  []TenantConfig `yaml:"tenants"`
	} `yaml:"graph"`
	Redis struct {
		URL      string `yaml:"url"`
		DedupTTL string `yaml:"dedup_ttl"`
		Queues   struct {
			Documents string `yaml:"documents"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Index struct {
		Path string `yaml:"path"`
	} `yaml:"index"`
}

// Load reads the file named by CONFIG_PATH, or only the environment when
// it is unset. A .env file in the working directory is applied first.
func Load() (*Config, error) {
	LoadDotEnv()
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadDotEnv copies KEY=value pairs from ./.env into the environment.
// Variables that are already set win. A missing file is ignored.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// LoadFile reads configuration from path (with env var expansion) and fills
// everything the file leaves unset from the environment and defaults. An
// empty path skips the file.
func LoadFile(path string) (*Config, error) {
	var raw rawConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}

		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	p := raw.Pipeline
	cfg := &Config{
		Pipeline: PipelineConfig{
			ChunkSize:        firstPositive(p.ChunkSize, envOrDefaultInt("CHUNK_SIZE", chunk.DefaultSize)),
			Overlap:          intOr(p.Overlap, envOrDefaultInt("CHUNK_OVERLAP", chunk.DefaultOverlap)),
			QualityThreshold: floatOr(p.QualityThreshold, envOrDefaultFloat("QUALITY_THRESHOLD", 0)),
			RemoveSignatures: boolOr(p.RemoveSignatures, envOrDefaultBool("REMOVE_SIGNATURES", true)),
			ExtractEntities:  boolOr(p.ExtractEntities, envOrDefaultBool("EXTRACT_ENTITIES", true)),
			OptimizeForRAG:   boolOr(p.OptimizeForRAG, envOrDefaultBool("OPTIMIZE_FOR_RAG", true)),
			Workers:          firstPositive(p.Workers, envOrDefaultInt("WORKERS", 4)),
			StopWords:        p.StopWords,
		},
		GraphBaseURL:   firstNonEmpty(raw.Graph.BaseURL, envOrDefault("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0")),
		GraphLookback:  durationOr(raw.Graph.Lookback, envOrDefaultDuration("GRAPH_LOOKBACK", 24*time.Hour)),
		RedisURL:       firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "")),
		DocumentsQueue: firstNonEmpty(raw.Redis.Queues.Documents, envOrDefault("DOCUMENTS_QUEUE", "search_documents")),
		DedupTTL:       durationOr(raw.Redis.DedupTTL, envOrDefaultDuration("DEDUP_TTL", 7*24*time.Hour)),
		DatabaseURL:    firstNonEmpty(raw.Database.URL, envOrDefault("DATABASE_URL", "")),
		IndexPath:      firstNonEmpty(raw.Index.Path, envOrDefault("INDEX_PATH", "")),
		Port:           envOrDefaultInt("PORT", 8080),
	}

	for _, t := range raw.Graph.Tenants {
		// Skip tenants with empty credentials (commented out in YAML)
		if t.TenantID == "" || t.ClientID == "" || t.ClientSecret == "" {
			continue
		}
		if t.Alias == "" {
			t.Alias = t.TenantID[:min(8, len(t.TenantID))]
		}
		cfg.Tenants = append(cfg.Tenants, t)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would make every email fail.
func (c *Config) Validate() error {
	if err := chunk.Validate(c.Pipeline.ChunkSize, c.Pipeline.Overlap); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	if c.Pipeline.QualityThreshold < 0 || c.Pipeline.QualityThreshold > 100 {
		return fmt.Errorf("pipeline config: quality threshold %.1f outside 0-100", c.Pipeline.QualityThreshold)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline config: workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func floatOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func durationOr(v string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
		return d
	}
	return fallback
}
