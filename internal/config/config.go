// Package config loads the vecspace CLI configuration.
//
// Values come from a YAML file (--config, or
// $XDG_CONFIG_HOME/vecspace/config.yaml when unset), then from the
// environment. A .env file in the working directory is loaded first so
// storage credentials can live outside the YAML file. Command-line flags
// override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/vecspace/internal/compress"
	"github.com/hupe1980/vecspace/merge"
	"github.com/hupe1980/vecspace/shard"
)

// Config is the root configuration.
type Config struct {
	Retrofit RetrofitConfig `yaml:"retrofit"`
	Merge    MergeConfig    `yaml:"merge"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// RetrofitConfig holds retrofit and checkpoint settings.
type RetrofitConfig struct {
	Iterations  int    `yaml:"iterations"`
	NumShards   int    `yaml:"nshards"`
	Policy      string `yaml:"policy"`
	MaxWorkers  int    `yaml:"max_workers"`
	MemoryLimit string `yaml:"memory_limit"`
	IOLimit     string `yaml:"io_limit"`
	Compression string `yaml:"compression"`
}

// MergeConfig holds interpolate and intersect settings.
type MergeConfig struct {
	VocabThreshold int       `yaml:"vocab_threshold"`
	Blend          string    `yaml:"blend"`
	Weights        []float64 `yaml:"weights,omitempty"`
	Ridge          float64   `yaml:"ridge"`
	Normalize      *bool     `yaml:"normalize,omitempty"`
	Dim            int       `yaml:"dim"`
}

// LookupConfig holds lookup wrapper settings.
type LookupConfig struct {
	Language  string `yaml:"language"`
	CacheSize int    `yaml:"cache_size"`
}

// StorageConfig configures remote checkpoint stores.
type StorageConfig struct {
	S3    S3Config    `yaml:"s3"`
	MinIO MinIOConfig `yaml:"minio"`
}

// S3Config configures s3:// targets.
type S3Config struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	// DDBTable, when set, commits CURRENT pointers through DynamoDB.
	DDBTable string `yaml:"ddb_table"`
}

// MinIOConfig configures minio:// targets.
type MinIOConfig struct {
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Secure       bool   `yaml:"secure"`
	Region       string `yaml:"region"`
	CreateBucket bool   `yaml:"create_bucket"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Verbosity int    `yaml:"verbosity"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Retrofit: RetrofitConfig{
			Iterations:  5,
			NumShards:   6,
			Policy:      "hash",
			Compression: "zstd",
		},
		Merge: MergeConfig{
			VocabThreshold: 50000,
			Blend:          "average",
			Ridge:          1e-3,
			Dim:            300,
		},
		Lookup: LookupConfig{
			Language:  "en",
			CacheSize: 4096,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "vecspace", "config.yaml"), nil
}

// Load reads the configuration. An empty path means the default location,
// which may be missing; an explicit path must exist. Environment overrides
// are applied last.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(&c.Storage.S3.Region, "AWS_REGION")
	setString(&c.Storage.S3.Endpoint, "VECSPACE_S3_ENDPOINT")
	setString(&c.Storage.S3.DDBTable, "VECSPACE_DDB_TABLE")
	setString(&c.Storage.MinIO.Endpoint, "VECSPACE_MINIO_ENDPOINT")
	setString(&c.Storage.MinIO.AccessKey, "VECSPACE_MINIO_ACCESS_KEY")
	setString(&c.Storage.MinIO.SecretKey, "VECSPACE_MINIO_SECRET_KEY")
	setString(&c.Storage.MinIO.Region, "VECSPACE_MINIO_REGION")
	if v, ok := os.LookupEnv("VECSPACE_MINIO_SECURE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Storage.MinIO.Secure = b
		}
	}
	setString(&c.Log.Level, "VECSPACE_LOG_LEVEL")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Retrofit.Iterations < 0:
		return fmt.Errorf("retrofit.iterations must be >= 0, got %d", c.Retrofit.Iterations)
	case c.Retrofit.NumShards < 1:
		return fmt.Errorf("retrofit.nshards must be >= 1, got %d", c.Retrofit.NumShards)
	case c.Retrofit.MaxWorkers < 0:
		return fmt.Errorf("retrofit.max_workers must be >= 0, got %d", c.Retrofit.MaxWorkers)
	case c.Merge.VocabThreshold < 0:
		return fmt.Errorf("merge.vocab_threshold must be >= 0, got %d", c.Merge.VocabThreshold)
	case c.Merge.Dim < 1:
		return fmt.Errorf("merge.dim must be >= 1, got %d", c.Merge.Dim)
	case c.Merge.Ridge < 0:
		return fmt.Errorf("merge.ridge must be >= 0, got %g", c.Merge.Ridge)
	case len(c.Merge.Weights) != 0 && len(c.Merge.Weights) != 2:
		return fmt.Errorf("merge.weights needs two values, got %d", len(c.Merge.Weights))
	case c.Lookup.CacheSize < 0:
		return fmt.Errorf("lookup.cache_size must be >= 0, got %d", c.Lookup.CacheSize)
	}
	if _, err := shard.ParsePolicy(c.Retrofit.Policy); err != nil {
		return fmt.Errorf("retrofit.policy: %w", err)
	}
	if _, err := compress.ParseType(c.Retrofit.Compression); err != nil {
		return fmt.Errorf("retrofit.compression: %w", err)
	}
	if _, err := merge.ParseBlend(c.Merge.Blend); err != nil {
		return fmt.Errorf("merge.blend: %w", err)
	}
	if _, err := ParseBytes(c.Retrofit.MemoryLimit); err != nil {
		return fmt.Errorf("retrofit.memory_limit: %w", err)
	}
	if _, err := ParseBytes(c.Retrofit.IOLimit); err != nil {
		return fmt.Errorf("retrofit.io_limit: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

var byteUnits = []struct {
	suffix string
	mult   int64
}{
	{"gib", 1 << 30}, {"mib", 1 << 20}, {"kib", 1 << 10},
	{"gb", 1e9}, {"mb", 1e6}, {"kb", 1e3},
	{"g", 1 << 30}, {"m", 1 << 20}, {"k", 1 << 10},
	{"b", 1},
}

// ParseBytes parses sizes such as "512MiB", "2g" or "1048576".
// The empty string is 0.
func ParseBytes(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	mult := int64(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(s, u.suffix) {
			s, mult = strings.TrimSpace(strings.TrimSuffix(s, u.suffix)), u.mult
			break
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int64(f * float64(mult)), nil
}
