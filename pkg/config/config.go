// Package config loads printomat configuration from a TOML file and the
// environment.
//
// Values are resolved in order: built-in defaults, then the TOML file (if
// any), then PRINTOMAT_* environment variables.
//
//	[paper]
//	name = "A4"
//	margin = 10
//
//	[uploads]
//	root = "/srv/printomat/uploads"
//	job_dir = "/srv/printomat/jobs"
//	workers = 4
//	session_ttl = "15m"
//
//	[preview]
//	width = 600
//	height = 850
//	cache = "redis"
//
//	[redis]
//	addr = "localhost:6379"
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
)

// Cache backends for previews.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Backends for paged documents.
const (
	BackendPDF    = "pdf"
	BackendMemory = "memory"
)

// Config is the complete application configuration.
type Config struct {
	Paper   PaperConfig   `toml:"paper"`
	Uploads UploadsConfig `toml:"uploads"`
	Preview PreviewConfig `toml:"preview"`
	Redis   RedisConfig   `toml:"redis"`
	Server  ServerConfig  `toml:"server"`
}

// PaperConfig selects the output sheet.
type PaperConfig struct {
	Name    string  `toml:"name"`
	Margin  float64 `toml:"margin"`
	Backend string  `toml:"backend"`
}

// UploadsConfig locates upload directories.
type UploadsConfig struct {
	Root       string   `toml:"root"`
	JobDir     string   `toml:"job_dir"`
	Workers    int      `toml:"workers"`
	SessionTTL Duration `toml:"session_ttl"`
}

// PreviewConfig controls preview rendering.
type PreviewConfig struct {
	Width    int      `toml:"width"`
	Height   int      `toml:"height"`
	Cache    string   `toml:"cache"`
	CacheDir string   `toml:"cache_dir"`
	TTL      Duration `toml:"ttl"`
}

// RedisConfig configures the Redis preview cache.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ServerConfig configures the control API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration that decodes from strings like "15m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paper: PaperConfig{
			Name:    geometry.A4.Name,
			Margin:  geometry.DefaultMargin,
			Backend: BackendPDF,
		},
		Uploads: UploadsConfig{
			Root:       filepath.Join(os.TempDir(), "printomat", "uploads"),
			JobDir:     filepath.Join(os.TempDir(), "printomat", "jobs"),
			Workers:    4,
			SessionTTL: Duration{15 * time.Minute},
		},
		Preview: PreviewConfig{
			Width:  600,
			Height: 850,
			Cache:  CacheNone,
			TTL:    Duration{time.Hour},
		},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Server: ServerConfig{Addr: "127.0.0.1:8631"},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, errors.New(errors.ErrCodeInvalidFormat, "unknown config key %q in %s", undecoded[0].String(), path)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides fields from PRINTOMAT_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"PRINTOMAT_PAPER":          &c.Paper.Name,
		"PRINTOMAT_BACKEND":        &c.Paper.Backend,
		"PRINTOMAT_UPLOAD_ROOT":    &c.Uploads.Root,
		"PRINTOMAT_JOB_DIR":        &c.Uploads.JobDir,
		"PRINTOMAT_PREVIEW_CACHE":  &c.Preview.Cache,
		"PRINTOMAT_CACHE_DIR":      &c.Preview.CacheDir,
		"PRINTOMAT_REDIS_ADDR":     &c.Redis.Addr,
		"PRINTOMAT_REDIS_PASSWORD": &c.Redis.Password,
		"PRINTOMAT_ADDR":           &c.Server.Addr,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PRINTOMAT_WORKERS":  &c.Uploads.Workers,
		"PRINTOMAT_REDIS_DB": &c.Redis.DB,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", key)
			}
			*dst = n
		}
	}

	if v, ok := lookup("PRINTOMAT_MARGIN"); ok {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "PRINTOMAT_MARGIN")
		}
		c.Paper.Margin = m
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	paper, err := geometry.LookupPaper(c.Paper.Name)
	if err != nil {
		return err
	}
	if _, err := geometry.Inset(paper.Rect(geometry.Portrait), c.Paper.Margin); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "paper margin %.2f", c.Paper.Margin)
	}
	switch c.Paper.Backend {
	case BackendPDF, BackendMemory:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown backend %q", c.Paper.Backend)
	}
	if c.Uploads.Root == "" {
		return errors.New(errors.ErrCodeInvalidInput, "uploads.root must be set")
	}
	if c.Uploads.Workers < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "uploads.workers must be at least 1")
	}
	if c.Preview.Width < 1 || c.Preview.Height < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "preview size must be positive")
	}
	switch c.Preview.Cache {
	case CacheNone, CacheFile, CacheRedis:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown preview cache %q", c.Preview.Cache)
	}
	return nil
}

// PaperSize returns the configured paper size. Call after Validate.
func (c Config) PaperSize() geometry.PaperSize {
	p, err := geometry.LookupPaper(c.Paper.Name)
	if err != nil {
		return geometry.A4
	}
	return p
}
