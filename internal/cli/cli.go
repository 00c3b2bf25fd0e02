// Package cli implements the printomat command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/printomat/pkg/buildinfo"
	"github.com/matzehuels/printomat/pkg/cache"
	"github.com/matzehuels/printomat/pkg/config"
	"github.com/matzehuels/printomat/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "printomat"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the TOML file given with --config, if any.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Printomat prepares uploaded documents for printing",
		Long:         `Printomat normalizes uploaded PDFs and images onto a standard paper size, rotates and imposes them several pages per sheet, and keeps every change as a new numbered version next to the upload.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.ConfigPath, "config", "c", "", "path to a TOML config file")

	// Register all subcommands
	root.AddCommand(c.normalizeCommand())
	root.AddCommand(c.imposeCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration named by --config, or the defaults.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.ConfigPath)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, noCache bool) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

// newCache opens the preview cache selected by cfg.
func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Preview.Cache {
	case config.CacheFile:
		dir, err := previewCacheDir(cfg)
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   appName + ":",
		})
	}
	return cache.NewNullCache(), nil
}

// pipelineOptions maps the configuration onto batch options.
func pipelineOptions(cfg config.Config, logger *log.Logger) pipeline.Options {
	return pipeline.Options{
		Paper:   cfg.Paper.Name,
		Margin:  cfg.Paper.Margin,
		Backend: cfg.Paper.Backend,
		Workers: cfg.Uploads.Workers,
		Logger:  logger,
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/printomat/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// previewCacheDir returns the configured preview cache directory, falling
// back to cacheDir.
func previewCacheDir(cfg config.Config) (string, error) {
	if cfg.Preview.CacheDir != "" {
		return cfg.Preview.CacheDir, nil
	}
	return cacheDir()
}

// groupByDir splits file paths into their directories, since the pipeline
// runs over names relative to one directory. Directories are sorted; names
// keep their input order.
func groupByDir(paths []string) ([]string, map[string][]string) {
	groups := make(map[string][]string)
	for _, p := range paths {
		dir, name := filepath.Split(p)
		dir = filepath.Clean(dir)
		groups[dir] = append(groups[dir], name)
	}
	dirs := make([]string, 0, len(groups))
	for dir := range groups {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, groups
}
