package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/conduit-lang/metadata-validator/internal/cache"
	"github.com/conduit-lang/metadata-validator/internal/catalog"
	"github.com/conduit-lang/metadata-validator/internal/cli/config"
	"github.com/conduit-lang/metadata-validator/internal/cli/ui"
	"github.com/conduit-lang/metadata-validator/internal/logging"
	"github.com/conduit-lang/metadata-validator/internal/schema"
	"github.com/conduit-lang/metadata-validator/internal/store"
	"github.com/conduit-lang/metadata-validator/internal/validator"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// environment carries the global flags and everything built from them
type environment struct {
	configPath   string
	noColor      bool
	format       string
	logLevel     string
	registryPath string

	cfg      *config.Config
	logger   *zap.Logger
	registry *schema.Registry
}

func (e *environment) bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&e.configPath, "config", "", "Config file (default ./"+config.FileName+")")
	flags.BoolVar(&e.noColor, "no-color", false, "Disable colored output")
	flags.StringVarP(&e.format, "format", "o", config.FormatTable, "Output format (table, json)")
	flags.StringVar(&e.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&e.registryPath, "registry", "", "Extra schema declarations merged over the built-in catalog")
}

// setup loads the configuration, applies flag overrides and builds the
// logger and registry. It is safe to call more than once.
func (e *environment) setup(cmd *cobra.Command) error {
	if e.cfg != nil {
		return nil
	}

	cfg, err := config.Load(e.configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, e.noColor))
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("no-color") {
		cfg.Output.NoColor = e.noColor
	}
	if flags.Changed("format") {
		if e.format != config.FormatTable && e.format != config.FormatJSON {
			return fmt.Errorf("unknown output format: %s", e.format)
		}
		cfg.Output.Format = e.format
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = e.logLevel
	}
	if flags.Changed("registry") {
		cfg.Registry.Path = e.registryPath
	}
	if cfg.Output.NoColor {
		color.NoColor = true
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	registry, err := catalog.Load(cfg.Registry.Path)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.logger = logger
	e.registry = registry
	logger.Debug("registry loaded",
		zap.Int("kinds", registry.Count()),
		zap.String("extra", cfg.Registry.Path))
	return nil
}

func (e *environment) validator() *validator.Validator {
	return validator.New(e.registry, validator.WithLogger(e.logger))
}

// cachedValidator wraps the validator with the configured cache. The caller
// closes it to release the cache.
func (e *environment) cachedValidator() (*cache.CachedValidator, error) {
	c, err := cache.Open(e.cfg.Cache.Options())
	if err != nil {
		return nil, err
	}
	return cache.NewCachedValidator(e.validator(), c, e.cfg.Cache.TTL, e.logger), nil
}

// reportStore opens the configured store, or returns nil when persistence is off
func (e *environment) reportStore(ctx context.Context, force bool) (*store.ReportStore, func(), error) {
	if !e.cfg.Store.Enabled && !force {
		return nil, func() {}, nil
	}

	db, err := store.Open(e.cfg.Store.Driver, e.cfg.Store.DSN)
	if err != nil {
		return nil, nil, err
	}

	reports := store.NewReportStore(db, e.cfg.Store.Driver)
	if err := reports.Initialize(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return reports, func() { db.Close() }, nil
}

// checkKind reports an unknown kind with suggestions
func (e *environment) checkKind(cmd *cobra.Command, kind string) error {
	if _, ok := e.registry.Get(kind); ok {
		return nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), ui.UnknownKindError(kind, e.registry.Kinds(), e.cfg.Output.NoColor))
	return &validator.UnknownKindError{Kind: kind}
}

func (e *environment) jsonOutput() bool {
	return e.cfg.Output.Format == config.FormatJSON
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
