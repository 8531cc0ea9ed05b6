package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqllineage/internal/catalog"
	"github.com/leapstack-labs/sqllineage/internal/cli/config"
	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/internal/loader"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the config and logger
// stored on the command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// targets returns the paths to analyze: arguments first, then the
// configured paths, then the project root.
func (c *CommandContext) targets(args []string) []string {
	if len(args) > 0 {
		return args
	}
	if len(c.Cfg.Paths) > 0 {
		return c.Cfg.Paths
	}
	return []string{c.Cfg.ProjectRoot}
}

// Catalog loads the configured schema file. It returns nil when none is set.
func (c *CommandContext) Catalog() (*catalog.Catalog, error) {
	if c.Cfg.SchemaFile == "" {
		return nil, nil
	}
	cat, err := catalog.Load(c.Cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("schema loaded",
		slog.String("path", c.Cfg.SchemaFile),
		slog.Int("tables", len(cat.Tables())))
	return cat, nil
}

// Analyze loads the definitions under args and extracts their lineage.
func (c *CommandContext) Analyze(ctx context.Context, args []string) (*output.Report, error) {
	cat, err := c.Catalog()
	if err != nil {
		return nil, err
	}

	files, err := loader.Load(c.targets(args), loader.Options{
		Extensions: c.Cfg.Extensions,
		Exclude:    c.Cfg.Exclude,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, err
	}

	opts := c.Cfg.Options()
	opts.Logger = c.Logger
	if cat != nil {
		opts.Resolver = cat
	}

	results, err := lineage.ExtractAll(ctx, loader.Definitions(files), opts)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	rep := output.NewReport(paths, results)
	c.Logger.Info("analysis complete",
		slog.Int("definitions", rep.Summary.Definitions),
		slog.Int("edges", rep.Summary.Edges),
		slog.Int("findings", rep.Summary.Findings))
	return rep, nil
}

// threshold returns the configured risk gate, or nil when it is off.
func (c *CommandContext) threshold() (*lineage.RiskLevel, error) {
	level, enabled, err := c.Cfg.RiskThreshold()
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}
	return &level, nil
}

// ExitError carries a message for a run that completed but must exit non-zero.
type ExitError struct {
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitErrorf(format string, args ...any) error {
	return &ExitError{Message: fmt.Sprintf(format, args...)}
}
