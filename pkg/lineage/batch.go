package lineage

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Definition is one named piece of T-SQL: a procedure, view, function or
// script file.
type Definition struct {
	Name string
	SQL  string
	// DefaultSchema overrides Options.DefaultSchema for this definition.
	DefaultSchema string
}

// ExtractAll extracts every definition in parallel, at most opts.Workers at
// a time. Results are in the order of defs. Cancellation is observed between
// definitions; a definition that has started runs to completion.
func ExtractAll(ctx context.Context, defs []Definition, opts Options) ([]*Result, error) {
	opts = opts.withDefaults()
	results := make([]*Result, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, def := range defs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defOpts := opts
			defOpts.Logger = opts.Logger.With(slog.String("definition", def.Name))
			if def.DefaultSchema != "" {
				defOpts.DefaultSchema = def.DefaultSchema
			}
			res := ExtractSQL(def.SQL, defOpts)
			res.Name = def.Name
			results[i] = res
			defOpts.Logger.Debug("definition extracted",
				slog.Int("edges", len(res.Edges)),
				slog.Int("findings", len(res.Findings)),
				slog.Int("parse_errors", len(res.ParseErrors)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract definitions: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract definitions: %w", err)
	}
	return results, nil
}
