package mood

import (
	"context"
	"log/slog"
)

// Chain implements Analyzer by trying analyzers in order. The first
// success wins; a failing analyzer falls through to the next. The last
// analyzer in the chain should be one that cannot fail (Rules), so a
// chain always resolves to a label.
type Chain struct {
	analyzers []Analyzer
	logger    *slog.Logger
}

// NewChain creates an analyzer chain. At least one analyzer is
// required.
func NewChain(analyzers ...Analyzer) (*Chain, error) {
	if len(analyzers) == 0 {
		return nil, ErrNoAnalyzers
	}
	return &Chain{
		analyzers: analyzers,
		logger:    slog.Default().With("component", "mood.chain"),
	}, nil
}

// Analyze tries each analyzer in order, returning the first success.
// If every analyzer fails, the last error and Default are returned.
func (c *Chain) Analyze(ctx context.Context, text string) (Label, error) {
	var lastErr error

	for i, a := range c.analyzers {
		label, err := a.Analyze(ctx, text)
		if err == nil {
			if i > 0 {
				c.logger.Debug("fallback analyzer used", "analyzer_index", i)
			}
			return label, nil
		}

		lastErr = err
		c.logger.Warn("analyzer failed, trying next",
			"analyzer_index", i,
			"error", err,
		)

		if ctx.Err() != nil {
			return Default, ctx.Err()
		}
	}

	return Default, lastErr
}

// Verify Chain implements Analyzer at compile time.
var _ Analyzer = (*Chain)(nil)
