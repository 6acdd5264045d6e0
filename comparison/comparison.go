// Package comparison streams the same user message through two system
// prompts side by side.
package comparison

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/richinex/booster/llm"
)

// Side is one half of a comparison.
type Side struct {
	SystemMessage string
	Handler       llm.StreamHandler
	// Context aborts this side only. The run's context still applies.
	Context context.Context
}

// Params describe a comparison run.
type Params struct {
	UserMessage string
	Config      llm.ClientConfig
	Options     llm.Options
	Original    Side
	Optimized   Side
}

// Runner executes comparison runs.
type Runner struct {
	registry *llm.Registry
	log      zerolog.Logger
}

// NewRunner creates a runner over reg (DefaultRegistry when nil).
func NewRunner(reg *llm.Registry, log zerolog.Logger) *Runner {
	if reg == nil {
		reg = llm.DefaultRegistry()
	}
	return &Runner{registry: reg, log: log}
}

// Run starts both streams concurrently and waits for both to finish. Each
// side's failure is delivered to its own handler and does not affect the
// other. The returned error covers only client construction.
func (r *Runner) Run(ctx context.Context, p Params) error {
	if p.Original.Handler == nil || p.Optimized.Handler == nil {
		return fmt.Errorf("both sides need a stream handler")
	}
	original, err := llm.NewClient(r.registry, p.Config, llm.WithLogger(r.log))
	if err != nil {
		return fmt.Errorf("create original client: %w", err)
	}
	optimized, err := llm.NewClient(r.registry, p.Config, llm.WithLogger(r.log))
	if err != nil {
		return fmt.Errorf("create optimized client: %w", err)
	}

	log := r.log.With().Str("provider", original.Provider()).Str("model", original.Model()).Logger()
	log.Debug().Msg("starting comparison run")

	// A plain group: one side failing must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		r.stream(ctx, original, p, p.Original, "original", log)
		return nil
	})
	g.Go(func() error {
		r.stream(ctx, optimized, p, p.Optimized, "optimized", log)
		return nil
	})
	return g.Wait()
}

func (r *Runner) stream(parent context.Context, client *llm.Client, p Params, side Side, label string, log zerolog.Logger) {
	ctx := parent
	if side.Context != nil {
		// The side stops when either its own context or the run's ends.
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(side.Context)
		defer cancel()
		stop := context.AfterFunc(parent, cancel)
		defer stop()
	}
	req := llm.ChatRequest{
		UserMessage:   p.UserMessage,
		SystemMessage: side.SystemMessage,
		Options:       p.Options,
	}
	client.StreamChat(ctx, req, llm.StreamFuncs{
		Data: side.Handler.OnData,
		Error: func(err error) {
			log.Debug().Err(err).Str("side", label).Msg("comparison stream failed")
			side.Handler.OnError(err)
		},
		Complete: side.Handler.OnComplete,
	})
}
