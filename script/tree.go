package script

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/stencil/emitter"
	"github.com/wippyai/stencil/errors"
	"github.com/wippyai/stencil/gcheap"
)

// FinalizeTree runs both phases over top and every function nested in it.
// Phase 1 runs children before parents; phase 2 starts at top. Sibling
// scripts are processed concurrently up to Options.Workers. On failure or
// cancellation every script of the builder is discarded.
func (b *Builder) FinalizeTree(ctx context.Context, top *emitter.Context) (*Script, error) {
	s, err := b.finalizeTree(ctx, top)
	if err != nil {
		b.log.Warn("finalization aborted", zap.String("script", top.Name()), zap.Error(err))
		b.DiscardAll()
		return nil, err
	}
	b.log.Info("compilation finalized",
		zap.String("script", s.Name()),
		zap.Int("scripts", s.Count()))
	return s, nil
}

func (b *Builder) finalizeTree(ctx context.Context, top *emitter.Context) (*Script, error) {
	u, err := b.initTree(ctx, top)
	if err != nil {
		return nil, err
	}
	if err := u.finishInner(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(errors.PhaseFinish, err)
	}
	if err := u.FinishGCThings(make([]gcheap.Handle, u.stencil.gcThingCount)); err != nil {
		return nil, err
	}
	u.InitAtomMap(make([]string, u.stencil.atomCount))
	return u.Finalize(), nil
}

func (b *Builder) initTree(ctx context.Context, c *emitter.Context) (*Unfinalized, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(errors.PhaseInit, err)
	}

	var children []*emitter.Context
	things := c.GCThings()
	for i := 0; i < things.Len(); i++ {
		t := things.At(i)
		if t.Kind != emitter.ThingFunction {
			continue
		}
		fn := b.comp.Function(emitter.FunctionIndex(t.Index))
		errors.Violate(fn.Context != nil, errors.PhaseInit, "function %d (%s) was never emitted", t.Index, fn.Name)
		children = append(children, fn.Context)
	}

	err := forEach(ctx, b.workers, children, func(ctx context.Context, child *emitter.Context) error {
		_, err := b.initTree(ctx, child)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b.Init(c, FrameSlots(c))
}

// forEach runs fn over items, concurrently when workers allows it. With a
// single worker items run in order on the calling goroutine.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	if workers <= 1 || len(items) <= 1 {
		for _, it := range items {
			if err := fn(ctx, it); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, it := range items {
		it := it
		g.Go(func() error {
			return fn(gctx, it)
		})
	}
	return g.Wait()
}
