package transfer

import (
	"context"
	"sync"

	"github.com/bnema/wayplat/internal/input"
)

// Completion is the outcome of a drag started by this client. It resolves
// exactly once; later resolutions are ignored. Waiting is safe from any
// goroutine.
type Completion struct {
	once   sync.Once
	done   chan struct{}
	effect input.DragEffects
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Resolved returns a completion that already holds effect.
func Resolved(effect input.DragEffects) *Completion {
	c := newCompletion()
	c.resolve(effect)
	return c
}

// resolve stores effect unless the completion already resolved, and
// reports whether it did.
func (c *Completion) resolve(effect input.DragEffects) bool {
	resolved := false
	c.once.Do(func() {
		c.effect = effect
		close(c.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the completion resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Result returns the effect, and false while unresolved.
func (c *Completion) Result() (input.DragEffects, bool) {
	select {
	case <-c.done:
		return c.effect, true
	default:
		return input.EffectNone, false
	}
}

// Wait blocks until the completion resolved or ctx is done.
func (c *Completion) Wait(ctx context.Context) (input.DragEffects, error) {
	select {
	case <-c.done:
		return c.effect, nil
	case <-ctx.Done():
		return input.EffectNone, ctx.Err()
	}
}
