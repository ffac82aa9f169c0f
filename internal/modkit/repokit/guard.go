package repokit

import (
	"context"
	"fmt"
	"time"
)

// Guarder is satisfied by *store.Store
type Guarder interface {
	Guard(context.Context) error
}

// MustGuard pings every backend behind g and panics if one does not answer
// binaries call it after migrations so a half-open store never starts serving
// a ctx without a deadline gets 5s
func MustGuard(ctx context.Context, g Guarder) {
	if g == nil {
		panic("dependency guard: nil store")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := g.Guard(ctx); err != nil {
		panic(fmt.Errorf("dependency guard failed: %w", err))
	}
}
