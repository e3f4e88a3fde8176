package cachedapi

import "context"

type outcomeKey struct{}

// Outcome reports whether the last lookup made with a context was served from cache.
type Outcome struct {
	Key string
	Hit bool
	Set bool // a lookup ran
}

// WithOutcome returns a context that records lookup outcomes into the returned Outcome.
// Handlers use it to set the X-Cache response header.
func WithOutcome(ctx context.Context) (context.Context, *Outcome) {
	o := &Outcome{}
	return context.WithValue(ctx, outcomeKey{}, o), o
}

func recordOutcome(ctx context.Context, key string, hit bool) {
	if o, ok := ctx.Value(outcomeKey{}).(*Outcome); ok {
		o.Key = key
		o.Hit = hit
		o.Set = true
	}
}
