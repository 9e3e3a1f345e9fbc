package service

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"quote_relay/internal/infra"
)

// retired marks a counter whose symbol has left the registry. It is never revived:
// a later subscribe installs a fresh counter instead.
const retired = math.MinInt64

// refCounter is one symbol's interest count.
type refCounter struct {
	n atomic.Int64
}

// increment adds one unless the counter is retired.
func (c *refCounter) increment() (after int64, ok bool) {
	for {
		cur := c.n.Load()
		if cur == retired {
			return 0, false
		}
		if c.n.CompareAndSwap(cur, cur+1) {
			return cur + 1, true
		}
	}
}

// decrement subtracts one; reaching zero or below retires the counter in the same CAS.
func (c *refCounter) decrement() (after int64, ok bool) {
	for {
		cur := c.n.Load()
		if cur == retired {
			return 0, false
		}
		after = cur - 1
		next := after
		if after <= 0 {
			next = retired
		}
		if c.n.CompareAndSwap(cur, next) {
			return after, true
		}
	}
}

// SubscriptionRegistry counts downstream interest per symbol and reports the
// 0→1 and 1→0 edges that require an upstream REG or REMOVE.
//
// Counters are per-symbol atomics; unrelated symbols never share a lock.
// Exactly one caller wins each edge.
type SubscriptionRegistry struct {
	counts  sync.Map // symbol -> *refCounter
	metrics *infra.Metrics
}

// NewSubscriptionRegistry creates an empty registry
func NewSubscriptionRegistry(metrics *infra.Metrics) *SubscriptionRegistry {
	return &SubscriptionRegistry{metrics: metrics}
}

// Subscribe adds one subscriber and reports whether this call made the symbol live (REG needed).
func (r *SubscriptionRegistry) Subscribe(symbol string) bool {
	for {
		if v, ok := r.counts.Load(symbol); ok {
			c := v.(*refCounter)
			if after, ok := c.increment(); ok {
				if after == 1 {
					r.metrics.AddActiveSymbols(1)
					slog.Info("subscribe first -> REG needed", slog.String("symbol", symbol))
					return true
				}
				slog.Debug("subscribe -> no REG", slog.String("symbol", symbol), slog.Int64("refCount", after))
				return false
			}
			// Retired under us: clear it and retry with a fresh counter.
			r.counts.CompareAndDelete(symbol, c)
			continue
		}

		fresh := &refCounter{}
		fresh.n.Store(1)
		if _, loaded := r.counts.LoadOrStore(symbol, fresh); !loaded {
			r.metrics.AddActiveSymbols(1)
			slog.Info("subscribe first -> REG needed", slog.String("symbol", symbol))
			return true
		}
	}
}

// Unsubscribe removes one subscriber and reports whether the symbol went dark (REMOVE needed).
// Unknown symbols are a no-op. A count driven below zero is cleared and forces a REMOVE.
func (r *SubscriptionRegistry) Unsubscribe(symbol string) bool {
	v, ok := r.counts.Load(symbol)
	if !ok {
		slog.Debug("unsubscribe ignored (no counter)", slog.String("symbol", symbol))
		return false
	}

	c := v.(*refCounter)
	after, ok := c.decrement()
	if !ok {
		slog.Debug("unsubscribe ignored (already removed)", slog.String("symbol", symbol))
		return false
	}

	switch {
	case after == 0:
		r.counts.CompareAndDelete(symbol, c)
		r.metrics.AddActiveSymbols(-1)
		slog.Info("unsubscribe last -> REMOVE needed", slog.String("symbol", symbol))
		return true
	case after < 0:
		r.counts.CompareAndDelete(symbol, c)
		r.metrics.AddActiveSymbols(-1)
		slog.Warn("unsubscribe underflow -> force remove", slog.String("symbol", symbol), slog.Int64("refCount", after))
		return true
	default:
		slog.Debug("unsubscribe -> no REMOVE", slog.String("symbol", symbol), slog.Int64("refCount", after))
		return false
	}
}

// Count returns the current subscriber count for a symbol (0 if absent).
func (r *SubscriptionRegistry) Count(symbol string) int {
	v, ok := r.counts.Load(symbol)
	if !ok {
		return 0
	}
	n := v.(*refCounter).n.Load()
	if n <= 0 {
		return 0
	}
	return int(n)
}

// Snapshot returns a point-in-time copy of all live counters.
func (r *SubscriptionRegistry) Snapshot() map[string]int {
	out := make(map[string]int)
	r.counts.Range(func(k, v any) bool {
		if n := v.(*refCounter).n.Load(); n > 0 {
			out[k.(string)] = int(n)
		}
		return true
	})
	return out
}
