// Package promocache keeps a bloom filter of active promotion codes so the
// public validate endpoint can reject garbage codes without touching the
// database. False positives only cost one extra query; false negatives
// cannot happen for codes loaded or added through this cache.
package promocache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const (
	filterCapacity = 1_000_000
	filterFPR      = 0.001
)

// CodeSource lists the promotion codes the filter should contain.
type CodeSource interface {
	ListCodes(ctx context.Context) ([]string, error)
}

// Filter is a concurrency-safe bloom filter over upper-cased promotion
// codes.
type Filter struct {
	source CodeSource

	mu sync.RWMutex
	bf *bloom.BloomFilter
}

// New builds a Filter and loads the current code set from source.
func New(ctx context.Context, source CodeSource) (*Filter, error) {
	f := &Filter{source: source}
	if err := f.Reload(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Reload replaces the filter contents with the source's current code set.
// Bloom filters cannot delete, so deactivated codes stay until a reload;
// they still fail the database eligibility check, just without the
// shortcut.
func (f *Filter) Reload(ctx context.Context) error {
	codes, err := f.source.ListCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "list promotion codes")
	}

	bf := bloom.NewWithEstimates(filterCapacity, filterFPR)
	for _, code := range codes {
		bf.AddString(strings.ToUpper(code))
	}

	f.mu.Lock()
	f.bf = bf
	f.mu.Unlock()
	return nil
}

// Add records a newly created code without a full reload.
func (f *Filter) Add(code string) {
	f.mu.Lock()
	f.bf.AddString(strings.ToUpper(code))
	f.mu.Unlock()
}

// MayContain reports whether code might be a known promotion code. A false
// result is definitive; a true result needs the database check.
func (f *Filter) MayContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bf.TestString(strings.ToUpper(code))
}

// StartRefresh reloads the filter at the given interval until ctx is
// cancelled. Reload failures are reported through onErr and retried on the
// next tick.
func (f *Filter) StartRefresh(ctx context.Context, interval time.Duration, onErr func(error)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := f.Reload(ctx); err != nil && onErr != nil {
					onErr(err)
				}
			}
		}
	}()
}
