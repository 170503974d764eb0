package listing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/silexa/hostctl/internal/provider"
)

// ErrorInfo captures a failure from one provider's enumeration; per
// spec.md §4.J, a provider failing never aborts the overall listing.
type ErrorInfo struct {
	Provider string
	Err      error
}

// Options configures ListBatch/ListStreaming.
type Options struct {
	IncludeDestroyed bool
	Filter           Predicate // nil matches everything
	Sort             string    // field name; empty disables sorting
	Limit            int       // 0 means unlimited
	Watch            bool      // disables streaming eligibility, same as a non-empty Sort
}

// eligibleForStreaming mirrors spec.md §4.J: streaming is incompatible
// with sort and watch.
func (o Options) eligibleForStreaming() bool {
	return o.Sort == "" && !o.Watch
}

// ListBatch enumerates every provider concurrently, applies Filter, sorts
// by Sort if set, and truncates to Limit. Ordering when Sort is empty is
// unspecified beyond "whatever order providers completed in" — callers
// that need a stable order should set Sort.
func ListBatch(ctx context.Context, providers []provider.Provider, opts Options) ([]AgentView, []ErrorInfo) {
	views, errs := collectAll(ctx, providers, opts.IncludeDestroyed)
	filtered := applyFilter(views, opts.Filter)
	if opts.Sort != "" {
		sortViews(filtered, opts.Sort)
	}
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}
	return filtered, errs
}

// ListStreaming emits one AgentView at a time as each provider's
// enumeration completes, preserving provider completion order (spec.md
// §4.J); it is only meaningful when Options.eligibleForStreaming is true.
// The returned channel is closed once every provider has reported (or
// failed); ErrorInfo entries are delivered through errCh, also closed at
// the end. Filter is applied per-item; Sort/Limit are ignored (caller
// should fall back to ListBatch when those are requested).
func ListStreaming(ctx context.Context, providers []provider.Provider, opts Options) (<-chan AgentView, <-chan ErrorInfo) {
	out := make(chan AgentView)
	errCh := make(chan ErrorInfo)

	go func() {
		defer close(out)
		defer close(errCh)

		var wg sync.WaitGroup
		for _, p := range providers {
			wg.Add(1)
			go func(p provider.Provider) {
				defer wg.Done()
				views, err := enumerateProvider(ctx, p, opts.IncludeDestroyed)
				if err != nil {
					select {
					case errCh <- ErrorInfo{Provider: p.Name(), Err: err}:
					case <-ctx.Done():
					}
					return
				}
				for _, v := range views {
					if opts.Filter != nil && !opts.Filter.Eval(v) {
						continue
					}
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				}
			}(p)
		}
		wg.Wait()
	}()

	return out, errCh
}

func collectAll(ctx context.Context, providers []provider.Provider, includeDestroyed bool) ([]AgentView, []ErrorInfo) {
	type result struct {
		views []AgentView
		err   *ErrorInfo
	}
	results := make([]result, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			views, err := enumerateProvider(ctx, p, includeDestroyed)
			if err != nil {
				results[i] = result{err: &ErrorInfo{Provider: p.Name(), Err: err}}
				return
			}
			results[i] = result{views: views}
		}(i, p)
	}
	wg.Wait()

	var views []AgentView
	var errs []ErrorInfo
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, *r.err)
			continue
		}
		views = append(views, r.views...)
	}
	return views, errs
}

func enumerateProvider(ctx context.Context, p provider.Provider, includeDestroyed bool) ([]AgentView, error) {
	hosts, err := p.ListHosts(ctx, includeDestroyed)
	if err != nil {
		return nil, err
	}

	var views []AgentView
	for _, host := range hosts {
		agents, err := p.ListPersistedAgentData(ctx, host.Certified.HostID)
		if err != nil {
			return nil, err
		}
		for _, a := range agents {
			views = append(views, AgentView{
				AgentID:    a.ID,
				AgentName:  a.Name,
				AgentType:  a.Type,
				CreateTime: a.CreateTime,
				HostID:     host.Certified.HostID,
				HostName:   host.Certified.HostName,
				Provider:   p.Name(),
				Tags:       host.Certified.UserTags,
			})
		}
	}
	return views, nil
}

func applyFilter(views []AgentView, pred Predicate) []AgentView {
	if pred == nil {
		return views
	}
	out := make([]AgentView, 0, len(views))
	for _, v := range views {
		if pred.Eval(v) {
			out = append(out, v)
		}
	}
	return out
}

func sortViews(views []AgentView, field string) {
	sort.SliceStable(views, func(i, j int) bool {
		return lessField(views[i], views[j], field)
	})
}

func lessField(a, b AgentView, field string) bool {
	av, _ := a.Field(field)
	bv, _ := b.Field(field)
	switch av := av.(type) {
	case string:
		bv, _ := bv.(string)
		return av < bv
	case time.Time:
		bv, _ := bv.(time.Time)
		return av.Before(bv)
	default:
		return false
	}
}
