// Package adapters holds the source adapter registry and the adapters
// themselves. Every adapter fetches through the shared retry client and
// skips malformed records instead of failing its whole pass.
package adapters

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"hotboard/internal/fetch"
	"hotboard/internal/hotlist"
)

// maxItems caps every adapter's output per pass.
const maxItems = 30

// Deps is everything an adapter needs at construction time.
type Deps struct {
	Client *fetch.Client
	Logger *zap.Logger
}

// Factory builds one adapter instance.
type Factory func(Deps) hotlist.Adapter

// registry maps adapter key to factory. Populated at build time; no
// runtime plugin loading.
var registry = map[string]Factory{
	"weibo_hot":  func(d Deps) hotlist.Adapter { return NewWeibo(d) },
	"zhihu_hot":  func(d Deps) hotlist.Adapter { return NewZhihu(d) },
	"ithome_hot": func(d Deps) hotlist.Adapter { return NewITHome(d) },
}

// Keys returns all registered adapter keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New constructs the adapter registered under key.
func New(key string, deps Deps) (hotlist.Adapter, error) {
	factory, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q", key)
	}
	return factory(deps), nil
}

// Build constructs every registered adapter.
func Build(deps Deps) map[string]hotlist.Adapter {
	out := make(map[string]hotlist.Adapter, len(registry))
	for key, factory := range registry {
		out[key] = factory(deps)
	}
	return out
}
