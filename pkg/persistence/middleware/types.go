package middleware

import "github.com/aretw0/stageflow/pkg/ports"

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain wraps store with mws. The first middleware is the outermost one.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			store = mws[i](store)
		}
	}
	return store
}
