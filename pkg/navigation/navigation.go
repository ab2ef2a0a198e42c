package navigation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/stageflow/internal/logging"
	"github.com/aretw0/stageflow/pkg/ports"
)

// Func adapts a function to ports.Navigator.
type Func func(ctx context.Context, target string) error

// Navigate implements ports.Navigator.
func (f Func) Navigate(ctx context.Context, target string) error {
	return f(ctx, target)
}

// Nop accepts every navigation and does nothing. Useful for headless hosts.
type Nop struct{}

// Navigate implements ports.Navigator.
func (Nop) Navigate(context.Context, string) error { return nil }

// Recorder remembers every target it was asked to navigate to.
// Setting Err makes every call fail after recording.
type Recorder struct {
	mu      sync.Mutex
	targets []string
	Err     error
}

// Navigate implements ports.Navigator.
func (r *Recorder) Navigate(ctx context.Context, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
	return r.Err
}

// Targets returns the recorded targets in call order.
func (r *Recorder) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.targets...)
}

// Last returns the most recent target, or "" if none.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.targets) == 0 {
		return ""
	}
	return r.targets[len(r.targets)-1]
}

// Async is a fire-and-forget decorator: Navigate returns immediately and the wrapped
// navigator runs in its own goroutine. Failures go to OnError and the logger because
// the caller is gone by the time they happen.
type Async struct {
	next    ports.Navigator
	onError func(target string, err error)
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// AsyncOption configures Async.
type AsyncOption func(*Async)

// WithErrorHandler receives failures of background navigations.
func WithErrorHandler(fn func(target string, err error)) AsyncOption {
	return func(a *Async) {
		a.onError = fn
	}
}

// WithLogger configures a logger for background failures.
func WithLogger(logger *slog.Logger) AsyncOption {
	return func(a *Async) {
		a.logger = logger
	}
}

// NewAsync wraps next.
func NewAsync(next ports.Navigator, opts ...AsyncOption) *Async {
	a := &Async{
		next:   next,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Navigate implements ports.Navigator. The request keeps the caller's values
// but not its cancellation.
func (a *Async) Navigate(ctx context.Context, target string) error {
	if a.next == nil {
		return errors.New("async navigator has no target navigator")
	}
	detached := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.next.Navigate(detached, target); err != nil {
			a.logger.Warn("Background navigation failed", "target", target, "err", err)
			if a.onError != nil {
				a.onError(target, err)
			}
		}
	}()
	return nil
}

// Wait blocks until every background navigation has returned.
func (a *Async) Wait() {
	a.wg.Wait()
}

// Multi forwards every navigation to each navigator in order and joins their errors.
// Nil entries are skipped; with one navigator left it is returned as is.
func Multi(navs ...ports.Navigator) ports.Navigator {
	var kept []ports.Navigator
	for _, n := range navs {
		if n != nil {
			kept = append(kept, n)
		}
	}
	switch len(kept) {
	case 0:
		return Nop{}
	case 1:
		return kept[0]
	}
	return multi(kept)
}

type multi []ports.Navigator

func (m multi) Navigate(ctx context.Context, target string) error {
	var errs []error
	for _, n := range m {
		if err := n.Navigate(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
