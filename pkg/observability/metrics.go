package observability

import (
	"context"
	"errors"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stageflow"

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	StageEntries       *prometheus.CounterVec
	StageCompletions   *prometheus.CounterVec
	TransitionsDenied  *prometheus.CounterVec
	NavigationFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Registering twice on the same registry returns the already registered collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StageEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_entries_total",
			Help:      "Committed transitions into a stage.",
		}, []string{"stage"}),
		StageCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_completions_total",
			Help:      "Stages newly marked completed.",
		}, []string{"stage"}),
		TransitionsDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_denied_total",
			Help:      "Transitions rejected by the access policy.",
		}, []string{"stage"}),
		NavigationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_failures_total",
			Help:      "Committed transitions whose navigation failed.",
		}, []string{"stage"}),
	}

	var err error
	m.StageEntries, err = register(reg, m.StageEntries)
	if err != nil {
		return nil, err
	}
	m.StageCompletions, err = register(reg, m.StageCompletions)
	if err != nil {
		return nil, err
	}
	m.TransitionsDenied, err = register(reg, m.TransitionsDenied)
	if err != nil {
		return nil, err
	}
	m.NavigationFailures, err = register(reg, m.NavigationFailures)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks that update the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	inc := func(vec *prometheus.CounterVec) func(context.Context, *domain.StageEvent) {
		return func(_ context.Context, e *domain.StageEvent) {
			vec.WithLabelValues(e.StageID).Inc()
		}
	}
	return domain.LifecycleHooks{
		OnStageEnter:       inc(m.StageEntries),
		OnStageCompleted:   inc(m.StageCompletions),
		OnTransitionDenied: inc(m.TransitionsDenied),
		OnNavigationFailed: inc(m.NavigationFailures),
	}
}
